package main

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/lateralusd/ilroundtrip"
)

var cfg struct {
	image      string
	ildasm     string
	ilasm      string
	legacy     string
	ildasmOpts []string
	ilasmOpts  []string
	flag64     string
	verbose    bool
}

func main() {
	app := kingpin.New(filepath.Base(os.Args[0]),
		"Round-trip a managed executable through an external disassemble/reassemble pipeline.")
	app.HelpFlag.Short('h')
	app.Arg("image", "Path to the managed executable.").Required().StringVar(&cfg.image)
	app.Flag("ildasm", "Disassembler binary.").
		Envar("ILROUNDTRIP_ILDASM").Default("ildasm").StringVar(&cfg.ildasm)
	app.Flag("ilasm", "Assembler binary for v4 images.").
		Envar("ILROUNDTRIP_ILASM").Default("ilasm").StringVar(&cfg.ilasm)
	app.Flag("ilasm-legacy", "Assembler binary for pre-v4 images.").
		Envar("ILROUNDTRIP_ILASM_LEGACY").Default("ilasm2").StringVar(&cfg.legacy)
	app.Flag("ildasm-opt", "Extra disassembler option, repeatable.").StringsVar(&cfg.ildasmOpts)
	app.Flag("ilasm-opt", "Extra assembler option, repeatable.").StringsVar(&cfg.ilasmOpts)
	app.Flag("pe64-flag", "Assembler flag added for 64-bit images.").
		Default("--pe64").StringVar(&cfg.flag64)
	app.Flag("verbose", "Enable verbose logging.").Short('v').BoolVar(&cfg.verbose)
	kingpin.MustParse(app.Parse(os.Args[1:]))

	log := logrus.New()
	if cfg.verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	out, err := ilroundtrip.Run(cfg.image,
		ilroundtrip.WithLogger(log),
		ilroundtrip.WithDisassembler(ilroundtrip.Tool{Path: cfg.ildasm, Args: cfg.ildasmOpts}),
		ilroundtrip.WithAssembler(ilroundtrip.Tool{Path: cfg.ilasm, Args: cfg.ilasmOpts}),
		ilroundtrip.WithLegacyAssembler(ilroundtrip.Tool{Path: cfg.legacy, Args: cfg.ilasmOpts}),
		ilroundtrip.With64BitFlag(cfg.flag64),
	)
	switch {
	case err == nil:
		color.Green("rebuilt image written to %s", out)
	case errors.Is(err, ilroundtrip.ErrInputNotFound):
		log.Errorf("%s: no such file", cfg.image)
		os.Exit(1)
	case errors.Is(err, ilroundtrip.ErrNotManagedImage), errors.Is(err, ilroundtrip.ErrBadMachine):
		log.Errorf("%s is not a valid managed image", cfg.image)
		os.Exit(1)
	default:
		log.Errorf("pipeline failed: %v", err)
		os.Exit(1)
	}
}
