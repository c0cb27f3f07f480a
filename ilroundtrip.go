package ilroundtrip

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/lateralusd/ilroundtrip/internal/pe"
)

// Runner starts an external tool and blocks until it exits. A non-zero exit
// status comes back as the error; nothing is retried.
type Runner func(name string, args ...string) error

// Tool is an external program plus its configuration-supplied options.
type Tool struct {
	Path string
	Args []string
}

type config struct {
	fs     afero.Fs
	run    Runner
	log    logrus.FieldLogger
	ildasm Tool
	ilasm  Tool // v4 toolchain
	legacy Tool // everything below v4
	flag64 string
}

type Option = func(c *config)

// Run round-trips a managed executable through the external
// disassemble/reassemble pipeline and returns the path of the rebuilt image,
// written next to the original with an _il marker before the extension.
func Run(imagePath string, opts ...Option) (string, error) {
	c := configFromOpts(opts...)

	if ok, err := afero.Exists(c.fs, imagePath); err != nil {
		return "", err
	} else if !ok {
		return "", ErrInputNotFound
	}

	info, err := parseImage(c.fs, imagePath)
	if err != nil {
		return "", err
	}
	c.log.WithFields(logrus.Fields{
		"version": info.RuntimeVersion,
		"64bit":   info.Is64Bit,
	}).Info("managed image")

	work := workCopyPath(imagePath)
	if err := c.fs.MkdirAll(filepath.Dir(work), 0o755); err != nil {
		return "", errors.Wrap(err, "creating work directory")
	}
	if err := copyFile(c.fs, imagePath, work); err != nil {
		return "", errors.Wrap(err, "copying image")
	}

	il := withExt(work, ".il")
	args := append([]string{work, "--out", il}, c.ildasm.Args...)
	c.log.WithField("args", args).Debug("running disassembler")
	if err := c.run(c.ildasm.Path, args...); err != nil {
		return "", errors.Wrap(err, "disassembler")
	}

	if err := normalizeEncoding(c.fs, il); err != nil {
		return "", errors.Wrap(err, "normalizing il encoding")
	}

	rebuilt := markedPath(work)
	tool, args := c.assembleArgs(il, work, rebuilt, info)
	c.log.WithField("args", args).Debug("running assembler")
	if err := c.run(tool, args...); err != nil {
		return "", errors.Wrap(err, "assembler")
	}

	out := filepath.Join(filepath.Dir(imagePath), filepath.Base(rebuilt))
	if err := copyFile(c.fs, rebuilt, out); err != nil {
		return "", errors.Wrap(err, "copying rebuilt image")
	}
	c.log.WithField("output", out).Info("rebuilt image ready")

	return out, nil
}

// parseImage keeps the file handle scoped to the parse; it is closed before
// any external tool touches the image.
func parseImage(fs afero.Fs, path string) (*pe.Info, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return pe.Parse(f)
}

// assembleArgs picks the v4 or legacy assembler from the runtime version
// prefix and builds its argument list: output kind from the original
// extension, the rebuilt path, a resource side-car when one exists next to
// the working copy, and the 64-bit flag when the image needs it.
func (c *config) assembleArgs(il, work, rebuilt string, info *pe.Info) (string, []string) {
	tool := c.legacy
	if strings.HasPrefix(info.RuntimeVersion, "v4") {
		tool = c.ilasm
	}

	kind := "--exe"
	if strings.EqualFold(filepath.Ext(work), ".dll") {
		kind = "--dll"
	}

	args := []string{il, kind, "--output", rebuilt}
	if res := withExt(work, ".res"); exists(c.fs, res) {
		args = append(args, "--resource", res)
	}
	if info.Is64Bit {
		args = append(args, c.flag64)
	}
	args = append(args, tool.Args...)

	return tool.Path, args
}

func WithFs(fs afero.Fs) Option {
	return Option(func(c *config) {
		c.fs = fs
	})
}

func WithRunner(run Runner) Option {
	return Option(func(c *config) {
		c.run = run
	})
}

func WithLogger(log logrus.FieldLogger) Option {
	return Option(func(c *config) {
		c.log = log
	})
}

func WithDisassembler(t Tool) Option {
	return Option(func(c *config) {
		c.ildasm = t
	})
}

func WithAssembler(t Tool) Option {
	return Option(func(c *config) {
		c.ilasm = t
	})
}

func WithLegacyAssembler(t Tool) Option {
	return Option(func(c *config) {
		c.legacy = t
	})
}

func With64BitFlag(flag string) Option {
	return Option(func(c *config) {
		c.flag64 = flag
	})
}
