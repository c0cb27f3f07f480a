package ilroundtrip

import (
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

func configFromOpts(opts ...Option) *config {
	log := logrus.New()
	log.SetOutput(io.Discard)

	c := &config{
		fs:     afero.NewOsFs(),
		run:    execRunner,
		log:    log,
		ildasm: Tool{Path: "ildasm"},
		ilasm:  Tool{Path: "ilasm"},
		legacy: Tool{Path: "ilasm2"},
		flag64: "--pe64",
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

func execRunner(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// workCopyPath returns <dir>/<name>_il/<name>, the isolated working copy of
// the image.
func workCopyPath(path string) string {
	name := filepath.Base(path)
	return filepath.Join(filepath.Dir(path), name+"_il", name)
}

// withExt swaps the extension of path for ext.
func withExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

// markedPath inserts the _il marker before the extension.
func markedPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_il" + ext
}

func exists(fs afero.Fs, path string) bool {
	ok, _ := afero.Exists(fs, path)
	return ok
}

func copyFile(fs afero.Fs, src, dst string) error {
	in, err := fs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := fs.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}

	return out.Close()
}
