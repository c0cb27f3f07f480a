package ilroundtrip

import (
	"bytes"

	"github.com/spf13/afero"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xef, 0xbb, 0xbf}

// normalizeEncoding rewrites the file at path as UTF-8 with a BOM. The
// disassembler may emit UTF-16 of either endianness depending on locale,
// which the assembler cannot reliably consume.
func normalizeEncoding(fs afero.Fs, path string) error {
	raw, err := afero.ReadFile(fs, path)
	if err != nil {
		return err
	}

	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	text, _, err := transform.Bytes(dec, raw)
	if err != nil {
		return err
	}
	text = bytes.TrimPrefix(text, utf8BOM)

	out := make([]byte, 0, len(utf8BOM)+len(text))
	out = append(out, utf8BOM...)
	out = append(out, text...)

	return afero.WriteFile(fs, path, out, 0o644)
}
