package pe

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHdr = 0x80

func put16(img []byte, off int, v uint16) { binary.LittleEndian.PutUint16(img[off:], v) }
func put32(img []byte, off int, v uint32) { binary.LittleEndian.PutUint32(img[off:], v) }

func putSection(t *testing.T, img []byte, off int, s SectionHeader) {
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, s))
	copy(img[off:], buf.Bytes())
}

// managedImage builds a minimal image with one section mapping rva 0x2000 to
// file offset 0x400. The CLR header lives at rva 0x2000, the metadata root at
// rva 0x2040, so the version length field lands at file offset 0x44c.
func managedImage(t *testing.T, machine Machine, version string) []byte {
	img := make([]byte, 0x600)
	put32(img, lfanewOffset, testHdr)
	put16(img, testHdr+4, uint16(machine))
	put16(img, testHdr+6, 1)

	tbl, dir := sectionTable32, clrDirectory32
	if machine == MachineAMD64 {
		tbl, dir = sectionTable64, clrDirectory64
	}
	putSection(t, img, testHdr+tbl, SectionHeader{
		VirtualSize:      0x100,
		VirtualAddress:   0x2000,
		SizeOfRawData:    0x200,
		PointerToRawData: 0x400,
	})
	put32(img, testHdr+dir, 0x2000)

	put32(img, 0x400+8, 0x2040)
	put32(img, 0x440+0xc, uint32(len(version)+2))
	copy(img[0x440+0x10:], version)

	return img
}

func TestParseManaged64(t *testing.T) {
	img := managedImage(t, MachineAMD64, "v4.0.30319")

	info, err := Parse(bytes.NewReader(img))
	require.NoError(t, err)
	assert.True(t, info.Is64Bit)
	assert.Equal(t, "v4.0.30319", info.RuntimeVersion)
}

func TestParseManaged32(t *testing.T) {
	img := managedImage(t, MachineI386, "v2.0.50727")

	info, err := Parse(bytes.NewReader(img))
	require.NoError(t, err)
	assert.False(t, info.Is64Bit)
	assert.Equal(t, "v2.0.50727", info.RuntimeVersion)
}

func TestParseMachineTags(t *testing.T) {
	img := managedImage(t, MachineAMD64, "v4.0.30319")
	put16(img, testHdr+4, 0x1234)

	_, err := Parse(bytes.NewReader(img))
	require.ErrorIs(t, err, ErrBadMachine)
}

func TestParseNativeImage(t *testing.T) {
	img := managedImage(t, MachineAMD64, "v4.0.30319")
	put32(img, testHdr+clrDirectory64, 0)

	_, err := Parse(bytes.NewReader(img))
	require.ErrorIs(t, err, ErrNotManaged)
}

func TestParseZeroMetadataRoot(t *testing.T) {
	img := managedImage(t, MachineAMD64, "v4.0.30319")
	put32(img, 0x400+8, 0)

	_, err := Parse(bytes.NewReader(img))
	require.ErrorIs(t, err, ErrNotManaged)
}

func TestParseUnmappedDirectory(t *testing.T) {
	img := managedImage(t, MachineAMD64, "v4.0.30319")
	put32(img, testHdr+clrDirectory64, 0x9000)

	_, err := Parse(bytes.NewReader(img))
	require.ErrorIs(t, err, ErrNotManaged)
}

func TestParseTruncated(t *testing.T) {
	img := managedImage(t, MachineAMD64, "v4.0.30319")

	// The last read ends at 0x45a (ten version bytes after the length
	// field); every shorter prefix must fail cleanly.
	for n := 0; n < 0x45a; n++ {
		_, err := Parse(bytes.NewReader(img[:n]))
		require.ErrorIs(t, err, ErrNotManaged, "prefix of %d bytes", n)
	}

	info, err := Parse(bytes.NewReader(img[:0x45a]))
	require.NoError(t, err)
	assert.Equal(t, "v4.0.30319", info.RuntimeVersion)
}

func TestFileOffset(t *testing.T) {
	sections := []SectionHeader{
		{VirtualAddress: 0x1000, VirtualSize: 0x800, SizeOfRawData: 0x200, PointerToRawData: 0x400},
		{VirtualAddress: 0x2000, VirtualSize: 0, SizeOfRawData: 0x200, PointerToRawData: 0x600},
		{VirtualAddress: 0x3000, VirtualSize: 0x400, SizeOfRawData: 0x100, PointerToRawData: 0x800},
	}

	for i, s := range sections {
		size := s.VirtualSize
		if s.SizeOfRawData > size {
			size = s.SizeOfRawData
		}
		for _, delta := range []uint32{0, size / 2, size - 1} {
			rva := s.VirtualAddress + delta
			off, err := fileOffset(sections, rva)
			require.NoError(t, err, "section %d rva %#x", i, rva)
			assert.Equal(t, int64(s.PointerToRawData+delta), off)
		}
	}

	for _, rva := range []uint32{0, 0xfff, 0x2200, 0x9000} {
		_, err := fileOffset(sections, rva)
		require.ErrorIs(t, err, ErrNoSection, "rva %#x", rva)
	}
}
