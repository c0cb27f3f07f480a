package pe

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var (
	ErrNotManaged = errors.New("no managed runtime header")
	ErrBadMachine = errors.New("unrecognized machine tag")
	ErrNoSection  = errors.New("rva outside every section")
)

// Info is the result of a successful parse.
type Info struct {
	Is64Bit        bool
	RuntimeVersion string
}

// Parse locates the managed runtime metadata inside a PE image. It follows
// the header pointer at 0x3c, reads the machine tag and section table, chases
// the CLR directory RVA to the metadata root and returns the length-prefixed
// runtime version string stored there. Truncated input, a lookup miss or a
// zero directory RVA all come back as ErrNotManaged.
func Parse(r io.ReadSeeker) (*Info, error) {
	var lfanew uint32
	if err := readAt(r, lfanewOffset, &lfanew); err != nil {
		return nil, notManaged(err)
	}
	hdr := int64(lfanew)

	var fh FileHeader
	if err := readAt(r, hdr+4, &fh); err != nil {
		return nil, notManaged(err)
	}

	var is64 bool
	switch fh.Machine {
	case MachineI386:
		is64 = false
	case MachineAMD64:
		is64 = true
	default:
		return nil, fmt.Errorf("%w: %#x", ErrBadMachine, uint16(fh.Machine))
	}

	tableOff, dirOff := int64(sectionTable32), int64(clrDirectory32)
	if is64 {
		tableOff, dirOff = sectionTable64, clrDirectory64
	}

	sections := make([]SectionHeader, fh.NumberOfSections)
	if _, err := r.Seek(hdr+tableOff, io.SeekStart); err != nil {
		return nil, notManaged(err)
	}
	if err := binary.Read(r, binary.LittleEndian, sections); err != nil {
		return nil, notManaged(err)
	}

	var clrRVA uint32
	if err := readAt(r, hdr+dirOff, &clrRVA); err != nil {
		return nil, notManaged(err)
	}
	if clrRVA == 0 {
		return nil, ErrNotManaged
	}

	clrOff, err := fileOffset(sections, clrRVA)
	if err != nil {
		return nil, notManaged(err)
	}

	// Metadata root RVA sits 8 bytes into the CLR header.
	var metaRVA uint32
	if err := readAt(r, clrOff+8, &metaRVA); err != nil {
		return nil, notManaged(err)
	}
	if metaRVA == 0 {
		return nil, ErrNotManaged
	}

	metaOff, err := fileOffset(sections, metaRVA)
	if err != nil {
		return nil, notManaged(err)
	}

	var length int32
	if err := readAt(r, metaOff+0xc, &length); err != nil {
		return nil, notManaged(err)
	}
	if length < 2 {
		return nil, ErrNotManaged
	}

	// The counted span ends with two padding bytes that are not part of the
	// version string.
	version := make([]byte, length-2)
	if _, err := io.ReadFull(r, version); err != nil {
		return nil, notManaged(err)
	}

	return &Info{Is64Bit: is64, RuntimeVersion: string(version)}, nil
}

func readAt(r io.ReadSeeker, off int64, v interface{}) error {
	if _, err := r.Seek(off, io.SeekStart); err != nil {
		return err
	}
	return binary.Read(r, binary.LittleEndian, v)
}

func notManaged(err error) error {
	return fmt.Errorf("%w: %v", ErrNotManaged, err)
}
