package pe

type Machine uint16

const (
	MachineI386  Machine = 0x14c
	MachineAMD64 Machine = 0x8664
)

const lfanewOffset = 0x3c

// Offsets relative to the PE signature. The optional header is larger in
// PE32+ images, which shifts both the CLR directory entry and the start of
// the section table.
const (
	clrDirectory32 = 0xe8
	clrDirectory64 = 0xf8
	sectionTable32 = 0xf8
	sectionTable64 = 0x108
)

// FileHeader follows the 4-byte PE signature.
type FileHeader struct {
	Machine              Machine
	NumberOfSections     uint16
	TimeDateStamp        uint32
	PointerToSymbolTable uint32
	NumberOfSymbols      uint32
	SizeOfOptionalHeader uint16
	Characteristics      uint16
}

// SectionHeader is one 40-byte record of the section table.
type SectionHeader struct {
	Name                 [8]byte
	VirtualSize          uint32
	VirtualAddress       uint32
	SizeOfRawData        uint32
	PointerToRawData     uint32
	PointerToRelocations uint32
	PointerToLinenumbers uint32
	NumberOfRelocations  uint16
	NumberOfLinenumbers  uint16
	Characteristics      uint32
}
