package pe

// fileOffset translates an image-relative virtual address into a file offset
// by finding the section whose virtual range contains it. The range extends
// to the larger of the virtual and raw sizes; the table may contain sections
// with a zero virtual size but nonzero raw data. Linear scan, first hit wins.
func fileOffset(sections []SectionHeader, rva uint32) (int64, error) {
	for _, s := range sections {
		size := s.VirtualSize
		if s.SizeOfRawData > size {
			size = s.SizeOfRawData
		}
		if rva >= s.VirtualAddress && rva < s.VirtualAddress+size {
			return int64(s.PointerToRawData) + int64(rva-s.VirtualAddress), nil
		}
	}
	return 0, ErrNoSection
}
