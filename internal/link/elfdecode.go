package link

// elfdecode.go is the seam between the core linker and the low-level ELF
// byte decoder spec.md §1 calls an external collaborator. Section header
// and ELF header decoding is delegated to the standard library's debug/elf
// (the same division of labor aclements-go-obj's obj.elfFile uses,
// layering its own object model on top of debug/elf rather than
// re-deriving ELF64 struct layouts). The entries of the symbol table and
// of relocation sections are decoded here by hand with encoding/binary,
// from the raw bytes debug/elf returns for those sections.

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"fmt"
)

// rawSym64 mirrors Elf64_Sym's on-disk layout exactly (24 bytes, no
// padding under encoding/binary's field-by-field encoding).
type rawSym64 struct {
	NameOff uint32
	Info    uint8
	Other   uint8
	Shndx   uint16
	Value   uint64
	Size    uint64
}

const sym64Size = 24

func decodeSymtab(data []byte) ([]rawSym64, error) {
	if len(data)%sym64Size != 0 {
		return nil, fmt.Errorf("symtab size %d is not a multiple of %d", len(data), sym64Size)
	}
	n := len(data) / sym64Size
	out := make([]rawSym64, n)
	r := bytes.NewReader(data)
	for i := 0; i < n; i++ {
		if err := binary.Read(r, binary.LittleEndian, &out[i]); err != nil {
			return nil, fmt.Errorf("decoding symtab entry %d: %w", i, err)
		}
	}
	return out, nil
}

// rawRela64 mirrors Elf64_Rela (24 bytes: r_offset, r_info, r_addend).
type rawRela64 struct {
	Offset uint64
	Info   uint64
	Addend int64
}

const rela64Size = 24

func decodeRelaTab(data []byte) ([]rawRela64, error) {
	if len(data)%rela64Size != 0 {
		return nil, fmt.Errorf("rela section size %d is not a multiple of %d", len(data), rela64Size)
	}
	n := len(data) / rela64Size
	out := make([]rawRela64, n)
	r := bytes.NewReader(data)
	for i := 0; i < n; i++ {
		if err := binary.Read(r, binary.LittleEndian, &out[i]); err != nil {
			return nil, fmt.Errorf("decoding rela entry %d: %w", i, err)
		}
	}
	return out, nil
}

func (r rawRela64) symIndex() uint32    { return uint32(r.Info >> 32) }
func (r rawRela64) relType() elf.R_X86_64 { return elf.R_X86_64(uint32(r.Info)) }

func (s rawSym64) bind() elf.SymBind { return elf.SymBind(s.Info >> 4) }
func (s rawSym64) typ() elf.SymType  { return elf.SymType(s.Info & 0xf) }

// stringAt reads a NUL-terminated string out of an ELF string table at
// the given byte offset.
func stringAt(strtab []byte, off uint32) (string, error) {
	if int(off) >= len(strtab) {
		return "", fmt.Errorf("string offset %d out of range (strtab size %d)", off, len(strtab))
	}
	end := int(off)
	for end < len(strtab) && strtab[end] != 0 {
		end++
	}
	return string(strtab[off:end]), nil
}
