package link

import (
	"debug/elf"
	"fmt"
)

// Symbol is a named entity bound from some object's symbol table
// (spec.md §3). Shndx, Value, Size and Bind are always read relative to
// DefiningFile: after resolution a reference slot's fields mirror its
// winning definition, even though the slot itself lives in a different
// object (spec.md §4.3).
type Symbol struct {
	// Name has any "@version" suffix already stripped (spec.md §4.1).
	Name string

	Bind  elf.SymBind
	Type  elf.SymType
	Shndx int // raw ELF section index in DefiningFile, or SHN_ABS/SHN_COMMON/SHN_UNDEF
	Value uint64
	Size  uint64

	Global bool

	DefiningFile    ObjectID
	HasDefiningFile bool
}

// Weak reports whether the symbol's binding is STB_WEAK.
func (s *Symbol) Weak() bool { return s.Bind == elf.STB_WEAK }

// Undefined reports whether the symbol slot has no definition at all
// (SHN_UNDEF, and not yet resolved against the global table).
func (s *Symbol) Undefined() bool { return !s.HasDefiningFile && s.Shndx == int(elf.SHN_UNDEF) }

// Absolute reports whether the symbol is SHN_ABS: st_value is already the
// final address, not an offset into some section (spec.md §4.7).
func (s *Symbol) Absolute() bool { return s.Shndx == int(elf.SHN_ABS) }

// ElfRela is a parsed RELA entry bound to the Symbol it targets (spec.md
// §3). Sym indexes into the owning object's Symbols slice.
type ElfRela struct {
	Offset uint64
	Type   elf.R_X86_64
	Addend int64
	Sym    int
}

// InputSection is one retained, code/data-bearing ELF section of one
// object (spec.md §3). OutputSection and FileOffset start unset and are
// assigned by the section binner (C4) and the layout pass (C5)
// respectively; bytes are never mutated in place — relocation patches
// target the output buffer, never Data.
type InputSection struct {
	ID    InputSectionID
	Name  string
	Owner ObjectID

	Data      []byte
	ShType    elf.SectionType
	ShFlags   elf.SectionFlag
	Addralign uint64
	// Size is authoritative over len(Data): bss/tbss sections carry
	// sh_size with no backing bytes (spec.md §9 "open questions").
	Size uint64

	Relocs []ElfRela

	OutputSection    OutputSectionID
	HasOutputSection bool

	FileOffset    uint64
	HasFileOffset bool
}

// VirtualAddress returns this section's virtual address, derived from its
// output section per spec.md §4.7. Call only once layout has run.
func (isec *InputSection) VirtualAddress(ctx *Context) uint64 {
	osec := ctx.OutputSection(isec.OutputSection)
	return osec.ShAddr + (isec.FileOffset - osec.ShOffset)
}

// ObjectFile is one parsed relocatable object: either a standalone file or
// one member of an `ar` archive (spec.md §3, §4.1).
type ObjectFile struct {
	ID ObjectID

	FileName        string
	ArchiveName     string
	MemberName      string
	IsArchiveMember bool
	IsDynamic       bool

	// FirstGlobal is the symtab index at which global symbols begin;
	// indices [1, FirstGlobal) are local, [FirstGlobal, len) are global.
	FirstGlobal int
	// Symbols is parallel to the raw ELF symbol table; index 0 is the
	// reserved null symbol and is always nil.
	Symbols []*Symbol

	// InputSections is parallel to the ELF section header table; an entry
	// is meaningful only where hasInput is true, and a false hasInput slot
	// means that ELF section was filtered out at load time (spec.md §3).
	InputSections []InputSectionID
	hasInput      []bool
}

// DisplayName names the object the way `ar`/`nm` diagnostics do:
// "archive.a(member.o)" for archive members, the bare path otherwise
// (spec.md §3, supplemented per SPEC_FULL.md).
func (o *ObjectFile) DisplayName() string {
	if o.IsArchiveMember {
		return fmt.Sprintf("%s(%s)", o.ArchiveName, o.MemberName)
	}
	return o.FileName
}

// InputSectionAt returns the InputSection bound to ELF section index shndx
// in this object, if one was retained.
func (o *ObjectFile) InputSectionAt(shndx int) (InputSectionID, bool) {
	if shndx < 0 || shndx >= len(o.hasInput) || !o.hasInput[shndx] {
		return 0, false
	}
	return o.InputSections[shndx], true
}

func (o *ObjectFile) setInputSectionAt(shndx int, id InputSectionID) {
	for len(o.hasInput) <= shndx {
		o.hasInput = append(o.hasInput, false)
		o.InputSections = append(o.InputSections, 0)
	}
	o.hasInput[shndx] = true
	o.InputSections[shndx] = id
}
