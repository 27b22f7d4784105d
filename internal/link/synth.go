package link

// synth.go is component C6: synthesizing the three output-only tables
// (.shstrtab, .strtab, .symtab) plus the ELF/program/section header
// content. Table names and sizes are fully known before layout runs; only
// each symbol's final st_value/st_shndx depend on it, so those two fields
// are patched in a second pass after C5 completes (spec.md §9's
// "table contents depend on final addresses" open question).

import (
	"bytes"
	"debug/elf"
	"encoding/binary"

	"github.com/halvardk/xld/pkg/bitutil"
)

// BuildShstrtab assigns every non-synthetic, non-header chunk's sh_name
// offset into a new .shstrtab chunk, plus itself, .strtab and .symtab.
func BuildShstrtab(chunks []*OutputChunk) *OutputChunk {
	var buf bytes.Buffer
	buf.WriteByte(0) // index 0 is the empty string, per convention

	assign := func(name string) uint32 {
		off := uint32(buf.Len())
		buf.WriteString(name)
		buf.WriteByte(0)
		return off
	}

	for _, c := range chunks {
		if c.Kind == ChunkSection {
			off := assign(c.Name)
			c.shNameOff = off
		}
	}
	shstrtab := &OutputChunk{
		Kind:        ChunkShstrtab,
		Name:        ".shstrtab",
		ShType:      elf.SHT_STRTAB,
		ShAddralign: 1,
	}
	shstrtab.shNameOff = assign(shstrtab.Name)

	symtabNameOff := assign(".symtab")
	strtabNameOff := assign(".strtab")

	shstrtab.Content = buf.Bytes()
	shstrtab.ShSize = uint64(len(shstrtab.Content))
	shstrtab.symtabNameOff = symtabNameOff
	shstrtab.strtabNameOff = strtabNameOff
	return shstrtab
}

// symEntrySize is sizeof(Elf64_Sym).
const symEntrySize = 24

// symtabPatch records where one emitted symbol's entry lives in a not-yet
// laid-out .symtab chunk, so its st_value/st_shndx can be patched once
// addresses are final.
type symtabPatch struct {
	offset int
	obj    *ObjectFile
	sym    *Symbol
}

// BuildSymtabStrtab walks every object's symbol table and emits exactly the
// slots that are genuinely defined there: i.e. HasDefiningFile and
// DefiningFile == obj.ID. Reference slots that C3 rewrote to mirror a
// winning definition living in a different object are skipped, so each
// definition is emitted exactly once regardless of how many objects
// referenced it (spec.md §4.3, §4.6). Locals precede globals, the ELF
// st_info convention .symtab's sh_info (first global index) relies on.
func BuildSymtabStrtab(ctx *Context) (symtab, strtab *OutputChunk, patches []symtabPatch) {
	var strbuf bytes.Buffer
	strbuf.WriteByte(0)
	nameOffset := func(name string) uint32 {
		off := uint32(strbuf.Len())
		strbuf.WriteString(name)
		strbuf.WriteByte(0)
		return off
	}

	var symbuf bytes.Buffer
	// Reserved null symbol, index 0.
	symbuf.Write(make([]byte, symEntrySize))

	writeEntry := func(obj *ObjectFile, sym *Symbol) {
		entryOff := symbuf.Len()
		raw := rawSym64{
			NameOff: nameOffset(sym.Name),
			Info:    uint8(sym.Bind)<<4 | uint8(sym.Type),
			Shndx:   uint16(sym.Shndx),
			Value:   sym.Value,
			Size:    sym.Size,
		}
		binary.Write(&symbuf, binary.LittleEndian, &raw)
		patches = append(patches, symtabPatch{offset: entryOff, obj: obj, sym: sym})
	}

	numLocal := 1
	for _, obj := range ctx.Objects() {
		for i, sym := range obj.Symbols {
			if i == 0 || i >= obj.FirstGlobal {
				continue
			}
			if sym == nil || !sym.HasDefiningFile || sym.DefiningFile != obj.ID {
				continue
			}
			writeEntry(obj, sym)
			numLocal++
		}
	}
	for _, obj := range ctx.Objects() {
		for i, sym := range obj.Symbols {
			if i == 0 || i < obj.FirstGlobal {
				continue
			}
			if sym == nil || !sym.HasDefiningFile || sym.DefiningFile != obj.ID {
				continue
			}
			writeEntry(obj, sym)
		}
	}

	symtab = &OutputChunk{
		Kind:        ChunkSymtab,
		Name:        ".symtab",
		ShType:      elf.SHT_SYMTAB,
		ShAddralign: 8,
		ShEntsize:   symEntrySize,
		ShInfo:      uint32(numLocal),
		Content:     symbuf.Bytes(),
	}
	symtab.ShSize = uint64(len(symtab.Content))

	strtab = &OutputChunk{
		Kind:        ChunkStrtab,
		Name:        ".strtab",
		ShType:      elf.SHT_STRTAB,
		ShAddralign: 1,
		Content:     strbuf.Bytes(),
	}
	strtab.ShSize = uint64(len(strtab.Content))
	return symtab, strtab, patches
}

// PatchSymtabAddresses fills in st_value/st_shndx for every recorded patch,
// now that layout has assigned final addresses (spec.md §4.7). Must run
// after AssignOffsets.
func PatchSymtabAddresses(ctx *Context, symtab *OutputChunk, patches []symtabPatch) {
	for _, p := range patches {
		value, shndx := symbolAddress(ctx, p.obj, p.sym)
		binary.LittleEndian.PutUint64(symtab.Content[p.offset+8:], value)
		binary.LittleEndian.PutUint16(symtab.Content[p.offset+6:], uint16(shndx))
	}
}

// symbolAddress computes a defined symbol's final st_value/st_shndx.
func symbolAddress(ctx *Context, obj *ObjectFile, sym *Symbol) (value uint64, shndx int) {
	if sym.Absolute() {
		return sym.Value, int(elf.SHN_ABS)
	}
	isecID, ok := obj.InputSectionAt(sym.Shndx)
	if !ok {
		return 0, int(elf.SHN_UNDEF)
	}
	isec := ctx.InputSection(isecID)
	osec := ctx.OutputSection(isec.OutputSection)
	return isec.VirtualAddress(ctx) + sym.Value, osec.Shndx
}

// phdr64 mirrors Elf64_Phdr's on-disk layout.
type phdr64 struct {
	Type, Flags          uint32
	Offset, Vaddr, Paddr uint64
	Filesz, Memsz, Align uint64
}

// BuildProgramHeaders emits one PT_LOAD segment per loadable output
// section chunk (spec.md §4.6): this linker favors one segment per
// canonical section over merging runs by permission, trading a few extra
// program header entries for a much simpler, easier-to-audit layout pass.
func BuildProgramHeaders(chunks []*OutputChunk) []byte {
	var buf bytes.Buffer
	for _, c := range chunks {
		if !c.Loadable() {
			continue
		}
		filesz := c.ShSize
		if c.NoBits() {
			filesz = 0
		}
		p := phdr64{
			Type:   uint32(elf.PT_LOAD),
			Flags:  progFlags(c),
			Offset: c.ShOffset,
			Vaddr:  c.ShAddr,
			Paddr:  c.ShAddr,
			Filesz: filesz,
			Memsz:  c.ShSize,
			Align:  PageSize,
		}
		binary.Write(&buf, binary.LittleEndian, &p)
	}
	return buf.Bytes()
}

// progFlags derives PF_R/PF_W/PF_X from a chunk's section flags via the
// same bit-setting helper the rest of the linker uses for tagged bitfields.
func progFlags(c *OutputChunk) uint32 {
	var flags uint32
	view := bitutil.NewBitView(&flags)
	view.Set(2) // PF_R always set: every PT_LOAD chunk here is allocated
	view.SetIf(1, c.ShFlags&elf.SHF_WRITE != 0)
	view.SetIf(0, c.ShFlags&elf.SHF_EXECINSTR != 0)
	return flags
}

// LinkSynthChunks wires the cross-chunk references the section header
// table needs beyond what AssignShndx already filled in: .symtab's
// sh_link, and the sh_name offsets BuildShstrtab reserved for .symtab and
// .strtab before either chunk existed.
func LinkSynthChunks(shstrtab, symtab, strtab *OutputChunk) {
	symtab.ShLink = uint32(strtab.Shndx)
	symtab.shNameOff = shstrtab.symtabNameOff
	strtab.shNameOff = shstrtab.strtabNameOff
}

// shdr64 mirrors Elf64_Shdr's on-disk layout.
type shdr64 struct {
	NameOff         uint32
	Type            uint32
	Flags           uint64
	Addr            uint64
	Offset          uint64
	Size            uint64
	Link, Info      uint32
	Addralign       uint64
	Entsize         uint64
}

// BuildSectionHeaderTable emits the Elf64_Shdr array: the reserved null
// entry followed by one entry per non-header chunk, indexed by Shndx
// (spec.md §4.6).
func BuildSectionHeaderTable(chunks []*OutputChunk) []byte {
	byShndx := make(map[int]*OutputChunk)
	max := 0
	for _, c := range chunks {
		if !c.HasShndx {
			continue
		}
		byShndx[c.Shndx] = c
		if c.Shndx > max {
			max = c.Shndx
		}
	}

	var buf bytes.Buffer
	buf.Write(make([]byte, 64)) // null section, index 0
	for i := 1; i <= max; i++ {
		c := byShndx[i]
		h := shdr64{
			NameOff:   c.shNameOff,
			Type:      uint32(c.ShType),
			Flags:     uint64(c.ShFlags),
			Addr:      c.ShAddr,
			Offset:    c.ShOffset,
			Size:      c.ShSize,
			Link:      c.ShLink,
			Info:      c.ShInfo,
			Addralign: c.ShAddralign,
			Entsize:   c.ShEntsize,
		}
		binary.Write(&buf, binary.LittleEndian, &h)
	}
	return buf.Bytes()
}

// ehdr64 mirrors Elf64_Ehdr's on-disk layout (the 16-byte e_ident array is
// split into its meaningful sub-fields here for clarity).
type ehdr64 struct {
	Ident                              [16]byte
	Type, Machine                      uint16
	Version                            uint32
	Entry, Phoff, Shoff                uint64
	Flags                              uint32
	Ehsize, Phentsize, Phnum           uint16
	Shentsize, Shnum, Shstrndx         uint16
}

// BuildEhdr emits the ELF header for a static, non-PIE executable
// (spec.md §4.8).
func BuildEhdr(entry, phoff, shoff uint64, phnum, shnum, shstrndx int) []byte {
	var h ehdr64
	copy(h.Ident[:], []byte{0x7f, 'E', 'L', 'F'})
	h.Ident[4] = 2 // ELFCLASS64
	h.Ident[5] = 1 // ELFDATA2LSB
	h.Ident[6] = 1 // EV_CURRENT
	h.Type = uint16(elf.ET_EXEC)
	h.Machine = uint16(elf.EM_X86_64)
	h.Version = uint32(elf.EV_CURRENT)
	h.Entry = entry
	h.Phoff = phoff
	h.Shoff = shoff
	h.Ehsize = ehdrSize
	h.Phentsize = 56
	h.Phnum = uint16(phnum)
	h.Shentsize = 64
	h.Shnum = uint16(shnum)
	h.Shstrndx = uint16(shstrndx)

	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, &h)
	return buf.Bytes()
}
