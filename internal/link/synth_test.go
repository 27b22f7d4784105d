package link

import (
	"debug/elf"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildShstrtab_AssignsNameOffsets(t *testing.T) {
	chunks := []*OutputChunk{
		{Kind: ChunkEhdr},
		{Kind: ChunkSection, Name: ".text"},
		{Kind: ChunkSection, Name: ".data"},
	}
	shstrtab := BuildShstrtab(chunks)

	assert.Equal(t, ".shstrtab", shstrtab.Name)
	assert.Equal(t, elf.SHT_STRTAB, shstrtab.ShType)

	nameAt := func(off uint32) string {
		end := off
		for shstrtab.Content[end] != 0 {
			end++
		}
		return string(shstrtab.Content[off:end])
	}
	assert.Equal(t, ".text", nameAt(chunks[1].shNameOff))
	assert.Equal(t, ".data", nameAt(chunks[2].shNameOff))
	assert.Equal(t, ".shstrtab", nameAt(shstrtab.shNameOff))
	assert.Equal(t, ".symtab", nameAt(shstrtab.symtabNameOff))
	assert.Equal(t, ".strtab", nameAt(shstrtab.strtabNameOff))
}

func TestBuildSymtabStrtab_EmitsOnlyDefiningSlots(t *testing.T) {
	ctx := NewContext()

	defObj := &ObjectFile{FileName: "def.o"}
	defID := ctx.AddObjectFile(defObj)
	def := &Symbol{Name: "foo", Bind: elf.STB_GLOBAL, Value: 0x10, DefiningFile: defID, HasDefiningFile: true}
	defObj.Symbols = []*Symbol{nil, def}
	defObj.FirstGlobal = 1

	refObj := &ObjectFile{FileName: "ref.o"}
	ctx.AddObjectFile(refObj)
	// After resolution this reference slot mirrors def's fields exactly,
	// including DefiningFile pointing at defObj, not refObj.
	ref := &Symbol{Name: "foo", Bind: elf.STB_GLOBAL, Value: 0x10, DefiningFile: defID, HasDefiningFile: true}
	refObj.Symbols = []*Symbol{nil, ref}
	refObj.FirstGlobal = 1

	symtab, strtab, patches := BuildSymtabStrtab(ctx)

	// One null entry plus exactly one emitted definition for "foo".
	require.Len(t, patches, 1)
	assert.Equal(t, defObj, patches[0].obj)
	assert.Equal(t, def, patches[0].sym)
	assert.Equal(t, symEntrySize*2, len(symtab.Content))
	assert.Equal(t, uint32(1), symtab.ShInfo) // no locals, one global

	// strtab holds the empty string plus "foo".
	assert.Contains(t, string(strtab.Content), "foo")
}

func TestBuildSymtabStrtab_LocalsPrecedeGlobalsInShInfo(t *testing.T) {
	ctx := NewContext()
	obj := &ObjectFile{FileName: "a.o"}
	objID := ctx.AddObjectFile(obj)

	local := &Symbol{Name: "local_sym", Bind: elf.STB_LOCAL, DefiningFile: objID, HasDefiningFile: true}
	global := &Symbol{Name: "global_sym", Bind: elf.STB_GLOBAL, DefiningFile: objID, HasDefiningFile: true}
	obj.Symbols = []*Symbol{nil, local, global}
	obj.FirstGlobal = 2

	symtab, _, patches := BuildSymtabStrtab(ctx)
	require.Len(t, patches, 2)
	assert.Equal(t, local, patches[0].sym)
	assert.Equal(t, global, patches[1].sym)
	assert.Equal(t, uint32(2), symtab.ShInfo) // null + 1 local = 2
}

func TestPatchSymtabAddresses_WritesValueAndShndx(t *testing.T) {
	ctx := NewContext()
	obj := &ObjectFile{FileName: "a.o"}
	objID := ctx.AddObjectFile(obj)

	osec, _ := ctx.GetOrCreateOutputSection(".data", elf.SHT_PROGBITS, elf.SHF_ALLOC|elf.SHF_WRITE)
	osec.ShAddr = 0x402000
	osec.ShOffset = 0x2000
	osec.Shndx = 3
	osec.HasShndx = true

	isec := &InputSection{Name: ".data", Owner: objID, FileOffset: 0x2000, HasFileOffset: true, OutputSection: osec.ID, HasOutputSection: true}
	isecID := ctx.AddInputSection(isec)
	obj.setInputSectionAt(1, isecID)

	sym := &Symbol{Name: "g", Shndx: 1, Value: 8, DefiningFile: objID, HasDefiningFile: true}
	obj.Symbols = []*Symbol{nil, sym}
	obj.FirstGlobal = 1

	symtab, _, patches := BuildSymtabStrtab(ctx)
	PatchSymtabAddresses(ctx, symtab, patches)

	entry := symtab.Content[symEntrySize:]
	gotValue := binary.LittleEndian.Uint64(entry[8:16])
	gotShndx := binary.LittleEndian.Uint16(entry[6:8])
	assert.Equal(t, uint64(0x402008), gotValue)
	assert.Equal(t, uint16(3), gotShndx)
}

func TestBuildProgramHeaders_OneSegmentPerLoadableChunk(t *testing.T) {
	chunks := []*OutputChunk{
		{Kind: ChunkEhdr, ShFlags: 0},
		{Kind: ChunkSection, Name: ".text", ShFlags: elf.SHF_ALLOC | elf.SHF_EXECINSTR, ShOffset: 0x40, ShAddr: 0x401040, ShSize: 0x10},
		{Kind: ChunkSection, Name: ".rodata", ShFlags: elf.SHF_ALLOC, ShOffset: 0x50, ShAddr: 0x401050, ShSize: 0x8},
		{Kind: ChunkSection, Name: ".comment", ShFlags: 0, ShOffset: 0x58, ShSize: 0x8},
	}
	raw := BuildProgramHeaders(chunks)
	require.Equal(t, 56*2, len(raw))

	var first phdr64
	require.NoError(t, bread(raw[:56], &first))
	assert.Equal(t, uint32(elf.PT_LOAD), first.Type)
	assert.Equal(t, uint64(0x401040), first.Vaddr)
	assert.Equal(t, uint32(0b101), first.Flags) // PF_R | PF_X

	var second phdr64
	require.NoError(t, bread(raw[56:], &second))
	assert.Equal(t, uint64(0x401050), second.Vaddr)
	assert.Equal(t, uint32(0b100), second.Flags) // PF_R only
}

func TestBuildProgramHeaders_NoBitsHasZeroFilesz(t *testing.T) {
	chunks := []*OutputChunk{
		{Kind: ChunkSection, Name: ".bss", ShType: elf.SHT_NOBITS, ShFlags: elf.SHF_ALLOC | elf.SHF_WRITE, ShAddr: 0x403000, ShSize: 0x100},
	}
	raw := BuildProgramHeaders(chunks)
	var p phdr64
	require.NoError(t, bread(raw, &p))
	assert.Equal(t, uint64(0), p.Filesz)
	assert.Equal(t, uint64(0x100), p.Memsz)
}

func TestBuildEhdr_FieldsMatchExecutableConventions(t *testing.T) {
	raw := BuildEhdr(0x401000, 64, 200, 2, 5, 4)
	require.Equal(t, ehdrSize, len(raw))
	assert.Equal(t, byte(0x7f), raw[0])
	assert.Equal(t, byte('E'), raw[1])
	assert.Equal(t, byte(2), raw[4]) // ELFCLASS64
	assert.Equal(t, uint16(elf.ET_EXEC), binary.LittleEndian.Uint16(raw[16:18]))
	assert.Equal(t, uint16(elf.EM_X86_64), binary.LittleEndian.Uint16(raw[18:20]))
	assert.Equal(t, uint64(0x401000), binary.LittleEndian.Uint64(raw[24:32]))
	assert.Equal(t, uint64(64), binary.LittleEndian.Uint64(raw[32:40]))
	assert.Equal(t, uint64(200), binary.LittleEndian.Uint64(raw[40:48]))
}

func bread(b []byte, v *phdr64) error {
	*v = phdr64{
		Type:   binary.LittleEndian.Uint32(b[0:4]),
		Flags:  binary.LittleEndian.Uint32(b[4:8]),
		Offset: binary.LittleEndian.Uint64(b[8:16]),
		Vaddr:  binary.LittleEndian.Uint64(b[16:24]),
		Paddr:  binary.LittleEndian.Uint64(b[24:32]),
		Filesz: binary.LittleEndian.Uint64(b[32:40]),
		Memsz:  binary.LittleEndian.Uint64(b[40:48]),
		Align:  binary.LittleEndian.Uint64(b[48:56]),
	}
	return nil
}
