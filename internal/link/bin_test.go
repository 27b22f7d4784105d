package link

import (
	"debug/elf"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinSections_MergesByCanonicalNameAndAccumulatesSize(t *testing.T) {
	ctx := NewContext()
	log := discardLogger()

	obj := &ObjectFile{FileName: "a.o"}
	objID := ctx.AddObjectFile(obj)

	text1 := &InputSection{Name: ".text", Owner: objID, ShType: elf.SHT_PROGBITS, ShFlags: elf.SHF_ALLOC | elf.SHF_EXECINSTR, Size: 10, Addralign: 1}
	text2 := &InputSection{Name: ".text.hot", Owner: objID, ShType: elf.SHT_PROGBITS, ShFlags: elf.SHF_ALLOC | elf.SHF_EXECINSTR, Size: 6, Addralign: 16}
	id1 := ctx.AddInputSection(text1)
	id2 := ctx.AddInputSection(text2)
	obj.setInputSectionAt(1, id1)
	obj.setInputSectionAt(2, id2)

	require.NoError(t, BinSections(ctx, log))

	sections := ctx.OutputSections()
	require.Len(t, sections, 1)
	osec := sections[0]
	assert.Equal(t, ".text", osec.Name)
	assert.Equal(t, []InputSectionID{id1, id2}, osec.Members)
	assert.Equal(t, uint64(16), osec.ShAddralign)
	// text1 occupies [0,10), text2 is aligned up to 16 then occupies [16,22).
	assert.Equal(t, uint64(22), osec.ShSize)

	assert.True(t, text1.HasOutputSection)
	assert.Equal(t, osec.ID, text2.OutputSection)
}

func TestBinSections_UnknownSectionNameIsFatal(t *testing.T) {
	ctx := NewContext()
	log := discardLogger()
	obj := &ObjectFile{FileName: "a.o"}
	objID := ctx.AddObjectFile(obj)

	isec := &InputSection{Name: ".mystery", Owner: objID, ShType: elf.SHT_PROGBITS, ShFlags: elf.SHF_ALLOC}
	id := ctx.AddInputSection(isec)
	obj.setInputSectionAt(1, id)

	err := BinSections(ctx, log)
	require.Error(t, err)
}
