package link

import (
	"debug/elf"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveSymbols_RewritesReferenceSlot(t *testing.T) {
	ctx := NewContext()
	log := discardLogger()

	defObj := &ObjectFile{FileName: "def.o"}
	defID := ctx.AddObjectFile(defObj)
	definition := &Symbol{Name: "foo", Bind: elf.STB_GLOBAL, Value: 0x10, DefiningFile: defID, HasDefiningFile: true}
	defObj.Symbols = []*Symbol{nil, definition}
	defObj.FirstGlobal = 1
	ctx.OfferGlobalSymbol(definition, log)

	refObj := &ObjectFile{FileName: "ref.o"}
	ctx.AddObjectFile(refObj)
	reference := &Symbol{Name: "foo", Bind: elf.STB_GLOBAL, Shndx: int(elf.SHN_UNDEF)}
	refObj.Symbols = []*Symbol{nil, reference}
	refObj.FirstGlobal = 1

	unresolved := ResolveSymbols(ctx, log)
	assert.Empty(t, unresolved)
	assert.True(t, reference.HasDefiningFile)
	assert.Equal(t, defID, reference.DefiningFile)
	assert.Equal(t, uint64(0x10), reference.Value)
}

func TestResolveSymbols_ReportsUnresolvedOnce(t *testing.T) {
	ctx := NewContext()
	log := discardLogger()

	obj := &ObjectFile{FileName: "a.o"}
	ctx.AddObjectFile(obj)
	ref1 := &Symbol{Name: "missing", Bind: elf.STB_GLOBAL, Shndx: int(elf.SHN_UNDEF)}
	ref2 := &Symbol{Name: "missing", Bind: elf.STB_GLOBAL, Shndx: int(elf.SHN_UNDEF)}
	obj.Symbols = []*Symbol{nil, ref1, ref2}
	obj.FirstGlobal = 1

	unresolved := ResolveSymbols(ctx, log)
	require.Len(t, unresolved, 1)
	assert.Equal(t, "missing", unresolved[0])
}
