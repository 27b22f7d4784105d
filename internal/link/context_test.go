package link

import (
	"debug/elf"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOfferGlobalSymbol_FirstWins(t *testing.T) {
	ctx := NewContext()
	log := discardLogger()

	first := &Symbol{Name: "foo", Bind: elf.STB_GLOBAL, HasDefiningFile: true}
	ctx.OfferGlobalSymbol(first, log)

	sym, ok := ctx.GlobalSymbol("foo")
	require.True(t, ok)
	assert.Same(t, first, sym)
}

func TestOfferGlobalSymbol_WeakIncumbentIsOverridden(t *testing.T) {
	ctx := NewContext()
	log := discardLogger()

	weak := &Symbol{Name: "foo", Bind: elf.STB_WEAK, HasDefiningFile: true}
	strong := &Symbol{Name: "foo", Bind: elf.STB_GLOBAL, HasDefiningFile: true}

	ctx.OfferGlobalSymbol(weak, log)
	ctx.OfferGlobalSymbol(strong, log)

	sym, ok := ctx.GlobalSymbol("foo")
	require.True(t, ok)
	assert.Same(t, strong, sym)
}

func TestOfferGlobalSymbol_DuplicateStrongKeepsIncumbent(t *testing.T) {
	ctx := NewContext()
	log := discardLogger()

	first := &Symbol{Name: "foo", Bind: elf.STB_GLOBAL, HasDefiningFile: true}
	second := &Symbol{Name: "foo", Bind: elf.STB_GLOBAL, HasDefiningFile: true}

	ctx.OfferGlobalSymbol(first, log)
	ctx.OfferGlobalSymbol(second, log)

	sym, ok := ctx.GlobalSymbol("foo")
	require.True(t, ok)
	assert.Same(t, first, sym)
}

func TestGetOrCreateOutputSection_MergesByNameTypeFlags(t *testing.T) {
	ctx := NewContext()

	a, created := ctx.GetOrCreateOutputSection(".text", elf.SHT_PROGBITS, elf.SHF_ALLOC|elf.SHF_EXECINSTR)
	assert.True(t, created)

	b, created := ctx.GetOrCreateOutputSection(".text", elf.SHT_PROGBITS, elf.SHF_ALLOC|elf.SHF_EXECINSTR)
	assert.False(t, created)
	assert.Same(t, a, b)

	c, created := ctx.GetOrCreateOutputSection(".data", elf.SHT_PROGBITS, elf.SHF_ALLOC|elf.SHF_WRITE)
	assert.True(t, created)
	assert.NotSame(t, a, c)

	assert.Equal(t, []*OutputSection{a, c}, ctx.OutputSections())
}

func TestObjects_PreservesInsertionOrder(t *testing.T) {
	ctx := NewContext()
	first := &ObjectFile{FileName: "a.o"}
	second := &ObjectFile{FileName: "b.o"}
	ctx.AddObjectFile(first)
	ctx.AddObjectFile(second)

	objs := ctx.Objects()
	require.Len(t, objs, 2)
	assert.Equal(t, "a.o", objs[0].FileName)
	assert.Equal(t, "b.o", objs[1].FileName)
}

func TestObjectFile_DisplayName(t *testing.T) {
	standalone := &ObjectFile{FileName: "main.o"}
	assert.Equal(t, "main.o", standalone.DisplayName())

	member := &ObjectFile{ArchiveName: "libfoo.a", MemberName: "bar.o", IsArchiveMember: true}
	assert.Equal(t, "libfoo.a(bar.o)", member.DisplayName())
}
