package link

// linker.go is the pipeline driver: it runs C1 through C8 in the fixed
// order spec.md §5 requires, owning the one Context that lives for the
// whole link.

import (
	"context"
	"log/slog"
	"os"

	"github.com/halvardk/xld/internal/xerr"
	"github.com/halvardk/xld/internal/xlog"
)

// LayoutChunk is one row of a LayoutReport: a diagnostic snapshot of one
// assembled OutputChunk, independent of the link's internal types so it is
// safe to serialize (SPEC_FULL.md "--dump-layout").
type LayoutChunk struct {
	Name   string `yaml:"name"`
	Kind   string `yaml:"kind"`
	Addr   uint64 `yaml:"addr"`
	Offset uint64 `yaml:"offset"`
	Size   uint64 `yaml:"size"`
}

// LayoutReport is the full chunk layout of one completed link, in final
// file order.
type LayoutReport struct {
	Entry  uint64        `yaml:"entry"`
	Chunks []LayoutChunk `yaml:"chunks"`
}

var chunkKindNames = map[ChunkKind]string{
	ChunkEhdr:     "ehdr",
	ChunkPhdr:     "phdr",
	ChunkShdr:     "shdr",
	ChunkSection:  "section",
	ChunkSymtab:   "symtab",
	ChunkStrtab:   "strtab",
	ChunkShstrtab: "shstrtab",
}

// Run executes a complete static link: load every input, resolve symbols,
// bin sections, lay out the output image, synthesize its tables, relocate,
// and write the result to cfg.OutputPath. It returns a diagnostic layout
// report regardless of whether the caller asked to dump it.
func Run(cfg *Config, log *slog.Logger, batcher *xlog.Batcher, inputs []string) (*LayoutReport, error) {
	ctx := NewContext()

	for _, path := range inputs {
		if err := LoadInput(ctx, log, path); err != nil {
			return nil, err
		}
	}

	unresolved := ResolveSymbols(ctx, log)
	for _, name := range unresolved {
		log.Warn("undefined symbol", "symbol", name)
	}
	xlog.ReplaySummary(log, "symbol resolution warnings", batcher)

	if err := BinSections(ctx, log); err != nil {
		return nil, err
	}
	if log.Enabled(context.Background(), slog.LevelDebug) {
		ctx.LogSummary(log)
	}

	chunks := BuildSectionChunks(ctx)
	ehdrChunk, phdrChunk, shdrChunk := chunks[0], chunks[1], chunks[2]

	symtab, strtab, patches := BuildSymtabStrtab(ctx)
	shstrtab := BuildShstrtab(chunks)

	full := append(chunks, symtab, strtab, shstrtab)
	AssignShndx(full)
	LinkSynthChunks(shstrtab, symtab, strtab)

	phdrChunk.ShSize = uint64(countLoadable(full)) * 56
	shdrChunk.ShSize = uint64(countWithShndx(full)+1) * 64

	AssignOffsets(ctx, full, cfg)

	PatchSymtabAddresses(ctx, symtab, patches)

	phdrChunk.Content = BuildProgramHeaders(full)
	shdrChunk.Content = BuildSectionHeaderTable(full)
	ehdrChunk.Content = BuildEhdr(entryAddress(ctx), phdrChunk.ShOffset, shdrChunk.ShOffset,
		countLoadable(full), countWithShndx(full)+1, shstrtab.Shndx)

	entry := entryAddress(ctx)
	out, err := Assemble(ctx, log, full)
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(cfg.OutputPath, out, 0o755); err != nil {
		return nil, xerr.Fatalf(cfg.OutputPath, "", "writing output: %w", err)
	}
	log.Info("wrote output", "path", cfg.OutputPath, "bytes", len(out))

	report := &LayoutReport{Entry: entry}
	for _, c := range full {
		report.Chunks = append(report.Chunks, LayoutChunk{
			Name:   chunkDisplayName(c),
			Kind:   chunkKindNames[c.Kind],
			Addr:   c.ShAddr,
			Offset: c.ShOffset,
			Size:   c.ShSize,
		})
	}
	return report, nil
}

func chunkDisplayName(c *OutputChunk) string {
	if c.Name != "" {
		return c.Name
	}
	return chunkKindNames[c.Kind]
}

// entryAddress returns the final address of the global _start symbol, or 0
// if none was defined (spec.md §4.6: an executable entry point is expected
// but its absence is not itself treated as a fatal error here).
func entryAddress(ctx *Context) uint64 {
	sym, ok := ctx.GlobalSymbol("_start")
	if !ok || !sym.HasDefiningFile {
		return 0
	}
	obj := ctx.Object(sym.DefiningFile)
	value, _ := symbolAddress(ctx, obj, sym)
	return value
}

func countLoadable(chunks []*OutputChunk) int {
	n := 0
	for _, c := range chunks {
		if c.Loadable() {
			n++
		}
	}
	return n
}

func countWithShndx(chunks []*OutputChunk) int {
	n := 0
	for _, c := range chunks {
		if c.HasShndx {
			n++
		}
	}
	return n
}
