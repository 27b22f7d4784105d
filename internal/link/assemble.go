package link

// assemble.go is component C8: allocating the final output buffer, copying
// every chunk's content into place, and handing the buffer to the
// relocation engine (spec.md §4.8).

import (
	"debug/elf"
	"log/slog"

	"github.com/halvardk/xld/internal/xerr"
)

// Assemble allocates a zero-initialized buffer sized to the last chunk's
// end offset, copies every chunk's bytes into place, and applies
// relocations in a final pass.
func Assemble(ctx *Context, log *slog.Logger, chunks []*OutputChunk) ([]byte, error) {
	var size uint64
	for _, c := range chunks {
		if c.NoBits() {
			continue
		}
		if end := c.ShOffset + c.ShSize; end > size {
			size = end
		}
	}

	out := make([]byte, size)

	for _, c := range chunks {
		content, err := chunkContent(ctx, c)
		if err != nil {
			return nil, xerr.Fatalf("output", c.Name, "assembling chunk: %w", err)
		}
		if content == nil {
			continue
		}
		if c.ShOffset+uint64(len(content)) > uint64(len(out)) {
			return nil, xerr.Fatalf("output", c.Name, "chunk content overruns output buffer")
		}
		copy(out[c.ShOffset:], content)
	}

	if err := ApplyRelocations(ctx, log, out); err != nil {
		return nil, err
	}
	return out, nil
}

// chunkContent returns the bytes to place at a chunk's ShOffset. Header
// chunks and synthetic tables already carry their final Content; section
// chunks are assembled by concatenating their members' bytes (skipping
// SHT_NOBITS sections, which have none).
func chunkContent(ctx *Context, c *OutputChunk) ([]byte, error) {
	if c.Kind != ChunkSection {
		return c.Content, nil
	}
	osec := ctx.OutputSection(c.Section)
	if osec.ShType == elf.SHT_NOBITS {
		return nil, nil
	}
	buf := make([]byte, c.ShSize)
	for _, id := range osec.Members {
		isec := ctx.InputSection(id)
		if isec.ShType == elf.SHT_NOBITS || len(isec.Data) == 0 {
			continue
		}
		rel := isec.FileOffset - c.ShOffset
		copy(buf[rel:], isec.Data)
	}
	return buf, nil
}
