package link

// layout.go is component C5: building the final, ordered chunk list and
// assigning every chunk its section header index, virtual address and file
// offset (spec.md §4.5). Ehdr/Phdr/Shdr flow through the exact same
// per-chunk advance rules as every other chunk, even though they carry no
// section header entry of their own (spec.md §9).

import (
	"github.com/halvardk/xld/pkg/bitutil"
)

// ehdrSize is sizeof(Elf64_Ehdr).
const ehdrSize = 64

// BuildSectionChunks returns the header chunks followed by one ChunkSection
// chunk per output section, in the order BinSections first created them.
// Symtab/Strtab/Shstrtab chunks are appended later, once their content has
// been synthesized (C6), since layout needs their final sizes too.
func BuildSectionChunks(ctx *Context) []*OutputChunk {
	chunks := []*OutputChunk{
		{Kind: ChunkEhdr, ShAddralign: 8, ShSize: ehdrSize},
		{Kind: ChunkPhdr, ShAddralign: 8},
		{Kind: ChunkShdr, ShAddralign: 8},
	}
	for _, osec := range ctx.OutputSections() {
		align := osec.ShAddralign
		if align == 0 {
			align = 1
		}
		chunks = append(chunks, &OutputChunk{
			Kind:        ChunkSection,
			Name:        osec.Name,
			ShType:      osec.ShType,
			ShFlags:     osec.ShFlags,
			ShAddralign: align,
			ShSize:      osec.ShSize,
			Section:     osec.ID,
		})
	}
	return chunks
}

// AssignShndx numbers every non-header chunk 1..N in chunk-list order
// (spec.md §4.5: "headers have no shndx of their own").
func AssignShndx(chunks []*OutputChunk) {
	next := 1
	for _, c := range chunks {
		if c.IsHeader() {
			continue
		}
		c.Shndx = next
		c.HasShndx = true
		next++
	}
}

// AssignOffsets walks the chunk list once, assigning each chunk's ShAddr
// and ShOffset, then mirrors a ChunkSection's final placement back onto its
// OutputSection and every member InputSection's FileOffset (spec.md §4.5,
// §4.7).
//
// Before a loadable chunk is placed, vaddr is snapped up to the next
// PAGE_SIZE boundary. Then, before every chunk (loadable or not), file_ofs
// is nudged so that file_ofs mod PAGE_SIZE equals vaddr mod PAGE_SIZE
// (spec.md §4.5's testable invariant;
// original_source/src/linker.rs's assign_osec_offsets). Without this, a
// loadable chunk following an SHT_NOBITS one — where vaddr keeps advancing
// through bss but file_ofs does not — would end up with incongruent
// sh_offset/sh_addr, which mmap(2) refuses for a PT_LOAD segment. Because
// non-loadable chunks do not move vaddr, a non-loadable chunk whose file_ofs
// residue no longer matches vaddr's (Phdr right after Ehdr, for instance)
// is pushed onto a later page as well.
//
// Every chunk then advances the running file offset unless it is
// SHT_NOBITS, and only a loadable chunk advances the running virtual
// address (Ehdr/Phdr/Shdr never do, since they carry no SHF_ALLOC here).
func AssignOffsets(ctx *Context, chunks []*OutputChunk, cfg *Config) {
	vaddr := cfg.ImageBase
	fileOfs := uint64(0)

	for _, c := range chunks {
		if c.Loadable() {
			vaddr = bitutil.AlignUp(vaddr, PageSize)
		}

		switch {
		case vaddr%PageSize > fileOfs%PageSize:
			fileOfs += vaddr%PageSize - fileOfs%PageSize
		case vaddr%PageSize < fileOfs%PageSize:
			fileOfs = bitutil.AlignUp(fileOfs, PageSize) + vaddr%PageSize
		}

		align := c.ShAddralign
		if align == 0 {
			align = 1
		}
		fileOfs = bitutil.AlignUp(fileOfs, align)
		vaddr = bitutil.AlignUp(vaddr, align)
		c.ShOffset = fileOfs

		if c.Loadable() {
			c.ShAddr = vaddr
		} else {
			c.ShAddr = 0
		}

		if c.Kind == ChunkSection {
			placeMembers(ctx, c)
		}

		if !c.NoBits() {
			fileOfs += c.ShSize
		}
		if c.Loadable() {
			vaddr += c.ShSize
		}
	}
}

// placeMembers mirrors a just-laid-out ChunkSection chunk's address/offset
// onto its OutputSection, then walks its member InputSections in binning
// order assigning each its FileOffset.
func placeMembers(ctx *Context, c *OutputChunk) {
	osec := ctx.OutputSection(c.Section)
	osec.ShAddr = c.ShAddr
	osec.ShOffset = c.ShOffset
	osec.Shndx = c.Shndx
	osec.HasShndx = c.HasShndx

	offset := c.ShOffset
	for _, id := range osec.Members {
		isec := ctx.InputSection(id)
		align := isec.Addralign
		if align == 0 {
			align = 1
		}
		offset = bitutil.AlignUp(offset, align)
		isec.FileOffset = offset
		isec.HasFileOffset = true
		offset += isec.Size
	}
}
