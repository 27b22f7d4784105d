package link

// reloc.go is component C7: computing and patching every relocation's
// final value into the assembled output buffer (spec.md §4.7).

import (
	"debug/elf"
	"encoding/binary"
	"log/slog"

	"github.com/halvardk/xld/internal/xerr"
)

// ApplyRelocations walks every retained InputSection's relocations and
// patches their computed values into out, which must already hold the
// fully assembled (but not yet relocated) output image. An unsupported
// relocation type is a fatal input error (spec.md §4.7, §7) and aborts the
// walk immediately rather than producing a silently corrupt executable.
func ApplyRelocations(ctx *Context, log *slog.Logger, out []byte) error {
	for _, obj := range ctx.Objects() {
		for shndx := range obj.hasInput {
			id, ok := obj.InputSectionAt(shndx)
			if !ok {
				continue
			}
			isec := ctx.InputSection(id)
			if len(isec.Relocs) == 0 || !isec.HasFileOffset {
				continue
			}
			p := isec.VirtualAddress(ctx)
			for _, r := range isec.Relocs {
				if err := applyOne(ctx, log, obj, isec, out, p, r); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// applyOne computes one relocation's value per the table in spec.md §4.7
// and patches it at isec.FileOffset+r.Offset.
func applyOne(ctx *Context, log *slog.Logger, obj *ObjectFile, isec *InputSection, out []byte, sectionAddr uint64, r ElfRela) error {
	patchAt := isec.FileOffset + r.Offset
	placeAddr := sectionAddr + r.Offset

	sym, ok := ResolveLocalReference(obj, &r)
	if !ok {
		log.Error("relocation against invalid symbol index", "file", obj.DisplayName(), "section", isec.Name)
		return nil
	}

	symValue, haveValue := resolveSymbolValue(ctx, obj, sym)
	if !haveValue {
		log.Warn("relocation against unresolved symbol", "file", obj.DisplayName(), "symbol", sym.Name)
		return nil
	}

	switch r.Type {
	case elf.R_X86_64_NONE:
		return nil
	case elf.R_X86_64_64:
		binary.LittleEndian.PutUint64(out[patchAt:], uint64(int64(symValue)+r.Addend))
	case elf.R_X86_64_32:
		binary.LittleEndian.PutUint32(out[patchAt:], uint32(int64(symValue)+r.Addend))
	case elf.R_X86_64_32S:
		binary.LittleEndian.PutUint32(out[patchAt:], uint32(int32(int64(symValue)+r.Addend)))
	case elf.R_X86_64_16:
		binary.LittleEndian.PutUint16(out[patchAt:], uint16(int64(symValue)+r.Addend))
	case elf.R_X86_64_8:
		out[patchAt] = byte(int64(symValue) + r.Addend)
	case elf.R_X86_64_PC32, elf.R_X86_64_PLT32:
		value := int64(symValue) + r.Addend - int64(placeAddr)
		binary.LittleEndian.PutUint32(out[patchAt:], uint32(int32(value)))
	case elf.R_X86_64_GOT32, elf.R_X86_64_GOTTPOFF, elf.R_X86_64_GOTPCRELX:
		log.Warn("relocation type requires a GOT entry, which this linker does not build; writing zero",
			"file", obj.DisplayName(), "type", r.Type.String(), "symbol", sym.Name)
		binary.LittleEndian.PutUint32(out[patchAt:], 0)
	default:
		return xerr.Fatalf(obj.DisplayName(), isec.Name, "unsupported relocation type %s against symbol %q", r.Type, sym.Name)
	}
	return nil
}

// resolveSymbolValue computes a symbol's final address for use as a
// relocation operand (spec.md §4.7): absolute symbols use st_value
// verbatim, section-relative ones add the section's final virtual address.
func resolveSymbolValue(ctx *Context, obj *ObjectFile, sym *Symbol) (uint64, bool) {
	if sym.Absolute() {
		return sym.Value, true
	}
	definingObj := obj
	if sym.HasDefiningFile {
		definingObj = ctx.Object(sym.DefiningFile)
	} else {
		return 0, false
	}
	isecID, ok := definingObj.InputSectionAt(sym.Shndx)
	if !ok {
		return 0, false
	}
	isec := ctx.InputSection(isecID)
	if !isec.HasFileOffset {
		return 0, false
	}
	return isec.VirtualAddress(ctx) + sym.Value, true
}
