package link

// bin.go is component C4: binning every retained InputSection into its
// canonical OutputSection (spec.md §4.4), in strict object/section
// discovery order so output layout stays deterministic (spec.md §5).

import (
	"log/slog"

	"github.com/halvardk/xld/internal/xerr"
	"github.com/halvardk/xld/pkg/bitutil"
)

// BinSections walks every object's retained sections in order and merges
// each into its canonical OutputSection, creating a new output section the
// first time a (canonical name, type, flags) triple is seen. A section whose name matches no
// canonical prefix is a fatal input error (spec.md §4.4).
func BinSections(ctx *Context, log *slog.Logger) error {
	for _, obj := range ctx.Objects() {
		for shndx := range obj.hasInput {
			id, ok := obj.InputSectionAt(shndx)
			if !ok {
				continue
			}
			isec := ctx.InputSection(id)

			name, ok := canonicalName(isec.Name)
			if !ok {
				return xerr.Fatalf(obj.DisplayName(), isec.Name, "section name matches no canonical output section")
			}

			osec, created := ctx.GetOrCreateOutputSection(name, isec.ShType, isec.ShFlags)
			if created {
				log.Debug("new output section", "name", name)
			}
			osec.Members = append(osec.Members, id)
			isec.OutputSection = osec.ID
			isec.HasOutputSection = true
			if isec.Addralign > osec.ShAddralign {
				osec.ShAddralign = isec.Addralign
			}

			align := isec.Addralign
			if align == 0 {
				align = 1
			}
			osec.sizeCursor = bitutil.AlignUp(osec.sizeCursor, align)
			osec.sizeCursor += isec.Size
			osec.ShSize = osec.sizeCursor
		}
	}
	return nil
}
