package link

// resolve.go is component C3: the two-pass global symbol resolution
// algorithm of spec.md §4.3. Pass one (OfferGlobalSymbol, already applied
// during loading) has settled which definition wins each name; pass two
// here rewrites every *reference* slot across every object to mirror its
// winning definition, and reports the unresolved ones.

import (
	"debug/elf"
	"log/slog"
)

// ResolveSymbols runs C3 over every object currently in ctx. It returns the
// names of the symbols that remained undefined after resolution, each name
// once, in first-seen order. None of them is fatal: an undefined _start
// leaves the entry point at 0, and a relocation against an undefined symbol
// is logged as a warning and left unpatched.
func ResolveSymbols(ctx *Context, log *slog.Logger) (unresolved []string) {
	defined, resolved := 0, 0
	seen := make(map[string]bool)

	for _, obj := range ctx.Objects() {
		for i, sym := range obj.Symbols {
			if sym == nil || i == 0 {
				continue
			}
			if i < obj.FirstGlobal {
				continue
			}
			if sym.HasDefiningFile {
				defined++
				continue
			}
			// A global reference slot with no definition of its own:
			// bind it to whatever ultimately won this name.
			winner, ok := ctx.GlobalSymbol(sym.Name)
			if !ok || !winner.HasDefiningFile {
				if !seen[sym.Name] {
					seen[sym.Name] = true
					unresolved = append(unresolved, sym.Name)
				}
				continue
			}
			*sym = *winner
			resolved++
		}
	}

	log.Info("symbol resolution complete", "defined", defined, "resolved", resolved, "unresolved", len(unresolved))
	return unresolved
}

// ResolveLocalReference resolves a relocation's target symbol (local or
// global) to its final Symbol, following the reference-to-definition
// rewrite ResolveSymbols already performed for global slots.
func ResolveLocalReference(obj *ObjectFile, sym *ElfRela) (*Symbol, bool) {
	if sym.Sym <= 0 || sym.Sym >= len(obj.Symbols) {
		return nil, false
	}
	s := obj.Symbols[sym.Sym]
	if s == nil {
		return nil, false
	}
	return s, true
}

// SectionKind reports SHN_ABS/SHN_COMMON/SHN_UNDEF classification for a raw
// section index, used by the loader to reject common symbols at local scope
// (spec.md §4.1).
func SectionKind(shndx int) (abs, common, undef bool) {
	return shndx == int(elf.SHN_ABS), shndx == int(elf.SHN_COMMON), shndx == int(elf.SHN_UNDEF)
}
