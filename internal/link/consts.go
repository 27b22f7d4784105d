package link

import (
	"debug/elf"
	"sort"
	"strings"
)

// canonicalSectionNames lists the fixed output section names input
// sections are merged into (spec.md §3, §4.4).
var canonicalSectionNames = []string{
	".text",
	".data",
	".data.rel.ro",
	".rodata",
	".bss",
	".bss.rel.ro",
	".init_array",
	".fini_array",
	".tbss",
	".tdata",
}

// canonicalNameMatchOrder is canonicalSectionNames sorted longest name
// first, so a candidate like ".data.rel.ro" is tried before the shorter
// ".data" it would otherwise be mistakenly swallowed by (both match the
// prefix rule below).
var canonicalNameMatchOrder = sortedByLengthDesc(canonicalSectionNames)

func sortedByLengthDesc(names []string) []string {
	sorted := append([]string(nil), names...)
	sort.Slice(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })
	return sorted
}

// canonicalName returns the canonical output section name a given input
// section name binds to, and whether a match was found at all (spec.md
// §4.4: "A section whose name matches no entry is a fatal input error").
func canonicalName(inputName string) (string, bool) {
	for _, name := range canonicalNameMatchOrder {
		if inputName == name || strings.HasPrefix(inputName, name+".") {
			return name, true
		}
	}
	return "", false
}

// shtSymtabShndx is SHT_SYMTAB_SHNDX (0x12). Defined locally rather than
// relying on debug/elf exporting it, since rejecting it is a fatal-input
// check the core linker must perform regardless of toolchain version.
const shtSymtabShndx = 0x12

// shouldDiscardSection reports whether an ELF section must never become an
// InputSection, per the filter rules of spec.md §3.
func shouldDiscardSection(name string, shType elf.SectionType, flags elf.SectionFlag) bool {
	switch shType {
	case elf.SHT_NULL, elf.SHT_REL, elf.SHT_RELA, elf.SHT_SYMTAB, elf.SHT_STRTAB,
		elf.SHT_NOTE, elf.SHT_GROUP:
		return true
	}
	if flags&elf.SHF_EXCLUDE != 0 && flags&elf.SHF_ALLOC == 0 {
		return true
	}
	switch {
	case name == ".note.GNU-stack":
		return true
	case strings.HasPrefix(name, ".gnu.warning."):
		return true
	case name == ".debug_types":
		return true
	case name == ".debug_gnu_pubnames":
		return true
	case name == ".debug_gnu_pubtypes":
		return true
	}
	return false
}
