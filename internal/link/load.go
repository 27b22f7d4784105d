package link

// load.go is component C1: turning the raw bytes of one relocatable ELF
// object (or one `ar` archive of them) into populated ObjectFile,
// InputSection and Symbol values inserted into a Context (spec.md §4.1).

import (
	"bytes"
	"debug/elf"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/halvardk/xld/internal/xerr"
)

// LoadInput loads one command-line input path into ctx: either a single
// relocatable object, or (by ".a" extension, spec.md §4.1) an archive whose
// members are all loaded unconditionally, in archive order.
func LoadInput(ctx *Context, log *slog.Logger, path string) error {
	data, err := readFile(path)
	if err != nil {
		return xerr.Fatalf(path, "", "reading input: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".a") {
		members, err := splitArchive(data)
		if err != nil {
			return xerr.Fatalf(path, "", "parsing archive: %w", err)
		}
		for _, m := range members {
			if err := loadObject(ctx, log, path, path, m.Name, true, m.Data); err != nil {
				return err
			}
		}
		return nil
	}

	return loadObject(ctx, log, path, "", "", false, data)
}

// readFile is isolated purely so tests can substitute in-memory buffers
// without touching the filesystem package boundary.
var readFile = defaultReadFile

func defaultReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// loadObject decodes one ELF relocatable object's sections and symbol table
// and registers it (and its global definitions) with ctx.
func loadObject(ctx *Context, log *slog.Logger, fileName, archiveName, memberName string, isMember bool, data []byte) error {
	ef, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return xerr.Fatalf(fileName, memberName, "parsing ELF: %w", err)
	}
	if ef.Class != elf.ELFCLASS64 || ef.Machine != elf.EM_X86_64 {
		return xerr.Fatalf(fileName, memberName, "unsupported ELF class/machine (only ELF64 x86-64 objects are supported)")
	}

	obj := &ObjectFile{
		FileName:        fileName,
		ArchiveName:     archiveName,
		MemberName:      memberName,
		IsArchiveMember: isMember,
		IsDynamic:       ef.Type == elf.ET_DYN,
	}
	id := ctx.AddObjectFile(obj)

	var symtabSection *elf.Section
	for _, s := range ef.Sections {
		if s.Type == shtSymtabShndx {
			return xerr.Fatalf(fileName, memberName, "SHT_SYMTAB_SHNDX extended section indices are not supported")
		}
		if s.Type == elf.SHT_SYMTAB && symtabSection == nil {
			symtabSection = s
		}
	}

	// Retain sections first, since symbol Shndx values index this table.
	for shndx, s := range ef.Sections {
		if shouldDiscardSection(s.Name, s.Type, s.Flags) {
			continue
		}
		data, err := sectionData(s)
		if err != nil {
			return xerr.Fatalf(fileName, s.Name, "reading section data: %w", err)
		}
		isec := &InputSection{
			Name:      s.Name,
			Owner:     id,
			Data:      data,
			ShType:    s.Type,
			ShFlags:   s.Flags,
			Addralign: s.Addralign,
			Size:      s.Size,
		}
		isecID := ctx.AddInputSection(isec)
		obj.setInputSectionAt(shndx, isecID)
	}

	// Attach relocations: a SHT_RELA section's sh_info names the target
	// section's ELF index directly (spec.md §4.1).
	for _, s := range ef.Sections {
		if s.Type != elf.SHT_RELA {
			continue
		}
		targetID, ok := obj.InputSectionAt(int(s.Info))
		if !ok {
			continue // relocations against a discarded section are moot
		}
		raw, err := s.Data()
		if err != nil {
			return xerr.Fatalf(fileName, s.Name, "reading relocations: %w", err)
		}
		relas, err := decodeRelaTab(raw)
		if err != nil {
			return xerr.Fatalf(fileName, s.Name, "decoding relocations: %w", err)
		}
		isec := ctx.InputSection(targetID)
		for _, r := range relas {
			isec.Relocs = append(isec.Relocs, ElfRela{
				Offset: r.Offset,
				Type:   r.relType(),
				Addend: r.Addend,
				Sym:    int(r.symIndex()),
			})
		}
	}

	if symtabSection == nil {
		return nil // no symbols to contribute (e.g. an empty TU)
	}
	if err := loadSymbols(ctx, log, obj, ef, symtabSection); err != nil {
		return err
	}
	return nil
}

// loadSymbols decodes symtabSection and binds each entry to obj.Symbols,
// offering global definitions into ctx's global table (spec.md §4.1, §4.3).
func loadSymbols(ctx *Context, log *slog.Logger, obj *ObjectFile, ef *elf.File, symtabSection *elf.Section) error {
	rawData, err := symtabSection.Data()
	if err != nil {
		return xerr.Fatalf(obj.FileName, symtabSection.Name, "reading symtab: %w", err)
	}
	syms, err := decodeSymtab(rawData)
	if err != nil {
		return xerr.Fatalf(obj.FileName, symtabSection.Name, "decoding symtab: %w", err)
	}

	strtabSection := ef.Sections[symtabSection.Link]
	strtabData, err := strtabSection.Data()
	if err != nil {
		return xerr.Fatalf(obj.FileName, strtabSection.Name, "reading strtab: %w", err)
	}

	obj.FirstGlobal = int(symtabSection.Info)
	obj.Symbols = make([]*Symbol, len(syms))

	for i, raw := range syms {
		if i == 0 {
			continue // reserved null symbol, kept nil
		}
		name, err := stringAt(strtabData, raw.NameOff)
		if err != nil {
			return xerr.Fatalf(obj.FileName, symtabSection.Name, "symbol %d: %w", i, err)
		}
		name = stripVersionSuffix(name)

		shndx := int(raw.Shndx)
		_, common, _ := SectionKind(shndx)
		if common && raw.bind() == elf.STB_LOCAL {
			return xerr.Fatalf(obj.FileName, symtabSection.Name, "symbol %q: common symbol at local scope", name)
		}

		sym := &Symbol{
			Name:   name,
			Bind:   raw.bind(),
			Type:   raw.typ(),
			Shndx:  shndx,
			Value:  raw.Value,
			Size:   raw.Size,
			Global: raw.bind() == elf.STB_GLOBAL || raw.bind() == elf.STB_WEAK,
		}
		if shndx != int(elf.SHN_UNDEF) {
			sym.DefiningFile = obj.ID
			sym.HasDefiningFile = true
		}
		obj.Symbols[i] = sym

		if sym.Global && sym.HasDefiningFile {
			ctx.OfferGlobalSymbol(sym, log)
		}
	}
	return nil
}

// stripVersionSuffix removes a GNU symbol-versioning suffix ("name@VER" or
// "name@@VER"), which this linker treats as plain "name" (spec.md §4.1).
func stripVersionSuffix(name string) string {
	if i := strings.Index(name, "@"); i >= 0 {
		return name[:i]
	}
	return name
}

// sectionData reads a section's bytes, tolerating SHT_NOBITS sections
// (bss/tbss) which carry no file-backed content at all.
func sectionData(s *elf.Section) ([]byte, error) {
	if s.Type == elf.SHT_NOBITS {
		return nil, nil
	}
	return s.Data()
}
