package link

import (
	"debug/elf"
	"log/slog"

	"github.com/halvardk/xld/pkg/collections"
)

// Context is the arena that owns every parsed object, every input and
// output section, and the global symbol table for the life of one link
// (spec.md §3, §4.2). It is exclusively owned by the link driver; nothing
// outside this package mutates it, and it is dropped in one shot when the
// link completes (spec.md §5).
type Context struct {
	objects       map[ObjectID]*ObjectFile
	objectOrder   []ObjectID // insertion order == argv order (spec.md §5)
	nextObjectID  ObjectID

	inputSections   map[InputSectionID]*InputSection
	nextInputID     InputSectionID

	outputSections  map[OutputSectionID]*OutputSection
	outputOrder     []OutputSectionID // order sections were first created in
	nextOutputID    OutputSectionID

	globalSymbols map[string]*Symbol
}

// NewContext creates an empty arena.
func NewContext() *Context {
	return &Context{
		objects:        make(map[ObjectID]*ObjectFile),
		inputSections:  make(map[InputSectionID]*InputSection),
		outputSections: make(map[OutputSectionID]*OutputSection),
		globalSymbols:  make(map[string]*Symbol),
	}
}

// AddObjectFile inserts a newly parsed object and assigns it a stable id.
func (c *Context) AddObjectFile(o *ObjectFile) ObjectID {
	id := c.nextObjectID
	c.nextObjectID++
	o.ID = id
	c.objects[id] = o
	c.objectOrder = append(c.objectOrder, id)
	return id
}

// Object returns the object for id; panics if id is unknown, a programmer
// error per spec.md §7.
func (c *Context) Object(id ObjectID) *ObjectFile {
	o, ok := c.objects[id]
	if !ok {
		panic("link: unknown ObjectID")
	}
	return o
}

// Objects iterates objects in insertion (argv) order, the ordering spec.md
// §5 requires for deterministic output.
func (c *Context) Objects() []*ObjectFile {
	out := make([]*ObjectFile, len(c.objectOrder))
	for i, id := range c.objectOrder {
		out[i] = c.objects[id]
	}
	return out
}

// AddInputSection inserts a new InputSection and assigns it a stable id.
func (c *Context) AddInputSection(isec *InputSection) InputSectionID {
	id := c.nextInputID
	c.nextInputID++
	isec.ID = id
	c.inputSections[id] = isec
	return id
}

// InputSection returns the section for id; panics if unknown.
func (c *Context) InputSection(id InputSectionID) *InputSection {
	isec, ok := c.inputSections[id]
	if !ok {
		panic("link: unknown InputSectionID")
	}
	return isec
}

// OutputSection returns the output section for id; panics if unknown.
func (c *Context) OutputSection(id OutputSectionID) *OutputSection {
	osec, ok := c.outputSections[id]
	if !ok {
		panic("link: unknown OutputSectionID")
	}
	return osec
}

// OutputSections returns every output section in first-use order (the
// order C4 first saw a member land in each one), which is the order C5
// splices them into the chunk list (spec.md §4.5).
func (c *Context) OutputSections() []*OutputSection {
	out := make([]*OutputSection, len(c.outputOrder))
	for i, id := range c.outputOrder {
		out[i] = c.outputSections[id]
	}
	return out
}

// GetOrCreateOutputSection returns the OutputSection keyed by
// (name, type, flags), creating one if none exists yet (spec.md §4.2,
// §4.4). It reports whether this call created a brand new section.
func (c *Context) GetOrCreateOutputSection(name string, shType elf.SectionType, flags elf.SectionFlag) (*OutputSection, bool) {
	for _, id := range c.outputOrder {
		osec := c.outputSections[id]
		if osec.Name == name && osec.ShType == shType && osec.ShFlags == flags {
			return osec, false
		}
	}
	id := c.nextOutputID
	c.nextOutputID++
	osec := &OutputSection{
		ID:      id,
		Name:    name,
		ShType:  shType,
		ShFlags: flags,
	}
	c.outputSections[id] = osec
	c.outputOrder = append(c.outputOrder, id)
	return osec, true
}

// GlobalSymbol looks up a name in the global symbol table.
func (c *Context) GlobalSymbol(name string) (*Symbol, bool) {
	sym, ok := c.globalSymbols[name]
	return sym, ok
}

// OfferGlobalSymbol implements the insertion rule of spec.md §4.3: insert
// if absent; replace a weak incumbent (logging the override); otherwise
// log a duplicate-definition error and keep the incumbent.
func (c *Context) OfferGlobalSymbol(sym *Symbol, log *slog.Logger) {
	incumbent, ok := c.globalSymbols[sym.Name]
	if !ok {
		c.globalSymbols[sym.Name] = sym
		return
	}
	if incumbent.Weak() {
		log.Debug("overriding weak symbol", "symbol", sym.Name)
		c.globalSymbols[sym.Name] = sym
		return
	}
	log.Error("duplicate symbol definition", "symbol", sym.Name)
}

// LogSummary debug-logs every object's sections and symbols, and the
// resolved global table, the way the original linker's ctx.dump() does
// after the resolve phase (SPEC_FULL.md "symbol/section dump").
func (c *Context) LogSummary(log *slog.Logger) {
	for _, o := range c.Objects() {
		log.Debug("object", "file", o.DisplayName())
		for shndx, has := range o.hasInput {
			if !has {
				continue
			}
			isec := c.InputSection(o.InputSections[shndx])
			log.Debug("\tsection", "name", isec.Name, "relocations", len(isec.Relocs))
		}
		for _, sym := range o.Symbols {
			if sym == nil {
				continue
			}
			loc := "undefined"
			if sym.HasDefiningFile {
				loc = c.Object(sym.DefiningFile).DisplayName()
			}
			log.Debug("\tsymbol", "name", sym.Name, "defined_in", loc)
		}
	}
	log.Debug("global symbols:")
	for _, name := range collections.SortedKeys(c.globalSymbols) {
		sym := c.globalSymbols[name]
		loc := "undefined"
		if sym.HasDefiningFile {
			loc = c.Object(sym.DefiningFile).DisplayName()
		}
		log.Debug("\tglobal", "name", name, "defined_in", loc)
	}
}
