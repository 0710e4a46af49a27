// Package a1ctx implements the read-only A1 context catalog (spec
// component C3): sheet id/name lookup and the table catalog used to
// resolve names in A1 text. Grounded on the teacher's Environment
// snapshot idiom (interpreter/env.go Snapshot()) generalized from a
// variable-scope chain to a sheet/table name catalog — both are
// "immutable view, rebuilt after the owner mutates" patterns.
package a1ctx

import (
	"strings"

	"gridcore/internal/a1"
	"gridcore/internal/geom"
)

// Context is an immutable snapshot of sheet and table names. The
// gridcore.Controller rebuilds one after every transaction that
// adds/renames/moves a sheet or table (spec 4.3), and passes it by
// reference through evaluation paths so stale snapshots can't leak
// between transactions.
type Context struct {
	sheetsByID   map[geom.SheetID]string
	sheetsByName map[string]geom.SheetID // lowercased name -> id
	exactName    map[string]geom.SheetID // exact-case name -> id, priority match
	dataBounds   map[geom.SheetID]geom.Rect
	tables       map[string]a1.TableInfo // lowercased table name -> info
	tableNames   map[string]string      // lowercased -> canonical-case name
}

func New() *Context {
	return &Context{
		sheetsByID:   make(map[geom.SheetID]string),
		sheetsByName: make(map[string]geom.SheetID),
		exactName:    make(map[string]geom.SheetID),
		dataBounds:   make(map[geom.SheetID]geom.Rect),
		tables:       make(map[string]a1.TableInfo),
		tableNames:   make(map[string]string),
	}
}

// Builder accumulates catalog entries; Build() freezes them into an
// immutable Context. Kept separate from Context itself so evaluation
// code can never accidentally mutate the snapshot it was handed.
type Builder struct {
	ctx *Context
}

func NewBuilder() *Builder { return &Builder{ctx: New()} }

func (b *Builder) AddSheet(id geom.SheetID, name string, dataBounds geom.Rect) *Builder {
	b.ctx.sheetsByID[id] = name
	b.ctx.sheetsByName[strings.ToLower(name)] = id
	b.ctx.exactName[name] = id
	b.ctx.dataBounds[id] = dataBounds
	return b
}

func (b *Builder) AddTable(name string, info a1.TableInfo) *Builder {
	key := strings.ToLower(name)
	b.ctx.tables[key] = info
	b.ctx.tableNames[key] = name
	return b
}

func (b *Builder) Build() *Context { return b.ctx }

// SheetIDByName resolves case-insensitively with exact-match priority
// (spec 4.3).
func (c *Context) SheetIDByName(name string) (geom.SheetID, bool) {
	if id, ok := c.exactName[name]; ok {
		return id, true
	}
	id, ok := c.sheetsByName[strings.ToLower(name)]
	return id, ok
}

func (c *Context) SheetName(id geom.SheetID) (string, bool) {
	name, ok := c.sheetsByID[id]
	return name, ok
}

func (c *Context) TableInfo(name string) (a1.TableInfo, bool) {
	info, ok := c.tables[strings.ToLower(name)]
	return info, ok
}

// TableCanonicalName returns the catalog's canonical-case spelling of a
// table name looked up case-insensitively, used when printing A1 text.
func (c *Context) TableCanonicalName(name string) (string, bool) {
	n, ok := c.tableNames[strings.ToLower(name)]
	return n, ok
}

func (c *Context) SheetDataBounds(id geom.SheetID) geom.Rect {
	return c.dataBounds[id]
}

// AllTableNames returns every table name in the catalog, used by the
// name-uniquing sanitizer (spec 4.5).
func (c *Context) AllTableNames() []string {
	out := make([]string, 0, len(c.tableNames))
	for _, n := range c.tableNames {
		out = append(out, n)
	}
	return out
}
