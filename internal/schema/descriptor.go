package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Column is one entry of the schema descriptor: the physical column name and
// type plus a short semantic gloss the prompt builder shows to the model.
type Column struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Gloss string `json:"gloss"`
}

// Descriptor is the immutable, versioned description of the queryable table.
// The version hash changes whenever the rendered triples change, so anything
// keyed on it (cached prompts, audit records) is invalidated with the table.
type Descriptor struct {
	table   string
	columns []Column
	byName  map[string]Column
	version string
}

func New(table string, columns []Column) *Descriptor {
	d := &Descriptor{
		table:   table,
		columns: append([]Column(nil), columns...),
		byName:  make(map[string]Column, len(columns)),
	}
	for _, c := range d.columns {
		d.byName[strings.ToUpper(c.Name)] = c
	}
	sum := sha256.Sum256([]byte(d.Render()))
	d.version = hex.EncodeToString(sum[:8])
	return d
}

func (d *Descriptor) Table() string   { return d.table }
func (d *Descriptor) Version() string { return d.version }

func (d *Descriptor) Columns() []Column {
	return append([]Column(nil), d.columns...)
}

// HasColumn reports whether name is a declared column. Matching is
// case-insensitive because models frequently change identifier casing.
func (d *Descriptor) HasColumn(name string) bool {
	_, ok := d.byName[strings.ToUpper(name)]
	return ok
}

func (d *Descriptor) ColumnNames() []string {
	names := make([]string, len(d.columns))
	for i, c := range d.columns {
		names[i] = c.Name
	}
	return names
}

// Render produces the column/type/gloss triples embedded in prompts. The
// output is deterministic: column order is the declared order.
func (d *Descriptor) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Tabela %q:\n", d.table)
	for _, c := range d.columns {
		fmt.Fprintf(&b, "- %q (%s): %s\n", c.Name, c.Type, c.Gloss)
	}
	return b.String()
}
