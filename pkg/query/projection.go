// Package query builds parameterized PostgreSQL SELECT statements over a
// projection of logical field names onto table columns.
package query

import (
	"fmt"
	"strings"
)

// ProjectionMap lists the columns read from one table. Filter and sort
// fields name columns directly, matching the JSON names of the scanned
// type, and only projected columns may appear in generated SQL.
type ProjectionMap struct {
	from    string
	alias   string
	fields  map[string]string
	columns []string
}

// NewProjectionMap creates an empty projection over schema.table.
func NewProjectionMap(schema, table, alias string) *ProjectionMap {
	return &ProjectionMap{
		from:   fmt.Sprintf("%s.%s %s", schema, table, alias),
		alias:  alias,
		fields: make(map[string]string),
	}
}

// Project appends columns to the select list in scan order.
func (p *ProjectionMap) Project(columns ...string) *ProjectionMap {
	for _, c := range columns {
		qualified := p.alias + "." + c
		p.fields[c] = qualified
		p.columns = append(p.columns, qualified)
	}
	return p
}

// From returns the FROM target, "schema.table alias".
func (p *ProjectionMap) From() string {
	return p.from
}

// Columns returns the select list.
func (p *ProjectionMap) Columns() string {
	return strings.Join(p.columns, ", ")
}

// Column returns the qualified column for field.
func (p *ProjectionMap) Column(field string) (string, bool) {
	col, ok := p.fields[field]
	return col, ok
}

func (p *ProjectionMap) mustColumn(field string) string {
	col, ok := p.fields[field]
	if !ok {
		panic(fmt.Sprintf("query: field %q is not projected from %s", field, p.from))
	}
	return col
}
