package query

import (
	"fmt"
	"reflect"
	"strings"
)

// SortField orders results by a projected field.
type SortField struct {
	Field      string `json:"field"`
	Descending bool   `json:"descending,omitempty"`
}

// ParseSortFields parses "field,-other" into sort fields; a leading "-"
// sorts descending. Empty segments are skipped.
func ParseSortFields(s string) []SortField {
	var fields []SortField
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		name, desc := strings.CutPrefix(part, "-")
		if name == "" {
			continue
		}
		fields = append(fields, SortField{Field: name, Descending: desc})
	}
	return fields
}

// Builder accumulates WHERE conditions with numbered placeholders.
// Conditions are joined with AND.
type Builder struct {
	projection  *ProjectionMap
	where       []string
	args        []any
	sort        []SortField
	defaultSort []SortField
}

// NewBuilder creates a Builder over projection. defaultSort applies when
// no valid sort is requested.
func NewBuilder(projection *ProjectionMap, defaultSort ...SortField) *Builder {
	return &Builder{projection: projection, defaultSort: defaultSort}
}

// WhereEquals adds field = value. Nil values, including typed nil
// pointers, add nothing.
func (b *Builder) WhereEquals(field string, value any) *Builder {
	return b.compare(field, "=", value)
}

// WhereAtLeast adds field >= value. Nil values add nothing.
func (b *Builder) WhereAtLeast(field string, value any) *Builder {
	return b.compare(field, ">=", value)
}

// WhereSearch adds a case-insensitive substring match of search across
// fields. An empty search adds nothing.
func (b *Builder) WhereSearch(search *string, fields ...string) *Builder {
	if search == nil || *search == "" || len(fields) == 0 {
		return b
	}

	p := b.arg("%" + escapeLike(*search) + "%")
	ors := make([]string, len(fields))
	for i, f := range fields {
		ors[i] = fmt.Sprintf("%s ILIKE %s", b.projection.mustColumn(f), p)
	}
	b.where = append(b.where, "("+strings.Join(ors, " OR ")+")")
	return b
}

// OrderByFields replaces the default sort. Fields outside the projection
// are dropped.
func (b *Builder) OrderByFields(fields []SortField) *Builder {
	b.sort = b.sort[:0]
	for _, f := range fields {
		if _, ok := b.projection.Column(f.Field); ok {
			b.sort = append(b.sort, f)
		}
	}
	return b
}

// BuildCount returns SELECT COUNT(*) over the conditions.
func (b *Builder) BuildCount() (string, []any) {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s%s", b.projection.From(), b.whereClause()), b.args
}

// BuildPage returns the ordered SELECT for a 1-based page.
func (b *Builder) BuildPage(page, pageSize int) (string, []any) {
	offset := max(page-1, 0) * pageSize
	return fmt.Sprintf(
		"SELECT %s FROM %s%s%s LIMIT %d OFFSET %d",
		b.projection.Columns(),
		b.projection.From(),
		b.whereClause(),
		b.orderClause(),
		pageSize,
		offset,
	), b.args
}

// BuildSingle returns the SELECT for the row whose field equals key. It
// ignores conditions already added.
func (b *Builder) BuildSingle(field string, key any) (string, []any) {
	return fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s = $1",
		b.projection.Columns(),
		b.projection.From(),
		b.projection.mustColumn(field),
	), []any{key}
}

func (b *Builder) compare(field, op string, value any) *Builder {
	value, ok := deref(value)
	if !ok {
		return b
	}
	col := b.projection.mustColumn(field)
	b.where = append(b.where, fmt.Sprintf("%s %s %s", col, op, b.arg(value)))
	return b
}

func (b *Builder) arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *Builder) whereClause() string {
	if len(b.where) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.where, " AND ")
}

func (b *Builder) orderClause() string {
	fields := b.sort
	if len(fields) == 0 {
		fields = b.defaultSort
	}
	if len(fields) == 0 {
		return ""
	}

	parts := make([]string, len(fields))
	for i, f := range fields {
		dir := "ASC"
		if f.Descending {
			dir = "DESC"
		}
		parts[i] = b.projection.mustColumn(f.Field) + " " + dir
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}

// deref unwraps pointer values. It reports false for nil.
func deref(v any) (any, bool) {
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	return rv.Interface(), true
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
