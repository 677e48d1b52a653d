package database

import (
	"fmt"
	"strings"
)

// WhereBuilder assembles a parameterized WHERE clause. Placeholders are
// numbered in the order conditions are added.
type WhereBuilder struct {
	conditions []string
	args       []any
	argIndex   int
}

// NewWhereBuilder returns an empty builder whose first placeholder is $1.
func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{argIndex: 1}
}

// Add appends "column = $n". Empty strings, zero ids and nil pointers are
// skipped so optional filter fields can be passed straight through.
func (wb *WhereBuilder) Add(column string, value any) {
	if isEmptyFilter(value) {
		return
	}
	if p, ok := value.(*int64); ok {
		value = *p
	}
	wb.addCondition(fmt.Sprintf("%s = $%d", column, wb.argIndex), value)
}

// AddFold appends a case-insensitive equality on a text column.
func (wb *WhereBuilder) AddFold(column, value string) {
	if value == "" {
		return
	}
	wb.addCondition(fmt.Sprintf("lower(%s) = lower($%d)", column, wb.argIndex), value)
}

// AddNullable compares column to value, treating nil as "column IS NULL".
func (wb *WhereBuilder) AddNullable(column string, value *int64) {
	if value == nil {
		wb.conditions = append(wb.conditions, column+" IS NULL")
		return
	}
	wb.addCondition(fmt.Sprintf("%s = $%d", column, wb.argIndex), *value)
}

// AddSearch appends a substring match across columns:
// ("a" ILIKE $n OR "b" ILIKE $n). All columns share one argument.
func (wb *WhereBuilder) AddSearch(query string, columns ...string) {
	query = strings.TrimSpace(query)
	if query == "" || len(columns) == 0 {
		return
	}
	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = fmt.Sprintf("%q ILIKE $%d", col, wb.argIndex)
	}
	wb.addCondition("("+strings.Join(parts, " OR ")+")", "%"+escapeLike(query)+"%")
}

func (wb *WhereBuilder) addCondition(cond string, arg any) {
	wb.conditions = append(wb.conditions, cond)
	wb.args = append(wb.args, arg)
	wb.argIndex++
}

// NextArgIndex returns the number the next placeholder will get, for
// appending LIMIT or OFFSET parameters.
func (wb *WhereBuilder) NextArgIndex() int {
	return wb.argIndex
}

// Build returns " WHERE ..." and its arguments, or "" and nil when no
// condition was added.
func (wb *WhereBuilder) Build() (string, []any) {
	if len(wb.conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(wb.conditions, " AND "), wb.args
}

func isEmptyFilter(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case int64:
		return x == 0
	case int:
		return x == 0
	case *int64:
		return x == nil
	}
	return false
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
