// -----------------------------------------------------------------------
// Query - the closed where-tree / operator set of spec.md §6, encoded onto
// the wire as bracketed query-string keys (where[field][operator]=value).
// -----------------------------------------------------------------------

package coordinator

import (
	"fmt"
	"net/url"
	"strings"
)

// Operator is one of the closed set of field comparators spec.md §6 names.
type Operator string

const (
	OpEquals             Operator = "equals"
	OpNotEquals          Operator = "not_equals"
	OpGreaterThan        Operator = "greater_than"
	OpGreaterThanEqual   Operator = "greater_than_equal"
	OpLessThan           Operator = "less_than"
	OpLessThanEqual      Operator = "less_than_equal"
	OpContains           Operator = "contains"
	OpLike               Operator = "like"
	OpIn                 Operator = "in"
	OpExists             Operator = "exists"
	OpNear               Operator = "near"
)

// Cond is a single field comparator: field OP value.
type Cond struct {
	Field string
	Op    Operator
	Value interface{}
}

// Where is a tree of field comparators combined with and/or. A leaf Where
// has a non-empty Cond; a branch has And/Or populated (mutually exclusive
// with Cond and with each other).
type Where struct {
	Cond *Cond
	And  []Where
	Or   []Where
}

// Eq is a convenience constructor for the common equals case.
func Eq(field string, value interface{}) Where {
	return Where{Cond: &Cond{Field: field, Op: OpEquals, Value: value}}
}

// FieldOp is a convenience constructor for an arbitrary operator.
func FieldOp(field string, op Operator, value interface{}) Where {
	return Where{Cond: &Cond{Field: field, Op: op, Value: value}}
}

// And combines where-clauses conjunctively.
func And(clauses ...Where) Where {
	return Where{And: clauses}
}

// Or combines where-clauses disjunctively.
func Or(clauses ...Where) Where {
	return Where{Or: clauses}
}

// Query is one find/count/update-by-where request body.
type Query struct {
	Where Where
	Limit int
	Sort  string // field name, "-" prefix for descending
}

// encodeInto renders a Where tree into url.Values under the "where" root
// key using bracketed nesting: where[and][0][status][equals]=pending.
func (w Where) encodeInto(values url.Values, path string) {
	switch {
	case w.Cond != nil:
		key := fmt.Sprintf("%s[%s][%s]", path, w.Cond.Field, w.Cond.Op)
		values.Set(key, formatValue(w.Cond.Value))
	case len(w.And) > 0:
		for i, clause := range w.And {
			clause.encodeInto(values, fmt.Sprintf("%s[and][%d]", path, i))
		}
	case len(w.Or) > 0:
		for i, clause := range w.Or {
			clause.encodeInto(values, fmt.Sprintf("%s[or][%d]", path, i))
		}
	}
}

// Encode renders the query as URL query parameters for a find/count request.
func (q Query) Encode() url.Values {
	values := url.Values{}
	q.Where.encodeInto(values, "where")
	if q.Limit > 0 {
		values.Set("limit", fmt.Sprintf("%d", q.Limit))
	}
	if q.Sort != "" {
		values.Set("sort", q.Sort)
	}
	return values
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case []string:
		return strings.Join(val, ",")
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}
