package render

import (
	"encoding/json"
	"fmt"

	"github.com/itchyny/gojq"

	"github.com/markis/gh-streamdoc/internal/record"
)

// Query is a parsed jq expression applied to the final record.
type Query struct {
	Expr  string
	query *gojq.Query
}

// NewQuery parses expr.
func NewQuery(expr string) (*Query, error) {
	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid jq expression %q: %w", expr, err)
	}
	return &Query{Expr: expr, query: query}, nil
}

// Run applies the query to rec and returns every result as indented JSON.
func (q *Query) Run(rec record.Record) ([]string, error) {
	// gojq works on plain maps and slices, not structs.
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	var input any
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}

	var out []string
	iter := q.query.Run(input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := v.(error); ok {
			return nil, fmt.Errorf("jq error: %w", err)
		}
		result, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal jq result: %w", err)
		}
		out = append(out, string(result))
	}
	return out, nil
}
