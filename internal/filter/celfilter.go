// Package filter implements the optional stream affinity filter: a CEL
// expression narrowing which streams a record is eligible to be dispatched
// to, based on its headers. Adapted from the teacher's message-routing
// predicate evaluator, generalized from filtering messages on read to
// filtering candidate streams on write.
package filter

import (
	"strings"

	"github.com/google/cel-go/cel"
)

// StreamFilter narrows a Pending Write's candidate streams to the subset
// eligible for one record's headers. The zero value (and a nil receiver)
// match every stream — the unfiltered behavior a Writer defaults to.
type StreamFilter struct {
	prog    cel.Program
	enabled bool
}

// New compiles expr once. expr may reference `stream` (string, the
// candidate stream name) and `headers` (map[string]string, the record's
// headers). An empty or all-whitespace expr disables filtering.
func New(expr string) (*StreamFilter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return &StreamFilter{}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("stream", cel.StringType),
		cel.Variable("headers", cel.MapType(cel.StringType, cel.StringType)),
	)
	if err != nil {
		return nil, err
	}
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return nil, iss.Err()
	}
	checked, iss2 := env.Check(ast)
	if iss2 != nil && iss2.Err() != nil {
		return nil, iss2.Err()
	}
	prog, err := env.Program(checked)
	if err != nil {
		return nil, err
	}
	return &StreamFilter{prog: prog, enabled: true}, nil
}

// Eligible reports whether stream is a valid candidate for a record with
// the given headers.
func (f *StreamFilter) Eligible(stream string, headers map[string]string) bool {
	if f == nil || !f.enabled {
		return true
	}
	if headers == nil {
		headers = map[string]string{}
	}
	out, _, err := f.prog.Eval(map[string]any{
		"stream":  stream,
		"headers": headers,
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}

// Candidates returns the subset of streams eligible for headers, preserving
// relative order. Returns streams unchanged when no expression is set.
func (f *StreamFilter) Candidates(streams []string, headers map[string]string) []string {
	if f == nil || !f.enabled {
		return streams
	}
	out := make([]string, 0, len(streams))
	for _, s := range streams {
		if f.Eligible(s, headers) {
			out = append(out, s)
		}
	}
	return out
}
