package message

import (
	"strings"

	"httpwire/wire"
)

// Headers is an ordered list of header fields. Insertion order and name case
// are preserved; lookups compare names case-insensitively. Duplicate names
// are kept and retrievable with [Headers.GetAll].
type Headers struct {
	fields []wire.Field
}

func NewHeaders(fields ...wire.Field) Headers {
	clone := make([]wire.Field, len(fields))
	copy(clone, fields)
	return Headers{fields: clone}
}

func (h *Headers) Add(name, value string) {
	h.fields = append(h.fields, wire.Field{Name: name, Value: value})
}

// Get returns the first value for name.
func (h *Headers) Get(name string) (string, bool) {
	for _, f := range h.fields {
		if strings.EqualFold(f.Name, name) {
			return f.Value, true
		}
	}
	return "", false
}

// GetAll returns every value for name, in wire order.
func (h *Headers) GetAll(name string) []string {
	values := make([]string, 0)
	for _, f := range h.fields {
		if strings.EqualFold(f.Name, name) {
			values = append(values, f.Value)
		}
	}
	return values
}

func (h *Headers) Has(name string) bool {
	_, ok := h.Get(name)
	return ok
}

func (h *Headers) Count(name string) int {
	n := 0
	for _, f := range h.fields {
		if strings.EqualFold(f.Name, name) {
			n++
		}
	}
	return n
}

// Del removes every field named name.
func (h *Headers) Del(name string) {
	kept := h.fields[:0]
	for _, f := range h.fields {
		if !strings.EqualFold(f.Name, name) {
			kept = append(kept, f)
		}
	}
	h.fields = kept
}

func (h *Headers) Len() int { return len(h.fields) }

// Fields returns a copy of the underlying fields in wire order.
func (h *Headers) Fields() []wire.Field {
	clone := make([]wire.Field, len(h.fields))
	copy(clone, h.fields)
	return clone
}
