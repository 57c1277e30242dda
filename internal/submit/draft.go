package submit

import (
	"fmt"
	"strconv"
	"strings"
)

// Field is one named draft value.
type Field struct {
	Name  string
	Value any
}

// Draft holds the scalar fields of an entity being edited. Field order is the
// order names were first declared or set, and it is the order they are sent in.
// A nil value means unset; unset fields are omitted from submissions.
type Draft struct {
	names  []string
	values map[string]any
}

// NewDraft creates a draft with the given fields declared and unset.
func NewDraft(names ...string) *Draft {
	d := &Draft{values: make(map[string]any, len(names))}
	for _, name := range names {
		d.declare(name)
	}
	return d
}

func (d *Draft) declare(name string) {
	if _, ok := d.values[name]; ok {
		return
	}
	d.names = append(d.names, name)
	d.values[name] = nil
}

// Set assigns value to name, declaring it if needed. Setting nil unsets it.
func (d *Draft) Set(name string, value any) {
	d.declare(name)
	switch v := value.(type) {
	case *bool:
		if v == nil {
			value = nil
		}
	case []string:
		if v == nil {
			value = nil
		}
	}
	d.values[name] = value
}

// Get returns the value of name, or nil if it is unset or undeclared.
func (d *Draft) Get(name string) any {
	return d.values[name]
}

// Text returns the submitted form of name, or "" when unset.
func (d *Draft) Text(name string) string {
	v := d.values[name]
	if v == nil {
		return ""
	}
	return FormatValue(v)
}

// Fields returns the set fields in order.
func (d *Draft) Fields() []Field {
	var out []Field
	for _, name := range d.names {
		if v := d.values[name]; v != nil {
			out = append(out, Field{Name: name, Value: v})
		}
	}
	return out
}

// Names returns every declared field name in order.
func (d *Draft) Names() []string {
	return append([]string(nil), d.names...)
}

// Clone returns an independent copy of d.
func (d *Draft) Clone() *Draft {
	c := &Draft{
		names:  append([]string(nil), d.names...),
		values: make(map[string]any, len(d.values)),
	}
	for k, v := range d.values {
		if tags, ok := v.([]string); ok {
			v = append([]string(nil), tags...)
		}
		c.values[k] = v
	}
	return c
}

// FormatValue renders a draft value as a form field.
func FormatValue(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case *bool:
		return strconv.FormatBool(*v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case []string:
		return strings.Join(v, ",")
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
