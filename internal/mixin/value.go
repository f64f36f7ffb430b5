package mixin

import (
	"fmt"
	"strings"
)

// FieldType classifies field values. Each type carries an explicit default
// so that reads occurring before initialization observe a defined value
// instead of failing.
type FieldType string

const (
	FieldInt    FieldType = "int"
	FieldString FieldType = "string"
	FieldList   FieldType = "list"
	FieldOption FieldType = "option"
)

// Value is a runtime field value. Only the representation matching Kind is
// meaningful; construct one through the typed helpers below.
type Value struct {
	Kind FieldType `json:"kind"`
	Int  int       `json:"int,omitempty"`
	Str  string    `json:"str,omitempty"`
	List []string  `json:"list,omitempty"`
	// Some marks an option value as present; the content rides in Str.
	Some bool `json:"some,omitempty"`
}

// IntValue wraps an integer.
func IntValue(n int) Value { return Value{Kind: FieldInt, Int: n} }

// StringValue wraps a string.
func StringValue(s string) Value { return Value{Kind: FieldString, Str: s} }

// ListValue wraps an ordered sequence.
func ListValue(items ...string) Value {
	v := Value{Kind: FieldList}
	if len(items) > 0 {
		v.List = append([]string(nil), items...)
	}
	return v
}

// NoneValue is the absent option.
func NoneValue() Value { return Value{Kind: FieldOption} }

// SomeValue is a present option.
func SomeValue(s string) Value { return Value{Kind: FieldOption, Str: s, Some: true} }

// DefaultValue returns the declared default for a field type: 0 for int,
// empty for string and list, absent for option.
func DefaultValue(t FieldType) Value {
	switch t {
	case FieldList:
		return ListValue()
	case FieldOption:
		return NoneValue()
	case FieldString:
		return StringValue("")
	default:
		return IntValue(0)
	}
}

// String renders the value the way initialization traces print it.
func (v Value) String() string {
	switch v.Kind {
	case FieldInt:
		return fmt.Sprintf("%d", v.Int)
	case FieldString:
		return v.Str
	case FieldList:
		return "List(" + strings.Join(v.List, ", ") + ")"
	case FieldOption:
		if v.Some {
			return "Some(" + v.Str + ")"
		}
		return "None"
	default:
		return ""
	}
}

// Equal reports whether two values have the same kind and content.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case FieldInt:
		return v.Int == o.Int
	case FieldString:
		return v.Str == o.Str
	case FieldList:
		if len(v.List) != len(o.List) {
			return false
		}
		for i := range v.List {
			if v.List[i] != o.List[i] {
				return false
			}
		}
		return true
	case FieldOption:
		return v.Some == o.Some && (!v.Some || v.Str == o.Str)
	default:
		return false
	}
}
