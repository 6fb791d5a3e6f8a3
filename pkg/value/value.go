// Package value provides the closed value variant carried by parameters:
// string, number, boolean or null.
package value

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBoolean
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	default:
		return fmt.Sprintf("kind(%d)", k)
	}
}

// Value errors.
var (
	ErrInvalidValue = errors.New("invalid value")
	ErrUnknownKind  = errors.New("unknown value kind")
)

// Value is an immutable tagged variant. The zero value is Null.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
}

// Null is the null value.
var Null = Value{}

// String returns a string value.
func String(s string) Value {
	return Value{kind: KindString, str: s}
}

// Number returns a number value.
func Number(f float64) Value {
	return Value{kind: KindNumber, num: f}
}

// Bool returns a boolean value.
func Bool(b bool) Value {
	return Value{kind: KindBoolean, b: b}
}

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is Null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsString returns the string held by v.
func (v Value) AsString() (string, bool) { return v.str, v.kind == KindString }

// AsNumber returns the number held by v.
func (v Value) AsNumber() (float64, bool) { return v.num, v.kind == KindNumber }

// AsBool returns the boolean held by v.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBoolean }

// Any returns v as a plain Go value: string, float64, bool or nil.
func (v Value) Any() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBoolean:
		return v.b
	default:
		return nil
	}
}

// String formats v for display.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindBoolean:
		return strconv.FormatBool(v.b)
	default:
		return "null"
	}
}

// Equal reports whether v and other hold the same variant and payload.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == other.str
	case KindNumber:
		return v.num == other.num || (math.IsNaN(v.num) && math.IsNaN(other.num))
	case KindBoolean:
		return v.b == other.b
	default:
		return true
	}
}

// MarshalJSON encodes v as its plain JSON counterpart.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Any())
}

// UnmarshalJSON decodes a plain JSON scalar into v.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := FromAny(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ParseKind maps a declared value type name to a Kind.
// Accepted names are string, number, boolean (or bool) and null,
// case-insensitively. An empty name means string.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "string":
		return KindString, nil
	case "number", "float", "integer", "int":
		return KindNumber, nil
	case "boolean", "bool":
		return KindBoolean, nil
	case "null":
		return KindNull, nil
	default:
		return KindNull, fmt.Errorf("%w: %q", ErrUnknownKind, name)
	}
}

// Parse converts raw to a Value of the declared kind.
// Number parse failures, non-finite numbers (NaN, Inf) and unrecognized
// boolean literals fail with ErrInvalidValue.
func Parse(raw string, kind Kind) (Value, error) {
	switch kind {
	case KindString:
		return String(raw), nil
	case KindNumber:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return Null, fmt.Errorf("%w: %q is not a number", ErrInvalidValue, raw)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return Null, fmt.Errorf("%w: %q is not a finite number", ErrInvalidValue, raw)
		}
		return Number(f), nil
	case KindBoolean:
		b, ok := parseBool(raw)
		if !ok {
			return Null, fmt.Errorf("%w: %q is not a boolean", ErrInvalidValue, raw)
		}
		return Bool(b), nil
	case KindNull:
		return Null, nil
	default:
		return Null, fmt.Errorf("%w: %v", ErrUnknownKind, kind)
	}
}

func parseBool(raw string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes", "on":
		return true, true
	case "false", "0", "no", "off":
		return false, true
	default:
		return false, false
	}
}

// FromAny converts a decoded scalar (as produced by CBOR or JSON decoders)
// into a Value. Integer types become numbers.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null, nil
	case Value:
		return t, nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Number(float64(t)), nil
	case int8:
		return Number(float64(t)), nil
	case int16:
		return Number(float64(t)), nil
	case int32:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case uint:
		return Number(float64(t)), nil
	case uint8:
		return Number(float64(t)), nil
	case uint16:
		return Number(float64(t)), nil
	case uint32:
		return Number(float64(t)), nil
	case uint64:
		return Number(float64(t)), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Null, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		return Number(f), nil
	default:
		return Null, fmt.Errorf("%w: unsupported type %T", ErrInvalidValue, x)
	}
}

// Envelope is implemented by update envelopes that carry a value field.
type Envelope interface {
	UpdateValue() any
}

// Extract pulls the scalar out of an update envelope. If the envelope
// carries a value field it is used; otherwise the whole envelope is the
// value.
func Extract(update any) any {
	switch t := update.(type) {
	case Envelope:
		return t.UpdateValue()
	case map[string]any:
		if v, ok := t["value"]; ok {
			return v
		}
	case map[any]any:
		if v, ok := t["value"]; ok {
			return v
		}
	}
	return update
}

// DeepEqual compares two extracted update values structurally.
// Values are compared by variant; anything else falls back to
// reflect.DeepEqual.
func DeepEqual(a, b any) bool {
	va, aok := a.(Value)
	vb, bok := b.(Value)
	if aok && bok {
		return va.Equal(vb)
	}
	if aok || bok {
		if aok {
			if conv, err := FromAny(b); err == nil {
				return va.Equal(conv)
			}
		} else if conv, err := FromAny(a); err == nil {
			return conv.Equal(vb)
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}
