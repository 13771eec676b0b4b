// Package fieldvalue models document field values as a recursive sum type.
// Store adapters convert their native values into Value on read and back into
// plain Go values on write, so filtering and rendering never deal with
// driver-specific types.
package fieldvalue

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"
)

// Kind identifies the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindTimestamp
	KindSequence
	KindMapping
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindTimestamp:
		return "timestamp"
	case KindSequence:
		return "array"
	case KindMapping:
		return "object"
	default:
		return "unknown"
	}
}

// Value is an immutable field value. The zero Value is Null.
type Value struct {
	kind    Kind
	str     string
	integer bool
	i       int64
	f       float64
	b       bool
	ts      time.Time
	seq     []Value
	m       map[string]Value
}

// Null returns the null value.
func Null() Value { return Value{} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Int returns an integer number value.
func Int(i int64) Value { return Value{kind: KindNumber, integer: true, i: i, f: float64(i)} }

// Float returns a floating point number value.
func Float(f float64) Value { return Value{kind: KindNumber, f: f} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Timestamp returns a timestamp value.
func Timestamp(t time.Time) Value { return Value{kind: KindTimestamp, ts: t} }

// Sequence returns an array value. The slice is copied.
func Sequence(items ...Value) Value {
	seq := make([]Value, len(items))
	copy(seq, items)
	return Value{kind: KindSequence, seq: seq}
}

// Mapping returns an object value. The map is copied.
func Mapping(fields map[string]Value) Value {
	m := make(map[string]Value, len(fields))
	for k, v := range fields {
		m[k] = v
	}
	return Value{kind: KindMapping, m: m}
}

// Kind reports the variant of v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsPrimitive reports whether v renders as plain text rather than JSON.
func (v Value) IsPrimitive() bool {
	switch v.kind {
	case KindString, KindNumber, KindBool:
		return true
	}
	return false
}

// Str returns the string payload (empty for other kinds).
func (v Value) Str() string { return v.str }

// IsInteger reports whether a number value holds an integer.
func (v Value) IsInteger() bool { return v.kind == KindNumber && v.integer }

// Int64 returns the number payload as int64.
func (v Value) Int64() int64 {
	if v.integer {
		return v.i
	}
	return int64(v.f)
}

// Float64 returns the number payload as float64.
func (v Value) Float64() float64 { return v.f }

// BoolValue returns the bool payload.
func (v Value) BoolValue() bool { return v.b }

// Time returns the timestamp payload.
func (v Value) Time() time.Time { return v.ts }

// Items returns a copy of the array payload.
func (v Value) Items() []Value {
	out := make([]Value, len(v.seq))
	copy(out, v.seq)
	return out
}

// Fields returns a copy of the object payload.
func (v Value) Fields() map[string]Value {
	out := make(map[string]Value, len(v.m))
	for k, f := range v.m {
		out[k] = f
	}
	return out
}

// Field looks up a key in an object value.
func (v Value) Field(key string) (Value, bool) {
	f, ok := v.m[key]
	return f, ok
}

// Text renders v the way the console displays and searches it: primitives as
// plain text, timestamps as RFC 3339, arrays and objects as compact JSON.
// Null renders as "null".
func (v Value) Text() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindString:
		return v.str
	case KindNumber:
		return v.numberText()
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindTimestamp:
		return v.ts.UTC().Format(time.RFC3339Nano)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v.Interface())
		}
		return string(data)
	}
}

func (v Value) numberText() string {
	if v.integer {
		return strconv.FormatInt(v.i, 10)
	}
	return strconv.FormatFloat(v.f, 'g', -1, 64)
}

// Equal reports deep equality.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.str == o.str
	case KindNumber:
		if v.integer && o.integer {
			return v.i == o.i
		}
		return v.f == o.f
	case KindBool:
		return v.b == o.b
	case KindTimestamp:
		return v.ts.Equal(o.ts)
	case KindSequence:
		if len(v.seq) != len(o.seq) {
			return false
		}
		for i := range v.seq {
			if !v.seq[i].Equal(o.seq[i]) {
				return false
			}
		}
		return true
	case KindMapping:
		if len(v.m) != len(o.m) {
			return false
		}
		for k, f := range v.m {
			g, ok := o.m[k]
			if !ok || !f.Equal(g) {
				return false
			}
		}
		return true
	}
	return false
}

// MarshalJSON encodes v as plain JSON. Object keys are sorted.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		if !v.integer && (math.IsNaN(v.f) || math.IsInf(v.f, 0)) {
			return nil, fmt.Errorf("cannot encode %v as JSON", v.f)
		}
		return []byte(v.numberText()), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindTimestamp:
		return json.Marshal(v.ts.UTC().Format(time.RFC3339Nano))
	case KindSequence:
		if len(v.seq) == 0 {
			return []byte("[]"), nil
		}
		return json.Marshal(v.seq)
	case KindMapping:
		return marshalSorted(v.m)
	}
	return nil, fmt.Errorf("unknown value kind %d", v.kind)
}

// UnmarshalJSON decodes arbitrary JSON into v, keeping integers exact.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*v = FromInterface(raw)
	return nil
}

func marshalSorted(m map[string]Value) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := m[k].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
