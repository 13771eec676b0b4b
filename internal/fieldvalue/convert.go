package fieldvalue

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"
)

// FromInterface converts a decoded or driver-native Go value into a Value.
// Unrecognised types fall back to their fmt representation as a string.
func FromInterface(v interface{}) Value {
	switch x := v.(type) {
	case nil:
		return Null()
	case Value:
		return x
	case string:
		return String(x)
	case bool:
		return Bool(x)
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return Int(i)
		}
		if f, err := x.Float64(); err == nil {
			return Float(f)
		}
		return String(x.String())
	case int:
		return Int(int64(x))
	case int8:
		return Int(int64(x))
	case int16:
		return Int(int64(x))
	case int32:
		return Int(int64(x))
	case int64:
		return Int(x)
	case uint8:
		return Int(int64(x))
	case uint16:
		return Int(int64(x))
	case uint32:
		return Int(int64(x))
	case uint64:
		if x > math.MaxInt64 {
			return String(strconv.FormatUint(x, 10))
		}
		return Int(int64(x))
	case float32:
		return Float(float64(x))
	case float64:
		return Float(x)
	case time.Time:
		return Timestamp(x)
	case *time.Time:
		if x == nil {
			return Null()
		}
		return Timestamp(*x)
	case []byte:
		return String(base64.StdEncoding.EncodeToString(x))
	case []interface{}:
		items := make([]Value, len(x))
		for i, item := range x {
			items[i] = FromInterface(item)
		}
		return Value{kind: KindSequence, seq: items}
	case []Value:
		return Sequence(x...)
	case map[string]interface{}:
		return Value{kind: KindMapping, m: FromMap(x)}
	case map[string]Value:
		return Mapping(x)
	default:
		return String(fmt.Sprintf("%v", x))
	}
}

// FromMap converts a generic field map.
func FromMap(m map[string]interface{}) map[string]Value {
	out := make(map[string]Value, len(m))
	for k, v := range m {
		out[k] = FromInterface(v)
	}
	return out
}

// Interface converts v back into plain Go values: nil, string, int64,
// float64, bool, time.Time, []interface{} and map[string]interface{}.
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		if v.integer {
			return v.i
		}
		return v.f
	case KindBool:
		return v.b
	case KindTimestamp:
		return v.ts
	case KindSequence:
		out := make([]interface{}, len(v.seq))
		for i, item := range v.seq {
			out[i] = item.Interface()
		}
		return out
	case KindMapping:
		return ToMap(v.m)
	default:
		return nil
	}
}

// ToMap converts a field map into plain Go values for a store write.
func ToMap(m map[string]Value) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v.Interface()
	}
	return out
}

// Decode parses a JSON text into a Value, keeping integers exact.
func Decode(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return Null(), err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Null(), fmt.Errorf("unexpected data after top-level value")
	}
	return FromInterface(raw), nil
}

// ParseObject parses a JSON object into a field map. An empty or
// whitespace-only input yields an empty map.
func ParseObject(jsonStr string) (map[string]Value, error) {
	if len(bytes.TrimSpace([]byte(jsonStr))) == 0 {
		return map[string]Value{}, nil
	}
	v, err := Decode([]byte(jsonStr))
	if err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if v.Kind() != KindMapping {
		return nil, fmt.Errorf("invalid JSON: expected an object, got %s", v.Kind())
	}
	return v.m, nil
}
