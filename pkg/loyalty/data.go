package loyalty

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"

	"loyalty-connector/pkg/errutil"
)

// Data is the structured payload attached to an event. It is one of Record, Scalar or
// Sequence; there are no other implementations.
type Data interface {
	isData()
}

type Record map[string]Data

type Sequence []Data

// Scalar holds a string, bool, int64, float64, json.Number or nil.
type Scalar struct {
	v any
}

func (Record) isData()   {}
func (Sequence) isData() {}
func (Scalar) isData()   {}

func String(s string) Scalar  { return Scalar{v: s} }
func Bool(b bool) Scalar      { return Scalar{v: b} }
func Int(n int64) Scalar      { return Scalar{v: n} }
func Float(f float64) Scalar  { return Scalar{v: f} }
func Null() Scalar            { return Scalar{} }
func (s Scalar) Value() any   { return s.v }
func (s Scalar) IsNull() bool { return s.v == nil }

// FromValue converts decoded JSON-like values into Data.
func FromValue(v any) (Data, error) {
	return fromValue(v, "data")
}

func fromValue(v any, path string) (Data, error) {
	switch t := v.(type) {
	case nil:
		return Null(), nil
	case Data:
		return t, nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		return Scalar{v: t}, nil
	case int:
		return Int(int64(t)), nil
	case int8:
		return Int(int64(t)), nil
	case int16:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint:
		return Int(int64(t)), nil
	case uint8:
		return Int(int64(t)), nil
	case uint16:
		return Int(int64(t)), nil
	case uint32:
		return Int(int64(t)), nil
	case uint64:
		return Scalar{v: json.Number(strconv.FormatUint(t, 10))}, nil
	case float32:
		return Float(float64(t)), nil
	case float64:
		return Float(t), nil
	case map[string]any:
		rec := make(Record, len(t))
		for k, item := range t {
			d, err := fromValue(item, path+"."+k)
			if err != nil {
				return nil, err
			}
			rec[k] = d
		}
		return rec, nil
	case map[string]string:
		rec := make(Record, len(t))
		for k, item := range t {
			rec[k] = String(item)
		}
		return rec, nil
	case []any:
		seq := make(Sequence, 0, len(t))
		for i, item := range t {
			d, err := fromValue(item, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			seq = append(seq, d)
		}
		return seq, nil
	case []string:
		seq := make(Sequence, 0, len(t))
		for _, item := range t {
			seq = append(seq, String(item))
		}
		return seq, nil
	default:
		return nil, errutil.Validation(
			fmt.Sprintf("%s: unsupported value of type %s", path, reflect.TypeOf(v)),
			errutil.WithDetails(errutil.Detail{Field: path, Message: "unsupported type"}),
		)
	}
}

// RecordOf converts a struct (or anything that encodes to a JSON object) into a Record.
func RecordOf(v any) (Record, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, errutil.Validation("data is not encodable", errutil.WithErr(err))
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return nil, errutil.Validation("data is not decodable", errutil.WithErr(err))
	}

	obj, ok := decoded.(map[string]any)
	if !ok {
		return nil, errutil.Validation(fmt.Sprintf("data: expected an object, got %s", reflect.TypeOf(v)))
	}

	d, err := fromValue(obj, "data")
	if err != nil {
		return nil, err
	}
	return d.(Record), nil
}

// Normalize turns any Data into the key/value object sent as event data.
// A Record maps directly, a Sequence is keyed by index, a non-null Scalar becomes
// {"0": v} and a null or missing value becomes an empty object.
func Normalize(d Data) map[string]any {
	switch t := d.(type) {
	case Record:
		return plainRecord(t)
	case Sequence:
		out := make(map[string]any, len(t))
		for i, item := range t {
			out[strconv.Itoa(i)] = plain(item)
		}
		return out
	case Scalar:
		if t.IsNull() {
			return map[string]any{}
		}
		return map[string]any{"0": t.v}
	default:
		return map[string]any{}
	}
}

func plainRecord(r Record) map[string]any {
	out := make(map[string]any, len(r))
	for k, v := range r {
		out[k] = plain(v)
	}
	return out
}

func plain(d Data) any {
	switch t := d.(type) {
	case Record:
		return plainRecord(t)
	case Sequence:
		out := make([]any, 0, len(t))
		for _, item := range t {
			out = append(out, plain(item))
		}
		return out
	case Scalar:
		return t.v
	default:
		return nil
	}
}
