package labeler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
)

// ValueKind tags the scalar held by a Value.
type ValueKind uint8

const (
	ValueString ValueKind = iota // UTF-8 text
	ValueInt                     // signed 64-bit integer
	ValueFloat                   // finite float64
)

func (k ValueKind) String() string {
	switch k {
	case ValueString:
		return "string"
	case ValueInt:
		return "int"
	case ValueFloat:
		return "float"
	default:
		return fmt.Sprintf("ValueKind(%d)", uint8(k))
	}
}

// Value is one scalar attribute of a Record. The zero Value is the empty string.
type Value struct {
	kind ValueKind
	s    string
	i    int64
	f    float64
}

// StringValue returns a string Value.
func StringValue(s string) Value { return Value{kind: ValueString, s: s} }

// IntValue returns an integer Value.
func IntValue(i int64) Value { return Value{kind: ValueInt, i: i} }

// FloatValue returns a float Value. Non-finite floats are stored but refuse
// to marshal.
func FloatValue(f float64) Value { return Value{kind: ValueFloat, f: f} }

// Kind returns the scalar kind held by v.
func (v Value) Kind() ValueKind { return v.kind }

// AsString returns the textual form of v. Numbers use the shortest
// representation that round-trips.
func (v Value) AsString() string {
	switch v.kind {
	case ValueInt:
		return strconv.FormatInt(v.i, 10)
	case ValueFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	default:
		return v.s
	}
}

// String implements fmt.Stringer.
func (v Value) String() string { return v.AsString() }

// AsInt returns v as an integer. Strings are parsed; floats convert only when
// they hold an integral value.
func (v Value) AsInt() (int64, bool) {
	switch v.kind {
	case ValueInt:
		return v.i, true
	case ValueFloat:
		if v.f != math.Trunc(v.f) || math.IsInf(v.f, 0) || math.IsNaN(v.f) {
			return 0, false
		}
		return int64(v.f), true
	default:
		i, err := strconv.ParseInt(strings.TrimSpace(v.s), 10, 64)
		return i, err == nil
	}
}

// AsFloat returns v as a float. Strings are parsed.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case ValueInt:
		return float64(v.i), true
	case ValueFloat:
		return v.f, true
	default:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64)
		return f, err == nil
	}
}

// Equal reports whether v and o hold the same kind and scalar.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case ValueInt:
		return v.i == o.i
	case ValueFloat:
		return v.f == o.f
	default:
		return v.s == o.s
	}
}

// MarshalJSON encodes strings as JSON strings and numbers as JSON numbers.
// Floats always carry a fractional marker so they decode back as floats.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case ValueInt:
		return strconv.AppendInt(nil, v.i, 10), nil
	case ValueFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return nil, fmt.Errorf("labeler: marshal %v: %w", v.f, ErrBadValue)
		}
		b := strconv.AppendFloat(nil, v.f, 'g', -1, 64)
		if !bytes.ContainsAny(b, ".eE") {
			b = append(b, ".0"...)
		}
		return b, nil
	default:
		return json.Marshal(v.s)
	}
}

// UnmarshalJSON accepts JSON strings and numbers. Numbers without a fraction
// or exponent become ValueInt.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("labeler: decode value: %w", err)
	}
	switch t := tok.(type) {
	case string:
		*v = StringValue(t)
	case json.Number:
		s := t.String()
		if !strings.ContainsAny(s, ".eE") {
			if i, err := strconv.ParseInt(s, 10, 64); err == nil {
				*v = IntValue(i)
				return nil
			}
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("labeler: decode value %s: %w", s, ErrBadValue)
		}
		*v = FloatValue(f)
	default:
		return fmt.Errorf("labeler: decode value %s: not a scalar: %w", data, ErrBadValue)
	}
	return nil
}

// Record maps attribute keys to scalar values. Keys are convention only:
// "class" names the annotation class, "<prefix>xn" and "<prefix>yn" hold
// ";"-joined vertex coordinates.
type Record map[string]Value

// Get returns the value stored under key.
func (r Record) Get(key string) (Value, bool) {
	v, ok := r[key]
	return v, ok
}

// Set stores v under key.
func (r Record) Set(key string, v Value) { r[key] = v }

// SetString stores a string value under key.
func (r Record) SetString(key, s string) { r[key] = StringValue(s) }

// SetInt stores an integer value under key.
func (r Record) SetInt(key string, i int64) { r[key] = IntValue(i) }

// SetFloat stores a float value under key.
func (r Record) SetFloat(key string, f float64) { r[key] = FloatValue(f) }

// Has reports whether key is present.
func (r Record) Has(key string) bool {
	_, ok := r[key]
	return ok
}

// Delete removes key.
func (r Record) Delete(key string) { delete(r, key) }

// Keys returns the keys of r in sorted order.
func (r Record) Keys() []string {
	return slices.Sorted(maps.Keys(r))
}

// Clone returns a copy of r. A nil Record clones to an empty one.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	maps.Copy(out, r)
	return out
}

// Merge copies every entry of other into r; other wins on conflicts.
func (r Record) Merge(other Record) {
	maps.Copy(r, other)
}

// Equal reports whether r and other hold the same keys and values.
func (r Record) Equal(other Record) bool {
	return maps.EqualFunc(r, other, Value.Equal)
}

// StringOr returns the textual form of key, or def when absent.
func (r Record) StringOr(key, def string) string {
	if v, ok := r[key]; ok {
		return v.AsString()
	}
	return def
}

// Require returns an error wrapping ErrMissingKey naming the first absent key.
func (r Record) Require(keys ...string) error {
	for _, k := range keys {
		if _, ok := r[k]; !ok {
			return fmt.Errorf("labeler: key %q: %w", k, ErrMissingKey)
		}
	}
	return nil
}

// Points parses the "<prefix>xn" and "<prefix>yn" coordinate lists.
// An empty list yields an empty polygon.
func (r Record) Points(prefix string) (Polygon, error) {
	xk, yk := prefix+"xn", prefix+"yn"
	if err := r.Require(xk, yk); err != nil {
		return nil, err
	}
	xs, err := parseCoords(r[xk].AsString())
	if err != nil {
		return nil, fmt.Errorf("labeler: key %q: %w", xk, err)
	}
	ys, err := parseCoords(r[yk].AsString())
	if err != nil {
		return nil, fmt.Errorf("labeler: key %q: %w", yk, err)
	}
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("labeler: %d x and %d y coordinates: %w", len(xs), len(ys), ErrBadValue)
	}
	poly := make(Polygon, len(xs))
	for i := range xs {
		poly[i] = Vec2{xs[i], ys[i]}
	}
	return poly, nil
}

// SetPoints writes pts into the "<prefix>xn" and "<prefix>yn" keys.
func (r Record) SetPoints(prefix string, pts Polygon) {
	xs := make([]string, len(pts))
	ys := make([]string, len(pts))
	for i, p := range pts {
		xs[i] = strconv.FormatFloat(p.X, 'f', -1, 64)
		ys[i] = strconv.FormatFloat(p.Y, 'f', -1, 64)
	}
	r[prefix+"xn"] = StringValue(strings.Join(xs, ";"))
	r[prefix+"yn"] = StringValue(strings.Join(ys, ";"))
}

func parseCoords(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ";")
	out := make([]float64, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("coordinate %q: %w", p, ErrBadValue)
		}
		out[i] = f
	}
	return out, nil
}
