// Package safetext converts untrusted values (decoded JSON, database records,
// webhook payloads) into display strings and numbers without ever failing.
package safetext

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// wrapperKeys are the sub-fields probed, in order, when an object is coerced
// to text. Providers often wrap the message one level deep.
var wrapperKeys = []string{"message", "text", "body"}

// Text coerces any value into a string.
//
//	nil              -> ""
//	string           -> itself
//	numbers, bools   -> their string form
//	map[string]any   -> first string field among message, text, body, else JSON
//	anything else    -> JSON, or "" when not encodable
func Text(v any) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = ""
		}
	}()

	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case *string:
		if t == nil {
			return ""
		}
		return *t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint:
		return strconv.FormatUint(uint64(t), 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float32:
		return formatFloat(float64(t), 32)
	case float64:
		return formatFloat(t, 64)
	case json.Number:
		return t.String()
	case []byte:
		return string(t)
	case fmt.Stringer:
		return t.String()
	case map[string]any:
		for _, key := range wrapperKeys {
			if s, ok := t[key].(string); ok {
				return s
			}
		}
		return encode(t)
	case map[string]string:
		for _, key := range wrapperKeys {
			if s, ok := t[key]; ok {
				return s
			}
		}
		return encode(t)
	default:
		return encode(t)
	}
}

// Trim is Text followed by strings.TrimSpace.
func Trim(v any) string {
	return strings.TrimSpace(Text(v))
}

// Number coerces v into a finite float64. ok is false for nil, NaN, ±Inf,
// empty strings and anything that does not parse as a number. A string with a
// single decimal comma ("12,50") is accepted.
func Number(v any) (n float64, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			n, ok = 0, false
		}
	}()

	switch t := v.(type) {
	case nil:
		return 0, false
	case float64:
		n = t
	case *float64:
		if t == nil {
			return 0, false
		}
		n = *t
	case float32:
		n = float64(t)
	case int:
		n = float64(t)
	case int32:
		n = float64(t)
	case int64:
		n = float64(t)
	case uint:
		n = float64(t)
	case uint64:
		n = float64(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		n = f
	case string:
		return parseNumber(t)
	case bool:
		return 0, false
	default:
		return parseNumber(Text(t))
	}

	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// Phone keeps only the digits of the coerced value.
func Phone(v any) string {
	s := Trim(v)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func formatFloat(f float64, bitSize int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'f', -1, bitSize)
}

func encode(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
