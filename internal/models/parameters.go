package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Parameters is the flat parameter map of a training request. Values are
// numbers (json.Number when decoded from a request) or enumerated strings.
type Parameters map[string]interface{}

// Keys returns the parameter names sorted.
func (p Parameters) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Flatten renders the map as "k1=v1,k2=v2" with keys sorted. Keys found in
// aliases are renamed on the way out.
func (p Parameters) Flatten(aliases map[string]string) string {
	pairs := make([]string, 0, len(p))
	for _, k := range p.Keys() {
		name := k
		if alias, ok := aliases[k]; ok && alias != "" {
			name = alias
		}
		pairs = append(pairs, name+"="+FormatValue(p[k]))
	}
	return strings.Join(pairs, ",")
}

// Float returns the numeric value of key.
func (p Parameters) Float(key string) (float64, bool) {
	v, ok := p[key]
	if !ok {
		return 0, false
	}
	return ToFloat(v)
}

// Clone returns a shallow copy.
func (p Parameters) Clone() Parameters {
	out := make(Parameters, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// FormatValue renders a parameter or metric value the way it is written on
// the trainer command line.
func FormatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}

// ToFloat converts numbers and numeric strings to float64.
func ToFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
