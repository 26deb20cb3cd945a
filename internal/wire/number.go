// Package wire holds the JSON and YAML shapes exchanged with editors and
// room files, and their conversion to engine types.
package wire

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Number decodes leniently: JSON/YAML numbers and numeric strings are
// accepted, while null, empty strings, non-finite values and anything else
// leave it unset. Decoding a Number never fails.
type Number struct {
	V   float64
	Set bool
}

func Num(v float64) Number { return Number{V: v, Set: true} }

// Float returns the value, or 0 when unset.
func (n Number) Float() float64 {
	if !n.Set {
		return 0
	}
	return n.V
}

// Ptr returns nil when unset.
func (n Number) Ptr() *float64 {
	if !n.Set {
		return nil
	}
	v := n.V
	return &v
}

func NumberFrom(p *float64) Number {
	if p == nil {
		return Number{}
	}
	return parsed(*p, nil)
}

func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			*n = Number{}
			return nil
		}
		*n = parseString(s)
		return nil
	}
	*n = parseString(string(b))
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Set {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(n.V, 'f', -1, 64)), nil
}

func (n *Number) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode || node.Tag == "!!null" {
		*n = Number{}
		return nil
	}
	*n = parseString(node.Value)
	return nil
}

func (n Number) MarshalYAML() (any, error) {
	if !n.Set {
		return nil, nil
	}
	return n.V, nil
}

// IsZero lets yaml omitempty drop unset numbers.
func (n Number) IsZero() bool { return !n.Set }

func parseString(s string) Number {
	s = strings.TrimSpace(s)
	if s == "" {
		return Number{}
	}
	return parsed(strconv.ParseFloat(s, 64))
}

func parsed(v float64, err error) Number {
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Number{}
	}
	return Number{V: v, Set: true}
}
