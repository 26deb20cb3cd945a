package climate

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Result holds whatever design conditions have been resolved. Absent fields
// are nil; callers must not substitute a value.
type Result struct {
	DesignTemp *float64 `json:"design_temp,omitempty" yaml:"design_temp,omitempty"`
	HDD        *float64 `json:"hdd,omitempty" yaml:"hdd,omitempty"`
}

func (r Result) Complete() bool {
	return r.DesignTemp != nil && r.HDD != nil
}

// fill copies fields from o that are missing in r.
func (r *Result) fill(o Result) {
	if r.DesignTemp == nil && o.DesignTemp != nil {
		v := *o.DesignTemp
		r.DesignTemp = &v
	}
	if r.HDD == nil && o.HDD != nil {
		v := *o.HDD
		r.HDD = &v
	}
}

// Record is one ingested reference row. A record may carry several keys
// (full postcode, outcode, sector, area) for the same location.
type Record struct {
	Keys       []string `yaml:"keys"`
	DesignTemp *float64 `yaml:"design_temp"`
	HDD        *float64 `yaml:"hdd"`
}

// UnmarshalYAML also accepts the camelCase designTemp used by JSON exports.
func (r *Record) UnmarshalYAML(n *yaml.Node) error {
	var raw struct {
		Keys       []string `yaml:"keys"`
		DesignTemp *float64 `yaml:"design_temp"`
		Camel      *float64 `yaml:"designTemp"`
		HDD        *float64 `yaml:"hdd"`
	}
	if err := n.Decode(&raw); err != nil {
		return err
	}
	r.Keys, r.DesignTemp, r.HDD = raw.Keys, raw.DesignTemp, raw.HDD
	if r.DesignTemp == nil {
		r.DesignTemp = raw.Camel
	}
	return nil
}

// Table is an immutable lookup from normalised key to design conditions.
type Table struct {
	rows map[string]Result
}

// NewTable indexes records by their normalised keys. The first record to
// claim a key keeps it.
func NewTable(records []Record) *Table {
	t := &Table{rows: make(map[string]Result)}
	for _, rec := range records {
		for _, k := range rec.Keys {
			k = NormalizePostcode(k)
			if k == "" {
				continue
			}
			if _, dup := t.rows[k]; dup {
				continue
			}
			t.rows[k] = Result{DesignTemp: rec.DesignTemp, HDD: rec.HDD}
		}
	}
	return t
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// Lookup returns the row for the first key that is present.
func (t *Table) Lookup(keys []string) (Result, string, bool) {
	if t == nil {
		return Result{}, "", false
	}
	for _, k := range keys {
		if r, ok := t.rows[k]; ok {
			return r, k, true
		}
	}
	return Result{}, "", false
}

// ParseTable decodes a YAML or JSON list of records.
func ParseTable(data []byte) (*Table, error) {
	var recs []Record
	if err := yaml.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("parse climate table: %w", err)
	}
	return NewTable(recs), nil
}

// LoadTable reads a table from path. An empty path yields the embedded default.
func LoadTable(path string) (*Table, error) {
	if path == "" {
		return DefaultTable()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read climate table: %w", err)
	}
	return ParseTable(data)
}

//go:embed data/design_conditions.yaml
var defaultTableData []byte

func DefaultTable() (*Table, error) {
	return ParseTable(defaultTableData)
}
