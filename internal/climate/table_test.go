package climate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTableJSON(t *testing.T) {
	data := []byte(`[{"keys": ["sw1a 1aa"], "designTemp": -1.5, "hdd": 1900},` +
		`{"keys": ["SW1A", "SW"], "designTemp": -1.8},` +
		`{"keys": ["SW"], "designTemp": 99}]`)
	tbl, err := ParseTable(data)
	require.NoError(t, err)
	assert.Equal(t, 3, tbl.Len())

	r, key, ok := tbl.Lookup(CandidateKeys("SW1A1AA"))
	require.True(t, ok)
	assert.Equal(t, "SW1A1AA", key)
	assert.Equal(t, -1.5, *r.DesignTemp)
	assert.Equal(t, 1900.0, *r.HDD)

	r, key, ok = tbl.Lookup(CandidateKeys("SW1A2BB"))
	require.True(t, ok)
	assert.Equal(t, "SW1A", key)
	assert.Nil(t, r.HDD)

	r, _, ok = tbl.Lookup(CandidateKeys("SW99ZZ"))
	require.True(t, ok)
	assert.Equal(t, -1.8, *r.DesignTemp, "first record claiming a key wins")

	_, _, ok = tbl.Lookup(CandidateKeys("ZZ11ZZ"))
	assert.False(t, ok)
}

func TestLoadTableYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- keys: [AB10]\n  design_temp: -4.0\n  hdd: 2650\n"), 0o644))

	tbl, err := LoadTable(path)
	require.NoError(t, err)
	r, _, ok := tbl.Lookup([]string{"AB10"})
	require.True(t, ok)
	assert.Equal(t, -4.0, *r.DesignTemp)
}

func TestLoadTableErrors(t *testing.T) {
	_, err := LoadTable(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = ParseTable([]byte("{not: [a list"))
	assert.Error(t, err)
}

func TestDefaultTable(t *testing.T) {
	tbl, err := LoadTable("")
	require.NoError(t, err)
	assert.Greater(t, tbl.Len(), 10)

	r, key, ok := tbl.Lookup(CandidateKeys(NormalizePostcode("EH1 1YZ")))
	require.True(t, ok)
	assert.Equal(t, "EH", key)
	assert.True(t, r.Complete())
}

func TestNilTable(t *testing.T) {
	var tbl *Table
	_, _, ok := tbl.Lookup([]string{"SW"})
	assert.False(t, ok)
	assert.Equal(t, 0, tbl.Len())
}
