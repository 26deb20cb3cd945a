package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// RoomFile is the on-disk form used by the CLI: design conditions plus one
// or more rooms.
type RoomFile struct {
	IndoorC  Number `json:"indoor_c" yaml:"indoor_c"`
	OutdoorC Number `json:"outdoor_c" yaml:"outdoor_c"`
	AgeBand  string `json:"age_band" yaml:"age_band"`
	Policy   string `json:"policy" yaml:"policy"`
	Postcode string `json:"postcode,omitempty" yaml:"postcode,omitempty"`
	Rooms    []Room `json:"rooms" yaml:"rooms"`
}

// DecodeRoomJSON rejects unknown fields.
func DecodeRoomJSON(data []byte) (Room, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var r Room
	if err := dec.Decode(&r); err != nil {
		return Room{}, fmt.Errorf("decode room: %w", err)
	}
	return r, nil
}

// LoadRoomFile reads a room file; .json is decoded as JSON, anything else as YAML.
func LoadRoomFile(path string) (RoomFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RoomFile{}, fmt.Errorf("read room file: %w", err)
	}
	var f RoomFile
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &f)
	} else {
		err = yaml.Unmarshal(data, &f)
	}
	if err != nil {
		return RoomFile{}, fmt.Errorf("parse room file %s: %w", path, err)
	}
	return f, nil
}
