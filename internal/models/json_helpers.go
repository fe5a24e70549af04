package models

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// StringList encodes a string slice as a JSON column value. A nil slice is
// stored as an empty array so API consumers always see a list.
func StringList(values []string) datatypes.JSON {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(data)
}

// DecodeStringList reads a JSON array column back into a slice.
func DecodeStringList(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return []string{}
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return []string{}
	}
	return out
}

// JSONObject encodes an arbitrary map as a JSON column value.
func JSONObject(values map[string]any) datatypes.JSON {
	if len(values) == 0 {
		return datatypes.JSON("{}")
	}
	data, err := json.Marshal(values)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(data)
}
