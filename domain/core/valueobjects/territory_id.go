package valueobjects

import (
	"errors"
	"strings"
)

// TerritoryID is a value object identifying a service territory.
// Territory ids come from the upstream system of record and are treated as
// opaque, non-empty strings.
type TerritoryID struct {
	value string
}

// NewTerritoryID creates a TerritoryID from an existing string
func NewTerritoryID(id string) (TerritoryID, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return TerritoryID{}, errors.New("territory ID cannot be empty")
	}
	return TerritoryID{value: id}, nil
}

// String returns the string representation of the TerritoryID
func (id TerritoryID) String() string {
	return id.value
}

// Equals checks if two TerritoryIDs are equal
func (id TerritoryID) Equals(other TerritoryID) bool {
	return id.value == other.value
}

// IsZero checks if the TerritoryID is the zero value
func (id TerritoryID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON implements json.Marshaler
func (id TerritoryID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.value + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (id *TerritoryID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("TerritoryID must be a string")
	}
	id.value = string(data[1 : len(data)-1])
	return nil
}
