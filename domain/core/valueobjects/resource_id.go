package valueobjects

import (
	"errors"
	"strings"
)

// ResourceID is a value object identifying a service resource (for example a
// technician) that can be a member of one or more territories concurrently.
type ResourceID struct {
	value string
}

// NewResourceID creates a ResourceID from an existing string
func NewResourceID(id string) (ResourceID, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return ResourceID{}, errors.New("resource ID cannot be empty")
	}
	return ResourceID{value: id}, nil
}

// String returns the string representation of the ResourceID
func (id ResourceID) String() string {
	return id.value
}

// Equals checks if two ResourceIDs are equal
func (id ResourceID) Equals(other ResourceID) bool {
	return id.value == other.value
}

// IsZero checks if the ResourceID is the zero value
func (id ResourceID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON implements json.Marshaler
func (id ResourceID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.value + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (id *ResourceID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("ResourceID must be a string")
	}
	id.value = string(data[1 : len(data)-1])
	return nil
}
