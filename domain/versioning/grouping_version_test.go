package versioning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupingVersionChecksum(t *testing.T) {
	result := map[int]map[string]string{
		0: {"A": "Territory A", "B": "Territory B"},
		1: {"C": "Territory C"},
	}

	first, err := NewGroupingVersion("run-1", result)
	require.NoError(t, err)
	assert.Equal(t, 2, first.GroupCount)
	assert.Equal(t, 3, first.TerritoryCount)

	// Same content under a different run id fingerprints identically
	second, err := NewGroupingVersion("run-2", result)
	require.NoError(t, err)
	assert.True(t, first.Matches(second))

	// Display names do not participate in the checksum
	renamed, err := NewGroupingVersion("run-3", map[int]map[string]string{
		0: {"A": "renamed", "B": ""},
		1: {"C": "also renamed"},
	})
	require.NoError(t, err)
	assert.True(t, first.Matches(renamed))

	// Different membership changes the checksum
	changed, err := NewGroupingVersion("run-4", map[int]map[string]string{
		0: {"A": "Territory A"},
		1: {"B": "Territory B", "C": "Territory C"},
	})
	require.NoError(t, err)
	assert.False(t, first.Matches(changed))
}

func TestGroupingVersionEmptyResult(t *testing.T) {
	v, err := NewGroupingVersion("run-1", map[int]map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, 0, v.GroupCount)
	assert.Equal(t, 0, v.TerritoryCount)
	assert.NotEmpty(t, v.Checksum)
}
