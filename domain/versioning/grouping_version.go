package versioning

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// GroupingVersion fingerprints one finalized grouping run. The checksum is
// deterministic for a given grouping result, so two runs over the same fact
// list (same iteration order) produce the same checksum; operators use it to
// confirm idempotence and to correlate applied assignments with runs.
type GroupingVersion struct {
	RunID          string    `json:"run_id"`
	Checksum       string    `json:"checksum"`
	GroupCount     int       `json:"group_count"`
	TerritoryCount int       `json:"territory_count"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewGroupingVersion fingerprints a grouping result
func NewGroupingVersion(runID string, result map[int]map[string]string) (GroupingVersion, error) {
	checksum, territoryCount, err := checksumResult(result)
	if err != nil {
		return GroupingVersion{}, err
	}
	return GroupingVersion{
		RunID:          runID,
		Checksum:       checksum,
		GroupCount:     len(result),
		TerritoryCount: territoryCount,
		CreatedAt:      time.Now(),
	}, nil
}

// checksumResult hashes the grouping in canonical (sorted) form. Map
// iteration order must not leak into the checksum.
func checksumResult(result map[int]map[string]string) (string, int, error) {
	type groupEntry struct {
		Key         int      `json:"key"`
		Territories []string `json:"territories"`
	}

	entries := make([]groupEntry, 0, len(result))
	territoryCount := 0
	for key, members := range result {
		ids := make([]string, 0, len(members))
		for id := range members {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		territoryCount += len(ids)
		entries = append(entries, groupEntry{Key: key, Territories: ids})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })

	payload, err := json.Marshal(entries)
	if err != nil {
		return "", 0, fmt.Errorf("failed to serialize grouping for checksum: %w", err)
	}

	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), territoryCount, nil
}

// Matches reports whether another version carries the same grouping content
func (v GroupingVersion) Matches(other GroupingVersion) bool {
	return v.Checksum == other.Checksum
}
