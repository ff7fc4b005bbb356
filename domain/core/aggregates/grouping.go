package aggregates

import (
	"time"

	"optigroup/domain/core/entities"
	"optigroup/domain/core/valueobjects"
	"optigroup/domain/events"
	pkgerrors "optigroup/pkg/errors"
)

// GroupKey identifies a territory group. Keys are assigned from a counter in
// creation order within a single grouping run.
type GroupKey int

// Group is a mutable set of territories that must be optimized together
// because they share resources, directly or transitively. Groups grow during
// extraction and are never deleted; the result is read-only once extraction
// completes.
type Group struct {
	key   GroupKey
	order []valueobjects.TerritoryID
	names map[valueobjects.TerritoryID]string
}

func newGroup(key GroupKey) *Group {
	return &Group{
		key:   key,
		names: make(map[valueobjects.TerritoryID]string),
	}
}

// Key returns the group's creation-order key
func (g *Group) Key() GroupKey {
	return g.key
}

// Size returns the number of territories in the group
func (g *Group) Size() int {
	return len(g.names)
}

// Contains reports whether the territory belongs to this group
func (g *Group) Contains(id valueobjects.TerritoryID) bool {
	_, ok := g.names[id]
	return ok
}

// TerritoryIDs returns the group's territories in insertion order
func (g *Group) TerritoryIDs() []valueobjects.TerritoryID {
	ids := make([]valueobjects.TerritoryID, len(g.order))
	copy(ids, g.order)
	return ids
}

// Territories returns a copy of the territory id to display name mapping
func (g *Group) Territories() map[valueobjects.TerritoryID]string {
	out := make(map[valueobjects.TerritoryID]string, len(g.names))
	for id, name := range g.names {
		out[id] = name
	}
	return out
}

// DisplayName returns the display name recorded for a member territory
func (g *Group) DisplayName(id valueobjects.TerritoryID) string {
	return g.names[id]
}

func (g *Group) add(id valueobjects.TerritoryID, name string) {
	if _, ok := g.names[id]; ok {
		if name != "" {
			g.names[id] = name
		}
		return
	}
	g.names[id] = name
	g.order = append(g.order, id)
}

func (g *Group) remove(id valueobjects.TerritoryID) {
	if _, ok := g.names[id]; !ok {
		return
	}
	delete(g.names, id)
	for i, existing := range g.order {
		if existing.Equals(id) {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
}

// membershipPair deduplicates (territory, resource) pairs during indexing.
// Duplicate facts for the same pair are harmless and collapse to one edge.
type membershipPair struct {
	territory valueobjects.TerritoryID
	resource  valueobjects.ResourceID
}

// GroupingSession is the aggregate root for one grouping run. It owns the
// membership indices, the processed set, the group map and the key counter
// exclusively for the duration of a single run; nothing is shared across
// invocations except the immutable configuration it was created with.
type GroupingSession struct {
	maxGroupSize int
	strict       bool

	// Membership index. Slices preserve insertion order of first appearance
	// in the fact list, which fixes extraction iteration order and makes
	// grouping results reproducible for a given fact list.
	territoryOrder      []valueobjects.TerritoryID
	territoryResources  map[valueobjects.TerritoryID][]valueobjects.ResourceID
	resourceOrder       []valueobjects.ResourceID
	resourceTerritories map[valueobjects.ResourceID][]valueobjects.TerritoryID
	displayNames        map[valueobjects.TerritoryID]string
	pairSeen            map[membershipPair]struct{}

	processed map[valueobjects.TerritoryID]struct{}
	groupOf   map[valueobjects.TerritoryID]GroupKey
	groups    map[GroupKey]*Group
	nextKey   GroupKey
	extracted bool

	events []events.DomainEvent
}

// SessionOption configures a GroupingSession at construction time
type SessionOption func(*GroupingSession)

// WithMaxGroupSize overrides the default group size ceiling
func WithMaxGroupSize(max int) SessionOption {
	return func(s *GroupingSession) {
		if max > 0 {
			s.maxGroupSize = max
		}
	}
}

// WithStrictConnectivity switches extraction to full transitive closure via
// union-find instead of the one-hop-then-merge pass. Strict mode guarantees
// maximal groups but changes observable results for staggered overlaps.
func WithStrictConnectivity() SessionOption {
	return func(s *GroupingSession) {
		s.strict = true
	}
}

// DefaultMaxGroupSize is the ceiling applied when none is configured
const DefaultMaxGroupSize = 100

// NewGroupingSession creates a session for one grouping run
func NewGroupingSession(opts ...SessionOption) *GroupingSession {
	s := &GroupingSession{
		maxGroupSize:        DefaultMaxGroupSize,
		territoryResources:  make(map[valueobjects.TerritoryID][]valueobjects.ResourceID),
		resourceTerritories: make(map[valueobjects.ResourceID][]valueobjects.TerritoryID),
		displayNames:        make(map[valueobjects.TerritoryID]string),
		pairSeen:            make(map[membershipPair]struct{}),
		processed:           make(map[valueobjects.TerritoryID]struct{}),
		groupOf:             make(map[valueobjects.TerritoryID]GroupKey),
		groups:              make(map[GroupKey]*Group),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxGroupSize returns the configured group size ceiling
func (s *GroupingSession) MaxGroupSize() int {
	return s.maxGroupSize
}

// BuildIndex consumes the fact list and builds the two inverse adjacency
// indices: territory to resources and resource to territories. Every (t, r)
// pair present in one index is present in the other. A malformed fact stops
// the run with a data error; no partial grouping is produced.
func (s *GroupingSession) BuildIndex(facts []entities.MembershipFact) error {
	if s.extracted {
		return pkgerrors.NewConflictError("grouping session already extracted")
	}

	for _, fact := range facts {
		tid := fact.TerritoryID()
		rid := fact.ResourceID()
		if tid.IsZero() || rid.IsZero() {
			return pkgerrors.NewDataError("membership fact is missing territory or resource id")
		}

		if _, ok := s.displayNames[tid]; !ok {
			s.territoryOrder = append(s.territoryOrder, tid)
		}
		if fact.TerritoryName() != "" || s.displayNames[tid] == "" {
			s.displayNames[tid] = fact.TerritoryName()
		}

		pair := membershipPair{territory: tid, resource: rid}
		if _, dup := s.pairSeen[pair]; dup {
			continue
		}
		s.pairSeen[pair] = struct{}{}

		if _, ok := s.resourceTerritories[rid]; !ok {
			s.resourceOrder = append(s.resourceOrder, rid)
		}
		s.territoryResources[tid] = append(s.territoryResources[tid], rid)
		s.resourceTerritories[rid] = append(s.resourceTerritories[rid], tid)
	}

	return nil
}

// TerritoryCount returns the number of distinct territories indexed
func (s *GroupingSession) TerritoryCount() int {
	return len(s.territoryOrder)
}

// ResourceCount returns the number of distinct resources indexed
func (s *GroupingSession) ResourceCount() int {
	return len(s.resourceOrder)
}

// ResourcesFor returns the resources indexed for a territory, in order of
// first appearance in the fact list
func (s *GroupingSession) ResourcesFor(id valueobjects.TerritoryID) []valueobjects.ResourceID {
	src := s.territoryResources[id]
	out := make([]valueobjects.ResourceID, len(src))
	copy(out, src)
	return out
}

// TerritoriesFor returns the territories indexed for a resource, in order of
// first appearance in the fact list
func (s *GroupingSession) TerritoriesFor(id valueobjects.ResourceID) []valueobjects.TerritoryID {
	src := s.resourceTerritories[id]
	out := make([]valueobjects.TerritoryID, len(src))
	copy(out, src)
	return out
}

// ExtractGroups computes connected components of the bipartite
// resource-territory graph, projected onto the territory vertex set.
//
// The default pass expands each unprocessed territory by exactly one hop
// (every territory reachable via one shared resource) and then merges the
// closure into the first existing group that already contains a processed
// member. Transitive grouping emerges across iterations through that merge
// step, not from a full BFS within one iteration. When a closure touches two
// existing groups only the first match absorbs it; the two groups are not
// consolidated. Both behaviors are deliberate parity with the reference
// algorithm this service replaces, and grouping output depends on them.
//
// Strict mode (WithStrictConnectivity) instead unions all territories that
// share a resource and emits the true maximal components.
func (s *GroupingSession) ExtractGroups() error {
	if s.extracted {
		return pkgerrors.NewConflictError("grouping session already extracted")
	}

	if s.strict {
		s.extractStrict()
	} else {
		s.extractOneHop()
	}

	s.extracted = true
	s.addEvent(events.NewGroupingCompleted(len(s.groups), len(s.territoryOrder), time.Now()))
	return nil
}

func (s *GroupingSession) extractOneHop() {
	for _, t := range s.territoryOrder {
		if _, done := s.processed[t]; done {
			continue
		}

		resources := s.territoryResources[t]
		if len(resources) == 0 {
			// A territory without members contributes no group.
			continue
		}

		// One-hop closure: every territory reachable from t via one shared
		// resource, in deterministic first-seen order.
		closure := make([]valueobjects.TerritoryID, 0, len(resources))
		seen := make(map[valueobjects.TerritoryID]struct{}, len(resources))
		for _, r := range resources {
			for _, u := range s.resourceTerritories[r] {
				if _, ok := seen[u]; ok {
					continue
				}
				seen[u] = struct{}{}
				closure = append(closure, u)
			}
		}
		if len(closure) == 0 {
			continue
		}

		// First processed member of the closure decides the target group.
		target, found := GroupKey(0), false
		for _, u := range closure {
			if _, done := s.processed[u]; !done {
				continue
			}
			if key, ok := s.groupOf[u]; ok {
				target, found = key, true
				break
			}
		}
		if !found {
			target = s.nextKey
			s.nextKey++
			s.groups[target] = newGroup(target)
		}

		grp := s.groups[target]
		for _, u := range closure {
			if prev, ok := s.groupOf[u]; ok && prev != target {
				// The closure touched a second group. Only the member moves;
				// the remainder of its old group stays put (first-match
				// merge, a known limitation carried over from the reference).
				s.groups[prev].remove(u)
			}
			grp.add(u, s.displayNames[u])
			s.groupOf[u] = target
			s.processed[u] = struct{}{}
		}
	}
}

func (s *GroupingSession) extractStrict() {
	uf := newUnionFind()
	for _, t := range s.territoryOrder {
		if len(s.territoryResources[t]) == 0 {
			continue
		}
		uf.add(t.String())
	}
	for _, r := range s.resourceOrder {
		members := s.resourceTerritories[r]
		for i := 1; i < len(members); i++ {
			uf.union(members[0].String(), members[i].String())
		}
	}

	// Assign group keys in order of first territory appearance so results
	// stay reproducible for a given fact list.
	rootKeys := make(map[string]GroupKey)
	for _, t := range s.territoryOrder {
		if len(s.territoryResources[t]) == 0 {
			continue
		}
		root := uf.find(t.String())
		key, ok := rootKeys[root]
		if !ok {
			key = s.nextKey
			s.nextKey++
			s.groups[key] = newGroup(key)
			rootKeys[root] = key
		}
		s.groups[key].add(t, s.displayNames[t])
		s.groupOf[t] = key
		s.processed[t] = struct{}{}
	}
}

// Groups returns the finalized groups, skipping any group that was emptied
// by first-match reassignment
func (s *GroupingSession) Groups() []*Group {
	out := make([]*Group, 0, len(s.groups))
	for key := GroupKey(0); key < s.nextKey; key++ {
		grp, ok := s.groups[key]
		if !ok || grp.Size() == 0 {
			continue
		}
		out = append(out, grp)
	}
	return out
}

// GroupContaining returns the group a territory was assigned to
func (s *GroupingSession) GroupContaining(id valueobjects.TerritoryID) (*Group, bool) {
	key, ok := s.groupOf[id]
	if !ok {
		return nil, false
	}
	return s.groups[key], true
}

// Result returns the finalized grouping as group key to territory id to
// display name. Read-only once extraction completes.
func (s *GroupingSession) Result() map[int]map[string]string {
	result := make(map[int]map[string]string, len(s.groups))
	for _, grp := range s.Groups() {
		members := make(map[string]string, grp.Size())
		for _, id := range grp.TerritoryIDs() {
			members[id.String()] = grp.DisplayName(id)
		}
		result[int(grp.Key())] = members
	}
	return result
}

// GetUncommittedEvents returns all uncommitted domain events
func (s *GroupingSession) GetUncommittedEvents() []events.DomainEvent {
	out := make([]events.DomainEvent, len(s.events))
	copy(out, s.events)
	return out
}

// MarkEventsAsCommitted clears all uncommitted events
func (s *GroupingSession) MarkEventsAsCommitted() {
	s.events = []events.DomainEvent{}
}

func (s *GroupingSession) addEvent(event events.DomainEvent) {
	s.events = append(s.events, event)
}
