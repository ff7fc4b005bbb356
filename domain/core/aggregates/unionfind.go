package aggregates

// unionFind is a disjoint-set structure with path compression and union by
// rank, used by strict-connectivity extraction to compute full transitive
// closure over the territory graph.
type unionFind struct {
	parent map[string]string
	rank   map[string]int
}

func newUnionFind() *unionFind {
	return &unionFind{
		parent: make(map[string]string),
		rank:   make(map[string]int),
	}
}

// add inserts an element as its own singleton set. If the element already
// exists, this is a no-op.
func (uf *unionFind) add(x string) {
	if _, ok := uf.parent[x]; ok {
		return
	}
	uf.parent[x] = x
	uf.rank[x] = 0
}

// find returns the representative (root) of the set containing x, applying
// path compression. Unknown elements are auto-added as singletons.
func (uf *unionFind) find(x string) string {
	if _, ok := uf.parent[x]; !ok {
		uf.add(x)
		return x
	}
	if uf.parent[x] != x {
		uf.parent[x] = uf.find(uf.parent[x])
	}
	return uf.parent[x]
}

// union merges the sets containing x and y, keeping the tree balanced by
// rank. Returns true if the sets were previously separate.
func (uf *unionFind) union(x, y string) bool {
	rx := uf.find(x)
	ry := uf.find(y)
	if rx == ry {
		return false
	}
	switch {
	case uf.rank[rx] < uf.rank[ry]:
		uf.parent[rx] = ry
	case uf.rank[rx] > uf.rank[ry]:
		uf.parent[ry] = rx
	default:
		uf.parent[ry] = rx
		uf.rank[rx]++
	}
	return true
}
