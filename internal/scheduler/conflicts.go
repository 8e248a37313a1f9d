package scheduler

import "sort"

// Pair is an unordered pair of conflicting task ids, stored with A < B.
type Pair struct {
	A string `json:"a"`
	B string `json:"b"`
}

func newPair(x, y string) Pair {
	if y < x {
		x, y = y, x
	}
	return Pair{A: x, B: y}
}

// ConflictSet is the edge set of the conflict graph: pairs of tasks that must
// not share a resource.
type ConflictSet struct {
	pairs []Pair
	index map[Pair]struct{}
}

// BuildConflicts computes every pair of tasks that share a date and whose
// windows overlap. Tasks are grouped by date and each group is swept in start
// order against the set of still-running tasks, so work is proportional to the
// number of conflicts plus a sort per date. The result is independent of input
// order.
func BuildConflicts(tasks []Task) (ConflictSet, error) {
	groups, err := partitionByDate(tasks)
	if err != nil {
		return ConflictSet{}, err
	}

	set := ConflictSet{index: make(map[Pair]struct{})}
	for _, g := range groups {
		active := make([]Task, 0, len(g.tasks))
		for _, t := range g.tasks {
			kept := active[:0]
			for _, a := range active {
				if a.End > t.Start {
					kept = append(kept, a)
				}
			}
			active = kept
			for _, a := range active {
				set.add(newPair(a.ID, t.ID))
			}
			active = append(active, t)
		}
	}

	sort.Slice(set.pairs, func(i, j int) bool {
		if set.pairs[i].A != set.pairs[j].A {
			return set.pairs[i].A < set.pairs[j].A
		}
		return set.pairs[i].B < set.pairs[j].B
	})
	return set, nil
}

func (s *ConflictSet) add(p Pair) {
	if _, ok := s.index[p]; ok {
		return
	}
	s.index[p] = struct{}{}
	s.pairs = append(s.pairs, p)
}

// Has reports whether the two tasks conflict. Order does not matter.
func (s ConflictSet) Has(a, b string) bool {
	if a == b || s.index == nil {
		return false
	}
	_, ok := s.index[newPair(a, b)]
	return ok
}

func (s ConflictSet) Len() int {
	return len(s.pairs)
}

// Pairs returns the conflicts sorted by (A, B).
func (s ConflictSet) Pairs() []Pair {
	out := make([]Pair, len(s.pairs))
	copy(out, s.pairs)
	return out
}

// Neighbors returns the ids conflicting with id, sorted.
func (s ConflictSet) Neighbors(id string) []string {
	var out []string
	for _, p := range s.pairs {
		switch id {
		case p.A:
			out = append(out, p.B)
		case p.B:
			out = append(out, p.A)
		}
	}
	sort.Strings(out)
	return out
}
