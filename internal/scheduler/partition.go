package scheduler

import (
	"container/heap"
	"sort"

	"github.com/fastygo/scheduler/domain"
)

// dateGroup holds the tasks of one date ordered by (start, end, id).
type dateGroup struct {
	date  domain.Date
	tasks []Task
}

// partitionByDate validates tasks and splits them into date groups. Groups are
// ordered by date and tasks within a group by (start, end, id), so the result
// does not depend on input order.
func partitionByDate(tasks []Task) ([]dateGroup, error) {
	seen := make(map[string]struct{}, len(tasks))
	byDate := make(map[domain.Date][]Task)
	for _, t := range tasks {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[t.ID]; dup {
			return nil, domain.Detail(domain.ErrDuplicateID, "task %s", t.ID)
		}
		seen[t.ID] = struct{}{}
		byDate[t.Date] = append(byDate[t.Date], t)
	}

	groups := make([]dateGroup, 0, len(byDate))
	for date, list := range byDate {
		sortTasks(list)
		groups = append(groups, dateGroup{date: date, tasks: list})
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].date.Before(groups[j].date)
	})
	return groups, nil
}

func sortTasks(tasks []Task) {
	sort.Slice(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.End != b.End {
			return a.End < b.End
		}
		return a.ID < b.ID
	})
}

// normalizeResources drops empty and duplicate ids and orders the pool by id.
func normalizeResources(resources []Resource) []Resource {
	seen := make(map[string]struct{}, len(resources))
	out := make([]Resource, 0, len(resources))
	for _, r := range resources {
		if r.ID == "" {
			continue
		}
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// depth returns the largest number of tasks running at one instant. tasks must
// be sorted by start.
func depth(tasks []Task) int {
	ends := &endHeap{}
	max := 0
	for _, t := range tasks {
		for ends.Len() > 0 && (*ends)[0] <= t.Start {
			heap.Pop(ends)
		}
		heap.Push(ends, t.End)
		if ends.Len() > max {
			max = ends.Len()
		}
	}
	return max
}

type endHeap []domain.TimeOfDay

func (h endHeap) Len() int            { return len(h) }
func (h endHeap) Less(i, j int) bool  { return h[i] < h[j] }
func (h endHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *endHeap) Push(x interface{}) { *h = append(*h, x.(domain.TimeOfDay)) }
func (h *endHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
