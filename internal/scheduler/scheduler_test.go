package scheduler

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/scheduler/domain"
)

func task(id, date, start, end string) Task {
	return Task{
		ID:    id,
		Date:  domain.MustParseDate(date),
		Start: domain.MustParseTimeOfDay(start),
		End:   domain.MustParseTimeOfDay(end),
	}
}

func resources(ids ...string) []Resource {
	out := make([]Resource, len(ids))
	for i, id := range ids {
		out[i] = Resource{ID: id}
	}
	return out
}

// randomTasks spreads n tasks over a few dates with 15-minute granularity.
func randomTasks(rng *rand.Rand, n int) []Task {
	dates := []string{"2024-01-01", "2024-01-02", "2024-01-03"}
	out := make([]Task, n)
	for i := range out {
		start := rng.Intn(40) * 15 * 60
		length := (1 + rng.Intn(8)) * 15 * 60
		out[i] = Task{
			ID:    fmt.Sprintf("T%03d", i),
			Date:  domain.MustParseDate(dates[rng.Intn(len(dates))]),
			Start: domain.TimeOfDay(8*3600 + start),
			End:   domain.TimeOfDay(8*3600 + start + length),
		}
	}
	return out
}

func shuffled(rng *rand.Rand, tasks []Task) []Task {
	out := append([]Task(nil), tasks...)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

func assertExclusive(t *testing.T, tasks []Task, a Assignment) {
	t.Helper()
	byID := make(map[string]Task, len(tasks))
	for _, tk := range tasks {
		byID[tk.ID] = tk
	}
	for res, ids := range a.ByResource() {
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				assert.False(t, overlaps(byID[ids[i]], byID[ids[j]]),
					"resource %s holds overlapping %s and %s", res, ids[i], ids[j])
			}
		}
	}
}

func TestOverlaps(t *testing.T) {
	cases := []struct {
		name string
		a, b Task
		want bool
	}{
		{"partial", task("A", "2024-01-01", "09:00", "10:00"), task("B", "2024-01-01", "09:30", "10:30"), true},
		{"touching", task("A", "2024-01-01", "09:00", "10:00"), task("B", "2024-01-01", "10:00", "11:00"), false},
		{"contained", task("A", "2024-01-01", "09:00", "12:00"), task("B", "2024-01-01", "10:00", "10:30"), true},
		{"identical", task("A", "2024-01-01", "09:00", "10:00"), task("B", "2024-01-01", "09:00", "10:00"), true},
		{"disjoint", task("A", "2024-01-01", "09:00", "10:00"), task("B", "2024-01-01", "11:00", "12:00"), false},
		{"other date", task("A", "2024-01-01", "09:00", "10:00"), task("B", "2024-01-02", "09:00", "10:00"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Overlaps(tc.a, tc.b)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)

			reversed, err := Overlaps(tc.b, tc.a)
			require.NoError(t, err)
			assert.Equal(t, got, reversed, "overlap must be symmetric")
		})
	}
}

func TestOverlaps_MatchesIntervalFormula(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	tasks := randomTasks(rng, 60)
	for _, a := range tasks {
		for _, b := range tasks {
			got, err := Overlaps(a, b)
			require.NoError(t, err)
			want := a.Date == b.Date && a.Start < b.End && b.Start < a.End
			assert.Equal(t, want, got, "%v vs %v", a, b)
		}
	}
}

func TestOverlaps_RejectsMalformedInterval(t *testing.T) {
	good := task("A", "2024-01-01", "09:00", "10:00")
	for _, bad := range []Task{
		task("B", "2024-01-01", "10:00", "10:00"),
		task("C", "2024-01-01", "11:00", "10:00"),
	} {
		_, err := Overlaps(good, bad)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrMalformedInterval)
		assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))
	}
}

func TestBuildConflicts(t *testing.T) {
	tasks := []Task{
		task("T3", "2024-01-01", "09:45", "10:15"),
		task("T1", "2024-01-01", "09:00", "10:00"),
		task("T2", "2024-01-01", "09:30", "10:30"),
		task("T4", "2024-01-01", "10:30", "11:00"),
		task("T5", "2024-01-02", "09:00", "10:00"),
	}

	set, err := BuildConflicts(tasks)
	require.NoError(t, err)

	assert.Equal(t, []Pair{{"T1", "T2"}, {"T1", "T3"}, {"T2", "T3"}}, set.Pairs())
	assert.True(t, set.Has("T3", "T1"))
	assert.False(t, set.Has("T2", "T4"), "touching endpoints do not conflict")
	assert.False(t, set.Has("T1", "T5"), "different dates never conflict")
	assert.False(t, set.Has("T1", "T1"))
	assert.Equal(t, []string{"T2", "T3"}, set.Neighbors("T1"))
	assert.Empty(t, set.Neighbors("T5"))
}

func TestBuildConflicts_PermutationInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	tasks := randomTasks(rng, 120)

	want, err := BuildConflicts(tasks)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		got, err := BuildConflicts(shuffled(rng, tasks))
		require.NoError(t, err)
		assert.Equal(t, want.Pairs(), got.Pairs())
	}
}

func TestBuildConflicts_MatchesPairwiseCheck(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	tasks := randomTasks(rng, 80)

	set, err := BuildConflicts(tasks)
	require.NoError(t, err)

	count := 0
	for i := range tasks {
		for j := i + 1; j < len(tasks); j++ {
			if overlaps(tasks[i], tasks[j]) {
				count++
				assert.True(t, set.Has(tasks[i].ID, tasks[j].ID))
			}
		}
	}
	assert.Equal(t, count, set.Len())
}

func TestBuildConflicts_InvalidInput(t *testing.T) {
	_, err := BuildConflicts([]Task{task("A", "2024-01-01", "10:00", "09:00")})
	assert.ErrorIs(t, err, domain.ErrMalformedInterval)

	_, err = BuildConflicts([]Task{
		task("A", "2024-01-01", "09:00", "10:00"),
		task("A", "2024-01-02", "09:00", "10:00"),
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateID)
}

func TestSolve_TwoOverlappingTasks(t *testing.T) {
	tasks := []Task{
		task("T1", "2024-01-01", "09:00", "10:00"),
		task("T2", "2024-01-01", "09:30", "10:30"),
	}

	result, err := Solve(tasks, resources("R2", "R1"), StrictAll)
	require.NoError(t, err)

	assert.True(t, result.Feasible())
	assert.Equal(t, Assignment{"T1": "R1", "T2": "R2"}, result.Assignment)
	assert.Equal(t, 2, result.DepthByDate[domain.MustParseDate("2024-01-01")])
}

func TestSolve_DepthExceedsPool(t *testing.T) {
	tasks := []Task{
		task("T1", "2024-01-01", "09:00", "10:00"),
		task("T2", "2024-01-01", "09:30", "10:30"),
		task("T3", "2024-01-01", "09:45", "10:15"),
	}
	day := domain.MustParseDate("2024-01-01")

	t.Run("strict", func(t *testing.T) {
		result, err := Solve(tasks, resources("R1", "R2"), StrictAll)
		require.NoError(t, err)

		require.False(t, result.Feasible())
		assert.Empty(t, result.Assignment)
		assert.Equal(t, []string{"T1", "T2", "T3"}, result.Infeasible.Unplaced)
		assert.Contains(t, result.Infeasible.ReasonByDate[day], "depth 3 exceeds 2")
	})

	t.Run("best effort", func(t *testing.T) {
		result, err := Solve(tasks, resources("R1", "R2"), BestEffort)
		require.NoError(t, err)

		require.False(t, result.Feasible())
		require.Len(t, result.Infeasible.Unplaced, 1)
		assert.Len(t, result.Assignment, 2)
		assert.NotContains(t, result.Assignment, result.Infeasible.Unplaced[0])
		assertExclusive(t, tasks, result.Assignment)
		assert.Contains(t, result.Infeasible.ReasonByDate, day)
	})
}

func TestSolve_SeparateDatesShareOneResource(t *testing.T) {
	tasks := []Task{
		task("A", "2024-01-01", "09:00", "10:00"),
		task("B", "2024-01-02", "09:00", "10:00"),
	}
	for _, pool := range [][]Resource{resources("R1"), resources("R1", "R2", "R3")} {
		result, err := Solve(tasks, pool, StrictAll)
		require.NoError(t, err)
		assert.True(t, result.Feasible())
		assert.Equal(t, Assignment{"A": "R1", "B": "R1"}, result.Assignment)
	}
}

func TestSolve_EmptyTasks(t *testing.T) {
	for _, pool := range [][]Resource{nil, resources("R1")} {
		result, err := Solve(nil, pool, StrictAll)
		require.NoError(t, err)
		assert.True(t, result.Feasible())
		assert.Empty(t, result.Assignment)
	}
}

func TestSolve_EmptyPool(t *testing.T) {
	tasks := []Task{
		task("A", "2024-01-01", "09:00", "10:00"),
		task("B", "2024-01-02", "09:00", "10:00"),
	}
	for _, mode := range []Mode{StrictAll, BestEffort} {
		result, err := Solve(tasks, nil, mode)
		require.NoError(t, err)
		require.False(t, result.Feasible())
		assert.Empty(t, result.Assignment)
		assert.Equal(t, []string{"A", "B"}, result.Infeasible.Unplaced)
		assert.Len(t, result.Infeasible.ReasonByDate, 2)
	}
}

func TestSolve_MalformedIntervalAbortsRun(t *testing.T) {
	tasks := []Task{
		task("A", "2024-01-01", "09:00", "10:00"),
		task("B", "2024-01-01", "10:00", "09:00"),
	}
	result, err := Solve(tasks, resources("R1"), BestEffort)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrMalformedInterval)
}

func TestSolve_TouchingTasksReuseResource(t *testing.T) {
	tasks := []Task{
		task("A", "2024-01-01", "09:00", "10:00"),
		task("B", "2024-01-01", "10:00", "11:00"),
		task("C", "2024-01-01", "11:00", "12:00"),
	}
	result, err := Solve(tasks, resources("R1", "R2"), StrictAll)
	require.NoError(t, err)
	assert.Equal(t, Assignment{"A": "R1", "B": "R1", "C": "R1"}, result.Assignment)
}

func TestSolve_DuplicateResourcesIgnored(t *testing.T) {
	tasks := []Task{
		task("A", "2024-01-01", "09:00", "10:00"),
		task("B", "2024-01-01", "09:00", "10:00"),
	}
	result, err := Solve(tasks, resources("R1", "R1", ""), StrictAll)
	require.NoError(t, err)
	assert.False(t, result.Feasible(), "one distinct resource cannot cover depth 2")
}

func TestSolve_StrictFeasibleWheneverDepthFits(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for round := 0; round < 30; round++ {
		tasks := randomTasks(rng, 50)
		groups, err := partitionByDate(tasks)
		require.NoError(t, err)
		maxDepth := 0
		for _, g := range groups {
			if d := depth(g.tasks); d > maxDepth {
				maxDepth = d
			}
		}

		pool := make([]Resource, maxDepth)
		for i := range pool {
			pool[i] = Resource{ID: fmt.Sprintf("R%02d", i)}
		}
		result, err := Solve(tasks, pool, StrictAll)
		require.NoError(t, err)
		require.True(t, result.Feasible(), "round %d: depth %d resources must suffice", round, maxDepth)
		assert.Len(t, result.Assignment, len(tasks))
		assertExclusive(t, tasks, result.Assignment)

		if maxDepth > 1 {
			short, err := Solve(tasks, pool[:maxDepth-1], StrictAll)
			require.NoError(t, err)
			assert.False(t, short.Feasible())
			assert.Empty(t, short.Assignment)
		}
	}
}

func TestSolve_BestEffortIsExclusiveAndCovering(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	for round := 0; round < 30; round++ {
		tasks := randomTasks(rng, 60)
		result, err := Solve(tasks, resources("R1", "R2", "R3"), BestEffort)
		require.NoError(t, err)

		assertExclusive(t, tasks, result.Assignment)
		unplaced := 0
		if result.Infeasible != nil {
			unplaced = len(result.Infeasible.Unplaced)
			for _, id := range result.Infeasible.Unplaced {
				assert.NotContains(t, result.Assignment, id)
			}
		}
		assert.Equal(t, len(tasks), len(result.Assignment)+unplaced)
	}
}

func TestSolve_BestEffortKeepsMaximumCount(t *testing.T) {
	// One long task blocks three short ones: dropping the long task places three.
	tasks := []Task{
		task("L", "2024-01-01", "09:00", "12:00"),
		task("S1", "2024-01-01", "09:00", "10:00"),
		task("S2", "2024-01-01", "10:00", "11:00"),
		task("S3", "2024-01-01", "11:00", "12:00"),
	}
	result, err := Solve(tasks, resources("R1"), BestEffort)
	require.NoError(t, err)
	assert.Equal(t, Assignment{"S1": "R1", "S2": "R1", "S3": "R1"}, result.Assignment)
	assert.Equal(t, []string{"L"}, result.Infeasible.Unplaced)
}

func TestSolve_Deterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	tasks := randomTasks(rng, 90)
	pool := resources("R1", "R2", "R3", "R4")

	for _, mode := range []Mode{StrictAll, BestEffort} {
		first, err := Solve(tasks, pool, mode)
		require.NoError(t, err)
		for i := 0; i < 5; i++ {
			again, err := Solve(shuffled(rng, tasks), pool, mode)
			require.NoError(t, err)
			assert.Equal(t, first, again)
		}
	}
}

func TestSolver_ParallelMatchesSequential(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	tasks := randomTasks(rng, 150)
	pool := resources("R1", "R2", "R3")

	sequential, err := New().Solve(context.Background(), tasks, pool, BestEffort)
	require.NoError(t, err)
	parallel, err := New(WithWorkers(4)).Solve(context.Background(), tasks, pool, BestEffort)
	require.NoError(t, err)

	assert.Equal(t, sequential, parallel)
}

func TestSolver_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Solve(ctx, []Task{task("A", "2024-01-01", "09:00", "10:00")}, resources("R1"), StrictAll)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseMode(t *testing.T) {
	for input, want := range map[string]Mode{
		"":            StrictAll,
		"strict":      StrictAll,
		"STRICT_ALL":  StrictAll,
		"best_effort": BestEffort,
		"best-effort": BestEffort,
	} {
		got, err := ParseMode(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := ParseMode("optimal")
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))
}
