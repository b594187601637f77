package aggregator_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/bsbds/xline-operator-go/pkg/aggregator"
	"github.com/bsbds/xline-operator-go/pkg/heartbeat"
)

type fakeDeleter struct {
	mu      sync.Mutex
	deleted []string
}

func (f *fakeDeleter) DeletePod(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeDeleter) Deleted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.deleted))
	copy(out, f.deleted)
	return out
}

type failingDeleter struct {
	mu       sync.Mutex
	attempts int
}

func (f *failingDeleter) DeletePod(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	return errors.New("delete failed")
}

func (f *failingDeleter) Attempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}

func newTestAggregator(deleter aggregator.PodDeleter) *aggregator.Aggregator {
	cfg := aggregator.Config{HeartbeatPeriod: 10 * time.Second, UnreachableThreshold: 2}
	return aggregator.New(aggregator.Majority(3), cfg, deleter, logr.Discard())
}

func TestMajorityIsIntegerDivision(t *testing.T) {
	require.Equal(t, 2, aggregator.Majority(3))
	require.Equal(t, 1, aggregator.Majority(1))
	require.Equal(t, 2, aggregator.Majority(4))
}

func TestAggregatorEscalationScenario(t *testing.T) {
	deleter := &fakeDeleter{}
	agg := newTestAggregator(deleter)
	ctx := context.Background()

	apply := func(reports ...heartbeat.Report) {
		for _, r := range reports {
			ch := make(chan heartbeat.Report, 1)
			ch <- r
			close(ch)
			agg.Run(ctx, ch)
		}
	}

	apply(
		heartbeat.Report{ID: "A", Timestamp: 100, ReachableIDs: []string{"A", "B", "C"}},
		heartbeat.Report{ID: "B", Timestamp: 100, ReachableIDs: []string{"A", "B", "C"}},
		heartbeat.Report{ID: "C", Timestamp: 100, ReachableIDs: []string{"A", "B", "C"}},
	)
	require.Empty(t, deleter.Deleted())
	require.Empty(t, agg.Unreachable())

	apply(
		heartbeat.Report{ID: "A", Timestamp: 110, ReachableIDs: []string{"A"}},
		heartbeat.Report{ID: "B", Timestamp: 110, ReachableIDs: []string{"B"}},
	)
	require.Equal(t, []string{"C"}, deleter.Deleted())
	require.Equal(t, map[string]int{"C": 0}, agg.Unreachable())

	apply(
		heartbeat.Report{ID: "A", Timestamp: 120, ReachableIDs: []string{"A"}},
		heartbeat.Report{ID: "B", Timestamp: 120, ReachableIDs: []string{"B"}},
	)
	require.Equal(t, []string{"C"}, deleter.Deleted(), "no additional delete while already tracked")
	require.Equal(t, map[string]int{"C": 1}, agg.Unreachable())

	apply(
		heartbeat.Report{ID: "A", Timestamp: 130, ReachableIDs: []string{"A"}},
		heartbeat.Report{ID: "B", Timestamp: 130, ReachableIDs: []string{"B"}},
	)
	require.Equal(t, []string{"C"}, deleter.Deleted(), "threshold gives up, does not delete again")
	require.Empty(t, agg.Unreachable(), "id is dropped from tracking once threshold is reached")

	apply(
		heartbeat.Report{ID: "A", Timestamp: 200, ReachableIDs: []string{"A", "B", "C"}},
		heartbeat.Report{ID: "B", Timestamp: 200, ReachableIDs: []string{"A", "B", "C"}},
		heartbeat.Report{ID: "C", Timestamp: 200, ReachableIDs: []string{"A", "B", "C"}},
	)
	require.Equal(t, []string{"C"}, deleter.Deleted())
	require.Empty(t, agg.Unreachable())
}

func TestAggregatorRecencyWindowExcludesStaleReports(t *testing.T) {
	deleter := &fakeDeleter{}
	agg := newTestAggregator(deleter)
	ctx := context.Background()

	apply := func(r heartbeat.Report) {
		ch := make(chan heartbeat.Report, 1)
		ch <- r
		close(ch)
		agg.Run(ctx, ch)
	}

	apply(heartbeat.Report{ID: "A", Timestamp: 100, ReachableIDs: []string{"A", "B", "C"}})
	apply(heartbeat.Report{ID: "B", Timestamp: 100, ReachableIDs: []string{"A", "B", "C"}})
	apply(heartbeat.Report{ID: "A", Timestamp: 200, ReachableIDs: []string{"A"}})

	require.Empty(t, deleter.Deleted())
	require.Empty(t, agg.Unreachable())
}

func TestAggregatorTracksIDDespiteFailedDelete(t *testing.T) {
	deleter := &failingDeleter{}
	agg := newTestAggregator(deleter)
	ctx := context.Background()

	apply := func(reports ...heartbeat.Report) {
		for _, r := range reports {
			ch := make(chan heartbeat.Report, 1)
			ch <- r
			close(ch)
			agg.Run(ctx, ch)
		}
	}

	apply(
		heartbeat.Report{ID: "A", Timestamp: 100, ReachableIDs: []string{"A", "B", "C"}},
		heartbeat.Report{ID: "B", Timestamp: 100, ReachableIDs: []string{"A", "B", "C"}},
		heartbeat.Report{ID: "C", Timestamp: 100, ReachableIDs: []string{"A", "B", "C"}},
	)

	apply(
		heartbeat.Report{ID: "A", Timestamp: 110, ReachableIDs: []string{"A"}},
		heartbeat.Report{ID: "B", Timestamp: 110, ReachableIDs: []string{"B"}},
	)
	require.Equal(t, 1, deleter.Attempts())
	require.Equal(t, map[string]int{"C": 0}, agg.Unreachable(), "id is tracked even though the delete call failed")

	apply(
		heartbeat.Report{ID: "A", Timestamp: 120, ReachableIDs: []string{"A"}},
		heartbeat.Report{ID: "B", Timestamp: 120, ReachableIDs: []string{"B"}},
	)
	require.Equal(t, 1, deleter.Attempts(), "no retry of the delete call itself while already tracked")
	require.Equal(t, map[string]int{"C": 1}, agg.Unreachable())
}

