/*
Copyright 2021 The Cockroach Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    https://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package aggregator implements the liveness aggregator: a single
// long-lived consumer of heartbeat reports that maintains a majority
// view of pairwise reachability and escalates suspected-down members to
// pod deletion. It owns its state exclusively — no locking, since it is
// the sole consumer of its ingest channel.
package aggregator

import (
	"context"
	"sort"
	"time"

	"github.com/go-logr/logr"

	"github.com/bsbds/xline-operator-go/pkg/heartbeat"
)

// PodDeleter deletes the pod backing a sidecar id, letting the stateful
// workload controller recreate it with fresh state.
type PodDeleter interface {
	DeletePod(ctx context.Context, id string) error
}

// Config holds the aggregator's tunables, both sourced from operator
// configuration (pkg/config).
type Config struct {
	// HeartbeatPeriod is the recency window: reports older than
	// latest.Timestamp - HeartbeatPeriod are excluded from a round's
	// accepted window.
	HeartbeatPeriod time.Duration
	// UnreachableThreshold bounds the number of failed recovery attempts
	// before the aggregator gives up on an id and drops it from tracking.
	// A dropped id that is still offline on a later round is treated as
	// newly unreachable and its pod is deleted again.
	UnreachableThreshold int
}

// Aggregator is the state machine described in SPEC_FULL.md §1.6. Create
// one with New and drive it with Run; it is not safe for concurrent use
// by multiple goroutines, by design — it is meant to have exactly one.
type Aggregator struct {
	cfg      Config
	majority int
	deleter  PodDeleter
	log      logr.Logger

	latestByID  map[string]heartbeat.Report
	unreachable map[string]int
}

// New constructs an Aggregator. majority is computed once, from the
// cluster size known at startup (see Majority); the spec does not
// mandate dynamic rescaling mid-run.
func New(majority int, cfg Config, deleter PodDeleter, log logr.Logger) *Aggregator {
	return &Aggregator{
		cfg:         cfg,
		majority:    majority,
		deleter:     deleter,
		log:         log,
		latestByID:  make(map[string]heartbeat.Report),
		unreachable: make(map[string]int),
	}
}

// Majority computes (size+1)/2 by integer division, per the spec's
// glossary definition. A size below 1 is clamped to 1 so majority is
// never zero.
func Majority(size int32) int {
	if size < 1 {
		size = 1
	}
	return int((int64(size) + 1) / 2)
}

// Run drains reports until ctx is canceled or the channel closes.
func (a *Aggregator) Run(ctx context.Context, reports <-chan heartbeat.Report) {
	for {
		select {
		case <-ctx.Done():
			return
		case r, ok := <-reports:
			if !ok {
				return
			}
			a.handle(ctx, r)
		}
	}
}

// Unreachable returns a snapshot of the current unreachable-id counters,
// for tests and observability.
func (a *Aggregator) Unreachable() map[string]int {
	out := make(map[string]int, len(a.unreachable))
	for k, v := range a.unreachable {
		out[k] = v
	}
	return out
}

func (a *Aggregator) handle(ctx context.Context, r heartbeat.Report) {
	a.latestByID[r.ID] = r

	sorted := make([]heartbeat.Report, 0, len(a.latestByID))
	for _, rep := range a.latestByID {
		sorted = append(sorted, rep)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp > sorted[j].Timestamp })

	latest := sorted[0]
	period := uint64(a.cfg.HeartbeatPeriod / time.Second)

	var accepted []heartbeat.Report
	for _, rep := range sorted {
		if rep.Timestamp+period < latest.Timestamp {
			break
		}
		accepted = append(accepted, rep)
	}

	if len(accepted) < a.majority {
		return
	}

	reachableCounts := make(map[string]int)
	for _, rep := range accepted {
		for _, id := range rep.ReachableIDs {
			reachableCounts[id]++
		}
	}

	for id := range a.latestByID {
		if reachableCounts[id] < a.majority {
			a.handleOffline(ctx, id)
			continue
		}
		if _, ok := a.unreachable[id]; ok {
			delete(a.unreachable, id)
		}
	}
}

func (a *Aggregator) handleOffline(ctx context.Context, id string) {
	count, tracked := a.unreachable[id]
	if !tracked {
		if err := a.deleter.DeletePod(ctx, id); err != nil {
			a.log.Error(err, "failed to delete unreachable pod", "id", id)
		}
		// Tracked unconditionally, delete error or not. While id stays in
		// unreachable, later offline rounds only advance its counter; the
		// delete is attempted again only after the counter reaches the
		// threshold and id is dropped, rather than on every round.
		a.unreachable[id] = 0
		return
	}

	count++
	if count >= a.cfg.UnreachableThreshold {
		// Dropping id here rather than leaving it permanently given-up means
		// the very next still-offline round treats it as newly unreachable
		// and deletes the pod again. Surprising, but this is what the spec's
		// escalation procedure literally describes; no operator notification
		// exists yet (TODO) so this log line is the only signal.
		a.log.Error(nil, "giving up on unreachable member after repeated failed recoveries", "id", id, "attempts", count)
		delete(a.unreachable, id)
		return
	}
	a.unreachable[id] = count
}
