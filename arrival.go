package serialhunter

import (
	"context"
	"sort"
	"time"
)

// ArrivalEvent reports a change in the set of enumerated serial ports
type ArrivalEvent struct {
	Added   []string
	Removed []string
	At      time.Time
}

// WatchPorts polls the port list and emits an event whenever ports appear or
// disappear. This backs the classic hunt technique: unplug the device, plug
// it back in, and the port that newly appears is the one you want.
//
// The channel closes when the context is done. Poll interval defaults to
// 500ms when zero is given.
func WatchPorts(ctx context.Context, interval time.Duration) (<-chan ArrivalEvent, error) {
	return watchPorts(ctx, interval, ListPorts)
}

func watchPorts(ctx context.Context, interval time.Duration, lister func() ([]string, error)) (<-chan ArrivalEvent, error) {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	baseline, err := lister()
	if err != nil {
		return nil, err
	}

	events := make(chan ArrivalEvent)

	go func() {
		defer close(events)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		known := append([]string(nil), baseline...)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			current, err := lister()
			if err != nil {
				continue
			}

			added, removed := diffPorts(known, current)
			if len(added) == 0 && len(removed) == 0 {
				continue
			}
			known = current

			select {
			case events <- ArrivalEvent{Added: added, Removed: removed, At: time.Now()}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}

// AwaitArrival blocks until at least one new port appears, then returns the
// new port paths. Returns ErrReplugTimeout when the context expires first.
func AwaitArrival(ctx context.Context, interval time.Duration) ([]string, error) {
	return awaitArrival(ctx, interval, ListPorts)
}

func awaitArrival(ctx context.Context, interval time.Duration, lister func() ([]string, error)) ([]string, error) {
	events, err := watchPorts(ctx, interval, lister)
	if err != nil {
		return nil, err
	}

	for ev := range events {
		if len(ev.Added) > 0 {
			return ev.Added, nil
		}
	}
	return nil, ErrReplugTimeout
}

// diffPorts computes set difference in both directions. Inputs are sorted,
// outputs are sorted.
func diffPorts(before, after []string) (added, removed []string) {
	inBefore := make(map[string]struct{}, len(before))
	for _, p := range before {
		inBefore[p] = struct{}{}
	}
	inAfter := make(map[string]struct{}, len(after))
	for _, p := range after {
		inAfter[p] = struct{}{}
	}

	for _, p := range after {
		if _, ok := inBefore[p]; !ok {
			added = append(added, p)
		}
	}
	for _, p := range before {
		if _, ok := inAfter[p]; !ok {
			removed = append(removed, p)
		}
	}

	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}
