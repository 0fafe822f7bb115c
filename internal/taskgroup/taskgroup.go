// Package taskgroup runs one task per independent unit of work and keeps
// every task's outcome, keyed by the unit it ran for.
//
// A failing task never cancels its siblings: Wait returns only after every
// task finished, and Results carries all failures rather than the first.
package taskgroup

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"zonerun/pkg/logging"
)

const subsystem = "TaskGroup"

// Group is a bounded fan-out of keyed tasks.
type Group struct {
	name string
	eg   errgroup.Group

	mu      sync.Mutex
	results map[string]error
	dups    map[string]error
}

// New creates a group. limit bounds the number of tasks running at once;
// zero or less runs every task at once.
func New(name string, limit int) *Group {
	g := &Group{name: name, results: map[string]error{}, dups: map[string]error{}}
	if limit > 0 {
		g.eg.SetLimit(limit)
	}
	return g
}

// Go starts fn for key. Keys must be unique within a group; a repeated key
// is reported as a failure of that key. A panicking task is recorded as a
// failure instead of crashing the process.
func (g *Group) Go(key string, fn func() error) {
	g.mu.Lock()
	if _, dup := g.results[key]; dup {
		g.dups[key] = fmt.Errorf("duplicate task %q", key)
		g.mu.Unlock()
		return
	}
	g.results[key] = nil
	g.mu.Unlock()

	// the errgroup error is always nil so siblings keep running
	g.eg.Go(func() error {
		err := run(fn)
		if err != nil {
			logging.Debug(subsystem, "%s: task %s failed: %v", g.name, key, err)
		}
		g.mu.Lock()
		g.results[key] = err
		g.mu.Unlock()
		return nil
	})
}

func run(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v\n%s", r, debug.Stack())
		}
	}()
	return fn()
}

// Wait blocks until every started task returned and reports the outcome.
func (g *Group) Wait() *Results {
	_ = g.eg.Wait()

	g.mu.Lock()
	defer g.mu.Unlock()
	res := &Results{Name: g.name, byKey: make(map[string]error, len(g.results))}
	for k, err := range g.results {
		res.byKey[k] = errors.Join(err, g.dups[k])
	}
	return res
}

// Results holds the outcome of every task of a group.
type Results struct {
	Name  string
	byKey map[string]error
}

// Keys returns every task key in lexical order.
func (r *Results) Keys() []string {
	keys := make([]string, 0, len(r.byKey))
	for k := range r.byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the error of the task for key and whether such a task ran.
func (r *Results) Get(key string) (error, bool) {
	err, ok := r.byKey[key]
	return err, ok
}

// Failed returns the keys of failed tasks in lexical order.
func (r *Results) Failed() []string {
	var keys []string
	for _, k := range r.Keys() {
		if r.byKey[k] != nil {
			keys = append(keys, k)
		}
	}
	return keys
}

// Succeeded returns the keys of successful tasks in lexical order.
func (r *Results) Succeeded() []string {
	var keys []string
	for _, k := range r.Keys() {
		if r.byKey[k] == nil {
			keys = append(keys, k)
		}
	}
	return keys
}

// Err joins the errors of every failed task, or returns nil if all succeeded.
func (r *Results) Err() error {
	failed := r.Failed()
	if len(failed) == 0 {
		return nil
	}
	errs := make([]error, 0, len(failed))
	for _, k := range failed {
		errs = append(errs, r.byKey[k])
	}
	return &AggregateError{Group: r.Name, Failed: failed, Err: errors.Join(errs...)}
}

// AggregateError reports the failed tasks of a group.
type AggregateError struct {
	Group  string
	Failed []string
	Err    error
}

func (e *AggregateError) Error() string {
	return fmt.Sprintf("%s: %d task(s) failed %v: %v", e.Group, len(e.Failed), e.Failed, e.Err)
}

func (e *AggregateError) Unwrap() error {
	return e.Err
}
