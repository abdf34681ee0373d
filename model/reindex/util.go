package reindex

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/appbaseio/world-search/errors"
)

// NameGenerator produces concrete index names of the form <prefix>_<unixSeconds>.
// A second name generated within the same second gets a _<n> suffix, so two
// runs started back to back never collide.
type NameGenerator struct {
	Prefix string
	Now    func() time.Time

	mu   sync.Mutex
	last int64
	seq  int
}

// NewNameGenerator returns a generator for the given prefix using the wall clock.
func NewNameGenerator(prefix string) *NameGenerator {
	return &NameGenerator{Prefix: prefix, Now: time.Now}
}

// Next returns a fresh index name.
func (g *NameGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.Now().Unix()
	if now == g.last {
		g.seq++
		return fmt.Sprintf("%s_%d_%d", g.Prefix, now, g.seq)
	}
	g.last, g.seq = now, 0
	return fmt.Sprintf("%s_%d", g.Prefix, now)
}

// CreatedAt extracts the creation time encoded in an index name generated for prefix.
func CreatedAt(prefix, indexName string) (time.Time, error) {
	rest, ok := strings.CutPrefix(indexName, prefix+"_")
	if !ok {
		return time.Time{}, fmt.Errorf("index %q was not generated for prefix %q", indexName, prefix)
	}
	stamp, suffix, hasSuffix := strings.Cut(rest, "_")
	if !isDigits(stamp) || (hasSuffix && !isDigits(suffix)) {
		return time.Time{}, fmt.Errorf("index %q was not generated for prefix %q", indexName, prefix)
	}
	seconds, err := strconv.ParseInt(stamp, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(seconds, 0), nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Tracker allows only one run at a time and remembers the last finished one.
type Tracker struct {
	mu      sync.RWMutex
	current *Run
	last    *Summary
}

// Begin registers run as the current one, or fails with ErrReindexInProgress.
func (t *Tracker) Begin(run *Run) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current != nil {
		return errors.ErrReindexInProgress
	}
	t.current = run
	return nil
}

// End releases the current run and records its summary.
func (t *Tracker) End(summary *Summary) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = nil
	if summary != nil {
		t.last = summary
	}
}

// InProgress reports whether a run is currently registered.
func (t *Tracker) InProgress() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current != nil
}

// Current returns the run in flight, if any.
func (t *Tracker) Current() *Run {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}

// Last returns the summary of the last finished run, or nil.
func (t *Tracker) Last() *Summary {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.last
}
