package reindex

import (
	"fmt"
	"sync"
	"time"

	"github.com/appbaseio/world-search/errors"
)

// Binding is the result of resolving an alias. An alias that has never been
// created resolves to a Binding with an empty Index.
type Binding struct {
	Alias string `json:"alias"`
	Index string `json:"index,omitempty"`
}

// Bound reports whether the alias currently points to an index.
func (b Binding) Bound() bool {
	return b.Index != ""
}

// Require returns the bound index or an AliasNotFoundError.
func (b Binding) Require() (string, error) {
	if !b.Bound() {
		return "", errors.NewAliasNotFoundError(b.Alias)
	}
	return b.Index, nil
}

// Phase is the step a run has reached. Phases only move forward.
type Phase int

const (
	Start Phase = iota
	IndexCreated
	WriteAliasSwitched
	Backfilled
	ReadAliasSwitched
	OldIndexRemoved
)

func (p Phase) String() string {
	return [...]string{
		"START",
		"INDEX_CREATED",
		"WRITE_ALIAS_SWITCHED",
		"BACKFILLED",
		"READ_ALIAS_SWITCHED",
		"OLD_INDEX_REMOVED",
	}[p]
}

// MarshalText renders the phase by its name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses a phase name.
func (p *Phase) UnmarshalText(text []byte) error {
	for phase := Start; phase <= OldIndexRemoved; phase++ {
		if phase.String() == string(text) {
			*p = phase
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", text)
}

// Status is the outcome of a finished run.
type Status string

const (
	// StatusRunning is reported while the run is in flight.
	StatusRunning Status = "running"
	// StatusSuccess means every document was shipped and the aliases moved.
	StatusSuccess Status = "success"
	// StatusPartial means the aliases moved but some documents failed to ship
	// or some stale index could not be deleted.
	StatusPartial Status = "partial"
	// StatusFailed means the run stopped before the read alias moved.
	StatusFailed Status = "failed"
)

// Run is the in-memory record of a single reindex or bootstrap. It is never persisted.
type Run struct {
	mu         sync.RWMutex
	ID         string
	Kind       string
	NewIndex   string
	OldWrite   string
	OldRead    string
	phase      Phase
	StartedAt  time.Time
	FinishedAt time.Time
}

// NewRun returns a run of the given kind in the Start phase.
func NewRun(id, kind string) *Run {
	return &Run{ID: id, Kind: kind, phase: Start, StartedAt: time.Now()}
}

// SetNewIndex records the index created by the run.
func (r *Run) SetNewIndex(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.NewIndex = name
}

// SetBindings records where the aliases pointed before the run moved them.
func (r *Run) SetBindings(write, read Binding) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.OldWrite = write.Index
	r.OldRead = read.Index
}

// Phase returns the phase reached so far.
func (r *Run) Phase() Phase {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.phase
}

// Advance moves the run to p. Attempts to go backwards are ignored.
func (r *Run) Advance(p Phase) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p > r.phase {
		r.phase = p
	}
}

// Summary is the report of a run, returned to operators.
type Summary struct {
	RunID      string    `json:"run_id"`
	Kind       string    `json:"kind"`
	Status     Status    `json:"status"`
	Phase      Phase     `json:"phase"`
	NewIndex   string    `json:"new_index,omitempty"`
	OldWrite   string    `json:"old_write_index,omitempty"`
	OldRead    string    `json:"old_read_index,omitempty"`
	Shipped    int64     `json:"shipped"`
	Failed     int64     `json:"failed"`
	Documents  int64     `json:"documents"`
	Deleted    []string  `json:"deleted_indices,omitempty"`
	Leftovers  []string  `json:"leftover_indices,omitempty"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
	Took       string    `json:"took,omitempty"`
}

// Kinds of runs.
const (
	KindReindex   = "reindex"
	KindBootstrap = "create_index"
)

// NewSummary snapshots the run.
func NewSummary(run *Run) *Summary {
	run.mu.RLock()
	defer run.mu.RUnlock()
	return &Summary{
		RunID:     run.ID,
		Kind:      run.Kind,
		Status:    StatusRunning,
		Phase:     run.phase,
		NewIndex:  run.NewIndex,
		OldWrite:  run.OldWrite,
		OldRead:   run.OldRead,
		StartedAt: run.StartedAt,
	}
}

// Finish stamps the summary with the run's final phase and derives its status from err
// and from the recorded failures.
func (s *Summary) Finish(run *Run, err error) *Summary {
	run.mu.Lock()
	run.FinishedAt = time.Now()
	s.Phase = run.phase
	s.NewIndex = run.NewIndex
	s.OldWrite = run.OldWrite
	s.OldRead = run.OldRead
	s.FinishedAt = run.FinishedAt
	run.mu.Unlock()

	s.Took = s.FinishedAt.Sub(s.StartedAt).String()
	switch {
	case err != nil:
		s.Status = StatusFailed
		s.Error = err.Error()
	case s.Failed > 0 || len(s.Leftovers) > 0:
		s.Status = StatusPartial
	default:
		s.Status = StatusSuccess
	}
	return s
}
