package rebuild

import (
	"sync"
	"time"
)

// Status tracks the current build state for the status API and error display.
type Status struct {
	mu           sync.RWMutex
	running      bool
	lastError    error
	hasGoodBuild bool // true if at least one successful build exists
	last         *Result
	lastGood     time.Time
	builds       int
}

// Snapshot is a point-in-time copy of Status, shaped for JSON.
type Snapshot struct {
	Running       bool      `json:"running"`
	Builds        int       `json:"builds"`
	HasGoodBuild  bool      `json:"has_good_build"`
	LastGoodBuild time.Time `json:"last_good_build,omitzero"`
	LastBuildID   string    `json:"last_build_id,omitempty"`
	LastTrigger   string    `json:"last_trigger,omitempty"`
	LastStarted   time.Time `json:"last_started,omitzero"`
	LastDuration  float64   `json:"last_duration_ms"`
	LastPages     int       `json:"last_pages"`
	LastRevision  string    `json:"last_revision,omitempty"`
	LastError     string    `json:"last_error,omitempty"`
}

func (s *Status) setRunning(running bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = running
}

func (s *Status) record(res Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.builds++
	s.last = &res
	s.lastError = res.Err
	if res.Err == nil {
		s.hasGoodBuild = true
		s.lastGood = res.StartedAt.Add(res.Duration)
	}
}

// LastError returns the error of the most recent build, or nil.
func (s *Status) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

// HasGoodBuild reports whether any build has succeeded.
func (s *Status) HasGoodBuild() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasGoodBuild
}

// Snapshot returns a copy safe to serialize.
func (s *Status) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		Running:       s.running,
		Builds:        s.builds,
		HasGoodBuild:  s.hasGoodBuild,
		LastGoodBuild: s.lastGood,
	}
	if s.last != nil {
		snap.LastBuildID = s.last.ID
		snap.LastTrigger = s.last.Trigger
		snap.LastStarted = s.last.StartedAt
		snap.LastDuration = float64(s.last.Duration.Microseconds()) / 1000
		snap.LastPages = s.last.Stats.Pages
		snap.LastRevision = s.last.Revision
		if s.last.Err != nil {
			snap.LastError = s.last.Err.Error()
		}
	}
	return snap
}
