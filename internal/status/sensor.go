// Package status keeps the per-account send history shown to operators.
package status

import (
	"sync"
	"time"

	"github.com/LeventeLantos/freesms-notify/internal/model"
)

// Sensor accumulates send results for one account.
type Sensor struct {
	entryID  string
	username string

	mu            sync.RWMutex
	state         model.State
	attempts      int64
	sent          int64
	lastOutcome   model.Outcome
	lastAttemptAt time.Time
	lastSentAt    time.Time
}

func NewSensor(entryID, username string) *Sensor {
	return &Sensor{
		entryID:  entryID,
		username: username,
		state:    model.StateIdle,
	}
}

func (s *Sensor) Name() string {
	return "Free Mobile SMS " + s.username + " Status"
}

func (s *Sensor) UniqueID() string {
	return "freesms_" + s.entryID + "_status"
}

// Observe records one send result.
func (s *Sensor) Observe(res model.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attempts++
	s.lastOutcome = res.Outcome
	s.lastAttemptAt = res.At

	if res.Outcome.IsSuccess() {
		s.sent++
		s.lastSentAt = res.At
		s.state = model.StateLastSent
		return
	}
	s.state = model.StateError
}

func (s *Sensor) Snapshot() model.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := model.Status{
		EntryID:     s.entryID,
		Username:    s.username,
		State:       s.state,
		Attempts:    s.attempts,
		SMSCount:    s.sent,
		LastOutcome: s.lastOutcome,
	}
	if !s.lastAttemptAt.IsZero() {
		t := s.lastAttemptAt
		st.LastAttemptAt = &t
	}
	if !s.lastSentAt.IsZero() {
		t := s.lastSentAt
		st.LastSentAt = &t
	}
	return st
}

// Restore loads counters persisted by a previous run. Snapshots for another
// entry are ignored.
func (s *Sensor) Restore(st model.Status) {
	if st.EntryID != s.entryID {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.attempts = st.Attempts
	s.sent = st.SMSCount
	s.lastOutcome = st.LastOutcome
	if st.State != "" {
		s.state = st.State
	}
	if st.LastAttemptAt != nil {
		s.lastAttemptAt = *st.LastAttemptAt
	}
	if st.LastSentAt != nil {
		s.lastSentAt = *st.LastSentAt
	}
}
