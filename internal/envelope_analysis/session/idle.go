package session

import (
	"context"
	"errors"
	"time"

	"github.com/GoSim-25-26J-441/envelope-analysis/internal/envelope_analysis/domain"
)

// IdlePolicy bounds how long staged data may sit untouched. After RemindAfter
// without a fetch OnRemind is called; after DiscardAfter the data is deleted and
// OnDiscard reports the outcome. A zero duration disables that step.
type IdlePolicy struct {
	RemindAfter  time.Duration
	DiscardAfter time.Duration
	OnRemind     func(tempID string)
	OnDiscard    func(tempID string, err error)
}

// DefaultIdlePolicy reminds after 10 minutes and discards after 30
func DefaultIdlePolicy() IdlePolicy {
	return IdlePolicy{RemindAfter: 10 * time.Minute, DiscardAfter: 30 * time.Minute}
}

type idleTimers struct {
	remind  *time.Timer
	discard *time.Timer
}

func (t *idleTimers) stop() {
	if t.remind != nil {
		t.remind.Stop()
		t.remind = nil
	}
	if t.discard != nil {
		t.discard.Stop()
		t.discard = nil
	}
}

// armIdleLocked restarts the idle clock of the staged data.
func (s *Session) armIdleLocked() {
	s.timers.stop()
	if s.temp == nil || s.closed {
		return
	}
	id := s.temp.TempDataID
	if s.idle.RemindAfter > 0 {
		s.timers.remind = time.AfterFunc(s.idle.RemindAfter, func() { s.remind(id) })
	}
	if s.idle.DiscardAfter > 0 {
		s.timers.discard = time.AfterFunc(s.idle.DiscardAfter, func() { s.autoDiscard(id) })
	}
}

// touchLocked counts a fetch as activity on live staged data.
func (s *Session) touchLocked() {
	if s.temp != nil && (s.state == Staged || s.state == Comparing) {
		s.armIdleLocked()
	}
}

// liveLocked reports whether id is still the staged data of an open session.
func (s *Session) liveLocked(id string) bool {
	return !s.closed && s.temp != nil && s.temp.TempDataID == id &&
		(s.state == Staged || s.state == Comparing)
}

func (s *Session) remind(id string) {
	s.mu.Lock()
	live := s.liveLocked(id)
	cb := s.idle.OnRemind
	s.mu.Unlock()
	if live && cb != nil {
		cb(id)
	}
}

func (s *Session) autoDiscard(id string) {
	s.mu.Lock()
	if !s.liveLocked(id) || s.busy {
		s.mu.Unlock()
		return
	}
	s.busy = true
	cb := s.idle.OnDiscard
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.cleanupTimeout)
	err := s.backend.DeleteTempData(ctx, s.et.ID, id)
	cancel()
	if errors.Is(err, domain.ErrTempNotFound) {
		err = nil
	}

	if err == nil {
		s.dropTemp(id)
	} else {
		s.logger.Warn("failed to discard idle comparison data", "temp_data_id", id, "error", err)
	}
	s.release()
	if cb != nil {
		cb(id, err)
	}
}
