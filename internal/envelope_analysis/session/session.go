// Package session drives one operator's envelope comparison workflow: column
// selection, sampling, temp data staging and sequenced envelope/compare fetches.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/GoSim-25-26J-441/envelope-analysis/internal/envelope_analysis/client"
	"github.com/GoSim-25-26J-441/envelope-analysis/internal/envelope_analysis/domain"
)

// State of the temp data lifecycle
type State int

const (
	Idle State = iota
	Staged
	Comparing
	Promoted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Staged:
		return "STAGED"
	case Comparing:
		return "COMPARING"
	case Promoted:
		return "PROMOTED"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Backend is the part of the API a session needs. *client.Client implements it.
type Backend interface {
	GetSettings(ctx context.Context, typeID int64) (*domain.EnvelopeSettings, error)
	SaveSettings(ctx context.Context, typeID int64, columns []string) error
	GetEnvelopeData(ctx context.Context, typeID int64, req client.EnvelopeRequest) (*domain.EnvelopeData, error)
	UploadTempComparisonData(ctx context.Context, typeID int64, f client.File) (*domain.TempComparisonDataset, error)
	CompareEnvelopeData(ctx context.Context, typeID int64, req client.CompareRequest) (*domain.ComparisonResult, error)
	SaveTempData(ctx context.Context, typeID int64, req client.SaveTempRequest) (int64, error)
	DeleteTempData(ctx context.Context, typeID int64, tempID string) error
}

// Sampling holds the optional sampling parameters. A nil UseSampling asks for
// full resolution data.
type Sampling struct {
	UseSampling    *bool
	SamplingPoints *int
}

// View is what a renderer needs. A nil Envelope is the empty, no-op view.
type View struct {
	State           State
	SelectedColumns []string
	Envelope        *domain.EnvelopeData
	Comparison      *domain.ComparisonResult
	Temp            *domain.TempComparisonDataset
}

// Empty reports whether there is nothing to draw
func (v View) Empty() bool { return v.Envelope == nil }

// Option configures a Session
type Option func(*Session)

// WithLogger sets the logger used for cleanup warnings
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithIdlePolicy sets the reminder and auto-discard policy for staged data
func WithIdlePolicy(p IdlePolicy) Option {
	return func(s *Session) { s.idle = p }
}

// WithCleanupTimeout bounds the fire-and-forget delete issued by Close
func WithCleanupTimeout(d time.Duration) Option {
	return func(s *Session) { s.cleanupTimeout = d }
}

// Session is owned by one caller. Its methods are safe for concurrent use.
type Session struct {
	backend        Backend
	et             domain.ExperimentType
	logger         *slog.Logger
	idle           IdlePolicy
	cleanupTimeout time.Duration

	mu         sync.Mutex
	state      State
	selected   []string
	sampling   Sampling
	temp       *domain.TempComparisonDataset
	envelope   *domain.EnvelopeData
	comparison *domain.ComparisonResult
	issued     uint64
	applied    uint64
	inflight   map[uint64]context.CancelFunc
	busy       bool
	closed     bool
	timers     idleTimers
	cleanups   sync.WaitGroup
}

// New starts a session for one experiment type
func New(backend Backend, et domain.ExperimentType, opts ...Option) *Session {
	s := &Session{
		backend:        backend,
		et:             et,
		logger:         slog.Default(),
		idle:           DefaultIdlePolicy(),
		cleanupTimeout: 10 * time.Second,
		selected:       []string{},
		inflight:       make(map[uint64]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the temp data state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// View returns a snapshot of what should be drawn
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() View {
	return View{
		State:           s.state,
		SelectedColumns: append([]string(nil), s.selected...),
		Envelope:        s.envelope,
		Comparison:      s.comparison,
		Temp:            s.temp,
	}
}

// Select replaces the column selection. Every column must be a data column of
// the type. The last fetched view stays until the next fetch.
func (s *Session) Select(cols []string) error {
	var bad []string
	out := make([]string, 0, len(cols))
	seen := make(map[string]bool, len(cols))
	for _, c := range cols {
		if !s.et.HasColumn(c) {
			bad = append(bad, c)
			continue
		}
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	if len(bad) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrInvalidColumns, strings.Join(bad, ", "))
	}

	s.mu.Lock()
	s.selected = out
	s.mu.Unlock()
	return nil
}

// SetSampling replaces the sampling parameters
func (s *Session) SetSampling(sm Sampling) error {
	if sm.SamplingPoints != nil && *sm.SamplingPoints < 1 {
		return fmt.Errorf("%w: sampling_points must be at least 1", domain.ErrValidation)
	}
	s.mu.Lock()
	s.sampling = sm
	s.mu.Unlock()
	return nil
}

// LoadSelection selects the saved settings of the type, ignoring columns the
// schema no longer has.
func (s *Session) LoadSelection(ctx context.Context) ([]string, error) {
	st, err := s.backend.GetSettings(ctx, s.et.ID)
	if err != nil {
		return nil, err
	}
	cols := make([]string, 0, len(st.SelectedColumns))
	for _, c := range st.SelectedColumns {
		if s.et.HasColumn(c) {
			cols = append(cols, c)
		}
	}
	if err := s.Select(cols); err != nil {
		return nil, err
	}
	return cols, nil
}

// SaveSelection stores the current selection as the type's settings, drops the
// now stale envelope and fetches it again.
func (s *Session) SaveSelection(ctx context.Context) (View, error) {
	s.mu.Lock()
	cols := append([]string(nil), s.selected...)
	s.mu.Unlock()

	if err := s.backend.SaveSettings(ctx, s.et.ID, cols); err != nil {
		return s.View(), err
	}

	s.mu.Lock()
	s.envelope = nil
	s.comparison = nil
	s.mu.Unlock()
	return s.Refresh(ctx)
}

// Refresh re-runs the fetch matching the current state
func (s *Session) Refresh(ctx context.Context) (View, error) {
	if s.State() == Comparing {
		return s.Compare(ctx)
	}
	return s.FetchEnvelope(ctx)
}

// FetchEnvelope fetches the envelope of the current selection. An empty
// selection yields the empty view without a network call.
func (s *Session) FetchEnvelope(ctx context.Context) (View, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return View{}, ErrClosed
	}
	if len(s.selected) == 0 {
		v := s.clearLocked()
		s.mu.Unlock()
		return v, nil
	}
	req := client.EnvelopeRequest{
		SelectedColumns: append([]string(nil), s.selected...),
		UseSampling:     s.sampling.UseSampling,
		SamplingPoints:  s.sampling.SamplingPoints,
	}
	seq, fctx := s.beginLocked(ctx)
	s.mu.Unlock()

	env, err := s.backend.GetEnvelopeData(fctx, s.et.ID, req)
	return s.end(seq, err, func() {
		s.envelope = env
		s.comparison = nil
	})
}

// Compare fetches the envelope together with the staged data's series.
func (s *Session) Compare(ctx context.Context) (View, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return View{}, ErrClosed
	}
	if s.temp == nil || (s.state != Staged && s.state != Comparing) {
		v := s.viewLocked()
		s.mu.Unlock()
		return v, ErrNoTempData
	}
	if len(s.selected) == 0 {
		v := s.clearLocked()
		s.mu.Unlock()
		return v, nil
	}
	tempID := s.temp.TempDataID
	req := client.CompareRequest{
		SelectedColumns: append([]string(nil), s.selected...),
		TempDataID:      tempID,
		UseSampling:     s.sampling.UseSampling,
		SamplingPoints:  s.sampling.SamplingPoints,
	}
	seq, fctx := s.beginLocked(ctx)
	s.mu.Unlock()

	res, err := s.backend.CompareEnvelopeData(fctx, s.et.ID, req)
	v, err := s.end(seq, err, func() {
		if s.temp == nil || s.temp.TempDataID != tempID {
			return
		}
		env := res.EnvelopeData
		s.envelope = &env
		s.comparison = res
		s.state = Comparing
	})
	if errors.Is(err, domain.ErrTempNotFound) {
		return s.expire(tempID), &expiredError{cause: err}
	}
	return v, err
}

// clearLocked supersedes every in-flight fetch and empties the view.
func (s *Session) clearLocked() View {
	s.supersedeLocked()
	s.applied = s.issued
	s.envelope = nil
	s.comparison = nil
	return s.viewLocked()
}

// beginLocked issues a new sequence number and cancels older fetches.
func (s *Session) beginLocked(parent context.Context) (uint64, context.Context) {
	s.supersedeLocked()
	seq := s.issued
	ctx, cancel := context.WithCancel(parent)
	s.inflight[seq] = cancel
	s.touchLocked()
	return seq, ctx
}

// supersedeLocked invalidates every outstanding fetch.
func (s *Session) supersedeLocked() {
	for seq, cancel := range s.inflight {
		cancel()
		delete(s.inflight, seq)
	}
	s.issued++
}

// end applies a fetch result if it is still the newest one.
func (s *Session) end(seq uint64, err error, apply func()) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cancel, ok := s.inflight[seq]; ok {
		cancel()
		delete(s.inflight, seq)
	}
	if s.closed || seq < s.issued || seq <= s.applied {
		return s.viewLocked(), ErrSuperseded
	}
	if err != nil {
		return s.viewLocked(), err
	}
	s.applied = seq
	apply()
	return s.viewLocked(), nil
}

// expire drops a temp id the server no longer knows.
func (s *Session) expire(tempID string) View {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.temp != nil && s.temp.TempDataID == tempID {
		s.supersedeLocked()
		s.temp = nil
		s.comparison = nil
		s.state = Idle
		s.timers.stop()
	}
	return s.viewLocked()
}

func (s *Session) acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.busy {
		return ErrBusy
	}
	s.busy = true
	return nil
}

func (s *Session) release() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
}

// UploadTemp stages new comparison data. Staged data from before is deleted
// best-effort once the new upload succeeded.
func (s *Session) UploadTemp(ctx context.Context, f client.File) (*domain.TempComparisonDataset, error) {
	if strings.TrimSpace(f.Name) == "" || f.Content == nil {
		return nil, fmt.Errorf("%w: a file is required", domain.ErrValidation)
	}
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.release()

	tmp, err := s.backend.UploadTempComparisonData(ctx, s.et.ID, f)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.closed {
		// Close ran while the upload was in flight and saw nothing to delete
		s.mu.Unlock()
		s.spawnCleanup(tmp.TempDataID)
		return nil, ErrClosed
	}
	prev := s.temp
	s.supersedeLocked()
	s.temp = tmp
	s.comparison = nil
	s.state = Staged
	s.armIdleLocked()
	s.mu.Unlock()

	if prev != nil && prev.TempDataID != tmp.TempDataID {
		if err := s.backend.DeleteTempData(ctx, s.et.ID, prev.TempDataID); err != nil {
			s.logger.Warn("failed to delete superseded comparison data",
				"temp_data_id", prev.TempDataID, "error", err)
		}
	}
	return tmp, nil
}

// SaveTemp promotes the staged data to a regular dataset. The session ends in
// Promoted and the temp id is no longer usable.
func (s *Session) SaveTemp(ctx context.Context, dataName, fileName string) (int64, error) {
	dataName = strings.TrimSpace(dataName)
	if dataName == "" {
		return 0, fmt.Errorf("%w: data name is required", domain.ErrValidation)
	}
	if err := s.acquire(); err != nil {
		return 0, err
	}
	defer s.release()

	s.mu.Lock()
	if s.temp == nil || (s.state != Staged && s.state != Comparing) {
		s.mu.Unlock()
		return 0, ErrNoTempData
	}
	tempID := s.temp.TempDataID
	s.mu.Unlock()

	id, err := s.backend.SaveTempData(ctx, s.et.ID, client.SaveTempRequest{
		TempDataID: tempID,
		DataName:   dataName,
		FileName:   fileName,
	})
	if errors.Is(err, domain.ErrTempNotFound) {
		s.expire(tempID)
		return 0, &expiredError{cause: err}
	}
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	s.supersedeLocked()
	s.temp = nil
	s.state = Promoted
	s.timers.stop()
	s.mu.Unlock()
	return id, nil
}

// Discard deletes the staged data and returns to Idle
func (s *Session) Discard(ctx context.Context) error {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.release()

	s.mu.Lock()
	if s.temp == nil {
		s.mu.Unlock()
		return nil
	}
	tempID := s.temp.TempDataID
	s.mu.Unlock()

	if err := s.backend.DeleteTempData(ctx, s.et.ID, tempID); err != nil && !errors.Is(err, domain.ErrTempNotFound) {
		return err
	}
	s.dropTemp(tempID)
	return nil
}

func (s *Session) dropTemp(tempID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.temp == nil || s.temp.TempDataID != tempID {
		return
	}
	s.supersedeLocked()
	s.temp = nil
	s.comparison = nil
	s.state = Idle
	s.timers.stop()
}

// Close cancels every in-flight fetch and deletes staged data in the
// background. Use Wait to block until the delete finished.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.supersedeLocked()
	s.timers.stop()
	var tempID string
	if s.temp != nil && (s.state == Staged || s.state == Comparing) {
		tempID = s.temp.TempDataID
	}
	s.mu.Unlock()

	if tempID != "" {
		s.spawnCleanup(tempID)
	}
	return nil
}

// Wait blocks until every background delete started by Close has returned or
// ctx is done.
func (s *Session) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.cleanups.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) spawnCleanup(tempID string) {
	s.cleanups.Add(1)
	go func() {
		defer s.cleanups.Done()
		s.cleanup(tempID)
	}()
}

func (s *Session) cleanup(tempID string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cleanupTimeout)
	defer cancel()
	if err := s.backend.DeleteTempData(ctx, s.et.ID, tempID); err != nil {
		s.logger.Warn("failed to delete comparison data on close",
			"temp_data_id", tempID, "error", err)
	}
}
