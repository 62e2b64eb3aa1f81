// Package syncengine sequences rsync runs: single jobs, the two legs of a
// two-way job, and project batches.
package syncengine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joe/syncdeck/internal/domain"
	"github.com/joe/syncdeck/internal/events"
	"github.com/joe/syncdeck/internal/rsync"
)

// Exported constants.
const (
	// DefaultSettleDelay separates two-way legs and queued project jobs.
	DefaultSettleDelay = 500 * time.Millisecond
	// InboxSize is the capacity of the sequencer's message queue.
	InboxSize = 256
)

// Exported variables.
var (
	ErrSequencerClosed = errors.New("sequencer is not running")
)

// ProcessController starts and stops the single rsync process.
type ProcessController interface {
	Start(ctx context.Context, req rsync.Request) (events.RunID, error)
	Stop() error
}

// JobStore is the persistence the sequencer reads jobs from and records
// status changes to.
type JobStore interface {
	GetJob(id string) (domain.SyncJob, error)
	GetProject(id string) (domain.Project, error)
	ListProjectJobs(projectID string) ([]domain.SyncJob, error)
	// SetJobStatus records status; a nil lastSync leaves the stored one.
	SetJobStatus(id string, status domain.Status, lastSync *time.Time) error
}

// State is the sequencer's externally visible state.
type State int

// Sequencer states.
const (
	StateIdle State = iota
	StateRunningSingle
	StateRunningTwoWayFirstLeg
	StateRunningTwoWaySecondLeg
	StateRunningProjectQueue
)

// String returns the string representation of State
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunningSingle:
		return "running"
	case StateRunningTwoWayFirstLeg:
		return "two-way forward"
	case StateRunningTwoWaySecondLeg:
		return "two-way reverse"
	case StateRunningProjectQueue:
		return "project queue"
	default:
		return "unknown"
	}
}

// Phase is the two-way progress of the current job.
type Phase int

// Two-way phases.
const (
	PhaseNone Phase = iota
	PhaseFirst
	PhaseSecond
)

// String returns the string representation of Phase
func (p Phase) String() string {
	switch p {
	case PhaseNone:
		return "none"
	case PhaseFirst:
		return "first"
	case PhaseSecond:
		return "second"
	default:
		return "unknown"
	}
}

// Snapshot is a copy of the sequencer's run state.
type Snapshot struct {
	State     State
	JobID     string
	ProjectID string
	Queue     []string
	Phase     Phase
	RunID     events.RunID
	// Settling is true while waiting out the delay before the next run.
	Settling bool
}

// Sequencer is the run state machine. All transitions happen on the
// goroutine running Run; the exported methods post messages to it.
type Sequencer struct {
	store        JobStore
	controller   ProcessController
	timeProvider TimeProvider
	settleDelay  time.Duration
	logger       *slog.Logger
	subscribers  *events.Fanout

	inbox chan any
	done  chan struct{}

	// Owned by the Run goroutine.
	run        runState
	settleSeq  uint64
	settleStop Timer
}

// runState is the transient state of the current run. Its zero value is idle.
type runState struct {
	job            *domain.SyncJob
	runID          events.RunID
	phase          Phase
	pendingReverse *domain.SyncJob
	projectID      string
	queue          []string
	settleToken    uint64
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithSettleDelay sets the pause between two-way legs and queued jobs.
func WithSettleDelay(d time.Duration) Option {
	return func(s *Sequencer) { s.settleDelay = d }
}

// WithTimeProvider replaces the clock.
func WithTimeProvider(tp TimeProvider) Option {
	return func(s *Sequencer) { s.timeProvider = tp }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sequencer) { s.logger = logger }
}

// NewSequencer creates an idle sequencer. SetController must be called
// before Run.
func NewSequencer(store JobStore, opts ...Option) *Sequencer {
	s := &Sequencer{
		store:        store,
		timeProvider: RealTimeProvider{},
		settleDelay:  DefaultSettleDelay,
		logger:       slog.New(slog.DiscardHandler),
		subscribers:  events.NewFanout(),
		inbox:        make(chan any, InboxSize),
		done:         make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// SetController attaches the process controller. The controller is
// normally created with the sequencer as its event emitter.
func (s *Sequencer) SetController(controller ProcessController) {
	s.controller = controller
}

// Subscribe registers a listener for run events. Listeners are called on
// the sequencer goroutine and must not block.
func (s *Sequencer) Subscribe(subscriber events.EventEmitter) {
	s.subscribers.Subscribe(subscriber)
}

// Emit implements events.EventEmitter. The controller delivers process
// events here.
func (s *Sequencer) Emit(event events.Event) {
	select {
	case s.inbox <- processEvent{event: event}:
	case <-s.done:
	}
}

// RunJob starts one job. Two-way jobs run both legs.
func (s *Sequencer) RunJob(ctx context.Context, jobID string) error {
	return s.command(ctx, func(reply chan error) any { return runJobCmd{jobID: jobID, reply: reply} })
}

// RunProject runs every job of a project in display order.
func (s *Sequencer) RunProject(ctx context.Context, projectID string) error {
	return s.command(ctx, func(reply chan error) any { return runProjectCmd{projectID: projectID, reply: reply} })
}

// Stop ends the active run, clearing any queue and two-way phase.
// The stopped job returns to idle.
func (s *Sequencer) Stop(ctx context.Context) error {
	return s.command(ctx, func(reply chan error) any { return stopCmd{reply: reply} })
}

// Snapshot returns the current run state.
func (s *Sequencer) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)

	if err := s.post(ctx, snapshotCmd{reply: reply}); err != nil {
		return Snapshot{}, err
	}

	select {
	case snap := <-reply:
		return snap, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	case <-s.done:
		return Snapshot{}, ErrSequencerClosed
	}
}

// Run processes messages until ctx is cancelled. An active run is stopped
// on the way out.
func (s *Sequencer) Run(ctx context.Context) error {
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			if !s.idle() {
				s.stop()
			}

			return ctx.Err()
		case msg := <-s.inbox:
			before := s.state()
			s.handle(ctx, msg)

			if after := s.state(); after != before {
				s.logger.Debug("state changed", "from", before.String(), "to", after.String())
				s.publish(events.StateChanged{State: after.String()})
			}
		}
	}
}

// Messages posted to the inbox.
type (
	runJobCmd struct {
		jobID string
		reply chan error
	}
	runProjectCmd struct {
		projectID string
		reply     chan error
	}
	stopCmd struct {
		reply chan error
	}
	snapshotCmd struct {
		reply chan Snapshot
	}
	settledMsg struct {
		token uint64
	}
	processEvent struct {
		event events.Event
	}
)

func (s *Sequencer) command(ctx context.Context, build func(chan error) any) error {
	reply := make(chan error, 1)

	if err := s.post(ctx, build(reply)); err != nil {
		return err
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrSequencerClosed
	}
}

func (s *Sequencer) post(ctx context.Context, msg any) error {
	select {
	case s.inbox <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrSequencerClosed
	}
}

func (s *Sequencer) handle(ctx context.Context, msg any) {
	switch m := msg.(type) {
	case runJobCmd:
		m.reply <- s.runJob(ctx, m.jobID)
	case runProjectCmd:
		m.reply <- s.runProject(ctx, m.projectID)
	case stopCmd:
		m.reply <- s.handleStop()
	case snapshotCmd:
		m.reply <- s.snapshot()
	case settledMsg:
		s.settled(ctx, m.token)
	case processEvent:
		s.processEvent(m.event)
	}
}

func (s *Sequencer) idle() bool {
	return s.run.job == nil && s.run.projectID == "" && s.run.settleToken == 0
}

func (s *Sequencer) state() State {
	switch {
	case s.idle():
		return StateIdle
	case s.run.projectID != "":
		return StateRunningProjectQueue
	case s.run.phase == PhaseFirst:
		return StateRunningTwoWayFirstLeg
	case s.run.phase == PhaseSecond:
		return StateRunningTwoWaySecondLeg
	default:
		return StateRunningSingle
	}
}

func (s *Sequencer) snapshot() Snapshot {
	snap := Snapshot{
		State:     s.state(),
		ProjectID: s.run.projectID,
		Queue:     append([]string(nil), s.run.queue...),
		Phase:     s.run.phase,
		RunID:     s.run.runID,
		Settling:  s.run.settleToken != 0,
	}

	if s.run.job != nil {
		snap.JobID = s.run.job.ID
	}

	return snap
}

func (s *Sequencer) runJob(ctx context.Context, jobID string) error {
	if !s.idle() {
		return rsync.ErrAlreadyRunning
	}

	job, err := s.store.GetJob(jobID)
	if err != nil {
		return err
	}

	if err := job.Validate(); err != nil {
		return err
	}

	return s.startJob(ctx, job)
}

func (s *Sequencer) runProject(ctx context.Context, projectID string) error {
	if !s.idle() {
		return rsync.ErrAlreadyRunning
	}

	if _, err := s.store.GetProject(projectID); err != nil {
		return err
	}

	jobs, err := s.store.ListProjectJobs(projectID)
	if err != nil {
		return err
	}

	if len(jobs) == 0 {
		return fmt.Errorf("%w: %s", domain.ErrProjectEmpty, projectID)
	}

	s.run.projectID = projectID
	for _, job := range jobs[1:] {
		s.run.queue = append(s.run.queue, job.ID)
	}

	s.logger.Info("project run started", "project_id", projectID, "jobs", len(jobs))
	s.publish(events.ProjectStarted{ProjectID: projectID, Total: len(jobs)})

	if err := s.startJob(ctx, jobs[0]); err != nil {
		s.advance()
	}

	return nil
}

// startJob begins a job's first (or only) leg. On spawn failure the job is
// recorded as failed and the error returned.
func (s *Sequencer) startJob(ctx context.Context, job domain.SyncJob) error {
	req := rsync.RequestFor(job)
	s.run.phase = PhaseNone

	if job.Options.TwoWay {
		// Both legs are update-only so neither clobbers what the other wrote.
		req.Options = job.Options.WithUpdate()
		reverse := job.Reversed()
		reverse.Options = job.Options.WithUpdate()
		s.run.phase = PhaseFirst
		s.run.pendingReverse = &reverse
	}

	return s.startLeg(ctx, job, req, events.LegForward)
}

func (s *Sequencer) startLeg(ctx context.Context, job domain.SyncJob, req rsync.Request, leg events.Leg) error {
	s.run.job = &job

	runID, err := s.controller.Start(ctx, req)
	if err != nil {
		s.logger.Error("job failed to start", "job_id", job.ID, "leg", leg, "error", err)
		s.finishJob(domain.StatusError, err)

		return err
	}

	s.run.runID = runID
	s.setStatus(job.ID, domain.StatusRunning, nil)

	s.logger.Info("job started", "job_id", job.ID, "run_id", runID, "leg", leg)
	s.publish(events.JobStarted{
		JobID:  job.ID,
		RunID:  runID,
		Leg:    leg,
		Source: req.Source,
		Dest:   req.Destination,
	})

	return nil
}

func (s *Sequencer) processEvent(event events.Event) {
	var runID events.RunID

	switch e := event.(type) {
	case events.OutputLine:
		runID = e.RunID
	case events.ErrorLine:
		runID = e.RunID
	case events.ProgressUpdated:
		runID = e.RunID
	case events.RunComplete:
		runID = e.RunID
	default:
		s.publish(event)

		return
	}

	if runID == 0 || runID != s.run.runID {
		s.logger.Debug("stale process event dropped", "run_id", runID)

		return
	}

	s.publish(event)

	if complete, ok := event.(events.RunComplete); ok {
		s.runComplete(complete)
	}
}

func (s *Sequencer) runComplete(complete events.RunComplete) {
	s.run.runID = 0

	failed := complete.ExitCode != 0 || complete.Err != nil
	err := complete.Err

	if failed && err == nil {
		err = fmt.Errorf("%w: exit code %d", rsync.ErrProcessFailed, complete.ExitCode)
	}

	if s.run.phase == PhaseFirst && !failed {
		s.logger.Info("forward leg complete", "job_id", s.run.job.ID)
		s.scheduleSettle()

		return
	}

	if failed {
		s.finishJob(domain.StatusError, err)
	} else {
		s.finishJob(domain.StatusCompleted, nil)
	}

	s.advance()
}

// finishJob records the current job's outcome and clears its run state.
func (s *Sequencer) finishJob(status domain.Status, err error) {
	job := s.run.job
	if job == nil {
		return
	}

	now := s.timeProvider.Now()
	s.setStatus(job.ID, status, &now)

	s.logger.Info("job finished", "job_id", job.ID, "status", status.String(), "error", err)
	s.publish(events.JobFinished{JobID: job.ID, Status: status, Err: err})

	s.run.job = nil
	s.run.runID = 0
	s.run.phase = PhaseNone
	s.run.pendingReverse = nil
}

// advance moves a project queue on, or returns to idle.
func (s *Sequencer) advance() {
	if s.run.projectID == "" {
		return
	}

	if len(s.run.queue) > 0 {
		s.scheduleSettle()

		return
	}

	projectID := s.run.projectID
	s.run = runState{}

	s.logger.Info("project run finished", "project_id", projectID)
	s.publish(events.ProjectFinished{ProjectID: projectID})
}

func (s *Sequencer) scheduleSettle() {
	s.settleSeq++
	token := s.settleSeq
	s.run.settleToken = token

	s.settleStop = s.timeProvider.AfterFunc(s.settleDelay, func() {
		select {
		case s.inbox <- settledMsg{token: token}:
		case <-s.done:
		}
	})
}

func (s *Sequencer) settled(ctx context.Context, token uint64) {
	if token == 0 || token != s.run.settleToken {
		return
	}

	s.run.settleToken = 0
	s.settleStop = nil

	if s.run.pendingReverse != nil {
		reverse := *s.run.pendingReverse
		s.run.pendingReverse = nil
		s.run.phase = PhaseSecond

		if err := s.startLeg(ctx, reverse, rsync.RequestFor(reverse), events.LegReverse); err != nil {
			s.advance()
		}

		return
	}

	s.startNextQueued(ctx)
}

func (s *Sequencer) startNextQueued(ctx context.Context) {
	for len(s.run.queue) > 0 {
		jobID := s.run.queue[0]
		s.run.queue = s.run.queue[1:]

		job, err := s.store.GetJob(jobID)
		if err != nil {
			s.logger.Warn("queued job skipped", "job_id", jobID, "error", err)

			continue
		}

		if err := s.startJob(ctx, job); err != nil {
			s.advance()
		}

		return
	}

	s.advance()
}

func (s *Sequencer) handleStop() error {
	if s.idle() {
		return rsync.ErrNotRunning
	}

	s.stop()

	return nil
}

func (s *Sequencer) stop() {
	if s.run.runID != 0 {
		if err := s.controller.Stop(); err != nil && !errors.Is(err, rsync.ErrNotRunning) {
			s.logger.Warn("controller stop failed", "error", err)
		}
	}

	if s.settleStop != nil {
		s.settleStop.Stop()
		s.settleStop = nil
	}

	jobID := ""
	if s.run.job != nil {
		jobID = s.run.job.ID
		s.setStatus(jobID, domain.StatusIdle, nil)
	}

	s.run = runState{}

	s.logger.Info("run stopped", "job_id", jobID)
	s.publish(events.RunStopped{JobID: jobID})
}

func (s *Sequencer) setStatus(jobID string, status domain.Status, lastSync *time.Time) {
	if err := s.store.SetJobStatus(jobID, status, lastSync); err != nil {
		s.logger.Warn("job status not saved", "job_id", jobID, "status", status.String(), "error", err)
	}
}

func (s *Sequencer) publish(event events.Event) {
	s.subscribers.Emit(event)
}
