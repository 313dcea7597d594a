package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/printshop/backend/internal/models"
)

// Scheduler owns the equipment catalog and the job collection. All mutations
// go through one writer lock so compatibility checks and the resulting
// assignment are applied against the same state. Persistence is the caller's
// job: every mutating method returns the updated record to be persisted, and
// callers that persist wrap the change in Commit or Mutate.
type Scheduler struct {
	mu        sync.RWMutex
	commitMu  sync.Mutex
	equipment map[string]models.Equipment
	eqOrder   []string
	jobs      map[string]models.ProductionJob
	jobOrder  []string
	now       func() time.Time
	logger    zerolog.Logger
}

// Snapshot is a consistent copy of the scheduler state for read-side
// derivations (grid, conflicts, routing).
type Snapshot struct {
	Equipment []models.Equipment
	Jobs      []models.ProductionJob
	Now       time.Time
}

func NewScheduler(equipment []models.Equipment, jobs []models.ProductionJob, now func() time.Time, logger zerolog.Logger) *Scheduler {
	if now == nil {
		now = time.Now
	}
	s := &Scheduler{now: now, logger: logger}
	s.load(equipment, jobs)
	return s
}

// Commit runs fn with every other Commit excluded. A change and its
// persistence made inside one Commit reach the store in the order the
// scheduler applied them, and a rollback inside fn cannot overwrite a later
// change. Readers are not blocked.
func (s *Scheduler) Commit(fn func() error) error {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()
	return fn()
}

// Mutate applies op to one job and hands the result to persist inside a
// Commit. When persist fails the job goes back to its record from before op
// and the persist error is returned.
func (s *Scheduler) Mutate(jobID string, op func() (models.ProductionJob, error), persist func(models.ProductionJob) error) (models.ProductionJob, error) {
	var updated models.ProductionJob
	err := s.Commit(func() error {
		previous, err := s.Job(jobID)
		if err != nil {
			return err
		}
		job, err := op()
		if err != nil {
			return err
		}
		if err := persist(job); err != nil {
			s.Restore(previous)
			return err
		}
		updated = job
		return nil
	})
	if err != nil {
		return models.ProductionJob{}, err
	}
	return updated, nil
}

// ReplaceCatalog swaps both collections, e.g. after a bulk import.
func (s *Scheduler) ReplaceCatalog(equipment []models.Equipment, jobs []models.ProductionJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load(equipment, jobs)
}

func (s *Scheduler) load(equipment []models.Equipment, jobs []models.ProductionJob) {
	s.equipment = make(map[string]models.Equipment, len(equipment))
	s.eqOrder = s.eqOrder[:0]
	for _, eq := range equipment {
		if _, dup := s.equipment[eq.ID]; !dup {
			s.eqOrder = append(s.eqOrder, eq.ID)
		}
		s.equipment[eq.ID] = eq
	}
	s.jobs = make(map[string]models.ProductionJob, len(jobs))
	s.jobOrder = s.jobOrder[:0]
	for _, j := range jobs {
		if _, dup := s.jobs[j.ID]; !dup {
			s.jobOrder = append(s.jobOrder, j.ID)
		}
		s.jobs[j.ID] = j.Clone()
	}
}

func (s *Scheduler) Now() time.Time {
	return s.now()
}

func (s *Scheduler) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Equipment: s.equipmentLocked(),
		Jobs:      s.jobsLocked(),
		Now:       s.now(),
	}
}

func (s *Scheduler) Equipment() []models.Equipment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.equipmentLocked()
}

func (s *Scheduler) Jobs() []models.ProductionJob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jobsLocked()
}

func (s *Scheduler) equipmentLocked() []models.Equipment {
	out := make([]models.Equipment, 0, len(s.eqOrder))
	for _, id := range s.eqOrder {
		out = append(out, s.equipment[id])
	}
	return out
}

func (s *Scheduler) jobsLocked() []models.ProductionJob {
	out := make([]models.ProductionJob, 0, len(s.jobOrder))
	for _, id := range s.jobOrder {
		out = append(out, s.jobs[id].Clone())
	}
	return out
}

func (s *Scheduler) Job(id string) (models.ProductionJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return models.ProductionJob{}, fmt.Errorf("%w: job %s", ErrNotFound, id)
	}
	return j.Clone(), nil
}

func (s *Scheduler) EquipmentByID(id string) (models.Equipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	eq, ok := s.equipment[id]
	if !ok {
		return models.Equipment{}, fmt.Errorf("%w: equipment %s", ErrNotFound, id)
	}
	return eq, nil
}

// EquipmentSchedule returns the jobs on equipmentID for date, ordered by start.
func (s *Scheduler) EquipmentSchedule(equipmentID string, date time.Time) ([]models.ProductionJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.equipment[equipmentID]; !ok {
		return nil, fmt.Errorf("%w: equipment %s", ErrNotFound, equipmentID)
	}
	out := JobsOnDate(equipmentID, s.jobsLocked(), date)
	sortJobsByStart(out)
	return out, nil
}

// AddJob registers an externally created job. New jobs enter as pending with
// no assignment.
func (s *Scheduler) AddJob(job models.ProductionJob) (models.ProductionJob, error) {
	if job.Status == "" {
		job.Status = models.JobPending
	}
	if job.Status != models.JobPending || job.AssignedEquipmentID != nil || job.ScheduledStart != nil || job.ScheduledEnd != nil {
		return models.ProductionJob{}, fmt.Errorf("%w: new jobs must be pending and unassigned", ErrValidation)
	}
	if err := job.Validate(); err != nil {
		return models.ProductionJob{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return models.ProductionJob{}, fmt.Errorf("%w: job %s", ErrDuplicate, job.ID)
	}
	job.UpdatedAt = s.now().UTC()
	s.jobs[job.ID] = job.Clone()
	s.jobOrder = append(s.jobOrder, job.ID)
	return job.Clone(), nil
}

// ScheduleJob assigns a job to equipment starting at start. Nothing changes
// unless the whole assignment is valid.
func (s *Scheduler) ScheduleJob(jobID, equipmentID string, start time.Time) (models.ProductionJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scheduleLocked(jobID, equipmentID, start)
}

func (s *Scheduler) scheduleLocked(jobID, equipmentID string, start time.Time) (models.ProductionJob, error) {
	job, eq, err := s.lookupLocked(jobID, equipmentID)
	if err != nil {
		return models.ProductionJob{}, err
	}
	updated, err := assign(job, eq, start, s.now())
	if err != nil {
		return models.ProductionJob{}, err
	}
	s.jobs[jobID] = updated
	s.logger.Debug().Str("job_id", jobID).Str("equipment_id", equipmentID).Time("start", start).Msg("job scheduled")
	return updated.Clone(), nil
}

// UnscheduleJob clears a job's assignment and returns it to pending. Calling
// it on a job that is already pending and unassigned is a no-op.
func (s *Scheduler) UnscheduleJob(jobID string) (models.ProductionJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return models.ProductionJob{}, fmt.Errorf("%w: job %s", ErrNotFound, jobID)
	}
	if job.Status == models.JobPending && !job.IsScheduled() {
		return job.Clone(), nil
	}
	if job.Status != models.JobPending && job.Status != models.JobScheduled {
		return models.ProductionJob{}, fmt.Errorf("%w: job %s is %s", ErrInvalidAssignment, jobID, job.Status)
	}
	updated := unassign(job, s.now())
	s.jobs[jobID] = updated
	s.logger.Debug().Str("job_id", jobID).Msg("job unscheduled")
	return updated.Clone(), nil
}

// MoveScheduledJob is an unschedule followed by a schedule under one lock, so
// the job is never observed without an assignment.
func (s *Scheduler) MoveScheduledJob(jobID, equipmentID string, start time.Time) (models.ProductionJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.moveLocked(jobID, equipmentID, start)
}

func (s *Scheduler) moveLocked(jobID, equipmentID string, start time.Time) (models.ProductionJob, error) {
	job, eq, err := s.lookupLocked(jobID, equipmentID)
	if err != nil {
		return models.ProductionJob{}, err
	}
	if job.Status != models.JobPending && job.Status != models.JobScheduled {
		return models.ProductionJob{}, fmt.Errorf("%w: job %s is %s", ErrInvalidAssignment, jobID, job.Status)
	}
	now := s.now()
	updated, err := assign(unassign(job, now), eq, start, now)
	if err != nil {
		return models.ProductionJob{}, err
	}
	s.jobs[jobID] = updated
	s.logger.Debug().Str("job_id", jobID).Str("equipment_id", equipmentID).Time("start", start).Msg("job moved")
	return updated.Clone(), nil
}

// Apply executes a validated drop command. The payload is checked against
// the current job record before anything is written.
func (s *Scheduler) Apply(cmd ScheduleCommand) (models.ProductionJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.jobs[cmd.JobID]
	if !ok {
		return models.ProductionJob{}, fmt.Errorf("%w: job %s", ErrNotFound, cmd.JobID)
	}
	if cmd.EstimatedMinutes != current.EstimatedMinutes {
		return models.ProductionJob{}, fmt.Errorf("%w: job %s duration is %d minutes, payload says %d", ErrMalformedCommand, cmd.JobID, current.EstimatedMinutes, cmd.EstimatedMinutes)
	}
	if cmd.Move {
		if !current.IsScheduled() {
			return models.ProductionJob{}, fmt.Errorf("%w: job %s is not scheduled", ErrMalformedCommand, cmd.JobID)
		}
		if cmd.PreviousStart != nil && !current.ScheduledStart.Equal(*cmd.PreviousStart) {
			return models.ProductionJob{}, fmt.Errorf("%w: job %s no longer starts at %s", ErrMalformedCommand, cmd.JobID, cmd.PreviousStart.Format(time.RFC3339))
		}
		return s.moveLocked(cmd.JobID, cmd.EquipmentID, cmd.Start)
	}
	return s.scheduleLocked(cmd.JobID, cmd.EquipmentID, cmd.Start)
}

// TransitionJob moves a job along scheduled -> in_progress -> completed.
func (s *Scheduler) TransitionJob(jobID string, to models.JobStatus) (models.ProductionJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return models.ProductionJob{}, fmt.Errorf("%w: job %s", ErrNotFound, jobID)
	}
	allowed := (job.Status == models.JobScheduled && to == models.JobInProgress) ||
		(job.Status == models.JobInProgress && to == models.JobCompleted)
	if !allowed {
		return models.ProductionJob{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, job.Status, to)
	}
	job = job.Clone()
	job.Status = to
	job.UpdatedAt = s.now().UTC()
	s.jobs[jobID] = job
	s.logger.Debug().Str("job_id", jobID).Str("status", string(to)).Msg("job status changed")
	return job.Clone(), nil
}

// Restore puts a previously returned job record back, undoing a mutation
// whose persistence failed.
func (s *Scheduler) Restore(job models.ProductionJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; !ok {
		s.jobOrder = append(s.jobOrder, job.ID)
	}
	s.jobs[job.ID] = job.Clone()
}

// RemoveJob drops a job added by AddJob whose persistence failed.
func (s *Scheduler) RemoveJob(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[jobID]; !ok {
		return
	}
	delete(s.jobs, jobID)
	for i, id := range s.jobOrder {
		if id == jobID {
			s.jobOrder = append(s.jobOrder[:i], s.jobOrder[i+1:]...)
			break
		}
	}
}

type EquipmentUpdate struct {
	Status      *models.EquipmentStatus
	CurrentLoad *int
}

// UpdateEquipment applies an external status or load change and returns the
// previous and updated records.
func (s *Scheduler) UpdateEquipment(id string, upd EquipmentUpdate) (before, after models.Equipment, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	eq, ok := s.equipment[id]
	if !ok {
		return models.Equipment{}, models.Equipment{}, fmt.Errorf("%w: equipment %s", ErrNotFound, id)
	}
	before = eq
	if upd.Status != nil {
		eq.Status = *upd.Status
	}
	if upd.CurrentLoad != nil {
		eq.CurrentLoad = *upd.CurrentLoad
	}
	if err := eq.Validate(); err != nil {
		return models.Equipment{}, models.Equipment{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	eq.UpdatedAt = s.now().UTC()
	s.equipment[id] = eq
	return before, eq, nil
}

// RestoreEquipment puts a previous equipment record back.
func (s *Scheduler) RestoreEquipment(eq models.Equipment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.equipment[eq.ID]; ok {
		s.equipment[eq.ID] = eq
	}
}

func (s *Scheduler) lookupLocked(jobID, equipmentID string) (models.ProductionJob, models.Equipment, error) {
	job, ok := s.jobs[jobID]
	if !ok {
		return models.ProductionJob{}, models.Equipment{}, fmt.Errorf("%w: job %s", ErrNotFound, jobID)
	}
	eq, ok := s.equipment[equipmentID]
	if !ok {
		return models.ProductionJob{}, models.Equipment{}, fmt.Errorf("%w: equipment %s", ErrNotFound, equipmentID)
	}
	return job, eq, nil
}

func assign(job models.ProductionJob, eq models.Equipment, start, now time.Time) (models.ProductionJob, error) {
	switch {
	case job.Status != models.JobPending && job.Status != models.JobScheduled:
		return models.ProductionJob{}, fmt.Errorf("%w: job %s is %s", ErrInvalidAssignment, job.ID, job.Status)
	case start.IsZero():
		return models.ProductionJob{}, fmt.Errorf("%w: start time required", ErrInvalidAssignment)
	case job.EstimatedMinutes <= 0:
		return models.ProductionJob{}, fmt.Errorf("%w: job %s has no estimated duration", ErrInvalidAssignment, job.ID)
	case !methodMatches(eq, job):
		return models.ProductionJob{}, fmt.Errorf("%w: %s cannot run %s", ErrInvalidAssignment, eq.Name, job.DecorationMethod)
	case !quantityFits(eq, job):
		return models.ProductionJob{}, fmt.Errorf("%w: quantity %d outside %s range %d-%d", ErrInvalidAssignment, job.Quantity, eq.Name, eq.MinQuantity, eq.MaxQuantity)
	}

	out := job.Clone()
	equipmentID := eq.ID
	end := start.Add(job.Duration())
	out.AssignedEquipmentID = &equipmentID
	out.ScheduledStart = &start
	out.ScheduledEnd = &end
	out.Status = models.JobScheduled
	out.UpdatedAt = now.UTC()
	return out, nil
}

func unassign(job models.ProductionJob, now time.Time) models.ProductionJob {
	out := job.Clone()
	out.AssignedEquipmentID = nil
	out.ScheduledStart = nil
	out.ScheduledEnd = nil
	out.Status = models.JobPending
	out.UpdatedAt = now.UTC()
	return out
}
