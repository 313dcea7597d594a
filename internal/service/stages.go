package service

import (
	"fmt"
	"sync"
	"time"
)

type StageStatus string

const (
	StageNotStarted StageStatus = "not_started"
	StageInProgress StageStatus = "in_progress"
	StageCompleted  StageStatus = "completed"
	StageBlocked    StageStatus = "blocked"
	StageOnHold     StageStatus = "on_hold"
)

func (s StageStatus) Valid() bool {
	switch s {
	case StageNotStarted, StageInProgress, StageCompleted, StageBlocked, StageOnHold:
		return true
	}
	return false
}

type Stage struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	EstimatedHours int      `json:"estimated_hours"`
	Prerequisites  []string `json:"prerequisites"`
}

// DefaultPipeline is the post-scheduling route every job follows.
func DefaultPipeline() []Stage {
	return []Stage{
		{ID: "artwork_approval", Name: "Artwork Approval", EstimatedHours: 24},
		{ID: "file_prep", Name: "File Preparation", EstimatedHours: 4, Prerequisites: []string{"artwork_approval"}},
		{ID: "material_procurement", Name: "Material Procurement", EstimatedHours: 48, Prerequisites: []string{"artwork_approval"}},
		{ID: "setup", Name: "Equipment Setup", EstimatedHours: 2, Prerequisites: []string{"file_prep", "material_procurement"}},
		{ID: "production", Name: "Production", EstimatedHours: 8, Prerequisites: []string{"setup"}},
		{ID: "quality_control", Name: "Quality Control", EstimatedHours: 2, Prerequisites: []string{"production"}},
		{ID: "finishing", Name: "Finishing", EstimatedHours: 4, Prerequisites: []string{"quality_control"}},
		{ID: "shipping_prep", Name: "Shipping Preparation", EstimatedHours: 2, Prerequisites: []string{"finishing"}},
	}
}

type StageState struct {
	StageID   string      `json:"stage_id"`
	Status    StageStatus `json:"status"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type JobProgress struct {
	JobID          string       `json:"job_id"`
	Stages         []StageState `json:"stages"`
	Completed      int          `json:"completed"`
	Total          int          `json:"total"`
	Percent        float64      `json:"percent"`
	CurrentStage   string       `json:"current_stage,omitempty"`
	RemainingHours int          `json:"remaining_hours"`
}

// Tracker keeps per-job stage statuses for a fixed pipeline. Jobs it has not
// seen report every stage as not started.
type Tracker struct {
	mu       sync.RWMutex
	pipeline []Stage
	index    map[string]int
	states   map[string]map[string]StageState
	now      func() time.Time
}

func NewTracker(pipeline []Stage, now func() time.Time) *Tracker {
	if len(pipeline) == 0 {
		pipeline = DefaultPipeline()
	}
	if now == nil {
		now = time.Now
	}
	t := &Tracker{
		pipeline: pipeline,
		index:    make(map[string]int, len(pipeline)),
		states:   map[string]map[string]StageState{},
		now:      now,
	}
	for i, st := range pipeline {
		t.index[st.ID] = i
	}
	return t
}

func (t *Tracker) Pipeline() []Stage {
	return t.pipeline
}

// Load seeds stored statuses, e.g. at startup. Unknown stages are skipped.
func (t *Tracker) Load(states map[string][]StageState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for jobID, list := range states {
		for _, s := range list {
			if _, ok := t.index[s.StageID]; !ok || !s.Status.Valid() {
				continue
			}
			t.jobStatesLocked(jobID)[s.StageID] = s
		}
	}
}

// SetStageStatus records a new status for one stage of a job. Moving a
// stage to in_progress or completed requires every prerequisite completed.
func (t *Tracker) SetStageStatus(jobID, stageID string, status StageStatus) (StageState, error) {
	idx, ok := t.index[stageID]
	if !ok {
		return StageState{}, fmt.Errorf("%w: stage %s", ErrNotFound, stageID)
	}
	if !status.Valid() {
		return StageState{}, fmt.Errorf("%w: unknown stage status %q", ErrValidation, status)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	states := t.states[jobID]
	if status == StageInProgress || status == StageCompleted {
		for _, pre := range t.pipeline[idx].Prerequisites {
			if states[pre].Status != StageCompleted {
				return StageState{}, fmt.Errorf("%w: %s requires %s", ErrDependencyNotSatisfied, stageID, pre)
			}
		}
	}
	st := StageState{StageID: stageID, Status: status, UpdatedAt: t.now().UTC()}
	t.jobStatesLocked(jobID)[stageID] = st
	return st, nil
}

// State returns the recorded status of one stage, not_started if unset.
func (t *Tracker) State(jobID, stageID string) StageState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if st, ok := t.states[jobID][stageID]; ok {
		return st
	}
	return StageState{StageID: stageID, Status: StageNotStarted}
}

// Restore puts back a state returned by State, skipping the prerequisite
// check. Used when persisting a stage change fails.
func (t *Tracker) Restore(jobID string, st StageState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if st.Status == StageNotStarted && st.UpdatedAt.IsZero() {
		delete(t.states[jobID], st.StageID)
		return
	}
	t.jobStatesLocked(jobID)[st.StageID] = st
}

// Reset forgets every job, e.g. after a catalog import.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.states = map[string]map[string]StageState{}
}

func (t *Tracker) jobStatesLocked(jobID string) map[string]StageState {
	m, ok := t.states[jobID]
	if !ok {
		m = map[string]StageState{}
		t.states[jobID] = m
	}
	return m
}

// Progress reports completed/total for a job, the first stage not yet
// completed, and the estimated hours left.
func (t *Tracker) Progress(jobID string) JobProgress {
	t.mu.RLock()
	defer t.mu.RUnlock()

	states := t.states[jobID]
	p := JobProgress{JobID: jobID, Total: len(t.pipeline)}
	for _, st := range t.pipeline {
		s, ok := states[st.ID]
		if !ok {
			s = StageState{StageID: st.ID, Status: StageNotStarted}
		}
		p.Stages = append(p.Stages, s)
		if s.Status == StageCompleted {
			p.Completed++
			continue
		}
		p.RemainingHours += st.EstimatedHours
		if p.CurrentStage == "" {
			p.CurrentStage = st.ID
		}
	}
	if p.Total > 0 {
		p.Percent = float64(p.Completed) / float64(p.Total) * 100
	}
	return p
}
