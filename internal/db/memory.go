package db

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/printshop/backend/internal/models"
	"github.com/printshop/backend/internal/service"
)

// MemoryStore keeps the catalog in process. It is used when no database is
// configured and in handler tests.
type MemoryStore struct {
	mu        sync.RWMutex
	equipment []models.Equipment
	eqIndex   map[string]int
	jobs      []models.ProductionJob
	jobIndex  map[string]int
	stages    map[string]map[string]service.StageState
}

func NewMemoryStore(equipment []models.Equipment, jobs []models.ProductionJob) *MemoryStore {
	s := &MemoryStore{}
	s.reset(equipment, jobs)
	return s
}

func (s *MemoryStore) reset(equipment []models.Equipment, jobs []models.ProductionJob) {
	s.equipment = make([]models.Equipment, 0, len(equipment))
	s.eqIndex = make(map[string]int, len(equipment))
	for _, eq := range equipment {
		s.eqIndex[eq.ID] = len(s.equipment)
		s.equipment = append(s.equipment, eq)
	}
	s.jobs = make([]models.ProductionJob, 0, len(jobs))
	s.jobIndex = make(map[string]int, len(jobs))
	for _, j := range jobs {
		s.jobIndex[j.ID] = len(s.jobs)
		s.jobs = append(s.jobs, j.Clone())
	}
	s.stages = map[string]map[string]service.StageState{}
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() {}

func (s *MemoryStore) ListEquipment(context.Context) ([]models.Equipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Equipment(nil), s.equipment...), nil
}

func (s *MemoryStore) UpdateEquipment(_ context.Context, eq models.Equipment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.eqIndex[eq.ID]
	if !ok {
		return fmt.Errorf("%w: equipment %s", service.ErrNotFound, eq.ID)
	}
	cur := s.equipment[i]
	cur.Status = eq.Status
	cur.CurrentLoad = eq.CurrentLoad
	cur.UpdatedAt = eq.UpdatedAt
	s.equipment[i] = cur
	return nil
}

func (s *MemoryStore) LoadAllJobs(context.Context) ([]models.ProductionJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ProductionJob, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j.Clone())
	}
	return out, nil
}

func (s *MemoryStore) GetJob(_ context.Context, id string) (models.ProductionJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.jobIndex[id]
	if !ok {
		return models.ProductionJob{}, fmt.Errorf("%w: job %s", service.ErrNotFound, id)
	}
	return s.jobs[i].Clone(), nil
}

func (s *MemoryStore) PersistJob(_ context.Context, j models.ProductionJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.jobIndex[j.ID]; ok {
		s.jobs[i] = j.Clone()
		return nil
	}
	s.jobIndex[j.ID] = len(s.jobs)
	s.jobs = append(s.jobs, j.Clone())
	return nil
}

func (s *MemoryStore) ImportCatalog(_ context.Context, equipment []models.Equipment, jobs []models.ProductionJob) (ImportCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset(equipment, jobs)
	return ImportCounts{Equipment: len(s.equipment), Jobs: len(s.jobs)}, nil
}

func (s *MemoryStore) LoadStageProgress(context.Context) (map[string][]service.StageState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]service.StageState, len(s.stages))
	for jobID, m := range s.stages {
		for _, st := range m {
			out[jobID] = append(out[jobID], st)
		}
	}
	return out, nil
}

func (s *MemoryStore) PersistStageStatus(_ context.Context, jobID string, st service.StageState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobIndex[jobID]; !ok {
		return fmt.Errorf("%w: job %s", service.ErrNotFound, jobID)
	}
	m, ok := s.stages[jobID]
	if !ok {
		m = map[string]service.StageState{}
		s.stages[jobID] = m
	}
	m[st.StageID] = st
	return nil
}

// DemoCatalog is a small shop floor used when the server runs without a
// database: two embroidery machines, two screen presses and a handful of
// unscheduled jobs due over the coming week.
func DemoCatalog(now time.Time, loc *time.Location) ([]models.Equipment, []models.ProductionJob) {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	due := func(days int) time.Time { return today.AddDate(0, 0, days).Add(17 * time.Hour) }

	equipment := []models.Equipment{
		{ID: "EMB-01", Name: "Tajima TMBR-SC", Status: models.EquipmentAvailable, Capacity: 480, CurrentLoad: 35, SetupTime: 30, MinQuantity: 12, MaxQuantity: 1000, Kind: models.Embroidery{Heads: 6, MaxColors: 15}, UpdatedAt: now},
		{ID: "EMB-02", Name: "Barudan BEKY-S", Status: models.EquipmentBusy, Capacity: 320, CurrentLoad: 72, SetupTime: 25, MinQuantity: 6, MaxQuantity: 600, Kind: models.Embroidery{Heads: 4, MaxColors: 12}, UpdatedAt: now},
		{ID: "SCR-01", Name: "M&R Sportsman EX", Status: models.EquipmentAvailable, Capacity: 1200, CurrentLoad: 20, SetupTime: 45, MinQuantity: 24, MaxQuantity: 5000, Kind: models.ScreenPrinting{Screens: 8, IsAutomatic: true}, UpdatedAt: now},
		{ID: "SCR-02", Name: "Riley Hopkins 250", Status: models.EquipmentMaintenance, Capacity: 300, CurrentLoad: 0, SetupTime: 60, MinQuantity: 12, MaxQuantity: 500, Kind: models.ScreenPrinting{Screens: 6, IsAutomatic: false}, UpdatedAt: now},
	}
	jobs := []models.ProductionJob{
		{ID: "JOB-1001", ItemName: "Polo shirts", CustomerName: "Riverside Golf Club", Quantity: 150, DueDate: due(1), Priority: models.PriorityHigh, DecorationMethod: models.MethodEmbroidery, EstimatedMinutes: 180, Status: models.JobPending, UpdatedAt: now},
		{ID: "JOB-1002", ItemName: "Event tees", CustomerName: "City Marathon", Quantity: 900, DueDate: due(3), Priority: models.PriorityRush, DecorationMethod: models.MethodScreenPrinting, EstimatedMinutes: 360, Status: models.JobPending, UpdatedAt: now},
		{ID: "JOB-1003", ItemName: "Caps", CustomerName: "Northside Brewing", Quantity: 240, DueDate: due(6), Priority: models.PriorityMedium, DecorationMethod: models.MethodEmbroidery, EstimatedMinutes: 240, Status: models.JobPending, UpdatedAt: now},
		{ID: "JOB-1004", ItemName: "Hoodies", CustomerName: "Westfield High", Quantity: 80, DueDate: due(10), Priority: models.PriorityLow, DecorationMethod: models.MethodScreenPrinting, EstimatedMinutes: 120, Status: models.JobPending, UpdatedAt: now},
		{ID: "JOB-1005", ItemName: "Tote bags", CustomerName: "Farmers Market Co-op", Quantity: 300, DueDate: due(4), Priority: models.PriorityMedium, DecorationMethod: models.MethodDTG, EstimatedMinutes: 200, Status: models.JobPending, UpdatedAt: now},
	}
	return equipment, jobs
}
