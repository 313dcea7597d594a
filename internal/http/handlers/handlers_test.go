package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/printshop/backend/internal/db"
	"github.com/printshop/backend/internal/models"
	"github.com/printshop/backend/internal/service"
)

var testNow = time.Date(2026, 3, 10, 7, 0, 0, 0, time.UTC)

type testEnv struct {
	engine    *gin.Engine
	store     *db.MemoryStore
	scheduler *service.Scheduler
	tracker   *service.Tracker
}

// failingStore accepts reads but rejects every job, stage and equipment write.
type failingStore struct {
	*db.MemoryStore
}

var errWriteFailed = errors.New("write failed")

func (failingStore) PersistJob(context.Context, models.ProductionJob) error { return errWriteFailed }

func (failingStore) UpdateEquipment(context.Context, models.Equipment) error { return errWriteFailed }

func (failingStore) PersistStageStatus(context.Context, string, service.StageState) error {
	return errWriteFailed
}

// gatedStore holds the first job write until release is closed.
type gatedStore struct {
	*db.MemoryStore
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) PersistJob(ctx context.Context, j models.ProductionJob) error {
	if g.calls.Add(1) == 1 {
		close(g.entered)
		<-g.release
	}
	return g.MemoryStore.PersistJob(ctx, j)
}

func newTestEnv(t *testing.T, wrap func(*db.MemoryStore) Store) testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	clock := func() time.Time { return testNow }

	equipment, jobs := db.DemoCatalog(testNow, time.UTC)
	mem := db.NewMemoryStore(equipment, jobs)
	var store Store = mem
	if wrap != nil {
		store = wrap(mem)
	}
	env := testEnv{
		store:     mem,
		scheduler: service.NewScheduler(equipment, jobs, clock, zerolog.Nop()),
		tracker:   service.NewTracker(nil, clock),
	}
	h := &Handler{
		Store:     store,
		Scheduler: env.scheduler,
		Router:    service.NewRouter(service.DefaultScoringWeights()),
		Tracker:   env.tracker,
		Validator: validator.New(),
		Logger:    zerolog.Nop(),
		Location:  time.UTC,
		Grid:      service.GridOptions{DayStartHour: 8, DayEndHour: 18, SlotMinutes: 60},
	}

	r := gin.New()
	r.GET("/healthz", h.Healthz)
	api := r.Group("/api")
	api.GET("/equipment", h.EquipmentList)
	api.PATCH("/equipment/:id", h.UpdateEquipment)
	api.GET("/equipment/:id/schedule", h.EquipmentSchedule)
	api.GET("/jobs", h.JobsList)
	api.POST("/jobs", h.CreateJob)
	api.GET("/jobs/:id", h.JobDetails)
	api.POST("/jobs/:id/schedule", h.ScheduleJob)
	api.POST("/jobs/:id/unschedule", h.UnscheduleJob)
	api.POST("/jobs/:id/move", h.MoveJob)
	api.POST("/jobs/:id/status", h.UpdateJobStatus)
	api.GET("/jobs/:id/recommendations", h.Recommendations)
	api.GET("/jobs/:id/stages", h.JobStages)
	api.PATCH("/jobs/:id/stages/:stage", h.UpdateJobStage)
	api.POST("/schedule/drop", h.Drop)
	api.GET("/schedule/grid", h.DayGrid)
	api.GET("/schedule/conflicts", h.Conflicts)
	api.GET("/routing/queue", h.RoutingQueue)
	api.GET("/debug/compatibility", h.DebugCompatibility)
	api.POST("/import", h.Import)
	env.engine = r
	return env
}

func (e testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return resp.Error.Code
}

func decodeJob(t *testing.T, w *httptest.ResponseRecorder) models.ProductionJob {
	t.Helper()
	var j models.ProductionJob
	if err := json.Unmarshal(w.Body.Bytes(), &j); err != nil {
		t.Fatalf("decode job %q: %v", w.Body.String(), err)
	}
	return j
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, nil)
	if w := env.do(t, http.MethodGet, "/healthz", nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestScheduleJobPersists(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(t, http.MethodPost, "/api/jobs/JOB-1001/schedule", ScheduleRequest{EquipmentID: "EMB-01", Start: "2026-03-10T09:00:00Z"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	job := decodeJob(t, w)
	if job.Status != models.JobScheduled || !job.ScheduledEnd.Equal(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected job %+v", job)
	}
	stored, err := env.store.GetJob(context.Background(), "JOB-1001")
	if err != nil || !stored.IsScheduled() || *stored.AssignedEquipmentID != "EMB-01" {
		t.Fatalf("job not persisted: %v %+v", err, stored)
	}

	w = env.do(t, http.MethodPost, "/api/jobs/JOB-1001/unschedule", nil)
	if w.Code != http.StatusOK || decodeJob(t, w).IsScheduled() {
		t.Fatalf("unschedule failed: %d %s", w.Code, w.Body.String())
	}
}

func TestScheduleJobRejectsIncompatibleEquipment(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(t, http.MethodPost, "/api/jobs/JOB-1001/schedule", ScheduleRequest{EquipmentID: "SCR-01", Start: "2026-03-10T09:00:00Z"})
	if w.Code != http.StatusUnprocessableEntity || errorCode(t, w) != "INVALID_ASSIGNMENT" {
		t.Fatalf("expected 422 INVALID_ASSIGNMENT, got %d %s", w.Code, w.Body.String())
	}
	stored, _ := env.store.GetJob(context.Background(), "JOB-1001")
	if stored.IsScheduled() {
		t.Fatalf("rejected assignment reached the store")
	}

	w = env.do(t, http.MethodPost, "/api/jobs/NOPE/schedule", ScheduleRequest{EquipmentID: "EMB-01", Start: "2026-03-10T09:00:00Z"})
	if w.Code != http.StatusNotFound || errorCode(t, w) != "NOT_FOUND" {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	w = env.do(t, http.MethodPost, "/api/jobs/JOB-1001/schedule", ScheduleRequest{EquipmentID: "EMB-01"})
	if w.Code != http.StatusBadRequest || errorCode(t, w) != "VALIDATION_ERROR" {
		t.Fatalf("expected 400 VALIDATION_ERROR, got %d", w.Code)
	}
}

func TestPersistFailureRestoresScheduler(t *testing.T) {
	env := newTestEnv(t, func(m *db.MemoryStore) Store { return failingStore{m} })
	w := env.do(t, http.MethodPost, "/api/jobs/JOB-1001/schedule", ScheduleRequest{EquipmentID: "EMB-01", Start: "2026-03-10T09:00:00Z"})
	if w.Code != http.StatusInternalServerError || errorCode(t, w) != "DB_ERROR" {
		t.Fatalf("expected 500 DB_ERROR, got %d", w.Code)
	}
	job, _ := env.scheduler.Job("JOB-1001")
	if job.IsScheduled() || job.Status != models.JobPending {
		t.Fatalf("scheduler kept an unsaved assignment: %+v", job)
	}

	w = env.do(t, http.MethodPost, "/api/jobs", CreateJobRequest{ItemName: "Aprons", Quantity: 50, DueDate: "2026-03-20", Priority: "low", DecorationMethod: "dtg", EstimatedMinutes: 60})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if got := len(env.scheduler.Jobs()); got != 5 {
		t.Fatalf("unsaved job left in scheduler, %d jobs", got)
	}

	w = env.do(t, http.MethodPatch, "/api/jobs/JOB-1001/stages/artwork_approval", StageRequest{Status: "completed"})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if env.tracker.Progress("JOB-1001").Completed != 0 {
		t.Fatalf("tracker kept an unsaved stage change")
	}

	status := "offline"
	w = env.do(t, http.MethodPatch, "/api/equipment/EMB-01", EquipmentPatchRequest{Status: &status})
	if w.Code != http.StatusInternalServerError || errorCode(t, w) != "DB_ERROR" {
		t.Fatalf("expected 500 DB_ERROR, got %d", w.Code)
	}
	if eq, _ := env.scheduler.EquipmentByID("EMB-01"); eq.Status != models.EquipmentAvailable {
		t.Fatalf("scheduler kept an unsaved equipment change: %s", eq.Status)
	}
}

func TestConcurrentJobWritesKeepStoreInStep(t *testing.T) {
	gate := &gatedStore{entered: make(chan struct{}), release: make(chan struct{})}
	env := newTestEnv(t, func(m *db.MemoryStore) Store {
		gate.MemoryStore = m
		return gate
	})

	serve := func(path string, body string) int {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		env.engine.ServeHTTP(w, req)
		return w.Code
	}

	codes := make(chan int, 2)
	go func() {
		codes <- serve("/api/jobs/JOB-1001/schedule", `{"equipment_id":"EMB-01","start":"2026-03-10T09:00:00Z"}`)
	}()
	<-gate.entered
	go func() {
		codes <- serve("/api/jobs/JOB-1001/unschedule", "")
	}()
	// Let the unschedule reach the commit lock while the schedule is saving.
	time.Sleep(50 * time.Millisecond)
	close(gate.release)
	for i := 0; i < 2; i++ {
		if code := <-codes; code != http.StatusOK {
			t.Fatalf("expected 200, got %d", code)
		}
	}

	job, _ := env.scheduler.Job("JOB-1001")
	stored, err := env.store.GetJob(context.Background(), "JOB-1001")
	if err != nil {
		t.Fatalf("get stored job: %v", err)
	}
	if job.Status != models.JobPending || stored.Status != job.Status || stored.IsScheduled() {
		t.Fatalf("store and scheduler disagree: scheduler=%s store=%s", job.Status, stored.Status)
	}
}

func TestDropCommand(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPost, "/api/schedule/drop", DropRequest{
		Payload:     `{"jobId":"JOB-1003","estimatedDuration":240,"itemName":"Caps"}`,
		EquipmentID: "EMB-01",
		SlotStart:   "2026-03-10T08:00:00Z",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodPost, "/api/schedule/drop", DropRequest{
		Payload:     `{"jobId":"JOB-1003","estimatedDuration":240,"isScheduledMove":true,"currentStartSlot":"2026-03-10T08:00:00Z"}`,
		EquipmentID: "EMB-02",
		SlotStart:   "2026-03-10T13:00:00Z",
	})
	if w.Code != http.StatusOK || *decodeJob(t, w).AssignedEquipmentID != "EMB-02" {
		t.Fatalf("move failed: %d %s", w.Code, w.Body.String())
	}

	bad := []DropRequest{
		{Payload: `{"jobId":"JOB-1003"`, EquipmentID: "EMB-01", SlotStart: "2026-03-10T08:00:00Z"},
		{Payload: `{"jobId":"JOB-1003","estimatedDuration":90}`, EquipmentID: "EMB-01", SlotStart: "2026-03-10T08:00:00Z"},
		{Payload: `{"jobId":"JOB-1003","estimatedDuration":240,"isScheduledMove":true,"currentStartSlot":"2026-03-10T08:00:00Z"}`, EquipmentID: "EMB-01", SlotStart: "2026-03-10T15:00:00Z"},
	}
	for i, req := range bad {
		w := env.do(t, http.MethodPost, "/api/schedule/drop", req)
		if w.Code != http.StatusBadRequest || errorCode(t, w) != "MALFORMED_COMMAND" {
			t.Fatalf("case %d: expected 400 MALFORMED_COMMAND, got %d %s", i, w.Code, w.Body.String())
		}
	}
	job, _ := env.scheduler.Job("JOB-1003")
	if *job.AssignedEquipmentID != "EMB-02" || !job.ScheduledStart.Equal(time.Date(2026, 3, 10, 13, 0, 0, 0, time.UTC)) {
		t.Fatalf("discarded commands changed the job: %+v", job)
	}
}

func TestGridAndConflicts(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, req := range []struct{ id, start string }{
		{"JOB-1001", "2026-03-10T09:00:00Z"},
		{"JOB-1003", "2026-03-10T10:00:00Z"},
	} {
		if w := env.do(t, http.MethodPost, "/api/jobs/"+req.id+"/schedule", ScheduleRequest{EquipmentID: "EMB-01", Start: req.start}); w.Code != http.StatusOK {
			t.Fatalf("schedule %s: %d %s", req.id, w.Code, w.Body.String())
		}
	}

	w := env.do(t, http.MethodGet, "/api/schedule/grid?date=2026-03-10", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("grid: %d %s", w.Code, w.Body.String())
	}
	var grid service.DayGrid
	if err := json.Unmarshal(w.Body.Bytes(), &grid); err != nil {
		t.Fatalf("decode grid: %v", err)
	}
	if len(grid.Rows) != 4 || len(grid.Rows[0].Slots) != 10 {
		t.Fatalf("expected 4 rows of 10 slots, got %d rows", len(grid.Rows))
	}
	emb := grid.Rows[0]
	// 150 + 240 of 480 per day.
	if emb.UtilizationPercent != 81.3 || !emb.CapacityWarning {
		t.Fatalf("unexpected utilization %.1f warning=%v", emb.UtilizationPercent, emb.CapacityWarning)
	}
	if emb.Slots[2].MaxColumns != 2 {
		t.Fatalf("expected both jobs in the 10:00 slot, got %d columns", emb.Slots[2].MaxColumns)
	}

	status := "maintenance"
	if w := env.do(t, http.MethodPatch, "/api/equipment/EMB-01", EquipmentPatchRequest{Status: &status}); w.Code != http.StatusOK {
		t.Fatalf("patch: %d", w.Code)
	}
	w = env.do(t, http.MethodGet, "/api/schedule/conflicts?date=2026-03-10", nil)
	var resp struct {
		Conflicts []models.SchedulingConflict `json:"conflicts"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode conflicts: %v", err)
	}
	// Below the capacity threshold and no job due within a day.
	if len(resp.Conflicts) != 1 || resp.Conflicts[0].Type != models.ConflictEquipmentUnavailable || resp.Conflicts[0].EquipmentID != "EMB-01" {
		t.Fatalf("unexpected conflicts %+v", resp.Conflicts)
	}

	if w := env.do(t, http.MethodGet, "/api/schedule/grid?date=someday", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad date, got %d", w.Code)
	}
}

func TestRecommendationsAndQueue(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodGet, "/api/jobs/JOB-1003/recommendations", nil)
	var recs struct {
		Recommendations []models.EquipmentRecommendation `json:"recommendations"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &recs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(recs.Recommendations) != 2 || recs.Recommendations[0].Equipment.ID != "EMB-01" || !recs.Recommendations[0].BestMatch {
		t.Fatalf("unexpected recommendations %+v", recs.Recommendations)
	}

	w = env.do(t, http.MethodGet, "/api/jobs/JOB-1005/recommendations", nil)
	var none struct {
		Recommendations []models.EquipmentRecommendation `json:"recommendations"`
		ReasonCode      string                           `json:"reason_code"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &none); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(none.Recommendations) != 0 || none.ReasonCode != "METHOD_MISMATCH" {
		t.Fatalf("expected METHOD_MISMATCH, got %+v", none)
	}

	w = env.do(t, http.MethodGet, "/api/routing/queue", nil)
	var queue struct {
		Items []service.QueueEntry `json:"items"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &queue); err != nil {
		t.Fatalf("decode queue: %v", err)
	}
	if len(queue.Items) != 5 || queue.Items[0].Job.ID != "JOB-1001" {
		t.Fatalf("expected JOB-1001 first of 5, got %+v", queue.Items)
	}

	w = env.do(t, http.MethodGet, "/api/debug/compatibility?job_id=JOB-1002", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"eligible":["SCR-01"]`) {
		t.Fatalf("unexpected compatibility %d %s", w.Code, w.Body.String())
	}
}

func TestJobLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPost, "/api/jobs", CreateJobRequest{ItemName: "Jackets", Quantity: 60, DueDate: "2026-03-18", Priority: "high", DecorationMethod: "embroidery", EstimatedHours: 2.5})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	job := decodeJob(t, w)
	if !strings.HasPrefix(job.ID, "JOB-") || job.EstimatedMinutes != 150 || job.Status != models.JobPending {
		t.Fatalf("unexpected created job %+v", job)
	}
	if _, err := env.store.GetJob(context.Background(), job.ID); err != nil {
		t.Fatalf("created job not persisted: %v", err)
	}

	w = env.do(t, http.MethodPost, "/api/jobs/"+job.ID+"/status", StatusRequest{Status: "in_progress"})
	if w.Code != http.StatusConflict || errorCode(t, w) != "INVALID_TRANSITION" {
		t.Fatalf("expected 409 INVALID_TRANSITION, got %d", w.Code)
	}
	if w := env.do(t, http.MethodPost, "/api/jobs/"+job.ID+"/schedule", ScheduleRequest{EquipmentID: "EMB-01", Start: "2026-03-11T08:00:00Z"}); w.Code != http.StatusOK {
		t.Fatalf("schedule: %d", w.Code)
	}
	for _, st := range []string{"in_progress", "completed"} {
		if w := env.do(t, http.MethodPost, "/api/jobs/"+job.ID+"/status", StatusRequest{Status: st}); w.Code != http.StatusOK {
			t.Fatalf("%s: %d %s", st, w.Code, w.Body.String())
		}
	}

	w = env.do(t, http.MethodPost, "/api/jobs", CreateJobRequest{ID: "JOB-1001", ItemName: "Dup", Quantity: 10, DueDate: "2026-03-18", Priority: "low", DecorationMethod: "dtg", EstimatedMinutes: 30})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate id, got %d", w.Code)
	}
	w = env.do(t, http.MethodPost, "/api/jobs", CreateJobRequest{ItemName: "No time", Quantity: 10, DueDate: "2026-03-18", Priority: "low", DecorationMethod: "dtg"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without a duration, got %d", w.Code)
	}
}

func TestStages(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPatch, "/api/jobs/JOB-1001/stages/setup", StageRequest{Status: "in_progress"})
	if w.Code != http.StatusConflict || errorCode(t, w) != "DEPENDENCY_NOT_SATISFIED" {
		t.Fatalf("expected 409 DEPENDENCY_NOT_SATISFIED, got %d", w.Code)
	}
	w = env.do(t, http.MethodPatch, "/api/jobs/JOB-1001/stages/artwork_approval", StageRequest{Status: "completed"})
	if w.Code != http.StatusOK {
		t.Fatalf("complete artwork: %d %s", w.Code, w.Body.String())
	}
	var p service.JobProgress
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode progress: %v", err)
	}
	if p.Completed != 1 || p.CurrentStage != "file_prep" {
		t.Fatalf("unexpected progress %+v", p)
	}
	stored, _ := env.store.LoadStageProgress(context.Background())
	if len(stored["JOB-1001"]) != 1 {
		t.Fatalf("stage not persisted: %+v", stored)
	}
	if w := env.do(t, http.MethodPatch, "/api/jobs/JOB-1001/stages/embossing", StageRequest{Status: "completed"}); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown stage, got %d", w.Code)
	}
}

func TestUpdateEquipment(t *testing.T) {
	env := newTestEnv(t, nil)
	status := "maintenance"
	w := env.do(t, http.MethodPatch, "/api/equipment/EMB-01", EquipmentPatchRequest{Status: &status})
	if w.Code != http.StatusOK {
		t.Fatalf("patch: %d %s", w.Code, w.Body.String())
	}
	list, _ := env.store.ListEquipment(context.Background())
	if list[0].Status != models.EquipmentMaintenance {
		t.Fatalf("equipment change not persisted: %+v", list[0])
	}

	load := 140
	w = env.do(t, http.MethodPatch, "/api/equipment/EMB-01", EquipmentPatchRequest{CurrentLoad: &load})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for load above 100, got %d", w.Code)
	}
	if w := env.do(t, http.MethodPatch, "/api/equipment/NOPE", EquipmentPatchRequest{Status: &status}); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestImport(t *testing.T) {
	env := newTestEnv(t, nil)
	equipmentCSV := "id,name,type,status,capacity,current_load,setup_time,min_quantity,max_quantity,heads,max_colors,screens,is_automatic\n" +
		"E1,Tajima,embroidery,available,480,10,30,12,1000,6,15,,\n" +
		"S1,M&R,screen print,busy,1200,60,45,24,5000,,,8,yes\n"
	jobsCSV := "job_id,item,customer,qty,due_date,priority,method,estimated_hours\n" +
		"J1,Polos,Golf Club,120,2026-03-12,high,Embroidery,2\n"

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for field, content := range map[string]string{"equipment": equipmentCSV, "jobs": jobsCSV} {
		part, err := mw.CreateFormFile(field, field+".csv")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		_, _ = part.Write([]byte(content))
	}
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	env.engine.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("import: %d %s", w.Code, w.Body.String())
	}

	eq := env.scheduler.Equipment()
	if len(eq) != 2 || eq[1].Kind != (models.ScreenPrinting{Screens: 8, IsAutomatic: true}) {
		t.Fatalf("unexpected imported equipment %+v", eq)
	}
	jobs := env.scheduler.Jobs()
	if len(jobs) != 1 || jobs[0].EstimatedMinutes != 120 || jobs[0].DecorationMethod != models.MethodEmbroidery {
		t.Fatalf("unexpected imported jobs %+v", jobs)
	}
	stored, _ := env.store.LoadAllJobs(context.Background())
	if len(stored) != 1 {
		t.Fatalf("store not replaced, %d jobs", len(stored))
	}
}

func TestParseEquipmentCSVReportsBadRows(t *testing.T) {
	content := "id,name,type,capacity,max_quantity\n" +
		"E1,Good,embroidery,480,1000\n" +
		"E2,Laser,laser,100,100\n" +
		"E3,Zero,embroidery,0,100\n" +
		"E1,Again,embroidery,480,1000\n"
	fh := makeMultipartFile(t, "equipment", "equipment.csv", content)
	equipment, errs := parseEquipmentCSV(fh, testNow)
	if len(equipment) != 1 || equipment[0].Status != models.EquipmentAvailable {
		t.Fatalf("expected one valid machine, got %+v", equipment)
	}
	if len(errs) != 3 {
		t.Fatalf("expected 3 errors, got %v", errs)
	}
}

func TestParseJobsCSVDefaults(t *testing.T) {
	content := "\ufeffItem Name,Quantity,Due Date,Decoration Method,Estimated Minutes\nTees,200,2026-03-15,dtg,90\n"
	fh := makeMultipartFile(t, "jobs", "jobs.csv", content)
	jobs, errs := parseJobsCSV(fh, time.UTC, testNow)
	if len(errs) > 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
	if len(jobs) != 1 || jobs[0].ID != "JOB-0001" || jobs[0].Priority != models.PriorityMedium || jobs[0].EstimatedMinutes != 90 {
		t.Fatalf("unexpected jobs %+v", jobs)
	}
}

func makeMultipartFile(t *testing.T, fieldName, filename, content string) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(fieldName, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write content: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	reader := multipart.NewReader(&buf, writer.Boundary())
	form, err := reader.ReadForm(int64(buf.Len()))
	if err != nil {
		t.Fatalf("read form: %v", err)
	}
	files := form.File[fieldName]
	if len(files) == 0 {
		t.Fatalf("no file headers found")
	}
	return files[0]
}
