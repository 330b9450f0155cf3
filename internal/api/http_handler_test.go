package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/MK-DEV369/HMS-Brain/internal/alert"
	"github.com/MK-DEV369/HMS-Brain/internal/backend"
	"github.com/MK-DEV369/HMS-Brain/internal/classify"
	"github.com/MK-DEV369/HMS-Brain/internal/identity"
	"github.com/MK-DEV369/HMS-Brain/internal/monitor"
	"github.com/MK-DEV369/HMS-Brain/internal/store"
)

// fakeBackend для тестирования - справочник и спектрограммы в памяти
type fakeBackend struct {
	patients []backend.Patient
	spectra  map[string]backend.Spectrogram
}

func (fb *fakeBackend) FetchPatients(ctx context.Context) ([]backend.Patient, error) {
	return fb.patients, nil
}

func (fb *fakeBackend) FetchPatient(ctx context.Context, patientID string) (*backend.Patient, error) {
	for i := range fb.patients {
		if fb.patients[i].ID == patientID {
			p := fb.patients[i]
			return &p, nil
		}
	}
	return nil, errors.New("patient not found")
}

func (fb *fakeBackend) FetchSnapshot(ctx context.Context, patientID string) (*backend.Snapshot, error) {
	return &backend.Snapshot{}, nil
}

func (fb *fakeBackend) FetchSpectrogram(ctx context.Context, patientID string) (backend.Spectrogram, error) {
	if spec, ok := fb.spectra[patientID]; ok {
		return spec, nil
	}
	return nil, errors.New("no spectrogram")
}

// fakeCache для тестирования - кэш, который следит только за удалениями
type fakeCache struct {
	mu      sync.Mutex
	evicted []string
}

func (fc *fakeCache) SetPatient(ctx context.Context, patient *backend.Patient) error { return nil }

func (fc *fakeCache) GetPatient(ctx context.Context, patientID string) (*backend.Patient, error) {
	return nil, errors.New("not cached")
}

func (fc *fakeCache) SetVitals(ctx context.Context, patientID string, vitals *backend.VitalSigns) error {
	return nil
}

func (fc *fakeCache) GetVitals(ctx context.Context, patientID string) (*backend.VitalSigns, error) {
	return nil, errors.New("not cached")
}

func (fc *fakeCache) AppendClassification(ctx context.Context, record *store.ClassificationRecord) error {
	return nil
}

func (fc *fakeCache) GetClassificationHistory(ctx context.Context, patientID string) ([]store.ClassificationRecord, error) {
	return nil, nil
}

func (fc *fakeCache) SetSpectrogram(ctx context.Context, patientID string, spec backend.Spectrogram) error {
	return nil
}

func (fc *fakeCache) GetSpectrogram(ctx context.Context, patientID string) (backend.Spectrogram, error) {
	return nil, errors.New("not cached")
}

func (fc *fakeCache) DeletePatientData(ctx context.Context, patientID string) error {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.evicted = append(fc.evicted, patientID)
	return nil
}

type testEnv struct {
	router      *mux.Router
	coordinator *monitor.Coordinator
	controller  *monitor.Controller
}

func newTestEnv(t *testing.T, user identity.User, sinkStatus int) *testEnv {
	return newTestEnvWithCache(t, user, sinkStatus, nil)
}

func newTestEnvWithCache(t *testing.T, user identity.User, sinkStatus int, cache store.CacheStore) *testEnv {
	t.Helper()

	fb := &fakeBackend{
		patients: []backend.Patient{
			{ID: "p1", Name: "Ivanov", Room: "101"},
			{ID: "p2", Name: "Petrov", Room: "102"},
		},
		spectra: map[string]backend.Spectrogram{
			"p1": {"LL": {{1, 2}}},
		},
	}

	controller := monitor.NewController(context.Background(), monitor.Config{
		Mode:          monitor.ModeSimulated,
		DriftInterval: 5 * time.Millisecond,
	}, nil, nil)
	t.Cleanup(controller.Stop)

	coordinator := monitor.NewCoordinator(fb, controller, true)

	sink := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(sinkStatus)
	}))
	t.Cleanup(sink.Close)

	dispatcher := alert.NewDispatcher(
		sink.URL,
		identity.NewStaticProvider(user),
		coordinator.Selected,
		func() classify.State { return controller.Snapshot().State },
		nil,
	)

	router := mux.NewRouter()
	NewHTTPHandler(coordinator, controller, dispatcher, fb, cache, nil).RegisterRoutes(router)

	return &testEnv{router: router, coordinator: coordinator, controller: controller}
}

func (env *testEnv) do(t *testing.T, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func TestHTTPHandler_ListPatients(t *testing.T) {
	env := newTestEnv(t, identity.User{}, http.StatusOK)

	if err := env.coordinator.Refresh(context.Background()); err != nil {
		t.Fatalf("Failed to refresh: %v", err)
	}

	rec := env.do(t, http.MethodGet, "/api/patients")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var body struct {
		Patients []backend.Patient `json:"patients"`
		Count    int               `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body.Count != 2 || len(body.Patients) != 2 {
		t.Errorf("Expected 2 patients, got %+v", body)
	}
}

func TestHTTPHandler_SelectPatient(t *testing.T) {
	env := newTestEnv(t, identity.User{}, http.StatusOK)

	rec := env.do(t, http.MethodPost, "/api/patients/p1/select")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	selected := env.coordinator.Selected()
	if selected == nil || selected.ID != "p1" {
		t.Errorf("Expected p1 selected, got %+v", selected)
	}

	// Неизвестный пациент
	rec = env.do(t, http.MethodPost, "/api/patients/ghost/select")
	if rec.Code != http.StatusBadGateway {
		t.Errorf("Expected 502 for unknown patient, got %d", rec.Code)
	}
}

func TestHTTPHandler_MonitorSnapshot(t *testing.T) {
	env := newTestEnv(t, identity.User{}, http.StatusOK)

	rec := env.do(t, http.MethodGet, "/api/monitor")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var snapshot monitor.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snapshot); err != nil {
		t.Fatalf("Failed to decode snapshot: %v", err)
	}
	if snapshot.Status != monitor.StatusIdle {
		t.Errorf("Expected IDLE status without session, got %s", snapshot.Status)
	}
}

func TestHTTPHandler_PauseResume(t *testing.T) {
	env := newTestEnv(t, identity.User{}, http.StatusOK)

	if rec := env.do(t, http.MethodPost, "/api/patients/p1/select"); rec.Code != http.StatusOK {
		t.Fatalf("Failed to select patient: %d", rec.Code)
	}

	if rec := env.do(t, http.MethodPost, "/api/monitor/pause"); rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 on pause, got %d", rec.Code)
	}
	if env.controller.Status() != monitor.StatusClosed {
		t.Errorf("Expected CLOSED after pause, got %s", env.controller.Status())
	}

	if rec := env.do(t, http.MethodPost, "/api/monitor/resume"); rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 on resume, got %d", rec.Code)
	}
	if env.controller.Status() != monitor.StatusConnected {
		t.Errorf("Expected CONNECTED after resume, got %s", env.controller.Status())
	}
}

func TestHTTPHandler_Spectrogram(t *testing.T) {
	env := newTestEnv(t, identity.User{}, http.StatusOK)

	rec := env.do(t, http.MethodGet, "/api/patients/p1/spectrogram")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var spec backend.Spectrogram
	if err := json.Unmarshal(rec.Body.Bytes(), &spec); err != nil {
		t.Fatalf("Failed to decode spectrogram: %v", err)
	}
	if len(spec["LL"]) != 1 {
		t.Errorf("Unexpected spectrogram: %+v", spec)
	}

	if rec := env.do(t, http.MethodGet, "/api/patients/ghost/spectrogram"); rec.Code != http.StatusBadGateway {
		t.Errorf("Expected 502 for missing spectrogram, got %d", rec.Code)
	}
}

func TestHTTPHandler_DispatchAlert_NoPatient(t *testing.T) {
	user := identity.User{ID: "doc1", Phone: "+70000000001"}
	env := newTestEnv(t, user, http.StatusOK)

	// Без выбранного пациента диспатч - тихий no-op
	rec := env.do(t, http.MethodPost, "/api/alerts")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 for silent no-op, got %d", rec.Code)
	}

	var result alert.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("Failed to decode result: %v", err)
	}
	if !result.Skipped {
		t.Errorf("Expected skipped result, got %+v", result)
	}
}

func TestHTTPHandler_DispatchAlert_MissingContact(t *testing.T) {
	user := identity.User{ID: "doc1"} // без телефона
	env := newTestEnv(t, user, http.StatusOK)

	if rec := env.do(t, http.MethodPost, "/api/patients/p1/select"); rec.Code != http.StatusOK {
		t.Fatalf("Failed to select patient: %d", rec.Code)
	}

	rec := env.do(t, http.MethodPost, "/api/alerts")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422 for missing contact, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHTTPHandler_DispatchAlert_DeliveryFailed(t *testing.T) {
	user := identity.User{ID: "doc1", Phone: "+70000000001"}
	env := newTestEnv(t, user, http.StatusInternalServerError)

	if rec := env.do(t, http.MethodPost, "/api/patients/p1/select"); rec.Code != http.StatusOK {
		t.Fatalf("Failed to select patient: %d", rec.Code)
	}

	rec := env.do(t, http.MethodPost, "/api/alerts")
	if rec.Code != http.StatusBadGateway {
		t.Errorf("Expected 502 for delivery failure, got %d", rec.Code)
	}
}

func TestHTTPHandler_EvictPatientCache(t *testing.T) {
	fc := &fakeCache{}
	env := newTestEnvWithCache(t, identity.User{}, http.StatusOK, fc)

	rec := env.do(t, http.MethodDelete, "/api/patients/p1/cache")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	fc.mu.Lock()
	defer fc.mu.Unlock()
	if len(fc.evicted) != 1 || fc.evicted[0] != "p1" {
		t.Errorf("Expected p1 evicted from cache, got %v", fc.evicted)
	}
}

func TestHTTPHandler_EvictPatientCache_NoCache(t *testing.T) {
	env := newTestEnv(t, identity.User{}, http.StatusOK)

	if rec := env.do(t, http.MethodDelete, "/api/patients/p1/cache"); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 without cache, got %d", rec.Code)
	}
}

func TestHTTPHandler_ListChannels(t *testing.T) {
	env := newTestEnv(t, identity.User{}, http.StatusOK)

	rec := env.do(t, http.MethodGet, "/api/channels")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var body struct {
		Electrodes []string `json:"electrodes"`
		Bands      []string `json:"bands"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(body.Electrodes) != 19 {
		t.Errorf("Expected 19 electrode channels, got %d", len(body.Electrodes))
	}
	if len(body.Bands) == 0 || body.Bands[0] != "amplitude" {
		t.Errorf("Expected band channels starting with amplitude, got %v", body.Bands)
	}
}

func TestHTTPHandler_ListAlerts_NoRepo(t *testing.T) {
	env := newTestEnv(t, identity.User{}, http.StatusOK)

	if rec := env.do(t, http.MethodGet, "/api/alerts"); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 without audit repository, got %d", rec.Code)
	}
}
