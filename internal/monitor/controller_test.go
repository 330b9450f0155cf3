package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MK-DEV369/HMS-Brain/internal/backend"
	"github.com/MK-DEV369/HMS-Brain/internal/classify"
)

// fakeTransport для тестирования - управляемый из теста живой канал
type fakeTransport struct {
	messages chan backend.Envelope
	err      error
	once     sync.Once
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		messages: make(chan backend.Envelope, 16),
	}
}

func (ft *fakeTransport) Messages() <-chan backend.Envelope { return ft.messages }
func (ft *fakeTransport) Err() error                        { return ft.err }

func (ft *fakeTransport) Close() error {
	ft.once.Do(func() { close(ft.messages) })
	return nil
}

func (ft *fakeTransport) send(msgType string, payload any) {
	data, _ := json.Marshal(payload)
	ft.messages <- backend.Envelope{Type: msgType, Data: data}
}

func TestController_StartWithoutPatient(t *testing.T) {
	c := NewController(context.Background(), Config{Mode: ModePush}, nil, nil)

	if err := c.Start(context.Background()); !errors.Is(err, ErrNoPatient) {
		t.Errorf("Expected ErrNoPatient, got %v", err)
	}
}

func TestController_PushAppliesMessages(t *testing.T) {
	ft := newFakeTransport()
	dial := func(ctx context.Context, patientID string) (Transport, error) {
		return ft, nil
	}

	c := NewController(context.Background(), Config{Mode: ModePush, BufferCapacity: 100, WindowSize: 50}, dial, nil)
	c.Reset("p1")
	defer c.Stop()

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start session: %v", err)
	}

	if c.Status() != StatusConnected {
		t.Errorf("Expected CONNECTED after start, got %s", c.Status())
	}

	ft.send(backend.MessageTypeEEGData, []map[string]any{
		{"timestamp": 1.0, "Fp1": 2.0},
		{"timestamp": 2.0, "Fp1": 3.0},
	})
	ft.send(backend.MessageTypeClassification, map[string]any{
		"prediction":        0,
		"confidence_scores": map[string]float64{"seizure": 80, "others": 20},
	})
	ft.send(backend.MessageTypeVitalSigns, map[string]any{
		"heart_rate": 72, "temperature": 36.6, "blood_pressure": "120/80",
	})
	// Неизвестный тип не должен ничего сломать
	ft.send("firmware_update", map[string]any{"version": 2})

	// Даем время для обработки
	time.Sleep(100 * time.Millisecond)

	snapshot := c.Snapshot()
	if snapshot.BufferLen != 2 {
		t.Errorf("Expected 2 buffered points, got %d", snapshot.BufferLen)
	}
	if snapshot.State.Label != classify.LabelSeizure {
		t.Errorf("Expected Seizure classification, got %s", snapshot.State.Label)
	}
	if snapshot.Vitals == nil || snapshot.Vitals.HeartRate != 72 {
		t.Errorf("Expected vitals heart_rate=72, got %+v", snapshot.Vitals)
	}
}

func TestController_DialFailure(t *testing.T) {
	dial := func(ctx context.Context, patientID string) (Transport, error) {
		return nil, errors.New("connection refused")
	}

	c := NewController(context.Background(), Config{Mode: ModePush}, dial, nil)
	c.Reset("p1")

	if err := c.Start(context.Background()); err == nil {
		t.Fatalf("Expected start error on dial failure")
	}
	if c.Status() != StatusDisconnected {
		t.Errorf("Expected DISCONNECTED after dial failure, got %s", c.Status())
	}
}

func TestController_TransportLossNoReconnect(t *testing.T) {
	var dials int
	var mu sync.Mutex
	ft := newFakeTransport()
	ft.err = errors.New("backend gone")
	dial := func(ctx context.Context, patientID string) (Transport, error) {
		mu.Lock()
		dials++
		mu.Unlock()
		return ft, nil
	}

	c := NewController(context.Background(), Config{Mode: ModePush}, dial, nil)
	c.Reset("p1")

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start session: %v", err)
	}

	// Обрыв канала со стороны бэкенда
	ft.Close()
	time.Sleep(100 * time.Millisecond)

	if c.Status() != StatusDisconnected {
		t.Errorf("Expected DISCONNECTED after transport loss, got %s", c.Status())
	}

	mu.Lock()
	defer mu.Unlock()
	if dials != 1 {
		t.Errorf("Expected no automatic reconnect, got %d dials", dials)
	}
}

func TestController_ResetClearsState(t *testing.T) {
	ft := newFakeTransport()
	dial := func(ctx context.Context, patientID string) (Transport, error) {
		return ft, nil
	}

	c := NewController(context.Background(), Config{Mode: ModePush}, dial, nil)
	c.Reset("p1")

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start session: %v", err)
	}

	ft.send(backend.MessageTypeEEGData, []map[string]any{{"Fp1": 1.0}})
	ft.send(backend.MessageTypeClassification, map[string]any{
		"prediction":        0,
		"confidence_scores": map[string]float64{"seizure": 90},
	})
	time.Sleep(100 * time.Millisecond)

	// Смена пациента: буфер, классификация и витальные сбрасываются
	c.Reset("p2")

	snapshot := c.Snapshot()
	if snapshot.PatientID != "p2" {
		t.Errorf("Expected patient p2 after reset, got %s", snapshot.PatientID)
	}
	if snapshot.BufferLen != 0 {
		t.Errorf("Expected empty buffer after reset, got %d points", snapshot.BufferLen)
	}
	if snapshot.State.Label != classify.LabelOthers {
		t.Errorf("Expected default classification after reset, got %s", snapshot.State.Label)
	}
	if snapshot.Vitals != nil {
		t.Errorf("Expected no vitals after reset, got %+v", snapshot.Vitals)
	}
}

func replayRecording(n int) *backend.Snapshot {
	raws := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		raws = append(raws, map[string]any{"timestamp": float64(i), "amplitude": float64(i)})
	}
	return &backend.Snapshot{
		EEGData:    raws,
		VitalSigns: &backend.VitalSigns{HeartRate: 80},
	}
}

func TestController_ReplayStopsAtEnd(t *testing.T) {
	fetch := func(ctx context.Context, patientID string) (*backend.Snapshot, error) {
		return replayRecording(70), nil
	}

	c := NewController(context.Background(), Config{
		Mode:           ModeReplay,
		BufferCapacity: 100,
		WindowSize:     50,
		ReplayInterval: 5 * time.Millisecond,
	}, nil, fetch)
	c.Reset("p1")
	defer c.Stop()

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start replay: %v", err)
	}

	// 70 точек при окне 50: указатель должен остановиться на 20
	time.Sleep(300 * time.Millisecond)

	snapshot := c.Snapshot()
	if snapshot.Pointer != 20 {
		t.Errorf("Expected replay pointer to stop at 20, got %d", snapshot.Pointer)
	}
	if len(snapshot.Window) != 50 {
		t.Fatalf("Expected final window of 50 points, got %d", len(snapshot.Window))
	}
	if snapshot.Window[49].Time != 69 {
		t.Errorf("Expected final window to end at time 69, got %v", snapshot.Window[49].Time)
	}
	if snapshot.Vitals == nil || snapshot.Vitals.HeartRate != 80 {
		t.Errorf("Expected vitals from recording, got %+v", snapshot.Vitals)
	}
}

func TestController_ReplayShortRecording(t *testing.T) {
	fetch := func(ctx context.Context, patientID string) (*backend.Snapshot, error) {
		return replayRecording(30), nil
	}

	c := NewController(context.Background(), Config{
		Mode:           ModeReplay,
		WindowSize:     50,
		ReplayInterval: 5 * time.Millisecond,
	}, nil, fetch)
	c.Reset("p1")
	defer c.Stop()

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start replay: %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	// Запись короче окна: указатель не двигается, показываются все точки
	snapshot := c.Snapshot()
	if snapshot.Pointer != 0 {
		t.Errorf("Expected pointer to stay at 0 for short recording, got %d", snapshot.Pointer)
	}
	if len(snapshot.Window) != 30 {
		t.Errorf("Expected window of all 30 points, got %d", len(snapshot.Window))
	}
}

func TestController_ReplayPauseResume(t *testing.T) {
	var fetches int
	var mu sync.Mutex
	fetch := func(ctx context.Context, patientID string) (*backend.Snapshot, error) {
		mu.Lock()
		fetches++
		mu.Unlock()
		return replayRecording(70), nil
	}

	c := NewController(context.Background(), Config{
		Mode:           ModeReplay,
		BufferCapacity: 100,
		WindowSize:     50,
		ReplayInterval: 5 * time.Millisecond,
	}, nil, fetch)
	c.Reset("p1")
	defer c.Stop()

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start replay: %v", err)
	}
	time.Sleep(300 * time.Millisecond)

	c.Stop()
	pointer := c.Snapshot().Pointer

	// Возобновление не перечитывает запись и не сбрасывает указатель
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Failed to resume replay: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	if got := c.Snapshot().Pointer; got != pointer {
		t.Errorf("Expected pointer %d preserved across pause, got %d", pointer, got)
	}

	mu.Lock()
	defer mu.Unlock()
	if fetches != 1 {
		t.Errorf("Expected recording fetched once, got %d fetches", fetches)
	}
}

func TestController_SimulatedDrift(t *testing.T) {
	c := NewController(context.Background(), Config{
		Mode:          ModeSimulated,
		DriftInterval: 5 * time.Millisecond,
	}, nil, nil)
	c.Reset("p1")
	defer c.Stop()

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start simulated session: %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	snapshot := c.Snapshot()
	if snapshot.BufferLen == 0 {
		t.Errorf("Expected synthetic points in buffer")
	}

	sum := 0.0
	for _, score := range snapshot.State.Scores {
		sum += score
	}
	if sum < 99.999 || sum > 100.001 {
		t.Errorf("Expected drifted scores to sum to 100, got %v", sum)
	}
}

func TestController_SessionOutlivesCallerContext(t *testing.T) {
	ft := newFakeTransport()
	dial := func(ctx context.Context, patientID string) (Transport, error) {
		return ft, nil
	}

	c := NewController(context.Background(), Config{Mode: ModePush}, dial, nil)
	c.Reset("p1")
	defer c.Stop()

	// Контекст вызова (HTTP запрос) отменяется сразу после открытия,
	// как это делает net/http после возврата обработчика
	callCtx, callCancel := context.WithCancel(context.Background())
	if err := c.Start(callCtx); err != nil {
		t.Fatalf("Failed to start session: %v", err)
	}
	callCancel()

	ft.send(backend.MessageTypeEEGData, []map[string]any{{"timestamp": 1.0, "Fp1": 2.0}})
	time.Sleep(100 * time.Millisecond)

	if c.Status() != StatusConnected {
		t.Errorf("Expected session to survive caller context, got %s", c.Status())
	}
	if got := c.Snapshot().BufferLen; got != 1 {
		t.Errorf("Expected 1 buffered point after caller context cancel, got %d", got)
	}
}

func TestController_ShutdownClosesSession(t *testing.T) {
	ft := newFakeTransport()
	dial := func(ctx context.Context, patientID string) (Transport, error) {
		return ft, nil
	}

	appCtx, appCancel := context.WithCancel(context.Background())
	c := NewController(appCtx, Config{Mode: ModePush}, dial, nil)
	c.Reset("p1")

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start session: %v", err)
	}

	// Остановка приложения: сессия переходит в CLOSED и освобождает транспорт
	appCancel()
	time.Sleep(100 * time.Millisecond)

	if c.Status() != StatusClosed {
		t.Errorf("Expected CLOSED after shutdown, got %s", c.Status())
	}

	select {
	case _, ok := <-ft.messages:
		if ok {
			t.Errorf("Expected transport closed after shutdown")
		}
	default:
		t.Errorf("Expected transport closed after shutdown")
	}
}

func TestController_StaleSessionMessagesDiscarded(t *testing.T) {
	dial := func(ctx context.Context, patientID string) (Transport, error) {
		return newFakeTransport(), nil
	}

	c := NewController(context.Background(), Config{Mode: ModePush}, dial, nil)
	c.Reset("p1")
	defer c.Stop()

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start session: %v", err)
	}

	c.mu.Lock()
	stale := c.session
	c.mu.Unlock()

	// Смена пациента разрывает первую сессию и открывает новую
	c.Reset("p2")
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start second session: %v", err)
	}

	// Позднее сообщение разорванной сессии не должно мутировать
	// ни буфер, ни классификацию нового пациента
	eegData, _ := json.Marshal([]map[string]any{{"timestamp": 1.0, "Fp1": 2.0}})
	c.applyEnvelope(stale, backend.Envelope{Type: backend.MessageTypeEEGData, Data: eegData})

	event, _ := json.Marshal(map[string]any{
		"prediction":        0,
		"confidence_scores": map[string]float64{"seizure": 95},
	})
	c.applyEnvelope(stale, backend.Envelope{Type: backend.MessageTypeClassification, Data: event})

	snapshot := c.Snapshot()
	if snapshot.BufferLen != 0 {
		t.Errorf("Expected empty buffer after stale message, got %d points", snapshot.BufferLen)
	}
	if snapshot.State.Label != classify.LabelOthers {
		t.Errorf("Expected default classification after stale message, got %s", snapshot.State.Label)
	}
}

func TestController_SnapshotFlagsArtifacts(t *testing.T) {
	ft := newFakeTransport()
	dial := func(ctx context.Context, patientID string) (Transport, error) {
		return ft, nil
	}

	c := NewController(context.Background(), Config{Mode: ModePush}, dial, nil)
	c.Reset("p1")
	defer c.Stop()

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start session: %v", err)
	}

	// Ровный сигнал с одним выбросом на канале признаков
	raws := make([]map[string]any, 0, 21)
	for i := 0; i < 21; i++ {
		value := 0.0
		if i == 10 {
			value = 1000.0
		}
		raws = append(raws, map[string]any{"timestamp": float64(i), "amplitude": value})
	}
	ft.send(backend.MessageTypeEEGData, raws)
	time.Sleep(100 * time.Millisecond)

	snapshot := c.Snapshot()
	if len(snapshot.Artifacts) != 1 || snapshot.Artifacts[0] != 10 {
		t.Errorf("Expected artifact at index 10, got %v", snapshot.Artifacts)
	}
}

func TestController_StopIsIdempotent(t *testing.T) {
	c := NewController(context.Background(), Config{Mode: ModeSimulated, DriftInterval: 5 * time.Millisecond}, nil, nil)
	c.Reset("p1")

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start session: %v", err)
	}

	c.Stop()
	c.Stop()

	if c.Status() != StatusClosed {
		t.Errorf("Expected CLOSED after stop, got %s", c.Status())
	}
}
