package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/MK-DEV369/HMS-Brain/internal/backend"
	"github.com/MK-DEV369/HMS-Brain/internal/classify"
	"github.com/MK-DEV369/HMS-Brain/internal/identity"
)

var (
	// ErrMissingContact - у действующего пользователя нет контактного
	// канала; отправка невозможна, персонал нужно оповестить напрямую
	ErrMissingContact = errors.New("no contact channel for acting user: contact medical staff directly")
	// ErrDeliveryFailed - приемник оповещений ответил неуспехом
	ErrDeliveryFailed = errors.New("alert delivery failed")
)

// Event - исходящее экстренное оповещение. Собирается по требованию
// и нигде локально не хранится, кроме журнала аудита
type Event struct {
	ID               string             `json:"id"`
	PatientID        string             `json:"patient_id"`
	PatientName      string             `json:"patient_name"`
	Room             string             `json:"room"`
	AlertType        string             `json:"alert_type"`
	Message          string             `json:"message"`
	Severity         string             `json:"severity"`
	Timestamp        time.Time          `json:"timestamp"`
	DoctorID         string             `json:"doctor_id"`
	ConfidenceScores map[string]float64 `json:"confidence_scores"`
	PhoneNumber      string             `json:"phone_number"`
}

// Result - локальный результат диспатча для UI
type Result struct {
	Sent    bool   `json:"sent"`
	Skipped bool   `json:"skipped"`
	Reason  string `json:"reason,omitempty"`
	AlertID string `json:"alert_id,omitempty"`
}

// Sounder проигрывает локальный звуковой сигнал. Ошибка проигрывания
// не прерывает отправку оповещения
type Sounder interface {
	Play() error
}

// LogSounder - дефолтная реализация: пишет сигнал в лог
type LogSounder struct{}

func (LogSounder) Play() error {
	log.Printf("[ALERT] \a Audible alarm triggered")
	return nil
}

// Recorder пишет оповещение в журнал аудита. Ошибка записи
// логируется и не прерывает отправку
type Recorder interface {
	SaveAlert(ctx context.Context, event *Event) error
}

// PatientSource отдает текущего пациента (nil, если не выбран)
type PatientSource func() *backend.Patient

// StateSource отдает текущий снимок классификации
type StateSource func() classify.State

// Dispatcher собирает и отправляет экстренное оповещение из текущей
// классификации, выбранного пациента и действующего пользователя.
// Отправка никогда не мутирует буфер или классификацию
type Dispatcher struct {
	sinkURL    string
	httpClient *http.Client
	idp        identity.Provider
	patient    PatientSource
	state      StateSource
	sounder    Sounder
	recorder   Recorder
}

// NewDispatcher создает диспетчер. recorder может быть nil -
// тогда аудит не ведется
func NewDispatcher(sinkURL string, idp identity.Provider, patient PatientSource, state StateSource, recorder Recorder) *Dispatcher {
	return &Dispatcher{
		sinkURL: sinkURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		idp:      idp,
		patient:  patient,
		state:    state,
		sounder:  LogSounder{},
		recorder: recorder,
	}
}

// SetSounder заменяет источник звукового сигнала (для тестов)
func (d *Dispatcher) SetSounder(sounder Sounder) {
	d.sounder = sounder
}

// Dispatch отправляет оповещение. Без выбранного пациента или без
// действующего пользователя это no-op: сеть не трогается, ошибки нет.
// Отсутствие контакта и неуспех доставки различаются для UI
func (d *Dispatcher) Dispatch(ctx context.Context) (*Result, error) {
	patient := d.patient()
	if patient == nil {
		log.Printf("[ALERT] Dispatch skipped: no patient selected")
		return &Result{Skipped: true, Reason: "no patient selected"}, nil
	}

	user, err := d.idp.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve acting user: %w", err)
	}
	if user == nil {
		log.Printf("[ALERT] Dispatch skipped: no acting user")
		return &Result{Skipped: true, Reason: "no acting user"}, nil
	}

	// Локальный сигнал - best effort, отказ не прерывает отправку
	if err := d.sounder.Play(); err != nil {
		log.Printf("[WARN] Failed to play audible alarm: %v", err)
	}

	if user.Phone == "" {
		log.Printf("[ALERT] No contact channel for user %s", user.ID)
		return nil, ErrMissingContact
	}

	state := d.state()
	scores := make(map[string]float64, len(state.Scores))
	for label, score := range state.Scores {
		scores[label.ScoreKey()] = score
	}

	event := &Event{
		ID:          uuid.New().String(),
		PatientID:   patient.ID,
		PatientName: patient.Name,
		Room:        patient.Room,
		AlertType:   "eeg_classification",
		Message: fmt.Sprintf("EEG alert: %s (%s) detected for %s in room %s",
			state.Label, state.Severity, patient.Name, patient.Room),
		Severity:         string(state.Severity),
		Timestamp:        time.Now().UTC(),
		DoctorID:         user.ID,
		ConfidenceScores: scores,
		PhoneNumber:      user.Phone,
	}

	if err := d.post(ctx, event, user.Token); err != nil {
		return nil, err
	}

	if d.recorder != nil {
		if err := d.recorder.SaveAlert(ctx, event); err != nil {
			log.Printf("[WARN] Failed to record alert %s: %v", event.ID, err)
		}
	}

	log.Printf("[ALERT] Alert %s dispatched for patient %s (%s)", event.ID, patient.ID, state.Label)
	return &Result{Sent: true, AlertID: event.ID}, nil
}

func (d *Dispatcher) post(ctx context.Context, event *Event, token string) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.sinkURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build alert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: sink returned status %d", ErrDeliveryFailed, resp.StatusCode)
	}

	return nil
}
