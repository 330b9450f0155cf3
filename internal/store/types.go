package store

import (
	"context"
	"time"

	"github.com/MK-DEV369/HMS-Brain/internal/alert"
	"github.com/MK-DEV369/HMS-Brain/internal/backend"
)

// ClassificationRecord - одна запись истории классификаций пациента
type ClassificationRecord struct {
	PatientID  string             `json:"patient_id"`
	Label      string             `json:"label"`
	Severity   string             `json:"severity"`
	Scores     map[string]float64 `json:"scores"`
	RecordedAt time.Time          `json:"recorded_at"`
}

// AlertRecord - запись журнала аудита оповещений
type AlertRecord struct {
	ID          string    `json:"id"`
	PatientID   string    `json:"patient_id"`
	PatientName string    `json:"patient_name"`
	Room        string    `json:"room"`
	Severity    string    `json:"severity"`
	Message     string    `json:"message"`
	DoctorID    string    `json:"doctor_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// CacheStore - кэш снимков пациентов и истории классификаций (Redis)
type CacheStore interface {
	SetPatient(ctx context.Context, patient *backend.Patient) error
	GetPatient(ctx context.Context, patientID string) (*backend.Patient, error)

	SetVitals(ctx context.Context, patientID string, vitals *backend.VitalSigns) error
	GetVitals(ctx context.Context, patientID string) (*backend.VitalSigns, error)

	AppendClassification(ctx context.Context, record *ClassificationRecord) error
	GetClassificationHistory(ctx context.Context, patientID string) ([]ClassificationRecord, error)

	SetSpectrogram(ctx context.Context, patientID string, spec backend.Spectrogram) error
	GetSpectrogram(ctx context.Context, patientID string) (backend.Spectrogram, error)

	DeletePatientData(ctx context.Context, patientID string) error
}

// Repository - постоянное хранилище журнала оповещений и сохраненных
// классификаций (PostgreSQL)
type Repository interface {
	SaveAlert(ctx context.Context, event *alert.Event) error
	ListAlerts(ctx context.Context, patientID string, limit int) ([]AlertRecord, error)

	SaveClassifications(ctx context.Context, records []ClassificationRecord) error
	ListClassifications(ctx context.Context, patientID string, limit int) ([]ClassificationRecord, error)
}
