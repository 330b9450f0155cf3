package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/MK-DEV369/HMS-Brain/internal/backend"
	"github.com/MK-DEV369/HMS-Brain/internal/classify"
	"github.com/MK-DEV369/HMS-Brain/internal/eeg"
)

// Mode выбирает источник данных живого монитора. Режимы взаимоисключающие:
// одна открытая сессия питает буфер ровно из одного источника
type Mode string

const (
	// ModePush - продакшен режим: живой канал от бэкенда
	ModePush Mode = "push"
	// ModeReplay - воспроизведение пакетной записи по таймеру
	ModeReplay Mode = "replay"
	// ModeSimulated - локальная генерация данных, только для стендов
	// без бэкенда. Не отражает клиническую логику
	ModeSimulated Mode = "simulated"
)

// ConnectionStatus - видимый UI статус соединения сессии
type ConnectionStatus string

const (
	StatusIdle         ConnectionStatus = "IDLE"
	StatusConnecting   ConnectionStatus = "CONNECTING"
	StatusConnected    ConnectionStatus = "CONNECTED"
	StatusDisconnected ConnectionStatus = "DISCONNECTED"
	StatusClosed       ConnectionStatus = "CLOSED"
)

// ErrNoPatient возвращается при попытке открыть сессию без выбранного пациента
var ErrNoPatient = errors.New("no patient selected")

// Transport - один открытый транспорт живого канала. Канал Messages
// закрывается при ошибке или после Close; причину отдает Err
type Transport interface {
	Messages() <-chan backend.Envelope
	Err() error
	Close() error
}

// DialFunc открывает транспорт живого канала для пациента
type DialFunc func(ctx context.Context, patientID string) (Transport, error)

// SnapshotFunc загружает пакетную запись пациента для режима воспроизведения
type SnapshotFunc func(ctx context.Context, patientID string) (*backend.Snapshot, error)

// Snapshot - read-only снимок состояния монитора для графика,
// хаба и страницы статуса
type Snapshot struct {
	PatientID string              `json:"patient_id"`
	Mode      Mode                `json:"mode"`
	Status    ConnectionStatus    `json:"status"`
	Window    []eeg.SamplePoint   `json:"window"`
	BufferLen int                 `json:"buffer_len"`
	Pointer   int                 `json:"pointer"`
	State     classify.State      `json:"classification"`
	Vitals    *backend.VitalSigns `json:"vital_signs,omitempty"`
	Features  map[string]float64  `json:"features,omitempty"`
	Artifacts []int               `json:"artifacts,omitempty"`
	UpdatedAt time.Time           `json:"updated_at"`
}
