package backend

import "encoding/json"

// VitalSigns - снимок витальных показателей пациента на момент
// последнего обновления
type VitalSigns struct {
	HeartRate     int     `json:"heart_rate"`
	Temperature   float64 `json:"temperature"`
	BloodPressure string  `json:"blood_pressure"`
}

// Patient - запись справочника пациентов. Владелец данных - внешний
// сервис, мы храним только read-only копию. Все поля кроме id
// опциональны и могут отсутствовать в ответе
type Patient struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Room       string      `json:"room"`
	Age        int         `json:"age,omitempty"`
	Status     string      `json:"status,omitempty"` // stable | warning | critical
	VitalSigns *VitalSigns `json:"vital_signs,omitempty"`
}

// Snapshot - пакетная выгрузка записи ЭЭГ для режима воспроизведения
// и обновления витальных показателей
type Snapshot struct {
	EEGData    []map[string]any `json:"eeg_data"`
	VitalSigns *VitalSigns      `json:"vital_signs,omitempty"`
}

// Spectrogram - предрассчитанные бэкендом матрицы время-частота-мощность
// по регионам мозга (LL, RL, LP, RP)
type Spectrogram map[string][][]float64

// Типы сообщений живого канала
const (
	MessageTypeEEGData        = "eeg_data"
	MessageTypeClassification = "classification"
	MessageTypeVitalSigns     = "vital_signs"
)

// Envelope - сообщение живого канала: тег типа плюс полезная нагрузка,
// специфичная для типа. Неизвестные типы игнорируются получателем
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ClassificationEvent - авторитетное событие классификации от модели.
// Prediction - индекс класса, ConfidenceScores - независимые выходы
// модели по каждому классу (сумма не обязана равняться единице)
type ClassificationEvent struct {
	Prediction       int                `json:"prediction"`
	ConfidenceScores map[string]float64 `json:"confidence_scores"`
}
