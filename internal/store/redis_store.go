package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MK-DEV369/HMS-Brain/internal/alert"
	"github.com/MK-DEV369/HMS-Brain/internal/backend"
)

// RedisStore реализует CacheStore для Redis (Infrastructure Layer)
type RedisStore struct {
	client         *redis.Client
	historyLimit   int64
	spectrogramTTL time.Duration
}

// NewRedisStore создает новый экземпляр RedisStore.
// historyLimit ограничивает длину списка истории классификаций,
// spectrogramTTL задает время жизни кэша спектрограмм.
func NewRedisStore(client *redis.Client, historyLimit int, spectrogramTTL time.Duration) *RedisStore {
	if historyLimit <= 0 {
		historyLimit = 500
	}
	return &RedisStore{
		client:         client,
		historyLimit:   int64(historyLimit),
		spectrogramTTL: spectrogramTTL,
	}
}

// ===== Ключи Redis =====

func patientKey(patientID string) string {
	return fmt.Sprintf("patient:%s:metadata", patientID)
}

func vitalsKey(patientID string) string {
	return fmt.Sprintf("patient:%s:vitals", patientID)
}

func classificationKey(patientID string) string {
	return fmt.Sprintf("patient:%s:classifications", patientID)
}

func spectrogramKey(patientID string) string {
	return fmt.Sprintf("patient:%s:spectrogram", patientID)
}

// ===== Пациенты =====

func (r *RedisStore) SetPatient(ctx context.Context, patient *backend.Patient) error {
	data, err := json.Marshal(patient)
	if err != nil {
		return fmt.Errorf("failed to marshal patient: %w", err)
	}

	return r.client.Set(ctx, patientKey(patient.ID), data, 0).Err()
}

func (r *RedisStore) GetPatient(ctx context.Context, patientID string) (*backend.Patient, error) {
	data, err := r.client.Get(ctx, patientKey(patientID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("patient not found: %s", patientID)
		}
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}

	var patient backend.Patient
	if err := json.Unmarshal([]byte(data), &patient); err != nil {
		return nil, fmt.Errorf("failed to unmarshal patient: %w", err)
	}

	return &patient, nil
}

// ===== Витальные показатели =====

func (r *RedisStore) SetVitals(ctx context.Context, patientID string, vitals *backend.VitalSigns) error {
	// Сохраняем как Hash для эффективного обновления отдельных полей
	fields := map[string]interface{}{
		"heart_rate":     vitals.HeartRate,
		"temperature":    vitals.Temperature,
		"blood_pressure": vitals.BloodPressure,
		"updated_at":     time.Now().Unix(),
	}

	return r.client.HSet(ctx, vitalsKey(patientID), fields).Err()
}

func (r *RedisStore) GetVitals(ctx context.Context, patientID string) (*backend.VitalSigns, error) {
	data, err := r.client.HGetAll(ctx, vitalsKey(patientID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get vitals: %w", err)
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("vitals not found for patient: %s", patientID)
	}

	vitals := &backend.VitalSigns{}
	if val, ok := data["heart_rate"]; ok {
		fmt.Sscanf(val, "%d", &vitals.HeartRate)
	}
	if val, ok := data["temperature"]; ok {
		fmt.Sscanf(val, "%g", &vitals.Temperature)
	}
	if val, ok := data["blood_pressure"]; ok {
		vitals.BloodPressure = val
	}

	return vitals, nil
}

// ===== История классификаций =====

func (r *RedisStore) AppendClassification(ctx context.Context, record *ClassificationRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal classification record: %w", err)
	}

	key := classificationKey(record.PatientID)
	pipe := r.client.Pipeline()
	pipe.RPush(ctx, key, data)
	// Ограничиваем длину истории, оставляя последние historyLimit записей
	pipe.LTrim(ctx, key, -r.historyLimit, -1)

	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisStore) GetClassificationHistory(ctx context.Context, patientID string) ([]ClassificationRecord, error) {
	key := classificationKey(patientID)
	data, err := r.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get classification history: %w", err)
	}

	records := make([]ClassificationRecord, 0, len(data))
	for _, item := range data {
		var record ClassificationRecord
		if err := json.Unmarshal([]byte(item), &record); err != nil {
			continue // Пропускаем поврежденные записи
		}
		records = append(records, record)
	}

	return records, nil
}

// ===== Спектрограммы =====

func (r *RedisStore) SetSpectrogram(ctx context.Context, patientID string, spec backend.Spectrogram) error {
	data, err := json.Marshal(spec)
	if err != nil {
		return fmt.Errorf("failed to marshal spectrogram: %w", err)
	}

	return r.client.Set(ctx, spectrogramKey(patientID), data, r.spectrogramTTL).Err()
}

func (r *RedisStore) GetSpectrogram(ctx context.Context, patientID string) (backend.Spectrogram, error) {
	data, err := r.client.Get(ctx, spectrogramKey(patientID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("spectrogram not found: %s", patientID)
		}
		return nil, fmt.Errorf("failed to get spectrogram: %w", err)
	}

	var spec backend.Spectrogram
	if err := json.Unmarshal([]byte(data), &spec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal spectrogram: %w", err)
	}

	return spec, nil
}

// ===== Удаление данных пациента =====

func (r *RedisStore) DeletePatientData(ctx context.Context, patientID string) error {
	// Удаляем все ключи, связанные с пациентом
	pattern := fmt.Sprintf("patient:%s:*", patientID)

	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
	pipe := r.client.Pipeline()

	for iter.Next(ctx) {
		pipe.Del(ctx, iter.Val())
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan keys: %w", err)
	}

	_, err := pipe.Exec(ctx)
	return err
}

var _ CacheStore = (*RedisStore)(nil)
var _ alert.Recorder = (*NullRecorder)(nil)

// NullRecorder - заглушка Recorder для запуска без PostgreSQL
type NullRecorder struct{}

func (NullRecorder) SaveAlert(ctx context.Context, event *alert.Event) error { return nil }
