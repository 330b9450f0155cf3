package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MK-DEV369/HMS-Brain/internal/backend"
)

func newTestRedisStore(t *testing.T, historyLimit int, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisStore(client, historyLimit, ttl), mr
}

func TestRedisStore_PatientRoundtrip(t *testing.T) {
	rs, _ := newTestRedisStore(t, 10, time.Minute)
	ctx := context.Background()

	patient := &backend.Patient{ID: "p1", Name: "Ivanov", Room: "101", Age: 54}
	if err := rs.SetPatient(ctx, patient); err != nil {
		t.Fatalf("Failed to set patient: %v", err)
	}

	got, err := rs.GetPatient(ctx, "p1")
	if err != nil {
		t.Fatalf("Failed to get patient: %v", err)
	}
	if got.Name != "Ivanov" || got.Room != "101" || got.Age != 54 {
		t.Errorf("Unexpected patient: %+v", got)
	}

	if _, err := rs.GetPatient(ctx, "ghost"); err == nil {
		t.Errorf("Expected error for missing patient")
	}
}

func TestRedisStore_VitalsRoundtrip(t *testing.T) {
	rs, _ := newTestRedisStore(t, 10, time.Minute)
	ctx := context.Background()

	vitals := &backend.VitalSigns{HeartRate: 72, Temperature: 36.6, BloodPressure: "120/80"}
	if err := rs.SetVitals(ctx, "p1", vitals); err != nil {
		t.Fatalf("Failed to set vitals: %v", err)
	}

	got, err := rs.GetVitals(ctx, "p1")
	if err != nil {
		t.Fatalf("Failed to get vitals: %v", err)
	}
	if got.HeartRate != 72 {
		t.Errorf("Expected heart_rate 72, got %d", got.HeartRate)
	}
	if got.Temperature != 36.6 {
		t.Errorf("Expected temperature 36.6, got %v", got.Temperature)
	}
	if got.BloodPressure != "120/80" {
		t.Errorf("Expected blood_pressure 120/80, got %s", got.BloodPressure)
	}
}

func TestRedisStore_ClassificationHistoryBounded(t *testing.T) {
	rs, _ := newTestRedisStore(t, 3, time.Minute)
	ctx := context.Background()

	labels := []string{"Others", "LPD", "Seizure", "GPD", "GRDA"}
	for _, label := range labels {
		record := &ClassificationRecord{
			PatientID:  "p1",
			Label:      label,
			Severity:   "Low",
			Scores:     map[string]float64{"others": 100},
			RecordedAt: time.Now().UTC(),
		}
		if err := rs.AppendClassification(ctx, record); err != nil {
			t.Fatalf("Failed to append classification: %v", err)
		}
	}

	history, err := rs.GetClassificationHistory(ctx, "p1")
	if err != nil {
		t.Fatalf("Failed to get history: %v", err)
	}

	// Лимит 3: остаются последние три записи в порядке добавления
	if len(history) != 3 {
		t.Fatalf("Expected history trimmed to 3 records, got %d", len(history))
	}
	expected := []string{"Seizure", "GPD", "GRDA"}
	for i, label := range expected {
		if history[i].Label != label {
			t.Errorf("Expected label %s at index %d, got %s", label, i, history[i].Label)
		}
	}
}

func TestRedisStore_SpectrogramTTL(t *testing.T) {
	rs, mr := newTestRedisStore(t, 10, time.Minute)
	ctx := context.Background()

	spec := backend.Spectrogram{"Fp1": {{1, 2}, {3, 4}}}
	if err := rs.SetSpectrogram(ctx, "p1", spec); err != nil {
		t.Fatalf("Failed to set spectrogram: %v", err)
	}

	got, err := rs.GetSpectrogram(ctx, "p1")
	if err != nil {
		t.Fatalf("Failed to get spectrogram: %v", err)
	}
	if len(got["Fp1"]) != 2 || got["Fp1"][0][1] != 2 {
		t.Errorf("Unexpected spectrogram: %+v", got)
	}

	// После истечения TTL кэш промахивается
	mr.FastForward(2 * time.Minute)
	if _, err := rs.GetSpectrogram(ctx, "p1"); err == nil {
		t.Errorf("Expected cache miss after TTL")
	}
}

func TestRedisStore_DeletePatientData(t *testing.T) {
	rs, _ := newTestRedisStore(t, 10, time.Minute)
	ctx := context.Background()

	if err := rs.SetPatient(ctx, &backend.Patient{ID: "p1", Name: "Ivanov"}); err != nil {
		t.Fatalf("Failed to set patient: %v", err)
	}
	if err := rs.SetVitals(ctx, "p1", &backend.VitalSigns{HeartRate: 70}); err != nil {
		t.Fatalf("Failed to set vitals: %v", err)
	}

	if err := rs.DeletePatientData(ctx, "p1"); err != nil {
		t.Fatalf("Failed to delete patient data: %v", err)
	}

	if _, err := rs.GetPatient(ctx, "p1"); err == nil {
		t.Errorf("Expected patient gone after delete")
	}
	if _, err := rs.GetVitals(ctx, "p1"); err == nil {
		t.Errorf("Expected vitals gone after delete")
	}
}
