package store

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/MK-DEV369/HMS-Brain/internal/backend"
	"github.com/MK-DEV369/HMS-Brain/internal/monitor"
)

// Historian наблюдает за снимками монитора и ведет историю
// классификаций: смена метки пишется в кэш и в постоянное хранилище.
// Ошибки записи логируются и не влияют на живой поток
type Historian struct {
	cache CacheStore
	repo  Repository

	mu          sync.Mutex
	lastPatient string
	lastLabel   string
}

// NewHistorian создает наблюдателя. cache и repo могут быть nil
func NewHistorian(cache CacheStore, repo Repository) *Historian {
	return &Historian{
		cache: cache,
		repo:  repo,
	}
}

// Observe принимает очередной снимок монитора. Запись происходит
// только при смене пациента или метки классификации
func (h *Historian) Observe(snapshot monitor.Snapshot) {
	if snapshot.PatientID == "" {
		return
	}

	label := string(snapshot.State.Label)

	h.mu.Lock()
	changed := snapshot.PatientID != h.lastPatient || label != h.lastLabel
	if changed {
		h.lastPatient = snapshot.PatientID
		h.lastLabel = label
	}
	h.mu.Unlock()

	if !changed {
		return
	}

	scores := make(map[string]float64, len(snapshot.State.Scores))
	for l, score := range snapshot.State.Scores {
		scores[l.ScoreKey()] = score
	}

	record := ClassificationRecord{
		PatientID:  snapshot.PatientID,
		Label:      label,
		Severity:   string(snapshot.State.Severity),
		Scores:     scores,
		RecordedAt: snapshot.UpdatedAt,
	}

	// Запись уходит в фоне: Observe стоит на пути раздачи снимков,
	// и зависший кэш не должен тормозить живой поток
	go h.persist(record, snapshot.Vitals)
}

func (h *Historian) persist(record ClassificationRecord, vitals *backend.VitalSigns) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if h.cache != nil {
		if err := h.cache.AppendClassification(ctx, &record); err != nil {
			log.Printf("[WARN] Failed to cache classification for %s: %v", record.PatientID, err)
		}
		if vitals != nil {
			if err := h.cache.SetVitals(ctx, record.PatientID, vitals); err != nil {
				log.Printf("[WARN] Failed to cache vitals for %s: %v", record.PatientID, err)
			}
		}
	}

	if h.repo != nil {
		if err := h.repo.SaveClassifications(ctx, []ClassificationRecord{record}); err != nil {
			log.Printf("[WARN] Failed to persist classification for %s: %v", record.PatientID, err)
		}
	}
}
