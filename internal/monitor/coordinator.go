package monitor

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/MK-DEV369/HMS-Brain/internal/backend"
)

// Directory - справочник пациентов и пакетные выгрузки
// (реализуется backend.Client)
type Directory interface {
	FetchPatients(ctx context.Context) ([]backend.Patient, error)
	FetchPatient(ctx context.Context, patientID string) (*backend.Patient, error)
	FetchSnapshot(ctx context.Context, patientID string) (*backend.Snapshot, error)
}

// Coordinator держит справочник пациентов, текущий выбор и живой флаг.
// Смена пациента детерминированно разбирает и пересобирает все
// подписки сессии: сначала teardown, потом смена выбора, потом
// загрузка данных и новая сессия
type Coordinator struct {
	directory  Directory
	controller *Controller

	// selectMu сериализует SelectPatient целиком: teardown и
	// пересборка не должны перемежаться между двумя выборами
	selectMu sync.Mutex

	mu       sync.RWMutex
	patients []backend.Patient
	selected *backend.Patient
	live     bool
}

// NewCoordinator создает координатор. live задает стартовое состояние
// живого режима
func NewCoordinator(directory Directory, controller *Controller, live bool) *Coordinator {
	return &Coordinator{
		directory:  directory,
		controller: controller,
		live:       live,
	}
}

// Refresh перезагружает справочник пациентов целиком.
// Выбор пациента при этом не меняется
func (pc *Coordinator) Refresh(ctx context.Context) error {
	patients, err := pc.directory.FetchPatients(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh patient directory: %w", err)
	}

	pc.mu.Lock()
	pc.patients = patients
	pc.mu.Unlock()

	log.Printf("[PATIENTS] Directory refreshed: %d patients", len(patients))
	return nil
}

// Patients возвращает копию кэша справочника
func (pc *Coordinator) Patients() []backend.Patient {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	patients := make([]backend.Patient, len(pc.patients))
	copy(patients, pc.patients)
	return patients
}

// Selected возвращает выбранного пациента или nil
func (pc *Coordinator) Selected() *backend.Patient {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	if pc.selected == nil {
		return nil
	}
	patient := *pc.selected
	return &patient
}

// IsLive сообщает, включен ли живой режим
func (pc *Coordinator) IsLive() bool {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.live
}

// SelectPatient переключает монитор на пациента. Порядок строгий:
// (1) закрыть старую сессию и сбросить буферы, (2) обновить выбор,
// (3) перезагрузить снимок пациента и открыть новую сессию, если
// живой режим включен. Повторный выбор того же пациента - no-op
func (pc *Coordinator) SelectPatient(ctx context.Context, patientID string) error {
	pc.selectMu.Lock()
	defer pc.selectMu.Unlock()

	pc.mu.RLock()
	already := pc.selected != nil && pc.selected.ID == patientID
	pc.mu.RUnlock()

	if already {
		log.Printf("[PATIENTS] Patient %s already selected, skipping reselect", patientID)
		return nil
	}

	patient, err := pc.lookupPatient(ctx, patientID)
	if err != nil {
		return err
	}

	// 1) Teardown старой сессии до каких-либо изменений выбора
	pc.controller.Reset(patientID)

	// 2) Смена выбора
	pc.mu.Lock()
	pc.selected = patient
	live := pc.live
	pc.mu.Unlock()

	log.Printf("[PATIENTS] Selected patient %s (%s, room %s)", patient.ID, patient.Name, patient.Room)

	// 3) Снимок пациента и новая сессия. Ошибка загрузки не фатальна:
	// панель покажет устаревшие данные и статус соединения
	if snapshot, err := pc.directory.FetchSnapshot(ctx, patientID); err != nil {
		log.Printf("[WARN] Failed to fetch snapshot for %s: %v", patientID, err)
	} else if snapshot.VitalSigns != nil {
		pc.controller.SetVitals(snapshot.VitalSigns)
	}

	if live {
		return pc.controller.Start(ctx)
	}
	return nil
}

// SetLive включает и выключает живой режим. Выключение синхронно
// закрывает сессию; включение открывает новую для выбранного пациента
func (pc *Coordinator) SetLive(ctx context.Context, live bool) error {
	pc.mu.Lock()
	changed := pc.live != live
	pc.live = live
	hasPatient := pc.selected != nil
	pc.mu.Unlock()

	if !changed {
		return nil
	}

	if !live {
		pc.controller.Stop()
		log.Printf("[PATIENTS] Live mode paused")
		return nil
	}

	if !hasPatient {
		log.Printf("[PATIENTS] Live mode enabled, waiting for patient selection")
		return nil
	}

	log.Printf("[PATIENTS] Live mode resumed")
	return pc.controller.Start(ctx)
}

// lookupPatient ищет пациента в кэше справочника, при промахе
// добирает карточку с бэкенда
func (pc *Coordinator) lookupPatient(ctx context.Context, patientID string) (*backend.Patient, error) {
	pc.mu.RLock()
	for i := range pc.patients {
		if pc.patients[i].ID == patientID {
			patient := pc.patients[i]
			pc.mu.RUnlock()
			return &patient, nil
		}
	}
	pc.mu.RUnlock()

	patient, err := pc.directory.FetchPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("unknown patient %s: %w", patientID, err)
	}
	return patient, nil
}
