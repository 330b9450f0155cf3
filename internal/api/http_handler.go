package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/MK-DEV369/HMS-Brain/internal/alert"
	"github.com/MK-DEV369/HMS-Brain/internal/backend"
	"github.com/MK-DEV369/HMS-Brain/internal/eeg"
	"github.com/MK-DEV369/HMS-Brain/internal/monitor"
	"github.com/MK-DEV369/HMS-Brain/internal/store"
)

// SpectrogramSource отдает спектрограмму пациента из бэкенда
type SpectrogramSource interface {
	FetchSpectrogram(ctx context.Context, patientID string) (backend.Spectrogram, error)
}

// HTTPHandler обрабатывает HTTP запросы монитора (Presentation Layer)
type HTTPHandler struct {
	coordinator *monitor.Coordinator
	controller  *monitor.Controller
	dispatcher  *alert.Dispatcher
	spectra     SpectrogramSource
	cache       store.CacheStore
	repo        store.Repository
}

// NewHTTPHandler создает новый HTTP обработчик.
// cache и repo могут быть nil - тогда соответствующие
// эндпоинты деградируют до прямых запросов или 404
func NewHTTPHandler(coordinator *monitor.Coordinator, controller *monitor.Controller, dispatcher *alert.Dispatcher, spectra SpectrogramSource, cache store.CacheStore, repo store.Repository) *HTTPHandler {
	return &HTTPHandler{
		coordinator: coordinator,
		controller:  controller,
		dispatcher:  dispatcher,
		spectra:     spectra,
		cache:       cache,
		repo:        repo,
	}
}

// RegisterRoutes регистрирует маршруты в роутере
func (h *HTTPHandler) RegisterRoutes(router *mux.Router) {
	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/patients", h.ListPatients).Methods("GET")
	api.HandleFunc("/patients/refresh", h.RefreshPatients).Methods("POST")
	api.HandleFunc("/patients/{id}", h.GetPatient).Methods("GET")
	api.HandleFunc("/patients/{id}/select", h.SelectPatient).Methods("POST")
	api.HandleFunc("/patients/{id}/spectrogram", h.GetSpectrogram).Methods("GET")
	api.HandleFunc("/patients/{id}/history", h.GetClassificationHistory).Methods("GET")
	api.HandleFunc("/patients/{id}/cache", h.EvictPatientCache).Methods("DELETE")
	api.HandleFunc("/channels", h.ListChannels).Methods("GET")
	api.HandleFunc("/monitor", h.GetMonitor).Methods("GET")
	api.HandleFunc("/monitor/pause", h.PauseMonitor).Methods("POST")
	api.HandleFunc("/monitor/resume", h.ResumeMonitor).Methods("POST")
	api.HandleFunc("/alerts", h.DispatchAlert).Methods("POST")
	api.HandleFunc("/alerts", h.ListAlerts).Methods("GET")
}

// ListPatients возвращает закэшированный список пациентов
// @Summary Список пациентов
// @Description Возвращает список пациентов из локального кэша справочника
// @Tags Patients
// @Produce json
// @Success 200 {object} map[string]interface{} "Список пациентов"
// @Router /api/patients [get]
func (h *HTTPHandler) ListPatients(w http.ResponseWriter, r *http.Request) {
	patients := h.coordinator.Patients()

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"patients": patients,
		"count":    len(patients),
	})
}

// RefreshPatients перечитывает справочник пациентов из бэкенда
// @Summary Обновить справочник пациентов
// @Description Перечитывает список пациентов из EEG бэкенда и замещает кэш целиком
// @Tags Patients
// @Produce json
// @Success 200 {object} map[string]interface{} "Обновленный список"
// @Failure 502 {object} map[string]interface{} "Бэкенд недоступен"
// @Router /api/patients/refresh [post]
func (h *HTTPHandler) RefreshPatients(w http.ResponseWriter, r *http.Request) {
	if err := h.coordinator.Refresh(r.Context()); err != nil {
		log.Printf("[ERROR] Failed to refresh patients: %v", err)
		respondError(w, http.StatusBadGateway, "Failed to refresh patient directory")
		return
	}

	patients := h.coordinator.Patients()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"patients": patients,
		"count":    len(patients),
	})
}

// GetPatient возвращает карточку пациента
// @Summary Карточка пациента
// @Tags Patients
// @Produce json
// @Param id path string true "ID пациента"
// @Success 200 {object} backend.Patient "Пациент"
// @Failure 404 {object} map[string]interface{} "Пациент не найден"
// @Router /api/patients/{id} [get]
func (h *HTTPHandler) GetPatient(w http.ResponseWriter, r *http.Request) {
	patientID := mux.Vars(r)["id"]

	for _, patient := range h.coordinator.Patients() {
		if patient.ID == patientID {
			respondJSON(w, http.StatusOK, patient)
			return
		}
	}

	// Кэш справочника мог устареть - пробуем бэкенд напрямую
	if h.cache != nil {
		if patient, err := h.cache.GetPatient(r.Context(), patientID); err == nil {
			respondJSON(w, http.StatusOK, patient)
			return
		}
	}

	respondError(w, http.StatusNotFound, "Patient not found")
}

// SelectPatient переключает монитор на пациента
// @Summary Выбрать пациента
// @Description Закрывает текущую сессию мониторинга, переключает выбор и открывает новую. Повторный выбор того же пациента - no-op
// @Tags Monitor
// @Produce json
// @Param id path string true "ID пациента"
// @Success 200 {object} map[string]interface{} "Результат переключения"
// @Failure 502 {object} map[string]interface{} "Не удалось открыть сессию"
// @Router /api/patients/{id}/select [post]
func (h *HTTPHandler) SelectPatient(w http.ResponseWriter, r *http.Request) {
	patientID := mux.Vars(r)["id"]

	if err := h.coordinator.SelectPatient(r.Context(), patientID); err != nil {
		log.Printf("[ERROR] Failed to select patient %s: %v", patientID, err)
		respondError(w, http.StatusBadGateway, "Failed to open monitoring session")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":    "Patient selected",
		"patient_id": patientID,
		"live":       h.coordinator.IsLive(),
	})
}

// GetSpectrogram возвращает спектрограмму пациента
// @Summary Спектрограмма пациента
// @Description Отдает спектрограмму из кэша; при промахе запрашивает бэкенд и кэширует результат
// @Tags Patients
// @Produce json
// @Param id path string true "ID пациента"
// @Success 200 {object} backend.Spectrogram "Спектрограмма"
// @Failure 502 {object} map[string]interface{} "Бэкенд недоступен"
// @Router /api/patients/{id}/spectrogram [get]
func (h *HTTPHandler) GetSpectrogram(w http.ResponseWriter, r *http.Request) {
	patientID := mux.Vars(r)["id"]

	if h.cache != nil {
		if spec, err := h.cache.GetSpectrogram(r.Context(), patientID); err == nil {
			respondJSON(w, http.StatusOK, spec)
			return
		}
	}

	spec, err := h.spectra.FetchSpectrogram(r.Context(), patientID)
	if err != nil {
		log.Printf("[ERROR] Failed to fetch spectrogram for %s: %v", patientID, err)
		respondError(w, http.StatusBadGateway, "Failed to fetch spectrogram")
		return
	}

	if h.cache != nil {
		if err := h.cache.SetSpectrogram(r.Context(), patientID, spec); err != nil {
			log.Printf("[WARN] Failed to cache spectrogram for %s: %v", patientID, err)
		}
	}

	respondJSON(w, http.StatusOK, spec)
}

// GetClassificationHistory возвращает историю классификаций пациента
// @Summary История классификаций
// @Tags Monitor
// @Produce json
// @Param id path string true "ID пациента"
// @Success 200 {object} map[string]interface{} "История"
// @Router /api/patients/{id}/history [get]
func (h *HTTPHandler) GetClassificationHistory(w http.ResponseWriter, r *http.Request) {
	patientID := mux.Vars(r)["id"]

	var records []store.ClassificationRecord
	if h.cache != nil {
		var err error
		records, err = h.cache.GetClassificationHistory(r.Context(), patientID)
		if err != nil {
			log.Printf("[WARN] Failed to read classification history for %s: %v", patientID, err)
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"patient_id": patientID,
		"history":    records,
		"count":      len(records),
	})
}

// EvictPatientCache удаляет закэшированные данные пациента
// @Summary Очистить кэш пациента
// @Description Удаляет карточку, витальные показатели, историю классификаций и спектрограмму пациента из кэша. Постоянное хранилище не затрагивается
// @Tags Patients
// @Produce json
// @Param id path string true "ID пациента"
// @Success 200 {object} map[string]interface{} "Результат"
// @Failure 404 {object} map[string]interface{} "Кэш не настроен"
// @Router /api/patients/{id}/cache [delete]
func (h *HTTPHandler) EvictPatientCache(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		respondError(w, http.StatusNotFound, "Cache is not configured")
		return
	}

	patientID := mux.Vars(r)["id"]
	if err := h.cache.DeletePatientData(r.Context(), patientID); err != nil {
		log.Printf("[ERROR] Failed to evict cache for %s: %v", patientID, err)
		respondError(w, http.StatusInternalServerError, "Failed to evict patient cache")
		return
	}

	log.Printf("[INFO] Cache evicted for patient %s", patientID)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":    "Patient cache evicted",
		"patient_id": patientID,
	})
}

// ListChannels возвращает известные имена каналов сигнала
// @Summary Каналы сигнала
// @Description Канонические имена электродов схемы 10-20 и агрегированных частотных полос, которые может отдавать бэкенд
// @Tags Monitor
// @Produce json
// @Success 200 {object} map[string]interface{} "Каналы"
// @Router /api/channels [get]
func (h *HTTPHandler) ListChannels(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"electrodes": eeg.ElectrodeChannels,
		"bands":      eeg.BandChannels,
	})
}

// GetMonitor возвращает текущий снимок монитора
// @Summary Снимок монитора
// @Description Текущее окно ЭЭГ, классификация, витальные показатели и статус сессии
// @Tags Monitor
// @Produce json
// @Success 200 {object} monitor.Snapshot "Снимок"
// @Router /api/monitor [get]
func (h *HTTPHandler) GetMonitor(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.controller.Snapshot())
}

// PauseMonitor приостанавливает мониторинг
// @Summary Пауза мониторинга
// @Description Закрывает сессию мониторинга; выбор пациента и накопленный буфер сохраняются
// @Tags Monitor
// @Produce json
// @Success 200 {object} map[string]interface{} "Результат"
// @Router /api/monitor/pause [post]
func (h *HTTPHandler) PauseMonitor(w http.ResponseWriter, r *http.Request) {
	if err := h.coordinator.SetLive(r.Context(), false); err != nil {
		log.Printf("[ERROR] Failed to pause monitor: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to pause monitoring")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Monitoring paused",
		"live":    false,
	})
}

// ResumeMonitor возобновляет мониторинг
// @Summary Возобновление мониторинга
// @Tags Monitor
// @Produce json
// @Success 200 {object} map[string]interface{} "Результат"
// @Failure 409 {object} map[string]interface{} "Пациент не выбран"
// @Failure 502 {object} map[string]interface{} "Не удалось открыть сессию"
// @Router /api/monitor/resume [post]
func (h *HTTPHandler) ResumeMonitor(w http.ResponseWriter, r *http.Request) {
	if err := h.coordinator.SetLive(r.Context(), true); err != nil {
		if errors.Is(err, monitor.ErrNoPatient) {
			respondError(w, http.StatusConflict, "No patient selected")
			return
		}
		log.Printf("[ERROR] Failed to resume monitor: %v", err)
		respondError(w, http.StatusBadGateway, "Failed to resume monitoring")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Monitoring resumed",
		"live":    true,
	})
}

// DispatchAlert отправляет экстренное оповещение
// @Summary Отправить экстренное оповещение
// @Description Собирает оповещение из текущей классификации и выбранного пациента и отправляет его в приемник. Без пациента или пользователя - тихий no-op
// @Tags Alerts
// @Produce json
// @Success 200 {object} alert.Result "Результат отправки"
// @Failure 422 {object} map[string]interface{} "У пользователя нет контактного канала"
// @Failure 502 {object} map[string]interface{} "Доставка не удалась"
// @Router /api/alerts [post]
func (h *HTTPHandler) DispatchAlert(w http.ResponseWriter, r *http.Request) {
	result, err := h.dispatcher.Dispatch(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, alert.ErrMissingContact):
			respondError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, alert.ErrDeliveryFailed):
			log.Printf("[ERROR] Alert delivery failed: %v", err)
			respondError(w, http.StatusBadGateway, "Alert delivery failed")
		default:
			log.Printf("[ERROR] Failed to dispatch alert: %v", err)
			respondError(w, http.StatusInternalServerError, "Failed to dispatch alert")
		}
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// ListAlerts возвращает журнал аудита оповещений
// @Summary Журнал оповещений
// @Tags Alerts
// @Produce json
// @Param patient_id query string false "Фильтр по пациенту"
// @Param limit query int false "Максимум записей (по умолчанию 50)"
// @Success 200 {object} map[string]interface{} "Журнал"
// @Failure 404 {object} map[string]interface{} "Журнал не ведется"
// @Router /api/alerts [get]
func (h *HTTPHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		respondError(w, http.StatusNotFound, "Alert audit log is not configured")
		return
	}

	patientID := r.URL.Query().Get("patient_id")
	limit := getQueryInt(r, "limit", 50)

	alerts, err := h.repo.ListAlerts(r.Context(), patientID, limit)
	if err != nil {
		log.Printf("[ERROR] Failed to list alerts: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to list alerts")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// ===== Утилиты =====

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[ERROR] Failed to encode JSON response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error":  message,
		"status": status,
	})
}

func getQueryInt(r *http.Request, key string, defaultValue int) int {
	valueStr := r.URL.Query().Get(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
