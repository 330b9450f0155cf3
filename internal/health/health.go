package health

import (
	"encoding/json"
	"net/http"
	"sync"
)

// Status - статус компонента сервиса
type Status string

const (
	StatusServing    Status = "SERVING"
	StatusNotServing Status = "NOT_SERVING"
)

// HealthServer отдает статусы компонентов по HTTP
type HealthServer struct {
	mu       sync.RWMutex
	services map[string]Status
}

func NewHealthServer() *HealthServer {
	return &HealthServer{
		services: make(map[string]Status),
	}
}

func (h *HealthServer) SetServingStatus(service string) {
	h.setStatus(service, StatusServing)
}

func (h *HealthServer) SetNotServingStatus(service string) {
	h.setStatus(service, StatusNotServing)
}

func (h *HealthServer) setStatus(service string, status Status) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.services[service] = status
}

// Check возвращает статус конкретного компонента
func (h *HealthServer) Check(service string) (Status, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if service == "" {
		return StatusServing, true
	}

	status, exists := h.services[service]
	return status, exists
}

// Handler - HTTP обработчик для /healthz.
// Возвращает 503, если хотя бы один компонент не обслуживает
func (h *HealthServer) Handler(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	services := make(map[string]Status, len(h.services))
	overall := StatusServing
	for name, status := range h.services {
		services[name] = status
		if status != StatusServing {
			overall = StatusNotServing
		}
	}
	h.mu.RUnlock()

	code := http.StatusOK
	if overall != StatusServing {
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":   overall,
		"services": services,
	})
}
