package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client - HTTP клиент к EEG бэкенду: справочник пациентов, пакетные
// выгрузки записей и спектрограммы
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создает клиента с разумным таймаутом
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// FetchPatients загружает справочник пациентов.
// GET /patients
func (c *Client) FetchPatients(ctx context.Context) ([]Patient, error) {
	var patients []Patient
	if err := c.getJSON(ctx, "/patients", &patients); err != nil {
		return nil, fmt.Errorf("failed to fetch patients: %w", err)
	}
	return patients, nil
}

// FetchPatient загружает карточку одного пациента.
// GET /patients/{id}
func (c *Client) FetchPatient(ctx context.Context, patientID string) (*Patient, error) {
	var patient Patient
	if err := c.getJSON(ctx, "/patients/"+patientID, &patient); err != nil {
		return nil, fmt.Errorf("failed to fetch patient %s: %w", patientID, err)
	}
	return &patient, nil
}

// FetchSnapshot загружает пакетную запись ЭЭГ и витальные показатели.
// GET /data/{id}
func (c *Client) FetchSnapshot(ctx context.Context, patientID string) (*Snapshot, error) {
	var snapshot Snapshot
	if err := c.getJSON(ctx, "/data/"+patientID, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to fetch snapshot for %s: %w", patientID, err)
	}
	return &snapshot, nil
}

// FetchSpectrogram загружает предрассчитанные спектрограммы по регионам.
// GET /spec/{id}
func (c *Client) FetchSpectrogram(ctx context.Context, patientID string) (Spectrogram, error) {
	var spec Spectrogram
	if err := c.getJSON(ctx, "/spec/"+patientID, &spec); err != nil {
		return nil, fmt.Errorf("failed to fetch spectrogram for %s: %w", patientID, err)
	}
	return spec, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
