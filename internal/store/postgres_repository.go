package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/MK-DEV369/HMS-Brain/internal/alert"
)

// PostgresRepository реализует Repository для PostgreSQL (Infrastructure Layer)
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository создает новый экземпляр PostgresRepository
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db: db,
	}
}

// NewPostgresRepositoryFromDSN создает репозиторий из строки подключения
func NewPostgresRepositoryFromDSN(dsn string) (*PostgresRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Проверяем соединение
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Настройки пула соединений
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &PostgresRepository{db: db}, nil
}

// Close закрывает соединение с БД
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

// ===== Журнал оповещений =====

func (r *PostgresRepository) SaveAlert(ctx context.Context, event *alert.Event) error {
	scoresJSON, err := json.Marshal(event.ConfidenceScores)
	if err != nil {
		return fmt.Errorf("failed to marshal confidence scores: %w", err)
	}

	query := `
		INSERT INTO alerts (id, patient_id, patient_name, room, alert_type, message, severity, doctor_id, confidence_scores, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = r.db.ExecContext(ctx, query,
		event.ID,
		event.PatientID,
		event.PatientName,
		event.Room,
		event.AlertType,
		event.Message,
		event.Severity,
		event.DoctorID,
		scoresJSON,
		event.Timestamp,
	)

	if err != nil {
		return fmt.Errorf("failed to save alert: %w", err)
	}

	return nil
}

func (r *PostgresRepository) ListAlerts(ctx context.Context, patientID string, limit int) ([]AlertRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, patient_id, patient_name, room, severity, message, doctor_id, created_at
		FROM alerts
		WHERE ($1 = '' OR patient_id = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []AlertRecord

	for rows.Next() {
		var record AlertRecord

		err := rows.Scan(
			&record.ID,
			&record.PatientID,
			&record.PatientName,
			&record.Room,
			&record.Severity,
			&record.Message,
			&record.DoctorID,
			&record.CreatedAt,
		)

		if err != nil {
			continue // Пропускаем поврежденные записи
		}

		alerts = append(alerts, record)
	}

	return alerts, nil
}

// ===== Сохраненные классификации =====

func (r *PostgresRepository) SaveClassifications(ctx context.Context, records []ClassificationRecord) error {
	if len(records) == 0 {
		return nil
	}

	query := `
		INSERT INTO classifications (patient_id, label, severity, scores, recorded_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, record := range records {
		scoresJSON, err := json.Marshal(record.Scores)
		if err != nil {
			return fmt.Errorf("failed to marshal scores: %w", err)
		}

		_, err = stmt.ExecContext(ctx,
			record.PatientID,
			record.Label,
			record.Severity,
			scoresJSON,
			record.RecordedAt,
		)

		if err != nil {
			return fmt.Errorf("failed to insert classification: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *PostgresRepository) ListClassifications(ctx context.Context, patientID string, limit int) ([]ClassificationRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT patient_id, label, severity, scores, recorded_at
		FROM classifications
		WHERE patient_id = $1
		ORDER BY recorded_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list classifications: %w", err)
	}
	defer rows.Close()

	var records []ClassificationRecord

	for rows.Next() {
		var record ClassificationRecord
		var scoresJSON []byte

		err := rows.Scan(
			&record.PatientID,
			&record.Label,
			&record.Severity,
			&scoresJSON,
			&record.RecordedAt,
		)

		if err != nil {
			continue
		}

		if err := json.Unmarshal(scoresJSON, &record.Scores); err == nil {
			records = append(records, record)
		}
	}

	return records, nil
}

var _ Repository = (*PostgresRepository)(nil)
var _ alert.Recorder = (*PostgresRepository)(nil)
