package repository

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	"github.com/sparkmail/sparkmail/internal/database"
	"github.com/sparkmail/sparkmail/internal/model"
)

// SendRecordRepository handles send log persistence in PostgreSQL
type SendRecordRepository struct {
	db *database.Postgres
}

// NewSendRecordRepository creates a new SendRecordRepository
func NewSendRecordRepository(db *database.Postgres) *SendRecordRepository {
	return &SendRecordRepository{db: db}
}

// Create inserts a new send record
func (r *SendRecordRepository) Create(ctx context.Context, rec *model.SendRecord) error {
	errs := rec.Errors
	if errs == nil {
		errs = []string{}
	}

	query := `
		INSERT INTO send_records (id, request_id, transmission_id, campaign_id, status,
		    accepted, rejected, recipients, stored_list, errors, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID,
		rec.RequestID,
		rec.TransmissionID,
		rec.CampaignID,
		rec.Status,
		int64(rec.Accepted),
		int64(rec.Rejected),
		rec.Recipients,
		rec.StoredList,
		pq.Array(errs),
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create send record: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first
func (r *SendRecordRepository) Recent(ctx context.Context, limit int) ([]model.SendRecord, error) {
	if limit <= 0 {
		return nil, ErrInvalidInput
	}

	query := `
		SELECT id, request_id, transmission_id, campaign_id, status,
		    accepted, rejected, recipients, stored_list, errors, created_at
		FROM send_records
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list send records: %w", err)
	}
	defer rows.Close()

	var records []model.SendRecord
	for rows.Next() {
		var (
			rec                model.SendRecord
			accepted, rejected int64
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.RequestID,
			&rec.TransmissionID,
			&rec.CampaignID,
			&rec.Status,
			&accepted,
			&rejected,
			&rec.Recipients,
			&rec.StoredList,
			pq.Array(&rec.Errors),
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan send record: %w", err)
		}
		rec.Accepted = uint64(accepted)
		rec.Rejected = uint64(rejected)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list send records: %w", err)
	}
	return records, nil
}
