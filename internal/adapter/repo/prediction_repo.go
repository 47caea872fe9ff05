package repo

import (
	"context"
	"fmt"

	"github.com/nhoon2002/Next-Replicate/internal/domain"
	"github.com/nhoon2002/Next-Replicate/internal/infra"
	"github.com/nhoon2002/Next-Replicate/internal/sqlinline"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// PredictionLedgerPG implements domain.PredictionLedger on PostgreSQL.
type PredictionLedgerPG struct {
	db infra.SQLExecutor
}

// NewPredictionLedger creates a ledger backed by the given executor.
func NewPredictionLedger(db infra.SQLExecutor) *PredictionLedgerPG {
	return &PredictionLedgerPG{db: db}
}

// EnsureSchema creates the predictions table when it does not exist yet.
func (r *PredictionLedgerPG) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, sqlinline.QEnsurePredictionsTable); err != nil {
		return fmt.Errorf("ensure predictions table: %w", err)
	}
	return nil
}

// Record upserts the snapshot. Snapshots without an id or status are ignored.
func (r *PredictionLedgerPG) Record(ctx context.Context, modelID, source string, p *domain.Prediction) error {
	if p == nil || p.ID == "" || p.Status == "" {
		return nil
	}
	_, err := r.db.Exec(ctx, sqlinline.QUpsertPrediction,
		p.ID,
		modelID,
		p.Version,
		string(p.Status),
		nullableBytes(p.Output),
		p.ErrorMessage(),
		source,
	)
	if err != nil {
		return fmt.Errorf("record prediction %s: %w", p.ID, err)
	}
	return nil
}

// ListRecent returns the most recently updated rows, newest first.
func (r *PredictionLedgerPG) ListRecent(ctx context.Context, limit int) ([]domain.LedgerEntry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	rows, err := r.db.Query(ctx, sqlinline.QListRecentPredictions, limit)
	if err != nil {
		return nil, fmt.Errorf("list predictions: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.LedgerEntry, 0, limit)
	for rows.Next() {
		var (
			entry  domain.LedgerEntry
			status string
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.ModelID,
			&entry.Version,
			&status,
			&entry.Output,
			&entry.Error,
			&entry.Source,
			&entry.CreatedAt,
			&entry.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		entry.Status = domain.PredictionStatus(status)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate predictions: %w", err)
	}
	return entries, nil
}

func nullableBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}

var _ domain.PredictionLedger = (*PredictionLedgerPG)(nil)
