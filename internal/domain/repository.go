package domain

import (
	"context"
	"time"
)

// LedgerEntry is a persisted prediction snapshot.
type LedgerEntry struct {
	ID        string
	ModelID   string
	Version   string
	Status    PredictionStatus
	Output    []byte
	Error     string
	Source    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PredictionLedger records snapshots observed by the service.
type PredictionLedger interface {
	Record(ctx context.Context, modelID, source string, p *Prediction) error
	ListRecent(ctx context.Context, limit int) ([]LedgerEntry, error)
}
