package repo

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nhoon2002/Next-Replicate/internal/domain"
	"github.com/nhoon2002/Next-Replicate/internal/sqlinline"
)

func TestRecordUpsertsSnapshot(t *testing.T) {
	db := &stubExecutor{}
	ledger := NewPredictionLedger(db)

	pred := &domain.Prediction{
		ID:      "pred-1",
		Version: "v-enhance",
		Status:  domain.PredictionStatusSucceeded,
		Output:  json.RawMessage(`"https://replicate.delivery/out.png"`),
	}
	if err := ledger.Record(context.Background(), "enhance", "submit", pred); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}

	if len(db.execs) != 1 {
		t.Fatalf("exec calls = %d, want 1", len(db.execs))
	}
	call := db.execs[0]
	if markerOf(call.query) != markerOf(sqlinline.QUpsertPrediction) {
		t.Fatalf("query marker = %q, want upsert", markerOf(call.query))
	}
	if got := call.args[0]; got != "pred-1" {
		t.Fatalf("id arg = %v, want pred-1", got)
	}
	if got := call.args[1]; got != "enhance" {
		t.Fatalf("model arg = %v, want enhance", got)
	}
	if got := call.args[3]; got != "succeeded" {
		t.Fatalf("status arg = %v, want succeeded", got)
	}
	if got := string(call.args[4].([]byte)); got != `"https://replicate.delivery/out.png"` {
		t.Fatalf("output arg = %s", got)
	}
	if got := call.args[6]; got != "submit" {
		t.Fatalf("source arg = %v, want submit", got)
	}
}

func TestRecordStoresNullOutputAndErrorText(t *testing.T) {
	db := &stubExecutor{}
	ledger := NewPredictionLedger(db)

	pred := &domain.Prediction{
		ID:     "pred-2",
		Status: domain.PredictionStatusFailed,
		Error:  json.RawMessage(`"CUDA out of memory"`),
	}
	if err := ledger.Record(context.Background(), "", "webhook", pred); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}
	args := db.execs[0].args
	if args[4].([]byte) != nil {
		t.Fatalf("output arg = %v, want nil", args[4])
	}
	if args[5] != "CUDA out of memory" {
		t.Fatalf("error arg = %v", args[5])
	}
}

func TestRecordSkipsIncompleteSnapshots(t *testing.T) {
	db := &stubExecutor{}
	ledger := NewPredictionLedger(db)

	for _, p := range []*domain.Prediction{nil, {Status: "starting"}, {ID: "pred-3"}} {
		if err := ledger.Record(context.Background(), "enhance", "poll", p); err != nil {
			t.Fatalf("Record returned error: %v", err)
		}
	}
	if len(db.execs) != 0 {
		t.Fatalf("exec calls = %d, want 0", len(db.execs))
	}
}

func TestRecordWrapsExecError(t *testing.T) {
	boom := errors.New("connection reset")
	ledger := NewPredictionLedger(&stubExecutor{execErr: boom})

	err := ledger.Record(context.Background(), "enhance", "poll", &domain.Prediction{ID: "pred-4", Status: "processing"})
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want wrapped %v", err, boom)
	}
	if !strings.Contains(err.Error(), "pred-4") {
		t.Fatalf("error = %q, want prediction id", err.Error())
	}
}

func TestUpsertNeverRegressesFinalStatus(t *testing.T) {
	if !strings.Contains(sqlinline.QUpsertPrediction, "where predictions.status not in ('succeeded', 'failed', 'canceled')") {
		t.Fatalf("upsert must guard final rows")
	}
}

func TestListRecentScansRows(t *testing.T) {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	updated := created.Add(time.Minute)
	db := &stubExecutor{rows: [][]any{
		{"pred-b", "kling", "v-kling", "processing", nil, "", "poll", created, updated},
		{"pred-a", "enhance", "v-enhance", "succeeded", []byte(`"https://x/y.png"`), "", "webhook", created, created},
	}}
	ledger := NewPredictionLedger(db)

	entries, err := ledger.ListRecent(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListRecent returned error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].ID != "pred-b" || entries[0].Status != domain.PredictionStatusProcessing {
		t.Fatalf("first entry = %+v", entries[0])
	}
	if !entries[0].UpdatedAt.Equal(updated) {
		t.Fatalf("UpdatedAt = %s, want %s", entries[0].UpdatedAt, updated)
	}
	if string(entries[1].Output) != `"https://x/y.png"` {
		t.Fatalf("output = %s", entries[1].Output)
	}
	if got := db.queries[0].args[0]; got != defaultListLimit {
		t.Fatalf("limit arg = %v, want %d", got, defaultListLimit)
	}
}

func TestListRecentClampsLimit(t *testing.T) {
	db := &stubExecutor{}
	ledger := NewPredictionLedger(db)

	if _, err := ledger.ListRecent(context.Background(), 5000); err != nil {
		t.Fatalf("ListRecent returned error: %v", err)
	}
	if got := db.queries[0].args[0]; got != maxListLimit {
		t.Fatalf("limit arg = %v, want %d", got, maxListLimit)
	}
}

func TestEnsureSchemaRunsCreateTable(t *testing.T) {
	db := &stubExecutor{}
	if err := NewPredictionLedger(db).EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema returned error: %v", err)
	}
	if !strings.Contains(db.execs[0].query, "create table if not exists predictions") {
		t.Fatalf("unexpected schema query: %s", db.execs[0].query)
	}
}
