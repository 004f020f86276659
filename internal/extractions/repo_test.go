package extractions

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestMemoryRepoUpsertKeepsIdentity(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	e, err := Encode("e1", "doc-1", TypeSummary, SourceNLP, "short", first)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := repo.Upsert(ctx, e); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	updated, _ := Encode("e2", "doc-1", TypeSummary, SourceLLM, "better", first.Add(time.Minute))
	if err := repo.Upsert(ctx, updated); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := repo.Get(ctx, "doc-1", TypeSummary)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != "e1" || !got.CreatedAt.Equal(first) {
		t.Fatalf("expected original identity, got id=%s created=%s", got.ID, got.CreatedAt)
	}
	var summary string
	if err := got.Decode(&summary); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if summary != "better" || got.Source != SourceLLM {
		t.Fatalf("expected updated data, got %q source=%s", summary, got.Source)
	}
}

func TestMemoryRepoGetMissing(t *testing.T) {
	repo := NewMemoryRepo()
	if _, err := repo.Get(context.Background(), "doc-1", TypeTables); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEncodeRejectsUnknownType(t *testing.T) {
	if _, err := Encode("e1", "doc-1", "sentiment", SourceNLP, nil, time.Now()); err == nil {
		t.Fatalf("expected error for unknown type")
	}
}

// arrayConverter lets []string reach the mock the way pgx accepts it.
type arrayConverter struct{}

func (arrayConverter) ConvertValue(v any) (driver.Value, error) {
	if _, ok := v.([]string); ok {
		return v, nil
	}
	return driver.DefaultParameterConverter.ConvertValue(v)
}

func TestPGRepoListByDocumentsUsesAnyArray(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.ValueConverterOption(arrayConverter{}))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	data, _ := json.Marshal([]string{"a"})
	mock.ExpectQuery("WHERE document_id = ANY").
		WillReturnRows(sqlmock.NewRows([]string{"id", "document_id", "type", "data", "source", "created_at", "updated_at"}).
			AddRow("e1", "doc-1", TypeKeywords, data, SourceNLP, now, now))

	repo := &PGRepo{DB: db}
	got, err := repo.ListByDocuments(context.Background(), []string{"doc-1"}, TypeKeywords)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || string(got[0].Data) != `["a"]` {
		t.Fatalf("unexpected result: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGRepoListByDocumentsSkipsEmpty(t *testing.T) {
	repo := &PGRepo{}
	got, err := repo.ListByDocuments(context.Background(), nil, TypeKeywords)
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty result, got %v %v", got, err)
	}
}
