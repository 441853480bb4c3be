package index

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/jimmy12-d/rean-ai/internal/model"
)

type pgvectorConfig struct {
	DSN        string `json:"dsn"`
	Table      string `json:"table"`
	Dimensions int    `json:"dimensions"`
}

// pgvectorIndex keeps the corpus in Postgres so reindexing survives restarts
// and several server instances can share one corpus. Collections (concepts,
// exercises) share a table, partitioned by the collection column.
type pgvectorIndex struct {
	db         *sqlx.DB
	table      string
	collection string
}

func newPgvectorIndex(collection string, args interface{}) (Index, error) {
	cfg := &pgvectorConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("index.data.dsn is required for pgvector")
	}
	if cfg.Table == "" {
		cfg.Table = "rag_documents"
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = 1024
	}
	db, err := sqlx.Connect("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	db.SetMaxOpenConns(4)
	idx := &pgvectorIndex{db: db, table: cfg.Table, collection: collection}
	if err := idx.ensureSchema(cfg.Dimensions); err != nil {
		return nil, err
	}
	return idx, nil
}

func (p *pgvectorIndex) ensureSchema(dims int) error {
	if _, err := p.db.Exec("CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}
	schema := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		collection TEXT NOT NULL,
		doc_id     TEXT NOT NULL,
		content    TEXT NOT NULL,
		metadata   JSONB NOT NULL DEFAULT '{}',
		embedding  VECTOR(%d) NOT NULL,
		PRIMARY KEY (collection, doc_id)
	)`, p.table, dims)
	if _, err := p.db.Exec(schema); err != nil {
		return fmt.Errorf("create table %s: %w", p.table, err)
	}
	return nil
}

func (p *pgvectorIndex) Add(ctx context.Context, docs []model.Document, vectors [][]float32) error {
	if len(docs) != len(vectors) {
		return fmt.Errorf("documents/vectors length mismatch: %d != %d", len(docs), len(vectors))
	}
	rows := make([]map[string]interface{}, 0, len(docs))
	for i, doc := range docs {
		meta, err := json.Marshal(doc.Metadata)
		if err != nil {
			return err
		}
		rows = append(rows, map[string]interface{}{
			"collection": p.collection,
			"doc_id":     doc.ID,
			"content":    doc.Text,
			"metadata":   string(meta),
			"embedding":  pgvector.NewVector(vectors[i]),
		})
	}
	if len(rows) == 0 {
		return nil
	}
	sqlStr, args, err := builder.BuildInsert(p.table, rows)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, p.db.Rebind(sqlStr), args...)
	return err
}

func (p *pgvectorIndex) Search(ctx context.Context, vector []float32, k int, filter map[string]string) ([]model.ScoredDocument, error) {
	if k <= 0 {
		return nil, nil
	}
	args := []interface{}{pgvector.NewVector(vector), p.collection}
	var conds strings.Builder
	for key, want := range filter {
		args = append(args, key, want)
		conds.WriteString(fmt.Sprintf(" AND metadata->>$%d = $%d", len(args)-1, len(args)))
	}
	args = append(args, k)
	query := fmt.Sprintf(
		"SELECT doc_id, content, metadata, embedding <=> $1 AS distance FROM %s WHERE collection = $2%s ORDER BY distance ASC LIMIT $%d",
		p.table, conds.String(), len(args),
	)
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var results []model.ScoredDocument
	for rows.Next() {
		var (
			item model.ScoredDocument
			meta []byte
		)
		if err := rows.Scan(&item.Document.ID, &item.Document.Text, &meta, &item.Distance); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &item.Document.Metadata); err != nil {
				return nil, err
			}
		}
		results = append(results, item)
	}
	return results, rows.Err()
}

func (p *pgvectorIndex) Count(ctx context.Context) (int, error) {
	var count int
	err := p.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE collection = $1", p.table), p.collection,
	).Scan(&count)
	return count, err
}

// Close releases the connection pool. Each rebuild creates a fresh index
// instance, so the retired one must be closed or its pool leaks.
func (p *pgvectorIndex) Close(ctx context.Context) error {
	return p.db.Close()
}

func (p *pgvectorIndex) Reset(ctx context.Context) error {
	where := map[string]interface{}{"collection": p.collection}
	sqlStr, args, err := builder.BuildDelete(p.table, where)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, p.db.Rebind(sqlStr), args...)
	return err
}

func init() {
	Register("pgvector", newPgvectorIndex)
}
