// Package audit provides an HMAC-signed trail of scan summaries.
//
// Every detect or mask call can produce a Record that is signed
// (HMAC-SHA256) and persisted in SQLite. Records carry counts, scores, and
// a SHA-256 hash of the input; the input text itself and the matched values
// never touch disk.
package audit

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	scrubdotel "github.com/scrubd-io/scrubd/internal/otel"
)

var tracer = scrubdotel.Tracer("github.com/scrubd-io/scrubd/internal/audit")

// Record summarizes one scan. It deliberately has no field that could hold
// original text or a matched value.
type Record struct {
	ID               string         `json:"id"`
	Timestamp        time.Time      `json:"timestamp"`
	Source           string         `json:"source"` // api or cli
	Mode             string         `json:"mode"`   // regex or hybrid
	Counts           map[string]int `json:"counts"`
	PlaceholderCount int            `json:"placeholder_count"`
	FilteredCount    int            `json:"filtered_count"`
	RiskScore        int            `json:"risk_score"`
	RiskBucket       string         `json:"risk_bucket"`
	InputHash        string         `json:"input_hash"`
	Signature        string         `json:"signature,omitempty"`
}

// NewRecord builds an unsigned record for a scan of text.
func NewRecord(source, mode, text string) *Record {
	sum := sha256.Sum256([]byte(text))
	return &Record{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    source,
		Mode:      mode,
		Counts:    make(map[string]int),
		InputHash: "sha256:" + hex.EncodeToString(sum[:]),
	}
}

// Store persists HMAC-signed audit records in SQLite.
type Store struct {
	db     *sql.DB
	signer *Signer
}

// NewStore creates an audit store with HMAC signing.
func NewStore(dbPath string, signingKey string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening audit database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS audit (
		id TEXT PRIMARY KEY,
		timestamp TIMESTAMP NOT NULL,
		source TEXT NOT NULL,
		record_json TEXT NOT NULL,
		signature TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit(timestamp);
	CREATE INDEX IF NOT EXISTS idx_audit_source ON audit(source);
	`

	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		return nil, fmt.Errorf("creating audit schema: %w", err)
	}

	signer, err := NewSigner(signingKey)
	if err != nil {
		return nil, fmt.Errorf("creating signer: %w", err)
	}

	return &Store{db: db, signer: signer}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append signs and saves a record. The signature covers the record JSON
// without the signature field.
func (s *Store) Append(ctx context.Context, rec *Record) error {
	ctx, span := tracer.Start(ctx, "audit.append",
		trace.WithAttributes(
			attribute.String("audit.id", rec.ID),
			attribute.String("audit.source", rec.Source),
		))
	defer span.End()

	rec.Signature = ""
	unsigned, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling audit record: %w", err)
	}

	signature, err := s.signer.Sign(unsigned)
	if err != nil {
		return fmt.Errorf("signing audit record: %w", err)
	}
	rec.Signature = signature

	signed, _ := json.Marshal(rec)

	query := `INSERT INTO audit (id, timestamp, source, record_json, signature)
	          VALUES (?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.Timestamp, rec.Source, string(signed), signature,
	); err != nil {
		return fmt.Errorf("storing audit record: %w", err)
	}
	return nil
}

// Get retrieves a record by ID.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	ctx, span := tracer.Start(ctx, "audit.get",
		trace.WithAttributes(attribute.String("audit.id", id)))
	defer span.End()

	var recordJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT record_json FROM audit WHERE id = ?`, id).Scan(&recordJSON)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("audit record %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying audit record: %w", err)
	}

	var rec Record
	if err := json.Unmarshal([]byte(recordJSON), &rec); err != nil {
		return nil, fmt.Errorf("unmarshaling audit record: %w", err)
	}
	return &rec, nil
}

// List returns records, newest first, optionally filtered by source.
func (s *Store) List(ctx context.Context, source string, limit int) ([]Record, error) {
	ctx, span := tracer.Start(ctx, "audit.list",
		trace.WithAttributes(attribute.String("audit.source", source)))
	defer span.End()

	query := `SELECT record_json FROM audit WHERE 1=1`
	args := []interface{}{}

	if source != "" {
		query += ` AND source = ?`
		args = append(args, source)
	}
	query += ` ORDER BY timestamp DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit records: %w", err)
	}
	defer rows.Close()

	var results []Record
	for rows.Next() {
		var recordJSON string
		if err := rows.Scan(&recordJSON); err != nil {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(recordJSON), &rec); err != nil {
			continue
		}
		results = append(results, rec)
	}
	return results, nil
}

// VerifyRecord recomputes the signature over the record minus its signature
// field and compares.
func (s *Store) VerifyRecord(rec *Record) bool {
	sig := rec.Signature
	if sig == "" {
		return false
	}
	copied := *rec
	copied.Signature = ""
	unsigned, err := json.Marshal(&copied)
	if err != nil {
		return false
	}
	return s.signer.Verify(unsigned, sig)
}
