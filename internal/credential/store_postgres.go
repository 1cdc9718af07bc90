package credential

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"cardex/pkg/platform/sentinel"
)

// PostgresLibrary persists credentials in PostgreSQL. The full record is
// stored as JSONB next to the columns queries filter on.
type PostgresLibrary struct {
	db *sql.DB
}

// NewPostgresLibrary constructs a PostgreSQL-backed credential library.
func NewPostgresLibrary(db *sql.DB) *PostgresLibrary {
	return &PostgresLibrary{db: db}
}

// Migrate creates the stored_credentials table when absent.
func (l *PostgresLibrary) Migrate(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS stored_credentials (
			id          TEXT PRIMARY KEY,
			status      TEXT NOT NULL,
			holder_did  TEXT NOT NULL,
			issuer_did  TEXT NOT NULL,
			issued_at   TIMESTAMPTZ NOT NULL,
			record      JSONB NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("migrate stored_credentials: %w", err)
	}
	return nil
}

func (l *PostgresLibrary) Add(ctx context.Context, cred IssuedCredential, status Status) (StoredCredential, error) {
	stored := StoredCredential{IssuedCredential: cred, Status: status}
	if err := l.upsert(ctx, stored); err != nil {
		return StoredCredential{}, err
	}
	return stored, nil
}

func (l *PostgresLibrary) Update(ctx context.Context, stored StoredCredential) (StoredCredential, error) {
	record, err := json.Marshal(stored)
	if err != nil {
		return StoredCredential{}, fmt.Errorf("encode credential record: %w", err)
	}
	result, err := l.db.ExecContext(ctx, `
		UPDATE stored_credentials
		SET status = $2, record = $3
		WHERE id = $1
	`, stored.CredentialID, string(stored.Status), record)
	if err != nil {
		return StoredCredential{}, fmt.Errorf("update credential: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return StoredCredential{}, fmt.Errorf("update credential: %w", err)
	}
	if affected == 0 {
		return StoredCredential{}, fmt.Errorf("credential %q: %w", stored.CredentialID, sentinel.ErrNotFound)
	}
	return stored, nil
}

func (l *PostgresLibrary) FindByID(ctx context.Context, credentialID string) (StoredCredential, error) {
	var record []byte
	err := l.db.QueryRowContext(ctx,
		`SELECT record FROM stored_credentials WHERE id = $1`, credentialID).Scan(&record)
	if errors.Is(err, sql.ErrNoRows) {
		return StoredCredential{}, fmt.Errorf("credential %q: %w", credentialID, sentinel.ErrNotFound)
	}
	if err != nil {
		return StoredCredential{}, fmt.Errorf("find credential by id: %w", err)
	}
	return decodeRecord(record)
}

func (l *PostgresLibrary) List(ctx context.Context) ([]StoredCredential, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT record FROM stored_credentials ORDER BY issued_at`)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

	var out []StoredCredential
	for rows.Next() {
		var record []byte
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("scan credential row: %w", err)
		}
		stored, err := decodeRecord(record)
		if err != nil {
			return nil, err
		}
		out = append(out, stored)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credential rows: %w", err)
	}
	return out, nil
}

func (l *PostgresLibrary) upsert(ctx context.Context, stored StoredCredential) error {
	record, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encode credential record: %w", err)
	}
	_, err = l.db.ExecContext(ctx, `
		INSERT INTO stored_credentials (id, status, holder_did, issuer_did, issued_at, record)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			record = EXCLUDED.record
	`, stored.CredentialID, string(stored.Status), stored.HolderDID, stored.IssuerDID, stored.IssuedAt, record)
	if err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

func decodeRecord(record []byte) (StoredCredential, error) {
	var stored StoredCredential
	if err := json.Unmarshal(record, &stored); err != nil {
		return StoredCredential{}, fmt.Errorf("decode credential record: %w", err)
	}
	return stored, nil
}
