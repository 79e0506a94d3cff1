package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/xela07ax/hawkgrid/internal/domain"
	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib" // Драйвер Postgres
)

// PostgresLedger — "remote document store" бэкенд цепочки.
// Семантика записи идентична файловому: тот же блок, та же каноника,
// тот же single-writer мьютекс вокруг read-last-hash + insert.
type PostgresLedger struct {
	mu     sync.Mutex
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresLedger(dsn string, logger *zap.Logger) (*PostgresLedger, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("ledger: open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	l := &PostgresLedger{db: db, logger: logger.Named("ledger-postgres")}
	if err := l.migrate(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *PostgresLedger) migrate() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := l.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS ledger_records (
			seq             BIGSERIAL PRIMARY KEY,
			ts              DOUBLE PRECISION NOT NULL,
			incident        JSONB NOT NULL,
			response_action TEXT NOT NULL,
			previous_hash   CHAR(64) NOT NULL,
			hash            CHAR(64) NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("ledger: migrate: %w", err)
	}
	return nil
}

func (l *PostgresLedger) Append(incident domain.Incident, responseAction string) (Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Аппенд доводим до конца независимо от судьбы запроса
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rec := Record{
		Timestamp:      float64(time.Now().UnixNano()) / 1e9,
		Incident:       incident,
		ResponseAction: responseAction,
	}
	if err := seal(&rec, l.lastHash(ctx)); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrLedgerWrite, err)
	}

	incidentJSON, err := json.Marshal(rec.Incident)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrLedgerWrite, err)
	}

	_, err = l.db.ExecContext(ctx, `
		INSERT INTO ledger_records (ts, incident, response_action, previous_hash, hash)
		VALUES ($1, $2, $3, $4, $5)`,
		rec.Timestamp, incidentJSON, rec.ResponseAction, rec.PreviousHash, rec.Hash,
	)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrLedgerWrite, err)
	}

	l.logger.Info("forensic block appended", zap.String("hash", short(rec.Hash)))
	return rec, nil
}

func (l *PostgresLedger) lastHash(ctx context.Context) string {
	var hash string
	err := l.db.QueryRowContext(ctx,
		`SELECT hash FROM ledger_records ORDER BY seq DESC LIMIT 1`,
	).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return GenesisHash
	}
	if err != nil || hash == "" {
		l.logger.Error("ledger tail unreadable, chain reset to genesis", zap.Error(err))
		return GenesisHash
	}
	return hash
}

// ReadAll возвращает всю цепочку в порядке аппенда (для верификации и консоли).
func (l *PostgresLedger) ReadAll() ([]Record, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	rows, err := l.db.QueryContext(ctx, `
		SELECT ts, incident, response_action, previous_hash, hash
		FROM ledger_records ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("ledger: read: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var incidentJSON []byte
		if err := rows.Scan(&rec.Timestamp, &incidentJSON, &rec.ResponseAction, &rec.PreviousHash, &rec.Hash); err != nil {
			return nil, fmt.Errorf("ledger: scan: %w", err)
		}
		if err := json.Unmarshal(incidentJSON, &rec.Incident); err != nil {
			return nil, fmt.Errorf("ledger: decode incident: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (l *PostgresLedger) Close() error { return l.db.Close() }
