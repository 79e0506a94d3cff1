package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Драйвер Postgres
	"github.com/xela07ax/hawkgrid/internal/domain"
)

// PostgresStore — пакетная вставка отчетов в reports (Bulk Insert).
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(connString string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, fmt.Errorf("report: open db: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &PostgresStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS reports (
			id              TEXT PRIMARY KEY,
			trace_id        TEXT NOT NULL,
			node_id         TEXT NOT NULL,
			timestamp       TIMESTAMPTZ NOT NULL,
			is_anomaly      BOOLEAN NOT NULL,
			anomaly_score   DOUBLE PRECISION NOT NULL,
			attack_type     TEXT NOT NULL,
			raw_event       JSONB,
			playbook_name   TEXT,
			response_status TEXT,
			details         TEXT,
			ledger_hash     TEXT
		)`)
	if err != nil {
		return fmt.Errorf("report: migrate: %w", err)
	}
	return nil
}

func (s *PostgresStore) WriteBatch(ctx context.Context, reports []Report) error {
	if len(reports) == 0 {
		return nil
	}

	// Количество колонок в таблице reports
	numFields := 12
	placeholderStr := ""
	vals := make([]interface{}, 0, len(reports)*numFields)

	// Динамически строим запрос для пакетной вставки
	for i, rep := range reports {
		p := i * numFields
		placeholderStr += fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d),",
			p+1, p+2, p+3, p+4, p+5, p+6, p+7, p+8, p+9, p+10, p+11, p+12)

		rawJSON, err := json.Marshal(rep.RawEvent)
		if err != nil {
			rawJSON = []byte("null")
		}
		vals = append(vals,
			rep.ID, rep.TraceID, rep.NodeID, rep.Timestamp,
			rep.IsAnomaly, rep.AnomalyScore, string(rep.AttackType), rawJSON,
			rep.PlaybookName, string(rep.ResponseStatus), rep.Details, rep.LedgerHash,
		)
	}

	query := fmt.Sprintf(
		"INSERT INTO reports (id, trace_id, node_id, timestamp, is_anomaly, anomaly_score, attack_type, raw_event, playbook_name, response_status, details, ledger_hash) VALUES %s",
		strings.TrimSuffix(placeholderStr, ","),
	)

	_, err := s.db.ExecContext(ctx, query, vals...)
	return err
}

func (s *PostgresStore) List(ctx context.Context, nodeID, attackType string, limit int) ([]Report, error) {
	if limit <= 0 {
		limit = 100
	}

	conds := []string{"1=1"}
	args := []interface{}{}
	if nodeID != "" {
		args = append(args, nodeID)
		conds = append(conds, fmt.Sprintf("node_id = $%d", len(args)))
	}
	if attackType != "" {
		args = append(args, attackType)
		conds = append(conds, fmt.Sprintf("attack_type = $%d", len(args)))
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT id, trace_id, node_id, timestamp, is_anomaly, anomaly_score,
		       attack_type, raw_event, playbook_name, response_status, details, ledger_hash
		FROM reports WHERE %s ORDER BY timestamp DESC LIMIT $%d`,
		strings.Join(conds, " AND "), len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("report: list: %w", err)
	}
	defer rows.Close()

	var out []Report
	for rows.Next() {
		var rep Report
		var attack, status sql.NullString
		var playbook, details, hash sql.NullString
		var rawJSON []byte
		if err := rows.Scan(&rep.ID, &rep.TraceID, &rep.NodeID, &rep.Timestamp,
			&rep.IsAnomaly, &rep.AnomalyScore, &attack, &rawJSON, &playbook, &status, &details, &hash); err != nil {
			return nil, fmt.Errorf("report: scan: %w", err)
		}
		if len(rawJSON) > 0 {
			_ = json.Unmarshal(rawJSON, &rep.RawEvent)
		}
		rep.AttackType = domain.AttackType(attack.String)
		rep.PlaybookName = playbook.String
		rep.ResponseStatus = domain.ResponseStatus(status.String)
		rep.Details = details.String
		rep.LedgerHash = hash.String
		out = append(out, rep)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Close() error { return s.db.Close() }
