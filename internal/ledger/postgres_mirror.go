package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresMirror durably mirrors every appended Transaction into a
// `ledger_entries` table, the Postgres-backed durability layer SPEC_FULL
// calls for alongside the append-only on-disk files. It replaces the
// teacher's process-wide `database.Pool` singleton with a pool owned by the
// Journal that holds it.
type PostgresMirror struct {
	pool *pgxpool.Pool
}

// OpenPostgresMirror connects to databaseURL and configures the pool the
// way the teacher's database.InitDB did (bounded size, health checks,
// simple query protocol for PgBouncer-fronted deployments).
func OpenPostgresMirror(ctx context.Context, databaseURL string) (*PostgresMirror, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("ledger: parse DATABASE_URL: %w", err)
	}
	cfg.MaxConns = 25
	cfg.MinConns = 5
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute
	cfg.HealthCheckPeriod = time.Minute
	cfg.ConnConfig.ConnectTimeout = 5 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ledger: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ledger: ping: %w", err)
	}
	return &PostgresMirror{pool: pool}, nil
}

// Append inserts tx as a ledger_entries row. Schema: 0001_ledger_entries.
func (m *PostgresMirror) Append(ctx context.Context, tx Transaction) error {
	postings, err := json.Marshal(tx.Postings)
	if err != nil {
		return fmt.Errorf("ledger: marshal postings: %w", err)
	}
	_, err = m.pool.Exec(ctx, `
		INSERT INTO ledger_entries (category, occurred_at, description, postings, audit)
		VALUES ($1, $2, $3, $4, $5)`,
		tx.Category, tx.Date, tx.Description, postings, tx.Audit,
	)
	return err
}

// Close releases the pool.
func (m *PostgresMirror) Close() { m.pool.Close() }

// Pool exposes the underlying connection pool for callers outside the
// ledger package that need the same database, such as the admin audit log.
func (m *PostgresMirror) Pool() *pgxpool.Pool { return m.pool }

// Mirror is the durability backstop Journal.Append writes through to after
// a successful on-disk append. A mirror outage is logged, not fatal — the
// on-disk journal remains the source of truth.
type Mirror interface {
	Append(ctx context.Context, tx Transaction) error
}

// SetMirror attaches (or clears, with nil) the Postgres mirror. Call once,
// before the journal is opened to traffic.
func (j *Journal) SetMirror(m Mirror) { j.mirror = m }

func (j *Journal) mirrorAppend(tx Transaction) {
	if j.mirror == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := j.mirror.Append(ctx, tx); err != nil {
		log.Printf("ledger: postgres mirror append failed for %s: %v", tx.Category, err)
	}
}
