package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"vaultScope/internal/model"
)

//go:embed schema.sql
var schemaSQL string

// Store provides Postgres persistence for analysis runs and key/value state.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// VaultScenarioRow is one vault in one scenario of a run.
type VaultScenarioRow struct {
	Vault          string
	Scenario       string
	Supply         float64
	Borrow         float64
	UtilizationPct float64
	BorrowApyPct   float64
	SupplyApyPct   float64
	NativeYieldPct *float64
}

// StrategyYieldRow is one strategy in one scenario of a run.
type StrategyYieldRow struct {
	Strategy string
	Kind     string
	Scenario string
	YieldPct float64
}

// SaveRun stores the export document and its flattened rows in one transaction and returns
// the run id.
func (s *Store) SaveRun(ctx context.Context, export model.Export) (int64, error) {
	payload, err := json.Marshal(export)
	if err != nil {
		return 0, fmt.Errorf("marshal export: %w", err)
	}
	exportedAt, err := time.Parse(time.RFC3339Nano, export.ExportedAt)
	if err != nil {
		exportedAt = time.Now().UTC()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var runID int64
	row := tx.QueryRow(ctx, `
		INSERT INTO analysis_runs (cluster, exported_at, export)
		VALUES ($1, $2, $3)
		RETURNING id
	`, export.Cluster, exportedAt, payload)
	if err := row.Scan(&runID); err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}

	if err := upsertVaultScenarios(ctx, tx, runID, VaultScenarioRows(export)); err != nil {
		return 0, err
	}
	if err := upsertStrategyYields(ctx, tx, runID, StrategyYieldRows(export)); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return runID, nil
}

func upsertVaultScenarios(ctx context.Context, tx pgx.Tx, runID int64, rows []VaultScenarioRow) error {
	if len(rows) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO vault_scenarios (
				run_id, vault, scenario, supply, borrow, utilization_pct, borrow_apy_pct, supply_apy_pct, native_yield_pct
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
			ON CONFLICT (run_id, vault, scenario)
			DO UPDATE SET
				supply = EXCLUDED.supply,
				borrow = EXCLUDED.borrow,
				utilization_pct = EXCLUDED.utilization_pct,
				borrow_apy_pct = EXCLUDED.borrow_apy_pct,
				supply_apy_pct = EXCLUDED.supply_apy_pct,
				native_yield_pct = EXCLUDED.native_yield_pct
		`,
			runID,
			r.Vault,
			r.Scenario,
			r.Supply,
			r.Borrow,
			r.UtilizationPct,
			r.BorrowApyPct,
			r.SupplyApyPct,
			r.NativeYieldPct,
		)
	}

	br := tx.SendBatch(ctx, batch)
	defer br.Close()

	for range rows {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert vault scenario: %w", err)
		}
	}
	return nil
}

func upsertStrategyYields(ctx context.Context, tx pgx.Tx, runID int64, rows []StrategyYieldRow) error {
	if len(rows) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO strategy_yields (run_id, strategy, kind, scenario, yield_pct)
			VALUES ($1,$2,$3,$4,$5)
			ON CONFLICT (run_id, strategy, kind, scenario)
			DO UPDATE SET yield_pct = EXCLUDED.yield_pct
		`, runID, r.Strategy, r.Kind, r.Scenario, r.YieldPct)
	}

	br := tx.SendBatch(ctx, batch)
	defer br.Close()

	for range rows {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert strategy yield: %w", err)
		}
	}
	return nil
}

// LatestExport returns the most recent export of a cluster.
func (s *Store) LatestExport(ctx context.Context, cluster string) (model.Export, bool, error) {
	var payload []byte
	row := s.pool.QueryRow(ctx, `
		SELECT export FROM analysis_runs WHERE cluster=$1 ORDER BY exported_at DESC, id DESC LIMIT 1
	`, cluster)
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Export{}, false, nil
		}
		return model.Export{}, false, err
	}
	var export model.Export
	if err := json.Unmarshal(payload, &export); err != nil {
		return model.Export{}, false, fmt.Errorf("parse export: %w", err)
	}
	return export, true, nil
}

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, fmt.Errorf("state key required")
	}
	var value string
	row := s.pool.QueryRow(ctx, `SELECT value FROM vaultscope_kv WHERE key=$1`, key)
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

// Set upserts the value stored under key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return fmt.Errorf("state key required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO vaultscope_kv (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = now()
	`, key, value)
	return err
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM vaultscope_kv WHERE key=$1`, key)
	return err
}
