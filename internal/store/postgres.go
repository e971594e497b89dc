package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/underwriting-cli/internal/boe"
	"github.com/sells-group/underwriting-cli/internal/db"
	"github.com/sells-group/underwriting-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const (
	pgDealColumns = `id, workspace_id, name, address, asking_price, current_gate_state,
	latest_boe_run_id, gate_status, gate_status_computed, gate_override_status,
	gate_override_reason, gate_override_by, gate_override_at, gate_updated_at,
	created_by, created_at`

	pgRunColumns = `id, deal_id, version, inputs, outputs, decision, binding_constraint,
	hard_veto_ok, pass_count, advance, created_by, created_at`

	pgGetDeal        = `SELECT ` + pgDealColumns + ` FROM deals WHERE id = $1`
	pgLockDeal       = `SELECT ` + pgDealColumns + ` FROM deals WHERE id = $1 FOR UPDATE`
	pgNextRunVersion = `SELECT COALESCE(MAX(version), 0) + 1 FROM boe_runs WHERE deal_id = $1`

	pgInsertRun = `INSERT INTO boe_runs (` + pgRunColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	pgGetRun    = `SELECT ` + pgRunColumns + ` FROM boe_runs WHERE id = $1 AND deal_id = $2`
	pgLatestRun = `SELECT ` + pgRunColumns + ` FROM boe_runs WHERE deal_id = $1 ORDER BY version DESC LIMIT 1`
	pgListRuns  = `SELECT ` + pgRunColumns + ` FROM boe_runs WHERE deal_id = $1 ORDER BY version DESC`

	pgUpdateGate = `UPDATE deals SET current_gate_state = $1, latest_boe_run_id = $2, gate_status = $3,
	gate_status_computed = $4, gate_override_status = $5, gate_override_reason = $6,
	gate_override_by = $7, gate_override_at = $8, gate_updated_at = $9
	WHERE id = $10`

	pgInsertEvent = `INSERT INTO deal_gate_events (id, deal_id, event_type, from_status, to_status, source, reason, metadata, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	pgListEvents = `SELECT id, deal_id, event_type, from_status, to_status, source, reason, metadata, created_at
	FROM deal_gate_events WHERE deal_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`

	pgCountEvents = `SELECT COUNT(*) FROM deal_gate_events WHERE deal_id = $1`
)

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"get_deal":          pgGetDeal,
	"lock_deal":         pgLockDeal,
	"next_run_version":  pgNextRunVersion,
	"insert_run":        pgInsertRun,
	"get_run":           pgGetRun,
	"latest_run":        pgLatestRun,
	"update_deal_gate":  pgUpdateGate,
	"insert_gate_event": pgInsertEvent,
	"list_gate_events":  pgListEvents,
	"count_gate_events": pgCountEvents,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS workspaces (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name       TEXT NOT NULL,
	created_by TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS deals (
	id                   TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	workspace_id         TEXT NOT NULL REFERENCES workspaces(id),
	name                 TEXT NOT NULL,
	address              TEXT NOT NULL DEFAULT '',
	asking_price         DOUBLE PRECISION,
	current_gate_state   TEXT NOT NULL DEFAULT 'NO_RUN',
	latest_boe_run_id    TEXT,
	gate_status          TEXT NOT NULL DEFAULT 'NEEDS_WORK',
	gate_status_computed TEXT NOT NULL DEFAULT 'NEEDS_WORK',
	gate_override_status TEXT,
	gate_override_reason TEXT,
	gate_override_by     TEXT,
	gate_override_at     TIMESTAMPTZ,
	gate_updated_at      TIMESTAMPTZ,
	created_by           TEXT NOT NULL DEFAULT '',
	created_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS boe_runs (
	id                 TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	deal_id            TEXT NOT NULL REFERENCES deals(id),
	version            INTEGER NOT NULL,
	inputs             JSONB NOT NULL,
	outputs            JSONB NOT NULL,
	decision           TEXT NOT NULL,
	binding_constraint TEXT,
	hard_veto_ok       BOOLEAN NOT NULL,
	pass_count         INTEGER NOT NULL,
	advance            BOOLEAN NOT NULL,
	created_by         TEXT NOT NULL DEFAULT '',
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (deal_id, version)
);

CREATE TABLE IF NOT EXISTS boe_test_results (
	id                TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	boe_run_id        TEXT NOT NULL REFERENCES boe_runs(id),
	ordinal           INTEGER NOT NULL,
	test_key          TEXT NOT NULL,
	test_name         TEXT NOT NULL,
	test_class        TEXT NOT NULL,
	threshold         DOUBLE PRECISION,
	actual            DOUBLE PRECISION,
	threshold_display TEXT NOT NULL,
	actual_display    TEXT NOT NULL,
	result            TEXT NOT NULL,
	note              TEXT
);

CREATE TABLE IF NOT EXISTS deal_gate_events (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	deal_id     TEXT NOT NULL REFERENCES deals(id),
	event_type  TEXT NOT NULL,
	from_status TEXT,
	to_status   TEXT,
	source      TEXT NOT NULL,
	reason      TEXT,
	metadata    JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_deals_workspace ON deals(workspace_id);
CREATE INDEX IF NOT EXISTS idx_boe_runs_deal ON boe_runs(deal_id, version DESC);
CREATE INDEX IF NOT EXISTS idx_boe_test_results_run ON boe_test_results(boe_run_id);
CREATE INDEX IF NOT EXISTS idx_deal_gate_events_deal ON deal_gate_events(deal_id, created_at DESC);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// --- Workspaces ---

func (s *PostgresStore) CreateWorkspace(ctx context.Context, name, createdBy string) (*model.Workspace, error) {
	ws := &model.Workspace{ID: newID(), Name: name, CreatedBy: createdBy, CreatedAt: now()}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO workspaces (id, name, created_by, created_at) VALUES ($1, $2, $3, $4)`,
		ws.ID, ws.Name, ws.CreatedBy, ws.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert workspace")
	}
	return ws, nil
}

func (s *PostgresStore) GetWorkspace(ctx context.Context, id string) (*model.Workspace, error) {
	var ws model.Workspace
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, created_by, created_at FROM workspaces WHERE id = $1`, id,
	).Scan(&ws.ID, &ws.Name, &ws.CreatedBy, &ws.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "workspace %s", id)
		}
		return nil, eris.Wrapf(err, "postgres: get workspace %s", id)
	}
	return &ws, nil
}

func (s *PostgresStore) ListWorkspaces(ctx context.Context) ([]model.Workspace, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, created_by, created_at FROM workspaces ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list workspaces")
	}
	defer rows.Close()

	out := []model.Workspace{}
	for rows.Next() {
		var ws model.Workspace
		if err := rows.Scan(&ws.ID, &ws.Name, &ws.CreatedBy, &ws.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan workspace")
		}
		out = append(out, ws)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list workspaces iterate")
}

// --- Deals ---

func (s *PostgresStore) CreateDeal(ctx context.Context, deal model.Deal) (*model.Deal, error) {
	d := newDeal(deal)
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO deals (id, workspace_id, name, address, asking_price, current_gate_state,
			gate_status, gate_status_computed, created_by, created_at)
		 SELECT $1, id, $2, $3, $4, $5, $6, $7, $8, $9 FROM workspaces WHERE id = $10`,
		d.ID, d.Name, d.Address, nullable(d.AskingPrice), string(d.CurrentGateState),
		string(d.GateStatus), string(d.GateStatusComputed), d.CreatedBy, d.CreatedAt,
		d.WorkspaceID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert deal")
	}
	if tag.RowsAffected() == 0 {
		return nil, eris.Wrapf(ErrNotFound, "workspace %s", d.WorkspaceID)
	}
	return d, nil
}

func (s *PostgresStore) GetDeal(ctx context.Context, id string) (*model.Deal, error) {
	d, err := scanPgDeal(s.pool.QueryRow(ctx, pgGetDeal, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "deal %s", id)
		}
		return nil, eris.Wrapf(err, "postgres: get deal %s", id)
	}
	return d, nil
}

func (s *PostgresStore) ListDeals(ctx context.Context, filter DealFilter) ([]model.Deal, error) {
	query := `SELECT ` + pgDealColumns + ` FROM deals WHERE true`
	args := []any{}
	argIdx := 1

	if filter.WorkspaceID != "" {
		query += fmt.Sprintf(` AND workspace_id = $%d`, argIdx)
		args = append(args, filter.WorkspaceID)
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, id LIMIT $%d`, argIdx)
	args = append(args, listLimit(filter.Limit))
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list deals")
	}
	defer rows.Close()

	deals := []model.Deal{}
	for rows.Next() {
		d, err := scanPgDeal(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan deal")
		}
		deals = append(deals, *d)
	}
	return deals, eris.Wrap(rows.Err(), "postgres: list deals iterate")
}

// UpdateDealGate locks the deal row, applies mutate to it as stored and
// writes the result with its events. A mutation that returns no events
// commits nothing.
func (s *PostgresStore) UpdateDealGate(ctx context.Context, dealID string, mutate GateMutation) (*GateUpdate, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	deal, err := pgLockDealRow(ctx, tx, dealID)
	if err != nil {
		return nil, err
	}
	upd := applyGate(deal, mutate)
	if len(upd.Events) == 0 {
		return upd, nil
	}
	if err := pgWriteGate(ctx, tx, upd); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit deal gate")
	}
	return upd, nil
}

func pgLockDealRow(ctx context.Context, q db.Querier, id string) (*model.Deal, error) {
	d, err := scanPgDeal(q.QueryRow(ctx, pgLockDeal, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "deal %s", id)
		}
		return nil, eris.Wrapf(err, "postgres: lock deal %s", id)
	}
	return d, nil
}

func pgWriteGate(ctx context.Context, q db.Querier, upd *GateUpdate) error {
	if err := pgUpdateDeal(ctx, q, upd.Deal); err != nil {
		return err
	}
	for _, ev := range upd.Events {
		if err := pgAddEvent(ctx, q, ev); err != nil {
			return err
		}
	}
	return nil
}

func pgUpdateDeal(ctx context.Context, q db.Querier, d *model.Deal) error {
	tag, err := q.Exec(ctx, pgUpdateGate,
		string(d.CurrentGateState), nullable(d.LatestRunID), string(d.GateStatus),
		string(d.GateStatusComputed), statusArg(d.GateOverrideStatus), nullable(d.GateOverrideReason),
		nullable(d.GateOverrideBy), nullable(d.GateOverrideAt), nullable(d.GateUpdatedAt),
		d.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update deal gate %s", d.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "deal %s", d.ID)
	}
	return nil
}

// --- Runs ---

// CreateRun locks the deal row before reading the current version, so runs
// created concurrently for one deal are numbered one after another, and
// applies the gate changes to the row as locked. Test rows go in through
// COPY inside the same transaction.
func (s *PostgresStore) CreateRun(ctx context.Context, c RunCommit) (*GateUpdate, error) {
	if err := prepareCommit(c); err != nil {
		return nil, err
	}
	r := c.Run

	inputs, err := marshalBlob(r.Inputs)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal inputs")
	}
	outputs, err := marshalBlob(r.Outputs)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal outputs")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	deal, err := pgLockDealRow(ctx, tx, r.DealID)
	if err != nil {
		return nil, err
	}
	if err := tx.QueryRow(ctx, pgNextRunVersion, r.DealID).Scan(&r.Version); err != nil {
		return nil, eris.Wrapf(err, "postgres: next run version %s", r.DealID)
	}

	_, err = tx.Exec(ctx, pgInsertRun,
		r.ID, r.DealID, r.Version, inputs, outputs, r.Decision, nullable(r.BindingConstraint),
		r.HardVetoOK, r.PassCount, r.Advance, r.CreatedBy, r.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert run for deal %s", r.DealID)
	}

	rows := make([][]any, len(r.Tests))
	for i, t := range r.Tests {
		rows[i] = append([]any{i}, testRowValues(t)...)
	}
	if _, err := db.CopyFrom(ctx, tx, "boe_test_results", append([]string{"ordinal"}, testColumns...), rows); err != nil {
		return nil, eris.Wrap(err, "postgres: insert tests")
	}

	upd := applyGate(deal, c.Gate)
	if err := pgWriteGate(ctx, tx, upd); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit run")
	}
	return upd, nil
}

func (s *PostgresStore) GetRun(ctx context.Context, dealID, runID string) (*model.Run, error) {
	r, err := scanPgRun(s.pool.QueryRow(ctx, pgGetRun, runID, dealID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "run %s", runID)
		}
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	tests, err := s.loadTests(ctx, `boe_run_id = $1`, r.ID)
	if err != nil {
		return nil, err
	}
	r.Tests = tests[r.ID]
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, dealID string) ([]model.Run, error) {
	rows, err := s.pool.Query(ctx, pgListRuns, dealID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	runs := []model.Run{}
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: list runs iterate")
	}
	if len(runs) == 0 {
		return runs, nil
	}

	tests, err := s.loadTests(ctx,
		`boe_run_id IN (SELECT id FROM boe_runs WHERE deal_id = $1)`, dealID)
	if err != nil {
		return nil, err
	}
	for i := range runs {
		runs[i].Tests = tests[runs[i].ID]
	}
	return runs, nil
}

func (s *PostgresStore) LatestRun(ctx context.Context, dealID string) (*model.Run, error) {
	r, err := scanPgRun(s.pool.QueryRow(ctx, pgLatestRun, dealID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: latest run %s", dealID)
	}
	tests, err := s.loadTests(ctx, `boe_run_id = $1`, r.ID)
	if err != nil {
		return nil, err
	}
	r.Tests = tests[r.ID]
	return r, nil
}

func (s *PostgresStore) loadTests(ctx context.Context, where string, arg any) (map[string][]model.TestRow, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+joinColumns(testColumns)+` FROM boe_test_results WHERE `+where+` ORDER BY boe_run_id, ordinal`,
		arg,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load tests")
	}
	defer rows.Close()

	out := map[string][]model.TestRow{}
	for rows.Next() {
		var (
			t             model.TestRow
			class, result string
		)
		if err := rows.Scan(&t.ID, &t.RunID, &t.Key, &t.Name, &class, &t.Threshold, &t.Actual,
			&t.ThresholdDisplay, &t.ActualDisplay, &result, &t.Note); err != nil {
			return nil, eris.Wrap(err, "postgres: scan test")
		}
		t.Class = boe.TestClass(class)
		t.Result = boe.TestResult(result)
		out[t.RunID] = append(out[t.RunID], t)
	}
	return out, eris.Wrap(rows.Err(), "postgres: load tests iterate")
}

// --- Gate events ---

func pgAddEvent(ctx context.Context, q db.Querier, ev *model.GateEvent) error {
	meta, err := marshalBlob(ev.Metadata)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal event metadata")
	}
	_, err = q.Exec(ctx, pgInsertEvent,
		ev.ID, ev.DealID, ev.EventType, nullable(ev.FromStatus), nullable(ev.ToStatus),
		ev.Source, nullable(ev.Reason), meta, ev.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: insert gate event %s", ev.EventType)
}

func (s *PostgresStore) ListGateEvents(ctx context.Context, dealID string, limit int) ([]model.GateEvent, error) {
	rows, err := s.pool.Query(ctx, pgListEvents, dealID, listLimit(limit))
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list gate events")
	}
	defer rows.Close()

	events := []model.GateEvent{}
	for rows.Next() {
		var (
			ev   model.GateEvent
			meta []byte
		)
		if err := rows.Scan(&ev.ID, &ev.DealID, &ev.EventType, &ev.FromStatus, &ev.ToStatus,
			&ev.Source, &ev.Reason, &meta, &ev.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan gate event")
		}
		if err := unmarshalBlob(meta, &ev.Metadata); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal event metadata")
		}
		events = append(events, ev)
	}
	return events, eris.Wrap(rows.Err(), "postgres: list gate events iterate")
}

func (s *PostgresStore) CountGateEvents(ctx context.Context, dealID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, pgCountEvents, dealID).Scan(&n)
	return n, eris.Wrapf(err, "postgres: count gate events %s", dealID)
}

func scanPgDeal(row scannable) (*model.Deal, error) {
	var (
		d                           model.Deal
		gateState, status, computed string
		ovStatus                    *string
	)
	err := row.Scan(&d.ID, &d.WorkspaceID, &d.Name, &d.Address, &d.AskingPrice, &gateState,
		&d.LatestRunID, &status, &computed, &ovStatus,
		&d.GateOverrideReason, &d.GateOverrideBy, &d.GateOverrideAt, &d.GateUpdatedAt,
		&d.CreatedBy, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	d.CurrentGateState = model.GateState(gateState)
	d.GateStatus = model.DealStatus(status)
	d.GateStatusComputed = model.DealStatus(computed)
	d.GateOverrideStatus = statusPtr(ovStatus)
	return &d, nil
}

func scanPgRun(row scannable) (*model.Run, error) {
	var (
		r               model.Run
		inputs, outputs []byte
	)
	err := row.Scan(&r.ID, &r.DealID, &r.Version, &inputs, &outputs, &r.Decision, &r.BindingConstraint,
		&r.HardVetoOK, &r.PassCount, &r.Advance, &r.CreatedBy, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := unmarshalBlob(inputs, &r.Inputs); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal inputs")
	}
	if err := unmarshalBlob(outputs, &r.Outputs); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal outputs")
	}
	return &r, nil
}
