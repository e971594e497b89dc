package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/underwriting-cli/internal/boe"
	"github.com/sells-group/underwriting-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// One writer at a time; a single connection also keeps the pragmas below
	// in force for every statement.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS workspaces (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	created_by TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS deals (
	id                   TEXT PRIMARY KEY,
	workspace_id         TEXT NOT NULL REFERENCES workspaces(id),
	name                 TEXT NOT NULL,
	address              TEXT NOT NULL DEFAULT '',
	asking_price         REAL,
	current_gate_state   TEXT NOT NULL DEFAULT 'NO_RUN',
	latest_boe_run_id    TEXT,
	gate_status          TEXT NOT NULL DEFAULT 'NEEDS_WORK',
	gate_status_computed TEXT NOT NULL DEFAULT 'NEEDS_WORK',
	gate_override_status TEXT,
	gate_override_reason TEXT,
	gate_override_by     TEXT,
	gate_override_at     DATETIME,
	gate_updated_at      DATETIME,
	created_by           TEXT NOT NULL DEFAULT '',
	created_at           DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS boe_runs (
	id                 TEXT PRIMARY KEY,
	deal_id            TEXT NOT NULL REFERENCES deals(id),
	version            INTEGER NOT NULL,
	inputs             TEXT NOT NULL,
	outputs            TEXT NOT NULL,
	decision           TEXT NOT NULL,
	binding_constraint TEXT,
	hard_veto_ok       INTEGER NOT NULL,
	pass_count         INTEGER NOT NULL,
	advance            INTEGER NOT NULL,
	created_by         TEXT NOT NULL DEFAULT '',
	created_at         DATETIME NOT NULL,
	UNIQUE (deal_id, version)
);

CREATE TABLE IF NOT EXISTS boe_test_results (
	id                TEXT PRIMARY KEY,
	boe_run_id        TEXT NOT NULL REFERENCES boe_runs(id),
	ordinal           INTEGER NOT NULL,
	test_key          TEXT NOT NULL,
	test_name         TEXT NOT NULL,
	test_class        TEXT NOT NULL,
	threshold         REAL,
	actual            REAL,
	threshold_display TEXT NOT NULL,
	actual_display    TEXT NOT NULL,
	result            TEXT NOT NULL,
	note              TEXT
);

CREATE TABLE IF NOT EXISTS deal_gate_events (
	id          TEXT PRIMARY KEY,
	deal_id     TEXT NOT NULL REFERENCES deals(id),
	event_type  TEXT NOT NULL,
	from_status TEXT,
	to_status   TEXT,
	source      TEXT NOT NULL,
	reason      TEXT,
	metadata    TEXT NOT NULL DEFAULT '{}',
	created_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_deals_workspace ON deals(workspace_id);
CREATE INDEX IF NOT EXISTS idx_boe_runs_deal ON boe_runs(deal_id, version);
CREATE INDEX IF NOT EXISTS idx_boe_test_results_run ON boe_test_results(boe_run_id);
CREATE INDEX IF NOT EXISTS idx_deal_gate_events_deal ON deal_gate_events(deal_id, created_at);
`

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Workspaces ---

func (s *SQLiteStore) CreateWorkspace(ctx context.Context, name, createdBy string) (*model.Workspace, error) {
	ws := &model.Workspace{ID: newID(), Name: name, CreatedBy: createdBy, CreatedAt: now()}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO workspaces (id, name, created_by, created_at) VALUES (?, ?, ?, ?)`,
		ws.ID, ws.Name, ws.CreatedBy, ws.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert workspace")
	}
	return ws, nil
}

func (s *SQLiteStore) GetWorkspace(ctx context.Context, id string) (*model.Workspace, error) {
	var ws model.Workspace
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_by, created_at FROM workspaces WHERE id = ?`, id,
	).Scan(&ws.ID, &ws.Name, &ws.CreatedBy, &ws.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "workspace %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get workspace %s", id)
	}
	return &ws, nil
}

func (s *SQLiteStore) ListWorkspaces(ctx context.Context) ([]model.Workspace, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, created_by, created_at FROM workspaces ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list workspaces")
	}
	defer rows.Close() //nolint:errcheck

	out := []model.Workspace{}
	for rows.Next() {
		var ws model.Workspace
		if err := rows.Scan(&ws.ID, &ws.Name, &ws.CreatedBy, &ws.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan workspace")
		}
		out = append(out, ws)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list workspaces iterate")
}

// --- Deals ---

const sqliteDealColumns = `id, workspace_id, name, address, asking_price, current_gate_state,
	latest_boe_run_id, gate_status, gate_status_computed, gate_override_status,
	gate_override_reason, gate_override_by, gate_override_at, gate_updated_at,
	created_by, created_at`

func (s *SQLiteStore) CreateDeal(ctx context.Context, deal model.Deal) (*model.Deal, error) {
	d := newDeal(deal)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO deals (id, workspace_id, name, address, asking_price, current_gate_state,
			gate_status, gate_status_computed, created_by, created_at)
		 SELECT ?, id, ?, ?, ?, ?, ?, ?, ?, ? FROM workspaces WHERE id = ?`,
		d.ID, d.Name, d.Address, nullable(d.AskingPrice), string(d.CurrentGateState),
		string(d.GateStatus), string(d.GateStatusComputed), d.CreatedBy, d.CreatedAt,
		d.WorkspaceID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert deal")
	}
	if err := checkRowsAffected(res, "workspace", d.WorkspaceID); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *SQLiteStore) GetDeal(ctx context.Context, id string) (*model.Deal, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteDealColumns+` FROM deals WHERE id = ?`, id,
	)
	d, err := scanSQLiteDeal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "deal %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get deal %s", id)
	}
	return d, nil
}

func (s *SQLiteStore) ListDeals(ctx context.Context, filter DealFilter) ([]model.Deal, error) {
	query := `SELECT ` + sqliteDealColumns + ` FROM deals WHERE 1=1`
	var args []any

	if filter.WorkspaceID != "" {
		query += ` AND workspace_id = ?`
		args = append(args, filter.WorkspaceID)
	}
	query += ` ORDER BY created_at DESC, id LIMIT ?`
	args = append(args, listLimit(filter.Limit))

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list deals")
	}
	defer rows.Close() //nolint:errcheck

	deals := []model.Deal{}
	for rows.Next() {
		d, err := scanSQLiteDeal(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan deal")
		}
		deals = append(deals, *d)
	}
	return deals, eris.Wrap(rows.Err(), "sqlite: list deals iterate")
}

// UpdateDealGate re-reads the deal under the write lock, applies mutate and
// writes the result with its events. A mutation that returns no events
// commits nothing.
func (s *SQLiteStore) UpdateDealGate(ctx context.Context, dealID string, mutate GateMutation) (*GateUpdate, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	deal, err := sqliteLockDeal(ctx, tx, dealID)
	if err != nil {
		return nil, err
	}
	upd := applyGate(deal, mutate)
	if len(upd.Events) == 0 {
		return upd, nil
	}
	if err := sqliteWriteGate(ctx, tx, upd); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit deal gate")
	}
	return upd, nil
}

// sqliteLockDeal takes the database write lock with a no-op update before
// reading the deal, so no other writer can change it until the transaction
// ends. Reading first would leave a window for another process.
func sqliteLockDeal(ctx context.Context, tx *sql.Tx, id string) (*model.Deal, error) {
	res, err := tx.ExecContext(ctx, `UPDATE deals SET id = id WHERE id = ?`, id)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: lock deal %s", id)
	}
	if err := checkRowsAffected(res, "deal", id); err != nil {
		return nil, err
	}
	d, err := scanSQLiteDeal(tx.QueryRowContext(ctx,
		`SELECT `+sqliteDealColumns+` FROM deals WHERE id = ?`, id,
	))
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: read locked deal %s", id)
	}
	return d, nil
}

func sqliteWriteGate(ctx context.Context, tx *sql.Tx, upd *GateUpdate) error {
	if err := sqliteUpdateDeal(ctx, tx, upd.Deal); err != nil {
		return err
	}
	for _, ev := range upd.Events {
		if err := sqliteInsertEvent(ctx, tx, ev); err != nil {
			return err
		}
	}
	return nil
}

func sqliteUpdateDeal(ctx context.Context, tx *sql.Tx, d *model.Deal) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE deals SET current_gate_state = ?, latest_boe_run_id = ?, gate_status = ?,
			gate_status_computed = ?, gate_override_status = ?, gate_override_reason = ?,
			gate_override_by = ?, gate_override_at = ?, gate_updated_at = ?
		 WHERE id = ?`,
		string(d.CurrentGateState), nullable(d.LatestRunID), string(d.GateStatus),
		string(d.GateStatusComputed), statusArg(d.GateOverrideStatus), nullable(d.GateOverrideReason),
		nullable(d.GateOverrideBy), nullable(d.GateOverrideAt), nullable(d.GateUpdatedAt),
		d.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update deal gate %s", d.ID)
	}
	return checkRowsAffected(res, "deal", d.ID)
}

// --- Runs ---

const sqliteRunColumns = `id, deal_id, version, inputs, outputs, decision, binding_constraint,
	hard_veto_ok, pass_count, advance, created_by, created_at`

// CreateRun locks the deal, assigns the next version inside the insert and
// applies the run's gate changes to the deal as read under the lock.
func (s *SQLiteStore) CreateRun(ctx context.Context, c RunCommit) (*GateUpdate, error) {
	if err := prepareCommit(c); err != nil {
		return nil, err
	}
	r := c.Run

	inputs, err := marshalBlob(r.Inputs)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal inputs")
	}
	outputs, err := marshalBlob(r.Outputs)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal outputs")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	deal, err := sqliteLockDeal(ctx, tx, r.DealID)
	if err != nil {
		return nil, err
	}

	err = tx.QueryRowContext(ctx,
		`INSERT INTO boe_runs (`+sqliteRunColumns+`)
		 SELECT ?, d.id,
			(SELECT COALESCE(MAX(version), 0) + 1 FROM boe_runs WHERE deal_id = d.id),
			?, ?, ?, ?, ?, ?, ?, ?, ?
		 FROM deals d WHERE d.id = ?
		 RETURNING version`,
		r.ID, string(inputs), string(outputs), r.Decision, nullable(r.BindingConstraint),
		r.HardVetoOK, r.PassCount, r.Advance, r.CreatedBy, r.CreatedAt,
		r.DealID,
	).Scan(&r.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "deal %s", r.DealID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert run for deal %s", r.DealID)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO boe_test_results (ordinal, `+joinColumns(testColumns)+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: prepare test insert")
	}
	defer stmt.Close() //nolint:errcheck

	for i, t := range r.Tests {
		if _, err := stmt.ExecContext(ctx, append([]any{i}, testRowValues(t)...)...); err != nil {
			return nil, eris.Wrapf(err, "sqlite: insert test %s", t.Key)
		}
	}

	upd := applyGate(deal, c.Gate)
	if err := sqliteWriteGate(ctx, tx, upd); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit run")
	}
	return upd, nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, dealID, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteRunColumns+` FROM boe_runs WHERE id = ? AND deal_id = ?`,
		runID, dealID,
	)
	r, err := scanSQLiteRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}
	tests, err := s.loadTests(ctx, `boe_run_id = ?`, runID)
	if err != nil {
		return nil, err
	}
	r.Tests = tests[r.ID]
	return r, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, dealID string) ([]model.Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteRunColumns+` FROM boe_runs WHERE deal_id = ? ORDER BY version DESC`,
		dealID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	runs := []model.Run{}
	for rows.Next() {
		r, err := scanSQLiteRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		runs = append(runs, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs iterate")
	}

	tests, err := s.loadTests(ctx,
		`boe_run_id IN (SELECT id FROM boe_runs WHERE deal_id = ?)`, dealID)
	if err != nil {
		return nil, err
	}
	for i := range runs {
		runs[i].Tests = tests[runs[i].ID]
	}
	return runs, nil
}

func (s *SQLiteStore) LatestRun(ctx context.Context, dealID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteRunColumns+` FROM boe_runs WHERE deal_id = ? ORDER BY version DESC LIMIT 1`,
		dealID,
	)
	r, err := scanSQLiteRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: latest run %s", dealID)
	}
	tests, err := s.loadTests(ctx, `boe_run_id = ?`, r.ID)
	if err != nil {
		return nil, err
	}
	r.Tests = tests[r.ID]
	return r, nil
}

func (s *SQLiteStore) loadTests(ctx context.Context, where string, arg any) (map[string][]model.TestRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+joinColumns(testColumns)+` FROM boe_test_results WHERE `+where+` ORDER BY boe_run_id, ordinal`,
		arg,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load tests")
	}
	defer rows.Close() //nolint:errcheck

	out := map[string][]model.TestRow{}
	for rows.Next() {
		var (
			t                 model.TestRow
			class, result     string
			threshold, actual sql.NullFloat64
			note              sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.RunID, &t.Key, &t.Name, &class, &threshold, &actual,
			&t.ThresholdDisplay, &t.ActualDisplay, &result, &note); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan test")
		}
		t.Class = boe.TestClass(class)
		t.Result = boe.TestResult(result)
		t.Threshold = nullFloat(threshold)
		t.Actual = nullFloat(actual)
		t.Note = nullString(note)
		out[t.RunID] = append(out[t.RunID], t)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: load tests iterate")
}

// --- Gate events ---

func sqliteInsertEvent(ctx context.Context, tx *sql.Tx, ev *model.GateEvent) error {
	meta, err := marshalBlob(ev.Metadata)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal event metadata")
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO deal_gate_events (id, deal_id, event_type, from_status, to_status, source, reason, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.DealID, ev.EventType, nullable(ev.FromStatus), nullable(ev.ToStatus),
		ev.Source, nullable(ev.Reason), string(meta), ev.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert gate event %s", ev.EventType)
}

func (s *SQLiteStore) ListGateEvents(ctx context.Context, dealID string, limit int) ([]model.GateEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, deal_id, event_type, from_status, to_status, source, reason, metadata, created_at
		 FROM deal_gate_events WHERE deal_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT ?`,
		dealID, listLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list gate events")
	}
	defer rows.Close() //nolint:errcheck

	events := []model.GateEvent{}
	for rows.Next() {
		var (
			ev               model.GateEvent
			from, to, reason sql.NullString
			meta             string
		)
		if err := rows.Scan(&ev.ID, &ev.DealID, &ev.EventType, &from, &to, &ev.Source, &reason, &meta, &ev.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan gate event")
		}
		ev.FromStatus = nullString(from)
		ev.ToStatus = nullString(to)
		ev.Reason = nullString(reason)
		if err := unmarshalBlob([]byte(meta), &ev.Metadata); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal event metadata")
		}
		events = append(events, ev)
	}
	return events, eris.Wrap(rows.Err(), "sqlite: list gate events iterate")
}

func (s *SQLiteStore) CountGateEvents(ctx context.Context, dealID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM deal_gate_events WHERE deal_id = ?`, dealID,
	).Scan(&n)
	return n, eris.Wrapf(err, "sqlite: count gate events %s", dealID)
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSQLiteDeal(row scannable) (*model.Deal, error) {
	var (
		d                                model.Deal
		gateState, status, computed      string
		asking                           sql.NullFloat64
		latest, ovStatus, ovReason, ovBy sql.NullString
		ovAt, updatedAt                  sql.NullTime
	)
	err := row.Scan(&d.ID, &d.WorkspaceID, &d.Name, &d.Address, &asking, &gateState,
		&latest, &status, &computed, &ovStatus,
		&ovReason, &ovBy, &ovAt, &updatedAt,
		&d.CreatedBy, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	d.AskingPrice = nullFloat(asking)
	d.CurrentGateState = model.GateState(gateState)
	d.LatestRunID = nullString(latest)
	d.GateStatus = model.DealStatus(status)
	d.GateStatusComputed = model.DealStatus(computed)
	d.GateOverrideStatus = statusPtr(nullString(ovStatus))
	d.GateOverrideReason = nullString(ovReason)
	d.GateOverrideBy = nullString(ovBy)
	d.GateOverrideAt = nullTime(ovAt)
	d.GateUpdatedAt = nullTime(updatedAt)
	return &d, nil
}

func scanSQLiteRun(row scannable) (*model.Run, error) {
	var (
		r               model.Run
		inputs, outputs string
		binding         sql.NullString
	)
	err := row.Scan(&r.ID, &r.DealID, &r.Version, &inputs, &outputs, &r.Decision, &binding,
		&r.HardVetoOK, &r.PassCount, &r.Advance, &r.CreatedBy, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	r.BindingConstraint = nullString(binding)
	if err := unmarshalBlob([]byte(inputs), &r.Inputs); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal inputs")
	}
	if err := unmarshalBlob([]byte(outputs), &r.Outputs); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal outputs")
	}
	return &r, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time.UTC()
	return &t
}

func marshalBlob(m map[string]any) ([]byte, error) {
	if m == nil {
		m = map[string]any{}
	}
	return json.Marshal(m)
}

func unmarshalBlob(b []byte, m *map[string]any) error {
	if len(b) == 0 {
		*m = map[string]any{}
		return nil
	}
	return json.Unmarshal(b, m)
}
