// Package history persists backtest runs and their trade ledgers in
// SQLite so past results stay queryable after the process exits.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/marketlens/marketlens/internal/backtest"
	"github.com/marketlens/marketlens/internal/core"
)

// Run is one persisted backtest run: the summary columns plus the full
// metrics bundle.
type Run struct {
	RunID          string            `json:"run_id"`
	Symbol         string            `json:"symbol"`
	Strategy       string            `json:"strategy"`
	CreatedAt      time.Time         `json:"created_at"`
	InitialCapital float64           `json:"initial_capital"`
	FinalEquity    float64           `json:"final_equity"`
	TotalReturn    float64           `json:"total_return"`
	SharpeRatio    float64           `json:"sharpe_ratio"`
	MaxDrawdown    float64           `json:"max_drawdown"`
	WinRate        float64           `json:"win_rate"`
	TotalTrades    int               `json:"total_trades"`
	DataPoints     int               `json:"data_points"`
	DateRange      string            `json:"date_range"`
	Metrics        *backtest.Metrics `json:"metrics,omitempty"`
}

// Store persists runs in a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the SQLite database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}

	return &Store{db: db}, nil
}

// SaveRun stores a completed run and its trades in one transaction and
// returns the generated run ID.
func (s *Store) SaveRun(ctx context.Context, symbol string, m *backtest.Metrics) (string, error) {
	blob, err := json.Marshal(m)
	if err != nil {
		return "", core.WrapError(core.ErrStorageFailed, err)
	}

	runID := NewRunID()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", core.WrapError(core.ErrStorageFailed, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(run_id, symbol, strategy, created_at, initial_capital, final_equity,
		 total_return, sharpe_ratio, max_drawdown, win_rate, total_trades,
		 data_points, date_range, metrics)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, symbol, m.Config.StrategyName, time.Now().UTC(),
		m.InitialCapital, m.FinalEquity, m.TotalReturn, m.SharpeRatio,
		m.MaxDrawdown, m.WinRate, m.TotalTrades, m.DataPoints, m.DateRange,
		string(blob),
	)
	if err != nil {
		return "", core.WrapError(core.ErrStorageFailed, err)
	}

	for i, t := range m.Trades {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO trades
			(run_id, seq, entry_date, exit_date, entry_price, exit_price,
			 profit_loss, profit_loss_pct, duration, type)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, i, t.EntryDate, t.ExitDate, t.EntryPrice, t.ExitPrice,
			t.ProfitLoss, t.ProfitLossPct, t.Duration, t.Type,
		)
		if err != nil {
			return "", core.WrapError(core.ErrStorageFailed, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", core.WrapError(core.ErrStorageFailed, err)
	}
	return runID, nil
}

// GetRun loads one run with its full metrics bundle.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, symbol, strategy, created_at, initial_capital,
		       final_equity, total_return, sharpe_ratio, max_drawdown,
		       win_rate, total_trades, data_points, date_range, metrics
		FROM runs WHERE run_id = ?`, runID)

	var r Run
	var blob string
	err := row.Scan(&r.RunID, &r.Symbol, &r.Strategy, &r.CreatedAt,
		&r.InitialCapital, &r.FinalEquity, &r.TotalReturn, &r.SharpeRatio,
		&r.MaxDrawdown, &r.WinRate, &r.TotalTrades, &r.DataPoints,
		&r.DateRange, &blob)
	if err == sql.ErrNoRows {
		return nil, core.WrapError(core.ErrRunNotFound, fmt.Errorf("run %s", runID))
	}
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}

	var m backtest.Metrics
	if err := json.Unmarshal([]byte(blob), &m); err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	r.Metrics = &m
	return &r, nil
}

// ListRuns returns summaries of the most recent runs, newest first.
// The metrics bundle is not loaded.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, symbol, strategy, created_at, initial_capital,
		       final_equity, total_return, sharpe_ratio, max_drawdown,
		       win_rate, total_trades, data_points, date_range
		FROM runs ORDER BY created_at DESC, run_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		err := rows.Scan(&r.RunID, &r.Symbol, &r.Strategy, &r.CreatedAt,
			&r.InitialCapital, &r.FinalEquity, &r.TotalReturn, &r.SharpeRatio,
			&r.MaxDrawdown, &r.WinRate, &r.TotalTrades, &r.DataPoints,
			&r.DateRange)
		if err != nil {
			return nil, core.WrapError(core.ErrStorageFailed, err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	return runs, nil
}

// ListTrades returns the trade ledger of one run in entry order.
func (s *Store) ListTrades(ctx context.Context, runID string) ([]backtest.TradeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT entry_date, exit_date, entry_price, exit_price,
		       profit_loss, profit_loss_pct, duration, type
		FROM trades WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	defer rows.Close()

	var trades []backtest.TradeRecord
	for rows.Next() {
		var t backtest.TradeRecord
		err := rows.Scan(&t.EntryDate, &t.ExitDate, &t.EntryPrice,
			&t.ExitPrice, &t.ProfitLoss, &t.ProfitLossPct, &t.Duration, &t.Type)
		if err != nil {
			return nil, core.WrapError(core.ErrStorageFailed, err)
		}
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	return trades, nil
}

// Prune deletes runs older than retentionDays along with their trades
// and returns the IDs of the removed runs, so callers can clean up the
// archived reports too. A non-positive retention keeps everything.
func (s *Store) Prune(ctx context.Context, retentionDays int) ([]string, error) {
	if retentionDays <= 0 {
		return nil, nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT run_id FROM runs WHERE created_at < ?`, cutoff)
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, core.WrapError(core.ErrStorageFailed, err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM trades WHERE run_id IN
		(SELECT run_id FROM runs WHERE created_at < ?)`, cutoff)
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM runs WHERE created_at < ?`, cutoff)
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	return ids, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
