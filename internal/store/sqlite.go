package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/yourorg/restspec/pkg/types"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	s := &SQLiteStore{db: db}
	if err := s.Init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Init() error {
	if _, err := s.db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		return err
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			base_url TEXT NOT NULL,
			declarations TEXT NOT NULL,
			exchange_count INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS exchanges (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			timestamp DATETIME NOT NULL,
			endpoint TEXT NOT NULL,
			method TEXT NOT NULL,
			url TEXT NOT NULL,
			request_headers TEXT,
			request_body TEXT,
			status_code INTEGER NOT NULL,
			response_headers TEXT,
			response_body TEXT,
			error TEXT NOT NULL,
			latency_ms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_exchanges_run ON exchanges(run_id);`,
		`CREATE TABLE IF NOT EXISTS check_results (
			run_id TEXT NOT NULL,
			endpoint TEXT NOT NULL,
			status TEXT NOT NULL,
			expected_status INTEGER NOT NULL,
			actual_status INTEGER NOT NULL,
			failures TEXT NOT NULL,
			error_msg TEXT NOT NULL,
			PRIMARY KEY(run_id, endpoint)
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) CreateRun(baseURL, declarations string) (*types.Run, error) {
	now := time.Now().UTC()
	id, err := s.nextRunID(now)
	if err != nil {
		return nil, err
	}
	run := &types.Run{ID: id, BaseURL: baseURL, Declarations: declarations, Status: types.RunStatusRunning, CreatedAt: now, UpdatedAt: now}
	_, err = s.db.Exec(`INSERT INTO runs(id,base_url,declarations,exchange_count,status,created_at,updated_at) VALUES(?,?,?,?,?,?,?)`,
		run.ID, run.BaseURL, run.Declarations, run.ExchangeCount, run.Status, run.CreatedAt, run.UpdatedAt)
	return run, err
}

func (s *SQLiteStore) nextRunID(now time.Time) (string, error) {
	prefix := fmt.Sprintf("run_%s_", now.Format("20060102"))
	rows, err := s.db.Query(`SELECT id FROM runs WHERE id LIKE ?`, prefix+"%")
	if err != nil {
		return "", err
	}
	defer rows.Close()
	maxN := 0
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", err
		}
		var n int
		_, _ = fmt.Sscanf(id, prefix+"%03d", &n)
		if n > maxN {
			maxN = n
		}
	}
	return fmt.Sprintf("%s%03d", prefix, maxN+1), rows.Err()
}

const runColumns = `id,base_url,declarations,exchange_count,status,created_at,updated_at`

func (s *SQLiteStore) GetRun(id string) (*types.Run, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id=?`, id)
	var out types.Run
	if err := row.Scan(&out.ID, &out.BaseURL, &out.Declarations, &out.ExchangeCount, &out.Status, &out.CreatedAt, &out.UpdatedAt); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *SQLiteStore) UpdateRunStatus(id, status string) error {
	_, err := s.db.Exec(`UPDATE runs SET status=?, updated_at=? WHERE id=?`, status, time.Now().UTC(), id)
	return err
}

func (s *SQLiteStore) ListRuns() ([]types.Run, error) {
	rows, err := s.db.Query(`SELECT ` + runColumns + ` FROM runs ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []types.Run
	for rows.Next() {
		var r types.Run
		if err := rows.Scan(&r.ID, &r.BaseURL, &r.Declarations, &r.ExchangeCount, &r.Status, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteRun(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`DELETE FROM exchanges WHERE run_id=?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM check_results WHERE run_id=?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM runs WHERE id=?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// AppendExchange journals one exchange as it happens.
func (s *SQLiteStore) AppendExchange(ex types.Exchange) error {
	return s.SaveExchanges(ex.RunID, []types.Exchange{ex})
}

func (s *SQLiteStore) SaveExchanges(runID string, exs []types.Exchange) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	stmt, err := tx.Prepare(`INSERT INTO exchanges(run_id,seq,timestamp,endpoint,method,url,request_headers,request_body,status_code,response_headers,response_body,error,latency_ms) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, ex := range exs {
		rh, _ := json.Marshal(ex.RequestHeaders)
		respH, _ := json.Marshal(ex.ResponseHeaders)
		if _, err := stmt.Exec(runID, ex.Seq, ex.Timestamp, ex.Endpoint, ex.Method, ex.URL, string(rh), ex.RequestBody, ex.StatusCode, string(respH), ex.ResponseBody, ex.Error, ex.LatencyMs); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(`UPDATE runs SET exchange_count=exchange_count+?, updated_at=? WHERE id=?`, len(exs), time.Now().UTC(), runID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetExchanges(runID string) ([]types.Exchange, error) {
	rows, err := s.db.Query(`SELECT id,run_id,seq,timestamp,endpoint,method,url,request_headers,request_body,status_code,response_headers,response_body,error,latency_ms FROM exchanges WHERE run_id=? ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]types.Exchange, 0)
	for rows.Next() {
		var ex types.Exchange
		var rhS, respHS string
		if err := rows.Scan(&ex.ID, &ex.RunID, &ex.Seq, &ex.Timestamp, &ex.Endpoint, &ex.Method, &ex.URL, &rhS, &ex.RequestBody, &ex.StatusCode, &respHS, &ex.ResponseBody, &ex.Error, &ex.LatencyMs); err != nil {
			return nil, err
		}
		if rhS != "" {
			_ = json.Unmarshal([]byte(rhS), &ex.RequestHeaders)
		}
		if respHS != "" {
			_ = json.Unmarshal([]byte(respHS), &ex.ResponseHeaders)
		}
		out = append(out, ex)
	}
	return out, rows.Err()
}

// SaveResult stores the outcome for one endpoint, replacing an earlier
// one from the same run.
func (s *SQLiteStore) SaveResult(r *types.CheckResult) error {
	failures, err := json.Marshal(r.Failures)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO check_results(run_id,endpoint,status,expected_status,actual_status,failures,error_msg)
	VALUES(?,?,?,?,?,?,?)
	ON CONFLICT(run_id,endpoint) DO UPDATE SET status=excluded.status,expected_status=excluded.expected_status,actual_status=excluded.actual_status,failures=excluded.failures,error_msg=excluded.error_msg`,
		r.RunID, r.Endpoint, r.Status, r.Expected, r.Actual, string(failures), r.ErrorMsg)
	return err
}

func (s *SQLiteStore) GetResults(runID string) ([]types.CheckResult, error) {
	return s.queryResults(`SELECT run_id,endpoint,status,expected_status,actual_status,failures,error_msg FROM check_results WHERE run_id=? ORDER BY rowid ASC`, runID)
}

func (s *SQLiteStore) GetFailedResults(runID string) ([]types.CheckResult, error) {
	return s.queryResults(`SELECT run_id,endpoint,status,expected_status,actual_status,failures,error_msg FROM check_results WHERE run_id=? AND status<>'passed' ORDER BY rowid ASC`, runID)
}

func (s *SQLiteStore) queryResults(query string, args ...any) ([]types.CheckResult, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []types.CheckResult
	for rows.Next() {
		var r types.CheckResult
		var failures string
		if err := rows.Scan(&r.RunID, &r.Endpoint, &r.Status, &r.Expected, &r.Actual, &failures, &r.ErrorMsg); err != nil {
			return nil, err
		}
		if failures != "" && failures != "null" {
			_ = json.Unmarshal([]byte(failures), &r.Failures)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return errors.New("store is nil")
	}
	return s.db.Close()
}
