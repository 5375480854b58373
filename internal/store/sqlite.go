package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteDB implements the DB interface using SQLite
type SQLiteDB struct {
	db *sql.DB
}

// NewSQLiteDB creates a new SQLite database connection
func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every pooled connection to ":memory:" would see its own empty database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	return &SQLiteDB{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// Migrate runs database migrations
func (s *SQLiteDB) Migrate() error {
	baseMigrations := []string{
		`CREATE TABLE IF NOT EXISTS puzzles (
			id TEXT PRIMARY KEY,
			number INTEGER NOT NULL,
			module_count INTEGER NOT NULL,
			stage_count INTEGER NOT NULL,
			skip INTEGER NOT NULL DEFAULT 0,
			server_seed TEXT NOT NULL,
			server_seed_hash TEXT NOT NULL,
			client_seed TEXT NOT NULL,
			nonce INTEGER NOT NULL,
			ranking TEXT NOT NULL,
			stages TEXT NOT NULL,
			log TEXT NOT NULL,
			revealed INTEGER NOT NULL DEFAULT 0,
			strikes INTEGER NOT NULL DEFAULT 0,
			phase TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS attempts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			puzzle_id TEXT NOT NULL,
			submitted TEXT NOT NULL,
			correct INTEGER NOT NULL,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (puzzle_id) REFERENCES puzzles(id)
		)`,
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			game TEXT NOT NULL,
			server_seed_hash TEXT NOT NULL,
			client_seed TEXT NOT NULL,
			nonce_start INTEGER NOT NULL,
			nonce_end INTEGER NOT NULL,
			params_json TEXT DEFAULT '{}',
			target_op TEXT NOT NULL,
			target_val REAL NOT NULL,
			target_val2 REAL DEFAULT 0.0,
			tolerance REAL DEFAULT 0.0,
			hit_limit INTEGER DEFAULT 1000,
			script TEXT DEFAULT '',
			timed_out INTEGER DEFAULT 0,
			hit_count INTEGER NOT NULL DEFAULT 0,
			total_evaluated INTEGER NOT NULL DEFAULT 0,
			summary_min REAL,
			summary_max REAL,
			summary_mean REAL,
			win_share_json TEXT DEFAULT '{}',
			engine_version TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS hits (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			nonce INTEGER NOT NULL,
			metric REAL NOT NULL,
			ranking TEXT NOT NULL,
			FOREIGN KEY (run_id) REFERENCES runs(id)
		)`,
	}

	for _, migration := range baseMigrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("base migration failed: %w", err)
		}
	}

	indexMigrations := []string{
		`CREATE INDEX IF NOT EXISTS idx_attempts_puzzle ON attempts(puzzle_id, id)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_game_created ON runs(game, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_hits_run_nonce ON hits(run_id, nonce)`,
	}

	for _, migration := range indexMigrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("index migration failed: %w", err)
		}
	}

	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// SavePuzzle inserts a new puzzle, assigning an id and creation time when
// they are unset.
func (s *SQLiteDB) SavePuzzle(p *Puzzle) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	ranking, err := json.Marshal(p.Ranking)
	if err != nil {
		return fmt.Errorf("encode ranking: %w", err)
	}
	stages, err := json.Marshal(p.Stages)
	if err != nil {
		return fmt.Errorf("encode stages: %w", err)
	}

	query := `INSERT INTO puzzles (
		id, number, module_count, stage_count, skip, server_seed, server_seed_hash,
		client_seed, nonce, ranking, stages, log, revealed, strikes, phase, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.Exec(query,
		p.ID, p.Number, p.ModuleCount, p.StageCount, p.Skip, p.ServerSeed, p.ServerSeedHash,
		p.ClientSeed, p.Nonce, string(ranking), string(stages), p.Log,
		p.Revealed, p.Strikes, p.Phase, p.CreatedAt,
	)
	return err
}

// GetPuzzle retrieves a puzzle by ID
func (s *SQLiteDB) GetPuzzle(id string) (*Puzzle, error) {
	query := `SELECT
		id, number, module_count, stage_count, skip, server_seed, server_seed_hash,
		client_seed, nonce, ranking, stages, log, revealed, strikes, phase, created_at
		FROM puzzles WHERE id = ?`

	var p Puzzle
	var ranking, stages string
	err := s.db.QueryRow(query, id).Scan(
		&p.ID, &p.Number, &p.ModuleCount, &p.StageCount, &p.Skip, &p.ServerSeed, &p.ServerSeedHash,
		&p.ClientSeed, &p.Nonce, &ranking, &stages, &p.Log,
		&p.Revealed, &p.Strikes, &p.Phase, &p.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("puzzle %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(ranking), &p.Ranking); err != nil {
		return nil, fmt.Errorf("decode ranking: %w", err)
	}
	if err := json.Unmarshal([]byte(stages), &p.Stages); err != nil {
		return nil, fmt.Errorf("decode stages: %w", err)
	}
	return &p, nil
}

// UpdatePuzzleState records viewer and answer progress.
func (s *SQLiteDB) UpdatePuzzleState(id string, revealed, strikes int, phase string) error {
	res, err := s.db.Exec(
		`UPDATE puzzles SET revealed = ?, strikes = ?, phase = ? WHERE id = ?`,
		revealed, strikes, phase, id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("puzzle %s: %w", id, ErrNotFound)
	}
	return nil
}

// SaveAttempt records a submitted answer.
func (s *SQLiteDB) SaveAttempt(a *Attempt) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	submitted, err := json.Marshal(a.Submitted)
	if err != nil {
		return fmt.Errorf("encode submission: %w", err)
	}

	res, err := s.db.Exec(
		`INSERT INTO attempts (puzzle_id, submitted, correct, created_at) VALUES (?, ?, ?, ?)`,
		a.PuzzleID, string(submitted), boolInt(a.Correct), a.CreatedAt,
	)
	if err != nil {
		return err
	}
	a.ID, err = res.LastInsertId()
	return err
}

// ListAttempts returns a puzzle's attempts in submission order.
func (s *SQLiteDB) ListAttempts(puzzleID string) ([]Attempt, error) {
	rows, err := s.db.Query(
		`SELECT id, puzzle_id, submitted, correct, created_at
		FROM attempts WHERE puzzle_id = ? ORDER BY id`, puzzleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", err)
	}
	defer rows.Close()

	attempts := []Attempt{}
	for rows.Next() {
		var a Attempt
		var submitted string
		var correct int
		if err := rows.Scan(&a.ID, &a.PuzzleID, &submitted, &correct, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		if err := json.Unmarshal([]byte(submitted), &a.Submitted); err != nil {
			return nil, fmt.Errorf("decode submission: %w", err)
		}
		a.Correct = correct == 1
		attempts = append(attempts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attempts: %w", err)
	}
	return attempts, nil
}

// SaveRun saves a scan run to the database
func (s *SQLiteDB) SaveRun(run *Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.ParamsJSON == "" {
		run.ParamsJSON = "{}"
	}
	if run.WinShareJSON == "" {
		run.WinShareJSON = "{}"
	}

	query := `INSERT INTO runs (
		id, game, server_seed_hash, client_seed, nonce_start, nonce_end,
		params_json, target_op, target_val, target_val2, tolerance, hit_limit, script,
		timed_out, hit_count, total_evaluated, summary_min, summary_max, summary_mean,
		win_share_json, engine_version
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.Exec(query,
		run.ID, run.Game, run.ServerSeedHash, run.ClientSeed, run.NonceStart, run.NonceEnd,
		run.ParamsJSON, run.TargetOp, run.TargetVal, run.TargetVal2, run.Tolerance, run.HitLimit, run.Script,
		boolInt(run.TimedOut), run.HitCount, run.TotalEvaluated, run.SummaryMin, run.SummaryMax, run.SummaryMean,
		run.WinShareJSON, run.EngineVersion,
	)

	return err
}

// UpdateRun updates an existing run in the database
func (s *SQLiteDB) UpdateRun(run *Run) error {
	query := `UPDATE runs SET
		game = ?, server_seed_hash = ?, client_seed = ?, nonce_start = ?, nonce_end = ?,
		params_json = ?, target_op = ?, target_val = ?, target_val2 = ?, tolerance = ?,
		hit_limit = ?, script = ?, timed_out = ?, hit_count = ?, total_evaluated = ?,
		summary_min = ?, summary_max = ?, summary_mean = ?, win_share_json = ?, engine_version = ?
		WHERE id = ?`

	res, err := s.db.Exec(query,
		run.Game, run.ServerSeedHash, run.ClientSeed, run.NonceStart, run.NonceEnd,
		run.ParamsJSON, run.TargetOp, run.TargetVal, run.TargetVal2, run.Tolerance,
		run.HitLimit, run.Script, boolInt(run.TimedOut), run.HitCount, run.TotalEvaluated,
		run.SummaryMin, run.SummaryMax, run.SummaryMean, run.WinShareJSON, run.EngineVersion,
		run.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("run %s: %w", run.ID, ErrNotFound)
	}
	return nil
}

// SaveHits saves multiple hits to the database
func (s *SQLiteDB) SaveHits(runID string, hits []Hit) error {
	if len(hits) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("INSERT INTO hits (run_id, nonce, metric, ranking) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, hit := range hits {
		ranking, err := json.Marshal(hit.Ranking)
		if err != nil {
			return fmt.Errorf("encode ranking: %w", err)
		}
		if _, err := stmt.Exec(runID, hit.Nonce, hit.Metric, string(ranking)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

const runColumns = `id, game, server_seed_hash, client_seed, nonce_start, nonce_end,
		params_json, target_op, target_val, target_val2, tolerance, hit_limit, script,
		timed_out, hit_count, total_evaluated, summary_min, summary_max, summary_mean,
		win_share_json, engine_version, created_at`

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var timedOutInt int
	var paramsJSON, script, winShare sql.NullString
	var summaryMin, summaryMax, summaryMean sql.NullFloat64

	err := row.Scan(
		&run.ID, &run.Game, &run.ServerSeedHash, &run.ClientSeed, &run.NonceStart, &run.NonceEnd,
		&paramsJSON, &run.TargetOp, &run.TargetVal, &run.TargetVal2, &run.Tolerance, &run.HitLimit, &script,
		&timedOutInt, &run.HitCount, &run.TotalEvaluated, &summaryMin, &summaryMax, &summaryMean,
		&winShare, &run.EngineVersion, &run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	// Handle nullable fields
	run.ParamsJSON = "{}"
	if paramsJSON.Valid {
		run.ParamsJSON = paramsJSON.String
	}
	run.WinShareJSON = "{}"
	if winShare.Valid {
		run.WinShareJSON = winShare.String
	}
	run.Script = script.String
	if summaryMin.Valid {
		run.SummaryMin = &summaryMin.Float64
	}
	if summaryMax.Valid {
		run.SummaryMax = &summaryMax.Float64
	}
	if summaryMean.Valid {
		run.SummaryMean = &summaryMean.Float64
	}
	run.TimedOut = timedOutInt == 1

	return &run, nil
}

// GetRun retrieves a run by ID
func (s *SQLiteDB) GetRun(id string) (*Run, error) {
	run, err := scanRun(s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return run, err
}

// ListRuns retrieves runs with pagination and filtering
func (s *SQLiteDB) ListRuns(query RunsQuery) (*RunsList, error) {
	whereClause := ""
	args := []any{}

	if query.Game != "" {
		whereClause = "WHERE game = ?"
		args = append(args, query.Game)
	}

	var totalCount int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM runs "+whereClause, args...).Scan(&totalCount); err != nil {
		return nil, fmt.Errorf("failed to get total count: %w", err)
	}

	if query.PerPage <= 0 {
		query.PerPage = 50
	}
	if query.Page <= 0 {
		query.Page = 1
	}

	totalPages := (totalCount + query.PerPage - 1) / query.PerPage
	offset := (query.Page - 1) * query.PerPage

	mainQuery := `SELECT ` + runColumns + ` FROM runs ` + whereClause + `
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?`
	args = append(args, query.PerPage, offset)

	rows, err := s.db.Query(mainQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return &RunsList{
		Runs:       runs,
		TotalCount: totalCount,
		Page:       query.Page,
		PerPage:    query.PerPage,
		TotalPages: totalPages,
	}, nil
}

// GetRunHits retrieves hits for a run with server-side pagination and delta nonce calculation
func (s *SQLiteDB) GetRunHits(runID string, page, perPage int) (*HitsPage, error) {
	var totalCount int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM hits WHERE run_id = ?", runID).Scan(&totalCount); err != nil {
		return nil, fmt.Errorf("failed to get hits count: %w", err)
	}

	if perPage <= 0 {
		perPage = 100
	}
	if page <= 0 {
		page = 1
	}

	totalPages := (totalCount + perPage - 1) / perPage
	offset := (page - 1) * perPage

	query := `SELECT id, run_id, nonce, metric, ranking
		FROM hits WHERE run_id = ?
		ORDER BY nonce
		LIMIT ? OFFSET ?`

	rows, err := s.db.Query(query, runID, perPage, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query hits: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var hit Hit
		var ranking string
		if err := rows.Scan(&hit.ID, &hit.RunID, &hit.Nonce, &hit.Metric, &ranking); err != nil {
			return nil, fmt.Errorf("failed to scan hit: %w", err)
		}
		if err := json.Unmarshal([]byte(ranking), &hit.Ranking); err != nil {
			return nil, fmt.Errorf("decode ranking: %w", err)
		}
		hits = append(hits, hit)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating hits: %w", err)
	}
	rows.Close()

	hitsWithDelta := make([]HitWithDelta, len(hits))
	for i, hit := range hits {
		hitsWithDelta[i] = HitWithDelta{Hit: hit}

		// Delta is the distance from the previous hit, which for the first
		// row of a later page lives on the page before.
		if i > 0 {
			delta := hit.Nonce - hits[i-1].Nonce
			hitsWithDelta[i].DeltaNonce = &delta
		} else if page > 1 {
			prevHitQuery := `SELECT nonce FROM hits WHERE run_id = ? AND nonce < ? ORDER BY nonce DESC LIMIT 1`
			var prevNonce uint64
			if err := s.db.QueryRow(prevHitQuery, runID, hit.Nonce).Scan(&prevNonce); err == nil {
				delta := hit.Nonce - prevNonce
				hitsWithDelta[i].DeltaNonce = &delta
			}
		}
	}

	return &HitsPage{
		Hits:       hitsWithDelta,
		TotalCount: totalCount,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
	}, nil
}

