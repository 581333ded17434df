// Package storage is the durable unit of truth for "seen before": job
// history, run logs, and description embeddings live in one SQLite file so
// a job row and its embedding commit in a single transaction.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"
)

// ErrDuplicateJob is returned when an insert targets an existing job_id or
// URL. Insert is not upsert; history rows are append-only.
var ErrDuplicateJob = errors.New("job already persisted")

// Store wraps SQLite database operations.
type Store struct {
	db *sql.DB
}

// Open opens or creates the job history database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL for concurrent readers during a run
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS jobs (
		job_id           TEXT PRIMARY KEY,
		url              TEXT NOT NULL UNIQUE,
		dedupe_key       TEXT NOT NULL,
		title            TEXT NOT NULL,
		company          TEXT NOT NULL,
		source           TEXT,
		location         TEXT,
		description      TEXT,
		posted_date      TEXT,
		employment_type  TEXT,
		remote_type      TEXT,
		salary_text      TEXT,
		salary_min       INTEGER,
		salary_max       INTEGER,
		llm_score        INTEGER,
		llm_reasons      TEXT,
		llm_confidence   TEXT,
		is_match         INTEGER DEFAULT 0,
		reputation_score INTEGER,
		flags            TEXT,
		run_date         TEXT NOT NULL,
		created_at       TIMESTAMP NOT NULL DEFAULT (datetime('now'))
	);

	CREATE INDEX IF NOT EXISTS idx_jobs_url ON jobs(url);
	CREATE INDEX IF NOT EXISTS idx_jobs_dedupe_key ON jobs(dedupe_key);
	CREATE INDEX IF NOT EXISTS idx_jobs_run_date ON jobs(run_date);

	CREATE TABLE IF NOT EXISTS job_embeddings (
		job_id    TEXT PRIMARY KEY REFERENCES jobs(job_id),
		embedding BLOB NOT NULL
	);

	CREATE TABLE IF NOT EXISTS runs (
		run_id        TEXT PRIMARY KEY,
		run_date      TEXT NOT NULL,
		mode          TEXT NOT NULL,
		total_fetched INTEGER DEFAULT 0,
		total_scored  INTEGER DEFAULT 0,
		total_matched INTEGER DEFAULT 0,
		total_new     INTEGER DEFAULT 0,
		errors        TEXT,
		duration_secs REAL,
		created_at    TIMESTAMP NOT NULL DEFAULT (datetime('now'))
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ExistsByURL reports whether a job with this URL is already persisted.
func (s *Store) ExistsByURL(url string) (bool, error) {
	var one int
	err := s.db.QueryRow("SELECT 1 FROM jobs WHERE url = ?", url).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("exists by url: %w", err)
	}
	return true, nil
}

// ExistsByDedupeKey reports whether a job with this normalized
// company|title key is already persisted.
func (s *Store) ExistsByDedupeKey(key string) (bool, error) {
	var one int
	err := s.db.QueryRow("SELECT 1 FROM jobs WHERE dedupe_key = ?", key).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("exists by dedupe key: %w", err)
	}
	return true, nil
}

// Begin starts a transaction. The dedupe engine uses it to commit a job
// row together with its embedding so neither store can disagree with the
// other after a crash.
func (s *Store) Begin() (*sql.Tx, error) {
	return s.db.Begin()
}

// InsertJobTx inserts a job row inside tx. Returns ErrDuplicateJob when
// the job_id or URL already exists.
func (s *Store) InsertJobTx(tx *sql.Tx, job *PersistedJob) error {
	reasons, err := json.Marshal(job.LLMReasons)
	if err != nil {
		return fmt.Errorf("marshal reasons: %w", err)
	}
	flags, err := json.Marshal(job.Flags)
	if err != nil {
		return fmt.Errorf("marshal flags: %w", err)
	}

	_, err = tx.Exec(`
	INSERT INTO jobs (
		job_id, url, dedupe_key, title, company, source, location,
		description, posted_date, employment_type, remote_type,
		salary_text, salary_min, salary_max,
		llm_score, llm_reasons, llm_confidence, is_match,
		reputation_score, flags, run_date
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.JobID, job.URL, job.DedupeKey, job.Title, job.Company, job.Source,
		job.Location, job.Description, job.PostedDate, job.EmploymentType,
		job.RemoteType, job.SalaryText, job.SalaryMin, job.SalaryMax,
		job.LLMScore, string(reasons), job.LLMConfidence, boolToInt(job.IsMatch),
		job.ReputationScore, string(flags), job.RunDate,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return ErrDuplicateJob
		}
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// InsertEmbeddingTx stores a job's description embedding inside tx.
func (s *Store) InsertEmbeddingTx(tx *sql.Tx, jobID string, blob []byte) error {
	if _, err := tx.Exec(
		"INSERT OR REPLACE INTO job_embeddings (job_id, embedding) VALUES (?, ?)",
		jobID, blob,
	); err != nil {
		return fmt.Errorf("insert embedding: %w", err)
	}
	return nil
}

// StoredEmbedding pairs a job id with its serialized embedding.
type StoredEmbedding struct {
	JobID string
	Blob  []byte
}

// ListEmbeddings returns all stored embeddings for similarity scans.
func (s *Store) ListEmbeddings() ([]StoredEmbedding, error) {
	rows, err := s.db.Query("SELECT job_id, embedding FROM job_embeddings")
	if err != nil {
		return nil, fmt.Errorf("list embeddings: %w", err)
	}
	defer rows.Close()

	var out []StoredEmbedding
	for rows.Next() {
		var e StoredEmbedding
		if err := rows.Scan(&e.JobID, &e.Blob); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

const jobColumns = `job_id, url, dedupe_key, title, company, source, location,
	description, posted_date, employment_type, remote_type,
	salary_text, salary_min, salary_max,
	llm_score, llm_reasons, llm_confidence, is_match,
	reputation_score, flags, run_date, created_at`

// GetJob retrieves a persisted job by id, nil when absent.
func (s *Store) GetJob(id string) (*PersistedJob, error) {
	row := s.db.QueryRow("SELECT "+jobColumns+" FROM jobs WHERE job_id = ?", id)
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return job, err
}

// ListJobs returns all persisted jobs, newest first.
func (s *Store) ListJobs() ([]*PersistedJob, error) {
	return s.queryJobs("SELECT " + jobColumns + " FROM jobs ORDER BY created_at DESC")
}

// ListByRunDate returns jobs accepted on a given run date, best first.
func (s *Store) ListByRunDate(runDate string) ([]*PersistedJob, error) {
	return s.queryJobs(
		"SELECT "+jobColumns+" FROM jobs WHERE run_date = ? ORDER BY llm_score DESC",
		runDate,
	)
}

func (s *Store) queryJobs(query string, args ...any) ([]*PersistedJob, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var out []*PersistedJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (*PersistedJob, error) {
	job := &PersistedJob{}
	var reasons, flags sql.NullString
	var source, location, description, postedDate sql.NullString
	var employment, remote, salaryText, confidence sql.NullString
	var salaryMin, salaryMax, llmScore, isMatch, reputation sql.NullInt64

	err := row.Scan(
		&job.JobID, &job.URL, &job.DedupeKey, &job.Title, &job.Company,
		&source, &location, &description, &postedDate, &employment, &remote,
		&salaryText, &salaryMin, &salaryMax,
		&llmScore, &reasons, &confidence, &isMatch,
		&reputation, &flags, &job.RunDate, &job.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	job.Source = source.String
	job.Location = location.String
	job.Description = description.String
	job.PostedDate = postedDate.String
	job.EmploymentType = employment.String
	job.RemoteType = remote.String
	job.SalaryText = salaryText.String
	job.LLMConfidence = confidence.String
	job.SalaryMin = int(salaryMin.Int64)
	job.SalaryMax = int(salaryMax.Int64)
	job.LLMScore = int(llmScore.Int64)
	job.IsMatch = isMatch.Int64 != 0
	job.ReputationScore = int(reputation.Int64)

	if reasons.Valid && reasons.String != "" {
		_ = json.Unmarshal([]byte(reasons.String), &job.LLMReasons)
	}
	if flags.Valid && flags.String != "" {
		_ = json.Unmarshal([]byte(flags.String), &job.Flags)
	}
	return job, nil
}

// CountJobs returns the number of persisted jobs.
func (s *Store) CountJobs() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM jobs").Scan(&n)
	return n, err
}

// RecordRun appends one run-log row.
func (s *Store) RecordRun(run *RunLog) error {
	errs, err := json.Marshal(run.Errors)
	if err != nil {
		return fmt.Errorf("marshal errors: %w", err)
	}
	_, err = s.db.Exec(`
	INSERT INTO runs (run_id, run_date, mode, total_fetched, total_scored,
	                  total_matched, total_new, errors, duration_secs)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.RunDate, run.Mode, run.TotalFetched, run.TotalScored,
		run.TotalMatched, run.TotalNew, string(errs), run.Duration.Seconds(),
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent n run logs, newest first.
func (s *Store) ListRuns(n int) ([]*RunLog, error) {
	rows, err := s.db.Query(`
	SELECT run_id, run_date, mode, total_fetched, total_scored,
	       total_matched, total_new, errors, duration_secs, created_at
	FROM runs ORDER BY created_at DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []*RunLog
	for rows.Next() {
		run := &RunLog{}
		var errs sql.NullString
		var secs sql.NullFloat64
		if err := rows.Scan(
			&run.RunID, &run.RunDate, &run.Mode, &run.TotalFetched,
			&run.TotalScored, &run.TotalMatched, &run.TotalNew,
			&errs, &secs, &run.CreatedAt,
		); err != nil {
			return nil, err
		}
		if errs.Valid && errs.String != "" {
			_ = json.Unmarshal([]byte(errs.String), &run.Errors)
		}
		run.Duration = time.Duration(secs.Float64 * float64(time.Second))
		out = append(out, run)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
