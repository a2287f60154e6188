package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"bidsify/internal/heuristic"
	"bidsify/internal/services"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
	lockRetryDelay          = 25 * time.Millisecond
	lockTimeout             = 5 * time.Second
	timeLayout              = time.RFC3339Nano
)

// Entry is one processed study.
type Entry struct {
	ID               int64     `json:"id"`
	RunID            string    `json:"run_id"`
	Source           string    `json:"source,omitempty"`
	StudyHash        string    `json:"study_hash"`
	Accession        string    `json:"accession"`
	StudyDescription string    `json:"study_description"`
	Locator          string    `json:"locator"`
	Subject          string    `json:"subject"`
	Session          string    `json:"session,omitempty"`
	Templates        int       `json:"templates"`
	Series           int       `json:"series"`
	Skipped          int       `json:"skipped"`
	Unrecognized     int       `json:"unrecognized"`
	FixedUp          bool      `json:"fixed_up"`
	Policies         []string  `json:"policies,omitempty"`
	RecordedAt       time.Time `json:"recorded_at"`
}

// FromOutcome summarizes a heuristic outcome.
func FromOutcome(o *heuristic.Outcome) Entry {
	return Entry{
		RunID:            o.RunID,
		Source:           o.Source,
		StudyHash:        o.StudyHash,
		Accession:        o.Accession,
		StudyDescription: o.StudyDescription,
		Locator:          o.Identity.Locator,
		Subject:          o.Identity.Subject,
		Session:          o.Identity.Session,
		Templates:        len(o.Classification.Templates),
		Series:           o.Classification.SeriesCount(),
		Skipped:          len(o.Classification.Skipped),
		Unrecognized:     len(o.Classification.Unrecognized),
		FixedUp:          o.FixedUp,
		Policies:         o.Policies,
	}
}

// ListOptions filters List.
type ListOptions struct {
	// Limit caps the number of rows; zero means all.
	Limit     int
	StudyHash string
	Accession string
}

// Store is the catalog database.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
	lock *flock.Flock
}

// Open creates or opens the catalog at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "catalog", "open", "catalog path is empty", nil)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create catalog dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path, lock: flock.New(path + ".lock")}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record appends an entry and returns its id. RecordedAt defaults to now.
func (s *Store) Record(ctx context.Context, entry Entry) (int64, error) {
	ctx = ensureContext(ctx)
	if strings.TrimSpace(entry.RunID) == "" {
		return 0, services.Wrap(services.ErrValidation, "catalog", "record", "run id is required", nil)
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()
	locked, err := s.lock.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil {
		return 0, fmt.Errorf("acquire catalog lock: %w", err)
	}
	if !locked {
		return 0, errors.New("catalog lock held by another process")
	}
	defer func() { _ = s.lock.Unlock() }()

	var id int64
	err = retryOnBusy(ctx, func() error {
		res, execErr := s.db.ExecContext(ctx, `INSERT INTO studies (
			run_id, source, study_hash, accession, study_description, locator, subject, session,
			templates, series, skipped, unrecognized, fixed_up, policies, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			entry.RunID, entry.Source, entry.StudyHash, entry.Accession, entry.StudyDescription,
			entry.Locator, entry.Subject, entry.Session,
			entry.Templates, entry.Series, entry.Skipped, entry.Unrecognized,
			boolToInt(entry.FixedUp), strings.Join(entry.Policies, ","),
			entry.RecordedAt.UTC().Format(timeLayout),
		)
		if execErr != nil {
			return execErr
		}
		id, execErr = res.LastInsertId()
		return execErr
	})
	if err != nil {
		return 0, fmt.Errorf("insert catalog entry: %w", err)
	}
	return id, nil
}

// List returns entries, newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Entry, error) {
	ctx = ensureContext(ctx)
	query := selectColumns
	var (
		where []string
		args  []any
	)
	if opts.StudyHash != "" {
		where = append(where, "study_hash = ?")
		args = append(args, opts.StudyHash)
	}
	if opts.Accession != "" {
		where = append(where, "accession = ?")
		args = append(args, opts.Accession)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query catalog: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate catalog: %w", err)
	}
	return entries, nil
}

// GetByRunID returns the entry recorded for a run.
func (s *Store) GetByRunID(ctx context.Context, runID string) (Entry, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, selectColumns+" WHERE run_id = ?", runID)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, services.Wrap(services.ErrNotFound, "catalog", "get", fmt.Sprintf("run %s", runID), nil)
	}
	return entry, err
}

const selectColumns = `SELECT id, run_id, source, study_hash, accession, study_description, locator, subject, session,
	templates, series, skipped, unrecognized, fixed_up, policies, recorded_at FROM studies`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		entry    Entry
		fixedUp  int
		policies string
		recorded string
	)
	if err := row.Scan(
		&entry.ID, &entry.RunID, &entry.Source, &entry.StudyHash, &entry.Accession, &entry.StudyDescription,
		&entry.Locator, &entry.Subject, &entry.Session,
		&entry.Templates, &entry.Series, &entry.Skipped, &entry.Unrecognized,
		&fixedUp, &policies, &recorded,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("scan catalog entry: %w", err)
	}
	entry.FixedUp = fixedUp != 0
	if policies != "" {
		entry.Policies = strings.Split(policies, ",")
	}
	if t, err := time.Parse(timeLayout, recorded); err == nil {
		entry.RecordedAt = t
	}
	return entry, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
