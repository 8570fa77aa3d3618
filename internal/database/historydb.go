package database

import (
	"cmp"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nregsmp/nregsreport/internal/model"
)

// FileName is the name of the history database file.
const FileName = "nregsreport.db"

// ErrNotFound is returned when no stored report matches a query.
var ErrNotFound = errors.New("report not found in history")

// HistoryDB provides SQLite-based storage for generated reports.
// Every run is stored with its document, its scorecard and a snapshot of
// the district's raw values per section, so that runs can be compared.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a HistoryDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("history database not found at %s", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite: mode=rw refuses to create the file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if _, err := db.ExecContext(context.Background(), "PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Close closes the database connection.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

// Path returns the path of the database file.
func (h *HistoryDB) Path() string {
	return h.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (h *HistoryDB) createTables() error {
	schema := `
	-- One row per generated report
	CREATE TABLE IF NOT EXISTS reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		district TEXT NOT NULL,
		report_date TEXT NOT NULL,
		generated_at TEXT NOT NULL,
		provider TEXT,
		model TEXT,
		marks REAL,
		grade TEXT,
		state_rank INTEGER,
		document_json TEXT NOT NULL,
		scorecard_json TEXT,
		status_summary TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_reports_district ON reports(district);
	CREATE INDEX IF NOT EXISTS idx_reports_generated ON reports(generated_at);

	-- The district's own dashboard values per section and run
	CREATE TABLE IF NOT EXISTS section_snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		report_id INTEGER NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
		section TEXT NOT NULL,
		status TEXT NOT NULL,
		state_rank INTEGER,
		total_districts INTEGER,
		values_json TEXT,
		UNIQUE(report_id, section)
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_report ON section_snapshots(report_id);
	`

	_, err := h.db.ExecContext(context.Background(), schema)
	return err
}

// SaveReport stores a generated report together with the section data it
// was built from. data may be nil. It returns the ID of the stored report.
func (h *HistoryDB) SaveReport(ctx context.Context, doc *model.ReportDocument, data []model.SectionData) (int64, error) {
	docJSON, err := json.Marshal(doc)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize report: %w", err)
	}

	var (
		scorecardJSON sql.NullString
		marks         sql.NullFloat64
		grade         sql.NullString
		rank          sql.NullInt64
	)
	if sc := doc.Scorecard; sc != nil {
		b, err := json.Marshal(sc)
		if err != nil {
			return 0, fmt.Errorf("failed to serialize scorecard: %w", err)
		}
		scorecardJSON = sql.NullString{String: string(b), Valid: true}
		marks = sql.NullFloat64{Float64: sc.Marks, Valid: true}
		grade = sql.NullString{String: sc.Grade, Valid: true}
		rank = sql.NullInt64{Int64: int64(sc.Rank), Valid: true}
	}

	summaryJSON, _ := json.Marshal(statusSummary(doc)) //nolint:errcheck,errchkjson // map of strings to ints

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
	INSERT INTO reports (district, report_date, generated_at, provider, model, marks, grade, state_rank, document_json, scorecard_json, status_summary)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		doc.District.Name,
		doc.DateString(),
		doc.GeneratedAt.UTC().Format(time.RFC3339Nano),
		doc.Provider,
		doc.Model,
		marks,
		grade,
		rank,
		string(docJSON),
		scorecardJSON,
		string(summaryJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save report: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get report ID: %w", err)
	}

	for _, d := range data {
		if err := insertSnapshot(ctx, tx, id, doc, d); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit report: %w", err)
	}
	return id, nil
}

// insertSnapshot stores the district's values of one section.
func insertSnapshot(ctx context.Context, tx *sql.Tx, reportID int64, doc *model.ReportDocument, d model.SectionData) error {
	status := model.StatusNoData
	if r := doc.Result(d.Section); r != nil {
		status = r.Status
	}

	var values sql.NullString
	if d.RawValues != nil {
		b, err := json.Marshal(d.RawValues)
		if err != nil {
			return fmt.Errorf("failed to serialize %s values: %w", d.Section, err)
		}
		values = sql.NullString{String: string(b), Valid: true}
	}

	_, err := tx.ExecContext(ctx, `
	INSERT INTO section_snapshots (report_id, section, status, state_rank, total_districts, values_json)
	VALUES (?, ?, ?, ?, ?, ?)
	`,
		reportID,
		d.Section.String(),
		status.String(),
		d.Rank,
		d.TotalDistricts,
		values,
	)
	if err != nil {
		return fmt.Errorf("failed to save %s snapshot: %w", d.Section, err)
	}
	return nil
}

// statusSummary counts the sections of doc per status name.
func statusSummary(doc *model.ReportDocument) map[string]int {
	summary := make(map[string]int)
	for _, r := range doc.Sections {
		summary[r.Status.String()]++
	}
	return summary
}

// GetLatestReport retrieves the most recent report of a district.
func (h *HistoryDB) GetLatestReport(ctx context.Context, district string) (*model.ReportDocument, error) {
	query := `
	SELECT document_json FROM reports
	WHERE district = ?
	ORDER BY generated_at DESC, id DESC
	LIMIT 1
	`
	return h.queryDocument(ctx, query, district)
}

// GetReportByID retrieves a report by its database ID.
func (h *HistoryDB) GetReportByID(ctx context.Context, id int64) (*model.ReportDocument, error) {
	return h.queryDocument(ctx, `SELECT document_json FROM reports WHERE id = ?`, id)
}

func (h *HistoryDB) queryDocument(ctx context.Context, query string, args ...any) (*model.ReportDocument, error) {
	var docJSON string
	err := h.db.QueryRowContext(ctx, query, args...).Scan(&docJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	var doc model.ReportDocument
	if err := json.Unmarshal([]byte(docJSON), &doc); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &doc, nil
}

// ListDistricts returns every district with at least one stored report.
func (h *HistoryDB) ListDistricts(ctx context.Context) ([]string, error) {
	rows, err := h.db.QueryContext(ctx, `SELECT DISTINCT district FROM reports ORDER BY district`)
	if err != nil {
		return nil, fmt.Errorf("failed to list districts: %w", err)
	}
	defer rows.Close()

	var districts []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan district: %w", err)
		}
		districts = append(districts, d)
	}

	return districts, rows.Err()
}

// ReportMetadata contains summary information about a stored report.
// This is used for listing history without loading the full document.
type ReportMetadata struct {
	ID          int64
	District    string
	ReportDate  string
	GeneratedAt time.Time
	Provider    string
	Model       string

	// Marks, Grade and Rank are zero when the report had no scorecard.
	Marks float64
	Grade string
	Rank  int

	// StatusSummary counts sections by status name.
	StatusSummary map[string]int
}

// GetHistoryWithMetadata retrieves report metadata for a district, newest first.
func (h *HistoryDB) GetHistoryWithMetadata(ctx context.Context, district string) ([]ReportMetadata, error) {
	query := `
	SELECT id, district, report_date, generated_at, provider, model, marks, grade, state_rank, status_summary
	FROM reports
	WHERE district = ?
	ORDER BY generated_at DESC, id DESC
	`

	rows, err := h.db.QueryContext(ctx, query, district)
	if err != nil {
		return nil, fmt.Errorf("failed to get report history: %w", err)
	}
	defer rows.Close()

	var results []ReportMetadata
	for rows.Next() {
		var (
			meta        ReportMetadata
			generatedAt string
			provider    sql.NullString
			modelName   sql.NullString
			marks       sql.NullFloat64
			grade       sql.NullString
			rank        sql.NullInt64
			summaryJSON sql.NullString
		)

		if err := rows.Scan(&meta.ID, &meta.District, &meta.ReportDate, &generatedAt,
			&provider, &modelName, &marks, &grade, &rank, &summaryJSON); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}

		meta.GeneratedAt = parseTimestamp(generatedAt)
		meta.Provider = provider.String
		meta.Model = modelName.String
		meta.Marks = marks.Float64
		meta.Grade = grade.String
		meta.Rank = int(rank.Int64)

		meta.StatusSummary = make(map[string]int)
		if summaryJSON.Valid && summaryJSON.String != "" {
			if err := json.Unmarshal([]byte(summaryJSON.String), &meta.StatusSummary); err != nil {
				meta.StatusSummary = make(map[string]int)
			}
		}

		results = append(results, meta)
	}

	return results, rows.Err()
}

// SectionSnapshot is the district's stored values of one section in one run.
type SectionSnapshot struct {
	Section        model.Section
	Status         model.SectionStatus
	Rank           int
	TotalDistricts int
	Values         model.Row
}

// GetSectionSnapshots retrieves the section snapshots of a report in section order.
func (h *HistoryDB) GetSectionSnapshots(ctx context.Context, reportID int64) ([]SectionSnapshot, error) {
	query := `
	SELECT section, status, state_rank, total_districts, values_json
	FROM section_snapshots
	WHERE report_id = ?
	`

	rows, err := h.db.QueryContext(ctx, query, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to get section snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []SectionSnapshot
	for rows.Next() {
		var (
			snap       SectionSnapshot
			section    string
			status     string
			valuesJSON sql.NullString
		)
		if err := rows.Scan(&section, &status, &snap.Rank, &snap.TotalDistricts, &valuesJSON); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		if err := snap.Section.UnmarshalText([]byte(section)); err != nil {
			continue
		}
		if err := snap.Status.UnmarshalText([]byte(status)); err != nil {
			continue
		}
		if valuesJSON.Valid {
			if err := json.Unmarshal([]byte(valuesJSON.String), &snap.Values); err != nil {
				return nil, fmt.Errorf("failed to parse %s values: %w", section, err)
			}
		}
		snapshots = append(snapshots, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	slices.SortFunc(snapshots, func(a, b SectionSnapshot) int {
		return cmp.Compare(a.Section, b.Section)
	})
	return snapshots, nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999",
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
