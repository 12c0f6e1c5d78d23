package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/mqtt-launcher/internal/dispatch"
	"github.com/nerrad567/mqtt-launcher/internal/infrastructure/database"
)

// Page size limits for List.
const (
	defaultLimit = 50
	maxLimit     = 500
)

// timeLayout is fixed width so executed_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Record is one stored execution.
type Record struct {
	ID         string        `json:"id"`
	Topic      string        `json:"topic"`
	Parameter  *string       `json:"parameter,omitempty"`
	Command    []string      `json:"command"`
	Output     string        `json:"output"`
	Success    bool          `json:"success"`
	ExitCode   int           `json:"exit_code"`
	Duration   time.Duration `json:"duration"`
	ExecutedAt time.Time     `json:"executed_at"`
}

// Filter controls which records List returns.
type Filter struct {
	Topic      string // optional: exact topic match
	FailedOnly bool   // optional: only unsuccessful runs
	Limit      int    // default 50, max 500
}

// Repository defines the audit trail operations.
type Repository interface {
	RecordExecution(ctx context.Context, exec dispatch.Execution) error
	List(ctx context.Context, filter Filter) ([]Record, error)
}

// SQLiteRepository stores executions in SQLite.
type SQLiteRepository struct {
	db *database.DB
}

var _ Repository = (*SQLiteRepository)(nil)

// NewSQLiteRepository creates a repository on an already migrated database.
func NewSQLiteRepository(db *database.DB) (*SQLiteRepository, error) {
	if db == nil {
		return nil, ErrNilDatabase
	}
	return &SQLiteRepository{db: db}, nil
}

// RecordExecution inserts one execution. The command is stored as a JSON
// array so tokens containing spaces survive the round trip.
func (r *SQLiteRepository) RecordExecution(ctx context.Context, exec dispatch.Execution) error {
	if exec.ID == "" {
		return ErrMissingID
	}
	if exec.ExecutedAt.IsZero() {
		exec.ExecutedAt = time.Now()
	}

	command, err := json.Marshal(exec.Command)
	if err != nil {
		return fmt.Errorf("marshalling command: %w", err)
	}

	var param any
	if exec.Parameter != nil {
		param = *exec.Parameter
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO executions (id, topic, parameter, command, output, success, exit_code, duration_ms, executed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		exec.ID, exec.Topic, param, string(command), exec.Output,
		boolToInt(exec.Success), exec.ExitCode, exec.Duration.Milliseconds(),
		exec.ExecutedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting execution: %w", err)
	}
	return nil
}

// List returns the executions matching filter, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) ([]Record, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultLimit
	}
	if filter.Limit > maxLimit {
		filter.Limit = maxLimit
	}

	var conditions []string
	var args []any
	if filter.Topic != "" {
		conditions = append(conditions, "topic = ?")
		args = append(args, filter.Topic)
	}
	if filter.FailedOnly {
		conditions = append(conditions, "success = 0")
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf( //nolint:gosec // WHERE built from fixed conditions with ? placeholders
		`SELECT id, topic, parameter, command, output, success, exit_code, duration_ms, executed_at
		 FROM executions %s ORDER BY executed_at DESC, rowid DESC LIMIT ?`,
		where,
	)
	args = append(args, filter.Limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying executions: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating executions: %w", err)
	}
	return records, nil
}

func scanRecord(rows *sql.Rows) (Record, error) {
	var (
		rec        Record
		param      sql.NullString
		command    string
		success    int
		durationMS int64
		executedAt string
	)
	if err := rows.Scan(&rec.ID, &rec.Topic, &param, &command, &rec.Output,
		&success, &rec.ExitCode, &durationMS, &executedAt); err != nil {
		return Record{}, fmt.Errorf("scanning execution: %w", err)
	}

	if param.Valid {
		p := param.String
		rec.Parameter = &p
	}
	if err := json.Unmarshal([]byte(command), &rec.Command); err != nil {
		return Record{}, fmt.Errorf("decoding command of %s: %w", rec.ID, err)
	}
	rec.Success = success != 0
	rec.Duration = time.Duration(durationMS) * time.Millisecond

	t, err := time.Parse(timeLayout, executedAt)
	if err != nil {
		return Record{}, fmt.Errorf("parsing execution timestamp %q: %w", executedAt, err)
	}
	rec.ExecutedAt = t
	return rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
