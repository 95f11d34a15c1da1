package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/Dhvanitmonpara/interview.ai/internal/logging"
	"github.com/Dhvanitmonpara/interview.ai/internal/model/interview"
)

const schema = `
CREATE TABLE IF NOT EXISTS interview_sessions (
	connection_id TEXT PRIMARY KEY,
	user_id       TEXT NOT NULL DEFAULT '',
	candidate     JSONB NOT NULL,
	responses     JSONB NOT NULL,
	status        TEXT NOT NULL,
	feedback      TEXT NOT NULL DEFAULT '',
	start_time    TIMESTAMPTZ NOT NULL,
	end_time      TIMESTAMPTZ,
	archived_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS interview_sessions_user_idx ON interview_sessions (user_id, start_time DESC);`

const upsertSession = `INSERT INTO interview_sessions (connection_id, user_id, candidate, responses, status, feedback, start_time, end_time)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (connection_id) DO UPDATE
		SET user_id = EXCLUDED.user_id,
			candidate = EXCLUDED.candidate,
			responses = EXCLUDED.responses,
			status = EXCLUDED.status,
			feedback = EXCLUDED.feedback,
			end_time = EXCLUDED.end_time,
			archived_at = now()`

const selectByUser = `SELECT connection_id, candidate, responses, status, feedback, start_time, end_time
	FROM interview_sessions WHERE user_id = $1 ORDER BY start_time DESC`

// PostgresArchive persists sessions in PostgreSQL.
type PostgresArchive struct {
	conn *sql.DB
}

var _ ArchiveStore = (*PostgresArchive)(nil)

// NewPostgresArchive opens the database, tunes the pool and ensures the schema exists.
func NewPostgresArchive(ctx context.Context, dataSourceName string) (*PostgresArchive, error) {
	conn, err := sql.Open("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := conn.ExecContext(ctx, schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create archive schema: %w", err)
	}

	logging.For("storage").Info("connected to PostgreSQL archive")
	return &PostgresArchive{conn: conn}, nil
}

// Save upserts the session row.
func (p *PostgresArchive) Save(ctx context.Context, s interview.Session) error {
	row, err := encodeRow(s)
	if err != nil {
		return err
	}
	_, err = p.conn.ExecContext(ctx, upsertSession,
		row.connectionID,
		row.userID,
		row.candidate,
		row.responses,
		row.status,
		row.feedback,
		row.startTime,
		row.endTime,
	)
	if err != nil {
		return fmt.Errorf("save session %s: %w", s.ConnectionID, err)
	}
	return nil
}

// ListByUser returns the user's archived sessions, newest first.
func (p *PostgresArchive) ListByUser(ctx context.Context, userID string) ([]interview.Session, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrUserRequired
	}

	rows, err := p.conn.QueryContext(ctx, selectByUser, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions for %s: %w", userID, err)
	}
	defer rows.Close()

	out := make([]interview.Session, 0)
	for rows.Next() {
		var r sessionRow
		if err := rows.Scan(&r.connectionID, &r.candidate, &r.responses, &r.status, &r.feedback, &r.startTime, &r.endTime); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		s, err := r.decode()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Close releases the connection pool.
func (p *PostgresArchive) Close() error {
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

type sessionRow struct {
	connectionID string
	userID       string
	candidate    []byte
	responses    []byte
	status       string
	feedback     string
	startTime    time.Time
	endTime      sql.NullTime
}

func encodeRow(s interview.Session) (sessionRow, error) {
	candidate, err := json.Marshal(s.Candidate)
	if err != nil {
		return sessionRow{}, fmt.Errorf("encode candidate: %w", err)
	}
	responses := s.Responses
	if responses == nil {
		responses = []interview.QuestionAnswer{}
	}
	encoded, err := json.Marshal(responses)
	if err != nil {
		return sessionRow{}, fmt.Errorf("encode responses: %w", err)
	}

	row := sessionRow{
		connectionID: s.ConnectionID,
		userID:       s.Candidate.UserID,
		candidate:    candidate,
		responses:    encoded,
		status:       string(s.Status),
		feedback:     s.Feedback,
		startTime:    s.StartTime,
	}
	if s.EndTime != nil {
		row.endTime = sql.NullTime{Time: *s.EndTime, Valid: true}
	}
	return row, nil
}

func (r sessionRow) decode() (interview.Session, error) {
	s := interview.Session{
		ConnectionID: r.connectionID,
		Status:       interview.Status(r.status),
		Feedback:     r.feedback,
		StartTime:    r.startTime.UTC(),
	}
	if err := json.Unmarshal(r.candidate, &s.Candidate); err != nil {
		return interview.Session{}, fmt.Errorf("decode candidate %s: %w", r.connectionID, err)
	}
	if err := json.Unmarshal(r.responses, &s.Responses); err != nil {
		return interview.Session{}, fmt.Errorf("decode responses %s: %w", r.connectionID, err)
	}
	if r.endTime.Valid {
		end := r.endTime.Time.UTC()
		s.EndTime = &end
	}
	return s, nil
}
