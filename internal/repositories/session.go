package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/desertthunder/g2commons/internal/models"
	"github.com/desertthunder/g2commons/internal/shared"
)

// SessionRepository persists [models.Session] state in SQLite.
type SessionRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSessionRepository creates a new [SessionRepository] with the given database connection.
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db, now: time.Now}
}

// Create inserts a new session with a generated ID expiring one hour from now.
func (r *SessionRepository) Create() (*models.Session, error) {
	session := models.NewSession(shared.GenerateID(), r.now().UTC())

	state, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize session: %w", err)
	}

	query := `
		INSERT INTO sessions (id, state, created_at, expires_at) VALUES (?, ?, ?, ?)
	`

	_, err = r.db.Exec(query, session.ID, string(state), session.CreatedAt, session.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert session: %w", err)
	}

	return session, nil
}

// Get retrieves a session by ID.
//
// A session past its expiry behaves as absent: the row is deleted and
// [shared.ErrSessionExpired] is returned so callers can show an explicit
// expiry notice instead of silently proceeding with stale state.
func (r *SessionRepository) Get(id string) (*models.Session, error) {
	query := `
		SELECT state, expires_at FROM sessions WHERE id = ?
	`

	var (
		state     string
		expiresAt time.Time
	)

	err := r.db.QueryRow(query, id).Scan(&state, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, shared.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	if !r.now().UTC().Before(expiresAt) {
		_ = r.Delete(id)
		return nil, shared.ErrSessionExpired
	}

	var session models.Session
	if err := json.Unmarshal([]byte(state), &session); err != nil {
		return nil, fmt.Errorf("failed to deserialize session: %w", err)
	}

	return &session, nil
}

// Update persists modified session state.
//
// The expiry column is never advanced: session lifetime is fixed at creation.
func (r *SessionRepository) Update(session *models.Session) error {
	state, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to serialize session: %w", err)
	}

	query := `
		UPDATE sessions SET state = ? WHERE id = ?
	`

	result, err := r.db.Exec(query, string(state), session.ID)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return shared.ErrSessionNotFound
	}

	return nil
}

// Delete removes a session by ID.
func (r *SessionRepository) Delete(id string) error {
	_, err := r.db.Exec("DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes all sessions past their expiry and returns the count.
// Run periodically by the server as a sweep.
func (r *SessionRepository) DeleteExpired() (int64, error) {
	result, err := r.db.Exec("DELETE FROM sessions WHERE expires_at <= ?", r.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}
