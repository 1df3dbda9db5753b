package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/code-compass/internal/apperror"
	"github.com/sakif/code-compass/internal/model"
	"github.com/sakif/code-compass/internal/repository"
)

// compile-time check that userStore implements repository.UserRepository
var _ repository.UserRepository = (*userStore)(nil)

type userStore struct{ db *DB }

// Users returns the UserRepository backed by db.
func (db *DB) Users() repository.UserRepository { return &userStore{db: db} }

const userColumns = `id, name, email, password_hash, mode, role, preferences, progress,
	github_id, is_active, last_login_at, created_at, updated_at`

// Create inserts a new user. The email is lowercased first so the UNIQUE
// constraint is effectively case-insensitive, and a duplicate surfaces
// as a Conflict on "email".
func (s *userStore) Create(ctx context.Context, u *model.User) error {
	ctx, cancel := s.db.writeCtx(ctx)
	defer cancel()

	now := time.Now().UTC()
	if u.ID == "" {
		u.ID = xid.New().String()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.Progress == nil {
		u.Progress = []model.UserProgress{}
	}

	cols, err := jsonColumns(u.Preferences, u.Progress)
	if err != nil {
		return fmt.Errorf("sqlite: encoding user %s: %w", u.ID, err)
	}

	_, err = s.db.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.Mode, u.Role, cols[0], cols[1],
		nullGitHubID(u.GitHubID), boolToInt(u.IsActive), u.LastLoginAt, u.CreatedAt, u.UpdatedAt,
	)
	if isUniqueViolation(err) {
		if strings.Contains(err.Error(), "github_id") {
			return apperror.Conflict("user", "githubId")
		}
		return apperror.Conflict("user", "email")
	}
	return wrapErr("sqlite: inserting user", err)
}

// GetByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (s *userStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	return s.getOne(ctx, "id = ?", id, id)
}

func (s *userStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return s.getOne(ctx, "email = ?", email, email)
}

func (s *userStore) GetByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	return s.getOne(ctx, "github_id = ?", fmt.Sprint(githubID), githubID)
}

func (s *userStore) getOne(ctx context.Context, cond, label string, arg any) (*model.User, error) {
	ctx, cancel := s.db.readCtx(ctx)
	defer cancel()

	u, err := scanUser(s.db.conn.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+cond, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("user", label)
	}
	if err != nil {
		return nil, wrapErr("sqlite: getting user "+label, err)
	}
	return u, nil
}

// UpdateProfile writes the user-editable fields: name, mode and
// preferences.
func (s *userStore) UpdateProfile(ctx context.Context, u *model.User) error {
	ctx, cancel := s.db.writeCtx(ctx)
	defer cancel()

	prefs, err := toJSON(u.Preferences)
	if err != nil {
		return fmt.Errorf("sqlite: encoding preferences of %s: %w", u.ID, err)
	}
	u.UpdatedAt = time.Now().UTC()

	res, err := s.db.conn.ExecContext(ctx,
		`UPDATE users SET name = ?, mode = ?, preferences = ?, updated_at = ? WHERE id = ?`,
		u.Name, u.Mode, prefs, u.UpdatedAt, u.ID)
	if err != nil {
		return wrapErr("sqlite: updating user "+u.ID, err)
	}
	return requireRow(res, "user", u.ID)
}

func (s *userStore) LinkGitHub(ctx context.Context, id string, githubID int64) error {
	ctx, cancel := s.db.writeCtx(ctx)
	defer cancel()

	res, err := s.db.conn.ExecContext(ctx,
		`UPDATE users SET github_id = ?, updated_at = ? WHERE id = ?`,
		githubID, time.Now().UTC(), id)
	if isUniqueViolation(err) {
		return apperror.Conflict("user", "githubId")
	}
	if err != nil {
		return wrapErr("sqlite: linking github account of "+id, err)
	}
	return requireRow(res, "user", id)
}

func (s *userStore) TouchLogin(ctx context.Context, id string, at time.Time) error {
	ctx, cancel := s.db.writeCtx(ctx)
	defer cancel()

	res, err := s.db.conn.ExecContext(ctx,
		`UPDATE users SET last_login_at = ? WHERE id = ?`, at.UTC(), id)
	if err != nil {
		return wrapErr("sqlite: recording login of "+id, err)
	}
	return requireRow(res, "user", id)
}

// UpdateProgress reads the progress column, hands it to fn and writes the
// result back inside one transaction. Together with the single-connection
// pool this makes concurrent updates for the same user apply one after
// the other instead of overwriting each other.
func (s *userStore) UpdateProgress(ctx context.Context, userID string, fn repository.ProgressFunc) ([]model.UserProgress, error) {
	ctx, cancel := s.db.writeCtx(ctx)
	defer cancel()

	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrapErr("sqlite: beginning progress update", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	var raw string
	err = tx.QueryRowContext(ctx, `SELECT progress FROM users WHERE id = ?`, userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("user", userID)
	}
	if err != nil {
		return nil, wrapErr("sqlite: reading progress of "+userID, err)
	}

	var records []model.UserProgress
	if err := fromJSON(raw, &records); err != nil {
		return nil, fmt.Errorf("sqlite: decoding progress of %s: %w", userID, err)
	}

	next, err := fn(records)
	if err != nil {
		return nil, err
	}
	if next == nil {
		next = []model.UserProgress{}
	}

	encoded, err := toJSON(next)
	if err != nil {
		return nil, fmt.Errorf("sqlite: encoding progress of %s: %w", userID, err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET progress = ?, updated_at = ? WHERE id = ?`,
		encoded, time.Now().UTC(), userID); err != nil {
		return nil, wrapErr("sqlite: writing progress of "+userID, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, wrapErr("sqlite: committing progress of "+userID, err)
	}
	return next, nil
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		u               model.User
		prefs, progress string
		githubID        sql.NullInt64
		active          int
		lastLogin       sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Mode, &u.Role, &prefs, &progress,
		&githubID, &active, &lastLogin, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.IsActive = active == 1
	u.GitHubID = githubID.Int64
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLoginAt = &t
	}
	if err := fromJSON(prefs, &u.Preferences); err != nil {
		return nil, fmt.Errorf("decoding preferences of %s: %w", u.ID, err)
	}
	if err := fromJSON(progress, &u.Progress); err != nil {
		return nil, fmt.Errorf("decoding progress of %s: %w", u.ID, err)
	}
	if u.Progress == nil {
		u.Progress = []model.UserProgress{}
	}
	return &u, nil
}

// nullGitHubID maps the zero value to NULL so the partial unique index
// only covers linked accounts.
func nullGitHubID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}
