package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"taskflow/internal/models"
	"taskflow/pkg/logger"
)

const userColumns = `id, email, name, password, email_verified, verification_token, verification_expiry, created_at, updated_at`

// Users provides database access for user records.
type Users struct {
	db *sql.DB
}

// NewUsers returns a user repository over the given pool.
func NewUsers(db *sql.DB) *Users {
	return &Users{db: db}
}

// Create inserts a new user. The caller supplies the hashed password and
// verification token.
func (r *Users) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		user.ID, user.Email, user.Name, user.Password, user.EmailVerified,
		user.VerificationToken, user.VerificationExpiry, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		logger.Error(ctx, "Repository create user failed", "error", err)
		return err
	}
	return nil
}

// FindByEmail returns the user with the given email, or nil when absent.
func (r *Users) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// FindByID returns the user with the given id, or nil when absent.
func (r *Users) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// FindByVerificationToken returns the user holding the given verification
// token, or nil when absent.
func (r *Users) FindByVerificationToken(ctx context.Context, token string) (*models.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE verification_token = $1`, token)
}

func (r *Users) findOne(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	var u models.User
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Email, &u.Name, &u.Password, &u.EmailVerified,
		&u.VerificationToken, &u.VerificationExpiry, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		logger.Error(ctx, "Repository find user failed", "error", err)
		return nil, err
	}
	return &u, nil
}

// FindAll returns the public view of every user, ordered by name. Used by
// the assignment dropdown.
func (r *Users) FindAll(ctx context.Context) ([]models.PublicUser, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, email, name FROM users ORDER BY name ASC`)
	if err != nil {
		logger.Error(ctx, "Repository list users failed", "error", err)
		return nil, err
	}
	defer rows.Close()
	var users []models.PublicUser
	for rows.Next() {
		var u models.PublicUser
		if err := rows.Scan(&u.ID, &u.Email, &u.Name); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateName updates the display name and returns the fresh record.
func (r *Users) UpdateName(ctx context.Context, id, name string) (*models.User, error) {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET name = $1, updated_at = $2 WHERE id = $3`, name, time.Now(), id)
	if err != nil {
		logger.Error(ctx, "Repository update user failed", "error", err, "id", id)
		return nil, err
	}
	return r.FindByID(ctx, id)
}

// MarkVerified flips the verified flag and clears the verification token.
func (r *Users) MarkVerified(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET email_verified = TRUE, verification_token = NULL,
		 verification_expiry = NULL, updated_at = $1 WHERE id = $2`, time.Now(), id)
	if err != nil {
		logger.Error(ctx, "Repository mark verified failed", "error", err, "id", id)
	}
	return err
}

// SetVerificationToken replaces the verification token and its expiry.
func (r *Users) SetVerificationToken(ctx context.Context, id, token string, expiry time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET verification_token = $1, verification_expiry = $2, updated_at = $3 WHERE id = $4`,
		token, expiry, time.Now(), id)
	if err != nil {
		logger.Error(ctx, "Repository set verification token failed", "error", err, "id", id)
	}
	return err
}
