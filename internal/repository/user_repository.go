package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/office-seat-booking/internal/model"
)

// UserRepo reads and writes the 'users' table.  It is the user directory
// the booking engine consults for batch membership.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,name,email,employee_id,batch,created_at,updated_at"

// GetByID fetches a user by id.  A missing row is model.ErrUserNotFound.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", normalizeEmail(email)))
}

// Upsert creates the user identified by email, or updates name, employee id
// and batch of the existing one.  An employee id already used by another
// user yields ErrConflict.
func (r *UserRepo) Upsert(ctx context.Context, email, name, employeeID string, batch model.Batch) (model.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return model.User{}, fmt.Errorf("%w: email is required", model.ErrValidation)
	}
	if !batch.Valid() {
		return model.User{}, fmt.Errorf("%w: unknown batch %q", model.ErrValidation, batch)
	}
	var empID sql.NullString
	if v := strings.TrimSpace(employeeID); v != "" {
		empID = sql.NullString{String: v, Valid: true}
	}
	now := time.Now().Unix()

	existing, err := r.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, model.ErrUserNotFound):
		_, err = r.DB.ExecContext(ctx,
			"INSERT INTO users (name,email,employee_id,batch,created_at,updated_at) VALUES (?,?,?,?,?,?)",
			strings.TrimSpace(name), email, empID, string(batch), now, now)
	case err != nil:
		return model.User{}, err
	default:
		_, err = r.DB.ExecContext(ctx,
			"UPDATE users SET name=?, employee_id=?, batch=?, updated_at=? WHERE id=?",
			strings.TrimSpace(name), empID, string(batch), now, existing.ID)
	}
	if err != nil {
		if isDuplicate(err) {
			return model.User{}, fmt.Errorf("%w: employee id %q already in use", ErrConflict, empID.String)
		}
		return model.User{}, err
	}
	return r.GetByEmail(ctx, email)
}

func (r *UserRepo) scanOne(row *sql.Row) (model.User, error) {
	var (
		u                    model.User
		empID                sql.NullString
		batch                string
		createdAt, updatedAt int64
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &empID, &batch, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	u.EmployeeID = empID.String
	u.Batch = model.Batch(batch)
	u.CreatedAt = time.Unix(createdAt, 0).UTC()
	u.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
