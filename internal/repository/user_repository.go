package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/listing-booking/internal/model"
	"github.com/iliyamo/listing-booking/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userCols = `id, public_id, email, password_hash, roles, is_active, created_at, updated_at`

// Create hashes password, inserts the user with a fresh public id and
// returns the stored row.
func (r *UserRepo) Create(ctx context.Context, email, password string, roles []model.Role, cost int) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return model.User{}, err
	}
	if len(roles) == 0 {
		roles = []model.Role{model.RoleTenant}
	}
	publicID := uuid.New()
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (public_id, email, password_hash, roles) VALUES (?,?,?,?)",
		publicID.String(), email, hash, model.JoinRoles(roles))
	if err != nil {
		if mysqlErrNo(err) == errDupEntry {
			return model.User{}, ErrEmailExists
		}
		return model.User{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.User{}, err
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE id=? LIMIT 1", id))
}

func scanUser(row *sql.Row) (model.User, error) {
	var (
		u     model.User
		roles string
	)
	err := row.Scan(&u.ID, &u.PublicID, &u.Email, &u.PasswordHash, &roles, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	u.Roles = model.ParseRoles(roles)
	return u, nil
}
