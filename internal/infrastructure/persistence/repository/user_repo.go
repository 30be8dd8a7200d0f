package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/garyjia/expense-approval/internal/domain/entity"
	"github.com/garyjia/expense-approval/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// UserRepository implements port.UserRepository
type UserRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB, logger *zap.Logger) port.UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

const userColumns = `
	id, company_id, name, email, role, manager_id, created_at`

// GetByID retrieves a user by ID. Returns nil when absent.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	query := `SELECT` + userColumns + ` FROM users WHERE id = ?`

	user, err := scanUserFields(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get user by ID",
			zap.Int64("id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// GetByRole returns company members holding role, ordered by id ascending
func (r *UserRepository) GetByRole(ctx context.Context, companyID int64, role string) ([]*entity.User, error) {
	query := `SELECT` + userColumns + `
		FROM users
		WHERE company_id = ? AND role = ?
		ORDER BY id ASC`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, companyID, role)
	if err != nil {
		r.logger.Error("Failed to get users by role",
			zap.Int64("company_id", companyID),
			zap.String("role", role),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get users by role: %w", err)
	}
	defer rows.Close()

	var users []*entity.User
	for rows.Next() {
		user, err := scanUserFields(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

func scanUserFields(row rowScanner) (*entity.User, error) {
	var user entity.User
	var managerID sql.NullInt64

	err := row.Scan(
		&user.ID,
		&user.CompanyID,
		&user.Name,
		&user.Email,
		&user.Role,
		&managerID,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if managerID.Valid {
		user.ManagerID = &managerID.Int64
	}

	return &user, nil
}

// getExecutor returns appropriate executor based on context
func (r *UserRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFrom(ctx, r.db)
}

// Verify interface compliance
var _ port.UserRepository = (*UserRepository)(nil)
