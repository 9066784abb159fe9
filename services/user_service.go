package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"scoutQuestAPI/internal/apperr"
	"scoutQuestAPI/internal/types/scout"
)

type UserService struct {
	db *pgxpool.Pool
}

func NewUserService(db *pgxpool.Pool) *UserService {
	return &UserService{db: db}
}

const accountColumns = `id, clerk_id, email, username, first_name, last_name, image_url, role, group_id, points, email_verified, created_at, updated_at`

func scanAccount(row pgx.Row) (*scout.Account, error) {
	a := &scout.Account{}
	err := row.Scan(
		&a.ID,
		&a.ClerkID,
		&a.Email,
		&a.Username,
		&a.FirstName,
		&a.LastName,
		&a.ImageURL,
		&a.Role,
		&a.GroupID,
		&a.Points,
		&a.EmailVerified,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *UserService) CreateAccount(ctx context.Context, req *scout.CreateAccountRequest) (*scout.Account, error) {
	role := req.Role
	if role == "" {
		role = scout.RoleScout
	}
	if !role.Valid() {
		return nil, apperr.InvalidArgumentf("unknown role %q", req.Role)
	}

	var groupID *uuid.UUID
	if req.GroupID != "" {
		parsed, err := uuid.Parse(req.GroupID)
		if err != nil {
			return nil, apperr.InvalidArgumentf("invalid group id %q", req.GroupID)
		}
		groupID = &parsed
	}

	query := `
	INSERT INTO users (id, clerk_id, email, username, first_name, last_name, image_url, role, group_id, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
	RETURNING ` + accountColumns

	var imageURL *string
	if req.ImageURL != "" {
		imageURL = &req.ImageURL
	}

	account, err := scanAccount(s.db.QueryRow(
		ctx,
		query,
		uuid.New(),
		req.ClerkID,
		req.Email,
		req.Username,
		req.FirstName,
		req.LastName,
		imageURL,
		role,
		groupID,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return account, nil
}

func (s *UserService) GetByClerkID(ctx context.Context, clerkID string) (*scout.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM users WHERE clerk_id = $1`

	account, err := scanAccount(s.db.QueryRow(ctx, query, clerkID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFoundf("no account for clerk id %s", clerkID)
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return account, nil
}

func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*scout.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM users WHERE id = $1`

	account, err := scanAccount(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFoundf("no account %s", id)
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return account, nil
}

func (s *UserService) UpdateProfileByClerkID(ctx context.Context, clerkID string, req *scout.UpdateProfileRequest) (*scout.Account, error) {
	query := `
	UPDATE users
	SET
		username = COALESCE(NULLIF($2, ''), username),
		first_name = COALESCE(NULLIF($3, ''), first_name),
		last_name = COALESCE(NULLIF($4, ''), last_name),
		image_url = COALESCE(NULLIF($5, ''), image_url),
		updated_at = NOW()
	WHERE clerk_id = $1
	RETURNING ` + accountColumns

	account, err := scanAccount(s.db.QueryRow(ctx, query, clerkID, req.Username, req.FirstName, req.LastName, req.ImageURL))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFoundf("no account for clerk id %s", clerkID)
		}
		return nil, fmt.Errorf("failed to update account: %w", err)
	}

	return account, nil
}

func (s *UserService) DeleteByClerkID(ctx context.Context, clerkID string) error {
	result, err := s.db.Exec(ctx, `DELETE FROM users WHERE clerk_id = $1`, clerkID)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFoundf("no account for clerk id %s", clerkID)
	}
	return nil
}

func (s *UserService) UpdateEmailVerification(ctx context.Context, clerkID string, verified bool) error {
	_, err := s.db.Exec(ctx, `UPDATE users SET email_verified = $2, updated_at = NOW() WHERE clerk_id = $1`, clerkID, verified)
	return err
}

// TouchUpdatedAt exists for the account sync webhook, which may receive
// user.updated events carrying no profile fields we track.
func (s *UserService) TouchUpdatedAt(ctx context.Context, clerkID string, at time.Time) error {
	_, err := s.db.Exec(ctx, `UPDATE users SET updated_at = $2 WHERE clerk_id = $1`, clerkID, at)
	return err
}
