package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"imagegen-bot/internal/interfaces"
	"imagegen-bot/internal/models"
)

// Compile-time check to ensure PgUserRepository implements UserStore
var _ interfaces.UserStore = (*PgUserRepository)(nil)

const (
	createUserQuery        = `INSERT INTO users (id, username, password) VALUES ($1, $2, $3) RETURNING id::text AS id, username, password`
	getUserByIDQuery       = `SELECT id::text AS id, username, password FROM users WHERE id = $1`
	getUserByUsernameQuery = `SELECT id::text AS id, username, password FROM users WHERE username = $1`
)

type PgUserRepository struct {
	db     DBTX
	logger *zap.Logger
}

// NewPgUserRepository creates a new PostgreSQL-backed UserStore.
func NewPgUserRepository(db DBTX, logger *zap.Logger) *PgUserRepository {
	return &PgUserRepository{
		db:     db,
		logger: logger.Named("PgUserRepo"),
	}
}

// CreateUser inserts a new user into the database.
func (r *PgUserRepository) CreateUser(ctx context.Context, username, passwordHash string) (*models.UserAccount, error) {
	if username == "" {
		return nil, models.ErrInvalidInput
	}

	user := &models.UserAccount{}
	err := pgxscan.Get(ctx, r.db, user, createUserQuery, uuid.New(), username, passwordHash)
	if err != nil {
		var pgErr *pgconn.PgError
		// 23505 is unique_violation
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			r.logger.Warn("Attempted to create duplicate user by username", zap.String("username", username))
			return nil, models.ErrUserAlreadyExists
		}
		r.logger.Error("Failed to create user in postgres", zap.String("username", username), zap.Error(err))
		return nil, fmt.Errorf("failed to create user in postgres: %w", err)
	}
	r.logger.Info("User created successfully", zap.String("userID", user.ID), zap.String("username", username))
	return user, nil
}

// GetUser retrieves a user by ID.
func (r *PgUserRepository) GetUser(ctx context.Context, id string) (*models.UserAccount, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, models.ErrUserNotFound
	}
	return r.getOne(ctx, getUserByIDQuery, uid)
}

// GetUserByUsername retrieves a user by their username.
func (r *PgUserRepository) GetUserByUsername(ctx context.Context, username string) (*models.UserAccount, error) {
	return r.getOne(ctx, getUserByUsernameQuery, username)
}

func (r *PgUserRepository) getOne(ctx context.Context, query string, arg interface{}) (*models.UserAccount, error) {
	user := &models.UserAccount{}
	if err := pgxscan.Get(ctx, r.db, user, query, arg); err != nil {
		if pgxscan.NotFound(err) {
			return nil, models.ErrUserNotFound
		}
		r.logger.Error("Failed to get user from postgres", zap.Error(err))
		return nil, fmt.Errorf("failed to get user from postgres: %w", err)
	}
	return user, nil
}
