package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"marketplace-chat/internal/models"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrUserNotFound    = errors.New("user not found")
)

// DirectoryRepository reads the user and product records owned by the
// account and listing services.
type DirectoryRepository interface {
	GetProduct(ctx context.Context, productID string) (models.Product, error)
	GetProducts(ctx context.Context, productIDs []string) (map[string]models.Product, error)
	GetUser(ctx context.Context, userID string) (models.User, error)
	GetUsers(ctx context.Context, userIDs []string) (map[string]models.User, error)
	IsBlocked(ctx context.Context, userID, byUserID string) (bool, error)
}

// DirectoryRepo is a read-only sqlx implementation of DirectoryRepository.
type DirectoryRepo struct {
	db *sqlx.DB
}

// NewDirectoryRepo constructs a DirectoryRepo.
func NewDirectoryRepo(db *sqlx.DB) *DirectoryRepo {
	return &DirectoryRepo{db: db}
}

func (r *DirectoryRepo) GetProduct(ctx context.Context, productID string) (models.Product, error) {
	var p models.Product
	err := r.db.GetContext(ctx, &p, `SELECT id, poster_id, title, thumbnail, price::float8 AS price FROM products WHERE id=$1`, productID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Product{}, ErrProductNotFound
	}
	return p, err
}

// GetProducts resolves a batch of products keyed by id. Unknown ids are absent.
func (r *DirectoryRepo) GetProducts(ctx context.Context, productIDs []string) (map[string]models.Product, error) {
	result := make(map[string]models.Product, len(productIDs))
	if len(productIDs) == 0 {
		return result, nil
	}
	var products []models.Product
	err := r.db.SelectContext(ctx, &products, `SELECT id, poster_id, title, thumbnail, price::float8 AS price FROM products WHERE id = ANY($1::uuid[])`, pq.Array(productIDs))
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		result[p.ID] = p
	}
	return result, nil
}

func (r *DirectoryRepo) GetUser(ctx context.Context, userID string) (models.User, error) {
	var u models.User
	err := r.db.GetContext(ctx, &u, `SELECT id, first_name, last_name, email, is_disabled FROM users WHERE id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return u, err
}

// GetUsers resolves a batch of users keyed by id. Unknown ids are absent.
func (r *DirectoryRepo) GetUsers(ctx context.Context, userIDs []string) (map[string]models.User, error) {
	result := make(map[string]models.User, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}
	var users []models.User
	err := r.db.SelectContext(ctx, &users, `SELECT id, first_name, last_name, email, is_disabled FROM users WHERE id = ANY($1::uuid[])`, pq.Array(userIDs))
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		result[u.ID] = u
	}
	return result, nil
}

// IsBlocked reports whether byUserID has blocked userID.
func (r *DirectoryRepo) IsBlocked(ctx context.Context, userID, byUserID string) (bool, error) {
	var blocked bool
	err := r.db.GetContext(ctx, &blocked, `SELECT EXISTS(SELECT 1 FROM user_blocks WHERE user_id=$1 AND blocked_user_id=$2)`, byUserID, userID)
	return blocked, err
}
