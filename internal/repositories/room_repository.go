package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"marketplace-chat/internal/models"
)

var ErrRoomNotFound = errors.New("room not found")

const roomColumns = `id, product_id, buyer_id, seller_id, last_message, created_at, updated_at`

// RoomRepository abstracts chat room persistence.
type RoomRepository interface {
	FindOrCreate(ctx context.Context, productID, buyerID, sellerID string) (models.Room, bool, error)
	Get(ctx context.Context, roomID string) (models.Room, error)
	ListForUser(ctx context.Context, userID string) ([]models.Room, error)
	IsMember(ctx context.Context, roomID, userID string) (bool, error)
	UpdateLastMessage(ctx context.Context, roomID, summary string) error
	Delete(ctx context.Context, roomID string) (int64, error)
}

// RoomRepo is a sqlx implementation of RoomRepository.
type RoomRepo struct {
	db *sqlx.DB
}

// NewRoomRepo constructs a RoomRepo.
func NewRoomRepo(db *sqlx.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

// FindOrCreate returns the room for the product and unordered member pair,
// creating it with members [buyer, seller] when absent. The bool reports
// whether this call created it.
func (r *RoomRepo) FindOrCreate(ctx context.Context, productID, buyerID, sellerID string) (models.Room, bool, error) {
	var room models.Room
	err := r.db.GetContext(ctx, &room, `SELECT `+roomColumns+` FROM rooms
        WHERE product_id=$1 AND member_low=LEAST($2::uuid, $3::uuid) AND member_high=GREATEST($2::uuid, $3::uuid)`,
		productID, buyerID, sellerID)
	if err == nil {
		return room, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Room{}, false, err
	}

	err = r.db.GetContext(ctx, &room, `INSERT INTO rooms (id, product_id, buyer_id, seller_id)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT ON CONSTRAINT rooms_product_members_key DO NOTHING
        RETURNING `+roomColumns, uuid.NewString(), productID, buyerID, sellerID)
	if err == nil {
		return room, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Room{}, false, err
	}

	// lost the race to a concurrent init; the winner's row is committed
	err = r.db.GetContext(ctx, &room, `SELECT `+roomColumns+` FROM rooms
        WHERE product_id=$1 AND member_low=LEAST($2::uuid, $3::uuid) AND member_high=GREATEST($2::uuid, $3::uuid)`,
		productID, buyerID, sellerID)
	if err != nil {
		return models.Room{}, false, fmt.Errorf("re-read room after conflict: %w", err)
	}
	return room, false, nil
}

// Get fetches a room by id.
func (r *RoomRepo) Get(ctx context.Context, roomID string) (models.Room, error) {
	var room models.Room
	err := r.db.GetContext(ctx, &room, `SELECT `+roomColumns+` FROM rooms WHERE id=$1`, roomID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Room{}, ErrRoomNotFound
	}
	return room, err
}

// ListForUser returns every room the user belongs to, most recently active first.
func (r *RoomRepo) ListForUser(ctx context.Context, userID string) ([]models.Room, error) {
	var rooms []models.Room
	err := r.db.SelectContext(ctx, &rooms, `SELECT `+roomColumns+` FROM rooms
        WHERE buyer_id=$1 OR seller_id=$1
        ORDER BY updated_at DESC`, userID)
	return rooms, err
}

// IsMember checks whether a user belongs to the room.
func (r *RoomRepo) IsMember(ctx context.Context, roomID, userID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM rooms WHERE id=$1 AND (buyer_id=$2 OR seller_id=$2))`, roomID, userID)
	return exists, err
}

// UpdateLastMessage sets the room summary and bumps updated_at.
func (r *RoomRepo) UpdateLastMessage(ctx context.Context, roomID, summary string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE rooms SET last_message=$2, updated_at=NOW() WHERE id=$1`, roomID, summary)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrRoomNotFound
	}
	return nil
}

// Delete removes the room and all of its messages in one transaction and
// returns how many messages went with it. The room row is locked first so
// a concurrent insert either commits before the delete or fails its
// foreign key afterwards.
func (r *RoomRepo) Delete(ctx context.Context, roomID string) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var id string
	if err := tx.GetContext(ctx, &id, `SELECT id FROM rooms WHERE id=$1 FOR UPDATE`, roomID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrRoomNotFound
		}
		return 0, err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE room_id=$1`, roomID)
	if err != nil {
		return 0, fmt.Errorf("delete messages: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM rooms WHERE id=$1`, roomID); err != nil {
		return 0, fmt.Errorf("delete room: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return removed, nil
}
