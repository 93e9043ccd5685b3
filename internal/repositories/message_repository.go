package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"marketplace-chat/internal/models"
)

// foreign_key_violation
const pqForeignKeyViolation = "23503"

const messageColumns = `id, room_id, sender_id, text, attachment, read, created_at`

// MessageRepository defines interactions for chat messages.
type MessageRepository interface {
	Create(ctx context.Context, msg models.Message) (models.Message, error)
	ListByRoom(ctx context.Context, roomID string) ([]models.Message, error)
	LastForRooms(ctx context.Context, roomIDs []string) (map[string]models.Message, error)
	MarkRoomRead(ctx context.Context, roomID, readerID string) (int64, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Create stores a message. A missing room (including one deleted while the
// insert was in flight) is reported as ErrRoomNotFound.
func (r *MessageRepo) Create(ctx context.Context, msg models.Message) (models.Message, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	var stored models.Message
	err := r.db.GetContext(ctx, &stored, `INSERT INTO messages (id, room_id, sender_id, text, attachment, read)
        VALUES ($1, $2, $3, $4, $5, FALSE)
        RETURNING `+messageColumns, msg.ID, msg.RoomID, msg.SenderID, msg.Text, msg.Attachment)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqForeignKeyViolation {
			return models.Message{}, ErrRoomNotFound
		}
		return models.Message{}, err
	}
	return stored, nil
}

// ListByRoom returns the room's messages oldest first.
func (r *MessageRepo) ListByRoom(ctx context.Context, roomID string) ([]models.Message, error) {
	msgs := []models.Message{}
	err := r.db.SelectContext(ctx, &msgs, `SELECT `+messageColumns+` FROM messages
        WHERE room_id=$1
        ORDER BY created_at ASC, seq ASC`, roomID)
	return msgs, err
}

// LastForRooms returns the newest message of each room in one query. Rooms
// without messages are absent from the map.
func (r *MessageRepo) LastForRooms(ctx context.Context, roomIDs []string) (map[string]models.Message, error) {
	result := make(map[string]models.Message, len(roomIDs))
	if len(roomIDs) == 0 {
		return result, nil
	}

	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, `SELECT DISTINCT ON (room_id) `+messageColumns+` FROM messages
        WHERE room_id = ANY($1::uuid[])
        ORDER BY room_id, created_at DESC, seq DESC`, pq.Array(roomIDs))
	if err != nil {
		return nil, err
	}
	for _, msg := range msgs {
		result[msg.RoomID] = msg
	}
	return result, nil
}

// MarkRoomRead flags every message in the room not sent by readerID as read.
func (r *MessageRepo) MarkRoomRead(ctx context.Context, roomID, readerID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET read=TRUE WHERE room_id=$1 AND sender_id<>$2 AND read=FALSE`, roomID, readerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
