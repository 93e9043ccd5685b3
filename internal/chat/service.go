// Package chat owns room membership and the message ingest pipeline.
package chat

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"marketplace-chat/internal/broadcast"
	"marketplace-chat/internal/models"
	"marketplace-chat/internal/policy"
	"marketplace-chat/internal/repositories"
	"marketplace-chat/internal/storage"
	"marketplace-chat/internal/telemetry"
)

// Notifier records message notifications for room members.
type Notifier interface {
	NotifyMessage(ctx context.Context, room models.Room, msg models.Message, sender models.User) int
}

// Auditor records moderation-relevant actions.
type Auditor interface {
	Emit(ctx context.Context, rec telemetry.AuditRecord)
}

// Options are the tunable business rules.
type Options struct {
	// RejectSelfChat refuses a chat opened by a seller on their own listing.
	// When false such a room is created with both members equal.
	RejectSelfChat bool
	// EnforceBlocks refuses a chat when the seller has blocked the buyer.
	EnforceBlocks      bool
	MaxAttachmentBytes int64
}

// Deps are the collaborators of Service. Uploader, Notifier, Broadcaster and
// Auditor may be nil.
type Deps struct {
	Rooms       repositories.RoomRepository
	Messages    repositories.MessageRepository
	Directory   repositories.DirectoryRepository
	Filter      *policy.Filter
	Uploader    storage.Uploader
	Notifier    Notifier
	Broadcaster broadcast.Broadcaster
	Auditor     Auditor
	Logger      *slog.Logger
}

type Service struct {
	rooms       repositories.RoomRepository
	messages    repositories.MessageRepository
	directory   repositories.DirectoryRepository
	filter      *policy.Filter
	uploader    storage.Uploader
	notifier    Notifier
	broadcaster broadcast.Broadcaster
	auditor     Auditor
	logger      *slog.Logger
	tracer      trace.Tracer
	opts        Options
}

func NewService(deps Deps, opts Options) *Service {
	if deps.Filter == nil {
		deps.Filter = policy.NewFilter(policy.DefaultOptions())
	}
	if opts.MaxAttachmentBytes <= 0 {
		opts.MaxAttachmentBytes = 50 << 20
	}
	return &Service{
		rooms:       deps.Rooms,
		messages:    deps.Messages,
		directory:   deps.Directory,
		filter:      deps.Filter,
		uploader:    deps.Uploader,
		notifier:    deps.Notifier,
		broadcaster: deps.Broadcaster,
		auditor:     deps.Auditor,
		logger:      deps.Logger,
		tracer:      otel.Tracer("marketplace-chat/chat"),
		opts:        opts,
	}
}

func (s *Service) audit(ctx context.Context, rec telemetry.AuditRecord) {
	if s.auditor != nil {
		s.auditor.Emit(ctx, rec)
	}
}

// validID reports whether id can name a stored row. Ids are UUIDs, so
// anything else cannot exist.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// resolveUsers loads display projections for ids. A lookup failure degrades
// to id-only projections.
func (s *Service) resolveUsers(ctx context.Context, ids []string) map[string]models.UserRef {
	refs := make(map[string]models.UserRef, len(ids))
	users, err := s.directory.GetUsers(ctx, ids)
	if err != nil {
		s.logger.Warn("user lookup failed", "user_ids", ids, "error", err)
	}
	for _, id := range ids {
		if u, ok := users[id]; ok {
			refs[id] = u.Ref()
		} else {
			refs[id] = models.UserRef{ID: id}
		}
	}
	return refs
}

func roomView(room models.Room, refs map[string]models.UserRef) models.RoomView {
	members := make([]models.UserRef, 0, 2)
	for _, id := range room.Members() {
		members = append(members, refs[id])
	}
	return models.RoomView{
		ID:          room.ID,
		Product:     room.ProductID,
		Members:     members,
		LastMessage: room.LastMessage,
		CreatedAt:   room.CreatedAt,
		UpdatedAt:   room.UpdatedAt,
	}
}

func uniq(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
