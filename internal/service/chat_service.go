package service

import (
	"context"
	"time"

	"github.com/Eursukkul/care-booking-service/internal/models"
	"github.com/Eursukkul/care-booking-service/internal/notification"
	"github.com/Eursukkul/care-booking-service/internal/repository"
	"gorm.io/gorm"
)

type ChatService interface {
	GetChat(ctx context.Context, actor models.Actor, id string) (*models.ChatSession, error)
	AcceptChat(ctx context.Context, actor models.Actor, id string, accept bool) (*models.ChatSession, error)
}

type chatService struct {
	Deps
}

func NewChatService(deps Deps) ChatService {
	return &chatService{Deps: deps.withDefaults()}
}

func (s *chatService) GetChat(ctx context.Context, actor models.Actor, id string) (*models.ChatSession, error) {
	chat, err := s.Chats.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrChatNotFound
		}
		return nil, dbError("load chat session", err)
	}
	if !chat.IsParty(actor.ID) {
		return nil, ErrNotParty
	}
	return chat, nil
}

// AcceptChat records one party's consent. The session is enabled once both
// parties have accepted; an enabled session is left untouched.
func (s *chatService) AcceptChat(ctx context.Context, actor models.Actor, id string, accept bool) (*models.ChatSession, error) {
	var (
		chat       *models.ChatSession
		nowEnabled bool
	)
	err := s.Tx.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		chat, err = s.Chats.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrChatNotFound
			}
			return dbError("load chat session", err)
		}
		if !chat.IsParty(actor.ID) {
			return ErrNotParty
		}
		if chat.IsEnabled {
			return nil
		}

		now := s.Clock.Now()
		fields := map[string]any{"updated_at": now}
		if actor.ID == chat.CareRecipientID {
			chat.CareRecipientAccepted = accept
			fields["care_recipient_accepted"] = accept
		} else {
			chat.CaregiverAccepted = accept
			fields["caregiver_accepted"] = accept
		}
		if chat.CareRecipientAccepted && chat.CaregiverAccepted {
			chat.IsEnabled = true
			chat.EnabledAt = &now
			fields["is_enabled"] = true
			fields["enabled_at"] = now
			nowEnabled = true
		}
		return classify("update chat session", s.Chats.UpdateFields(ctx, tx, chat.ID, fields))
	})
	if err != nil {
		return nil, classify("accept chat", err)
	}

	if nowEnabled {
		s.notify(ctx,
			notification.ChatEnabled(chat.CareRecipientID, chat.ID),
			notification.ChatEnabled(chat.CaregiverID, chat.ID),
		)
	}
	return chat, nil
}

// findOrCreateChat returns the pair's chat session, creating a disabled one
// on first use. A concurrent creator losing the unique index race re-reads.
func findOrCreateChat(ctx context.Context, chats repository.ChatRepository, tx *gorm.DB, recipientID, caregiverID string, videoCallID *string) (*models.ChatSession, error) {
	chat, err := chats.FindByPair(ctx, tx, recipientID, caregiverID)
	if err == nil {
		return chat, nil
	}
	if !repository.IsNotFound(err) {
		return nil, dbError("load chat session", err)
	}

	chat = &models.ChatSession{
		CareRecipientID:    recipientID,
		CaregiverID:        caregiverID,
		VideoCallRequestID: videoCallID,
	}
	if err := chats.Create(ctx, tx, chat); err != nil {
		if repository.IsUniqueViolation(err) && tx == nil {
			if existing, ferr := chats.FindByPair(ctx, nil, recipientID, caregiverID); ferr == nil {
				return existing, nil
			}
		}
		return nil, dbError("create chat session", err)
	}
	return chat, nil
}

// forceEnableChat enables the pair's chat and records both parties as
// accepted. Used once payment is confirmed.
func forceEnableChat(ctx context.Context, chats repository.ChatRepository, tx *gorm.DB, recipientID, caregiverID string, videoCallID *string, now time.Time) (*models.ChatSession, bool, error) {
	chat, err := findOrCreateChat(ctx, chats, tx, recipientID, caregiverID, videoCallID)
	if err != nil {
		return nil, false, err
	}
	if chat.IsEnabled && chat.CareRecipientAccepted && chat.CaregiverAccepted {
		return chat, false, nil
	}
	fields := map[string]any{
		"is_enabled":              true,
		"care_recipient_accepted": true,
		"caregiver_accepted":      true,
		"updated_at":              now,
	}
	if chat.EnabledAt == nil {
		fields["enabled_at"] = now
		chat.EnabledAt = &now
	}
	chat.IsEnabled = true
	chat.CareRecipientAccepted = true
	chat.CaregiverAccepted = true
	if err := chats.UpdateFields(ctx, tx, chat.ID, fields); err != nil {
		return nil, false, dbError("enable chat session", err)
	}
	return chat, true, nil
}
