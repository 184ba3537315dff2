package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Eursukkul/care-booking-service/internal/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func (f *fixture) storeChat(c *models.ChatSession) {
	f.chats.findByIDFn = func(ctx context.Context, id string) (*models.ChatSession, error) {
		if id != c.ID {
			return nil, gorm.ErrRecordNotFound
		}
		cp := *c
		return &cp, nil
	}
}

func newChat() *models.ChatSession {
	return &models.ChatSession{ID: "chat-1", CareRecipientID: recipientID, CaregiverID: caregiverID}
}

func TestAcceptChat_EnablesOnceBothAccept(t *testing.T) {
	f := newFixture()
	c := newChat()
	c.CaregiverAccepted = true
	f.storeChat(c)

	got, err := NewChatService(f.deps()).AcceptChat(context.Background(), recipient(), c.ID, true)

	require.NoError(t, err)
	assert.True(t, got.IsEnabled)
	assert.NotNil(t, got.EnabledAt)
	require.Len(t, f.chats.updates, 1)
	assert.Equal(t, true, f.chats.updates[0]["is_enabled"])
	assert.Equal(t, 2, countType(f.notifier.messages, models.NotifyChatSession))
}

func TestAcceptChat_OneSideOnly(t *testing.T) {
	f := newFixture()
	c := newChat()
	f.storeChat(c)

	got, err := NewChatService(f.deps()).AcceptChat(context.Background(), caregiver(), c.ID, true)

	require.NoError(t, err)
	assert.False(t, got.IsEnabled)
	assert.True(t, got.CaregiverAccepted)
	_, enabled := f.chats.updates[0]["is_enabled"]
	assert.False(t, enabled)
	assert.Empty(t, f.notifier.messages)
}

func TestAcceptChat_EnabledSessionUntouched(t *testing.T) {
	f := newFixture()
	c := newChat()
	c.IsEnabled = true
	f.storeChat(c)

	got, err := NewChatService(f.deps()).AcceptChat(context.Background(), caregiver(), c.ID, false)

	require.NoError(t, err)
	assert.True(t, got.IsEnabled)
	assert.Empty(t, f.chats.updates)
}

func TestGetChat_PartiesOnly(t *testing.T) {
	f := newFixture()
	f.storeChat(newChat())
	svc := NewChatService(f.deps())

	_, err := svc.GetChat(context.Background(), models.Actor{ID: strangerID}, "chat-1")
	assert.ErrorIs(t, err, ErrNotParty)

	_, err = svc.GetChat(context.Background(), recipient(), "chat-2")
	assert.ErrorIs(t, err, ErrChatNotFound)
}

func TestFindOrCreateChat_RereadsAfterUniqueViolation(t *testing.T) {
	f := newFixture()
	lookups := 0
	f.chats.findPairFn = func(ctx context.Context, tx *gorm.DB, r, c string) (*models.ChatSession, error) {
		lookups++
		if lookups == 1 {
			return nil, gorm.ErrRecordNotFound
		}
		return &models.ChatSession{ID: "chat-winner", CareRecipientID: r, CaregiverID: c}, nil
	}
	f.chats.createFn = func(ctx context.Context, tx *gorm.DB, chat *models.ChatSession) error {
		return &pgconn.PgError{Code: "23505"}
	}

	chat, err := findOrCreateChat(context.Background(), f.chats, nil, recipientID, caregiverID, nil)

	require.NoError(t, err)
	assert.Equal(t, "chat-winner", chat.ID)
}

func TestForceEnableChat(t *testing.T) {
	f := newFixture()

	chat, changed, err := forceEnableChat(context.Background(), f.chats, nil, recipientID, caregiverID, nil, testNow)

	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, chat.IsEnabled)
	assert.True(t, chat.CareRecipientAccepted)
	assert.True(t, chat.CaregiverAccepted)
	assert.Equal(t, testNow, *chat.EnabledAt)
	require.Len(t, f.chats.updates, 1)
	assert.Equal(t, true, f.chats.updates[0]["care_recipient_accepted"])
	assert.Equal(t, true, f.chats.updates[0]["caregiver_accepted"])

	f.chats.createFn = func(ctx context.Context, tx *gorm.DB, chat *models.ChatSession) error {
		return errors.New("timeout")
	}
	_, _, err = forceEnableChat(context.Background(), f.chats, nil, strangerID, caregiverID, nil, testNow)
	assert.True(t, errors.Is(err, ErrDatabase))
}
