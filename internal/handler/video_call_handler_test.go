package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/Eursukkul/care-booking-service/internal/models"
	"github.com/Eursukkul/care-booking-service/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockVideoCallService struct {
	createFn   func(ctx context.Context, actor models.Actor, in service.CreateVideoCallInput) (*models.VideoCallRequest, error)
	getFn      func(ctx context.Context, actor models.Actor, id string) (*models.VideoCallRequest, error)
	acceptFn   func(ctx context.Context, actor models.Actor, id string, accept bool) (*service.AcceptResult, error)
	joinFn     func(ctx context.Context, actor models.Actor, id string) (*models.VideoCallRequest, error)
	statusFn   func(ctx context.Context, actor models.Actor, id string, status models.VideoCallStatus) (*models.VideoCallRequest, error)
	completeFn func(ctx context.Context, actor models.Actor, id string) (*models.VideoCallRequest, error)
}

func (m *mockVideoCallService) CreateVideoCall(ctx context.Context, actor models.Actor, in service.CreateVideoCallInput) (*models.VideoCallRequest, error) {
	return m.createFn(ctx, actor, in)
}
func (m *mockVideoCallService) GetVideoCall(ctx context.Context, actor models.Actor, id string) (*models.VideoCallRequest, error) {
	return m.getFn(ctx, actor, id)
}
func (m *mockVideoCallService) Accept(ctx context.Context, actor models.Actor, id string, accept bool) (*service.AcceptResult, error) {
	return m.acceptFn(ctx, actor, id, accept)
}
func (m *mockVideoCallService) Join(ctx context.Context, actor models.Actor, id string) (*models.VideoCallRequest, error) {
	return m.joinFn(ctx, actor, id)
}
func (m *mockVideoCallService) UpdateStatus(ctx context.Context, actor models.Actor, id string, status models.VideoCallStatus) (*models.VideoCallRequest, error) {
	return m.statusFn(ctx, actor, id, status)
}
func (m *mockVideoCallService) Complete(ctx context.Context, actor models.Actor, id string) (*models.VideoCallRequest, error) {
	return m.completeFn(ctx, actor, id)
}

func sampleCall(status models.VideoCallStatus) *models.VideoCallRequest {
	return &models.VideoCallRequest{
		ID:              "call-1",
		CareRecipientID: recipientID,
		CaregiverID:     caregiverID,
		ScheduledTime:   time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC),
		DurationSeconds: 15,
		Status:          status,
	}
}

func TestCreateVideoCall_Handler_Success(t *testing.T) {
	var got service.CreateVideoCallInput
	svc := &mockVideoCallService{
		createFn: func(ctx context.Context, actor models.Actor, in service.CreateVideoCallInput) (*models.VideoCallRequest, error) {
			got = in
			return sampleCall(models.CallPending), nil
		},
	}
	body := `{"caregiver_id":"` + caregiverID + `","scheduled_time":"2026-03-12T09:00:00Z"}`
	c, rec := newContext(http.MethodPost, "/api/v1/video-calls", body, &recipient)

	serve(c, NewVideoCallHandler(svc).Create)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, caregiverID, got.CaregiverID)
	assert.Zero(t, got.DurationSeconds)
}

func TestCreateVideoCall_Handler_DurationTooLong(t *testing.T) {
	body := `{"caregiver_id":"` + caregiverID + `","scheduled_time":"2026-03-12T09:00:00Z","duration_seconds":1200}`
	c, rec := newContext(http.MethodPost, "/api/v1/video-calls", body, &recipient)

	serve(c, NewVideoCallHandler(&mockVideoCallService{}).Create)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAcceptVideoCall_Handler_ReturnsProvisionedBooking(t *testing.T) {
	var gotAccept bool
	svc := &mockVideoCallService{
		acceptFn: func(ctx context.Context, actor models.Actor, id string, accept bool) (*service.AcceptResult, error) {
			gotAccept = accept
			chatID := "chat-1"
			b := sampleBooking(models.StatusRequested)
			b.ChatSessionID = &chatID
			return &service.AcceptResult{
				VideoCall: sampleCall(models.CallAccepted),
				Booking:   b,
				Chat:      &models.ChatSession{ID: chatID, CareRecipientID: recipientID, CaregiverID: caregiverID},
			}, nil
		},
	}
	c, rec := newContext(http.MethodPost, "/api/v1/video-calls/call-1/accept", `{"accept":true}`, &caregiver)

	serve(withID(c, "call-1"), NewVideoCallHandler(svc).Accept)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, gotAccept)
	var resp map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp, "video_call")
	assert.Contains(t, resp, "booking")
	assert.Contains(t, resp, "chat_session")
}

func TestAcceptVideoCall_Handler_MissingFlag(t *testing.T) {
	c, rec := newContext(http.MethodPost, "/api/v1/video-calls/call-1/accept", `{}`, &caregiver)

	serve(withID(c, "call-1"), NewVideoCallHandler(&mockVideoCallService{}).Accept)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAcceptVideoCall_Handler_RolledBack(t *testing.T) {
	svc := &mockVideoCallService{
		acceptFn: func(ctx context.Context, actor models.Actor, id string, accept bool) (*service.AcceptResult, error) {
			return nil, &service.Error{Kind: service.ErrDatabase, Msg: "Operation failed and was rolled back", Err: errors.New("boom")}
		},
	}
	c, rec := newContext(http.MethodPost, "/api/v1/video-calls/call-1/accept", `{"accept":true}`, &caregiver)

	serve(withID(c, "call-1"), NewVideoCallHandler(svc).Accept)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Operation failed and was rolled back", decodeMessage(t, rec))
}

func TestUpdateVideoCallStatus_Handler_Finalized(t *testing.T) {
	svc := &mockVideoCallService{
		statusFn: func(ctx context.Context, actor models.Actor, id string, status models.VideoCallStatus) (*models.VideoCallRequest, error) {
			return nil, service.ErrVideoCallFinalized
		},
	}
	c, rec := newContext(http.MethodPatch, "/api/v1/video-calls/call-1/status", `{"status":"in_progress"}`, &caregiver)

	serve(withID(c, "call-1"), NewVideoCallHandler(svc).UpdateStatus)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCompleteVideoCall_Handler(t *testing.T) {
	svc := &mockVideoCallService{
		completeFn: func(ctx context.Context, actor models.Actor, id string) (*models.VideoCallRequest, error) {
			return sampleCall(models.CallCompleted), nil
		},
	}
	c, rec := newContext(http.MethodPost, "/api/v1/video-calls/call-1/complete", "", &recipient)

	serve(withID(c, "call-1"), NewVideoCallHandler(svc).Complete)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp models.VideoCallRequest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, models.CallCompleted, resp.Status)
}

func TestJoinVideoCall_Handler_NotParty(t *testing.T) {
	svc := &mockVideoCallService{
		joinFn: func(ctx context.Context, actor models.Actor, id string) (*models.VideoCallRequest, error) {
			return nil, service.ErrNotParty
		},
	}
	c, rec := newContext(http.MethodPost, "/api/v1/video-calls/call-1/join", "", &caregiver)

	serve(withID(c, "call-1"), NewVideoCallHandler(svc).Join)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
