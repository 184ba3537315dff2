package service

import (
	"context"
	"sync"
	"time"

	"github.com/Eursukkul/care-booking-service/internal/models"
	"github.com/Eursukkul/care-booking-service/internal/notification"
	"github.com/Eursukkul/care-booking-service/pkg/clock"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

const (
	recipientID = "11111111-1111-1111-1111-111111111111"
	caregiverID = "22222222-2222-2222-2222-222222222222"
	strangerID  = "33333333-3333-3333-3333-333333333333"
)

// --- Mock Transactor ---

type mockTx struct {
	calls int
}

func (m *mockTx) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	m.calls++
	return fn(nil)
}

// --- Mock UserRepository ---

type mockUserRepo struct {
	findByIDFn func(ctx context.Context, id string) (*models.User, error)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return &models.User{ID: id, Role: models.RoleCaregiver, IsActive: true}, nil
}

// --- Mock CaregiverRepository ---

type mockCaregiverRepo struct {
	profile  models.CaregiverProfile
	lockErr  error
	locks    int
	setCalls []models.Availability
}

func (m *mockCaregiverRepo) FindProfile(ctx context.Context, userID string) (*models.CaregiverProfile, error) {
	p := m.profile
	p.UserID = userID
	return &p, nil
}
func (m *mockCaregiverRepo) LockProfile(ctx context.Context, tx *gorm.DB, userID string) (*models.CaregiverProfile, error) {
	m.locks++
	if m.lockErr != nil {
		return nil, m.lockErr
	}
	p := m.profile
	p.UserID = userID
	if p.AvailabilityStatus == "" {
		p.AvailabilityStatus = models.AvailabilityAvailable
	}
	return &p, nil
}
func (m *mockCaregiverRepo) SetAvailability(ctx context.Context, tx *gorm.DB, userID string, status models.Availability) error {
	m.setCalls = append(m.setCalls, status)
	m.profile.AvailabilityStatus = status
	return nil
}

// --- Mock BookingRepository ---

type mockBookingRepo struct {
	createFn          func(ctx context.Context, tx *gorm.DB, b *models.Booking) error
	findByIDFn        func(ctx context.Context, id string) (*models.Booking, error)
	findForUpdateFn   func(ctx context.Context, tx *gorm.DB, id string) (*models.Booking, error)
	findByVideoCallFn func(ctx context.Context, tx *gorm.DB, videoCallID string) (*models.Booking, error)
	findOverlapFn     func(ctx context.Context, tx *gorm.DB, caregiverID string, start, end time.Time, excludeID string) ([]models.Booking, error)
	countBlockingFn   func(ctx context.Context, tx *gorm.DB, caregiverID string) (int64, error)
	listByCallsFn     func(ctx context.Context, tx *gorm.DB, ids []string) ([]models.Booking, error)
	listForUserFn     func(ctx context.Context, userID string, status *models.BookingStatus) ([]models.Booking, error)
	updateFn          func(ctx context.Context, tx *gorm.DB, id string, fields map[string]any) error

	created []*models.Booking
	updates []map[string]any
}

func (m *mockBookingRepo) Create(ctx context.Context, tx *gorm.DB, b *models.Booking) error {
	if m.createFn != nil {
		if err := m.createFn(ctx, tx, b); err != nil {
			return err
		}
	}
	if b.ID == "" {
		b.ID = "booking-new"
	}
	m.created = append(m.created, b)
	return nil
}
func (m *mockBookingRepo) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}
func (m *mockBookingRepo) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id string) (*models.Booking, error) {
	if m.findForUpdateFn != nil {
		return m.findForUpdateFn(ctx, tx, id)
	}
	return m.FindByID(ctx, id)
}
func (m *mockBookingRepo) FindByVideoCall(ctx context.Context, tx *gorm.DB, videoCallID string) (*models.Booking, error) {
	if m.findByVideoCallFn != nil {
		return m.findByVideoCallFn(ctx, tx, videoCallID)
	}
	return nil, gorm.ErrRecordNotFound
}
func (m *mockBookingRepo) FindOverlapping(ctx context.Context, tx *gorm.DB, caregiverID string, start, end time.Time, excludeID string) ([]models.Booking, error) {
	if m.findOverlapFn != nil {
		return m.findOverlapFn(ctx, tx, caregiverID, start, end, excludeID)
	}
	return nil, nil
}
func (m *mockBookingRepo) CountBlocking(ctx context.Context, tx *gorm.DB, caregiverID string) (int64, error) {
	if m.countBlockingFn != nil {
		return m.countBlockingFn(ctx, tx, caregiverID)
	}
	return 0, nil
}
func (m *mockBookingRepo) ListByVideoCalls(ctx context.Context, tx *gorm.DB, ids []string) ([]models.Booking, error) {
	if m.listByCallsFn != nil {
		return m.listByCallsFn(ctx, tx, ids)
	}
	return nil, nil
}
func (m *mockBookingRepo) ListForUser(ctx context.Context, userID string, status *models.BookingStatus) ([]models.Booking, error) {
	if m.listForUserFn != nil {
		return m.listForUserFn(ctx, userID, status)
	}
	return nil, nil
}
func (m *mockBookingRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id string, fields map[string]any) error {
	if m.updateFn != nil {
		if err := m.updateFn(ctx, tx, id, fields); err != nil {
			return err
		}
	}
	m.updates = append(m.updates, fields)
	return nil
}

// --- Mock HistoryRepository ---

type mockHistoryRepo struct {
	appendErr error
	entries   []models.BookingHistory
}

func (m *mockHistoryRepo) Append(ctx context.Context, tx *gorm.DB, entry *models.BookingHistory) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.entries = append(m.entries, *entry)
	return nil
}
func (m *mockHistoryRepo) ListByBooking(ctx context.Context, bookingID string) ([]models.BookingHistory, error) {
	var out []models.BookingHistory
	for _, e := range m.entries {
		if e.BookingID == bookingID {
			out = append(out, e)
		}
	}
	return out, nil
}

// --- Mock NoteRepository ---

type mockNoteRepo struct {
	notes []models.BookingNote
}

func (m *mockNoteRepo) Create(ctx context.Context, note *models.BookingNote) error {
	note.ID = "note-" + note.UserID
	m.notes = append(m.notes, *note)
	return nil
}
func (m *mockNoteRepo) ListByBooking(ctx context.Context, bookingID, viewerID string) ([]models.BookingNote, error) {
	var out []models.BookingNote
	for _, n := range m.notes {
		if n.BookingID == bookingID && (!n.IsPrivate || n.UserID == viewerID) {
			out = append(out, n)
		}
	}
	return out, nil
}

// --- Mock VideoCallRepository ---

type mockVideoCallRepo struct {
	createFn     func(ctx context.Context, call *models.VideoCallRequest) error
	findByIDFn   func(ctx context.Context, id string) (*models.VideoCallRequest, error)
	latestFn     func(ctx context.Context, recipientID, caregiverID string) (*models.VideoCallRequest, error)
	listActiveFn func(ctx context.Context, tx *gorm.DB, caregiverID string) ([]models.VideoCallRequest, error)
	updateFn     func(ctx context.Context, tx *gorm.DB, id string, fields map[string]any) error

	created []*models.VideoCallRequest
	updates []map[string]any
}

func (m *mockVideoCallRepo) Create(ctx context.Context, call *models.VideoCallRequest) error {
	if m.createFn != nil {
		if err := m.createFn(ctx, call); err != nil {
			return err
		}
	}
	m.created = append(m.created, call)
	return nil
}
func (m *mockVideoCallRepo) FindByID(ctx context.Context, id string) (*models.VideoCallRequest, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}
func (m *mockVideoCallRepo) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id string) (*models.VideoCallRequest, error) {
	return m.FindByID(ctx, id)
}
func (m *mockVideoCallRepo) FindLatestAccepted(ctx context.Context, recipientID, caregiverID string) (*models.VideoCallRequest, error) {
	if m.latestFn != nil {
		return m.latestFn(ctx, recipientID, caregiverID)
	}
	return nil, gorm.ErrRecordNotFound
}
func (m *mockVideoCallRepo) ListActiveForCaregiver(ctx context.Context, tx *gorm.DB, caregiverID string) ([]models.VideoCallRequest, error) {
	if m.listActiveFn != nil {
		return m.listActiveFn(ctx, tx, caregiverID)
	}
	return nil, nil
}
func (m *mockVideoCallRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id string, fields map[string]any) error {
	if m.updateFn != nil {
		if err := m.updateFn(ctx, tx, id, fields); err != nil {
			return err
		}
	}
	m.updates = append(m.updates, fields)
	return nil
}

// --- Mock ChatRepository ---

type mockChatRepo struct {
	createFn   func(ctx context.Context, tx *gorm.DB, chat *models.ChatSession) error
	findByIDFn func(ctx context.Context, id string) (*models.ChatSession, error)
	findPairFn func(ctx context.Context, tx *gorm.DB, recipientID, caregiverID string) (*models.ChatSession, error)

	created []*models.ChatSession
	updates []map[string]any
}

func (m *mockChatRepo) Create(ctx context.Context, tx *gorm.DB, chat *models.ChatSession) error {
	if m.createFn != nil {
		if err := m.createFn(ctx, tx, chat); err != nil {
			return err
		}
	}
	if chat.ID == "" {
		chat.ID = "chat-new"
	}
	m.created = append(m.created, chat)
	return nil
}
func (m *mockChatRepo) FindByID(ctx context.Context, id string) (*models.ChatSession, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}
func (m *mockChatRepo) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id string) (*models.ChatSession, error) {
	return m.FindByID(ctx, id)
}
func (m *mockChatRepo) FindByPair(ctx context.Context, tx *gorm.DB, recipientID, caregiverID string) (*models.ChatSession, error) {
	if m.findPairFn != nil {
		return m.findPairFn(ctx, tx, recipientID, caregiverID)
	}
	return nil, gorm.ErrRecordNotFound
}
func (m *mockChatRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id string, fields map[string]any) error {
	m.updates = append(m.updates, fields)
	return nil
}

// --- Mock ConsumedEventRepository ---

type mockConsumedRepo struct {
	seen map[string]bool
}

func (m *mockConsumedRepo) Exists(ctx context.Context, tx *gorm.DB, id string) (bool, error) {
	return m.seen[id], nil
}
func (m *mockConsumedRepo) Record(ctx context.Context, tx *gorm.DB, event *models.ConsumedEvent) error {
	if m.seen == nil {
		m.seen = map[string]bool{}
	}
	m.seen[event.ID] = true
	return nil
}

// --- Recording collaborators ---

type recordingNotifier struct {
	mu       sync.Mutex
	messages []notification.Message
	statuses []models.BookingStatus
}

func (r *recordingNotifier) Dispatch(ctx context.Context, msgs ...notification.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msgs...)
}
func (r *recordingNotifier) DispatchBookingStatus(ctx context.Context, bookingID string, status models.BookingStatus, userIDs ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, status)
}

type recordingPublisher struct {
	keys []string
}

func (r *recordingPublisher) PublishJSON(ctx context.Context, routingKey string, payload any) error {
	r.keys = append(r.keys, routingKey)
	return nil
}

type mockAvailability struct {
	calls []string
}

func (m *mockAvailability) Recompute(ctx context.Context, caregiverID string) (models.Availability, error) {
	m.calls = append(m.calls, caregiverID)
	return models.AvailabilityBusy, nil
}

// --- Fixture ---

type fixture struct {
	tx         *mockTx
	users      *mockUserRepo
	caregivers *mockCaregiverRepo
	bookings   *mockBookingRepo
	history    *mockHistoryRepo
	notes      *mockNoteRepo
	calls      *mockVideoCallRepo
	chats      *mockChatRepo
	consumed   *mockConsumedRepo
	notifier   *recordingNotifier
	events     *recordingPublisher
	avail      *mockAvailability
}

func newFixture() *fixture {
	return &fixture{
		tx:         &mockTx{},
		users:      &mockUserRepo{},
		caregivers: &mockCaregiverRepo{},
		bookings:   &mockBookingRepo{},
		history:    &mockHistoryRepo{},
		notes:      &mockNoteRepo{},
		calls:      &mockVideoCallRepo{},
		chats:      &mockChatRepo{},
		consumed:   &mockConsumedRepo{},
		notifier:   &recordingNotifier{},
		events:     &recordingPublisher{},
		avail:      &mockAvailability{},
	}
}

func (f *fixture) deps() Deps {
	return Deps{
		Tx:             f.tx,
		Users:          f.users,
		Caregivers:     f.caregivers,
		Bookings:       f.bookings,
		StatusHistory:  f.history,
		Notes:          f.notes,
		VideoCalls:     f.calls,
		Chats:          f.chats,
		ConsumedEvents: f.consumed,
		Notifier:       f.notifier,
		Events:         f.events,
		Clock:          clock.Fixed(testNow),
	}
}

func (f *fixture) bookingService() BookingService {
	d := f.deps()
	return NewBookingService(d, NewAllocator(d), f.avail)
}

func (f *fixture) videoCallService() VideoCallService {
	d := f.deps()
	return NewVideoCallService(d, NewAllocator(d), f.avail, "https://meet.example.com/care/")
}

func recipient() models.Actor { return models.Actor{ID: recipientID, Role: models.RoleCareRecipient} }
func caregiver() models.Actor { return models.Actor{ID: caregiverID, Role: models.RoleCaregiver} }

func bookingIn(status models.BookingStatus) *models.Booking {
	cg := caregiverID
	start := testNow.Add(48 * time.Hour)
	return &models.Booking{
		ID:              "booking-1",
		CareRecipientID: recipientID,
		CaregiverID:     &cg,
		ServiceType:     models.ServiceDailyCare,
		ScheduledDate:   start,
		DurationHours:   2,
		EndsAt:          models.EndOf(start, 2),
		Status:          status,
	}
}

// storeBooking serves b from FindByID and FindByIDForUpdate and applies
// status updates back to it.
func (f *fixture) storeBooking(b *models.Booking) {
	f.bookings.findByIDFn = func(ctx context.Context, id string) (*models.Booking, error) {
		if id != b.ID {
			return nil, gorm.ErrRecordNotFound
		}
		cp := *b
		return &cp, nil
	}
	f.bookings.updateFn = func(ctx context.Context, tx *gorm.DB, id string, fields map[string]any) error {
		if id != b.ID {
			return nil
		}
		if s, ok := fields["status"].(models.BookingStatus); ok {
			b.Status = s
		}
		if v, ok := fields["chat_session_id"].(string); ok {
			b.ChatSessionID = &v
		}
		return nil
	}
}
