package service

import (
	"context"
	"time"

	"kovorka/internal/models"

	"github.com/stretchr/testify/mock"
)

type mockAuthority struct {
	mock.Mock
}

func (m *mockAuthority) NextReservationStart(ctx context.Context, resourceID int64, from time.Time) (time.Time, bool, error) {
	args := m.Called(ctx, resourceID, from)
	return args.Get(0).(time.Time), args.Bool(1), args.Error(2)
}
func (m *mockAuthority) ActiveResourcesByType(ctx context.Context, typeID int64) ([]*models.Resource, error) {
	args := m.Called(ctx, typeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Resource), args.Error(1)
}
func (m *mockAuthority) ActiveResourcesByCategory(ctx context.Context, category string, excludeTypeID int64) ([]*models.Resource, error) {
	args := m.Called(ctx, category, excludeTypeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Resource), args.Error(1)
}
func (m *mockAuthority) FreeEquipmentCount(ctx context.Context, typeID int64, window models.Window) (int, error) {
	args := m.Called(ctx, typeID, window)
	return args.Int(0), args.Error(1)
}
func (m *mockAuthority) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}
func (m *mockAuthority) CreateBooking(ctx context.Context, req *models.CreateBookingRequest, userID int64) (*models.Booking, error) {
	args := m.Called(ctx, req, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}
func (m *mockAuthority) ConfirmExtend(ctx context.Context, bookingID int64, newEnd time.Time) (*models.Booking, error) {
	args := m.Called(ctx, bookingID, newEnd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}
func (m *mockAuthority) CancelBooking(ctx context.Context, bookingID int64) (*models.Booking, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}
func (m *mockAuthority) ChangeOptions(ctx context.Context, bookingID int64) (*models.ChangeOptions, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChangeOptions), args.Error(1)
}
func (m *mockAuthority) ApplyChange(ctx context.Context, bookingID int64, resourceID int64) (*models.Booking, error) {
	args := m.Called(ctx, bookingID, resourceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}
func (m *mockAuthority) AddEquipment(ctx context.Context, bookingID int64, items []models.EquipmentItem) ([]*models.Booking, error) {
	args := m.Called(ctx, bookingID, items)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Booking), args.Error(1)
}
func (m *mockAuthority) Login(ctx context.Context, username, password string) (int64, string, bool, error) {
	args := m.Called(ctx, username, password)
	return args.Get(0).(int64), args.String(1), args.Bool(2), args.Error(3)
}

type mockSessionRepo struct {
	mock.Mock
}

func (m *mockSessionRepo) GetSession(ctx context.Context, token string) (*models.Session, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}
func (m *mockSessionRepo) SetSession(ctx context.Context, sess *models.Session) error {
	return m.Called(ctx, sess).Error(0)
}
func (m *mockSessionRepo) DeleteSession(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}
func (m *mockSessionRepo) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

type mockJournal struct {
	mock.Mock
}

func (m *mockJournal) RecordChange(ctx context.Context, entry *models.ChangeEntry) error {
	return m.Called(ctx, entry).Error(0)
}
func (m *mockJournal) ListChanges(ctx context.Context, bookingID int64, limit int) ([]*models.ChangeEntry, error) {
	args := m.Called(ctx, bookingID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ChangeEntry), args.Error(1)
}
func (m *mockJournal) ListAllChanges(ctx context.Context, since time.Time) ([]*models.ChangeEntry, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ChangeEntry), args.Error(1)
}

type mockSyncWorker struct {
	mock.Mock
}

func (m *mockSyncWorker) EnqueueChange(ctx context.Context, entry *models.ChangeEntry) error {
	return m.Called(ctx, entry).Error(0)
}
