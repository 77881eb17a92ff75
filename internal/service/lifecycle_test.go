package service

import (
	"context"
	"io"
	"testing"
	"time"

	"kovorka/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func ownerSession() *models.Session {
	return &models.Session{Token: "tok", UserID: 7, Name: "client"}
}

func adminSession() *models.Session {
	return &models.Session{Token: "admin-tok", UserID: 1, Name: "admin", IsAdmin: true}
}

func newLifecycle(authority *mockAuthority) *BookingLifecycle {
	logger := zerolog.New(io.Discard)
	gate := NewEquipmentGate(authority, &logger)
	return NewBookingLifecycle(authority, gate, nil, nil, nil, models.DefaultWindowRules(), &logger)
}

func TestLifecycle_GetBooking(t *testing.T) {
	start := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	booking := workspaceBooking(10, start, start.Add(2*time.Hour))

	authority := new(mockAuthority)
	authority.On("GetBooking", mock.Anything, int64(10)).Return(booking, nil)
	svc := newLifecycle(authority)

	t.Run("Owner", func(t *testing.T) {
		got, err := svc.GetBooking(context.Background(), ownerSession(), 10)
		assert.NoError(t, err)
		assert.Equal(t, booking, got)
	})

	t.Run("Admin", func(t *testing.T) {
		_, err := svc.GetBooking(context.Background(), adminSession(), 10)
		assert.NoError(t, err)
	})

	t.Run("Stranger", func(t *testing.T) {
		_, err := svc.GetBooking(context.Background(), &models.Session{UserID: 99}, 10)
		assert.ErrorIs(t, err, models.ErrForbidden)
	})

	t.Run("NoSession", func(t *testing.T) {
		_, err := svc.GetBooking(context.Background(), nil, 10)
		assert.ErrorIs(t, err, models.ErrUnauthorized)
	})
}

func TestLifecycle_Create(t *testing.T) {
	start := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)

	t.Run("Simple", func(t *testing.T) {
		req := &models.CreateBookingRequest{
			ResourceID:    1,
			BookingType:   models.BookingTypeWorkspace,
			TimeFormat:    models.TimeFormatHour,
			StartDatetime: start,
			EndDatetime:   end,
		}
		created := workspaceBooking(10, start, end)

		authority := new(mockAuthority)
		authority.On("CreateBooking", mock.Anything, req, int64(7)).Return(created, nil)

		got, err := newLifecycle(authority).Create(context.Background(), ownerSession(), req)
		assert.NoError(t, err)
		assert.Equal(t, created, got)
	})

	t.Run("WithEquipmentBatch", func(t *testing.T) {
		req := &models.CreateBookingRequest{
			ResourceID:    1,
			BookingType:   models.BookingTypeWorkspace,
			TimeFormat:    models.TimeFormatHour,
			StartDatetime: start,
			EndDatetime:   end,
			Equipment:     []models.EquipmentItem{{ResourceTypeID: 30, Quantity: 2}},
		}
		created := workspaceBooking(10, start, end)

		authority := new(mockAuthority)
		authority.On("FreeEquipmentCount", mock.Anything, int64(30), mock.Anything).Return(2, nil)
		authority.On("CreateBooking", mock.Anything, req, int64(7)).Return(created, nil)

		_, err := newLifecycle(authority).Create(context.Background(), ownerSession(), req)
		assert.NoError(t, err)
		authority.AssertExpectations(t)
	})

	t.Run("EquipmentShortfallBlocksCreate", func(t *testing.T) {
		req := &models.CreateBookingRequest{
			ResourceID:    1,
			BookingType:   models.BookingTypeWorkspace,
			TimeFormat:    models.TimeFormatHour,
			StartDatetime: start,
			EndDatetime:   end,
			Equipment:     []models.EquipmentItem{{ResourceTypeID: 30, Quantity: 3}},
		}

		authority := new(mockAuthority)
		authority.On("FreeEquipmentCount", mock.Anything, int64(30), mock.Anything).Return(2, nil)

		_, err := newLifecycle(authority).Create(context.Background(), ownerSession(), req)
		assert.True(t, models.IsConflict(err))
		authority.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("BadWindow", func(t *testing.T) {
		req := &models.CreateBookingRequest{
			ResourceID:    1,
			TimeFormat:    models.TimeFormatHour,
			StartDatetime: start,
			EndDatetime:   start,
		}
		_, err := newLifecycle(new(mockAuthority)).Create(context.Background(), ownerSession(), req)
		assert.True(t, models.IsValidation(err))
	})

	t.Run("UnknownTimeFormat", func(t *testing.T) {
		req := &models.CreateBookingRequest{
			ResourceID:    1,
			TimeFormat:    "fortnight",
			StartDatetime: start,
			EndDatetime:   end,
		}
		_, err := newLifecycle(new(mockAuthority)).Create(context.Background(), ownerSession(), req)
		assert.True(t, models.IsValidation(err))
	})
}

func TestLifecycle_Cancel(t *testing.T) {
	start := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)

	t.Run("CascadesToChildren", func(t *testing.T) {
		parent := workspaceBooking(10, start, end)
		parent.Children = []*models.Booking{
			{ID: 11, UserID: 7, BookingType: models.BookingTypeEquipment, Status: models.StatusActive, StartDatetime: start, EndDatetime: end},
			{ID: 12, UserID: 7, BookingType: models.BookingTypeEquipment, Status: models.StatusCancelled, StartDatetime: start, EndDatetime: end},
			{ID: 13, UserID: 7, BookingType: models.BookingTypeEquipment, Status: models.StatusConflicted, StartDatetime: start, EndDatetime: end},
		}
		cancelled := workspaceBooking(10, start, end)
		cancelled.Status = models.StatusCancelled

		authority := new(mockAuthority)
		authority.On("GetBooking", mock.Anything, int64(10)).Return(parent, nil)
		authority.On("CancelBooking", mock.Anything, int64(10)).Return(cancelled, nil)
		authority.On("CancelBooking", mock.Anything, int64(11)).Return(parent.Children[0], nil)
		authority.On("CancelBooking", mock.Anything, int64(13)).Return(parent.Children[2], nil)

		got, err := newLifecycle(authority).Cancel(context.Background(), ownerSession(), 10)
		assert.NoError(t, err)
		assert.Equal(t, models.StatusCancelled, got.Status)
		authority.AssertExpectations(t)
		// The already-cancelled child must not be touched.
		authority.AssertNotCalled(t, "CancelBooking", mock.Anything, int64(12))
	})

	t.Run("FromConflicted", func(t *testing.T) {
		booking := workspaceBooking(10, start, end)
		booking.Status = models.StatusConflicted
		cancelled := workspaceBooking(10, start, end)
		cancelled.Status = models.StatusCancelled

		authority := new(mockAuthority)
		authority.On("GetBooking", mock.Anything, int64(10)).Return(booking, nil)
		authority.On("CancelBooking", mock.Anything, int64(10)).Return(cancelled, nil)

		_, err := newLifecycle(authority).Cancel(context.Background(), ownerSession(), 10)
		assert.NoError(t, err)
	})

	t.Run("FromTerminal", func(t *testing.T) {
		for _, status := range []string{models.StatusCancelled, models.StatusCompleted} {
			booking := workspaceBooking(10, start, end)
			booking.Status = status

			authority := new(mockAuthority)
			authority.On("GetBooking", mock.Anything, int64(10)).Return(booking, nil)

			_, err := newLifecycle(authority).Cancel(context.Background(), ownerSession(), 10)
			assert.True(t, models.IsStateError(err), "status %s", status)
			authority.AssertNotCalled(t, "CancelBooking", mock.Anything, mock.Anything)
		}
	})
}

func TestLifecycle_ChangeResolution(t *testing.T) {
	start := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)

	conflicted := func() *models.Booking {
		b := workspaceBooking(10, start, end)
		b.Status = models.StatusConflicted
		return b
	}

	t.Run("ChangeOptions", func(t *testing.T) {
		menu := &models.ChangeOptions{
			BookingID:  10,
			HasOptions: true,
			Options:    []models.ReplacementOption{{ResourceID: 2, ResourceName: "Desk B-2"}},
		}
		authority := new(mockAuthority)
		authority.On("GetBooking", mock.Anything, int64(10)).Return(conflicted(), nil)
		authority.On("ChangeOptions", mock.Anything, int64(10)).Return(menu, nil)

		got, err := newLifecycle(authority).ChangeOptions(context.Background(), ownerSession(), 10)
		assert.NoError(t, err)
		assert.True(t, got.HasOptions)
	})

	t.Run("ChangeOptionsRequireConflicted", func(t *testing.T) {
		authority := new(mockAuthority)
		authority.On("GetBooking", mock.Anything, int64(10)).Return(workspaceBooking(10, start, end), nil)

		_, err := newLifecycle(authority).ChangeOptions(context.Background(), ownerSession(), 10)
		assert.True(t, models.IsStateError(err))
	})

	t.Run("ApplyChangeRebindsPreservingWindow", func(t *testing.T) {
		moved := workspaceBooking(10, start, end)
		moved.Resource = &models.Resource{ID: 2, Name: "Desk B-2", Type: moved.Resource.Type}

		authority := new(mockAuthority)
		authority.On("GetBooking", mock.Anything, int64(10)).Return(conflicted(), nil)
		authority.On("ApplyChange", mock.Anything, int64(10), int64(2)).Return(moved, nil)

		got, err := newLifecycle(authority).ApplyChange(context.Background(), ownerSession(), 10, 2)
		assert.NoError(t, err)
		assert.Equal(t, models.StatusActive, got.Status)
		assert.Equal(t, int64(2), got.Resource.ID)
		assert.Equal(t, start, got.StartDatetime)
		assert.Equal(t, end, got.EndDatetime)
	})

	t.Run("ApplyChangeRequiresConflicted", func(t *testing.T) {
		authority := new(mockAuthority)
		authority.On("GetBooking", mock.Anything, int64(10)).Return(workspaceBooking(10, start, end), nil)

		_, err := newLifecycle(authority).ApplyChange(context.Background(), ownerSession(), 10, 2)
		assert.True(t, models.IsStateError(err))
	})

	t.Run("DeclineCancels", func(t *testing.T) {
		cancelled := workspaceBooking(10, start, end)
		cancelled.Status = models.StatusCancelled

		authority := new(mockAuthority)
		authority.On("GetBooking", mock.Anything, int64(10)).Return(conflicted(), nil)
		authority.On("CancelBooking", mock.Anything, int64(10)).Return(cancelled, nil)

		got, err := newLifecycle(authority).DeclineChange(context.Background(), ownerSession(), 10)
		assert.NoError(t, err)
		assert.Equal(t, models.StatusCancelled, got.Status)
	})
}
