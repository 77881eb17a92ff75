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

func newGate(authority *mockAuthority) *EquipmentGate {
	logger := zerolog.New(io.Discard)
	return NewEquipmentGate(authority, &logger)
}

func testWindow() models.Window {
	start := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	return models.Window{Start: start, End: start.Add(2 * time.Hour)}
}

func TestGate_Check(t *testing.T) {
	window := testWindow()

	t.Run("AllCovered", func(t *testing.T) {
		authority := new(mockAuthority)
		authority.On("FreeEquipmentCount", mock.Anything, int64(30), window).Return(3, nil)
		authority.On("FreeEquipmentCount", mock.Anything, int64(31), window).Return(1, nil)

		result, err := newGate(authority).Check(context.Background(), window, []models.EquipmentItem{
			{ResourceTypeID: 30, Quantity: 2},
			{ResourceTypeID: 31, Quantity: 1},
		})
		assert.NoError(t, err)
		assert.True(t, result.OK)
		assert.Empty(t, result.Shortfalls)
		assert.Equal(t, 3, result.FreeCounts[30])
	})

	t.Run("PartialShortfallRejectsAll", func(t *testing.T) {
		authority := new(mockAuthority)
		authority.On("FreeEquipmentCount", mock.Anything, int64(30), window).Return(2, nil)
		authority.On("FreeEquipmentCount", mock.Anything, int64(31), window).Return(5, nil)

		result, err := newGate(authority).Check(context.Background(), window, []models.EquipmentItem{
			{ResourceTypeID: 30, Quantity: 3},
			{ResourceTypeID: 31, Quantity: 1},
		})
		assert.NoError(t, err)
		assert.False(t, result.OK)
		assert.Len(t, result.Shortfalls, 1)
		assert.Equal(t, int64(30), result.Shortfalls[0].ResourceTypeID)
		assert.Equal(t, 3, result.Shortfalls[0].Requested)
		assert.Equal(t, 2, result.Shortfalls[0].Free)
	})

	t.Run("DuplicateLinesMerge", func(t *testing.T) {
		authority := new(mockAuthority)
		authority.On("FreeEquipmentCount", mock.Anything, int64(30), window).Return(3, nil)

		result, err := newGate(authority).Check(context.Background(), window, []models.EquipmentItem{
			{ResourceTypeID: 30, Quantity: 2},
			{ResourceTypeID: 30, Quantity: 2},
		})
		assert.NoError(t, err)
		assert.False(t, result.OK)
		authority.AssertNumberOfCalls(t, "FreeEquipmentCount", 1)
	})

	t.Run("EmptyBatch", func(t *testing.T) {
		_, err := newGate(new(mockAuthority)).Check(context.Background(), window, nil)
		assert.True(t, models.IsValidation(err))
	})

	t.Run("NonPositiveQuantity", func(t *testing.T) {
		_, err := newGate(new(mockAuthority)).Check(context.Background(), window, []models.EquipmentItem{
			{ResourceTypeID: 30, Quantity: 0},
		})
		assert.True(t, models.IsValidation(err))
	})

	t.Run("InvertedWindow", func(t *testing.T) {
		bad := models.Window{Start: window.End, End: window.Start}
		_, err := newGate(new(mockAuthority)).Check(context.Background(), bad, []models.EquipmentItem{
			{ResourceTypeID: 30, Quantity: 1},
		})
		assert.True(t, models.IsValidation(err))
	})
}

func TestGate_Require(t *testing.T) {
	window := testWindow()

	t.Run("Pass", func(t *testing.T) {
		authority := new(mockAuthority)
		authority.On("FreeEquipmentCount", mock.Anything, int64(30), window).Return(2, nil)

		err := newGate(authority).Require(context.Background(), window, []models.EquipmentItem{
			{ResourceTypeID: 30, Quantity: 2},
		})
		assert.NoError(t, err)
	})

	t.Run("FailListsShortTypes", func(t *testing.T) {
		authority := new(mockAuthority)
		authority.On("FreeEquipmentCount", mock.Anything, int64(30), window).Return(2, nil)

		err := newGate(authority).Require(context.Background(), window, []models.EquipmentItem{
			{ResourceTypeID: 30, Quantity: 3},
		})
		assert.True(t, models.IsConflict(err))
		assert.Contains(t, err.Error(), "type 30")
	})
}
