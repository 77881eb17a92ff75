package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"kovorka/internal/domain"
	"kovorka/internal/metrics"
	"kovorka/internal/models"

	"github.com/rs/zerolog"
)

// Shortfall names one equipment type that cannot cover its requested
// quantity.
type Shortfall struct {
	ResourceTypeID int64 `json:"resource_type_id"`
	Requested      int   `json:"requested"`
	Free           int   `json:"free"`
}

// AvailabilityResult is the gate's answer for a whole batch. OK is true only
// when every line can be covered in full.
type AvailabilityResult struct {
	OK         bool          `json:"ok"`
	Window     models.Window `json:"window"`
	FreeCounts map[int64]int `json:"free_counts"`
	Shortfalls []Shortfall   `json:"shortfalls,omitempty"`
}

// EquipmentGate is the pre-flight check before any equipment batch is
// committed. The check is all-or-nothing: a single short line rejects the
// batch. The authority re-validates on commit, so a pass here is advisory,
// not a hold.
type EquipmentGate struct {
	schedule domain.Schedule
	logger   *zerolog.Logger
}

func NewEquipmentGate(schedule domain.Schedule, logger *zerolog.Logger) *EquipmentGate {
	return &EquipmentGate{schedule: schedule, logger: logger}
}

// Check resolves free counts for every requested type over the window.
func (g *EquipmentGate) Check(ctx context.Context, window models.Window, items []models.EquipmentItem) (*AvailabilityResult, error) {
	if len(items) == 0 {
		return nil, &models.ValidationError{Reason: "equipment request is empty"}
	}
	if !window.End.After(window.Start) {
		return nil, &models.ValidationError{Reason: "end must be after start"}
	}
	merged := map[int64]int{}
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, &models.ValidationError{Reason: fmt.Sprintf("quantity for type %d must be positive", item.ResourceTypeID)}
		}
		merged[item.ResourceTypeID] += item.Quantity
	}

	result := &AvailabilityResult{OK: true, Window: window, FreeCounts: map[int64]int{}}
	typeIDs := make([]int64, 0, len(merged))
	for id := range merged {
		typeIDs = append(typeIDs, id)
	}
	sort.Slice(typeIDs, func(i, j int) bool { return typeIDs[i] < typeIDs[j] })

	for _, typeID := range typeIDs {
		free, err := g.schedule.FreeEquipmentCount(ctx, typeID, window)
		if err != nil {
			return nil, fmt.Errorf("free count for type %d: %w", typeID, err)
		}
		result.FreeCounts[typeID] = free
		if free < merged[typeID] {
			result.OK = false
			result.Shortfalls = append(result.Shortfalls, Shortfall{
				ResourceTypeID: typeID,
				Requested:      merged[typeID],
				Free:           free,
			})
		}
	}

	if !result.OK {
		metrics.IncAvailabilityConflict()
		g.logger.Debug().
			Int("shortfalls", len(result.Shortfalls)).
			Msg("equipment batch rejected")
	}
	return result, nil
}

// Require turns a failed check into a conflict error listing the short
// types, for callers that need a pass-or-error answer.
func (g *EquipmentGate) Require(ctx context.Context, window models.Window, items []models.EquipmentItem) error {
	result, err := g.Check(ctx, window, items)
	if err != nil {
		return err
	}
	if result.OK {
		return nil
	}
	parts := make([]string, 0, len(result.Shortfalls))
	for _, s := range result.Shortfalls {
		parts = append(parts, fmt.Sprintf("type %d: %d requested, %d free", s.ResourceTypeID, s.Requested, s.Free))
	}
	return &models.ConflictError{Reason: "insufficient equipment: " + strings.Join(parts, "; ")}
}
