// Package history keeps the completed work items a forecast is based on and
// turns them into daily throughput.
package history

import (
	"math"
	"slices"
	"strings"
	"time"
)

// BugType is the issue type synced alongside planned work.
const BugType = "Bug"

// PointTypes are the issue types whose story points make up point throughput.
var PointTypes = []string{"Story", "Task"}

// TicketTypes are the issue types counted as ticket throughput.
var TicketTypes = []string{"Story", "Task", "Improvement"}

// CompletedItem is a finished work item with its cycle time.
type CompletedItem struct {
	Key          string    `json:"key"`
	Type         string    `json:"type"`
	Summary      string    `json:"summary"`
	StoryPoints  float64   `json:"story_points"`
	Start        time.Time `json:"start"`
	Done         time.Time `json:"done"`
	DurationDays float64   `json:"duration_days"`
}

// NewCompletedItem builds an item and derives its cycle time in days,
// rounded to three decimals.
func NewCompletedItem(key, itemType, summary string, points float64, start, done time.Time) CompletedItem {
	return CompletedItem{
		Key:          key,
		Type:         itemType,
		Summary:      summary,
		StoryPoints:  points,
		Start:        start,
		Done:         done,
		DurationDays: round3(done.Sub(start).Hours() / 24),
	}
}

// CountsPoints reports whether the item's story points count toward point throughput.
func (i CompletedItem) CountsPoints() bool {
	return i.isOneOf(PointTypes)
}

// IsTicket reports whether the item counts toward ticket throughput.
func (i CompletedItem) IsTicket() bool {
	return i.isOneOf(TicketTypes)
}

func (i CompletedItem) isOneOf(types []string) bool {
	return slices.ContainsFunc(types, func(t string) bool {
		return strings.EqualFold(t, i.Type)
	})
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
