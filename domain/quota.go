package domain

import (
	"fmt"
	"time"

	"github.com/samber/lo"
)

// BeginningOfMonth returns the first instant of the calendar month of t, in t's location.
func BeginningOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// EndOfMonth returns the last representable instant of the calendar month of t.
func EndOfMonth(t time.Time) time.Time {
	return BeginningOfMonth(t).AddDate(0, 1, 0).Add(-time.Nanosecond)
}

// MonthWindow is the closed interval [from, to] quota counting is done on.
type MonthWindow struct {
	From time.Time
	To   time.Time
}

func MonthOf(asOf time.Time) MonthWindow {
	return MonthWindow{From: BeginningOfMonth(asOf), To: EndOfMonth(asOf)}
}

func (w MonthWindow) Contains(t time.Time) bool {
	return !t.Before(w.From) && !t.After(w.To)
}

// QuotaUsage is the agent's monthly contact usage: the distinct properties
// contacted through agent_owner conversations this month, against the plan limit.
type QuotaUsage struct {
	PropertyIDs []string
	Limit       int
}

func NewQuotaUsage(propertyIDs []string, limit int) QuotaUsage {
	return QuotaUsage{PropertyIDs: lo.Uniq(propertyIDs), Limit: limit}
}

func (q QuotaUsage) Count() int { return len(q.PropertyIDs) }

func (q QuotaUsage) Exceeded() bool { return q.Count() >= q.Limit }

// Admits reports whether a new conversation about propertyID fits in the quota.
// A property already contacted this month does not consume another slot.
func (q QuotaUsage) Admits(propertyID string) bool {
	if lo.Contains(q.PropertyIDs, propertyID) {
		return q.Limit > 0
	}
	return q.Count() < q.Limit
}

func QuotaExceededMessage(limit int) string {
	return fmt.Sprintf("monthly property message limit (%d properties) exceeded", limit)
}
