package engine

import (
	"time"

	"agenda/internal/model"
)

// Sentinel bounds used when only one side of the query window is set.
var (
	queryFloor   = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)
	queryCeiling = time.Date(2999, 12, 31, 0, 0, 0, 0, time.UTC)

	// undatedSortKey places undated events after every dated one.
	undatedSortKey = time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC)
)

// Overlaps reports whether the event's span intersects the criteria window.
//
// With no date bound set every event passes. With any bound set, undated
// events are excluded. Both ends of both intervals are inclusive; an event
// without EndDate spans the single instant StartDate.
func Overlaps(ev model.Event, c model.Criteria) bool {
	if !c.HasDateFilter() {
		return true
	}
	if ev.StartDate == nil {
		return false
	}

	evStart := *ev.StartDate
	evEnd := evStart
	if ev.EndDate != nil {
		evEnd = *ev.EndDate
	}

	qStart := queryFloor
	if c.DateFrom != nil {
		qStart = *c.DateFrom
	}
	qEnd := queryCeiling
	if c.DateTo != nil {
		qEnd = *c.DateTo
	}

	return !evStart.After(qEnd) && !evEnd.Before(qStart)
}

func sortKey(ev model.Event) time.Time {
	if ev.StartDate == nil {
		return undatedSortKey
	}
	return *ev.StartDate
}
