// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package scheduleeval implements is_active(s, now_local) -> bool from
// spec.md §4.3: date window, time-of-day recurrence, day-of-week, and
// holiday_dynamic resolution. Grounded on the date/time-window logic in
// original_source NeXroll/backend/scheduler.py's _is_schedule_active and
// _get_holiday_date, reworked as a pure function per spec.md P1 instead of a
// method with side-effecting logging.
package scheduleeval

import (
	"fmt"
	"time"

	"github.com/nexroll/nexroll/internal/model"
)

// HolidayLookup resolves a dynamic holiday's (month, day) for a given year.
// Implementations live in internal/holidayapi; scheduleeval only depends on
// this narrow capability so IsActive stays a pure function of its inputs
// (per spec.md P1), never reaching for a network client itself.
type HolidayLookup func(name, country string, year int) (month, day int, ok bool)

// IsActive determines whether schedule s is active at nowLocal, per §4.3.
// now_local and s's dates are both naive local datetimes per §9's "Time
// handling" guidance; no timezone conversion happens here.
func IsActive(s model.Schedule, nowLocal time.Time, holidays HolidayLookup) bool {
	if !dateWindowActive(s, nowLocal, holidays) {
		return false
	}
	if s.RecurrencePattern == nil {
		return true
	}
	if s.RecurrencePattern.TimeRange != nil && s.RecurrencePattern.TimeRange.Start != "" {
		if !timeRangeActive(*s.RecurrencePattern.TimeRange, nowLocal) {
			return false
		}
	}
	if len(s.RecurrencePattern.DaysOfWeek) > 0 {
		if !dayOfWeekActive(s.RecurrencePattern.DaysOfWeek, nowLocal) {
			return false
		}
	}
	return true
}

// dateWindowActive checks start_date <= now [<= end_date], with holiday_dynamic
// schedules substituting the HolidayAPI-resolved (month, day) for the
// schedule's own start_date.month/day, per §4.3.
func dateWindowActive(s model.Schedule, now time.Time, holidays HolidayLookup) bool {
	if s.Type == model.ScheduleHolidayDynamic {
		return holidayDynamicActive(s, now, holidays)
	}
	if now.Before(s.StartDate) {
		return false
	}
	if s.EndDate != nil && now.After(*s.EndDate) {
		return false
	}
	return true
}

// holidayDynamicActive resolves the named holiday for now's year via
// holidays and requires (now.Month, now.Day) to match it. A holiday that
// does not resolve for this year (e.g. Feb 29 in a non-leap year, per the
// spec.md §9 Open Question resolved in SPEC_FULL.md §5 as "no match") simply
// does not activate the schedule.
func holidayDynamicActive(s model.Schedule, now time.Time, holidays HolidayLookup) bool {
	if holidays == nil || s.RecurrencePattern == nil {
		return false
	}
	month, day, ok := holidays(s.RecurrencePattern.Name, s.RecurrencePattern.Country, now.Year())
	if !ok {
		return false
	}
	return int(now.Month()) == month && now.Day() == day
}

// timeRangeActive compares minute-of-day, handling overnight ranges
// (start > end, e.g. 22:00 -> 03:00) per §4.3.
func timeRangeActive(tr model.TimeRange, now time.Time) bool {
	startVal, ok := minuteOfDay(tr.Start)
	if !ok {
		return true // unparsable time range: fall through to date-only logic, per original scheduler.py
	}
	endVal, ok := minuteOfDay(tr.End)
	if !ok {
		endVal = 23*60 + 59
	}
	current := now.Hour()*60 + now.Minute()
	if startVal <= endVal {
		return current >= startVal && current <= endVal
	}
	return current >= startVal || current <= endVal
}

// dayOfWeekActive requires now's weekday (Monday=0 per §3) to be a member of
// days.
func dayOfWeekActive(days []int, now time.Time) bool {
	wd := mondayZero(now.Weekday())
	for _, d := range days {
		if d == wd {
			return true
		}
	}
	return false
}

// mondayZero converts Go's time.Weekday (Sunday=0) to the spec's Monday=0
// convention.
func mondayZero(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

// minuteOfDay parses "HH:MM" into minutes since midnight.
func minuteOfDay(hhmm string) (int, bool) {
	if len(hhmm) < 3 {
		return 0, false
	}
	var h, m int
	n, err := fmt.Sscanf(hhmm, "%d:%d", &h, &m)
	if err != nil || n != 2 {
		return 0, false
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}
