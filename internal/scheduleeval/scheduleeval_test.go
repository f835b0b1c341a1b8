// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package scheduleeval

import (
	"testing"
	"time"

	"github.com/nexroll/nexroll/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func localDate(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.Local)
}

func TestIsActive_DateWindow(t *testing.T) {
	s := model.Schedule{
		ID:        1,
		StartDate: localDate(2026, 10, 1, 0, 0),
		EndDate:   ptrTime(localDate(2026, 10, 31, 23, 59)),
	}
	assert.True(t, IsActive(s, localDate(2026, 10, 15, 12, 0), nil))
	assert.False(t, IsActive(s, localDate(2026, 9, 30, 12, 0), nil))
	assert.False(t, IsActive(s, localDate(2026, 11, 1, 0, 0), nil))
}

func TestIsActive_IndefiniteNoEndDate(t *testing.T) {
	s := model.Schedule{ID: 1, StartDate: localDate(2026, 1, 1, 0, 0)}
	assert.True(t, IsActive(s, localDate(2030, 1, 1, 0, 0), nil))
	assert.False(t, IsActive(s, localDate(2025, 12, 31, 23, 59), nil))
}

func TestIsActive_OvernightTimeRange(t *testing.T) {
	s := model.Schedule{
		ID:        1,
		StartDate: localDate(2026, 1, 1, 0, 0),
		RecurrencePattern: &model.RecurrencePattern{
			TimeRange: &model.TimeRange{Start: "22:00", End: "03:00"},
		},
	}
	assert.True(t, IsActive(s, localDate(2026, 6, 1, 23, 59), nil), "23:59 within overnight window")
	assert.True(t, IsActive(s, localDate(2026, 6, 2, 2, 0), nil), "02:00 within overnight window")
	assert.False(t, IsActive(s, localDate(2026, 6, 2, 5, 0), nil), "05:00 outside overnight window")
}

func TestIsActive_NormalTimeRange(t *testing.T) {
	s := model.Schedule{
		ID:        1,
		StartDate: localDate(2026, 1, 1, 0, 0),
		RecurrencePattern: &model.RecurrencePattern{
			TimeRange: &model.TimeRange{Start: "09:00", End: "17:00"},
		},
	}
	assert.True(t, IsActive(s, localDate(2026, 6, 1, 9, 0), nil))
	assert.True(t, IsActive(s, localDate(2026, 6, 1, 17, 0), nil))
	assert.False(t, IsActive(s, localDate(2026, 6, 1, 17, 1), nil))
	assert.False(t, IsActive(s, localDate(2026, 6, 1, 8, 59), nil))
}

func TestIsActive_DaysOfWeek_WeekendOnly(t *testing.T) {
	// Monday=0 .. Sunday=6; weekend = Saturday(5), Sunday(6).
	s := model.Schedule{
		ID:        1,
		StartDate: localDate(2026, 1, 1, 0, 0),
		RecurrencePattern: &model.RecurrencePattern{
			DaysOfWeek: []int{5, 6},
		},
	}
	// 2026-08-01 is a Saturday.
	sat := localDate(2026, 8, 1, 12, 0)
	require.Equal(t, time.Saturday, sat.Weekday())
	assert.True(t, IsActive(s, sat, nil))

	sun := localDate(2026, 8, 2, 12, 0)
	require.Equal(t, time.Sunday, sun.Weekday())
	assert.True(t, IsActive(s, sun, nil))

	mon := localDate(2026, 8, 3, 12, 0)
	require.Equal(t, time.Monday, mon.Weekday())
	assert.False(t, IsActive(s, mon, nil))
}

func TestIsActive_HolidayDynamic_Feb29NonLeapYear_NoMatch(t *testing.T) {
	s := model.Schedule{
		ID:        1,
		Type:      model.ScheduleHolidayDynamic,
		StartDate: localDate(2026, 2, 29, 0, 0), // bogus in a non-leap year; ignored per §4.3
		RecurrencePattern: &model.RecurrencePattern{
			Type:    "holiday_dynamic",
			Name:    "Leap Day Festival",
			Country: "US",
		},
	}
	lookup := func(name, country string, year int) (int, int, bool) {
		if year%4 != 0 {
			return 0, 0, false // non-leap year: no match (SPEC_FULL.md §5 resolution)
		}
		return 2, 29, true
	}
	assert.False(t, IsActive(s, localDate(2026, 2, 28, 12, 0), lookup), "2026 is not a leap year")
	assert.True(t, IsActive(s, localDate(2028, 2, 29, 12, 0), lookup), "2028 is a leap year")
}

func TestIsActive_HolidayDynamic_UsesHolidayAPIResolution(t *testing.T) {
	s := model.Schedule{
		ID:        1,
		Type:      model.ScheduleHolidayDynamic,
		StartDate: localDate(2000, 1, 1, 0, 0), // ignored for holiday_dynamic
		RecurrencePattern: &model.RecurrencePattern{
			Type:    "holiday_dynamic",
			Name:    "Thanksgiving",
			Country: "US",
		},
	}
	lookup := func(name, country string, year int) (int, int, bool) {
		return 11, 26, true
	}
	assert.True(t, IsActive(s, localDate(2026, 11, 26, 0, 0), lookup))
	assert.False(t, IsActive(s, localDate(2026, 11, 27, 0, 0), lookup))
}

func ptrTime(t time.Time) *time.Time { return &t }
