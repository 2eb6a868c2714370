package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	valid := []string{"00:00", "08:30", "12:00", "23:59"}
	for _, s := range valid {
		got, err := ParseTimeOfDay(s)
		require.NoError(t, err, s)
		assert.Equal(t, s, got.String())
	}

	invalid := []string{"", "8:30", "08:60", "24:00", "08-30", "08:3", "ab:cd", "08:30:00"}
	for _, s := range invalid {
		_, err := ParseTimeOfDay(s)
		assert.ErrorIs(t, err, ErrBadTimeOfDay, s)
	}
}

func TestTimeOfDayOrdering(t *testing.T) {
	early, _ := ParseTimeOfDay("08:30")
	late, _ := ParseTimeOfDay("14:00")

	assert.True(t, early.Before(late))
	assert.False(t, late.Before(early))
	assert.Equal(t, 8*60+30, early.Minutes())
}

func TestNewWeeklyTemplateNormalizes(t *testing.T) {
	tpl, err := NewWeeklyTemplate(map[time.Weekday][]string{
		time.Monday: {"10:00", "09:00", "10:00", "08:30"},
	})
	require.NoError(t, err)

	monday := time.Date(2026, time.September, 7, 0, 0, 0, 0, time.UTC)
	require.Equal(t, time.Monday, monday.Weekday())

	slots := tpl.SlotsFor(monday)
	assert.Equal(t, []TimeOfDay{"08:30", "09:00", "10:00"}, slots)

	// Strictly ascending, duplicate-free.
	for i := 1; i < len(slots); i++ {
		assert.True(t, slots[i-1].Before(slots[i]))
	}
}

func TestNewWeeklyTemplateRejectsBadTimes(t *testing.T) {
	_, err := NewWeeklyTemplate(map[time.Weekday][]string{
		time.Tuesday: {"9:00"},
	})
	assert.ErrorIs(t, err, ErrBadTimeOfDay)
}

func TestSlotsForUnconfiguredWeekdayIsEmpty(t *testing.T) {
	tpl, err := NewWeeklyTemplate(map[time.Weekday][]string{
		time.Monday: {"09:00"},
	})
	require.NoError(t, err)

	sunday := time.Date(2026, time.September, 6, 0, 0, 0, 0, time.UTC)
	require.Equal(t, time.Sunday, sunday.Weekday())

	assert.Empty(t, tpl.SlotsFor(sunday))
}

func TestContains(t *testing.T) {
	tpl, err := NewWeeklyTemplate(map[time.Weekday][]string{
		time.Monday: {"09:00", "10:00"},
	})
	require.NoError(t, err)

	monday := time.Date(2026, time.September, 7, 0, 0, 0, 0, time.UTC)

	assert.True(t, tpl.Contains(monday, "09:00"))
	assert.False(t, tpl.Contains(monday, "11:00"))
	assert.False(t, tpl.Contains(monday.AddDate(0, 0, 1), "09:00"))
}

func TestServicePriceFor(t *testing.T) {
	online := int64(15000)
	s := Service{ID: "consultation", PriceCents: 18000, OnlinePriceCents: &online}

	assert.Equal(t, int64(15000), s.PriceFor(ModalityOnline))
	assert.Equal(t, int64(18000), s.PriceFor(ModalityInPerson))

	noDiscount := Service{ID: "assessment", PriceCents: 35000}
	assert.Equal(t, int64(35000), noDiscount.PriceFor(ModalityOnline))
}
