package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseTimeRange(t *testing.T) {
	r, err := ParseTimeRange("18:00-18:50")
	require.NoError(t, err)
	require.Equal(t, 50, r.Minutes())
	require.Equal(t, "18:00-18:50", r.String())

	r, err = ParseTimeRange(" 9:05 - 10:00 ")
	require.NoError(t, err)
	require.Equal(t, "09:05-10:00", r.String())
	require.Equal(t, 55, r.Minutes())

	for _, raw := range []string{"invalid", "", "18:00", "18:50-18:00", "18:00-18:00", "25:00-26:00", "18:00-18:61", "a:b-c:d"} {
		_, err := ParseTimeRange(raw)
		require.ErrorIs(t, err, ErrInvalidTimeRange, raw)
	}
}

func TestTimeRangeAnchorsToReferenceDay(t *testing.T) {
	loc := time.FixedZone("WAT", 3600)
	ref := time.Date(2024, time.March, 4, 9, 12, 30, 0, loc)
	r, err := ParseTimeRange("18:00-18:30")
	require.NoError(t, err)

	require.Equal(t, time.Date(2024, time.March, 4, 18, 30, 0, 0, loc), r.EndOn(ref))
	require.Equal(t, time.Date(2024, time.March, 4, 18, 0, 0, 0, loc), r.StartOn(ref))
	require.Equal(t, 9*time.Hour+12*time.Minute+30*time.Second, ClockOffset(ref))
}

func TestWeekdays(t *testing.T) {
	day, err := ParseWeekday("  wednesday")
	require.NoError(t, err)
	require.Equal(t, Wednesday, day)
	require.Equal(t, 2, day.Index())

	_, err = ParseWeekday("Funday")
	require.Error(t, err)

	// 2024-03-10 is a Sunday.
	require.Equal(t, Sunday, WeekdayOf(time.Date(2024, time.March, 10, 12, 0, 0, 0, time.UTC)))
	require.Equal(t, Monday, WeekdayOf(time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC)))
	require.Equal(t, []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}, Weekdays())
}

func TestClassifyActivity(t *testing.T) {
	require.Equal(t, ActivityStudy, ClassifyActivity("Revision"))
	require.Equal(t, ActivityStudy, ClassifyActivity("Self study"))
	require.Equal(t, ActivityBreak, ClassifyActivity("Break"))
	require.Equal(t, ActivityBreak, ClassifyActivity("PAUSE"))
	require.Equal(t, ActivityOther, ClassifyActivity("Football"))
	require.Equal(t, ActivityOther, ClassifyActivity(""))
}

func TestTimeSlotBeforeSaveEnforcesInvariants(t *testing.T) {
	subjectID := uint(4)
	completed := false
	stamp := time.Now()
	slot := TimeSlot{
		Day:         Friday,
		Activity:    "Break",
		SubjectID:   &subjectID,
		Topic:       "ignored",
		Completed:   &completed,
		CompletedAt: &stamp,
	}

	require.NoError(t, slot.BeforeSave(nil))
	require.Equal(t, ActivityBreak, slot.Kind)
	require.Nil(t, slot.SubjectID)
	require.Empty(t, slot.Topic)
	require.Nil(t, slot.CompletedAt)
	require.Equal(t, 4, slot.DayOrder)

	done := true
	study := TimeSlot{Day: Monday, Activity: "Revision", Completed: &done}
	require.NoError(t, study.BeforeSave(nil))
	require.NotNil(t, study.CompletedAt)
	require.True(t, study.IsStudy())
}

func TestUserVariants(t *testing.T) {
	parent := User{ID: 2, FirstName: "Ama", Role: RoleParent, Email: "ama@example.com"}
	student := User{ID: 1, FirstName: "Kofi", LastName: "Mensah", Role: RoleStudent, Parent: &parent}

	view, ok := student.AsStudent()
	require.True(t, ok)
	require.Equal(t, "Kofi Mensah", view.FullName())

	linked, ok := view.LinkedParent()
	require.True(t, ok)
	require.Equal(t, "ama@example.com", linked.Email)

	_, ok = parent.AsStudent()
	require.False(t, ok)

	require.NoError(t, student.SetPassword("s3cret-pass"))
	require.True(t, student.CheckPassword("s3cret-pass"))
	require.False(t, student.CheckPassword("wrong"))
}
