package timeslot

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Freeeeeet/office_hours/internal/apperr"
)

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestParseTimeOfDay(t *testing.T) {
	cases := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{"09:00", 540, false},
		{"17:45", 17*60 + 45, false},
		{"00:00", 0, false},
		{"23:59", 23*60 + 59, false},
		{"24:00", 0, true},
		{"9:00", 0, true},
		{"09:60", 0, true},
		{"ab:cd", 0, true},
		{"", 0, true},
	}

	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseTimeOfDay(tc.in)
			if tc.wantErr {
				assert.ErrorIs(t, err, apperr.ErrInvalidTime)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.in, got.String())
		})
	}
}

func TestTimeOfDay_ScanAndJSON(t *testing.T) {
	var (
		tod TimeOfDay
		raw []byte
	)
	require.NoError(t, tod.Scan("10:30"))
	assert.Equal(t, MustParse("10:30"), tod)

	require.NoError(t, tod.Scan([]byte("11:15")))
	assert.Equal(t, MustParse("11:15"), tod)

	assert.Error(t, tod.Scan(42))

	require.NoError(t, tod.ScanText(pgtype.Text{String: "12:45", Valid: true}))
	assert.Equal(t, MustParse("12:45"), tod)
	assert.ErrorIs(t, tod.ScanText(pgtype.Text{}), apperr.ErrInvalidTime)

	txt, err := MustParse("08:05").TextValue()
	require.NoError(t, err)
	assert.Equal(t, "08:05", txt.String)

	raw, err = json.Marshal(MustParse("09:05"))
	require.NoError(t, err)
	assert.JSONEq(t, `"09:05"`, string(raw))

	require.NoError(t, json.Unmarshal([]byte(`"16:20"`), &tod))
	assert.Equal(t, MustParse("16:20"), tod)
}

func TestIsWeekday(t *testing.T) {
	assert.True(t, IsWeekday(date(t, "2025-06-09")))  // Monday
	assert.True(t, IsWeekday(date(t, "2025-06-13")))  // Friday
	assert.False(t, IsWeekday(date(t, "2025-06-14"))) // Saturday
	assert.False(t, IsWeekday(date(t, "2025-06-15"))) // Sunday

	assert.Equal(t, "Monday", WeekdayName(date(t, "2025-06-09")))
}

func TestIsWithinBusinessHours(t *testing.T) {
	assert.True(t, IsWithinBusinessHours(MustParse("09:00")))
	assert.True(t, IsWithinBusinessHours(MustParse("18:00")))
	assert.False(t, IsWithinBusinessHours(MustParse("08:59")))
	assert.False(t, IsWithinBusinessHours(MustParse("18:01")))
}

func TestComputeEndTime(t *testing.T) {
	end, err := ComputeEndTime(MustParse("10:30"), 30)
	require.NoError(t, err)
	assert.Equal(t, "11:00", end.String())

	end, err = ComputeEndTime(MustParse("17:00"), 60)
	require.NoError(t, err)
	assert.Equal(t, "18:00", end.String())

	_, err = ComputeEndTime(MustParse("17:45"), 30)
	assert.ErrorIs(t, err, apperr.ErrOutOfHours)
}

func TestValidDuration(t *testing.T) {
	for _, d := range []int{15, 30, 45, 60} {
		assert.True(t, ValidDuration(d), d)
	}
	for _, d := range []int{0, 10, 20, 90, -15} {
		assert.False(t, ValidDuration(d), d)
	}
}

func TestValidateRange(t *testing.T) {
	assert.NoError(t, ValidateRange(MustParse("09:00"), MustParse("18:00")))
	assert.ErrorIs(t, ValidateRange(MustParse("11:00"), MustParse("11:00")), apperr.ErrInvalidRange)
	assert.ErrorIs(t, ValidateRange(MustParse("12:00"), MustParse("11:00")), apperr.ErrInvalidRange)
	assert.ErrorIs(t, ValidateRange(MustParse("08:30"), MustParse("10:00")), apperr.ErrInvalidRange)
	assert.ErrorIs(t, ValidateRange(MustParse("17:00"), MustParse("18:30")), apperr.ErrInvalidRange)
}

func TestSlotsOverlap(t *testing.T) {
	p := MustParse
	cases := []struct {
		name                       string
		aStart, aEnd, bStart, bEnd TimeOfDay
		want                       bool
	}{
		{"adjacent after", p("10:00"), p("11:00"), p("11:00"), p("12:00"), false},
		{"adjacent before", p("11:00"), p("12:00"), p("10:00"), p("11:00"), false},
		{"partial", p("10:00"), p("11:00"), p("10:30"), p("11:30"), true},
		{"contains", p("10:00"), p("12:00"), p("10:30"), p("11:00"), true},
		{"contained", p("10:30"), p("11:00"), p("10:00"), p("12:00"), true},
		{"identical", p("10:00"), p("11:00"), p("10:00"), p("11:00"), true},
		{"disjoint", p("09:00"), p("09:30"), p("14:00"), p("15:00"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SlotsOverlap(tc.aStart, tc.aEnd, tc.bStart, tc.bEnd))
		})
	}
}

func TestCollides_ExactStartAlwaysCollides(t *testing.T) {
	p := MustParse
	// Zero-length interval never overlaps anything, but the equal start still counts.
	assert.True(t, Collides(p("10:00"), p("10:00"), p("10:00"), p("11:00")))
	assert.True(t, Collides(p("10:30"), p("11:00"), p("10:00"), p("11:00")))
	assert.False(t, Collides(p("11:00"), p("11:30"), p("10:00"), p("11:00")))
}

func TestDateOf(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	instant := time.Date(2025, 6, 9, 20, 0, 0, 0, time.UTC) // 01:30 next day in IST
	assert.Equal(t, "2025-06-10", FormatDate(DateOf(instant, loc)))
	assert.Equal(t, "2025-06-09", FormatDate(DateOf(instant, time.UTC)))
}
