package extraction

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultFollowUpDate(t *testing.T) {
	now := time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)
	cases := []struct {
		base string
		want string
	}{
		{"2024-01-01", "2024-01-04"}, // Monday -> Thursday
		{"2024-01-03", "2024-01-08"}, // Saturday moves to Monday
		{"2024-01-04", "2024-01-08"}, // Sunday moves to Monday
		{"2024-01-05", "2024-01-08"}, // Monday
		{"2024-02-27", "2024-03-01"}, // leap year
		{" 2024-01-01 ", "2024-01-04"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, DefaultFollowUpDate(tc.base, now), tc.base)
	}
}

func TestDefaultFollowUpDate_AnchorsOnNow(t *testing.T) {
	now := time.Date(2024, 5, 15, 23, 30, 0, 0, time.UTC) // Wednesday
	assert.Equal(t, "2024-05-20", DefaultFollowUpDate("", now))
	assert.Equal(t, "2024-05-20", DefaultFollowUpDate("garbage", now))
	assert.Equal(t, "2024-05-20", DefaultFollowUpDate("2024/05/15", now))
}

func TestDefaultFollowUpDate_UsesNowLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	// 2024-05-16 01:00 in Tokyo, still the 15th in UTC.
	now := time.Date(2024, 5, 15, 16, 0, 0, 0, time.UTC).In(tokyo)
	assert.Equal(t, "2024-05-20", DefaultFollowUpDate("", now))
}

func TestDefaultFollowUpDate_AlwaysWeekday(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 366; i++ {
		base := day.AddDate(0, 0, i)
		got := DefaultFollowUpDate(base.Format(ISODate), now)
		parsed, err := time.Parse(ISODate, got)
		require.NoError(t, err)
		assert.NotEqual(t, time.Saturday, parsed.Weekday(), got)
		assert.NotEqual(t, time.Sunday, parsed.Weekday(), got)
		assert.True(t, parsed.After(base), got)
		assert.LessOrEqual(t, parsed.Sub(base), 5*24*time.Hour, got)
	}
}

func TestNormalizeDate(t *testing.T) {
	cases := map[string]string{
		"2024-03-05":                "2024-03-05",
		"2024/03/05":                "2024-03-05",
		"2024/3/5":                  "2024-03-05",
		"2024.3.5":                  "2024-03-05",
		"2024年3月5日":                 "2024-03-05",
		"２０２４年３月５日":                 "2024-03-05",
		"2024/3/5（火）":              "2024-03-05",
		"2024-03-05 (Tue)":          "2024-03-05",
		"2024-03-05T09:30:00+09:00": "2024-03-05",
		"2024/3/5 14:00":            "2024-03-05",
	}
	for in, want := range cases {
		got, ok := NormalizeDate(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	got, ok := NormalizeDate("  ")
	assert.True(t, ok)
	assert.Empty(t, got)

	for _, bad := range []string{"来週", "next week", "2024-13-01", "なし"} {
		_, ok := NormalizeDate(bad)
		assert.False(t, ok, bad)
	}
}

func TestLocation(t *testing.T) {
	assert.Equal(t, time.UTC, Location(""))
	assert.Equal(t, time.UTC, Location("Not/AZone"))
	assert.Equal(t, "Asia/Tokyo", Location("Asia/Tokyo").String())
}
