package ordersync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const day = 24 * time.Hour

func date(m time.Month, d int) time.Time {
	return time.Date(2024, m, d, 0, 0, 0, 0, time.UTC)
}

func TestPartitionJanuaryToFebruary(t *testing.T) {
	windows, err := Partition(RangeOf(date(time.January, 1), date(time.February, 20)), 14*day)
	require.NoError(t, err)

	want := []Window{
		{date(time.January, 1).UnixMilli(), date(time.January, 15).UnixMilli()},
		{date(time.January, 15).UnixMilli(), date(time.January, 29).UnixMilli()},
		{date(time.January, 29).UnixMilli(), date(time.February, 12).UnixMilli()},
		{date(time.February, 12).UnixMilli(), date(time.February, 20).UnixMilli()},
	}
	assert.Equal(t, want, windows)
}

func TestPartitionCoversRangeExactlyOnce(t *testing.T) {
	span := 14 * day
	base := date(time.March, 3).UnixMilli()
	cases := []Range{
		{Start: base, End: base + 1},
		{Start: base, End: base + span.Milliseconds()},
		{Start: base, End: base + span.Milliseconds() + 1},
		{Start: base, End: base + 90*day.Milliseconds() + 12345},
		{Start: base + 777, End: base + 365*day.Milliseconds()},
	}

	for _, r := range cases {
		windows, err := Partition(r, span)
		require.NoError(t, err)
		require.NotEmpty(t, windows)

		assert.Equal(t, r.Start, windows[0].Start)
		assert.Equal(t, r.End, windows[len(windows)-1].End)
		for i, w := range windows {
			assert.Less(t, w.Start, w.End)
			assert.LessOrEqual(t, w.End-w.Start, span.Milliseconds())
			if i > 0 {
				assert.Equal(t, windows[i-1].End, w.Start, "windows must be contiguous")
			}
		}
	}
}

func TestPartitionRejectsInvalidRange(t *testing.T) {
	_, err := Partition(Range{Start: 10, End: 10}, day)
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = Partition(Range{Start: 20, End: 10}, day)
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = Partition(Range{Start: 0, End: 10}, 0)
	assert.ErrorIs(t, err, ErrInvalidRange)
}
