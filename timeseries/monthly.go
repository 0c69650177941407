package timeseries

import (
	"time"

	"github.com/pkg/errors"
)

// ErrIrregularFrequency is returned when a series cannot be re-indexed to a
// strict month-start frequency.
var ErrIrregularFrequency = errors.New("series does not have a regular monthly frequency")

// MonthStart truncates t to midnight UTC on the first day of its month.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// AddMonths returns the month start n months after t.
func AddMonths(t time.Time, n int) time.Time {
	return MonthStart(t).AddDate(0, n, 0)
}

// MonthRange returns n consecutive month starts beginning at start.
func MonthRange(start time.Time, n int) []time.Time {
	if n <= 0 {
		return []time.Time{}
	}
	out := make([]time.Time, n)
	first := MonthStart(start)
	for i := range out {
		out[i] = first.AddDate(0, i, 0)
	}
	return out
}

// NextMonths returns the n month starts that follow the last timestamp of s.
func (s *Series) NextMonths(n int) []time.Time {
	if !s.HasTimestamps() {
		return MonthRange(AddMonths(Epoch, s.Len()), n)
	}
	return MonthRange(AddMonths(s.Last(), 1), n)
}

// AsMonthly returns a copy of s whose timestamps are month starts. Every
// observation must fall in a distinct month and consecutive observations
// must be exactly one month apart; a gap or a repeated month fails with
// ErrIrregularFrequency. A series without timestamps is laid out from Epoch.
func AsMonthly(s *Series) (*Series, error) {
	if !s.HasTimestamps() {
		if len(s.Timestamps) != 0 {
			return nil, ErrLengthMismatch
		}
		out := s.Copy()
		out.Timestamps = MonthRange(Epoch, out.Len())
		return out, nil
	}

	out := s.Copy()
	for i, ts := range out.Timestamps {
		out.Timestamps[i] = MonthStart(ts)
		if i == 0 {
			continue
		}
		want := AddMonths(out.Timestamps[i-1], 1)
		if !out.Timestamps[i].Equal(want) {
			return nil, errors.Wrapf(ErrIrregularFrequency,
				"observation %d at %s, expected %s", i,
				out.Timestamps[i].Format("2006-01"), want.Format("2006-01"))
		}
	}
	return out, nil
}
