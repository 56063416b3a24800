package ordersync

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidRange is returned for empty or inverted ranges
var ErrInvalidRange = errors.New("invalid sync range")

// Range is the requested interval [Start, End) in epoch milliseconds
type Range struct {
	Start int64 `json:"startDate"`
	End   int64 `json:"endDate"`
}

// RangeOf converts wall-clock bounds to a Range
func RangeOf(start, end time.Time) Range {
	return Range{Start: start.UnixMilli(), End: end.UnixMilli()}
}

// Window is one chunk [Start, End) of a Range that the platform accepts in a single query
type Window struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

func (w Window) String() string {
	return fmt.Sprintf("[%s, %s)",
		time.UnixMilli(w.Start).UTC().Format(time.RFC3339),
		time.UnixMilli(w.End).UTC().Format(time.RFC3339))
}

// Partition splits r into consecutive windows no wider than span, earliest first.
// The windows are contiguous and cover r exactly once; the last one may be shorter.
func Partition(r Range, span time.Duration) ([]Window, error) {
	if r.Start >= r.End {
		return nil, fmt.Errorf("%w: start %d is not before end %d", ErrInvalidRange, r.Start, r.End)
	}
	spanMs := span.Milliseconds()
	if spanMs <= 0 {
		return nil, fmt.Errorf("%w: window span must be positive", ErrInvalidRange)
	}

	windows := make([]Window, 0, (r.End-r.Start)/spanMs+1)
	for cur := r.Start; cur < r.End; {
		next := cur + spanMs
		if next > r.End {
			next = r.End
		}
		windows = append(windows, Window{Start: cur, End: next})
		cur = next
	}
	return windows, nil
}
