package daterange

import (
	"fmt"
	"time"

	"github.com/Stone-IT-Cloud/devreport/internal/config"
)

// ErrConfiguration is returned when the window choice is missing or ambiguous.
// It matches config.ErrConfiguration under errors.Is.
var ErrConfiguration = fmt.Errorf("date range: %w", config.ErrConfiguration)

const (
	dateLayout  = "2006-01-02"          // YYYY-MM-DD
	monthLayout = "2006-01"             // YYYY-MM
	gitLayout   = "2006-01-02 15:04:05" // bound with explicit time of day
)

// DateRange is the commit window handed to git as --since/--until.
// Start and End are kept as strings because explicit dates pass through verbatim.
type DateRange struct {
	Start string
	End   string
	// Label is the value written to the report's Month column.
	Label string
}

// Options selects the window. Exactly one of LastMonth or Dates must be set.
type Options struct {
	LastMonth bool
	Dates     []string
	// Now is the reference time for LastMonth. Zero means time.Now().
	Now time.Time
}

// Resolve turns the window choice into a DateRange.
//
// With LastMonth the window is the whole previous calendar month, end-exclusive:
// the first of last month up to the first of the current month. With Dates the two
// strings are used as-is and the start doubles as the label; git validates them.
func Resolve(opts Options) (DateRange, error) {
	hasDates := len(opts.Dates) > 0
	switch {
	case opts.LastMonth && hasDates:
		return DateRange{}, fmt.Errorf("%w: --last-month and --dates are mutually exclusive", ErrConfiguration)
	case !opts.LastMonth && !hasDates:
		return DateRange{}, fmt.Errorf("%w: one of --last-month or --dates is required", ErrConfiguration)
	case opts.LastMonth:
		now := opts.Now
		if now.IsZero() {
			now = time.Now()
		}
		return LastMonth(now), nil
	}

	if len(opts.Dates) != 2 {
		return DateRange{}, fmt.Errorf("%w: --dates takes exactly two values (START END), got %d", ErrConfiguration, len(opts.Dates))
	}
	return DateRange{Start: opts.Dates[0], End: opts.Dates[1], Label: opts.Dates[0]}, nil
}

// LastMonth returns the calendar month before the one containing now.
func LastMonth(now time.Time) DateRange {
	firstOfCurrent := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	start := firstOfCurrent.AddDate(0, -1, 0)
	return DateRange{
		Start: start.Format(dateLayout),
		End:   firstOfCurrent.Format(dateLayout),
		Label: start.Format(monthLayout),
	}
}

// GitSince is the --since value for Start. A bare YYYY-MM-DD date is pinned to
// midnight; git would otherwise use the current time of day.
func (r DateRange) GitSince() string {
	day, err := time.ParseInLocation(dateLayout, r.Start, time.Local)
	if err != nil {
		return r.Start
	}
	return day.Format(gitLayout)
}

// GitUntil is the --until value for End. git's --until is inclusive, so a bare
// YYYY-MM-DD date becomes the last second of the previous day, keeping commits
// made at or after midnight on End out of the window.
func (r DateRange) GitUntil() string {
	day, err := time.ParseInLocation(dateLayout, r.End, time.Local)
	if err != nil {
		return r.End
	}
	return day.Add(-time.Second).Format(gitLayout)
}

func (r DateRange) String() string {
	return fmt.Sprintf("%s to %s", r.Start, r.End)
}
