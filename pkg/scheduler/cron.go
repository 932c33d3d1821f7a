package scheduler

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// NextCronTime computes the next fire time for a cron expression evaluated
// in loc, returned in UTC (spec §4.7, §8's "next_cron_time is a pure
// function" testable property). Accepts 5-field (standard) or 6-field
// (seconds-first) expressions per spec §4.7's "5-7 fields" allowance;
// robfig/cron/v3 has no native 7-field (year) support, so a 7-field
// expression is rejected rather than silently dropping the year field.
func NextCronTime(expr string, loc *time.Location, from time.Time) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	sched, err := parserFor(expr).Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cron expression %q: %w", expr, err)
	}
	next := sched.Next(from.In(loc))
	if next.IsZero() {
		return time.Time{}, fmt.Errorf("cron expression %q has no future occurrence", expr)
	}
	return next.UTC(), nil
}

// ValidateCron reports whether expr is a syntactically valid cron
// expression, without computing a next-run time.
func ValidateCron(expr string) error {
	_, err := parserFor(expr).Parse(expr)
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}

func parserFor(expr string) cron.Parser {
	switch len(strings.Fields(expr)) {
	case 6:
		return cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	default:
		return cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	}
}
