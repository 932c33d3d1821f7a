package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextCronTime_WeekdayMorning(t *testing.T) {
	loc, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)

	// Saturday 2024-01-06 10:00 CT; next weekday 09:00 CT is Monday 2024-01-08.
	from := time.Date(2024, 1, 6, 10, 0, 0, 0, loc)

	next, err := NextCronTime("0 0 9 * * 1-5", loc, from)
	require.NoError(t, err)

	assert.Equal(t, time.UTC, next.Location())
	inCT := next.In(loc)
	assert.Equal(t, time.Monday, inCT.Weekday())
	assert.Equal(t, 9, inCT.Hour())
	assert.Equal(t, 0, inCT.Minute())
}

func TestNextCronTime_IsPure(t *testing.T) {
	loc := time.UTC
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	a, err1 := NextCronTime("*/5 * * * *", loc, from)
	b, err2 := NextCronTime("*/5 * * * *", loc, from)
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, a, b)
}

func TestNextCronTime_InvalidExpression(t *testing.T) {
	_, err := NextCronTime("not a cron expression", time.UTC, time.Now())
	assert.Error(t, err)
}

func TestValidateCron(t *testing.T) {
	assert.NoError(t, ValidateCron("0 9 * * 1-5"))
	assert.Error(t, ValidateCron("garbage"))
}
