package slackadapter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSlackTS(t *testing.T) {
	assert.Equal(t, int64(1620000000000), parseSlackTS("1620000000.000100"))
}

func TestParseSlackTS_Malformed(t *testing.T) {
	assert.Greater(t, parseSlackTS("not-a-timestamp"), int64(0))
}

func TestIsTransientNetErr(t *testing.T) {
	assert.True(t, isTransientNetErr(errors.New("write: broken pipe")))
	assert.True(t, isTransientNetErr(errors.New("read: connection reset by peer")))
	assert.False(t, isTransientNetErr(errors.New("channel_not_found")))
}
