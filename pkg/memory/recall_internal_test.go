package memory

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncateUTF8_RespectsRuneBoundary(t *testing.T) {
	s := strings.Repeat("a", maxPreviewLen-1) + "日本語"
	out := truncateUTF8(s, maxPreviewLen)

	assert.LessOrEqual(t, len(out), maxPreviewLen)
	assert.True(t, utf8.ValidString(out))
}

func TestTruncateUTF8_ShorterThanLimitUnchanged(t *testing.T) {
	s := "hello world"
	assert.Equal(t, s, truncateUTF8(s, maxPreviewLen))
}
