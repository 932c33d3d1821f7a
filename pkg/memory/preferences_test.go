package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePreference(t *testing.T) {
	assert.NoError(t, validatePreference(PrefTimezone, "America/New_York"))
	assert.Error(t, validatePreference(PrefTimezone, "Mars/Olympus"))

	assert.NoError(t, validatePreference(PrefLanguage, "en"))
	assert.Error(t, validatePreference(PrefLanguage, "not-a-lang-code-!!"))

	assert.NoError(t, validatePreference(PrefDisplayName, "Ada Lovelace"))
	assert.Error(t, validatePreference(PrefDisplayName, ""))
	assert.Error(t, validatePreference(PrefDisplayName, string(make([]byte, 101))))

	// Unknown keys pass through unvalidated.
	assert.NoError(t, validatePreference("favorite_color", "anything goes"))
}
