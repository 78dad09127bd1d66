package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifyFilled(t *testing.T) {
	ok := formState{Found: true, Username: "user", Password: "pass"}
	assert.NoError(t, verifyFilled(ok, "user", "pass"))

	assert.Error(t, verifyFilled(formState{Found: false}, "user", "pass"))

	// A reset field after filling must be fatal, not silently resubmitted.
	reset := formState{Found: true, Username: "", Password: "pass"}
	assert.Error(t, verifyFilled(reset, "user", "pass"))

	wrong := formState{Found: true, Username: "user", Password: "truncated"}
	assert.Error(t, verifyFilled(wrong, "user", "pass"))
}

func TestInjectTokenScriptEmbedsToken(t *testing.T) {
	script := injectTokenScript(`tok"en`)
	assert.Contains(t, script, `"tok\"en"`)
	assert.Contains(t, script, "g-recaptcha-response")
}
