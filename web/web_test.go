package web

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplates_Parse(t *testing.T) {
	tmpl, err := Templates()
	require.NoError(t, err)

	for _, name := range []string{"index.html", "gallery.html", "about.html", "login.html", "register.html", "profile.html"} {
		assert.NotNil(t, tmpl.Lookup(name), name)
	}
}

func TestTemplates_RenderLogin(t *testing.T) {
	tmpl, err := Templates()
	require.NoError(t, err)

	var buf bytes.Buffer
	err = tmpl.ExecuteTemplate(&buf, "login.html", map[string]any{
		"Title":  "Log in",
		"Active": "login",
		"Next":   "/profile",
		"Email":  "alice@example.com",
		"Errors": []string{"Invalid email or password"},
	})
	require.NoError(t, err)

	body := buf.String()
	assert.Contains(t, body, "Invalid email or password")
	assert.Contains(t, body, `action="/login?next=%2fprofile"`)
	assert.Contains(t, body, `value="alice@example.com"`)
}

func TestFormatImageSize(t *testing.T) {
	assert.Equal(t, "3 B", FormatImageSize("YWJj"))
	assert.Equal(t, "2 B", FormatImageSize("YWI="))
	assert.Equal(t, "0 B", FormatImageSize(""))
}

func TestImageSrc(t *testing.T) {
	assert.Equal(t, "data:image/png;base64,YWJj", string(ImageSrc("YWJj")))
}

func TestFormatRelativeTime(t *testing.T) {
	assert.Equal(t, "2 hours ago", FormatRelativeTime(time.Now().Add(-2*time.Hour)))
}
