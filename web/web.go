// Package web holds the embedded HTML templates.
package web

import (
	"embed"
	"html/template"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mergestat/timediff"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Templates parses all page templates with the helper funcs.
func Templates() (*template.Template, error) {
	return template.New("").Funcs(Funcs()).ParseFS(templatesFS, "templates/*.html")
}

// Funcs returns the template helper functions.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"relativeTime": FormatRelativeTime,
		"imageSize":    FormatImageSize,
		"imageSrc":     ImageSrc,
		"year":         func() int { return time.Now().Year() },
	}
}

// FormatRelativeTime formats a time.Time as a relative time string like "3 days ago".
func FormatRelativeTime(t time.Time) string {
	return timediff.TimeDiff(t)
}

// FormatImageSize returns the decoded size of a base64 payload in human-readable form.
func FormatImageSize(b64 string) string {
	size := len(b64) / 4 * 3
	for i := len(b64) - 1; i >= 0 && b64[i] == '='; i-- {
		size--
	}
	if size < 0 {
		size = 0
	}
	return humanize.Bytes(uint64(size))
}

// ImageSrc builds a data URL for a base64 encoded PNG.
func ImageSrc(b64 string) template.URL {
	return template.URL("data:image/png;base64," + b64) //nolint:gosec
}
