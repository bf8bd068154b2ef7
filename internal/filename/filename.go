// Package filename turns tab metadata into safe file names.
package filename

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/lotas/tabgroups/internal/grouping"
)

var (
	invalidChars = regexp.MustCompile(`[<>:"/\\|?*]+`)
	spaces       = regexp.MustCompile(`\s+`)
	underscores  = regexp.MustCompile(`_+`)
)

// MaxLength is the longest name Sanitize returns, in characters.
const MaxLength = 255

// Sanitize replaces characters that are unsafe in file names and runs of
// whitespace with underscores.
func Sanitize(name string) string {
	name = invalidChars.ReplaceAllString(name, "_")
	name = spaces.ReplaceAllString(name, "_")
	name = underscores.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")
	if r := []rune(name); len(r) > MaxLength {
		name = string(r[:MaxLength])
	}
	return name
}

// Fields are the tab values available to a template.
type Fields struct {
	Title string
	URL   string
}

// Format expands {index}, {title}, {url} and {date} in template.
// {url} becomes the sanitized hostname; {date} is now as YYYY-MM-DD.
func Format(template string, f Fields, index int, now time.Time) string {
	host, ok := grouping.Hostname(f.URL)
	if !ok {
		host = f.URL
	}
	r := strings.NewReplacer(
		"{index}", strconv.Itoa(index),
		"{title}", Sanitize(f.Title),
		"{url}", Sanitize(host),
		"{date}", now.UTC().Format("2006-01-02"),
	)
	return r.Replace(template)
}

// Shortcut returns the contents of an internet shortcut (.url) file
// pointing at url.
func Shortcut(url string) []byte {
	return []byte("[InternetShortcut]\r\nURL=" + url + "\r\n")
}
