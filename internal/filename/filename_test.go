package filename

import (
	"strings"
	"testing"
	"time"
)

func TestSanitize(t *testing.T) {
	cases := map[string]string{
		"Hello World":            "Hello_World",
		`a<b>c:d"e/f\g|h?i*j`:    "a_b_c_d_e_f_g_h_i_j",
		"  spaced   out  ":       "spaced_out",
		"__already__underscored": "already_underscored",
		"Go: the ??? language":   "Go_the_language",
		"":                       "",
	}
	for in, want := range cases {
		if got := Sanitize(in); got != want {
			t.Errorf("Sanitize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizeTruncates(t *testing.T) {
	long := strings.Repeat("é", 300)
	got := Sanitize(long)
	if n := len([]rune(got)); n != MaxLength {
		t.Errorf("expected %d characters, got %d", MaxLength, n)
	}
}

func TestFormat(t *testing.T) {
	now := time.Date(2024, 2, 29, 23, 0, 0, 0, time.UTC)
	f := Fields{Title: "Release notes: v2", URL: "https://www.example.com/notes?id=1"}

	if got := Format("{index}_{title}", f, 3, now); got != "3_Release_notes_v2" {
		t.Errorf("default template = %q", got)
	}
	if got := Format("{date}-{url}-{index}", f, 1, now); got != "2024-02-29-www.example.com-1" {
		t.Errorf("date/url template = %q", got)
	}
	if got := Format("{title}{title}", Fields{Title: "x"}, 0, now); got != "xx" {
		t.Errorf("repeated placeholder = %q", got)
	}
}

func TestFormatUnparseableURL(t *testing.T) {
	got := Format("{url}", Fields{URL: "not a url"}, 0, time.Now())
	if got != "not_a_url" {
		t.Errorf("got %q", got)
	}
}

func TestShortcut(t *testing.T) {
	got := string(Shortcut("https://example.com/a"))
	if got != "[InternetShortcut]\r\nURL=https://example.com/a\r\n" {
		t.Errorf("got %q", got)
	}
}
