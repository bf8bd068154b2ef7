// Package settings holds the user-configurable options shared by every
// tabgroups surface, and the store that persists them.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/lotas/tabgroups/internal/types"
)

// Setting keys as persisted.
const (
	KeyAutoGroup            = "autoGroup"
	KeyAutoGroupDomains     = "autoGroupDomains"
	KeyGroupColors          = "groupColors"
	KeyDefaultColor         = "defaultColor"
	KeyDarkMode             = "darkMode"
	KeyFileNameTemplate     = "fileNameTemplate"
	KeyShowTabCount         = "showTabCount"
	KeyConfirmTabClose      = "confirmTabClose"
	KeyMaxRecentGroups      = "maxRecentGroups"
	KeyMaxGroupSize         = "maxGroupSize"
	KeyCollapseInactiveTabs = "collapseInactiveTabs"
	KeyInactiveTimeout      = "inactiveTimeout"
	KeyLastBackup           = "lastBackup"
)

// Keys lists every recognized setting in display order.
var Keys = []string{
	KeyAutoGroup,
	KeyAutoGroupDomains,
	KeyGroupColors,
	KeyDefaultColor,
	KeyDarkMode,
	KeyFileNameTemplate,
	KeyShowTabCount,
	KeyConfirmTabClose,
	KeyMaxRecentGroups,
	KeyMaxGroupSize,
	KeyCollapseInactiveTabs,
	KeyInactiveTimeout,
	KeyLastBackup,
}

var (
	ErrUnknownKey    = errors.New("unknown setting")
	ErrInvalidDomain = errors.New("invalid domain")
	ErrInvalidColor  = errors.New("invalid color")
)

// Settings is the full set of options. A loaded Settings always carries
// every key; missing stored values fall back to Defaults.
type Settings struct {
	AutoGroup        bool     `json:"autoGroup"`
	AutoGroupDomains []string `json:"autoGroupDomains"`
	GroupColors      []string `json:"groupColors"`
	DefaultColor     string   `json:"defaultColor"`
	DarkMode         bool     `json:"darkMode"`
	FileNameTemplate string   `json:"fileNameTemplate"`

	// Presentation-only options.
	ShowTabCount         bool   `json:"showTabCount"`
	ConfirmTabClose      bool   `json:"confirmTabClose"`
	MaxRecentGroups      int    `json:"maxRecentGroups"`
	MaxGroupSize         int    `json:"maxGroupSize"`
	CollapseInactiveTabs bool   `json:"collapseInactiveTabs"`
	InactiveTimeout      int    `json:"inactiveTimeout"`
	LastBackup           string `json:"lastBackup"`
}

// DefaultPalette is the color order used for new groups.
var DefaultPalette = []string{"grey", "blue", "red", "yellow", "green", "pink", "purple", "cyan"}

const (
	DefaultColor            = "blue"
	DefaultFileNameTemplate = "{index}_{title}"
)

// Defaults returns the documented default for every key.
func Defaults() Settings {
	return Settings{
		AutoGroup:            false,
		AutoGroupDomains:     []string{},
		GroupColors:          slices.Clone(DefaultPalette),
		DefaultColor:         DefaultColor,
		DarkMode:             false,
		FileNameTemplate:     DefaultFileNameTemplate,
		ShowTabCount:         true,
		ConfirmTabClose:      true,
		MaxRecentGroups:      10,
		MaxGroupSize:         20,
		CollapseInactiveTabs: false,
		InactiveTimeout:      30,
	}
}

// Clone returns a deep copy.
func (s Settings) Clone() Settings {
	c := s
	c.AutoGroupDomains = slices.Clone(s.AutoGroupDomains)
	c.GroupColors = slices.Clone(s.GroupColors)
	return c
}

// normalize repairs values that cannot be used as stored.
func (s *Settings) normalize() {
	if s.AutoGroupDomains == nil {
		s.AutoGroupDomains = []string{}
	}
	colors := make([]string, 0, len(s.GroupColors))
	for _, c := range s.GroupColors {
		c = types.NormalizeColor(c)
		if types.ValidColor(c) && !slices.Contains(colors, c) {
			colors = append(colors, c)
		}
	}
	s.GroupColors = colors
	s.DefaultColor = types.NormalizeColor(s.DefaultColor)
	if !types.ValidColor(s.DefaultColor) {
		s.DefaultColor = DefaultColor
	}
	if strings.TrimSpace(s.FileNameTemplate) == "" {
		s.FileNameTemplate = DefaultFileNameTemplate
	}
}

// encode returns every key as raw JSON.
func (s Settings) encode() (map[string]json.RawMessage, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var out map[string]json.RawMessage
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// decodeKey sets a single key from raw JSON. s is left unchanged on error.
func (s *Settings) decodeKey(key string, raw json.RawMessage) error {
	if !slices.Contains(Keys, key) {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	next := s.Clone()
	obj := make([]byte, 0, len(key)+len(raw)+8)
	obj = append(obj, `{"`...)
	obj = append(obj, key...)
	obj = append(obj, `":`...)
	obj = append(obj, raw...)
	obj = append(obj, '}')
	if err := json.Unmarshal(obj, &next); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	*s = next
	return nil
}

// Value returns the JSON encoding of one key.
func (s Settings) Value(key string) (string, error) {
	enc, err := s.encode()
	if err != nil {
		return "", err
	}
	v, ok := enc[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return string(v), nil
}

// Set parses a command-line value for key. Lists are comma separated.
func (s *Settings) Set(key, value string) error {
	var raw []byte
	var err error
	switch key {
	case KeyAutoGroup, KeyDarkMode, KeyShowTabCount, KeyConfirmTabClose, KeyCollapseInactiveTabs:
		var b bool
		b, err = strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s: expected true or false", key)
		}
		raw, err = json.Marshal(b)
	case KeyMaxRecentGroups, KeyMaxGroupSize, KeyInactiveTimeout:
		var n int
		n, err = strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("%s: expected a non-negative number", key)
		}
		raw, err = json.Marshal(n)
	case KeyAutoGroupDomains:
		next := s.Clone()
		next.AutoGroupDomains = []string{}
		for _, d := range splitList(value) {
			if err := next.AddDomain(d); err != nil {
				return err
			}
		}
		*s = next
		return nil
	case KeyGroupColors:
		list := splitList(value)
		for _, c := range list {
			if !types.ValidColor(c) {
				return fmt.Errorf("%w: %q", ErrInvalidColor, c)
			}
		}
		raw, err = json.Marshal(list)
	case KeyDefaultColor:
		if !types.ValidColor(value) {
			return fmt.Errorf("%w: %q", ErrInvalidColor, value)
		}
		raw, err = json.Marshal(value)
	case KeyFileNameTemplate, KeyLastBackup:
		raw, err = json.Marshal(value)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	if err != nil {
		return err
	}
	if err := s.decodeKey(key, raw); err != nil {
		return err
	}
	s.normalize()
	return nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

var domainPattern = regexp.MustCompile(`^([a-zA-Z0-9]([a-zA-Z0-9-]*[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}$`)

// ValidDomain reports whether d looks like a host name with a TLD.
func ValidDomain(d string) bool {
	return domainPattern.MatchString(d)
}

// AddDomain appends a domain to the auto-group list. The domain is trimmed
// and lower-cased; duplicates are ignored.
func (s *Settings) AddDomain(d string) error {
	d = strings.ToLower(strings.TrimSpace(d))
	if d == "" {
		return nil
	}
	if !ValidDomain(d) {
		return fmt.Errorf("%w: %q", ErrInvalidDomain, d)
	}
	if !slices.Contains(s.AutoGroupDomains, d) {
		s.AutoGroupDomains = append(s.AutoGroupDomains, d)
	}
	return nil
}

// RemoveDomain drops a domain from the auto-group list and reports whether
// it was present.
func (s *Settings) RemoveDomain(d string) bool {
	d = strings.ToLower(strings.TrimSpace(d))
	i := slices.Index(s.AutoGroupDomains, d)
	if i < 0 {
		return false
	}
	s.AutoGroupDomains = slices.Delete(s.AutoGroupDomains, i, i+1)
	return true
}

// ToggleColor adds c to the palette, or removes it if already present.
func (s *Settings) ToggleColor(c string) error {
	c = types.NormalizeColor(c)
	if !types.ValidColor(c) {
		return fmt.Errorf("%w: %q", ErrInvalidColor, c)
	}
	if i := slices.Index(s.GroupColors, c); i >= 0 {
		s.GroupColors = slices.Delete(s.GroupColors, i, i+1)
	} else {
		s.GroupColors = append(s.GroupColors, c)
	}
	return nil
}
