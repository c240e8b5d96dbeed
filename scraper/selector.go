package scraper

import (
	"regexp"
	"strings"
)

// LinkAttr is the attribute that holds link targets. Values read from it
// are always taken verbatim.
const LinkAttr = "href"

var attrNamePattern = regexp.MustCompile(`^[A-Za-z_:][-A-Za-z0-9_:.]*$`)

// Selector addresses either the text of an element (Attr empty) or one of
// its attributes. Path is a CSS selector relative to the article element;
// an empty Path means the article element itself.
//
// The text form is "path@attr", e.g. "h2.title a@href" or "@data-id".
type Selector struct {
	Path string
	Attr string
}

// TextSelector selects the trimmed text of the element at path.
func TextSelector(path string) Selector {
	return Selector{Path: strings.TrimSpace(path)}
}

// AttributeSelector selects the attribute attr of the element at path.
func AttributeSelector(path, attr string) Selector {
	return Selector{Path: strings.TrimSpace(path), Attr: attr}
}

// ParseSelector parses the "path@attr" form. An '@' only starts an
// attribute reference when it is the last one, sits outside any [...]
// block and is followed by a valid attribute name.
func ParseSelector(s string) Selector {
	s = strings.TrimSpace(s)
	i := strings.LastIndex(s, "@")
	if i < 0 {
		return TextSelector(s)
	}
	path, attr := s[:i], s[i+1:]
	if !attrNamePattern.MatchString(attr) {
		return TextSelector(s)
	}
	if strings.Count(path, "[") != strings.Count(path, "]") {
		return TextSelector(s)
	}
	return AttributeSelector(path, attr)
}

// IsZero reports whether the selector addresses nothing.
func (s Selector) IsZero() bool {
	return s.Path == "" && s.Attr == ""
}

// IsAttr reports whether the selector targets an attribute.
func (s Selector) IsAttr() bool {
	return s.Attr != ""
}

func (s Selector) String() string {
	if s.Attr == "" {
		return s.Path
	}
	return s.Path + "@" + s.Attr
}

// MarshalText implements encoding.TextMarshaler.
func (s Selector) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler so selectors can be
// written as plain strings in YAML and JSON.
func (s *Selector) UnmarshalText(text []byte) error {
	*s = ParseSelector(string(text))
	return nil
}
