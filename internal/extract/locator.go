package extract

import (
	"regexp"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// MatchKind selects how a Locator compares an attribute against its Value.
type MatchKind string

const (
	// MatchToken matches when one whitespace-separated token equals Value.
	MatchToken MatchKind = "token"
	// MatchExact matches the whole attribute value.
	MatchExact MatchKind = "exact"
	// MatchContains is a case-insensitive substring match.
	MatchContains MatchKind = "contains"
	// MatchRegex tries the pattern on every token and on the whole value.
	MatchRegex MatchKind = "regex"
)

// Locator finds candidate nodes inside a fragment. Selector and Tag are
// alternatives; the attribute, Has, Text and Within refinements apply to
// either.
type Locator struct {
	Selector string    `yaml:"selector,omitempty" json:"selector,omitempty"`
	Tag      string    `yaml:"tag,omitempty" json:"tag,omitempty"`
	Attr     string    `yaml:"attr,omitempty" json:"attr,omitempty"`
	Match    MatchKind `yaml:"match,omitempty" json:"match,omitempty"`
	Value    string    `yaml:"value,omitempty" json:"value,omitempty"`
	Has      string    `yaml:"has,omitempty" json:"has,omitempty"`
	Text     string    `yaml:"text,omitempty" json:"text,omitempty"`
	Within   string    `yaml:"within,omitempty" json:"within,omitempty"`
}

// Find returns every node under root matched by the locator, in document
// order.
func (l Locator) Find(root *goquery.Selection) *goquery.Selection {
	var found *goquery.Selection
	switch {
	case l.Selector != "":
		found = root.Find(l.Selector)
	case l.Tag != "":
		found = root.Find(l.Tag)
	default:
		found = root.Find("*")
	}

	if l.Value != "" {
		found = found.FilterFunction(func(_ int, s *goquery.Selection) bool {
			return l.matchAttr(s)
		})
	}
	if l.Has != "" {
		found = found.FilterFunction(func(_ int, s *goquery.Selection) bool {
			return s.Find(l.Has).Length() > 0
		})
	}
	if l.Text != "" {
		re, err := pattern(l.Text)
		found = found.FilterFunction(func(_ int, s *goquery.Selection) bool {
			return err == nil && re.MatchString(joinedText(s, " "))
		})
	}
	if l.Within != "" {
		var nodes []*html.Node
		found.Each(func(_ int, s *goquery.Selection) {
			if inner := s.Find(l.Within).First(); inner.Length() > 0 {
				nodes = append(nodes, inner.Nodes[0])
			}
		})
		found = root.FindNodes(nodes...)
	}
	return found
}

func (l Locator) matchAttr(s *goquery.Selection) bool {
	name := l.Attr
	if name == "" {
		name = "class"
	}
	value, ok := s.Attr(name)
	if !ok {
		return false
	}

	switch l.Match {
	case MatchExact:
		return value == l.Value
	case MatchContains:
		return strings.Contains(strings.ToLower(value), strings.ToLower(l.Value))
	case MatchRegex:
		re, err := pattern(l.Value)
		if err != nil {
			return false
		}
		for _, token := range strings.Fields(value) {
			if re.MatchString(token) {
				return true
			}
		}
		return re.MatchString(value)
	default:
		for _, token := range strings.Fields(value) {
			if token == l.Value {
				return true
			}
		}
		return false
	}
}

var patterns sync.Map

// pattern compiles expr once and caches it for the life of the process.
func pattern(expr string) (*regexp.Regexp, error) {
	if cached, ok := patterns.Load(expr); ok {
		return cached.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	patterns.Store(expr, re)
	return re, nil
}

// FindAll returns the matches of the first locator that finds anything.
func FindAll(root *goquery.Selection, locators []Locator) *goquery.Selection {
	for _, locator := range locators {
		if found := locator.Find(root); found.Length() > 0 {
			return found
		}
	}
	return root.FindNodes()
}
