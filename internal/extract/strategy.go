package extract

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// Mode selects how a matched node is turned into a value.
type Mode string

const (
	ModeText        Mode = "text"
	ModeLinkText    Mode = "link_text"
	ModeLinkHref    Mode = "link_href"
	ModeImageSrc    Mode = "image_src"
	ModeAttr        Mode = "attr"
	ModeBlockText   Mode = "block_text"
	ModeMainContent Mode = "main_content"
	ModeParagraphs  Mode = "paragraphs"
)

var defaultContentTags = []string{"p", "h2", "h3", "h4", "ul", "ol"}

// Strategy is one way of reading a field: where to look and how to read what
// is found there. Only the first node found is read, except in paragraphs
// mode which reads every match.
type Strategy struct {
	Name    string `yaml:"name,omitempty" json:"name,omitempty"`
	Locator `yaml:",inline"`
	Mode    Mode   `yaml:"mode,omitempty" json:"mode,omitempty"`
	// Source names the attribute read in attr mode.
	Source string `yaml:"source,omitempty" json:"source,omitempty"`

	// LongerThan is the acceptability threshold in characters.
	LongerThan int `yaml:"longer_than,omitempty" json:"longer_than,omitempty"`

	// Part options for main_content and paragraphs.
	Tags           []string `yaml:"tags,omitempty" json:"tags,omitempty"`
	PartLongerThan int      `yaml:"part_longer_than,omitempty" json:"part_longer_than,omitempty"`
	MaxParts       int      `yaml:"max_parts,omitempty" json:"max_parts,omitempty"`
	Separator      string   `yaml:"separator,omitempty" json:"separator,omitempty"`
	Deny           []string `yaml:"deny,omitempty" json:"deny,omitempty"`

	// CutBefore drops everything before the first match of the pattern.
	CutBefore string `yaml:"cut_before,omitempty" json:"cut_before,omitempty"`
	// Capture keeps the expansion of Format (default "$1") over the first
	// match of the pattern. Values that do not match are kept as they are.
	Capture string `yaml:"capture,omitempty" json:"capture,omitempty"`
	Format  string `yaml:"format,omitempty" json:"format,omitempty"`
}

func (s Strategy) label(index int) string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("#%d", index+1)
}

// read turns one matched node into a raw value according to the mode.
func (s Strategy) read(node *goquery.Selection, baseURL string) string {
	switch s.Mode {
	case ModeLinkText:
		return joinedText(linkOf(node), " ")
	case ModeLinkHref:
		href, _ := linkOf(node).Attr("href")
		return ResolveURL(baseURL, href)
	case ModeImageSrc:
		img := node
		if goquery.NodeName(node) != "img" {
			img = node.Find("img").First()
		}
		src, _ := img.Attr("src")
		if strings.TrimSpace(src) == "" {
			src, _ = img.Attr("data-src")
		}
		return ResolveURL(baseURL, src)
	case ModeAttr:
		value, _ := node.Attr(s.Source)
		return strings.TrimSpace(value)
	case ModeBlockText:
		return blockText(node)
	case ModeMainContent:
		tags := s.Tags
		if len(tags) == 0 {
			tags = defaultContentTags
		}
		return s.joinParts(node.Find(strings.Join(tags, ", ")), "\n")
	case ModeParagraphs:
		return s.joinParts(node, "\n\n")
	default:
		return joinedText(node, " ")
	}
}

// joinParts keeps the texts of parts that are long enough and not denied.
func (s Strategy) joinParts(parts *goquery.Selection, defaultSep string) string {
	sep := s.Separator
	if sep == "" {
		sep = defaultSep
	}
	var kept []string
	parts.EachWithBreak(func(_ int, part *goquery.Selection) bool {
		text := joinedText(part, " ")
		if utf8.RuneCountInString(text) <= s.PartLongerThan || s.denied(text) {
			return true
		}
		kept = append(kept, text)
		return s.MaxParts <= 0 || len(kept) < s.MaxParts
	})
	return strings.Join(kept, sep)
}

func (s Strategy) denied(text string) bool {
	lower := strings.ToLower(text)
	for _, word := range s.Deny {
		if strings.Contains(lower, strings.ToLower(word)) {
			return true
		}
	}
	return false
}

func (s Strategy) postProcess(value string) string {
	if s.CutBefore != "" {
		if re, err := pattern(s.CutBefore); err == nil {
			if loc := re.FindStringIndex(value); loc != nil {
				value = value[loc[0]:]
			}
		}
	}
	if s.Capture != "" {
		if re, err := pattern(s.Capture); err == nil {
			if match := re.FindStringSubmatchIndex(value); match != nil {
				format := s.Format
				if format == "" {
					format = "$1"
				}
				value = string(re.ExpandString(nil, format, value, match))
			}
		}
	}
	return strings.TrimSpace(value)
}

func (s Strategy) accepts(value string) bool {
	return value != "" && utf8.RuneCountInString(value) > s.LongerThan
}

func linkOf(node *goquery.Selection) *goquery.Selection {
	if goquery.NodeName(node) == "a" {
		return node
	}
	if link := node.Find("a").First(); link.Length() > 0 {
		return link
	}
	return node
}

// Validate reports descriptors that can never match.
func (s Strategy) Validate() error {
	var errs []error
	for _, sel := range []string{s.Selector, s.Has, s.Within} {
		if sel == "" {
			continue
		}
		if _, err := cascadia.ParseGroup(sel); err != nil {
			errs = append(errs, fmt.Errorf("selector %q: %w", sel, err))
		}
	}
	if s.Selector == "" && s.Tag == "" && s.Value == "" {
		errs = append(errs, errors.New("locator needs a selector, tag or attribute value"))
	}
	switch s.Match {
	case "", MatchToken, MatchExact, MatchContains, MatchRegex:
	default:
		errs = append(errs, fmt.Errorf("unknown match kind %q", s.Match))
	}
	switch s.Mode {
	case "", ModeText, ModeLinkText, ModeLinkHref, ModeImageSrc, ModeBlockText, ModeMainContent, ModeParagraphs:
	case ModeAttr:
		if s.Source == "" {
			errs = append(errs, errors.New("attr mode needs a source attribute"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown mode %q", s.Mode))
	}
	patternsToCheck := []string{s.CutBefore, s.Capture, s.Text}
	if s.Match == MatchRegex {
		patternsToCheck = append(patternsToCheck, s.Value)
	}
	for _, expr := range patternsToCheck {
		if expr == "" {
			continue
		}
		if _, err := pattern(expr); err != nil {
			errs = append(errs, fmt.Errorf("pattern %q: %w", expr, err))
		}
	}
	return errors.Join(errs...)
}
