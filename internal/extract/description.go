package extract

import "strconv"

// Thresholds of the description cascade, in characters. A candidate must be
// strictly longer than the threshold.
const (
	TargetedLongerThan    = 100
	ContentPartLongerThan = 20
	ParagraphLongerThan   = 40
	MaxParagraphs         = 20
)

// BoilerplateWords mark paragraphs that belong to page chrome rather than the
// posting.
var BoilerplateWords = []string{"cookie", "privacy", "terms", "copyright", "©"}

// DefaultDescriptionTargets are the containers tried first on a detail page.
var DefaultDescriptionTargets = []Locator{
	{Tag: "div", Match: MatchRegex, Value: `(?i)job[-_]?description`},
	{Tag: "section", Match: MatchRegex, Value: `(?i)description`},
	{Tag: "div", Attr: "id", Match: MatchRegex, Value: `(?i)description`},
	{Tag: "div", Match: MatchRegex, Value: `(?i)offer[-_]?description`},
	{Tag: "div", Match: MatchRegex, Value: `(?i)job[-_]?details`},
	{Tag: "div", Match: MatchRegex, Value: `(?i)job[-_]?content`},
	{Tag: "article", Match: MatchRegex, Value: `(?i)job`},
}

// DescriptionField builds the three-tier description cascade: the targeted
// containers, then the main content region, then every meaningful paragraph
// of the page. contentTags overrides the tags collected from the main region.
func DescriptionField(targets []Locator, contentTags []string) Field {
	if len(targets) == 0 {
		targets = DefaultDescriptionTargets
	}
	if len(contentTags) == 0 {
		contentTags = defaultContentTags
	}

	field := Field{Name: "full_description"}
	for i, target := range targets {
		field.Strategies = append(field.Strategies, Strategy{
			Name:       "targeted-" + strconv.Itoa(i+1),
			Locator:    target,
			Mode:       ModeBlockText,
			LongerThan: TargetedLongerThan,
		})
	}
	for _, region := range []Locator{
		{Tag: "main"},
		{Tag: "div", Match: MatchRegex, Value: `(?i)main|content|wrapper`},
	} {
		field.Strategies = append(field.Strategies, Strategy{
			Name:           "main-content",
			Locator:        region,
			Mode:           ModeMainContent,
			Tags:           contentTags,
			PartLongerThan: ContentPartLongerThan,
			Separator:      "\n",
		})
	}
	field.Fallback = &Strategy{
		Name:           "paragraphs",
		Locator:        Locator{Tag: "p"},
		Mode:           ModeParagraphs,
		PartLongerThan: ParagraphLongerThan,
		MaxParts:       MaxParagraphs,
		Separator:      "\n\n",
		Deny:           BoilerplateWords,
	}
	return field
}

