package extract

import (
	"fmt"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func newResolver() *Resolver {
	return NewResolver("https://www.keejob.com", zerolog.Nop())
}

func TestResolveReturnsFirstAcceptableStrategy(t *testing.T) {
	doc := mustDoc(t, `<article>
		<p class="designation-title"><a href="/job/1">Primary Title</a></p>
		<h3>Secondary Title</h3>
	</article>`)
	field := Field{Name: "title", Strategies: []Strategy{
		{Name: "designation", Locator: Locator{Tag: "p", Value: "designation-title"}, Mode: ModeLinkText},
		{Name: "heading", Locator: Locator{Selector: "h2, h3, h4"}},
	}}

	got := newResolver().Resolve(doc.Selection, field)
	assert.True(t, got.Found)
	assert.Equal(t, "Primary Title", got.Value)
	assert.Equal(t, "designation", got.Strategy)
}

func TestResolveSkipsEmptyMatches(t *testing.T) {
	doc := mustDoc(t, `<div><span class="ico-webjob">   </span><p class="company-name">Acme</p></div>`)
	field := Field{Name: "company", Strategies: []Strategy{
		{Locator: Locator{Tag: "span", Value: "ico-webjob"}},
		{Locator: Locator{Tag: "p", Match: MatchRegex, Value: `company|recruiter`}},
	}}

	got := newResolver().Resolve(doc.Selection, field)
	assert.Equal(t, "Acme", got.Value)
	assert.Equal(t, "#2", got.Strategy)
}

func TestResolveNotFound(t *testing.T) {
	doc := mustDoc(t, `<div><p>nothing here</p></div>`)
	field := Field{Name: "salary", Strategies: []Strategy{
		{Locator: Locator{Tag: "span", Value: "bg-green-100"}},
	}}

	got := newResolver().Resolve(doc.Selection, field)
	assert.False(t, got.Found)
	assert.Empty(t, got.Value)
}

func TestResolveMultiCollectsEveryMatch(t *testing.T) {
	doc := mustDoc(t, `<article>
		<span class="px-2 bg-blue-100">CDI</span>
		<span class="px-2 bg-blue-100"> </span>
		<span class="px-2 bg-blue-100">Temps plein</span>
	</article>`)
	field := Field{Name: "contract_types", Multi: true, Strategies: []Strategy{
		{Locator: Locator{Tag: "span", Value: "bg-blue-100"}},
	}}

	got := newResolver().Resolve(doc.Selection, field)
	assert.Equal(t, []string{"CDI", "Temps plein"}, got.Values)
	assert.Equal(t, "CDI, Temps plein", got.Value)
}

func TestLocatorMatchKinds(t *testing.T) {
	doc := mustDoc(t, `<div>
		<div class="flex items-center whitespace-nowrap"><i class="fas fa-clock"></i><span>Il y a 2 jours</span></div>
		<div class="flex items-center whitespace-nowrap"><i class="fas fa-map-marker-alt"></i><span>Tunis</span></div>
		<div class="flex items-center whitespace-nowrap extra"><i class="fas fa-map-marker-alt"></i><span>Sfax</span></div>
		<img alt="Company LOGO" src="/media/logo.png">
		<li class="srp-tuple-item">tuple</li>
	</div>`)
	r := newResolver()

	location := r.Resolve(doc.Selection, Field{Strategies: []Strategy{{Locator: Locator{
		Tag: "div", Match: MatchExact, Value: "flex items-center whitespace-nowrap",
		Has: "i.fa-map-marker-alt", Within: "span",
	}}}})
	assert.Equal(t, "Tunis", location.Value)

	logo := r.Resolve(doc.Selection, Field{Strategies: []Strategy{{
		Locator: Locator{Tag: "img", Attr: "alt", Match: MatchContains, Value: "logo"},
		Mode:    ModeImageSrc,
	}}})
	assert.Equal(t, "https://www.keejob.com/media/logo.png", logo.Value)

	tuple := (Locator{Tag: "li", Match: MatchRegex, Value: `^(info-exp|tuple)$`}).Find(doc.Selection)
	assert.Equal(t, 0, tuple.Length())
	tuple = (Locator{Tag: "li", Match: MatchRegex, Value: `info-exp|tuple`}).Find(doc.Selection)
	assert.Equal(t, 1, tuple.Length())
}

func TestLocatorTextPattern(t *testing.T) {
	doc := mustDoc(t, `<div><span>Remote</span><span>2 - 5 Years</span></div>`)
	got := newResolver().Resolve(doc.Selection, Field{Strategies: []Strategy{{
		Locator: Locator{Tag: "span", Text: `\d+\s*-\s*\d+\s*[Yy]ears`},
		Capture: `(\d+\s*-\s*\d+)\s*[Yy]ears?`,
		Format:  "$1 Years",
	}}})
	assert.Equal(t, "2 - 5 Years", got.Value)
}

func TestPostProcessing(t *testing.T) {
	cases := []struct {
		strategy Strategy
		in       string
		want     string
	}{
		{Strategy{CutBefore: `[A-Z]`}, "hiring: Acme Corp", "Acme Corp"},
		{Strategy{CutBefore: `[A-Z]`}, "no capitals", "no capitals"},
		{Strategy{CutBefore: `Tunisia`}, "Location Tunis, Tunisia", "Tunisia"},
		{Strategy{Capture: `(\d+\s*-\s*\d+)\s*[Yy]ears?`, Format: "$1 Years"}, "Exp 3-6 years", "3-6 Years"},
		{Strategy{Capture: `(\d+\s*-\s*\d+)\s*[Yy]ears?`, Format: "$1 Years"}, "Fresher", "Fresher"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.strategy.postProcess(tc.in), "postProcess(%q)", tc.in)
	}
}

func TestBlockTextSeparatesBlocks(t *testing.T) {
	doc := mustDoc(t, `<div id="d"><h2> Missions </h2><script>var x = 1;</script>
		<p>Concevoir des <b>services</b></p><style>p{}</style><ul><li>Go</li><li>SQL<br>PostgreSQL</li></ul></div>`)
	got := blockText(doc.Find("#d"))
	assert.Equal(t, "Missions\nConcevoir des services\nGo\nSQL\nPostgreSQL", got)
}

func TestInlineTextRunsTogether(t *testing.T) {
	doc := mustDoc(t, `<article><h3 class="title"><a href="/job/7">Dév<b>eloppeur</b>   <i>Go</i>
		senior</a></h3></article>`)

	assert.Equal(t, "Développeur Go senior", joinedText(doc.Find("a"), " "))

	field := Field{Name: "title", Strategies: []Strategy{
		{Locator: Locator{Tag: "h3"}, Mode: ModeLinkText},
	}}
	got := newResolver().Resolve(doc.Selection, field)
	assert.True(t, got.Found)
	assert.Equal(t, "Développeur Go senior", got.Value)
}

func TestDescriptionTargetedThreshold(t *testing.T) {
	field := DescriptionField(nil, nil)
	r := newResolver()

	exact := strings.Repeat("a", TargetedLongerThan)
	doc := mustDoc(t, `<div class="job-description">`+exact+`</div>`)
	got := r.Resolve(doc.Selection, field)
	assert.NotEqual(t, "targeted-1", got.Strategy)

	longer := strings.Repeat("a", TargetedLongerThan+1)
	doc = mustDoc(t, `<div class="Job_Description">`+longer+`</div>`)
	got = r.Resolve(doc.Selection, field)
	assert.Equal(t, "targeted-1", got.Strategy)
	assert.Equal(t, longer, got.Value)
}

func TestDescriptionFallsBackToMainContent(t *testing.T) {
	doc := mustDoc(t, `<html><body>
		<main>
			<h2>Short</h2>
			<p>This paragraph is long enough to count.</p>
			<ul><li>First requirement item here</li></ul>
		</main>
	</body></html>`)

	got := newResolver().Resolve(doc.Selection, DescriptionField(nil, nil))
	assert.True(t, got.Found)
	assert.Equal(t, "main-content", got.Strategy)
	assert.Equal(t, "This paragraph is long enough to count.\nFirst requirement item here", got.Value)
}

func TestDescriptionPrefersMainOverContentDiv(t *testing.T) {
	doc := mustDoc(t, `<html><body>
		<div class="content"><p>Sidebar listing of other openings nearby.</p></div>
		<main>
			<p>Build and operate the payment platform services.</p>
		</main>
	</body></html>`)

	got := newResolver().Resolve(doc.Selection, DescriptionField(nil, nil))
	assert.True(t, got.Found)
	assert.Equal(t, "main-content", got.Strategy)
	assert.Equal(t, "Build and operate the payment platform services.", got.Value)
}

func TestDescriptionFallsBackToParagraphs(t *testing.T) {
	var b strings.Builder
	b.WriteString(`<html><body><p>short</p><p>We use cookies to improve your experience on this website.</p>`)
	for i := 0; i < 25; i++ {
		fmt.Fprintf(&b, "<p>Paragraph %02d carries enough words to pass the filter.</p>", i)
	}
	b.WriteString(`</body></html>`)

	got := newResolver().Resolve(mustDoc(t, b.String()).Selection, DescriptionField(nil, nil))
	assert.Equal(t, FallbackLabel, got.Strategy)
	parts := strings.Split(got.Value, "\n\n")
	require.Len(t, parts, MaxParagraphs)
	assert.Equal(t, "Paragraph 00 carries enough words to pass the filter.", parts[0])
	assert.NotContains(t, got.Value, "cookies")
}

func TestDescriptionNothingFound(t *testing.T) {
	doc := mustDoc(t, `<html><body><p>tiny</p></body></html>`)
	got := newResolver().Resolve(doc.Selection, DescriptionField(nil, nil))
	assert.False(t, got.Found)
}

func TestFindAllUsesFirstLocatorWithMatches(t *testing.T) {
	doc := mustDoc(t, `<div><div class="srp-tuple">a</div><div class="srp-tuple">b</div></div>`)
	found := FindAll(doc.Selection, []Locator{
		{Tag: "li", Match: MatchRegex, Value: `info-exp|tuple`},
		{Tag: "article", Match: MatchRegex, Value: `job|listing`},
		{Tag: "div", Match: MatchRegex, Value: `tuple|job-tuple|srp-tuple`},
	})
	assert.Equal(t, 2, found.Length())

	none := FindAll(doc.Selection, []Locator{{Tag: "article"}})
	assert.Equal(t, 0, none.Length())
}

func TestResolveURL(t *testing.T) {
	base := "https://www.keejob.com"
	assert.Equal(t, "https://www.keejob.com/offres-emploi/1/", ResolveURL(base, "/offres-emploi/1/"))
	assert.Equal(t, "https://other.com/a", ResolveURL(base, "https://other.com/a"))
	assert.Equal(t, "https://cdn.example.com/x.png", ResolveURL(base, "//cdn.example.com/x.png"))
	assert.Equal(t, "http://cdn.example.com/x.png", ResolveURL("http://www.keejob.com", "//cdn.example.com/x.png"))
	assert.Empty(t, ResolveURL(base, "  "))
}

func TestFieldValidate(t *testing.T) {
	assert.NoError(t, DescriptionField(nil, nil).Validate())

	bad := Field{Name: "title", Strategies: []Strategy{
		{Locator: Locator{Selector: "div[["}},
		{Locator: Locator{Tag: "p", Match: MatchRegex, Value: "("}},
		{Locator: Locator{Tag: "p"}, Mode: "bogus"},
		{Locator: Locator{Tag: "p"}, Mode: ModeAttr},
	}}
	err := bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "div[[")
	assert.Contains(t, err.Error(), "bogus")
	assert.Contains(t, err.Error(), "source")

	assert.Error(t, Field{Name: "empty"}.Validate())
}
