package normalize

import (
	"strings"
	"testing"

	"github.com/jimezsa/jobscrape/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestTextFoldsAccents(t *testing.T) {
	assert.Equal(t, "Societe cafe", Text("Société café"))
	assert.Equal(t, "ELEVE a Nimes", Text("ÉLÈVE à Nîmes"))
	assert.Equal(t, "Francois", Text("François"))
}

func TestTextSingleLine(t *testing.T) {
	cases := map[string]string{
		"line\none":                    "line one",
		"crlf\r\nvalue":                "crlf value",
		"  padded   value \t ":         "padded value",
		"nbsp\u00a0value":              "nbsp value",
		"\n\n\nDeveloppeur\n\n":         "Developpeur",
		"a\r\rb":                        "a b",
		"mixed \u00a0\n\t spaces":      "mixed spaces",
	}
	for in, want := range cases {
		got := Text(in)
		assert.Equal(t, want, got, "Text(%q)", in)
		assert.NotContains(t, got, "\n")
		assert.NotContains(t, got, "\r")
		assert.NotContains(t, got, "\u00a0")
	}
}

func TestTextIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"Société café",
		"  Ingénieur\n\nlogiciel\u00a0 senior  ",
		"Déjà vu – naïve façade",
		"Straße Ørsted Æble",
	}
	for _, in := range inputs {
		once := Text(in)
		assert.Equal(t, once, Text(once), "Text not idempotent for %q", in)
	}
}

func TestFoldLeavesUndecomposableLetters(t *testing.T) {
	assert.Equal(t, "Straße Ørsted", Fold("Straße Ørsted"))
	assert.Equal(t, "Łodz", Fold("Łodz"))
	assert.Equal(t, "Zurich Krakow", Fold("Zürich Kraków"))
}

func TestFoldCoversExplicitTable(t *testing.T) {
	for from, to := range explicitFolds {
		assert.Equal(t, string(to), Fold(string(from)), "fold %q", from)
	}
}

func TestJobNormalizesTextFieldsAndTrimsURIs(t *testing.T) {
	job := Job(models.Job{
		Title:           "Développeur\nGo",
		Company:         " Société\u00a0Générale ",
		URL:             "  https://www.keejob.com/offres-emploi/1/  ",
		CompanyLogoURL:  "https://cdn.example.com/logo-é.png ",
		ContractTypes:   []string{" CDI ", "", "Temps\nplein"},
		FullDescription: "Nous   recherchons\n\nun ingénieur",
	})

	assert.Equal(t, "Developpeur Go", job.Title)
	assert.Equal(t, "Societe Generale", job.Company)
	assert.Equal(t, "https://www.keejob.com/offres-emploi/1/", job.URL)
	assert.Equal(t, "https://cdn.example.com/logo-é.png", job.CompanyLogoURL)
	assert.Equal(t, []string{"CDI", "Temps plein"}, job.ContractTypes)
	assert.Equal(t, "Nous recherchons un ingenieur", job.FullDescription)
	assert.False(t, strings.ContainsAny(job.FullDescription, "\r\n"))
}
