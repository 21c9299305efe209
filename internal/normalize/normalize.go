// Package normalize turns scraped values into single-line, ASCII-folded text
// that is safe for flat record formats.
package normalize

import (
	"strings"
	"unicode"

	"github.com/jimezsa/jobscrape/internal/models"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// folds maps accented Latin letters to their ASCII base letter. It is built
// once at init and only read afterwards.
var folds map[rune]rune

// explicitFolds is the minimum table every output must honor, whatever the
// decomposition data says.
var explicitFolds = map[rune]rune{
	'é': 'e', 'è': 'e', 'ê': 'e', 'ë': 'e',
	'à': 'a', 'â': 'a', 'ä': 'a',
	'ù': 'u', 'û': 'u', 'ü': 'u',
	'ô': 'o', 'ö': 'o',
	'î': 'i', 'ï': 'i',
	'ç': 'c',
	'É': 'E', 'È': 'E', 'Ê': 'E', 'Ë': 'E',
	'À': 'A', 'Â': 'A', 'Ä': 'A',
	'Ù': 'U', 'Û': 'U', 'Ü': 'U',
	'Ô': 'O', 'Ö': 'O',
	'Î': 'I', 'Ï': 'I',
	'Ç': 'C',
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "\u00a0", " ")

func init() {
	folds = make(map[rune]rune, 256)
	// Latin-1 Supplement and Latin Extended-A.
	for r := rune(0x00C0); r <= 0x017F; r++ {
		if base, ok := asciiBase(r); ok {
			folds[r] = base
		}
	}
	for from, to := range explicitFolds {
		folds[from] = to
	}
}

// asciiBase reports the ASCII letter r decomposes to when its canonical
// decomposition is that letter followed only by nonspacing marks.
func asciiBase(r rune) (rune, bool) {
	decomposed := []rune(norm.NFD.String(string(r)))
	if len(decomposed) < 2 {
		return 0, false
	}
	base := decomposed[0]
	if base > unicode.MaxASCII || !unicode.IsLetter(base) {
		return 0, false
	}
	for _, mark := range decomposed[1:] {
		if !unicode.Is(unicode.Mn, mark) {
			return 0, false
		}
	}
	return base, true
}

func foldRune(r rune) rune {
	if base, ok := folds[r]; ok {
		return base
	}
	return r
}

// Fold replaces accented Latin letters with their ASCII base letter and leaves
// everything else untouched.
func Fold(value string) string {
	folded, _, err := transform.String(runes.Map(foldRune), value)
	if err != nil {
		return value
	}
	return folded
}

// Text returns value on a single line: line breaks and non-breaking spaces
// become spaces, whitespace runs collapse to one space, accents are folded and
// the result is trimmed. Text(Text(v)) == Text(v).
func Text(value string) string {
	if value == "" {
		return ""
	}
	value = lineBreaks.Replace(value)
	value = strings.Join(strings.Fields(value), " ")
	return strings.TrimSpace(Fold(value))
}

// Job normalizes every text field of job. URI fields are only trimmed.
func Job(job models.Job) models.Job {
	job.Title = Text(job.Title)
	job.Company = Text(job.Company)
	job.Industry = Text(job.Industry)
	job.Location = Text(job.Location)
	job.PostedDate = Text(job.PostedDate)
	job.Salary = Text(job.Salary)
	job.DescriptionPreview = Text(job.DescriptionPreview)
	job.FullDescription = Text(job.FullDescription)
	job.Experience = Text(job.Experience)

	job.URL = strings.TrimSpace(job.URL)
	job.CompanyURL = strings.TrimSpace(job.CompanyURL)
	job.CompanyLogoURL = strings.TrimSpace(job.CompanyLogoURL)

	if len(job.ContractTypes) > 0 {
		types := make([]string, 0, len(job.ContractTypes))
		for _, value := range job.ContractTypes {
			if value = Text(value); value != "" {
				types = append(types, value)
			}
		}
		job.ContractTypes = types
	}
	return job
}
