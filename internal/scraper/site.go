package scraper

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jimezsa/jobscrape/internal/extract"
	"github.com/jimezsa/jobscrape/internal/models"
)

// Site describes how to search one job board and how to read its listings.
type Site struct {
	Name      string            `yaml:"name" validate:"required"`
	BaseURL   string            `yaml:"base_url" validate:"required,url"`
	SearchURL string            `yaml:"search_url" validate:"required"`
	Headers   map[string]string `yaml:"headers"`

	DefaultCategories []string `yaml:"default_categories"`
	DefaultLocation   string   `yaml:"default_location"`
	DefaultPages      int      `yaml:"default_pages" validate:"gte=0,lte=100"`

	ArticleDelay time.Duration `yaml:"article_delay" validate:"gte=0"`
	PageDelay    time.Duration `yaml:"page_delay" validate:"gte=0"`

	Articles    []extract.Locator        `yaml:"articles" validate:"required,min=1"`
	Fields      map[string]extract.Field `yaml:"fields" validate:"required,min=1"`
	Description Description              `yaml:"description"`

	search *template.Template
}

// Description configures the detail page cascade of a site.
type Description struct {
	Targets     []extract.Locator `yaml:"targets"`
	ContentTags []string          `yaml:"content_tags"`
}

// Query is the data a search_url template is executed with.
type Query struct {
	Base         string
	Keywords     string
	Categories   []string
	Location     string
	ContractType string
	Page         int
}

var validate = validator.New()

var searchFuncs = template.FuncMap{
	"query": url.QueryEscape,
	"join":  strings.Join,
	"lower": strings.ToLower,
	"slug": func(value string) string {
		return strings.Join(strings.Fields(strings.ToLower(value)), "-")
	},
}

// columns lists the fields a template may define, in record order.
var columns = []string{
	models.ColTitle,
	models.ColURL,
	models.ColCompany,
	models.ColCompanyURL,
	models.ColIndustry,
	models.ColLocation,
	models.ColPostedDate,
	models.ColContractTypes,
	models.ColSalary,
	models.ColDescriptionPreview,
	models.ColCompanyLogoURL,
	models.ColExperience,
}

func (s *Site) compile() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("site %q: %w", s.Name, err)
	}

	tmpl, err := template.New(s.Name).Funcs(searchFuncs).Option("missingkey=error").Parse(s.SearchURL)
	if err != nil {
		return fmt.Errorf("site %q: search_url: %w", s.Name, err)
	}
	s.search = tmpl

	var errs []error
	for i, locator := range s.Articles {
		if err := (extract.Strategy{Locator: locator}).Validate(); err != nil {
			errs = append(errs, fmt.Errorf("articles[%d]: %w", i, err))
		}
	}
	for name, field := range s.Fields {
		if !isColumn(name) {
			errs = append(errs, fmt.Errorf("fields: unknown column %q", name))
			continue
		}
		field.Name = name
		s.Fields[name] = field
		if err := field.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.DescriptionField().Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("site %q: %w", s.Name, err)
	}
	return nil
}

func isColumn(name string) bool {
	for _, column := range columns {
		if column == name {
			return true
		}
	}
	return false
}

// URL renders the listing URL for one page of a search. Empty categories and
// location fall back to the site defaults.
func (s *Site) URL(params models.SearchParams, page int) (string, error) {
	if s.search == nil {
		if err := s.compile(); err != nil {
			return "", err
		}
	}
	q := Query{
		Base:         strings.TrimRight(s.BaseURL, "/"),
		Keywords:     strings.TrimSpace(params.Keywords),
		Categories:   s.categories(params),
		Location:     s.location(params),
		ContractType: params.ContractType,
		Page:         page,
	}
	var buf bytes.Buffer
	if err := s.search.Execute(&buf, q); err != nil {
		return "", fmt.Errorf("site %q: render search url: %w", s.Name, err)
	}
	return buf.String(), nil
}

func (s *Site) categories(params models.SearchParams) []string {
	if len(params.Categories) > 0 {
		return params.Categories
	}
	return s.DefaultCategories
}

func (s *Site) location(params models.SearchParams) string {
	if loc := strings.TrimSpace(params.Location); loc != "" {
		return loc
	}
	return s.DefaultLocation
}

// Params fills the unset search parameters from the site defaults.
func (s *Site) Params(params models.SearchParams) models.SearchParams {
	params.Site = s.Name
	params.Categories = s.categories(params)
	params.Location = s.location(params)
	if params.Pages <= 0 {
		params.Pages = s.DefaultPages
	}
	if params.Pages <= 0 {
		params.Pages = 1
	}
	return params
}

// DescriptionField is the cascade used on the detail pages of the site.
func (s *Site) DescriptionField() extract.Field {
	return extract.DescriptionField(s.Description.Targets, s.Description.ContentTags)
}

// FieldNames returns the columns the site extracts from listings, in record
// order.
func (s *Site) FieldNames() []string {
	out := make([]string, 0, len(s.Fields))
	for _, column := range columns {
		if _, ok := s.Fields[column]; ok {
			out = append(out, column)
		}
	}
	return out
}

// Summary is a one-line description used by the sites command.
func (s *Site) Summary() string {
	cats := strings.Join(s.DefaultCategories, ",")
	if cats == "" {
		cats = "-"
	}
	loc := s.DefaultLocation
	if loc == "" {
		loc = "-"
	}
	return strings.Join([]string{s.BaseURL, "categories=" + cats, "location=" + loc, "pages=" + strconv.Itoa(s.DefaultPages)}, "  ")
}

func sortedNames(sites map[string]*Site) []string {
	names := make([]string, 0, len(sites))
	for name := range sites {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
