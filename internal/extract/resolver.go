// Package extract resolves logical record fields from HTML fragments through
// ordered cascades of extraction strategies.
package extract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
)

// Field is an ordered cascade of strategies for one logical value. The first
// strategy producing an acceptable value wins; Fallback runs only when every
// strategy came up empty.
type Field struct {
	Name       string     `yaml:"name,omitempty" json:"name,omitempty"`
	Strategies []Strategy `yaml:"strategies" json:"strategies"`
	Fallback   *Strategy  `yaml:"fallback,omitempty" json:"fallback,omitempty"`
	// Multi collects the value of every node the winning strategy matches.
	Multi bool `yaml:"multi,omitempty" json:"multi,omitempty"`
}

// FallbackLabel names a Result produced by Field.Fallback.
const FallbackLabel = "fallback"

// Result is the outcome of resolving a field. Found is false when nothing in
// the cascade matched; that is a normal outcome, not an error.
type Result struct {
	Value    string
	Values   []string
	Strategy string
	Found    bool
}

// Validate checks every strategy of the field.
func (f Field) Validate() error {
	if len(f.Strategies) == 0 && f.Fallback == nil {
		return fmt.Errorf("field %s: no strategies", f.Name)
	}
	var errs []error
	for i, strategy := range f.Strategies {
		if err := strategy.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("field %s strategy %s: %w", f.Name, strategy.label(i), err))
		}
	}
	if f.Fallback != nil {
		if err := f.Fallback.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("field %s fallback: %w", f.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Resolver evaluates fields against fragments. BaseURL makes link and image
// values absolute.
type Resolver struct {
	BaseURL string
	Logger  zerolog.Logger
}

// NewResolver returns a Resolver for pages under baseURL.
func NewResolver(baseURL string, logger zerolog.Logger) *Resolver {
	return &Resolver{BaseURL: baseURL, Logger: logger}
}

// Resolve runs the field's cascade against root.
func (r *Resolver) Resolve(root *goquery.Selection, field Field) Result {
	for i, strategy := range field.Strategies {
		if result, ok := r.try(root, strategy, field.Multi); ok {
			result.Strategy = strategy.label(i)
			return result
		}
	}
	if field.Fallback != nil {
		if result, ok := r.try(root, *field.Fallback, field.Multi); ok {
			result.Strategy = FallbackLabel
			return result
		}
	}
	r.Logger.Debug().Str("field", field.Name).Msg("no strategy matched")
	return Result{}
}

func (r *Resolver) try(root *goquery.Selection, strategy Strategy, multi bool) (Result, bool) {
	nodes := strategy.Find(root)
	if nodes.Length() == 0 {
		return Result{}, false
	}

	if strategy.Mode == ModeParagraphs {
		value := strategy.postProcess(strategy.read(nodes, r.BaseURL))
		if !strategy.accepts(value) {
			return Result{}, false
		}
		return Result{Value: value, Values: []string{value}, Found: true}, true
	}

	if multi {
		var values []string
		nodes.Each(func(_ int, node *goquery.Selection) {
			value := strategy.postProcess(strategy.read(node, r.BaseURL))
			if strategy.accepts(value) {
				values = append(values, value)
			}
		})
		if len(values) == 0 {
			return Result{}, false
		}
		return Result{Value: strings.Join(values, ", "), Values: values, Found: true}, true
	}

	value := strategy.postProcess(strategy.read(nodes.First(), r.BaseURL))
	if !strategy.accepts(value) {
		return Result{}, false
	}
	return Result{Value: value, Values: []string{value}, Found: true}, true
}
