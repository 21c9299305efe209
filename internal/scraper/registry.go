package scraper

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	SiteKeejob     = "keejob"
	SiteNaukrigulf = "naukrigulf"
)

//go:embed sites.yaml
var builtinSites []byte

type siteFile struct {
	Sites []*Site `yaml:"sites"`
}

// Registry holds the site templates known to a run.
type Registry struct {
	sites map[string]*Site
}

// NewRegistry loads the built-in templates, then every file in overrides.
// A template in an override file replaces the built-in one of the same name.
func NewRegistry(overrides ...string) (*Registry, error) {
	r := &Registry{sites: map[string]*Site{}}
	if err := r.load(builtinSites, "built-in templates"); err != nil {
		return nil, err
	}
	for _, path := range overrides {
		if strings.TrimSpace(path) == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read templates: %w", err)
		}
		if err := r.load(data, path); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) load(data []byte, source string) error {
	var file siteFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse %s: %w", source, err)
	}
	for _, site := range file.Sites {
		if site == nil {
			continue
		}
		site.Name = NormalizeSite(site.Name)
		if err := site.compile(); err != nil {
			return fmt.Errorf("%s: %w", source, err)
		}
		r.sites[site.Name] = site
	}
	return nil
}

// Get returns the template registered under name.
func (r *Registry) Get(name string) (*Site, error) {
	site, ok := r.sites[NormalizeSite(name)]
	if !ok {
		return nil, fmt.Errorf("unknown site %q (known: %s)", name, strings.Join(r.Names(), ", "))
	}
	return site, nil
}

// Names lists the registered sites alphabetically.
func (r *Registry) Names() []string {
	return sortedNames(r.sites)
}

// NormalizeSite lower-cases a site name and strips a leading "www." and any
// top-level domain, so "www.Keejob.com" names keejob.
func NormalizeSite(site string) string {
	site = strings.ToLower(strings.TrimSpace(site))
	site = strings.TrimPrefix(site, "www.")
	if i := strings.IndexByte(site, '.'); i > 0 {
		site = site[:i]
	}
	return site
}
