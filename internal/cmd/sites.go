package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
)

type SitesCmd struct {
	Templates string `help:"YAML file with extra or overriding site templates."`
}

type siteInfo struct {
	Name       string   `json:"name"`
	BaseURL    string   `json:"base_url"`
	Categories []string `json:"default_categories,omitempty"`
	Location   string   `json:"default_location,omitempty"`
	Pages      int      `json:"default_pages"`
	Fields     []string `json:"fields"`
}

func (c *SitesCmd) Run(ctx *Context) error {
	registry, err := loadRegistry(ctx, c.Templates)
	if err != nil {
		return err
	}

	infos := make([]siteInfo, 0, len(registry.Names()))
	for _, name := range registry.Names() {
		site, err := registry.Get(name)
		if err != nil {
			return err
		}
		infos = append(infos, siteInfo{
			Name:       site.Name,
			BaseURL:    site.BaseURL,
			Categories: site.DefaultCategories,
			Location:   site.DefaultLocation,
			Pages:      site.DefaultPages,
			Fields:     site.FieldNames(),
		})
	}

	if ctx.JSONOutput {
		enc := json.NewEncoder(ctx.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	}
	if ctx.PlainText {
		for _, info := range infos {
			fmt.Fprintf(ctx.Out, "%s\t%s\t%s\t%s\t%d\n", info.Name, info.BaseURL, strings.Join(info.Categories, ","), info.Location, info.Pages)
		}
		return nil
	}

	ctx.UI.Headingf("Site templates")
	tw := tabwriter.NewWriter(ctx.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "site\tbase_url\tcategories\tlocation\tpages\tfields")
	for _, info := range infos {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			info.Name, ctx.UI.LinkText(info.BaseURL), orDash(strings.Join(info.Categories, ",")), orDash(info.Location), info.Pages, strings.Join(info.Fields, ","))
	}
	return tw.Flush()
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
