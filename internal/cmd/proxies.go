package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	fhttp "github.com/bogdanfinn/fhttp"
	"github.com/jimezsa/jobscrape/internal/config"
	"github.com/jimezsa/jobscrape/internal/network"
	"golang.org/x/sync/errgroup"
)

type ProxiesCmd struct {
	Check ProxyCheckCmd `cmd:"" help:"Check each proxy against a site's search page."`
}

type ProxyCheckCmd struct {
	Site      string        `short:"s" help:"Site whose base URL is requested (default from config)."`
	Target    string        `help:"Explicit target URL; overrides --site."`
	Proxies   string        `help:"Comma-separated proxy URLs (default: JOBSCRAPE_PROXIES or proxies.txt)."`
	Templates string        `help:"YAML file with extra or overriding site templates."`
	Timeout   time.Duration `help:"Per-request timeout." default:"15s"`
	Parallel  int           `help:"Proxies checked at once." default:"4"`
}

type ProxyCheckResult struct {
	Proxy     string `json:"proxy"`
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

func (p *ProxyCheckCmd) Run(ctx *Context) error {
	proxies, err := config.LoadProxies(p.Proxies)
	if err != nil {
		return err
	}
	if len(proxies) == 0 {
		return fmt.Errorf("no proxies configured")
	}
	target, err := p.target(ctx)
	if err != nil {
		return err
	}
	ctx.Logger.Debug().Str("url", target).Int("proxies", len(proxies)).Msg("checking proxies")

	// Results keep the configured order; checks run a few at a time.
	results := make([]ProxyCheckResult, len(proxies))
	var g errgroup.Group
	g.SetLimit(max(p.Parallel, 1))
	for i, proxy := range proxies {
		i, proxy := i, proxy
		g.Go(func() error {
			results[i] = p.check(proxy, target)
			return nil
		})
	}
	_ = g.Wait()

	return writeProxyResults(ctx, results)
}

func (p *ProxyCheckCmd) check(proxy, target string) ProxyCheckResult {
	result := ProxyCheckResult{Proxy: proxy, Status: "error"}
	fail := func(err error) ProxyCheckResult {
		result.Error = err.Error()
		return result
	}

	rotator, err := network.NewRotator([]string{proxy}, network.DefaultBanDuration)
	if err != nil {
		return fail(err)
	}
	client, err := network.NewClient(network.Options{Rotator: rotator, Timeout: p.Timeout})
	if err != nil {
		return fail(err)
	}
	req, err := fhttp.NewRequest(fhttp.MethodGet, target, nil)
	if err != nil {
		return fail(err)
	}

	start := time.Now()
	resp, err := doWithTimeout(client, req, p.Timeout)
	if err != nil {
		return fail(err)
	}
	_ = resp.Body.Close()

	result.LatencyMS = time.Since(start).Milliseconds()
	result.Status = strconv.Itoa(resp.StatusCode)
	if resp.StatusCode == fhttp.StatusForbidden || resp.StatusCode == fhttp.StatusTooManyRequests {
		result.Error = "blocked by target"
	}
	return result
}

// target is the explicit --target or the base URL of the chosen site, so
// proxies are checked against the host they will be used for.
func (p *ProxyCheckCmd) target(ctx *Context) (string, error) {
	if strings.TrimSpace(p.Target) != "" {
		return p.Target, nil
	}
	registry, err := loadRegistry(ctx, p.Templates)
	if err != nil {
		return "", err
	}
	site, err := registry.Get(firstNonEmpty(p.Site, ctx.Config.DefaultSite))
	if err != nil {
		return "", err
	}
	return site.BaseURL, nil
}

func doWithTimeout(client *network.Client, req *fhttp.Request, timeout time.Duration) (*fhttp.Response, error) {
	ctx, cancel := context.WithTimeout(req.Context(), timeout)
	defer cancel()
	return client.Do(req.WithContext(ctx))
}

func writeProxyResults(ctx *Context, results []ProxyCheckResult) error {
	if ctx.JSONOutput {
		enc := json.NewEncoder(ctx.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if ctx.PlainText {
		for _, res := range results {
			line := []string{res.Proxy, res.Status, fmt.Sprintf("%d", res.LatencyMS), res.Error}
			fmt.Fprintln(ctx.Out, strings.Join(line, "\t"))
		}
		return nil
	}

	tw := tabwriter.NewWriter(ctx.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "proxy\tstatus\tlatency_ms\terror")
	for _, res := range results {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", res.Proxy, res.Status, res.LatencyMS, res.Error)
	}
	return tw.Flush()
}
