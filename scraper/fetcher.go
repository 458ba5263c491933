package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/aluiziolira/go-scrape-detmir/config"
	"github.com/aluiziolira/go-scrape-detmir/models"
	"github.com/gocolly/colly/v2"
)

const (
	bodyKey   = "body"
	statusKey = "status"

	expandFacets = "meta.facet.ages.adults,meta.facet.gender.adults,webp"
	sortOrder    = "popularity:desc"
)

// Fetcher issues catalog API requests for a single page, retrying failed
// attempts with a fixed delay. It is not safe for concurrent use.
type Fetcher struct {
	cfg       *config.Config
	collector *colly.Collector
	metrics   *Metrics
	sleep     func(context.Context, time.Duration) error

	requests int
	retries  int
}

// NewFetcher builds a fetcher whose collector only talks to the API host.
func NewFetcher(cfg *config.Config, metrics *Metrics) (*Fetcher, error) {
	parsed, err := url.Parse(cfg.APIURL)
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("api url must include a host")
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(parsed.Hostname()),
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
	)
	collector.SetRequestTimeout(cfg.Timeout)
	// Cookies come from the session provider on every call, never from
	// responses.
	collector.DisableCookies()

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	collector.WithTransport(wrapTransport(cfg, transport))

	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
	}); err != nil {
		return nil, fmt.Errorf("configure rate limits: %w", err)
	}

	collector.OnResponse(func(r *colly.Response) {
		r.Ctx.Put(bodyKey, r.Body)
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r == nil || r.Ctx == nil {
			return
		}
		r.Ctx.Put(statusKey, r.StatusCode)
	})

	return &Fetcher{
		cfg:       cfg,
		collector: collector,
		metrics:   metrics,
		sleep:     sleepContext,
	}, nil
}

// Fetch returns the catalog page at offset for city. Every failed attempt
// is followed by cfg.RetryDelay; after cfg.MaxAttempts failures the error
// wraps ErrPageUnavailable.
func (f *Fetcher) Fetch(ctx context.Context, city models.City, offset int, cookies map[string]string) (*models.PageResult, error) {
	if offset < 0 || offset%f.cfg.PageSize != 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidOffset, offset)
	}

	pageURL := f.PageURL(city, offset)
	hdr := f.headers(cookies)

	var lastErr error
	for attempt := 1; attempt <= f.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if attempt > 1 {
			f.retries++
			f.metrics.IncRetries()
		}

		page, err := f.attempt(pageURL, hdr)
		if err == nil {
			f.metrics.IncRequest("success")
			return page, nil
		}

		lastErr = err
		category := errorTypeLabel(err)
		f.metrics.IncRequest("failure")
		f.metrics.IncError(category)
		slog.Debug("page request failed",
			slog.String("city", city.String()),
			slog.Int("offset", offset),
			slog.Int("attempt", attempt),
			slog.String("category", category),
			slog.Any("error", err),
		)

		if err := f.sleep(ctx, f.cfg.RetryDelay); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%w: %s offset %d after %d attempts: %w", ErrPageUnavailable, city, offset, f.cfg.MaxAttempts, lastErr)
}

// Requests returns the number of HTTP attempts issued so far.
func (f *Fetcher) Requests() int {
	return f.requests
}

// Retries returns the number of repeated attempts issued so far.
func (f *Fetcher) Retries() int {
	return f.retries
}

// PageURL builds the products endpoint URL for city and offset.
func (f *Fetcher) PageURL(city models.City, offset int) string {
	filter := strings.Join([]string{
		"categories[].alias:" + f.cfg.Category,
		"promo:false",
		"withregion:" + city.RegionCode(),
	}, ";")

	q := url.Values{}
	q.Set("filter", filter)
	q.Set("expand", expandFacets)
	q.Set("meta", "*")
	q.Set("limit", strconv.Itoa(f.cfg.PageSize))
	q.Set("offset", strconv.Itoa(offset))
	q.Set("sort", sortOrder)
	return f.cfg.APIURL + "?" + q.Encode()
}

func (f *Fetcher) attempt(pageURL string, hdr http.Header) (*models.PageResult, error) {
	f.requests++
	cctx := colly.NewContext()

	start := time.Now()
	err := f.collector.Request(http.MethodGet, pageURL, nil, cctx, hdr.Clone())
	f.metrics.ObserveDuration(time.Since(start))
	if err != nil {
		status, _ := cctx.GetAny(statusKey).(int)
		return nil, classifyError(err, status)
	}

	body, _ := cctx.GetAny(bodyKey).([]byte)
	var page models.PageResult
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, ErrDecode{Err: err}
	}
	return &page, nil
}

func (f *Fetcher) headers(cookies map[string]string) http.Header {
	hdr := http.Header{}
	hdr.Set("Accept", "*/*")
	hdr.Set("Accept-Language", f.cfg.AcceptLanguage)
	hdr.Set("Content-Type", "application/json")
	hdr.Set("User-Agent", f.cfg.UserAgent)
	hdr.Set("X-Requested-With", f.cfg.RequestedWith)
	if c := cookieHeader(cookies); c != "" {
		hdr.Set("Cookie", c)
	}
	return hdr
}

// wrapTransport puts the Cloudflare header shim in front of rt when
// enabled. The shim only adds headers the request does not already carry.
func wrapTransport(cfg *config.Config, rt http.RoundTripper) http.RoundTripper {
	if !cfg.CloudflareBypass {
		return rt
	}
	return cloudflarebp.AddCloudFlareByPass(rt)
}

// cookieHeader joins the mapping as "name=value" pairs sorted by name.
// Values are passed through exactly as the browser handed them over.
func cookieHeader(cookies map[string]string) string {
	names := make([]string, 0, len(cookies))
	for name := range cookies {
		if name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+"="+cookies[name])
	}
	return strings.Join(parts, "; ")
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
