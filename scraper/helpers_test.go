package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aluiziolira/go-scrape-detmir/config"
	"github.com/aluiziolira/go-scrape-detmir/models"
	"github.com/jarcoal/httpmock"
)

const testAPIURL = "https://api.example.test/v2/products"

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.APIURL = testAPIURL
	cfg.CatalogURL = "https://www.example.test/catalog/index/name/lego/"
	cfg.RetryDelay = 0
	cfg.PageDelay = 0
	cfg.Timeout = 5 * time.Second
	return cfg
}

// buildPage returns the catalog page at offset of a catalog with total items.
// Items with an even id carry an old price.
func buildPage(total, offset, pageSize int) *models.PageResult {
	page := &models.PageResult{
		Meta:  models.PageMeta{Length: json.Number(strconv.Itoa(total))},
		Items: []json.RawMessage{},
	}
	for i := offset; i < total && i < offset+pageSize; i++ {
		id := i + 1
		item := models.Item{
			ID:    models.ItemID(strconv.Itoa(id)),
			Title: fmt.Sprintf("LEGO set %d", id),
			Price: &models.Price{Price: json.Number(strconv.Itoa(id * 100))},
		}
		if id%2 == 0 {
			item.OldPrice = &models.Price{Price: json.Number(strconv.Itoa(id * 120))}
		}
		raw, _ := json.Marshal(item)
		page.Items = append(page.Items, raw)
	}
	return page
}

// fakeAPI serves the products endpoint. failures maps an offset to the
// number of failing attempts before it succeeds; a negative value fails
// every attempt.
type fakeAPI struct {
	mu       sync.Mutex
	totals   map[string]int // region code -> total items
	failures map[string]map[int]int
	calls    map[string]map[int]int
	requests []*http.Request
	body     string // overrides the JSON page when set
}

func newFakeAPI(totals map[string]int) *fakeAPI {
	return &fakeAPI{
		totals:   totals,
		failures: make(map[string]map[int]int),
		calls:    make(map[string]map[int]int),
	}
}

func (api *fakeAPI) fail(region string, offset, times int) {
	if api.failures[region] == nil {
		api.failures[region] = make(map[int]int)
	}
	api.failures[region][offset] = times
}

func (api *fakeAPI) callCount(region string, offset int) int {
	api.mu.Lock()
	defer api.mu.Unlock()
	return api.calls[region][offset]
}

func (api *fakeAPI) totalCalls() int {
	api.mu.Lock()
	defer api.mu.Unlock()
	return len(api.requests)
}

func (api *fakeAPI) lastRequest() *http.Request {
	api.mu.Lock()
	defer api.mu.Unlock()
	if len(api.requests) == 0 {
		return nil
	}
	return api.requests[len(api.requests)-1]
}

func (api *fakeAPI) respond(req *http.Request) (*http.Response, error) {
	api.mu.Lock()
	defer api.mu.Unlock()

	query := req.URL.Query()
	offset, _ := strconv.Atoi(query.Get("offset"))
	region := ""
	for _, clause := range strings.Split(query.Get("filter"), ";") {
		if v, ok := strings.CutPrefix(clause, "withregion:"); ok {
			region = v
		}
	}

	api.requests = append(api.requests, req)
	if api.calls[region] == nil {
		api.calls[region] = make(map[int]int)
	}
	api.calls[region][offset]++

	if n, ok := api.failures[region][offset]; ok && (n < 0 || api.calls[region][offset] <= n) {
		return httpmock.NewStringResponse(http.StatusServiceUnavailable, "unavailable"), nil
	}
	if api.body != "" {
		return httpmock.NewStringResponse(http.StatusOK, api.body), nil
	}
	return httpmock.NewJsonResponse(http.StatusOK, buildPage(api.totals[region], offset, 30))
}

func (api *fakeAPI) transport() *httpmock.MockTransport {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodGet, testAPIURL, api.respond)
	return transport
}

func newTestFetcher(t *testing.T, cfg *config.Config, api *fakeAPI) *Fetcher {
	t.Helper()
	f, err := NewFetcher(cfg, NewMetrics())
	if err != nil {
		t.Fatalf("new fetcher: %v", err)
	}
	f.collector.WithTransport(wrapTransport(cfg, api.transport()))
	return f
}

type sleepRecorder struct {
	delays []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return ctx.Err()
}
