package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Price is the nested price object of a catalog item.
type Price struct {
	Price json.Number `json:"price"`
}

// ItemID is a product id. The API sends numbers, but quoted ids are
// accepted as well and kept verbatim.
type ItemID string

func (id ItemID) String() string { return string(id) }

// UnmarshalJSON accepts a JSON number or string.
func (id *ItemID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ItemID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("item id: %w", err)
	}
	*id = ItemID(n)
	return nil
}

// Item is a raw product as returned by the catalog API.
type Item struct {
	ID       ItemID `json:"id"`
	Title    string `json:"title"`
	Price    *Price `json:"price"`
	OldPrice *Price `json:"old_price"`
}

// PageMeta carries the total item count of the filtered catalog.
type PageMeta struct {
	Length json.Number `json:"length"`
}

// Count returns Length as a non-negative integer. Integral floats such as
// 45.0 are accepted.
func (m PageMeta) Count() (int, error) {
	if m.Length == "" {
		return 0, fmt.Errorf("meta.length missing")
	}
	if n, err := strconv.ParseInt(m.Length.String(), 10, 0); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("meta.length %d is negative", n)
		}
		return int(n), nil
	}
	f, err := m.Length.Float64()
	if err != nil {
		return 0, fmt.Errorf("meta.length %q: %w", m.Length, err)
	}
	if f < 0 || f != math.Trunc(f) || f >= float64(math.MaxInt) {
		return 0, fmt.Errorf("meta.length %q is not a valid count", m.Length)
	}
	return int(f), nil
}

// PageResult is one response of the products endpoint. Items stay raw so
// a malformed item only loses itself, not the whole page.
type PageResult struct {
	Meta  PageMeta          `json:"meta"`
	Items []json.RawMessage `json:"items"`
}

// Record is one normalized output row.
type Record struct {
	ID         string `csv:"id" json:"id"`
	Title      string `csv:"title" json:"title"`
	Price      string `csv:"price" json:"price"`
	PromoPrice string `csv:"promo_price" json:"promo_price"`
	URL        string `csv:"url" json:"url"`
	City       string `csv:"city" json:"city"`
}

// ScraperResult holds the overall result of a scraping run.
type ScraperResult struct {
	StartTime     time.Time
	EndTime       time.Time
	TotalCount    int
	RecordsByCity map[string]int
	FailedPages   map[string][]int
	FailedTargets []string
	InvalidItems  int
	RequestCount  int
	RetryCount    int
	PageCount     int
}
