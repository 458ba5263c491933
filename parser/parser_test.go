package parser

import (
	"encoding/json"
	"testing"

	"github.com/aluiziolira/go-scrape-detmir/models"
)

func TestValidateItem(t *testing.T) {
	tests := []struct {
		name    string
		item    *models.Item
		wantErr bool
	}{
		{
			name:    "valid item",
			item:    &models.Item{ID: "123", Title: "LEGO City", Price: &models.Price{Price: "1999"}},
			wantErr: false,
		},
		{
			name:    "missing id",
			item:    &models.Item{Title: "LEGO City", Price: &models.Price{Price: "1999"}},
			wantErr: true,
		},
		{
			name:    "missing price",
			item:    &models.Item{ID: "123", Title: "LEGO City"},
			wantErr: true,
		},
		{
			name:    "nil item",
			item:    nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateItem(tt.item)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateItem() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		wantPrice string
		wantPromo string
	}{
		{
			name:      "regular price",
			payload:   `{"id": 42, "title": "LEGO Technic", "price": {"price": 4999}, "old_price": null}`,
			wantPrice: "4999",
			wantPromo: "",
		},
		{
			name:      "old price field absent",
			payload:   `{"id": 42, "title": "LEGO Technic", "price": {"price": 4999}}`,
			wantPrice: "4999",
			wantPromo: "",
		},
		{
			name:      "on promotion",
			payload:   `{"id": 42, "title": "LEGO Technic", "price": {"price": 3999.5}, "old_price": {"price": 4999}}`,
			wantPrice: "4999",
			wantPromo: "3999.5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var item models.Item
			if err := json.Unmarshal([]byte(tt.payload), &item); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			rec := Normalize(models.SaintPetersburg, item)
			if rec.Price != tt.wantPrice || rec.PromoPrice != tt.wantPromo {
				t.Fatalf("price/promo = %q/%q, want %q/%q", rec.Price, rec.PromoPrice, tt.wantPrice, tt.wantPromo)
			}
			if rec.ID != "42" || rec.Title != "LEGO Technic" {
				t.Fatalf("id/title = %q/%q", rec.ID, rec.Title)
			}
			if rec.URL != "https://www.detmir.ru/product/index/id/42/" {
				t.Fatalf("url = %q", rec.URL)
			}
			if rec.City != "Санкт-Петербург" {
				t.Fatalf("city = %q, want display label", rec.City)
			}
		})
	}
}

func TestNormalizePromoIffOldPrice(t *testing.T) {
	for _, old := range []*models.Price{nil, {Price: "100"}} {
		item := models.Item{ID: "1", Title: "x", Price: &models.Price{Price: "90"}, OldPrice: old}
		rec := Normalize(models.Moscow, item)
		if (rec.PromoPrice != "") != (old != nil) {
			t.Fatalf("old=%v promo=%q", old, rec.PromoPrice)
		}
	}
}

func TestNormalizePageSkipsInvalid(t *testing.T) {
	page := &models.PageResult{
		Meta: models.PageMeta{Length: "3"},
		Items: []json.RawMessage{
			json.RawMessage(`{"id": 1, "title": "a", "price": {"price": 10}}`),
			json.RawMessage(`{"id": 2, "title": "b"}`),
			json.RawMessage(`{"id": 3, "title": "c", "price": {"price": 30}}`),
		},
	}
	records, invalid := NormalizePage(models.Moscow, page)
	if len(records) != 2 || invalid != 1 {
		t.Fatalf("records=%d invalid=%d, want 2/1", len(records), invalid)
	}
	if records[0].ID != "1" || records[1].ID != "3" {
		t.Fatalf("order not preserved: %v", records)
	}
}

func TestNormalizePageMalformedItemKeepsRest(t *testing.T) {
	body := `{"meta": {"length": 4}, "items": [
		{"id": 1, "title": "a", "price": {"price": 10}},
		{"id": 2, "title": "b", "price": {"price": "n/a"}},
		{"id": {"nested": true}, "title": "c", "price": {"price": 30}},
		{"id": 4, "title": "d", "price": {"price": 40}}
	]}`
	var page models.PageResult
	if err := json.Unmarshal([]byte(body), &page); err != nil {
		t.Fatalf("page with malformed items must still decode: %v", err)
	}

	records, invalid := NormalizePage(models.Moscow, &page)
	if invalid != 2 {
		t.Fatalf("invalid = %d, want 2", invalid)
	}
	if len(records) != 2 || records[0].ID != "1" || records[1].ID != "4" {
		t.Fatalf("records = %v, want ids 1 and 4", records)
	}
}

func TestDecodeItemIDs(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantID  string
		wantErr bool
	}{
		{name: "numeric", payload: `{"id": 123, "price": {"price": 1}}`, wantID: "123"},
		{name: "quoted numeric", payload: `{"id": "123", "price": {"price": 1}}`, wantID: "123"},
		{name: "alphanumeric", payload: `{"id": "LG-60337", "price": {"price": 1}}`, wantID: "LG-60337"},
		{name: "null", payload: `{"id": null, "price": {"price": 1}}`, wantErr: true},
		{name: "object", payload: `{"id": {}, "price": {"price": 1}}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, err := DecodeItem(json.RawMessage(tt.payload))
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeItem() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && item.ID.String() != tt.wantID {
				t.Fatalf("id = %q, want %q", item.ID, tt.wantID)
			}
		})
	}
}

func TestPageCount(t *testing.T) {
	tests := []struct {
		total int
		want  int
	}{
		{0, 0},
		{1, 1},
		{29, 1},
		{30, 1},
		{31, 2},
		{45, 2},
		{300, 10},
	}

	for _, tt := range tests {
		if got := PageCount(tt.total, 30); got != tt.want {
			t.Fatalf("PageCount(%d, 30) = %d, want %d", tt.total, got, tt.want)
		}
	}
}
