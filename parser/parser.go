package parser

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aluiziolira/go-scrape-detmir/models"
)

// ProductURLTemplate builds the public product page for an item id.
const ProductURLTemplate = "https://www.detmir.ru/product/index/id/%s/"

// ValidateItem ensures the API returned the fields a record needs.
func ValidateItem(item *models.Item) error {
	if item == nil {
		return fmt.Errorf("item is nil")
	}
	if strings.TrimSpace(item.ID.String()) == "" {
		return fmt.Errorf("item missing id")
	}
	if item.Price == nil || item.Price.Price == "" {
		return fmt.Errorf("item missing price for %s", item.ID)
	}
	return nil
}

// Normalize converts a raw item into an output record for city.
// When an old price is present the item is on promotion: the old price
// becomes the regular price and the current one the promo price.
func Normalize(city models.City, item models.Item) models.Record {
	rec := models.Record{
		ID:    item.ID.String(),
		Title: item.Title,
		URL:   ProductURL(item.ID.String()),
		City:  city.Label(),
	}

	current := ""
	if item.Price != nil {
		current = item.Price.Price.String()
	}
	if item.OldPrice != nil {
		rec.Price = item.OldPrice.Price.String()
		rec.PromoPrice = current
	} else {
		rec.Price = current
	}
	return rec
}

// DecodeItem decodes and validates one raw item of a page.
func DecodeItem(raw json.RawMessage) (models.Item, error) {
	var item models.Item
	if err := json.Unmarshal(raw, &item); err != nil {
		return item, fmt.Errorf("decode item: %w", err)
	}
	return item, ValidateItem(&item)
}

// NormalizePage converts every valid item of a page. Items that fail to
// decode or validate are skipped and counted in the second return value.
func NormalizePage(city models.City, page *models.PageResult) ([]models.Record, int) {
	if page == nil {
		return nil, 0
	}
	out := make([]models.Record, 0, len(page.Items))
	invalid := 0
	for _, raw := range page.Items {
		item, err := DecodeItem(raw)
		if err != nil {
			invalid++
			continue
		}
		out = append(out, Normalize(city, item))
	}
	return out, invalid
}

// ProductURL returns the product page URL for id.
func ProductURL(id string) string {
	return fmt.Sprintf(ProductURLTemplate, id)
}

// PageCount returns how many pages of pageSize cover total items.
func PageCount(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}
