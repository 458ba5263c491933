// Package models defines data structures for the scraper.
package models

import (
	"fmt"
	"strings"
)

// City identifies a regional view of the catalog.
type City int

const (
	Moscow City = iota
	SaintPetersburg
)

var cityInfo = map[City]struct {
	name   string
	label  string
	region string
}{
	Moscow:          {name: "RU_MOW", label: "Москва", region: "RU-MOW"},
	SaintPetersburg: {name: "RU_SPE", label: "Санкт-Петербург", region: "RU-SPE"},
}

// Cities returns every supported city in scrape order.
func Cities() []City {
	return []City{Moscow, SaintPetersburg}
}

// String returns the machine name of the city, e.g. RU_MOW.
func (c City) String() string {
	if info, ok := cityInfo[c]; ok {
		return info.name
	}
	return fmt.Sprintf("City(%d)", int(c))
}

// Label returns the human-readable city name written to the output.
func (c City) Label() string {
	return cityInfo[c].label
}

// RegionCode returns the value used in the API withregion filter.
func (c City) RegionCode() string {
	return cityInfo[c].region
}

// Valid reports whether c is one of the known cities.
func (c City) Valid() bool {
	_, ok := cityInfo[c]
	return ok
}

// ParseCity accepts either the machine name (RU_MOW) or the region code (RU-MOW).
func ParseCity(s string) (City, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, c := range Cities() {
		info := cityInfo[c]
		if s == info.name || s == info.region {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown city %q", s)
}
