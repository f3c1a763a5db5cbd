package app

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode"

	"trip_hotel/internal/domain"
)

/********** alias registry (single source of truth) **********/

// First entry of each set is the field name emitted by the hotel spider.
var listingAliases = map[string][]string{
	"external_id": {"hotel_id", "hotelId", "external_id", "id"},
	"title":       {"property_title", "title", "name", "hotel_name"},
	"city":        {"city_name", "city", "address.city", "location.city"},
	"price":       {"price", "price_per_night", "rate.amount"},
	"rating":      {"rating", "score", "review_score", "rating.value"},
	"address":     {"address", "address_raw", "full_address", "location.address"},
	"latitude":    {"latitude", "lat", "location.lat", "coordinates.lat"},
	"longitude":   {"longitude", "lon", "lng", "location.lon", "location.lng", "coordinates.lng"},
	"room_type":   {"room_type", "roomType", "room"},
	"image":       {"image", "image_url", "imageUrl", "photo"},
	"images":      {"image_urls", "images", "photos"},
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	if v, ok := m[path]; ok {
		return v
	}
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// scalarString renders strings and numbers; everything else is "".
func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	}
	return ""
}

func firstString(m map[string]any, key string) string {
	for _, p := range listingAliases[key] {
		if s := scalarString(lookupAny(m, p)); s != "" {
			return s
		}
	}
	return ""
}

func firstStringPtr(m map[string]any, key string) *string {
	if s := firstString(m, key); s != "" {
		return &s
	}
	return nil
}

// firstDecimal: number from the alias set (float64/int/json.Number/lenient string).
// Values that do not parse are treated as absent.
func firstDecimal(m map[string]any, key string) *float64 {
	for _, p := range listingAliases[key] {
		var (
			f  float64
			ok bool
		)
		switch v := lookupAny(m, p).(type) {
		case float64:
			f, ok = v, true
		case int:
			f, ok = float64(v), true
		case int64:
			f, ok = float64(v), true
		case json.Number:
			x, err := v.Float64()
			f, ok = x, err == nil
		case string:
			f, ok = parseDecimal(v)
		}
		if ok && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return &f
		}
	}
	return nil
}

// parseDecimal accepts things like "$1,250.00", "8,5", "9.1 Superb", "4.5/5".
func parseDecimal(s string) (float64, bool) {
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimFunc(s, func(r rune) bool {
		return !unicode.IsDigit(r) && r != '-' && r != '.' && r != ','
	})
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0, false
	}
	switch {
	case strings.Contains(s, ",") && strings.Contains(s, "."):
		s = strings.ReplaceAll(s, ",", "")
	case strings.Count(s, ",") == 1 && len(s)-strings.IndexByte(s, ',')-1 <= 2:
		s = strings.Replace(s, ",", ".", 1)
	default:
		s = strings.ReplaceAll(s, ",", "")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// firstSliceString: first entry of a list holding strings or {url/src}.
func firstSliceString(m map[string]any, key string) *string {
	for _, p := range listingAliases[key] {
		raw, ok := lookupAny(m, p).([]any)
		if !ok {
			continue
		}
		for _, it := range raw {
			switch t := it.(type) {
			case string:
				if s := strings.TrimSpace(t); s != "" {
					return &s
				}
			case map[string]any:
				for _, k := range []string{"url", "src"} {
					if s, ok := t[k].(string); ok && strings.TrimSpace(s) != "" {
						s = strings.TrimSpace(s)
						return &s
					}
				}
			}
		}
	}
	return nil
}

/********** listing mapper **********/

// MapListing converts one extracted crawler item into a Listing.
// It never fails: missing or malformed optional fields come out nil and
// required-field checks are left to Listing.Validate.
func MapListing(item map[string]any) domain.Listing {
	l := domain.Listing{
		ExternalID: firstString(item, "external_id"),
		Title:      firstString(item, "title"),
		City:       firstString(item, "city"),
		Price:      firstDecimal(item, "price"),
		Rating:     firstDecimal(item, "rating"),
		Address:    firstStringPtr(item, "address"),
		Latitude:   firstDecimal(item, "latitude"),
		Longitude:  firstDecimal(item, "longitude"),
		RoomType:   firstStringPtr(item, "room_type"),
		ImageURL:   firstStringPtr(item, "image"),
	}
	if l.ImageURL == nil {
		l.ImageURL = firstSliceString(item, "images")
	}
	// price is a non-negative decimal; anything else is noise from the page
	if l.Price != nil && *l.Price < 0 {
		l.Price = nil
	}
	return l
}
