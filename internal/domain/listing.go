package domain

import "strings"

// Listing is one hotel offering as extracted by the crawler.
type Listing struct {
	ID         int64  // surrogate key, set once persisted
	ExternalID string // crawl-source key; dedup key in storage
	Title      string
	City       string
	Price      *float64
	Rating     *float64
	Address    *string
	Latitude   *float64
	Longitude  *float64
	RoomType   *string
	ImageURL   *string
	ImagePath  *string // filled in by asset resolution
}

// Validate checks the required fields. Optional fields pass through untouched.
func (l Listing) Validate() error {
	switch {
	case strings.TrimSpace(l.ExternalID) == "":
		return &ValidationError{Field: "hotel_id"}
	case strings.TrimSpace(l.Title) == "":
		return &ValidationError{Field: "property_title"}
	case strings.TrimSpace(l.City) == "":
		return &ValidationError{Field: "city_name"}
	}
	return nil
}

// HasImage reports whether the listing carries a remote image URL.
func (l Listing) HasImage() bool {
	return l.ImageURL != nil && strings.TrimSpace(*l.ImageURL) != ""
}

// Asset is the downloaded image of one listing.
type Asset struct {
	SourceURL string
	Path      string
	Content   []byte
}

// Read models & queries

type ListQuery struct {
	City   *string
	Limit  int
	Cursor *string // last surrogate id of the previous page
}

type ListingsPage struct {
	Items      []Listing
	NextCursor *string
}
