// internal/adapters/http_server/handlers.go
package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"trip_hotel/internal/app"
	"trip_hotel/internal/domain"
)

type Handlers struct{ Q *app.QueryService }

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// listingDTO uses the hotels table column names.
type listingDTO struct {
	ID            int64    `json:"id"`
	HotelID       string   `json:"hotel_id"`
	PropertyTitle string   `json:"property_title"`
	CityName      string   `json:"city_name"`
	Price         *float64 `json:"price"`
	Rating        *float64 `json:"rating"`
	Address       *string  `json:"address"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
	RoomType      *string  `json:"room_type"`
	ImageURL      *string  `json:"image_url"`
	ImagePath     *string  `json:"image_path"`
}

type pageDTO struct {
	Items      []listingDTO `json:"items"`
	NextCursor *string      `json:"next_cursor"`
}

func toDTO(l domain.Listing) listingDTO {
	return listingDTO{
		ID: l.ID, HotelID: l.ExternalID, PropertyTitle: l.Title, CityName: l.City,
		Price: l.Price, Rating: l.Rating, Address: l.Address,
		Latitude: l.Latitude, Longitude: l.Longitude,
		RoomType: l.RoomType, ImageURL: l.ImageURL, ImagePath: l.ImagePath,
	}
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/v1/listings", h.listListings)
	s.mux.Get("/v1/listings/{externalID}", h.getListing)
	s.mux.Get("/v1/listings/{externalID}/image", h.getListingImage)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func writeLookupError(w http.ResponseWriter, err error, what string) {
	if errors.Is(err, domain.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Not Found", what+" not found")
		return
	}
	log.Error().Err(err).Msg(what + " lookup failed")
	writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
}

func etagOf(body []byte) string {
	sum := sha1.Sum(body)
	return `W/"` + hex.EncodeToString(sum[:]) + `"`
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	return etagOf(body), body
}

// writeCached short-circuits with 304 when the client already has this version.
func writeCached(w http.ResponseWriter, r *http.Request, contentType string, etag string, body []byte) {
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag) // include ETag on 304
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write response body")
	}
}

func (h *Handlers) getListing(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "externalID"))
	l, err := h.Q.GetListing(r.Context(), id)
	if err != nil {
		writeLookupError(w, err, "listing")
		return
	}
	etag, body := calcETagAndBody(toDTO(l))
	writeCached(w, r, "application/json", etag, body)
}

func (h *Handlers) listListings(w http.ResponseWriter, r *http.Request) {
	q := domain.ListQuery{Limit: 50}
	if ls := r.URL.Query().Get("limit"); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil || l <= 0 || l > 200 {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 200")
			return
		}
		q.Limit = l
	}
	if cs := r.URL.Query().Get("cursor"); cs != "" {
		if n, err := strconv.ParseInt(cs, 10, 64); err != nil || n < 0 {
			writeProblem(w, http.StatusBadRequest, "Invalid cursor", "cursor must be the next_cursor of a previous page")
			return
		}
		q.Cursor = &cs
	}
	if city := strings.TrimSpace(r.URL.Query().Get("city")); city != "" {
		q.City = &city
	}

	page, err := h.Q.ListListings(r.Context(), q)
	if err != nil {
		writeLookupError(w, err, "listings")
		return
	}
	out := pageDTO{Items: make([]listingDTO, 0, len(page.Items)), NextCursor: page.NextCursor}
	for _, l := range page.Items {
		out.Items = append(out.Items, toDTO(l))
	}
	etag, body := calcETagAndBody(out)
	writeCached(w, r, "application/json", etag, body)
}

func (h *Handlers) getListingImage(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "externalID"))
	b, err := h.Q.ListingImage(r.Context(), id)
	if err != nil {
		writeLookupError(w, err, "image")
		return
	}
	writeCached(w, r, http.DetectContentType(b), etagOf(b), b)
}
