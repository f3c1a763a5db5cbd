package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"trip_hotel/internal/domain"
)

// DefaultAssetExpiry mirrors the crawler's image store: a stored image younger
// than this is reused instead of downloaded again.
const DefaultAssetExpiry = 90 * 24 * time.Hour

// DerivePath returns images/<city>/<title>_<basename>, a pure function of its inputs.
func DerivePath(city, title, imageURL string) string {
	c := strings.ReplaceAll(strings.ToLower(city), " ", "_")
	if c == "" {
		c = "unknown"
	}
	t := strings.ReplaceAll(strings.ToLower(title), " ", "_")
	if t == "" {
		t = "hotel"
	}
	return "images/" + c + "/" + t + "_" + urlBasename(imageURL)
}

// urlBasename is the text after the last slash of the raw URL. A query string
// stays part of it, so size variants of one image land in distinct files.
func urlBasename(raw string) string {
	if i := strings.LastIndexByte(raw, '/'); i >= 0 {
		return raw[i+1:]
	}
	return raw
}

type AssetResolver struct {
	fetcher domain.ImageFetcher
	store   domain.ContentStore
	expires time.Duration
	now     func() time.Time
}

type ResolverOption func(*AssetResolver)

// WithExpiry sets how long a stored image is reused; 0 always re-downloads.
func WithExpiry(d time.Duration) ResolverOption {
	return func(r *AssetResolver) { r.expires = d }
}

func NewAssetResolver(f domain.ImageFetcher, s domain.ContentStore, opts ...ResolverOption) *AssetResolver {
	r := &AssetResolver{fetcher: f, store: s, expires: DefaultAssetExpiry, now: time.Now}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve downloads the listing's image into the content store and returns its path.
// A listing without an image URL is skipped; any fetch or write failure is an
// *domain.AssetFetchError.
func (r *AssetResolver) Resolve(ctx context.Context, l domain.Listing) (string, domain.AssetState, error) {
	if !l.HasImage() {
		return "", domain.AssetSkipped, nil
	}
	src := strings.TrimSpace(*l.ImageURL)
	path := DerivePath(l.City, l.Title, src)
	fail := func(op string, err error) (string, domain.AssetState, error) {
		return "", domain.AssetFailed, &domain.AssetFetchError{ExternalID: l.ExternalID, URL: src, Op: op, Err: err}
	}

	if r.expires > 0 {
		// Stat errors only cost us the reuse; fall through to a fresh download.
		if mod, ok, err := r.store.Stat(ctx, path); err == nil && ok && r.now().Sub(mod) < r.expires {
			return path, domain.AssetResolved, nil
		}
	}

	body, err := r.fetcher.Fetch(ctx, src)
	if err != nil {
		return fail("fetch", err)
	}
	if len(body) == 0 {
		return fail("fetch", errors.New("empty body"))
	}
	asset := domain.Asset{SourceURL: src, Path: path, Content: body}
	if err := r.store.Put(ctx, asset.Path, asset.Content); err != nil {
		return fail("store", err)
	}
	return asset.Path, domain.AssetResolved, nil
}
