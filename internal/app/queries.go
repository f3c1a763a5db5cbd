package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"trip_hotel/internal/domain"
)

type QueryService struct {
	repo     domain.ListingReader
	cache    domain.Cache
	assets   domain.ContentStore
	cacheTTL time.Duration
}

func NewQueryService(r domain.ListingReader, c domain.Cache, assets domain.ContentStore, ttl time.Duration) *QueryService {
	return &QueryService{repo: r, cache: c, assets: assets, cacheTTL: ttl}
}

func listingKey(externalID string) string { return "listing:" + externalID }

func (s *QueryService) GetListing(ctx context.Context, externalID string) (domain.Listing, error) {
	key := listingKey(externalID)
	var l domain.Listing
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, &l); ok {
			return l, nil
		}
	}
	l, err := s.repo.GetByExternalID(ctx, externalID)
	if err != nil {
		return domain.Listing{}, err
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, l, int(s.cacheTTL.Seconds()))
	}
	return l, nil
}

func (s *QueryService) ListListings(ctx context.Context, q domain.ListQuery) (domain.ListingsPage, error) {
	key := fmt.Sprintf("listings:%s:%d:%s", strings.ToLower(derefStr(q.City)), q.Limit, derefStr(q.Cursor))
	var out domain.ListingsPage
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, &out); ok {
			return out, nil
		}
	}

	page, err := s.repo.List(ctx, q)
	if err != nil {
		return domain.ListingsPage{}, err
	}

	// copy slice to avoid aliasing the repo's backing array
	cp := domain.ListingsPage{NextCursor: page.NextCursor}
	if n := len(page.Items); n > 0 {
		cp.Items = make([]domain.Listing, n)
		copy(cp.Items, page.Items)
	}

	// optional size guard
	if s.cache != nil {
		if b, _ := json.Marshal(cp); len(b) < 1_000_000 {
			_ = s.cache.Set(ctx, key, cp, int(s.cacheTTL.Seconds()))
		}
	}
	return cp, nil
}

// ListingImage returns the stored image bytes of a persisted listing.
func (s *QueryService) ListingImage(ctx context.Context, externalID string) ([]byte, error) {
	l, err := s.GetListing(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if l.ImagePath == nil || s.assets == nil {
		return nil, domain.ErrNotFound
	}
	return s.assets.Get(ctx, *l.ImagePath)
}

func derefStr(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
