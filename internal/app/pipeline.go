package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"trip_hotel/internal/domain"
)

const (
	defaultFetchTimeout   = 20 * time.Second
	defaultPersistTimeout = 10 * time.Second
)

// Coordinator drives records one at a time through asset resolution and
// persistence. Several coordinators may share one gateway; each holds its own session.
type Coordinator struct {
	gw             domain.ListingGateway
	assets         *AssetResolver
	log            zerolog.Logger
	fetchTimeout   time.Duration
	persistTimeout time.Duration
	observe        func(domain.Outcome)
}

type Option func(*Coordinator)

func WithLogger(l zerolog.Logger) Option { return func(c *Coordinator) { c.log = l } }

func WithTimeouts(fetch, persist time.Duration) Option {
	return func(c *Coordinator) {
		if fetch > 0 {
			c.fetchTimeout = fetch
		}
		if persist > 0 {
			c.persistTimeout = persist
		}
	}
}

// WithObserver registers a hook called once per terminal outcome.
func WithObserver(fn func(domain.Outcome)) Option { return func(c *Coordinator) { c.observe = fn } }

func NewCoordinator(gw domain.ListingGateway, assets *AssetResolver, opts ...Option) *Coordinator {
	c := &Coordinator{
		gw:             gw,
		assets:         assets,
		log:            zerolog.Nop(),
		fetchTimeout:   defaultFetchTimeout,
		persistTimeout: defaultPersistTimeout,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Run acquires a session, drains src and releases the session. It stops between
// records once ctx is cancelled. The only error returned is a failure to acquire
// the session; per-record failures are folded into the report.
func (c *Coordinator) Run(ctx context.Context, src domain.RecordSource) (domain.Report, error) {
	rep := domain.NewReport()

	sess, err := c.gw.Acquire(ctx)
	if err != nil {
		return rep, fmt.Errorf("acquire storage session: %w", err)
	}
	defer func() {
		if err := sess.Close(); err != nil {
			c.log.Warn().Err(err).Msg("release storage session failed")
		}
	}()

	for {
		if ctx.Err() != nil {
			rep.Interrupted = true
			break
		}
		rec, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				rep.Interrupted = true
				break
			}
			// source-level failure (broker gone, read error): nothing more to drain
			c.log.Error().Err(err).Msg("record source failed")
			break
		}

		// The record in flight finishes even if ctx is cancelled meanwhile;
		// each stage is still bounded by its own timeout.
		out := c.handle(context.WithoutCancel(ctx), sess, rec)
		rep.Add(out)
		if rec.Ack != nil {
			if err := rec.Ack(); err != nil {
				c.log.Warn().Err(err).Str("hotel_id", out.ExternalID).Msg("ack failed")
			}
		}
	}

	c.log.Info().
		Int("received", rep.Received).
		Int("persisted", rep.Persisted).
		Int("rejected", rep.TotalRejected()).
		Bool("interrupted", rep.Interrupted).
		Msg("pipeline run finished")
	return rep, nil
}

func (c *Coordinator) handle(ctx context.Context, sess domain.ListingSession, rec domain.SourceRecord) domain.Outcome {
	if rec.Err != nil {
		out := domain.Outcome{
			State:  domain.StateRejected,
			Reason: domain.RejectValidation,
			Err:    &domain.ValidationError{Field: "payload", Reason: rec.Err.Error()},
		}
		c.finish(out)
		return out
	}
	l := MapListing(rec.Fields)
	return c.Process(ctx, sess, &l)
}

// Process moves one listing through
// Received → AssetResolved|AssetSkipped|AssetFailed → Persisted|Rejected.
// It never returns an error; the outcome carries the terminal state.
func (c *Coordinator) Process(ctx context.Context, sess domain.ListingSession, l *domain.Listing) domain.Outcome {
	out := domain.Outcome{ExternalID: l.ExternalID}

	if err := l.Validate(); err != nil {
		out.State, out.Reason, out.Err = domain.StateRejected, domain.RejectValidation, err
		c.finish(out)
		return out
	}

	out.Asset, out.AssetErr = c.resolve(ctx, l)

	pctx, cancel := context.WithTimeout(ctx, c.persistTimeout)
	id, err := sess.Insert(pctx, *l)
	cancel()
	if err != nil {
		out.State, out.Reason, out.Err = domain.StateRejected, domain.ReasonFor(err), err
		c.finish(out)
		return out
	}

	l.ID = id
	out.State, out.RowID = domain.StatePersisted, id
	if l.ImagePath != nil {
		out.ImagePath = *l.ImagePath
	}
	c.finish(out)
	return out
}

func (c *Coordinator) resolve(ctx context.Context, l *domain.Listing) (domain.AssetState, error) {
	if c.assets == nil {
		return domain.AssetSkipped, nil
	}
	fctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	path, state, err := c.assets.Resolve(fctx, *l)
	if err != nil {
		// never fatal to the record: persist without an image
		c.log.Warn().Err(err).Str("hotel_id", l.ExternalID).Msg("image unavailable, continuing without it")
		return domain.AssetFailed, err
	}
	if state == domain.AssetResolved {
		l.ImagePath = &path
	}
	return state, nil
}

func (c *Coordinator) finish(out domain.Outcome) {
	if out.State == domain.StatePersisted {
		c.log.Info().
			Str("hotel_id", out.ExternalID).
			Int64("row_id", out.RowID).
			Str("asset", string(out.Asset)).
			Msg("listing persisted")
	} else {
		c.log.Warn().
			Str("hotel_id", out.ExternalID).
			Str("reason", string(out.Reason)).
			Err(out.Err).
			Msg("listing rejected")
	}
	if c.observe != nil {
		c.observe(out)
	}
}
