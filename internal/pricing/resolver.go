/*
The resolver maps token symbols to USD prices.

Current prices are served from the cache, then the static rate table, then the network (and cached).
Historical prices are bucketed by calendar day and served from the historical table, then the network.
Historical network results are never cached.
*/

package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/elys-network/lp-tracker/internal/metrics"
	"github.com/elys-network/lp-tracker/internal/types"
)

var (
	ErrUnknownToken     = errors.New("unknown token")
	ErrPriceUnavailable = errors.New("price unavailable")
)

// DateLayout is the dd-mm-yyyy key used by the historical table and the network lookup.
const DateLayout = "02-01-2006"

// Source is the network price lookup.
type Source interface {
	CurrentPrice(ctx context.Context, id string) (float64, error)
	CurrentPrices(ctx context.Context, ids []string) (map[string]float64, error)
	HistoricalPrice(ctx context.Context, id, date string) (float64, error)
}

// HistoricalTable serves known prices by feed id and date.
type HistoricalTable interface {
	Lookup(ctx context.Context, id, date string) (float64, bool, error)
}

// StaticHistoricalTable is a HistoricalTable backed by a map of id -> date -> price.
type StaticHistoricalTable map[string]map[string]float64

func (s StaticHistoricalTable) Lookup(_ context.Context, id, date string) (float64, bool, error) {
	price, ok := s[id][date]
	return price, ok, nil
}

// HistoricalTables consults each table in order and returns the first hit. Errors are only reported
// when no table has the price.
type HistoricalTables []HistoricalTable

func (t HistoricalTables) Lookup(ctx context.Context, id, date string) (float64, bool, error) {
	var errs []error
	for _, table := range t {
		price, ok, err := table.Lookup(ctx, id, date)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			return price, true, nil
		}
	}
	return 0, false, errors.Join(errs...)
}

// Options configures a Resolver. FeedIDs and Source are required.
type Options struct {
	FeedIDs     map[string]string // lowercase symbol -> feed id
	StaticRates map[string]float64
	Historical  HistoricalTable
	Cache       Cache
	Source      Source
	Location    *time.Location // calendar used for historical dates, UTC when nil
	Logger      zerolog.Logger
}

type Resolver struct {
	feedIDs    map[string]string
	static     map[string]float64
	historical HistoricalTable
	cache      Cache
	source     Source
	location   *time.Location
	logger     zerolog.Logger
}

func NewResolver(opts Options) (*Resolver, error) {
	if len(opts.FeedIDs) == 0 {
		return nil, errors.New("price resolver requires a feed id table")
	}
	if opts.Source == nil {
		return nil, errors.New("price resolver requires a network source")
	}

	r := &Resolver{
		feedIDs:    make(map[string]string, len(opts.FeedIDs)),
		static:     opts.StaticRates,
		historical: opts.Historical,
		cache:      opts.Cache,
		source:     opts.Source,
		location:   opts.Location,
		logger:     opts.Logger.With().Str("component", "price_resolver").Logger(),
	}
	for symbol, id := range opts.FeedIDs {
		r.feedIDs[types.NormalizeSymbol(symbol)] = id
	}
	if r.static == nil {
		r.static = map[string]float64{}
	}
	if r.historical == nil {
		r.historical = StaticHistoricalTable{}
	}
	if r.cache == nil {
		cache, err := NewMemoryCache(0)
		if err != nil {
			return nil, err
		}
		r.cache = cache
	}
	if r.location == nil {
		r.location = time.UTC
	}
	return r, nil
}

// FeedID resolves a token symbol to its price-feed id.
func (r *Resolver) FeedID(symbol string) (string, error) {
	id, ok := r.feedIDs[types.NormalizeSymbol(symbol)]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownToken, symbol)
	}
	return id, nil
}

// DateKey returns the historical lookup date for a unix timestamp.
func (r *Resolver) DateKey(unixSeconds int64) string {
	return time.Unix(unixSeconds, 0).In(r.location).Format(DateLayout)
}

// Price returns the current USD price of a token.
func (r *Resolver) Price(ctx context.Context, symbol string) (float64, error) {
	id, err := r.FeedID(symbol)
	if err != nil {
		return 0, err
	}

	if price, ok := r.cache.Get(ctx, id); ok {
		metrics.PriceLookups.WithLabelValues("current", metrics.SourceCache).Inc()
		return price, nil
	}
	if price, ok := r.static[id]; ok {
		metrics.PriceLookups.WithLabelValues("current", metrics.SourceStatic).Inc()
		return price, nil
	}

	price, err := r.source.CurrentPrice(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrPriceUnavailable, id, err)
	}
	metrics.PriceLookups.WithLabelValues("current", metrics.SourceNetwork).Inc()

	r.cache.Set(ctx, id, price)
	r.logger.Debug().Str("symbol", symbol).Str("id", id).Float64("price", price).Msg("Resolved current price from network")
	return price, nil
}

// PriceAt returns the USD price of a token on the calendar day containing unixSeconds.
func (r *Resolver) PriceAt(ctx context.Context, symbol string, unixSeconds int64) (float64, error) {
	id, err := r.FeedID(symbol)
	if err != nil {
		return 0, err
	}
	date := r.DateKey(unixSeconds)

	price, ok, err := r.historical.Lookup(ctx, id, date)
	if err != nil {
		r.logger.Warn().Err(err).Str("id", id).Str("date", date).Msg("Historical table lookup failed, falling back to network")
	} else if ok {
		metrics.PriceLookups.WithLabelValues("historical", metrics.SourceStatic).Inc()
		return price, nil
	}

	price, err = r.source.HistoricalPrice(ctx, id, date)
	if err != nil {
		return 0, fmt.Errorf("%w: %s on %s: %w", ErrPriceUnavailable, id, date, err)
	}
	metrics.PriceLookups.WithLabelValues("historical", metrics.SourceNetwork).Inc()

	r.logger.Debug().Str("symbol", symbol).Str("id", id).Str("date", date).Float64("price", price).Msg("Resolved historical price from network")
	return price, nil
}

// Prefetch warms the cache for several symbols with one network request. Symbols already cached or
// covered by the static table are skipped. Unknown symbols fail the whole call.
func (r *Resolver) Prefetch(ctx context.Context, symbols []string) error {
	seen := make(map[string]bool, len(symbols))
	var missing []string
	for _, symbol := range symbols {
		id, err := r.FeedID(symbol)
		if err != nil {
			return err
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, ok := r.cache.Get(ctx, id); ok {
			continue
		}
		if _, ok := r.static[id]; ok {
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return nil
	}

	prices, err := r.source.CurrentPrices(ctx, missing)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPriceUnavailable, err)
	}
	for id, price := range prices {
		r.cache.Set(ctx, id, price)
	}

	r.logger.Debug().Strs("requested", missing).Int("priced", len(prices)).Msg("Prefetched current prices")
	return nil
}
