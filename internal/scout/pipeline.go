// Package scout finds local businesses for a search and audits their digital
// presence. The AI work sits behind Generator; this package owns the flow,
// the fan-out and the fallbacks.
package scout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"leadgenius-engine/internal/domain"
	"leadgenius-engine/internal/metrics"
)

// Defaults applied when an audit leaves a field out.
const (
	DefaultMarketGap  = "No online presence verified"
	DefaultPitchAngle = "Focus on digital modernization."

	defaultMinRating = 3.0
	defaultMaxRating = 4.7
)

var ErrInvalidParams = errors.New("invalid search parameters")

// Business is one place found by discovery, before any audit.
type Business struct {
	Name      string  `json:"name"`
	Address   string  `json:"address"`
	Rating    float64 `json:"rating"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Audit is the model's view of a business's digital presence. Nil and empty
// fields mean the model did not say.
type Audit struct {
	MarketGaps       []string `json:"marketGaps"`
	PitchAngle       string   `json:"pitchAngle"`
	Website          string   `json:"website"`
	HasChatbot       *bool    `json:"hasChatbot"`
	HasOnlineBooking *bool    `json:"hasOnlineBooking"`
	Sentiment        string   `json:"sentiment"`
}

type Generator interface {
	// Discover returns free text describing businesses matching the query.
	Discover(ctx context.Context, industry, location string, minRating, maxRating float64) (string, error)
	// Structure turns discovery text into records.
	Structure(ctx context.Context, raw string) ([]Business, error)
	Audit(ctx context.Context, b Business) (Audit, error)
	CompareCompetitor(ctx context.Context, lead domain.Lead, competitorURL string) (domain.CompetitorReport, error)
}

// Upserter receives every scouted lead.
type Upserter interface {
	Upsert(ctx context.Context, lead domain.Lead, savedOverride *bool) error
}

type WebsiteProber interface {
	Probe(ctx context.Context, site string) (Evidence, error)
}

type Options struct {
	// Concurrency bounds parallel audits. Zero means one per business.
	Concurrency int
	// RequestsPerSecond paces audit calls. Zero disables pacing.
	RequestsPerSecond float64

	Prober  WebsiteProber
	Sink    Upserter
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

type Pipeline struct {
	gen     Generator
	prober  WebsiteProber
	sink    Upserter
	limiter *rate.Limiter
	workers int
	log     *zap.Logger
	metrics *metrics.Metrics

	newID func() string
	now   func() time.Time
}

func New(gen Generator, opts Options) *Pipeline {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	p := &Pipeline{
		gen:     gen,
		prober:  opts.Prober,
		sink:    opts.Sink,
		workers: opts.Concurrency,
		log:     opts.Logger,
		metrics: opts.Metrics,
		newID:   uuid.NewString,
		now:     time.Now,
	}
	if opts.RequestsPerSecond > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return p
}

// Scout runs discovery, structuring and one audit per business, then hands
// every lead to the sink. An unauthorized error from any step aborts the run;
// other audit failures fall back to default intelligence for that business.
func (p *Pipeline) Scout(ctx context.Context, params domain.SearchParams) (out []domain.Lead, err error) {
	start := time.Now()
	defer func() { p.metrics.ObserveScout(time.Since(start), len(out), err) }()

	industry := strings.TrimSpace(params.Industry)
	location := strings.TrimSpace(params.Location)
	if industry == "" || location == "" {
		return nil, fmt.Errorf("%w: industry and location are required", ErrInvalidParams)
	}
	minR, maxR := params.MinRating, params.MaxRating
	if minR <= 0 {
		minR = defaultMinRating
	}
	if maxR <= 0 {
		maxR = defaultMaxRating
	}
	if minR > maxR {
		return nil, fmt.Errorf("%w: minRating %.1f above maxRating %.1f", ErrInvalidParams, minR, maxR)
	}

	log := p.log.With(zap.String("industry", industry), zap.String("location", location))

	raw, err := p.gen.Discover(ctx, industry, location, minR, maxR)
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}
	found, err := p.gen.Structure(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("structure: %w", err)
	}
	businesses := found[:0]
	for _, b := range found {
		if strings.TrimSpace(b.Name) != "" {
			businesses = append(businesses, b)
		}
	}
	log.Info("businesses discovered", zap.Int("count", len(businesses)))

	leads := make([]domain.Lead, len(businesses))
	g, gctx := errgroup.WithContext(ctx)
	if p.workers > 0 {
		g.SetLimit(p.workers)
	}
	for i, b := range businesses {
		g.Go(func() error {
			l, err := p.auditOne(gctx, industry, b)
			if err != nil {
				return err
			}
			leads[i] = l
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("audit: %w", err)
	}

	if p.sink != nil {
		for _, l := range leads {
			if err := p.sink.Upsert(ctx, l, nil); err != nil {
				return nil, fmt.Errorf("save lead %s: %w", l.ID, err)
			}
		}
	}
	log.Info("scout finished", zap.Int("leads", len(leads)), zap.Duration("took", time.Since(start)))
	return leads, nil
}

func (p *Pipeline) auditOne(ctx context.Context, industry string, b Business) (domain.Lead, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return domain.Lead{}, err
		}
	}

	a, err := p.gen.Audit(ctx, b)
	if err != nil {
		if domain.IsUnauthorized(err) || ctx.Err() != nil {
			return domain.Lead{}, err
		}
		p.log.Warn("audit failed, using defaults", zap.String("business", b.Name), zap.Error(err))
		a = Audit{}
	}

	l := buildLead(p.newID(), industry, b, a)
	l.CreatedAt = p.now()

	if p.prober != nil && l.Website != "" {
		ev, err := p.prober.Probe(ctx, l.Website)
		if err != nil {
			p.log.Debug("website probe failed", zap.String("website", l.Website), zap.Error(err))
		} else {
			l.HasChatbot = l.HasChatbot || ev.HasChatbot
			l.HasOnlineBooking = l.HasOnlineBooking || ev.HasOnlineBooking
		}
	}
	return l, nil
}

func buildLead(id, industry string, b Business, a Audit) domain.Lead {
	l := domain.Lead{
		ID:         id,
		Name:       strings.TrimSpace(b.Name),
		Address:    strings.TrimSpace(b.Address),
		Rating:     b.Rating,
		Latitude:   b.Latitude,
		Longitude:  b.Longitude,
		Industry:   industry,
		MarketGaps: a.MarketGaps,
		PitchAngle: strings.TrimSpace(a.PitchAngle),
		Website:    strings.TrimSpace(a.Website),
		Sentiment:  domain.ParseSentiment(a.Sentiment),
	}
	if len(l.MarketGaps) == 0 {
		l.MarketGaps = []string{DefaultMarketGap}
	}
	if l.PitchAngle == "" {
		l.PitchAngle = DefaultPitchAngle
	}
	if a.HasChatbot != nil {
		l.HasChatbot = *a.HasChatbot
	}
	if a.HasOnlineBooking != nil {
		l.HasOnlineBooking = *a.HasOnlineBooking
	}
	return l
}

// AnalyzeCompetitor compares a lead with a competitor's website.
func (p *Pipeline) AnalyzeCompetitor(ctx context.Context, lead domain.Lead, competitorURL string) (domain.CompetitorReport, error) {
	competitorURL = strings.TrimSpace(competitorURL)
	if competitorURL == "" {
		return domain.CompetitorReport{}, fmt.Errorf("%w: competitor url is required", ErrInvalidParams)
	}
	rep, err := p.gen.CompareCompetitor(ctx, lead, competitorURL)
	if err != nil {
		return domain.CompetitorReport{}, fmt.Errorf("competitor analysis: %w", err)
	}
	if rep.CompetitorURL == "" {
		rep.CompetitorURL = competitorURL
	}
	if rep.Issues == nil {
		rep.Issues = []string{}
	}
	return rep, nil
}
