package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"infinite-experiment/fmsuplink/internal/common"
	"infinite-experiment/fmsuplink/internal/constants"
	"infinite-experiment/fmsuplink/internal/extract"
	"infinite-experiment/fmsuplink/internal/flightplan"
	"infinite-experiment/fmsuplink/internal/logging"
	"infinite-experiment/fmsuplink/internal/metrics"
	"infinite-experiment/fmsuplink/internal/models/dtos"
	"infinite-experiment/fmsuplink/internal/models/dtos/responses"
	"infinite-experiment/fmsuplink/internal/models/entities"
	"infinite-experiment/fmsuplink/internal/navdata"
	"infinite-experiment/fmsuplink/internal/navlog"
	"infinite-experiment/fmsuplink/internal/providers"
	"infinite-experiment/fmsuplink/internal/uplink"
)

// ErrNavlogEmpty is returned when the OFP has no route fixes to uplink
var ErrNavlogEmpty = errors.New(constants.MsgNavlogEmpty)

// HistoryRecorder persists finished uplink runs
type HistoryRecorder interface {
	Insert(ctx context.Context, h *entities.UplinkHistory) error
}

// UplinkOptions tunes a single run. A nil Procedures uses the service
// default.
type UplinkOptions struct {
	Procedures *bool
	SkipCache  bool
}

// UplinkResult is the outcome of one run. Plan is set even when synthesis
// failed and then holds every leg applied before the failing chunk.
type UplinkResult struct {
	Summary  extract.RouteSummary
	Plan     *flightplan.FlightPlan
	Chunks   []navlog.Chunk
	Duration time.Duration
}

type UplinkService struct {
	provider   providers.OFPProvider
	synth      *uplink.Synthesizer
	cache      common.CacheInterface
	history    HistoryRecorder
	metrics    *metrics.MetricsRegistry
	ofpTTL     time.Duration
	procedures bool
}

// NewUplinkService wires the run pipeline. cache, history and metricsReg
// may be nil.
func NewUplinkService(
	provider providers.OFPProvider,
	db navdata.Database,
	cache common.CacheInterface,
	history HistoryRecorder,
	metricsReg *metrics.MetricsRegistry,
	ofpTTL time.Duration,
	procedures bool,
) *UplinkService {
	if ofpTTL <= 0 {
		ofpTTL = constants.DefaultOFPCacheTTL
	}
	return &UplinkService{
		provider:   provider,
		synth:      uplink.NewSynthesizer(db, nil, metricsReg),
		cache:      cache,
		history:    history,
		metrics:    metricsReg,
		ofpTTL:     ofpTTL,
		procedures: procedures,
	}
}

// Classify summarizes doc without touching the nav database
func (svc *UplinkService) Classify(doc *dtos.OFPDocument) extract.RouteSummary {
	return extract.Summarize(doc)
}

// FetchOFP returns the pilot's latest OFP, from the cache when possible
func (svc *UplinkService) FetchOFP(ctx context.Context, pilotID string, skipCache bool) (*dtos.OFPDocument, error) {
	load := func() (*dtos.OFPDocument, error) {
		return svc.provider.FetchOFP(ctx, pilotID)
	}
	if svc.cache == nil || skipCache {
		return load()
	}

	key := string(constants.CachePrefixOFP) + strings.ToLower(strings.TrimSpace(pilotID))
	doc, hit, err := common.GetOrSet(svc.cache, key, svc.ofpTTL, load)
	if err != nil && doc == nil {
		return nil, err
	}
	if err != nil {
		// fetched fine but could not be cached
		logging.Warn("Failed to cache OFP", "pilot_id", pilotID, "error", err)
	}
	svc.countCache(hit)
	return doc, nil
}

func (svc *UplinkService) countCache(hit bool) {
	if svc.metrics == nil {
		return
	}
	if hit {
		svc.metrics.CacheHitsTotal.WithLabelValues("ofp").Inc()
	} else {
		svc.metrics.CacheMissesTotal.WithLabelValues("ofp").Inc()
	}
}

// Uplink fetches the pilot's OFP and builds its route against the nav
// database.
func (svc *UplinkService) Uplink(ctx context.Context, pilotID string, opts UplinkOptions) (*UplinkResult, error) {
	start := time.Now()
	log := logging.GetLogger().With("pilot_id", pilotID)

	doc, err := svc.FetchOFP(ctx, pilotID, opts.SkipCache)
	if err != nil {
		log.Warnw("OFP fetch failed", "error", err)
		return nil, err
	}

	result, err := svc.UplinkDocument(ctx, doc, opts)
	result.Duration = time.Since(start)
	svc.record(ctx, pilotID, result, err)
	return result, err
}

// UplinkDocument builds the route of an already fetched OFP. The returned
// result is never nil.
func (svc *UplinkService) UplinkDocument(ctx context.Context, doc *dtos.OFPDocument, opts UplinkOptions) (*UplinkResult, error) {
	start := time.Now()
	summary := svc.Classify(doc)
	plan := NewFlightPlan(summary)
	result := &UplinkResult{Summary: summary, Plan: plan, Chunks: summary.Chunks}

	if len(summary.Chunks) == 0 {
		result.Duration = time.Since(start)
		return result, ErrNavlogEmpty
	}

	procedures := svc.procedures
	if opts.Procedures != nil {
		procedures = *opts.Procedures
	}

	err := svc.synth.Synthesize(ctx, summary.Chunks, summary, procedures, plan)
	result.Duration = time.Since(start)
	return result, err
}

// NewFlightPlan creates the fresh route for summary with its header fields
// applied
func NewFlightPlan(summary extract.RouteSummary) *flightplan.FlightPlan {
	origin := navdata.Fix{Ident: summary.Origin, Region: summary.OriginRegion, Location: summary.OriginLocation}
	destination := navdata.Fix{Ident: summary.Destination, Region: summary.DestinationRegion, Location: summary.DestinationLoc}

	fp := flightplan.New(origin, summary.OriginRunway, destination, summary.DestinationRunway, summary.Alternate)
	fp.TransitionAltitude = summary.OriginTransitionAltitude
	fp.TransitionLevel = summary.DestinationTransitionLevel
	fp.CostIndex = summary.CostIndex
	fp.CruiseLevel = summary.CruiseLevel
	fp.Tropopause = summary.AvgTropopause
	fp.Callsign = summary.Callsign
	return fp
}

func (svc *UplinkService) record(ctx context.Context, pilotID string, result *UplinkResult, runErr error) {
	if svc.history == nil {
		return
	}

	h := &entities.UplinkHistory{
		ID:          uuid.New().String(),
		PilotID:     pilotID,
		Origin:      result.Summary.Origin,
		Destination: result.Summary.Destination,
		ChunkCount:  len(result.Chunks),
		LegCount:    result.Plan.Len(),
		Status:      responses.JobStateDone,
		DurationMs:  result.Duration.Milliseconds(),
		CreatedAt:   time.Now().UTC(),
	}
	if runErr != nil {
		h.Status = responses.JobStateFailed
		h.Error = runErr.Error()
	}

	if err := svc.history.Insert(ctx, h); err != nil {
		logging.Warn("Failed to record uplink history", "pilot_id", pilotID, "error", err)
	}
}
