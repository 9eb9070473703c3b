// Package uplink applies a classified chunk sequence to a flight plan.
//
// Chunks are applied strictly in order. Each chunk may depend on the
// insertion cursor and the pending airway state left by the one before it,
// so a run never processes chunks concurrently.
package uplink

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"infinite-experiment/fmsuplink/internal/constants"
	"infinite-experiment/fmsuplink/internal/extract"
	"infinite-experiment/fmsuplink/internal/flightplan"
	"infinite-experiment/fmsuplink/internal/geo"
	"infinite-experiment/fmsuplink/internal/logging"
	"infinite-experiment/fmsuplink/internal/metrics"
	"infinite-experiment/fmsuplink/internal/navdata"
	"infinite-experiment/fmsuplink/internal/navlog"
)

// Route is the flight plan being built. *flightplan.FlightPlan implements
// it.
type Route interface {
	SegmentLegCount(seg flightplan.SegmentKind) int
	ElementAt(index int) (flightplan.Element, bool)
	InsertWaypointAfter(index int, leg flightplan.Leg) error
	SetDepartureProcedure(p navdata.Procedure, runway string) error
	SetDepartureEnrouteTransition(t navdata.Transition) error
	SetArrivalProcedure(p navdata.Procedure) error
	DepartureProcedure() (navdata.Procedure, bool)
	FinalizeAirways(p *flightplan.PendingAirways) error
}

// Progress is notified when a run starts and when it completes
// successfully. Failed runs get no completion notice.
type Progress interface {
	SynthesisStarted()
	SynthesisFinished()
}

type noProgress struct{}

func (noProgress) SynthesisStarted()  {}
func (noProgress) SynthesisFinished() {}

// Skip reasons reported to metrics.
const (
	SkipAmbiguousProcedure  = "ambiguous_procedure"
	SkipAmbiguousTransition = "ambiguous_transition"
	SkipNoDeparture         = "no_departure"
	SkipUnsupportedChunk    = "unsupported_chunk"
	SkipProceduresDisabled  = "procedures_disabled"
)

// Synthesizer is safe for concurrent use; each Synthesize call owns its own
// run state.
type Synthesizer struct {
	db       navdata.Database
	progress Progress
	metrics  *metrics.MetricsRegistry
	logger   *zap.SugaredLogger
}

// NewSynthesizer creates a synthesizer. progress and metricsReg may be nil.
func NewSynthesizer(db navdata.Database, progress Progress, metricsReg *metrics.MetricsRegistry) *Synthesizer {
	if progress == nil {
		progress = noProgress{}
	}
	return &Synthesizer{
		db:       db,
		progress: progress,
		metrics:  metricsReg,
		logger:   logging.GetLogger(),
	}
}

// WithLogger returns a copy of s that logs to logger.
func (s *Synthesizer) WithLogger(logger *zap.SugaredLogger) *Synthesizer {
	c := *s
	c.logger = logger
	return &c
}

// Synthesize applies chunks to route. On failure the route keeps every leg
// applied before the failing chunk; retry only against a fresh route.
func (s *Synthesizer) Synthesize(ctx context.Context, chunks []navlog.Chunk, summary extract.RouteSummary, uplinkProcedures bool, route Route) error {
	r := &run{
		Synthesizer: s,
		ctx:         ctx,
		chunks:      chunks,
		summary:     summary,
		procedures:  uplinkProcedures,
		route:       route,
	}

	start := time.Now()
	s.progress.SynthesisStarted()
	s.logger.Infow("Synthesis started",
		"origin", summary.Origin,
		"destination", summary.Destination,
		"chunks", len(chunks),
		"procedures", uplinkProcedures,
	)

	for i, c := range chunks {
		if err := r.apply(i, c); err != nil {
			s.observe("failed", start)
			s.logger.Warnw("Synthesis aborted", "chunk_index", i, "kind", c.Kind().String(), "error", err)
			return err
		}
		if s.metrics != nil {
			s.metrics.ChunksAppliedTotal.WithLabelValues(c.Kind().String()).Inc()
		}
	}

	s.observe("success", start)
	s.logger.Infow("Synthesis finished", "chunks", len(chunks), "duration_ms", time.Since(start).Milliseconds())
	s.progress.SynthesisFinished()
	return nil
}

func (s *Synthesizer) observe(outcome string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.UplinkRunsTotal.WithLabelValues(outcome).Inc()
	s.metrics.UplinkDuration.Observe(time.Since(start).Seconds())
}

// run is the state of one Synthesize call.
type run struct {
	*Synthesizer

	ctx        context.Context
	chunks     []navlog.Chunk
	summary    extract.RouteSummary
	procedures bool
	route      Route

	cursor    int
	cursorSet bool
	pending   *flightplan.PendingAirways
}

func (r *run) apply(i int, c navlog.Chunk) error {
	switch c := c.(type) {
	case navlog.Procedure:
		return r.applyProcedure(i, c)
	case navlog.SidEnrouteTransition:
		return r.applySidEnrouteTransition(i, c)
	case navlog.Waypoint:
		return r.applyWaypoint(i, c.Kind(), c.Ident, c.Location)
	case navlog.LatLong:
		return r.applyLatLong(i, c)
	case navlog.Airway:
		return r.applyAirway(i, c)
	case navlog.AirwayTermination:
		return r.applyAirwayTermination(i, c)
	default:
		r.logger.Warnw("Skipping unsupported chunk", "chunk_index", i, "kind", c.Kind().String())
		r.skipped(SkipUnsupportedChunk)
		return nil
	}
}

// recomputeCursor moves the cursor to the last leg of the known route:
// everything up to and including the enroute segment. A trailing enroute
// discontinuity is stepped over unless it is the only enroute element.
func (r *run) recomputeCursor() {
	n := 0
	for _, seg := range []flightplan.SegmentKind{
		flightplan.Origin,
		flightplan.DepartureRunwayTransition,
		flightplan.Departure,
		flightplan.DepartureEnrouteTransition,
		flightplan.Enroute,
	} {
		n += r.route.SegmentLegCount(seg)
	}

	index := n - 1
	if r.route.SegmentLegCount(flightplan.Enroute) > 1 {
		if e, ok := r.route.ElementAt(index); ok && e.Discontinuity {
			index--
		}
	}
	r.cursor = index
	r.cursorSet = true
}

func (r *run) ensureCursor() {
	if !r.cursorSet {
		r.recomputeCursor()
	}
}

func (r *run) insert(i int, kind navlog.ChunkKind, leg flightplan.Leg) error {
	if err := r.route.InsertWaypointAfter(r.cursor, leg); err != nil {
		return r.fail(i, kind, constants.ErrCodeRouteMutation, err)
	}
	r.cursor++
	return nil
}

func (r *run) skipped(reason string) {
	if r.metrics != nil {
		r.metrics.UplinkSkippedTotal.WithLabelValues(reason).Inc()
	}
}

func (r *run) fail(i int, kind navlog.ChunkKind, code string, err error) error {
	return &SynthesisError{
		Code:       code,
		Message:    constants.GetErrorMessage(code),
		ChunkIndex: i,
		Kind:       kind,
		Err:        err,
	}
}

func (r *run) notFound(i int, kind navlog.ChunkKind, format string, args ...interface{}) error {
	return r.fail(i, kind, constants.ErrCodeNavDataNotFound, fmt.Errorf("%w: "+format, append([]interface{}{ErrNotFound}, args...)...))
}

func (r *run) applyProcedure(i int, c navlog.Procedure) error {
	first, last := i == 0, i == len(r.chunks)-1
	if !first && !last {
		return r.fail(i, c.Kind(), constants.ErrCodeInvalidSequence,
			fmt.Errorf("%w: procedure %s at position %d of %d", ErrInvalidSequence, c.Ident, i+1, len(r.chunks)))
	}
	if !r.procedures {
		r.skipped(SkipProceduresDisabled)
		return nil
	}

	if first {
		candidates, err := r.db.SearchDepartures(r.ctx, r.summary.Origin, r.summary.OriginRunway)
		if err != nil {
			return r.fail(i, c.Kind(), constants.ErrCodeNavDBFailure, err)
		}
		match := filterProcedures(candidates, c.Ident)
		if len(match) != 1 {
			r.logger.Infow("Skipping departure", "ident", c.Ident, "airport", r.summary.Origin, "candidates", len(match))
			r.skipped(SkipAmbiguousProcedure)
			return nil
		}
		if err := r.route.SetDepartureProcedure(match[0], r.summary.OriginRunway); err != nil {
			return r.fail(i, c.Kind(), constants.ErrCodeRouteMutation, err)
		}
		r.recomputeCursor()
		return nil
	}

	candidates, err := r.db.SearchArrivals(r.ctx, r.summary.Destination)
	if err != nil {
		return r.fail(i, c.Kind(), constants.ErrCodeNavDBFailure, err)
	}
	match := filterProcedures(candidates, c.Ident)
	if len(match) != 1 {
		r.logger.Infow("Skipping arrival", "ident", c.Ident, "airport", r.summary.Destination, "candidates", len(match))
		r.skipped(SkipAmbiguousProcedure)
		return nil
	}
	if err := r.route.SetArrivalProcedure(match[0]); err != nil {
		return r.fail(i, c.Kind(), constants.ErrCodeRouteMutation, err)
	}
	r.recomputeCursor()
	return nil
}

func filterProcedures(procs []navdata.Procedure, ident string) []navdata.Procedure {
	var out []navdata.Procedure
	for _, p := range procs {
		if p.Ident == ident {
			out = append(out, p)
		}
	}
	return out
}

func (r *run) applySidEnrouteTransition(i int, c navlog.SidEnrouteTransition) error {
	if !r.procedures {
		return r.applyWaypoint(i, c.Kind(), c.Ident, c.Location)
	}

	departure, ok := r.route.DepartureProcedure()
	if !ok {
		r.logger.Infow("Skipping enroute transition without departure", "ident", c.Ident)
		r.skipped(SkipNoDeparture)
		return nil
	}

	var match []navdata.Transition
	for _, t := range departure.EnrouteTransitions {
		if t.Ident == c.Ident {
			match = append(match, t)
		}
	}
	if len(match) != 1 {
		r.logger.Infow("Skipping enroute transition", "ident", c.Ident, "departure", departure.Ident, "candidates", len(match))
		r.skipped(SkipAmbiguousTransition)
		return nil
	}

	if err := r.route.SetDepartureEnrouteTransition(match[0]); err != nil {
		return r.fail(i, c.Kind(), constants.ErrCodeRouteMutation, err)
	}
	r.recomputeCursor()
	return nil
}

func (r *run) applyWaypoint(i int, kind navlog.ChunkKind, ident string, hint geo.LatLong) error {
	r.ensureCursor()

	fixes, err := r.db.SearchFixes(r.ctx, ident)
	if err != nil {
		return r.fail(i, kind, constants.ErrCodeNavDBFailure, err)
	}
	if len(fixes) == 0 {
		return r.notFound(i, kind, "fix %s", ident)
	}

	fix := fixes[nearestFix(hint, fixes)]
	return r.insert(i, kind, flightplan.LegFromFix(fix, ""))
}

func nearestFix(hint geo.LatLong, fixes []navdata.Fix) int {
	if len(fixes) == 1 {
		return 0
	}
	locations := make([]geo.LatLong, len(fixes))
	for i, f := range fixes {
		locations[i] = f.Location
	}
	return geo.Nearest(hint, locations)
}

func (r *run) applyLatLong(i int, c navlog.LatLong) error {
	r.ensureCursor()
	return r.insert(i, c.Kind(), flightplan.CoordinateLeg(geo.LatLong{Lat: c.Lat, Long: c.Long}))
}

// startPending begins accumulating airways at the cursor. The entry fix is
// the fix the leg at the cursor ends at.
func (r *run) startPending() {
	r.ensureCursor()
	var anchor *navdata.Fix
	if e, ok := r.route.ElementAt(r.cursor); ok && !e.Discontinuity {
		f := e.Leg.Fix()
		anchor = &f
	}
	r.pending = flightplan.NewPendingAirways(r.cursor, anchor)
}

func (r *run) applyAirway(i int, c navlog.Airway) error {
	if r.pending == nil {
		r.startPending()
	}

	anchor, ok := r.pending.LastFix()
	if !ok {
		return r.notFound(i, c.Kind(), "no entry fix for airway %s", c.Ident)
	}

	airways, err := r.db.SearchAirways(r.ctx, c.Ident, anchor)
	if err != nil {
		return r.fail(i, c.Kind(), constants.ErrCodeNavDBFailure, err)
	}
	if len(airways) == 0 {
		return r.notFound(i, c.Kind(), "airway %s through %s", c.Ident, anchor.Ident)
	}

	r.pending.AppendAirway(airways[nearestAirway(c.Location, airways)])
	return nil
}

// nearestAirway picks the airway whose first fix is closest to hint.
func nearestAirway(hint geo.LatLong, airways []navdata.Airway) int {
	if len(airways) == 1 {
		return 0
	}
	locations := make([]geo.LatLong, len(airways))
	for i, a := range airways {
		if f, ok := a.First(); ok {
			locations[i] = f.Location
		} else {
			locations[i] = geo.LatLong{Lat: math.NaN(), Long: math.NaN()}
		}
	}
	return geo.Nearest(hint, locations)
}

func (r *run) applyAirwayTermination(i int, c navlog.AirwayTermination) error {
	if r.pending == nil {
		r.logger.Warnw("Airway termination without pending airway", "chunk_index", i, "ident", c.Ident)
		r.startPending()
	}

	fixes, err := r.db.SearchFixes(r.ctx, c.Ident)
	if err != nil {
		return r.fail(i, c.Kind(), constants.ErrCodeNavDBFailure, err)
	}
	if len(fixes) == 0 {
		return r.notFound(i, c.Kind(), "fix %s", c.Ident)
	}

	airway, ok := r.pending.LastAirway()
	if !ok {
		return r.notFound(i, c.Kind(), "no pending airway for %s", c.Ident)
	}
	var exit *navdata.Fix
	for j := range fixes {
		if airway.Contains(fixes[j]) {
			exit = &fixes[j]
			break
		}
	}
	if exit == nil {
		return r.notFound(i, c.Kind(), "fix %s on airway %s", c.Ident, airway.Ident)
	}

	if err := r.pending.AppendTermination(*exit); err != nil {
		return r.fail(i, c.Kind(), constants.ErrCodeRouteMutation, err)
	}
	if err := r.route.FinalizeAirways(r.pending); err != nil {
		return r.fail(i, c.Kind(), constants.ErrCodeRouteMutation, err)
	}
	r.pending = nil
	r.recomputeCursor()
	return nil
}
