package navdata

import (
	"context"
	"fmt"
	"strings"
	"time"

	gormlib "gorm.io/gorm"

	"infinite-experiment/fmsuplink/internal/db/repositories"
	"infinite-experiment/fmsuplink/internal/geo"
	"infinite-experiment/fmsuplink/internal/metrics"
	"infinite-experiment/fmsuplink/internal/models/gorm"
)

// Store is the GORM backed Database.
type Store struct {
	fixes      *repositories.FixRepository
	airways    *repositories.AirwayRepository
	procedures *repositories.ProcedureRepository
	metrics    *metrics.MetricsRegistry
}

// NewStore creates a store over db. metricsReg may be nil.
func NewStore(db *gormlib.DB, metricsReg *metrics.MetricsRegistry) *Store {
	return &Store{
		fixes:      repositories.NewFixRepository(db),
		airways:    repositories.NewAirwayRepository(db),
		procedures: repositories.NewProcedureRepository(db),
		metrics:    metricsReg,
	}
}

func (s *Store) observe(op string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.NavDBLookupsTotal.WithLabelValues(op).Inc()
	s.metrics.NavDBLookupDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (s *Store) SearchFixes(ctx context.Context, ident string) ([]Fix, error) {
	defer s.observe("fixes", time.Now())

	rows, err := s.fixes.FindByIdent(ctx, ident)
	if err != nil {
		return nil, fmt.Errorf("search fixes %s: %w", ident, err)
	}
	fixes := make([]Fix, 0, len(rows))
	for _, r := range rows {
		fixes = append(fixes, fixFromRow(r))
	}
	return fixes, nil
}

func (s *Store) SearchAirways(ctx context.Context, ident string, through Fix) ([]Airway, error) {
	defer s.observe("airways", time.Now())

	rows, err := s.airways.FindThroughFix(ctx, ident, through.Ident, through.Region)
	if err != nil {
		return nil, fmt.Errorf("search airways %s through %s: %w", ident, through.Ident, err)
	}
	airways := make([]Airway, 0, len(rows))
	for _, r := range rows {
		a := Airway{ID: r.ID, Ident: r.Ident, Fixes: make([]Fix, 0, len(r.Fixes))}
		for _, af := range r.Fixes {
			a.Fixes = append(a.Fixes, fixFromRow(af.Fix))
		}
		airways = append(airways, a)
	}
	return airways, nil
}

// SearchDepartures returns the departures at airport that serve runway.
// Procedures without a runway list serve every runway.
func (s *Store) SearchDepartures(ctx context.Context, airport, runway string) ([]Procedure, error) {
	defer s.observe("departures", time.Now())

	procs, err := s.searchProcedures(ctx, airport, Departure)
	if err != nil {
		return nil, err
	}
	var out []Procedure
	for _, p := range procs {
		if p.ServesRunway(runway) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) SearchArrivals(ctx context.Context, airport string) ([]Procedure, error) {
	defer s.observe("arrivals", time.Now())
	return s.searchProcedures(ctx, airport, Arrival)
}

func (s *Store) searchProcedures(ctx context.Context, airport string, kind ProcedureKind) ([]Procedure, error) {
	rows, err := s.procedures.FindByAirport(ctx, airport, string(kind))
	if err != nil {
		return nil, fmt.Errorf("search %s procedures at %s: %w", kind, airport, err)
	}
	procs := make([]Procedure, 0, len(rows))
	for _, r := range rows {
		procs = append(procs, procedureFromRow(r))
	}
	return procs, nil
}

// Ping checks the underlying connection.
func Ping(ctx context.Context, db *gormlib.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func fixFromRow(r gorm.NavFix) Fix {
	return Fix{
		ID:       r.ID,
		Ident:    r.Ident,
		Region:   r.Region,
		Location: geo.LatLong{Lat: r.Latitude, Long: r.Longitude},
	}
}

// procedureFromRow regroups the flat leg rows into sections. Legs arrive
// ordered by section, transition and seq.
func procedureFromRow(r gorm.NavProcedure) Procedure {
	p := Procedure{
		ID:      r.ID,
		Ident:   r.Ident,
		Airport: r.Airport,
		Kind:    ProcedureKind(r.Kind),
	}
	if r.Runways != "" {
		for _, rwy := range strings.Split(r.Runways, ",") {
			if rwy = strings.TrimSpace(rwy); rwy != "" {
				p.Runways = append(p.Runways, rwy)
			}
		}
	}

	enroute := map[string]int{}
	for _, leg := range r.Legs {
		f := fixFromRow(leg.Fix)
		switch leg.Section {
		case gorm.SectionRunwayTransition:
			if p.RunwayTransitions == nil {
				p.RunwayTransitions = map[string][]Fix{}
			}
			p.RunwayTransitions[leg.Transition] = append(p.RunwayTransitions[leg.Transition], f)
		case gorm.SectionEnrouteTransition:
			i, ok := enroute[leg.Transition]
			if !ok {
				i = len(p.EnrouteTransitions)
				enroute[leg.Transition] = i
				p.EnrouteTransitions = append(p.EnrouteTransitions, Transition{Ident: leg.Transition})
			}
			p.EnrouteTransitions[i].Legs = append(p.EnrouteTransitions[i].Legs, f)
		default:
			p.Legs = append(p.Legs, f)
		}
	}
	return p
}
