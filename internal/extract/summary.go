// Package extract maps an OFP document onto the route summary consumed by
// the uplink.
package extract

import (
	"math"
	"strconv"
	"strings"

	"infinite-experiment/fmsuplink/internal/geo"
	"infinite-experiment/fmsuplink/internal/models/dtos"
	"infinite-experiment/fmsuplink/internal/navlog"
)

// RouteSummary is the header of a route plus its chunk sequence. Numeric
// fields are nil when the document's text could not be parsed.
type RouteSummary struct {
	Origin            string      `json:"origin"`
	OriginRegion      string      `json:"origin_region,omitempty"`
	OriginRunway      string      `json:"origin_runway,omitempty"`
	OriginLocation    geo.LatLong `json:"origin_location"`
	Destination       string      `json:"destination"`
	DestinationRegion string      `json:"destination_region,omitempty"`
	DestinationRunway string      `json:"destination_runway,omitempty"`
	DestinationLoc    geo.LatLong `json:"destination_location"`
	Alternate         string      `json:"alternate,omitempty"`

	OriginTransitionAltitude   *int   `json:"origin_transition_altitude"`
	DestinationTransitionLevel *int   `json:"destination_transition_level"`
	CostIndex                  *int   `json:"cost_index"`
	CruiseLevel                *int   `json:"cruise_level"`
	AvgTropopause              *int   `json:"avg_tropopause"`
	Callsign                   string `json:"callsign,omitempty"`

	Chunks []navlog.Chunk `json:"-"`
}

// Summarize builds the route summary for doc and classifies its navlog.
func Summarize(doc *dtos.OFPDocument) RouteSummary {
	s := RouteSummary{
		Origin:            doc.Origin.ICAOCode,
		OriginRegion:      doc.Origin.ICAORegion,
		OriginRunway:      doc.Origin.PlanRunway,
		OriginLocation:    doc.Origin.Location(),
		Destination:       doc.Destination.ICAOCode,
		DestinationRegion: doc.Destination.ICAORegion,
		DestinationRunway: doc.Destination.PlanRunway,
		DestinationLoc:    doc.Destination.Location(),
		Alternate:         doc.Alternate.ICAOCode,

		OriginTransitionAltitude:   parseInt(doc.Origin.TransAlt),
		DestinationTransitionLevel: parseInt(doc.Destination.TransLevel),
		CostIndex:                  parseInt(doc.General.CostIndex),
		AvgTropopause:              parseInt(doc.General.AvgTropopause),
		Callsign:                   callsign(doc),

		Chunks: navlog.Classify(doc.Navlog.Fixes),
	}

	// flight levels are hundreds of feet
	if alt := parseInt(doc.General.InitialAltitude); alt != nil {
		fl := *alt / 100
		s.CruiseLevel = &fl
	}
	return s
}

func callsign(doc *dtos.OFPDocument) string {
	if cs := strings.TrimSpace(doc.ATC.Callsign); cs != "" {
		return cs
	}
	return strings.TrimSpace(doc.General.ICAOAirline + doc.General.FlightNumber)
}

// parseInt returns nil for empty or malformed text. Decimal text is
// truncated.
func parseInt(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if v, err := strconv.Atoi(s); err == nil {
		return &v
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	// MaxInt rounds up to a power of two as a float64
	if f < math.MinInt || f >= math.MaxInt {
		return nil
	}
	v := int(f)
	return &v
}
