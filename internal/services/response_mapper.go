package services

import (
	"errors"

	"infinite-experiment/fmsuplink/internal/extract"
	"infinite-experiment/fmsuplink/internal/flightplan"
	"infinite-experiment/fmsuplink/internal/geo"
	"infinite-experiment/fmsuplink/internal/models/dtos/responses"
	"infinite-experiment/fmsuplink/internal/models/entities"
	"infinite-experiment/fmsuplink/internal/navlog"
	"infinite-experiment/fmsuplink/internal/uplink"
)

func coordinate(ll geo.LatLong) *responses.Coordinate {
	if !ll.Valid() {
		return nil
	}
	return &responses.Coordinate{Lat: ll.Lat, Long: ll.Long}
}

func chunkLocation(c navlog.Chunk) *responses.Coordinate {
	switch c := c.(type) {
	case navlog.Waypoint:
		return coordinate(c.Location)
	case navlog.SidEnrouteTransition:
		return coordinate(c.Location)
	case navlog.Airway:
		return coordinate(c.Location)
	case navlog.LatLong:
		return coordinate(geo.LatLong{Lat: c.Lat, Long: c.Long})
	}
	return nil
}

// ChunkResponses converts chunks for the API
func ChunkResponses(chunks []navlog.Chunk) []responses.ChunkResponse {
	out := make([]responses.ChunkResponse, 0, len(chunks))
	for i, c := range chunks {
		out = append(out, responses.ChunkResponse{
			Index:    i,
			Kind:     c.Kind().String(),
			Ident:    navlog.Ident(c),
			Location: chunkLocation(c),
		})
	}
	return out
}

// LegResponses lists every element of plan in route order
func LegResponses(plan *flightplan.FlightPlan) []responses.LegResponse {
	elements := plan.Elements()
	out := make([]responses.LegResponse, 0, len(elements))
	for i, e := range elements {
		leg := responses.LegResponse{
			Index:         i,
			Segment:       e.Segment.String(),
			Discontinuity: e.Discontinuity,
		}
		if !e.Discontinuity {
			leg.Ident = e.Leg.Ident
			leg.Region = e.Leg.Region
			leg.Via = e.Leg.Via
			leg.Location = coordinate(e.Leg.Location)
		}
		out = append(out, leg)
	}
	return out
}

func SummaryResponse(s extract.RouteSummary) responses.RouteSummaryResponse {
	return responses.RouteSummaryResponse{
		Origin:                     s.Origin,
		OriginRunway:               s.OriginRunway,
		OriginLocation:             coordinate(s.OriginLocation),
		Destination:                s.Destination,
		DestinationRunway:          s.DestinationRunway,
		DestinationLocation:        coordinate(s.DestinationLoc),
		Alternate:                  s.Alternate,
		OriginTransitionAltitude:   s.OriginTransitionAltitude,
		DestinationTransitionLevel: s.DestinationTransitionLevel,
		CostIndex:                  s.CostIndex,
		CruiseLevel:                s.CruiseLevel,
		AvgTropopause:              s.AvgTropopause,
		Callsign:                   s.Callsign,
	}
}

func ClassifyResponse(s extract.RouteSummary) *responses.ClassifyResponse {
	return &responses.ClassifyResponse{
		Summary: SummaryResponse(s),
		Chunks:  ChunkResponses(s.Chunks),
	}
}

// UplinkResponse converts a run result. runErr, when it is a synthesis
// failure, marks the failing chunk.
func UplinkResponse(result *UplinkResult, runErr error) *responses.UplinkResponse {
	resp := &responses.UplinkResponse{
		Summary:    SummaryResponse(result.Summary),
		Chunks:     ChunkResponses(result.Chunks),
		Legs:       LegResponses(result.Plan),
		DurationMs: result.Duration.Milliseconds(),
	}

	var se *uplink.SynthesisError
	if errors.As(runErr, &se) {
		idx := se.ChunkIndex
		resp.FailedChunk = &idx
		resp.ErrorCode = se.Code
	}
	return resp
}

func HistoryEntryResponse(h entities.UplinkHistory) responses.HistoryEntryResponse {
	return responses.HistoryEntryResponse{
		ID:          h.ID,
		Origin:      h.Origin,
		Destination: h.Destination,
		Status:      h.Status,
		Error:       h.Error,
		LegCount:    h.LegCount,
		DurationMs:  h.DurationMs,
		CreatedAt:   h.CreatedAt,
	}
}

func HistoryEntryResponses(rows []entities.UplinkHistory) []responses.HistoryEntryResponse {
	out := make([]responses.HistoryEntryResponse, 0, len(rows))
	for _, h := range rows {
		out = append(out, HistoryEntryResponse(h))
	}
	return out
}
