package responses

import "time"

// Coordinate is a position in decimal degrees. It is omitted from
// responses when the source text did not parse.
type Coordinate struct {
	Lat  float64 `json:"lat" msgpack:"lat"`
	Long float64 `json:"long" msgpack:"long"`
}

// ChunkResponse is one classified route instruction
type ChunkResponse struct {
	Index    int         `json:"index" msgpack:"index"`
	Kind     string      `json:"kind" msgpack:"kind"`
	Ident    string      `json:"ident,omitempty" msgpack:"ident"`
	Location *Coordinate `json:"location,omitempty" msgpack:"location"`
}

// LegResponse is one element of the built route
type LegResponse struct {
	Index         int         `json:"index" msgpack:"index"`
	Segment       string      `json:"segment" msgpack:"segment"`
	Discontinuity bool        `json:"discontinuity,omitempty" msgpack:"discontinuity"`
	Ident         string      `json:"ident,omitempty" msgpack:"ident"`
	Region        string      `json:"region,omitempty" msgpack:"region"`
	Via           string      `json:"via,omitempty" msgpack:"via"`
	Location      *Coordinate `json:"location,omitempty" msgpack:"location"`
}

// RouteSummaryResponse is the route header extracted from the OFP
type RouteSummaryResponse struct {
	Origin                     string      `json:"origin" msgpack:"origin"`
	OriginRunway               string      `json:"origin_runway,omitempty" msgpack:"origin_runway"`
	OriginLocation             *Coordinate `json:"origin_location,omitempty" msgpack:"origin_location"`
	Destination                string      `json:"destination" msgpack:"destination"`
	DestinationRunway          string      `json:"destination_runway,omitempty" msgpack:"destination_runway"`
	DestinationLocation        *Coordinate `json:"destination_location,omitempty" msgpack:"destination_location"`
	Alternate                  string      `json:"alternate,omitempty" msgpack:"alternate"`
	OriginTransitionAltitude   *int        `json:"origin_transition_altitude" msgpack:"origin_transition_altitude"`
	DestinationTransitionLevel *int        `json:"destination_transition_level" msgpack:"destination_transition_level"`
	CostIndex                  *int        `json:"cost_index" msgpack:"cost_index"`
	CruiseLevel                *int        `json:"cruise_level" msgpack:"cruise_level"`
	AvgTropopause              *int        `json:"avg_tropopause" msgpack:"avg_tropopause"`
	Callsign                   string      `json:"callsign,omitempty" msgpack:"callsign"`
}

// ClassifyResponse is the response for POST /api/v1/navlog/classify
type ClassifyResponse struct {
	Summary RouteSummaryResponse `json:"summary" msgpack:"summary"`
	Chunks  []ChunkResponse      `json:"chunks" msgpack:"chunks"`
}

// UplinkResponse is the response for POST /api/v1/uplink/{pilot_id} and
// the result stored for a queued job
type UplinkResponse struct {
	Summary    RouteSummaryResponse `json:"summary" msgpack:"summary"`
	Chunks     []ChunkResponse      `json:"chunks" msgpack:"chunks"`
	Legs       []LegResponse        `json:"legs" msgpack:"legs"`
	DurationMs int64                `json:"duration_ms" msgpack:"duration_ms"`
	// Set when synthesis stopped early; Legs then hold the partial route
	FailedChunk *int   `json:"failed_chunk,omitempty" msgpack:"failed_chunk"`
	ErrorCode   string `json:"error_code,omitempty" msgpack:"error_code"`
}

// Job states
const (
	JobStateQueued  = "queued"
	JobStateRunning = "running"
	JobStateDone    = "done"
	JobStateFailed  = "failed"
)

// UplinkJobResponse is the status of a queued uplink
type UplinkJobResponse struct {
	JobID     string          `json:"job_id" msgpack:"job_id"`
	PilotID   string          `json:"pilot_id" msgpack:"pilot_id"`
	State     string          `json:"state" msgpack:"state"`
	Error     string          `json:"error,omitempty" msgpack:"error"`
	Result    *UplinkResponse `json:"result,omitempty" msgpack:"result"`
	CreatedAt time.Time       `json:"created_at" msgpack:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" msgpack:"updated_at"`
}

// HistoryEntryResponse is one past uplink run
type HistoryEntryResponse struct {
	ID          string    `json:"id"`
	Origin      string    `json:"origin"`
	Destination string    `json:"destination"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
	LegCount    int       `json:"leg_count"`
	DurationMs  int64     `json:"duration_ms"`
	CreatedAt   time.Time `json:"created_at"`
}
