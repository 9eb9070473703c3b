package navlog

import "infinite-experiment/fmsuplink/internal/geo"

// ChunkKind tags the route instruction variants.
type ChunkKind int

const (
	KindProcedure ChunkKind = iota
	KindSidEnrouteTransition
	KindStarEnrouteTransition
	KindWaypoint
	KindLatLong
	KindDct
	KindAirway
	KindAirwayTermination
)

func (k ChunkKind) String() string {
	switch k {
	case KindProcedure:
		return "procedure"
	case KindSidEnrouteTransition:
		return "sidEnrouteTransition"
	case KindStarEnrouteTransition:
		return "starEnrouteTransition"
	case KindWaypoint:
		return "waypoint"
	case KindLatLong:
		return "latlong"
	case KindDct:
		return "dct"
	case KindAirway:
		return "airway"
	case KindAirwayTermination:
		return "airwayTermination"
	default:
		return "unknown"
	}
}

// Chunk is one typed route instruction. The set of implementations is
// closed to this package.
type Chunk interface {
	Kind() ChunkKind
	chunk()
}

// Procedure references a departure or arrival procedure.
type Procedure struct {
	Ident string
}

// SidEnrouteTransition is the exit fix of a departure procedure.
type SidEnrouteTransition struct {
	Ident    string
	Location geo.LatLong
}

// StarEnrouteTransition is the entry fix of an arrival procedure. The
// classifier never emits it.
type StarEnrouteTransition struct {
	Ident string
}

// Waypoint is a directly routed fix. Location only disambiguates between
// fixes sharing the identifier.
type Waypoint struct {
	Ident    string
	Location geo.LatLong
}

// LatLong is a raw coordinate waypoint.
type LatLong struct {
	Lat  float64
	Long float64
}

// Dct is a placeholder and is never emitted.
type Dct struct{}

// Airway enters the named airway. Location is the entry-side hint.
type Airway struct {
	Ident    string
	Location geo.LatLong
}

// AirwayTermination leaves the current airway at Ident.
type AirwayTermination struct {
	Ident string
}

func (Procedure) Kind() ChunkKind             { return KindProcedure }
func (SidEnrouteTransition) Kind() ChunkKind  { return KindSidEnrouteTransition }
func (StarEnrouteTransition) Kind() ChunkKind { return KindStarEnrouteTransition }
func (Waypoint) Kind() ChunkKind              { return KindWaypoint }
func (LatLong) Kind() ChunkKind               { return KindLatLong }
func (Dct) Kind() ChunkKind                   { return KindDct }
func (Airway) Kind() ChunkKind                { return KindAirway }
func (AirwayTermination) Kind() ChunkKind     { return KindAirwayTermination }

func (Procedure) chunk()             {}
func (SidEnrouteTransition) chunk()  {}
func (StarEnrouteTransition) chunk() {}
func (Waypoint) chunk()              {}
func (LatLong) chunk()               {}
func (Dct) chunk()                   {}
func (Airway) chunk()                {}
func (AirwayTermination) chunk()     {}

// Ident returns the identifier carried by c, or "" for variants without one.
func Ident(c Chunk) string {
	switch c := c.(type) {
	case Procedure:
		return c.Ident
	case SidEnrouteTransition:
		return c.Ident
	case StarEnrouteTransition:
		return c.Ident
	case Waypoint:
		return c.Ident
	case Airway:
		return c.Ident
	case AirwayTermination:
		return c.Ident
	}
	return ""
}
