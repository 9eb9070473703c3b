// Package navdata provides the navigation database used to resolve fixes,
// airways and procedures while building a route.
package navdata

import (
	"context"
	"errors"
	"fmt"

	"infinite-experiment/fmsuplink/internal/geo"
)

var ErrFixNotOnAirway = errors.New("fix is not on airway")

// Fix is a named navigational point. Ident is not unique; Ident plus Region
// identifies a fix.
type Fix struct {
	ID       uint        `json:"id,omitempty" msgpack:"id"`
	Ident    string      `json:"ident" msgpack:"ident"`
	Region   string      `json:"region" msgpack:"region"`
	Location geo.LatLong `json:"location" msgpack:"location"`
}

// Same compares identity by identifier and ICAO region.
func (f Fix) Same(other Fix) bool {
	return f.Ident == other.Ident && f.Region == other.Region
}

// Airway is a named chain of fixes in published order.
type Airway struct {
	ID    uint   `json:"id,omitempty" msgpack:"id"`
	Ident string `json:"ident" msgpack:"ident"`
	Fixes []Fix  `json:"fixes" msgpack:"fixes"`
}

// IndexOf returns the position of f on the airway or -1.
func (a Airway) IndexOf(f Fix) int {
	for i, af := range a.Fixes {
		if af.Same(f) {
			return i
		}
	}
	return -1
}

// Contains reports whether f is on the airway.
func (a Airway) Contains(f Fix) bool {
	return a.IndexOf(f) != -1
}

// FixesBetween returns the fixes flown from 'from' (exclusive) to 'to'
// (inclusive), walking the airway backwards when to precedes from.
func (a Airway) FixesBetween(from, to Fix) ([]Fix, error) {
	start, end := a.IndexOf(from), a.IndexOf(to)
	if start == -1 {
		return nil, fmt.Errorf("%w: %s not on %s", ErrFixNotOnAirway, from.Ident, a.Ident)
	}
	if end == -1 {
		return nil, fmt.Errorf("%w: %s not on %s", ErrFixNotOnAirway, to.Ident, a.Ident)
	}

	var fixes []Fix
	if start <= end {
		for i := start + 1; i <= end; i++ {
			fixes = append(fixes, a.Fixes[i])
		}
	} else {
		for i := start - 1; i >= end; i-- {
			fixes = append(fixes, a.Fixes[i])
		}
	}
	return fixes, nil
}

// First returns the airway's first published fix.
func (a Airway) First() (Fix, bool) {
	if len(a.Fixes) == 0 {
		return Fix{}, false
	}
	return a.Fixes[0], true
}

// Last returns the airway's final published fix.
func (a Airway) Last() (Fix, bool) {
	if len(a.Fixes) == 0 {
		return Fix{}, false
	}
	return a.Fixes[len(a.Fixes)-1], true
}

type ProcedureKind string

const (
	Departure ProcedureKind = "departure"
	Arrival   ProcedureKind = "arrival"
)

// Transition is a named enroute (or runway) transition of a procedure.
type Transition struct {
	Ident string `json:"ident" msgpack:"ident"`
	Legs  []Fix  `json:"legs" msgpack:"legs"`
}

// Procedure is a SID or STAR. Runways lists the runways it serves; an
// empty list means all runways.
type Procedure struct {
	ID                 uint             `json:"id,omitempty" msgpack:"id"`
	Ident              string           `json:"ident" msgpack:"ident"`
	Airport            string           `json:"airport" msgpack:"airport"`
	Kind               ProcedureKind    `json:"kind" msgpack:"kind"`
	Runways            []string         `json:"runways,omitempty" msgpack:"runways"`
	RunwayTransitions  map[string][]Fix `json:"runway_transitions,omitempty" msgpack:"runway_transitions"`
	Legs               []Fix            `json:"legs" msgpack:"legs"`
	EnrouteTransitions []Transition     `json:"enroute_transitions,omitempty" msgpack:"enroute_transitions"`
}

// ServesRunway reports whether the procedure may be flown from/to runway.
func (p Procedure) ServesRunway(runway string) bool {
	if runway == "" || len(p.Runways) == 0 {
		return true
	}
	for _, r := range p.Runways {
		if r == runway {
			return true
		}
	}
	return false
}

// Database is the lookup surface of the navigation database. Empty results
// are a normal outcome and are not reported as errors.
type Database interface {
	SearchFixes(ctx context.Context, ident string) ([]Fix, error)
	SearchAirways(ctx context.Context, ident string, through Fix) ([]Airway, error)
	SearchDepartures(ctx context.Context, airport, runway string) ([]Procedure, error)
	SearchArrivals(ctx context.Context, airport string) ([]Procedure, error)
}
