// Package flightplan holds the route being built by an uplink: an ordered
// set of segments whose legs form one linear sequence, with discontinuity
// markers where consecutive legs are not connected.
package flightplan

import (
	"errors"
	"fmt"
	"strings"

	"infinite-experiment/fmsuplink/internal/geo"
	"infinite-experiment/fmsuplink/internal/navdata"
)

var (
	ErrIndexOutOfRange  = errors.New("flight plan index out of range")
	ErrWrongProcedure   = errors.New("procedure kind does not match segment")
	ErrNoDeparture      = errors.New("no departure procedure attached")
	ErrNoPendingAnchor  = errors.New("pending airways have no entry fix")
	ErrEmptyPendingPlan = errors.New("pending airways hold no airway")
)

type SegmentKind int

const (
	Origin SegmentKind = iota
	DepartureRunwayTransition
	Departure
	DepartureEnrouteTransition
	Enroute
	ArrivalEnrouteTransition
	Arrival
	Destination
	numSegments
)

func (s SegmentKind) String() string {
	switch s {
	case Origin:
		return "origin"
	case DepartureRunwayTransition:
		return "departureRunwayTransition"
	case Departure:
		return "departure"
	case DepartureEnrouteTransition:
		return "departureEnrouteTransition"
	case Enroute:
		return "enroute"
	case ArrivalEnrouteTransition:
		return "arrivalEnrouteTransition"
	case Arrival:
		return "arrival"
	case Destination:
		return "destination"
	default:
		return "unknown"
	}
}

// Leg terminates at a fix. Via names the airway the leg is flown along, if
// any.
type Leg struct {
	Ident    string      `json:"ident" msgpack:"ident"`
	Region   string      `json:"region,omitempty" msgpack:"region"`
	Location geo.LatLong `json:"location" msgpack:"location"`
	Via      string      `json:"via,omitempty" msgpack:"via"`
}

// LegFromFix builds a leg terminating at f.
func LegFromFix(f navdata.Fix, via string) Leg {
	return Leg{Ident: f.Ident, Region: f.Region, Location: f.Location, Via: via}
}

// CoordinateLeg builds a leg ending at a bare coordinate, named in the
// N50E008 style.
func CoordinateLeg(ll geo.LatLong) Leg {
	ns, ew := "N", "E"
	lat, long := ll.Lat, ll.Long
	if lat < 0 {
		ns, lat = "S", -lat
	}
	if long < 0 {
		ew, long = "W", -long
	}
	return Leg{
		Ident:    fmt.Sprintf("%s%02d%s%03d", ns, int(lat), ew, int(long)),
		Location: ll,
	}
}

// Fix returns the termination fix of the leg.
func (l Leg) Fix() navdata.Fix {
	return navdata.Fix{Ident: l.Ident, Region: l.Region, Location: l.Location}
}

// Element is either a leg or a discontinuity.
type Element struct {
	Discontinuity bool        `json:"discontinuity,omitempty" msgpack:"discontinuity"`
	Leg           Leg         `json:"leg" msgpack:"leg"`
	Segment       SegmentKind `json:"segment" msgpack:"segment"`
}

func discontinuity() Element {
	return Element{Discontinuity: true}
}

func legElement(l Leg) Element {
	return Element{Leg: l}
}

// FlightPlan is not safe for concurrent mutation. An uplink run borrows it
// exclusively.
type FlightPlan struct {
	OriginIdent       string
	OriginRunway      string
	DestinationIdent  string
	DestinationRunway string
	Alternate         string

	TransitionAltitude *int
	TransitionLevel    *int
	CostIndex          *int
	CruiseLevel        *int
	Tropopause         *int
	Callsign           string

	departure           *navdata.Procedure
	departureTransition *navdata.Transition
	arrival             *navdata.Procedure

	segments [numSegments][]Element
}

// New creates an unconnected route: origin, a discontinuity, destination.
func New(origin navdata.Fix, originRunway string, destination navdata.Fix, destinationRunway, alternate string) *FlightPlan {
	fp := &FlightPlan{
		OriginIdent:       origin.Ident,
		OriginRunway:      originRunway,
		DestinationIdent:  destination.Ident,
		DestinationRunway: destinationRunway,
		Alternate:         alternate,
	}
	fp.segments[Origin] = []Element{legElement(LegFromFix(origin, ""))}
	fp.segments[Enroute] = []Element{discontinuity()}
	fp.segments[Destination] = []Element{legElement(LegFromFix(destination, ""))}
	return fp
}

// SegmentLegCount returns the number of elements, discontinuities included,
// in the segment.
func (fp *FlightPlan) SegmentLegCount(seg SegmentKind) int {
	if seg < 0 || seg >= numSegments {
		return 0
	}
	return len(fp.segments[seg])
}

// Len returns the total number of elements across all segments.
func (fp *FlightPlan) Len() int {
	n := 0
	for _, s := range fp.segments {
		n += len(s)
	}
	return n
}

func (fp *FlightPlan) locate(index int) (SegmentKind, int, bool) {
	if index < 0 {
		return 0, 0, false
	}
	for seg := Origin; seg < numSegments; seg++ {
		if index < len(fp.segments[seg]) {
			return seg, index, true
		}
		index -= len(fp.segments[seg])
	}
	return 0, 0, false
}

// ElementAt returns the element at a linear index.
func (fp *FlightPlan) ElementAt(index int) (Element, bool) {
	seg, local, ok := fp.locate(index)
	if !ok {
		return Element{}, false
	}
	e := fp.segments[seg][local]
	e.Segment = seg
	return e, true
}

// Elements returns the linear element sequence.
func (fp *FlightPlan) Elements() []Element {
	var elements []Element
	for seg := Origin; seg < numSegments; seg++ {
		for _, e := range fp.segments[seg] {
			e.Segment = seg
			elements = append(elements, e)
		}
	}
	return elements
}

// InsertWaypointAfter inserts leg into the enroute segment following the
// element at index. An index before the enroute segment inserts at its
// start and an index after it appends to its end. Index -1 is accepted for
// an empty origin.
func (fp *FlightPlan) InsertWaypointAfter(index int, leg Leg) error {
	if index < -1 || index >= fp.Len() {
		return fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, index, fp.Len())
	}

	enroute := fp.segments[Enroute]
	pos := 0
	if seg, local, ok := fp.locate(index); ok {
		switch {
		case seg == Enroute:
			pos = local + 1
		case seg > Enroute:
			pos = len(enroute)
		}
	}

	enroute = append(enroute, Element{})
	copy(enroute[pos+1:], enroute[pos:])
	enroute[pos] = legElement(leg)
	fp.segments[Enroute] = enroute
	return nil
}

// connectEnroute drops a leading enroute discontinuity once a departure
// connects the origin to the enroute segment.
func (fp *FlightPlan) connectEnroute() {
	if e := fp.segments[Enroute]; len(e) > 0 && e[0].Discontinuity {
		fp.segments[Enroute] = e[1:]
	}
}

func fixLegs(fixes []navdata.Fix, via string) []Element {
	elements := make([]Element, 0, len(fixes))
	for _, f := range fixes {
		elements = append(elements, legElement(LegFromFix(f, via)))
	}
	return elements
}

// SetDepartureProcedure attaches a departure and its runway transition for
// runway, replacing any previous departure and enroute transition.
func (fp *FlightPlan) SetDepartureProcedure(p navdata.Procedure, runway string) error {
	if p.Kind != navdata.Departure {
		return fmt.Errorf("%w: %s is a %s", ErrWrongProcedure, p.Ident, p.Kind)
	}
	fp.departure = &p
	fp.departureTransition = nil
	fp.segments[DepartureRunwayTransition] = fixLegs(p.RunwayTransitions[runway], p.Ident)
	fp.segments[Departure] = fixLegs(p.Legs, p.Ident)
	fp.segments[DepartureEnrouteTransition] = nil
	fp.connectEnroute()
	return nil
}

// DepartureProcedure returns the attached departure, if any.
func (fp *FlightPlan) DepartureProcedure() (navdata.Procedure, bool) {
	if fp.departure == nil {
		return navdata.Procedure{}, false
	}
	return *fp.departure, true
}

// SetDepartureEnrouteTransition attaches an enroute transition of the
// current departure.
func (fp *FlightPlan) SetDepartureEnrouteTransition(t navdata.Transition) error {
	if fp.departure == nil {
		return ErrNoDeparture
	}
	fp.departureTransition = &t
	fp.segments[DepartureEnrouteTransition] = fixLegs(t.Legs, fp.departure.Ident)
	fp.connectEnroute()
	return nil
}

// SetArrivalProcedure attaches an arrival. The enroute segment is closed
// with a discontinuity since its end is not known to meet the arrival.
func (fp *FlightPlan) SetArrivalProcedure(p navdata.Procedure) error {
	if p.Kind != navdata.Arrival {
		return fmt.Errorf("%w: %s is a %s", ErrWrongProcedure, p.Ident, p.Kind)
	}
	fp.arrival = &p
	fp.segments[Arrival] = fixLegs(p.Legs, p.Ident)
	if e := fp.segments[Enroute]; len(e) > 0 && !e[len(e)-1].Discontinuity {
		fp.segments[Enroute] = append(e, discontinuity())
	}
	return nil
}

// ArrivalProcedure returns the attached arrival, if any.
func (fp *FlightPlan) ArrivalProcedure() (navdata.Procedure, bool) {
	if fp.arrival == nil {
		return navdata.Procedure{}, false
	}
	return *fp.arrival, true
}

// FinalizeAirways expands the pending airways between their entry and exit
// fixes and inserts the resulting legs after the pending anchor index.
func (fp *FlightPlan) FinalizeAirways(p *PendingAirways) error {
	if p == nil || len(p.entries) == 0 {
		return ErrEmptyPendingPlan
	}
	if p.anchor == nil {
		return ErrNoPendingAnchor
	}

	var legs []Leg
	from := *p.anchor
	for _, e := range p.entries {
		to, ok := e.exit()
		if !ok {
			return fmt.Errorf("%w: %s", ErrEmptyPendingPlan, e.airway.Ident)
		}
		fixes, err := e.airway.FixesBetween(from, to)
		if err != nil {
			return err
		}
		for _, f := range fixes {
			legs = append(legs, LegFromFix(f, e.airway.Ident))
		}
		from = to
	}

	for i, leg := range legs {
		if err := fp.InsertWaypointAfter(p.AnchorIndex+i, leg); err != nil {
			return err
		}
	}
	return nil
}

func (fp *FlightPlan) String() string {
	var b strings.Builder
	for i, e := range fp.Elements() {
		if e.Discontinuity {
			fmt.Fprintf(&b, "%3d %-26s ---- DISCONTINUITY ----\n", i, e.Segment)
			continue
		}
		fmt.Fprintf(&b, "%3d %-26s %-7s %-8s %s\n", i, e.Segment, e.Leg.Ident, e.Leg.Via, e.Leg.Location)
	}
	return b.String()
}
