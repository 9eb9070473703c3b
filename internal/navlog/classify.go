// Package navlog turns an OFP navigation log into route instructions.
//
// The navigation log is a flat per-fix list with no explicit segment
// boundaries. Consecutive fixes sharing a via-identifier are taken to be on
// the same procedure or airway, so segment changes are inferred from the
// via-identifier of neighbouring fixes. Direct-to tokens and oceanic track
// codes force direct routing.
package navlog

import (
	"regexp"

	"infinite-experiment/fmsuplink/internal/models/dtos"
)

var (
	directMarkers = map[string]bool{
		"DCT":    true,
		"DIRECT": true,
	}

	// NAT track letters, e.g. NATA
	reOceanicTrack = regexp.MustCompile(`^NAT[A-Z]$`)
)

// IsDirect reports whether via forces a direct-routed fix.
func IsDirect(via string) bool {
	return directMarkers[via] || reOceanicTrack.MatchString(via)
}

// Classify maps the navigation log to an ordered chunk sequence. Airport
// fixes and TOC/TOD markers contribute nothing and are transparent: the
// neighbours of a fix are the nearest fixes that are not markers.
func Classify(fixes []dtos.NavlogFix) []Chunk {
	route := routeFixes(fixes)

	var c classifier
	for i := range route {
		var next *dtos.NavlogFix
		if i+1 < len(route) {
			next = &route[i+1]
		}
		c.step(route[i], next)
	}
	return c.out
}

func routeFixes(fixes []dtos.NavlogFix) []dtos.NavlogFix {
	route := make([]dtos.NavlogFix, 0, len(fixes))
	for _, f := range fixes {
		if f.IsAirport() || f.IsClimbDescentMarker() {
			continue
		}
		route = append(route, f)
	}
	return route
}

// classifier is the fold state: the output so far, the last emitted chunk
// and the previously considered fix.
type classifier struct {
	out  []Chunk
	last Chunk
	prev *dtos.NavlogFix
}

func (c *classifier) emit(ch Chunk) {
	c.out = append(c.out, ch)
	c.last = ch
}

func (c *classifier) lastIsProcedure(ident string) bool {
	p, ok := c.last.(Procedure)
	return ok && p.Ident == ident
}

func (c *classifier) lastIsAirway(ident string) bool {
	a, ok := c.last.(Airway)
	return ok && a.Ident == ident
}

func (c *classifier) step(fix dtos.NavlogFix, next *dtos.NavlogFix) {
	via := fix.ViaAirway

	switch {
	case fix.IsSidStar():
		// a procedure collapses to one chunk however many fixes it spans
		if !c.lastIsProcedure(via) {
			c.emit(Procedure{Ident: via})
		}

	case c.lastIsProcedure(via):
		c.emit(SidEnrouteTransition{Ident: fix.Ident, Location: fix.Location()})

	case IsDirect(via) || c.last == nil:
		// The first fix is always direct so that a procedure whose only
		// reachable fix is its exit point is still captured.
		if fix.IsLatLong() {
			ll := fix.Location()
			c.emit(LatLong{Lat: ll.Lat, Long: ll.Long})
		} else {
			c.emit(Waypoint{Ident: fix.Ident, Location: fix.Location()})
		}

	case !c.lastIsAirway(via):
		if _, onAirway := c.last.(Airway); onAirway && c.prev != nil && via != c.prev.ViaAirway {
			c.emit(AirwayTermination{Ident: c.prev.Ident})
		}
		c.emit(Airway{Ident: via, Location: fix.Location()})
	}

	if _, onAirway := c.last.(Airway); onAirway && (next == nil || next.ViaAirway != via) {
		c.emit(AirwayTermination{Ident: fix.Ident})
	}

	c.prev = &fix
}
