package flightplan

import "infinite-experiment/fmsuplink/internal/navdata"

type pendingEntry struct {
	airway navdata.Airway
	to     *navdata.Fix
}

// exit is the fix the entry leaves its airway at: the explicit termination
// if one was given, otherwise the airway's last fix.
func (e pendingEntry) exit() (navdata.Fix, bool) {
	if e.to != nil {
		return *e.to, true
	}
	return e.airway.Last()
}

// PendingAirways accumulates airway entries before they are committed to a
// flight plan with FinalizeAirways. The anchor is the fix the first airway
// is joined at and AnchorIndex the linear index of the leg ending there.
type PendingAirways struct {
	AnchorIndex int

	anchor  *navdata.Fix
	entries []pendingEntry
}

// NewPendingAirways starts an accumulator at index. anchor may be nil when
// the element at index does not end at a fix.
func NewPendingAirways(index int, anchor *navdata.Fix) *PendingAirways {
	return &PendingAirways{AnchorIndex: index, anchor: anchor}
}

// AppendAirway adds an airway joined at the current last fix.
func (p *PendingAirways) AppendAirway(a navdata.Airway) {
	p.entries = append(p.entries, pendingEntry{airway: a})
}

// AppendTermination sets the exit fix of the most recently appended airway.
func (p *PendingAirways) AppendTermination(f navdata.Fix) error {
	if len(p.entries) == 0 {
		return ErrEmptyPendingPlan
	}
	p.entries[len(p.entries)-1].to = &f
	return nil
}

// LastAirway returns the most recently appended airway.
func (p *PendingAirways) LastAirway() (navdata.Airway, bool) {
	if len(p.entries) == 0 {
		return navdata.Airway{}, false
	}
	return p.entries[len(p.entries)-1].airway, true
}

// LastFix is the fix the next airway would be joined at.
func (p *PendingAirways) LastFix() (navdata.Fix, bool) {
	if len(p.entries) == 0 {
		if p.anchor == nil {
			return navdata.Fix{}, false
		}
		return *p.anchor, true
	}
	return p.entries[len(p.entries)-1].exit()
}

// Len returns the number of pending airway entries.
func (p *PendingAirways) Len() int {
	return len(p.entries)
}
