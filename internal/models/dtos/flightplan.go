package dtos

import (
	"strings"

	"infinite-experiment/fmsuplink/internal/geo"
)

// -------- fix type tags ----------------------------------------------------

const (
	FixTypeAirport = "apt"
	FixTypeLatLong = "ltlg"
)

// -------- main DTOs --------------------------------------------------------

// OFPDocument is the operational flight plan as served by the OFP JSON feed.
// Only the fields the uplink needs are mapped.
type OFPDocument struct {
	Fetch       OFPFetch   `json:"fetch" msgpack:"fetch"`
	Params      OFPParams  `json:"params" msgpack:"params"`
	General     OFPGeneral `json:"general" msgpack:"general"`
	Origin      OFPAirport `json:"origin" msgpack:"origin"`
	Destination OFPAirport `json:"destination" msgpack:"destination"`
	Alternate   OFPAirport `json:"alternate" msgpack:"alternate"`
	ATC         OFPATC     `json:"atc" msgpack:"atc"`
	Navlog      OFPNavlog  `json:"navlog" msgpack:"navlog"`
}

type OFPFetch struct {
	UserID string `json:"userid" msgpack:"userid"`
	Status string `json:"status" msgpack:"status"`
}

type OFPParams struct {
	RequestID string `json:"request_id" msgpack:"request_id"`
	UserID    string `json:"user_id" msgpack:"user_id"`
	TimeGen   string `json:"time_generated" msgpack:"time_generated"`
	AIRAC     string `json:"airac" msgpack:"airac"`
}

type OFPGeneral struct {
	ICAOAirline     string `json:"icao_airline" msgpack:"icao_airline"`
	FlightNumber    string `json:"flight_number" msgpack:"flight_number"`
	CostIndex       string `json:"costindex" msgpack:"costindex"`
	InitialAltitude string `json:"initial_altitude" msgpack:"initial_altitude"`
	AvgTropopause   string `json:"avg_tropopause" msgpack:"avg_tropopause"`
	Route           string `json:"route" msgpack:"route"`
}

type OFPAirport struct {
	ICAOCode   string `json:"icao_code" msgpack:"icao_code"`
	ICAORegion string `json:"icao_region" msgpack:"icao_region"`
	PlanRunway string `json:"plan_rwy" msgpack:"plan_rwy"`
	TransAlt   string `json:"trans_alt" msgpack:"trans_alt"`
	TransLevel string `json:"trans_level" msgpack:"trans_level"`
	PosLat     string `json:"pos_lat" msgpack:"pos_lat"`
	PosLong    string `json:"pos_long" msgpack:"pos_long"`
}

func (a OFPAirport) Location() geo.LatLong {
	return geo.ParseLatLong(a.PosLat, a.PosLong)
}

type OFPATC struct {
	Callsign string `json:"callsign" msgpack:"callsign"`
}

type OFPNavlog struct {
	Fixes []NavlogFix `json:"fix" msgpack:"fix"`
}

// NavlogFix is one raw fix record of the navigation log.
type NavlogFix struct {
	Ident      string `json:"ident" msgpack:"ident"`
	Name       string `json:"name" msgpack:"name"`
	Type       string `json:"type" msgpack:"type"`
	ICAORegion string `json:"icao_region" msgpack:"icao_region"`
	PosLat     string `json:"pos_lat" msgpack:"pos_lat"`
	PosLong    string `json:"pos_long" msgpack:"pos_long"`
	ViaAirway  string `json:"via_airway" msgpack:"via_airway"`
	SidStar    string `json:"is_sid_star" msgpack:"is_sid_star"`
}

func (f NavlogFix) IsAirport() bool {
	return f.Type == FixTypeAirport
}

func (f NavlogFix) IsLatLong() bool {
	return f.Type == FixTypeLatLong
}

func (f NavlogFix) IsSidStar() bool {
	return f.SidStar == "1"
}

// IsClimbDescentMarker reports top-of-climb / top-of-descent pseudo fixes.
func (f NavlogFix) IsClimbDescentMarker() bool {
	ident := strings.ToUpper(f.Ident)
	return ident == "TOC" || ident == "TOD"
}

func (f NavlogFix) Location() geo.LatLong {
	return geo.ParseLatLong(f.PosLat, f.PosLong)
}
