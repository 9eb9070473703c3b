package gorm

import "time"

// NavFix is a named navigational point. Ident alone is not unique; ident
// plus region is.
type NavFix struct {
	ID        uint      `gorm:"column:id;primaryKey;autoIncrement"`
	Ident     string    `gorm:"column:ident;type:varchar(8);not null;index:idx_nav_fixes_ident_region"`
	Region    string    `gorm:"column:region;type:varchar(4);not null;index:idx_nav_fixes_ident_region"`
	Latitude  float64   `gorm:"column:latitude;not null"`
	Longitude float64   `gorm:"column:longitude;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName specifies the table name for GORM
func (NavFix) TableName() string {
	return "nav_fixes"
}

// NavAirway is a named airway. Its fixes are ordered by Seq.
type NavAirway struct {
	ID        uint           `gorm:"column:id;primaryKey;autoIncrement"`
	Ident     string         `gorm:"column:ident;type:varchar(8);not null;index"`
	Fixes     []NavAirwayFix `gorm:"foreignKey:AirwayID"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
}

// TableName specifies the table name for GORM
func (NavAirway) TableName() string {
	return "nav_airways"
}

type NavAirwayFix struct {
	ID       uint   `gorm:"column:id;primaryKey;autoIncrement"`
	AirwayID uint   `gorm:"column:airway_id;not null;index"`
	Seq      int    `gorm:"column:seq;not null"`
	FixID    uint   `gorm:"column:fix_id;not null;index"`
	Fix      NavFix `gorm:"foreignKey:FixID"`
}

// TableName specifies the table name for GORM
func (NavAirwayFix) TableName() string {
	return "nav_airway_fixes"
}

// Procedure leg sections
const (
	SectionRunwayTransition  = "runway"
	SectionCommon            = "common"
	SectionEnrouteTransition = "enroute"
)

// NavProcedure is a SID or STAR. Runways is a comma separated list; empty
// means the procedure serves every runway.
type NavProcedure struct {
	ID        uint              `gorm:"column:id;primaryKey;autoIncrement"`
	Ident     string            `gorm:"column:ident;type:varchar(10);not null"`
	Airport   string            `gorm:"column:airport;type:varchar(4);not null;index:idx_nav_procedures_airport_kind"`
	Kind      string            `gorm:"column:kind;type:varchar(10);not null;index:idx_nav_procedures_airport_kind"`
	Runways   string            `gorm:"column:runways;type:text"`
	Legs      []NavProcedureLeg `gorm:"foreignKey:ProcedureID"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
}

// TableName specifies the table name for GORM
func (NavProcedure) TableName() string {
	return "nav_procedures"
}

// NavProcedureLeg is one fix of a procedure section. Transition names the
// runway or enroute transition the leg belongs to and is empty for the
// common section.
type NavProcedureLeg struct {
	ID          uint   `gorm:"column:id;primaryKey;autoIncrement"`
	ProcedureID uint   `gorm:"column:procedure_id;not null;index"`
	Section     string `gorm:"column:section;type:varchar(10);not null"`
	Transition  string `gorm:"column:transition;type:varchar(10)"`
	Seq         int    `gorm:"column:seq;not null"`
	FixID       uint   `gorm:"column:fix_id;not null"`
	Fix         NavFix `gorm:"foreignKey:FixID"`
}

// TableName specifies the table name for GORM
func (NavProcedureLeg) TableName() string {
	return "nav_procedure_legs"
}

// NavModels lists every nav data table for migration
func NavModels() []interface{} {
	return []interface{}{&NavFix{}, &NavAirway{}, &NavAirwayFix{}, &NavProcedure{}, &NavProcedureLeg{}}
}
