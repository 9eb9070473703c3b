package repositories

import (
	"context"
	"strings"

	"infinite-experiment/fmsuplink/internal/models/gorm"

	gormlib "gorm.io/gorm"
)

// ProcedureRepository handles nav_procedures and nav_procedure_legs operations
type ProcedureRepository struct {
	db *gormlib.DB
}

// NewProcedureRepository creates a new procedure repository
func NewProcedureRepository(db *gormlib.DB) *ProcedureRepository {
	return &ProcedureRepository{db: db}
}

func orderedLegs(db *gormlib.DB) *gormlib.DB {
	return db.Order("section").Order("transition").Order("seq")
}

// FindByAirport returns the procedures of kind at airport with their legs
func (r *ProcedureRepository) FindByAirport(ctx context.Context, airport, kind string) ([]gorm.NavProcedure, error) {
	var procs []gorm.NavProcedure

	err := r.db.WithContext(ctx).
		Where("airport = ? AND kind = ?", strings.ToUpper(strings.TrimSpace(airport)), kind).
		Preload("Legs", orderedLegs).
		Preload("Legs.Fix").
		Order("id").
		Find(&procs).Error

	if err != nil {
		return nil, err
	}
	return procs, nil
}

// BatchInsert inserts procedures and then their legs. Legs must carry the
// FixID of an existing fix and keep their Seq.
func (r *ProcedureRepository) BatchInsert(ctx context.Context, procs []gorm.NavProcedure) error {
	if len(procs) == 0 {
		return nil
	}
	db := r.db.WithContext(ctx)

	rows := make([][]gorm.NavProcedureLeg, len(procs))
	for i := range procs {
		rows[i], procs[i].Legs = procs[i].Legs, nil
	}

	if err := db.CreateInBatches(&procs, 500).Error; err != nil {
		return err
	}

	var legs []gorm.NavProcedureLeg
	for i := range procs {
		for _, l := range rows[i] {
			l.ProcedureID = procs[i].ID
			legs = append(legs, l)
		}
		procs[i].Legs = rows[i]
	}
	if len(legs) == 0 {
		return nil
	}
	return db.Omit("Fix").CreateInBatches(&legs, 500).Error
}

// DeleteAll deletes all procedures and legs
func (r *ProcedureRepository) DeleteAll(ctx context.Context) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("1 = 1").Delete(&gorm.NavProcedureLeg{}).Error; err != nil {
		return err
	}
	return db.Where("1 = 1").Delete(&gorm.NavProcedure{}).Error
}

// Count returns total number of procedures
func (r *ProcedureRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&gorm.NavProcedure{}).Count(&count).Error
	return count, err
}
