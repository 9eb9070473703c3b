package repositories

import (
	"context"
	"strings"

	"infinite-experiment/fmsuplink/internal/models/gorm"

	gormlib "gorm.io/gorm"
)

// AirwayRepository handles nav_airways and nav_airway_fixes operations
type AirwayRepository struct {
	db *gormlib.DB
}

// NewAirwayRepository creates a new airway repository
func NewAirwayRepository(db *gormlib.DB) *AirwayRepository {
	return &AirwayRepository{db: db}
}

func orderedAirwayFixes(db *gormlib.DB) *gormlib.DB {
	return db.Order("seq")
}

// FindThroughFix returns the airways named ident that pass through the fix
// identified by fixIdent and region, with their fixes in published order
func (r *AirwayRepository) FindThroughFix(ctx context.Context, ident, fixIdent, region string) ([]gorm.NavAirway, error) {
	db := r.db.WithContext(ctx)

	through := db.Model(&gorm.NavAirwayFix{}).
		Select("nav_airway_fixes.airway_id").
		Joins("JOIN nav_fixes ON nav_fixes.id = nav_airway_fixes.fix_id").
		Where("nav_fixes.ident = ? AND nav_fixes.region = ?", strings.ToUpper(fixIdent), strings.ToUpper(region))

	var airways []gorm.NavAirway
	err := db.
		Where("ident = ? AND id IN (?)", strings.ToUpper(strings.TrimSpace(ident)), through).
		Preload("Fixes", orderedAirwayFixes).
		Preload("Fixes.Fix").
		Order("id").
		Find(&airways).Error

	if err != nil {
		return nil, err
	}
	return airways, nil
}

// BatchInsert inserts airways and then their fix rows. Each airway fix must
// carry the FixID of an existing fix.
func (r *AirwayRepository) BatchInsert(ctx context.Context, airways []gorm.NavAirway) error {
	if len(airways) == 0 {
		return nil
	}
	db := r.db.WithContext(ctx)

	rows := make([][]gorm.NavAirwayFix, len(airways))
	for i := range airways {
		rows[i], airways[i].Fixes = airways[i].Fixes, nil
	}

	if err := db.CreateInBatches(&airways, 500).Error; err != nil {
		return err
	}

	var fixes []gorm.NavAirwayFix
	for i := range airways {
		for seq, f := range rows[i] {
			f.AirwayID = airways[i].ID
			f.Seq = seq
			fixes = append(fixes, f)
		}
		airways[i].Fixes = rows[i]
	}
	if len(fixes) == 0 {
		return nil
	}
	return db.Omit("Fix").CreateInBatches(&fixes, 500).Error
}

// DeleteAll deletes all airways and airway fixes
func (r *AirwayRepository) DeleteAll(ctx context.Context) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("1 = 1").Delete(&gorm.NavAirwayFix{}).Error; err != nil {
		return err
	}
	return db.Where("1 = 1").Delete(&gorm.NavAirway{}).Error
}

// Count returns total number of airways
func (r *AirwayRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&gorm.NavAirway{}).Count(&count).Error
	return count, err
}
