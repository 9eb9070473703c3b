package repositories

import (
	"context"
	"strings"

	"infinite-experiment/fmsuplink/internal/models/gorm"

	gormlib "gorm.io/gorm"
)

// FixRepository handles nav_fixes table operations
type FixRepository struct {
	db *gormlib.DB
}

// NewFixRepository creates a new fix repository
func NewFixRepository(db *gormlib.DB) *FixRepository {
	return &FixRepository{db: db}
}

// FindByIdent returns every fix sharing the identifier (case-insensitive),
// in insertion order
func (r *FixRepository) FindByIdent(ctx context.Context, ident string) ([]gorm.NavFix, error) {
	var fixes []gorm.NavFix

	err := r.db.WithContext(ctx).
		Where("ident = ?", strings.ToUpper(strings.TrimSpace(ident))).
		Order("id").
		Find(&fixes).Error

	if err != nil {
		return nil, err
	}
	return fixes, nil
}

// FindOne finds a fix by identifier and region
func (r *FixRepository) FindOne(ctx context.Context, ident, region string) (*gorm.NavFix, error) {
	var fix gorm.NavFix

	err := r.db.WithContext(ctx).
		Where("ident = ? AND region = ?", strings.ToUpper(ident), strings.ToUpper(region)).
		First(&fix).Error

	if err != nil {
		if err == gormlib.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}

	return &fix, nil
}

// BatchInsert inserts multiple fixes and fills in their IDs
func (r *FixRepository) BatchInsert(ctx context.Context, fixes []gorm.NavFix) error {
	if len(fixes) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		CreateInBatches(&fixes, 500).Error
}

// DeleteAll deletes all fixes (useful for re-importing)
func (r *FixRepository) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Where("1 = 1").
		Delete(&gorm.NavFix{}).Error
}

// Count returns total number of fixes
func (r *FixRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&gorm.NavFix{}).Count(&count).Error
	return count, err
}
