package navdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/sync/errgroup"
	gormlib "gorm.io/gorm"

	"infinite-experiment/fmsuplink/internal/db/repositories"
	"infinite-experiment/fmsuplink/internal/logging"
	"infinite-experiment/fmsuplink/internal/models/gorm"
)

// Dataset file names inside an import directory. Each may also be present
// zstd compressed with a .zst suffix.
const (
	FixesFile      = "fixes.json"
	AirwaysFile    = "airways.json"
	ProceduresFile = "procedures.json"
)

// RawFix is a fix in the import files. Airways and procedures reference
// fixes with the same shape; referenced fixes missing from the fixes file
// are added.
type RawFix struct {
	Ident  string  `json:"ident"`
	Region string  `json:"region"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
}

type RawAirway struct {
	Ident string   `json:"ident"`
	Fixes []RawFix `json:"fixes"`
}

type RawTransition struct {
	Ident string   `json:"ident"`
	Legs  []RawFix `json:"legs"`
}

type RawProcedure struct {
	Ident              string              `json:"ident"`
	Airport            string              `json:"airport"`
	Kind               string              `json:"kind"`
	Runways            []string            `json:"runways"`
	RunwayTransitions  map[string][]RawFix `json:"runway_transitions"`
	Legs               []RawFix            `json:"legs"`
	EnrouteTransitions []RawTransition     `json:"enroute_transitions"`
}

// ImportStats reports the number of rows written per table.
type ImportStats struct {
	Fixes      int `json:"fixes"`
	Airways    int `json:"airways"`
	Procedures int `json:"procedures"`
}

// Importer replaces the nav data tables with the contents of a directory.
type Importer struct {
	db *gormlib.DB
}

func NewImporter(db *gormlib.DB) *Importer {
	return &Importer{db: db}
}

// Migrate creates or updates the nav data tables.
func (im *Importer) Migrate(ctx context.Context) error {
	return im.db.WithContext(ctx).AutoMigrate(gorm.NavModels()...)
}

// ImportDir parses the dataset files of dir concurrently and replaces the
// nav data in one transaction. A missing airways or procedures file is
// treated as empty; the fixes file is required.
func (im *Importer) ImportDir(ctx context.Context, dir string) (ImportStats, error) {
	var (
		fixes      []RawFix
		airways    []RawAirway
		procedures []RawProcedure
	)

	var eg errgroup.Group
	eg.Go(func() error { return decodeDataset(dir, FixesFile, true, &fixes) })
	eg.Go(func() error { return decodeDataset(dir, AirwaysFile, false, &airways) })
	eg.Go(func() error { return decodeDataset(dir, ProceduresFile, false, &procedures) })
	if err := eg.Wait(); err != nil {
		return ImportStats{}, err
	}

	logging.Info("Parsed nav data",
		"dir", dir,
		"fixes", len(fixes),
		"airways", len(airways),
		"procedures", len(procedures),
	)
	return im.Import(ctx, fixes, airways, procedures)
}

// Import replaces the nav data tables with the given records.
func (im *Importer) Import(ctx context.Context, fixes []RawFix, airways []RawAirway, procedures []RawProcedure) (ImportStats, error) {
	var stats ImportStats

	err := im.db.WithContext(ctx).Transaction(func(tx *gormlib.DB) error {
		fixRepo := repositories.NewFixRepository(tx)
		airwayRepo := repositories.NewAirwayRepository(tx)
		procRepo := repositories.NewProcedureRepository(tx)

		if err := procRepo.DeleteAll(ctx); err != nil {
			return fmt.Errorf("failed to delete existing procedures: %w", err)
		}
		if err := airwayRepo.DeleteAll(ctx); err != nil {
			return fmt.Errorf("failed to delete existing airways: %w", err)
		}
		if err := fixRepo.DeleteAll(ctx); err != nil {
			return fmt.Errorf("failed to delete existing fixes: %w", err)
		}

		ids, err := insertFixes(ctx, fixRepo, fixes, airways, procedures)
		if err != nil {
			return err
		}
		stats.Fixes = len(ids)

		airwayRows := make([]gorm.NavAirway, 0, len(airways))
		for _, a := range airways {
			if a.Ident == "" || len(a.Fixes) < 2 {
				continue
			}
			row := gorm.NavAirway{Ident: normalize(a.Ident)}
			for _, f := range a.Fixes {
				if id, ok := ids[fixKey(f)]; ok {
					row.Fixes = append(row.Fixes, gorm.NavAirwayFix{FixID: id})
				}
			}
			airwayRows = append(airwayRows, row)
		}
		if err := airwayRepo.BatchInsert(ctx, airwayRows); err != nil {
			return fmt.Errorf("failed to insert airways: %w", err)
		}
		stats.Airways = len(airwayRows)

		procRows := make([]gorm.NavProcedure, 0, len(procedures))
		for _, p := range procedures {
			row, ok := procedureRow(p, ids)
			if !ok {
				continue
			}
			procRows = append(procRows, row)
		}
		if err := procRepo.BatchInsert(ctx, procRows); err != nil {
			return fmt.Errorf("failed to insert procedures: %w", err)
		}
		stats.Procedures = len(procRows)
		return nil
	})
	if err != nil {
		return ImportStats{}, err
	}

	logging.Info("Imported nav data", "fixes", stats.Fixes, "airways", stats.Airways, "procedures", stats.Procedures)
	return stats, nil
}

func normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func fixKey(f RawFix) string {
	return normalize(f.Ident) + "|" + normalize(f.Region)
}

// insertFixes writes the union of all fixes, first occurrence wins, and
// returns their IDs by ident and region.
func insertFixes(ctx context.Context, repo *repositories.FixRepository, fixes []RawFix, airways []RawAirway, procedures []RawProcedure) (map[string]uint, error) {
	seen := map[string]bool{}
	var rows []gorm.NavFix
	add := func(f RawFix) {
		key := fixKey(f)
		if normalize(f.Ident) == "" || seen[key] {
			return
		}
		seen[key] = true
		rows = append(rows, gorm.NavFix{
			Ident:     normalize(f.Ident),
			Region:    normalize(f.Region),
			Latitude:  f.Lat,
			Longitude: f.Lon,
		})
	}

	for _, f := range fixes {
		add(f)
	}
	for _, a := range airways {
		for _, f := range a.Fixes {
			add(f)
		}
	}
	for _, p := range procedures {
		for _, legs := range p.RunwayTransitions {
			for _, f := range legs {
				add(f)
			}
		}
		for _, f := range p.Legs {
			add(f)
		}
		for _, t := range p.EnrouteTransitions {
			for _, f := range t.Legs {
				add(f)
			}
		}
	}

	if len(rows) == 0 {
		return nil, errors.New("no valid fixes found after parsing")
	}
	if err := repo.BatchInsert(ctx, rows); err != nil {
		return nil, fmt.Errorf("failed to insert fixes: %w", err)
	}

	ids := make(map[string]uint, len(rows))
	for _, r := range rows {
		ids[r.Ident+"|"+r.Region] = r.ID
	}
	return ids, nil
}

func procedureRow(p RawProcedure, ids map[string]uint) (gorm.NavProcedure, bool) {
	kind := ProcedureKind(strings.ToLower(strings.TrimSpace(p.Kind)))
	if p.Ident == "" || p.Airport == "" || (kind != Departure && kind != Arrival) {
		return gorm.NavProcedure{}, false
	}

	runways := make([]string, 0, len(p.Runways))
	for _, r := range p.Runways {
		runways = append(runways, normalize(r))
	}
	row := gorm.NavProcedure{
		Ident:   normalize(p.Ident),
		Airport: normalize(p.Airport),
		Kind:    string(kind),
		Runways: strings.Join(runways, ","),
	}

	legs := func(section, transition string, fixes []RawFix) {
		for seq, f := range fixes {
			id, ok := ids[fixKey(f)]
			if !ok {
				continue
			}
			row.Legs = append(row.Legs, gorm.NavProcedureLeg{
				Section:    section,
				Transition: transition,
				Seq:        seq,
				FixID:      id,
			})
		}
	}
	for rwy, fixes := range p.RunwayTransitions {
		legs(gorm.SectionRunwayTransition, normalize(rwy), fixes)
	}
	legs(gorm.SectionCommon, "", p.Legs)
	for _, t := range p.EnrouteTransitions {
		legs(gorm.SectionEnrouteTransition, normalize(t.Ident), t.Legs)
	}
	return row, true
}

// decodeDataset decodes name, or name.zst, from dir into v.
func decodeDataset(dir, name string, required bool, v interface{}) error {
	r, err := openDataset(dir, name)
	if err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer r.Close()

	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return nil
}

type zstdFile struct {
	*zstd.Decoder
	f *os.File
}

func (z zstdFile) Close() error {
	z.Decoder.Close()
	return z.f.Close()
}

func openDataset(dir, name string) (io.ReadCloser, error) {
	path := filepath.Join(dir, name)
	if f, err := os.Open(path); err == nil {
		return f, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	f, err := os.Open(path + ".zst")
	if err != nil {
		return nil, err
	}
	zr, err := zstd.NewReader(f, zstd.WithDecoderConcurrency(0))
	if err != nil {
		f.Close()
		return nil, err
	}
	return zstdFile{Decoder: zr, f: f}, nil
}
