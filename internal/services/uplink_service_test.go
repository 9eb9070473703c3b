package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"infinite-experiment/fmsuplink/internal/common"
	"infinite-experiment/fmsuplink/internal/constants"
	"infinite-experiment/fmsuplink/internal/metrics"
	"infinite-experiment/fmsuplink/internal/models/dtos"
	"infinite-experiment/fmsuplink/internal/models/entities"
	"infinite-experiment/fmsuplink/internal/navdata"
	"infinite-experiment/fmsuplink/internal/providers"
	"infinite-experiment/fmsuplink/internal/uplink"
)

// Mock OFP provider
type mockOFPProvider struct {
	fetchOFPFunc func(ctx context.Context, pilotID string) (*dtos.OFPDocument, error)
	calls        int
}

func (m *mockOFPProvider) FetchOFP(ctx context.Context, pilotID string) (*dtos.OFPDocument, error) {
	m.calls++
	return m.fetchOFPFunc(ctx, pilotID)
}

type recordingHistory struct {
	rows []*entities.UplinkHistory
	err  error
}

func (h *recordingHistory) Insert(ctx context.Context, row *entities.UplinkHistory) error {
	h.rows = append(h.rows, row)
	return h.err
}

// Setup test nav database
func setupTestNavDB(t *testing.T) navdata.Database {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	im := navdata.NewImporter(db)
	if err := im.Migrate(context.Background()); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	_, err = im.Import(context.Background(),
		[]navdata.RawFix{
			{Ident: "TOBAK", Region: "ED", Lat: 49.8, Lon: 8.9},
			{Ident: "KERAX", Region: "ED", Lat: 49.7, Lon: 9.3},
			{Ident: "ANEKI", Region: "ED", Lat: 49.9, Lon: 8.1},
			{Ident: "ANEKI", Region: "LF", Lat: 45.0, Lon: 2.0},
		},
		[]navdata.RawAirway{
			{Ident: "T161", Fixes: []navdata.RawFix{
				{Ident: "ANEKI", Region: "ED"},
				{Ident: "TOBAK", Region: "ED"},
				{Ident: "KERAX", Region: "ED"},
			}},
		},
		[]navdata.RawProcedure{
			{
				Ident: "TOBAK7G", Airport: "EDDF", Kind: "departure", Runways: []string{"25C"},
				RunwayTransitions: map[string][]navdata.RawFix{"25C": {{Ident: "DF251", Region: "ED", Lat: 50.0, Lon: 8.4}}},
				Legs:              []navdata.RawFix{{Ident: "ANEKI", Region: "ED"}, {Ident: "TOBAK", Region: "ED"}},
				EnrouteTransitions: []navdata.RawTransition{
					{Ident: "KERAX", Legs: []navdata.RawFix{{Ident: "KERAX", Region: "ED"}}},
				},
			},
		},
	)
	require.NoError(t, err)
	return navdata.NewStore(db, nil)
}

func navlogFix(ident, via, lat, long string) dtos.NavlogFix {
	return dtos.NavlogFix{Ident: ident, Type: "wpt", ViaAirway: via, PosLat: lat, PosLong: long}
}

func testOFP(fixes ...dtos.NavlogFix) *dtos.OFPDocument {
	route := append([]dtos.NavlogFix{{Ident: "EDDF", Type: dtos.FixTypeAirport}}, fixes...)
	route = append(route, dtos.NavlogFix{Ident: "EDDM", Type: dtos.FixTypeAirport})
	return &dtos.OFPDocument{
		Fetch:       dtos.OFPFetch{Status: "Success"},
		Origin:      dtos.OFPAirport{ICAOCode: "EDDF", ICAORegion: "ED", PlanRunway: "25C", TransAlt: "5000", PosLat: "50.03", PosLong: "8.57"},
		Destination: dtos.OFPAirport{ICAOCode: "EDDM", ICAORegion: "ED", PlanRunway: "26R", TransLevel: "70", PosLat: "48.35", PosLong: "11.78"},
		General:     dtos.OFPGeneral{CostIndex: "35", InitialAltitude: "36000", ICAOAirline: "DLH", FlightNumber: "100"},
		Navlog:      dtos.OFPNavlog{Fixes: route},
	}
}

func airwayOFP() *dtos.OFPDocument {
	return testOFP(
		navlogFix("ANEKI", "DCT", "49.9", "8.1"),
		navlogFix("TOBAK", "T161", "49.8", "8.9"),
		navlogFix("KERAX", "T161", "49.7", "9.3"),
	)
}

func legIdents(result *UplinkResult) []string {
	var idents []string
	for _, e := range result.Plan.Elements() {
		if !e.Discontinuity {
			idents = append(idents, e.Leg.Ident)
		}
	}
	return idents
}

func newTestService(t *testing.T, provider providers.OFPProvider, cache common.CacheInterface, history HistoryRecorder) *UplinkService {
	return NewUplinkService(provider, setupTestNavDB(t), cache, history, nil, time.Minute, false)
}

func TestUplinkService_Uplink_ExpandsAirway(t *testing.T) {
	provider := &mockOFPProvider{fetchOFPFunc: func(ctx context.Context, pilotID string) (*dtos.OFPDocument, error) {
		return airwayOFP(), nil
	}}
	history := &recordingHistory{}
	svc := newTestService(t, provider, nil, history)

	result, err := svc.Uplink(context.Background(), "123456", UplinkOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"EDDF", "ANEKI", "TOBAK", "KERAX", "EDDM"}, legIdents(result))
	for _, e := range result.Plan.Elements() {
		if e.Leg.Ident == "ANEKI" {
			assert.Equal(t, "ED", e.Leg.Region, "nearest ANEKI should win")
		}
		if e.Leg.Ident == "KERAX" {
			assert.Equal(t, "T161", e.Leg.Via)
		}
	}

	// header fields reach the plan
	require.NotNil(t, result.Plan.CruiseLevel)
	assert.Equal(t, 360, *result.Plan.CruiseLevel)
	require.NotNil(t, result.Plan.TransitionAltitude)
	assert.Equal(t, 5000, *result.Plan.TransitionAltitude)
	assert.Equal(t, "DLH100", result.Plan.Callsign)
	assert.Equal(t, "25C", result.Plan.OriginRunway)

	require.Len(t, history.rows, 1)
	assert.Equal(t, "done", history.rows[0].Status)
	assert.Equal(t, "EDDF", history.rows[0].Origin)
	assert.Equal(t, 3, history.rows[0].ChunkCount)
}

func TestUplinkService_Uplink_AttachesDeparture(t *testing.T) {
	doc := testOFP(
		dtos.NavlogFix{Ident: "ANEKI", Type: "wpt", ViaAirway: "TOBAK7G", SidStar: "1"},
		dtos.NavlogFix{Ident: "TOBAK", Type: "wpt", ViaAirway: "TOBAK7G", SidStar: "1"},
		navlogFix("KERAX", "TOBAK7G", "49.7", "9.3"),
	)
	provider := &mockOFPProvider{fetchOFPFunc: func(ctx context.Context, pilotID string) (*dtos.OFPDocument, error) {
		return doc, nil
	}}
	svc := newTestService(t, provider, nil, nil)

	enabled := true
	result, err := svc.Uplink(context.Background(), "kilo", UplinkOptions{Procedures: &enabled})
	require.NoError(t, err)

	assert.Equal(t, []string{"EDDF", "DF251", "ANEKI", "TOBAK", "KERAX", "EDDM"}, legIdents(result))
	dep, ok := result.Plan.DepartureProcedure()
	require.True(t, ok)
	assert.Equal(t, "TOBAK7G", dep.Ident)
}

func TestUplinkService_Uplink_NotFoundKeepsPartialPlan(t *testing.T) {
	doc := testOFP(
		navlogFix("ANEKI", "DCT", "49.9", "8.1"),
		navlogFix("NOWHR", "DCT", "49.0", "9.0"),
	)
	provider := &mockOFPProvider{fetchOFPFunc: func(ctx context.Context, pilotID string) (*dtos.OFPDocument, error) {
		return doc, nil
	}}
	history := &recordingHistory{}
	svc := newTestService(t, provider, nil, history)

	result, err := svc.Uplink(context.Background(), "123456", UplinkOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, uplink.ErrNotFound))

	require.NotNil(t, result)
	assert.Equal(t, []string{"EDDF", "ANEKI", "EDDM"}, legIdents(result))

	resp := UplinkResponse(result, err)
	require.NotNil(t, resp.FailedChunk)
	assert.Equal(t, 1, *resp.FailedChunk)
	assert.Equal(t, constants.ErrCodeNavDataNotFound, resp.ErrorCode)

	require.Len(t, history.rows, 1)
	assert.Equal(t, "failed", history.rows[0].Status)
	assert.NotEmpty(t, history.rows[0].Error)
}

func TestUplinkService_Uplink_CachesOFP(t *testing.T) {
	provider := &mockOFPProvider{fetchOFPFunc: func(ctx context.Context, pilotID string) (*dtos.OFPDocument, error) {
		return airwayOFP(), nil
	}}
	promReg := prometheus.NewRegistry()
	svc := NewUplinkService(provider, setupTestNavDB(t), common.NewMemoryCache(time.Minute, time.Minute), nil,
		metrics.NewMetricsRegistryWith(promReg), time.Minute, false)

	for i := 0; i < 2; i++ {
		result, err := svc.Uplink(context.Background(), "Kilo", UplinkOptions{})
		require.NoError(t, err)
		assert.Len(t, legIdents(result), 5)
	}
	assert.Equal(t, 1, provider.calls)

	_, err := svc.Uplink(context.Background(), "kilo", UplinkOptions{SkipCache: true})
	require.NoError(t, err)
	assert.Equal(t, 2, provider.calls)
}

func TestUplinkService_Uplink_ProviderError(t *testing.T) {
	provider := &mockOFPProvider{fetchOFPFunc: func(ctx context.Context, pilotID string) (*dtos.OFPDocument, error) {
		return nil, &providers.ProviderError{Code: constants.ErrCodeNotFound, Message: "no plan"}
	}}
	history := &recordingHistory{}
	svc := newTestService(t, provider, common.NewMemoryCache(time.Minute, time.Minute), history)

	result, err := svc.Uplink(context.Background(), "123456", UplinkOptions{})
	assert.Nil(t, result)
	var pe *providers.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, constants.ErrCodeNotFound, pe.Code)
	assert.Empty(t, history.rows)

	// failures are not cached
	_, _ = svc.Uplink(context.Background(), "123456", UplinkOptions{})
	assert.Equal(t, 2, provider.calls)
}

func TestUplinkService_UplinkDocument_EmptyNavlog(t *testing.T) {
	svc := newTestService(t, &mockOFPProvider{}, nil, nil)

	result, err := svc.UplinkDocument(context.Background(), testOFP(), UplinkOptions{})
	assert.ErrorIs(t, err, ErrNavlogEmpty)
	require.NotNil(t, result)
	assert.Equal(t, []string{"EDDF", "EDDM"}, legIdents(result))
}

func TestUplinkService_Classify(t *testing.T) {
	svc := newTestService(t, &mockOFPProvider{}, nil, nil)

	resp := ClassifyResponse(svc.Classify(airwayOFP()))
	require.Len(t, resp.Chunks, 3)
	assert.Equal(t, "waypoint", resp.Chunks[0].Kind)
	assert.Equal(t, "airway", resp.Chunks[1].Kind)
	assert.Equal(t, "T161", resp.Chunks[1].Ident)
	assert.Equal(t, "airwayTermination", resp.Chunks[2].Kind)
	assert.Nil(t, resp.Chunks[2].Location)
	assert.Equal(t, "EDDF", resp.Summary.Origin)
	require.NotNil(t, resp.Summary.OriginLocation)
	assert.InDelta(t, 50.03, resp.Summary.OriginLocation.Lat, 1e-9)
}
