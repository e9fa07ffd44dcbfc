package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/fieldsight/menara/internal/domain"
	"github.com/fieldsight/menara/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTowerService() *towerService {
	return &towerService{
		logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})),
	}
}

func TestCreateRegion_EmptyName(t *testing.T) {
	s := newTestTowerService()

	_, err := s.CreateRegion(context.Background(), "   ")
	assertInvalid(t, err)
}

func TestCreateTower_Validation(t *testing.T) {
	s := newTestTowerService()

	valid := CreateTowerParams{
		Name:      "North Ridge",
		RegionID:  1,
		Latitude:  -6.2,
		Longitude: 106.8,
		Height:    52,
	}

	tests := []struct {
		name   string
		mutate func(*CreateTowerParams)
	}{
		{"empty name", func(p *CreateTowerParams) { p.Name = " " }},
		{"latitude out of range", func(p *CreateTowerParams) { p.Latitude = 95 }},
		{"longitude out of range", func(p *CreateTowerParams) { p.Longitude = -200 }},
		{"negative height", func(p *CreateTowerParams) { p.Height = -1 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			params := valid
			tc.mutate(&params)
			_, err := s.CreateTower(context.Background(), params)
			assertInvalid(t, err)
		})
	}
}

// fakeTowerQueries serves canned rows for the tower detail path.
type fakeTowerQueries struct {
	tower     repository.TowerWithRegion
	latest    map[string]repository.InspectionRecordWithNames
	photos    map[int64][]repository.Photo
	photosErr error
}

func (f *fakeTowerQueries) CreateRegion(context.Context, string) (repository.Region, error) {
	return repository.Region{}, errors.New("not implemented")
}

func (f *fakeTowerQueries) ListRegions(context.Context) ([]repository.Region, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeTowerQueries) GetRegionByID(context.Context, int64) (repository.Region, error) {
	return repository.Region{}, sql.ErrNoRows
}

func (f *fakeTowerQueries) CreateTower(context.Context, repository.CreateTowerParams) (repository.Tower, error) {
	return repository.Tower{}, errors.New("not implemented")
}

func (f *fakeTowerQueries) GetTowerByID(context.Context, int64) (repository.TowerWithRegion, error) {
	return f.tower, nil
}

func (f *fakeTowerQueries) ListTowers(context.Context, sql.NullInt64) ([]repository.TowerWithRegion, error) {
	return []repository.TowerWithRegion{f.tower}, nil
}

func (f *fakeTowerQueries) LatestCompletedRecord(_ context.Context, arg repository.LatestCompletedRecordParams) (repository.InspectionRecordWithNames, error) {
	row, ok := f.latest[arg.Kind]
	if !ok {
		return repository.InspectionRecordWithNames{}, sql.ErrNoRows
	}
	return row, nil
}

func (f *fakeTowerQueries) ListPhotosByRecordID(_ context.Context, recordID int64) ([]repository.Photo, error) {
	if f.photosErr != nil {
		return nil, f.photosErr
	}
	return f.photos[recordID], nil
}

func TestGetTowerDetail_AttachesLatestRecordPhotos(t *testing.T) {
	row := baseRow("cleanliness", "COMPLETED")
	fake := &fakeTowerQueries{
		tower:  repository.TowerWithRegion{Tower: repository.Tower{ID: 3, Name: "North Ridge"}},
		latest: map[string]repository.InspectionRecordWithNames{"cleanliness": row},
		photos: map[int64][]repository.Photo{
			row.ID: {
				{ID: 1, RecordID: row.ID, Url: "https://cdn.example.com/cover.jpg", Role: "photo"},
				{ID: 2, RecordID: row.ID, Url: "https://cdn.example.com/second.jpg", Role: "photo", Position: 1},
			},
		},
	}
	s := &towerService{queries: fake, logger: newTestTowerService().logger}

	detail, err := s.GetTowerDetail(context.Background(), 3)
	require.NoError(t, err)

	record := detail.Latest[domain.KindCleanliness]
	require.NotNil(t, record)
	require.Len(t, record.Photos, 2)
	assert.Equal(t, "https://cdn.example.com/cover.jpg", record.MainPhotoURL())
	assert.Equal(t, 1, detail.Summary.CompletedCount)
}

func TestGetTowerDetail_PhotoFetchFailureKeepsRecord(t *testing.T) {
	row := baseRow("voltage", "COMPLETED")
	fake := &fakeTowerQueries{
		tower:     repository.TowerWithRegion{Tower: repository.Tower{ID: 3, Name: "North Ridge"}},
		latest:    map[string]repository.InspectionRecordWithNames{"voltage": row},
		photosErr: errors.New("connection reset"),
	}
	s := &towerService{queries: fake, logger: newTestTowerService().logger}

	detail, err := s.GetTowerDetail(context.Background(), 3)
	require.NoError(t, err)

	record := detail.Latest[domain.KindVoltage]
	require.NotNil(t, record)
	assert.Empty(t, record.Photos)
	assert.Equal(t, "", record.MainPhotoURL())
}

func TestRowToTower(t *testing.T) {
	row := repository.TowerWithRegion{
		Tower: repository.Tower{
			ID:         4,
			Name:       "North Ridge",
			RegionID:   2,
			Latitude:   -6.2,
			Longitude:  106.8,
			Height:     52,
			AntennaRf:  3,
			AntennaRru: 2,
			AntennaMw:  1,
		},
		RegionName: "Jawa Barat",
	}

	tower := rowToTower(row)

	assert.Equal(t, int64(4), tower.ID)
	assert.Equal(t, "Jawa Barat", tower.RegionName)
	assert.Equal(t, 3, tower.AntennaRF)
	assert.Equal(t, 2, tower.AntennaRRU)
	assert.Equal(t, 1, tower.AntennaMW)
}
