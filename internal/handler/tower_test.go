package handler

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/fieldsight/menara/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToTowerResponse_LatestRecordsCarryCoverPhoto(t *testing.T) {
	record := &domain.InspectionRecord{
		ID:      7,
		Kind:    domain.KindCleanliness,
		TowerID: 3,
		Status:  domain.RecordStatusCompleted,
		Photos: []domain.Photo{
			{ID: 1, URL: "https://cdn.example.com/cover.jpg", Role: domain.PhotoRoleGeneric},
		},
		Cleanliness: domain.NewCleanlinessResult(),
	}
	now := time.Now()
	detail := domain.TowerDetail{
		Tower: domain.Tower{ID: 3, Name: "North Ridge"},
		Summary: domain.TowerInspectionSummary{
			CompletedCount:     1,
			Status:             domain.TowerStatusInProgress,
			LastInspectionDate: &now,
		},
		Latest: map[domain.InspectionKind]*domain.InspectionRecord{
			domain.KindCleanliness: record,
		},
	}

	resp := toTowerResponse(detail, true)

	latest, ok := resp.Latest["cleanliness"]
	require.True(t, ok)
	require.Len(t, latest.Photos, 1)
	require.NotNil(t, latest.MainPhotoURL)
	assert.Equal(t, "https://cdn.example.com/cover.jpg", *latest.MainPhotoURL)

	body, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"main_photo_url":"https://cdn.example.com/cover.jpg"`)
}
