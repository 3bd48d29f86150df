package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptrF(v float64) *float64 { return &v }
func ptrI(v int) *int { return &v }

func TestObservationInput_Validate(t *testing.T) {
	tests := []struct {
		name    string
		in      ObservationInput
		wantErr bool
	}{
		{name: "minimal", in: ObservationInput{PlaceID: "p1"}},
		{name: "full", in: ObservationInput{PlaceID: "p1", WifiSpeedDownload: ptrF(48.2), NoiseLevel: ptrF(55), OutletCount: ptrI(4), Crowdedness: ptrI(3)}},
		{name: "zero outlets allowed", in: ObservationInput{PlaceID: "p1", OutletCount: ptrI(0)}},
		{name: "missing place", in: ObservationInput{}, wantErr: true},
		{name: "crowdedness zero", in: ObservationInput{PlaceID: "p1", Crowdedness: ptrI(0)}, wantErr: true},
		{name: "crowdedness six", in: ObservationInput{PlaceID: "p1", Crowdedness: ptrI(6)}, wantErr: true},
		{name: "negative outlets", in: ObservationInput{PlaceID: "p1", OutletCount: ptrI(-1)}, wantErr: true},
		{name: "negative speed", in: ObservationInput{PlaceID: "p1", WifiSpeedUpload: ptrF(-3)}, wantErr: true},
		{name: "notes too long", in: ObservationInput{PlaceID: "p1", Notes: strings.Repeat("x", 2001)}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidObservation))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSummarizeObservations(t *testing.T) {
	recent := []Observation{
		{WifiSpeedDownload: ptrF(40), NoiseLevel: ptrF(50), Crowdedness: ptrI(2)},
		{WifiSpeedDownload: ptrF(60), Crowdedness: ptrI(4)},
		{NoiseLevel: ptrF(70)},
	}

	stats := SummarizeObservations(7, recent)

	assert.Equal(t, 7, stats.TotalObservations)
	assert.Equal(t, 3, stats.RecentObservations)
	require.NotNil(t, stats.AvgWifiSpeed)
	assert.InDelta(t, 50, *stats.AvgWifiSpeed, 1e-9)
	require.NotNil(t, stats.AvgNoiseLevel)
	assert.InDelta(t, 60, *stats.AvgNoiseLevel, 1e-9)
	require.NotNil(t, stats.AvgCrowdedness)
	assert.InDelta(t, 3, *stats.AvgCrowdedness, 1e-9)
}

func TestSummarizeObservations_Empty(t *testing.T) {
	stats := SummarizeObservations(0, nil)

	assert.Nil(t, stats.AvgWifiSpeed)
	assert.Nil(t, stats.AvgNoiseLevel)
	assert.Nil(t, stats.AvgCrowdedness)
}

func TestChangeNotification_Validate(t *testing.T) {
	assert.True(t, errors.Is(ChangeNotification{Table: "profiles", PlaceID: "x"}.Validate(), ErrIgnoredEvent))
	assert.True(t, errors.Is(ChangeNotification{Table: "places"}.Validate(), ErrMalformedEvent))
	assert.NoError(t, ChangeNotification{Table: "places", Type: ChangeInsert, PlaceID: "x"}.Validate())

	assert.True(t, ChangeNotification{Type: "update"}.Known())
	assert.False(t, ChangeNotification{Type: "TRUNCATE"}.Known())
}
