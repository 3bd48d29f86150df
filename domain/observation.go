package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

const maxObservationNotes = 2000

// ObservationInput is a crowdsourced reading as submitted by a client.
type ObservationInput struct {
	PlaceID           string
	UserID            string
	WifiSpeedDownload *float64
	WifiSpeedUpload   *float64
	WifiLatency       *float64
	NoiseLevel        *float64
	OutletCount       *int
	Crowdedness       *int
	Notes             string
}

// Validate checks ranges. The place reference is checked against the
// store separately.
func (in ObservationInput) Validate() error {
	if strings.TrimSpace(in.PlaceID) == "" {
		return fmt.Errorf("%w: place ID is required", ErrInvalidObservation)
	}
	for name, v := range map[string]*float64{
		"wifi_speed_download": in.WifiSpeedDownload,
		"wifi_speed_upload":   in.WifiSpeedUpload,
		"wifi_latency":        in.WifiLatency,
		"noise_level":         in.NoiseLevel,
	} {
		if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0) {
			return fmt.Errorf("%w: %s must be a non-negative number", ErrInvalidObservation, name)
		}
	}
	if in.OutletCount != nil && *in.OutletCount < 0 {
		return fmt.Errorf("%w: outlet_count must be >= 0", ErrInvalidObservation)
	}
	if in.Crowdedness != nil && (*in.Crowdedness < 1 || *in.Crowdedness > 5) {
		return fmt.Errorf("%w: crowdedness must be between 1 and 5", ErrInvalidObservation)
	}
	if utf8.RuneCountInString(in.Notes) > maxObservationNotes {
		return fmt.Errorf("%w: notes exceed %d characters", ErrInvalidObservation, maxObservationNotes)
	}
	return nil
}

// Observation is a stored reading. Observations are append-only.
type Observation struct {
	ID                string    `json:"id"`
	PlaceID           string    `json:"place_id"`
	UserID            *string   `json:"user_id"`
	WifiSpeedDownload *float64  `json:"wifi_speed_download"`
	WifiSpeedUpload   *float64  `json:"wifi_speed_upload"`
	WifiLatency       *float64  `json:"wifi_latency"`
	NoiseLevel        *float64  `json:"noise_level"`
	OutletCount       *int      `json:"outlet_count"`
	Crowdedness       *int      `json:"crowdedness"`
	Notes             *string   `json:"notes"`
	AuthorName        *string   `json:"author_name,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// PlaceStats summarizes observations for a place detail view.
type PlaceStats struct {
	TotalObservations  int      `json:"totalObservations"`
	RecentObservations int      `json:"recentObservations"`
	AvgWifiSpeed       *float64 `json:"avgWifiSpeed"`
	AvgNoiseLevel      *float64 `json:"avgNoiseLevel"`
	AvgCrowdedness     *float64 `json:"avgCrowdedness"`
}

// StatsWindow is the look-back period for "recent" observations.
const StatsWindow = 30 * 24 * time.Hour

// SummarizeObservations computes stats over recent. Each average only
// counts observations that carry a non-zero reading for that field.
func SummarizeObservations(total int, recent []Observation) PlaceStats {
	stats := PlaceStats{
		TotalObservations:  total,
		RecentObservations: len(recent),
	}
	var wifi, noise, crowd []float64
	for _, o := range recent {
		if o.WifiSpeedDownload != nil && *o.WifiSpeedDownload != 0 {
			wifi = append(wifi, *o.WifiSpeedDownload)
		}
		if o.NoiseLevel != nil && *o.NoiseLevel != 0 {
			noise = append(noise, *o.NoiseLevel)
		}
		if o.Crowdedness != nil && *o.Crowdedness != 0 {
			crowd = append(crowd, float64(*o.Crowdedness))
		}
	}
	stats.AvgWifiSpeed = mean(wifi)
	stats.AvgNoiseLevel = mean(noise)
	stats.AvgCrowdedness = mean(crowd)
	return stats
}

func mean(vs []float64) *float64 {
	if len(vs) == 0 {
		return nil
	}
	var sum float64
	for _, v := range vs {
		sum += v
	}
	m := sum / float64(len(vs))
	return &m
}
