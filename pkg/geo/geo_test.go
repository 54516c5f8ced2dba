package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceKm_SamePoint(t *testing.T) {
	d := DistanceKm(40.71, -74.0, 40.71, -74.0)
	assert.InDelta(t, 0.0, d, 1e-9)
}

func TestDistanceKm_KnownDistance(t *testing.T) {
	// Москва — Санкт-Петербург, примерно 634 км
	d := DistanceKm(55.7558, 37.6173, 59.9343, 30.3351)
	assert.InDelta(t, 634.0, d, 5.0)
}

func TestDistanceKm_Symmetric(t *testing.T) {
	d1 := DistanceKm(40.71, -74.0, 51.5074, -0.1278)
	d2 := DistanceKm(51.5074, -0.1278, 40.71, -74.0)
	assert.InDelta(t, d1, d2, 1e-9)
}
