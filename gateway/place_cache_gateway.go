package gateway

import (
	"time"

	"place-indexer/domain"
	"place-indexer/port"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// PlaceCacheGateway is an in-process LRU of place detail views. Entries
// expire after ttl so observations posted through other replicas show up
// eventually.
type PlaceCacheGateway struct {
	lru *expirable.LRU[string, *domain.PlaceDetails]
}

var _ port.PlaceCache = (*PlaceCacheGateway)(nil)

func NewPlaceCacheGateway(size int, ttl time.Duration) *PlaceCacheGateway {
	return &PlaceCacheGateway{lru: expirable.NewLRU[string, *domain.PlaceDetails](size, nil, ttl)}
}

func (c *PlaceCacheGateway) Get(placeID string) (*domain.PlaceDetails, bool) {
	return c.lru.Get(placeID)
}

func (c *PlaceCacheGateway) Add(placeID string, details *domain.PlaceDetails) {
	c.lru.Add(placeID, details)
}

func (c *PlaceCacheGateway) Invalidate(placeID string) {
	c.lru.Remove(placeID)
}
