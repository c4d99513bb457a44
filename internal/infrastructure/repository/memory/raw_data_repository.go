package memory

import (
	"context"
	"sync"

	"github.com/riskibarqy/volleyball-league/internal/domain/rawdata"
)

type rawDataKey struct {
	source     string
	entityType string
	entityKey  string
}

type RawDataRepository struct {
	mu    sync.RWMutex
	items map[rawDataKey]rawdata.Payload
}

func NewRawDataRepository() *RawDataRepository {
	return &RawDataRepository{items: make(map[rawDataKey]rawdata.Payload)}
}

func (r *RawDataRepository) UpsertMany(_ context.Context, items []rawdata.Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range items {
		if item.Source == "" || item.EntityType == "" || item.EntityKey == "" {
			continue
		}
		r.items[rawDataKey{source: item.Source, entityType: item.EntityType, entityKey: item.EntityKey}] = item
	}
	return nil
}

func (r *RawDataRepository) Get(source, entityType, entityKey string) (rawdata.Payload, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[rawDataKey{source: source, entityType: entityType, entityKey: entityKey}]
	return item, ok
}

func (r *RawDataRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.items)
}
