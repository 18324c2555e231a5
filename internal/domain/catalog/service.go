package catalog

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/quisqueyasoft/ventas-ledger/internal/domain/import/normalizer"
)

// Snapshot is a point-in-time view of the catalog. Resolution runs against one
// snapshot for a whole import so results are consistent even if the catalog
// changes mid-run.
type Snapshot struct {
	Products []Product
	Clients  []Client

	productsByID   map[uuid.UUID]Product
	clientsByID    map[uuid.UUID]Client
	productsByName map[string]Product // keyed by normalized name, first wins
	clientsByName  map[string]Client
}

// NewSnapshot indexes the given catalog lists. Order is preserved; when two
// entries normalize to the same name the earlier one wins.
func NewSnapshot(products []Product, clients []Client) *Snapshot {
	s := &Snapshot{
		Products:       products,
		Clients:        clients,
		productsByID:   make(map[uuid.UUID]Product, len(products)),
		clientsByID:    make(map[uuid.UUID]Client, len(clients)),
		productsByName: make(map[string]Product, len(products)),
		clientsByName:  make(map[string]Client, len(clients)),
	}
	for _, p := range products {
		s.productsByID[p.ID] = p
		key := normalizer.Normalize(p.Name)
		if _, exists := s.productsByName[key]; !exists && key != "" {
			s.productsByName[key] = p
		}
	}
	for _, c := range clients {
		s.clientsByID[c.ID] = c
		key := normalizer.Normalize(c.Name)
		if _, exists := s.clientsByName[key]; !exists && key != "" {
			s.clientsByName[key] = c
		}
	}
	return s
}

// ProductByID looks up a product by id.
func (s *Snapshot) ProductByID(id uuid.UUID) (Product, bool) {
	p, ok := s.productsByID[id]
	return p, ok
}

// ClientByID looks up a client by id.
func (s *Snapshot) ClientByID(id uuid.UUID) (Client, bool) {
	c, ok := s.clientsByID[id]
	return c, ok
}

// ProductByNormalizedName looks up a product whose normalized catalog name
// equals the given normalized input.
func (s *Snapshot) ProductByNormalizedName(normalized string) (Product, bool) {
	p, ok := s.productsByName[normalized]
	return p, ok
}

// ClientByNormalizedName looks up a client by normalized name.
func (s *Snapshot) ClientByNormalizedName(normalized string) (Client, bool) {
	c, ok := s.clientsByName[normalized]
	return c, ok
}

// Provider supplies catalog snapshots to the import pipeline.
type Provider interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
}

// Service caches the catalog and hands out snapshots.
type Service struct {
	repo *Repository

	mu       sync.RWMutex
	snapshot *Snapshot
}

// NewService creates a catalog service.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// Snapshot returns the cached snapshot, loading it on first use.
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	s.mu.RLock()
	if s.snapshot != nil {
		snap := s.snapshot
		s.mu.RUnlock()
		return snap, nil
	}
	s.mu.RUnlock()

	return s.Refresh(ctx)
}

// Refresh reloads the catalog from storage and replaces the cached snapshot.
func (s *Service) Refresh(ctx context.Context) (*Snapshot, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh catalog: %w", err)
	}
	clients, err := s.repo.ListClients(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh catalog: %w", err)
	}

	snap := NewSnapshot(products, clients)

	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()

	return snap, nil
}

// Invalidate drops the cached snapshot so the next call reloads.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.snapshot = nil
	s.mu.Unlock()
}
