// Package backend defines the document storage collaborator consumed by
// the terminal pipeline step, plus an in-memory implementation used by
// the standalone server and tests. Durable storage engines implement the
// same interface.
package backend

import (
	"context"
	"strings"
	"sync"

	"github.com/edforge/trellis/pkg/jsonpath"
	"github.com/edforge/trellis/pkg/models"
)

// Document is one normalized resource document ready for storage.
type Document struct {
	UUID         string
	ResourceName string
	Identity     models.DocumentIdentity
	Body         map[string]any
}

// QueryFilter matches documents whose value at Path renders equal to
// Value (case-insensitive).
type QueryFilter struct {
	Path  jsonpath.Path
	Value string
}

// DocumentStore is the storage contract. Upsert is keyed by document
// identity: a document whose identity already exists is updated in place
// and keeps its original uuid. Update replaces a document by uuid.
type DocumentStore interface {
	Upsert(ctx context.Context, doc Document) (uuid string, created bool, err error)
	Update(ctx context.Context, doc Document) (found bool, err error)
	Get(ctx context.Context, resourceName, uuid string) (map[string]any, bool, error)
	Query(ctx context.Context, resourceName string, filters []QueryFilter) ([]map[string]any, error)
	Delete(ctx context.Context, resourceName, uuid string) (bool, error)
}

type storedDocument struct {
	body     map[string]any
	identity string
}

// MemoryStore is a mutex-guarded in-memory DocumentStore.
type MemoryStore struct {
	mu         sync.RWMutex
	byUUID     map[string]map[string]*storedDocument
	byIdentity map[string]map[string]string
	order      map[string][]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byUUID:     make(map[string]map[string]*storedDocument),
		byIdentity: make(map[string]map[string]string),
		order:      make(map[string][]string),
	}
}

// Upsert implements DocumentStore.
func (s *MemoryStore) Upsert(_ context.Context, doc Document) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resource := strings.ToLower(doc.ResourceName)
	if s.byUUID[resource] == nil {
		s.byUUID[resource] = make(map[string]*storedDocument)
		s.byIdentity[resource] = make(map[string]string)
	}

	identityKey := doc.Identity.String()
	if existingUUID, ok := s.byIdentity[resource][identityKey]; ok {
		body := doc.Body
		body["id"] = existingUUID
		s.byUUID[resource][existingUUID] = &storedDocument{body: body, identity: identityKey}
		return existingUUID, false, nil
	}

	s.byUUID[resource][doc.UUID] = &storedDocument{body: doc.Body, identity: identityKey}
	s.byIdentity[resource][identityKey] = doc.UUID
	s.order[resource] = append(s.order[resource], doc.UUID)
	return doc.UUID, true, nil
}

// Update implements DocumentStore.
func (s *MemoryStore) Update(_ context.Context, doc Document) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resource := strings.ToLower(doc.ResourceName)
	existing, ok := s.byUUID[resource][doc.UUID]
	if !ok {
		return false, nil
	}

	delete(s.byIdentity[resource], existing.identity)
	identityKey := doc.Identity.String()
	s.byUUID[resource][doc.UUID] = &storedDocument{body: doc.Body, identity: identityKey}
	s.byIdentity[resource][identityKey] = doc.UUID
	return true, nil
}

// Get implements DocumentStore.
func (s *MemoryStore) Get(_ context.Context, resourceName, uuid string) (map[string]any, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.byUUID[strings.ToLower(resourceName)][uuid]
	if !ok {
		return nil, false, nil
	}
	return doc.body, true, nil
}

// Query implements DocumentStore. Documents are returned in insertion
// order.
func (s *MemoryStore) Query(
	_ context.Context, resourceName string, filters []QueryFilter,
) ([]map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	resource := strings.ToLower(resourceName)
	out := make([]map[string]any, 0)
	for _, uuid := range s.order[resource] {
		doc, ok := s.byUUID[resource][uuid]
		if !ok {
			continue
		}
		if matchesFilters(doc.body, filters) {
			out = append(out, doc.body)
		}
	}
	return out, nil
}

// Delete implements DocumentStore.
func (s *MemoryStore) Delete(_ context.Context, resourceName, uuid string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resource := strings.ToLower(resourceName)
	doc, ok := s.byUUID[resource][uuid]
	if !ok {
		return false, nil
	}
	delete(s.byUUID[resource], uuid)
	delete(s.byIdentity[resource], doc.identity)

	kept := s.order[resource][:0]
	for _, u := range s.order[resource] {
		if u != uuid {
			kept = append(kept, u)
		}
	}
	s.order[resource] = kept
	return true, nil
}

func matchesFilters(body map[string]any, filters []QueryFilter) bool {
	for _, filter := range filters {
		matched := false
		for _, value := range filter.Path.ResolveStrings(body) {
			if strings.EqualFold(value, filter.Value) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}
