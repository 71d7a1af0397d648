// Package planettest provides an in-memory planet.Store for unit tests.
package planettest

import (
	"context"
	"sync"
	"time"

	"planets-api/internal/planet"
	"planets-api/internal/shared/database"
	"planets-api/internal/shared/errors"
)

type link struct {
	planetID  int64
	featureID int64
}

type state struct {
	planets  map[int64]planet.Planet
	order    []int64
	features map[planet.FeatureKind][]planet.Feature
	links    map[planet.FeatureKind][]link
	nextID   int64
}

func (s state) clone() state {
	c := state{
		planets:  make(map[int64]planet.Planet, len(s.planets)),
		order:    append([]int64(nil), s.order...),
		features: map[planet.FeatureKind][]planet.Feature{},
		links:    map[planet.FeatureKind][]link{},
		nextID:   s.nextID,
	}
	for id, p := range s.planets {
		c.planets[id] = p
	}
	for k, v := range s.features {
		c.features[k] = append([]planet.Feature(nil), v...)
	}
	for k, v := range s.links {
		c.links[k] = append([]link(nil), v...)
	}
	return c
}

// MemStore keeps planets in memory. RunInTx restores the previous state when fn fails.
// Calls made from other goroutines while a RunInTx is in progress are not synchronised.
type MemStore struct {
	mu     sync.Mutex
	inTx   bool
	state  state
	Writes int

	// FailAssociate, when set, is returned by Associate.
	FailAssociate error
}

var _ planet.Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{
		state: state{
			planets:  map[int64]planet.Planet{},
			features: map[planet.FeatureKind][]planet.Feature{},
			links:    map[planet.FeatureKind][]link{},
		},
	}
}

func (m *MemStore) lock() func() {
	if m.inTx {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

func (m *MemStore) RunInTx(ctx context.Context, fn func(tx *database.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.state.clone()
	writes := m.Writes
	m.inTx = true
	err := fn(nil)
	m.inTx = false
	if err != nil {
		m.state = snapshot
		m.Writes = writes
	}
	return err
}

func (m *MemStore) CreatePlanet(ctx context.Context, name string, population *int64, tx *database.Tx) (*planet.Planet, error) {
	defer m.lock()()
	return m.create(name, population), nil
}

func (m *MemStore) create(name string, population *int64) *planet.Planet {
	m.state.nextID++
	now := time.Now()
	p := planet.Planet{
		ID:         m.state.nextID,
		Name:       name,
		Population: copyCount(population),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	m.state.planets[p.ID] = p
	m.state.order = append(m.state.order, p.ID)
	m.Writes++
	return m.hydrate(p)
}

func (m *MemStore) GetPlanet(ctx context.Context, id int64, tx *database.Tx) (*planet.Planet, error) {
	defer m.lock()()
	p, ok := m.state.planets[id]
	if !ok {
		return nil, errors.NotFoundf("planet not found with id: %d", id)
	}
	return m.hydrate(p), nil
}

func (m *MemStore) ListPlanets(ctx context.Context) ([]planet.Planet, error) {
	defer m.lock()()
	planets := make([]planet.Planet, 0, len(m.state.order))
	for _, id := range m.state.order {
		planets = append(planets, *m.hydrate(m.state.planets[id]))
	}
	return planets, nil
}

func (m *MemStore) ReplacePlanet(ctx context.Context, id int64, name string, population *int64, tx *database.Tx) (*planet.Planet, error) {
	defer m.lock()()
	p, ok := m.state.planets[id]
	if !ok {
		return nil, errors.NotFoundf("planet not found with id: %d", id)
	}
	p.Name = name
	p.Population = copyCount(population)
	p.UpdatedAt = time.Now()
	m.state.planets[id] = p
	m.Writes++
	return m.hydrate(p), nil
}

func (m *MemStore) DeletePlanet(ctx context.Context, id int64, tx *database.Tx) error {
	defer m.lock()()
	if _, ok := m.state.planets[id]; !ok {
		return errors.NotFoundf("planet not found with id: %d", id)
	}
	delete(m.state.planets, id)
	for i, oid := range m.state.order {
		if oid == id {
			m.state.order = append(m.state.order[:i], m.state.order[i+1:]...)
			break
		}
	}
	for kind, links := range m.state.links {
		kept := links[:0]
		for _, l := range links {
			if l.planetID != id {
				kept = append(kept, l)
			}
		}
		m.state.links[kind] = kept
	}
	m.Writes++
	return nil
}

func (m *MemStore) UpsertPlanetByName(ctx context.Context, name string, population *int64, tx *database.Tx) (*planet.Planet, error) {
	defer m.lock()()
	for _, id := range m.state.order {
		p := m.state.planets[id]
		if p.Name == name {
			p.Population = copyCount(population)
			p.UpdatedAt = time.Now()
			m.state.planets[id] = p
			m.Writes++
			return m.hydrate(p), nil
		}
	}
	return m.create(name, population), nil
}

func (m *MemStore) UpsertFeatureByName(ctx context.Context, kind planet.FeatureKind, name string, tx *database.Tx) (*planet.Feature, error) {
	defer m.lock()()
	if !kind.Valid() {
		return nil, errors.Validation("unknown feature kind: " + kind.String())
	}
	for _, f := range m.state.features[kind] {
		if f.Name == name {
			found := f
			return &found, nil
		}
	}
	m.state.nextID++
	f := planet.Feature{ID: m.state.nextID, Name: name}
	m.state.features[kind] = append(m.state.features[kind], f)
	m.Writes++
	return &f, nil
}

func (m *MemStore) Associate(ctx context.Context, planetID int64, kind planet.FeatureKind, featureID int64, tx *database.Tx) error {
	defer m.lock()()
	if m.FailAssociate != nil {
		return m.FailAssociate
	}
	if _, ok := m.state.planets[planetID]; !ok {
		return errors.NotFoundf("planet not found with id: %d", planetID)
	}
	if _, ok := m.feature(kind, featureID); !ok {
		return errors.NotFoundf("%s not found with id: %d", kind, featureID)
	}
	for _, l := range m.state.links[kind] {
		if l.planetID == planetID && l.featureID == featureID {
			return nil
		}
	}
	m.state.links[kind] = append(m.state.links[kind], link{planetID: planetID, featureID: featureID})
	m.Writes++
	return nil
}

// Features returns every stored feature of kind in creation order.
func (m *MemStore) Features(kind planet.FeatureKind) []planet.Feature {
	defer m.lock()()
	return append([]planet.Feature(nil), m.state.features[kind]...)
}

func (m *MemStore) feature(kind planet.FeatureKind, id int64) (planet.Feature, bool) {
	for _, f := range m.state.features[kind] {
		if f.ID == id {
			return f, true
		}
	}
	return planet.Feature{}, false
}

func (m *MemStore) hydrate(p planet.Planet) *planet.Planet {
	p.Population = copyCount(p.Population)
	p.Terrains = m.linked(planet.FeatureTerrain, p.ID)
	p.Climates = m.linked(planet.FeatureClimate, p.ID)
	return &p
}

func (m *MemStore) linked(kind planet.FeatureKind, planetID int64) []planet.Feature {
	features := []planet.Feature{}
	for _, l := range m.state.links[kind] {
		if l.planetID != planetID {
			continue
		}
		if f, ok := m.feature(kind, l.featureID); ok {
			features = append(features, f)
		}
	}
	return features
}

func copyCount(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
