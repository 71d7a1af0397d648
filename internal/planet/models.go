package planet

import (
	"time"
)

// FeatureKind distinguishes the two many-to-many planet descriptors.
type FeatureKind string

const (
	FeatureTerrain FeatureKind = "terrain"
	FeatureClimate FeatureKind = "climate"
)

// FeatureKinds lists every kind in the order they are rendered.
var FeatureKinds = []FeatureKind{FeatureTerrain, FeatureClimate}

func (k FeatureKind) Valid() bool {
	return k == FeatureTerrain || k == FeatureClimate
}

func (k FeatureKind) String() string {
	return string(k)
}

// Feature is a terrain or climate record. Name is its natural key.
type Feature struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Planet struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Population *int64    `json:"population"`
	Terrains   []Feature `json:"terrains"`
	Climates   []Feature `json:"climates"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (p Planet) String() string {
	return p.Name
}

// Features returns the associations of the given kind in link order.
func (p *Planet) Features(kind FeatureKind) []Feature {
	if kind == FeatureClimate {
		return p.Climates
	}
	return p.Terrains
}

func (p *Planet) setFeatures(kind FeatureKind, features []Feature) {
	if kind == FeatureClimate {
		p.Climates = features
		return
	}
	p.Terrains = features
}
