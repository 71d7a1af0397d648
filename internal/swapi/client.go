// Package swapi fetches planet data from the public Star Wars GraphQL API.
package swapi

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"time"

	"planets-api/internal/shared/errors"

	"github.com/machinebox/graphql"
)

const planetsQuery = `query Query {allPlanets{planets{name population terrains climates}}}`

// Planet is one planet as reported by SWAPI.
type Planet struct {
	Name       string
	Population *int64
	Terrains   []string
	Climates   []string
}

type planetsResponse struct {
	AllPlanets struct {
		Planets []struct {
			Name       string   `json:"name"`
			Population *float64 `json:"population"`
			Terrains   []string `json:"terrains"`
			Climates   []string `json:"climates"`
		} `json:"planets"`
	} `json:"allPlanets"`
}

type Client struct {
	url    string
	client *graphql.Client
	logger *slog.Logger
}

func NewClient(url string, timeout time.Duration, logger *slog.Logger) *Client {
	logger = logger.With("component", "swapi_client", "url", url)
	logger.Debug("Initializing SWAPI client", "timeout", timeout)

	client := graphql.NewClient(url, graphql.WithHTTPClient(&http.Client{Timeout: timeout}))
	client.Log = func(s string) {
		logger.Debug(s)
	}

	return &Client{
		url:    url,
		client: client,
		logger: logger,
	}
}

// FetchPlanets returns every planet SWAPI knows about, in the order it reports them.
func (c *Client) FetchPlanets(ctx context.Context) ([]Planet, error) {
	logger := c.logger.With("operation", "fetch_planets")
	logger.Info("Fetching planets")

	var resp planetsResponse
	if err := c.client.Run(ctx, graphql.NewRequest(planetsQuery), &resp); err != nil {
		logger.Error("Failed to fetch planets", "error", err)
		return nil, errors.WrapExternal("failed to fetch planets from "+c.url, err)
	}

	planets := make([]Planet, 0, len(resp.AllPlanets.Planets))
	for _, p := range resp.AllPlanets.Planets {
		population, ok := toCount(p.Population)
		if !ok {
			logger.Warn("Ignoring out of range population", "name", p.Name, "population", *p.Population)
		}
		planets = append(planets, Planet{
			Name:       p.Name,
			Population: population,
			Terrains:   p.Terrains,
			Climates:   p.Climates,
		})
	}

	logger.Info("Planets fetched", "count", len(planets))
	return planets, nil
}

// toCount truncates a reported population to an integer. ok is false when v cannot be stored.
func toCount(v *float64) (count *int64, ok bool) {
	if v == nil {
		return nil, true
	}
	if *v < 0 || *v >= math.MaxInt64 || math.IsNaN(*v) {
		return nil, false
	}
	n := int64(*v)
	return &n, true
}
