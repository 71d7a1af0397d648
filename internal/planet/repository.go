package planet

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"

	"planets-api/internal/shared/database"
	"planets-api/internal/shared/errors"

	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"
)

// advisory lock class for per-name planet upserts
const planetNameLockClass = 0x706c

const planetColumns = `id, name, population, created_at, updated_at`

type featureTable struct {
	table  string
	link   string
	column string
}

var featureTables = map[FeatureKind]featureTable{
	FeatureTerrain: {table: "terrains", link: "planet_terrains", column: "terrain_id"},
	FeatureClimate: {table: "climates", link: "planet_climates", column: "climate_id"},
}

type Repository struct {
	db     *database.DB
	logger *slog.Logger
}

var _ Store = (*Repository)(nil)

func NewRepository(db *database.DB, logger *slog.Logger) *Repository {
	logger.Debug("Initializing planet repository")

	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) getExecutor(tx *database.Tx) database.Executor {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *Repository) RunInTx(ctx context.Context, fn func(tx *database.Tx) error) error {
	return r.db.WithTx(ctx, fn)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPlanet(row rowScanner) (*Planet, error) {
	var planet Planet
	var population sql.NullInt64

	if err := row.Scan(&planet.ID, &planet.Name, &population, &planet.CreatedAt, &planet.UpdatedAt); err != nil {
		return nil, err
	}

	if population.Valid {
		value := population.Int64
		planet.Population = &value
	}
	planet.Terrains = []Feature{}
	planet.Climates = []Feature{}
	return &planet, nil
}

func (r *Repository) CreatePlanet(ctx context.Context, name string, population *int64, tx *database.Tx) (*Planet, error) {
	exec := r.getExecutor(tx)

	logger := r.logger.With(
		"component", "planet_repository",
		"operation", "create_planet",
		"name", name,
	)
	logger.Debug("Creating planet")

	query := `
		INSERT INTO planets (name, population)
		VALUES ($1, $2)
		RETURNING ` + planetColumns

	planet, err := scanPlanet(exec.QueryRowContext(ctx, query, name, population))
	if err != nil {
		logger.Error("Failed to create planet", "error", err)
		return nil, mapError("failed to create planet", err)
	}

	logger.Debug("Planet created successfully", "planet_id", planet.ID)
	return planet, nil
}

func (r *Repository) GetPlanet(ctx context.Context, id int64, tx *database.Tx) (*Planet, error) {
	exec := r.getExecutor(tx)

	logger := r.logger.With("component", "planet_repository", "operation", "get_planet", "planet_id", id)
	logger.Debug("Getting planet by ID")

	query := `SELECT ` + planetColumns + ` FROM planets WHERE id = $1`

	planet, err := scanPlanet(exec.QueryRowContext(ctx, query, id))
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			logger.Debug("Planet not found")
			return nil, errors.NotFoundf("planet not found with id: %d", id)
		}
		logger.Error("Database error getting planet", "error", err)
		return nil, errors.WrapInternal("failed to get planet", err)
	}

	if err := r.loadFeatures(ctx, exec, []*Planet{planet}); err != nil {
		return nil, err
	}

	logger.Debug("Planet retrieved", "name", planet.Name)
	return planet, nil
}

func (r *Repository) ListPlanets(ctx context.Context) ([]Planet, error) {
	logger := r.logger.With("component", "planet_repository", "operation", "list_planets")
	logger.Debug("Listing planets")

	query := `SELECT ` + planetColumns + ` FROM planets ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		logger.Error("Failed to query planets", "error", err)
		return nil, errors.WrapInternal("failed to query planets", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	var planets []Planet
	for rows.Next() {
		planet, err := scanPlanet(rows)
		if err != nil {
			logger.Error("Failed to scan planet row", "error", err)
			return nil, errors.WrapInternal("failed to scan planet", err)
		}
		planets = append(planets, *planet)
	}

	if err := rows.Err(); err != nil {
		logger.Error("Error during rows iteration", "error", err)
		return nil, errors.WrapInternal("error iterating planets", err)
	}

	refs := make([]*Planet, len(planets))
	for i := range planets {
		refs[i] = &planets[i]
	}
	if err := r.loadFeatures(ctx, r.db, refs); err != nil {
		return nil, err
	}

	logger.Debug("Planets retrieved", "count", len(planets))
	return planets, nil
}

func (r *Repository) ReplacePlanet(ctx context.Context, id int64, name string, population *int64, tx *database.Tx) (*Planet, error) {
	exec := r.getExecutor(tx)

	logger := r.logger.With("component", "planet_repository", "operation", "replace_planet", "planet_id", id)
	logger.Debug("Replacing planet")

	query := `
		UPDATE planets SET name = $2, population = $3
		WHERE id = $1
		RETURNING ` + planetColumns

	planet, err := scanPlanet(exec.QueryRowContext(ctx, query, id, name, population))
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			logger.Debug("Planet not found for replace")
			return nil, errors.NotFoundf("planet not found with id: %d", id)
		}
		logger.Error("Failed to replace planet", "error", err)
		return nil, mapError("failed to replace planet", err)
	}

	if err := r.loadFeatures(ctx, exec, []*Planet{planet}); err != nil {
		return nil, err
	}

	logger.Debug("Planet replaced")
	return planet, nil
}

func (r *Repository) DeletePlanet(ctx context.Context, id int64, tx *database.Tx) error {
	exec := r.getExecutor(tx)

	logger := r.logger.With("component", "planet_repository", "operation", "delete_planet", "planet_id", id)
	logger.Debug("Deleting planet")

	result, err := exec.ExecContext(ctx, `DELETE FROM planets WHERE id = $1`, id)
	if err != nil {
		logger.Error("Failed to delete planet", "error", err)
		return errors.WrapInternal("failed to delete planet", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		logger.Error("Failed to get rows affected", "error", err)
		return errors.WrapInternal("failed to get rows affected", err)
	}

	if rowsAffected == 0 {
		logger.Debug("Planet not found for deletion")
		return errors.NotFoundf("planet not found with id: %d", id)
	}

	logger.Info("Planet deleted")
	return nil
}

func (r *Repository) UpsertPlanetByName(ctx context.Context, name string, population *int64, tx *database.Tx) (*Planet, error) {
	if tx == nil {
		var planet *Planet
		err := r.RunInTx(ctx, func(tx *database.Tx) error {
			var err error
			planet, err = r.UpsertPlanetByName(ctx, name, population, tx)
			return err
		})
		return planet, err
	}

	logger := r.logger.With("component", "planet_repository", "operation", "upsert_planet", "name", name)
	logger.Debug("Upserting planet by name")

	// Planet names are not unique, so concurrent upserts of one name are serialised here
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1, hashtext($2))`, planetNameLockClass, name); err != nil {
		logger.Error("Failed to acquire planet name lock", "error", err)
		return nil, errors.WrapInternal("failed to lock planet name", err)
	}

	update := `
		UPDATE planets SET population = $2
		WHERE id = (SELECT id FROM planets WHERE name = $1 ORDER BY id LIMIT 1)
		RETURNING ` + planetColumns

	planet, err := scanPlanet(tx.QueryRowContext(ctx, update, name, population))
	switch {
	case err == nil:
		logger.Debug("Existing planet updated", "planet_id", planet.ID)
	case stderrors.Is(err, sql.ErrNoRows):
		planet, err = r.CreatePlanet(ctx, name, population, tx)
		if err != nil {
			return nil, err
		}
	default:
		logger.Error("Failed to update planet by name", "error", err)
		return nil, mapError("failed to upsert planet", err)
	}

	if err := r.loadFeatures(ctx, tx, []*Planet{planet}); err != nil {
		return nil, err
	}
	return planet, nil
}

func (r *Repository) UpsertFeatureByName(ctx context.Context, kind FeatureKind, name string, tx *database.Tx) (*Feature, error) {
	exec := r.getExecutor(tx)

	ft, ok := featureTables[kind]
	if !ok {
		return nil, errors.Validation(fmt.Sprintf("unknown feature kind: %q", kind))
	}

	logger := r.logger.With("component", "planet_repository", "operation", "upsert_feature", "kind", kind, "name", name)
	logger.Debug("Upserting feature by name")

	// The no-op update makes RETURNING yield the row on conflict as well
	query := fmt.Sprintf(`
		INSERT INTO %s (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name`, ft.table)

	var feature Feature
	if err := exec.QueryRowContext(ctx, query, name).Scan(&feature.ID, &feature.Name); err != nil {
		logger.Error("Failed to upsert feature", "error", err)
		return nil, mapError("failed to upsert "+kind.String(), err)
	}

	logger.Debug("Feature ready", "feature_id", feature.ID)
	return &feature, nil
}

func (r *Repository) Associate(ctx context.Context, planetID int64, kind FeatureKind, featureID int64, tx *database.Tx) error {
	exec := r.getExecutor(tx)

	ft, ok := featureTables[kind]
	if !ok {
		return errors.Validation(fmt.Sprintf("unknown feature kind: %q", kind))
	}

	logger := r.logger.With(
		"component", "planet_repository",
		"operation", "associate",
		"planet_id", planetID,
		"kind", kind,
		"feature_id", featureID,
	)

	query := fmt.Sprintf(`
		INSERT INTO %s (planet_id, %s) VALUES ($1, $2)
		ON CONFLICT (planet_id, %s) DO NOTHING`, ft.link, ft.column, ft.column)

	result, err := exec.ExecContext(ctx, query, planetID, featureID)
	if err != nil {
		logger.Error("Failed to associate feature", "error", err)
		return mapError(fmt.Sprintf("failed to associate %s %d with planet %d", kind, featureID, planetID), err)
	}

	if n, err := result.RowsAffected(); err == nil && n == 0 {
		logger.Debug("Association already present")
	}
	return nil
}

// loadFeatures fills Terrains and Climates for the given planets, in link insertion order.
func (r *Repository) loadFeatures(ctx context.Context, exec database.Executor, planets []*Planet) error {
	if len(planets) == 0 {
		return nil
	}

	byID := make(map[int64]*Planet, len(planets))
	ids := make([]int64, 0, len(planets))
	for _, p := range planets {
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}

	for _, kind := range FeatureKinds {
		ft := featureTables[kind]
		query := fmt.Sprintf(`
			SELECT l.planet_id, f.id, f.name
			FROM %s l
			JOIN %s f ON f.id = l.%s
			WHERE l.planet_id = ANY($1)
			ORDER BY l.planet_id, l.id`, ft.link, ft.table, ft.column)

		if err := r.scanFeatures(ctx, exec, query, pq.Array(ids), kind, byID); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) scanFeatures(ctx context.Context, exec database.Executor, query string, ids interface{}, kind FeatureKind, byID map[int64]*Planet) error {
	logger := r.logger.With("component", "planet_repository", "operation", "load_features", "kind", kind)

	rows, err := exec.QueryContext(ctx, query, ids)
	if err != nil {
		logger.Error("Failed to query features", "error", err)
		return errors.WrapInternal("failed to query "+kind.String()+"s", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("Failed to close rows", "error", err)
		}
	}()

	for rows.Next() {
		var planetID int64
		var feature Feature
		if err := rows.Scan(&planetID, &feature.ID, &feature.Name); err != nil {
			logger.Error("Failed to scan feature row", "error", err)
			return errors.WrapInternal("failed to scan "+kind.String(), err)
		}
		if p, ok := byID[planetID]; ok {
			p.setFeatures(kind, append(p.Features(kind), feature))
		}
	}

	if err := rows.Err(); err != nil {
		logger.Error("Error during rows iteration", "error", err)
		return errors.WrapInternal("error iterating "+kind.String()+"s", err)
	}
	return nil
}

// mapError translates Postgres constraint failures into application errors.
func mapError(message string, err error) error {
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pgerrcode.ForeignKeyViolation:
			return errors.WrapNotFound(message, err)
		case pgerrcode.CheckViolation, pgerrcode.StringDataRightTruncationDataException, pgerrcode.NotNullViolation,
			pgerrcode.CharacterNotInRepertoire:
			return errors.WrapValidation(message, err)
		case pgerrcode.UniqueViolation:
			return &errors.AppError{Type: errors.ErrorTypeConflict, Message: message, Err: err}
		}
	}
	return errors.WrapInternal(message, err)
}
