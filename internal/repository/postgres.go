package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"hdbsearch/internal/model"
)

// metersPerDegree converts a radius in meters to the degree-space used by
// the station coordinate vectors
const metersPerDegree = 111000.0

// listingLimit caps rows returned by a single listing search
const listingLimit = 200

// Schema creates the tables backing the in-process tool service
const Schema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS hdb_resale (
	id             BIGSERIAL PRIMARY KEY,
	month          TEXT,
	town           TEXT NOT NULL,
	flat_type      TEXT NOT NULL,
	block          TEXT NOT NULL,
	street_name    TEXT NOT NULL,
	storey_range   TEXT,
	floor_area_sqm DOUBLE PRECISION,
	resale_price   DOUBLE PRECISION NOT NULL,
	lat            DOUBLE PRECISION,
	lon            DOUBLE PRECISION
);
CREATE INDEX IF NOT EXISTS hdb_resale_search_idx ON hdb_resale (town, flat_type, resale_price);

CREATE TABLE IF NOT EXISTS mrt_station_towns (
	mrt_station TEXT NOT NULL,
	town        TEXT NOT NULL,
	distance_m  DOUBLE PRECISION
);

CREATE TABLE IF NOT EXISTS mrt_stations (
	label    TEXT PRIMARY KEY,
	location vector(2) NOT NULL
);

CREATE TABLE IF NOT EXISTS search_logs (
	search_id        UUID PRIMARY KEY,
	query            TEXT NOT NULL,
	intent           JSONB,
	result_count     INT,
	response_time_ms INT,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// PostgresRepository handles database operations
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(dsn string, maxConn, maxIdleConn int) (*PostgresRepository, error) {
	// Disable prepared statement caching to avoid "unnamed prepared statement does not exist" errors
	if !strings.Contains(dsn, "?") && strings.Contains(dsn, "://") {
		dsn += "?prefer_simple_protocol=true"
	} else if strings.Contains(dsn, "://") {
		dsn += "&prefer_simple_protocol=true"
	}

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(maxConn)
	db.SetMaxIdleConns(maxIdleConn)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	return &PostgresRepository{db: db}, nil
}

// Close closes the database connection
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

// Migrate creates the schema if it does not exist
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// StationDistrict is one district served by a station
type StationDistrict struct {
	Station   string   `db:"mrt_station"`
	Town      string   `db:"town"`
	DistanceM *float64 `db:"distance_m"`
}

// StationDistricts returns the district codes served by station, closest first.
// The station name matches with or without its " MRT STATION" suffix.
func (r *PostgresRepository) StationDistricts(ctx context.Context, station string) ([]StationDistrict, error) {
	query := `
		SELECT mrt_station, town, distance_m
		FROM mrt_station_towns
		WHERE UPPER(mrt_station) = UPPER($1)
		   OR UPPER(mrt_station) = UPPER($1) || ' MRT STATION'
		ORDER BY distance_m ASC NULLS LAST
	`
	var rows []StationDistrict
	if err := r.db.SelectContext(ctx, &rows, query, strings.TrimSpace(station)); err != nil {
		return nil, fmt.Errorf("failed to query station districts: %w", err)
	}
	return rows, nil
}

// Flat is one resale transaction
type Flat struct {
	Block        string   `db:"block"`
	StreetName   string   `db:"street_name"`
	ResalePrice  float64  `db:"resale_price"`
	Lat          *float64 `db:"lat"`
	Lon          *float64 `db:"lon"`
	Town         string   `db:"town"`
	FlatType     string   `db:"flat_type"`
	Month        *string  `db:"month"`
	StoreyRange  *string  `db:"storey_range"`
	FloorAreaSqm *float64 `db:"floor_area_sqm"`
}

// ListFlats returns resale flats in town of flatType priced at or below
// maxPrice, cheapest first
func (r *PostgresRepository) ListFlats(ctx context.Context, town, flatType string, maxPrice float64) ([]Flat, error) {
	query := `
		SELECT block, street_name, resale_price, lat, lon, town, flat_type,
			month, storey_range, floor_area_sqm
		FROM hdb_resale
		WHERE town = $1 AND flat_type = $2 AND resale_price <= $3
		ORDER BY resale_price ASC, month DESC NULLS LAST
		LIMIT $4
	`
	var flats []Flat
	if err := r.db.SelectContext(ctx, &flats, query, town, flatType, maxPrice, listingLimit); err != nil {
		return nil, fmt.Errorf("failed to list flats: %w", err)
	}
	return flats, nil
}

// NearbyStation is a station and its distance in degrees from a point
type NearbyStation struct {
	Label   string  `db:"label"`
	Degrees float64 `db:"dist_m"`
}

// NearestStations returns stations within radiusMeters of (lat, lon), nearest
// first. Distances are Euclidean in degree space, as computed by pgvector.
func (r *PostgresRepository) NearestStations(ctx context.Context, lat, lon float64, radiusMeters float64, limit int) ([]NearbyStation, error) {
	point := pgvector.NewVector([]float32{float32(lat), float32(lon)})
	query := `
		SELECT label, location <-> $1 AS dist_m
		FROM mrt_stations
		WHERE location <-> $1 <= $2
		ORDER BY location <-> $1
		LIMIT $3
	`
	var stations []NearbyStation
	if err := r.db.SelectContext(ctx, &stations, query, point, radiusMeters/metersPerDegree, limit); err != nil {
		return nil, fmt.Errorf("failed to query nearest stations: %w", err)
	}
	return stations, nil
}

// RecordRun logs a completed pipeline run to search_logs
func (r *PostgresRepository) RecordRun(ctx context.Context, rec model.RunRecord) error {
	query := `
		INSERT INTO search_logs (search_id, query, intent, result_count, response_time_ms)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query, rec.RunID, rec.Query, rec.Intent, rec.ResultCount, rec.ResponseTimeMs)
	if err != nil {
		return fmt.Errorf("failed to log run: %w", err)
	}
	return nil
}
