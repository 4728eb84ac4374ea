package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bwise1/barrier_reports/internal/db"
	"github.com/bwise1/barrier_reports/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Postgres stores reports and areas in PostGIS. Report locations are
// geography points, area boundaries geometry polygons, both in SRID 4326
// with longitude first.
type Postgres struct {
	db *db.DB
}

func NewPostgres(database *db.DB) *Postgres {
	return &Postgres{db: database}
}

func (p *Postgres) Driver() string { return "postgres" }

const reportColumns = `
    id::text, created_at,
    ST_Y(location::geometry) AS latitude, ST_X(location::geometry) AS longitude,
    media_url, media_type, file_name, file_size,
    category, severity, summary, confidence,
    geo_method, status, area_id::text, match_basis, matched_at`

func scanReport(row pgx.Row) (model.Report, error) {
	var (
		r          model.Report
		areaID     *string
		matchBasis *string
		matchedAt  *time.Time
	)
	err := row.Scan(
		&r.ID, &r.CreatedAt,
		&r.Coordinates.Lat, &r.Coordinates.Lng,
		&r.MediaURL, &r.MediaType, &r.FileName, &r.FileSize,
		&r.Analysis.Category, &r.Analysis.Severity, &r.Analysis.Summary, &r.Analysis.Confidence,
		&r.GeoMethod, &r.Status, &areaID, &matchBasis, &matchedAt,
	)
	if err != nil {
		return model.Report{}, err
	}
	if areaID != nil {
		r.Routing = &model.Routing{AreaID: *areaID}
		if matchBasis != nil {
			r.Routing.MatchBasis = *matchBasis
		}
		if matchedAt != nil {
			r.Routing.MatchedAt = matchedAt.UTC()
		}
	}
	r.CreatedAt = r.CreatedAt.UTC()
	return r, nil
}

func (p *Postgres) InsertReport(ctx context.Context, r model.Report) (model.Report, error) {
	var (
		areaID     *uuid.UUID
		matchBasis *string
		matchedAt  *time.Time
	)
	if r.Routing != nil {
		id, err := uuid.Parse(r.Routing.AreaID)
		if err != nil {
			return model.Report{}, errors.Wrapf(err, "routing area id %q", r.Routing.AreaID)
		}
		areaID, matchBasis, matchedAt = &id, &r.Routing.MatchBasis, &r.Routing.MatchedAt
	}

	query := `
        INSERT INTO reports (
            id, created_at, location, media_url, media_type, file_name, file_size,
            category, severity, summary, confidence, geo_method, status,
            area_id, match_basis, matched_at
        ) VALUES (
            $1, $2, ST_SetSRID(ST_MakePoint($3, $4), 4326)::geography, $5, $6, $7, $8,
            $9, $10, $11, $12, $13, $14,
            $15, $16, $17
        ) RETURNING ` + reportColumns

	row := p.db.Pool().QueryRow(ctx, query,
		uuid.New(), r.CreatedAt, r.Coordinates.Lng, r.Coordinates.Lat,
		r.MediaURL, string(r.MediaType), r.FileName, r.FileSize,
		string(r.Analysis.Category), string(r.Analysis.Severity), r.Analysis.Summary, r.Analysis.Confidence,
		string(r.GeoMethod), r.Status,
		areaID, matchBasis, matchedAt,
	)
	created, err := scanReport(row)
	if err != nil {
		return model.Report{}, errors.Wrap(err, "insert report")
	}
	return created, nil
}

func (p *Postgres) ListReports(ctx context.Context, f model.ReportFilter) ([]model.Report, error) {
	var (
		where []string
		args  []interface{}
	)
	add := func(clause string, v interface{}) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if f.Category != "" {
		add("category = $%d", string(f.Category))
	}
	if f.Severity != "" {
		add("severity = $%d", string(f.Severity))
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.AreaID != "" {
		id, err := uuid.Parse(f.AreaID)
		if err != nil {
			return nil, ErrInvalidID
		}
		add("area_id = $%d", id)
	}

	query := "SELECT " + reportColumns + " FROM reports"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, seq DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := p.db.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying reports")
	}
	defer rows.Close()

	var reports []model.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning report")
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

func (p *Postgres) GetReport(ctx context.Context, id string) (model.Report, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return model.Report{}, ErrInvalidID
	}
	row := p.db.Pool().QueryRow(ctx, "SELECT "+reportColumns+" FROM reports WHERE id = $1", uid)
	r, err := scanReport(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Report{}, ErrNotFound
	}
	return r, err
}

func (p *Postgres) DeleteReport(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return ErrInvalidID
	}
	result, err := p.db.Pool().Exec(ctx, "DELETE FROM reports WHERE id = $1", uid)
	if err != nil {
		return errors.Wrap(err, "delete report")
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) UpdateReportStatus(ctx context.Context, id, status string) (model.Report, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return model.Report{}, ErrInvalidID
	}
	row := p.db.Pool().QueryRow(ctx,
		"UPDATE reports SET status = $1 WHERE id = $2 RETURNING "+reportColumns, status, uid)
	r, err := scanReport(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Report{}, ErrNotFound
	}
	return r, err
}

// polygonWKT renders a closed ring as WKT, longitude first.
func polygonWKT(ring []model.Coordinates) string {
	parts := make([]string, len(ring))
	for i, c := range ring {
		parts[i] = fmt.Sprintf("%.10f %.10f", c.Lng, c.Lat)
	}
	return "POLYGON((" + strings.Join(parts, ", ") + "))"
}

type geoJSONPolygon struct {
	Coordinates [][][2]float64 `json:"coordinates"`
}

func ringFromGeoJSON(raw string) ([]model.Coordinates, error) {
	var poly geoJSONPolygon
	if err := json.Unmarshal([]byte(raw), &poly); err != nil {
		return nil, err
	}
	if len(poly.Coordinates) == 0 {
		return nil, fmt.Errorf("polygon without rings")
	}
	ring := make([]model.Coordinates, len(poly.Coordinates[0]))
	for i, xy := range poly.Coordinates[0] {
		ring[i] = model.Coordinates{Lat: xy[1], Lng: xy[0]}
	}
	return ring, nil
}

// 15 decimal digits keeps the boundary at full float64 precision; the
// ST_AsGeoJSON default of 9 rounds vertices.
const areaColumns = `id::text, name, ST_AsGeoJSON(boundary, 15), active, created_at`

// ST_Covers counts boundary points as inside, unlike ST_Contains.
const containingAreaQuery = "SELECT " + areaColumns + ` FROM areas
        WHERE active AND ST_Covers(boundary, ST_SetSRID(ST_MakePoint($1, $2), 4326))
        ORDER BY id LIMIT 1`

func scanArea(row pgx.Row) (model.Area, error) {
	var (
		a   model.Area
		raw string
	)
	if err := row.Scan(&a.ID, &a.Name, &raw, &a.Active, &a.CreatedAt); err != nil {
		return model.Area{}, err
	}
	ring, err := ringFromGeoJSON(raw)
	if err != nil {
		return model.Area{}, errors.Wrapf(err, "area %s boundary", a.ID)
	}
	a.Boundary = ring
	a.CreatedAt = a.CreatedAt.UTC()
	return a, nil
}

func (p *Postgres) InsertArea(ctx context.Context, a model.Area) (model.Area, error) {
	row := p.db.Pool().QueryRow(ctx, `
        INSERT INTO areas (id, name, boundary, active, created_at)
        VALUES ($1, $2, ST_GeomFromText($3, 4326), $4, $5)
        RETURNING `+areaColumns,
		uuid.New(), a.Name, polygonWKT(a.Boundary), a.Active, a.CreatedAt,
	)
	created, err := scanArea(row)
	if err != nil {
		return model.Area{}, errors.Wrap(err, "insert area")
	}
	return created, nil
}

func (p *Postgres) ListAreas(ctx context.Context) ([]model.Area, error) {
	rows, err := p.db.Pool().Query(ctx, "SELECT "+areaColumns+" FROM areas ORDER BY id")
	if err != nil {
		return nil, errors.Wrap(err, "querying areas")
	}
	defer rows.Close()

	var areas []model.Area
	for rows.Next() {
		a, err := scanArea(rows)
		if err != nil {
			return nil, err
		}
		areas = append(areas, a)
	}
	return areas, rows.Err()
}

func (p *Postgres) ContainingArea(ctx context.Context, pt model.Coordinates) (model.Area, bool, error) {
	a, err := scanArea(p.db.Pool().QueryRow(ctx, containingAreaQuery, pt.Lng, pt.Lat))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Area{}, false, nil
	}
	if err != nil {
		return model.Area{}, false, errors.Wrap(err, "containing area")
	}
	return a, true, nil
}

func (p *Postgres) DeleteArea(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return ErrInvalidID
	}
	result, err := p.db.Pool().Exec(ctx, "DELETE FROM areas WHERE id = $1", uid)
	if err != nil {
		return errors.Wrap(err, "delete area")
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

var postgresSchema = []struct {
	name string
	stmt string
}{
	{"postgis", `CREATE EXTENSION IF NOT EXISTS postgis`},
	{"areas", `CREATE TABLE IF NOT EXISTS areas (
        id uuid PRIMARY KEY,
        name text NOT NULL,
        boundary geometry(Polygon, 4326) NOT NULL,
        active boolean NOT NULL DEFAULT true,
        created_at timestamptz NOT NULL DEFAULT NOW()
    )`},
	{"reports", `CREATE TABLE IF NOT EXISTS reports (
        id uuid PRIMARY KEY,
        seq bigserial,
        created_at timestamptz NOT NULL,
        location geography(Point, 4326) NOT NULL,
        media_url text NOT NULL,
        media_type text NOT NULL,
        file_name text NOT NULL,
        file_size bigint NOT NULL DEFAULT 0,
        category text NOT NULL,
        severity text NOT NULL,
        summary text NOT NULL DEFAULT '',
        confidence double precision NOT NULL,
        geo_method text NOT NULL,
        status text NOT NULL DEFAULT 'open',
        area_id uuid,
        match_basis text,
        matched_at timestamptz
    )`},
	{"reports_location_gix", `CREATE INDEX IF NOT EXISTS reports_location_gix ON reports USING GIST (location)`},
	{"areas_boundary_gix", `CREATE INDEX IF NOT EXISTS areas_boundary_gix ON areas USING GIST (boundary)`},
	{"reports_status_idx", `CREATE INDEX IF NOT EXISTS reports_status_idx ON reports (status)`},
	{"reports_created_at_idx", `CREATE INDEX IF NOT EXISTS reports_created_at_idx ON reports (created_at DESC, seq DESC)`},
	{"reports_area_id_idx", `CREATE INDEX IF NOT EXISTS reports_area_id_idx ON reports (area_id)`},
	{"reports_category_severity_idx", `CREATE INDEX IF NOT EXISTS reports_category_severity_idx ON reports (category, severity)`},
}

// EnsureIndexes creates the schema and indexes in one transaction. It is safe
// to run repeatedly.
func (p *Postgres) EnsureIndexes(ctx context.Context) ([]string, error) {
	names := make([]string, 0, len(postgresSchema))
	err := p.db.RunInTx(ctx, func(tx pgx.Tx) error {
		for _, s := range postgresSchema {
			if _, err := tx.Exec(ctx, s.stmt); err != nil {
				return errors.Wrapf(err, "ensure %s", s.name)
			}
			names = append(names, s.name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

func (p *Postgres) Stats(ctx context.Context) (model.DBStatus, error) {
	status := model.DBStatus{Driver: p.Driver()}
	if err := p.db.Pool().Ping(ctx); err != nil {
		return status, errors.Wrap(err, "ping postgres")
	}
	status.Connected = true

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.db.Pool().QueryRow(gctx, "SELECT COUNT(*) FROM reports").Scan(&status.Reports)
	})
	g.Go(func() error {
		return p.db.Pool().QueryRow(gctx, "SELECT COUNT(*) FROM areas").Scan(&status.Areas)
	})
	if err := g.Wait(); err != nil {
		return status, errors.Wrap(err, "count records")
	}
	return status, nil
}

func (p *Postgres) Close(context.Context) error {
	p.db.Close()
	return nil
}
