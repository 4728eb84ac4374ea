package store

import (
	"context"
	"time"

	"github.com/bwise1/barrier_reports/internal/db"
	"github.com/bwise1/barrier_reports/internal/model"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"
)

const (
	reportsCollection = "reports"
	areasCollection   = "areas"
)

// Mongo stores reports and areas as GeoJSON documents. Points and rings are
// kept longitude first.
type Mongo struct {
	conn *db.Mongo
	db   *mongo.Database
}

func NewMongo(conn *db.Mongo) *Mongo {
	return &Mongo{conn: conn, db: conn.Database()}
}

func (m *Mongo) Driver() string { return "mongo" }

type geoPoint struct {
	Type        string     `bson:"type"`
	Coordinates [2]float64 `bson:"coordinates"`
}

type geoPolygon struct {
	Type        string         `bson:"type"`
	Coordinates [][][2]float64 `bson:"coordinates"`
}

type mediaDoc struct {
	Kind     string `bson:"kind"`
	URL      string `bson:"url"`
	FileName string `bson:"fileName"`
	Size     int64  `bson:"size"`
}

type analysisDoc struct {
	Category   string  `bson:"category"`
	Severity   string  `bson:"severity"`
	Summary    string  `bson:"summary"`
	Confidence float64 `bson:"confidence"`
}

type routingDoc struct {
	AreaID     string    `bson:"areaId"`
	MatchBasis string    `bson:"matchBasis"`
	MatchedAt  time.Time `bson:"matchedAt"`
}

type reportDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	CreatedAt time.Time          `bson:"createdAt"`
	Location  geoPoint           `bson:"location"`
	Media     mediaDoc           `bson:"media"`
	Analysis  analysisDoc        `bson:"analysis"`
	GeoMethod string             `bson:"geoMethod"`
	Status    string             `bson:"status"`
	Routing   *routingDoc        `bson:"routing,omitempty"`
}

type areaDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Polygon   geoPolygon         `bson:"polygon"`
	Active    bool               `bson:"active"`
	CreatedAt time.Time          `bson:"createdAt"`
}

func toReportDoc(r model.Report) reportDoc {
	doc := reportDoc{
		CreatedAt: r.CreatedAt,
		Location:  geoPoint{Type: "Point", Coordinates: [2]float64{r.Coordinates.Lng, r.Coordinates.Lat}},
		Media: mediaDoc{
			Kind:     string(r.MediaType),
			URL:      r.MediaURL,
			FileName: r.FileName,
			Size:     r.FileSize,
		},
		Analysis: analysisDoc{
			Category:   string(r.Analysis.Category),
			Severity:   string(r.Analysis.Severity),
			Summary:    r.Analysis.Summary,
			Confidence: r.Analysis.Confidence,
		},
		GeoMethod: string(r.GeoMethod),
		Status:    r.Status,
	}
	if r.Routing != nil {
		doc.Routing = &routingDoc{
			AreaID:     r.Routing.AreaID,
			MatchBasis: r.Routing.MatchBasis,
			MatchedAt:  r.Routing.MatchedAt,
		}
	}
	return doc
}

func (d reportDoc) toModel() model.Report {
	r := model.Report{
		ID:          d.ID.Hex(),
		CreatedAt:   d.CreatedAt.UTC(),
		Coordinates: model.Coordinates{Lat: d.Location.Coordinates[1], Lng: d.Location.Coordinates[0]},
		MediaURL:    d.Media.URL,
		MediaType:   model.MediaKind(d.Media.Kind),
		FileName:    d.Media.FileName,
		FileSize:    d.Media.Size,
		Analysis: model.AnalysisResult{
			Category:   model.Category(d.Analysis.Category),
			Severity:   model.Severity(d.Analysis.Severity),
			Summary:    d.Analysis.Summary,
			Confidence: d.Analysis.Confidence,
		},
		GeoMethod: model.GeoMethod(d.GeoMethod),
		Status:    d.Status,
	}
	if d.Routing != nil {
		r.Routing = &model.Routing{
			AreaID:     d.Routing.AreaID,
			MatchBasis: d.Routing.MatchBasis,
			MatchedAt:  d.Routing.MatchedAt.UTC(),
		}
	}
	return r
}

func (d areaDoc) toModel() model.Area {
	a := model.Area{ID: d.ID.Hex(), Name: d.Name, Active: d.Active, CreatedAt: d.CreatedAt.UTC()}
	if len(d.Polygon.Coordinates) > 0 {
		for _, xy := range d.Polygon.Coordinates[0] {
			a.Boundary = append(a.Boundary, model.Coordinates{Lat: xy[1], Lng: xy[0]})
		}
	}
	return a
}

func parseObjectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidID
	}
	return oid, nil
}

func (m *Mongo) reports() *mongo.Collection { return m.db.Collection(reportsCollection) }
func (m *Mongo) areas() *mongo.Collection   { return m.db.Collection(areasCollection) }

func (m *Mongo) InsertReport(ctx context.Context, r model.Report) (model.Report, error) {
	doc := toReportDoc(r)
	doc.ID = primitive.NewObjectID()
	if _, err := m.reports().InsertOne(ctx, doc); err != nil {
		return model.Report{}, errors.Wrap(err, "insert report")
	}
	return doc.toModel(), nil
}

func (m *Mongo) ListReports(ctx context.Context, f model.ReportFilter) ([]model.Report, error) {
	filter := bson.M{}
	if f.Category != "" {
		filter["analysis.category"] = string(f.Category)
	}
	if f.Severity != "" {
		filter["analysis.severity"] = string(f.Severity)
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.AreaID != "" {
		filter["routing.areaId"] = f.AreaID
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}

	cur, err := m.reports().Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrap(err, "find reports")
	}
	defer cur.Close(ctx)

	var reports []model.Report
	for cur.Next(ctx) {
		var doc reportDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, errors.Wrap(err, "decode report")
		}
		reports = append(reports, doc.toModel())
	}
	return reports, cur.Err()
}

func (m *Mongo) GetReport(ctx context.Context, id string) (model.Report, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return model.Report{}, err
	}
	var doc reportDoc
	err = m.reports().FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Report{}, ErrNotFound
	}
	if err != nil {
		return model.Report{}, errors.Wrap(err, "find report")
	}
	return doc.toModel(), nil
}

func (m *Mongo) DeleteReport(ctx context.Context, id string) error {
	oid, err := parseObjectID(id)
	if err != nil {
		return err
	}
	res, err := m.reports().DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return errors.Wrap(err, "delete report")
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) UpdateReportStatus(ctx context.Context, id, status string) (model.Report, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return model.Report{}, err
	}
	var doc reportDoc
	err = m.reports().FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"status": status}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Report{}, ErrNotFound
	}
	if err != nil {
		return model.Report{}, errors.Wrap(err, "update report status")
	}
	return doc.toModel(), nil
}

func (m *Mongo) InsertArea(ctx context.Context, a model.Area) (model.Area, error) {
	ring := make([][2]float64, len(a.Boundary))
	for i, c := range a.Boundary {
		ring[i] = [2]float64{c.Lng, c.Lat}
	}
	doc := areaDoc{
		ID:        primitive.NewObjectID(),
		Name:      a.Name,
		Polygon:   geoPolygon{Type: "Polygon", Coordinates: [][][2]float64{ring}},
		Active:    a.Active,
		CreatedAt: a.CreatedAt,
	}
	if _, err := m.areas().InsertOne(ctx, doc); err != nil {
		return model.Area{}, errors.Wrap(err, "insert area")
	}
	return doc.toModel(), nil
}

func (m *Mongo) findAreas(ctx context.Context, filter bson.M) ([]model.Area, error) {
	cur, err := m.areas().Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(err, "find areas")
	}
	defer cur.Close(ctx)

	var docs []areaDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decode areas")
	}
	areas := make([]model.Area, len(docs))
	for i, d := range docs {
		areas[i] = d.toModel()
	}
	return areas, nil
}

func (m *Mongo) ListAreas(ctx context.Context) ([]model.Area, error) {
	return m.findAreas(ctx, bson.M{})
}

// containingAreaFilter selects active areas whose polygon intersects p, which
// includes points on the boundary. Served by polygon_2dsphere.
func containingAreaFilter(p model.Coordinates) bson.M {
	return bson.M{
		"active": true,
		"polygon": bson.M{
			"$geoIntersects": bson.M{
				"$geometry": geoPoint{Type: "Point", Coordinates: [2]float64{p.Lng, p.Lat}},
			},
		},
	}
}

func (m *Mongo) ContainingArea(ctx context.Context, p model.Coordinates) (model.Area, bool, error) {
	var doc areaDoc
	err := m.areas().FindOne(ctx, containingAreaFilter(p),
		options.FindOne().SetSort(bson.D{{Key: "_id", Value: 1}}),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Area{}, false, nil
	}
	if err != nil {
		return model.Area{}, false, errors.Wrap(err, "containing area")
	}
	return doc.toModel(), true, nil
}

func (m *Mongo) DeleteArea(ctx context.Context, id string) error {
	oid, err := parseObjectID(id)
	if err != nil {
		return err
	}
	res, err := m.areas().DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return errors.Wrap(err, "delete area")
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) EnsureIndexes(ctx context.Context) ([]string, error) {
	reportIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "location", Value: "2dsphere"}}, Options: options.Index().SetName("location_2dsphere")},
		{Keys: bson.D{{Key: "status", Value: 1}}, Options: options.Index().SetName("status_1")},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}, Options: options.Index().SetName("createdAt_-1")},
		{Keys: bson.D{{Key: "routing.areaId", Value: 1}}, Options: options.Index().SetName("routing.areaId_1")},
		{
			Keys:    bson.D{{Key: "analysis.category", Value: 1}, {Key: "analysis.severity", Value: 1}},
			Options: options.Index().SetName("analysis.category_1_analysis.severity_1"),
		},
	}
	areaIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "polygon", Value: "2dsphere"}}, Options: options.Index().SetName("polygon_2dsphere")},
	}

	var reportNames, areaNames []string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		names, err := m.reports().Indexes().CreateMany(gctx, reportIndexes)
		reportNames = names
		return errors.Wrap(err, "report indexes")
	})
	g.Go(func() error {
		names, err := m.areas().Indexes().CreateMany(gctx, areaIndexes)
		areaNames = names
		return errors.Wrap(err, "area indexes")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return append(reportNames, areaNames...), nil
}

func (m *Mongo) Stats(ctx context.Context) (model.DBStatus, error) {
	status := model.DBStatus{Driver: m.Driver()}
	if err := m.db.Client().Ping(ctx, nil); err != nil {
		return status, errors.Wrap(err, "ping mongo")
	}
	status.Connected = true

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		status.Reports, err = m.reports().CountDocuments(gctx, bson.M{})
		return err
	})
	g.Go(func() (err error) {
		status.Areas, err = m.areas().CountDocuments(gctx, bson.M{})
		return err
	})
	if err := g.Wait(); err != nil {
		return status, errors.Wrap(err, "count documents")
	}
	return status, nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.conn.Close(ctx)
}
