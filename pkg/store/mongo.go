package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"page-monitor/pkg/domain"
)

const (
	snapshotsCollection = "snapshots"
	reportsCollection   = "change_reports"

	currentSnapshotID = "current"
)

// snapshotDocument is the stored form of the single snapshot.
type snapshotDocument struct {
	ID              string `bson:"_id"`
	domain.Snapshot `bson:",inline"`
}

// MongoStore keeps the snapshot as one document and each report as its own document.
type MongoStore struct {
	snapshots *mongo.Collection
	reports   *mongo.Collection
	closer    func(ctx context.Context) error
}

// NewMongoStore creates a store on the given collections. closer, if not nil,
// is called by Close.
func NewMongoStore(snapshots, reports *mongo.Collection, closer func(ctx context.Context) error) (*MongoStore, error) {
	if snapshots == nil || reports == nil {
		return nil, fmt.Errorf("mongo collections are required")
	}
	return &MongoStore{snapshots: snapshots, reports: reports, closer: closer}, nil
}

// LoadSnapshot implements Store
func (s *MongoStore) LoadSnapshot(ctx context.Context) (domain.Snapshot, bool, error) {
	var doc snapshotDocument
	err := s.snapshots.FindOne(ctx, bson.M{"_id": currentSnapshotID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Snapshot{}, false, nil
	}
	if err != nil {
		return domain.Snapshot{}, false, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return doc.Snapshot, true, nil
}

// SaveSnapshot implements Store
func (s *MongoStore) SaveSnapshot(ctx context.Context, snap domain.Snapshot) error {
	doc := snapshotDocument{ID: currentSnapshotID, Snapshot: snap}
	opts := options.Replace().SetUpsert(true)

	if _, err := s.snapshots.ReplaceOne(ctx, bson.M{"_id": currentSnapshotID}, doc, opts); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// AppendReport implements Store
func (s *MongoStore) AppendReport(ctx context.Context, report domain.ChangeReport) (string, error) {
	base := report.ID
	for attempt := 0; attempt < maxReportSuffix; attempt++ {
		report.ID = candidateID(base, attempt)
		_, err := s.reports.InsertOne(ctx, report)
		if mongo.IsDuplicateKeyError(err) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to insert report: %w", err)
		}
		return reportsCollection + "/" + report.ID, nil
	}
	return "", fmt.Errorf("%w: %s", ErrReportExists, base)
}

// ListReports implements Store
func (s *MongoStore) ListReports(ctx context.Context) ([]domain.ChangeReport, error) {
	cursor, err := s.reports.Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer cursor.Close(ctx)

	var reports []domain.ChangeReport
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	sortReports(reports)
	return reports, nil
}

// Close implements Store
func (s *MongoStore) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer(context.Background())
}
