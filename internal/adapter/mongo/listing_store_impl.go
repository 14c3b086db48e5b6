package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/user/listing-pipeline/internal/entity"
	"github.com/user/listing-pipeline/internal/repository"
)

const processedRunField = "run_id"

// ListingStoreImpl backs the staging and processed collections.
type ListingStoreImpl struct {
	coll *mongo.Collection
}

func NewListingStore(coll *mongo.Collection) *ListingStoreImpl {
	return &ListingStoreImpl{coll: coll}
}

var _ repository.ListingStore = (*ListingStoreImpl)(nil)

func (s *ListingStoreImpl) EnsureIndexes(ctx context.Context) error {
	return EnsureIndexes(ctx, s.coll, processedRunField)
}

func (s *ListingStoreImpl) Upsert(ctx context.Context, l *entity.ProcessedListing) error {
	return upsertByKey(ctx, s.coll, l.Code, l.Website, l)
}

func (s *ListingStoreImpl) ForEachInRun(ctx context.Context, runID string, fn func(*entity.ProcessedListing) error) error {
	return forEach(ctx, s.coll, bson.D{{Key: processedRunField, Value: runID}}, fn)
}
