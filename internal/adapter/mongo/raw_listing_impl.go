package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/user/listing-pipeline/internal/entity"
	"github.com/user/listing-pipeline/internal/repository"
)

const rawRunField = "crawl_run_id"

// RawListingRepoImpl stores extracted records in the raw acquisition collection.
type RawListingRepoImpl struct {
	coll *mongo.Collection
}

func NewRawListingRepo(coll *mongo.Collection) *RawListingRepoImpl {
	return &RawListingRepoImpl{coll: coll}
}

var _ repository.RawListingRepository = (*RawListingRepoImpl)(nil)

func (r *RawListingRepoImpl) EnsureIndexes(ctx context.Context) error {
	return EnsureIndexes(ctx, r.coll, rawRunField)
}

func (r *RawListingRepoImpl) Upsert(ctx context.Context, rec *entity.ListingRecord) error {
	return upsertByKey(ctx, r.coll, rec.Code, rec.Website, rec)
}

func (r *RawListingRepoImpl) ForEachInRun(ctx context.Context, runID string, fn func(*entity.ListingRecord) error) error {
	return forEach(ctx, r.coll, bson.D{{Key: rawRunField, Value: runID}}, fn)
}
