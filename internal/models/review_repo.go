package models

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ReviewEventType string

const (
	ReviewEventUpsert ReviewEventType = "upsert"
	ReviewEventDelete ReviewEventType = "delete"
)

// ReviewEvent is one change pushed by the reviews collection subscription.
type ReviewEvent struct {
	Type     ReviewEventType
	ReviewID primitive.ObjectID
	Review   *Review
}

type ReviewsRepo interface {
	InsertReview(ctx context.Context, review *Review) error
	ListReviews(ctx context.Context) ([]*Review, error)
	IncrementHelpful(ctx context.Context, reviewId primitive.ObjectID) error
	UpdateStatus(ctx context.Context, reviewId primitive.ObjectID, status ReviewStatus, moderatorId, note string, expectedVersion int64) (*Review, error)
	PushReply(ctx context.Context, reviewId primitive.ObjectID, reply AdminReply) error
	PushFlag(ctx context.Context, reviewId primitive.ObjectID, flag ReviewFlag) error
	WatchReviews(ctx context.Context, handler func(ReviewEvent)) error
}

func (mdb *MongodbRepo) GetCollection(ctx context.Context, dbName, colName string) (*mongo.Collection, error) {
	if mdb.mongodbClient == nil {
		return nil, fmt.Errorf("mongodb client is not initialized")
	}
	client := mdb.mongodbClient.Database(dbName).Collection(colName)
	return client, nil
}

func (mdb *MongodbRepo) InsertReview(ctx context.Context, review *Review) error {
	if err := review.ValidateDraft(); err != nil {
		return fmt.Errorf("invalid review data: %w", err)
	}

	if err := review.BeforeCreate(); err != nil {
		return fmt.Errorf("failed to prepare review for creation: %w", err)
	}

	col, err := mdb.GetCollection(ctx, ReviewDbName, ReviewColName)
	if err != nil {
		return fmt.Errorf("failed to create review: %w", err)
	}

	if _, err := col.InsertOne(ctx, review); err != nil {
		return fmt.Errorf("failed to insert review into database: %w", err)
	}

	return nil
}

// ListReviews returns the full reviews collection ordered by descending
// creation time. The collection is subscribed to in full; pagination is
// deliberately absent at current scale.
func (mdb *MongodbRepo) ListReviews(ctx context.Context) ([]*Review, error) {
	col, err := mdb.GetCollection(ctx, ReviewDbName, ReviewColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %v", err)
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("error finding reviews: %v", err)
	}
	defer cursor.Close(ctx)

	var reviews []*Review
	for cursor.Next(ctx) {
		var review Review
		if err := cursor.Decode(&review); err != nil {
			return nil, fmt.Errorf("error decoding review: %v", err)
		}
		reviews = append(reviews, &review)
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %v", err)
	}

	return reviews, nil
}

// IncrementHelpful bumps the helpful counter. The increment is commutative,
// so concurrent voters never clobber each other.
func (mdb *MongodbRepo) IncrementHelpful(ctx context.Context, reviewId primitive.ObjectID) error {
	col, err := mdb.GetCollection(ctx, ReviewDbName, ReviewColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %v", err)
	}

	res, err := col.UpdateOne(ctx,
		bson.M{"_id": reviewId},
		bson.M{"$inc": bson.M{"helpful_count": 1}},
	)
	if err != nil {
		return fmt.Errorf("error incrementing helpful count: %v", err)
	}
	if res.MatchedCount == 0 {
		return ErrReviewNotFound
	}

	return nil
}

// UpdateStatus applies a moderation decision with an optimistic concurrency
// check: the write only lands when the stored version still matches
// expectedVersion. A lost race surfaces as ErrVersionConflict rather than a
// silent last-write-wins.
func (mdb *MongodbRepo) UpdateStatus(ctx context.Context, reviewId primitive.ObjectID, status ReviewStatus, moderatorId, note string, expectedVersion int64) (*Review, error) {
	col, err := mdb.GetCollection(ctx, ReviewDbName, ReviewColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %v", err)
	}

	set := bson.M{
		"status":       status,
		"moderated_by": moderatorId,
		"moderated_at": time.Now(),
	}
	if note != "" {
		set["moderation_note"] = note
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated Review
	err = col.FindOneAndUpdate(ctx,
		bson.M{"_id": reviewId, "version": expectedVersion},
		bson.M{"$set": set, "$inc": bson.M{"version": 1}},
		opts,
	).Decode(&updated)
	if err == nil {
		return &updated, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, fmt.Errorf("error updating review status: %v", err)
	}

	// No match: distinguish a missing review from a stale version.
	count, countErr := col.CountDocuments(ctx, bson.M{"_id": reviewId})
	if countErr != nil {
		return nil, fmt.Errorf("error checking review existence: %v", countErr)
	}
	if count == 0 {
		return nil, ErrReviewNotFound
	}
	return nil, ErrVersionConflict
}

// PushReply appends an admin reply atomically. Concurrent replies from
// different admins are both preserved; order is arrival order at the
// primary, with the server-assigned timestamp as the authoritative sequence.
func (mdb *MongodbRepo) PushReply(ctx context.Context, reviewId primitive.ObjectID, reply AdminReply) error {
	col, err := mdb.GetCollection(ctx, ReviewDbName, ReviewColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %v", err)
	}

	res, err := col.UpdateOne(ctx,
		bson.M{"_id": reviewId},
		bson.M{"$push": bson.M{"admin_replies": reply}},
	)
	if err != nil {
		return fmt.Errorf("error appending admin reply: %v", err)
	}
	if res.MatchedCount == 0 {
		return ErrReviewNotFound
	}

	return nil
}

func (mdb *MongodbRepo) PushFlag(ctx context.Context, reviewId primitive.ObjectID, flag ReviewFlag) error {
	col, err := mdb.GetCollection(ctx, ReviewDbName, ReviewColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %v", err)
	}

	res, err := col.UpdateOne(ctx,
		bson.M{"_id": reviewId},
		bson.M{"$push": bson.M{"flags": flag}},
	)
	if err != nil {
		return fmt.Errorf("error appending review flag: %v", err)
	}
	if res.MatchedCount == 0 {
		return ErrReviewNotFound
	}

	return nil
}

type reviewChangeDoc struct {
	OperationType string  `bson:"operationType"`
	FullDocument  *Review `bson:"fullDocument"`
	DocumentKey   struct {
		ID primitive.ObjectID `bson:"_id"`
	} `bson:"documentKey"`
}

// WatchReviews subscribes to the reviews collection change stream and
// invokes handler for every event until ctx is cancelled. Updates carry the
// full post-image so the cache can merge whole documents.
func (mdb *MongodbRepo) WatchReviews(ctx context.Context, handler func(ReviewEvent)) error {
	col, err := mdb.GetCollection(ctx, ReviewDbName, ReviewColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %v", err)
	}

	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
	stream, err := col.Watch(ctx, mongo.Pipeline{}, opts)
	if err != nil {
		return fmt.Errorf("error opening reviews change stream: %v", err)
	}
	defer stream.Close(ctx)

	for stream.Next(ctx) {
		var change reviewChangeDoc
		if err := stream.Decode(&change); err != nil {
			return fmt.Errorf("error decoding change event: %v", err)
		}

		switch change.OperationType {
		case "insert", "update", "replace":
			if change.FullDocument != nil {
				handler(ReviewEvent{
					Type:     ReviewEventUpsert,
					ReviewID: change.FullDocument.ID,
					Review:   change.FullDocument,
				})
			}
		case "delete":
			handler(ReviewEvent{
				Type:     ReviewEventDelete,
				ReviewID: change.DocumentKey.ID,
			})
		}
	}

	if err := stream.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("reviews change stream error: %v", err)
	}

	return nil
}
