package repository

import (
	"context"
	"errors"
	"fmt"
	slotserrors "reservo/internal/slots/errors"
	"reservo/pkg/config"
	mongodb "reservo/pkg/db/mongo"
	"reservo/pkg/model"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoSlotRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	guard      *mongo.Collection
	txManager  mongodb.TransactionManager
	writeMu    sync.Mutex
}

func NewMongoSlotRepository(cfg *config.Config) SlotRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSlotRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		guard:      db.Collection(GuardCollectionName),
		txManager:  mongodb.NewTransactionManager(cfg.Client.Mongo, cfg.Log),
	}
}

func (r *mongoSlotRepository) TryClaim(ctx context.Context, id string) (bool, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"_id": id, "available": true}
	update := bson.M{"$set": bson.M{"available": false}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to claim slot: %w", err)
	}
	return result.ModifiedCount == 1, nil
}

func (r *mongoSlotRepository) Release(ctx context.Context, id string) error {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"available": true}})
	if err != nil {
		return fmt.Errorf("failed to release slot: %w", err)
	}
	return nil
}

func (r *mongoSlotRepository) Exists(ctx context.Context, id string) (bool, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check slot existence: %w", err)
	}
	return n > 0, nil
}

func (r *mongoSlotRepository) FindByID(ctx context.Context, id string) (*model.Slot, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoSlotRepository) FindByTime(ctx context.Context, start, end time.Time) (*model.Slot, error) {
	return r.findOne(ctx, bson.M{
		"start_time": start.UTC().Truncate(time.Millisecond),
		"end_time":   end.UTC().Truncate(time.Millisecond),
	})
}

func (r *mongoSlotRepository) findOne(ctx context.Context, filter bson.M) (*model.Slot, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var slot model.Slot
	err := r.collection.FindOne(ctx, filter).Decode(&slot)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, slotserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find slot: %w", err)
	}
	return &slot, nil
}

func (r *mongoSlotRepository) Create(ctx context.Context, slot *model.Slot) error {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	normalizeWindow(slot)
	slot.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	if _, err := r.collection.InsertOne(ctx, slot); err != nil {
		return fmt.Errorf("failed to create slot: %w", err)
	}
	return nil
}

// UpdateWindow only moves an unclaimed slot so a booking's copy of the
// window stays accurate.
func (r *mongoSlotRepository) UpdateWindow(ctx context.Context, id string, start, end time.Time) error {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"_id": id, "available": true}
	update := bson.M{"$set": bson.M{
		"start_time": start.UTC().Truncate(time.Millisecond),
		"end_time":   end.UTC().Truncate(time.Millisecond),
	}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update slot: %w", err)
	}
	if result.MatchedCount == 0 {
		return r.missOrClaimed(ctx, id)
	}
	return nil
}

// Delete removes an unclaimed slot. A concurrent TryClaim either lands first
// and the delete misses, or lands after and finds nothing.
func (r *mongoSlotRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "available": true})
	if err != nil {
		return fmt.Errorf("failed to delete slot: %w", err)
	}
	if result.DeletedCount == 0 {
		return r.missOrClaimed(ctx, id)
	}
	return nil
}

func (r *mongoSlotRepository) missOrClaimed(ctx context.Context, id string) error {
	exists, err := r.Exists(ctx, id)
	if err != nil {
		return err
	}
	if exists {
		return slotserrors.ErrClaimed
	}
	return slotserrors.ErrNotFound
}

func (r *mongoSlotRepository) FindAll(ctx context.Context, availableOnly bool, limit int, offset int64) ([]*model.Slot, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "start_time", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, availabilityFilter(availableOnly), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find slots: %w", err)
	}
	defer cursor.Close(ctx)

	var slots []*model.Slot
	if err = cursor.All(ctx, &slots); err != nil {
		return nil, fmt.Errorf("failed to decode slots: %w", err)
	}
	return slots, nil
}

func (r *mongoSlotRepository) Count(ctx context.Context, availableOnly bool) (int64, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, availabilityFilter(availableOnly))
	if err != nil {
		return 0, fmt.Errorf("failed to count slots: %w", err)
	}
	return count, nil
}

func (r *mongoSlotRepository) FindOverlapping(ctx context.Context, start, end time.Time, excludeID string) ([]*model.Slot, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"start_time": bson.M{"$lt": end.UTC()},
		"end_time":   bson.M{"$gt": start.UTC()},
	}
	if excludeID != "" {
		filter["_id"] = bson.M{"$ne": excludeID}
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find overlapping slots: %w", err)
	}
	defer cursor.Close(ctx)

	var slots []*model.Slot
	if err = cursor.All(ctx, &slots); err != nil {
		return nil, fmt.Errorf("failed to decode slots: %w", err)
	}
	return slots, nil
}

// ExecuteTransaction serializes slot administration. Inside the transaction
// the guard document is bumped before fn runs; two transactions touching it
// conflict and the driver retries the loser, whose overlap check then sees
// the winner's slot. writeMu covers standalone servers, which run fn without
// a transaction.
func (r *mongoSlotRepository) ExecuteTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	return r.txManager.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := r.bumpGuard(sessCtx); err != nil {
			return err
		}
		return fn(sessCtx)
	})
}

func (r *mongoSlotRepository) bumpGuard(ctx context.Context) error {
	_, err := r.guard.UpdateOne(ctx,
		bson.M{"_id": GuardID},
		bson.M{"$inc": bson.M{"version": 1}, "$currentDate": bson.M{"updated_at": true}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to take slot write guard: %w", err)
	}
	return nil
}

func availabilityFilter(availableOnly bool) bson.M {
	if availableOnly {
		return bson.M{"available": true}
	}
	return bson.M{}
}
