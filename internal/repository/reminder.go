package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"remindme/internal/models"
)

// ErrNotFound is returned when a record is absent or not owned by the caller.
var ErrNotFound = errors.New("not found")

// ReminderUpdate carries the fields of a partial update. Nil means the field
// is left untouched.
type ReminderUpdate struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	Priority    *models.Priority
	Completed   *bool
	Status      *models.Status
}

type ReminderRepository interface {
	Insert(ctx context.Context, reminder *models.Reminder) error
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Reminder, error)
	GetByID(ctx context.Context, userID, id primitive.ObjectID) (*models.Reminder, error)
	Update(ctx context.Context, userID, id primitive.ObjectID, update ReminderUpdate) (*models.Reminder, error)
	Delete(ctx context.Context, userID, id primitive.ObjectID) (*models.Reminder, error)
	FindDuePending(ctx context.Context, now time.Time, limit int64) ([]models.Reminder, error)
	ExpireIfPending(ctx context.Context, id primitive.ObjectID) (bool, error)
}

type reminderRepository struct {
	collection *mongo.Collection
}

func NewReminderRepository(db *mongo.Database) ReminderRepository {
	return &reminderRepository{collection: db.Collection("reminders")}
}

func (r *reminderRepository) Insert(ctx context.Context, reminder *models.Reminder) error {
	if reminder.ID.IsZero() {
		reminder.ID = primitive.NewObjectID()
	}
	if _, err := r.collection.InsertOne(ctx, reminder); err != nil {
		return fmt.Errorf("failed to insert reminder: %w", err)
	}
	return nil
}

func (r *reminderRepository) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Reminder, error) {
	opts := options.Find().SetSort(bson.D{{Key: "due_date", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query reminders: %w", err)
	}
	defer cursor.Close(ctx)

	var reminders []models.Reminder
	if err := cursor.All(ctx, &reminders); err != nil {
		return nil, fmt.Errorf("failed to decode reminders: %w", err)
	}
	return reminders, nil
}

func (r *reminderRepository) GetByID(ctx context.Context, userID, id primitive.ObjectID) (*models.Reminder, error) {
	var reminder models.Reminder
	err := r.collection.FindOne(ctx, bson.M{"_id": id, "user_id": userID}).Decode(&reminder)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find reminder: %w", err)
	}
	return &reminder, nil
}

func (r *reminderRepository) Update(ctx context.Context, userID, id primitive.ObjectID, update ReminderUpdate) (*models.Reminder, error) {
	set := bson.M{}
	if update.Title != nil {
		set["title"] = *update.Title
	}
	if update.Description != nil {
		set["description"] = *update.Description
	}
	if update.DueDate != nil {
		set["due_date"] = *update.DueDate
	}
	if update.Priority != nil {
		set["priority"] = *update.Priority
	}
	if update.Completed != nil {
		set["completed"] = *update.Completed
	}
	if update.Status != nil {
		set["status"] = *update.Status
	}
	if len(set) == 0 {
		return r.GetByID(ctx, userID, id)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var reminder models.Reminder
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "user_id": userID},
		bson.M{"$set": set},
		opts,
	).Decode(&reminder)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update reminder: %w", err)
	}
	return &reminder, nil
}

func (r *reminderRepository) Delete(ctx context.Context, userID, id primitive.ObjectID) (*models.Reminder, error) {
	var reminder models.Reminder
	err := r.collection.FindOneAndDelete(ctx, bson.M{"_id": id, "user_id": userID}).Decode(&reminder)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete reminder: %w", err)
	}
	return &reminder, nil
}

func (r *reminderRepository) FindDuePending(ctx context.Context, now time.Time, limit int64) ([]models.Reminder, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "due_date", Value: 1}}).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, bson.M{
		"due_date": bson.M{"$lt": now},
		"status":   models.StatusPending,
	}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query due reminders: %w", err)
	}
	defer cursor.Close(ctx)

	var reminders []models.Reminder
	if err := cursor.All(ctx, &reminders); err != nil {
		return nil, fmt.Errorf("failed to decode due reminders: %w", err)
	}
	return reminders, nil
}

// ExpireIfPending flips a reminder to expired only if it is still pending at
// write time, so a concurrent manual edit is never overwritten. Returns
// whether this call performed the transition.
func (r *reminderRepository) ExpireIfPending(ctx context.Context, id primitive.ObjectID) (bool, error) {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.StatusPending},
		bson.M{"$set": bson.M{"status": models.StatusExpired}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to expire reminder: %w", err)
	}
	return result.ModifiedCount > 0, nil
}
