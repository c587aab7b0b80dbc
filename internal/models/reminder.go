package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusExpired   Status = "expired"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusExpired:
		return true
	}
	return false
}

type Reminder struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      primitive.ObjectID `bson:"user_id" json:"userId"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	DueDate     time.Time          `bson:"due_date" json:"dueDate"`
	Priority    Priority           `bson:"priority" json:"priority"`
	Status      Status             `bson:"status" json:"status"`
	Completed   bool               `bson:"completed" json:"completed"`
	CreatedAt   time.Time          `bson:"created_at" json:"createdAt"`
}

// Overdue reports whether the reminder should transition to expired: its due
// date is strictly in the past and it is still pending. Completed and expired
// reminders are never picked up again, regardless of their due date.
func (r *Reminder) Overdue(now time.Time) bool {
	return r.Status == StatusPending && r.DueDate.Before(now)
}
