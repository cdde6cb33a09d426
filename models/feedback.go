package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Feedback struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Text      string             `json:"text" bson:"text"`
	Email     string             `json:"email,omitempty" bson:"email,omitempty"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}

type BugReport struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Function  string             `json:"function" bson:"function"`
	Component string             `json:"component" bson:"component"`
	Severity  string             `json:"severity" bson:"severity"`
	Text      string             `json:"text" bson:"text"`
	Email     string             `json:"email,omitempty" bson:"email,omitempty"`
	Status    string             `json:"status" bson:"status"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
}

// Index is the notification published after a moderation step.
type Index struct {
	EntityType string `json:"entity_type"`
	Method     string `json:"method"`
	EntityId   string `json:"entity_id"`
	PreviousId string `json:"previous_id,omitempty"`
}
