package models

import "go.mongodb.org/mongo-driver/bson/primitive"

type Location struct {
	ID          primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Name        string             `json:"name" bson:"name"`
	Address     Address            `json:"address" bson:"address"`
	Information string             `json:"information,omitempty" bson:"information,omitempty"`
	Website     string             `json:"website,omitempty" bson:"website,omitempty"`
	Facebook    string             `json:"facebook,omitempty" bson:"facebook,omitempty"`
}
