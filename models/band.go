package models

import "go.mongodb.org/mongo-driver/bson/primitive"

type Band struct {
	ID           primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Name         string             `json:"name" bson:"name"`
	Genre        []Ref              `json:"genre" bson:"genre"`
	Origin       Address            `json:"origin" bson:"origin"`
	FoundingDate int                `json:"foundingDate,omitempty" bson:"foundingDate,omitempty"`
	RecordLabel  string             `json:"recordLabel,omitempty" bson:"recordLabel,omitempty"`
	Releases     []Release          `json:"releases" bson:"releases"`
	Website      string             `json:"website,omitempty" bson:"website,omitempty"`
	Bandcamp     string             `json:"bandcamp,omitempty" bson:"bandcamp,omitempty"`
	Facebook     string             `json:"facebook,omitempty" bson:"facebook,omitempty"`
	Spotify      string             `json:"spotify,omitempty" bson:"spotify,omitempty"`
}

type Release struct {
	ReleaseName string `json:"releaseName" bson:"releaseName"`
	ReleaseYear int    `json:"releaseYear" bson:"releaseYear"`
}

type Genre struct {
	ID   primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Name string             `json:"name" bson:"name"`
}
