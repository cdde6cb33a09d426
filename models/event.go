package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Event struct {
	ID          primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Name        string             `json:"name" bson:"name"`
	Location    Ref                `json:"location" bson:"location"`
	Date        time.Time          `json:"date" bson:"date"`
	Bands       []Ref              `json:"bands" bson:"bands"`
	TicketLink  string             `json:"ticketLink,omitempty" bson:"ticketLink,omitempty"`
	Description string             `json:"description,omitempty" bson:"description,omitempty"`
	Canceled    Canceled           `json:"canceled" bson:"canceled"`
}

type Festival struct {
	ID          primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Name        string             `json:"name" bson:"name"`
	Address     Address            `json:"address" bson:"address"`
	Genre       []Ref              `json:"genre" bson:"genre"`
	Events      []Ref              `json:"events" bson:"events"`
	Description string             `json:"description,omitempty" bson:"description,omitempty"`
	Website     string             `json:"website,omitempty" bson:"website,omitempty"`
	Facebook    string             `json:"facebook,omitempty" bson:"facebook,omitempty"`
}

// FestivalEvent is one edition of a festival. Bands holds raw band names;
// whether all of them resolve is computed on demand, never stored.
type FestivalEvent struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Name      string             `json:"name" bson:"name"`
	StartDate time.Time          `json:"startDate" bson:"startDate"`
	EndDate   time.Time          `json:"endDate" bson:"endDate"`
	Bands     []string           `json:"bands" bson:"bands"`
	Canceled  Canceled           `json:"canceled" bson:"canceled"`
}
