package db

import (
	"context"
	"regexp"

	"eventdir/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store is the generic document access every component works against.
// No multi-document transaction is assumed.
type Store interface {
	Find(ctx context.Context, collection string, filter bson.M) ([]bson.M, error)
	FindByID(ctx context.Context, collection string, id primitive.ObjectID) (bson.M, error)
	Insert(ctx context.Context, collection string, doc any) (primitive.ObjectID, error)
	UpdateByID(ctx context.Context, collection string, id primitive.ObjectID, doc any) error
	DeleteByID(ctx context.Context, collection string, id primitive.ObjectID) error
}

const (
	BandsCollection                     = "bands"
	GenresCollection                    = "genres"
	LocationsCollection                 = "locations"
	UnvalidatedLocationsCollection      = "unvalidatedlocations"
	EventsCollection                    = "events"
	ArchivedEventsCollection            = "archivedevents"
	UnvalidatedEventsCollection         = "unvalidatedevents"
	FestivalsCollection                 = "festivals"
	UnvalidatedFestivalsCollection      = "unvalidatedfestivals"
	FestivalEventsCollection            = "festivalevents"
	UnvalidatedFestivalEventsCollection = "unvalidatedfestivalevents"
	FeedbackCollection                  = "feedback"
	BugsCollection                      = "bugs"
)

var collections = map[models.Kind]map[models.Lifecycle]string{
	models.KindBand:      {models.Validated: BandsCollection},
	models.KindGenre:     {models.Validated: GenresCollection},
	models.KindFeedback:  {models.Validated: FeedbackCollection},
	models.KindBugReport: {models.Validated: BugsCollection},
	models.KindLocation: {
		models.Validated:   LocationsCollection,
		models.Unvalidated: UnvalidatedLocationsCollection,
	},
	models.KindEvent: {
		models.Validated:   EventsCollection,
		models.Archived:    ArchivedEventsCollection,
		models.Unvalidated: UnvalidatedEventsCollection,
	},
	models.KindFestival: {
		models.Validated:   FestivalsCollection,
		models.Unvalidated: UnvalidatedFestivalsCollection,
	},
	models.KindFestivalEvent: {
		models.Validated:   FestivalEventsCollection,
		models.Unvalidated: UnvalidatedFestivalEventsCollection,
	},
}

// CollectionFor maps a kind and lifecycle to its collection name.
func CollectionFor(kind models.Kind, state models.Lifecycle) (string, bool) {
	name, ok := collections[kind][state]
	return name, ok
}

// Lifecycles lists the states a kind is stored in, validated first.
func Lifecycles(kind models.Kind) []models.Lifecycle {
	var out []models.Lifecycle
	for _, s := range []models.Lifecycle{models.Validated, models.Archived, models.Unvalidated} {
		if _, ok := collections[kind][s]; ok {
			out = append(out, s)
		}
	}
	return out
}

// NameRegex matches name exactly, ignoring case.
func NameRegex(name string) primitive.Regex {
	return primitive.Regex{Pattern: "^" + regexp.QuoteMeta(name) + "$", Options: "i"}
}

// ContainsRegex matches any value containing s, ignoring case.
func ContainsRegex(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}
