package validate

import (
	"context"
	"fmt"

	"eventdir/db"
	"eventdir/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (v *Validator) Genre(ctx context.Context, mode Mode, payload map[string]any, opts Options) (models.Genre, error) {
	f := read(payload)
	genre := models.Genre{Name: f.str("name")}
	if f.err != nil {
		return models.Genre{}, f.err
	}

	if mode == ModeMultiple && opts.Names.Has(genre.Name) {
		return models.Genre{}, failf("A genre with this name already exists.")
	}
	taken, err := v.collidesWith(ctx, bson.M{"name": db.NameRegex(genre.Name)}, selfFor(mode, opts), db.GenresCollection)
	if err != nil {
		return models.Genre{}, fmt.Errorf("validate genre: %w", err)
	}
	if taken {
		return models.Genre{}, failf("A genre with this name already exists.")
	}

	if mode == ModePut {
		genre.ID = opts.ID
	}
	opts.Names.Add(genre.Name)
	return genre, nil
}

// selfFor is the id a uniqueness check has to ignore: the replaced
// document for put, none otherwise.
func selfFor(mode Mode, opts Options) primitive.ObjectID {
	if mode == ModePut {
		return opts.ID
	}
	return primitive.NilObjectID
}
