// Package deref expands stored references into nested read models.
//
// Every foreign key is replaced by the dereferenced form of its target. A
// reference that cannot be resolved becomes a marker string built with
// models.Marker; only storage failures are returned as errors. The package
// never writes.
package deref

import (
	"context"
	"fmt"

	"eventdir/db"
	"eventdir/models"
	"eventdir/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/text/language"
)

// maxLookups bounds concurrent sub-lookups for a single document.
const maxLookups = 8

type Resolver struct {
	store db.Store
	lang  language.Tag
}

// New returns a Resolver reading from store and sorting for lang.
func New(store db.Store, lang language.Tag) *Resolver {
	return &Resolver{store: store, lang: lang}
}

// DereferenceOne expands a single raw document of the given kind. state
// selects which collections unvalidated references may resolve into.
func (r *Resolver) DereferenceOne(ctx context.Context, kind models.Kind, state models.Lifecycle, doc bson.M) (utils.M, error) {
	switch kind {
	case models.KindGenre:
		return decodeThen(doc, r.genre)
	case models.KindBand:
		return decodeThen(doc, func(b models.Band) (utils.M, error) { return r.band(ctx, b) })
	case models.KindLocation:
		return decodeThen(doc, r.location)
	case models.KindEvent:
		return decodeThen(doc, func(e models.Event) (utils.M, error) { return r.event(ctx, state, e) })
	case models.KindFestivalEvent:
		return decodeThen(doc, func(fe models.FestivalEvent) (utils.M, error) { return r.festivalEvent(ctx, fe) })
	case models.KindFestival:
		return decodeThen(doc, func(f models.Festival) (utils.M, error) { return r.festival(ctx, state, f) })
	case models.KindFeedback, models.KindBugReport:
		out := utils.M{}
		for k, v := range doc {
			out[k] = plain(v)
		}
		return out, nil
	}
	return nil, fmt.Errorf("deref: unknown kind %q", kind)
}

// DereferenceMany expands docs and, when keys are given, sorts the result.
// The output has the same length as docs; without keys it keeps the input
// order.
func (r *Resolver) DereferenceMany(ctx context.Context, kind models.Kind, state models.Lifecycle, docs []bson.M, keys ...SortKey) ([]utils.M, error) {
	out, err := each(ctx, len(docs), func(ctx context.Context, i int) (utils.M, error) {
		return r.DereferenceOne(ctx, kind, state, docs[i])
	})
	if err != nil {
		return nil, err
	}
	Sort(out, r.lang, keys...)
	return out, nil
}

func decodeThen[T any](doc bson.M, fn func(T) (utils.M, error)) (utils.M, error) {
	v, err := db.Decode[T](doc)
	if err != nil {
		return nil, fmt.Errorf("deref: %w", err)
	}
	return fn(v)
}

func each[T any](ctx context.Context, n int, fn func(ctx context.Context, i int) (T, error)) ([]T, error) {
	return utils.Each(ctx, n, maxLookups, fn)
}

// findIn returns the first document with id found in collections, trying
// them in order.
func (r *Resolver) findIn(ctx context.Context, id primitive.ObjectID, collections ...string) (bson.M, bool, error) {
	for _, coll := range collections {
		doc, err := r.store.FindByID(ctx, coll, id)
		if db.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, false, err
		}
		return doc, true, nil
	}
	return nil, false, nil
}

// plain converts bson container types into JSON friendly values.
func plain(v any) any {
	switch t := v.(type) {
	case primitive.ObjectID:
		return t.Hex()
	case primitive.DateTime:
		return t.Time().UTC()
	case bson.M:
		out := utils.M{}
		for k, v := range t {
			out[k] = plain(v)
		}
		return out
	case bson.A:
		out := make([]any, len(t))
		for i, v := range t {
			out[i] = plain(v)
		}
		return out
	}
	return v
}
