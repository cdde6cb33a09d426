package workflow

import (
	"context"
	"errors"
	"fmt"

	"eventdir/db"
	"eventdir/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

// referrer is a field in a collection that holds references to a kind.
type referrer struct {
	collection string
	field      string
	list       bool
}

func referrers(kind models.Kind) []referrer {
	var out []referrer
	switch kind {
	case models.KindLocation:
		for _, state := range db.Lifecycles(models.KindEvent) {
			coll, _ := db.CollectionFor(models.KindEvent, state)
			out = append(out, referrer{collection: coll, field: "location"})
		}
	case models.KindFestivalEvent:
		for _, state := range db.Lifecycles(models.KindFestival) {
			coll, _ := db.CollectionFor(models.KindFestival, state)
			out = append(out, referrer{collection: coll, field: "events", list: true})
		}
	}
	return out
}

// Cascade points every reference to from at to. Only exact id matches are
// rewritten, so running it twice changes nothing. Every referring
// collection is attempted; the failures are joined.
func (w *Workflow) Cascade(ctx context.Context, kind models.Kind, from, to primitive.ObjectID) error {
	refs := referrers(kind)
	errs := make([]error, len(refs))
	var g errgroup.Group
	for i, r := range refs {
		g.Go(func() error {
			errs[i] = w.rewrite(ctx, r, from, to)
			return nil
		})
	}
	g.Wait()
	return errors.Join(errs...)
}

func (w *Workflow) rewrite(ctx context.Context, r referrer, from, to primitive.ObjectID) error {
	old, repl := models.RefTo(from).String(), models.RefTo(to).String()
	docs, err := w.store.Find(ctx, r.collection, bson.M{r.field: old})
	if err != nil {
		return fmt.Errorf("%s.%s: %w", r.collection, r.field, err)
	}
	for _, doc := range docs {
		id, _ := doc["_id"].(primitive.ObjectID)
		if r.list {
			doc[r.field] = replaceAll(doc[r.field], old, repl)
		} else {
			doc[r.field] = repl
		}
		if err := w.store.UpdateByID(ctx, r.collection, id, doc); err != nil {
			return fmt.Errorf("%s %s: %w", r.collection, id.Hex(), err)
		}
	}
	return nil
}

func replaceAll(v any, old, repl string) []any {
	var in []any
	switch l := v.(type) {
	case bson.A:
		in = l
	case []any:
		in = l
	}
	out := make([]any, len(in))
	for i, el := range in {
		if s, ok := el.(string); ok && s == old {
			out[i] = repl
			continue
		}
		out[i] = el
	}
	return out
}
