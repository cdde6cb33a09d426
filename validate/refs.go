package validate

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"eventdir/db"
	"eventdir/models"
	"eventdir/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/text/collate"
)

// maxLookups bounds concurrent reference lookups for one payload.
const maxLookups = 8

// unmark returns the key a marker of kind was built from, so a stored
// submission resolves again once its target exists. Plain keys come back
// unchanged. ok is false for markers of another kind or format.
func unmark(kind models.Kind, s string) (key string, ok bool) {
	if !models.IsMarker(s) {
		return s, true
	}
	k, key, parsed := models.ParseMarker(s)
	if !parsed || k != kind.Label() {
		return s, false
	}
	return key, true
}

// genreRefs resolves genre names to references, de-duplicated and sorted
// by genre name. Unknown names become markers placed after the resolved
// references.
func (v *Validator) genreRefs(ctx context.Context, names []string) ([]models.Ref, error) {
	type named struct {
		name string
		ref  models.Ref
	}
	found, err := utils.Each(ctx, len(names), maxLookups, func(ctx context.Context, i int) (named, error) {
		key, ok := unmark(models.KindGenre, names[i])
		if !ok {
			return named{ref: models.Ref(key)}, nil
		}
		doc, err := v.genreByKey(ctx, key)
		if err != nil {
			return named{}, err
		}
		if doc == nil {
			return named{ref: models.MarkerRef(models.KindGenre.Label(), key)}, nil
		}
		id, _ := doc["_id"].(primitive.ObjectID)
		stored, _ := doc["name"].(string)
		return named{name: stored, ref: models.RefTo(id)}, nil
	})
	if err != nil {
		return nil, err
	}

	var resolved []named
	var markers []models.Ref
	seen := map[models.Ref]bool{}
	for _, n := range found {
		if seen[n.ref] {
			continue
		}
		seen[n.ref] = true
		if n.ref.IsMarker() {
			markers = append(markers, n.ref)
			continue
		}
		resolved = append(resolved, n)
	}

	col := collate.New(v.lang)
	sort.SliceStable(resolved, func(i, j int) bool {
		return col.CompareString(resolved[i].name, resolved[j].name) < 0
	})

	out := make([]models.Ref, 0, len(resolved)+len(markers))
	for _, r := range resolved {
		out = append(out, r.ref)
	}
	return append(out, markers...), nil
}

// genreByKey finds a genre by id or by name. A nil document means none
// matched.
func (v *Validator) genreByKey(ctx context.Context, key string) (bson.M, error) {
	if id, err := primitive.ObjectIDFromHex(key); err == nil {
		doc, err := v.store.FindByID(ctx, db.GenresCollection, id)
		if err == nil {
			return doc, nil
		}
		if !db.IsNotFound(err) {
			return nil, fmt.Errorf("resolve genre %s: %w", key, err)
		}
	}
	docs, err := v.store.Find(ctx, db.GenresCollection, bson.M{"name": db.NameRegex(key)})
	if err != nil {
		return nil, fmt.Errorf("resolve genre %q: %w", key, err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return docs[0], nil
}

// bandRef resolves a band given by id or by name. A band marker is
// resolved again by the name it holds.
func (v *Validator) bandRef(ctx context.Context, key string) (models.Ref, error) {
	key, ok := unmark(models.KindBand, key)
	if !ok {
		return models.Ref(key), nil
	}
	if id, err := primitive.ObjectIDFromHex(key); err == nil {
		_, err := v.store.FindByID(ctx, db.BandsCollection, id)
		if err == nil {
			return models.RefTo(id), nil
		}
		if !db.IsNotFound(err) {
			return "", fmt.Errorf("resolve band %s: %w", key, err)
		}
	}
	docs, err := v.store.Find(ctx, db.BandsCollection, bson.M{"name": db.NameRegex(key)})
	if err != nil {
		return "", fmt.Errorf("resolve band %q: %w", key, err)
	}
	if len(docs) == 0 {
		return models.MarkerRef(models.KindBand.Label(), key), nil
	}
	id, _ := docs[0]["_id"].(primitive.ObjectID)
	return models.RefTo(id), nil
}

func (v *Validator) bandRefs(ctx context.Context, keys []string) ([]models.Ref, error) {
	refs, err := utils.Each(ctx, len(keys), maxLookups, func(ctx context.Context, i int) (models.Ref, error) {
		return v.bandRef(ctx, keys[i])
	})
	if err != nil {
		return nil, err
	}
	out := make([]models.Ref, 0, len(refs))
	seen := map[models.Ref]bool{}
	for _, ref := range refs {
		if !seen[ref] {
			seen[ref] = true
			out = append(out, ref)
		}
	}
	return out, nil
}

// Verifiable reports whether every band name resolves to a validated band.
func (v *Validator) Verifiable(ctx context.Context, names []string) (bool, error) {
	for _, name := range names {
		docs, err := v.store.Find(ctx, db.BandsCollection, bson.M{"name": db.NameRegex(name)})
		if err != nil {
			return false, fmt.Errorf("resolve band %q: %w", name, err)
		}
		if len(docs) == 0 {
			return false, nil
		}
	}
	return true, nil
}

func uniqueFold(vals []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(vals))
	for _, s := range vals {
		k := strings.ToLower(s)
		if !seen[k] {
			seen[k] = true
			out = append(out, s)
		}
	}
	return out
}

func hasMarker(refs []models.Ref) bool {
	for _, r := range refs {
		if r.IsMarker() {
			return true
		}
	}
	return false
}
