package validate

import (
	"context"
	"fmt"

	"eventdir/db"
	"eventdir/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (v *Validator) Festival(ctx context.Context, mode Mode, payload map[string]any, opts Options) (models.Festival, error) {
	f := read(payload)
	fest := models.Festival{
		Name:        f.str("name"),
		Description: f.optStr("description"),
		Website:     f.optStr("website"),
		Facebook:    f.optStr("facebook"),
	}
	query := f.str("address")
	genres := f.strList("genre", true)
	events := f.strList("events", false)
	if f.err != nil {
		return models.Festival{}, f.err
	}

	addr, err := v.resolveAddress(ctx, "address", query)
	if err != nil {
		if IsValidation(err) {
			return models.Festival{}, err
		}
		return models.Festival{}, fmt.Errorf("validate festival: %w", err)
	}
	fest.Address = addr
	if fest.Genre, err = v.genreRefs(ctx, genres); err != nil {
		return models.Festival{}, fmt.Errorf("validate festival: %w", err)
	}
	if fest.Events, err = v.festivalEventRefs(ctx, events); err != nil {
		return models.Festival{}, err
	}

	colls := []string{db.FestivalsCollection}
	if mode == ModeUnvalidated {
		colls = append(colls, db.UnvalidatedFestivalsCollection)
	}
	taken, err := v.collidesWith(ctx, bson.M{"name": db.NameRegex(fest.Name)}, selfFor(mode, opts), colls...)
	if err != nil {
		return models.Festival{}, fmt.Errorf("validate festival: %w", err)
	}
	if taken {
		return models.Festival{}, failf("A festival with this name already exists.")
	}

	if mode == ModePut {
		fest.ID = opts.ID
	}
	return fest, nil
}

// festivalEventRefs checks that every id names a stored festival event,
// validated or pending.
func (v *Validator) festivalEventRefs(ctx context.Context, keys []string) ([]models.Ref, error) {
	out := make([]models.Ref, 0, len(keys))
	seen := map[models.Ref]bool{}
	for i, key := range keys {
		id, err := primitive.ObjectIDFromHex(key)
		if err != nil {
			return nil, failf("Attribute 'events[%d]' has to be a festival event id.", i)
		}
		found := false
		for _, coll := range []string{db.FestivalEventsCollection, db.UnvalidatedFestivalEventsCollection} {
			_, err := v.store.FindByID(ctx, coll, id)
			if err == nil {
				found = true
				break
			}
			if !db.IsNotFound(err) {
				return nil, fmt.Errorf("validate festival: resolve festival event %s: %w", key, err)
			}
		}
		if !found {
			return nil, failf("Festival event %s does not exist.", key)
		}
		ref := models.RefTo(id)
		if !seen[ref] {
			seen[ref] = true
			out = append(out, ref)
		}
	}
	return out, nil
}

func (v *Validator) FestivalEvent(ctx context.Context, mode Mode, payload map[string]any, opts Options) (models.FestivalEvent, error) {
	f := read(payload)
	fe := models.FestivalEvent{
		Name:      f.str("name"),
		StartDate: f.date("startDate"),
		EndDate:   f.date("endDate"),
		Bands:     uniqueFold(f.strList("bands", true)),
		Canceled:  f.canceled("canceled"),
	}
	if f.err != nil {
		return models.FestivalEvent{}, f.err
	}
	if fe.EndDate.Before(fe.StartDate) {
		return models.FestivalEvent{}, failf("Attribute 'endDate' must not be before 'startDate'.")
	}

	if mode == ModeValidate {
		ok, err := v.Verifiable(ctx, fe.Bands)
		if err != nil {
			return models.FestivalEvent{}, fmt.Errorf("validate festival event: %w", err)
		}
		if !ok {
			return models.FestivalEvent{}, failf("All bands of the festival event have to exist before it can be validated.")
		}
	}
	if mode == ModePut {
		fe.ID = opts.ID
	}
	return fe, nil
}
