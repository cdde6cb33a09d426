package validate

import (
	"context"
	"fmt"

	"eventdir/db"
	"eventdir/models"

	"go.mongodb.org/mongo-driver/bson"
)

func (v *Validator) Location(ctx context.Context, mode Mode, payload map[string]any, opts Options) (models.Location, error) {
	f := read(payload)
	loc := models.Location{
		Name:        f.str("name"),
		Information: f.optStr("information"),
		Website:     f.optStr("website"),
		Facebook:    f.optStr("facebook"),
	}
	query := f.str("address")
	if f.err != nil {
		return models.Location{}, f.err
	}

	addr, err := v.resolveAddress(ctx, "address", query)
	if err != nil {
		if IsValidation(err) {
			return models.Location{}, err
		}
		return models.Location{}, fmt.Errorf("validate location: %w", err)
	}
	loc.Address = addr

	if mode == ModeMultiple && opts.Names.Has(loc.Name, addr.City) {
		return models.Location{}, failf("A location with this name already exists in this city.")
	}
	colls := []string{db.LocationsCollection}
	if mode == ModeUnvalidated {
		colls = append(colls, db.UnvalidatedLocationsCollection)
	}
	filter := bson.M{"name": db.NameRegex(loc.Name), "address.city": db.NameRegex(addr.City)}
	taken, err := v.collidesWith(ctx, filter, selfFor(mode, opts), colls...)
	if err != nil {
		return models.Location{}, fmt.Errorf("validate location: %w", err)
	}
	if taken {
		return models.Location{}, failf("A location with this name already exists in this city.")
	}

	if mode == ModePut {
		loc.ID = opts.ID
	}
	opts.Names.Add(loc.Name, addr.City)
	return loc, nil
}
