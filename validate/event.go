package validate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"eventdir/db"
	"eventdir/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (v *Validator) Event(ctx context.Context, mode Mode, payload map[string]any, opts Options) (models.Event, error) {
	f := read(payload)
	event := models.Event{
		Name:        f.str("name"),
		Date:        f.date("date"),
		TicketLink:  f.optStr("ticketLink"),
		Description: f.optStr("description"),
		Canceled:    f.canceled("canceled"),
	}
	bands := f.strList("bands", true)
	locID, locName, locCity := locationQuery(f)
	if f.err != nil {
		return models.Event{}, f.err
	}

	pending := mode == ModeUnvalidated
	var err error
	if locID != "" {
		event.Location, err = v.locationByID(ctx, locID, pending)
	} else {
		event.Location, err = v.locationByName(ctx, locName, locCity, pending)
	}
	if err != nil {
		return models.Event{}, fmt.Errorf("validate event: %w", err)
	}
	if event.Bands, err = v.bandRefs(ctx, bands); err != nil {
		return models.Event{}, fmt.Errorf("validate event: %w", err)
	}

	if mode == ModeValidate {
		if event.Location.IsMarker() {
			return models.Event{}, failf("The location of the event has to be validated first.")
		}
		if hasMarker(event.Bands) {
			return models.Event{}, failf("All bands of the event have to exist before it can be validated.")
		}
	}
	if mode == ModePut {
		event.ID = opts.ID
	}
	return event, nil
}

// IsPast reports whether the event took place before today.
func (v *Validator) IsPast(e models.Event) bool {
	y, m, d := v.now().UTC().Date()
	return e.Date.Before(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

// locationQuery reads "location" either as an id string or as an object
// with "name" and "city".
func locationQuery(f *fields) (id, name, city string) {
	if _, isStr := f.payload["location"].(string); isStr {
		return f.str("location"), "", ""
	}
	obj := f.object("location", true)
	if obj == nil {
		return "", "", ""
	}
	sub := read(obj)
	name, city = sub.str("name"), sub.str("city")
	if sub.err != nil {
		f.fail("Attribute 'location' has to be a location id or an object with 'name' and 'city'.")
	}
	return "", name, city
}

func (v *Validator) locationCollections(pending bool) []string {
	if pending {
		return []string{db.LocationsCollection, db.UnvalidatedLocationsCollection}
	}
	return []string{db.LocationsCollection}
}

// locationByID resolves a location id. A location marker is resolved
// again, by id or by the "name, city" it was built from.
func (v *Validator) locationByID(ctx context.Context, key string, pending bool) (models.Ref, error) {
	marked := models.IsMarker(key)
	key, ok := unmark(models.KindLocation, key)
	if !ok {
		return models.Ref(key), nil
	}
	id, err := primitive.ObjectIDFromHex(key)
	if err != nil {
		if i := strings.LastIndex(key, ", "); marked && i > 0 {
			return v.locationByName(ctx, key[:i], key[i+2:], pending)
		}
		return models.MarkerRef(models.KindLocation.Label(), key), nil
	}
	for _, coll := range v.locationCollections(pending) {
		_, err := v.store.FindByID(ctx, coll, id)
		if err == nil {
			return models.RefTo(id), nil
		}
		if !db.IsNotFound(err) {
			return "", fmt.Errorf("resolve location %s: %w", key, err)
		}
	}
	return models.MarkerRef(models.KindLocation.Label(), key), nil
}

// locationByName finds a location whose name contains name and whose city
// equals city, ignoring case.
func (v *Validator) locationByName(ctx context.Context, name, city string, pending bool) (models.Ref, error) {
	filter := bson.M{"name": db.ContainsRegex(name), "address.city": db.NameRegex(city)}
	for _, coll := range v.locationCollections(pending) {
		docs, err := v.store.Find(ctx, coll, filter)
		if err != nil {
			return "", fmt.Errorf("resolve location %q: %w", name, err)
		}
		if len(docs) > 0 {
			id, _ := docs[0]["_id"].(primitive.ObjectID)
			return models.RefTo(id), nil
		}
	}
	return models.MarkerRef(models.KindLocation.Label(), name+", "+city), nil
}
