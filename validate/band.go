package validate

import (
	"context"
	"fmt"
	"strings"

	"eventdir/db"
	"eventdir/models"

	"go.mongodb.org/mongo-driver/bson"
)

func (v *Validator) Band(ctx context.Context, mode Mode, payload map[string]any, opts Options) (models.Band, error) {
	f := read(payload)
	band := models.Band{
		Name:         f.str("name"),
		FoundingDate: f.integer("foundingDate", false),
		RecordLabel:  f.optStr("recordLabel"),
		Releases:     f.releases("releases"),
		Website:      f.optStr("website"),
		Bandcamp:     f.optStr("bandcamp"),
		Facebook:     f.optStr("facebook"),
		Spotify:      f.optStr("spotify"),
	}
	genres := f.strList("genre", true)
	origin := originQuery(f)
	if f.err != nil {
		return models.Band{}, f.err
	}
	if band.FoundingDate != 0 && (band.FoundingDate < 1900 || band.FoundingDate > v.now().Year()) {
		return models.Band{}, failf("Attribute 'foundingDate' has to be a year between 1900 and %d.", v.now().Year())
	}

	var err error
	if band.Genre, err = v.genreRefs(ctx, genres); err != nil {
		return models.Band{}, fmt.Errorf("validate band: %w", err)
	}
	if band.Origin, err = v.resolveCity(ctx, origin); err != nil {
		return models.Band{}, fmt.Errorf("validate band: %w", err)
	}

	city := band.Origin.City
	filter := bson.M{"name": db.NameRegex(band.Name), "origin.city": db.NameRegex(city)}
	if !band.Origin.Resolved() {
		city = band.Origin.Query
		filter = bson.M{"name": db.NameRegex(band.Name), "origin.query": db.NameRegex(city)}
	}
	if mode == ModeMultiple && opts.Names.Has(band.Name, city) {
		return models.Band{}, failf("A band with this name from this city already exists.")
	}
	taken, err := v.collidesWith(ctx, filter, selfFor(mode, opts), db.BandsCollection)
	if err != nil {
		return models.Band{}, fmt.Errorf("validate band: %w", err)
	}
	if taken {
		return models.Band{}, failf("A band with this name from this city already exists.")
	}

	if mode == ModePut {
		band.ID = opts.ID
	}
	opts.Names.Add(band.Name, city)
	return band, nil
}

// originQuery accepts "origin" as a plain query string or as an object
// with "city" and an optional "country".
func originQuery(f *fields) string {
	if _, isStr := f.payload["origin"].(string); isStr {
		return f.str("origin")
	}
	obj := f.object("origin", true)
	if obj == nil {
		return ""
	}
	sub := read(obj)
	city := sub.str("city")
	country := sub.optStr("country")
	if sub.err != nil {
		f.fail("%s", strings.Replace(sub.err.Error(), "Attribute '", "Attribute 'origin.", 1))
		return ""
	}
	if country == "" {
		return city
	}
	return city + ", " + country
}
