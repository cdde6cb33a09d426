package validate_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"eventdir/db"
	"eventdir/geocode"
	"eventdir/models"
	"eventdir/validate"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/text/language"
)

var places = geocode.Static{
	"berlin":                   {City: "Berlin", Country: "Germany", CountryCode: "DE"},
	"hamburg":                  {City: "Hamburg", Country: "Germany", CountryCode: "DE"},
	"alexanderplatz 1, berlin": {Street: "Alexanderplatz 1", City: "Berlin", Country: "Germany", CountryCode: "DE"},
	"reeperbahn 1, hamburg":    {Street: "Reeperbahn 1", City: "Hamburg", Country: "Germany", CountryCode: "DE"},
}

type fixture struct {
	ctx   context.Context
	store *db.Memory
	v     *validate.Validator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := db.NewMemory()
	return &fixture{ctx: context.Background(), store: store, v: validate.New(store, places, language.English)}
}

func (f *fixture) insert(t *testing.T, coll string, doc any) primitive.ObjectID {
	t.Helper()
	id, err := f.store.Insert(f.ctx, coll, doc)
	require.NoError(t, err)
	return id
}

func requireValidation(t *testing.T, err error, msg string) {
	t.Helper()
	require.Error(t, err)
	require.True(t, validate.IsValidation(err), "expected validation error, got %v", err)
	assert.Equal(t, msg, err.Error())
}

func TestGenreNameUniqueIgnoringCase(t *testing.T) {
	f := newFixture(t)
	f.insert(t, db.GenresCollection, models.Genre{Name: "Punk"})

	_, err := f.v.Genre(f.ctx, validate.ModePost, map[string]any{"name": "punk"}, validate.Options{})
	requireValidation(t, err, "A genre with this name already exists.")

	g, err := f.v.Genre(f.ctx, validate.ModePost, map[string]any{"name": " Crust "}, validate.Options{})
	require.NoError(t, err)
	assert.Equal(t, "Crust", g.Name)
}

func TestGenrePutKeepsOwnName(t *testing.T) {
	f := newFixture(t)
	id := f.insert(t, db.GenresCollection, models.Genre{Name: "Punk"})

	g, err := f.v.Genre(f.ctx, validate.ModePut, map[string]any{"name": "PUNK"}, validate.Options{ID: id})
	require.NoError(t, err)
	assert.Equal(t, id, g.ID)

	other := f.insert(t, db.GenresCollection, models.Genre{Name: "Crust"})
	_, err = f.v.Genre(f.ctx, validate.ModePut, map[string]any{"name": "punk"}, validate.Options{ID: other})
	requireValidation(t, err, "A genre with this name already exists.")
}

func TestFieldMessages(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name    string
		payload map[string]any
		msg     string
	}{
		{"missing name", map[string]any{}, "Attribute 'name' has to be a string with 1 or more characters."},
		{"blank name", map[string]any{"name": "  "}, "Attribute 'name' has to be a string with 1 or more characters."},
		{"wrong type", map[string]any{"name": 3.0}, "Attribute 'name' has to be a string with 1 or more characters."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.v.Genre(f.ctx, validate.ModePost, tt.payload, validate.Options{})
			requireValidation(t, err, tt.msg)
		})
	}
}

func bandPayload(name, origin string, genres ...any) map[string]any {
	return map[string]any{"name": name, "origin": origin, "genre": genres}
}

func TestBandGenresResolvedSortedAndMarked(t *testing.T) {
	f := newFixture(t)
	punk := f.insert(t, db.GenresCollection, models.Genre{Name: "Punk Rock"})
	crust := f.insert(t, db.GenresCollection, models.Genre{Name: "Crust"})

	band, err := f.v.Band(f.ctx, validate.ModePost, bandPayload("X", "Berlin", "punk rock", "Polka", "crust", "Punk Rock"), validate.Options{})
	require.NoError(t, err)
	assert.Equal(t, []models.Ref{models.RefTo(crust), models.RefTo(punk), models.MarkerRef("Genre", "Polka")}, band.Genre)
	assert.Equal(t, "Berlin", band.Origin.City)
	assert.True(t, band.Origin.Resolved())
	assert.Equal(t, []models.Release{}, band.Releases)
}

func TestStoredGenreMarkersResolveAgain(t *testing.T) {
	f := newFixture(t)
	polka := f.insert(t, db.GenresCollection, models.Genre{Name: "Polka"})
	foreign := models.Marker("Band", "Odd")

	band, err := f.v.Band(f.ctx, validate.ModePost, bandPayload("X", "Berlin", models.Marker("Genre", "polka"), foreign, models.Marker("Genre", "Ska")), validate.Options{})
	require.NoError(t, err)
	assert.Equal(t, []models.Ref{models.RefTo(polka), models.Ref(foreign), models.MarkerRef("Genre", "Ska")}, band.Genre)
}

func TestBandOriginUnresolvedBecomesMarker(t *testing.T) {
	f := newFixture(t)
	band, err := f.v.Band(f.ctx, validate.ModePost, bandPayload("X", "Atlantis", "Punk"), validate.Options{})
	require.NoError(t, err)
	assert.False(t, band.Origin.Resolved())
	assert.Equal(t, `ERROR: City "Atlantis" not found`, band.Origin.Unresolved)
	assert.Equal(t, "Atlantis", band.Origin.Query)
}

func TestBandOriginObject(t *testing.T) {
	f := newFixture(t)
	payload := map[string]any{"name": "X", "genre": []any{"Punk"}, "origin": map[string]any{"city": "Hamburg"}}
	band, err := f.v.Band(f.ctx, validate.ModePost, payload, validate.Options{})
	require.NoError(t, err)
	assert.Equal(t, "Hamburg", band.Origin.City)

	payload["origin"] = map[string]any{"country": "Germany"}
	_, err = f.v.Band(f.ctx, validate.ModePost, payload, validate.Options{})
	requireValidation(t, err, "Attribute 'origin.city' has to be a string with 1 or more characters.")
}

func TestBandNameUniquePerCity(t *testing.T) {
	f := newFixture(t)
	f.insert(t, db.BandsCollection, models.Band{Name: "Tau Cross", Origin: models.Address{City: "Berlin"}})

	_, err := f.v.Band(f.ctx, validate.ModePost, bandPayload("tau cross", "Berlin", "Punk"), validate.Options{})
	requireValidation(t, err, "A band with this name from this city already exists.")

	_, err = f.v.Band(f.ctx, validate.ModePost, bandPayload("tau cross", "Hamburg", "Punk"), validate.Options{})
	require.NoError(t, err)
}

func TestBandReleasesAndFoundingDate(t *testing.T) {
	f := newFixture(t)
	payload := bandPayload("X", "Berlin", "Punk")
	payload["foundingDate"] = 1999.0
	payload["releases"] = []any{map[string]any{"releaseName": "First", "releaseYear": 2001.0}}
	band, err := f.v.Band(f.ctx, validate.ModePost, payload, validate.Options{})
	require.NoError(t, err)
	assert.Equal(t, 1999, band.FoundingDate)
	assert.Equal(t, []models.Release{{ReleaseName: "First", ReleaseYear: 2001}}, band.Releases)

	payload["releases"] = []any{map[string]any{"releaseName": "First"}}
	_, err = f.v.Band(f.ctx, validate.ModePost, payload, validate.Options{})
	requireValidation(t, err, "Attribute 'releases[0].releaseYear' has to be a number.")
}

func TestLocationAddressMustResolve(t *testing.T) {
	f := newFixture(t)
	_, err := f.v.Location(f.ctx, validate.ModePost, map[string]any{"name": "SO36", "address": "Nowhere 5"}, validate.Options{})
	requireValidation(t, err, "Attribute 'address' could not be resolved to an address.")

	loc, err := f.v.Location(f.ctx, validate.ModePost, map[string]any{"name": "SO36", "address": "Alexanderplatz 1, Berlin"}, validate.Options{})
	require.NoError(t, err)
	assert.Equal(t, "Alexanderplatz 1", loc.Address.Street)
	assert.Equal(t, "Alexanderplatz 1, Berlin", loc.Address.Query)
}

func TestLocationUniquenessDependsOnMode(t *testing.T) {
	f := newFixture(t)
	f.insert(t, db.UnvalidatedLocationsCollection, models.Location{Name: "SO36", Address: models.Address{City: "Berlin"}})
	payload := map[string]any{"name": "so36", "address": "Alexanderplatz 1, Berlin"}

	_, err := f.v.Location(f.ctx, validate.ModePost, payload, validate.Options{})
	require.NoError(t, err)

	_, err = f.v.Location(f.ctx, validate.ModeUnvalidated, payload, validate.Options{})
	requireValidation(t, err, "A location with this name already exists in this city.")
}

func eventPayload(location any, bands ...any) map[string]any {
	return map[string]any{"name": "Gig", "date": "2030-05-01", "location": location, "bands": bands}
}

func TestEventPendingLocationOnlyInUnvalidatedMode(t *testing.T) {
	f := newFixture(t)
	loc := f.insert(t, db.UnvalidatedLocationsCollection, models.Location{Name: "SO36", Address: models.Address{City: "Berlin"}})

	e, err := f.v.Event(f.ctx, validate.ModePost, eventPayload(loc.Hex(), "X"), validate.Options{})
	require.NoError(t, err)
	assert.Equal(t, models.MarkerRef("Location", loc.Hex()), e.Location)

	e, err = f.v.Event(f.ctx, validate.ModeUnvalidated, eventPayload(loc.Hex(), "X"), validate.Options{})
	require.NoError(t, err)
	assert.Equal(t, models.RefTo(loc), e.Location)
	assert.Equal(t, time.Date(2030, 5, 1, 0, 0, 0, 0, time.UTC), e.Date)
}

func TestEventLocationByNameAndCity(t *testing.T) {
	f := newFixture(t)
	loc := f.insert(t, db.LocationsCollection, models.Location{Name: "SO36 Club", Address: models.Address{City: "Berlin"}})

	e, err := f.v.Event(f.ctx, validate.ModePost, eventPayload(map[string]any{"name": "so36", "city": "berlin"}, "X"), validate.Options{})
	require.NoError(t, err)
	assert.Equal(t, models.RefTo(loc), e.Location)

	e, err = f.v.Event(f.ctx, validate.ModePost, eventPayload(map[string]any{"name": "so36", "city": "Hamburg"}, "X"), validate.Options{})
	require.NoError(t, err)
	assert.Equal(t, models.MarkerRef("Location", "so36, Hamburg"), e.Location)
}

func TestEventBandsByIDOrName(t *testing.T) {
	f := newFixture(t)
	a := f.insert(t, db.BandsCollection, models.Band{Name: "Alpha"})
	b := f.insert(t, db.BandsCollection, models.Band{Name: "Beta"})
	loc := f.insert(t, db.LocationsCollection, models.Location{Name: "SO36"})

	e, err := f.v.Event(f.ctx, validate.ModePost, eventPayload(loc.Hex(), "beta", a.Hex(), "Gamma", "BETA"), validate.Options{})
	require.NoError(t, err)
	assert.Equal(t, []models.Ref{models.RefTo(b), models.RefTo(a), models.MarkerRef("Band", "Gamma")}, e.Bands)
}

func TestEventValidateModeNeedsResolvedReferences(t *testing.T) {
	f := newFixture(t)
	f.insert(t, db.BandsCollection, models.Band{Name: "Alpha"})
	loc := f.insert(t, db.LocationsCollection, models.Location{Name: "SO36"})
	pending := f.insert(t, db.UnvalidatedLocationsCollection, models.Location{Name: "Rote Flora"})

	_, err := f.v.Event(f.ctx, validate.ModeValidate, eventPayload(pending.Hex(), "Alpha"), validate.Options{})
	requireValidation(t, err, "The location of the event has to be validated first.")

	_, err = f.v.Event(f.ctx, validate.ModeValidate, eventPayload(loc.Hex(), "Alpha", "Nobody"), validate.Options{})
	requireValidation(t, err, "All bands of the event have to exist before it can be validated.")

	_, err = f.v.Event(f.ctx, validate.ModeValidate, eventPayload(loc.Hex(), "Alpha"), validate.Options{})
	require.NoError(t, err)
}

func TestEventCanceledAndPast(t *testing.T) {
	f := newFixture(t)
	loc := f.insert(t, db.LocationsCollection, models.Location{Name: "SO36"})

	payload := eventPayload(loc.Hex(), "X")
	payload["canceled"] = 3.0
	_, err := f.v.Event(f.ctx, validate.ModePost, payload, validate.Options{})
	requireValidation(t, err, "Attribute 'canceled' has to be 0 (not canceled), 1 (canceled) or 2 (partially canceled).")

	payload["canceled"] = 2.0
	payload["date"] = "1999-01-01"
	e, err := f.v.Event(f.ctx, validate.ModePost, payload, validate.Options{})
	require.NoError(t, err)
	assert.Equal(t, models.PartiallyCanceled, e.Canceled)
	assert.True(t, f.v.IsPast(e))
	e.Date = time.Now().AddDate(1, 0, 0)
	assert.False(t, f.v.IsPast(e))
}

func TestFestivalEventDatesAndVerifiable(t *testing.T) {
	f := newFixture(t)
	f.insert(t, db.BandsCollection, models.Band{Name: "Alpha"})
	payload := map[string]any{"name": "Fest 2030", "startDate": "2030-07-03", "endDate": "2030-07-01", "bands": []any{"Alpha", "alpha", "Beta"}}

	_, err := f.v.FestivalEvent(f.ctx, validate.ModePost, payload, validate.Options{})
	requireValidation(t, err, "Attribute 'endDate' must not be before 'startDate'.")

	payload["endDate"] = "2030-07-05"
	fe, err := f.v.FestivalEvent(f.ctx, validate.ModePost, payload, validate.Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha", "Beta"}, fe.Bands)

	_, err = f.v.FestivalEvent(f.ctx, validate.ModeValidate, payload, validate.Options{})
	requireValidation(t, err, "All bands of the festival event have to exist before it can be validated.")

	f.insert(t, db.BandsCollection, models.Band{Name: "Beta"})
	_, err = f.v.FestivalEvent(f.ctx, validate.ModeValidate, payload, validate.Options{})
	require.NoError(t, err)
}

func TestFestivalEventsMustExist(t *testing.T) {
	f := newFixture(t)
	fe := f.insert(t, db.UnvalidatedFestivalEventsCollection, models.FestivalEvent{Name: "Fest 2030"})
	payload := map[string]any{
		"name":    "Fest",
		"address": "Reeperbahn 1, Hamburg",
		"genre":   []any{"Punk"},
		"events":  []any{fe.Hex()},
	}

	fest, err := f.v.Festival(f.ctx, validate.ModeUnvalidated, payload, validate.Options{})
	require.NoError(t, err)
	assert.Equal(t, []models.Ref{models.RefTo(fe)}, fest.Events)
	assert.Equal(t, "Hamburg", fest.Address.City)

	missing := primitive.NewObjectID()
	payload["events"] = []any{missing.Hex()}
	_, err = f.v.Festival(f.ctx, validate.ModeUnvalidated, payload, validate.Options{})
	requireValidation(t, err, "Festival event "+missing.Hex()+" does not exist.")
}

func TestBatchStopsAtFirstFailure(t *testing.T) {
	f := newFixture(t)
	payloads := []map[string]any{
		bandPayload("Alpha", "Berlin", "Punk"),
		bandPayload("Beta", "Berlin", "Punk"),
		bandPayload("alpha", "berlin", "Crust"),
		{"name": ""},
	}

	_, err := f.v.Bands(f.ctx, payloads)
	requireValidation(t, err, "Item 3: A band with this name from this city already exists.")
	assert.Zero(t, f.store.Len(db.BandsCollection))

	bands, err := f.v.Bands(f.ctx, payloads[:2])
	require.NoError(t, err)
	assert.Len(t, bands, 2)
}

func TestBatchGenres(t *testing.T) {
	f := newFixture(t)
	_, err := f.v.Genres(f.ctx, []map[string]any{{"name": "Punk"}, {"name": "PUNK"}})
	requireValidation(t, err, "Item 2: A genre with this name already exists.")

	genres, err := f.v.Genres(f.ctx, []map[string]any{{"name": "Punk"}, {"name": "Crust"}})
	require.NoError(t, err)
	assert.Equal(t, "Crust", genres[1].Name)
}

func TestBugReport(t *testing.T) {
	f := newFixture(t)
	payload := map[string]any{"function": "search", "component": "events", "severity": "High", "text": "broken"}
	bug, err := f.v.BugReport(payload)
	require.NoError(t, err)
	assert.Equal(t, "high", bug.Severity)
	assert.Equal(t, "open", bug.Status)

	payload["severity"] = "whatever"
	_, err = f.v.BugReport(payload)
	requireValidation(t, err, "Attribute 'severity' has to be one of low, medium, high or critical.")

	_, err = f.v.Feedback(map[string]any{})
	requireValidation(t, err, "Attribute 'text' has to be a string with 1 or more characters.")
}

type brokenStore struct{ db.Store }

var errBroken = errors.New("connection refused")

func (brokenStore) Find(context.Context, string, bson.M) ([]bson.M, error) { return nil, errBroken }

func TestStorageFailureIsNotValidation(t *testing.T) {
	v := validate.New(brokenStore{db.NewMemory()}, places, language.English)
	_, err := v.Genre(context.Background(), validate.ModePost, map[string]any{"name": "Punk"}, validate.Options{})
	require.Error(t, err)
	assert.False(t, validate.IsValidation(err))
	assert.ErrorIs(t, err, errBroken)
}
