package workflow_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"eventdir/db"
	"eventdir/geocode"
	"eventdir/models"
	"eventdir/validate"
	"eventdir/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/text/language"
)

var places = geocode.Static{
	"alexanderplatz 1, berlin": {Street: "Alexanderplatz 1", City: "Berlin", Country: "Germany", CountryCode: "DE"},
	"reeperbahn 1, hamburg":    {Street: "Reeperbahn 1", City: "Hamburg", Country: "Germany", CountryCode: "DE"},
}

type recorder struct {
	mu     sync.Mutex
	events []models.Index
}

func (r *recorder) Notify(_ context.Context, content models.Index) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, content)
	return nil
}

type fixture struct {
	ctx   context.Context
	store *db.Memory
	sent  *recorder
	w     *workflow.Workflow
}

func newFixture(t *testing.T, store db.Store) *fixture {
	t.Helper()
	mem := db.NewMemory()
	if store == nil {
		store = mem
	}
	sent := &recorder{}
	v := validate.New(store, places, language.English)
	return &fixture{ctx: context.Background(), store: mem, sent: sent, w: workflow.New(store, v, sent)}
}

func (f *fixture) insert(t *testing.T, coll string, doc any) primitive.ObjectID {
	t.Helper()
	id, err := f.store.Insert(f.ctx, coll, doc)
	require.NoError(t, err)
	return id
}

func (f *fixture) event(t *testing.T, coll string, id primitive.ObjectID) models.Event {
	t.Helper()
	e, err := db.FindByIDAs[models.Event](f.ctx, f.store, coll, id)
	require.NoError(t, err)
	return e
}

func pendingLocation() models.Location {
	return models.Location{
		Name:    "SO36",
		Address: models.Address{Street: "Alexanderplatz 1", City: "Berlin", Query: "Alexanderplatz 1, Berlin"},
	}
}

func TestPromoteLocationRewritesEveryEventCollection(t *testing.T) {
	f := newFixture(t, nil)
	pending := f.insert(t, db.UnvalidatedLocationsCollection, pendingLocation())
	other := primitive.NewObjectID()

	refs := map[string]primitive.ObjectID{}
	for _, coll := range []string{db.EventsCollection, db.ArchivedEventsCollection, db.UnvalidatedEventsCollection} {
		refs[coll] = f.insert(t, coll, models.Event{Name: "Gig", Location: models.RefTo(pending), Bands: []models.Ref{}})
	}
	untouched := f.insert(t, db.EventsCollection, models.Event{Name: "Other", Location: models.RefTo(other), Bands: []models.Ref{}})

	loc, err := f.w.PromoteLocation(f.ctx, pending, nil)
	require.NoError(t, err)
	require.False(t, loc.ID.IsZero())
	assert.NotEqual(t, pending, loc.ID)
	assert.Equal(t, "Berlin", loc.Address.City)

	for coll, id := range refs {
		assert.Equal(t, models.RefTo(loc.ID), f.event(t, coll, id).Location, coll)
	}
	assert.Equal(t, models.RefTo(other), f.event(t, db.EventsCollection, untouched).Location)
	assert.Zero(t, f.store.Len(db.UnvalidatedLocationsCollection))
	assert.Equal(t, 1, f.store.Len(db.LocationsCollection))
	require.Len(t, f.sent.events, 1)
	assert.Equal(t, models.Index{EntityType: "location", Method: "promote", EntityId: loc.ID.Hex(), PreviousId: pending.Hex()}, f.sent.events[0])
}

func TestPromoteTwiceReportsNotFound(t *testing.T) {
	f := newFixture(t, nil)
	pending := f.insert(t, db.UnvalidatedLocationsCollection, pendingLocation())

	_, err := f.w.PromoteLocation(f.ctx, pending, nil)
	require.NoError(t, err)
	_, err = f.w.PromoteLocation(f.ctx, pending, nil)
	assert.True(t, db.IsNotFound(err))
	assert.Equal(t, 1, f.store.Len(db.LocationsCollection))
}

func TestConcurrentPromotionsWriteOnce(t *testing.T) {
	f := newFixture(t, nil)
	pending := f.insert(t, db.UnvalidatedLocationsCollection, pendingLocation())

	errs := make([]error, 4)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.w.PromoteLocation(f.ctx, pending, nil)
		}()
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.True(t, db.IsNotFound(err))
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, f.store.Len(db.LocationsCollection))
}

func TestPromoteEventValidationFailureWritesNothing(t *testing.T) {
	f := newFixture(t, nil)
	loc := f.insert(t, db.UnvalidatedLocationsCollection, pendingLocation())
	band := f.insert(t, db.BandsCollection, models.Band{Name: "Alpha"})
	pending := f.insert(t, db.UnvalidatedEventsCollection, models.Event{
		Name:     "Gig",
		Location: models.RefTo(loc),
		Date:     time.Now().AddDate(0, 1, 0).UTC().Truncate(time.Millisecond),
		Bands:    []models.Ref{models.RefTo(band)},
	})

	_, err := f.w.PromoteEvent(f.ctx, pending, nil)
	require.True(t, validate.IsValidation(err))
	assert.Equal(t, 1, f.store.Len(db.UnvalidatedEventsCollection))
	assert.Zero(t, f.store.Len(db.EventsCollection))
	assert.Empty(t, f.sent.events)

	_, err = f.w.PromoteLocation(f.ctx, loc, nil)
	require.NoError(t, err)
	e, err := f.w.PromoteEvent(f.ctx, pending, nil)
	require.NoError(t, err)
	assert.Equal(t, []models.Ref{models.RefTo(band)}, e.Bands)
	assert.Equal(t, 1, f.store.Len(db.EventsCollection))
	assert.Zero(t, f.store.Len(db.UnvalidatedEventsCollection))
}

func TestPromotePastEventIsArchived(t *testing.T) {
	f := newFixture(t, nil)
	loc := f.insert(t, db.LocationsCollection, pendingLocation())
	pending := f.insert(t, db.UnvalidatedEventsCollection, models.Event{Name: "Gig", Location: models.RefTo(loc), Bands: []models.Ref{}})

	payload := map[string]any{"name": "Gig", "date": "2001-06-01", "location": loc.Hex(), "bands": []any{}}
	_, err := f.w.PromoteEvent(f.ctx, pending, payload)
	requireValidationMsg(t, err, "Attribute 'bands' has to be an array with 1 or more elements.")

	f.insert(t, db.BandsCollection, models.Band{Name: "Alpha"})
	payload["bands"] = []any{"Alpha"}
	_, err = f.w.PromoteEvent(f.ctx, pending, payload)
	require.NoError(t, err)
	assert.Equal(t, 1, f.store.Len(db.ArchivedEventsCollection))
	assert.Zero(t, f.store.Len(db.EventsCollection))
}

func requireValidationMsg(t *testing.T, err error, msg string) {
	t.Helper()
	require.Error(t, err)
	require.True(t, validate.IsValidation(err), "expected validation error, got %v", err)
	assert.Equal(t, msg, err.Error())
}

func festivalEvent(bands ...string) models.FestivalEvent {
	return models.FestivalEvent{
		Name:      "Fest 2030",
		StartDate: time.Date(2030, 7, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2030, 7, 3, 0, 0, 0, 0, time.UTC),
		Bands:     bands,
	}
}

func festival(events ...primitive.ObjectID) models.Festival {
	return models.Festival{
		Name:    "Fest",
		Address: models.Address{Street: "Reeperbahn 1", City: "Hamburg", Query: "Reeperbahn 1, Hamburg"},
		Genre:   []models.Ref{models.MarkerRef("Genre", "Punk")},
		Events:  models.RefsTo(events),
	}
}

func TestPromoteFestivalEventNeedsValidatedFestival(t *testing.T) {
	f := newFixture(t, nil)
	f.insert(t, db.BandsCollection, models.Band{Name: "Alpha"})
	pending := f.insert(t, db.UnvalidatedFestivalEventsCollection, festivalEvent("Alpha"))
	f.insert(t, db.UnvalidatedFestivalsCollection, festival(pending))

	_, err := f.w.PromoteFestivalEvent(f.ctx, pending, nil)
	requireValidationMsg(t, err, "The festival of this festival event has to be validated first.")

	fest := f.insert(t, db.FestivalsCollection, festival(primitive.NewObjectID(), pending))
	fe, err := f.w.PromoteFestivalEvent(f.ctx, pending, nil)
	require.NoError(t, err)

	stored, err := db.FindByIDAs[models.Festival](f.ctx, f.store, db.FestivalsCollection, fest)
	require.NoError(t, err)
	assert.Equal(t, models.RefTo(fe.ID), stored.Events[1])
	assert.Zero(t, f.store.Len(db.UnvalidatedFestivalEventsCollection))
}

func TestPromoteFestivalWithEvent(t *testing.T) {
	f := newFixture(t, nil)
	f.insert(t, db.BandsCollection, models.Band{Name: "Alpha"})
	fePending := f.insert(t, db.UnvalidatedFestivalEventsCollection, festivalEvent("Alpha"))
	festPending := f.insert(t, db.UnvalidatedFestivalsCollection, festival(fePending))

	fest, fe, err := f.w.PromoteFestival(f.ctx, festPending, nil, fePending, nil)
	require.NoError(t, err)
	assert.Equal(t, []models.Ref{models.RefTo(fe.ID)}, fest.Events)
	assert.Equal(t, 1, f.store.Len(db.FestivalsCollection))
	assert.Equal(t, 1, f.store.Len(db.FestivalEventsCollection))
	assert.Zero(t, f.store.Len(db.UnvalidatedFestivalsCollection))
	assert.Zero(t, f.store.Len(db.UnvalidatedFestivalEventsCollection))
	assert.Len(t, f.sent.events, 2)
}

func TestPromoteFestivalValidatesBothFirst(t *testing.T) {
	f := newFixture(t, nil)
	fePending := f.insert(t, db.UnvalidatedFestivalEventsCollection, festivalEvent("Nobody"))
	festPending := f.insert(t, db.UnvalidatedFestivalsCollection, festival(fePending))

	_, _, err := f.w.PromoteFestival(f.ctx, festPending, nil, fePending, nil)
	requireValidationMsg(t, err, "All bands of the festival event have to exist before it can be validated.")
	assert.Zero(t, f.store.Len(db.FestivalsCollection))
	assert.Zero(t, f.store.Len(db.FestivalEventsCollection))

	stray := f.insert(t, db.UnvalidatedFestivalEventsCollection, festivalEvent("Nobody"))
	_, _, err = f.w.PromoteFestival(f.ctx, festPending, nil, stray, nil)
	requireValidationMsg(t, err, "The festival event does not belong to this festival.")
}

// flakyStore fails updates in one collection until broken is cleared.
type flakyStore struct {
	db.Store
	broken string
}

var errDown = errors.New("shard down")

func (s flakyStore) UpdateByID(ctx context.Context, coll string, id primitive.ObjectID, doc any) error {
	if coll == s.broken {
		return errDown
	}
	return s.Store.UpdateByID(ctx, coll, id, doc)
}

func TestCascadeFailureKeepsBothCopies(t *testing.T) {
	mem := db.NewMemory()
	f := newFixture(t, &flakyStore{Store: mem, broken: db.ArchivedEventsCollection})
	f.store = mem
	pending := f.insert(t, db.UnvalidatedLocationsCollection, pendingLocation())
	live := f.insert(t, db.EventsCollection, models.Event{Name: "Gig", Location: models.RefTo(pending), Bands: []models.Ref{}})
	old := f.insert(t, db.ArchivedEventsCollection, models.Event{Name: "Old", Location: models.RefTo(pending), Bands: []models.Ref{}})

	loc, err := f.w.PromoteLocation(f.ctx, pending, nil)
	var cascadeErr *workflow.CascadeError
	require.ErrorAs(t, err, &cascadeErr)
	assert.ErrorIs(t, err, errDown)
	assert.Equal(t, pending, cascadeErr.From)
	assert.Equal(t, loc.ID, cascadeErr.To)

	assert.Equal(t, 1, f.store.Len(db.LocationsCollection))
	assert.Equal(t, 1, f.store.Len(db.UnvalidatedLocationsCollection))
	assert.Equal(t, models.RefTo(loc.ID), f.event(t, db.EventsCollection, live).Location)
	assert.Equal(t, models.RefTo(pending), f.event(t, db.ArchivedEventsCollection, old).Location)
}

func TestRetryAfterCascadeFailureCompletesPromotion(t *testing.T) {
	mem := db.NewMemory()
	flaky := &flakyStore{Store: mem, broken: db.ArchivedEventsCollection}
	f := newFixture(t, flaky)
	f.store = mem
	pending := f.insert(t, db.UnvalidatedLocationsCollection, pendingLocation())
	old := f.insert(t, db.ArchivedEventsCollection, models.Event{Name: "Old", Location: models.RefTo(pending), Bands: []models.Ref{}})

	first, err := f.w.PromoteLocation(f.ctx, pending, nil)
	var cascadeErr *workflow.CascadeError
	require.ErrorAs(t, err, &cascadeErr)
	assert.Empty(t, f.sent.events)

	flaky.broken = ""
	loc, err := f.w.PromoteLocation(f.ctx, pending, nil)
	require.NoError(t, err)
	assert.Equal(t, first.ID, loc.ID)
	assert.Equal(t, "SO36", loc.Name)
	assert.Equal(t, 1, f.store.Len(db.LocationsCollection))
	assert.Zero(t, f.store.Len(db.UnvalidatedLocationsCollection))
	assert.Equal(t, models.RefTo(loc.ID), f.event(t, db.ArchivedEventsCollection, old).Location)
	require.Len(t, f.sent.events, 1)
	assert.Equal(t, pending.Hex(), f.sent.events[0].PreviousId)

	_, err = f.w.PromoteLocation(f.ctx, pending, nil)
	assert.True(t, db.IsNotFound(err))
}

func TestRetryFestivalEventAfterCascadeFailure(t *testing.T) {
	mem := db.NewMemory()
	flaky := &flakyStore{Store: mem, broken: db.UnvalidatedFestivalsCollection}
	f := newFixture(t, flaky)
	f.store = mem
	f.insert(t, db.BandsCollection, models.Band{Name: "Alpha"})
	pending := f.insert(t, db.UnvalidatedFestivalEventsCollection, festivalEvent("Alpha"))
	validated := f.insert(t, db.FestivalsCollection, festival(pending))
	draft := f.insert(t, db.UnvalidatedFestivalsCollection, festival(pending))

	_, err := f.w.PromoteFestivalEvent(f.ctx, pending, nil)
	var cascadeErr *workflow.CascadeError
	require.ErrorAs(t, err, &cascadeErr)
	assert.Equal(t, 1, f.store.Len(db.UnvalidatedFestivalEventsCollection))

	flaky.broken = ""
	fe, err := f.w.PromoteFestivalEvent(f.ctx, pending, nil)
	require.NoError(t, err)
	assert.Equal(t, cascadeErr.To, fe.ID)
	assert.Equal(t, 1, f.store.Len(db.FestivalEventsCollection))
	assert.Zero(t, f.store.Len(db.UnvalidatedFestivalEventsCollection))

	for coll, id := range map[string]primitive.ObjectID{db.FestivalsCollection: validated, db.UnvalidatedFestivalsCollection: draft} {
		stored, err := db.FindByIDAs[models.Festival](f.ctx, f.store, coll, id)
		require.NoError(t, err)
		assert.Equal(t, []models.Ref{models.RefTo(fe.ID)}, stored.Events, coll)
	}
}

func TestPromoteEventResolvesStoredMarkers(t *testing.T) {
	f := newFixture(t, nil)
	pending := f.insert(t, db.UnvalidatedEventsCollection, models.Event{
		Name:     "Gig",
		Location: models.MarkerRef("Location", "SO36, Berlin"),
		Date:     time.Now().AddDate(0, 1, 0).UTC().Truncate(time.Millisecond),
		Bands:    []models.Ref{models.MarkerRef("Band", "Beta")},
	})

	_, err := f.w.PromoteEvent(f.ctx, pending, nil)
	requireValidationMsg(t, err, "The location of the event has to be validated first.")

	loc := f.insert(t, db.LocationsCollection, pendingLocation())
	_, err = f.w.PromoteEvent(f.ctx, pending, nil)
	requireValidationMsg(t, err, "All bands of the event have to exist before it can be validated.")

	band := f.insert(t, db.BandsCollection, models.Band{Name: "Beta"})
	e, err := f.w.PromoteEvent(f.ctx, pending, nil)
	require.NoError(t, err)
	assert.Equal(t, models.RefTo(loc), e.Location)
	assert.Equal(t, []models.Ref{models.RefTo(band)}, e.Bands)
	assert.Zero(t, f.store.Len(db.UnvalidatedEventsCollection))
}

func TestPromoteFestivalPayloadMustKeepEvent(t *testing.T) {
	f := newFixture(t, nil)
	f.insert(t, db.BandsCollection, models.Band{Name: "Alpha"})
	fePending := f.insert(t, db.UnvalidatedFestivalEventsCollection, festivalEvent("Alpha"))
	festPending := f.insert(t, db.UnvalidatedFestivalsCollection, festival(fePending))

	payload := map[string]any{"name": "Fest", "address": "Reeperbahn 1, Hamburg", "genre": []any{"Punk"}, "events": []any{}}
	_, _, err := f.w.PromoteFestival(f.ctx, festPending, payload, fePending, nil)
	requireValidationMsg(t, err, "The festival event does not belong to this festival.")
	assert.Zero(t, f.store.Len(db.FestivalsCollection))
	assert.Zero(t, f.store.Len(db.FestivalEventsCollection))
}

func TestCascadeIsIdempotent(t *testing.T) {
	f := newFixture(t, nil)
	from, to := primitive.NewObjectID(), primitive.NewObjectID()
	fest := f.insert(t, db.UnvalidatedFestivalsCollection, festival(from, primitive.NewObjectID(), from))

	require.NoError(t, f.w.Cascade(f.ctx, models.KindFestivalEvent, from, to))
	require.NoError(t, f.w.Cascade(f.ctx, models.KindFestivalEvent, from, to))

	stored, err := db.FindByIDAs[models.Festival](f.ctx, f.store, db.UnvalidatedFestivalsCollection, fest)
	require.NoError(t, err)
	assert.Equal(t, models.RefTo(to), stored.Events[0])
	assert.NotEqual(t, models.RefTo(to), stored.Events[1])
	assert.Equal(t, models.RefTo(to), stored.Events[2])
}

func TestRejectFestivalDropsItsEvents(t *testing.T) {
	f := newFixture(t, nil)
	fe := f.insert(t, db.UnvalidatedFestivalEventsCollection, festivalEvent("Alpha"))
	fest := f.insert(t, db.UnvalidatedFestivalsCollection, festival(fe))

	require.NoError(t, f.w.Reject(f.ctx, models.KindFestival, fest))
	assert.Zero(t, f.store.Len(db.UnvalidatedFestivalsCollection))
	assert.Zero(t, f.store.Len(db.UnvalidatedFestivalEventsCollection))
	require.Len(t, f.sent.events, 1)
	assert.Equal(t, "reject", f.sent.events[0].Method)

	assert.True(t, db.IsNotFound(f.w.Reject(f.ctx, models.KindFestival, fest)))
	assert.Error(t, f.w.Reject(f.ctx, models.KindBand, primitive.NewObjectID()))
}
