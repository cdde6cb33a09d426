package workflow

import (
	"context"
	"fmt"
	"log"
	"slices"

	"eventdir/db"
	"eventdir/models"
	"eventdir/validate"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

// PromoteLocation validates a pending location, stores it as validated and
// points all events at the new record. A nil payload re-validates the
// stored submission.
func (w *Workflow) PromoteLocation(ctx context.Context, id primitive.ObjectID, payload map[string]any) (models.Location, error) {
	defer w.acquire(id)()

	_, payload, err := w.load(ctx, models.KindLocation, id, payload)
	if err != nil {
		return models.Location{}, err
	}
	if loc, ok, err := resume[models.Location](ctx, w, models.KindLocation, id); ok || err != nil {
		return loc, err
	}
	loc, err := w.v.Location(ctx, validate.ModeValidate, payload, validate.Options{ID: id})
	if err != nil {
		return models.Location{}, err
	}
	loc.ID = primitive.NilObjectID

	newID, err := w.finish(ctx, models.KindLocation, db.LocationsCollection, id, loc)
	loc.ID = newID
	if err != nil {
		if newID.IsZero() {
			return models.Location{}, err
		}
		return loc, err
	}
	log.Printf("[PromoteLocation] %s -> %s", id.Hex(), newID.Hex())
	w.emit(ctx, models.KindLocation, "promote", newID, id)
	return loc, nil
}

// PromoteEvent validates a pending event and stores it as validated, or
// as archived when its date has passed.
func (w *Workflow) PromoteEvent(ctx context.Context, id primitive.ObjectID, payload map[string]any) (models.Event, error) {
	defer w.acquire(id)()

	_, payload, err := w.load(ctx, models.KindEvent, id, payload)
	if err != nil {
		return models.Event{}, err
	}
	if event, ok, err := resume[models.Event](ctx, w, models.KindEvent, id); ok || err != nil {
		return event, err
	}
	event, err := w.v.Event(ctx, validate.ModeValidate, payload, validate.Options{ID: id})
	if err != nil {
		return models.Event{}, err
	}
	event.ID = primitive.NilObjectID

	target := db.EventsCollection
	if w.v.IsPast(event) {
		target = db.ArchivedEventsCollection
	}
	newID, err := w.finish(ctx, models.KindEvent, target, id, event)
	event.ID = newID
	if err != nil {
		if newID.IsZero() {
			return models.Event{}, err
		}
		return event, err
	}
	log.Printf("[PromoteEvent] %s -> %s (%s)", id.Hex(), newID.Hex(), target)
	w.emit(ctx, models.KindEvent, "promote", newID, id)
	return event, nil
}

// PromoteFestivalEvent validates a pending festival event whose festival
// is already validated and rewrites the festival's event list.
func (w *Workflow) PromoteFestivalEvent(ctx context.Context, id primitive.ObjectID, payload map[string]any) (models.FestivalEvent, error) {
	defer w.acquire(id)()

	_, payload, err := w.load(ctx, models.KindFestivalEvent, id, payload)
	if err != nil {
		return models.FestivalEvent{}, err
	}
	if fe, ok, err := resume[models.FestivalEvent](ctx, w, models.KindFestivalEvent, id); ok || err != nil {
		return fe, err
	}
	owners, err := w.store.Find(ctx, db.FestivalsCollection, bson.M{"events": models.RefTo(id).String()})
	if err != nil {
		return models.FestivalEvent{}, fmt.Errorf("promote festival event: %w", err)
	}
	if len(owners) == 0 {
		return models.FestivalEvent{}, &validate.Error{Message: "The festival of this festival event has to be validated first."}
	}
	fe, err := w.v.FestivalEvent(ctx, validate.ModeValidate, payload, validate.Options{ID: id})
	if err != nil {
		return models.FestivalEvent{}, err
	}
	fe.ID = primitive.NilObjectID

	newID, err := w.finish(ctx, models.KindFestivalEvent, db.FestivalEventsCollection, id, fe)
	fe.ID = newID
	if err != nil {
		if newID.IsZero() {
			return models.FestivalEvent{}, err
		}
		return fe, err
	}
	log.Printf("[PromoteFestivalEvent] %s -> %s", id.Hex(), newID.Hex())
	w.emit(ctx, models.KindFestivalEvent, "promote", newID, id)
	return fe, nil
}

// PromoteFestival validates a pending festival together with one of its
// pending festival events. Both are validated before anything is written;
// the festival event is stored first, the festival last.
func (w *Workflow) PromoteFestival(ctx context.Context, festivalID primitive.ObjectID, festivalPayload map[string]any, eventID primitive.ObjectID, eventPayload map[string]any) (models.Festival, models.FestivalEvent, error) {
	defer w.acquire(festivalID, eventID)()

	stored, festivalPayload, err := w.load(ctx, models.KindFestival, festivalID, festivalPayload)
	if err != nil {
		return models.Festival{}, models.FestivalEvent{}, err
	}
	fe, feDone, err := resume[models.FestivalEvent](ctx, w, models.KindFestivalEvent, eventID)
	if err != nil {
		return models.Festival{}, fe, err
	}
	if !feDone {
		if _, eventPayload, err = w.load(ctx, models.KindFestivalEvent, eventID, eventPayload); err != nil {
			return models.Festival{}, models.FestivalEvent{}, err
		}
	}
	belongs := func(events []models.Ref) bool {
		return slices.Contains(events, models.RefTo(eventID)) || feDone && slices.Contains(events, models.RefTo(fe.ID))
	}

	pending, err := db.Decode[models.Festival](stored)
	if err != nil {
		return models.Festival{}, models.FestivalEvent{}, fmt.Errorf("promote festival: %w", err)
	}
	if !belongs(pending.Events) {
		return models.Festival{}, models.FestivalEvent{}, &validate.Error{Message: "The festival event does not belong to this festival."}
	}
	if fest, ok, err := resume[models.Festival](ctx, w, models.KindFestival, festivalID); ok || err != nil {
		return fest, fe, err
	}

	var fest models.Festival
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		fest, err = w.v.Festival(gctx, validate.ModeValidate, festivalPayload, validate.Options{ID: festivalID})
		return err
	})
	if !feDone {
		g.Go(func() error {
			var err error
			fe, err = w.v.FestivalEvent(gctx, validate.ModeValidate, eventPayload, validate.Options{ID: eventID})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return models.Festival{}, models.FestivalEvent{}, err
	}
	if !belongs(fest.Events) {
		return models.Festival{}, models.FestivalEvent{}, &validate.Error{Message: "The festival event does not belong to this festival."}
	}

	if !feDone {
		fe.ID = primitive.NilObjectID
		feID, err := w.finish(ctx, models.KindFestivalEvent, db.FestivalEventsCollection, eventID, fe)
		if feID.IsZero() {
			return models.Festival{}, models.FestivalEvent{}, err
		}
		fe.ID = feID
		if err != nil {
			return models.Festival{}, fe, err
		}
		w.emit(ctx, models.KindFestivalEvent, "promote", feID, eventID)
	}

	// The cascade already rewrote the pending festival; the validated
	// copy is built from the validated payload and needs the same change.
	fest.Events = slices.Clone(fest.Events)
	for i, ref := range fest.Events {
		if ref == models.RefTo(eventID) {
			fest.Events[i] = models.RefTo(fe.ID)
		}
	}
	fest.ID = primitive.NilObjectID
	festID, err := w.finish(ctx, models.KindFestival, db.FestivalsCollection, festivalID, fest)
	if festID.IsZero() {
		return models.Festival{}, fe, err
	}
	fest.ID = festID
	if err != nil {
		return fest, fe, err
	}
	log.Printf("[PromoteFestival] %s -> %s with event %s -> %s", festivalID.Hex(), festID.Hex(), eventID.Hex(), fe.ID.Hex())
	w.emit(ctx, models.KindFestival, "promote", festID, festivalID)
	return fest, fe, nil
}

// Reject discards a pending record. Rejecting a festival also discards
// its pending festival events.
func (w *Workflow) Reject(ctx context.Context, kind models.Kind, id primitive.ObjectID) error {
	coll, ok := db.CollectionFor(kind, models.Unvalidated)
	if !ok {
		return fmt.Errorf("reject: %s has no pending state", kind)
	}
	defer w.acquire(id)()

	var events []models.Ref
	if kind == models.KindFestival {
		fest, err := db.FindByIDAs[models.Festival](ctx, w.store, coll, id)
		if err != nil {
			return err
		}
		events = fest.Events
	}
	if err := w.store.DeleteByID(ctx, coll, id); err != nil {
		return err
	}
	for _, ref := range events {
		feID, ok := ref.ObjectID()
		if !ok {
			continue
		}
		err := w.store.DeleteByID(ctx, db.UnvalidatedFestivalEventsCollection, feID)
		if err != nil && !db.IsNotFound(err) {
			return fmt.Errorf("reject festival %s: event %s: %w", id.Hex(), feID.Hex(), err)
		}
	}
	log.Printf("[Reject] %s %s", kind, id.Hex())
	w.emit(ctx, kind, "reject", id, primitive.NilObjectID)
	return nil
}
