package deref

import (
	"context"

	"eventdir/db"
	"eventdir/models"
	"eventdir/utils"

	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/collate"
)

func (r *Resolver) genre(g models.Genre) (utils.M, error) {
	return utils.M{"_id": g.ID.Hex(), "name": g.Name}, nil
}

func address(a models.Address) any {
	if !a.Resolved() {
		return a.Unresolved
	}
	out := utils.M{
		"city":        a.City,
		"country":     a.Country,
		"countryCode": a.CountryCode,
		"lat":         a.Lat,
		"lng":         a.Lng,
		"query":       a.Query,
	}
	if a.Street != "" {
		out["street"] = a.Street
	}
	return out
}

// genreNames resolves genre references to their names, de-duplicated and
// sorted. Markers sort after names.
func (r *Resolver) genreNames(ctx context.Context, refs []models.Ref) ([]any, error) {
	names, err := each(ctx, len(refs), func(ctx context.Context, i int) (string, error) {
		ref := refs[i]
		if ref.IsMarker() {
			return ref.String(), nil
		}
		id, ok := ref.ObjectID()
		if !ok {
			return models.Marker(models.KindGenre.Label(), ref.String()), nil
		}
		doc, found, err := r.findIn(ctx, id, db.GenresCollection)
		if err != nil {
			return "", err
		}
		if !found {
			return models.Marker(models.KindGenre.Label(), ref.String()), nil
		}
		name, _ := doc["name"].(string)
		return name, nil
	})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(names))
	var resolved, markers []string
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		if models.IsMarker(n) {
			markers = append(markers, n)
		} else {
			resolved = append(resolved, n)
		}
	}
	collate.New(r.lang).SortStrings(resolved)

	out := make([]any, 0, len(resolved)+len(markers))
	for _, n := range resolved {
		out = append(out, n)
	}
	for _, m := range markers {
		out = append(out, m)
	}
	return out, nil
}

func (r *Resolver) band(ctx context.Context, b models.Band) (utils.M, error) {
	genres, err := r.genreNames(ctx, b.Genre)
	if err != nil {
		return nil, err
	}
	releases := make([]any, 0, len(b.Releases))
	for _, rel := range b.Releases {
		releases = append(releases, utils.M{"releaseName": rel.ReleaseName, "releaseYear": rel.ReleaseYear})
	}
	out := utils.M{
		"_id":      b.ID.Hex(),
		"name":     b.Name,
		"genre":    genres,
		"origin":   address(b.Origin),
		"releases": releases,
	}
	setIf(out, "foundingDate", b.FoundingDate != 0, b.FoundingDate)
	setIf(out, "recordLabel", b.RecordLabel != "", b.RecordLabel)
	setIf(out, "website", b.Website != "", b.Website)
	setIf(out, "bandcamp", b.Bandcamp != "", b.Bandcamp)
	setIf(out, "facebook", b.Facebook != "", b.Facebook)
	setIf(out, "spotify", b.Spotify != "", b.Spotify)
	return out, nil
}

func (r *Resolver) location(l models.Location) (utils.M, error) {
	out := utils.M{
		"_id":     l.ID.Hex(),
		"name":    l.Name,
		"address": address(l.Address),
	}
	setIf(out, "information", l.Information != "", l.Information)
	setIf(out, "website", l.Website != "", l.Website)
	setIf(out, "facebook", l.Facebook != "", l.Facebook)
	return out, nil
}

// bandsByRef resolves band references, sorted by band name with markers
// last.
func (r *Resolver) bandsByRef(ctx context.Context, refs []models.Ref) ([]any, error) {
	bands, err := each(ctx, len(refs), func(ctx context.Context, i int) (any, error) {
		ref := refs[i]
		if ref.IsMarker() {
			return ref.String(), nil
		}
		id, ok := ref.ObjectID()
		if !ok {
			return models.Marker(models.KindBand.Label(), ref.String()), nil
		}
		doc, found, err := r.findIn(ctx, id, db.BandsCollection)
		if err != nil {
			return nil, err
		}
		if !found {
			return models.Marker(models.KindBand.Label(), ref.String()), nil
		}
		return r.DereferenceOne(ctx, models.KindBand, models.Validated, doc)
	})
	if err != nil {
		return nil, err
	}
	return r.sortByName(bands), nil
}

// bandsByName resolves raw band names against validated bands. ok is false
// when at least one name did not resolve.
func (r *Resolver) bandsByName(ctx context.Context, names []string) ([]any, bool, error) {
	bands, err := each(ctx, len(names), func(ctx context.Context, i int) (any, error) {
		docs, err := r.store.Find(ctx, db.BandsCollection, bson.M{"name": db.NameRegex(names[i])})
		if err != nil {
			return nil, err
		}
		if len(docs) == 0 {
			return models.Marker(models.KindBand.Label(), names[i]), nil
		}
		return r.DereferenceOne(ctx, models.KindBand, models.Validated, docs[0])
	})
	if err != nil {
		return nil, false, err
	}
	ok := true
	for _, b := range bands {
		if _, isMarker := b.(string); isMarker {
			ok = false
		}
	}
	return r.sortByName(bands), ok, nil
}

// sortByName orders embedded objects by name. Marker strings keep their
// relative order after all objects.
func (r *Resolver) sortByName(items []any) []any {
	var objs []utils.M
	var markers []any
	for _, it := range items {
		if m, ok := it.(utils.M); ok {
			objs = append(objs, m)
		} else {
			markers = append(markers, it)
		}
	}
	Sort(objs, r.lang, SortKey{Path: []string{"name"}, Order: 1})

	out := make([]any, 0, len(items))
	for _, o := range objs {
		out = append(out, o)
	}
	return append(out, markers...)
}

func (r *Resolver) event(ctx context.Context, state models.Lifecycle, e models.Event) (utils.M, error) {
	var location any
	var bands []any

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		location, err = r.eventLocation(gctx, state, e.Location)
		return err
	})
	g.Go(func() error {
		var err error
		bands, err = r.bandsByRef(gctx, e.Bands)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := utils.M{
		"_id":      e.ID.Hex(),
		"name":     e.Name,
		"location": location,
		"date":     e.Date.UTC(),
		"bands":    bands,
		"canceled": int(e.Canceled),
	}
	setIf(out, "ticketLink", e.TicketLink != "", e.TicketLink)
	setIf(out, "description", e.Description != "", e.Description)
	return out, nil
}

// eventLocation resolves an event's location. Unvalidated events may point
// at a location that is still pending moderation.
func (r *Resolver) eventLocation(ctx context.Context, state models.Lifecycle, ref models.Ref) (any, error) {
	if ref.IsMarker() {
		return ref.String(), nil
	}
	id, ok := ref.ObjectID()
	if !ok {
		return models.Marker(models.KindLocation.Label(), ref.String()), nil
	}
	colls := []string{db.LocationsCollection}
	if state == models.Unvalidated {
		colls = append(colls, db.UnvalidatedLocationsCollection)
	}
	doc, found, err := r.findIn(ctx, id, colls...)
	if err != nil {
		return nil, err
	}
	if !found {
		return models.Marker(models.KindLocation.Label(), ref.String()), nil
	}
	return r.DereferenceOne(ctx, models.KindLocation, models.Validated, doc)
}

func (r *Resolver) festivalEvent(ctx context.Context, fe models.FestivalEvent) (utils.M, error) {
	bands, verifiable, err := r.bandsByName(ctx, fe.Bands)
	if err != nil {
		return nil, err
	}
	return utils.M{
		"_id":        fe.ID.Hex(),
		"name":       fe.Name,
		"startDate":  fe.StartDate.UTC(),
		"endDate":    fe.EndDate.UTC(),
		"bands":      bands,
		"canceled":   int(fe.Canceled),
		"verifiable": verifiable,
	}, nil
}

func (r *Resolver) festival(ctx context.Context, state models.Lifecycle, f models.Festival) (utils.M, error) {
	var genres, events []any

	colls := []string{db.FestivalEventsCollection}
	if state == models.Unvalidated {
		colls = append(colls, db.UnvalidatedFestivalEventsCollection)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		genres, err = r.genreNames(gctx, f.Genre)
		return err
	})
	g.Go(func() error {
		var err error
		events, err = each(gctx, len(f.Events), func(ctx context.Context, i int) (any, error) {
			ref := f.Events[i]
			if ref.IsMarker() {
				return ref.String(), nil
			}
			id, ok := ref.ObjectID()
			if !ok {
				return models.Marker(models.KindFestivalEvent.Label(), ref.String()), nil
			}
			doc, found, err := r.findIn(ctx, id, colls...)
			if err != nil {
				return nil, err
			}
			if !found {
				return models.Marker(models.KindFestivalEvent.Label(), ref.String()), nil
			}
			return r.DereferenceOne(ctx, models.KindFestivalEvent, state, doc)
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := utils.M{
		"_id":     f.ID.Hex(),
		"name":    f.Name,
		"address": address(f.Address),
		"genre":   genres,
		"events":  events,
	}
	setIf(out, "description", f.Description != "", f.Description)
	setIf(out, "website", f.Website != "", f.Website)
	setIf(out, "facebook", f.Facebook != "", f.Facebook)
	return out, nil
}

func setIf(m utils.M, key string, cond bool, v any) {
	if cond {
		m[key] = v
	}
}
