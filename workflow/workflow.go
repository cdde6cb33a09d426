// Package workflow moves submissions from the unvalidated collections into
// the validated ones and rewrites every reference to the promoted record.
package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"

	"eventdir/db"
	"eventdir/models"
	"eventdir/mq"
	"eventdir/validate"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CascadeError reports a promotion whose validated copy was written but
// whose references could not all be rewritten. Nothing is rolled back.
type CascadeError struct {
	Kind models.Kind
	From primitive.ObjectID
	To   primitive.ObjectID
	Err  error
}

func (e *CascadeError) Error() string {
	return fmt.Sprintf("%s %s promoted to %s, rewriting references failed: %v", e.Kind, e.From.Hex(), e.To.Hex(), e.Err)
}

func (e *CascadeError) Unwrap() error { return e.Err }

type Workflow struct {
	store  db.Store
	v      *validate.Validator
	notify mq.Notifier

	mu    sync.Mutex
	locks map[primitive.ObjectID]*lock
}

type lock struct {
	sync.Mutex
	users int
}

func New(store db.Store, v *validate.Validator, notifier mq.Notifier) *Workflow {
	if notifier == nil {
		notifier = mq.Log{}
	}
	return &Workflow{store: store, v: v, notify: notifier, locks: make(map[primitive.ObjectID]*lock)}
}

// acquire serialises work on one unvalidated record. A second promotion of
// the same id waits and then finds the record gone.
func (w *Workflow) acquire(ids ...primitive.ObjectID) func() {
	var held []*lock
	w.mu.Lock()
	for _, id := range ids {
		l, ok := w.locks[id]
		if !ok {
			l = &lock{}
			w.locks[id] = l
		}
		l.users++
		held = append(held, l)
	}
	w.mu.Unlock()

	for _, l := range held {
		l.Lock()
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
		w.mu.Lock()
		for i, id := range ids {
			if held[i].users--; held[i].users == 0 {
				delete(w.locks, id)
			}
		}
		w.mu.Unlock()
	}
}

func (w *Workflow) emit(ctx context.Context, kind models.Kind, method string, id, previous primitive.ObjectID) {
	content := models.Index{EntityType: string(kind), Method: method, EntityId: id.Hex()}
	if !previous.IsZero() {
		content.PreviousId = previous.Hex()
	}
	if err := w.notify.Notify(ctx, content); err != nil {
		log.Printf("[Notify] %s %s %s: %v", method, kind, id.Hex(), err)
	}
}

// load reads the pending record and, when payload is nil, turns it back
// into a payload the validators accept.
func (w *Workflow) load(ctx context.Context, kind models.Kind, id primitive.ObjectID, payload map[string]any) (bson.M, map[string]any, error) {
	coll, _ := db.CollectionFor(kind, models.Unvalidated)
	doc, err := w.store.FindByID(ctx, coll, id)
	if err != nil {
		return nil, nil, err
	}
	if payload != nil {
		return doc, payload, nil
	}
	p, err := storedPayload(doc)
	if err != nil {
		return nil, nil, fmt.Errorf("%s %s: %w", kind, id.Hex(), err)
	}
	return doc, p, nil
}

// storedPayload converts a stored document to its JSON form. Address
// snapshots are replaced by the query they were resolved from.
func storedPayload(doc bson.M) (map[string]any, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var p map[string]any
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	delete(p, "_id")
	if addr, ok := p["address"].(map[string]any); ok {
		p["address"] = addressQuery(addr)
	}
	return p, nil
}

func addressQuery(addr map[string]any) string {
	if q, _ := addr["query"].(string); q != "" {
		return q
	}
	var parts []string
	for _, k := range []string{"street", "city", "country"} {
		if s, _ := addr[k].(string); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

// promotedFrom is stored on every validated copy and names the pending
// record it was promoted from.
const promotedFrom = "promotedFrom"

// finish inserts the validated copy and completes the promotion. When the
// copy was written but completing failed, the new id is returned with the
// error.
func (w *Workflow) finish(ctx context.Context, kind models.Kind, target string, from primitive.ObjectID, v any) (primitive.ObjectID, error) {
	doc, err := db.Encode(v)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("promote %s: %w", kind, err)
	}
	doc[promotedFrom] = from.Hex()
	to, err := w.store.Insert(ctx, target, doc)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("insert validated %s: %w", kind, err)
	}
	_, err = w.complete(ctx, kind, from, to)
	return to, err
}

// complete rewrites references from the pending record to its validated
// copy, then deletes the pending record. When the rewrite fails the
// pending record is kept and a *CascadeError is returned; running
// complete again picks up where it stopped. removed reports whether the
// pending record was still there.
func (w *Workflow) complete(ctx context.Context, kind models.Kind, from, to primitive.ObjectID) (removed bool, err error) {
	if err := w.Cascade(ctx, kind, from, to); err != nil {
		log.Printf("[Promote] %s %s -> %s: rewriting references failed: %v", kind, from.Hex(), to.Hex(), err)
		return false, &CascadeError{Kind: kind, From: from, To: to, Err: err}
	}
	pending, _ := db.CollectionFor(kind, models.Unvalidated)
	err = w.store.DeleteByID(ctx, pending, from)
	if db.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("delete pending %s %s: %w", kind, from.Hex(), err)
	}
	return true, nil
}

// promoted finds the validated copy an earlier promotion of from wrote.
// A nil document means there is none.
func (w *Workflow) promoted(ctx context.Context, kind models.Kind, from primitive.ObjectID) (bson.M, error) {
	for _, state := range db.Lifecycles(kind) {
		if state == models.Unvalidated {
			continue
		}
		coll, _ := db.CollectionFor(kind, state)
		docs, err := w.store.Find(ctx, coll, bson.M{promotedFrom: from.Hex()})
		if err != nil {
			return nil, fmt.Errorf("find promoted %s %s: %w", kind, from.Hex(), err)
		}
		if len(docs) > 0 {
			return docs[0], nil
		}
	}
	return nil, nil
}

// resume completes an earlier promotion of from whose validated copy is
// already stored, instead of validating and inserting again. ok is false
// when no such copy exists.
func resume[T any](ctx context.Context, w *Workflow, kind models.Kind, from primitive.ObjectID) (v T, ok bool, err error) {
	doc, err := w.promoted(ctx, kind, from)
	if err != nil || doc == nil {
		return v, false, err
	}
	if v, err = db.Decode[T](doc); err != nil {
		return v, true, fmt.Errorf("resume %s: %w", kind, err)
	}
	to, _ := doc["_id"].(primitive.ObjectID)
	removed, err := w.complete(ctx, kind, from, to)
	if err != nil {
		return v, true, err
	}
	if removed {
		log.Printf("[Promote] resumed %s %s -> %s", kind, from.Hex(), to.Hex())
		w.emit(ctx, kind, "promote", to, from)
	}
	return v, true, nil
}
