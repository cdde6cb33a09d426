package entity

import (
	"context"
	"log"
	"net/http"

	"eventdir/middleware"
	"eventdir/models"
	"eventdir/utils"
	"eventdir/validate"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Placement picks the collection a validated value is written to.
type Placement[T any] func(T) models.Lifecycle

// Create validates the body in mode and inserts the result into the
// collection for state, or for the state place picks when set.
func Create[T any](e *Env, kind models.Kind, state models.Lifecycle, mode validate.Mode, fn ValidateFunc[T], place Placement[T]) httprouter.Handle {
	name := op(kind, "Create")
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		payload, ok := readPayload(w, r)
		if !ok {
			return
		}
		v, err := fn(r.Context(), mode, payload, validate.Options{})
		if err != nil {
			RespondWithErr(w, r, name, err)
			return
		}
		target := state
		if place != nil {
			target = place(v)
		}
		id, err := e.Store.Insert(r.Context(), collection(kind, target), v)
		if err != nil {
			RespondWithErr(w, r, name, err)
			return
		}
		log.Printf("[%s] %s %s", name, target, id.Hex())
		e.respondStored(w, r, kind, target, id, http.StatusCreated)
	}
}

// Submit stores the body as a pending record. A privileged caller's
// submission skips moderation and is created as Create would.
func Submit[T any](e *Env, kind models.Kind, fn ValidateFunc[T], place Placement[T]) httprouter.Handle {
	pending := Create(e, kind, models.Unvalidated, validate.ModeUnvalidated, fn, nil)
	direct := Create(e, kind, models.Validated, validate.ModePost, fn, place)
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if middleware.IsPrivileged(r.Context()) {
			direct(w, r, ps)
			return
		}
		pending(w, r, ps)
	}
}

// Replace validates the body as a replacement of the document at param.
func Replace[T any](e *Env, kind models.Kind, state models.Lifecycle, param string, fn ValidateFunc[T]) httprouter.Handle {
	name := op(kind, "Replace")
	coll := collection(kind, state)
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		id, ok := ParseID(ps, param)
		if !ok {
			utils.RespondWithError(w, http.StatusNotFound, "Not found")
			return
		}
		if _, err := e.Store.FindByID(r.Context(), coll, id); err != nil {
			RespondWithErr(w, r, name, err)
			return
		}
		payload, ok := readPayload(w, r)
		if !ok {
			return
		}
		v, err := fn(r.Context(), validate.ModePut, payload, validate.Options{ID: id})
		if err != nil {
			RespondWithErr(w, r, name, err)
			return
		}
		if err := e.Store.UpdateByID(r.Context(), coll, id, v); err != nil {
			RespondWithErr(w, r, name, err)
			return
		}
		e.respondStored(w, r, kind, state, id, http.StatusOK)
	}
}

// CreateMany validates a JSON array as one batch and inserts it only when
// every item passed.
func CreateMany[T any](e *Env, kind models.Kind, fn func(context.Context, []map[string]any) ([]T, error)) httprouter.Handle {
	name := op(kind, "CreateMany")
	coll := collection(kind, models.Validated)
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		payloads, err := utils.DecodeObjects(r)
		if err != nil || len(payloads) == 0 {
			utils.RespondWithError(w, http.StatusBadRequest, "Request body has to be a non-empty JSON array of objects.")
			return
		}
		items, err := fn(r.Context(), payloads)
		if err != nil {
			RespondWithErr(w, r, name, err)
			return
		}
		docs := make([]bson.M, 0, len(items))
		for _, item := range items {
			id, err := e.Store.Insert(r.Context(), coll, item)
			if err != nil {
				RespondWithErr(w, r, name, err)
				return
			}
			doc, err := e.Store.FindByID(r.Context(), coll, id)
			if err != nil {
				RespondWithErr(w, r, name, err)
				return
			}
			docs = append(docs, doc)
		}
		log.Printf("[%s] inserted %d", name, len(docs))
		out := make([]utils.M, 0, len(docs))
		for _, d := range docs {
			m, err := e.Deref.DereferenceOne(r.Context(), kind, models.Validated, d)
			if err != nil {
				RespondWithErr(w, r, name, err)
				return
			}
			out = append(out, m)
		}
		utils.RespondWithJSON(w, http.StatusCreated, out)
	}
}

// PromoteFunc is the shape of the single-record promotions.
type PromoteFunc[T any] func(ctx context.Context, id primitive.ObjectID, payload map[string]any) (T, error)

// Promote validates the pending record at param; an empty body re-checks
// the stored submission. located returns where the result was written.
func Promote[T any](e *Env, kind models.Kind, param string, fn PromoteFunc[T], located func(T) (primitive.ObjectID, models.Lifecycle)) httprouter.Handle {
	name := op(kind, "Promote")
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		id, ok := ParseID(ps, param)
		if !ok {
			utils.RespondWithError(w, http.StatusNotFound, "Not found")
			return
		}
		payload, ok := ReadOptionalPayload(w, r)
		if !ok {
			return
		}
		v, err := fn(r.Context(), id, payload)
		if err != nil {
			RespondWithErr(w, r, name, err)
			return
		}
		newID, state := located(v)
		e.respondStored(w, r, kind, state, newID, http.StatusOK)
	}
}
