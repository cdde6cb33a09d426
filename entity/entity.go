// Package entity holds the request handling shared by every directory
// entity: listing, fetching, writing and the moderation endpoints.
package entity

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"eventdir/db"
	"eventdir/deref"
	"eventdir/middleware"
	"eventdir/models"
	"eventdir/utils"
	"eventdir/validate"
	"eventdir/workflow"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Env is what every handler needs.
type Env struct {
	Store    db.Store
	Deref    *deref.Resolver
	Validate *validate.Validator
	Workflow *workflow.Workflow
}

// ValidateFunc is the shape of the per-kind validators.
type ValidateFunc[T any] func(ctx context.Context, mode validate.Mode, payload map[string]any, opts validate.Options) (T, error)

// RespondWithErr maps err to a status code and logs server-side failures
// with the request id.
func RespondWithErr(w http.ResponseWriter, r *http.Request, op string, err error) {
	var cascade *workflow.CascadeError
	req := middleware.RequestID(r.Context())
	switch {
	case validate.IsValidation(err):
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
	case db.IsNotFound(err):
		utils.RespondWithError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, context.DeadlineExceeded):
		log.Printf("[%s] %s timeout: %v", op, req, err)
		utils.RespondWithError(w, http.StatusGatewayTimeout, "Request timed out")
	case errors.As(err, &cascade):
		log.Printf("[%s] %s %v", op, req, err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Promoted, but some references could not be updated")
	default:
		log.Printf("[%s] %s %v", op, req, err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// ParseID reads the named route parameter as an ObjectID.
func ParseID(ps httprouter.Params, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(ps.ByName(name))
	return id, err == nil
}

func readPayload(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	payload, err := utils.DecodeObject(r)
	if err != nil || payload == nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Request body has to be a JSON object.")
		return nil, false
	}
	return payload, true
}

// ReadOptionalPayload reads a JSON object body; an empty body is nil.
func ReadOptionalPayload(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	payload, err := utils.DecodeObject(r)
	if errors.Is(err, io.EOF) {
		return nil, true
	}
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Request body has to be a JSON object.")
		return nil, false
	}
	return payload, true
}

func collection(kind models.Kind, state models.Lifecycle) string {
	coll, ok := db.CollectionFor(kind, state)
	if !ok {
		panic("entity: no collection for " + string(kind) + "/" + string(state))
	}
	return coll
}

func op(kind models.Kind, verb string) string {
	return verb + strings.ToUpper(string(kind[:1])) + string(kind[1:])
}

// List serves a page of dereferenced documents. query filters by name,
// sortBy and order select the sort key.
func (e *Env) List(kind models.Kind, state models.Lifecycle, defaultSort string) httprouter.Handle {
	coll := collection(kind, state)
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		opts := utils.ParseListOptions(r, defaultSort)
		filter := bson.M{}
		if opts.Query != "" {
			filter["name"] = db.ContainsRegex(opts.Query)
		}
		docs, err := e.Store.Find(r.Context(), coll, filter)
		if err != nil {
			RespondWithErr(w, r, op(kind, "List"), err)
			return
		}
		var keys []deref.SortKey
		if len(opts.SortBy) > 0 {
			keys = append(keys, deref.SortKey{Path: opts.SortBy, Order: opts.Order})
		}
		items, err := e.Deref.DereferenceMany(r.Context(), kind, state, docs, keys...)
		if err != nil {
			RespondWithErr(w, r, op(kind, "List"), err)
			return
		}
		if len(opts.SortBy) > 0 && len(items) > 0 && !utils.HasPath(items, opts.SortBy) {
			utils.RespondWithError(w, http.StatusBadRequest, "Attribute '"+strings.Join(opts.SortBy, ".")+"' cannot be used for sorting.")
			return
		}
		page := utils.Paginate(items, opts)
		utils.RespondWithJSON(w, http.StatusOK, utils.M{
			"data":    page,
			"total":   len(items),
			"page":    opts.Page,
			"perPage": opts.PerPage,
		})
	}
}

// Get serves one dereferenced document; the id is read from param.
func (e *Env) Get(kind models.Kind, state models.Lifecycle, param string) httprouter.Handle {
	coll := collection(kind, state)
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		id, ok := ParseID(ps, param)
		if !ok {
			utils.RespondWithError(w, http.StatusNotFound, "Not found")
			return
		}
		doc, err := e.Store.FindByID(r.Context(), coll, id)
		if err != nil {
			RespondWithErr(w, r, op(kind, "Get"), err)
			return
		}
		out, err := e.Deref.DereferenceOne(r.Context(), kind, state, doc)
		if err != nil {
			RespondWithErr(w, r, op(kind, "Get"), err)
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, out)
	}
}

// Delete removes a document. For pending records this is a rejection.
func (e *Env) Delete(kind models.Kind, state models.Lifecycle, param string) httprouter.Handle {
	coll := collection(kind, state)
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		id, ok := ParseID(ps, param)
		if !ok {
			utils.RespondWithError(w, http.StatusNotFound, "Not found")
			return
		}
		var err error
		if state == models.Unvalidated {
			err = e.Workflow.Reject(r.Context(), kind, id)
		} else {
			err = e.Store.DeleteByID(r.Context(), coll, id)
		}
		if err != nil {
			RespondWithErr(w, r, op(kind, "Delete"), err)
			return
		}
		log.Printf("[%s] deleted %s from %s", op(kind, "Delete"), id.Hex(), coll)
		w.WriteHeader(http.StatusNoContent)
	}
}

// respondStored dereferences the stored document id and sends it.
func (e *Env) respondStored(w http.ResponseWriter, r *http.Request, kind models.Kind, state models.Lifecycle, id primitive.ObjectID, status int) {
	doc, err := e.Store.FindByID(r.Context(), collection(kind, state), id)
	if err == nil {
		var out utils.M
		if out, err = e.Deref.DereferenceOne(r.Context(), kind, state, doc); err == nil {
			utils.RespondWithJSON(w, status, out)
			return
		}
	}
	RespondWithErr(w, r, op(kind, "Respond"), err)
}

// ByDate orders events by date, earliest first.
var ByDate = deref.SortKey{Path: []string{"date"}, Order: 1}
