package festivals

import (
	"net/http"

	"eventdir/db"
	"eventdir/entity"
	"eventdir/models"
	"eventdir/utils"
	"eventdir/validate"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func Handlers(env *entity.Env) entity.Set {
	return entity.Set{
		Plural:  "festivals",
		List:    env.List(models.KindFestival, models.Validated, "name"),
		Get:     env.Get(models.KindFestival, models.Validated, "id"),
		Create:  entity.Create(env, models.KindFestival, models.Validated, validate.ModePost, env.Validate.Festival, nil),
		Replace: entity.Replace(env, models.KindFestival, models.Validated, "id", env.Validate.Festival),
		Delete:  env.Delete(models.KindFestival, models.Validated, "id"),

		Submit:      entity.Submit(env, models.KindFestival, env.Validate.Festival, nil),
		ListPending: env.List(models.KindFestival, models.Unvalidated, "name"),
		GetPending:  env.Get(models.KindFestival, models.Unvalidated, "sub"),
		PromotePair: promotePair(env),
		Reject:      env.Delete(models.KindFestival, models.Unvalidated, "sub"),
	}
}

func EventHandlers(env *entity.Env) entity.Set {
	return entity.Set{
		Plural:  "festivalevents",
		List:    env.List(models.KindFestivalEvent, models.Validated, "startDate"),
		Get:     env.Get(models.KindFestivalEvent, models.Validated, "id"),
		Create:  entity.Create(env, models.KindFestivalEvent, models.Validated, validate.ModePost, env.Validate.FestivalEvent, nil),
		Replace: entity.Replace(env, models.KindFestivalEvent, models.Validated, "id", env.Validate.FestivalEvent),
		Delete:  env.Delete(models.KindFestivalEvent, models.Validated, "id"),

		Submit:      entity.Submit(env, models.KindFestivalEvent, env.Validate.FestivalEvent, nil),
		ListPending: env.List(models.KindFestivalEvent, models.Unvalidated, "startDate"),
		GetPending:  env.Get(models.KindFestivalEvent, models.Unvalidated, "sub"),
		Promote: entity.Promote(env, models.KindFestivalEvent, "sub", env.Workflow.PromoteFestivalEvent, func(fe models.FestivalEvent) (primitive.ObjectID, models.Lifecycle) {
			return fe.ID, models.Validated
		}),
		Reject: env.Delete(models.KindFestivalEvent, models.Unvalidated, "sub"),
	}
}

// promotePair validates a pending festival together with one of its
// pending festival events. The optional body holds replacement payloads
// under "festival" and "festivalEvent".
func promotePair(env *entity.Env) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		festID, ok := entity.ParseID(ps, "sub")
		eventID, ok2 := entity.ParseID(ps, "other")
		if !ok || !ok2 {
			utils.RespondWithError(w, http.StatusNotFound, "Not found")
			return
		}
		body, ok := entity.ReadOptionalPayload(w, r)
		if !ok {
			return
		}
		festPayload, _ := body["festival"].(map[string]any)
		eventPayload, _ := body["festivalEvent"].(map[string]any)

		fest, fe, err := env.Workflow.PromoteFestival(r.Context(), festID, festPayload, eventID, eventPayload)
		if err != nil {
			entity.RespondWithErr(w, r, "PromoteFestival", err)
			return
		}
		festDoc, err := env.Store.FindByID(r.Context(), db.FestivalsCollection, fest.ID)
		if err != nil {
			entity.RespondWithErr(w, r, "PromoteFestival", err)
			return
		}
		feDoc, err := env.Store.FindByID(r.Context(), db.FestivalEventsCollection, fe.ID)
		if err != nil {
			entity.RespondWithErr(w, r, "PromoteFestival", err)
			return
		}
		festOut, err := env.Deref.DereferenceOne(r.Context(), models.KindFestival, models.Validated, festDoc)
		if err != nil {
			entity.RespondWithErr(w, r, "PromoteFestival", err)
			return
		}
		feOut, err := env.Deref.DereferenceOne(r.Context(), models.KindFestivalEvent, models.Validated, feDoc)
		if err != nil {
			entity.RespondWithErr(w, r, "PromoteFestival", err)
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"festival": festOut, "festivalEvent": feOut})
	}
}
