package locations

import (
	"net/http"

	"eventdir/db"
	"eventdir/entity"
	"eventdir/models"
	"eventdir/utils"
	"eventdir/validate"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func Handlers(env *entity.Env) entity.Set {
	return entity.Set{
		Plural:     "locations",
		List:       env.List(models.KindLocation, models.Validated, "name"),
		Get:        env.Get(models.KindLocation, models.Validated, "id"),
		Create:     entity.Create(env, models.KindLocation, models.Validated, validate.ModePost, env.Validate.Location, nil),
		CreateMany: entity.CreateMany(env, models.KindLocation, env.Validate.Locations),
		Replace:    entity.Replace(env, models.KindLocation, models.Validated, "id", env.Validate.Location),
		Delete:     env.Delete(models.KindLocation, models.Validated, "id"),

		Submit:      entity.Submit(env, models.KindLocation, env.Validate.Location, nil),
		ListPending: env.List(models.KindLocation, models.Unvalidated, "name"),
		GetPending:  env.Get(models.KindLocation, models.Unvalidated, "sub"),
		Promote: entity.Promote(env, models.KindLocation, "sub", env.Workflow.PromoteLocation, func(l models.Location) (primitive.ObjectID, models.Lifecycle) {
			return l.ID, models.Validated
		}),
		Reject: env.Delete(models.KindLocation, models.Unvalidated, "sub"),

		Related: map[string]httprouter.Handle{
			"events": locationEvents(env),
		},
	}
}

// locationEvents lists the validated events at a location, by date.
func locationEvents(env *entity.Env) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		id, ok := entity.ParseID(ps, "id")
		if !ok {
			utils.RespondWithError(w, http.StatusNotFound, "Not found")
			return
		}
		if _, err := env.Store.FindByID(r.Context(), db.LocationsCollection, id); err != nil {
			entity.RespondWithErr(w, r, "LocationEvents", err)
			return
		}
		docs, err := env.Store.Find(r.Context(), db.EventsCollection, bson.M{"location": models.RefTo(id).String()})
		if err != nil {
			entity.RespondWithErr(w, r, "LocationEvents", err)
			return
		}
		out, err := env.Deref.DereferenceMany(r.Context(), models.KindEvent, models.Validated, docs, entity.ByDate)
		if err != nil {
			entity.RespondWithErr(w, r, "LocationEvents", err)
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, out)
	}
}
