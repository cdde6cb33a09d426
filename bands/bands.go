package bands

import (
	"net/http"

	"eventdir/db"
	"eventdir/entity"
	"eventdir/models"
	"eventdir/utils"
	"eventdir/validate"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
)

func Handlers(env *entity.Env) entity.Set {
	return entity.Set{
		Plural:     "bands",
		List:       env.List(models.KindBand, models.Validated, "name"),
		Get:        env.Get(models.KindBand, models.Validated, "id"),
		Create:     entity.Create(env, models.KindBand, models.Validated, validate.ModePost, env.Validate.Band, nil),
		CreateMany: entity.CreateMany(env, models.KindBand, env.Validate.Bands),
		Replace:    entity.Replace(env, models.KindBand, models.Validated, "id", env.Validate.Band),
		Delete:     env.Delete(models.KindBand, models.Validated, "id"),
		Related: map[string]httprouter.Handle{
			"events": bandEvents(env),
		},
	}
}

// bandEvents lists the upcoming validated events a band plays, by date.
func bandEvents(env *entity.Env) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		id, ok := entity.ParseID(ps, "id")
		if !ok {
			utils.RespondWithError(w, http.StatusNotFound, "Not found")
			return
		}
		if _, err := env.Store.FindByID(r.Context(), db.BandsCollection, id); err != nil {
			entity.RespondWithErr(w, r, "BandEvents", err)
			return
		}
		docs, err := env.Store.Find(r.Context(), db.EventsCollection, bson.M{"bands": models.RefTo(id).String()})
		if err != nil {
			entity.RespondWithErr(w, r, "BandEvents", err)
			return
		}
		out, err := env.Deref.DereferenceMany(r.Context(), models.KindEvent, models.Validated, docs, entity.ByDate)
		if err != nil {
			entity.RespondWithErr(w, r, "BandEvents", err)
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, out)
	}
}
