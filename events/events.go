package events

import (
	"eventdir/entity"
	"eventdir/models"
	"eventdir/validate"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func Handlers(env *entity.Env) entity.Set {
	// Events dated before today go to the archive.
	placed := func(e models.Event) models.Lifecycle {
		if env.Validate.IsPast(e) {
			return models.Archived
		}
		return models.Validated
	}
	return entity.Set{
		Plural:  "events",
		List:    env.List(models.KindEvent, models.Validated, "date"),
		Get:     env.Get(models.KindEvent, models.Validated, "id"),
		Create:  entity.Create(env, models.KindEvent, models.Validated, validate.ModePost, env.Validate.Event, placed),
		Replace: entity.Replace(env, models.KindEvent, models.Validated, "id", env.Validate.Event),
		Delete:  env.Delete(models.KindEvent, models.Validated, "id"),

		Submit:      entity.Submit(env, models.KindEvent, env.Validate.Event, placed),
		ListPending: env.List(models.KindEvent, models.Unvalidated, "date"),
		GetPending:  env.Get(models.KindEvent, models.Unvalidated, "sub"),
		Promote: entity.Promote(env, models.KindEvent, "sub", env.Workflow.PromoteEvent, func(e models.Event) (primitive.ObjectID, models.Lifecycle) {
			return e.ID, placed(e)
		}),
		Reject: env.Delete(models.KindEvent, models.Unvalidated, "sub"),

		ListArchived: env.List(models.KindEvent, models.Archived, "date"),
		GetArchived:  env.Get(models.KindEvent, models.Archived, "sub"),
	}
}
