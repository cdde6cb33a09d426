package genres

import (
	"eventdir/entity"
	"eventdir/models"
	"eventdir/validate"
)

func Handlers(env *entity.Env) entity.Set {
	return entity.Set{
		Plural:     "genres",
		List:       env.List(models.KindGenre, models.Validated, "name"),
		Get:        env.Get(models.KindGenre, models.Validated, "id"),
		Create:     entity.Create(env, models.KindGenre, models.Validated, validate.ModePost, env.Validate.Genre, nil),
		CreateMany: entity.CreateMany(env, models.KindGenre, env.Validate.Genres),
		Replace:    entity.Replace(env, models.KindGenre, models.Validated, "id", env.Validate.Genre),
		Delete:     env.Delete(models.KindGenre, models.Validated, "id"),
	}
}
