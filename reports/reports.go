package reports

import (
	"context"

	"eventdir/entity"
	"eventdir/models"
	"eventdir/validate"
)

// FeedbackHandlers serve /api/feedback. Submitting is public; reading and
// deleting are routed as privileged.
func FeedbackHandlers(env *entity.Env) entity.Set {
	fn := func(_ context.Context, _ validate.Mode, payload map[string]any, _ validate.Options) (models.Feedback, error) {
		return env.Validate.Feedback(payload)
	}
	return entity.Set{
		Plural: "feedback",
		List:   env.List(models.KindFeedback, models.Validated, "createdAt"),
		Get:    env.Get(models.KindFeedback, models.Validated, "id"),
		Create: entity.Create(env, models.KindFeedback, models.Validated, validate.ModePost, fn, nil),
		Delete: env.Delete(models.KindFeedback, models.Validated, "id"),
	}
}

func BugHandlers(env *entity.Env) entity.Set {
	fn := func(_ context.Context, _ validate.Mode, payload map[string]any, _ validate.Options) (models.BugReport, error) {
		return env.Validate.BugReport(payload)
	}
	return entity.Set{
		Plural: "bugs",
		List:   env.List(models.KindBugReport, models.Validated, "createdAt"),
		Get:    env.Get(models.KindBugReport, models.Validated, "id"),
		Create: entity.Create(env, models.KindBugReport, models.Validated, validate.ModePost, fn, nil),
		Delete: env.Delete(models.KindBugReport, models.Validated, "id"),
	}
}
