package validate

import (
	"context"

	"eventdir/models"
)

// batch validates every payload in multiple mode against a shared name
// set and stops at the first failure. Validation errors are prefixed with
// the item position.
func batch[T any](ctx context.Context, payloads []map[string]any, one func(context.Context, Mode, map[string]any, Options) (T, error)) ([]T, error) {
	opts := Options{Names: NewNameSet()}
	out := make([]T, 0, len(payloads))
	for i, p := range payloads {
		item, err := one(ctx, ModeMultiple, p, opts)
		if err != nil {
			if IsValidation(err) {
				return nil, failf("Item %d: %s", i+1, err.Error())
			}
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

func (v *Validator) Bands(ctx context.Context, payloads []map[string]any) ([]models.Band, error) {
	return batch(ctx, payloads, v.Band)
}

func (v *Validator) Locations(ctx context.Context, payloads []map[string]any) ([]models.Location, error) {
	return batch(ctx, payloads, v.Location)
}

func (v *Validator) Genres(ctx context.Context, payloads []map[string]any) ([]models.Genre, error) {
	return batch(ctx, payloads, v.Genre)
}
