package db

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Decode converts a raw document into T through bson.
func Decode[T any](doc bson.M) (T, error) {
	var v T
	raw, err := bson.Marshal(doc)
	if err != nil {
		return v, fmt.Errorf("decode: marshal: %w", err)
	}
	if err := bson.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("decode: unmarshal: %w", err)
	}
	return v, nil
}

// Encode converts v into a raw document through bson.
func Encode(v any) (bson.M, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode: marshal: %w", err)
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("encode: unmarshal: %w", err)
	}
	return doc, nil
}

func FindAs[T any](ctx context.Context, s Store, collection string, filter bson.M) ([]T, error) {
	docs, err := s.Find(ctx, collection, filter)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		v, err := Decode[T](d)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", collection, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func FindByIDAs[T any](ctx context.Context, s Store, collection string, id primitive.ObjectID) (T, error) {
	doc, err := s.FindByID(ctx, collection, id)
	if err != nil {
		var zero T
		return zero, err
	}
	return Decode[T](doc)
}
