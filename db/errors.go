package db

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("db: document not found")

// NotFoundError names the collection and id that were looked up.
type NotFoundError struct {
	Collection string
	ID         primitive.ObjectID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("db: %s %s not found", e.Collection, e.ID.Hex())
}

// Is lets errors.Is(err, ErrNotFound) match.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

func IsNotFound(err error) bool {
	return err != nil && errors.Is(err, ErrNotFound)
}
