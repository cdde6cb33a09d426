// Package validate checks incoming payloads and turns them into normalized
// documents ready for persistence. Validators only read from storage.
//
// A validator returns either a value or an error. Payload problems are
// reported as *Error carrying a message meant for the client; any other
// error is a storage or upstream failure.
package validate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"eventdir/db"
	"eventdir/geocode"
	"eventdir/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/text/language"
)

// Mode is the write path a payload is validated for.
type Mode string

const (
	ModePost        Mode = "post"
	ModePut         Mode = "put"
	ModeUnvalidated Mode = "unvalidated"
	ModeValidate    Mode = "validate"
	ModeMultiple    Mode = "multiple"
)

// Error is a validation failure.
type Error struct {
	Message string
}

func (e *Error) Error() string { return e.Message }

func failf(format string, args ...any) error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

// NameSet collects the names already accepted in a batch, ignoring case.
type NameSet struct {
	mu    sync.Mutex
	names map[string]bool
}

func NewNameSet() *NameSet {
	return &NameSet{names: make(map[string]bool)}
}

func (s *NameSet) key(parts ...string) string {
	for i, p := range parts {
		parts[i] = strings.ToLower(strings.TrimSpace(p))
	}
	return strings.Join(parts, "\x00")
}

func (s *NameSet) Has(parts ...string) bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.names[s.key(parts...)]
}

func (s *NameSet) Add(parts ...string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names[s.key(parts...)] = true
}

// Options carry the context of a single validation call.
type Options struct {
	// ID of the document being replaced (put) or promoted (validate).
	ID primitive.ObjectID
	// Names accepted so far in the same batch (multiple).
	Names *NameSet
}

type Validator struct {
	store db.Store
	geo   geocode.Resolver
	lang  language.Tag
	now   func() time.Time
}

func New(store db.Store, geo geocode.Resolver, lang language.Tag) *Validator {
	return &Validator{store: store, geo: geo, lang: lang, now: time.Now}
}

// collidesWith reports whether any document in collections matches filter
// and has an id other than self.
func (v *Validator) collidesWith(ctx context.Context, filter bson.M, self primitive.ObjectID, collections ...string) (bool, error) {
	for _, coll := range collections {
		docs, err := v.store.Find(ctx, coll, filter)
		if err != nil {
			return false, err
		}
		for _, d := range docs {
			if id, _ := d["_id"].(primitive.ObjectID); id != self || self.IsZero() {
				return true, nil
			}
		}
	}
	return false, nil
}

// resolveCity resolves a band origin. A query without result is kept as an
// unresolved address carrying a marker.
func (v *Validator) resolveCity(ctx context.Context, query string) (models.Address, error) {
	addr, err := v.geo.Resolve(ctx, query, geocode.KindCity)
	if errors.Is(err, geocode.ErrNotFound) {
		return models.Address{Query: query, Unresolved: models.Marker("City", query)}, nil
	}
	if err != nil {
		return models.Address{}, fmt.Errorf("resolve city %q: %w", query, err)
	}
	addr.Query = query
	return addr, nil
}

// resolveAddress resolves a street address; failure to resolve is a
// validation error.
func (v *Validator) resolveAddress(ctx context.Context, attr, query string) (models.Address, error) {
	addr, err := v.geo.Resolve(ctx, query, geocode.KindAddress)
	if errors.Is(err, geocode.ErrNotFound) {
		return models.Address{}, failf("Attribute '%s' could not be resolved to an address.", attr)
	}
	if err != nil {
		return models.Address{}, fmt.Errorf("resolve address %q: %w", query, err)
	}
	addr.Query = query
	return addr, nil
}
