package db

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Memory is an in-process Store. Documents are copied on the way in and
// out, so callers never share state with the store. Filters support the
// subset the application uses: equality (also against array members),
// dotted paths, $in, $ne and primitive.Regex values.
type Memory struct {
	mu    sync.RWMutex
	colls map[string][]bson.M
}

func NewMemory() *Memory {
	return &Memory{colls: make(map[string][]bson.M)}
}

func (m *Memory) Find(_ context.Context, collection string, filter bson.M) ([]bson.M, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []bson.M{}
	for _, doc := range m.colls[collection] {
		ok, err := matches(doc, filter)
		if err != nil {
			return nil, fmt.Errorf("find %s: %w", collection, err)
		}
		if ok {
			cp, err := Encode(doc)
			if err != nil {
				return nil, err
			}
			out = append(out, cp)
		}
	}
	return out, nil
}

func (m *Memory) FindByID(_ context.Context, collection string, id primitive.ObjectID) (bson.M, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i := m.indexOf(collection, id)
	if i < 0 {
		return nil, &NotFoundError{Collection: collection, ID: id}
	}
	return Encode(m.colls[collection][i])
}

func (m *Memory) Insert(_ context.Context, collection string, doc any) (primitive.ObjectID, error) {
	cp, err := Encode(doc)
	if err != nil {
		return primitive.NilObjectID, err
	}
	id, ok := cp["_id"].(primitive.ObjectID)
	if !ok || id.IsZero() {
		id = primitive.NewObjectID()
		cp["_id"] = id
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.indexOf(collection, id) >= 0 {
		return primitive.NilObjectID, fmt.Errorf("insert %s: duplicate id %s", collection, id.Hex())
	}
	m.colls[collection] = append(m.colls[collection], cp)
	return id, nil
}

func (m *Memory) UpdateByID(_ context.Context, collection string, id primitive.ObjectID, doc any) error {
	cp, err := Encode(doc)
	if err != nil {
		return err
	}
	cp["_id"] = id

	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexOf(collection, id)
	if i < 0 {
		return &NotFoundError{Collection: collection, ID: id}
	}
	m.colls[collection][i] = cp
	return nil
}

func (m *Memory) DeleteByID(_ context.Context, collection string, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexOf(collection, id)
	if i < 0 {
		return &NotFoundError{Collection: collection, ID: id}
	}
	docs := m.colls[collection]
	m.colls[collection] = append(docs[:i:i], docs[i+1:]...)
	return nil
}

// Len returns the number of documents in collection.
func (m *Memory) Len(collection string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.colls[collection])
}

func (m *Memory) indexOf(collection string, id primitive.ObjectID) int {
	for i, doc := range m.colls[collection] {
		if docID, ok := doc["_id"].(primitive.ObjectID); ok && docID == id {
			return i
		}
	}
	return -1
}

func matches(doc bson.M, filter bson.M) (bool, error) {
	for key, want := range filter {
		got, found := lookup(doc, strings.Split(key, "."))
		ok, err := matchValue(got, found, want)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func lookup(doc bson.M, path []string) (any, bool) {
	var cur any = doc
	for _, seg := range path {
		switch m := cur.(type) {
		case bson.M:
			v, ok := m[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case map[string]any:
			v, ok := m[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case bson.D:
			v, ok := m.Map()[seg]
			if !ok {
				return nil, false
			}
			cur = v
		default:
			return nil, false
		}
	}
	return cur, true
}

func matchValue(got any, found bool, want any) (bool, error) {
	if ops, ok := want.(bson.M); ok && isOperatorDoc(ops) {
		for op, arg := range ops {
			ok, err := matchOperator(got, found, op, arg)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	}
	if !found {
		return want == nil, nil
	}
	return matchScalar(got, want)
}

func matchOperator(got any, found bool, op string, arg any) (bool, error) {
	switch op {
	case "$in":
		rv := reflect.ValueOf(arg)
		if rv.Kind() != reflect.Slice {
			return false, fmt.Errorf("$in expects a slice, got %T", arg)
		}
		if !found {
			return false, nil
		}
		for i := 0; i < rv.Len(); i++ {
			ok, err := matchScalar(got, rv.Index(i).Interface())
			if err != nil || ok {
				return ok, err
			}
		}
		return false, nil
	case "$ne":
		if !found {
			return arg != nil, nil
		}
		ok, err := matchScalar(got, arg)
		return !ok, err
	}
	return false, fmt.Errorf("unsupported operator %s", op)
}

// matchScalar compares one stored value with a filter value. Arrays match
// when any member matches.
func matchScalar(got, want any) (bool, error) {
	if arr, ok := got.(bson.A); ok {
		for _, el := range arr {
			ok, err := matchScalar(el, want)
			if err != nil || ok {
				return ok, err
			}
		}
		return false, nil
	}
	if re, ok := want.(primitive.Regex); ok {
		s, ok := got.(string)
		if !ok {
			return false, nil
		}
		pattern := re.Pattern
		if strings.Contains(re.Options, "i") {
			pattern = "(?i)" + pattern
		}
		compiled, err := regexp.Compile(pattern)
		if err != nil {
			return false, fmt.Errorf("regex %q: %w", re.Pattern, err)
		}
		return compiled.MatchString(s), nil
	}
	return reflect.DeepEqual(normalize(got), normalize(want)), nil
}

func isOperatorDoc(m bson.M) bool {
	for k := range m {
		if !strings.HasPrefix(k, "$") {
			return false
		}
	}
	return len(m) > 0
}

// normalize folds named string types and all numeric kinds so that values
// compare the way the server compares them.
func normalize(v any) any {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	}
	return v
}
