package models

import (
	"fmt"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MarkerPrefix starts every in-band error marker.
const MarkerPrefix = "ERROR: "

// Ref is a stored reference to another document. It holds either the hex
// ObjectID of the target or a marker string produced by Marker when the
// target could not be resolved.
type Ref string

// Marker formats the in-band "not found" marker used in place of a
// referenced object, e.g. `ERROR: Genre "Punk Rock" not found`.
func Marker(kind, key string) string {
	return fmt.Sprintf("%s%s %q not found", MarkerPrefix, kind, key)
}

// IsMarker reports whether s is an in-band error marker.
func IsMarker(s string) bool {
	return strings.HasPrefix(s, MarkerPrefix)
}

// ParseMarker splits a marker built by Marker back into kind and key. ok
// is false when s is not such a marker.
func ParseMarker(s string) (kind, key string, ok bool) {
	rest, found := strings.CutPrefix(s, MarkerPrefix)
	if !found {
		return "", "", false
	}
	rest, found = strings.CutSuffix(rest, " not found")
	if !found {
		return "", "", false
	}
	i := strings.Index(rest, ` "`)
	if i < 0 {
		return "", "", false
	}
	key, err := strconv.Unquote(rest[i+1:])
	if err != nil {
		return "", "", false
	}
	return rest[:i], key, true
}

// RefTo builds a reference to id.
func RefTo(id primitive.ObjectID) Ref {
	return Ref(id.Hex())
}

// MarkerRef builds an unresolved reference.
func MarkerRef(kind, key string) Ref {
	return Ref(Marker(kind, key))
}

func (r Ref) IsMarker() bool {
	return IsMarker(string(r))
}

// ObjectID parses the reference. ok is false for markers and malformed ids.
func (r Ref) ObjectID() (primitive.ObjectID, bool) {
	if r.IsMarker() {
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(string(r))
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}

func (r Ref) String() string {
	return string(r)
}

// RefsTo converts ids to references, keeping order.
func RefsTo(ids []primitive.ObjectID) []Ref {
	refs := make([]Ref, len(ids))
	for i, id := range ids {
		refs[i] = RefTo(id)
	}
	return refs
}
