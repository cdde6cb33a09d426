package validate

import (
	"fmt"
	"math"
	"strings"
	"time"

	"eventdir/models"
)

const dateLayout = "2006-01-02"

// fields reads typed attributes from a decoded JSON object. The first
// violation sticks; later reads are no-ops returning zero values.
type fields struct {
	payload map[string]any
	err     error
}

func read(payload map[string]any) *fields {
	return &fields{payload: payload}
}

func (f *fields) fail(format string, args ...any) {
	if f.err == nil {
		f.err = failf(format, args...)
	}
}

func (f *fields) get(key string) (any, bool) {
	if f.err != nil {
		return nil, false
	}
	v, ok := f.payload[key]
	if ok && v == nil {
		return nil, false
	}
	return v, ok
}

// str reads a required non-empty string.
func (f *fields) str(key string) string {
	v, _ := f.get(key)
	s, ok := v.(string)
	if f.err == nil && (!ok || strings.TrimSpace(s) == "") {
		f.fail("Attribute '%s' has to be a string with 1 or more characters.", key)
		return ""
	}
	return strings.TrimSpace(s)
}

// optStr reads an optional string; when present it must be a string.
func (f *fields) optStr(key string) string {
	v, ok := f.get(key)
	if !ok {
		return ""
	}
	s, isStr := v.(string)
	if !isStr {
		f.fail("Attribute '%s' has to be a string.", key)
		return ""
	}
	return strings.TrimSpace(s)
}

// strList reads an array of non-empty strings. required demands at least
// one element.
func (f *fields) strList(key string, required bool) []string {
	v, ok := f.get(key)
	if !ok {
		if required {
			f.fail("Attribute '%s' has to be an array with 1 or more elements.", key)
		}
		return nil
	}
	arr, isArr := v.([]any)
	if !isArr || (required && len(arr) == 0) {
		f.fail("Attribute '%s' has to be an array with 1 or more elements.", key)
		return nil
	}
	out := make([]string, 0, len(arr))
	for i, el := range arr {
		s, isStr := el.(string)
		if !isStr || strings.TrimSpace(s) == "" {
			f.fail("Attribute '%s[%d]' has to be a string with 1 or more characters.", key, i)
			return nil
		}
		out = append(out, strings.TrimSpace(s))
	}
	return out
}

// integer reads a whole number.
func (f *fields) integer(key string, required bool) int {
	v, ok := f.get(key)
	if !ok {
		if required {
			f.fail("Attribute '%s' has to be a number.", key)
		}
		return 0
	}
	n, isNum := toInt(v)
	if !isNum {
		f.fail("Attribute '%s' has to be a number.", key)
	}
	return n
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	}
	return 0, false
}

// date reads a required date as YYYY-MM-DD or RFC 3339.
func (f *fields) date(key string) time.Time {
	v, _ := f.get(key)
	s, ok := v.(string)
	if f.err != nil {
		return time.Time{}
	}
	if ok {
		if t, err := time.Parse(dateLayout, s); err == nil {
			return t.UTC()
		}
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t.UTC()
		}
	}
	f.fail("Attribute '%s' has to be a date in the format YYYY-MM-DD.", key)
	return time.Time{}
}

func (f *fields) canceled(key string) models.Canceled {
	v, ok := f.get(key)
	if !ok {
		return models.NotCanceled
	}
	n, isNum := toInt(v)
	c := models.Canceled(n)
	if !isNum || !c.Valid() {
		f.fail("Attribute '%s' has to be 0 (not canceled), 1 (canceled) or 2 (partially canceled).", key)
		return models.NotCanceled
	}
	return c
}

func (f *fields) object(key string, required bool) map[string]any {
	v, ok := f.get(key)
	if !ok {
		if required {
			f.fail("Attribute '%s' has to be an object.", key)
		}
		return nil
	}
	m, isObj := v.(map[string]any)
	if !isObj {
		f.fail("Attribute '%s' has to be an object.", key)
		return nil
	}
	return m
}

func (f *fields) releases(key string) []models.Release {
	v, ok := f.get(key)
	if !ok {
		return []models.Release{}
	}
	arr, isArr := v.([]any)
	if !isArr {
		f.fail("Attribute '%s' has to be an array.", key)
		return nil
	}
	out := make([]models.Release, 0, len(arr))
	for i, el := range arr {
		obj, isObj := el.(map[string]any)
		if !isObj {
			f.fail("Attribute '%s[%d]' has to be an object.", key, i)
			return nil
		}
		sub := read(obj)
		rel := models.Release{
			ReleaseName: sub.str("releaseName"),
			ReleaseYear: sub.integer("releaseYear", true),
		}
		if sub.err != nil {
			f.fail("%s", strings.Replace(sub.err.Error(), "Attribute '", fmt.Sprintf("Attribute '%s[%d].", key, i), 1))
			return nil
		}
		out = append(out, rel)
	}
	return out
}
