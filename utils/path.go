package utils

// Lookup walks path through nested objects and reports whether every
// segment was present. Only objects are traversed; any other value on the
// way, including marker strings, ends the walk unsuccessfully.
func Lookup(doc map[string]any, path ...string) (any, bool) {
	var cur any = doc
	for _, seg := range path {
		var obj map[string]any
		switch m := cur.(type) {
		case M:
			obj = m
		case map[string]any:
			obj = m
		default:
			return nil, false
		}
		v, ok := obj[seg]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// HasPath reports whether at least one of docs contains path.
func HasPath(docs []M, path []string) bool {
	for _, d := range docs {
		if _, ok := Lookup(d, path...); ok {
			return true
		}
	}
	return false
}
