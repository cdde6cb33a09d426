package deref

import (
	"fmt"
	"reflect"
	"sort"
	"time"

	"eventdir/utils"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortKey orders by the value at Path. Order is 1 for ascending and -1 for
// descending.
type SortKey struct {
	Path  []string
	Order int
}

// Sort orders docs by keys, each later key breaking ties of the earlier
// ones. Strings compare with the collation rules of lang. Documents missing
// a key, or holding a marker where an object was expected, sort last in
// either direction. With no keys docs is left untouched.
func Sort(docs []utils.M, lang language.Tag, keys ...SortKey) {
	var active []SortKey
	for _, k := range keys {
		if len(k.Path) > 0 {
			active = append(active, k)
		}
	}
	if len(active) == 0 || len(docs) < 2 {
		return
	}

	col := collate.New(lang)
	sort.SliceStable(docs, func(i, j int) bool {
		for _, k := range active {
			a, aok := utils.Lookup(docs[i], k.Path...)
			b, bok := utils.Lookup(docs[j], k.Path...)
			switch {
			case !aok && !bok:
				continue
			case !aok:
				return false
			case !bok:
				return true
			}
			c := compare(col, a, b)
			if c == 0 {
				continue
			}
			if k.Order < 0 {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func compare(col *collate.Collator, a, b any) int {
	if as, ok := a.(string); ok {
		if bs, ok := b.(string); ok {
			return col.CompareString(as, bs)
		}
	}
	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			return at.Compare(bt)
		}
	}
	if af, ok := number(a); ok {
		if bf, ok := number(b); ok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			}
			return 0
		}
	}
	if ab, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			switch {
			case ab == bb:
				return 0
			case !ab:
				return -1
			}
			return 1
		}
	}
	return col.CompareString(fmt.Sprint(a), fmt.Sprint(b))
}

func number(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}
