package entity

import (
	"net/http"

	"eventdir/utils"

	"github.com/julienschmidt/httprouter"
)

// Path segments that share a position with document ids.
const (
	SegUnvalidated = "unvalidated"
	SegArchived    = "archived"
	SegMultiple    = "multiple"
	SegValidate    = "validate"
)

// Set is the handlers of one entity. Nil handlers are not routed.
// Handlers below a reserved segment read the id from "sub"; the festival
// event of a pair promotion is read from "other".
type Set struct {
	Plural string

	List       httprouter.Handle
	Get        httprouter.Handle
	Create     httprouter.Handle
	CreateMany httprouter.Handle
	Replace    httprouter.Handle
	Delete     httprouter.Handle

	Submit      httprouter.Handle
	ListPending httprouter.Handle
	GetPending  httprouter.Handle
	Promote     httprouter.Handle
	PromotePair httprouter.Handle
	Reject      httprouter.Handle

	ListArchived httprouter.Handle
	GetArchived  httprouter.Handle

	// Related are served under /:id/<name>.
	Related map[string]httprouter.Handle
}

// Switch dispatches on the value of param. Values without a case go to
// fallback; without fallback they are not found.
func Switch(param string, cases map[string]httprouter.Handle, fallback httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if h := cases[ps.ByName(param)]; h != nil {
			h(w, r, ps)
			return
		}
		if fallback == nil {
			utils.RespondWithError(w, http.StatusNotFound, "Not found")
			return
		}
		fallback(w, r, ps)
	}
}

// Wrap applies mw to h, keeping nil as nil.
func Wrap(h httprouter.Handle, mw func(httprouter.Handle) httprouter.Handle) httprouter.Handle {
	if h == nil {
		return nil
	}
	return mw(h)
}
