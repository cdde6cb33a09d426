package routes

import (
	"fmt"
	"net/http"

	"eventdir/bands"
	"eventdir/entity"
	"eventdir/events"
	"eventdir/festivals"
	"eventdir/genres"
	"eventdir/locations"
	"eventdir/middleware"
	"eventdir/ratelim"
	"eventdir/reports"

	"github.com/julienschmidt/httprouter"
)

// Index is a simple health check handler.
func Index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	fmt.Fprint(w, "200")
}

// New builds the router with every directory route.
func New(env *entity.Env, auth *middleware.Auth, limiter *ratelim.RateLimiter) *httprouter.Router {
	router := httprouter.New()
	router.GET("/health", Index)

	AddEntityRoutes(router, bands.Handlers(env), auth, limiter)
	AddEntityRoutes(router, genres.Handlers(env), auth, limiter)
	AddEntityRoutes(router, locations.Handlers(env), auth, limiter)
	AddEntityRoutes(router, events.Handlers(env), auth, limiter)
	AddEntityRoutes(router, festivals.Handlers(env), auth, limiter)
	AddEntityRoutes(router, festivals.EventHandlers(env), auth, limiter)
	AddReportRoutes(router, reports.FeedbackHandlers(env), auth, limiter)
	AddReportRoutes(router, reports.BugHandlers(env), auth, limiter)
	return router
}

// AddEntityRoutes registers /api/<plural>. Reads are public, pending
// submissions are public and rate limited, everything else is privileged.
// A privileged submission is created directly.
func AddEntityRoutes(router *httprouter.Router, s entity.Set, auth *middleware.Auth, limiter *ratelim.RateLimiter) {
	base := "/api/" + s.Plural
	priv := auth.RequirePrivileged

	router.GET(base, s.List)
	router.GET(base+"/:id", entity.Switch("id", map[string]httprouter.Handle{
		entity.SegUnvalidated: s.ListPending,
		entity.SegArchived:    s.ListArchived,
	}, s.Get))
	router.GET(base+"/:id/:sub", entity.Switch("id", map[string]httprouter.Handle{
		entity.SegUnvalidated: s.GetPending,
		entity.SegArchived:    s.GetArchived,
	}, entity.Switch("sub", s.Related, nil)))

	router.POST(base, priv(s.Create))
	router.POST(base+"/:id", entity.Switch("id", map[string]httprouter.Handle{
		entity.SegUnvalidated: entity.Wrap(entity.Wrap(s.Submit, auth.OptionalAuth), limiter.Limit),
		entity.SegMultiple:    entity.Wrap(s.CreateMany, priv),
	}, nil))

	router.PUT(base+"/:id", priv(s.Replace))
	router.PUT(base+"/:id/:sub/:action", entity.Switch("id", map[string]httprouter.Handle{
		entity.SegUnvalidated: entity.Switch("action", map[string]httprouter.Handle{
			entity.SegValidate: entity.Wrap(s.Promote, priv),
		}, nil),
	}, nil))
	if s.PromotePair != nil {
		router.PUT(base+"/:id/:sub/:action/:other", entity.Switch("id", map[string]httprouter.Handle{
			entity.SegUnvalidated: entity.Switch("action", map[string]httprouter.Handle{
				entity.SegValidate: priv(s.PromotePair),
			}, nil),
		}, nil))
	}

	router.DELETE(base+"/:id", priv(s.Delete))
	router.DELETE(base+"/:id/:sub", entity.Switch("id", map[string]httprouter.Handle{
		entity.SegUnvalidated: entity.Wrap(s.Reject, priv),
	}, nil))
}

// AddReportRoutes registers feedback and bug reports: anyone may submit,
// only privileged callers read or delete.
func AddReportRoutes(router *httprouter.Router, s entity.Set, auth *middleware.Auth, limiter *ratelim.RateLimiter) {
	base := "/api/" + s.Plural
	router.POST(base, limiter.Limit(s.Create))
	router.GET(base, auth.RequirePrivileged(s.List))
	router.GET(base+"/:id", auth.RequirePrivileged(s.Get))
	router.DELETE(base+"/:id", auth.RequirePrivileged(s.Delete))
}
