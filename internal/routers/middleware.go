package routers

import (
	"net/http"
)

// Guards are the per-route middlewares wired by main. Nil entries pass through.
type Guards struct {
	Authenticate func(http.Handler) http.Handler
	Throttle     func(http.Handler) http.Handler
}

func passthrough(next http.Handler) http.Handler { return next }

func (g Guards) auth() func(http.Handler) http.Handler {
	if g.Authenticate == nil {
		return passthrough
	}
	return g.Authenticate
}

func (g Guards) throttle() func(http.Handler) http.Handler {
	if g.Throttle == nil {
		return passthrough
	}
	return g.Throttle
}
