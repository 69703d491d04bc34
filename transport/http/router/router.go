package router

import (
	"meetroom/internal/handlers/booking"
	"meetroom/internal/handlers/room"

	"github.com/go-chi/chi/v5"
)

const apiVersion = "/v1"

type DomainHandlers struct {
	Room    room.Handler
	Booking booking.Handler
}

type mounter interface {
	Router(router chi.Router)
}

// Router mounts every domain handler under the versioned API prefix.
type Router struct {
	domains []mounter
}

func New(handlers DomainHandlers) Router {
	return Router{
		domains: []mounter{&handlers.Room, &handlers.Booking},
	}
}

func (r Router) SetupRoutes(mux chi.Router) {
	mux.Route(apiVersion, func(v1 chi.Router) {
		for _, domain := range r.domains {
			domain.Router(v1)
		}
	})
}
