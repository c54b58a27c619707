package httpserver

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
)

type Server struct {
	Mux *mux.Router
}

// New returns a router with request ids, access logging and per-route
// request counting installed.
func New(requests *prometheus.CounterVec) *Server {
	r := mux.NewRouter()
	r.Use(RequestID, Logging)
	if requests != nil {
		r.Use(Metrics(requests))
	}
	return &Server{Mux: r}
}
