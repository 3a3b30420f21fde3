package controllers

import "net/http"

type routeRegistrar interface {
	RegisterRoutes(mux *http.ServeMux)
}

// RegisterAll wires the routes of every controller onto mux.
func RegisterAll(mux *http.ServeMux, controllers ...routeRegistrar) {
	for _, c := range controllers {
		c.RegisterRoutes(mux)
	}
}
