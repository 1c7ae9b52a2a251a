package httpapi

import (
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Register mirrors walletserver/routes.Register's shape: attach the
// logging middleware, then the three inbound endpoints spec.md §4.8
// names.
func Register(r *mux.Router, h *Handler, log *logrus.Entry) {
	r.Use(Logger(log))
	r.HandleFunc("/blocks", h.Blocks).Methods("POST")
	r.HandleFunc("/message", h.Message).Methods("POST")
	r.HandleFunc("/message", h.MessageLiveness).Methods("HEAD")
	r.HandleFunc("/peers", h.Peers).Methods("GET")
}
