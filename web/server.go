package web

import (
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/spaghettifunk/aria/engine/core"
	"github.com/spaghettifunk/aria/engine/media"
)

// StartServer serves the read-only monitoring surface for a media manager:
// resource states, loading metrics, and a deep dump of single resources.
func StartServer(addr string, m *media.Manager) error {
	r := mux.NewRouter()
	r.HandleFunc("/json/resources", handlerResources(m))
	r.HandleFunc("/json/resources/{category}", handlerCategory(m))
	r.HandleFunc("/json/metrics", handlerMetrics(m))
	r.HandleFunc("/dump/{category}/{name}", handlerDump(m))

	h := handlers.RecoveryHandler()(r)
	h = handlers.LoggingHandler(os.Stdout, h)

	core.LogInfo("status server listening on %s", addr)
	return http.ListenAndServe(addr, h)
}
