package web

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/davecgh/go-spew/spew"
	"github.com/gorilla/mux"

	"github.com/spaghettifunk/aria/engine/media"
)

var spewConfig = &spew.ConfigState{
	Indent:            "  ",
	DisableCapacities: true,
	DisableMethods:    true,
	MaxDepth:          6,
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.WriteHeader(status)
	writeJSON(w, map[string]string{"error": err.Error()})
}

func handlerResources(m *media.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, m.Resources())
	}
}

func handlerCategory(m *media.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		category := media.Category(mux.Vars(r)["category"])
		var out []media.ResourceInfo
		for _, info := range m.Resources() {
			if info.Category == category {
				out = append(out, info)
			}
		}
		writeJSON(w, out)
	}
}

func handlerMetrics(m *media.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, m.Metrics())
	}
}

func handlerDump(m *media.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		category := media.Category(mux.Vars(r)["category"])
		name := mux.Vars(r)["name"]
		resource := m.Lookup(category, name)
		if resource == nil {
			writeError(w, http.StatusNotFound, fmt.Errorf("no %s resource named '%s'", category, name))
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprint(w, spewConfig.Sdump(resource))
	}
}
