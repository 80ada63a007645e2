// Package restadapter mounts the thinnest possible gorilla/mux surface
// over the Control Surface Adapter's verb table (spec.md §4.J, §6). The
// REST control surface's actual request/response business logic is an
// external collaborator (spec.md §1); this package only demonstrates
// the one-to-one wrapper shape so the external layer has something
// concrete to mount onto, following cc-backend's router-registration
// convention of one handler function per route.
package restadapter

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/looxidlabs/link-band-core/internal/control"
)

// envelope is the `{ "status": "success"|"fail", ... }` shape spec.md
// §6 names for every REST response.
type envelope struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Mount registers one-to-one wrappers for every §4.J verb onto router,
// delegating to adapter so REST and WebSocket callers share the same
// serialized command actor.
func Mount(router *mux.Router, adapter *control.Adapter) {
	router.HandleFunc("/api/scan", scanHandler(adapter)).Methods(http.MethodPost)
	router.HandleFunc("/api/connect", connectHandler(adapter)).Methods(http.MethodPost)
	router.HandleFunc("/api/disconnect", disconnectHandler(adapter)).Methods(http.MethodPost)
	router.HandleFunc("/api/status", statusHandler(adapter)).Methods(http.MethodGet)
	router.HandleFunc("/api/stream/start", startStreamHandler(adapter)).Methods(http.MethodPost)
	router.HandleFunc("/api/stream/stop", stopStreamHandler(adapter)).Methods(http.MethodPost)
	router.HandleFunc("/api/recording/start", startRecordingHandler(adapter)).Methods(http.MethodPost)
	router.HandleFunc("/api/recording/stop", stopRecordingHandler(adapter)).Methods(http.MethodPost)
	router.HandleFunc("/api/health", healthHandler(adapter)).Methods(http.MethodGet)
	router.HandleFunc("/api/recording/export", exportHandler(adapter)).Methods(http.MethodPost)
}

func writeResult(w http.ResponseWriter, data interface{}, err error) {
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(envelope{Status: "fail", Message: err.Error()})
		return
	}
	json.NewEncoder(w).Encode(envelope{Status: "success", Data: data})
}

func scanHandler(a *control.Adapter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		timeout, _ := strconv.ParseFloat(r.URL.Query().Get("timeout_s"), 64)
		result, err := a.Scan(timeout)
		writeResult(w, result, err)
	}
}

type connectRequest struct {
	Address string `json:"address"`
}

func connectHandler(a *control.Adapter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req connectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeResult(w, nil, err)
			return
		}
		result, err := a.Connect(req.Address)
		writeResult(w, result, err)
	}
}

func disconnectHandler(a *control.Adapter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := a.Disconnect()
		writeResult(w, result, err)
	}
}

func statusHandler(a *control.Adapter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := a.Status()
		writeResult(w, result, err)
	}
}

func startStreamHandler(a *control.Adapter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := a.StartStreaming()
		writeResult(w, result, err)
	}
}

func stopStreamHandler(a *control.Adapter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := a.StopStreaming()
		writeResult(w, result, err)
	}
}

type startRecordingRequest struct {
	Name string `json:"name"`
}

func startRecordingHandler(a *control.Adapter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req startRecordingRequest
		json.NewDecoder(r.Body).Decode(&req) // name is optional; a bad/empty body just starts unnamed
		result, err := a.StartRecording(req.Name)
		writeResult(w, result, err)
	}
}

func stopRecordingHandler(a *control.Adapter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := a.StopRecording()
		writeResult(w, result, err)
	}
}

func healthHandler(a *control.Adapter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := a.HealthCheck()
		writeResult(w, result, err)
	}
}

func exportHandler(a *control.Adapter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := a.ExportSession()
		writeResult(w, result, err)
	}
}
