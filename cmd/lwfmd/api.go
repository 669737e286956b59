package main

// Endpoints exposed by lwfmd:
//   - POST /api/v1/jobs              submit a job
//   - GET  /api/v1/jobs/{id}         most recent status
//   - GET  /api/v1/jobs/{id}/history full status history
//   - POST /api/v1/jobs/{id}/wait    block until terminal
//   - POST /api/v1/jobs/{id}/cancel  cancel
//   - GET  /api/v1/workflows/{id}    dump workflow
//   - POST /api/v1/events            register a trigger
//   - DELETE /api/v1/events/{id}     unregister a trigger
//   - POST /api/v1/sites/callback    authenticated status push from a site
import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"lwfm/internal/lwfmanager"
	"lwfm/internal/logging"
	"lwfm/pkg/lwfm"
)

var errUnauthorizedCallback = errors.New("invalid site callback credential")

func registerAPI(mux *http.ServeMux, mgr *lwfmanager.Manager, log *logging.Logger) {
	mux.HandleFunc("/api/v1/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		handleSubmit(w, r, mgr)
	})
	mux.HandleFunc("/api/v1/jobs/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/v1/jobs/")
		switch {
		case strings.HasSuffix(rest, "/history"):
			handleHistory(w, r, mgr, strings.TrimSuffix(rest, "/history"))
		case strings.HasSuffix(rest, "/wait"):
			handleWait(w, r, mgr, strings.TrimSuffix(rest, "/wait"))
		case strings.HasSuffix(rest, "/cancel"):
			handleCancel(w, r, mgr, strings.TrimSuffix(rest, "/cancel"))
		case rest != "" && !strings.Contains(rest, "/"):
			handleStatus(w, r, mgr, rest)
		default:
			http.NotFound(w, r)
		}
	})
	mux.HandleFunc("/api/v1/workflows/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/api/v1/workflows/")
		if id == "" || strings.Contains(id, "/") {
			http.NotFound(w, r)
			return
		}
		handleDumpWorkflow(w, r, mgr, id)
	})
	mux.HandleFunc("/api/v1/events", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			handleSetEvent(w, r, mgr)
		case http.MethodGet:
			handleActiveEvents(w, r, mgr)
		default:
			http.NotFound(w, r)
		}
	})
	mux.HandleFunc("/api/v1/sites/callback", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		handleSiteCallback(w, r, mgr)
	})
	mux.HandleFunc("/api/v1/events/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			http.NotFound(w, r)
			return
		}
		id := strings.TrimPrefix(r.URL.Path, "/api/v1/events/")
		if err := mgr.UnsetEvent(r.Context(), id); err != nil {
			writeJSONError(w, http.StatusInternalServerError, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

type submitRequest struct {
	SiteName    string            `json:"siteName"`
	Command     string            `json:"command"`
	Args        []string          `json:"args"`
	ComputeType string            `json:"computeType"`
	RunArgs     map[string]string `json:"runArgs"`
}

func handleSubmit(w http.ResponseWriter, r *http.Request, mgr *lwfmanager.Manager) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	if req.SiteName == "" {
		req.SiteName = "local"
	}
	defn := lwfm.NewShellJobDefn(req.Command, req.Args...)
	status, err := mgr.Submit(r.Context(), req.SiteName, defn, nil, req.ComputeType, req.RunArgs)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusAccepted, status)
}

func handleStatus(w http.ResponseWriter, r *http.Request, mgr *lwfmanager.Manager, jobID string) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	status, err := mgr.GetStatus(r.Context(), jobID)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err)
		return
	}
	if status == nil {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func handleHistory(w http.ResponseWriter, r *http.Request, mgr *lwfmanager.Manager, jobID string) {
	history, err := mgr.GetAllStatus(r.Context(), jobID)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func handleWait(w http.ResponseWriter, r *http.Request, mgr *lwfmanager.Manager, jobID string) {
	status, err := mgr.Wait(r.Context(), jobID)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func handleCancel(w http.ResponseWriter, r *http.Request, mgr *lwfmanager.Manager, jobID string) {
	ok, err := mgr.Cancel(r.Context(), jobID)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": ok})
}

type siteCallbackRequest struct {
	SiteName string         `json:"siteName"`
	Secret   string         `json:"secret"`
	Status   lwfm.JobStatus `json:"status"`
}

// handleSiteCallback lets a remote site push a status update directly
// instead of waiting to be polled by a RemoteJobEvent, authenticating
// the push against the site's configured bearer secret.
func handleSiteCallback(w http.ResponseWriter, r *http.Request, mgr *lwfmanager.Manager) {
	var req siteCallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	if !mgr.VerifySiteCredential(req.SiteName, req.Secret) {
		writeJSONError(w, http.StatusUnauthorized, errUnauthorizedCallback)
		return
	}
	if err := mgr.EmitStatus(r.Context(), &req.Status); err != nil {
		writeJSONError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func handleDumpWorkflow(w http.ResponseWriter, r *http.Request, mgr *lwfmanager.Manager, workflowID string) {
	dump, err := mgr.DumpWorkflow(r.Context(), workflowID)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err)
		return
	}
	if dump == nil {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, dump)
}

func handleSetEvent(w http.ResponseWriter, r *http.Request, mgr *lwfmanager.Manager) {
	var evt lwfm.WorkflowEvent
	if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
		writeJSONError(w, http.StatusBadRequest, err)
		return
	}
	status, err := mgr.SetEvent(r.Context(), &evt)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, status)
}

func handleActiveEvents(w http.ResponseWriter, r *http.Request, mgr *lwfmanager.Manager) {
	events, err := mgr.GetActiveWfEvents(r.Context())
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
