package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/xelth-com/iditgo/internal/errs"
	"github.com/xelth-com/iditgo/internal/ledger"
)

func (r *Router) listSnapshots(w http.ResponseWriter, req *http.Request) {
	limit := 0
	if s := req.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			r.respondServiceError(w, req, errs.Validation("limit must be a positive number"))
			return
		}
		limit = n
	}
	snaps, err := r.ledger.ListSnapshots(req.Context(), limit)
	if err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, snaps)
}

// createSnapshot takes a manual snapshot. Without entries the current
// inventory is captured.
func (r *Router) createSnapshot(w http.ResponseWriter, req *http.Request) {
	var in ledger.SnapshotInput
	if !decodeJSON(w, req, &in) {
		return
	}
	userID := currentUserID(req)
	in.TakenByID = &userID
	in.Source = ""

	snap, err := r.ledger.CreateSnapshot(req.Context(), in)
	if err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusCreated, snap)
}

func (r *Router) getSnapshot(w http.ResponseWriter, req *http.Request) {
	snap, err := r.ledger.GetSnapshot(req.Context(), mux.Vars(req)["id"])
	if err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}
