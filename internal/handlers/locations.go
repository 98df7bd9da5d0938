package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/xelth-com/iditgo/internal/errs"
	"github.com/xelth-com/iditgo/internal/hierarchy"
	"github.com/xelth-com/iditgo/internal/services/printer"
)

// LabelRequest selects the locations to print. No ids prints every leaf.
type LabelRequest struct {
	IDs  []string `json:"ids"`
	Cols int      `json:"cols"`
	Rows int      `json:"rows"`
}

// listLocations supports ?parentId=<id|null> and ?includeChildren=true.
// An empty parentId lists every location.
func (r *Router) listLocations(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	f := hierarchy.ListFilter{}
	switch p := q.Get("parentId"); p {
	case "":
	case "null":
		f.RootsOnly = true
	default:
		f.ParentID = p
	}
	f.IncludeChildren, _ = strconv.ParseBool(q.Get("includeChildren"))

	locations, err := r.locations.List(req.Context(), f)
	if err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, locations)
}

// locationTree returns the nested floor plan with capacity and stock roll-ups
func (r *Router) locationTree(w http.ResponseWriter, req *http.Request) {
	forest, err := r.locations.Forest(req.Context())
	if err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, forest)
}

func (r *Router) getLocation(w http.ResponseWriter, req *http.Request) {
	rollup, err := r.locations.Rollup(req.Context(), mux.Vars(req)["id"])
	if err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, rollup)
}

// resolveLocation is the target of printed QR labels
func (r *Router) resolveLocation(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]
	rollup, err := r.locations.Rollup(req.Context(), id)
	if err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"location":  rollup,
		"inventory": r.cfg.BaseURL + "/api/inventory?locationId=" + id,
	})
}

func (r *Router) createLocation(w http.ResponseWriter, req *http.Request) {
	var in hierarchy.CreateInput
	if !decodeJSON(w, req, &in) {
		return
	}
	loc, err := r.locations.Create(req.Context(), in)
	if err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusCreated, loc)
}

func (r *Router) updateLocation(w http.ResponseWriter, req *http.Request) {
	var in hierarchy.UpdateInput
	if !decodeJSON(w, req, &in) {
		return
	}
	loc, err := r.locations.Update(req.Context(), mux.Vars(req)["id"], in)
	if err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, loc)
}

func (r *Router) deleteLocation(w http.ResponseWriter, req *http.Request) {
	if err := r.locations.Delete(req.Context(), mux.Vars(req)["id"]); err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// printLabels renders a PDF of QR labels
func (r *Router) printLabels(w http.ResponseWriter, req *http.Request) {
	var labelReq LabelRequest
	if !decodeJSON(w, req, &labelReq) {
		return
	}
	tree, err := r.locations.Tree(req.Context())
	if err != nil {
		r.respondServiceError(w, req, err)
		return
	}

	ids := labelReq.IDs
	if len(ids) == 0 {
		ids = tree.Leaves()
	}
	labels := make([]printer.Label, 0, len(ids))
	for i, id := range ids {
		node := tree.Node(id)
		if node == nil {
			r.respondServiceError(w, req, errs.InvalidField("ids", "label %d: unknown location", i+1))
			return
		}
		path := tree.Path(id)
		labels = append(labels, printer.Label{ID: id, Name: node.Name, Path: path[:len(path)-1]})
	}
	if len(labels) == 0 {
		r.respondServiceError(w, req, errs.Validation("no locations to print"))
		return
	}

	cfg := printer.DefaultLabelConfig(r.cfg.BaseURL)
	if labelReq.Cols > 0 {
		cfg.Cols = labelReq.Cols
	}
	if labelReq.Rows > 0 {
		cfg.Rows = labelReq.Rows
	}
	pdf, err := printer.GenerateLabelsPDF(cfg, labels)
	if err != nil {
		r.respondServiceError(w, req, errs.Persistence("render labels", err))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="location-labels.pdf"`)
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}
