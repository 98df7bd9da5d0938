package handlers

import "net/http"

func (r *Router) getAnalytics(w http.ResponseWriter, req *http.Request) {
	bundle, err := r.analytics.Build(req.Context())
	if err != nil {
		r.respondServiceError(w, req, err)
		return
	}
	respondJSON(w, http.StatusOK, bundle)
}
