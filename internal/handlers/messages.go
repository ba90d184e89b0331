package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/colabhq/campaignd/internal/chat"
)

// ThreadHistory returns a thread's messages oldest-first. Same domain
// call the realtime room handler makes; this is the poll fallback.
func (a *API) ThreadHistory(w http.ResponseWriter, r *http.Request) {
	history, err := a.chat.History(r.Context(), chi.URLParam(r, "threadID"))
	if err != nil {
		mapError(w, err)
		return
	}
	if history == nil {
		history = []chat.Message{}
	}
	writeJSON(w, http.StatusOK, history)
}

// MarkThreadSeen marks the thread read for the current user.
func (a *API) MarkThreadSeen(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	if err := a.chat.MarkSeen(r.Context(), chi.URLParam(r, "threadID"), sess.UserID); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
