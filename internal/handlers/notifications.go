package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/colabhq/campaignd/internal/notification"
)

// ListNotifications returns the current user's notifications, newest
// first. Covers anything a disconnected client missed as a push.
func (a *API) ListNotifications(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	list, err := a.notifications.List(r.Context(), sess.UserID)
	if err != nil {
		mapError(w, err)
		return
	}
	if list == nil {
		list = []notification.Notification{}
	}
	writeJSON(w, http.StatusOK, list)
}

// MarkNotificationRead flags one of the current user's notifications as
// read.
func (a *API) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())

	if err := a.notifications.MarkRead(r.Context(), chi.URLParam(r, "notificationID"), sess.UserID); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
