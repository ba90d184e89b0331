package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"github.com/colabhq/campaignd/internal/campaign"
	"github.com/colabhq/campaignd/internal/realtime"
	"github.com/colabhq/campaignd/internal/transcode"
	"github.com/colabhq/campaignd/pkg/storage"
)

const (
	maxAgreementSize = 16 << 20  // 16 MiB
	maxDraftSize     = 512 << 20 // 512 MiB
)

// SubmitAgreement accepts an agreement-form upload for a task. The file
// lands in storage first; only then is the submission recorded and the
// task moved to review.
func (a *API) SubmitAgreement(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	taskID := chi.URLParam(r, "taskID")

	info, err := a.upload(r, maxAgreementSize, "agreements")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	fileURL, err := a.files.URL(r.Context(), info.Key)
	if err != nil {
		mapError(w, err)
		return
	}

	sub, err := a.campaigns.SubmitAgreement(r.Context(), sess.UserID, taskID, fileURL)
	if err != nil {
		mapError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, sub)
}

// SubmitDraft accepts a draft-video upload, records the submission, and
// enqueues the transcode job. Submission and enqueue commit in one
// transaction, so no job ever runs for a submission that failed to
// persist. The tracker entry is created as queued before the commit so
// checkQueue polls answer as soon as the job is visible to workers.
func (a *API) SubmitDraft(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	taskID := chi.URLParam(r, "taskID")

	info, err := a.upload(r, maxDraftSize, "drafts/raw")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	fileURL, err := a.files.URL(r.Context(), info.Key)
	if err != nil {
		mapError(w, err)
		return
	}

	var sub *campaign.Submission
	err = a.runTx(r.Context(), func(tx pgx.Tx) error {
		var err error
		sub, err = a.campaigns.SubmitDraftTx(r.Context(), tx, sess.UserID, taskID, fileURL)
		if err != nil {
			return err
		}

		a.tracker.Start(sub.ID, nil, realtime.StatusQueued)
		return a.jobs.EnqueueTx(r.Context(), tx, transcode.TaskName, transcode.Payload{
			SubmissionID: sub.ID,
			CreatorID:    sess.UserID,
			SourceKey:    info.Key,
		})
	})
	if err != nil {
		if sub != nil {
			a.tracker.Remove(sub.ID)
		}
		a.log.ErrorContext(r.Context(), "submit draft",
			slog.String("task_id", taskID),
			slog.Any("error", err),
		)
		mapError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, sub)
}

// ListSubmissions returns a task's submissions for the review queue.
func (a *API) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	subs, err := a.campaigns.Submissions(r.Context(), chi.URLParam(r, "taskID"))
	if err != nil {
		mapError(w, err)
		return
	}
	if subs == nil {
		subs = []campaign.Submission{}
	}
	writeJSON(w, http.StatusOK, subs)
}

type reviewRequest struct {
	Status  string `json:"status"`
	Comment string `json:"comment"`
}

// ReviewSubmission applies an admin decision to a submission.
func (a *API) ReviewSubmission(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	submissionID := chi.URLParam(r, "submissionID")

	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := a.campaigns.Review(r.Context(), sess.UserID, submissionID, campaign.Decision(req.Status), req.Comment)
	if err != nil {
		mapError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// upload streams the multipart "file" part into storage under prefix.
func (a *API) upload(r *http.Request, maxSize int64, prefix string) (*storage.FileInfo, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxSize)

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return a.files.Put(r.Context(), file, header.Size,
		storage.WithPrefix(prefix),
		storage.WithFilename(header.Filename),
	)
}
