package web

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"moderation-service/internal/domain"
	"moderation-service/internal/domain/model"
	"moderation-service/internal/usecase"
)

// ---- internal callbacks ----

type verdictRequest struct {
	Score     *float64 `json:"score"`
	Component string   `json:"component"`
}

func (s *Server) handleVerdict(w http.ResponseWriter, r *http.Request) {
	var req verdictRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid body")
		return
	}
	var comp model.Component
	if req.Component != "" {
		c, err := model.ParseComponent(req.Component)
		if err != nil {
			writeError(w, r, s.log, err)
			return
		}
		comp = c
	}
	out, err := s.deps.Verdicts.ApplyScore(r.Context(), chi.URLParam(r, "id"), comp, req.Score)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type tagRequest struct {
	DetectedLabel *string  `json:"detected_label"`
	Confidence    *float64 `json:"confidence"`
}

func (s *Server) handleTag(w http.ResponseWriter, r *http.Request) {
	var req tagRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid body")
		return
	}
	item, err := s.deps.Verdicts.RecordTag(r.Context(), chi.URLParam(r, "id"), req.DetectedLabel, req.Confidence)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toContentView(item))
}

func (s *Server) handleSummaryResult(w http.ResponseWriter, r *http.Request) {
	var req model.SummaryResult
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := s.deps.Verdicts.RecordSummary(r.Context(), chi.URLParam(r, "id"), req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- client API ----

type postRequest struct {
	Body    string `json:"body"`
	MediaID string `json:"media_id"`
}

func (s *Server) handleSubmitPost(w http.ResponseWriter, r *http.Request) {
	var req postRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid body")
		return
	}
	sub, err := s.deps.Submissions.SubmitPost(r.Context(), userID(r), req.Body, req.MediaID)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSubmissionView(sub))
}

type mediaRequest struct {
	ObjectKey string `json:"object_key"`
	MimeType  string `json:"mime_type"`
}

func (s *Server) handleSubmitMedia(w http.ResponseWriter, r *http.Request) {
	var req mediaRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid body")
		return
	}
	sub, err := s.deps.Submissions.SubmitMedia(r.Context(), userID(r), req.ObjectKey, req.MimeType)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSubmissionView(sub))
}

func (s *Server) handleGetContent(w http.ResponseWriter, r *http.Request) {
	item, err := s.deps.Submissions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	// Only approved content is visible to other users.
	if item.OwnerID != userID(r) && item.Status != model.StatusApproved {
		writeError(w, r, s.log, domain.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toContentView(item))
}

func (s *Server) handleDeleteContent(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Submissions.Delete(r.Context(), chi.URLParam(r, "id"), userID(r)); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type summaryRequest struct {
	Comments []string `json:"comments"`
}

func (s *Server) handleRequestSummary(w http.ResponseWriter, r *http.Request) {
	var req summaryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid body")
		return
	}
	job, err := s.deps.Submissions.RequestSummary(r.Context(), chi.URLParam(r, "id"), req.Comments)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": job.ID})
}

func (s *Server) handleLatestSummary(w http.ResponseWriter, r *http.Request) {
	job, err := s.deps.Submissions.LatestSummary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toJobView(job))
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	kind, err := model.ParseJobKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	job, err := s.deps.Submissions.GetJob(r.Context(), kind, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toJobView(job))
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Notifications.List(r.Context(), userID(r), queryInt(r, "limit"))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	out := make([]notificationView, 0, len(list))
	for _, n := range list {
		out = append(out, notificationView{
			ID: n.ID, ContentID: n.ContentID, Status: n.Status,
			Title: n.Title, Message: n.Message, IsRead: n.IsRead, CreatedAt: n.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Notifications.MarkRead(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- admin ----

type loginRequest struct {
	APIKey  string `json:"api_key"`
	AdminID string `json:"admin_id"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid body")
		return
	}
	if s.deps.Auth == nil || !keyMatches(req.APIKey, s.opts.AdminAPIKey) {
		writeMessage(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id := strings.TrimSpace(req.AdminID)
	if id == "" {
		id = adminRole
	}
	token, exp, err := s.deps.Auth.Mint(id)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": token, "expires_at": exp})
}

func (s *Server) handleReviewQueue(w http.ResponseWriter, r *http.Request) {
	items, err := s.deps.Admin.ReviewQueue(r.Context(), queryInt(r, "limit"))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toContentViews(items))
}

type overrideRequest struct {
	Component string `json:"component"`
	Decision  string `json:"decision"`
	Reason    string `json:"reason"`
}

func (s *Server) handleOverride(w http.ResponseWriter, r *http.Request) {
	var req overrideRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid body")
		return
	}
	comp, err := model.ParseComponent(req.Component)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	decision, err := model.ParseStatus(req.Decision)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	item, err := s.deps.Admin.Override(r.Context(), usecase.OverrideInput{
		ContentID: chi.URLParam(r, "id"),
		Component: comp,
		Decision:  decision,
		Reason:    req.Reason,
		AdminID:   adminID(r),
	})
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toContentView(item))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.deps.Admin.History(r.Context(), chi.URLParam(r, "id"), queryInt(r, "limit"))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	out := make([]activityView, 0, len(entries))
	for _, e := range entries {
		out = append(out, activityView{ID: e.ID, ActorID: e.ActorID, Action: e.Action, Metadata: e.Metadata, CreatedAt: e.CreatedAt})
	}
	writeJSON(w, http.StatusOK, out)
}

func queryInt(r *http.Request, key string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(key))
	return n
}
