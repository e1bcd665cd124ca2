package practice

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/cpcoach/backend/internal/auth"
	"github.com/cpcoach/backend/internal/httpx"
	"github.com/cpcoach/backend/internal/models"
	"github.com/cpcoach/backend/internal/validation"
	"github.com/gorilla/mux"
)

type Handler struct {
	service      *Service
	requireToken bool
}

func NewHandler(service *Service, requireToken bool) *Handler {
	return &Handler{service: service, requireToken: requireToken}
}

// RegisterRoutes mounts the practice API on api. protect guards routes that
// change a user's state; admin guards operator routes.
func (h *Handler) RegisterRoutes(api *mux.Router, protect, admin func(http.Handler) http.Handler) {
	api.HandleFunc("/users/{handle}", h.GetUser).Methods("GET")
	api.HandleFunc("/recommend", h.Recommend).Methods("GET")
	api.HandleFunc("/recommend/upsolve", h.RecommendUpsolve).Methods("GET")
	api.HandleFunc("/analysis/{handle}", h.GetAnalysis).Methods("GET")
	api.HandleFunc("/topics", h.Topics).Methods("GET")

	// Wrapped per route rather than via an empty-prefix subrouter.
	api.Handle("/feedback/solve", protect(http.HandlerFunc(h.MarkSolved))).Methods("POST")
	api.Handle("/feedback/skip", protect(http.HandlerFunc(h.RecordSkip))).Methods("POST")
	api.Handle("/users/{handle}/offset", protect(http.HandlerFunc(h.SetOffset))).Methods("PUT")
	api.Handle("/users/{handle}/offset/adjust", protect(http.HandlerFunc(h.AdjustOffset))).Methods("POST")
	api.Handle("/users/{handle}/sync", protect(http.HandlerFunc(h.SyncSolved))).Methods("POST")

	api.Handle("/admin/refresh-problems", admin(http.HandlerFunc(h.RefreshCatalog))).Methods("POST")
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	profile, err := h.service.GetOrRefreshUser(r.Context(), mux.Vars(r)["handle"])
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	profile.DailyCount = h.service.processor.DailyCount(*profile)
	httpx.WriteJSON(w, http.StatusOK, profile)
}

func (h *Handler) Recommend(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := models.RecommendRequest{
		Handle: strings.TrimSpace(q.Get("handle")),
		Topic:  strings.TrimSpace(q.Get("topic")),
	}
	if s := q.Get("offset"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			httpx.WriteError(w, r, &httpx.InputError{Message: "offset must be an integer", Detail: err.Error()})
			return
		}
		req.OffsetOverride = &v
	}
	if err := validation.Struct(req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	resp, err := h.service.Recommend(r.Context(), req)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) RecommendUpsolve(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.RecommendUpsolve(r.Context(), strings.TrimSpace(r.URL.Query().Get("handle")))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.GetWeaknessAnalysis(r.Context(), mux.Vars(r)["handle"])
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) Topics(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, h.service.Topics())
}

// ── Feedback ─────────────────────────────────────────────

func (h *Handler) MarkSolved(w http.ResponseWriter, r *http.Request) {
	var req models.SolveRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if err := validation.Struct(req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if err := auth.Authorize(r.Context(), req.Handle, h.requireToken); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	resp, err := h.service.MarkSolved(r.Context(), req.Handle, req.ProblemID, req.Verdict, req.ElapsedSeconds)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) RecordSkip(w http.ResponseWriter, r *http.Request) {
	var req models.SkipRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if err := validation.Struct(req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if err := auth.Authorize(r.Context(), req.Handle, h.requireToken); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	resp, err := h.service.RecordSkip(r.Context(), req.Handle, req.ProblemID, req.Feedback)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// ── Offsets & sync ───────────────────────────────────────

// pathHandle validates the {handle} variable and checks the caller may act
// on it.
func (h *Handler) pathHandle(r *http.Request) (string, error) {
	handle := mux.Vars(r)["handle"]
	if err := validation.Handle(handle); err != nil {
		return "", err
	}
	if err := auth.Authorize(r.Context(), handle, h.requireToken); err != nil {
		return "", err
	}
	return handle, nil
}

func (h *Handler) SetOffset(w http.ResponseWriter, r *http.Request) {
	handle, err := h.pathHandle(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	var req models.OffsetRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if err := validation.Struct(req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	resp, err := h.service.SetOffset(r.Context(), handle, req.Offset)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) AdjustOffset(w http.ResponseWriter, r *http.Request) {
	handle, err := h.pathHandle(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	var req models.OffsetAdjustRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	if err := validation.Struct(req); err != nil {
		httpx.WriteError(w, r, err)
		return
	}

	resp, err := h.service.AdjustOffset(r.Context(), handle, req.Delta)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) SyncSolved(w http.ResponseWriter, r *http.Request) {
	handle, err := h.pathHandle(r)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	resp, err := h.service.SyncSolved(r.Context(), handle)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// ── Admin ────────────────────────────────────────────────

func (h *Handler) RefreshCatalog(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.RefreshCatalog(r.Context())
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// Health reports liveness and the size of the loaded catalog.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	snap := h.service.catalog.Catalog().Snapshot()
	httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"problems": snap.Len(),
	})
}
