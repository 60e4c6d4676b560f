package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ukallavi/Secura-sub000/internal/baseline"
	"github.com/ukallavi/Secura-sub000/internal/domain"
	"github.com/ukallavi/Secura-sub000/internal/gate"
	"github.com/ukallavi/Secura-sub000/internal/monitoring"
	"github.com/ukallavi/Secura-sub000/internal/repository"
	"github.com/ukallavi/Secura-sub000/internal/review"
	"github.com/ukallavi/Secura-sub000/internal/rules"
	"github.com/ukallavi/Secura-sub000/internal/scorer"
	"github.com/ukallavi/Secura-sub000/internal/signals"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	repo       domain.Repository
	cache      domain.Cache
	baselines  *baseline.Service
	scorer     *scorer.Service
	signals    *signals.Service
	monitoring *monitoring.Controller
	review     *review.Workflow
	engine     *rules.Engine
	cfg        domain.ScoringConfig
	version    string
}

// NewHandler creates a new API handler.
func NewHandler(
	repo domain.Repository,
	cache domain.Cache,
	baselines *baseline.Service,
	sc *scorer.Service,
	sigs *signals.Service,
	mon *monitoring.Controller,
	rw *review.Workflow,
	engine *rules.Engine,
	cfg domain.ScoringConfig,
	version string,
) *Handler {
	return &Handler{
		repo:       repo,
		cache:      cache,
		baselines:  baselines,
		scorer:     sc,
		signals:    sigs,
		monitoring: mon,
		review:     rw,
		engine:     engine,
		cfg:        cfg,
		version:    version,
	}
}

// AssessRequest is the request body for POST /assess.
type AssessRequest struct {
	UserID       string             `json:"userId"`
	ActivityType string             `json:"activityType"`
	IP           string             `json:"ip"`
	UserAgent    domain.UserAgent   `json:"userAgent"`
	Location     domain.GeoLocation `json:"location"`
	Timestamp    *time.Time         `json:"timestamp,omitempty"`
}

// AssessResponse is the response for POST /assess.
type AssessResponse struct {
	Assessment   *domain.RiskAssessment         `json:"assessment"`
	Verification domain.VerificationRequirement `json:"verification"`
}

// Assess handles POST /assess: scores one activity and returns both the
// assessment and the verification-gate decision. The endpoint never
// returns 5xx for a scoring failure; the engine fails open instead.
func (h *Handler) Assess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	var req AssessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "userId is required",
		})
		return
	}

	activityType := domain.ActivityType(req.ActivityType)
	if activityType == "" {
		activityType = domain.ActivityLogin
	}

	ts := time.Now().UTC()
	if req.Timestamp != nil {
		ts = req.Timestamp.UTC()
	}

	actx := &domain.ActivityContext{
		UserID:    req.UserID,
		IP:        req.IP,
		UserAgent: req.UserAgent,
		Location:  req.Location,
		Timestamp: ts,
	}

	assessment := h.scorer.Assess(ctx, tenantID, actx, activityType)

	writeJSON(w, http.StatusOK, AssessResponse{
		Assessment:   assessment,
		Verification: gate.Decide(assessment),
	})
}

// LoginRequest is the request body for POST /logins.
type LoginRequest struct {
	UserID    string     `json:"userId"`
	IP        string     `json:"ip"`
	UserAgent string     `json:"userAgent"`
	Success   bool       `json:"success"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// RecordLogin handles POST /logins: records a login attempt so failed
// attempts feed the failed-login counter.
func (h *Handler) RecordLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "userId is required",
		})
		return
	}

	event := &domain.LoginEvent{
		ID:        uuid.New().String(),
		UserID:    req.UserID,
		IP:        req.IP,
		UserAgent: req.UserAgent,
		Success:   req.Success,
	}
	if req.Timestamp != nil {
		event.Timestamp = req.Timestamp.UTC()
	}

	failedCount, err := h.signals.RecordLogin(ctx, tenantID, event, h.cfg.FailedLoginWindow)
	if err != nil {
		slog.Error("failed to record login", "user_id", req.UserID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to record login",
		})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"eventId":           event.ID,
		"recentFailedCount": failedCount,
	})
}

// GetBaseline handles GET /baselines/{userId}.
func (h *Handler) GetBaseline(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	userID := chi.URLParam(r, "userId")

	b, err := h.baselines.Get(ctx, tenantID, userID)
	if err != nil {
		slog.Error("failed to get baseline", "user_id", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load baseline",
		})
		return
	}
	if b == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "baseline not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, b)
}

// EnableMonitoringRequest is the request body for PUT /monitoring/{userId}.
type EnableMonitoringRequest struct {
	Level        string `json:"level"`
	Reason       string `json:"reason"`
	DurationDays int    `json:"durationDays"`
	Actor        string `json:"actor"`
}

// EnableMonitoring handles PUT /monitoring/{userId}: places the user
// under monitoring, replacing any existing record.
func (h *Handler) EnableMonitoring(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	userID := chi.URLParam(r, "userId")

	var req EnableMonitoringRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if req.Actor == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "actor is required",
		})
		return
	}

	state, err := h.monitoring.Enable(ctx, tenantID, userID, domain.MonitoringLevel(req.Level), req.Reason, req.DurationDays, req.Actor)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidInput) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		slog.Error("failed to enable monitoring", "user_id", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to enable monitoring",
		})
		return
	}

	writeJSON(w, http.StatusOK, state)
}

// DisableMonitoring handles DELETE /monitoring/{userId}?actor=...: soft-
// closes the active monitoring record.
func (h *Handler) DisableMonitoring(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	userID := chi.URLParam(r, "userId")

	actor := r.URL.Query().Get("actor")
	if actor == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "actor query parameter is required",
		})
		return
	}

	state, err := h.monitoring.Disable(ctx, tenantID, userID, actor)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "no active monitoring for user",
			})
			return
		}
		slog.Error("failed to disable monitoring", "user_id", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to disable monitoring",
		})
		return
	}

	writeJSON(w, http.StatusOK, state)
}

// GetMonitoring handles GET /monitoring/{userId}.
func (h *Handler) GetMonitoring(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	userID := chi.URLParam(r, "userId")

	state, err := h.monitoring.Get(ctx, tenantID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "monitoring state not found",
			})
			return
		}
		slog.Error("failed to get monitoring state", "user_id", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load monitoring state",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"state":  state,
		"active": state.ActiveAt(time.Now().UTC()),
	})
}

// ListSuspicious handles GET /suspicious-activities with conjunctive
// status/userId/riskLevel filters and createdAt-descending pagination.
func (h *Handler) ListSuspicious(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	q := r.URL.Query()

	filter := domain.SuspiciousActivityFilter{
		UserID: q.Get("userId"),
		Status: domain.ReviewStatus(q.Get("status")),
	}
	if lv := q.Get("riskLevel"); lv != "" {
		level, err := domain.ParseRiskLevel(lv)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "unknown riskLevel " + lv,
			})
			return
		}
		filter.RiskLevel = &level
	}

	page := queryInt(q.Get("page"), 1)
	pageSize := queryInt(q.Get("pageSize"), 20)

	records, total, err := h.review.List(ctx, tenantID, filter, page, pageSize)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidInput) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		slog.Error("failed to list suspicious activities", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list suspicious activities",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"records":    records,
		"totalCount": total,
		"page":       page,
		"pageSize":   pageSize,
	})
}

// GetSuspicious handles GET /suspicious-activities/{id}.
func (h *Handler) GetSuspicious(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	id := chi.URLParam(r, "id")

	rec, err := h.review.Get(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "suspicious activity not found",
			})
			return
		}
		slog.Error("failed to get suspicious activity", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load suspicious activity",
		})
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// ReviewRequest is the request body for POST /suspicious-activities/{id}/review.
type ReviewRequest struct {
	Action  string `json:"action"`
	Notes   string `json:"notes,omitempty"`
	AdminID string `json:"adminId"`
}

// ReviewSuspicious handles POST /suspicious-activities/{id}/review.
func (h *Handler) ReviewSuspicious(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	id := chi.URLParam(r, "id")

	var req ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	rec, err := h.review.Review(ctx, tenantID, id, domain.ReviewAction(req.Action), req.Notes, req.AdminID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInvalidInput):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.Is(err, repository.ErrNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "suspicious activity not found",
			})
		default:
			slog.Error("failed to review suspicious activity", "id", id, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "failed to apply review",
			})
		}
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// ListRules returns the escalation rules currently loaded in the engine.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	loaded := h.engine.GetLoadedRules()

	writeJSON(w, http.StatusOK, map[string]any{
		"rules": loaded,
		"count": len(loaded),
	})
}

// GetRule retrieves a loaded escalation rule by ID.
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	ruleID := chi.URLParam(r, "id")

	for _, rule := range h.engine.GetLoadedRules() {
		if rule.ID == ruleID {
			writeJSON(w, http.StatusOK, rule)
			return
		}
	}

	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": "rule not found",
	})
}

// CreateRuleRequest is the request body for creating an escalation rule.
type CreateRuleRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Expression  string `json:"expression"`
	Factor      string `json:"factor"`
	MinLevel    string `json:"minLevel"`
	Enabled     bool   `json:"enabled"`
}

// GlobalTenantID is used for escalation rules that apply to all tenants.
// The rule engine holds a single shared registry, so rules are stored
// globally rather than per tenant.
const GlobalTenantID = "*"

// CreateRule validates, persists and loads a new escalation rule.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.ID == "" || req.Name == "" || req.Expression == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "id, name, and expression are required",
		})
		return
	}

	minLevel := domain.RiskMedium
	if req.MinLevel != "" {
		parsed, err := domain.ParseRiskLevel(req.MinLevel)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "unknown minLevel " + req.MinLevel,
			})
			return
		}
		minLevel = parsed
	}

	now := time.Now().UTC()
	rule := &domain.EscalationRule{
		ID:          req.ID,
		TenantID:    GlobalTenantID,
		Name:        req.Name,
		Description: req.Description,
		Version:     "1.0.0",
		Expression:  req.Expression,
		Factor:      domain.RiskFactor(req.Factor),
		MinLevel:    minLevel,
		Enabled:     req.Enabled,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.engine.LoadRule(rule); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid rule expression: " + err.Error(),
		})
		return
	}

	if err := h.repo.SaveEscalationRule(ctx, GlobalTenantID, rule); err != nil {
		slog.Error("failed to save escalation rule", "id", rule.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save rule",
		})
		return
	}

	slog.Info("escalation rule created", "id", rule.ID, "name", rule.Name)
	writeJSON(w, http.StatusCreated, rule)
}

// ReloadRules reloads escalation rules from the database into the engine.
func (h *Handler) ReloadRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dbRules, err := h.repo.ListEscalationRules(ctx, GlobalTenantID)
	if err != nil {
		slog.Error("failed to list escalation rules", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load rules from database",
		})
		return
	}

	if err := h.engine.ReloadRules(dbRules); err != nil {
		slog.Error("failed to reload escalation rules", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to reload rules: " + err.Error(),
		})
		return
	}

	slog.Info("escalation rules reloaded", "count", len(dbRules))
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "rules reloaded successfully",
		"count":   len(dbRules),
	})
}

// ListAudit handles GET /audit?userId=&limit=.
func (h *Handler) ListAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)
	q := r.URL.Query()

	limit := queryInt(q.Get("limit"), 100)
	entries, err := h.repo.ListAuditEntries(ctx, tenantID, q.Get("userId"), limit)
	if err != nil {
		slog.Error("failed to list audit entries", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list audit entries",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

func queryInt(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
