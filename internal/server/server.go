// internal/server/server.go
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"claims-triage/internal/claims"
	stderrors "claims-triage/internal/common/errors"
	"claims-triage/internal/common/logger"
	"claims-triage/internal/models"
	"claims-triage/internal/pipeline"
	"claims-triage/internal/routing"
	"claims-triage/internal/rules"
)

// Server exposes the claim pipeline, claim store and rule store over
// HTTP.
type Server struct {
	pipeline *pipeline.Pipeline
	store    claims.Store
	rules    *rules.Store
	engine   *routing.Engine
	logger   logger.Logger
}

func New(p *pipeline.Pipeline, store claims.Store, ruleStore *rules.Store, engine *routing.Engine, log logger.Logger) *Server {
	return &Server{
		pipeline: p,
		store:    store,
		rules:    ruleStore,
		engine:   engine,
		logger:   log.WithFields(map[string]interface{}{"component": "http-server"}),
	}
}

// Routes registers all API handlers on a fresh mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/claims", s.handleSubmitClaim)
	mux.HandleFunc("GET /api/claims", s.handleListClaims)
	mux.HandleFunc("GET /api/claims/{id}", s.handleGetClaim)
	mux.HandleFunc("POST /api/claims/{id}/reassign", s.handleReassignClaim)
	mux.HandleFunc("GET /api/queues", s.handleQueueSummary)

	mux.HandleFunc("GET /api/rules", s.handleListRules)
	mux.HandleFunc("POST /api/rules", s.handleCreateRule)
	mux.HandleFunc("GET /api/rules/{id}", s.handleGetRule)
	mux.HandleFunc("PUT /api/rules/{id}", s.handleUpdateRule)
	mux.HandleFunc("DELETE /api/rules/{id}", s.handleDeleteRule)

	mux.HandleFunc("POST /api/reroute", s.handleReroute)

	return mux
}

// ==========================
// Claim Handlers
// ==========================

type submitClaimRequest struct {
	ClaimNumber string            `json:"claim_number"`
	ClaimType   string            `json:"claim_type"`
	Name        string            `json:"name"`
	Email       string            `json:"email"`
	Documents   map[string]string `json:"documents"`
}

func (s *Server) handleSubmitClaim(w http.ResponseWriter, r *http.Request) {
	var req submitClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, stderrors.NewIntakeInvalidError("malformed request body"))
		return
	}

	docs := make(map[models.Source]string, len(req.Documents))
	for source, text := range req.Documents {
		docs[models.Source(source)] = text
	}

	claim, err := s.pipeline.ProcessClaim(r.Context(), pipeline.ClaimIntake{
		ClaimNumber: req.ClaimNumber,
		ClaimType:   req.ClaimType,
		Name:        req.Name,
		Email:       req.Email,
		Documents:   docs,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, claim)
}

func (s *Server) handleListClaims(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := claims.ListFilter{
		Queue:    q.Get("queue"),
		Severity: q.Get("severity"),
		Search:   q.Get("search"),
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))

	list, err := s.store.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"claims": list,
		"count":  len(list),
	})
}

func (s *Server) handleGetClaim(w http.ResponseWriter, r *http.Request) {
	claim, err := s.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, claim)
}

type reassignRequest struct {
	Queue    string `json:"queue"`
	Assignee string `json:"assignee"`
	Note     string `json:"note"`
}

func (s *Server) handleReassignClaim(w http.ResponseWriter, r *http.Request) {
	var req reassignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, stderrors.NewIntakeInvalidError("malformed request body"))
		return
	}

	claimID := r.PathValue("id")
	decision := models.RoutingDecision{
		RoutingTeam:    req.Queue,
		Adjuster:       req.Assignee,
		RoutingReasons: []string{"Manually reassigned"},
		RulesVersion:   s.rules.Version(),
	}
	if err := s.store.UpdateRouting(r.Context(), claimID, decision, req.Note); err != nil {
		writeError(w, err)
		return
	}

	claim, err := s.store.Get(r.Context(), claimID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, claim)
}

func (s *Server) handleQueueSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.store.QueueSummary(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// ==========================
// Rule Handlers
// ==========================

type ruleRequest struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Enabled        *bool    `json:"enabled"`
	Priority       *int     `json:"priority"`
	ConditionType  string   `json:"condition_type"`
	ConditionValue string   `json:"condition_value"`
	ClaimType      string   `json:"claim_type"`
	RoutingTeam    string   `json:"routing_team"`
	Adjuster       string   `json:"adjuster"`
	Operator       string   `json:"operator"`
	Threshold      *float64 `json:"threshold"`

	FraudCategory      string `json:"fraud_category"`
	SeverityCategory   string `json:"severity_category"`
	ComplexityCategory string `json:"complexity_category"`
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rules":         s.rules.List(),
		"rules_version": s.rules.Version(),
	})
}

func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	rule, err := s.rules.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, stderrors.NewRuleInvalidError("malformed request body"))
		return
	}

	rule, err := s.rules.Create(rules.CreateRequest{
		Name:               req.Name,
		Description:        req.Description,
		Enabled:            req.Enabled,
		Priority:           req.Priority,
		ConditionType:      models.ConditionType(req.ConditionType),
		ConditionValue:     req.ConditionValue,
		ClaimType:          req.ClaimType,
		RoutingTeam:        req.RoutingTeam,
		Adjuster:           req.Adjuster,
		Operator:           req.Operator,
		Threshold:          req.Threshold,
		FraudCategory:      req.FraudCategory,
		SeverityCategory:   req.SeverityCategory,
		ComplexityCategory: req.ComplexityCategory,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rule)
}

func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	var update models.RuleUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeError(w, stderrors.NewRuleInvalidError("malformed request body"))
		return
	}

	rule, err := s.rules.Update(r.PathValue("id"), update)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	if err := s.rules.Delete(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ==========================
// Reroute Handler
// ==========================

type rerouteRequest struct {
	Claims []models.ClaimSnapshot `json:"claims"`
}

func (s *Server) handleReroute(w http.ResponseWriter, r *http.Request) {
	var req rerouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, stderrors.NewIntakeInvalidError("malformed request body"))
		return
	}

	result := s.engine.RerouteAll(r.Context(), s.rules.Snapshot(), req.Claims)
	writeJSON(w, http.StatusOK, result)
}

// ==========================
// Response Helpers
// ==========================

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	var stdErr *stderrors.StandardError
	if errors.As(err, &stdErr) {
		switch stdErr.Code {
		case stderrors.ErrCodeRuleNotFound, stderrors.ErrCodeClaimNotFound:
			status = http.StatusNotFound
		case stderrors.ErrCodeRuleInvalid, stderrors.ErrCodeIntakeInvalid,
			stderrors.ErrCodeMissingDocument, stderrors.ErrCodeInvalidClaimType:
			status = http.StatusBadRequest
		case stderrors.ErrCodeDuplicateClaim:
			status = http.StatusConflict
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]interface{}{"error": stdErr})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
