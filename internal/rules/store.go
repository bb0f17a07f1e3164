// internal/rules/store.go
package rules

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	stderrors "claims-triage/internal/common/errors"
	"claims-triage/internal/common/logger"
	"claims-triage/internal/common/metrics"
	"claims-triage/internal/models"
)

// ChangeListener is notified with the post-mutation snapshot. The rule
// store calls listeners after the exclusive section is released, so a
// listener may route against the snapshot without deadlocking.
type ChangeListener func(snapshot models.RuleSnapshot)

// CreateRequest carries the caller-supplied fields of a new rule. Nil
// Enabled defaults to true, nil Priority to the current rule count.
type CreateRequest struct {
	Name        string
	Description string
	Enabled     *bool
	Priority    *int

	ConditionType  models.ConditionType
	ConditionValue string
	ClaimType      string

	RoutingTeam string
	Adjuster    string

	Operator  string
	Threshold *float64

	FraudCategory      string
	SeverityCategory   string
	ComplexityCategory string
}

// Store owns the ordered routing rule set. All mutations bump the version,
// persist the full set and notify subscribers; reads copy a consistent
// snapshot and never hold the lock during evaluation.
type Store struct {
	mu        sync.RWMutex
	rules     []models.RoutingRule
	version   int64
	filePath  string
	listeners []ChangeListener
	logger    logger.Logger
	now       func() time.Time
}

func NewStore(filePath string, log logger.Logger) *Store {
	s := &Store{
		filePath: filePath,
		logger:   log.WithFields(map[string]interface{}{"component": "rule-store"}),
		now:      func() time.Time { return time.Now().UTC() },
	}
	s.loadFromFile()
	return s
}

// Subscribe registers a mutation listener. Not safe to call concurrently
// with mutations; wire subscribers during startup.
func (s *Store) Subscribe(fn ChangeListener) {
	s.listeners = append(s.listeners, fn)
}

// List returns a copy of all rules in storage order.
func (s *Store) List() []models.RoutingRule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.RoutingRule, len(s.rules))
	copy(out, s.rules)
	return out
}

// Get returns the rule with the given id.
func (s *Store) Get(id string) (models.RoutingRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.rules {
		if r.ID == id {
			return r, nil
		}
	}
	return models.RoutingRule{}, stderrors.NewRuleNotFoundError(id)
}

// Snapshot copies the current rule set sorted by ascending priority,
// together with the version it represents.
func (s *Store) Snapshot() models.RuleSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() models.RuleSnapshot {
	rules := make([]models.RoutingRule, len(s.rules))
	copy(rules, s.rules)
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Priority < rules[j].Priority
	})
	return models.RuleSnapshot{Rules: rules, Version: s.version}
}

// Version returns the current rules version.
func (s *Store) Version() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Create adds a new rule to the set.
func (s *Store) Create(req CreateRequest) (models.RoutingRule, error) {
	if req.ConditionType == "" {
		return models.RoutingRule{}, stderrors.NewRuleInvalidError("condition_type is required")
	}
	if req.RoutingTeam == "" || req.Adjuster == "" {
		return models.RoutingRule{}, stderrors.NewRuleInvalidError("routing_team and adjuster are required")
	}

	s.mu.Lock()

	now := s.now()
	rule := models.RoutingRule{
		ID:                 uuid.New().String(),
		Name:               req.Name,
		Description:        req.Description,
		Enabled:            true,
		Priority:           len(s.rules),
		ConditionType:      req.ConditionType,
		ConditionValue:     req.ConditionValue,
		ClaimType:          req.ClaimType,
		RoutingTeam:        req.RoutingTeam,
		Adjuster:           req.Adjuster,
		Operator:           req.Operator,
		Threshold:          req.Threshold,
		FraudCategory:      req.FraudCategory,
		SeverityCategory:   req.SeverityCategory,
		ComplexityCategory: req.ComplexityCategory,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}
	if req.Priority != nil {
		rule.Priority = *req.Priority
	}

	s.rules = append(s.rules, rule)
	snapshot := s.commitLocked()
	s.mu.Unlock()

	metrics.RuleMutations.WithLabelValues("create").Inc()
	s.logger.Info("created routing rule", map[string]interface{}{
		"ruleId":       rule.ID,
		"name":         rule.Name,
		"rulesVersion": snapshot.Version,
	})
	s.notify(snapshot)
	return rule, nil
}

// Update applies a partial mutation. ID and CreatedAt are immutable.
func (s *Store) Update(id string, update models.RuleUpdate) (models.RoutingRule, error) {
	s.mu.Lock()

	idx := -1
	for i, r := range s.rules {
		if r.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		s.mu.Unlock()
		return models.RoutingRule{}, stderrors.NewRuleNotFoundError(id)
	}

	rule := &s.rules[idx]
	applyUpdate(rule, update)
	rule.UpdatedAt = s.now()

	updated := *rule
	snapshot := s.commitLocked()
	s.mu.Unlock()

	metrics.RuleMutations.WithLabelValues("update").Inc()
	s.logger.Info("updated routing rule", map[string]interface{}{
		"ruleId":       id,
		"rulesVersion": snapshot.Version,
	})
	s.notify(snapshot)
	return updated, nil
}

// Delete removes a rule. Deleting an unknown id leaves the set untouched.
func (s *Store) Delete(id string) error {
	s.mu.Lock()

	idx := -1
	for i, r := range s.rules {
		if r.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		s.mu.Unlock()
		return stderrors.NewRuleNotFoundError(id)
	}

	s.rules = append(s.rules[:idx], s.rules[idx+1:]...)
	snapshot := s.commitLocked()
	s.mu.Unlock()

	metrics.RuleMutations.WithLabelValues("delete").Inc()
	s.logger.Info("deleted routing rule", map[string]interface{}{
		"ruleId":       id,
		"rulesVersion": snapshot.Version,
	})
	s.notify(snapshot)
	return nil
}

// commitLocked bumps the version, persists the full set and captures the
// snapshot listeners will see. Must be called with the write lock held.
func (s *Store) commitLocked() models.RuleSnapshot {
	s.version++
	s.persistLocked()
	return s.snapshotLocked()
}

// persistLocked writes the full rule set atomically, retrying once. A
// failed write is a degraded-mode condition: the in-memory set stays
// authoritative until the next successful save.
func (s *Store) persistLocked() {
	data, err := json.MarshalIndent(s.rules, "", "  ")
	if err != nil {
		s.logger.Error("failed to encode routing rules", map[string]interface{}{"error": err.Error()})
		metrics.RulePersistFailures.Inc()
		return
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if lastErr = s.writeFile(data); lastErr == nil {
			return
		}
	}

	metrics.RulePersistFailures.Inc()
	s.logger.Warn("failed to persist routing rules, in-memory set remains authoritative", map[string]interface{}{
		"file":  s.filePath,
		"error": lastErr.Error(),
	})
}

func (s *Store) writeFile(data []byte) error {
	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "rules-*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, s.filePath)
}

// loadFromFile restores persisted rules, dropping records that fail schema
// validation so one malformed entry cannot poison routing.
func (s *Store) loadFromFile() {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("failed to read routing rules file", map[string]interface{}{
				"file":  s.filePath,
				"error": err.Error(),
			})
		}
		return
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		s.logger.Warn("routing rules file is not a JSON array, starting empty", map[string]interface{}{
			"file":  s.filePath,
			"error": err.Error(),
		})
		return
	}

	loaded := make([]models.RoutingRule, 0, len(raw))
	for i, rec := range raw {
		if err := validateRecord(rec); err != nil {
			s.logger.Warn("dropping invalid rule record", map[string]interface{}{
				"index": i,
				"error": err.Error(),
			})
			continue
		}
		var rule models.RoutingRule
		if err := json.Unmarshal(rec, &rule); err != nil {
			s.logger.Warn("dropping undecodable rule record", map[string]interface{}{
				"index": i,
				"error": err.Error(),
			})
			continue
		}
		loaded = append(loaded, rule)
	}

	s.rules = loaded
	s.logger.Info("loaded routing rules", map[string]interface{}{
		"file":  s.filePath,
		"count": len(loaded),
	})
}

func (s *Store) notify(snapshot models.RuleSnapshot) {
	for _, fn := range s.listeners {
		fn(snapshot)
	}
}

func applyUpdate(rule *models.RoutingRule, u models.RuleUpdate) {
	if u.Name != nil {
		rule.Name = *u.Name
	}
	if u.Description != nil {
		rule.Description = *u.Description
	}
	if u.Enabled != nil {
		rule.Enabled = *u.Enabled
	}
	if u.Priority != nil {
		rule.Priority = *u.Priority
	}
	if u.ConditionType != nil {
		rule.ConditionType = *u.ConditionType
	}
	if u.ConditionValue != nil {
		rule.ConditionValue = *u.ConditionValue
	}
	if u.ClaimType != nil {
		rule.ClaimType = *u.ClaimType
	}
	if u.RoutingTeam != nil {
		rule.RoutingTeam = *u.RoutingTeam
	}
	if u.Adjuster != nil {
		rule.Adjuster = *u.Adjuster
	}
	if u.Operator != nil {
		rule.Operator = *u.Operator
	}
	if u.Threshold != nil {
		rule.Threshold = u.Threshold
	}
	if u.FraudCategory != nil {
		rule.FraudCategory = *u.FraudCategory
	}
	if u.SeverityCategory != nil {
		rule.SeverityCategory = *u.SeverityCategory
	}
	if u.ComplexityCategory != nil {
		rule.ComplexityCategory = *u.ComplexityCategory
	}
}
