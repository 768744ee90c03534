// Package policy classifies tool invocations against per-target rules.
// The classifier is the first security boundary: every action an agent
// requests is mapped to exactly one classification before anything else
// happens.
package policy

import (
	"fmt"
	"sort"
	"strings"
)

// Classification is the decision for a single action name.
type Classification string

// Classification values, in increasing order of restriction.
const (
	// Allowed permits execution without approval. This is the explicit
	// default for any action not listed in a target's policy.
	Allowed Classification = "allowed"

	// HighRisk requires an out-of-band approval before execution.
	HighRisk Classification = "high_risk"

	// Blocked rejects execution unconditionally.
	Blocked Classification = "blocked"
)

// TargetPolicy holds the rules for one downstream target.
type TargetPolicy struct {
	// Target is the downstream target name this policy governs.
	Target string

	// HighRisk lists action names that require approval.
	HighRisk []string

	// Blocked lists action names that must never execute.
	Blocked []string

	highRisk map[string]struct{}
	blocked  map[string]struct{}
}

// Classifier maps (target, action) pairs to classifications.
// It is immutable after construction and safe for concurrent use.
type Classifier struct {
	targets map[string]*TargetPolicy
}

// NewClassifier builds a classifier from the given policies.
// It returns an error on empty or duplicate target names.
func NewClassifier(policies []TargetPolicy) (*Classifier, error) {
	targets := make(map[string]*TargetPolicy, len(policies))
	for i := range policies {
		p := policies[i]
		name := strings.TrimSpace(p.Target)
		if name == "" {
			return nil, ErrEmptyTargetName
		}
		if _, exists := targets[name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTarget, name)
		}

		p.Target = name
		p.highRisk = toSet(p.HighRisk)
		p.blocked = toSet(p.Blocked)
		targets[name] = &p
	}
	return &Classifier{targets: targets}, nil
}

// Classify returns the classification for an action against a target's
// policy. An unknown target fails with ErrPolicyNotFound: a missing policy
// is a configuration error, never an implicit allow.
//
// Blocked beats high-risk: an action listed in both sets classifies as
// Blocked. Actions in neither set are Allowed.
func (c *Classifier) Classify(target, action string) (Classification, error) {
	p, ok := c.targets[strings.TrimSpace(target)]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrPolicyNotFound, target)
	}

	name := strings.TrimSpace(action)
	if _, blocked := p.blocked[name]; blocked {
		return Blocked, nil
	}
	if _, highRisk := p.highRisk[name]; highRisk {
		return HighRisk, nil
	}
	return Allowed, nil
}

// HighRiskActions returns the sorted high-risk action names for a target,
// or ErrPolicyNotFound if the target has no policy.
func (c *Classifier) HighRiskActions(target string) ([]string, error) {
	p, ok := c.targets[strings.TrimSpace(target)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPolicyNotFound, target)
	}

	names := make([]string, 0, len(p.highRisk))
	for name := range p.highRisk {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Targets returns the sorted names of all configured targets.
func (c *Classifier) Targets() []string {
	names := make([]string, 0, len(c.targets))
	for name := range c.targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		set[name] = struct{}{}
	}
	return set
}
