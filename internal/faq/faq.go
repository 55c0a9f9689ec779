// Package faq answers common questions by keyword matching against an
// ordered rule list. Rules can be loaded from a YAML file so the responses
// are editable without a rebuild.
package faq

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rule pairs a lowercase keyword with its canned response.
type Rule struct {
	Pattern  string `yaml:"pattern"`
	Response string `yaml:"response"`
}

// DefaultFallback is returned when no rule matches.
const DefaultFallback = "Sorry, I didn't understand. Please ask your question differently or contact support."

// Responder matches questions against rules in order; the first match wins.
type Responder struct {
	rules    []Rule
	fallback string
}

// rulesFile is the YAML shape of a rules file.
type rulesFile struct {
	Rules    []Rule `yaml:"rules"`
	Fallback string `yaml:"fallback"`
}

// NewResponder creates a responder with the given rules. An empty fallback
// uses DefaultFallback.
func NewResponder(rules []Rule, fallback string) *Responder {
	if fallback == "" {
		fallback = DefaultFallback
	}
	return &Responder{rules: rules, fallback: fallback}
}

// DefaultResponder returns a responder with the built-in rule set.
func DefaultResponder() *Responder {
	return NewResponder([]Rule{
		{Pattern: "how to donate", Response: "To donate blood, please register as a donor and schedule an appointment."},
		{Pattern: "eligibility", Response: "You must be healthy and meet age/weight criteria to donate blood."},
		{Pattern: "emergency", Response: "In case of emergency, use our emergency alert system or contact your nearest blood bank."},
		{Pattern: "thank you", Response: "You're welcome! Thank you for supporting blood donation."},
	}, "")
}

// LoadResponder reads rules from a YAML file. An empty path falls back to
// the built-in rules.
func LoadResponder(path string) (*Responder, error) {
	if path == "" {
		return DefaultResponder(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading faq rules: %w", err)
	}

	var file rulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing faq rules: %w", err)
	}

	for i, rule := range file.Rules {
		if rule.Pattern == "" || rule.Response == "" {
			return nil, fmt.Errorf("faq rule %d: pattern and response are required", i)
		}
	}

	return NewResponder(file.Rules, file.Fallback), nil
}

// Respond returns the response of the first rule whose pattern occurs in
// the message, compared case-insensitively.
func (r *Responder) Respond(message string) string {
	message = strings.ToLower(message)
	for _, rule := range r.rules {
		if strings.Contains(message, strings.ToLower(rule.Pattern)) {
			return rule.Response
		}
	}
	return r.fallback
}
