package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConfiguration matches every *ConfigurationError via errors.Is.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// Rule names the constraint a Violation broke.
type Rule string

const (
	RuleRequired           Rule = "required"
	RuleFormat             Rule = "format"
	RuleRange              Rule = "range"
	RulePositive           Rule = "positive"
	RuleDuplicatePin       Rule = "duplicate_pin"
	RulePinCapability      Rule = "pin_capability"
	RuleThresholdOrder     Rule = "threshold_order"
	RuleRequiredForFeature Rule = "required_for_feature"
	RuleUnknownField       Rule = "unknown_field"
)

type Violation struct {
	Fields  []string
	Rule    Rule
	Value   interface{}
	Message string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s [%s]", strings.Join(v.Fields, ", "), v.Message, v.Rule)
}

// ConfigurationError reports every rule the loaded configuration broke.
type ConfigurationError struct {
	Violations []Violation
}

func (e *ConfigurationError) Error() string {
	if len(e.Violations) == 1 {
		return "invalid configuration: " + e.Violations[0].String()
	}
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.String()
	}
	return fmt.Sprintf("invalid configuration (%d problems): %s", len(e.Violations), strings.Join(msgs, "; "))
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrInvalidConfiguration
}

// Has reports whether any violation names field.
func (e *ConfigurationError) Has(field string) bool {
	for _, v := range e.Violations {
		for _, f := range v.Fields {
			if f == field {
				return true
			}
		}
	}
	return false
}

func (e *ConfigurationError) HasRule(rule Rule) bool {
	for _, v := range e.Violations {
		if v.Rule == rule {
			return true
		}
	}
	return false
}

type collector struct {
	violations []Violation
}

func (c *collector) add(rule Rule, value interface{}, message string, fields ...string) {
	c.violations = append(c.violations, Violation{
		Fields:  fields,
		Rule:    rule,
		Value:   value,
		Message: message,
	})
}

func (c *collector) merge(err error) {
	var cfgErr *ConfigurationError
	if errors.As(err, &cfgErr) {
		c.violations = append(c.violations, cfgErr.Violations...)
	}
}

func (c *collector) err() error {
	if len(c.violations) == 0 {
		return nil
	}
	copied := make([]Violation, len(c.violations))
	copy(copied, c.violations)
	return &ConfigurationError{Violations: copied}
}
