package validator

import (
	"github.com/go-playground/validator/v10"
)

// ValidationRule installs one named rule on the underlying validator.
type ValidationRule struct {
	Rule func(v *validator.Validate)
}

// Validator wraps the actual validator so handlers register the domain
// rule sets once and validate request bodies with a single call.
type Validator struct {
	validate *validator.Validate
	rules    []ValidationRule
}

func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

// Register installs the given rules; rule sets accumulate across calls.
func (v *Validator) Register(rules ...ValidationRule) {
	for _, rule := range rules {
		rule.Rule(v.validate)
	}
	v.rules = append(v.rules, rules...)
}

func (v *Validator) Struct(s any) error {
	return v.validate.Struct(s)
}
