package validator

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var sessionTypes = map[string]bool{
	"individual": true,
	"couples":    true,
	"family":     true,
	"group":      true,
	"intake":     true,
	"telehealth": true,
}

func sessionTypeValidator(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	return sessionTypes[val]
}

// fileNameValidator rejects names with path separators; uploads are flat.
func fileNameValidator(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	if val == "" || val == "." || val == ".." {
		return false
	}
	return !strings.ContainsAny(val, "/\\")
}

func uuidValidator(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(uuid.UUID)
	if !ok {
		return false
	}
	return val != uuid.UUID{}
}
