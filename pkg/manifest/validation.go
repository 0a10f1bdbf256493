package manifest

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ValidationError represents a validation error with field context
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Value != "" {
		return fmt.Sprintf("%s: %s (value: %q)", ve.Field, ve.Message, ve.Value)
	}
	return fmt.Sprintf("%s: %s", ve.Field, ve.Message)
}

// ValidationErrors represents multiple validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (ves ValidationErrors) Error() string {
	if len(ves) == 0 {
		return ""
	}
	if len(ves) == 1 {
		return ves[0].Error()
	}

	var messages []string
	for _, ve := range ves {
		messages = append(messages, ve.Error())
	}
	return fmt.Sprintf("multiple validation errors: %s", strings.Join(messages, "; "))
}

// newValidator creates a validator with the manifest's custom rules
func newValidator() *validator.Validate {
	v := validator.New()

	v.RegisterValidation("dns1123", validateDNS1123)
	v.RegisterValidation("image_ref", validateImageRef)
	v.RegisterValidation("env_var_name", validateEnvVarName)
	v.RegisterValidation("quantity", validateQuantity)
	v.RegisterValidation("duration", validateDuration)
	v.RegisterValidation("probe_path", validateProbePath)

	return v
}

// convertValidatorErrors converts go-playground validator errors to our format
func convertValidatorErrors(err error) error {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		var errors ValidationErrors

		for _, ve := range validationErrors {
			errors = append(errors, ValidationError{
				Field:   ve.Namespace(),
				Message: getValidationMessage(ve),
				Value:   fmt.Sprintf("%v", ve.Value()),
			})
		}

		return errors
	}

	return err
}

// getValidationMessage returns a human-readable message for validation errors
func getValidationMessage(ve validator.FieldError) string {
	switch ve.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", ve.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", ve.Param())
	case "dns1123":
		return "must be a valid DNS-1123 name (lowercase alphanumeric and hyphens)"
	case "image_ref":
		return "must be a valid container image reference (repository:tag or repository@sha256:digest)"
	case "env_var_name":
		return "must be a valid environment variable name (alphanumeric and underscores, starting with letter/underscore)"
	case "quantity":
		return "must be a valid resource quantity (e.g., '1', '500m', '1Gi')"
	case "duration":
		return "must be a valid duration (e.g., '10s', '5m')"
	case "probe_path":
		return "must be an absolute URL path starting with '/'"
	default:
		return ve.Error()
	}
}

// Custom validation functions

var (
	dns1123Pattern    = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)
	imageTagPattern   = regexp.MustCompile(`^[a-zA-Z0-9._/-]+:[a-zA-Z0-9._-]+$`)
	imageDigestRef    = regexp.MustCompile(`^[a-zA-Z0-9._/-]+@sha256:[a-f0-9]{64}$`)
	envVarNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
	cpuPattern        = regexp.MustCompile(`^\d+(\.\d+)?m?$`)
	memoryPattern     = regexp.MustCompile(`^\d+(\.\d+)?[KMGT]i?$`)
)

// validateDNS1123 validates DNS-1123 names (service and secret names)
func validateDNS1123(fl validator.FieldLevel) bool {
	return isValidDNSName(fl.Field().String())
}

func isValidDNSName(value string) bool {
	if len(value) == 0 || len(value) > 63 {
		return false
	}
	return dns1123Pattern.MatchString(value)
}

// validateImageRef validates container image references
func validateImageRef(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return false
	}
	return imageTagPattern.MatchString(value) || imageDigestRef.MatchString(value)
}

// validateEnvVarName validates environment variable names
func validateEnvVarName(fl validator.FieldLevel) bool {
	return envVarNamePattern.MatchString(fl.Field().String())
}

// validateQuantity validates resource quantities for memory and CPU
func validateQuantity(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // Optional field
	}
	return cpuPattern.MatchString(value) || memoryPattern.MatchString(value)
}

// validateDuration validates duration strings
func validateDuration(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // Optional field
	}
	d, err := time.ParseDuration(value)
	return err == nil && d > 0
}

// validateProbePath validates health check paths
func validateProbePath(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // Optional field, defaults to "/"
	}
	return strings.HasPrefix(value, "/")
}
