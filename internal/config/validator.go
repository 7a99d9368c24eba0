package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/go-playground/validator/v10"
)

// RegisterCustomValidators registers httpdissect validation rules.
// Must be called before validating Config.
func RegisterCustomValidators(v *validator.Validate) error {
	rules := map[string]validator.Func{
		"duration":         validateDuration,
		"store_path":       validateStorePath,
		"argon2id_hash":    validateArgon2idHash,
		"telemetry_output": validateTelemetryOutput,
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("failed to register %s validator: %w", tag, err)
		}
	}
	return nil
}

// validateDuration accepts any positive time.ParseDuration value.
func validateDuration(fl validator.FieldLevel) bool {
	d, err := time.ParseDuration(fl.Field().String())
	return err == nil && d > 0
}

// validateStorePath requires a file path for the sqlite and file drivers.
// The memory driver ignores the path.
func validateStorePath(fl validator.FieldLevel) bool {
	path := fl.Field().String()
	switch fl.Parent().FieldByName("Driver").String() {
	case "sqlite", "file":
		return path != "" && !strings.HasSuffix(path, "/") && !strings.HasSuffix(path, string(filepath.Separator))
	default:
		return true
	}
}

// validateArgon2idHash checks the PHC-formatted argon2id hash.
func validateArgon2idHash(fl validator.FieldLevel) bool {
	_, _, _, err := argon2id.DecodeHash(fl.Field().String())
	return err == nil
}

// validateTelemetryOutput accepts "stdout" or "file://<absolute-path>".
func validateTelemetryOutput(fl validator.FieldLevel) bool {
	output := fl.Field().String()
	if output == "stdout" {
		return true
	}
	if path, ok := strings.CutPrefix(output, "file://"); ok {
		return path != "" && filepath.IsAbs(path)
	}
	return false
}

// Validate validates the Config using struct tags and cross-field rules.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := RegisterCustomValidators(v); err != nil {
		return err
	}
	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}
	if err := c.validateUniqueKeyNames(); err != nil {
		return err
	}
	return c.validateRateLimit()
}

// validateRateLimit rejects a period too short to split into rate intervals.
func (c *Config) validateRateLimit() error {
	rl := c.RateLimit
	if !rl.Enabled || rl.Rate <= 0 {
		return nil
	}
	if rl.PeriodDuration() < time.Duration(rl.Rate) {
		return fmt.Errorf("rate_limit.period %q is too short for rate %d (need at least 1ns per request)", rl.Period, rl.Rate)
	}
	return nil
}

func (c *Config) validateUniqueKeyNames() error {
	seen := make(map[string]struct{}, len(c.Auth.APIKeys))
	for i, k := range c.Auth.APIKeys {
		if _, dup := seen[k.Name]; dup {
			return fmt.Errorf("auth.api_keys[%d]: duplicate name %q", i, k.Name)
		}
		seen[k.Name] = struct{}{}
	}
	return nil
}

// formatValidationErrors converts validator.ValidationErrors to user-friendly messages.
func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		messages := make([]string, 0, len(validationErrors))
		for _, e := range validationErrors {
			messages = append(messages, formatSingleValidationError(e))
		}
		return errors.New(strings.Join(messages, "; "))
	}
	return err
}

func formatSingleValidationError(e validator.FieldError) string {
	field := e.Namespace()

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "hostname_port":
		return fmt.Sprintf("%s must be a valid host:port", field)
	case "duration":
		return fmt.Sprintf("%s must be a positive duration such as \"500ms\" or \"10s\"", field)
	case "store_path":
		return fmt.Sprintf("%s must be a file path when the driver is sqlite or file", field)
	case "argon2id_hash":
		return fmt.Sprintf("%s must be an argon2id hash (see 'httpdissect hash-key')", field)
	case "telemetry_output":
		return fmt.Sprintf("%s must be 'stdout' or 'file://<absolute-path>'", field)
	default:
		return fmt.Sprintf("%s failed validation: %s", field, e.Tag())
	}
}
