package action

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// validateParams checks required parameter presence and typed parameter
// formats against the definition. It returns a human readable message for
// the first violation found.
func validateParams(def Definition, params map[string]any) error {
	for _, spec := range def.Parameters {
		val, present := params[spec.Name]
		if !present || val == nil {
			if spec.Required {
				return fmt.Errorf("missing required parameter %q", spec.Name)
			}
			continue
		}
		if err := validateType(spec, val); err != nil {
			return err
		}
	}
	return nil
}

func validateType(spec ParameterSpec, val any) error {
	switch spec.Type {
	case TypeEmail:
		s, ok := val.(string)
		if !ok || !emailRe.MatchString(s) {
			return fmt.Errorf("parameter %q must be a valid email address", spec.Name)
		}
	case TypeNumber:
		if !isNumeric(val) {
			return fmt.Errorf("parameter %q must be a number", spec.Name)
		}
	case TypeBoolean:
		switch v := val.(type) {
		case bool:
		case string:
			if _, err := strconv.ParseBool(v); err != nil {
				return fmt.Errorf("parameter %q must be a boolean", spec.Name)
			}
		default:
			return fmt.Errorf("parameter %q must be a boolean", spec.Name)
		}
	case TypeDate, TypeDatetime:
		s, ok := val.(string)
		if !ok || !parseableTime(s) {
			return fmt.Errorf("parameter %q must be a valid %s", spec.Name, spec.Type)
		}
	}
	return nil
}

func isNumeric(val any) bool {
	switch v := val.(type) {
	case int, int32, int64, float32, float64:
		return true
	case string:
		_, err := strconv.ParseFloat(v, 64)
		return err == nil
	default:
		return false
	}
}

// parseableTime accepts RFC 3339 timestamps and bare dates, the two shapes
// workflow authors produce.
func parseableTime(s string) bool {
	for _, layout := range []string{time.RFC3339, "2006-01-02", "2006-01-02 15:04"} {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}
