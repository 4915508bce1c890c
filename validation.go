package pileapi

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/nyaruka/phonenumbers"
)

// DefaultPhoneRegion is used to parse numbers without a country prefix
const DefaultPhoneRegion = "US"

var namePattern = regexp.MustCompile(`^[\p{L}][\p{L} '\-]*$`)

// ValidName accepts letters plus inner spaces, hyphens and apostrophes
var ValidName = validation.Match(namePattern).Error("must contain letters only")

// ValidatePhone accepts empty values or numbers valid in region
func ValidatePhone(region string) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if strings.TrimSpace(s) == "" {
			return nil
		}
		if _, err := NormalizePhone(s, region); err != nil {
			return errors.New("must be a valid phone number")
		}
		return nil
	}
}

// NormalizePhone parses raw and formats it as E.164
func NormalizePhone(raw, region string) (string, error) {
	if region == "" {
		region = DefaultPhoneRegion
	}
	num, err := phonenumbers.Parse(raw, region)
	if err != nil {
		return "", err
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", fmt.Errorf("invalid phone number %q", raw)
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

func validateSameLength(n int, name string) validation.RuleFunc {
	return func(value interface{}) error {
		var l int
		switch v := value.(type) {
		case []float64:
			l = len(v)
		case []string:
			l = len(v)
		default:
			return nil
		}
		if l != n {
			return fmt.Errorf("must have the same length as %s", name)
		}
		return nil
	}
}

func validateNonNegative(value interface{}) error {
	values, _ := value.([]float64)
	for i, v := range values {
		if v < 0 {
			return fmt.Errorf("entry %d must not be negative", i)
		}
	}
	return nil
}

func validateSoilParams(value interface{}) error {
	values, _ := value.([]string)
	for i, v := range values {
		if v != SoilParamPhi && v != SoilParamC {
			return fmt.Errorf("entry %d must be one of %q or %q", i, SoilParamPhi, SoilParamC)
		}
	}
	return nil
}

// Validate checks the project meta data
func (m ProjectMeta) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&m.Client, validation.Length(0, 200)),
		validation.Field(&m.Engineer, validation.Length(0, 200)),
	)
}

// Validate checks the soil layers are consistent. It does not judge the
// engineering values themselves.
func (s SoilProfile) Validate() error {
	n := len(s.LayerDepths)
	return validation.ValidateStruct(&s,
		validation.Field(&s.GroundwaterDepth, validation.Min(0.0)),
		validation.Field(&s.IgnoredDepth, validation.Min(0.0)),
		validation.Field(&s.Increment, validation.Min(0.0)),
		validation.Field(&s.LayerDepths, validation.By(validateNonNegative)),
		validation.Field(&s.LayerNames, validation.By(validateSameLength(n, "LayerDepths"))),
		validation.Field(&s.LayerUnitWeights, validation.By(validateSameLength(n, "LayerDepths")), validation.By(validateNonNegative)),
		validation.Field(&s.LayerPhiOrCs, validation.By(validateSameLength(n, "LayerDepths")), validation.By(validateSoilParams)),
		validation.Field(&s.LayerPhiOrCValues, validation.By(validateSameLength(n, "LayerDepths"))),
	)
}

// Validate checks the foundation parameters
func (f FoundationDetails) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.FS, validation.Min(0.0)),
		validation.Field(&f.BearingDepths, validation.By(validateNonNegative)),
	)
}

// AsValidationError converts ozzo errors into a 422 *Error. Other errors are
// returned unchanged.
func AsValidationError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := map[string]string{}
	flattenValidationErrors("", verrs, fields)
	return NewValidationError(fields)
}

func flattenValidationErrors(prefix string, verrs validation.Errors, out map[string]string) {
	for field, ferr := range verrs {
		key := field
		if prefix != "" {
			key = prefix + "." + field
		}
		var nested validation.Errors
		if errors.As(ferr, &nested) {
			flattenValidationErrors(key, nested, out)
			continue
		}
		out[key] = ferr.Error()
	}
}
