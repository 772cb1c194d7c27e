package validation

import (
	"regexp"

	"github.com/go-playground/validator/v10"

	"crm-system/pkg/constants"
)

var phoneRegex = regexp.MustCompile(`^\+?\d{7,15}$`)

// registerRules installs the custom struct tags.
func registerRules(v *validator.Validate) error {
	rules := map[string]validator.Func{
		"request_status": isRequestStatus,
		"request_type":   isRequestType,
		"role":           isRole,
		"phone":          isPhone,
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}

func isRequestStatus(fl validator.FieldLevel) bool {
	return constants.RequestStatus(fl.Field().String()).IsValid()
}

func isRequestType(fl validator.FieldLevel) bool {
	return constants.RequestType(fl.Field().String()).IsValid()
}

func isRole(fl validator.FieldLevel) bool {
	return constants.Role(fl.Field().String()).IsValid()
}

// isPhone accepts an optional '+' followed by 7-15 digits.
func isPhone(fl validator.FieldLevel) bool {
	return phoneRegex.MatchString(fl.Field().String())
}
