package validation

import (
	"reflect"
	"unicode/utf16"

	"github.com/go-playground/validator/v10"
	"github.com/nbutton23/zxcvbn-go"

	"github.com/oarkflow/resetpass/errors"
)

// DefaultMinLength is the shortest password accepted by default.
const DefaultMinLength = 8

// Policy configures the password rules.
type Policy struct {
	// MinLength counted in UTF-16 code units, as browsers count them.
	MinLength int
	// MinStrength is the lowest zxcvbn score (0-4) accepted; 0 disables
	// the strength check.
	MinStrength int
}

// DefaultPolicy length check only
var DefaultPolicy = Policy{MinLength: DefaultMinLength}

// passwordForm mirrors the two password inputs; tag order per field
// matters because the validator stops at a field's first failing tag.
type passwordForm struct {
	UserID          string
	NewPassword     string `validate:"required,password_length,password_strength"`
	ConfirmPassword string `validate:"required,eqfield=NewPassword"`
}

// rules in the order they are reported
var rules = []struct {
	tag  string
	kind error
}{
	{"required", errors.ErrMissingFields},
	{"eqfield", errors.ErrPasswordMismatch},
	{"password_length", errors.ErrPasswordTooShort},
	{"password_strength", errors.ErrPasswordTooWeak},
}

// Validator checks a reset form submission.
type Validator struct {
	policy   Policy
	validate *validator.Validate
}

// New builds a validator for the given policy.
func New(policy Policy) *Validator {
	if policy.MinLength <= 0 {
		policy.MinLength = DefaultMinLength
	}
	v := &Validator{policy: policy, validate: validator.New()}
	_ = v.validate.RegisterValidation("password_length", v.passwordLength)
	_ = v.validate.RegisterValidation("password_strength", v.passwordStrength)
	return v
}

// Policy in effect
func (v *Validator) Policy() Policy {
	return v.policy
}

// Validate runs the rules in order and reports only the first failure:
// missing fields, then mismatch, then length, then strength.
func (v *Validator) Validate(userID, newPassword, confirmPassword string) error {
	err := v.validate.Struct(&passwordForm{
		UserID:          userID,
		NewPassword:     newPassword,
		ConfirmPassword: confirmPassword,
	})
	if err == nil {
		return nil
	}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	failed := make(map[string]bool, len(fieldErrs))
	for _, fe := range fieldErrs {
		failed[fe.Tag()] = true
	}
	for _, r := range rules {
		if failed[r.tag] {
			return v.newError(r.kind)
		}
	}
	return err
}

func (v *Validator) newError(kind error) error {
	if kind == errors.ErrPasswordTooShort {
		return errors.NewValidationError(kind, "Password must be at least %d characters", v.policy.MinLength)
	}
	return errors.NewValidationError(kind, "%s", errors.Descriptions[kind])
}

func (v *Validator) passwordLength(fl validator.FieldLevel) bool {
	return len(utf16.Encode([]rune(fl.Field().String()))) >= v.policy.MinLength
}

func (v *Validator) passwordStrength(fl validator.FieldLevel) bool {
	if v.policy.MinStrength <= 0 {
		return true
	}
	var inputs []string
	if parent := reflect.Indirect(fl.Parent()); parent.Kind() == reflect.Struct {
		if uid := parent.FieldByName("UserID"); uid.IsValid() && uid.String() != "" {
			inputs = append(inputs, uid.String())
		}
	}
	return zxcvbn.PasswordStrength(fl.Field().String(), inputs).Score >= v.policy.MinStrength
}
