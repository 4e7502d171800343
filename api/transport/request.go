package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ExchangeRequest carries the OAuth authorization code.
type ExchangeRequest struct {
	Code string `json:"code" validate:"required,max=512"`
}

// RefreshRequest carries a refresh token.
type RefreshRequest struct {
	Token string `json:"token" validate:"required,max=4096"`
}

// Decode unmarshals body into dst and validates its tags. The returned error is safe to show to clients.
func Decode(body []byte, dst interface{}) error {
	if len(body) == 0 {
		return errors.New("empty body")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return errors.New("malformed json")
	}
	if err := validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			problems := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				problems = append(problems, fmt.Sprintf("%s is %s", strings.ToLower(fe.Field()), fe.Tag()))
			}
			return errors.New(strings.Join(problems, ", "))
		}
		return err
	}
	return nil
}
