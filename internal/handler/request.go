package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/DukeRupert/notegenie/internal/domain"
)

// maxJSONBody caps JSON request bodies. Uploads are multipart and are not
// decoded here.
const maxJSONBody = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON name so messages match the request body.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fieldMessages maps "<jsonField>.<tag>" to the message returned for that
// failed rule.
type fieldMessages map[string]string

// decodeJSON reads r's body into dst and validates it. A malformed body or a
// failed rule yields a *domain.ValidationError naming the first bad field.
func decodeJSON(r *http.Request, op string, dst any, messages fieldMessages) error {
	body := http.MaxBytesReader(nil, r.Body, maxJSONBody)
	if err := json.NewDecoder(body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return domain.Invalid(op, "Invalid request body")
	}
	return validateStruct(op, dst, messages)
}

func validateStruct(op string, v any, messages fieldMessages) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return domain.Invalid(op, "Invalid request body")
	}
	fe := verrs[0]
	msg, ok := messages[fe.Field()+"."+fe.Tag()]
	if !ok {
		msg = fmt.Sprintf("%s is invalid", fe.Field())
	}
	return domain.NewValidationError(op, fe.Field(), msg)
}
