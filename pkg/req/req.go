package req

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/Dhoini/attendance-service/pkg/logger"
	"github.com/Dhoini/attendance-service/pkg/res"
	"github.com/go-playground/validator/v10"
)

// CodeInvalidRequest код ответа для тела, которое не удалось разобрать или проверить
const CodeInvalidRequest = "validation_failed"

var validate = newValidator()

// newValidator возвращает валидатор, который называет поля по json-тегам
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Decode декодирует JSON из io.ReadCloser в структуру типа T.
func Decode[T any](body io.ReadCloser) (T, error) {
	var payload T
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return payload, err
	}
	return payload, nil
}

// IsValid валидирует структуру типа T.
func IsValid[T any](payload T) error {
	return validate.Struct(payload)
}

// InvalidFields возвращает имена полей, не прошедших валидацию
func InvalidFields(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return fields
}

// HandleBody декодирует, валидирует и обрабатывает тело запроса.
// При ошибке ответ 400 уже записан.
func HandleBody[T any](w http.ResponseWriter, r *http.Request, log *logger.Logger) (*T, error) {
	if r.Body == nil {
		res.JsonErrorResponse(w, res.ErrorResponse{Error: "request body is required", Code: CodeInvalidRequest}, http.StatusBadRequest, log)
		return nil, io.EOF
	}

	body, err := Decode[T](r.Body)
	if err != nil {
		log.Warnw("Failed to decode request body", "error", err)
		res.JsonErrorResponse(w, res.ErrorResponse{Error: "malformed request body", Code: CodeInvalidRequest}, http.StatusBadRequest, log)
		return nil, err
	}

	if err := IsValid(body); err != nil {
		log.Warnw("Request body validation failed", "error", err)
		res.JsonErrorResponse(w, res.ErrorResponse{
			Error:   "invalid request data",
			Code:    CodeInvalidRequest,
			Details: InvalidFields(err),
		}, http.StatusBadRequest, log)
		return nil, err
	}
	return &body, nil
}
