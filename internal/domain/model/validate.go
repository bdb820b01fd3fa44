package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrValidation — документ не прошёл проверку полей.
var ErrValidation = errors.New("ошибка валидации документа")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate проверяет ограничения полей документа перед записью.
// Возвращает ошибку, оборачивающую ErrValidation, со списком полей.
func (r *ReceiptOcrRecord) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(fields, ", "))
}
