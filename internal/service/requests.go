package service

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// CreateSlotRequest параметры нового слота
type CreateSlotRequest struct {
	TeacherID uuid.UUID `validate:"required"`
	Name      string    `validate:"required,max=255"`
	StartTime time.Time `validate:"required"`
	EndTime   time.Time `validate:"required"`
	Price     int64     `validate:"gte=0"`
	IsPaid    bool
}

// UpdateSlotRequest частичное обновление слота, nil-поля не меняются
type UpdateSlotRequest struct {
	Name      *string    `validate:"omitempty,min=1,max=255"`
	StartTime *time.Time `validate:"omitempty"`
	EndTime   *time.Time `validate:"omitempty"`
	Price     *int64     `validate:"omitempty,gte=0"`
	IsPaid    *bool      `validate:"omitempty"`
}

// CompleteRequest завершение урока учителем
type CompleteRequest struct {
	LessonID  uuid.UUID `validate:"required"`
	TeacherID uuid.UUID `validate:"required"`
	Rating    *int      `validate:"omitempty,min=1,max=5"`
	Feedback  *string   `validate:"omitempty,max=500"`
}

// CancelRequest отмена или удаление урока, причина необязательна
type CancelRequest struct {
	LessonID uuid.UUID `validate:"required"`
	Reason   string    `validate:"max=500"`
}

// validateRequest превращает ошибки валидатора в ошибку типа VALIDATION
func validateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return newError(KindValidation, "invalid request", err)
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field()+" failed '"+fe.Tag()+"'")
	}

	return newError(KindValidation, strings.Join(fields, "; "), err)
}
