package validate

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// isoDate accepts strings in YYYY-MM-DD form.
func isoDate(fl validator.FieldLevel) bool {
	_, err := time.Parse(time.DateOnly, fl.Field().String())
	return err == nil
}
