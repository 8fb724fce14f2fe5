package common

import (
	"fmt"
	"net/http"
	"reflect"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

// GenericEchoValidator validates request bodies bound by echo. Slices are
// validated element by element.
type GenericEchoValidator struct {
	Validator *validator.Validate
}

func (gv *GenericEchoValidator) Validate(i interface{}) error {
	if gv.Validator == nil {
		gv.Validator = validator.New()
	}

	v := reflect.ValueOf(i)
	for v.Kind() == reflect.Ptr && !v.IsNil() {
		v = v.Elem()
	}
	if v.Kind() == reflect.Slice {
		for idx := 0; idx < v.Len(); idx++ {
			if err := gv.validateStruct(v.Index(idx).Interface()); err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("received invalid request body at index %d: %v", idx, err))
			}
		}
		return nil
	}

	if err := gv.validateStruct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("received invalid request body: %v", err))
	}
	return nil
}

func (gv *GenericEchoValidator) validateStruct(i interface{}) error {
	k := reflect.Indirect(reflect.ValueOf(i)).Kind()
	if k != reflect.Struct {
		return nil
	}
	return gv.Validator.Struct(i)
}
