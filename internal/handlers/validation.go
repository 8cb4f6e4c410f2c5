package handlers

import (
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// missingFields returns the json names of the required fields of req that
// are empty, in declaration order.
func missingFields(req any) []string {
	err := validate.Struct(req)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	missing := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			missing = append(missing, fe.Field())
		}
	}
	return missing
}

var errInvalidVendorID = errors.New("invalid vendor ID")

func vendorID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 0)
	if err != nil || id == 0 {
		return 0, errInvalidVendorID
	}
	return uint(id), nil
}
