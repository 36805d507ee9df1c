// Package httpx holds small request helpers shared by the domain handlers.
package httpx

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// ValidationError marks input the client must fix; it maps to 400.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func Invalidf(format string, args ...interface{}) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Required returns a ValidationError naming field when value is blank.
func Required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return Invalidf("%s is required", field)
	}
	return nil
}

// Mapping turns a sentinel error into a status and client-facing detail.
type Mapping struct {
	Err    error
	Status int
	Detail string
}

// Error converts a service error into an *echo.HTTPError. Known sentinels use
// their mapping, validation errors become 400 and anything else is a 500 whose
// message is not exposed.
func Error(err error, known ...Mapping) *echo.HTTPError {
	for _, m := range known {
		if errors.Is(err, m.Err) {
			return echo.NewHTTPError(m.Status, m.Detail).SetInternal(err)
		}
	}
	if IsValidation(err) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
}

// ParseID reads a positive integer path parameter.
func ParseID(c echo.Context, name string) (int64, error) {
	return parsePositive(c.Param(name), name)
}

// QueryID reads a positive integer query parameter.
func QueryID(c echo.Context, name string) (int64, error) {
	return parsePositive(c.QueryParam(name), name)
}

func parsePositive(raw, name string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

// Bind decodes the request body, turning decoder errors into a 400 with a
// readable message.
func Bind(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			msg, _ := he.Message.(string)
			if msg == "" {
				msg = "invalid request body"
			}
			return echo.NewHTTPError(http.StatusBadRequest, msg).SetInternal(err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	}
	return nil
}
