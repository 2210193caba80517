package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"
)

func writeJSON(c *echo.Context, status int, v any) error {
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	res.WriteHeader(status)
	return json.NewEncoder(res).Encode(v)
}

func writeError(c *echo.Context, status int, errType, msg, param string) error {
	return writeJSON(c, status, ErrorResponse{Error: ResponseError{
		Message: msg,
		Type:    errType,
		Param:   param,
	}})
}

func writeNotFound(c *echo.Context, msg string) error {
	return writeError(c, http.StatusNotFound, "not_found_error", msg, "")
}

// writeFailure maps err onto a status and error type.
func writeFailure(c *echo.Context, err error) error {
	status, errType := classify(err)
	var param string
	var ire invalidRequestError
	if errors.As(err, &ire) {
		param = ire.param
	}
	return writeError(c, status, errType, err.Error(), param)
}

// queryUint32 parses an optional unsigned query parameter, returning def when
// it is absent.
func queryUint32(c *echo.Context, name string, def uint32) (uint32, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, newInvalidParam(name, fmt.Sprintf("%s must be a non-negative integer, got %q", name, raw))
	}
	return uint32(v), nil
}

func pageParams(c *echo.Context, maxLimit uint32) (offset, limit uint32, err error) {
	if offset, err = queryUint32(c, "offset", 0); err != nil {
		return 0, 0, err
	}
	if limit, err = queryUint32(c, "limit", DefaultPageLimit); err != nil {
		return 0, 0, err
	}
	if limit == 0 || limit > maxLimit {
		return 0, 0, newInvalidParam("limit", fmt.Sprintf("limit must be between 1 and %d", maxLimit))
	}
	return offset, limit, nil
}
