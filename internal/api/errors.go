package api

import (
	"errors"
	"net/http"

	"github.com/samcharles93/r1cs/internal/r1csstore"
	"github.com/samcharles93/r1cs/pkg/binfile"
	"github.com/samcharles93/r1cs/pkg/r1cs"
)

var ErrInvalidRequest = errors.New("invalid_request")

type invalidRequestError struct {
	param string
	msg   string
}

func (e invalidRequestError) Error() string {
	return e.msg
}

func (e invalidRequestError) Unwrap() error {
	return ErrInvalidRequest
}

func newInvalidParam(param, msg string) error {
	return invalidRequestError{param: param, msg: msg}
}

// corruptFileErrors are reported as 422: the file exists but is not a valid
// r1cs container.
var corruptFileErrors = []error{
	binfile.ErrBadMagic,
	binfile.ErrUnsupportedVersion,
	binfile.ErrMissingSection,
	binfile.ErrDuplicateSection,
	binfile.ErrSizeMismatch,
	r1cs.ErrInvalidHeader,
	r1cs.ErrInvalidMapSize,
	r1cs.ErrDuplicateIndex,
	r1cs.ErrFieldRange,
}

func classify(err error) (status int, errType string) {
	var ire invalidRequestError
	switch {
	case errors.As(err, &ire), errors.Is(err, r1csstore.ErrInvalidName):
		return http.StatusBadRequest, "invalid_request_error"
	case errors.Is(err, r1csstore.ErrCircuitNotFound):
		return http.StatusNotFound, "not_found_error"
	}
	for _, target := range corruptFileErrors {
		if errors.Is(err, target) {
			return http.StatusUnprocessableEntity, "invalid_file_error"
		}
	}
	return http.StatusInternalServerError, "server_error"
}
