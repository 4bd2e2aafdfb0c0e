package rest

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/render"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/lintang-b-s/mwmrouter/pkg/server"
)

// nginx's code for a client that went away before the response
const statusClientClosedRequest = 499

// ErrResponse model info
//
//	@Description	error response
type ErrResponse struct {
	Err            error `json:"-"` // low-level runtime error
	HTTPStatusCode int   `json:"-"` // http response status code

	StatusText    string   `json:"status"`          // user-level status message
	AppCode       string   `json:"code,omitempty"`  // application-specific error code
	ErrorText     string   `json:"error,omitempty"` // application-level error message
	ErrValidation []string `json:"validation,omitempty"`
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

func ErrInvalidRequest(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusBadRequest,
		StatusText:     "Invalid request.",
		ErrorText:      err.Error(),
	}
}

func ErrValidation(err error, errV []error) render.Renderer {
	vv := make([]string, 0, len(errV))
	for _, v := range errV {
		vv = append(vv, v.Error())
	}
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusBadRequest,
		StatusText:     "Invalid request.",
		ErrorText:      err.Error(),
		ErrValidation:  vv,
	}
}

func ErrInternalServerErrorRend(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusInternalServerError,
		StatusText:     "Internal server error.",
		ErrorText:      "internal server error",
		AppCode:        server.ErrInternalServerError.String(),
	}
}

// ErrService renders an error returned by a service. Only the message of a
// *server.Error reaches the client.
func ErrService(err error) render.Renderer {
	var e *server.Error
	if !errors.As(err, &e) {
		return ErrInternalServerErrorRend(err)
	}
	resp := &ErrResponse{
		Err:       err,
		AppCode:   e.Code().String(),
		ErrorText: e.Message(),
	}
	switch e.Code() {
	case server.ErrNotFound:
		resp.HTTPStatusCode, resp.StatusText = http.StatusNotFound, "Not found."
	case server.ErrBadParamInput:
		resp.HTTPStatusCode, resp.StatusText = http.StatusBadRequest, "Invalid request."
	case server.ErrConflict:
		resp.HTTPStatusCode, resp.StatusText = http.StatusConflict, "Conflict."
	case server.ErrRegionUnavailable:
		resp.HTTPStatusCode, resp.StatusText = http.StatusFailedDependency, "Region unavailable."
	case server.ErrCancelled:
		resp.HTTPStatusCode, resp.StatusText = statusClientClosedRequest, "Cancelled."
	default:
		return ErrInternalServerErrorRend(err)
	}
	return resp
}

func translateError(err error, trans ut.Translator) (errs []error) {
	if err == nil {
		return nil
	}
	var validatorErrs validator.ValidationErrors
	if !errors.As(err, &validatorErrs) {
		return []error{err}
	}
	for _, e := range validatorErrs {
		errs = append(errs, fmt.Errorf("%s", e.Translate(trans)))
	}
	return errs
}
