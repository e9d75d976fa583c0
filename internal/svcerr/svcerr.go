// Package svcerr defines the tagged error result type every service in the
// billing core returns instead of ad-hoc error strings, per the error
// taxonomy every repository and service boundary maps into.
package svcerr

import (
	"net/http"

	"github.com/pkg/errors"
)

// Kind is the closed set of error categories a service operation can fail with.
type Kind string

const (
	KindValidation       Kind = "validation"
	KindForbidden        Kind = "forbidden"
	KindNotFound         Kind = "not_found"
	KindTransientExternal Kind = "transient_external"
	KindInternal         Kind = "internal"
)

// FieldError is one entry in a structured validation payload.
type FieldError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

// ServiceError is the single error value every service boundary returns.
// Err carries the wrapped source chain (built with github.com/pkg/errors so
// a stack trace is available at the point it first crossed a boundary);
// Context carries human-readable breadcrumbs accumulated via WithContext.
type ServiceError struct {
	Kind    Kind
	Err     error
	Fields  map[string][]FieldError
	Context []string
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Err.Error()
	}
	return string(e.Kind)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// WithContext returns a copy of e with an additional breadcrumb appended,
// mirroring the source-chain context the reference platform accumulates via
// github.com/pkg/errors.WithMessage at each layer a DB/HTTP error crosses.
func (e *ServiceError) WithContext(msg string) *ServiceError {
	cp := *e
	cp.Context = append(append([]string{}, e.Context...), msg)
	cp.Err = errors.WithMessage(e.Err, msg)
	return &cp
}

func new(kind Kind, err error) *ServiceError {
	return &ServiceError{Kind: kind, Err: err}
}

func Validation(fields map[string][]FieldError) *ServiceError {
	return &ServiceError{Kind: KindValidation, Err: errors.New("validation failed"), Fields: fields}
}

func ValidationMsg(msg string) *ServiceError {
	return &ServiceError{Kind: KindValidation, Err: errors.New(msg)}
}

func Forbidden(msg string) *ServiceError {
	return new(KindForbidden, errors.New(msg))
}

func NotFound(msg string) *ServiceError {
	return new(KindNotFound, errors.New(msg))
}

func TransientExternal(err error) *ServiceError {
	return new(KindTransientExternal, errors.WithStack(err))
}

func Internal(err error) *ServiceError {
	return new(KindInternal, errors.WithStack(err))
}

// As extracts a *ServiceError from err, wrapping it as Internal if it is not
// already one — the catch-all a service applies to any error it did not
// construct itself (e.g. a panic-recovery path or an unexpected stdlib error).
func As(err error) *ServiceError {
	if err == nil {
		return nil
	}
	var se *ServiceError
	if errors.As(err, &se) {
		return se
	}
	return Internal(err)
}

// HTTPStatus maps a Kind onto the status codes in the distilled spec's error
// handling design (§7).
func HTTPStatus(k Kind) int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindTransientExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
