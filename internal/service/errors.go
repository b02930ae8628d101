package service

import (
	"errors"
	"net/http"
)

// Error 统一业务错误：Code 直接对应 HTTP 状态码
type Error struct {
	Code int
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Msg != "" {
		if e.Err != nil {
			return e.Msg + ": " + e.Err.Error()
		}
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "service error"
}

func (e *Error) Unwrap() error { return e.Err }

const (
	MsgAccessDenied   = "Access denied"
	MsgNotFound       = "Not found"
	MsgInvalidRequest = "Invalid request format"
	MsgDuplicate      = "Duplicate entity"
	MsgInternal       = "Internal server error"
)

func Unauthorized() error { return &Error{Code: http.StatusUnauthorized, Msg: MsgAccessDenied} }
func NotFound() error { return &Error{Code: http.StatusNotFound, Msg: MsgNotFound} }
func BadRequest(err error) error { return &Error{Code: http.StatusBadRequest, Msg: MsgInvalidRequest, Err: err} }
func Conflict() error { return &Error{Code: http.StatusConflict, Msg: MsgDuplicate} }
func Internal(err error) error { return &Error{Code: http.StatusInternalServerError, Msg: MsgInternal, Err: err} }

// CodeOf 非业务错误一律按 500 处理
func CodeOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return http.StatusInternalServerError
}
