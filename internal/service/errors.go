package service

import "fmt"

// Code 是业务层统一的错误码，handler 只依据错误码映射 HTTP 状态，
// 存储层错误细节不会外泄给调用方。
type Code string

const (
	CodeParse        Code = "parse"
	CodeInvalid      Code = "invalid"
	CodeUnauthorized Code = "unauthorized"
	CodeNotFound     Code = "not_found"
	CodeForbidden    Code = "forbidden"
	CodeDuplicate    Code = "duplicate"
)

type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}
