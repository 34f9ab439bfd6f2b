package kinesisfake

import (
	"encoding/json"
	"net/http"
)

func handleError(w http.ResponseWriter, err error) {
	if kerr, ok := err.(KinesisError); ok {
		w.WriteHeader(kerr.StatusCode())
		json.NewEncoder(w).Encode(map[string]string{
			"__type":  kerr.AWSExceptionCode(),
			"message": kerr.Error(),
		})
		return
	}
	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{
		"__type":  "InternalFailure",
		"message": err.Error(),
	})
}

type KinesisError interface {
	error
	StatusCode() int
	AWSExceptionCode() string
}

type UnsupportedOperationError struct {
	Operation string
}

func (e *UnsupportedOperationError) Error() string {
	return "Operation '" + e.Operation + "' not supported"
}

func (e *UnsupportedOperationError) StatusCode() int {
	return http.StatusBadRequest
}

func (e *UnsupportedOperationError) AWSExceptionCode() string {
	return "UnknownOperationException"
}

type ResourceNotFoundException struct {
	message string
}

func (e *ResourceNotFoundException) Error() string {
	if e.message != "" {
		return e.message
	}
	return "Resource not found"
}

func (e *ResourceNotFoundException) StatusCode() int {
	return http.StatusBadRequest
}

func (e *ResourceNotFoundException) AWSExceptionCode() string {
	return "ResourceNotFoundException"
}

type ResourceInUseException struct {
	message string
}

func (e *ResourceInUseException) Error() string {
	return e.message
}

func (e *ResourceInUseException) StatusCode() int {
	return http.StatusBadRequest
}

func (e *ResourceInUseException) AWSExceptionCode() string {
	return "ResourceInUseException"
}

type InvalidArgumentException struct {
	message string
}

func (e *InvalidArgumentException) Error() string {
	return e.message
}

func (e *InvalidArgumentException) StatusCode() int {
	return http.StatusBadRequest
}

func (e *InvalidArgumentException) AWSExceptionCode() string {
	return "InvalidArgumentException"
}
