// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package request provides utilities for extracting data from HTTP requests.

It abstracts away the underlying router's parameter extraction and common
body decoding patterns, ensuring consistent error handling and type safety.
*/
package requestutil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/shiftsphere/internal/platform/apperr"
	"github.com/taibuivan/shiftsphere/internal/platform/ctxutil"
	"github.com/taibuivan/shiftsphere/internal/platform/sec"
	"github.com/taibuivan/shiftsphere/internal/platform/validate"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

/*
DecodeJSON reads the request body and decodes it into the target structure.

An empty body decodes to the zero value so that tag validation reports the
missing fields instead of a generic JSON error.

Parameters:
  - writer: http.ResponseWriter (Used to bound the body size)
  - request: *http.Request
  - target: any (Pointer to the destination struct)

Returns:
  - error: validate.ErrInvalidJSON if decoding fails, otherwise nil
*/
func DecodeJSON(writer http.ResponseWriter, request *http.Request, target any) error {
	body := http.MaxBytesReader(writer, request.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(target); err != nil && !errors.Is(err, io.EOF) {
		return validate.ErrInvalidJSON
	}
	return nil
}

/*
DecodeValid decodes the JSON body into target and validates its struct tags.
*/
func DecodeValid(writer http.ResponseWriter, request *http.Request, target any) error {
	if err := DecodeJSON(writer, request, target); err != nil {
		return err
	}
	return validate.Struct(target)
}

/*
Param retrieves a named URL parameter from the request.
*/
func Param(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}

/*
Claims extracts the verified token claims from the request context.

Returns nil if the request is not authenticated.
*/
func Claims(request *http.Request) *sec.AuthClaims {
	return ctxutil.GetAuthClaims(request.Context())
}

/*
RequiredSubject ensures the request passed the access guard and returns the
loaded account.

Returns:
  - sec.Subject: The authenticated account
  - error: apperr.Unauthorized if the request is not authenticated
*/
func RequiredSubject(request *http.Request) (sec.Subject, error) {

	// Get the loaded account
	subject := ctxutil.GetSubject(request.Context())

	// If the request is not authenticated, return an error
	if subject == nil {
		return nil, apperr.Unauthorized("Not authorized. No token provided.")
	}

	return subject, nil
}
