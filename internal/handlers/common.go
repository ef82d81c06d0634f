// Package handlers exposes the services over HTTP with a chi router.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"awsugmdu-backend/internal/middleware"
	"awsugmdu-backend/pkg/api"
	appErrors "awsugmdu-backend/pkg/errors"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const internalErrorMessage = "An internal error occurred"

// base carries what every handler needs to answer errors.
type base struct {
	logger *zap.Logger
	// debugErrors echoes internal error text to clients.
	debugErrors bool
}

// handleServiceError converts service errors to appropriate HTTP responses
func (b base) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := appErrors.StatusCode(err)
	fields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("requestID", chimiddleware.GetReqID(r.Context())),
		zap.Error(err),
	}

	switch status {
	case http.StatusInternalServerError:
		b.logger.Error("Request failed", fields...)
		message := internalErrorMessage
		if b.debugErrors {
			message = err.Error()
		}
		api.Error(w, status, message)
	case http.StatusConflict:
		b.logger.Warn("Request conflicted after retries", fields...)
		api.Error(w, status, appErrors.Message(err))
	default:
		b.logger.Debug("Request rejected", fields...)
		api.Error(w, status, appErrors.Message(err))
	}
}

// decode reads a JSON body into dst. An empty body leaves dst untouched.
func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return appErrors.NewValidation("Invalid request body")
	}
	return nil
}

// resolveUserID prefers the id named in the body and falls back to the
// authenticated caller.
func resolveUserID(r *http.Request, fromBody string) (string, error) {
	if fromBody != "" {
		return fromBody, nil
	}
	if caller, ok := middleware.CallerID(r.Context()); ok {
		return caller, nil
	}
	return "", appErrors.NewValidation("userId is required")
}

// userBody is the body of endpoints that only need to know who is acting.
type userBody struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

// readUser decodes a userBody and resolves its user id.
func readUser(r *http.Request) (userBody, error) {
	var body userBody
	if err := decode(r, &body); err != nil {
		return body, err
	}
	userID, err := resolveUserID(r, body.UserID)
	body.UserID = userID
	return body, err
}
