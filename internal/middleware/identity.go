package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/awslabs/aws-lambda-go-api-proxy/core"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type contextKey struct {
	name string
}

var callerIDKey = contextKey{"callerID"}

// WithCallerID returns ctx carrying the caller's user id.
func WithCallerID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, callerIDKey, userID)
}

// CallerID returns the user id resolved by Identity, if any.
func CallerID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(callerIDKey).(string)
	return userID, ok && userID != ""
}

// Identity resolves who is calling without rejecting anyone. API Gateway has
// already validated the token, so the authorizer's sub claim is trusted
// first; otherwise a Bearer token is parsed without verifying its signature.
func Identity(logger *zap.Logger) func(next http.Handler) http.Handler {
	parser := jwt.NewParser()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := authorizerSubject(r.Context())
			if userID == "" {
				userID = bearerSubject(parser, r.Header.Get("Authorization"), logger)
			}
			if userID != "" {
				r = r.WithContext(WithCallerID(r.Context(), userID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func authorizerSubject(ctx context.Context) string {
	proxyCtx, ok := core.GetAPIGatewayV2ContextFromContext(ctx)
	if !ok || proxyCtx.Authorizer == nil {
		return ""
	}
	if jwtAuth := proxyCtx.Authorizer.JWT; jwtAuth != nil {
		if sub := jwtAuth.Claims["sub"]; sub != "" {
			return sub
		}
	}
	if sub, ok := proxyCtx.Authorizer.Lambda["sub"].(string); ok {
		return sub
	}
	return ""
}

func bearerSubject(parser *jwt.Parser, header string, logger *zap.Logger) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return ""
	}

	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		logger.Debug("Ignoring unparseable bearer token", zap.Error(err))
		return ""
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return ""
	}
	return sub
}
