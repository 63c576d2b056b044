package main

import (
	"context"
	"net/http"

	"github.com/sushihentaime/bloglist/internal/common"
	"github.com/sushihentaime/bloglist/internal/userservice"
)

type contextKey string

const authContextKey = contextKey("auth")

// authResult is what authenticate learned about the caller. Routes decide
// whether a missing or invalid token matters.
type authResult struct {
	principal *userservice.Principal
	err       error
}

func (app *application) contextSetAuth(r *http.Request, res authResult) *http.Request {
	ctx := context.WithValue(r.Context(), authContextKey, res)
	return r.WithContext(ctx)
}

func (app *application) contextGetAuth(r *http.Request) authResult {
	res, ok := r.Context().Value(authContextKey).(authResult)
	if !ok {
		return authResult{err: common.AuthError{Reason: common.AuthMissing}}
	}
	return res
}

// contextGetPrincipal returns nil for anonymous callers.
func (app *application) contextGetPrincipal(r *http.Request) *userservice.Principal {
	return app.contextGetAuth(r).principal
}
