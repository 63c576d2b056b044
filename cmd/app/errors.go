package main

import (
	"log/slog"
	"net/http"

	"github.com/sushihentaime/bloglist/internal/common"
)

var kindStatus = map[common.Kind]int{
	common.KindValidation:   http.StatusBadRequest,
	common.KindMalformedID:  http.StatusBadRequest,
	common.KindConflict:     http.StatusBadRequest,
	common.KindNotFound:     http.StatusNotFound,
	common.KindAuthMissing:  http.StatusUnauthorized,
	common.KindAuthInvalid:  http.StatusUnauthorized,
	common.KindWeakPassword: http.StatusUnauthorized,
	common.KindForbidden:    http.StatusForbidden,
	common.KindUnknownRoute: http.StatusNotFound,
}

func (app *application) logError(r *http.Request, err error) {
	var (
		method  = r.Method
		url     = r.URL.RequestURI()
		message = err.Error()
	)

	app.logger.Error(message, slog.String("method", method), slog.String("url", url))
}

func (app *application) writeErrorResponse(w http.ResponseWriter, r *http.Request, status int, message string) {
	err := app.writeJSON(w, status, envelope{"error": message}, nil)
	if err != nil {
		app.logError(r, err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// errorResponse renders any error returned by the services.
func (app *application) errorResponse(w http.ResponseWriter, r *http.Request, err error) {
	e := common.Translate(err)

	status, ok := kindStatus[e.Kind]
	if !ok {
		app.serverErrorResponse(w, r, err)
		return
	}

	app.writeErrorResponse(w, r, status, e.Message)
}

func (app *application) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logError(r, err)
	message := "the server encountered a problem and could not process your request"
	app.writeErrorResponse(w, r, http.StatusInternalServerError, message)
}

func (app *application) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.writeErrorResponse(w, r, http.StatusBadRequest, err.Error())
}

func (app *application) unknownEndpointResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, common.ErrUnknownRoute)
}

func (app *application) methodNotAllowedResponse(w http.ResponseWriter, r *http.Request) {
	app.writeErrorResponse(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func (app *application) rateLimitExceededResponse(w http.ResponseWriter, r *http.Request) {
	app.writeErrorResponse(w, r, http.StatusTooManyRequests, "rate limit exceeded")
}
