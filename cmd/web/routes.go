package main

import (
	"net/http"

	"github.com/justinas/alice"
)

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/healthy", app.healthy)
	mux.Handle("GET /api/case-file", timeoutHandler(http.HandlerFunc(app.caseFile), defaultTimeout))

	player := alice.New(app.requirePlayer)
	mux.Handle("POST /api/solve", player.Then(timeoutHandler(http.HandlerFunc(app.solve), defaultTimeout)))

	admin := alice.New(app.requireAdmin)
	mux.Handle("POST /api/new-case", admin.ThenFunc(app.newCase))

	mux.HandleFunc("/", app.notFound)

	standard := alice.New(app.recoverPanic, app.logRequest, secureHeaders)
	return standard.Then(mux)
}
