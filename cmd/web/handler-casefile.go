package main

import (
	"net/http"

	"github.com/polluterofminds/parallax-server/internal/casegen"
	"github.com/polluterofminds/parallax-server/internal/errors"
)

// caseFile returns the teaser and the character profiles of the current case.
func (app *application) caseFile(w http.ResponseWriter, r *http.Request) {
	file, err := app.engine.Reader.CurrentCase(r.Context())
	if errors.Is(err, casegen.ErrNoActiveCase) {
		app.clientError(w, r, http.StatusNotFound, "no active case")
		return
	}
	if err != nil {
		app.serverError(w, r, errors.Wrap(err, "current case"))
		return
	}
	app.writeJSON(w, r, http.StatusOK, file)
}
