package main

import (
	"encoding/json"
	"net/http"

	"github.com/polluterofminds/parallax-server/internal/casegen"
	"github.com/polluterofminds/parallax-server/internal/contexthelpers"
	"github.com/polluterofminds/parallax-server/internal/errors"
	"github.com/polluterofminds/parallax-server/internal/models"
)

const maxSolveBody = 16 << 10

// solve scores the submitted guess against the current case. Wrong guesses are answered with 200 and a verdict.
func (app *application) solve(w http.ResponseWriter, r *http.Request) {
	var guess models.StructuredSolution
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSolveBody))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&guess); err != nil {
		app.clientError(w, r, http.StatusBadRequest, "malformed guess")
		return
	}
	if !guess.Complete() {
		app.clientError(w, r, http.StatusBadRequest, "victims, criminal and motive are required")
		return
	}

	ctx := r.Context()
	result, err := app.engine.Solver.Solve(ctx, contexthelpers.PlayerAddress(ctx), guess)
	if errors.Is(err, casegen.ErrNoActiveCase) {
		app.clientError(w, r, http.StatusNotFound, "no active case")
		return
	}
	if err != nil {
		app.serverError(w, r, errors.Wrap(err, "solve"))
		return
	}
	app.writeJSON(w, r, http.StatusOK, result)
}
