package main

import (
	"context"
	"net/http"
	"time"

	"github.com/polluterofminds/parallax-server/internal/casegen"
	"github.com/polluterofminds/parallax-server/internal/errors"
)

// newCase runs case creation to completion. It takes minutes, so the write deadline is stretched to the lock lease.
// The run is detached from the request: once teardown has started, only a finished run leaves a playable case.
func (app *application) newCase(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Now().Add(app.cfg.CaseLockTTL)); err != nil {
		app.serverError(w, r, errors.Wrap(err, "extend write deadline"))
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), app.cfg.CaseLockTTL)
	defer cancel()
	episode, err := app.engine.Orchestrator.CreateCase(ctx)
	if errors.Is(err, casegen.ErrCaseInProgress) {
		app.clientError(w, r, http.StatusConflict, "case creation already in progress")
		return
	}
	if err != nil {
		app.serverError(w, r, errors.Wrap(err, "create case"))
		return
	}
	app.writeJSON(w, r, http.StatusOK, episode)
}
