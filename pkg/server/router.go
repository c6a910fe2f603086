// Package server exposes the host contract over HTTP so out-of-process hosts can drive game
// extensions.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rotisserie/eris"

	"github.com/ngld/knossos/packages/ghostrunner/pkg/api"
	"github.com/ngld/knossos/packages/ghostrunner/pkg/game"
	"github.com/ngld/knossos/packages/ghostrunner/pkg/host"
)

type bridge struct {
	host   *host.Context
	params api.CtxParams
}

type errorResponse struct {
	Error string `json:"error"`
}

type testRequest struct {
	Files  []string `json:"files"`
	GameID string   `json:"gameId"`
}

type testResponse struct {
	Installer string `json:"installer,omitempty"`
	game.SupportResult
}

type installRequest struct {
	Files []string `json:"files"`
}

type installResponse struct {
	Instructions []game.InstallInstruction `json:"instructions"`
}

// NewRouter builds the bridge's routes. Every request runs with params attached to its context;
// a non-nil hub additionally receives the log output and serves it on /ws.
func NewRouter(hc *host.Context, params api.CtxParams, hub *LogHub) http.Handler {
	b := &bridge{host: hc, params: params}
	if hub != nil {
		b.params.LogCallback = hub.Wrap(params.LogCallback)
	}

	router := mux.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			ctx := api.WithContext(r.Context(), b.params)
			next.ServeHTTP(rw, r.WithContext(ctx))
		})
	})

	router.HandleFunc("/games", b.listGames).Methods(http.MethodGet)
	router.HandleFunc("/games/{id}", b.getGame).Methods(http.MethodGet)
	router.HandleFunc("/games/{id}/discover", b.discover).Methods(http.MethodPost)
	router.HandleFunc("/games/{id}/setup", b.setup).Methods(http.MethodPost)
	router.HandleFunc("/installers/test", b.test).Methods(http.MethodPost)
	router.HandleFunc("/installers/{name}/install", b.install).Methods(http.MethodPost)
	if hub != nil {
		router.HandleFunc("/ws", hub.ServeHTTP)
	}

	return router
}

func writeJSON(rw http.ResponseWriter, status int, value interface{}) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(value)
}

func (b *bridge) fail(rw http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case eris.Is(err, host.ErrUnknownGame), eris.Is(err, host.ErrUnknownInstaller), eris.Is(err, host.ErrGameNotFound):
		status = http.StatusNotFound
	case eris.Is(err, host.ErrNotSupported):
		status = http.StatusUnprocessableEntity
	case eris.Is(err, errBadRequest):
		status = http.StatusBadRequest
	}

	api.Log(r.Context(), api.LogError, "%s %s failed: %s", r.Method, r.URL.Path, eris.ToString(err, false))
	writeJSON(rw, status, errorResponse{Error: err.Error()})
}

var errBadRequest = eris.New("bad request")

func decode(r *http.Request, target interface{}) error {
	err := json.NewDecoder(r.Body).Decode(target)
	if err != nil {
		return eris.Wrapf(errBadRequest, "invalid body: %v", err)
	}
	return nil
}

func (b *bridge) listGames(rw http.ResponseWriter, r *http.Request) {
	writeJSON(rw, http.StatusOK, b.host.Games())
}

func (b *bridge) getGame(rw http.ResponseWriter, r *http.Request) {
	desc, err := b.host.Game(mux.Vars(r)["id"])
	if err != nil {
		b.fail(rw, r, err)
		return
	}

	writeJSON(rw, http.StatusOK, desc)
}

func (b *bridge) discover(rw http.ResponseWriter, r *http.Request) {
	result, err := b.host.Discover(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		b.fail(rw, r, err)
		return
	}

	writeJSON(rw, http.StatusOK, result)
}

func (b *bridge) setup(rw http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["id"]

	var discovery game.DiscoveryResult
	if r.ContentLength != 0 {
		if err := decode(r, &discovery); err != nil {
			b.fail(rw, r, err)
			return
		}
	}

	if discovery.Path == "" {
		var err error
		discovery, err = b.host.Discover(r.Context(), gameID)
		if err != nil {
			b.fail(rw, r, err)
			return
		}
	}

	err := b.host.Setup(r.Context(), gameID, discovery)
	if err != nil {
		b.fail(rw, r, err)
		return
	}

	writeJSON(rw, http.StatusOK, discovery)
}

func (b *bridge) test(rw http.ResponseWriter, r *http.Request) {
	var req testRequest
	if err := decode(r, &req); err != nil {
		b.fail(rw, r, err)
		return
	}

	inst, result, err := b.host.FindInstaller(r.Context(), req.Files, req.GameID)
	if err != nil {
		if eris.Is(err, host.ErrNotSupported) {
			writeJSON(rw, http.StatusOK, testResponse{SupportResult: game.SupportResult{RequiredFiles: []string{}}})
			return
		}

		b.fail(rw, r, err)
		return
	}

	writeJSON(rw, http.StatusOK, testResponse{Installer: inst.Name, SupportResult: result})
}

func (b *bridge) install(rw http.ResponseWriter, r *http.Request) {
	var req installRequest
	if err := decode(r, &req); err != nil {
		b.fail(rw, r, err)
		return
	}

	instructions, err := b.host.Install(r.Context(), mux.Vars(r)["name"], req.Files)
	if err != nil {
		b.fail(rw, r, err)
		return
	}

	writeJSON(rw, http.StatusOK, installResponse{Instructions: instructions})
}
