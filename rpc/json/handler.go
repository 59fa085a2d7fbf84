package json

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/rollkit/fastlane/types"
)

type handler struct {
	srv    *service
	router *mux.Router
}

func newHandler(s *service, rpc http.Handler) *handler {
	h := &handler{
		srv:    s,
		router: mux.NewRouter(),
	}

	h.router.Handle("/", rpc).Methods(http.MethodPost)
	h.router.HandleFunc("/health", h.health).Methods(http.MethodGet)
	h.router.HandleFunc("/lookup_root/{chain_id}/{root}", h.lookupRoot).Methods(http.MethodGet)
	h.router.HandleFunc("/roots/{chain_id}", h.roots).Methods(http.MethodGet)
	h.router.HandleFunc("/is_processed/{transfer_id}", h.isProcessed).Methods(http.MethodGet)
	h.router.HandleFunc("/balance/{address}", h.balance).Methods(http.MethodGet)
	h.router.HandleFunc("/account/{address}", h.account).Methods(http.MethodGet)

	return h
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthResult{Status: "ok"})
}

func (h *handler) lookupRoot(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	root, err := hex.DecodeString(vars["root"])
	if err != nil {
		h.writeError(w, fmt.Errorf("%w: root: %v", types.ErrMalformedInput, err))
		return
	}
	h.query(w, r, types.LookupRoot{ChainID: vars["chain_id"], Root: root})
}

func (h *handler) roots(w http.ResponseWriter, r *http.Request) {
	h.query(w, r, types.Roots{ChainID: mux.Vars(r)["chain_id"]})
}

func (h *handler) isProcessed(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["transfer_id"], 10, 64)
	if err != nil {
		h.writeError(w, fmt.Errorf("%w: transfer id: %v", types.ErrMalformedInput, err))
		return
	}
	h.query(w, r, types.IsProcessed{TransferID: id})
}

func (h *handler) balance(w http.ResponseWriter, r *http.Request) {
	h.query(w, r, types.Balance{
		Address: mux.Vars(r)["address"],
		Denom:   r.URL.Query().Get("denom"),
	})
}

func (h *handler) account(w http.ResponseWriter, r *http.Request) {
	h.query(w, r, types.Account{Address: mux.Vars(r)["address"]})
}

func (h *handler) query(w http.ResponseWriter, r *http.Request, msg types.QueryMsg) {
	data, err := h.srv.app.Query(r.Context(), msg)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, QueryResult{Data: data})
}

func (h *handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, types.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, types.ErrMalformedInput), errors.Is(err, types.ErrUnknownMessage):
		status = http.StatusBadRequest
	case errors.Is(err, types.ErrUnauthorized):
		status = http.StatusForbidden
	}
	h.writeJSON(w, status, map[string]string{
		"error": err.Error(),
		"kind":  types.ErrorKind(err),
	})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.srv.logger.Error("failed to write response", "error", err)
	}
}
