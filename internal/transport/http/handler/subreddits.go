package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/subfinder/api/internal/application/catalog"
	jwtinfra "github.com/subfinder/api/internal/infrastructure/jwt"
)

type tokenVerifier interface {
	Verify(token string) (*jwtinfra.Claims, error)
}

// SubredditHandler serves the read-mostly subreddit catalog.
type SubredditHandler struct {
	svc      catalog.Service
	verifier tokenVerifier
}

func NewSubredditHandler(svc catalog.Service, verifier tokenVerifier) *SubredditHandler {
	return &SubredditHandler{svc: svc, verifier: verifier}
}

// List requires a bearer token header. A valid token yields the full sorted
// catalog; an invalid or expired one falls back to the paginated page.
func (h *SubredditHandler) List(w http.ResponseWriter, r *http.Request) {
	bearer := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if bearer == "" {
		writeError(w, http.StatusBadRequest, "no authorization token")
		return
	}
	_, err := h.verifier.Verify(bearer)
	authorized := err == nil

	page, limit := parsePagination(r)
	subs, err := h.svc.List(r.Context(), page, limit, authorized)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SubredditsEnvelope{Success: true, Data: subs})
}

func parsePagination(r *http.Request) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		limit = 25
	}
	return
}
