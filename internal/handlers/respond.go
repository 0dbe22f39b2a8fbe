package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"nutritrack/internal/datekey"
	mw "nutritrack/internal/middleware"
	"nutritrack/internal/store"
)

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg})
}

// writeError maps store errors onto HTTP statuses. Anything unexpected is logged and
// reported as a bare 500.
func writeError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	var verr *store.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: verr.Error(), Field: verr.Field})
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	case errors.Is(err, store.ErrEmailTaken):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	default:
		logger.Error("handler error",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

func userID(r *http.Request) int {
	id, _ := mw.UserIDFromContext(r.Context())
	return id
}

func pathID(r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	return id, err == nil && id > 0
}

// queryDate parses an optional YYYY-MM-DD query parameter.
func queryDate(r *http.Request, name string) (*datekey.Date, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	d, err := datekey.Parse(v)
	if err != nil {
		return nil, errors.New("invalid " + name + " format; expected YYYY-MM-DD")
	}
	return &d, nil
}

// nonZero drops a date decoded from null or "".
func nonZero(d *datekey.Date) *datekey.Date {
	if d == nil || d.IsZero() {
		return nil
	}
	return d
}

func queryRange(r *http.Request) (store.DateRange, error) {
	from, err := queryDate(r, "from")
	if err != nil {
		return store.DateRange{}, err
	}
	to, err := queryDate(r, "to")
	if err != nil {
		return store.DateRange{}, err
	}
	return store.DateRange{From: from, To: to}, nil
}

func queryPage(r *http.Request) (store.Page, error) {
	var p store.Page
	for name, dst := range map[string]*int{"limit": &p.Limit, "offset": &p.Offset} {
		v := r.URL.Query().Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return store.Page{}, errors.New("invalid " + name)
		}
		*dst = n
	}
	return p, nil
}
