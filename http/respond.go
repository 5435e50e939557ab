package http

import (
	"encoding/json"
	"net/http"

	"conduit/errs"
)

// respond writes v as JSON with the given status.
func respond(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		errs.LogError(r, err)
	}
}

// decode parses the request's JSON body into dst. Bodies are parsed
// non-strictly: unknown fields are ignored.
func decode(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errs.Errorf(errs.EINVALID, "Invalid request body.")
	}
	return nil
}

func unauthorized(w http.ResponseWriter, r *http.Request) {
	errs.ReturnError(w, r, errs.Errorf(errs.EUNAUTHORIZED, "You must be logged in."))
}
