package http

import (
	"encoding/json"
	"errors"
	"net/http"
)

// decodeBodyFields reads the request body into a loosely typed map so the
// schema layer can report per-field type violations instead of a single
// decoder error. UseNumber preserves the exact decimal text of amounts.
func decodeBodyFields(r *http.Request) (map[string]any, error) {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	fields := make(map[string]any)
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func writeBodyError(w http.ResponseWriter, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		writeError(w, http.StatusRequestEntityTooLarge, "Request body too large", nil)
		return
	}
	writeError(w, http.StatusBadRequest, "Invalid JSON body", nil)
}
