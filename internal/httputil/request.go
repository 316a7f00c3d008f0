package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// maxBodyBytes bounds request bodies; bridge requests are small.
const maxBodyBytes = 1 << 20

// ParseJSON decodes JSON from the request body into dest. Unknown fields
// are rejected so a misspelled field is not silently ignored.
func ParseJSON(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// ParseOptionalJSON is ParseJSON for endpoints whose body may be empty.
func ParseOptionalJSON(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	err := ParseJSON(w, r, dest)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
