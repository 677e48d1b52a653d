// Package web provides HTTP handlers for the collection API.
// This file contains shared request parsing helpers.
package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/gamevault/internal/core"
)

// maxJSONBody bounds non-import request bodies.
const maxJSONBody = 1 << 20

// pathID parses the {id} URL parameter.
func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, core.ValidationError{Field: "id", Value: raw, Message: "must be a positive integer"}
	}
	return id, nil
}

// queryID parses an optional positive id query parameter. Absent means nil.
func queryID(r *http.Request, name string) (*int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, core.ValidationError{Field: name, Value: raw, Message: "must be a positive integer"}
	}
	return &id, nil
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// queryColumn reads ?column=. Empty selects the service default.
func queryColumn(r *http.Request) (core.Column, error) {
	raw := r.URL.Query().Get("column")
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	col, ok := core.ParseColumn(raw)
	if !ok {
		return "", core.ValidationError{Field: "column", Value: raw, Message: "must be USD, NOK or NOK2"}
	}
	return col, nil
}

// decodeJSON reads a bounded JSON body into v. Unknown fields are rejected
// so typos in field names do not silently drop data.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var ve core.ValidationError
		if errors.As(err, &ve) {
			return ve
		}
		if errors.Is(err, io.EOF) {
			return core.ValidationError{Message: "request body is empty"}
		}
		return core.ValidationError{Message: fmt.Sprintf("invalid JSON: %v", err)}
	}
	return nil
}

// flexOverride accepts a price override as a JSON number, a numeric string,
// an empty string or null.
type flexOverride struct {
	value *float64
	set   bool
}

func (o *flexOverride) UnmarshalJSON(data []byte) error {
	o.set = true
	s := strings.TrimSpace(string(data))
	if s == "null" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	}
	v, err := core.ParseOverride(s)
	if err != nil {
		return err
	}
	o.value = v
	return nil
}
