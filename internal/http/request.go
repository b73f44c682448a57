package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
)

// maxBodyBytes bounds request bodies; expense payloads are tiny.
const maxBodyBytes = 64 << 10

var errBodyTooLarge = errors.New("request body too large")

func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxBodyBytes {
		return nil, errBodyTooLarge
	}
	return bytes.TrimSpace(body), nil
}

// fieldSet is a flat view of a submitted body. Submissions arrive either
// as a JSON object or as a urlencoded form, and the builder only wants
// strings.
type fieldSet map[string]string

// readFields decodes r's body into a fieldSet. Bodies that start with '{'
// or are labelled JSON are decoded as JSON; anything else is a form. An
// empty body gives an empty set.
func readFields(r *http.Request) (fieldSet, error) {
	body, err := readBody(r)
	if err != nil {
		return nil, err
	}
	fields := fieldSet{}
	if len(body) == 0 {
		return fields, nil
	}

	if body[0] == '{' || strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var raw map[string]any
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode JSON body: %w", err)
		}
		for k, v := range raw {
			if s, ok := scalarString(v); ok {
				fields[k] = clean(s)
			}
		}
		return fields, nil
	}

	form, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, fmt.Errorf("decode form body: %w", err)
	}
	for k := range form {
		fields[k] = clean(form.Get(k))
	}
	return fields, nil
}

// scalarString renders JSON scalars. Objects, arrays and null are skipped.
func scalarString(v any) (string, bool) {
	switch v := v.(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case bool:
		return strconv.FormatBool(v), true
	}
	return "", false
}

// clean trims v and drops control characters other than whitespace.
func clean(v string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, v))
}

// decodeJSON reads a JSON body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	body, err := readBody(r)
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return errors.New("request body is empty")
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode JSON body: %w", err)
	}
	return nil
}

// idParam reads a positive integer URL parameter.
func idParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", name, raw)
	}
	return id, nil
}
