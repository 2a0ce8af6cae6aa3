// Package web provides HTTP handlers for the import API.
// This file contains shared utilities and helper functions used across handlers.
package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/JonMunkholm/sheetimport/internal/core"
	"github.com/go-playground/validator/v10"
)

// parseIntParam parses an integer query parameter with a default value.
// A present but non-numeric value is an error.
func parseIntParam(r *http.Request, name string, defaultVal int) (int, error) {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", core.ErrInvalidPage, name)
	}
	return i, nil
}

// pageParams reads page and pageSize. Range checks are left to the service.
func pageParams(r *http.Request) (page, pageSize int, err error) {
	if page, err = parseIntParam(r, "page", 1); err != nil {
		return 0, 0, err
	}
	if pageSize, err = parseIntParam(r, "pageSize", core.DefaultPageSize); err != nil {
		return 0, 0, err
	}
	return page, pageSize, nil
}

// decodeBody decodes a JSON request body into dst and validates it.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxBodySize)

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", errInvalidRequest)
		}
		return fmt.Errorf("%w: %v", errInvalidRequest, err)
	}

	if err := s.validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %s", errInvalidRequest, describeValidation(err))
	}
	return nil
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// describeValidation flattens validator errors into one line.
func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		parts = append(parts, fmt.Sprintf("%s failed %s", field, rule))
	}
	return strings.Join(parts, "; ")
}
