package validators

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/pymesoft/comercio-backend/pkg/errors"
)

// ParseQueryInt reads an optional integer query parameter with bounds.
func ParseQueryInt(r *http.Request, name string, fallback, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s must be an integer", name))
	}
	if value < min || value > max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s must be between %d and %d", name, min, max))
	}
	return value, nil
}

// ParsePathID reads a positive int64 route parameter value.
func ParsePathID(raw, name string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s is required", name))
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid %s", name))
	}
	return id, nil
}
