package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/tidwall/jsonc"

	"github.com/shinji-kodama/contractbot-workspace/internal/model"
)

// ConfigSummary describes a configuration file that passed Preflight.
type ConfigSummary struct {
	// Path is the file that was checked.
	Path string `json:"path"`

	// Keys are the top-level keys, sorted.
	Keys []string `json:"keys"`
}

// Preflight verifies that path holds a JSON object the service can load.
//
// The service parses its configuration strictly, so comments and trailing
// commas are errors here too. When stripping them with jsonc would make the
// file valid, the error says so instead of echoing the parser message.
func Preflight(path string) (*ConfigSummary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, model.WrapKindError(model.KindService,
				fmt.Sprintf("service configuration not found: %s", path), err)
		}
		return nil, model.WrapKindError(model.KindService,
			fmt.Sprintf("failed to read service configuration %s", path), err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		if json.Valid(jsonc.ToJSON(data)) && !json.Valid(data) {
			return nil, model.NewKindError(model.KindService,
				fmt.Sprintf("service configuration %s contains comments or trailing commas; remove them, the service reads strict JSON", path))
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, model.NewKindError(model.KindService,
				fmt.Sprintf("service configuration %s must be a JSON object, got %s", path, typeErr.Value))
		}
		return nil, model.WrapKindError(model.KindService,
			fmt.Sprintf("invalid service configuration %s", path), err)
	}
	if raw == nil && bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil, model.NewKindError(model.KindService,
			fmt.Sprintf("service configuration %s must be a JSON object, got null", path))
	}

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return &ConfigSummary{Path: path, Keys: keys}, nil
}
