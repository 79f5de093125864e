package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/xela07ax/agentdock/internal/domain"
)

const maxBodyBytes = 1 << 20

// errorBody: формат ошибок, который ждет фронтенд: {"detail": "..."}.
type errorBody struct {
	Detail string `json:"detail"`
}

type messageBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError: единственное место, где ошибка превращается в HTTP-ответ.
func writeError(w http.ResponseWriter, err error) {
	de := domain.AsError(err)
	writeJSON(w, de.StatusCode(), errorBody{Detail: de.Error()})
}

// decodeJSON читает тело запроса; любая проблема с телом: Invalid (422).
// required: поля, которые должны присутствовать и не быть null.
// Пустая строка считается заданным значением.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, required ...string) error {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return domain.Invalidf("invalid request body: %v", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return domain.Invalidf("request body is empty")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return domain.Invalidf("invalid request body: %v", err)
	}
	var missing []string
	for _, name := range required {
		if v, ok := fields[name]; !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return domain.Invalidf("field required: %s", strings.Join(missing, ", "))
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return domain.Invalidf("invalid request body: %v", err)
	}
	return nil
}
