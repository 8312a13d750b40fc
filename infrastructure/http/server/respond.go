package server

import (
	"encoding/json"
	"estate-match/domain"
	"estate-match/errors"
	"io"
	"net/http"
)

const maxBodySize = 1 << 20

type errorResponse struct {
	Error  string   `json:"error"`
	Errors []string `json:"errors,omitempty"`
}

func decode(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeError answers with the status of err. Validation failures list every
// broken rule, internal failures hide their cause.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	res := errorResponse{Error: err.Error()}
	var verrs domain.ValidationErrors
	if errors.As(err, &verrs) {
		for _, f := range verrs {
			res.Errors = append(res.Errors, f.String())
		}
	}
	if status == http.StatusInternalServerError {
		s.log.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		res = errorResponse{Error: http.StatusText(status)}
	}
	writeJSON(w, status, res)
}

func (s *Server) badRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON: " + err.Error()})
}
