package server

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

type healthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}

// handleHealth reports readiness of the upload directory and, when a model
// client is wired, the model endpoint. A degraded model keeps the endpoint
// at 200 so the service can still accept uploads that will fail fast.
func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Components: map[string]string{}}

	if err := checkUploadDir(s.cfg.UploadDir); err != nil {
		resp.Status = "degraded"
		resp.Components["upload_dir"] = err.Error()
	} else {
		resp.Components["upload_dir"] = "ok"
	}

	if s.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := s.pinger.Ping(ctx); err != nil {
			resp.Status = "degraded"
			resp.Components["model"] = err.Error()
		} else {
			resp.Components["model"] = "ok"
		}
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func checkUploadDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	probe := filepath.Join(dir, ".healthz")
	if err := os.WriteFile(probe, nil, 0o600); err != nil {
		return err
	}
	return os.Remove(probe)
}
