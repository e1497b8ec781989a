package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"hookrelay/internal/dispatch"
	"hookrelay/internal/extract"
	"hookrelay/internal/routing"
	logx "hookrelay/pkg/logx"
)

// Deps are the collaborators the HTTP surface drives.
type Deps struct {
	Dispatcher *dispatch.Dispatcher
	Configs    *routing.Store
	Sender     dispatch.Sender
}

// notificationBody mirrors the fields the device-side listener captures
// from one posted notification.
type notificationBody struct {
	PackageName string `json:"package_name"`
	Title       string `json:"title"`
	Text        string `json:"text"`
	BigText     string `json:"big_text"`
	SubText     string `json:"sub_text"`
}

func (s *Service) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("POST /v1/notifications", s.withAuth(s.handleNotification))

	mux.HandleFunc("GET /v1/configs", s.withAuth(s.handleListConfigs))
	mux.HandleFunc("POST /v1/configs", s.withAuth(s.handleAddConfig))
	mux.HandleFunc("PUT /v1/configs/{id}", s.withAuth(s.handleUpdateConfig))
	mux.HandleFunc("DELETE /v1/configs/{id}", s.withAuth(s.handleDeleteConfig))
	mux.HandleFunc("POST /v1/configs/{id}/toggle", s.withAuth(s.handleToggleConfig))
	mux.HandleFunc("POST /v1/configs/{id}/duplicate", s.withAuth(s.handleDuplicateConfig))
	mux.HandleFunc("POST /v1/configs/{id}/test", s.withAuth(s.handleTestConfig))

	return mux
}

// handleNotification accepts one raw notification event. It always
// answers 202 once the body decoded: the pipeline's own skip/drop
// outcomes are not the sender's concern.
func (s *Service) handleNotification(w http.ResponseWriter, r *http.Request) {
	var body notificationBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if body.PackageName == "" {
		http.Error(w, "package_name is required", http.StatusBadRequest)
		return
	}

	s.deps.Dispatcher.OnEvent(body.PackageName, extract.Fields{
		Title:   body.Title,
		Text:    body.Text,
		BigText: body.BigText,
		SubText: body.SubText,
	})
	w.WriteHeader(http.StatusAccepted)
}

func (s *Service) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Configs.List())
}

func (s *Service) handleAddConfig(w http.ResponseWriter, r *http.Request) {
	var c routing.Config
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		http.Error(w, "invalid body: "+err.Error(), http.StatusBadRequest)
		return
	}
	stored, err := s.deps.Configs.Add(r.Context(), c)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

func (s *Service) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var c routing.Config
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		http.Error(w, "invalid body: "+err.Error(), http.StatusBadRequest)
		return
	}
	c.ID = r.PathValue("id")
	stored, err := s.deps.Configs.Update(r.Context(), c)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

func (s *Service) handleDeleteConfig(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Configs.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleToggleConfig(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Configs.ToggleEnabled(r.Context(), r.PathValue("id")); err != nil {
		s.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleDuplicateConfig(w http.ResponseWriter, r *http.Request) {
	dup, err := s.deps.Configs.Duplicate(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dup)
}

// handleTestConfig performs a synchronous test delivery and reports
// the real outcome; this is the user-initiated path where failures are
// surfaced rather than just logged.
func (s *Service) handleTestConfig(w http.ResponseWriter, r *http.Request) {
	c, ok := s.deps.Configs.Get(r.PathValue("id"))
	if !ok {
		http.Error(w, "config not found", http.StatusNotFound)
		return
	}
	if c.WebhookURL == "" || !routing.ValidateWebhookURL(c.WebhookURL) {
		http.Error(w, "config has no usable webhook url", http.StatusUnprocessableEntity)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
	defer cancel()
	if err := dispatch.TestDelivery(ctx, s.deps.Sender, c); err != nil {
		s.log.Warn("test delivery failed", logx.String("config", c.ID), logx.Err(err))
		http.Error(w, "delivery failed: "+err.Error(), http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, routing.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, routing.ErrInvalidWebhook):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
