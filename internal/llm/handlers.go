package llm

import (
	"encoding/json"
	"net/http"

	"github.com/axiom-ai/axiom/internal/auth"
	"github.com/axiom-ai/axiom/internal/llm/moonshot"
	pkgllm "github.com/axiom-ai/axiom/pkg/llm"
	"go.uber.org/zap"
)

// handleGetConfig returns the effective Moonshot configuration.
//
//	@Summary		Get LLM config
//	@Description	Returns the effective Moonshot configuration with the API key redacted.
//	@Tags			llm
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200 {object} LLMConfigResponse
//	@Router			/llm/config [get]
func (m *Module) handleGetConfig(w http.ResponseWriter, _ *http.Request) {
	cfg, _ := m.snapshot()
	writeJSON(w, http.StatusOK, configResponse(cfg))
}

// handlePutConfig updates the runtime-tunable parts of the configuration.
// Admin only.
//
//	@Summary		Update LLM config
//	@Description	Update model, search model, web search toggle or temperature until restart. Requires the admin role.
//	@Tags			llm
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request body LLMConfigRequest true "LLM config"
//	@Success		200 {object} LLMConfigResponse
//	@Failure		400 {object} map[string]any
//	@Failure		403 {object} map[string]any
//	@Router			/llm/config [put]
func (m *Module) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	if !auth.RequireAdmin(w, r) {
		return
	}
	var req LLMConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	cfg, _ := m.snapshot()
	if req.Model != nil {
		cfg.Model = *req.Model
	}
	if req.SearchModel != nil {
		cfg.SearchModel = *req.SearchModel
	}
	if req.EnableWebSearch != nil {
		cfg.EnableWebSearch = *req.EnableWebSearch
	}
	if req.Temperature != nil {
		cfg.Temperature = *req.Temperature
	}
	if err := cfg.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	m.apply(cfg)
	m.logger.Info("llm config updated",
		zap.String("model", cfg.Model),
		zap.String("search_model", cfg.SearchModel),
		zap.Bool("web_search", cfg.EnableWebSearch),
		zap.Float64("temperature", cfg.Temperature),
	)

	writeJSON(w, http.StatusOK, configResponse(cfg))
}

// handleTestConnection checks that the API answers with the configured key.
// Admin only: the response echoes upstream error text.
//
//	@Summary		Test LLM connection
//	@Description	Calls GET /models on the Moonshot API with the configured key. Requires the admin role.
//	@Tags			llm
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200 {object} LLMTestResponse
//	@Failure		403 {object} map[string]any
//	@Router			/llm/test [post]
func (m *Module) handleTestConnection(w http.ResponseWriter, r *http.Request) {
	if !auth.RequireAdmin(w, r) {
		return
	}
	cfg, provider := m.snapshot()
	if provider == nil {
		writeJSON(w, http.StatusOK, LLMTestResponse{Success: false, Message: "no provider configured"})
		return
	}

	if err := provider.Heartbeat(r.Context()); err != nil {
		writeJSON(w, http.StatusOK, LLMTestResponse{
			Success: false,
			Message: "connection failed: " + err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, LLMTestResponse{
		Success: true,
		Message: "connected",
		Model:   cfg.Model,
	})
}

// handleListModels lists the models visible to the configured key.
//
//	@Summary		List models
//	@Description	Returns the model IDs reported by the Moonshot API.
//	@Tags			llm
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200 {object} LLMModelsResponse
//	@Failure		502 {object} map[string]any
//	@Failure		503 {object} map[string]any
//	@Router			/llm/models [get]
func (m *Module) handleListModels(w http.ResponseWriter, r *http.Request) {
	_, provider := m.snapshot()
	if provider == nil {
		writeError(w, http.StatusServiceUnavailable, "llm module not initialized")
		return
	}

	models, err := provider.ListModels(r.Context())
	switch {
	case pkgllm.IsNotConfiguredError(err):
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	case err != nil:
		m.logger.Warn("list models failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, LLMModelsResponse{Models: models})
}

func configResponse(cfg moonshot.Config) LLMConfigResponse {
	red := cfg.Redacted()
	return LLMConfigResponse{
		APIKey:          red.APIKey,
		Configured:      cfg.Configured(),
		Model:           red.Model,
		SearchModel:     red.SearchModel,
		EnableWebSearch: red.EnableWebSearch,
		KnowledgeCutoff: red.KnowledgeCutoff,
		APIBase:         red.APIBase,
		Timeout:         red.Timeout,
		Temperature:     red.Temperature,
		MaxToolRounds:   red.MaxToolRounds,
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"type":   "https://axiom.dev/problems/" + http.StatusText(status),
		"title":  http.StatusText(status),
		"status": status,
		"detail": detail,
	})
}
