package llm

// LLMConfigResponse is the response for GET /llm/config. The API key is
// always redacted.
type LLMConfigResponse struct {
	APIKey          string  `json:"api_key"` // redacted, e.g. "sk-…abcd"
	Configured      bool    `json:"configured"`
	Model           string  `json:"model"`
	SearchModel     string  `json:"search_model"`
	EnableWebSearch bool    `json:"enable_web_search"`
	KnowledgeCutoff string  `json:"knowledge_cutoff,omitempty"`
	APIBase         string  `json:"api_base"`
	Timeout         float64 `json:"timeout"` // seconds
	Temperature     float64 `json:"temperature"`
	MaxToolRounds   int     `json:"max_tool_rounds"`
}

// LLMConfigRequest is the request body for PUT /llm/config. Only the
// runtime-tunable fields are accepted; the key and base stay env-only.
type LLMConfigRequest struct {
	Model           *string  `json:"model,omitempty"`
	SearchModel     *string  `json:"search_model,omitempty"`
	EnableWebSearch *bool    `json:"enable_web_search,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
}

// LLMTestResponse is the response for POST /llm/test.
type LLMTestResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Model   string `json:"model,omitempty"`
}

// LLMModelsResponse is the response for GET /llm/models.
type LLMModelsResponse struct {
	Models []string `json:"models"`
}
