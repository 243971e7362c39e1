package proxy

import (
	"encoding/json"
	"fmt"

	"github.com/modelrelay/modelrelay/pkg/modelmap"
)

// supportedChatFields is the whitelist of request fields forwarded upstream.
// Everything else (tools, logit_bias, ...) is silently dropped.
var supportedChatFields = []string{
	"model",
	"messages",
	"max_tokens",
	"max_completion_tokens",
	"stream",
	"stream_options",
	"top_p",
	"stop",
	"temperature",
	"n",
}

// filterChatRequest projects an inbound chat-completions body onto the
// supported-field whitelist. Fields absent in the input stay absent in the
// output. The model name is resolved through the model map, temperature is
// clamped to [0,2], and n is always forced to 1.
func filterChatRequest(body []byte, models *modelmap.Map) (filtered []byte, stream bool, err error) {
	if len(body) == 0 {
		return nil, false, fmt.Errorf("request body required")
	}
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, false, fmt.Errorf("invalid json")
	}

	out := make(map[string]any, len(supportedChatFields))
	for _, field := range supportedChatFields {
		v, ok := payload[field]
		if !ok {
			continue
		}
		out[field] = v
	}

	if model, ok := out["model"].(string); ok {
		out["model"] = models.Resolve(model)
	}
	if temp, ok := out["temperature"].(float64); ok {
		out["temperature"] = clampTemperature(temp)
	}
	// Single-completion semantics: n is pinned regardless of input.
	out["n"] = 1

	stream, _ = out["stream"].(bool)
	filtered, err = json.Marshal(out)
	if err != nil {
		return nil, false, fmt.Errorf("encode json: %w", err)
	}
	return filtered, stream, nil
}

func clampTemperature(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 2 {
		return 2
	}
	return t
}
