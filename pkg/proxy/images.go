package proxy

import (
	"encoding/json"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	imageModelID     = "dall-e-3"
	imageSizeDefault = "1024x1024"
	imageMaxTokens   = 1000
)

var imageURLPattern = regexp.MustCompile(`https://[^\s)]+`)

type imageGenerationRequest struct {
	Prompt string `json:"prompt"`
	Size   string `json:"size,omitempty"`
}

// handleImageGenerations emulates the images API over the chat-completions
// upstream: the prompt is sent as a disguised chat request and the image URL
// is parsed out of the assistant's reply text.
func (s *Server) handleImageGenerations(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r.Header)
	if token == "" {
		writeError(w, http.StatusUnauthorized, apiError{Message: "Missing Bearer token", Type: "authentication_error"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, apiError{Message: "failed to read request body", Type: "invalid_request_error"})
		return
	}
	defer r.Body.Close()

	var req imageGenerationRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, apiError{Message: "invalid json", Type: "invalid_request_error"})
		return
	}
	if req.Size != "" && req.Size != imageSizeDefault {
		writeError(w, http.StatusBadRequest, apiError{
			Message: "Only size " + imageSizeDefault + " is supported",
			Type:    "invalid_request_error",
			Param:   "size",
			Code:    "invalid_size",
		})
		return
	}

	chatReq := openai.ChatCompletionRequest{
		Model: imageModelID,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		MaxTokens: imageMaxTokens,
	}
	payload, err := json.Marshal(chatReq)
	if err != nil {
		writeError(w, http.StatusInternalServerError, apiError{Message: "encode upstream request", Type: "unknown_error"})
		return
	}

	start := time.Now()
	resp, err := s.upstream.send(r.Context(), payload, token)
	if err != nil {
		s.metrics.observeUpstream(time.Since(start), 0)
		writeError(w, http.StatusRequestTimeout, apiError{Message: "Network error or timeout", Type: "timeout_error"})
		return
	}
	defer resp.Body.Close()
	s.metrics.observeUpstream(time.Since(start), resp.StatusCode)

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBufferedResponseBytes))
	if err != nil {
		writeError(w, http.StatusRequestTimeout, apiError{Message: "Network error or timeout", Type: "timeout_error"})
		return
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		writeError(w, resp.StatusCode, apiError{
			Message: upstreamErrorMessage(respBody),
			Type:    statusErrorType(resp.StatusCode),
		})
		return
	}

	var chatResp openai.ChatCompletionResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil || len(chatResp.Choices) == 0 {
		writeError(w, http.StatusBadGateway, apiError{Message: "Upstream API error", Type: "upstream_error"})
		return
	}

	content := chatResp.Choices[0].Message.Content
	url := imageURLPattern.FindString(content)
	revised := strings.TrimSpace(imageURLPattern.ReplaceAllString(content, ""))
	if len(revised) < 10 {
		revised = req.Prompt
	}

	writeJSON(w, http.StatusOK, openai.ImageResponse{
		Created: time.Now().Unix(),
		Data: []openai.ImageResponseDataInner{
			{RevisedPrompt: revised, URL: url},
		},
	})
}

// upstreamErrorMessage pulls a human-readable message out of an upstream
// error body, falling back to a generic one.
func upstreamErrorMessage(body []byte) string {
	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil {
		if msg := strings.TrimSpace(envelope.Error.Message); msg != "" {
			return msg
		}
	}
	return "Upstream API error"
}
