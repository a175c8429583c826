package llm

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cognicore/tactica/pkg/tactica/vlm"
)

type ollamaMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Options  map[string]any  `json:"options"`
	Format   string          `json:"format,omitempty"`
	Think    bool            `json:"think"`
	Stream   bool            `json:"stream"`
}

type ollamaChatResponse struct {
	Model   string        `json:"model"`
	Message ollamaMessage `json:"message"`
	Error   string        `json:"error"`
}

func ollamaRequest(model string, req vlm.Request) ollamaChatRequest {
	user := ollamaMessage{Role: "user", Content: req.User}
	if len(req.Image) > 0 {
		user.Images = []string{base64.StdEncoding.EncodeToString(req.Image)}
	}
	out := ollamaChatRequest{
		Model:    model,
		Messages: []ollamaMessage{{Role: "system", Content: req.System}, user},
		Options: map[string]any{
			"temperature": defaultTemperature,
			"num_predict": req.MaxTokens,
		},
	}
	if req.JSONMode {
		out.Format = "json"
	}
	return out
}

func decodeOllama(raw []byte) (string, error) {
	var resp ollamaChatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("llm request: decode response: %w", err)
	}
	if resp.Error != "" {
		return "", fmt.Errorf("llm request: api error: %s", resp.Error)
	}
	if strings.TrimSpace(resp.Message.Content) == "" {
		return "", &emptyContentError{snippet: snippet(string(raw))}
	}
	return resp.Message.Content, nil
}

type openAIContentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *openAIImageURL `json:"image_url,omitempty"`
}

type openAIImageURL struct {
	URL string `json:"url"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type openAIChatRequest struct {
	Model          string            `json:"model"`
	Messages       []openAIMessage   `json:"messages"`
	Temperature    float64           `json:"temperature"`
	MaxTokens      int               `json:"max_tokens"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func openAIRequest(model string, req vlm.Request) openAIChatRequest {
	parts := []openAIContentPart{{Type: "text", Text: req.User}}
	if len(req.Image) > 0 {
		parts = append(parts, openAIContentPart{
			Type:     "image_url",
			ImageURL: &openAIImageURL{URL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(req.Image)},
		})
	}
	out := openAIChatRequest{
		Model: model,
		Messages: []openAIMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: parts},
		},
		Temperature: defaultTemperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.JSONMode {
		out.ResponseFormat = map[string]string{"type": "json_object"}
	}
	return out
}

func decodeOpenAI(raw []byte) (string, error) {
	var resp openAIChatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("llm request: decode response: %w", err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("llm request: api error: %s", strings.TrimSpace(resp.Error.Message))
	}
	for _, choice := range resp.Choices {
		if content := strings.TrimSpace(choice.Message.Content); content != "" {
			return content, nil
		}
	}
	return "", &emptyContentError{snippet: snippet(string(raw))}
}
