package llm

import (
	"encoding/json"
	"strings"
)

type textPart struct {
	Text string `json:"text"`
}

// ExtractOpenAIContent pulls choices[0].message.content from an OpenAI-shaped
// response. The field is a plain string for most providers but some relays
// return an array of text parts, joined here with newlines.
func ExtractOpenAIContent(raw json.RawMessage) (string, bool) {
	var resp struct {
		Choices []struct {
			Message struct {
				Content json.RawMessage `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil || len(resp.Choices) == 0 {
		return "", false
	}

	content := resp.Choices[0].Message.Content
	if len(content) == 0 {
		return "", false
	}

	var text string
	if err := json.Unmarshal(content, &text); err == nil {
		if strings.TrimSpace(text) == "" {
			return "", false
		}
		return text, true
	}

	var parts []textPart
	if err := json.Unmarshal(content, &parts); err != nil {
		return "", false
	}
	return joinTextParts(parts)
}

func parseAnthropicContent(raw json.RawMessage) (string, bool) {
	var resp struct {
		Content []textPart `json:"content"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", false
	}
	return joinTextParts(resp.Content)
}

func parseGeminiContent(raw json.RawMessage) (string, bool) {
	var resp struct {
		Candidates []struct {
			Content struct {
				Parts []textPart `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil || len(resp.Candidates) == 0 {
		return "", false
	}
	return joinTextParts(resp.Candidates[0].Content.Parts)
}

func joinTextParts(parts []textPart) (string, bool) {
	var sb strings.Builder
	for _, part := range parts {
		if part.Text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(part.Text)
	}
	out := sb.String()
	if strings.TrimSpace(out) == "" {
		return "", false
	}
	return out, true
}
