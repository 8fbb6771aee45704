// Package binary turns binary document content into chunkable text. Image
// types are described and transcribed through the OpenAI vision-capable chat
// API; valid UTF-8 payloads with a text-like MIME type pass through as-is.
package binary

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/openai/openai-go"
)

// Adapter extracts chunkable text from raw content. Summarize is only called
// for content IsBinary reports true for.
type Adapter interface {
	// Extract returns the text representation of data: a transcription for
	// images, the decoded string for text-like types.
	Extract(ctx context.Context, data []byte, mimeType string) (string, error)

	// Summarize returns a short natural-language description of binary
	// content, used as the document summary and as leading chunk text.
	Summarize(ctx context.Context, data []byte, mimeType string) (string, error)

	// IsBinary reports whether content of the given MIME type needs
	// summarization before chunking.
	IsBinary(mimeType string) bool
}

// textLikeTypes are non-"text/" MIME types stored without summarization.
var textLikeTypes = map[string]bool{
	"application/json":       true,
	"application/xml":        true,
	"application/yaml":       true,
	"application/javascript": true,
}

// OpenAIAdapter implements Adapter using gpt-4o for image description.
type OpenAIAdapter struct {
	client *openai.Client
	model  openai.ChatModel
}

var _ Adapter = (*OpenAIAdapter)(nil)

// NewOpenAIAdapter creates an adapter over the given OpenAI client.
func NewOpenAIAdapter(client *openai.Client) *OpenAIAdapter {
	return &OpenAIAdapter{client: client, model: openai.ChatModelGPT4o}
}

// IsBinary treats "text/*" and a handful of structured text types as plain
// text; everything else is binary.
func (a *OpenAIAdapter) IsBinary(mimeType string) bool {
	if strings.HasPrefix(mimeType, "text/") {
		return false
	}
	return !textLikeTypes[strings.ToLower(mimeType)]
}

// Extract transcribes images and decodes text-like payloads.
func (a *OpenAIAdapter) Extract(ctx context.Context, data []byte, mimeType string) (string, error) {
	if !a.IsBinary(mimeType) {
		if !utf8.Valid(data) {
			return "", fmt.Errorf("content declared %s is not valid UTF-8", mimeType)
		}
		return string(data), nil
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return "", fmt.Errorf("unsupported binary type %s", mimeType)
	}
	return a.describeImage(ctx, data, mimeType,
		"Transcribe all readable text in this image. If the image contains "+
			"no text, describe its contents in detail instead. Respond with "+
			"the transcription or description only.")
}

// Summarize produces a one-paragraph description of binary content.
func (a *OpenAIAdapter) Summarize(ctx context.Context, data []byte, mimeType string) (string, error) {
	if !strings.HasPrefix(mimeType, "image/") {
		return "", fmt.Errorf("unsupported binary type %s", mimeType)
	}
	return a.describeImage(ctx, data, mimeType,
		"Describe this image in one short paragraph, naming the key "+
			"subjects and any visible text.")
}

func (a *OpenAIAdapter) describeImage(ctx context.Context, data []byte, mimeType, prompt string) (string, error) {
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))

	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(prompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: dataURL,
				}),
			}),
		},
		Model: a.model,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("provider returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
