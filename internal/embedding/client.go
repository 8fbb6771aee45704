package embedding

import (
	"fmt"
	"os"

	"github.com/openai/openai-go"
)

// Client wraps the OpenAI client shared by the embedding generator and the
// binary content adapter.
type Client struct {
	client *openai.Client
}

// NewClient creates an OpenAI client. It requires OPENAI_API_KEY in the
// environment and fails fast when it is missing.
func NewClient() (*Client, error) {
	if os.Getenv("OPENAI_API_KEY") == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	// openai-go reads OPENAI_API_KEY from the environment itself.
	client := openai.NewClient()

	return &Client{client: &client}, nil
}

// Client returns the underlying OpenAI client for use in other packages
// (e.g. binary content summarization).
func (c *Client) Client() *openai.Client {
	return c.client
}
