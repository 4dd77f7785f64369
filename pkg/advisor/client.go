// Package advisor provides an optional LLM sanity check over collected phone
// metadata. Its output is advisory only and never load-bearing for the
// pass/fail verdict.
package advisor

import (
	"context"
	"encoding/json"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
)

const defaultModel = "claude-haiku-4-5-20251001"

// Client reviews collected metadata for internal consistency.
type Client interface {
	Review(ctx context.Context, req ReviewRequest) (*Advisory, error)
}

// ReviewRequest summarizes one validated number for review.
type ReviewRequest struct {
	Number      string `json:"number"`
	CountryCode string `json:"country_code"`
	CountryName string `json:"country_name"`
	Carrier     string `json:"carrier"`
	LineType    string `json:"line_type"`
	Valid       bool   `json:"valid"`
}

// Advisory is the model's free-text consistency verdict.
type Advisory struct {
	Plausible bool   `json:"plausible"`
	Note      string `json:"note"`
}

const systemPrompt = `You review phone number metadata for internal consistency.
Given a number and what independent sources reported about it, answer with a
single JSON object: {"plausible": bool, "note": "one short sentence"}.
Flag implausible combinations (e.g. a carrier that does not operate in the
reported country). Respond with JSON only.`

// sdkClient implements Client using the official anthropic-sdk-go.
type sdkClient struct {
	client sdk.Client
	model  string
}

// Option configures the client.
type Option func(*sdkClient)

// WithModel overrides the default model.
func WithModel(model string) Option {
	return func(c *sdkClient) { c.model = model }
}

// NewClient creates an advisory client backed by the SDK.
func NewClient(apiKey string, opts ...Option) Client {
	c := &sdkClient{
		client: sdk.NewClient(option.WithAPIKey(apiKey)),
		model:  defaultModel,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *sdkClient) Review(ctx context.Context, req ReviewRequest) (*Advisory, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "advisor: marshal request")
	}

	msg, err := c.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: 256,
		System:    []sdk.TextBlockParam{{Text: systemPrompt}},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(string(payload))),
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "advisor: create message")
	}

	var text strings.Builder
	for _, b := range msg.Content {
		text.WriteString(b.Text)
	}

	var out Advisory
	if err := json.Unmarshal([]byte(extractJSON(text.String())), &out); err != nil {
		return nil, eris.Wrap(err, "advisor: decode advisory")
	}
	return &out, nil
}

// extractJSON strips any prose around the first JSON object in s.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return s
	}
	return s[start : end+1]
}
