package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tungarlabs/fuelbills/internal/llm"
)

// request/response shapes for the generateContent API. Only the parts we
// send and read are modeled.
type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"` // base64
}

type generationConfig struct {
	Temperature      float32 `json:"temperature"`
	ResponseMIMEType string  `json:"response_mime_type,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (c *Client) endpoint() string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/v1beta/models/" + c.cfg.Model + ":generateContent"
}

func (c *Client) headers() map[string]string {
	return map[string]string{"x-goog-api-key": c.cfg.APIKey}
}

// ExtractFields implements llm.FieldExtractor by sending the fixed extraction
// prompt plus one page bitmap to the generateContent endpoint, then stripping
// code fences, sanitizing, and validating the JSON answer.
func (c *Client) ExtractFields(ctx context.Context, req llm.ExtractRequest) (llm.BillFields, []byte, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("llm.extract.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"mime_type", req.MIMEType,
		"image_bytes", len(req.ImageData),
		"filename_hint", req.FilenameHint,
	)

	prompt := llm.BuildExtractionPrompt()
	if note := llm.BuildUserNote(req.FilenameHint); note != "" {
		prompt += "\n\n" + note
	}

	body := generateRequest{
		Contents: []content{{
			Parts: []part{
				{Text: prompt},
				{InlineData: &inlineData{
					MIMEType: req.MIMEType,
					Data:     base64.StdEncoding.EncodeToString(req.ImageData),
				}},
			},
		}},
		GenerationConfig: generationConfig{
			Temperature:      c.cfg.Temperature,
			ResponseMIMEType: "application/json",
		},
	}

	raw, err := llm.PostJSON(ctx, c.httpClient, c.endpoint(), body, c.headers(), c.log)
	if err != nil {
		c.log.Error("llm.extract.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.BillFields{}, nil, err
	}

	var gr generateResponse
	if err := json.Unmarshal(raw, &gr); err != nil {
		c.log.Error("llm.extract.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.BillFields{}, raw, fmt.Errorf("decode gemini response: %w", err)
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		c.log.Error("llm.extract.no_candidates",
			"req_id", rid, "raw", string(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.BillFields{}, raw, fmt.Errorf("no candidates in gemini response")
	}

	text := llm.StripCodeFence(gr.Candidates[0].Content.Parts[0].Text)
	rawContent := []byte(text)

	cleaned, touched, err := llm.SanitizeFields(rawContent)
	if err != nil {
		c.log.Error("llm.extract.sanitize_failed",
			"req_id", rid, "error", err, "content", text,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.BillFields{}, rawContent, fmt.Errorf("sanitize answer: %w", err)
	}
	if len(touched) > 0 {
		c.log.Warn("llm.extract.sanitize_applied", "req_id", rid, "touched", touched)
	}

	schema := llm.BuildBillJSONSchema()
	if err := llm.ValidateJSONAgainstSchema(schema, cleaned); err != nil {
		c.log.Error("llm.extract.schema_validation_failed",
			"req_id", rid, "error", err, "content", string(cleaned),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.BillFields{}, cleaned, fmt.Errorf("schema validation failed: %w", err)
	}

	var out llm.BillFields
	if err := json.Unmarshal(cleaned, &out); err != nil {
		c.log.Error("llm.extract.unmarshal_failed",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.BillFields{}, cleaned, fmt.Errorf("unmarshal fields: %w", err)
	}

	if llm.EstimateTotal(&out) {
		c.log.Info("llm.extract.total_estimated", "req_id", rid, "total", out.Total)
	}

	c.log.Info("llm.extract.ok",
		"req_id", rid,
		"pump", out.PumpName,
		"date", out.BillDate,
		"product", out.Product,
		"volume", out.Volume,
		"rate", out.Rate,
		"total", out.Total,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, cleaned, nil
}

// Ping sends a minimal text-only request so health checks can confirm the
// endpoint and credential work.
func (c *Client) Ping(ctx context.Context) error {
	body := generateRequest{
		Contents:         []content{{Parts: []part{{Text: "Test"}}}},
		GenerationConfig: generationConfig{Temperature: 0},
	}
	_, err := llm.PostJSON(ctx, c.httpClient, c.endpoint(), body, c.headers(), c.log)
	if err != nil {
		return fmt.Errorf("gemini ping: %w", err)
	}
	return nil
}
