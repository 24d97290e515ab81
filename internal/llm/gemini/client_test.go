package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tungarlabs/fuelbills/internal/llm"
)

func fakeGemini(t *testing.T, answer string) (*httptest.Server, *generateRequest) {
	t.Helper()
	var captured generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ":generateContent") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("x-goog-api-key"); got != "test-key" {
			t.Errorf("api key header = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		resp := map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"parts": []map[string]any{{"text": answer}},
				},
			}},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	return srv, &captured
}

func TestExtractFields(t *testing.T) {
	answer := "```json\n" + `{"Petrol Pump Name":"Indian Oil","Date":"15/03/2024","Product":"Petrol","Volume(L)":"10.50","Rate per Litre":"96.72","Total Amount (Rs)":""}` + "\n```"
	srv, captured := fakeGemini(t, answer)
	defer srv.Close()

	c := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL, Model: "gemini-1.5-flash"}, nil)

	fields, raw, err := c.ExtractFields(context.Background(), llm.ExtractRequest{
		ImageData:    []byte("fake png bytes"),
		MIMEType:     "image/png",
		FilenameHint: "bill_042.png",
	})
	if err != nil {
		t.Fatal(err)
	}
	if fields.PumpName != "Indian Oil" {
		t.Errorf("pump = %q", fields.PumpName)
	}
	if fields.BillDate != "15/03/2024" {
		t.Errorf("date = %q", fields.BillDate)
	}
	// Total was blank: derived from volume x rate.
	if fields.Total != "1015.56" {
		t.Errorf("total = %q, want 1015.56", fields.Total)
	}
	if len(raw) == 0 {
		t.Error("expected raw sanitized JSON")
	}

	// The request carried the prompt text and the inline image.
	if len(captured.Contents) != 1 || len(captured.Contents[0].Parts) != 2 {
		t.Fatalf("unexpected request shape: %+v", captured.Contents)
	}
	if !strings.Contains(captured.Contents[0].Parts[0].Text, "Petrol Pump Name") {
		t.Error("prompt text missing from request")
	}
	img := captured.Contents[0].Parts[1].InlineData
	if img == nil || img.MIMEType != "image/png" || img.Data == "" {
		t.Errorf("inline image missing or wrong: %+v", img)
	}
	if captured.GenerationConfig.ResponseMIMEType != "application/json" {
		t.Errorf("response mime type = %q", captured.GenerationConfig.ResponseMIMEType)
	}
}

func TestExtractFieldsNoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL}, nil)
	_, _, err := c.ExtractFields(context.Background(), llm.ExtractRequest{
		ImageData: []byte("x"), MIMEType: "image/jpeg",
	})
	if err == nil || !strings.Contains(err.Error(), "no candidates") {
		t.Fatalf("expected no-candidates error, got %v", err)
	}
}

func TestExtractFieldsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL}, nil)
	_, _, err := c.ExtractFields(context.Background(), llm.ExtractRequest{
		ImageData: []byte("x"), MIMEType: "image/jpeg",
	})
	if err == nil {
		t.Fatal("expected error from HTTP 429")
	}
}

func TestPing(t *testing.T) {
	srv, captured := fakeGemini(t, "OK")
	defer srv.Close()

	c := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL}, nil)
	if err := c.Ping(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(captured.Contents) != 1 || captured.Contents[0].Parts[0].Text != "Test" {
		t.Errorf("unexpected ping body: %+v", captured.Contents)
	}
}

func TestClientDefaults(t *testing.T) {
	c := NewClient(Config{APIKey: "k"}, nil)
	if c.cfg.Model != "gemini-1.5-flash" {
		t.Errorf("model = %q", c.cfg.Model)
	}
	if c.cfg.BaseURL == "" || c.cfg.Timeout <= 0 {
		t.Errorf("defaults not applied: %+v", c.cfg)
	}
}
