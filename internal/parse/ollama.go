// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package parse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"text/template"

	"golang.org/x/time/rate"
)

// parsingPromptTmpl is the prompt sent to the generative model for each
// citation. It pins down the arXiv year rule because models reliably
// prefer the in-text year otherwise.
var parsingPromptTmpl = template.Must(template.New("parsing").Parse(`You are an expert citation parser. Extract the title, first author, and publication year from the following reference.
If an arXiv ID is present (e.g., 'arXiv:1312.6114'), the year is 2013. 'arXiv:1810.04805' is 2018. The arXiv year takes priority over any other year in parentheses.
Respond only with a JSON object with 'title', 'author', and 'year' (as an integer) keys. If a field is not found, set its value to null.

Reference: {{.Reference}}
`))

// DefaultOllamaURL is the local Ollama daemon address.
const DefaultOllamaURL = "http://localhost:11434"

// OllamaBackend calls a local Ollama model to parse citations. The
// limiter spaces calls out so a batch run does not saturate the daemon.
type OllamaBackend struct {
	Client  *http.Client
	BaseURL string
	Model   string
	Limiter *rate.Limiter
}

// ollamaRequest is the request body for the Ollama generate API.
type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
	Format string `json:"format"`
}

// ollamaResponse is the response body from the Ollama generate API.
type ollamaResponse struct {
	Response string `json:"response"`
}

// parsedFields tolerates the shapes generative models actually emit:
// strings or lists for text fields, integers or digit strings for the
// year, null for anything.
type parsedFields struct {
	Title  flexString `json:"title"`
	Author flexString `json:"author"`
	Year   flexYear   `json:"year"`
}

// Parse renders the prompt, calls the model in JSON mode, and coerces the
// response into Fields.
func (o *OllamaBackend) Parse(ctx context.Context, reference string) (Fields, error) {
	if o.Limiter != nil {
		if err := o.Limiter.Wait(ctx); err != nil {
			return Fields{}, fmt.Errorf("waiting for parser slot: %w", err)
		}
	}

	var prompt bytes.Buffer
	if err := parsingPromptTmpl.Execute(&prompt, struct{ Reference string }{Reference: reference}); err != nil {
		return Fields{}, fmt.Errorf("rendering prompt: %w", err)
	}

	reqBody := ollamaRequest{
		Model:  o.Model,
		Prompt: prompt.String(),
		Stream: false,
		Format: "json",
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return Fields{}, fmt.Errorf("marshaling request: %w", err)
	}

	baseURL := o.BaseURL
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/generate", bytes.NewReader(bodyBytes))
	if err != nil {
		return Fields{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := o.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return Fields{}, fmt.Errorf("calling Ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return Fields{}, fmt.Errorf("Ollama returned %d: %s", resp.StatusCode, string(body))
	}

	var oResp ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&oResp); err != nil {
		return Fields{}, fmt.Errorf("decoding Ollama response: %w", err)
	}

	var fields parsedFields
	if err := json.Unmarshal([]byte(strings.TrimSpace(oResp.Response)), &fields); err != nil {
		return Fields{}, fmt.Errorf("parsing model output: %w", err)
	}

	return Fields{
		Title:  string(fields.Title),
		Author: string(fields.Author),
		Year:   int(fields.Year),
	}, nil
}

// flexString accepts a JSON string, a list joined with spaces, or null.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = flexString(str)
		return nil
	}
	var list []any
	if err := json.Unmarshal(data, &list); err == nil {
		parts := make([]string, 0, len(list))
		for _, v := range list {
			parts = append(parts, fmt.Sprint(v))
		}
		*s = flexString(strings.Join(parts, " "))
		return nil
	}
	*s = ""
	return nil
}

// flexYear accepts a JSON integer, a float, a digit string, or null.
type flexYear int

func (y *flexYear) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*y = flexYear(n)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*y = flexYear(int(f))
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(str)); err == nil {
			*y = flexYear(n)
		}
		return nil
	}
	*y = 0
	return nil
}
