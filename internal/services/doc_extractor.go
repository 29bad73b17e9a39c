package services

import (
  "bytes"
  "context"
  "encoding/base64"
  "encoding/json"
  "fmt"
  "io"
  "net/http"
  "os"
  "strings"
  "time"

  "github.com/aokimori/libretutor-backend/internal/logger"
)

const (
  docExtractModel     = "gemini-2.0-flash-exp"
  docExtractTimeout   = 5 * time.Minute
  tocMaxOutputTokens  = 4096
  chapterMaxOutputTokens = 8192
)

// DocExtractor runs structured extraction over a raw PDF: the whole document
// plus a prompt go to the model in one request and it answers with JSON.
type DocExtractor interface {
  ExtractJSON(ctx context.Context, pdf []byte, prompt string, maxOutputTokens int) ([]byte, error)
}

type geminiDocExtractor struct {
  log     *logger.Logger
  apiKey  string
  baseURL string
  model   string
  http    *http.Client
}

func NewGeminiDocExtractor(log *logger.Logger) (DocExtractor, error) {
  apiKey := strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
  if apiKey == "" {
    return nil, fmt.Errorf("missing GEMINI_API_KEY")
  }
  baseURL := strings.TrimSpace(os.Getenv("GEMINI_BASE_URL"))
  if baseURL == "" {
    baseURL = "https://generativelanguage.googleapis.com"
  }
  model := strings.TrimSpace(os.Getenv("GEMINI_EXTRACT_MODEL"))
  if model == "" {
    model = docExtractModel
  }
  return &geminiDocExtractor{
    log:     log.With("client", "GeminiDocExtractor"),
    apiKey:  apiKey,
    baseURL: strings.TrimRight(baseURL, "/"),
    model:   model,
    http:    &http.Client{Timeout: docExtractTimeout},
  }, nil
}

type geminiExtractRequest struct {
  Contents         []geminiExtractContent `json:"contents"`
  GenerationConfig geminiExtractConfig    `json:"generationConfig"`
}

type geminiExtractContent struct {
  Role  string              `json:"role,omitempty"`
  Parts []geminiExtractPart `json:"parts"`
}

type geminiExtractPart struct {
  Text       string            `json:"text,omitempty"`
  InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
  MimeType string `json:"mimeType"`
  Data     string `json:"data"`
}

type geminiExtractConfig struct {
  Temperature      float64 `json:"temperature"`
  MaxOutputTokens  int     `json:"maxOutputTokens"`
  ResponseMimeType string  `json:"responseMimeType"`
}

type geminiExtractResponse struct {
  Candidates []struct {
    Content struct {
      Parts []struct {
        Text string `json:"text"`
      } `json:"parts"`
    } `json:"content"`
  } `json:"candidates"`
}

func (e *geminiDocExtractor) ExtractJSON(ctx context.Context, pdf []byte, prompt string, maxOutputTokens int) ([]byte, error) {
  if len(pdf) == 0 {
    return nil, fmt.Errorf("empty PDF")
  }
  if maxOutputTokens <= 0 {
    maxOutputTokens = tocMaxOutputTokens
  }

  body := geminiExtractRequest{
    Contents: []geminiExtractContent{{
      Role: "user",
      Parts: []geminiExtractPart{
        {InlineData: &geminiInlineData{
          MimeType: "application/pdf",
          Data:     base64.StdEncoding.EncodeToString(pdf),
        }},
        {Text: prompt},
      },
    }},
    GenerationConfig: geminiExtractConfig{
      // Low temperature: extraction, not generation.
      Temperature:      0.1,
      MaxOutputTokens:  maxOutputTokens,
      ResponseMimeType: "application/json",
    },
  }

  raw, err := json.Marshal(body)
  if err != nil {
    return nil, err
  }

  u := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", e.baseURL, e.model, e.apiKey)
  req, err := http.NewRequestWithContext(ctx, "POST", u, bytes.NewReader(raw))
  if err != nil {
    return nil, err
  }
  req.Header.Set("Content-Type", "application/json")

  resp, err := e.http.Do(req)
  if err != nil {
    return nil, fmt.Errorf("gemini request failed: %w", err)
  }
  defer resp.Body.Close()

  respBody, _ := io.ReadAll(resp.Body)
  if resp.StatusCode < 200 || resp.StatusCode >= 300 {
    return nil, fmt.Errorf("gemini http %d: %s", resp.StatusCode, string(respBody))
  }

  var parsed geminiExtractResponse
  if err := json.Unmarshal(respBody, &parsed); err != nil {
    return nil, fmt.Errorf("gemini decode error: %w", err)
  }
  if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
    return nil, fmt.Errorf("gemini returned no candidates")
  }

  var out strings.Builder
  for _, part := range parsed.Candidates[0].Content.Parts {
    out.WriteString(part.Text)
  }
  text := strings.TrimSpace(out.String())
  if text == "" {
    return nil, fmt.Errorf("gemini returned empty text")
  }
  return []byte(text), nil
}
