package vision

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"resty.dev/v3"

	"airmath/api/internal/recognizer"
)

const baseURL = "https://vision.googleapis.com/v1"

// Engine is an OCR-only recognizer backed by the Cloud Vision images:annotate API.
type Engine struct {
	httpc    *resty.Client
	apiKey   string
	attempts uint
	delay    time.Duration
}

func New(apiKey string, attempts uint) *Engine {
	c := resty.New()
	c.SetBaseURL(baseURL)
	c.SetHeader("Content-Type", "application/json")
	c.SetTimeout(60 * time.Second)
	if attempts == 0 {
		attempts = 3
	}
	return &Engine{
		httpc:    c,
		apiKey:   strings.TrimSpace(apiKey),
		attempts: attempts,
		delay:    300 * time.Millisecond,
	}
}

func (e *Engine) Name() string     { return recognizer.NameVision }
func (e *Engine) GetModel() string { return "DOCUMENT_TEXT_DETECTION" }
func (e *Engine) Close() error     { return e.httpc.Close() }

type feature struct {
	Type       string `json:"type"`
	MaxResults int    `json:"maxResults,omitempty"`
}

type annotateRequest struct {
	Requests []imageRequest `json:"requests"`
}

type imageRequest struct {
	Image struct {
		Content string `json:"content"`
	} `json:"image"`
	Features []feature `json:"features"`
}

type annotateResponse struct {
	Responses []struct {
		TextAnnotations []struct {
			Description string `json:"description"`
		} `json:"textAnnotations,omitempty"`
		FullTextAnnotation *struct {
			Text string `json:"text"`
		} `json:"fullTextAnnotation,omitempty"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error,omitempty"`
	} `json:"responses"`
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("vision response error %d: %s", e.code, e.body)
}

func isRetryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code == 429 || se.code >= 500
	}
	return true
}

// Recognize returns the text found on the image. An image without text
// yields an empty string and no error.
func (e *Engine) Recognize(ctx context.Context, image []byte, _ string) (string, error) {
	if e.apiKey == "" {
		return "", errors.New("VISION_API_KEY is empty")
	}
	if len(image) == 0 {
		return "", errors.New("vision recognize: empty image")
	}

	var req imageRequest
	req.Image.Content = base64.StdEncoding.EncodeToString(image)
	req.Features = []feature{
		{Type: "TEXT_DETECTION", MaxResults: 1},
		{Type: "DOCUMENT_TEXT_DETECTION", MaxResults: 1},
	}
	body := annotateRequest{Requests: []imageRequest{req}}

	var text string
	attempt := 0
	err := retry.Do(
		func() error {
			attempt++
			t, err := e.annotate(ctx, body)
			if err != nil {
				if !isRetryable(err) {
					return retry.Unrecoverable(err)
				}
				slog.Default().Warn("vision.annotate_failed", "attempt", attempt, "error", err)
				return err
			}
			text = t
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(e.attempts),
		retry.Delay(e.delay),
		retry.LastErrorOnly(true),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			return retry.BackOffDelay(n, err, config)
		}),
	)
	if err != nil {
		return "", fmt.Errorf("vision recognize: %w", err)
	}
	return text, nil
}

func (e *Engine) annotate(ctx context.Context, body annotateRequest) (string, error) {
	resp, err := e.httpc.R().
		SetContext(ctx).
		SetQueryParam("key", e.apiKey).
		SetBody(body).
		SetResult(&annotateResponse{}).
		Post("/images:annotate")
	if err != nil {
		return "", fmt.Errorf("httpClient.Post > %w", err)
	}
	if resp.IsError() {
		return "", &statusError{code: resp.StatusCode(), body: resp.String()}
	}
	out, _ := resp.Result().(*annotateResponse)
	if out == nil || len(out.Responses) == 0 {
		return "", nil
	}
	r := out.Responses[0]
	if r.Error != nil {
		// The request itself was rejected; retrying will not help.
		return "", &statusError{code: 400, body: r.Error.Message}
	}
	if len(r.TextAnnotations) > 0 {
		if t := strings.TrimSpace(r.TextAnnotations[0].Description); t != "" {
			return t, nil
		}
	}
	if r.FullTextAnnotation != nil {
		return strings.TrimSpace(r.FullTextAnnotation.Text), nil
	}
	return "", nil
}
