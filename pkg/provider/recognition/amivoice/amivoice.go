// Package amivoice implements recognition.Service against the AmiVoice
// asynchronous recognition HTTP API.
//
// Submit is a multipart POST carrying the application key (field "u"), a
// space-joined parameter string (field "d"), and the raw audio bytes (file
// field "a"). A successful response is a JSON object with a "sessionid"
// string; a rejection carries "message" and "code" instead. Poll is a GET by
// session id with Bearer authentication whose body is the job state — at a
// terminal status ("completed" or "error") the body is the full recognition
// result.
package amivoice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/aomorin/hibiki/pkg/provider/recognition"
)

const defaultEndpoint = "https://acp-api-async.amivoice.com/v1/recognitions"

// maxErrorBody caps how much of a failing response body is read for error
// reporting.
const maxErrorBody = 4 << 10

// Option is a functional option for configuring the Client.
type Option func(*Client)

// WithEndpoint overrides the recognition API endpoint. Useful for tests and
// for regional deployments.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		c.endpoint = endpoint
	}
}

// WithHTTPClient replaces the underlying HTTP client. The default client has
// no timeout — submit uploads of multi-hour audio chunks can legitimately
// take minutes, so callers bound requests via context instead.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.hc = hc
	}
}

// Client implements recognition.Service backed by the AmiVoice async API.
// It is safe for concurrent use.
type Client struct {
	apiKey   string
	endpoint string
	hc       *http.Client
}

// Compile-time interface check.
var _ recognition.Service = (*Client)(nil)

// New creates a Client. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("amivoice: apiKey must not be empty")
	}
	c := &Client{
		apiKey:   apiKey,
		endpoint: defaultEndpoint,
		hc:       &http.Client{},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// submitResponse is the JSON body returned by the job-creation endpoint.
type submitResponse struct {
	SessionID string `json:"sessionid"`
	Message   string `json:"message"`
	Code      string `json:"code"`
}

// pollResponse carries the only field the client itself interprets; the full
// body is passed through untouched as the chunk result.
type pollResponse struct {
	Status recognition.Status `json:"status"`
}

// Submit implements recognition.Service. It builds the AmiVoice "d" parameter
// string with diarization and sentiment analysis enabled, the min and max
// speaker counts both set to req.SpeakerCount, and posts the audio as a
// multipart upload.
func (c *Client) Submit(ctx context.Context, req recognition.SubmitRequest) (string, error) {
	if req.SpeakerCount < 1 {
		return "", fmt.Errorf("amivoice: speaker count %d is out of range (must be >= 1)", req.SpeakerCount)
	}
	if req.Grammar == "" {
		return "", errors.New("amivoice: grammar must not be empty")
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	if err := w.WriteField("u", c.apiKey); err != nil {
		return "", fmt.Errorf("amivoice: build request: %w", err)
	}
	if err := w.WriteField("d", buildDomain(req)); err != nil {
		return "", fmt.Errorf("amivoice: build request: %w", err)
	}
	fw, err := w.CreateFormFile("a", req.ContentID)
	if err != nil {
		return "", fmt.Errorf("amivoice: build request: %w", err)
	}
	if _, err := fw.Write(req.Audio); err != nil {
		return "", fmt.Errorf("amivoice: build request: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("amivoice: build request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("amivoice: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return "", &recognition.TransportError{Op: "submit", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		drainBody(resp.Body)
		return "", &recognition.TransportError{Op: "submit", StatusCode: resp.StatusCode}
	}

	var sr submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return "", &recognition.TransportError{Op: "submit", StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	if sr.SessionID == "" {
		return "", &recognition.SubmissionError{Message: sr.Message, Code: sr.Code}
	}
	return sr.SessionID, nil
}

// Poll implements recognition.Service. The full response body is returned in
// JobState.Raw so that a terminal poll doubles as the chunk result fetch.
func (c *Client) Poll(ctx context.Context, sessionID string) (*recognition.JobState, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/"+url.PathEscape(sessionID), nil)
	if err != nil {
		return nil, fmt.Errorf("amivoice: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return nil, &recognition.TransportError{Op: "poll", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		drainBody(resp.Body)
		return nil, &recognition.TransportError{Op: "poll", StatusCode: resp.StatusCode}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &recognition.TransportError{Op: "poll", Err: fmt.Errorf("read response: %w", err)}
	}

	var pr pollResponse
	if err := json.Unmarshal(raw, &pr); err != nil {
		return nil, &recognition.TransportError{Op: "poll", StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}

	return &recognition.JobState{Status: pr.Status, Raw: raw}, nil
}

// buildDomain assembles the AmiVoice "d" parameter: space-joined
// key=url-escaped-value pairs in a fixed order.
func buildDomain(req recognition.SubmitRequest) string {
	count := strconv.Itoa(req.SpeakerCount)
	pairs := []struct{ k, v string }{
		{"grammarFileNames", req.Grammar},
		{"loggingOptOut", "True"},
		{"contentId", req.ContentID},
		{"speakerDiarization", "True"},
		{"diarizationMinSpeaker", count},
		{"diarizationMaxSpeaker", count},
		{"sentimentAnalysis", "True"},
	}

	var b bytes.Buffer
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(p.k)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.v))
	}
	return b.String()
}

// drainBody consumes a bounded amount of the response body so the underlying
// connection can be reused.
func drainBody(r io.Reader) {
	_, _ = io.Copy(io.Discard, io.LimitReader(r, maxErrorBody))
}
