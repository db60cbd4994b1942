package uploader

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
	"strings"
	"time"

	"github.com/DukeRupert/notegenie/internal/domain"
)

// UploadRecord is what the client remembers about an uploaded video.
type UploadRecord struct {
	ID         string    `json:"id"`
	FileName   string    `json:"fileName"`
	UploadDate time.Time `json:"uploadDate"`
	Status     string    `json:"status"`
	URL        string    `json:"url"`
}

// Account is the signed-in user as returned by the server.
type Account struct {
	ID         string    `json:"_id"`
	Name       string    `json:"name"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	Tier       string    `json:"tier"`
	UsageCount int       `json:"usage_count"`
	IsVerified bool      `json:"isVerified"`
	LastReset  time.Time `json:"lastResetAt"`
}

// SignInResult carries the bearer token for later requests.
type SignInResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      Account   `json:"user"`
}

// Notes is the AI output for one video.
type Notes struct {
	ID              string              `json:"_id"`
	VideoID         string              `json:"videoId"`
	Transcript      string              `json:"transcript"`
	Summary         string              `json:"summary"`
	ActionItems     []domain.ActionItem `json:"actionItems"`
	ReducedAccuracy bool                `json:"reducedAccuracy"`
	CreatedAt       time.Time           `json:"createdAt"`
}

// APIError is a non-2xx response decoded from the server's error body.
type APIError struct {
	Status     int
	Code       string
	Message    string
	UsageCount *int
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s, HTTP %d)", e.Message, e.Code, e.Status)
	}
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
}

// ErrorCode returns the server error code of err, or "" when err did not
// come from the server.
func ErrorCode(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}

// Client talks to the notegenie HTTP API with a bearer token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient returns a client for baseURL. A nil httpClient uses one without
// a timeout; uploads and processing can take minutes.
func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    httpClient,
	}
}

// =============================================================================
// Upload
// =============================================================================

// Upload posts data as the multipart "video" field. onProgress, when set,
// is called as the request body is consumed. Every failure wraps
// ErrUploadFailed.
func (c *Client) Upload(ctx context.Context, data []byte, filename, userID string, onProgress func(sent, total int64)) (*UploadRecord, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("userId", userID); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	part, err := mw.CreateFormFile("video", filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	total := int64(body.Len())
	reader := &progressReader{r: bytes.NewReader(body.Bytes()), total: total, onProgress: onProgress}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload", reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	req.ContentLength = total
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp struct {
		Video videoPayload `json:"video"`
	}
	if err := c.do(req, &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	rec := resp.Video.record()
	return &rec, nil
}

type progressReader struct {
	r          io.Reader
	sent       int64
	total      int64
	onProgress func(sent, total int64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		if p.onProgress != nil {
			p.onProgress(p.sent, p.total)
		}
	}
	return n, err
}

type videoPayload struct {
	ID        string    `json:"_id"`
	Filename  string    `json:"filename"`
	CreatedAt time.Time `json:"createdAt"`
	URL       string    `json:"url"`
	Status    string    `json:"status"`
}

func (v videoPayload) record() UploadRecord {
	return UploadRecord{
		ID:         v.ID,
		FileName:   v.Filename,
		UploadDate: v.CreatedAt,
		Status:     v.Status,
		URL:        v.URL,
	}
}

// =============================================================================
// Account and quota
// =============================================================================

func (c *Client) SignIn(ctx context.Context, identifier, password string) (*SignInResult, error) {
	var out SignInResult
	err := c.doJSON(ctx, http.MethodPost, "/api/sign-in", map[string]string{
		"identifier": identifier,
		"password":   password,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SignOut(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/api/sign-out", nil, nil)
}

func (c *Client) Me(ctx context.Context) (*Account, error) {
	var out struct {
		User Account `json:"user"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/me", nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (c *Client) Usage(ctx context.Context) (*domain.QuotaUsage, error) {
	var out struct {
		Usage domain.QuotaUsage `json:"usage"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/usage", nil, &out); err != nil {
		return nil, err
	}
	return &out.Usage, nil
}

// =============================================================================
// Videos and notes
// =============================================================================

func (c *Client) Videos(ctx context.Context, period domain.Period) ([]UploadRecord, error) {
	path := "/api/videos"
	if period != domain.PeriodAll {
		path += "?period=" + url.QueryEscape(string(period))
	}

	var out struct {
		Videos []videoPayload `json:"videos"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}

	records := make([]UploadRecord, 0, len(out.Videos))
	for _, v := range out.Videos {
		records = append(records, v.record())
	}
	return records, nil
}

func (c *Client) Process(ctx context.Context, videoID string, acceptReducedAccuracy bool) (*Notes, error) {
	var out struct {
		Notes Notes `json:"notes"`
	}
	path := "/api/videos/" + url.PathEscape(videoID) + "/process"
	body := map[string]bool{"acceptReducedAccuracy": acceptReducedAccuracy}
	if err := c.doJSON(ctx, http.MethodPost, path, body, &out); err != nil {
		return nil, err
	}
	return &out.Notes, nil
}

func (c *Client) Notes(ctx context.Context, videoID string) (*Notes, error) {
	var out struct {
		Notes Notes `json:"notes"`
	}
	path := "/api/videos/" + url.PathEscape(videoID) + "/notes"
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out.Notes, nil
}

// NotesPDF downloads the notes of a video rendered as PDF into w.
func (c *Client) NotesPDF(ctx context.Context, videoID string, w io.Writer) (int64, error) {
	path := "/api/videos/" + url.PathEscape(videoID) + "/notes/pdf"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/pdf")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, decodeAPIError(resp)
	}
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("download %s: %w", req.URL.Path, err)
	}
	return n, nil
}

// =============================================================================
// Transport
// =============================================================================

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

// maxErrorBody bounds how much of a failed response is read.
const maxErrorBody = 64 << 10

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}

	var body struct {
		Message    string `json:"message"`
		Code       string `json:"code"`
		UsageCount *int   `json:"usage_count"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err := json.Unmarshal(data, &body); err == nil {
		if body.Message != "" {
			apiErr.Message = body.Message
		}
		apiErr.Code = body.Code
		apiErr.UsageCount = body.UsageCount
	}
	return apiErr
}
