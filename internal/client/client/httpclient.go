package client

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
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophgallery/internal/client/models"
	"github.com/dmitrijs2005/gophgallery/internal/common"
	"github.com/dmitrijs2005/gophgallery/internal/metrics"
)

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 4 << 10

// HTTPClient talks to the storage backend over REST/JSON with bearer tokens.
// Expired access tokens are refreshed once, either up front (JWT exp claim)
// or after a 401 carrying the token_expired code.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	tokens  TokenStore
	now     func() time.Time

	refreshMu sync.Mutex
}

// NewHTTPClient builds a client for baseURL. A zero timeout keeps the
// transport default.
func NewHTTPClient(baseURL string, timeout time.Duration, tokens TokenStore) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		tokens:  tokens,
		now:     time.Now,
	}
}

type request struct {
	method      string
	path        string
	body        []byte
	contentType string
	auth        bool
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func jsonRequest(method, path string, payload any, auth bool) (request, error) {
	r := request{method: method, path: path, auth: auth}
	if payload == nil {
		return r, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return r, fmt.Errorf("encode request: %w", err)
	}
	r.body = b
	r.contentType = "application/json"
	return r, nil
}

func (c *HTTPClient) currentToken(ctx context.Context) string {
	if token, ok := accessTokenFromContext(ctx); ok {
		return token
	}
	if c.tokens == nil {
		return ""
	}
	return c.tokens.Tokens().AccessToken
}

func (c *HTTPClient) send(ctx context.Context, r request, token string) (*http.Response, error) {
	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, body)
	if err != nil {
		return nil, err
	}
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	req.Header.Set("Accept", "application/json")
	if r.auth && token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.APIRequestDuration.WithLabelValues(r.method).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.APIRequestsTotal.WithLabelValues(r.method, "transport_error").Inc()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s %s: %v", ErrNetwork, r.method, r.path, err)
	}
	metrics.APIRequestsTotal.WithLabelValues(r.method, strconv.Itoa(resp.StatusCode/100)+"xx").Inc()
	return resp, nil
}

// roundTrip sends r and returns a 2xx response; any other outcome is
// returned as an error with the body already consumed.
func (c *HTTPClient) roundTrip(ctx context.Context, r request) (*http.Response, error) {
	token := c.currentToken(ctx)
	if r.auth && token != "" && tokenExpired(token, c.now()) {
		if fresh, err := c.refresh(ctx, token); err == nil {
			token = fresh
		}
	}

	resp, err := c.send(ctx, r, token)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && r.auth {
		httpErr := readHTTPError(resp)
		if httpErr.Code != CodeTokenExpired {
			return nil, httpErr
		}
		fresh, err := c.refresh(ctx, token)
		if err != nil {
			return nil, httpErr
		}
		resp, err = c.send(ctx, r, fresh)
		if err != nil {
			return nil, err
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, readHTTPError(resp)
	}
	return resp, nil
}

func readHTTPError(resp *http.Response) *HTTPError {
	defer resp.Body.Close()

	httpErr := &HTTPError{StatusCode: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var eb errorBody
	if err := json.Unmarshal(data, &eb); err == nil {
		httpErr.Code = eb.Code
		httpErr.Message = eb.Error
	} else {
		httpErr.Message = strings.TrimSpace(string(data))
	}
	return httpErr
}

// refresh exchanges the refresh token for a new pair. Concurrent callers that
// observed the same stale token share one refresh.
func (c *HTTPClient) refresh(ctx context.Context, stale string) (string, error) {
	if c.tokens == nil {
		return "", common.ErrTokenExpired
	}

	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	current := c.tokens.Tokens()
	if current.AccessToken != "" && current.AccessToken != stale {
		return current.AccessToken, nil
	}
	if current.RefreshToken == "" {
		return "", common.ErrTokenExpired
	}

	r, err := jsonRequest(http.MethodPost, "/auth/refresh", map[string]string{"refreshToken": current.RefreshToken}, false)
	if err != nil {
		return "", err
	}

	var fresh models.Tokens
	if err := c.doRequest(ctx, r, &fresh); err != nil {
		return "", fmt.Errorf("refresh token: %w", err)
	}
	if err := c.tokens.SetTokens(ctx, fresh); err != nil {
		return "", fmt.Errorf("store tokens: %w", err)
	}
	return fresh.AccessToken, nil
}

func (c *HTTPClient) doRequest(ctx context.Context, r request, out any) error {
	resp, err := c.roundTrip(ctx, r)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", r.method, r.path, err)
	}
	return nil
}

func (c *HTTPClient) doJSON(ctx context.Context, method, path string, payload, out any) error {
	r, err := jsonRequest(method, path, payload, true)
	if err != nil {
		return err
	}
	return c.doRequest(ctx, r, out)
}

func filePath(id string, suffix ...string) string {
	p := "/files/" + url.PathEscape(id)
	for _, s := range suffix {
		p += "/" + s
	}
	return p
}

func (c *HTTPClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	r := request{method: http.MethodGet, path: "/ping"}

	var resp struct {
		Status string `json:"status"`
	}
	if err := c.doRequest(ctx, r, &resp); err != nil {
		return err
	}
	if resp.Status != "OK" {
		return ErrUnavailable
	}
	return nil
}

func (c *HTTPClient) Login(ctx context.Context, username, password string) (models.Tokens, error) {
	r, err := jsonRequest(http.MethodPost, "/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, false)
	if err != nil {
		return models.Tokens{}, err
	}

	var tokens models.Tokens
	if err := c.doRequest(ctx, r, &tokens); err != nil {
		return models.Tokens{}, err
	}
	if tokens.AccessToken == "" {
		return models.Tokens{}, errors.New("login response carries no access token")
	}
	return tokens, nil
}

func (c *HTTPClient) GetKeyMaterial(ctx context.Context) (models.KeyMaterial, error) {
	var km models.KeyMaterial
	err := c.doJSON(ctx, http.MethodGet, "/auth/key", nil, &km)
	return km, err
}

func (c *HTTPClient) ListFiles(ctx context.Context, page, limit int) (*models.Listing, error) {
	q := url.Values{}
	q.Set("includeAll", "true")
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var listing models.Listing
	if err := c.doJSON(ctx, http.MethodGet, "/files?"+q.Encode(), nil, &listing); err != nil {
		return nil, err
	}
	return &listing, nil
}

func (c *HTTPClient) GetViewURL(ctx context.Context, id string) (string, error) {
	var resp struct {
		URL string `json:"url"`
	}
	if err := c.doJSON(ctx, http.MethodGet, filePath(id, "view"), nil, &resp); err != nil {
		return "", err
	}
	if resp.URL == "" {
		return "", &HTTPError{StatusCode: http.StatusBadGateway, Message: "view response carries no url"}
	}
	return resp.URL, nil
}

func (c *HTTPClient) DownloadEncrypted(ctx context.Context, id string) ([]byte, error) {
	resp, err := c.roundTrip(ctx, request{method: http.MethodGet, path: filePath(id, "download"), auth: true})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read download: %v", ErrNetwork, err)
	}
	return data, nil
}

func (c *HTTPClient) UpdateComment(ctx context.Context, id string, comment *string) (*models.MediaItem, error) {
	var item models.MediaItem
	payload := struct {
		Comment *string `json:"comment"`
	}{Comment: comment}
	if err := c.doJSON(ctx, http.MethodPatch, filePath(id), payload, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *HTTPClient) MoveFile(ctx context.Context, id string, folderID *string) (*models.MediaItem, error) {
	var item models.MediaItem
	payload := struct {
		FolderID *string `json:"folderId"`
	}{FolderID: folderID}
	if err := c.doJSON(ctx, http.MethodPatch, filePath(id), payload, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *HTTPClient) RenameFile(ctx context.Context, id, filename string) (*models.MediaItem, error) {
	var item models.MediaItem
	if err := c.doJSON(ctx, http.MethodPut, filePath(id, "rename"), map[string]string{"filename": filename}, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *HTTPClient) SetFavorite(ctx context.Context, id string, favorite bool) (*models.MediaItem, error) {
	var item models.MediaItem
	if err := c.doJSON(ctx, http.MethodPost, filePath(id, "favorite"), map[string]bool{"isFavorite": favorite}, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *HTTPClient) DeleteFile(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, filePath(id), nil, nil)
}

func (c *HTTPClient) ListVersions(ctx context.Context, id string) ([]models.FileVersion, error) {
	var versions []models.FileVersion
	if err := c.doJSON(ctx, http.MethodGet, filePath(id, "versions"), nil, &versions); err != nil {
		return nil, err
	}
	return versions, nil
}

func (c *HTTPClient) UploadFile(ctx context.Context, filename string, data []byte, encrypted bool) (*models.MediaItem, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := mw.WriteField("isEncrypted", strconv.FormatBool(encrypted)); err != nil {
		return nil, err
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	r := request{
		method:      http.MethodPost,
		path:        "/files",
		body:        buf.Bytes(),
		contentType: mw.FormDataContentType(),
		auth:        true,
	}

	var item models.MediaItem
	if err := c.doRequest(ctx, r, &item); err != nil {
		return nil, err
	}
	return &item, nil
}
