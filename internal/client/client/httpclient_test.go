package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophgallery/internal/client/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

/*************
 * Fake token store
 *************/

type memTokens struct {
	mu     sync.Mutex
	tokens models.Tokens
	sets   int
}

func (m *memTokens) Tokens() models.Tokens {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens
}

func (m *memTokens) SetTokens(_ context.Context, t models.Tokens) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = t
	m.sets++
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func newTestClient(t *testing.T, r *mux.Router, tokens *memTokens) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return NewHTTPClient(srv.URL+"/", 5*time.Second, tokens)
}

/*************
 * Tests
 *************/

func TestHTTPClient_ListFiles_SendsBearerAndQuery(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/files", func(w http.ResponseWriter, req *http.Request) {
		require.Equal(t, "Bearer acc", req.Header.Get("Authorization"))
		require.Equal(t, "true", req.URL.Query().Get("includeAll"))
		require.Equal(t, "2", req.URL.Query().Get("page"))
		require.Equal(t, "50", req.URL.Query().Get("limit"))
		writeJSON(w, http.StatusOK, models.Listing{
			Files:   []models.MediaItem{{ID: "a", Filename: "a.jpg"}},
			Total:   51,
			HasMore: true,
		})
	}).Methods(http.MethodGet)

	c := newTestClient(t, r, &memTokens{tokens: models.Tokens{AccessToken: "acc"}})
	listing, err := c.ListFiles(context.Background(), 2, 50)
	require.NoError(t, err)
	require.Len(t, listing.Files, 1)
	require.Equal(t, 51, listing.Total)
	require.True(t, listing.HasMore)
}

func TestHTTPClient_ContextTokenOverridesStore(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/files/{id}/view", func(w http.ResponseWriter, req *http.Request) {
		require.Equal(t, "Bearer override", req.Header.Get("Authorization"))
		require.Equal(t, "a b", mux.Vars(req)["id"])
		writeJSON(w, http.StatusOK, map[string]string{"url": "https://cdn/a"})
	}).Methods(http.MethodGet)

	c := newTestClient(t, r, &memTokens{tokens: models.Tokens{AccessToken: "stored"}})
	u, err := c.GetViewURL(WithAccessToken(context.Background(), "override"), "a b")
	require.NoError(t, err)
	require.Equal(t, "https://cdn/a", u)
}

func TestHTTPClient_RefreshesOnTokenExpiredAndRetriesOnce(t *testing.T) {
	var viewCalls, refreshCalls atomic.Int32

	r := mux.NewRouter()
	r.HandleFunc("/files/{id}/view", func(w http.ResponseWriter, req *http.Request) {
		viewCalls.Add(1)
		if req.Header.Get("Authorization") != "Bearer new" {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "expired", Code: CodeTokenExpired})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"url": "https://cdn/x"})
	})
	r.HandleFunc("/auth/refresh", func(w http.ResponseWriter, req *http.Request) {
		refreshCalls.Add(1)
		require.Empty(t, req.Header.Get("Authorization"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		require.Equal(t, "ref", body["refreshToken"])
		writeJSON(w, http.StatusOK, models.Tokens{AccessToken: "new", RefreshToken: "ref2"})
	}).Methods(http.MethodPost)

	store := &memTokens{tokens: models.Tokens{AccessToken: "old", RefreshToken: "ref"}}
	c := newTestClient(t, r, store)

	u, err := c.GetViewURL(context.Background(), "x")
	require.NoError(t, err)
	require.Equal(t, "https://cdn/x", u)
	require.EqualValues(t, 2, viewCalls.Load())
	require.EqualValues(t, 1, refreshCalls.Load())
	require.Equal(t, models.Tokens{AccessToken: "new", RefreshToken: "ref2"}, store.Tokens())
}

func TestHTTPClient_UnauthorizedWithoutExpiredCodeIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	r := mux.NewRouter()
	r.HandleFunc("/files/{id}/view", func(w http.ResponseWriter, req *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "bad token", Code: "invalid_token"})
	})

	c := newTestClient(t, r, &memTokens{tokens: models.Tokens{AccessToken: "a", RefreshToken: "r"}})
	_, err := c.GetViewURL(context.Background(), "x")
	require.ErrorIs(t, err, ErrUnauthorized)
	require.EqualValues(t, 1, calls.Load())

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	require.Equal(t, "invalid_token", httpErr.Code)
}

func TestHTTPClient_PreflightRefreshForExpiredJWT(t *testing.T) {
	var refreshCalls atomic.Int32
	fresh := signedToken(t, time.Now().Add(time.Hour))

	r := mux.NewRouter()
	r.HandleFunc("/auth/refresh", func(w http.ResponseWriter, _ *http.Request) {
		refreshCalls.Add(1)
		writeJSON(w, http.StatusOK, models.Tokens{AccessToken: fresh, RefreshToken: "r2"})
	})
	r.HandleFunc("/files/{id}", func(w http.ResponseWriter, req *http.Request) {
		require.Equal(t, "Bearer "+fresh, req.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodDelete)

	stale := signedToken(t, time.Now().Add(-time.Minute))
	c := newTestClient(t, r, &memTokens{tokens: models.Tokens{AccessToken: stale, RefreshToken: "r"}})

	require.NoError(t, c.DeleteFile(context.Background(), "f1"))
	require.EqualValues(t, 1, refreshCalls.Load())
}

func TestHTTPClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		code   string
		want   error
	}{
		{name: "not found", status: http.StatusNotFound, want: ErrNotFound},
		{name: "forbidden", status: http.StatusForbidden, want: ErrUnauthorized},
		{name: "storage not configured", status: http.StatusInternalServerError, code: CodeStorageNotConfigured, want: ErrUnavailable},
		{name: "service unavailable", status: http.StatusServiceUnavailable, want: ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := mux.NewRouter()
			r.HandleFunc("/files/{id}/download", func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, tt.status, errorBody{Error: "nope", Code: tt.code})
			})
			c := newTestClient(t, r, &memTokens{tokens: models.Tokens{AccessToken: "a"}})
			_, err := c.DownloadEncrypted(context.Background(), "x")
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestHTTPClient_OtherStatusHasNoSentinel(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/files/{id}/rename", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad name"})
	})
	c := newTestClient(t, r, &memTokens{tokens: models.Tokens{AccessToken: "a"}})

	_, err := c.RenameFile(context.Background(), "x", "y.jpg")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)
	require.NotErrorIs(t, err, ErrUnauthorized)
	require.Contains(t, err.Error(), "bad name")
}

func TestHTTPClient_NetworkErrorWrapsSentinel(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewHTTPClient(url, time.Second, &memTokens{})
	err := c.Ping(context.Background())
	require.ErrorIs(t, err, ErrNetwork)
}

func TestHTTPClient_Ping(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/ping", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
	})
	c := newTestClient(t, r, &memTokens{})
	require.NoError(t, c.Ping(context.Background()))

	r2 := mux.NewRouter()
	r2.HandleFunc("/ping", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "DEGRADED"})
	})
	c2 := newTestClient(t, r2, &memTokens{})
	require.ErrorIs(t, c2.Ping(context.Background()), ErrUnavailable)
}

func TestHTTPClient_Login(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/auth/login", func(w http.ResponseWriter, req *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		if body["password"] != "pw" {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid credentials"})
			return
		}
		writeJSON(w, http.StatusOK, models.Tokens{AccessToken: "a", RefreshToken: "r"})
	}).Methods(http.MethodPost)

	c := newTestClient(t, r, &memTokens{})
	tokens, err := c.Login(context.Background(), "u", "pw")
	require.NoError(t, err)
	require.Equal(t, "a", tokens.AccessToken)

	_, err = c.Login(context.Background(), "u", "wrong")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestHTTPClient_UpdateCommentSendsNull(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/files/{id}", func(w http.ResponseWriter, req *http.Request) {
		raw, _ := io.ReadAll(req.Body)
		require.JSONEq(t, `{"comment":null}`, string(raw))
		writeJSON(w, http.StatusOK, models.MediaItem{ID: mux.Vars(req)["id"], Filename: "a.jpg"})
	}).Methods(http.MethodPatch)

	c := newTestClient(t, r, &memTokens{tokens: models.Tokens{AccessToken: "a"}})
	item, err := c.UpdateComment(context.Background(), "f1", nil)
	require.NoError(t, err)
	require.Equal(t, "f1", item.ID)
	require.Nil(t, item.Comment)
}

func TestHTTPClient_UploadFileMultipart(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/files", func(w http.ResponseWriter, req *http.Request) {
		require.NoError(t, req.ParseMultipartForm(1<<20))
		require.Equal(t, "true", req.FormValue("isEncrypted"))
		f, hdr, err := req.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		require.Equal(t, "pic.png", hdr.Filename)
		require.Equal(t, []byte("payload"), data)
		writeJSON(w, http.StatusCreated, models.MediaItem{ID: "n1", Filename: hdr.Filename, IsEncrypted: true})
	}).Methods(http.MethodPost)

	c := newTestClient(t, r, &memTokens{tokens: models.Tokens{AccessToken: "a"}})
	item, err := c.UploadFile(context.Background(), "pic.png", []byte("payload"), true)
	require.NoError(t, err)
	require.Equal(t, "n1", item.ID)
	require.True(t, item.IsEncrypted)
}

func TestTokenExpired(t *testing.T) {
	now := time.Now()
	require.True(t, tokenExpired(signedToken(t, now.Add(-time.Second)), now))
	require.True(t, tokenExpired(signedToken(t, now.Add(5*time.Second)), now))
	require.False(t, tokenExpired(signedToken(t, now.Add(time.Hour)), now))
	require.False(t, tokenExpired("opaque-token", now))
}
