package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/identity-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/identity-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newProviderServer(t *testing.T, mux *http.ServeMux) (*OAuthClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := NewOAuthClient(&config.Config{
		FacebookSecret:    "fb-secret",
		FacebookGraphURL:  srv.URL + "/fb/",
		GoogleSecret:      "g-secret",
		GoogleTokenURL:    srv.URL + "/google/token",
		GoogleUserInfoURL: srv.URL + "/google/userinfo",
		ProviderTimeout:   2 * time.Second,
	})
	return client, srv
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestOAuthClient_Facebook(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/fb/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		q := r.URL.Query()
		assert.Equal(t, "the-code", q.Get("code"))
		assert.Equal(t, "cid", q.Get("client_id"))
		assert.Equal(t, "https://app/cb", q.Get("redirect_uri"))
		assert.Equal(t, "fb-secret", q.Get("client_secret"))
		writeJSON(w, http.StatusOK, map[string]interface{}{"access_token": "fb-token", "token_type": "bearer", "expires_in": 5183944})
	})
	mux.HandleFunc("/fb/me", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "fb-token", r.URL.Query().Get("access_token"))
		assert.Equal(t, "id,email,first_name,last_name,link,name,picture", r.URL.Query().Get("fields"))
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"id":         "10150",
			"email":      "Dev@Example.com",
			"first_name": "Devendra",
			"last_name":  "Verma",
			"name":       "Devendra Verma",
			"link":       "https://facebook.com/dev",
			"picture":    map[string]interface{}{"data": map[string]interface{}{"url": "https://fb/pic.jpg"}},
		})
	})
	client, _ := newProviderServer(t, mux)
	ctx := context.Background()

	tok, err := client.ExchangeCode(ctx, models.ProviderFacebook, "the-code", "cid", "https://app/cb")
	require.NoError(t, err)
	assert.Equal(t, "fb-token", tok)

	profile, err := client.FetchProfile(ctx, models.ProviderFacebook, tok)
	require.NoError(t, err)
	assert.Equal(t, &Profile{
		ProviderUserID: "10150",
		Email:          "dev@example.com",
		FirstName:      "Devendra",
		LastName:       "Verma",
		DisplayName:    "Devendra Verma",
		PhotoURL:       "https://fb/pic.jpg",
		EmailVerified:  true,
	}, profile)
}

func TestOAuthClient_Google(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/google/token", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		assert.Equal(t, "cid", r.PostForm.Get("client_id"))
		assert.Equal(t, "g-secret", r.PostForm.Get("client_secret"))
		assert.Equal(t, "https://app/cb", r.PostForm.Get("redirect_uri"))
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		writeJSON(w, http.StatusOK, map[string]interface{}{"access_token": "g-token", "expires_in": 3599})
	})
	mux.HandleFunc("/google/userinfo", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer g-token", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"sub":            "123",
			"given_name":     "A",
			"family_name":    "B",
			"email":          "a@b.com",
			"email_verified": "true",
			"picture":        "https://g/pic.jpg",
		})
	})
	client, _ := newProviderServer(t, mux)
	ctx := context.Background()

	tok, err := client.ExchangeCode(ctx, models.ProviderGoogle, "the-code", "cid", "https://app/cb")
	require.NoError(t, err)
	assert.Equal(t, "g-token", tok)

	profile, err := client.FetchProfile(ctx, models.ProviderGoogle, tok)
	require.NoError(t, err)
	assert.Equal(t, "123", profile.ProviderUserID)
	assert.Equal(t, "A B", profile.DisplayName, "display name falls back to given and family name")
	assert.True(t, profile.EmailVerified)
	assert.Equal(t, "https://g/pic.jpg", profile.PhotoURL)
}

func TestOAuthClient_UpstreamFailures(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/fb/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error": map[string]interface{}{"message": "This authorization code has been used.", "type": "OAuthException"},
		})
	})
	mux.HandleFunc("/google/token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<html>not json</html>"))
	})
	mux.HandleFunc("/google/userinfo", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"email": "a@b.com"})
	})
	mux.HandleFunc("/fb/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"error": "invalid_token", "error_description": "Token expired"})
	})
	client, _ := newProviderServer(t, mux)
	ctx := context.Background()

	_, err := client.ExchangeCode(ctx, models.ProviderFacebook, "c", "cid", "uri")
	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, http.StatusBadRequest, perr.StatusCode)
	assert.Contains(t, err.Error(), "This authorization code has been used.")

	_, err = client.ExchangeCode(ctx, models.ProviderGoogle, "c", "cid", "uri")
	assert.ErrorIs(t, err, ErrUpstreamProvider, "token response that is not JSON")

	_, err = client.FetchProfile(ctx, models.ProviderGoogle, "tok")
	assert.ErrorIs(t, err, ErrUpstreamProvider, "profile without subject id")

	_, err = client.FetchProfile(ctx, models.ProviderFacebook, "tok")
	assert.ErrorIs(t, err, ErrUpstreamProvider)
	assert.Contains(t, err.Error(), "Token expired")
}

func TestOAuthClient_MissingAccessToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/google/token", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"token_type": "Bearer"})
	})
	client, _ := newProviderServer(t, mux)

	_, err := client.ExchangeCode(context.Background(), models.ProviderGoogle, "c", "cid", "uri")
	assert.ErrorIs(t, err, ErrUpstreamProvider)
}

func TestOAuthClient_Timeout(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/google/token", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	client, _ := newProviderServer(t, mux)
	client.httpClient.Timeout = 50 * time.Millisecond

	start := time.Now()
	_, err := client.ExchangeCode(context.Background(), models.ProviderGoogle, "c", "cid", "uri")
	assert.ErrorIs(t, err, ErrUpstreamProvider)
	assert.Less(t, time.Since(start), time.Second)
}

func TestOAuthClient_HonorsContextDeadline(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/fb/me", func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	client, _ := newProviderServer(t, mux)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := client.FetchProfile(ctx, models.ProviderFacebook, "tok")
	assert.ErrorIs(t, err, ErrUpstreamProvider)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestOAuthClient_Unconfigured(t *testing.T) {
	client := NewOAuthClient(&config.Config{GoogleSecret: "g"})
	assert.False(t, client.Configured(models.ProviderFacebook))
	assert.True(t, client.Configured(models.ProviderGoogle))

	_, err := client.ExchangeCode(context.Background(), models.ProviderFacebook, "c", "cid", "uri")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUpstreamProvider)
	assert.Equal(t, http.StatusInternalServerError, StatusCode(err))
}

func TestFlexBool(t *testing.T) {
	var v struct {
		A flexBool `json:"a"`
		B flexBool `json:"b"`
		C flexBool `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":true,"b":"true","c":"false"}`), &v))
	assert.True(t, bool(v.A))
	assert.True(t, bool(v.B))
	assert.False(t, bool(v.C))

	assert.Error(t, json.Unmarshal([]byte(`{"a":"maybe"}`), &v))
}

func TestOAuthClient_GoogleTokenErrorKeepsOAuthFields(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/google/token", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":             "invalid_grant",
			"error_description": "Malformed auth code.",
		})
	})
	client, _ := newProviderServer(t, mux)

	_, err := client.ExchangeCode(context.Background(), models.ProviderGoogle, "c", "cid", "uri")

	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, models.ProviderGoogle, perr.Provider)
	assert.Equal(t, http.StatusBadRequest, perr.StatusCode)
	assert.EqualError(t, perr.Err, "Malformed auth code.")
	assert.Equal(t, http.StatusBadGateway, StatusCode(err))
}

func TestRetrieveError(t *testing.T) {
	plain := retrieveError(models.ProviderGoogle, "token exchange", errBoom)
	assert.ErrorIs(t, plain, ErrUpstreamProvider)
	assert.ErrorIs(t, plain, errBoom)

	codeOnly := retrieveError(models.ProviderGoogle, "token exchange", &oauth2.RetrieveError{
		Response:  &http.Response{StatusCode: http.StatusUnauthorized},
		ErrorCode: "invalid_client",
	})
	var perr *ProviderError
	require.True(t, errors.As(codeOnly, &perr))
	assert.Equal(t, http.StatusUnauthorized, perr.StatusCode)
	assert.EqualError(t, perr.Err, "invalid_client")

	bodyOnly := retrieveError(models.ProviderGoogle, "token exchange", &oauth2.RetrieveError{
		Response: &http.Response{StatusCode: http.StatusServiceUnavailable},
		Body:     []byte("upstream busy"),
	})
	require.True(t, errors.As(bodyOnly, &perr))
	assert.EqualError(t, perr.Err, "upstream busy")
}
