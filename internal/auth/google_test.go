package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func mockTokenEndpoint(t *testing.T, handler func(form map[string]string) (int, map[string]any)) *GoogleClient {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse form: %v", err)
		}
		form := make(map[string]string)
		for k := range r.PostForm {
			form[k] = r.PostForm.Get(k)
		}

		code, body := handler(form)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(server.Close)

	client := NewGoogleClient("client-id", "client-secret")
	client.tokenURL = server.URL
	return client
}

func TestGoogleClient_Exchange(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		var gotForm map[string]string
		client := mockTokenEndpoint(t, func(form map[string]string) (int, map[string]any) {
			gotForm = form
			return http.StatusOK, map[string]any{
				"access_token":  "at-123",
				"refresh_token": "rt-456",
				"expires_in":    3599,
				"token_type":    "Bearer",
			}
		})

		token, err := client.Exchange(t.Context(), "auth-code", "https://app.example.org/callback")
		if err != nil {
			t.Fatalf("Exchange() error = %v", err)
		}
		if token.AccessToken != "at-123" {
			t.Errorf("AccessToken = %q", token.AccessToken)
		}
		if token.RefreshToken != "rt-456" {
			t.Errorf("RefreshToken = %q", token.RefreshToken)
		}

		if gotForm["grant_type"] != "authorization_code" {
			t.Errorf("grant_type = %q", gotForm["grant_type"])
		}
		if gotForm["code"] != "auth-code" {
			t.Errorf("code = %q", gotForm["code"])
		}
		if gotForm["client_secret"] != "client-secret" {
			t.Error("client secret should be supplied server-side")
		}
	})

	t.Run("rejection", func(t *testing.T) {
		client := mockTokenEndpoint(t, func(form map[string]string) (int, map[string]any) {
			return http.StatusBadRequest, map[string]any{
				"error":             "invalid_grant",
				"error_description": "Bad Request",
			}
		})

		_, err := client.Exchange(t.Context(), "stale-code", "https://app.example.org/callback")
		if err == nil {
			t.Fatal("expected error for rejected code")
		}
		if got := err.Error(); !strings.Contains(got, "invalid_grant") {
			t.Errorf("error %q should carry the endpoint error code", got)
		}
	})
}

func TestGoogleClient_Refresh(t *testing.T) {
	var gotForm map[string]string
	client := mockTokenEndpoint(t, func(form map[string]string) (int, map[string]any) {
		gotForm = form
		return http.StatusOK, map[string]any{
			"access_token": "at-789",
			"expires_in":   3599,
			"token_type":   "Bearer",
		}
	})

	token, err := client.Refresh(t.Context(), "rt-456")
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if token.AccessToken != "at-789" {
		t.Errorf("AccessToken = %q", token.AccessToken)
	}
	if gotForm["grant_type"] != "refresh_token" {
		t.Errorf("grant_type = %q", gotForm["grant_type"])
	}
	if gotForm["refresh_token"] != "rt-456" {
		t.Errorf("refresh_token = %q", gotForm["refresh_token"])
	}
}
