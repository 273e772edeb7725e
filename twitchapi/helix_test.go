package twitchapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHelixClient_GetUserID(t *testing.T) {
	tests := []struct {
		response    interface{}
		name        string
		login       string
		wantUserID  string
		errContains string
		statusCode  int
		wantErr     bool
	}{
		{
			name:  "successful user lookup",
			login: "testuser",
			response: map[string]interface{}{
				"data": []map[string]string{
					{"id": "12345", "login": "testuser"},
				},
			},
			statusCode: http.StatusOK,
			wantUserID: "12345",
			wantErr:    false,
		},
		{
			name:  "user not found",
			login: "nonexistent",
			response: map[string]interface{}{
				"data": []map[string]string{},
			},
			statusCode:  http.StatusOK,
			wantErr:     true,
			errContains: "user not found",
		},
		{
			name:        "empty login",
			login:       "",
			wantErr:     true,
			errContains: "login empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Client-Id") != "test-client-id" {
					t.Errorf("missing or wrong Client-Id header")
				}
				if r.Header.Get("Authorization") != "Bearer test-token" {
					t.Errorf("missing or wrong Authorization header")
				}
				if tt.login != "" && r.URL.Query().Get("login") != tt.login {
					t.Errorf("login query param = %s, want %s", r.URL.Query().Get("login"), tt.login)
				}

				w.WriteHeader(tt.statusCode)
				if tt.response != nil {
					json.NewEncoder(w).Encode(tt.response)
				}
			}))
			defer server.Close()

			client := testClient(server.URL)

			userID, err := client.GetUserID(context.Background(), tt.login)

			if tt.wantErr {
				if err == nil {
					t.Errorf("GetUserID() error = nil, want error containing %q", tt.errContains)
				} else if tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("GetUserID() error = %v, want error containing %q", err, tt.errContains)
				}
				return
			}

			if err != nil {
				t.Errorf("GetUserID() unexpected error = %v", err)
				return
			}

			if userID != tt.wantUserID {
				t.Errorf("GetUserID() = %s, want %s", userID, tt.wantUserID)
			}
		})
	}
}

func TestHelixClient_GetStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/helix/streams" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if got := r.URL.Query().Get("user_id"); got != "u-1" {
			t.Errorf("user_id = %q, want u-1", got)
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{{
				"title":        "Live Now",
				"game_name":    "Just Chatting",
				"viewer_count": 42,
				"started_at":   "2025-10-15T14:30:00Z",
			}},
		})
	}))
	defer server.Close()

	client := testClient(server.URL)

	info, err := client.GetStream(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("GetStream() error = %v", err)
	}
	if info == nil || info.Title != "Live Now" || info.ViewerCount != 42 {
		t.Fatalf("stream info = %+v", info)
	}
}

func TestHelixClient_GetStreamOffline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": []map[string]string{}})
	}))
	defer server.Close()

	client := testClient(server.URL)

	info, err := client.GetStream(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("GetStream() error = %v", err)
	}
	if info != nil {
		t.Fatalf("expected nil for offline channel, got %+v", info)
	}
}

func TestHelixClient_TimeoutUser(t *testing.T) {
	var gotBody map[string]map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/helix/moderation/bans" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if got := r.URL.Query().Get("broadcaster_id"); got != "b-1" {
			t.Errorf("broadcaster_id = %q, want b-1", got)
		}
		if got := r.URL.Query().Get("moderator_id"); got != "m-1" {
			t.Errorf("moderator_id = %q, want m-1", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer user-token" {
			t.Errorf("auth = %q, want user token", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": []map[string]string{{"user_id": "u-2"}}})
	}))
	defer server.Close()

	client := testClient(server.URL)
	client.UserTokenFunc = func(context.Context) (string, error) { return "user-token", nil }

	err := client.TimeoutUser(context.Background(), "b-1", "m-1", "u-2", 5*time.Minute, "spam emoji")
	if err != nil {
		t.Fatalf("TimeoutUser() error = %v", err)
	}
	data := gotBody["data"]
	if data["user_id"] != "u-2" {
		t.Errorf("user_id = %v", data["user_id"])
	}
	if dur, ok := data["duration"].(float64); !ok || int(dur) != 300 {
		t.Errorf("duration = %v, want 300", data["duration"])
	}
	if data["reason"] != "spam emoji" {
		t.Errorf("reason = %v", data["reason"])
	}
}

func TestHelixClient_TimeoutUserValidation(t *testing.T) {
	client := &HelixClient{ClientID: "c"}
	if err := client.TimeoutUser(context.Background(), "", "m", "u", time.Minute, ""); err == nil {
		t.Error("expected error for empty broadcasterID")
	}
	if err := client.TimeoutUser(context.Background(), "b", "m", "", time.Minute, ""); err == nil {
		t.Error("expected error for empty userID")
	}
}

func TestHelixClient_TimeoutUserAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"error": "Forbidden", "status": 403})
	}))
	defer server.Close()

	client := testClient(server.URL)
	client.UserTokenFunc = func(context.Context) (string, error) { return "user-token", nil }

	err := client.TimeoutUser(context.Background(), "b-1", "m-1", "u-2", time.Minute, "")
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}

func testClient(serverURL string) *HelixClient {
	ts := &TokenSource{
		ClientID:     "test-client-id",
		ClientSecret: "test-secret",
	}
	ts.SetToken("test-token", time.Now().Add(1*time.Hour))
	return &HelixClient{
		AppTokenSource: ts,
		ClientID:       "test-client-id",
		HTTPClient: &http.Client{
			Transport: &rewriteTransport{
				Transport: http.DefaultTransport,
				host:      serverURL,
			},
		},
	}
}

// rewriteTransport rewrites all requests to use the test server
type rewriteTransport struct {
	Transport http.RoundTripper
	host      string
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = "http"
	if t.host != "" {
		host := t.host
		host = strings.TrimPrefix(host, "http://")
		host = strings.TrimPrefix(host, "https://")
		req.URL.Host = host
	}
	return t.Transport.RoundTrip(req)
}
