package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"banter/api/internal/authpw"
	"banter/api/internal/config"
)

func newTestServer(t *testing.T) (http.Handler, *Service, *memStore) {
	t.Helper()
	data := newMemStore()
	service := &Service{
		cfg: config.Config{
			JWTSecret:  "test-secret",
			AccessTTL:  15 * time.Minute,
			RefreshTTL: time.Hour,
		},
		store:     data,
		sessions:  newMemSessions(),
		passwords: authpw.NewService(data),
	}
	return NewHTTPServer(service, "*").Handler(), service, data
}

func doRequest(t *testing.T, handler http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	return recorder
}

func decodeResponse(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response %q: %v", recorder.Body.String(), err)
	}
	return payload
}

func signUpUser(t *testing.T, handler http.Handler, email, name string) (token string) {
	t.Helper()
	recorder := doRequest(t, handler, http.MethodPost, "/api/auth/signup", "", map[string]any{
		"email":    email,
		"password": "correct horse",
		"name":     name,
	})
	if recorder.Code != http.StatusCreated {
		t.Fatalf("signup status %d: %s", recorder.Code, recorder.Body.String())
	}
	return decodeResponse(t, recorder)["accessToken"].(string)
}

func TestHealthEndpoint(t *testing.T) {
	handler, _, _ := newTestServer(t)
	recorder := doRequest(t, handler, http.MethodGet, "/api/health", "", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("health status %d", recorder.Code)
	}
	if payload := decodeResponse(t, recorder); payload["ok"] != true {
		t.Fatalf("health payload %v", payload)
	}
}

func TestAuthEndpoints(t *testing.T) {
	handler, _, _ := newTestServer(t)

	token := signUpUser(t, handler, "alice@example.com", "Alice")
	if token == "" {
		t.Fatal("signup returned no access token")
	}

	t.Run("duplicate email", func(t *testing.T) {
		recorder := doRequest(t, handler, http.MethodPost, "/api/auth/signup", "", map[string]any{
			"email":    "alice@example.com",
			"password": "correct horse",
			"name":     "Alice Again",
		})
		if recorder.Code != http.StatusConflict {
			t.Fatalf("duplicate signup status %d", recorder.Code)
		}
		if payload := decodeResponse(t, recorder); payload["code"] != "EMAIL_EXISTS" {
			t.Fatalf("duplicate signup payload %v", payload)
		}
	})

	t.Run("signin", func(t *testing.T) {
		recorder := doRequest(t, handler, http.MethodPost, "/api/auth/signin", "", map[string]any{
			"email":    "alice@example.com",
			"password": "correct horse",
		})
		if recorder.Code != http.StatusOK {
			t.Fatalf("signin status %d: %s", recorder.Code, recorder.Body.String())
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		recorder := doRequest(t, handler, http.MethodPost, "/api/auth/signin", "", map[string]any{
			"email":    "alice@example.com",
			"password": "wrong horse",
		})
		if recorder.Code != http.StatusUnauthorized {
			t.Fatalf("wrong password status %d", recorder.Code)
		}
	})

	t.Run("session introspection", func(t *testing.T) {
		recorder := doRequest(t, handler, http.MethodGet, "/api/session", token, nil)
		payload := decodeResponse(t, recorder)
		if payload["authenticated"] != true || payload["userName"] != "Alice" {
			t.Fatalf("session payload %v", payload)
		}

		anonymous := doRequest(t, handler, http.MethodGet, "/api/session", "", nil)
		if decodeResponse(t, anonymous)["authenticated"] != false {
			t.Fatal("anonymous session reported authenticated")
		}
	})
}

func TestAnonymousAccess(t *testing.T) {
	handler, _, _ := newTestServer(t)
	aliceToken := signUpUser(t, handler, "alice@example.com", "Alice")

	recorder := doRequest(t, handler, http.MethodPost, "/api/workspaces", aliceToken, map[string]any{"name": "Acme"})
	workspaceID := decodeResponse(t, recorder)["workspaceId"].(string)

	t.Run("list queries come back empty", func(t *testing.T) {
		recorder := doRequest(t, handler, http.MethodGet, "/api/workspaces", "", nil)
		if recorder.Code != http.StatusOK {
			t.Fatalf("anonymous workspace list status %d", recorder.Code)
		}
		if workspaces := decodeResponse(t, recorder)["workspaces"].([]any); len(workspaces) != 0 {
			t.Fatalf("anonymous caller sees %d workspaces", len(workspaces))
		}

		recorder = doRequest(t, handler, http.MethodGet, "/api/workspaces/"+workspaceID+"/channels", "", nil)
		if recorder.Code != http.StatusOK {
			t.Fatalf("anonymous channel list status %d", recorder.Code)
		}
		if channels := decodeResponse(t, recorder)["channels"].([]any); len(channels) != 0 {
			t.Fatalf("anonymous caller sees %d channels", len(channels))
		}
	})

	t.Run("lookups come back null", func(t *testing.T) {
		recorder := doRequest(t, handler, http.MethodGet, "/api/workspaces/"+workspaceID, "", nil)
		if recorder.Code != http.StatusOK {
			t.Fatalf("anonymous workspace lookup status %d", recorder.Code)
		}
		if decodeResponse(t, recorder)["workspace"] != nil {
			t.Fatal("anonymous caller sees workspace")
		}
	})

	t.Run("mutations rejected", func(t *testing.T) {
		recorder := doRequest(t, handler, http.MethodPost, "/api/workspaces", "", map[string]any{"name": "Sneaky"})
		if recorder.Code != http.StatusUnauthorized {
			t.Fatalf("anonymous create status %d", recorder.Code)
		}

		recorder = doRequest(t, handler, http.MethodDelete, "/api/workspaces/"+workspaceID, "", nil)
		if recorder.Code != http.StatusUnauthorized {
			t.Fatalf("anonymous delete status %d", recorder.Code)
		}
	})

	t.Run("garbage token rejected", func(t *testing.T) {
		recorder := doRequest(t, handler, http.MethodGet, "/api/workspaces", "not-a-token", nil)
		if recorder.Code != http.StatusUnauthorized {
			t.Fatalf("garbage token status %d", recorder.Code)
		}
	})
}

func TestWorkspaceFlow(t *testing.T) {
	handler, _, data := newTestServer(t)
	aliceToken := signUpUser(t, handler, "alice@example.com", "Alice")
	bobToken := signUpUser(t, handler, "bob@example.com", "Bob")

	recorder := doRequest(t, handler, http.MethodPost, "/api/workspaces", aliceToken, map[string]any{"name": "Acme"})
	if recorder.Code != http.StatusCreated {
		t.Fatalf("create workspace status %d: %s", recorder.Code, recorder.Body.String())
	}
	workspaceID := decodeResponse(t, recorder)["workspaceId"].(string)

	t.Run("join with wrong code", func(t *testing.T) {
		recorder := doRequest(t, handler, http.MethodPost, "/api/workspaces/"+workspaceID+"/join", bobToken, map[string]any{"joinCode": "zzzzzz"})
		if recorder.Code != http.StatusForbidden {
			t.Fatalf("wrong join code status %d", recorder.Code)
		}
		if payload := decodeResponse(t, recorder); payload["code"] != "INVALID_JOIN_CODE" {
			t.Fatalf("wrong join code payload %v", payload)
		}
	})

	t.Run("workspace info before joining", func(t *testing.T) {
		recorder := doRequest(t, handler, http.MethodGet, "/api/workspaces/"+workspaceID+"/info", bobToken, nil)
		info := decodeResponse(t, recorder)["info"].(map[string]any)
		if info["name"] != "Acme" || info["isMember"] != false {
			t.Fatalf("info payload %v", info)
		}
	})

	t.Run("join and see channels", func(t *testing.T) {
		workspace, _ := data.GetWorkspace(context.Background(), workspaceID)
		recorder := doRequest(t, handler, http.MethodPost, "/api/workspaces/"+workspaceID+"/join", bobToken, map[string]any{"joinCode": workspace.JoinCode})
		if recorder.Code != http.StatusOK {
			t.Fatalf("join status %d: %s", recorder.Code, recorder.Body.String())
		}

		recorder = doRequest(t, handler, http.MethodGet, "/api/workspaces/"+workspaceID+"/channels", bobToken, nil)
		channels := decodeResponse(t, recorder)["channels"].([]any)
		if len(channels) != 1 {
			t.Fatalf("expected general channel, got %v", channels)
		}
	})

	t.Run("member cannot delete workspace", func(t *testing.T) {
		recorder := doRequest(t, handler, http.MethodDelete, "/api/workspaces/"+workspaceID, bobToken, nil)
		if recorder.Code != http.StatusForbidden {
			t.Fatalf("member delete status %d", recorder.Code)
		}
	})
}

func TestMessageFlow(t *testing.T) {
	handler, _, data := newTestServer(t)
	aliceToken := signUpUser(t, handler, "alice@example.com", "Alice")

	recorder := doRequest(t, handler, http.MethodPost, "/api/workspaces", aliceToken, map[string]any{"name": "Acme"})
	workspaceID := decodeResponse(t, recorder)["workspaceId"].(string)
	channels, _ := data.ListChannels(context.Background(), workspaceID)
	channelID := channels[0].ID

	recorder = doRequest(t, handler, http.MethodPost, "/api/messages", aliceToken, map[string]any{
		"workspaceId": workspaceID,
		"channelId":   channelID,
		"body":        validBody,
	})
	if recorder.Code != http.StatusCreated {
		t.Fatalf("create message status %d: %s", recorder.Code, recorder.Body.String())
	}
	messageID := decodeResponse(t, recorder)["messageId"].(string)

	t.Run("plain text body rejected", func(t *testing.T) {
		recorder := doRequest(t, handler, http.MethodPost, "/api/messages", aliceToken, map[string]any{
			"workspaceId": workspaceID,
			"channelId":   channelID,
			"body":        "not a delta",
		})
		if recorder.Code != http.StatusUnprocessableEntity {
			t.Fatalf("plain body status %d", recorder.Code)
		}
	})

	t.Run("list", func(t *testing.T) {
		path := fmt.Sprintf("/api/messages?channelId=%s&limit=10", channelID)
		recorder := doRequest(t, handler, http.MethodGet, path, aliceToken, nil)
		if recorder.Code != http.StatusOK {
			t.Fatalf("list status %d: %s", recorder.Code, recorder.Body.String())
		}
		payload := decodeResponse(t, recorder)
		if page := payload["page"].([]any); len(page) != 1 {
			t.Fatalf("expected one message, got %v", page)
		}
	})

	t.Run("toggle reaction", func(t *testing.T) {
		recorder := doRequest(t, handler, http.MethodPost, "/api/messages/"+messageID+"/reactions", aliceToken, map[string]any{"value": "👍"})
		if recorder.Code != http.StatusOK {
			t.Fatalf("toggle status %d: %s", recorder.Code, recorder.Body.String())
		}
		reactions, _ := data.ListReactions(context.Background(), messageID)
		if len(reactions) != 1 {
			t.Fatalf("expected one reaction, got %v", reactions)
		}
		if decodeResponse(t, recorder)["reactionId"] != reactions[0].ID {
			t.Fatalf("toggle did not return the reaction id: %s", recorder.Body.String())
		}
	})

	t.Run("delete", func(t *testing.T) {
		recorder := doRequest(t, handler, http.MethodDelete, "/api/messages/"+messageID, aliceToken, nil)
		if recorder.Code != http.StatusOK {
			t.Fatalf("delete status %d: %s", recorder.Code, recorder.Body.String())
		}
		recorder = doRequest(t, handler, http.MethodGet, "/api/messages/"+messageID, aliceToken, nil)
		if decodeResponse(t, recorder)["message"] != nil {
			t.Fatal("deleted message still visible")
		}
	})
}

func TestUnknownRoute(t *testing.T) {
	handler, _, _ := newTestServer(t)
	token := signUpUser(t, handler, "alice@example.com", "Alice")

	recorder := doRequest(t, handler, http.MethodGet, "/api/nope", token, nil)
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("unknown route status %d", recorder.Code)
	}

	recorder = doRequest(t, handler, http.MethodDelete, "/api/workspaces", token, nil)
	if recorder.Code != http.StatusMethodNotAllowed {
		t.Fatalf("bad method status %d", recorder.Code)
	}
}
