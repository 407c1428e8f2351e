package ai

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func chatServer(t *testing.T, handler func(w http.ResponseWriter, body map[string]any)) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		handler(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

func writeCompletion(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   "llama3.2",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
		"usage": map[string]any{"prompt_tokens": 5, "completion_tokens": 3, "total_tokens": 8},
	})
}

func TestCompleteReturnsContent(t *testing.T) {
	server := chatServer(t, func(w http.ResponseWriter, body map[string]any) {
		require.Equal(t, "llama3.2", body["model"])
		require.Contains(t, body, "temperature")
		writeCompletion(w, `{"ok": true}`)
	})

	completer, err := NewOpenAICompleter(OpenAIConfig{BaseURL: server.URL + "/v1", Timeout: time.Second})
	require.NoError(t, err)

	content, err := completer.Complete(context.Background(), "extract")
	require.NoError(t, err)
	require.Equal(t, `{"ok": true}`, content)
	require.Equal(t, "llama3.2", completer.Model())
}

func TestCompleteEmptyChoices(t *testing.T) {
	server := chatServer(t, func(w http.ResponseWriter, _ map[string]any) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[]}`))
	})

	completer, err := NewOpenAICompleter(OpenAIConfig{BaseURL: server.URL + "/v1", Timeout: time.Second})
	require.NoError(t, err)

	_, err = completer.Complete(context.Background(), "extract")
	require.ErrorIs(t, err, ErrEmptyResponse)
}

func TestCompleteUpstreamError(t *testing.T) {
	server := chatServer(t, func(w http.ResponseWriter, _ map[string]any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"message":"model \"llama3.2\" not found","type":"api_error"}}`))
	})

	completer, err := NewOpenAICompleter(OpenAIConfig{BaseURL: server.URL + "/v1", Timeout: time.Second})
	require.NoError(t, err)

	_, err = completer.Complete(context.Background(), "extract")
	require.ErrorIs(t, err, ErrUpstream)
}

func TestCompleteRetriesOnTimeout(t *testing.T) {
	var calls atomic.Int32
	server := chatServer(t, func(w http.ResponseWriter, _ map[string]any) {
		if calls.Add(1) == 1 {
			time.Sleep(200 * time.Millisecond)
		}
		writeCompletion(w, "[]")
	})

	completer, err := NewOpenAICompleter(OpenAIConfig{
		BaseURL: server.URL + "/v1",
		Timeout: 50 * time.Millisecond,
		Retries: 2,
	})
	require.NoError(t, err)

	content, err := completer.Complete(context.Background(), "extract")
	require.NoError(t, err)
	require.Equal(t, "[]", content)
	require.EqualValues(t, 2, calls.Load())
}

func TestCompleteTimesOutAfterRetries(t *testing.T) {
	server := chatServer(t, func(w http.ResponseWriter, _ map[string]any) {
		time.Sleep(200 * time.Millisecond)
		writeCompletion(w, "late")
	})

	completer, err := NewOpenAICompleter(OpenAIConfig{
		BaseURL: server.URL + "/v1",
		Timeout: 30 * time.Millisecond,
		Retries: 2,
	})
	require.NoError(t, err)

	_, err = completer.Complete(context.Background(), "extract")
	require.ErrorIs(t, err, ErrTimeout)
}

func TestCompleteUnavailable(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	completer, err := NewOpenAICompleter(OpenAIConfig{BaseURL: "http://" + addr + "/v1", Timeout: time.Second})
	require.NoError(t, err)

	err = completer.Warmup(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestNewOpenAICompleterRejectsBadURL(t *testing.T) {
	_, err := NewOpenAICompleter(OpenAIConfig{BaseURL: "localhost:11434"})
	require.Error(t, err)
}

func TestPingListsModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/models", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"llama3.2","object":"model"}]}`))
	}))
	t.Cleanup(server.Close)

	completer, err := NewOpenAICompleter(OpenAIConfig{BaseURL: server.URL + "/v1", Timeout: time.Second})
	require.NoError(t, err)
	require.NoError(t, completer.Ping(context.Background()))
}
