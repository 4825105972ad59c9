// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(url string) *Client {
	return New(Options{
		Endpoint:   url,
		APIKey:     "sk-test",
		MaxRetries: 1,
	})
}

func TestChatStreamDeliversChunks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("authorization = %q", got)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	s := c.ChatStream(context.Background(), ChatRequest{Model: "gpt-4o-mini"})

	var content strings.Builder
	if err := s.OnData(func(chunk ChatCompletionChunk) {
		content.WriteString(chunk.GetContent())
	}); err != nil {
		t.Fatalf("OnData: %v", err)
	}

	ok, err := s.Wait()
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if !ok {
		t.Fatal("Wait returned not completed")
	}
	if content.String() != "Hello" {
		t.Errorf("content = %q, want Hello", content.String())
	}
}

func TestChatStreamSkipsMalformedChunks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {not json at all\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"ok\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	s := c.ChatStream(context.Background(), ChatRequest{})

	var content strings.Builder
	s.OnData(func(chunk ChatCompletionChunk) {
		content.WriteString(chunk.GetContent())
	})

	if ok, err := s.Wait(); !ok || err != nil {
		t.Fatalf("Wait = %v, %v", ok, err)
	}
	if content.String() != "ok" {
		t.Errorf("content = %q, want ok", content.String())
	}
}

func TestChatStreamAuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key","code":"invalid_api_key"}}`)
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	s := c.ChatStream(context.Background(), ChatRequest{})

	ok, err := s.Wait()
	if ok {
		t.Fatal("Wait reported completion on auth failure")
	}
	if !errors.Is(err, ErrAuthFailed) {
		t.Errorf("err = %v, want ErrAuthFailed", err)
	}
}

func TestChatStreamAbort(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n\n")
		w.(http.Flusher).Flush()
		<-release
	}))
	defer server.Close()
	defer close(release)

	c := newTestClient(server.URL)
	s := c.ChatStream(context.Background(), ChatRequest{})

	received := make(chan struct{}, 1)
	s.OnData(func(ChatCompletionChunk) {
		select {
		case received <- struct{}{}:
		default:
		}
	})

	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("no chunk received before abort")
	}
	s.Abort()

	ok, err := s.Wait()
	if ok || err != nil {
		t.Errorf("Wait after abort = %v, %v, want false, nil", ok, err)
	}
}

func TestChatStreamTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"partial\"}}]}\n\n")
		w.(http.Flusher).Flush()
		<-release
	}))
	defer server.Close()
	defer close(release)

	c := New(Options{Endpoint: server.URL, APIKey: "sk-test", StreamTimeout: 100 * time.Millisecond})
	s := c.ChatStream(context.Background(), ChatRequest{})

	ok, err := s.Wait()
	if ok {
		t.Fatal("Wait reported completion after timeout")
	}
	var streamErr *StreamError
	if !errors.As(err, &streamErr) {
		t.Fatalf("err = %v, want StreamError", err)
	}
	if streamErr.Partial != "partial" {
		t.Errorf("partial = %q, want partial", streamErr.Partial)
	}
}

func TestChatRetriesServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"error":{"message":"upstream hiccup"}}`)
			return
		}
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"hi"},"finish_reason":"stop"}]}`)
	}))
	defer server.Close()

	c := New(Options{Endpoint: server.URL, APIKey: "sk-test", MaxRetries: 2})
	resp, err := c.Chat(context.Background(), ChatRequest{Model: "gpt-4o-mini"})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.GetContent() != "hi" {
		t.Errorf("content = %q, want hi", resp.GetContent())
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestGenerateImages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/images/generations" {
			t.Errorf("path = %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"created":1700000000,"data":[{"url":"https://img.example/cat.png"}]}`)
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	resp, err := c.GenerateImages(context.Background(), ImagesRequest{Prompt: "a cat"})
	if err != nil {
		t.Fatalf("GenerateImages: %v", err)
	}
	if len(resp.Data) != 1 || resp.Data[0].URL != "https://img.example/cat.png" {
		t.Errorf("data = %+v", resp.Data)
	}
}

func TestNotConfigured(t *testing.T) {
	c := New(Options{Endpoint: "https://example.com"})
	if _, err := c.Chat(context.Background(), ChatRequest{}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Chat: %v, want ErrNotConfigured", err)
	}
	if ok, err := c.ChatStream(context.Background(), ChatRequest{}).Wait(); ok || !errors.Is(err, ErrNotConfigured) {
		t.Errorf("ChatStream Wait = %v, %v, want false, ErrNotConfigured", ok, err)
	}
}
