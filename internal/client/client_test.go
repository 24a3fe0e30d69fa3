package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"shelfsync/internal/api"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	c, err := New(server.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, server
}

func TestClientStatus(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/status" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode(api.DaemonStatus{Running: true, PID: 42})
	})

	status, err := c.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Running || status.PID != 42 {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestClientListQueueFilters(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		got := r.URL.Query()["status"]
		if len(got) != 2 || got[0] != "pending" || got[1] != "failed" {
			t.Errorf("unexpected status filters: %v", got)
		}
		json.NewEncoder(w).Encode(api.TaskListResponse{Tasks: []api.Task{{ID: 7, Status: "pending"}}})
	})

	tasks, err := c.ListQueue(context.Background(), []string{"pending", "failed"})
	if err != nil {
		t.Fatalf("ListQueue: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != 7 {
		t.Fatalf("unexpected tasks: %+v", tasks)
	}
}

func TestClientEnqueue(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/queue" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req api.EnqueueRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.MessageID != 901 {
			t.Errorf("messageId = %d, want 901", req.MessageID)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(api.EnqueueResponse{Task: api.Task{ID: 3, MessageID: 901}, Created: true})
	})

	resp, err := c.Enqueue(context.Background(), api.EnqueueRequest{MessageID: 901})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if !resp.Created || resp.Task.ID != 3 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestClientErrorPayload(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"error": "task 5 is processing"})
	})

	err := c.RemoveTask(context.Background(), 5)
	if err == nil {
		t.Fatal("expected error for conflict response")
	}
	if !strings.Contains(err.Error(), "task 5 is processing") {
		t.Fatalf("error should carry daemon message, got: %v", err)
	}
}

func TestClientErrorWithoutBody(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.QueueStats(context.Background())
	if err == nil {
		t.Fatal("expected error for bad gateway")
	}
	if !strings.Contains(err.Error(), "502") {
		t.Fatalf("error should mention status code, got: %v", err)
	}
}

func TestClientMatchEncodesFileName(t *testing.T) {
	const fileName = "Иванов_Хроники Заката.zip"
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("file"); got != fileName {
			t.Errorf("file = %q, want %q", got, fileName)
		}
		json.NewEncoder(w).Encode(api.MatchResponse{
			FileName: fileName,
			Matches:  []api.Match{{BookID: 1, Title: "Хроники Заката", Score: 92}},
		})
	})

	resp, err := c.Match(context.Background(), fileName)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(resp.Matches) != 1 || resp.Matches[0].BookID != 1 {
		t.Fatalf("unexpected matches: %+v", resp.Matches)
	}
	if resp.Matches[0].Score != 92 {
		t.Fatalf("score = %d, want 92", resp.Matches[0].Score)
	}
}

func TestNewNormalizesAddress(t *testing.T) {
	c, err := New("127.0.0.1:7487")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.baseURL != "http://127.0.0.1:7487" {
		t.Fatalf("baseURL = %q", c.baseURL)
	}

	if _, err := New("   "); err == nil {
		t.Fatal("expected error for empty address")
	}
}

func TestClientRetryAll(t *testing.T) {
	c, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/queue/retry" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode(api.RetryResponse{Retried: 4})
	})

	retried, err := c.RetryAllFailed(context.Background())
	if err != nil {
		t.Fatalf("RetryAllFailed: %v", err)
	}
	if retried != 4 {
		t.Fatalf("retried = %d, want 4", retried)
	}
}
