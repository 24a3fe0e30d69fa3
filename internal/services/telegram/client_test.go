package telegram_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"shelfsync/internal/services"
	"shelfsync/internal/services/telegram"
)

func newClient(t *testing.T, handler http.Handler) *telegram.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := telegram.New("test-token", server.URL, -100200, telegram.WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestListRecentFiles(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/bottest-token/getChannelDocuments") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.PostFormValue("chat_id"); got != "-100200" {
			t.Errorf("chat_id = %s", got)
		}
		io.WriteString(w, `{"ok":true,"result":[
            {"message_id":42,"date":1700000000,"chat":{"id":-100200},
             "document":{"file_id":"f1","file_name":"book.fb2.zip","file_size":1234}},
            {"message_id":43,"date":1700000100,"chat":{"id":-100200}}
        ]}`)
	}))

	files, err := client.ListRecentFiles(context.Background(), 50)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("got %d files, want 1 (messages without documents are skipped)", len(files))
	}
	file := files[0]
	if file.MessageID != 42 || file.FileName != "book.fb2.zip" || file.FileSize != 1234 {
		t.Fatalf("unexpected file: %+v", file)
	}
	if file.SentAt.IsZero() {
		t.Fatal("sent_at not populated")
	}
}

func TestThrottledEnvelopeCarriesRetryAfter(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"ok":false,"error_code":429,"description":"Too Many Requests","parameters":{"retry_after":31}}`)
	}))

	_, err := client.ListRecentFiles(context.Background(), 10)
	if !errors.Is(err, services.ErrThrottled) {
		t.Fatalf("error = %v, want throttled", err)
	}
	wait, ok := services.RetryAfter(err)
	if !ok || wait != 31*time.Second {
		t.Fatalf("retry after = %s ok=%v, want 31s", wait, ok)
	}
	if !services.IsRetryable(err) {
		t.Fatal("throttled errors must be retryable")
	}
}

func TestHTTP429HeaderFallback(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "12")
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, "slow down")
	}))

	_, err := client.ListRecentFiles(context.Background(), 10)
	wait, ok := services.RetryAfter(err)
	if !ok || wait != 12*time.Second {
		t.Fatalf("retry after = %s ok=%v, want 12s", wait, ok)
	}
}

func TestErrorCodeClassification(t *testing.T) {
	cases := []struct {
		code int
		want error
	}{
		{400, services.ErrValidation},
		{404, services.ErrNotFound},
		{500, services.ErrTransient},
	}
	for _, tc := range cases {
		client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"ok":false,"error_code":`+itoa(tc.code)+`,"description":"nope"}`)
		}))
		_, err := client.FindFile(context.Background(), 42)
		if !errors.Is(err, tc.want) {
			t.Errorf("code %d: error = %v, want %v", tc.code, err, tc.want)
		}
	}
}

func itoa(v int) string {
	switch v {
	case 400:
		return "400"
	case 404:
		return "404"
	default:
		return "500"
	}
}

func TestFetchFileStreamsBytes(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/bottest-token/getFile"):
			io.WriteString(w, `{"ok":true,"result":{"file_id":"f1","file_path":"documents/book.fb2.zip","file_size":7}}`)
		case strings.HasSuffix(r.URL.Path, "/file/bottest-token/documents/book.fb2.zip"):
			io.WriteString(w, "content")
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	body, err := client.FetchFile(context.Background(), telegram.File{FileID: "f1", FileName: "book.fb2.zip"})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "content" {
		t.Fatalf("body = %q", data)
	}
}

func TestFetchFileWithoutID(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}))
	_, err := client.FetchFile(context.Background(), telegram.File{})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("error = %v, want validation", err)
	}
	if services.IsRetryable(err) {
		t.Fatal("validation errors must not be retryable")
	}
}

func TestFindFileWithoutDocument(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"ok":true,"result":{"message_id":42,"date":1700000000,"chat":{"id":-100200}}}`)
	}))
	file, err := client.FindFile(context.Background(), 42)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if file != nil {
		t.Fatalf("expected nil for text message, got %+v", file)
	}
}
