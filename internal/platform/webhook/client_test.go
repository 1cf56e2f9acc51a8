package webhook

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func testClient(secret string) *Client {
	return NewClient(secret, zerolog.New(nil).Level(zerolog.Disabled))
}

func TestPost_SignsPayload(t *testing.T) {
	var gotSig, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get("X-Webhook-Signature")
		buf, _ := io.ReadAll(r.Body)
		gotBody = string(buf)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := testClient("topsecret")
	_, delivery, err := c.Post(context.Background(), srv.URL, map[string]string{"prompt": "discharge summary"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if delivery.Attempts != 1 {
		t.Errorf("expected single attempt, got %d", delivery.Attempts)
	}

	want := "sha256=" + SignPayload([]byte(gotBody), "topsecret")
	if gotSig != want {
		t.Errorf("signature mismatch: got %q want %q", gotSig, want)
	}
}

func TestPost_RetriesServerErrors(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"text":"ok"}`))
	}))
	defer srv.Close()

	body, delivery, err := testClient("s").Post(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if delivery.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", delivery.Attempts)
	}
	if ExtractText(body) != "ok" {
		t.Errorf("unexpected body %s", body)
	}
}

func TestPost_ClientErrorIsTerminal(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	_, delivery, err := testClient("s").Post(context.Background(), srv.URL, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 || delivery.Attempts != 1 {
		t.Errorf("a 4xx must not be retried, got %d attempts", attempts)
	}
}

func TestExtractText(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"json text field", `{"text":"Patient stable."}`, "Patient stable."},
		{"json result field", `{"result":"42 beds free"}`, "42 beds free"},
		{"raw text", "plain response\n", "plain response"},
		{"html wrapped", "<html><body><p>Generated note</p></body></html>", "Generated note"},
		{"json with html", `{"content":"<html><body>inner</body></html>"}`, "inner"},
		{"empty", "  ", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExtractText([]byte(tc.body)); got != tc.want {
				t.Errorf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestExtractText_NonHTMLAngleBracketsKept(t *testing.T) {
	got := ExtractText([]byte("dose < 5mg"))
	if !strings.Contains(got, "<") {
		t.Errorf("non-HTML input must pass through, got %q", got)
	}
}
