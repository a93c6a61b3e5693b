package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestInstrumentedClient_PostJSON(t *testing.T) {
	var gotBody, gotCT, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotCT = r.Header.Get("Content-Type")
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"ok":true,"result":{"message_id":7}}`))
	}))
	defer srv.Close()

	c, err := NewInstrumentedClient(WithBaseURL(srv.URL), WithProviderName("test"))
	if err != nil {
		t.Fatal(err)
	}

	var out struct {
		OK     bool `json:"ok"`
		Result struct {
			MessageID int `json:"message_id"`
		} `json:"result"`
	}
	resp, err := c.NewRequest().
		SetBody(map[string]string{"chat_id": "1"}).
		SetQueryParam("a", "b c").
		SetResult(&out).
		Post(context.Background(), "/botX/sendMessage")
	if err != nil {
		t.Fatalf("Post() error: %v", err)
	}

	if resp.IsError() || !out.OK || out.Result.MessageID != 7 {
		t.Errorf("response = %d %s, decoded %+v", resp.StatusCode, resp.String(), out)
	}
	if gotCT != "application/json" || gotBody != `{"chat_id":"1"}` {
		t.Errorf("server saw %q %q", gotCT, gotBody)
	}
	if gotQuery != "a=b+c" {
		t.Errorf("query = %q", gotQuery)
	}
}

func TestInstrumentedClient_ErrorStatusAndRedaction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false}`))
	}))
	defer srv.Close()

	redact := func(s string) string { return strings.ReplaceAll(s, "secret", "***") }
	c, err := NewInstrumentedClient(WithBaseURL(srv.URL), WithURLRedactor(redact))
	if err != nil {
		t.Fatal(err)
	}

	resp, err := c.NewRequest().SetBody("raw").Post(context.Background(), "/botsecret/sendMessage")
	if err != nil {
		t.Fatalf("Post() error: %v", err)
	}
	if !resp.IsError() {
		t.Errorf("IsError() = false for %d", resp.StatusCode)
	}

	srv.Close()
	_, err = c.NewRequest().Get(context.Background(), "/botsecret/getMe")
	if err == nil {
		t.Fatal("expected transport error against closed server")
	}
	if strings.Contains(err.Error(), "secret") {
		t.Errorf("error leaks credential: %v", err)
	}
}

type recordingTransport struct{ got *http.Request }

func (rt *recordingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	rt.got = r
	return &http.Response{
		StatusCode: http.StatusAccepted,
		Body:       io.NopCloser(strings.NewReader("{}")),
		Header:     http.Header{},
		Request:    r,
	}, nil
}

func TestInstrumentedClient_HeadersAndTransport(t *testing.T) {
	rt := &recordingTransport{}
	c, err := NewInstrumentedClient(
		WithBaseURL("https://api.example/"),
		WithHeaders(map[string]string{"Accept": "application/json"}),
		WithRoundTripper(rt),
	)
	if err != nil {
		t.Fatal(err)
	}

	resp, err := c.NewRequest().Get(context.Background(), "/v1/ping")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if rt.got == nil || rt.got.URL.String() != "https://api.example/v1/ping" {
		t.Fatalf("request = %+v", rt.got)
	}
	if rt.got.Header.Get("Accept") != "application/json" {
		t.Errorf("Accept = %q", rt.got.Header.Get("Accept"))
	}
}
