package okta

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pranav-okta/Cosmos-Circuitry/internal/approval"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		OrgURL:       srv.URL,
		ClientID:     "client-1",
		ClientSecret: "secret-1",
	})
}

func TestBegin_ReturnsOOBCode(t *testing.T) {
	t.Parallel()

	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/primary-authenticate" {
			t.Errorf("path: got %q, want /primary-authenticate", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm: %v", err)
		}
		if got := r.PostForm.Get("client_id"); got != "client-1" {
			t.Errorf("client_id: got %q, want client-1", got)
		}
		if got := r.PostForm.Get("client_secret"); got != "secret-1" {
			t.Errorf("client_secret not sent")
		}
		if got := r.PostForm.Get("login_hint"); got != "admin@example.com" {
			t.Errorf("login_hint: got %q", got)
		}
		if got := r.PostForm.Get("channel_hint"); got != "push" {
			t.Errorf("channel_hint: got %q, want push", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"oob_code":"oob-xyz","expires_in":300,"interval":5,"channel":"push"}`))
	})

	handle, err := c.Begin(context.Background(), approval.BeginRequest{
		Approver:    "admin@example.com",
		Action:      "delete_user",
		ChannelHint: "push",
	})
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if handle != "oob-xyz" {
		t.Errorf("handle: got %q, want oob-xyz", handle)
	}
}

func TestBegin_ProviderRejects(t *testing.T) {
	t.Parallel()

	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_request","error_description":"unknown user"}`))
	})

	if _, err := c.Begin(context.Background(), approval.BeginRequest{Approver: "nobody"}); err == nil {
		t.Fatal("Begin should fail on provider rejection")
	}
}

func TestBegin_MissingOOBCode(t *testing.T) {
	t.Parallel()

	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"expires_in":300}`))
	})

	if _, err := c.Begin(context.Background(), approval.BeginRequest{Approver: "admin"}); err == nil {
		t.Fatal("Begin should fail when no oob_code is returned")
	}
}

func TestCheck_Approved(t *testing.T) {
	t.Parallel()

	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/token" {
			t.Errorf("path: got %q, want /token", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm: %v", err)
		}
		if got := r.PostForm.Get("grant_type"); got != oobGrantType {
			t.Errorf("grant_type: got %q", got)
		}
		if got := r.PostForm.Get("oob_code"); got != "oob-xyz" {
			t.Errorf("oob_code: got %q", got)
		}
		_, _ = w.Write([]byte(`{"token_type":"Bearer","access_token":"..."}`))
	})

	res, err := c.Check(context.Background(), "oob-xyz")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if res.Status != approval.CheckApproved {
		t.Errorf("status: got %q, want approved", res.Status)
	}
}

func TestCheck_PendingCodes(t *testing.T) {
	t.Parallel()

	for _, code := range []string{codeAuthorizationPending, codeSlowDown} {
		c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"` + code + `"}`))
		})

		res, err := c.Check(context.Background(), "oob-xyz")
		if err != nil {
			t.Fatalf("Check(%s): %v", code, err)
		}
		if res.Status != approval.CheckPending {
			t.Errorf("%s: got %q, want pending", code, res.Status)
		}
	}
}

func TestCheck_DeniedWithDetail(t *testing.T) {
	t.Parallel()

	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"access_denied","error_description":"user rejected the request"}`))
	})

	res, err := c.Check(context.Background(), "oob-xyz")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if res.Status != approval.CheckDenied {
		t.Fatalf("status: got %q, want denied", res.Status)
	}
	if res.ErrorCode != "access_denied" {
		t.Errorf("error code: got %q, want access_denied", res.ErrorCode)
	}
	if res.Detail != "user rejected the request" {
		t.Errorf("detail: got %q", res.Detail)
	}
}

func TestCheck_ExpiredCodeIsDenied(t *testing.T) {
	t.Parallel()

	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"expired_token"}`))
	})

	res, err := c.Check(context.Background(), "oob-xyz")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if res.Status != approval.CheckDenied {
		t.Errorf("expired handle: got %q, want denied", res.Status)
	}
}

func TestCheck_TransportFailureIsError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // connection refused from now on
	c := NewClient(Config{OrgURL: srv.URL, ClientID: "client-1"})

	if _, err := c.Check(context.Background(), "oob-xyz"); err == nil {
		t.Fatal("Check should return an error when the provider is unreachable")
	}
}

func TestCheck_NonJSONErrorBody(t *testing.T) {
	t.Parallel()

	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream exploded"))
	})

	res, err := c.Check(context.Background(), "oob-xyz")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if res.Status != approval.CheckDenied {
		t.Errorf("status: got %q, want denied", res.Status)
	}
}
