package portal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSessionMergesCookies(t *testing.T) {
	var seen string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("sid"); err == nil {
			seen = c.Value
		}
		http.SetCookie(w, &http.Cookie{Name: "sid", Value: "s1"})
		fmt.Fprint(w, "ok")
	}))
	defer server.Close()

	sess := NewSession(5 * time.Second)
	if _, err := sess.Request(context.Background(), ReqOptions{URL: server.URL}); err != nil {
		t.Fatalf("first request: %v", err)
	}
	if _, err := sess.Request(context.Background(), ReqOptions{URL: server.URL}); err != nil {
		t.Fatalf("second request: %v", err)
	}
	if seen != "s1" {
		t.Fatalf("server saw cookie %q, want s1", seen)
	}
}

func TestSessionExpectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "sid", Value: "s1"})
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	sess := NewSession(5 * time.Second)
	_, err := sess.Request(context.Background(), ReqOptions{URL: server.URL})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("err = %v, want StatusError", err)
	}
	if statusErr.Status != http.StatusForbidden || statusErr.Expected != http.StatusOK {
		t.Fatalf("StatusError = %+v", statusErr)
	}

	// Cookies from a failed call must not be kept.
	host := server.Listener.Addr().String()
	if len(sess.Cookies(host)) != 0 {
		t.Fatal("failed response cookies must not merge into the cache")
	}
}

func TestSessionDoesNotFollowRedirects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/next" {
			t.Error("redirect must not be followed")
			return
		}
		w.Header().Set("Location", "/next")
		w.WriteHeader(http.StatusFound)
	}))
	defer server.Close()

	sess := NewSession(5 * time.Second)
	res, err := sess.Request(context.Background(), ReqOptions{
		URL:            server.URL,
		ExpectedStatus: http.StatusFound,
	})
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if got := res.Header.Get("Location"); got != "/next" {
		t.Fatalf("Location = %q, want /next", got)
	}
}

func TestSessionExplicitCookiesOverrideCache(t *testing.T) {
	var seen []string
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = nil
		for _, c := range r.Cookies() {
			seen = append(seen, c.Name+"="+c.Value)
		}
	}))
	defer server.Close()

	host := server.Listener.Addr().String()
	sess := NewSession(5 * time.Second)
	sess.SetCookie(host, "cached", "1")

	_, err := sess.Request(context.Background(), ReqOptions{
		URL:     server.URL,
		Cookies: map[string]string{"explicit": "2"},
	})
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if len(seen) != 1 || seen[0] != "explicit=2" {
		t.Fatalf("server saw cookies %v, want only explicit=2", seen)
	}
}

func TestSessionEvictCookies(t *testing.T) {
	sess := NewSession(time.Second)
	sess.SetCookie("a.example", "k", "v")
	sess.SetCookie("b.example", "k", "v")

	sess.EvictCookies("a.example")
	if len(sess.Cookies("a.example")) != 0 {
		t.Fatal("a.example cookies must be gone")
	}
	if len(sess.Cookies("b.example")) != 1 {
		t.Fatal("b.example cookies must survive")
	}

	sess.Reset()
	if len(sess.Cookies("b.example")) != 0 {
		t.Fatal("Reset must clear all hosts")
	}
}

func TestSessionTransportError(t *testing.T) {
	sess := NewSession(time.Second)
	_, err := sess.Request(context.Background(), ReqOptions{URL: "http://127.0.0.1:1/nope"})
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("err = %v, want TransportError", err)
	}
}
