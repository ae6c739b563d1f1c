package request

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mallfront/storefront/pkg/apierr"
)

func TestClassify_SuccessCodes(t *testing.T) {
	c := Classifier{}
	tests := []struct {
		name string
		body string
	}{
		{"code absent", `{"data":{"id":42}}`},
		{"code 200", `{"code":200,"data":{"id":42}}`},
		{"code 1000", `{"code":1000,"data":{"id":42}}`},
		{"code 1001", `{"code":1001,"msg":"created","data":{"id":42}}`},
		{"code 98765", `{"code":98765,"data":{"id":42}}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := c.Classify(Exchange{Path: "/orders/42", Status: 200, Body: []byte(tc.body)})
			if r.Err != nil {
				t.Fatalf("Err = %v, want nil", r.Err)
			}
			if len(r.Effects) != 0 {
				t.Errorf("Effects = %v, want none", r.Effects)
			}
			if got := string(r.Envelope.Data); got != `{"id":42}` {
				t.Errorf("Data = %s, want {\"id\":42}", got)
			}
			if string(r.Envelope.Raw) != tc.body {
				t.Errorf("Raw = %s, want %s", r.Envelope.Raw, tc.body)
			}
		})
	}
}

func TestClassify_EmptyAndNonJSONBodiesResolve(t *testing.T) {
	c := Classifier{}
	for _, body := range []string{"", "  \n", "OK", "[1,2,3]"} {
		r := c.Classify(Exchange{Path: "/carts", Status: 200, Body: []byte(body)})
		if r.Err != nil {
			t.Errorf("body %q: Err = %v", body, r.Err)
		}
		if r.Envelope == nil || string(r.Envelope.Raw) != body {
			t.Errorf("body %q: Envelope = %+v", body, r.Envelope)
		}
	}
}

func TestClassify_EnvelopeFailures(t *testing.T) {
	c := Classifier{LoginPath: "/login"}
	tests := []struct {
		name    string
		body    string
		kind    apierr.Kind
		effects []Effect
	}{
		{"400 surfaces msg", `{"code":400,"msg":"sku missing"}`, apierr.BadRequest,
			[]Effect{NotifyError("sku missing")}},
		{"401 redirects", `{"code":401,"msg":"x"}`, apierr.Unauthenticated,
			[]Effect{RedirectTo("/login", ReasonLogin)}},
		{"499 redirects expired", `{"code":499}`, apierr.SessionExpired,
			[]Effect{RedirectTo("/login", ReasonExpired)}},
		{"500 surfaces msg", `{"code":500,"msg":"db down"}`, apierr.ServerError,
			[]Effect{NotifyError("db down")}},
		{"unrecognised code", `{"code":302}`, apierr.Unknown,
			[]Effect{NotifyError("unknown error 302")}},
		{"code just below reserved range", `{"code":999}`, apierr.Unknown,
			[]Effect{NotifyError("unknown error 999")}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := c.Classify(Exchange{Path: "/carts", Status: 200, Body: []byte(tc.body)})
			if got := apierr.KindOf(r.Err); got != tc.kind {
				t.Errorf("kind = %q, want %q", got, tc.kind)
			}
			if r.Envelope != nil {
				t.Errorf("Envelope = %+v, want nil on rejection", r.Envelope)
			}
			if diff := cmp.Diff(tc.effects, r.Effects); diff != "" {
				t.Errorf("effects mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestClassify_TransportFailures(t *testing.T) {
	c := Classifier{LoginPath: "/login"}
	tests := []struct {
		name    string
		status  int
		body    string
		kind    apierr.Kind
		effects []Effect
	}{
		{"400 with msg", 400, `{"msg":"bad json"}`, apierr.BadRequest, []Effect{NotifyError("bad json")}},
		{"400 without body", 400, ``, apierr.BadRequest, []Effect{NotifyError("bad request")}},
		{"401", 401, ``, apierr.Unauthenticated, []Effect{RedirectTo("/login", ReasonLogin)}},
		{"403", 403, `{"msg":"nope"}`, apierr.Forbidden, []Effect{NotifyError(MsgForbidden)}},
		{"499", 499, ``, apierr.SessionExpired, []Effect{RedirectTo("/login", ReasonExpired)}},
		{"500", 500, `<html>`, apierr.ServerError, []Effect{NotifyError(MsgServerBusy)}},
		{"503", 503, ``, apierr.ServerError, []Effect{NotifyError(MsgServerBusy)}},
		{"404", 404, ``, apierr.Unknown, []Effect{NotifyError("unknown error 404")}},
		{"502", 502, ``, apierr.Unknown, []Effect{NotifyError("unknown error 502")}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := c.Classify(Exchange{Path: "/orders", Status: tc.status, Body: []byte(tc.body)})
			var ae *apierr.Error
			if !errors.As(r.Err, &ae) {
				t.Fatalf("Err = %v, want *apierr.Error", r.Err)
			}
			if ae.Kind != tc.kind {
				t.Errorf("kind = %q, want %q", ae.Kind, tc.kind)
			}
			if ae.Status != tc.status {
				t.Errorf("status = %d, want %d", ae.Status, tc.status)
			}
			if ae.Path != "/orders" {
				t.Errorf("path = %q, want /orders", ae.Path)
			}
			if diff := cmp.Diff(tc.effects, r.Effects); diff != "" {
				t.Errorf("effects mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestClassify_NetworkError(t *testing.T) {
	cause := context.DeadlineExceeded
	r := Classifier{}.Classify(Exchange{Path: "/orders", Err: cause})
	if !apierr.Is(r.Err, apierr.Unknown) {
		t.Fatalf("kind = %q, want unknown", apierr.KindOf(r.Err))
	}
	if !errors.Is(r.Err, cause) {
		t.Error("network error should wrap the transport cause")
	}
	if diff := cmp.Diff([]Effect{NotifyError("unknown error 0")}, r.Effects); diff != "" {
		t.Errorf("effects mismatch (-want +got):\n%s", diff)
	}
}

func TestClassify_HealthFailuresAreSilent(t *testing.T) {
	c := Classifier{}
	for _, x := range []Exchange{
		{Path: "/carts/health", Err: errors.New("connection refused")},
		{Path: "/carts/health", Status: 500},
		{Path: "/users/health", Status: 401},
		{Path: "/users/health", Status: 499},
		{Path: "/orders/health", Status: 404},
	} {
		r := c.Classify(x)
		if !apierr.Is(r.Err, apierr.HealthCheckFailed) {
			t.Errorf("%+v: kind = %q, want health_check_failed", x, apierr.KindOf(r.Err))
		}
		if len(r.Effects) != 0 {
			t.Errorf("%+v: effects = %v, want none", x, r.Effects)
		}
	}
}

func TestClassify_HealthBodyNotInterpreted(t *testing.T) {
	r := Classifier{}.Classify(Exchange{Path: "/pays/health", Status: 200, Body: []byte(`{"code":500}`)})
	if r.Err != nil {
		t.Fatalf("2xx probe with failure code rejected: %v", r.Err)
	}
}

func TestClassify_Idempotent(t *testing.T) {
	c := Classifier{}
	x := Exchange{Path: "/carts", Status: 200, Body: []byte(`{"code":401}`)}
	first, second := c.Classify(x), c.Classify(x)
	if apierr.KindOf(first.Err) != apierr.KindOf(second.Err) {
		t.Errorf("kinds differ: %q vs %q", apierr.KindOf(first.Err), apierr.KindOf(second.Err))
	}
	if diff := cmp.Diff(first.Effects, second.Effects); diff != "" {
		t.Errorf("effects differ:\n%s", diff)
	}
}

func TestClassify_CustomHealthSuffix(t *testing.T) {
	c := Classifier{HealthSuffix: "/healthz"}
	r := c.Classify(Exchange{Path: "/carts/healthz", Status: 503})
	if !apierr.Is(r.Err, apierr.HealthCheckFailed) {
		t.Errorf("kind = %q, want health_check_failed", apierr.KindOf(r.Err))
	}
	r = c.Classify(Exchange{Path: "/carts/health", Status: 503})
	if !apierr.Is(r.Err, apierr.ServerError) {
		t.Errorf("kind = %q, want server_error", apierr.KindOf(r.Err))
	}
}
