package web_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/yeetcoin/blockchain/foundation/web"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

type request struct {
	Amount int64 `json:"amount"`
}

func (r request) Validate() error {
	if r.Amount < 0 {
		return errors.New("negative amount")
	}
	return nil
}

func Test_App(t *testing.T) {
	var order []string
	mw := func(name string) web.Middleware {
		return func(handler web.Handler) web.Handler {
			return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
				order = append(order, name)
				return handler(ctx, w, r)
			}
		}
	}

	app := web.NewApp(nil, mw("app"))

	app.Handle(http.MethodGet, "v1", "/echo/:name", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		if web.GetTraceID(ctx) == "" {
			return errors.New("no trace id")
		}
		return web.Respond(ctx, w, web.Param(r, "name"), http.StatusOK)
	}, mw("route"))

	var decodeErr error
	app.Handle(http.MethodPost, "v1", "/decode", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		var req request
		decodeErr = web.Decode(r, &req)
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	})

	t.Log("Given the need to route requests through middleware.")
	{
		w := httptest.NewRecorder()
		app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/echo/alice", nil))

		if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != `"alice"` {
			t.Fatalf("\t%s\tShould answer with the route parameter: %d %s", failed, w.Code, w.Body)
		}
		t.Logf("\t%s\tShould answer with the route parameter.", success)

		if len(order) != 2 || order[0] != "app" || order[1] != "route" {
			t.Fatalf("\t%s\tShould run app middleware before route middleware: %v", failed, order)
		}
		t.Logf("\t%s\tShould run app middleware before route middleware.", success)

		tt := []struct {
			name string
			body string
			fail bool
		}{
			{"valid", `{"amount":5}`, false},
			{"invalid", `{"amount":-5}`, true},
			{"unknown", `{"amount":5,"extra":1}`, true},
			{"malformed", `{"amount":`, true},
		}

		for _, tst := range tt {
			w := httptest.NewRecorder()
			app.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/decode", strings.NewReader(tst.body)))

			if (decodeErr != nil) != tst.fail {
				t.Fatalf("\t%s\tShould decode %s as expected: %v", failed, tst.name, decodeErr)
			}
			t.Logf("\t%s\tShould decode %s as expected.", success, tst.name)
		}
	}
}

func Test_Shutdown(t *testing.T) {
	t.Log("Given the need to identify shutdown errors.")
	{
		err := web.NewShutdownError("integrity")
		if !web.IsShutdown(err) || !web.IsShutdown(errors.Join(errors.New("x"), err)) {
			t.Fatalf("\t%s\tShould identify a shutdown error.", failed)
		}
		if web.IsShutdown(errors.New("integrity")) {
			t.Fatalf("\t%s\tShould not identify a regular error.", failed)
		}
		t.Logf("\t%s\tShould identify a shutdown error.", success)
	}
}
