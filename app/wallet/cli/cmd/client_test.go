package cmd

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Client(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"address":"0x01","name":"kennedy","balance":50}`))
	})
	mux.HandleFunc("/rejected", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"sent":false,"reason":"insufficient funds"}`))
	})
	mux.HandleFunc("/invalid", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"data validation error","fields":{"recipient":"recipient is a required field"}}`))
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"Internal Server Error"}`))
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	url = srv.URL

	t.Log("Given the need to talk to a node.")
	{
		var bal balance
		if err := get("/ok", &bal); err != nil {
			t.Fatalf("\t%s\tShould be able to get a balance: %s", failed, err)
		}
		if bal.Balance != 50 || bal.Name != "kennedy" {
			t.Fatalf("\t%s\tShould decode the balance: %+v", failed, bal)
		}
		t.Logf("\t%s\tShould decode a successful response.", success)

		var res sendResult
		if err := post("/rejected", struct{}{}, &res); err != nil {
			t.Fatalf("\t%s\tShould decode a rejected transaction: %s", failed, err)
		}
		if res.Sent || res.Reason != "insufficient funds" {
			t.Fatalf("\t%s\tShould report the reason: %+v", failed, res)
		}
		t.Logf("\t%s\tShould decode a rejected transaction.", success)

		if err := post("/invalid", struct{}{}, &res); err == nil {
			t.Fatalf("\t%s\tShould fail on a validation error.", failed)
		}
		t.Logf("\t%s\tShould fail on a validation error.", success)

		if err := get("/broken", &bal); err == nil {
			t.Fatalf("\t%s\tShould fail on a server error.", failed)
		}
		t.Logf("\t%s\tShould fail on a server error.", success)
	}
}
