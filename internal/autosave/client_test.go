package autosave

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

func TestHTTPClient_SaveDraftAndPublish(t *testing.T) {
	var got []map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("authorization = %q", r.Header.Get("Authorization"))
		}
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		got = append(got, body)

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v1/sessions/mine/draft":
			_, _ = w.Write([]byte(`{"code":0,"message":"ok","data":{"id":"s-42","status":"draft"}}`))
		case "/api/v1/sessions/mine/publish":
			_, _ = w.Write([]byte(`{"code":0,"message":"ok","data":{"id":"s-42","status":"published"}}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL+"/", "tok")
	id, err := client.SaveDraft(context.Background(), "", Draft{Title: "Morning Flow"})
	if err != nil {
		t.Fatalf("SaveDraft: %v", err)
	}
	if id != "s-42" {
		t.Fatalf("id = %q", id)
	}
	if err := client.Publish(context.Background(), id); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	want := []map[string]interface{}{
		{"title": "Morning Flow", "tags": []interface{}{}, "payload_url": ""},
		{"session_id": "s-42"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("request bodies = %#v, want %#v", got, want)
	}
}

func TestHTTPClient_ErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":40000,"message":"payload_url: is required to publish"}`))
	}))
	defer srv.Close()

	err := NewHTTPClient(srv.URL, "tok").Publish(context.Background(), "s-1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusBadRequest || apiErr.Code != 40000 {
		t.Fatalf("api error = %+v", apiErr)
	}
}
