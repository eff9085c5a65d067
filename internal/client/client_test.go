package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func newFakeServer(t *testing.T, handler http.HandlerFunc) (*Client, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return New(srv.URL+"/api", WithToken("tok")), &calls
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, body)
}

func TestSubmitRejectsBlankDeviceWithoutRequest(t *testing.T) {
	c, calls := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, `{"success":true,"code":100000,"message":"ok"}`)
	})

	for _, id := range []string{"", "   ", "\t\n"} {
		_, err := c.SubmitAccessRequest(context.Background(), AccessRequestInput{DeviceID: id})
		if !IsKind(err, KindInvalidInput) {
			t.Fatalf("device %q: err = %v, want invalid input", id, err)
		}
	}
	if n := atomic.LoadInt32(calls); n != 0 {
		t.Fatalf("expected no requests, got %d", n)
	}
}

func TestSubmitSendsTrimmedDeviceAndStoresToken(t *testing.T) {
	var got map[string]interface{}
	c, _ := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/access-requests" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("missing bearer token")
		}
		json.NewDecoder(r.Body).Decode(&got)
		writeJSON(w, http.StatusCreated, `{"success":true,"code":100000,"message":"submitted",
			"state":"pending","token":"fresh","request":{"id":7,"type":"request","status":"pending","deviceId":"12345"},
			"user":{"id":3,"username":"alice","isVerified":false,"deviceId":null}}`)
	})

	res, err := c.SubmitAccessRequest(context.Background(), AccessRequestInput{FromUserID: 3, DeviceID: "  12345 "})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got["deviceId"] != "12345" || got["fromUserId"] != float64(3) {
		t.Errorf("request body = %v", got)
	}
	if res.Message != "submitted" || res.Request.ID != 7 || res.State != "pending" {
		t.Errorf("result = %+v", res)
	}
	if c.Token() != "fresh" {
		t.Errorf("token = %q, want fresh", c.Token())
	}
}

func TestUserDecodingNormalizesFields(t *testing.T) {
	var u User
	if err := json.Unmarshal([]byte(`{"id":1,"isVerified":true,"device_id":"12345","establishment_id":4}`), &u); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if u.DeviceIDValue() != "12345" || u.EstablishmentID == nil || *u.EstablishmentID != 4 {
		t.Fatalf("legacy fields not normalized: %+v", u)
	}
	if !u.CanViewDeviceData() {
		t.Errorf("verified user with device should view data")
	}

	if err := json.Unmarshal([]byte(`{"id":1,"isVerified":null,"deviceId":"9"}`), &u); err != nil || u.IsVerified {
		t.Fatalf("null isVerified: %v %+v", err, u)
	}

	for _, raw := range []string{`{"isVerified":1}`, `{"isVerified":12345}`, `{"isVerified":"true"}`} {
		err := json.Unmarshal([]byte(raw), &u)
		if !errors.Is(err, ErrLegacyVerification) {
			t.Errorf("%s: err = %v, want ErrLegacyVerification", raw, err)
		}
	}
}

func TestMeRejectsLegacyVerification(t *testing.T) {
	c, _ := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"success":true,"code":100000,"message":"ok","user":{"id":1,"isVerified":2,"deviceId":"12345"}}`)
	})

	_, err := c.Me(context.Background())
	if !errors.Is(err, ErrLegacyVerification) || !IsKind(err, KindServerRejected) {
		t.Fatalf("err = %v", err)
	}
}

func TestErrorKinds(t *testing.T) {
	c, _ := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/user/me":
			writeJSON(w, http.StatusUnauthorized, `{"success":false,"code":100004,"message":"invalid token"}`)
		default:
			writeJSON(w, http.StatusConflict, `{"success":false,"code":106001,"message":"already decided"}`)
		}
	})
	ctx := context.Background()

	if _, err := c.Me(ctx); !IsKind(err, KindUnauthorized) {
		t.Errorf("me: err = %v, want unauthorized", err)
	}

	_, err := c.Approve(ctx, 1, 2)
	if !IsKind(err, KindServerRejected) || CodeOf(err) != 106001 {
		t.Errorf("approve: err = %v", err)
	}

	if _, err := c.Approve(ctx, 0, 2); !IsKind(err, KindInvalidInput) {
		t.Errorf("approve without id: err = %v", err)
	}

	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	offline := New(srv.URL + "/api")
	if _, err := offline.Me(ctx); !IsKind(err, KindNetwork) {
		t.Errorf("offline: err = %v, want network error", err)
	}
}

func TestNotificationsRequests(t *testing.T) {
	var paths []string
	c, _ := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.RequestURI())
		writeJSON(w, http.StatusOK, `{"success":true,"code":100000,"message":"ok",
			"notifications":[{"id":1,"type":"request","status":"pending","read":false}]}`)
	})
	ctx := context.Background()

	list, err := c.AdminNotifications(ctx, "pending")
	if err != nil || len(list) != 1 || !list[0].IsPendingRequest() {
		t.Fatalf("list = %v, err = %v", list, err)
	}
	if err := c.MarkRead(ctx, FeedUser, 1, 2); err != nil {
		t.Fatal(err)
	}
	if err := c.MarkAllRead(ctx, FeedAdmin); err != nil {
		t.Fatal(err)
	}
	if err := c.DeleteNotification(ctx, FeedAdmin, 5); err != nil {
		t.Fatal(err)
	}
	if err := c.DeleteAllNotifications(ctx); err != nil {
		t.Fatal(err)
	}

	want := []string{
		"GET /api/admin/notifications?filter=pending",
		"POST /api/notifications/mark-read",
		"POST /api/admin/notifications/mark-all-read",
		"DELETE /api/admin/notifications/5",
		"DELETE /api/admin/notifications/delete-all",
	}
	if len(paths) != len(want) {
		t.Fatalf("paths = %v", paths)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("request %d = %q, want %q", i, paths[i], want[i])
		}
	}
}

func TestLogoutClearsToken(t *testing.T) {
	c, _ := newFakeServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, `{"success":false,"code":100001,"message":"boom"}`)
	})
	if err := c.Logout(context.Background()); err == nil {
		t.Fatalf("expected server error")
	}
	if c.Token() != "" {
		t.Fatalf("token not cleared")
	}
}
