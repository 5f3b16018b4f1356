package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/j-veylop/attendance-tui/internal/models"
)

// MockRoundTripper lets tests answer HTTP requests in-process.
type MockRoundTripper struct {
	RoundTripFunc func(req *http.Request) (*http.Response, error)
}

func (m *MockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.RoundTripFunc(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newTestClient(fn func(req *http.Request) (*http.Response, error)) *Client {
	c := NewClient("https://attendance.test", &http.Client{Transport: &MockRoundTripper{RoundTripFunc: fn}})
	c.newRequestID = func() string { return "req-1" }
	return c
}

func TestClient_Headers(t *testing.T) {
	var got *http.Request
	c := newTestClient(func(req *http.Request) (*http.Response, error) {
		got = req
		return jsonResponse(200, `{"success":true,"hasCheckedIn":false,"hasCheckedOut":false}`), nil
	})

	if _, err := c.Today(context.Background(), "tok"); err != nil {
		t.Fatalf("Today failed: %v", err)
	}

	if got.Method != http.MethodGet || got.URL.String() != "https://attendance.test/api/attendance/today" {
		t.Errorf("unexpected request %s %s", got.Method, got.URL)
	}
	checks := map[string]string{
		"Authorization": "Bearer tok",
		"Content-Type":  "application/json",
		"X-Request-ID":  "req-1",
	}
	for k, want := range checks {
		if v := got.Header.Get(k); v != want {
			t.Errorf("header %s = %q, want %q", k, v, want)
		}
	}
}

func TestClient_NoTokenNoAuthHeader(t *testing.T) {
	c := newTestClient(func(req *http.Request) (*http.Response, error) {
		if req.Header.Get("Authorization") != "" {
			t.Error("login must not send Authorization")
		}
		return jsonResponse(200, `{"success":true,"data":{"token":"t"}}`), nil
	})
	if _, err := c.Login(context.Background(), LoginRequest{Email: "a@b.co", Password: "secret1"}); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
}

func TestClient_Today(t *testing.T) {
	c := newTestClient(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{
			"success": true,
			"hasCheckedIn": true,
			"hasCheckedOut": false,
			"workMode": "Office",
			"attendance": {"checkInTime": "2024-01-01T03:30:00.000Z"}
		}`), nil
	})

	resp, err := c.Today(context.Background(), "tok")
	if err != nil {
		t.Fatalf("Today failed: %v", err)
	}
	if !resp.HasCheckedIn || resp.HasCheckedOut || resp.WorkMode != models.WorkModeOffice {
		t.Errorf("unexpected response %+v", resp)
	}

	in, out, err := resp.Attendance.Instants()
	if err != nil {
		t.Fatalf("Instants failed: %v", err)
	}
	if out != nil {
		t.Error("checkOut should be nil")
	}
	want := time.Date(2024, 1, 1, 3, 30, 0, 0, time.UTC)
	if in == nil || !in.Equal(want) {
		t.Errorf("checkIn = %v, want %v", in, want)
	}
}

func TestClient_CheckInBody(t *testing.T) {
	var body map[string]any
	c := newTestClient(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != PathCheckIn || req.Method != http.MethodPost {
			t.Errorf("unexpected %s %s", req.Method, req.URL.Path)
		}
		raw, _ := io.ReadAll(req.Body)
		_ = json.Unmarshal(raw, &body)
		return jsonResponse(200, `{"success":true,"attendance":{"checkInTime":"2024-01-01T03:30:00Z"}}`), nil
	})

	resp, err := c.CheckIn(context.Background(), "tok", CheckInRequest{
		WorkMode:    models.WorkModeWFH,
		Coordinates: models.Coordinates{Latitude: 19.1, Longitude: 72.9},
	})
	if err != nil {
		t.Fatalf("CheckIn failed: %v", err)
	}
	if resp.RequestID != "req-1" {
		t.Errorf("RequestID = %q", resp.RequestID)
	}
	if body["latitude"] != 19.1 || body["longitude"] != 72.9 || body["workMode"] != "WFH" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestClient_CheckOutBodyHasNoWorkMode(t *testing.T) {
	var body map[string]any
	c := newTestClient(func(req *http.Request) (*http.Response, error) {
		raw, _ := io.ReadAll(req.Body)
		_ = json.Unmarshal(raw, &body)
		return jsonResponse(200, `{"success":true,"attendance":{"checkOutTime":"2024-01-01T12:00:00Z"}}`), nil
	})

	if _, err := c.CheckOut(context.Background(), "tok", models.Coordinates{Latitude: 1, Longitude: 2}); err != nil {
		t.Fatalf("CheckOut failed: %v", err)
	}
	if _, ok := body["workMode"]; ok {
		t.Error("checkout body must not carry workMode")
	}
	if len(body) != 2 {
		t.Errorf("unexpected body %v", body)
	}
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name      string
		transport func(req *http.Request) (*http.Response, error)
		check     func(t *testing.T, err error)
	}{
		{
			name: "BusinessError",
			transport: func(req *http.Request) (*http.Response, error) {
				return jsonResponse(400, `{"success":false,"code":"OUT_OF_OFFICE_RADIUS","distance":120,"allowedRadius":50}`), nil
			},
			check: func(t *testing.T, err error) {
				apiErr, ok := AsError(err)
				if !ok {
					t.Fatalf("expected *Error, got %v", err)
				}
				if apiErr.Code != CodeOutOfOfficeRadius || apiErr.Status != 400 {
					t.Errorf("unexpected error %+v", apiErr)
				}
				if apiErr.Distance == nil || *apiErr.Distance != 120 || *apiErr.AllowedRadius != 50 {
					t.Error("distance fields not decoded")
				}
			},
		},
		{
			name: "TokenExpired",
			transport: func(req *http.Request) (*http.Response, error) {
				return jsonResponse(401, `{"success":false,"code":"TOKEN_EXPIRED","message":"jwt expired"}`), nil
			},
			check: func(t *testing.T, err error) {
				if !IsSessionInvalid(err) {
					t.Errorf("expected session invalid, got %v", err)
				}
			},
		},
		{
			name: "NetworkError",
			transport: func(req *http.Request) (*http.Response, error) {
				return nil, errors.New("connection refused")
			},
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrTransport) {
					t.Errorf("expected ErrTransport, got %v", err)
				}
			},
		},
		{
			name: "HTMLBody",
			transport: func(req *http.Request) (*http.Response, error) {
				return jsonResponse(502, `<html>Bad Gateway</html>`), nil
			},
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrTransport) {
					t.Errorf("expected ErrTransport, got %v", err)
				}
				if _, ok := AsError(err); ok {
					t.Error("non-JSON body must not decode as a business error")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(tt.transport)
			_, err := c.CheckIn(context.Background(), "tok", CheckInRequest{WorkMode: models.WorkModeOffice})
			if err == nil {
				t.Fatal("expected error")
			}
			tt.check(t, err)
		})
	}
}

func TestClient_ContextCanceled(t *testing.T) {
	c := newTestClient(func(req *http.Request) (*http.Response, error) {
		return nil, req.Context().Err()
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Today(ctx, "tok")
	if !errors.Is(err, context.Canceled) || !errors.Is(err, ErrTransport) {
		t.Errorf("expected canceled transport error, got %v", err)
	}
}

func TestClient_LoginAndProfile(t *testing.T) {
	c := newTestClient(func(req *http.Request) (*http.Response, error) {
		switch req.URL.Path {
		case PathLogin:
			raw, _ := io.ReadAll(req.Body)
			if !strings.Contains(string(raw), `"location":null`) {
				t.Errorf("login without location should send null, got %s", raw)
			}
			return jsonResponse(200, `{"success":true,
				"data":{"token":"jwt","_id":"u1","name":"Asha Rao","email":"asha@example.com","role":"employee","employeeId":"E7","department":"Ops"},
				"warnings":{"newDevice":true,"suspiciousLocation":false,"message":"New device detected"}}`), nil
		case PathProfile:
			return jsonResponse(200, `{"success":true,"data":{"name":"Asha Rao","email":"asha@example.com","phoneNumber":"+91 98"}}`), nil
		}
		return jsonResponse(404, `{"success":false,"message":"not found"}`), nil
	})

	login, err := c.Login(context.Background(), LoginRequest{Email: "asha@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if login.Data.Token != "jwt" || login.Data.ID != "u1" || login.Data.EmployeeID != "E7" {
		t.Errorf("unexpected login data %+v", login.Data)
	}
	if !login.Warnings.Any() || login.Warnings.Message != "New device detected" {
		t.Errorf("unexpected warnings %+v", login.Warnings)
	}

	profile, err := c.Profile(context.Background(), "jwt")
	if err != nil {
		t.Fatalf("Profile failed: %v", err)
	}
	if profile.PhoneNumber != "+91 98" {
		t.Errorf("PhoneNumber = %q", profile.PhoneNumber)
	}
}

func TestAttendanceRecord_Instants(t *testing.T) {
	bad := "yesterday"
	rec := &AttendanceRecord{CheckInTime: &bad}
	if _, _, err := rec.Instants(); err == nil {
		t.Error("expected parse error")
	}

	empty := ""
	rec = &AttendanceRecord{CheckInTime: &empty}
	in, out, err := rec.Instants()
	if err != nil || in != nil || out != nil {
		t.Errorf("empty strings should be treated as absent: %v %v %v", in, out, err)
	}

	var nilRec *AttendanceRecord
	if in, out, err := nilRec.Instants(); in != nil || out != nil || err != nil {
		t.Error("nil record should yield nothing")
	}
}
