package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"wellness-sessions/internal/app"
	"wellness-sessions/internal/transport/http/response"
)

func TestWriteSessionErrorUsesFixedMessages(t *testing.T) {
	gin.SetMode(gin.TestMode)
	const detail = "row 42 in shard eu-1"

	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    int
		wantMessage string
	}{
		{
			name:        "forbidden",
			err:         fmt.Errorf("%w: %s", app.ErrForbidden, detail),
			wantStatus:  http.StatusForbidden,
			wantCode:    response.CodeForbidden,
			wantMessage: "access denied",
		},
		{
			name:        "not found",
			err:         fmt.Errorf("%w: %s", app.ErrSessionNotFound, detail),
			wantStatus:  http.StatusNotFound,
			wantCode:    response.CodeSessionNotFound,
			wantMessage: "session not found",
		},
		{
			name:        "bare invalid input",
			err:         fmt.Errorf("%w: %s", app.ErrInvalidInput, detail),
			wantStatus:  http.StatusBadRequest,
			wantCode:    response.CodeBadRequest,
			wantMessage: "invalid request",
		},
		{
			name:        "validation error",
			err:         &app.ValidationError{Field: "title", Reason: "is required"},
			wantStatus:  http.StatusBadRequest,
			wantCode:    response.CodeBadRequest,
			wantMessage: "title: is required",
		},
		{
			name:        "internal",
			err:         errors.New(detail),
			wantStatus:  http.StatusInternalServerError,
			wantCode:    response.CodeInternalServer,
			wantMessage: "update session failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			c.Request = httptest.NewRequest(http.MethodPut, "/api/v1/sessions/mine/s-1", nil)

			writeSessionError(c, tt.err, "update session failed")

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if strings.Contains(rec.Body.String(), detail) {
				t.Fatalf("response leaks error detail: %s", rec.Body.String())
			}
			var body response.APIResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Code != tt.wantCode || body.Message != tt.wantMessage {
				t.Fatalf("body = %+v, want code %d message %q", body, tt.wantCode, tt.wantMessage)
			}
		})
	}
}
