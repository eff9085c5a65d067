package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"aquasense-http-service/internal/error/code"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func TestSuccessMergesPayloadAtTopLevel(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Success(c, gin.H{"user": gin.H{"id": 1}, "success": false})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := decode(t, w)
	if body["success"] != true {
		t.Fatalf("payload must not override success flag: %v", body)
	}
	if _, ok := body["user"].(map[string]interface{}); !ok {
		t.Fatalf("expected user at top level, got %v", body)
	}
}

func TestFailUsesMappedStatus(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Fail(c, code.ErrAccessRequestNotPending, nil)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	body := decode(t, w)
	if body["success"] != false || body["message"] != code.GetMessage(code.ErrAccessRequestNotPending) {
		t.Fatalf("unexpected body %v", body)
	}
	if int(body["code"].(float64)) != code.ErrAccessRequestNotPending {
		t.Fatalf("unexpected code %v", body["code"])
	}
}

func TestAbortWithCodeStopsChain(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	AbortWithCode(c, code.ErrTokenInvalid, "")

	if !c.IsAborted() {
		t.Fatalf("expected context to be aborted")
	}
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}
