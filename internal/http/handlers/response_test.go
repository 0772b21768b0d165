package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func envelopeRouter(rid string, register func(r *gin.Engine)) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("X-Request-ID", rid)
		c.Next()
	})
	register(r)
	return r
}

func TestFail_ServerErrorLogsAndWrapsEnvelope(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	r := envelopeRouter("rid-500", func(r *gin.Engine) {
		r.Use(func(c *gin.Context) {
			c.Set("logger", &logger)
			c.Next()
		})
		r.GET("/boom", func(c *gin.Context) {
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "cache rebuild failed")
		})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.RequestID != "rid-500" || resp.Code != ErrCodeInternal || resp.Message != "cache rebuild failed" {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
	// 5xx failures go to the request-scoped logger at error level.
	if !strings.Contains(buf.String(), `"level":"error"`) {
		t.Fatalf("expected error log, got: %s", buf.String())
	}
}

func TestFail_ClientErrorDoesNotLog(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	r := envelopeRouter("rid-404", func(r *gin.Engine) {
		r.Use(func(c *gin.Context) {
			c.Set("logger", &logger)
			c.Next()
		})
		r.GET("/missing", func(c *gin.Context) {
			Fail(c, http.StatusNotFound, ErrCodeNotFound, "no such workout")
		})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
	var er ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil {
		t.Fatalf("json: %v", err)
	}
	if er.RequestID != "rid-404" || er.Code != ErrCodeNotFound || er.Message != "no such workout" {
		t.Fatalf("unexpected envelope: %+v", er)
	}
	if strings.Contains(buf.String(), `"level":"error"`) {
		t.Fatalf("4xx must not log at error level: %s", buf.String())
	}
}

func TestOkAndNoContentHelpers(t *testing.T) {
	r := envelopeRouter("rid-ok", func(r *gin.Engine) {
		r.GET("/created", func(c *gin.Context) {
			ok(c, http.StatusCreated, gin.H{"streak": 3, "cached": false})
		})
		r.DELETE("/gone", func(c *gin.Context) { noContent(c) })
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/created", nil))
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if int(body["streak"].(float64)) != 3 || body["cached"] != false {
		t.Fatalf("unexpected body: %#v", body)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/gone", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Fatalf("expected empty body for 204, got %q", w.Body.String())
	}
}
