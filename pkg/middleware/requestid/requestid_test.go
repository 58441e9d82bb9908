package requestid

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func serve(t *testing.T, inbound string) (*httptest.ResponseRecorder, string, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	var fromGin, fromCtx string
	r := gin.New()
	r.Use(Middleware())
	r.GET("/", func(c *gin.Context) {
		fromGin = Value(c)
		fromCtx = FromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if inbound != "" {
		req.Header.Set(Header, inbound)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w, fromGin, fromCtx
}

func TestKeepsWellFormedInboundID(t *testing.T) {
	w, fromGin, fromCtx := serve(t, "trace-42.a_b")
	assert.Equal(t, "trace-42.a_b", w.Header().Get(Header))
	assert.Equal(t, "trace-42.a_b", fromGin)
	assert.Equal(t, fromGin, fromCtx)
}

func TestReplacesMalformedInboundID(t *testing.T) {
	for _, inbound := range []string{"", "has space", "<script>", strings.Repeat("a", maxLength+1)} {
		w, fromGin, _ := serve(t, inbound)
		assert.NotEqual(t, inbound, fromGin)
		assert.Len(t, fromGin, 36)
		assert.Equal(t, fromGin, w.Header().Get(Header))
	}
}
