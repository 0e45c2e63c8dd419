package handlers

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/examport/attempt-service/internal/models"
	"github.com/examport/attempt-service/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newTestBaseHandler() BaseHandler {
	gin.SetMode(gin.TestMode)
	return NewBaseHandler(utils.NewSlogLogger(slog.New(slog.DiscardHandler)))
}

func testContextWithParam(key, value string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Params = gin.Params{{Key: key, Value: value}}
	return c, w
}

func TestParseIDParam_ValidID(t *testing.T) {
	h := newTestBaseHandler()
	c, w := testContextWithParam("id", "7")

	id := h.parseIDParam(c, "id")

	assert.Equal(t, uint(7), id)
	assert.Empty(t, w.Body.String())
}

func TestParseIDParam_RejectsZero(t *testing.T) {
	h := newTestBaseHandler()
	c, w := testContextWithParam("id", "0")

	id := h.parseIDParam(c, "id")

	assert.Zero(t, id)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid id")
}

func TestParseIDParam_RejectsNonNumeric(t *testing.T) {
	h := newTestBaseHandler()
	c, w := testContextWithParam("id", "abc")

	id := h.parseIDParam(c, "id")

	assert.Zero(t, id)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestParseSectionTypeParam(t *testing.T) {
	h := newTestBaseHandler()

	c, _ := testContextWithParam("type", "listening")
	st, ok := h.parseSectionTypeParam(c, "type")
	assert.True(t, ok)
	assert.Equal(t, models.SectionListening, st)

	c, w := testContextWithParam("type", "juggling")
	_, ok = h.parseSectionTypeParam(c, "type")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
