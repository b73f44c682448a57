package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJSONResponseWritesStatusHeadersAndBody(t *testing.T) {
	rec := httptest.NewRecorder()
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/expenses/3").
		Body(map[string]any{"id": 3, "amount": "45.50"}).
		Write(rec)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "/api/expenses/3", rec.Header().Get("Location"))
	assert.Contains(t, rec.Body.String(), `"amount":"45.50"`)
	assert.Equal(t, byte('\n'), rec.Body.Bytes()[rec.Body.Len()-1])
}

func TestJSONResponseWithoutBody(t *testing.T) {
	rec := httptest.NewRecorder()
	NewJSONResponse().Status(http.StatusNoContent).Write(rec)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, rec.Body.Len())
	assert.Empty(t, rec.Header().Get("Content-Type"))
}

func TestJSONResponseEncodeFailureIs500(t *testing.T) {
	rec := httptest.NewRecorder()
	NewJSONResponse().Status(http.StatusOK).Body(map[string]any{"ch": make(chan int)}).Write(rec)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestErrorBuilders(t *testing.T) {
	cases := map[string]struct {
		b    *ResponseBuilder
		code int
		frag string
	}{
		"bad request":  {BadRequestError("invalid body"), http.StatusBadRequest, `"error":"bad_request"`},
		"not found":    {NotFoundError("no such expense"), http.StatusNotFound, `"message":"no such expense"`},
		"internal":     {InternalServerError(), http.StatusInternalServerError, `"error":"internal"`},
		"rate limited": {TooManyRequestsError(), http.StatusTooManyRequests, `"error":"rate_limited"`},
		"field":        {FieldError("amount", "must be positive"), http.StatusUnprocessableEntity, `"field":"amount"`},
	}
	for name, c := range cases {
		rec := httptest.NewRecorder()
		c.b.Write(rec)
		assert.Equal(t, c.code, rec.Code, name)
		assert.Contains(t, rec.Body.String(), c.frag, name)
	}
}
