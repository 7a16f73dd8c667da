package httpx

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusCreated, map[string]int{"id": 1})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"id":1}`, rec.Body.String())
}

func TestJSON_Nil(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusOK, nil)
	assert.Equal(t, "null", rec.Body.String())
}

func TestJSONError(t *testing.T) {
	rec := httptest.NewRecorder()
	JSONError(rec, http.StatusBadRequest, "validation failed", map[string]string{"name": "required"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"validation failed","details":{"name":"required"}}`, rec.Body.String())

	rec = httptest.NewRecorder()
	JSONError(rec, http.StatusNotFound, "not found", nil)
	assert.JSONEq(t, `{"error":"not found"}`, rec.Body.String())
}

func TestOK(t *testing.T) {
	rec := httptest.NewRecorder()
	OK(rec)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"name":"Ana"}`, false},
		{"empty", ``, true},
		{"malformed", `{"name":`, true},
		{"trailing", `{"name":"a"} {"name":"b"}`, true},
		{"oversized", `{"name":"` + strings.Repeat("a", MaxBodyBytes) + `"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var p payload
			err := DecodeJSON(httptest.NewRecorder(), req, &p)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrBadRequestBody)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Ana", p.Name)
		})
	}
}
