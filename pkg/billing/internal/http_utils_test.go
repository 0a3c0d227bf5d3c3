package internal

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadBodyStrict(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		limit   int64
		wantErr error
	}{
		{name: "returns exact bytes", body: `{"a": 1 }`, limit: 64},
		{name: "empty body", body: "", limit: 64, wantErr: ErrEmptyBody},
		{name: "too large", body: strings.Repeat("x", 65), limit: 64, wantErr: ErrPayloadTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			body, err := ReadBodyStrict(rec, req, tt.limit)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.body, string(body))
		})
	}
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteJSON(rec, http.StatusCreated, map[string]string{"url": "https://x"}))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"url":"https://x"}`, rec.Body.String())
}

func TestWriteText(t *testing.T) {
	rec := httptest.NewRecorder()
	SetSecurityHeaders(rec)
	require.NoError(t, WriteText(rec, http.StatusBadRequest, "Webhook Error: bad"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Webhook Error: bad", rec.Body.String())
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}
