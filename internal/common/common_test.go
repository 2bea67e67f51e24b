package common

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteErrorEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, ErrValidation("missing or invalid fields", []string{"page_count", "quantity"}))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Code    string         `json:"code"`
			Message string         `json:"message"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.False(t, body.Success)
	require.Equal(t, "VALIDATION_ERROR", body.Error.Code)
	require.ElementsMatch(t, []any{"page_count", "quantity"}, body.Error.Details["fields"])
}

func TestWriteErrorUnknown(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, http.ErrBodyNotAllowed)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "INTERNAL")
}

func TestPhoneDigitsEqual(t *testing.T) {
	require.True(t, PhoneDigitsEqual("+91 98765-43210", "919876543210"))
	require.True(t, PhoneDigitsEqual("98765 43210", "9876543210"))
	require.True(t, PhoneDigitsEqual("+91 98765-43210", "9876543210"))
	require.False(t, PhoneDigitsEqual("9876543210", "9876543211"))
	require.False(t, PhoneDigitsEqual("+91 98765-43210", "9876543211"))
	require.False(t, PhoneDigitsEqual("", ""))
	require.False(t, PhoneDigitsEqual("abc", "def"))
}

func TestParsePagination(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?page=3&limit=50", nil)
	page, perPage := ParsePagination(req, 20)
	require.Equal(t, 3, page)
	require.Equal(t, 50, perPage)

	req = httptest.NewRequest(http.MethodGet, "/?page=-1&limit=abc", nil)
	page, perPage = ParsePagination(req, 20)
	require.Equal(t, 1, page)
	require.Equal(t, 20, perPage)
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(2, 20, 41)
	require.Equal(t, 3, p.TotalPages)
	require.Equal(t, 41, p.TotalItems)

	require.Equal(t, 0, NewPagination(1, 0, 10).TotalPages)
}
