package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/lms-portal/internal/lib/validate"
	"github.com/magabrotheeeer/lms-portal/internal/models"
)

func TestValidationError(t *testing.T) {
	err := validate.New().Struct(models.Credentials{Email: "not-an-email"})
	require.Error(t, err)

	resp := ValidationError(err)
	assert.Equal(t, StatusError, resp.Status)
	assert.Contains(t, resp.Error, "Email")
	assert.Contains(t, resp.Error, "Password")
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	WriteError(rec, req, http.StatusConflict, "email already registered")

	assert.Equal(t, http.StatusConflict, rec.Code)
	var got Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, Response{Status: StatusError, Error: "email already registered"}, got)
}
