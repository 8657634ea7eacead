package req

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Dhoini/attendance-service/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loginBody struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func TestHandleBodyValid(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"username":"dev","password":"x"}`))
	w := httptest.NewRecorder()

	body, err := HandleBody[loginBody](w, r, logger.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "dev", body.Username)
}

func TestHandleBodyMalformed(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"username":`))
	w := httptest.NewRecorder()

	_, err := HandleBody[loginBody](w, r, logger.NewNop())
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"validation_failed"`)
}

func TestHandleBodyReportsJSONFieldNames(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"username":"dev"}`))
	w := httptest.NewRecorder()

	_, err := HandleBody[loginBody](w, r, logger.NewNop())
	require.Error(t, err)
	assert.Equal(t, []string{"password"}, InvalidFields(err))
	assert.Contains(t, w.Body.String(), `"details":["password"]`)
}
