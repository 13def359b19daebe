package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/fuji-pos/apperrors"
)

func TestTokenRoundTripAndBlacklist(t *testing.T) {
	ConfigureJWT("unit-test-secret", time.Hour)

	token, err := GenerateToken(42, "cashier")
	require.NoError(t, err)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "cashier", claims.Role)

	BlacklistToken(token)
	_, err = ParseToken(token)
	assert.Error(t, err)

	_, err = ParseToken("not-a-token")
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "s3cret"))
	assert.False(t, CheckPassword(hash, "wrong"))
}

func TestFormatCurrency(t *testing.T) {
	assert.Equal(t, "$0.00", FormatCurrency(0))
	assert.Equal(t, "$1,234.57", FormatCurrency(1234.567))
	assert.Equal(t, "-$27.00", FormatCurrency(-27))
}

func TestRespondAppError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		err  error
		code int
		kind string
	}{
		{apperrors.Conflict("table is occupied"), http.StatusConflict, "conflict"},
		{apperrors.Validation("bad"), http.StatusBadRequest, "validation_error"},
		{errors.New("driver exploded"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)

		RespondAppError(c, tc.err)

		assert.Equal(t, tc.code, w.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, false, body["status"])
		assert.Equal(t, tc.kind, body["error"])
		assert.Equal(t, float64(tc.code), body["statusCode"])
	}
}
