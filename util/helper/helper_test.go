package helper_util

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gate_errors "github.com/dev-mohitbeniwal/modelgate/errors"
)

func contextWithQuery(query string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/items?"+query, nil)
	return c
}

func TestGetPaginationParams(t *testing.T) {
	limit, offset, err := GetPaginationParams(contextWithQuery(""))
	require.NoError(t, err)
	assert.Equal(t, 10, limit)
	assert.Equal(t, 0, offset)

	limit, offset, err = GetPaginationParams(contextWithQuery("limit=25&offset=50"))
	require.NoError(t, err)
	assert.Equal(t, 25, limit)
	assert.Equal(t, 50, offset)

	for _, q := range []string{"limit=abc", "limit=0", "limit=1000", "offset=-1", "offset=x"} {
		_, _, err = GetPaginationParams(contextWithQuery(q))
		assert.ErrorIs(t, err, gate_errors.ErrInvalidPagination, q)
	}
}

func TestParseTimeRange(t *testing.T) {
	now := time.Date(2024, 5, 14, 12, 0, 0, 0, time.UTC)

	from, to, err := ParseTimeRange("", "", now)
	require.NoError(t, err)
	assert.Equal(t, now, to)
	assert.Equal(t, now.Add(-24*time.Hour), from)

	from, to, err = ParseTimeRange("2024-05-01T00:00:00+02:00", "2024-05-02T00:00:00Z", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 4, 30, 22, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), to)

	_, _, err = ParseTimeRange("yesterday", "", now)
	assert.Error(t, err)
}

func TestMillis(t *testing.T) {
	assert.Equal(t, []int64{1500, 0}, Millis([]time.Duration{1500 * time.Millisecond, 10 * time.Microsecond}))
	assert.Empty(t, Millis(nil))
}
