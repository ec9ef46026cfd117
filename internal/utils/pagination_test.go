package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paramsForQuery(t *testing.T, query string) *PaginationParams {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/admin/events?"+query, nil)
	return GetPaginationParams(c)
}

func TestGetPaginationParamsDefaults(t *testing.T) {
	params := paramsForQuery(t, "")

	assert.Equal(t, 1, params.Page)
	assert.Equal(t, DefaultPageSize, params.PageSize)
	assert.Equal(t, "created_at", params.Sort)
	assert.Equal(t, "desc", params.Order)
}

func TestGetPaginationParamsClampsOutOfRangeValues(t *testing.T) {
	params := paramsForQuery(t, "page=-3&page_size=9999&order=sideways")

	assert.Equal(t, 1, params.Page)
	assert.Equal(t, MaxPageSize, params.PageSize)
	assert.Equal(t, "desc", params.Order)
}

func TestGetPaginationParamsRejectsUnknownSortField(t *testing.T) {
	// Arbitrary field names must not reach the query layer.
	params := paramsForQuery(t, "sort=user_email&order=asc")
	assert.Equal(t, "created_at", params.Sort)
	assert.Equal(t, "asc", params.Order)

	params = paramsForQuery(t, "sort=commission_amount")
	assert.Equal(t, "commission_amount", params.Sort)
}

func TestCreatePaginationMeta(t *testing.T) {
	params := &PaginationParams{Page: 2, PageSize: 20}
	meta := CreatePaginationMeta(params, 45)

	assert.Equal(t, int64(45), meta.Total)
	assert.Equal(t, 3, meta.TotalPages)
	assert.True(t, meta.HasNext)
	assert.True(t, meta.HasPrevious)
	require.NotNil(t, meta.NextPage)
	assert.Equal(t, 3, *meta.NextPage)
	require.NotNil(t, meta.PreviousPage)
	assert.Equal(t, 1, *meta.PreviousPage)
}
