// Package response 统一响应格式单元测试
package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTest() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	return c, w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestSuccess(t *testing.T) {
	c, w := setupTest()
	Success(c, map[string]interface{}{"id": 123})

	assert.Equal(t, http.StatusOK, w.Code)
	resp := parseResponse(t, w)
	assert.Equal(t, 0, resp.Code)
	assert.Equal(t, "success", resp.Message)
	assert.NotNil(t, resp.Data)
}

func TestSuccessWithMessage(t *testing.T) {
	c, w := setupTest()
	SuccessWithMessage(c, "删除成功", nil)

	resp := parseResponse(t, w)
	assert.Equal(t, "删除成功", resp.Message)
	assert.Nil(t, resp.Data)
}

func TestCreated(t *testing.T) {
	c, w := setupTest()
	Created(c, gin.H{"id": 1})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestSuccessPage(t *testing.T) {
	c, w := setupTest()
	SuccessPage(c, []int{1, 2}, 12, 2, 2)

	var raw struct {
		Data PageData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	assert.Equal(t, int64(12), raw.Data.Total)
	assert.Equal(t, 2, raw.Data.Page)
	assert.Equal(t, 2, raw.Data.PageSize)
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name   string
		write  func(c *gin.Context)
		status int
		code   int
	}{
		{"Error", func(c *gin.Context) { Error(c, http.StatusConflict, 2001, "conflict", "手机号已存在") }, http.StatusConflict, 2001},
		{"BadRequest", func(c *gin.Context) { BadRequest(c, "参数错误") }, http.StatusBadRequest, 400},
		{"NotFound", func(c *gin.Context) { NotFound(c, "") }, http.StatusNotFound, 404},
		{"InternalError", func(c *gin.Context) { InternalError(c, "") }, http.StatusInternalServerError, 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := setupTest()
			tt.write(c)
			assert.Equal(t, tt.status, w.Code)
			resp := parseResponse(t, w)
			assert.Equal(t, tt.code, resp.Code)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestKindOf(t *testing.T) {
	c, _ := setupTest()
	Success(c, nil)
	assert.Empty(t, KindOf(c))

	c, _ = setupTest()
	Error(c, http.StatusConflict, 2001, "conflict", "手机号已存在")
	assert.Equal(t, "conflict", KindOf(c))

	c, _ = setupTest()
	NotFound(c, "")
	assert.Equal(t, "not_found", KindOf(c))
}
