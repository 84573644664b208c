package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/malonaz/ragchat/internal/rag"
	"github.com/malonaz/ragchat/store"
)

// Messages of the errors reported to clients.
const (
	msgSessionNotFound        = "会话不存在"
	msgKnowledgeBaseNotFound  = "知识库不存在"
	msgKnowledgeBasesNotFound = "部分知识库不存在"
	msgKnowledgeBaseRequired  = "至少选择一个知识库"
	msgQuestionRequired       = "问题不能为空"
	msgTitleRequired          = "标题不能为空"
	msgInvalidID              = "无效的ID"
	msgInvalidRequest         = "请求格式错误"
	msgInternal               = "服务器内部错误"
)

// envelope is the body of every non-streamed response.
type envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// success sends data wrapped in a success envelope.
func success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, envelope{Code: rag.CodeSuccess, Message: "success", Data: data})
}

// fail sends an error envelope whose code is the HTTP status.
func fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, envelope{Code: status, Message: message})
}

// failFromError maps a store error: ErrNotFound becomes a 404 with notFound, anything else a 500.
func (s *Server) failFromError(c *gin.Context, err error, notFound string) {
	if errors.Is(err, store.ErrNotFound) {
		fail(c, http.StatusNotFound, notFound)
		return
	}
	s.log.Error("request failed", "method", c.Request.Method, "path", c.Request.URL.Path, "error", err)
	fail(c, http.StatusInternalServerError, msgInternal)
}

// pathID parses the :id path parameter, failing the request if it is not a positive integer.
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, msgInvalidID)
		return 0, false
	}
	return id, true
}
