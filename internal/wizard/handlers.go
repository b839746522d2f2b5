package wizard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/degaulle/sorashorts/internal/backend"
	"github.com/degaulle/sorashorts/internal/workflow"
)

// State is the full view of one session as the browser renders it.
type State struct {
	workflow.Snapshot
	Status Status `json:"status"`
}

func (s *Server) state(sess *Session) State {
	return State{Snapshot: sess.Orch.Snapshot(), Status: sess.Hub.Status()}
}

func (s *Server) handleState(c *gin.Context) {
	c.JSON(http.StatusOK, s.state(currentSession(c)))
}

// handleEvents 以 SSE 推送渲染事件，连接断开时取消订阅
func (s *Server) handleEvents(c *gin.Context) {
	sess := currentSession(c)
	iter, cancel := sess.Hub.Subscribe()
	defer cancel()
	stop := context.AfterFunc(c.Request.Context(), cancel)
	defer stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.SSEvent("state", s.state(sess))
	c.Writer.Flush()

	for {
		e, ok := iter.Next()
		if !ok {
			return
		}
		c.SSEvent(string(e.Kind), e)
		c.Writer.Flush()
	}
}

// handlePhoto 接收上传、拍照或拖拽的照片。非图片文件被忽略，不报错。
func (s *Server) handlePhoto(c *gin.Context) {
	sess := currentSession(c)
	fh, err := c.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photo file required"})
		return
	}
	if fh.Size > maxPhotoBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "photo too large"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxPhotoBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	mimeType := fh.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = mimetype.Detect(data).String()
	}
	mimeType, _, _ = strings.Cut(mimeType, ";")
	mimeType = strings.TrimSpace(mimeType)

	accepted := sess.Orch.AcceptPhoto(mimeType, data)
	s.log.WithFields(logrus.Fields{
		"session_id": sess.ID,
		"source":     c.PostForm("source"),
		"mime":       mimeType,
		"accepted":   accepted,
	}).Info("photo received")
	c.JSON(http.StatusOK, gin.H{"accepted": accepted, "state": s.state(sess)})
}

func (s *Server) handleRetake(c *gin.Context) {
	sess := currentSession(c)
	if err := sess.Orch.Retake(); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.state(sess))
}

func (s *Server) handleContinue(c *gin.Context) {
	sess := currentSession(c)
	if err := sess.Orch.Continue(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.state(sess))
}

type showRequest struct {
	Show string `json:"show"`
}

// handleShow 选择预设或自定义剧名并在后台开始生成分镜
func (s *Server) handleShow(c *gin.Context) {
	sess := currentSession(c)
	var req showRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	run, err := sess.Orch.BeginShow(req.Show)
	if err != nil {
		writeError(c, err)
		return
	}
	if run == nil {
		c.JSON(http.StatusOK, s.state(sess))
		return
	}
	s.start(sess, run)
	c.JSON(http.StatusAccepted, s.state(sess))
}

func (s *Server) handleDrama(c *gin.Context) {
	sess := currentSession(c)
	run, err := sess.Orch.BeginDrama()
	if err != nil {
		writeError(c, err)
		return
	}
	s.start(sess, run)
	c.JSON(http.StatusAccepted, s.state(sess))
}

// handleScene 返回灯箱需要的场景图片和提示词
func (s *Server) handleScene(c *gin.Context) {
	n, err := strconv.Atoi(c.Param("number"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid scene number"})
		return
	}
	view, ok := currentSession(c).Orch.Scene(n)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("scene %d not generated", n)})
		return
	}
	c.JSON(http.StatusOK, view)
}

// handleSave 下载视频；取不到文件时重定向到视频地址
func (s *Server) handleSave(c *gin.Context) {
	res, err := currentSession(c).Orch.Save(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if res.Fallback {
		c.Redirect(http.StatusFound, res.VideoURL)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, res.FileName))
	c.Data(http.StatusOK, mimetype.Detect(res.Data).String(), res.Data)
}

func (s *Server) handleTryAgain(c *gin.Context) {
	sess := currentSession(c)
	if err := sess.Orch.TryAgain(); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.state(sess))
}

func (s *Server) handleDismiss(c *gin.Context) {
	sess := currentSession(c)
	dismissed := sess.Orch.DismissError()
	c.JSON(http.StatusOK, gin.H{"dismissed": dismissed, "state": s.state(sess)})
}

func (s *Server) handleToolList(c *gin.Context) {
	infos, err := s.tools.Infos(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tools": infos})
}

// handleToolRun 直接读取请求体作为工具的JSON参数
func (s *Server) handleToolRun(c *gin.Context) {
	name := c.Param("name")
	tool, ok := s.tools.Get(name)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("unknown tool %q", name)})
		return
	}
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	out, err := tool.InvokableRun(c.Request.Context(), string(body))
	if err != nil {
		status := http.StatusInternalServerError
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) {
			status = http.StatusBadGateway
		}
		s.log.WithField("tool", name).WithError(err).Warn("tool run failed")
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(out))
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, workflow.ErrBusy), errors.Is(err, workflow.ErrNotReady):
		status = http.StatusConflict
	case errors.Is(err, workflow.ErrNoPhoto):
		status = http.StatusBadRequest
	case errors.Is(err, workflow.ErrNoVideo):
		status = http.StatusNotFound
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
