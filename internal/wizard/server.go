package wizard

import (
	"context"
	"net/http"
	"sync"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/degaulle/sorashorts/internal/tools"
	"github.com/degaulle/sorashorts/internal/workflow"
)

const (
	sessionCookie = "sorashorts_session"
	sessionKey    = "wizard_session"

	maxPhotoBytes = 20 << 20
)

type Options struct {
	Sessions    *Sessions
	Tools       *tools.Registry
	CORSOrigins []string
	Sentry      bool
	// BaseContext bounds the runs started by requests; cancelling it aborts
	// them. Defaults to context.Background().
	BaseContext context.Context
}

// Server 向导的 HTTP 服务：状态、动作、事件流和工具调用
type Server struct {
	sessions *Sessions
	tools    *tools.Registry
	opts     Options
	baseCtx  context.Context
	runs     sync.WaitGroup
	log      *logrus.Entry
}

func NewServer(opts Options) *Server {
	s := &Server{
		sessions: opts.Sessions,
		tools:    opts.Tools,
		opts:     opts,
		baseCtx:  opts.BaseContext,
		log:      logrus.WithField("component", "wizard"),
	}
	if s.baseCtx == nil {
		s.baseCtx = context.Background()
	}
	return s
}

// Router 初始化Gin路由
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(s.log))
	if s.opts.Sentry {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(cors.New(corsConfig(s.opts.CORSOrigins)))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	w := router.Group("/wizard", s.session)
	w.GET("/state", s.handleState)
	w.GET("/events", s.handleEvents)
	w.POST("/photo", s.handlePhoto)
	w.POST("/retake", s.handleRetake)
	w.POST("/continue", s.handleContinue)
	w.POST("/show", s.handleShow)
	w.POST("/drama", s.handleDrama)
	w.GET("/scenes/:number", s.handleScene)
	w.GET("/save", s.handleSave)
	w.POST("/try-again", s.handleTryAgain)
	w.POST("/error/dismiss", s.handleDismiss)

	if s.tools != nil {
		router.GET("/tools", s.handleToolList)
		router.POST("/tools/:name", s.handleToolRun)
	}
	return router
}

// Wait blocks until every run started by a request has returned.
func (s *Server) Wait() {
	s.runs.Wait()
}

// start executes run in the background under the server's base context.
func (s *Server) start(sess *Session, run workflow.Run) {
	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		if err := run(s.baseCtx); err != nil {
			s.log.WithField("session_id", sess.ID).WithError(err).Debug("run ended with error")
		}
	}()
}

// session 根据 cookie 取得或创建会话
func (s *Server) session(c *gin.Context) {
	if id, err := c.Cookie(sessionCookie); err == nil {
		if sess, ok := s.sessions.Get(id); ok {
			c.Set(sessionKey, sess)
			c.Next()
			return
		}
	}
	sess := s.sessions.Create()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, sess.ID, 0, "/", "", false, true)
	c.Set(sessionKey, sess)
	c.Next()
}

func currentSession(c *gin.Context) *Session {
	return c.MustGet(sessionKey).(*Session)
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	allowAll := len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
	}
	if allowAll {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	cfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type"}
	cfg.MaxAge = 12 * time.Hour
	return cfg
}

func requestLogger(log *logrus.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if c.FullPath() == "/wizard/events" || c.FullPath() == "/metrics" {
			return
		}
		log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start),
		}).Debug("request")
	}
}
