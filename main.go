package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/degaulle/sorashorts/internal/backend"
	"github.com/degaulle/sorashorts/internal/config"
	"github.com/degaulle/sorashorts/internal/console"
	"github.com/degaulle/sorashorts/internal/download"
	"github.com/degaulle/sorashorts/internal/poller"
	"github.com/degaulle/sorashorts/internal/tools"
	"github.com/degaulle/sorashorts/internal/wizard"
	"github.com/degaulle/sorashorts/internal/workflow"
)

func main() {
	photo := flag.String("photo", "", "photo for a headless run; starts the web wizard when empty")
	show := flag.String("show", "", "show name for a headless run")
	out := flag.String("out", "", "where a headless run writes the video")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}

	// 初始化日志
	logCloser, err := config.InitLogger(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("failed to init logger")
	}
	defer logCloser.Close()

	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.AppEnv,
			Release:          "sorashorts@1.0.0",
			TracesSampleRate: 1.0,
		})
		if err != nil {
			logrus.WithError(err).Fatal("sentry.Init")
		}
		defer sentry.Flush(2 * time.Second)
	}

	// 初始化后端客户端和轮询器
	client := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout, cfg.BackendMock)
	videoPoller := poller.New(client,
		poller.WithInterval(cfg.VideoPollInterval),
		poller.WithMaxAttempts(cfg.VideoPollMaxAttempts),
	)
	downloader, err := download.New(client, cfg.DownloadCacheMaxBytes)
	if err != nil {
		logrus.WithError(err).Fatal("failed to create downloader")
	}
	defer downloader.Close()

	logrus.WithFields(logrus.Fields{
		"backend": cfg.BackendURL,
		"mock":    cfg.BackendMock,
		"env":     cfg.AppEnv,
	}).Info("config loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *photo != "" {
		orch := workflow.New(client, workflow.Config{
			DetectGender: cfg.DetectGender,
			Waiter:       videoPoller,
			Fetcher:      downloader,
			Renderer:     console.Renderer{Log: logrus.WithField("mode", "headless")},
		})
		res, err := console.Run(ctx, orch, console.Options{PhotoPath: *photo, Show: *show, OutPath: *out})
		if err != nil {
			logrus.WithError(err).Error("headless run failed")
			sentry.Flush(2 * time.Second)
			os.Exit(1)
		}
		logrus.WithFields(logrus.Fields{"path": res.Path, "video_url": res.VideoURL}).Info("done")
		return
	}

	// 初始化工具
	registry, err := tools.NewRegistry(ctx, client, videoPoller)
	if err != nil {
		logrus.WithError(err).Fatal("failed to register tools")
	}

	sessions := wizard.NewSessions(func(r workflow.Renderer, log *logrus.Entry) *workflow.Orchestrator {
		return workflow.New(client, workflow.Config{
			DetectGender: cfg.DetectGender,
			Waiter:       videoPoller,
			Fetcher:      downloader,
			Renderer:     r,
			Log:          log,
		})
	})
	server := wizard.NewServer(wizard.Options{
		Sessions:    sessions,
		Tools:       registry,
		CORSOrigins: cfg.CORSOrigins,
		Sentry:      cfg.SentryDSN != "",
		BaseContext: ctx,
	})

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.Router(),
	}

	// 在goroutine中启动服务器
	go func() {
		logrus.Infof("服务器启动在 %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("启动服务器失败")
		}
	}()

	// 等待中断信号
	<-ctx.Done()
	logrus.Info("关闭服务器...")

	// in-flight runs see the cancelled base context and stop
	sessions.CloseAll()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("服务器关闭失败")
	}
	server.Wait()

	logrus.Info("服务器已关闭")
}
