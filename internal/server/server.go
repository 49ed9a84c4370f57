package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"midorime/internal/actuator"
	"midorime/internal/camera"
	"midorime/internal/config"
	"midorime/internal/sensors"

	"github.com/gin-gonic/gin"
)

// Server は制御APIとストリーミングの2つのHTTPサーバーを管理する構造体
type Server struct {
	config  *config.Config
	handler *Handler
	source  camera.Source

	controlServer *http.Server
	streamServer  *http.Server
}

// New は設定からServerインスタンスを作成する
// カメラソース・センサーリーダー・フラッシュは設定に従って構築される
func New(cfg *config.Config) (*Server, error) {
	source, params, err := camera.NewSource(
		camera.SourceType(cfg.Camera.Source),
		camera.Options{
			Device: cfg.Camera.Device,
			FPS:    cfg.Camera.FPS,
			Params: camera.Params{
				FrameSize:  cfg.Camera.FrameSize,
				Quality:    cfg.Camera.Quality,
				Brightness: cfg.Camera.Brightness,
				Contrast:   cfg.Camera.Contrast,
			},
		})
	if err != nil {
		return nil, fmt.Errorf("カメラソースの作成に失敗: %w", err)
	}

	reader, err := sensors.NewReader(
		sensors.ReaderType(cfg.Sensors.Source),
		sensors.Options{
			TemperaturePath:  cfg.Sensors.TemperaturePath,
			HumidityPath:     cfg.Sensors.HumidityPath,
			SoilMoisturePath: cfg.Sensors.SoilMoisturePath,
			Scale:            cfg.Sensors.Scale,
		})
	if err != nil {
		return nil, fmt.Errorf("センサーリーダーの作成に失敗: %w", err)
	}

	var flash actuator.Flash
	if cfg.Flash.Device != "" {
		flash = actuator.NewSysfsLED(cfg.Flash.Device)
	} else {
		flash = &actuator.Nop{}
	}

	handler := NewHandler(source, params, camera.JPEGEncoder{}, reader, flash)
	return NewWith(cfg, source, handler), nil
}

// NewWith は構築済みの依存からServerインスタンスを作成する
func NewWith(cfg *config.Config, source camera.Source, handler *Handler) *Server {
	return &Server{
		config:  cfg,
		handler: handler,
		source:  source,
	}
}

// buildControlEngine は制御APIのルーティングを構築する
func buildControlEngine(h *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), corsMiddleware())

	engine.GET("/", h.Index)
	engine.GET("/capture", h.Capture)
	engine.GET("/status", h.Status)
	engine.GET("/control", h.Control)
	engine.GET("/sensors", h.Sensors)

	return engine
}

// buildStreamEngine はストリーミングのルーティングを構築する
func buildStreamEngine(h *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), corsMiddleware())

	engine.GET("/stream", h.Stream)
	engine.GET("/ws", h.WebSocket)

	return engine
}

// Start はカメラソースと2つのサーバーを起動する
func (s *Server) Start(ctx context.Context) error {
	// カメラソースを開始する
	if err := s.source.Start(ctx); err != nil {
		return fmt.Errorf("カメラソースの起動に失敗: %w", err)
	}

	s.controlServer = &http.Server{
		Addr:         s.config.ServerAddress(),
		Handler:      buildControlEngine(s.handler),
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
	}
	s.streamServer = &http.Server{
		Addr:        s.config.StreamAddress(),
		Handler:     buildStreamEngine(s.handler),
		ReadTimeout: s.config.Server.ReadTimeout,
		// ストリーミングは長時間接続のため書き込みタイムアウトを設けない
		WriteTimeout: 0,
	}

	// シャットダウン用のチャンネル
	shutdownCh := make(chan error, 2)

	// 各サーバーを別ゴルーチンで起動
	go func() {
		log.Printf("制御APIサーバーを起動しています: %s", s.config.ServerAddress())
		if err := s.controlServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			shutdownCh <- fmt.Errorf("制御APIサーバーの起動に失敗: %w", err)
		}
	}()
	go func() {
		log.Printf("ストリーミングサーバーを起動しています: %s", s.config.StreamAddress())
		if err := s.streamServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			shutdownCh <- fmt.Errorf("ストリーミングサーバーの起動に失敗: %w", err)
		}
	}()

	// シグナルハンドリング
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	// コンテキストかシグナルを待つ
	select {
	case <-ctx.Done():
		log.Println("コンテキストがキャンセルされました")
	case sig := <-sigCh:
		log.Printf("シグナルを受信しました: %v", sig)
	case err := <-shutdownCh:
		s.Shutdown()
		return err
	}

	// グレースフルシャットダウン
	return s.Shutdown()
}

// Shutdown は2つのサーバーとカメラソースをグレースフルに停止する
func (s *Server) Shutdown() error {
	log.Println("サーバーをシャットダウンしています...")

	// 5秒のタイムアウトを設定
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var firstErr error
	if s.controlServer != nil {
		if err := s.controlServer.Shutdown(ctx); err != nil {
			firstErr = fmt.Errorf("制御APIサーバーのシャットダウンに失敗: %w", err)
		}
	}
	if s.streamServer != nil {
		if err := s.streamServer.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("ストリーミングサーバーのシャットダウンに失敗: %w", err)
		}
	}

	if err := s.source.Stop(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("カメラソースの停止に失敗: %w", err)
	}

	if firstErr != nil {
		return firstErr
	}

	log.Println("サーバーが正常にシャットダウンされました")
	return nil
}
