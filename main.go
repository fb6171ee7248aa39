package main

import (
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dlibrary/server"
)

// Digital Library 入口：启动 HTTP + WebSocket 转发服务
func main() {
	cfg, err := server.LoadConfig()
	if err != nil {
		panic(err)
	}
	// 命令行覆盖环境变量，便于快速试跑
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "server listen address, e.g. :3000")
	flag.StringVar(&cfg.LogFile, "log", cfg.LogFile, "log file path")
	flag.Parse()

	// 使用第三方 zap 日志库写入日志文件（带滚动）
	if err := server.InitLogger(cfg.LogFile); err != nil {
		panic(err)
	}
	defer server.SyncLogger()

	hub := server.NewHub(cfg)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.HandleWS)
	// 前后端分离：将 / 映射到 web 目录的静态资源
	mux.Handle("/", http.FileServer(http.Dir("web")))
	// 管理与监控接口
	mux.HandleFunc("/metrics", hub.HandleMetrics)
	mux.HandleFunc("/admin/players", hub.HandleAdminPlayers)
	mux.HandleFunc("/admin/gates", hub.HandleAdminGates)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	go func() {
		server.Log.Infof("🚀 服务器运行在 %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			server.Log.Fatalf("listen: %v", err)
		}
	}()

	// 周期打印在线人数
	go func() {
		ticker := time.NewTicker(cfg.OnlineLogEvery)
		defer ticker.Stop()
		for range ticker.C {
			server.Log.Infof("📊 当前在线人数: %d", hub.OnlineCount())
		}
	}()

	// 优雅退出（Ctrl+C）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	server.Log.Info("Shutting down...")
}
