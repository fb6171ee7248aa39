package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"dlibrary/client"
)

// 无头机器人：连上服务器后在馆内游走、坐下、聊天，用于联调与压测
func main() {
	var (
		serverURL = flag.String("server", "ws://localhost:3000/ws", "websocket server url")
		name      = flag.String("name", "", "bot username (default bot-<rand>)")
		duration  = flag.Duration("duration", 0, "run duration, 0 = run until Ctrl+C")
	)
	flag.Parse()

	username := *name
	if username == "" {
		username = fmt.Sprintf("bot-%04d", rand.Intn(10000))
	}

	zl, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	logger := zl.Sugar()
	defer func() { _ = logger.Sync() }()

	sock, err := client.Dial(*serverURL, logger)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}

	world := client.NewWorld(username, sock, demoRegions())
	setupDemoMap(world)
	world.OnNotice = func(level client.NoticeLevel, text string) {
		logger.Infof("[%s] %s", level, text)
	}

	if err := sock.Join(username); err != nil {
		logger.Fatalf("join: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if *duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		cancel()
	}()

	go runLoop(ctx, world, logger)

	if err := sock.Run(ctx, world); err != nil {
		logger.Warnf("connection closed: %v", err)
	}
}

// demoRegions 与二层地图约定一致的演示区域
func demoRegions() []client.Region {
	return []client.Region{
		{Name: "自习区", Type: client.RegionStudy, Bounds: client.Rect{X: 0, Y: 0, W: 480, H: 360}},
		{Name: "讨论区", Type: client.RegionDiscussion, Bounds: client.Rect{X: 480, Y: 0, W: 480, H: 360}},
		{Name: "休闲区", Type: client.RegionLeisure, Bounds: client.Rect{X: 0, Y: 360, W: 480, H: 360}},
	}
}

// setupDemoMap 演示用的座位、闸机和打印机
func setupDemoMap(w *client.World) {
	w.AddSeat(client.NewSeat(1, 200, 160, "down"))
	w.AddSeat(client.NewSeat(2, 260, 160, "down"))
	w.AddSeat(client.NewSeat(3, 560, 200, "left"))
	w.AddGate(client.NewGate("gate_640_360", 640, 360, "vertical"))
	w.AddPrinter(client.NewPrinter(1, 120, 420))
}

// runLoop 世界主循环（约 60fps）+ 简单的游走/坐下/聊天脚本
func runLoop(ctx context.Context, w *client.World, logger *zap.SugaredLogger) {
	const frame = 16 * time.Millisecond
	ticker := time.NewTicker(frame)
	defer ticker.Stop()

	targetX, targetY := 512.0, 384.0
	var sinceDecision, sinceChat time.Duration

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		w.Update(frame)

		sinceDecision += frame
		sinceChat += frame

		// 每 3 秒挑一个新目标点，或者尝试跟最近的物体交互
		if sinceDecision >= 3*time.Second {
			sinceDecision = 0
			if rand.Intn(4) == 0 {
				w.TryInteract()
			} else {
				if w.Local().IsSitting {
					w.TryInteract() // 站起
				}
				targetX = 64 + rand.Float64()*832
				targetY = 64 + rand.Float64()*656
			}
		}

		// 每 15 秒说一句话
		if sinceChat >= 15*time.Second {
			sinceChat = 0
			w.SendPublicChat(fmt.Sprintf("(%s) 你好👋", w.Chat.ChannelLabel()))
		}

		stepToward(w, targetX, targetY, frame)
	}
}

// stepToward 以固定速度向目标点走一帧
func stepToward(w *client.World, tx, ty float64, dt time.Duration) {
	p := w.Local()
	if p.IsSitting {
		return
	}
	const speed = 160.0 // 像素/秒
	dx := tx - p.X
	dy := ty - p.Y
	dist := math.Hypot(dx, dy)
	if dist < 2 {
		return
	}
	step := speed * dt.Seconds()
	if step > dist {
		step = dist
	}
	anim := "walk-right"
	if math.Abs(dy) > math.Abs(dx) {
		anim = "walk-down"
		if dy < 0 {
			anim = "walk-up"
		}
	} else if dx < 0 {
		anim = "walk-left"
	}
	w.MoveLocal(p.X+dx/dist*step, p.Y+dy/dist*step, anim)
}
