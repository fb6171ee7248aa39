package server

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config 服务端运行配置，优先从环境变量读取，入口处可被命令行覆盖
type Config struct {
	Addr    string `env:"LIBRARY_ADDR" envDefault:":3000"`
	LogFile string `env:"LIBRARY_LOG_FILE" envDefault:"library.log"`

	// 在线人数统计日志的输出间隔（原型期每 10 秒打印一次）
	OnlineLogEvery time.Duration `env:"LIBRARY_ONLINE_LOG_EVERY" envDefault:"10s"`

	// 每个连接发送队列的容量，写满后丢弃（保实时性）
	SendQueueSize int `env:"LIBRARY_SEND_QUEUE" envDefault:"64"`
}

// LoadConfig 解析环境变量生成配置
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
