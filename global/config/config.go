package config

import (
	"os"
	"strconv"
	"time"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

// AppConfig carries everything the gateway process needs. Loaded once in
// main() from the environment; zero values are normalized by Norm.
type AppConfig struct {
	NodeID string // gateway node id, feeds the snowflake generator
	Port   int    // http listen port

	Redis   RedisConfig
	NatsURL string // optional; empty disables the cross-instance relay

	AuthSecret string // HMAC secret for upstream-signed identity tokens

	MaxConnsPerUser int           // per-user connection cap
	IdleTimeout     time.Duration // evict connections idle longer than this
	ReapEvery       time.Duration // registry sweep interval
	SendQueueSize   int           // per-connection outbound queue length
	WriteDeadline   time.Duration // transport write deadline
}

func Load() *AppConfig {
	c := &AppConfig{
		NodeID: envStr("GATEWAY_NODE_ID", ""),
		Port:   envInt("GATEWAY_PORT", 8080),
		Redis: RedisConfig{
			Addr:     envStr("REDIS_ADDR", "127.0.0.1:6379"),
			Password: envStr("REDIS_PASSWORD", ""),
			DB:       envInt("REDIS_DB", 0),
			PoolSize: envInt("REDIS_POOL_SIZE", 0),
		},
		NatsURL:         envStr("NATS_URL", ""),
		AuthSecret:      envStr("AUTH_SECRET", ""),
		MaxConnsPerUser: envInt("MAX_CONNS_PER_USER", 0),
		IdleTimeout:     envDur("CONN_IDLE_TIMEOUT", 0),
		ReapEvery:       envDur("REAP_INTERVAL", 0),
		SendQueueSize:   envInt("SEND_QUEUE_SIZE", 0),
		WriteDeadline:   envDur("WRITE_DEADLINE", 0),
	}
	c.Norm()
	return c
}

// Norm fills defaults; mirrors the source constants (cap 5, 12h idle,
// 12h reap).
func (c *AppConfig) Norm() {
	if c.NodeID == "" {
		host, _ := os.Hostname()
		if host == "" {
			host = "gateway-1"
		}
		c.NodeID = host
	}
	if c.Port <= 0 {
		c.Port = 8080
	}
	if c.MaxConnsPerUser <= 0 {
		c.MaxConnsPerUser = 5
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 12 * time.Hour
	}
	if c.ReapEvery <= 0 {
		c.ReapEvery = 12 * time.Hour
	}
	if c.SendQueueSize <= 0 {
		c.SendQueueSize = 256
	}
	if c.WriteDeadline <= 0 {
		c.WriteDeadline = 5 * time.Second
	}
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDur(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
