package main

import (
	"context"
	"hash/fnv"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"TeamSync/global/config"
	"TeamSync/logger"
	"TeamSync/service/auth"
	"TeamSync/service/presence"
	"TeamSync/service/storage"
	redisx "TeamSync/service/storage/redis"
	"TeamSync/tools/ids"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
)

func main() {
	conf := config.Load()
	defer logger.Sync()

	ids.SetNodeID(nodeNum(conf.NodeID))

	if err := redisx.InitRedis(redisx.Config{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
		PoolSize: conf.Redis.PoolSize,
	}); err != nil {
		logger.Errorf("[main] redis init: %v", err)
		os.Exit(1)
	}
	defer func() { _ = redisx.CloseRedis() }()

	var nc *nats.Conn
	if conf.NatsURL != "" {
		var err error
		nc, err = nats.Connect(conf.NatsURL, nats.Name("presence-gateway-"+conf.NodeID))
		if err != nil {
			logger.Errorf("[main] nats connect: %v", err)
			os.Exit(1)
		}
		defer nc.Close()
	}

	svc := presence.NewService(presence.Conf{
		NodeID:        conf.NodeID,
		MaxPerUser:    conf.MaxConnsPerUser,
		IdleTimeout:   conf.IdleTimeout,
		ReapEvery:     conf.ReapEvery,
		SendQueueSize: conf.SendQueueSize,
		WriteDeadline: conf.WriteDeadline,
	}, storage.NewRedisStore(redisx.GetRedis()), auth.NewHandshakeAuth(conf.AuthSecret), nc)

	if err := svc.Start(); err != nil {
		logger.Errorf("[main] service start: %v", err)
		os.Exit(1)
	}
	defer svc.Stop()

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/ws", svc.HandleWS)
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	srv := &http.Server{Addr: ":" + strconv.Itoa(conf.Port), Handler: r}
	go func() {
		logger.Infof("[main] gateway %s listening on :%d", conf.NodeID, conf.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("[main] http serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("[main] shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warnf("[main] shutdown: %v", err)
	}
}

// nodeNum folds the node id string into the snowflake node space.
func nodeNum(nodeID string) int64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(nodeID))
	return int64(h.Sum32() % 1024)
}
