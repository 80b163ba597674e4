package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/IBM/sarama"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"

	"wallServer/backend/config"
	"wallServer/backend/internal/authservice"
	"wallServer/backend/internal/cache"
	"wallServer/backend/internal/feed"
	"wallServer/backend/internal/httpapi/handlers"
	"wallServer/backend/internal/httpapi/middleware"
	"wallServer/backend/internal/preview"
	"wallServer/backend/internal/store"
	"wallServer/backend/internal/wall"
	"wallServer/backend/internal/ws"
)

func initConfig() (*config.Config, error) {
	cfg := &config.Config{}
	v := viper.New()
	v.SetConfigName("wallConfig")
	v.SetConfigType("yaml")
	// 兼容从项目根目录或 backend 目录启动
	v.AddConfigPath("./backend/config")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	cfg, err := initConfig()
	if err != nil {
		log.Fatalf("init config failed: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
	})
	if err = rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	defer rdb.Close()

	db, err := sql.Open("mysql", cfg.Mysql.DSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// feed 读模型走 gorm（和写路径共用同一个库）
	gdb, err := gorm.Open(gormmysql.Open(cfg.Mysql.DSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to open gorm: %v", err)
	}

	// === 初始化 Kafka Producer ===
	kafkaCfg := sarama.NewConfig()
	// SyncProducer 必须开启 Return.Successes
	kafkaCfg.Producer.Return.Successes = true
	kafkaCfg.Producer.RequiredAcks = sarama.WaitForLocal
	producer, err := sarama.NewSyncProducer(cfg.Kafka.Brokers, kafkaCfg)
	if err != nil {
		log.Fatalf("Failed to connect kafka: %v", err)
	}
	defer producer.Close()

	kafkaSem := wall.NewSemaphoreControl()
	kafkaDispatcher := wall.NewKafkaDispatcher(
		producer,
		cfg.Kafka.Topic,
		kafkaSem,
		wall.KafkaDispatcherOptions{
			QueueSize:   10_000,
			Workers:     4,
			MaxRetry:    3,
			BaseBackoff: 50 * time.Millisecond,
			MaxBackoff:  1 * time.Second,
		},
	)

	wallStore := store.NewWallStore(db)
	userStore := store.NewUserStore(db)
	presenceCache := cache.NewRedisPresence(rdb)
	limiter := cache.NewRateLimiter(rdb, cfg.RateLimit.MaxEdits, cfg.RateLimit.Window)

	// 像素墙引擎（内存权威态 + MySQL 落地）
	svc := wall.NewInMemoryService(wallStore, limiter, kafkaDispatcher, cfg.Wall.DefaultColor, cfg.Wall.MaxDimension)
	hub := ws.NewHub(presenceCache)
	// 广播在墙锁内发出，保证订阅者看到的顺序就是序号顺序
	svc.SetBroadcaster(hub)
	manager := ws.NewManager(hub, svc)

	// 预览生成器：独立于编辑链路，按周期逐墙刷新
	gen := preview.NewGenerator(svc, wallStore, cfg.Preview.Interval)
	previewCtx, stopPreview := context.WithCancel(context.Background())
	defer stopPreview()
	go gen.Run(previewCtx)

	feedRepo := feed.NewMySQLFeedRepo(gdb)
	stats := feed.NewCachedStats(rdb, feedRepo)
	wallHandlers := handlers.NewWallHandlers(svc, feedRepo, stats, wallStore, gen)
	authHandlers := authservice.NewHandlers(userStore, cfg.Auth.AllowRegister)

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOriginFunc:  func(origin string) bool { return true },
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	auth := r.Group("/v1/auth")
	auth.POST("/login", authHandlers.Login)
	auth.POST("/register", authHandlers.Register)
	auth.POST("/refresh", authHandlers.Refresh)

	api := r.Group("/v1")
	api.Use(middleware.AuthMiddleware())
	api.POST("/walls", wallHandlers.CreateWall)
	api.GET("/walls", wallHandlers.ListWalls)
	api.GET("/walls/:wallID", wallHandlers.GetWall)
	api.GET("/walls/:wallID/preview", wallHandlers.GetPreview)

	wallGroup := r.Group("/wall")
	// 鉴权中间件会从 Authorization 或 ?token= 提取 token，写入 userId/username
	wallGroup.Use(middleware.AuthMiddleware())
	wallGroup.GET("/ws", manager.WebSocketConnect)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "ok"})
	})

	_ = r.Run(fmt.Sprintf(":%d", cfg.Running.Port))
}
