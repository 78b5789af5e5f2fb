package main

import (
	"log"
	nethttp "net/http"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/odoodash/gateway/adapters/events"
	"github.com/odoodash/gateway/adapters/odoo"
	"github.com/odoodash/gateway/adapters/ratelimit"
	"github.com/odoodash/gateway/adapters/store"
	"github.com/odoodash/gateway/adapters/tokenizer"
	"github.com/odoodash/gateway/audit"
	"github.com/odoodash/gateway/config"
	"github.com/odoodash/gateway/ports"
	"github.com/odoodash/gateway/service"
	"github.com/odoodash/gateway/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	wmLogger := watermill.NewStdLogger(false, false)

	var (
		challenges ports.ChallengeStore
		limiter    ports.RateLimiter
		publisher  message.Publisher
	)

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to parse Redis URL: %v", err)
		}
		redisClient := redis.NewClient(opts)

		challenges = store.NewRedisStore(redisClient, cfg.ChallengeTokenTTL)
		limiter = ratelimit.NewRedisLimiter(redisClient)
		publisher, err = redisstream.NewPublisher(
			redisstream.PublisherConfig{Client: redisClient},
			wmLogger,
		)
		if err != nil {
			log.Fatalf("Failed to create Redis publisher: %v", err)
		}
	} else {
		challenges = store.NewMemoryStore(cfg.ChallengeTokenTTL)
		limiter = ratelimit.NewMemoryLimiter()
		publisher = gochannel.NewGoChannel(gochannel.Config{}, wmLogger)
	}

	client := odoo.NewClient(cfg.OdooURL, cfg.OdooDB, &nethttp.Client{Timeout: 30 * time.Second})
	session := odoo.NewSession(client, cfg.OdooServiceLogin, cfg.OdooServicePassword)

	tok := tokenizer.NewJWTTokenizer([]byte(cfg.JWTSecret), cfg.SessionTokenTTL)
	eventPub := events.NewWatermillPublisher(publisher)
	auditor := audit.NewLogger(eventPub)

	authService := service.NewAuthService(client, tok, session)
	reportService := service.NewReportService(session)

	router := http.SetupRouter(http.Deps{
		Auth:       authService,
		Reports:    reportService,
		Challenges: challenges,
		Limiter:    limiter,
		Audit:      auditor,
		Production: cfg.Production(),
	})

	log.Printf("Gateway listening on %s", cfg.ListenAddr)
	if err := router.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
