package bootstrap

import (
	"context"
	"log"
	"time"

	"service-resolver-be/internal/config"
	"service-resolver-be/internal/constant"
	"service-resolver-be/internal/controller"
	"service-resolver-be/internal/pkg/logger"
	"service-resolver-be/internal/pkg/mailer"
	"service-resolver-be/internal/service"
	"service-resolver-be/pkg/database"
	"service-resolver-be/pkg/embedding"
	"service-resolver-be/pkg/index"
	"service-resolver-be/pkg/index/milvus"
	"service-resolver-be/pkg/index/pgvectorstore"
	"service-resolver-be/pkg/llm/factory"
	"service-resolver-be/pkg/rerank"
	"service-resolver-be/pkg/resolve/executor"
	"service-resolver-be/pkg/resolve/search"
	"service-resolver-be/pkg/store"
	"service-resolver-be/pkg/upstream"

	pkgNats "service-resolver-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

const resolutionTopic = "resolution.completed"

// newSessionStore prefers Redis and falls back to the in-process store
// when Redis cannot be reached.
func newSessionStore(redisURL string, sessionTTL, resultTTL time.Duration) store.SessionStore {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: redisURL,
		}
	}

	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v. Falling back to in-memory store", err)
		_ = rdb.Close()
		return store.NewMemoryStore(sessionTTL, resultTTL)
	}
	return store.NewRedisStore(rdb, sessionTTL, resultTTL)
}

type Container struct {
	// Controllers
	ResolveController controller.IResolveController
	AdminController   controller.IAdminController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// Held for shutdown
	IndexClient index.Client
	NatsPub     *pkgNats.Publisher
}

func NewContainer(cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.SenderName,
	)

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. AI Collaborators
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.OllamaEmbedModel,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaEmbedModel)
	} else {
		embeddingProvider = embedding.NewTEIProvider(cfg.Ai.EmbedURL, cfg.Ai.EmbeddingDim)
		log.Printf("[INFO] Using Embedding Provider: TEI (%s, dim=%d)", cfg.Ai.EmbedURL, cfg.Ai.EmbeddingDim)
	}

	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.LLMBaseURL,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// Vector index backend
	var indexClient index.Client
	if cfg.Index.Provider == "pgvector" {
		gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
		if err != nil {
			log.Fatalf("[FATAL] Failed to connect to pgvector backend: %v", err)
		}
		indexClient = pgvectorstore.NewStore(gormDB)
		log.Printf("[INFO] Using Index Provider: PGVECTOR")
	} else {
		indexClient, err = milvus.NewClient(context.Background(), cfg.Index.MilvusAddr, cfg.Index.Metric, cfg.Index.Nprobe)
		if err != nil {
			log.Fatalf("[FATAL] Failed to connect to Milvus: %v", err)
		}
		log.Printf("[INFO] Using Index Provider: MILVUS (%s)", cfg.Index.MilvusAddr)
	}

	var reranker search.Reranker
	if cfg.Ai.RerankEnabled {
		reranker = rerank.NewClient(cfg.Ai.RerankURL)
		log.Printf("[INFO] Rerank enabled (%s)", cfg.Ai.RerankURL)
	}

	// 4. Infrastructure
	// NATS
	natsPub, err := pkgNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		natsPub = nil
	}

	// Redis-backed session store, in-memory fallback
	sessionStore := newSessionStore(cfg.App.RedisURL, cfg.Session.SessionTTL, cfg.Session.ResultTTL)

	// Upstream conversation gateway
	var upstreamClient *upstream.Client
	if cfg.Upstream.BaseURL != "" {
		upstreamClient = upstream.NewClient(cfg.Upstream.BaseURL, cfg.Upstream.APIKey, cfg.Upstream.UserID)
	}

	// 5. Pipeline
	orchestrator := search.NewOrchestrator(
		embeddingProvider,
		indexClient,
		reranker,
		cfg.Index.Collection,
		cfg.Pipeline.SimilarityThreshold,
	)
	pipeline := executor.NewPipeline(orchestrator, llmProvider, executor.Config{
		DefaultLimit:   cfg.Pipeline.DefaultLimit,
		EmbedTimeout:   cfg.Pipeline.EmbedTimeout,
		SearchTimeout:  cfg.Pipeline.SearchTimeout,
		RerankTimeout:  cfg.Pipeline.RerankTimeout,
		AugmentTimeout: cfg.Pipeline.AugmentTimeout,
		SystemPrompt:   constant.AugmentationSystemPrompt,
	})

	// 6. Services
	auditLogger := logger.NewIsolatedLogger("logs/resolution.log")

	publisherService := service.NewPublisherService(resolutionTopic, pubSub)

	var forwarder service.EventForwarder
	if natsPub != nil {
		forwarder = natsPub
	}
	consumerService := service.NewConsumerService(
		pubSub,
		resolutionTopic,
		auditLogger,
		forwarder,
	)

	alertService := service.NewAlertService(
		cfg.Alert.Enabled,
		cfg.Alert.Threshold,
		cfg.Alert.Window,
		cfg.Alert.Recipient,
		emailService,
		sysLogger,
	)

	var gateway service.ConversationGateway
	if upstreamClient != nil {
		gateway = upstreamClient
	}
	resolverService := service.NewResolverService(
		pipeline,
		sessionStore,
		gateway,
		publisherService,
		alertService,
		sysLogger,
	)

	adminService := service.NewAdminService(sysLogger)

	// 7. Controllers
	return &Container{
		ResolveController: controller.NewResolveController(resolverService),
		AdminController:   controller.NewAdminController(adminService),

		ConsumerService: consumerService,

		IndexClient: indexClient,
		NatsPub:     natsPub,
	}
}
