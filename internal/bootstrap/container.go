package bootstrap

import (
	"context"
	"log"
	"time"

	"confusion-engine-be/internal/config"
	"confusion-engine-be/internal/constant"
	"confusion-engine-be/internal/controller"
	"confusion-engine-be/internal/handler"
	"confusion-engine-be/internal/pkg/logger"
	"confusion-engine-be/internal/repository/contract"
	"confusion-engine-be/internal/repository/implementation"
	"confusion-engine-be/internal/repository/memory"
	"confusion-engine-be/internal/service"
	internalWS "confusion-engine-be/internal/websocket"
	"confusion-engine-be/pkg/baseline"
	"confusion-engine-be/pkg/heuristic"
	pktNats "confusion-engine-be/pkg/nats"
	"confusion-engine-be/pkg/publisher"
	"confusion-engine-be/pkg/scoring"
	"confusion-engine-be/pkg/weights"
	"confusion-engine-be/pkg/window"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	EventController    controller.IEventController
	FeedbackController controller.IFeedbackController
	BaselineController controller.IBaselineController
	EngineController   controller.IEngineController
	AdminController    controller.IAdminController

	// Handlers
	PointStreamHandler *handler.PointStreamHandler

	// Background Services (started by Start, stopped by Shutdown)
	IngestionService service.IIngestionService
	BaselineService  service.IBaselineService
	SchedulerService service.ISchedulerService
	StreamConsumer   service.IStreamConsumer // nil without NATS
	ExplanationRelay service.IExplanationRelay

	Logger logger.ILogger

	weightController *weights.Controller
	weightRepo       contract.HeuristicWeightRepository // nil without a database
	baselineStore    *baseline.Store
	publisher        *publisher.Publisher
	hub              *internalWS.Hub
	pubSub           *gochannel.GoChannel
	natsPub          *pktNats.Publisher
	natsSub          *pktNats.Subscriber
	rdb              *redis.Client
	cancel           context.CancelFunc
}

// NewContainer wires the engine. db may be nil; every external system is
// optional and the engine falls back to in-process storage without it.
func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	dropLogger := logger.NewIsolatedLogger(cfg.App.DropLogFilePath)

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: int64(cfg.Engine.SinkBuffer)},
		watermillLogger,
	)

	// 3. Infrastructure
	var (
		weightRepo    contract.HeuristicWeightRepository
		baselineRepo  contract.CohortBaselineRepository
		confusionRepo contract.ConfusionRepository
	)
	if db != nil {
		weightRepo = implementation.NewHeuristicWeightRepository(db)
		baselineRepo = implementation.NewCohortBaselineRepository(db)
		confusionRepo = implementation.NewConfusionRepository(db)
	} else {
		log.Printf("[WARN] No database configured: weights, baselines and points are kept in memory only")
	}

	var sampleLog baseline.SampleLog = baseline.NewMemoryLog()
	rdb := connectRedis(cfg.App.RedisURL)
	if rdb != nil {
		sampleLog = implementation.NewSegmentSampleRepository(rdb)
	}

	var (
		natsPub *pktNats.Publisher
		natsSub *pktNats.Subscriber
		err     error
	)
	if cfg.App.NatsURL != "" {
		natsPub, err = pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
			natsPub = nil
		}
		natsSub, err = pktNats.NewSubscriber(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
			natsSub = nil
		}
	}

	// 4. Engine Components
	windows := window.NewManager(cfg.Engine.WindowHorizon, sysLogger)

	baselineCfg := baseline.DefaultConfig()
	baselineCfg.Alpha = cfg.Baseline.Alpha
	baselineCfg.MinSamples = cfg.Baseline.MinSamples
	baselineCfg.Retention = cfg.Baseline.Retention
	var baselinePersister baseline.Persister
	if baselineRepo != nil {
		baselinePersister = baselineRepo
	}
	baselineStore := baseline.NewStore(baselineCfg, sampleLog, baselinePersister, sysLogger)

	weightCfg := weights.DefaultConfig()
	weightCfg.TrailingSignals = cfg.Feedback.TrailingSignals
	weightCfg.TrailingAge = cfg.Feedback.TrailingAge
	weightController := weights.NewController(weightCfg, constant.DefaultHeuristicWeights, sysLogger)

	heuristicCfg := heuristic.DefaultConfig()
	heuristicCfg.ScrollVelocity = cfg.Engine.ScrollVelocityThreshold
	aggregator := scoring.NewAggregator(heuristic.NewEvaluator(heuristicCfg), weightController)

	pub := publisher.New(cfg.Engine.SinkBuffer, sysLogger)
	pub.AddPointSink(publisher.NewWatermillSink(pubSub))
	if natsPub != nil {
		natsSink := publisher.NewNatsSink(natsPub)
		pub.AddPointSink(natsSink)
		pub.AddScoreSink(natsSink)
	}
	if rdb != nil {
		pub.AddPointSink(publisher.NewRedisSink(rdb))
	}
	if confusionRepo != nil {
		repoSink := publisher.NewRepositorySink(confusionRepo)
		pub.AddPointSink(repoSink)
		pub.AddScoreSink(repoSink)
	}

	// Clustered hubs hear points back through the redis channel.
	hub := internalWS.NewHub(rdb, sysLogger)
	if !hub.Clustered() {
		pub.AddPointSink(hub)
	}

	// 5. Services
	explanations := memory.NewExplanationRepository(cfg.Feedback.ExplanationTTL)
	engineService := service.NewEngineService(windows, baselineStore, aggregator, pub, cfg.Engine.LatencyBudget, sysLogger)
	ingestionService := service.NewIngestionService(engineService, cfg.Engine.Lanes, cfg.Engine.LaneCapacity, sysLogger, dropLogger)
	feedbackService := service.NewFeedbackService(weightController, explanations, sysLogger)
	baselineService := service.NewBaselineService(baselineStore, baselineRepo, sysLogger)
	confusionService := service.NewConfusionService(confusionRepo)
	adminService := service.NewAdminService(sysLogger)
	schedulerService := service.NewSchedulerService(service.SchedulerConfig{
		RecomputeInterval:    cfg.Baseline.RecomputeInterval,
		ReversalScanInterval: cfg.Feedback.ReversalScanInterval,
		SweepInterval:        cfg.Engine.WindowSweepInterval,
		WindowIdleTTL:        cfg.Engine.WindowIdleTTL,
	}, engineService, baselineService, weightController, sysLogger)

	var streamConsumer service.IStreamConsumer
	if natsSub != nil {
		streamConsumer = service.NewStreamConsumer(natsSub, ingestionService, feedbackService, sysLogger)
	}

	// 6. Controllers
	return &Container{
		EventController:    controller.NewEventController(ingestionService),
		FeedbackController: controller.NewFeedbackController(feedbackService),
		BaselineController: controller.NewBaselineController(baselineService),
		EngineController:   controller.NewEngineController(engineService, ingestionService, confusionService, weightController, baselineStore),
		AdminController:    controller.NewAdminController(adminService),

		PointStreamHandler: handler.NewPointStreamHandler(hub, sysLogger),

		IngestionService: ingestionService,
		BaselineService:  baselineService,
		SchedulerService: schedulerService,
		StreamConsumer:   streamConsumer,
		ExplanationRelay: service.NewExplanationRelay(pubSub, feedbackService, sysLogger),

		Logger: sysLogger,

		weightController: weightController,
		weightRepo:       weightRepo,
		baselineStore:    baselineStore,
		publisher:        pub,
		hub:              hub,
		pubSub:           pubSub,
		natsPub:          natsPub,
		natsSub:          natsSub,
		rdb:              rdb,
	}
}

func connectRedis(url string) *redis.Client {
	if url == "" {
		return nil
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: url,
		}
	}
	rdb := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis, sample log stays in memory: %v", err)
		_ = rdb.Close()
		return nil
	}
	return rdb
}

// Start restores persisted state and launches every background worker.
func (c *Container) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	if c.weightRepo != nil {
		records, err := c.weightRepo.FindAll(runCtx)
		if err != nil {
			c.Logger.Warn(constant.ModuleBootstrap, "Failed to load persisted weights, using defaults", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			c.weightController.Load(records)
		}
		go c.weightController.Run(runCtx, c.weightRepo)
	}

	if err := c.BaselineService.Restore(runCtx); err != nil {
		c.Logger.Warn(constant.ModuleBootstrap, "Baseline restore incomplete", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Sinks drain on Shutdown, after runCtx is gone.
	if err := c.publisher.Start(context.Background()); err != nil {
		return err
	}
	if err := c.IngestionService.Start(runCtx); err != nil {
		return err
	}
	if err := c.ExplanationRelay.Start(runCtx); err != nil {
		return err
	}
	if c.StreamConsumer != nil {
		if err := c.StreamConsumer.Start(runCtx); err != nil {
			c.Logger.Warn(constant.ModuleBootstrap, "Stream consumer not started", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
	go c.SchedulerService.Run(runCtx)
	go c.hub.Run(runCtx)

	c.Logger.Info(constant.ModuleBootstrap, "Engine started", map[string]interface{}{
		"nats":  c.natsPub != nil,
		"redis": c.rdb != nil,
		"db":    c.weightRepo != nil,
	})
	return nil
}

// Shutdown stops intake first so every accepted event is still scored and delivered.
func (c *Container) Shutdown() {
	if c.natsSub != nil {
		c.natsSub.Close()
	}
	if err := c.IngestionService.Close(); err != nil {
		c.Logger.Error(constant.ModuleBootstrap, "Ingestion drain failed", map[string]interface{}{"error": err.Error()})
	}
	if err := c.publisher.Close(); err != nil {
		c.Logger.Error(constant.ModuleBootstrap, "Publisher drain failed", map[string]interface{}{"error": err.Error()})
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.baselineStore.Close()
	_ = c.pubSub.Close()
	if c.natsPub != nil {
		c.natsPub.Close()
	}
	if c.rdb != nil {
		_ = c.rdb.Close()
	}
	_ = c.Logger.Sync()
}
