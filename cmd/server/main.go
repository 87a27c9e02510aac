package main

import (
	"log"
	"net/http"

	"wastecollect-backend/internal/config"
	"wastecollect-backend/internal/database"
	"wastecollect-backend/internal/handlers"
	"wastecollect-backend/internal/services"
	"wastecollect-backend/internal/websocket"

	"github.com/redis/go-redis/v9"
)

func main() {
	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("🚀 WASTE COLLECTION BACKEND SERVER STARTING")
	log.Println("═══════════════════════════════════════════════════════════════════")

	cfg, err := config.Load()
	if err != nil {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ FATAL ERROR: Invalid configuration")
		log.Printf("   Error: %v", err)
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Fatal(err)
	}

	log.Println("🔌 Connecting to database...")
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ FATAL ERROR: Database connection failed")
		log.Printf("   Error: %v", err)
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Fatal(err)
	}
	defer db.Close()

	log.Println("🔄 Running database migrations...")
	if err := database.Migrate(db); err != nil {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ FATAL ERROR: Database migrations failed")
		log.Printf("   Error: %v", err)
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Fatal(err)
	}

	log.Println("🌱 Seeding database with initial data...")
	if err := database.SeedUsers(db, cfg.SeedAdminEmail, cfg.SeedAdminPassword, cfg.SeedDemoUsers); err != nil {
		log.Fatalf("❌ FATAL ERROR: User seeding failed: %v", err)
	}
	if err := database.SeedBins(db); err != nil {
		log.Fatalf("❌ FATAL ERROR: Bins seeding failed: %v", err)
	}

	routeRepo := database.NewRouteRepository(db)
	binRepo := database.NewBinRepository(db)
	userRepo := database.NewUserRepository(db)

	// Redis analytics cache (optional)
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️  Invalid REDIS_URL: %v (analytics cache disabled)", err)
		} else {
			rdb = redis.NewClient(opts)
			defer rdb.Close()
			log.Println("✅ Redis analytics cache enabled")
		}
	} else {
		log.Println("⚠️  REDIS_URL not set, analytics cache disabled")
	}
	analytics := services.NewAnalyticsService(routeRepo, rdb, cfg.AnalyticsCacheTTL)

	// RabbitMQ route events (optional)
	var publisher services.EventPublisher
	if cfg.RabbitMQURL != "" {
		rabbit, err := services.NewRabbitPublisher(cfg.RabbitMQURL)
		if err != nil {
			log.Printf("⚠️  %v (route events will not be published)", err)
		} else {
			defer rabbit.Close()
			publisher = rabbit
			log.Printf("✅ Publishing route events to exchange %q", services.RouteEventsExchange)
		}
	}

	// Firebase Cloud Messaging (optional)
	var push services.PushSender
	var fcmService *services.FCMService
	if cfg.FirebaseCredentialsBase64 != "" {
		fcmService, err = services.NewFCMServiceFromBase64(cfg.FirebaseCredentialsBase64)
	} else {
		fcmService, err = services.NewFCMService(cfg.FirebaseCredentialsFile)
	}
	if err != nil {
		log.Printf("⚠️  Failed to initialize FCM: %v (push notifications disabled)", err)
	} else {
		push = fcmService
		log.Println("✅ Firebase Cloud Messaging initialized")
	}

	wsHub := websocket.NewHub()
	go wsHub.Run()
	log.Println("✅ WebSocket hub started")

	fanout := services.NewRouteEventFanout(wsHub, publisher, push, userRepo, analytics)
	routeService := services.NewRouteService(routeRepo, binRepo, userRepo, fanout)

	router := handlers.NewRouter(handlers.RouterDeps{
		Routes:    routeService,
		Analytics: analytics,
		Users:     userRepo,
		Bins:      binRepo,
		Hub:       wsHub,
		JWTSecret: cfg.JWTSecret,
	})

	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("✅ ALL INITIALIZATION COMPLETE")
	log.Printf("🚀 Server starting on http://localhost:%s", cfg.Port)
	log.Println("═══════════════════════════════════════════════════════════════════")

	if err := http.ListenAndServe(":"+cfg.Port, router); err != nil {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ FATAL ERROR: Server failed to start")
		log.Printf("   Error: %v", err)
		log.Printf("   Port: %s", cfg.Port)
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Fatal(err)
	}
}
