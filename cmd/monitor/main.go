package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/MK-DEV369/HMS-Brain/docs" // Swagger docs
	"github.com/MK-DEV369/HMS-Brain/internal/alert"
	"github.com/MK-DEV369/HMS-Brain/internal/api"
	"github.com/MK-DEV369/HMS-Brain/internal/backend"
	"github.com/MK-DEV369/HMS-Brain/internal/classify"
	"github.com/MK-DEV369/HMS-Brain/internal/config"
	"github.com/MK-DEV369/HMS-Brain/internal/health"
	"github.com/MK-DEV369/HMS-Brain/internal/identity"
	"github.com/MK-DEV369/HMS-Brain/internal/monitor"
	"github.com/MK-DEV369/HMS-Brain/internal/store"
	"github.com/MK-DEV369/HMS-Brain/internal/websocket"
)

// @title EEG Live Monitor API
// @version 1.0
// @description API шлюза живого мониторинга ЭЭГ: справочник пациентов, сессии мониторинга, классификация и экстренные оповещения

// @contact.name API Support
// @contact.email support@hms-brain.local

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8090
// @BasePath /
// @schemes http

func main() {
	log.Printf("[INFO] Starting EEG live monitor gateway...")

	cfg := config.Load()
	log.Printf("[INFO] Configuration loaded: http_port=%s mode=%s backend=%s",
		cfg.HTTPPort, cfg.Mode, cfg.BackendBaseURL)

	// Redis: кэш снимков и истории классификаций. Без него сервис
	// работает, но история и кэш спектрограмм недоступны
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()

	var cache store.CacheStore
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Printf("[WARN] Redis unavailable, running without cache: %v", err)
	} else {
		cache = store.NewRedisStore(redisClient, cfg.HistoryLimit, cfg.SpectrogramTTL())
		log.Printf("[INFO] Connected to Redis at %s", cfg.RedisAddr)
	}

	// PostgreSQL: журнал аудита оповещений и сохраненные классификации.
	// Пустой DSN отключает персистентность
	var repo store.Repository
	var recorder alert.Recorder
	if cfg.PostgresDSN != "" {
		pg, err := store.NewPostgresRepositoryFromDSN(cfg.PostgresDSN)
		if err != nil {
			log.Printf("[WARN] PostgreSQL unavailable, alert audit disabled: %v", err)
		} else {
			defer pg.Close()
			repo = pg
			recorder = pg
			log.Printf("[INFO] Connected to PostgreSQL")
		}
	}

	backendClient := backend.NewClient(cfg.BackendBaseURL)

	dial := func(ctx context.Context, patientID string) (monitor.Transport, error) {
		return backend.DialStream(ctx, cfg.BackendWSURL, patientID)
	}

	// runCtx ограничивает время жизни фоновых частей: хаба и сессий
	// мониторинга. Контексты HTTP запросов живут только до ответа и
	// для долгоживущих сессий не годятся
	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()

	controller := monitor.NewController(runCtx, monitor.Config{
		Mode:           monitor.Mode(cfg.Mode),
		BufferCapacity: cfg.BufferCapacity,
		WindowSize:     cfg.WindowSize,
		ReplayInterval: cfg.ReplayInterval(),
		DriftInterval:  cfg.DriftInterval(),
		FeatureChannel: cfg.FeatureChannel,
	}, dial, backendClient.FetchSnapshot)

	coordinator := monitor.NewCoordinator(backendClient, controller, true)

	hub := websocket.NewHub()
	historian := store.NewHistorian(cache, repo)
	controller.SetPublisher(func(snapshot monitor.Snapshot) {
		hub.BroadcastSnapshot(snapshot)
		historian.Observe(snapshot)
	})

	idp := identity.NewStaticProvider(identity.User{
		ID:    cfg.DoctorID,
		Name:  cfg.DoctorName,
		Role:  "doctor",
		Token: cfg.DoctorToken,
		Phone: cfg.DoctorPhone,
	})

	dispatcher := alert.NewDispatcher(
		cfg.AlertSinkURL,
		idp,
		coordinator.Selected,
		func() classify.State { return controller.Snapshot().State },
		recorder,
	)

	go hub.Run(runCtx)

	// Первичная загрузка справочника: отказ бэкенда не фатален,
	// справочник можно перечитать через /api/patients/refresh
	refreshCtx, refreshCancel := context.WithTimeout(runCtx, 10*time.Second)
	if err := coordinator.Refresh(refreshCtx); err != nil {
		log.Printf("[WARN] Initial patient refresh failed: %v", err)
	} else if cache != nil {
		for _, patient := range coordinator.Patients() {
			p := patient
			if err := cache.SetPatient(refreshCtx, &p); err != nil {
				log.Printf("[WARN] Failed to cache patient %s: %v", p.ID, err)
			}
		}
	}
	refreshCancel()

	healthServer := health.NewHealthServer()
	healthServer.SetServingStatus("monitor")
	if cache != nil {
		healthServer.SetServingStatus("redis")
	} else {
		healthServer.SetNotServingStatus("redis")
	}
	if repo != nil {
		healthServer.SetServingStatus("postgres")
	} else {
		healthServer.SetNotServingStatus("postgres")
	}

	router := mux.NewRouter()

	httpHandler := api.NewHTTPHandler(coordinator, controller, dispatcher, backendClient, cache, repo)
	httpHandler.RegisterRoutes(router)

	router.HandleFunc("/healthz", healthServer.Handler).Methods("GET")
	router.HandleFunc("/ws/dashboard", hub.HandleWebSocket)

	// Swagger UI
	router.PathPrefix("/swagger/").Handler(httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
	))

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      enableCORS(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		log.Printf("[INFO] HTTP server listening on :%s", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrChan:
		log.Printf("[ERROR] Server error: %v", err)

	case sig := <-shutdownChan:
		log.Printf("[INFO] Received signal %v, starting graceful shutdown...", sig)

		healthServer.SetNotServingStatus("monitor")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] HTTP server shutdown error: %v", err)
		}

		controller.Stop()
		runCancel()

		log.Printf("[INFO] Graceful shutdown completed")
	}

	log.Printf("[INFO] Server stopped")
}

// enableCORS разрешает кросс-доменные запросы от дашборда
func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
