package main

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"catalog-sync-engine/internal/application"
	"catalog-sync-engine/internal/application/webhook_handlers"
	"catalog-sync-engine/internal/domain"
	"catalog-sync-engine/internal/infrastructure/encryption"
	"catalog-sync-engine/internal/infrastructure/lock"
	"catalog-sync-engine/internal/infrastructure/metrics"
	"catalog-sync-engine/internal/infrastructure/pubsub"
	"catalog-sync-engine/internal/infrastructure/repository"
	shopifyinfra "catalog-sync-engine/internal/infrastructure/shopify"
	"catalog-sync-engine/internal/ports"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// oauthScopes are the access scopes requested on install. The engine only
// reads catalog data.
var oauthScopes = []string{"read_products"}

const (
	oauthStateTTL = 10 * time.Minute
	syncLockTTL   = 15 * time.Minute
)

func main() {
	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("⚠️  Warning: .env file not found")
	}

	// Get configuration from environment
	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI == "" {
		mongoURI = "mongodb://localhost:27017"
	}

	appURL := os.Getenv("APP_URL")
	if appURL == "" {
		appURL = "http://localhost:8080"
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	apiKey := os.Getenv("SHOPIFY_API_KEY")
	apiSecret := os.Getenv("SHOPIFY_API_SECRET")
	if apiKey == "" || apiSecret == "" {
		logger.Fatal().Msg("SHOPIFY_API_KEY and SHOPIFY_API_SECRET environment variables are required")
	}

	encryptionKey := os.Getenv("ENCRYPTION_KEY")
	if encryptionKey == "" {
		logger.Fatal().Msg("ENCRYPTION_KEY environment variable is required")
	}

	// Connect to MongoDB
	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(mongoURI))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer mongoClient.Disconnect(context.Background())

	db := mongoClient.Database(os.Getenv("MONGODB_DATABASE"))

	// Connect to Redis (sync lock backend)
	redisClient := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer redisClient.Close()

	// Initialize infrastructure (implementations)
	encryptionService, err := encryption.NewService(encryptionKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize encryption service")
	}

	// Initialize repositories
	connectionRepo := repository.NewMongoConnectionRepository(db)
	catalogRepo := repository.NewMongoCatalogRepository(db)
	if err := connectionRepo.EnsureIndexes(context.Background()); err != nil {
		logger.Fatal().Err(err).Msg("Failed to create connection indexes")
	}
	if err := catalogRepo.EnsureIndexes(context.Background()); err != nil {
		logger.Fatal().Err(err).Msg("Failed to create catalog indexes")
	}

	// Initialize rate limiter and retry config for the upstream API
	rateLimiter := shopifyinfra.NewRateLimiter(logger)
	retryConfig := shopifyinfra.DefaultRetryConfig()
	shopifyClient := shopifyinfra.NewClientWithOptions(apiKey, apiSecret, rateLimiter, retryConfig, logger)

	webhookVerifier := shopifyinfra.NewWebhookVerifier(apiSecret)
	syncLocker := lock.NewRedisSyncLocker(redisClient, syncLockTTL, logger)

	// Initialize application services
	catalogService := application.NewCatalogService(catalogRepo, logger)
	connectionService := application.NewConnectionService(
		connectionRepo,
		catalogService,
		shopifyClient,
		encryptionService,
		logger,
		appURL+"/webhooks/shopify",
	)
	syncService := application.NewSyncService(
		connectionService,
		catalogService,
		shopifyClient,
		syncLocker,
		logger,
	)

	// Initialize webhook dispatcher and register handlers
	webhookDispatcher := application.NewWebhookDispatcher(logger)
	webhookDispatcher.RegisterHandler(webhook_handlers.NewProductHandler(catalogService, logger))
	webhookDispatcher.RegisterHandler(webhook_handlers.NewVariantHandler(catalogService, logger))
	webhookDispatcher.RegisterHandler(webhook_handlers.NewAppUninstalledHandler(connectionService, logger))

	// Initialize webhook pub/sub for the event stream
	webhookPubSub := pubsub.NewWebhookPubSub(logger)

	// Metrics registry
	registry := prometheus.NewRegistry()
	engineMetrics := metrics.New(registry)

	oauthStates := newStateStore()

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	// Business ID middleware (extracts business id from the X-Business-ID
	// header). Skips public routes and the routes that carry the business id
	// another way: the OAuth callback (state) and webhooks (URL).
	r.Use(createBusinessIDMiddleware())

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	// Swagger documentation - public
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	r.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		http.ServeFile(w, r, "./docs/swagger.json")
	})

	// OAuth routes
	r.Get("/auth/shopify", oauthInitHandler(shopifyClient, oauthStates, appURL, logger))
	r.Get("/auth/callback", oauthCallbackHandler(connectionService, oauthStates, apiSecret, logger))

	// Connection and sync routes (business id from header)
	r.Get("/connection", connectionStatusHandler(connectionService, logger))
	r.Delete("/connection", disconnectHandler(connectionService, logger))
	r.Post("/sync", syncHandler(syncService, engineMetrics, logger))

	// Webhook endpoint: POST /webhooks/shopify/{businessId}
	r.Post("/webhooks/shopify/{businessId}", webhookHandler(webhookVerifier, webhookDispatcher, webhookPubSub, engineMetrics, logger))

	// Live event stream for the business's webhook traffic
	r.Get("/events", eventsHandler(webhookPubSub, logger))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	logger.Info().Str("port", port).Msg("Starting API server")
	logger.Info().Msg("Swagger documentation available at http://localhost:" + port + "/swagger/index.html")
	if err := http.ListenAndServe(":"+port, r); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start server")
	}
}

// stateStore holds pending OAuth states in memory. States expire after
// oauthStateTTL; a server restart mid-handshake just means the merchant
// restarts the install.
type stateStore struct {
	mu      sync.Mutex
	entries map[string]stateEntry
}

type stateEntry struct {
	Shop       string
	BusinessID string
	ExpiresAt  time.Time
}

func newStateStore() *stateStore {
	return &stateStore{entries: make(map[string]stateEntry)}
}

func (s *stateStore) Put(state string, entry stateEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, e := range s.entries {
		if time.Now().After(e.ExpiresAt) {
			delete(s.entries, k)
		}
	}
	s.entries[state] = entry
}

// Take returns and removes the entry for a state. Single use.
func (s *stateStore) Take(state string) (stateEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[state]
	if !ok {
		return stateEntry{}, false
	}
	delete(s.entries, state)
	if time.Now().After(entry.ExpiresAt) {
		return stateEntry{}, false
	}
	return entry, true
}

// oauthInitHandler initiates the OAuth flow
func oauthInitHandler(client ports.ShopifyClient, states *stateStore, appURL string, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shop := r.URL.Query().Get("shop")
		if shop == "" {
			http.Error(w, "shop parameter is required", http.StatusBadRequest)
			return
		}

		businessID := domain.GetBusinessIDFromContext(r.Context())
		if businessID == "" {
			http.Error(w, "X-Business-ID header is required", http.StatusBadRequest)
			return
		}

		// Random state for CSRF protection
		stateBytes := make([]byte, 16)
		if _, err := rand.Read(stateBytes); err != nil {
			logger.Error().Err(err).Msg("Failed to generate state")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		state := hex.EncodeToString(stateBytes)

		states.Put(state, stateEntry{
			Shop:       shop,
			BusinessID: businessID,
			ExpiresAt:  time.Now().Add(oauthStateTTL),
		})

		authURL := client.AuthURL(shop, oauthScopes, appURL+"/auth/callback", state)
		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

// oauthCallbackHandler completes the OAuth flow: state check, HMAC check,
// then the token exchange and webhook subscription via the connection
// service.
func oauthCallbackHandler(
	connections *application.ConnectionService,
	states *stateStore,
	apiSecret string,
	logger zerolog.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		shop := r.URL.Query().Get("shop")
		code := r.URL.Query().Get("code")
		state := r.URL.Query().Get("state")
		if shop == "" || code == "" || state == "" {
			http.Error(w, "Missing required parameters", http.StatusBadRequest)
			return
		}

		entry, ok := states.Take(state)
		if !ok || entry.Shop != shop {
			http.Error(w, "Invalid or expired state", http.StatusUnauthorized)
			return
		}

		if !verifyCallbackHMAC(r.URL.Query(), apiSecret) {
			logger.Warn().Str("shop", shop).Msg("OAuth callback HMAC verification failed")
			http.Error(w, "Invalid signature", http.StatusUnauthorized)
			return
		}

		ctx = domain.WithBusinessID(ctx, entry.BusinessID)
		connectionID, err := connections.Connect(ctx, entry.BusinessID, shop, code)
		if err != nil {
			logger.Error().Err(err).Str("shop", shop).Msg("Failed to complete installation")
			http.Error(w, "Failed to complete installation", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"connection_id": connectionID,
			"shop":          shop,
		})
	}
}

// verifyCallbackHMAC validates the hex HMAC Shopify attaches to OAuth
// callback query strings: HMAC-SHA256 over the remaining parameters sorted
// and joined with &.
func verifyCallbackHMAC(query url.Values, apiSecret string) bool {
	provided := query.Get("hmac")
	if provided == "" {
		return false
	}
	expected, err := hex.DecodeString(provided)
	if err != nil {
		return false
	}

	pairs := make([]string, 0, len(query))
	for key, values := range query {
		if key == "hmac" || key == "signature" {
			continue
		}
		for _, v := range values {
			pairs = append(pairs, key+"="+v)
		}
	}
	sort.Strings(pairs)

	mac := hmac.New(sha256.New, []byte(apiSecret))
	mac.Write([]byte(strings.Join(pairs, "&")))
	return hmac.Equal(mac.Sum(nil), expected)
}

// connectionStatusHandler reports whether the business is connected and the
// outcome of its last sync
func connectionStatusHandler(connections *application.ConnectionService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		businessID := domain.GetBusinessIDFromContext(r.Context())
		status, err := connections.GetStatus(r.Context(), businessID)
		if err != nil {
			logger.Error().Err(err).Str("businessId", businessID).Msg("Failed to get connection status")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(status)
	}
}

// disconnectHandler severs the connection and detaches the synced catalog
func disconnectHandler(connections *application.ConnectionService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		businessID := domain.GetBusinessIDFromContext(r.Context())
		if err := connections.Disconnect(r.Context(), businessID); err != nil {
			logger.Error().Err(err).Str("businessId", businessID).Msg("Failed to disconnect")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "disconnected"})
	}
}

// syncHandler triggers a full catalog sync and returns its report
func syncHandler(syncService *application.SyncService, m *metrics.Metrics, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		businessID := domain.GetBusinessIDFromContext(r.Context())

		started := time.Now()
		report, err := syncService.Run(r.Context(), businessID)

		switch {
		case err == application.ErrNotConnected:
			http.Error(w, "Business is not connected", http.StatusConflict)
			return
		case err == application.ErrSyncInProgress:
			http.Error(w, "A sync is already running for this business", http.StatusConflict)
			return
		}

		if report != nil {
			m.SyncDuration.Observe(time.Since(started).Seconds())
			m.SyncRuns.WithLabelValues(string(report.Status())).Inc()
			m.SyncItems.WithLabelValues("added").Add(float64(report.Added))
			m.SyncItems.WithLabelValues("updated").Add(float64(report.Updated))
			m.SyncItems.WithLabelValues("removed").Add(float64(report.Removed))
			m.SyncItems.WithLabelValues("skipped").Add(float64(report.Skipped))
		}

		if err != nil {
			logger.Error().Err(err).Str("businessId", businessID).Msg("Sync run failed")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadGateway)
			json.NewEncoder(w).Encode(report)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(report)
	}
}

// webhookHandler ingests upstream change events
func webhookHandler(
	verifier *shopifyinfra.WebhookVerifier,
	dispatcher *application.WebhookDispatcher,
	webhookPubSub *pubsub.WebhookPubSub,
	m *metrics.Metrics,
	logger zerolog.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		businessID := chi.URLParam(r, "businessId")
		if businessID == "" {
			http.Error(w, "businessId is required", http.StatusBadRequest)
			return
		}
		ctx = domain.WithBusinessID(ctx, businessID)

		topic := r.Header.Get("X-Shopify-Topic")
		if topic == "" {
			http.Error(w, "Missing X-Shopify-Topic header", http.StatusBadRequest)
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request body", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		hmacHeader := r.Header.Get("X-Shopify-Hmac-SHA256")
		if err := verifier.Verify(payload, hmacHeader); err != nil {
			logger.Warn().Err(err).Str("businessId", businessID).Str("topic", topic).Msg("Webhook signature verification failed")
			http.Error(w, "Invalid signature", http.StatusUnauthorized)
			return
		}

		m.WebhookEvents.WithLabelValues(topic).Inc()

		event := &domain.WebhookEvent{
			Topic:      topic,
			BusinessID: businessID,
			Shop:       r.Header.Get("X-Shopify-Shop-Domain"),
			Payload:    payload,
			Verified:   true,
			ReceivedAt: time.Now(),
		}

		webhookPubSub.Publish(event)

		if err := dispatcher.Dispatch(ctx, event); err != nil {
			logger.Error().
				Err(err).
				Str("topic", topic).
				Str("businessId", businessID).
				Msg("Failed to dispatch webhook event")

			// 500 makes the upstream platform redeliver
			http.Error(w, "Failed to process webhook event", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"received": "true"})
	}
}

// eventsHandler streams the business's webhook events over SSE
func eventsHandler(webhookPubSub *pubsub.WebhookPubSub, logger zerolog.Logger) http.HandlerFunc {
	type eventView struct {
		Topic      string          `json:"topic"`
		Shop       string          `json:"shop,omitempty"`
		Payload    json.RawMessage `json:"payload"`
		ReceivedAt time.Time       `json:"received_at"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "Streaming not supported", http.StatusInternalServerError)
			return
		}

		businessID := domain.GetBusinessIDFromContext(r.Context())
		filter := &pubsub.WebhookEventFilter{BusinessID: businessID}
		if topics := r.URL.Query().Get("topics"); topics != "" {
			filter.Topics = strings.Split(topics, ",")
		}

		channel := webhookPubSub.Subscribe(r.Context(), filter)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		flusher.Flush()

		for {
			select {
			case <-r.Context().Done():
				return
			case event, ok := <-channel.Events:
				if !ok {
					return
				}
				data, err := json.Marshal(eventView{
					Topic:      event.Topic,
					Shop:       event.Shop,
					Payload:    json.RawMessage(event.Payload),
					ReceivedAt: event.ReceivedAt,
				})
				if err != nil {
					logger.Warn().Err(err).Msg("Failed to encode stream event")
					continue
				}
				fmt.Fprintf(w, "data: %s\n\n", data)
				flusher.Flush()
			}
		}
	}
}

// createBusinessIDMiddleware extracts the business id from the X-Business-ID
// header into the request context
func createBusinessIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			if path == "/health" ||
				path == "/metrics" ||
				path == "/auth/callback" ||
				strings.HasPrefix(path, "/swagger") ||
				strings.HasPrefix(path, "/webhooks/") {
				next.ServeHTTP(w, r)
				return
			}

			businessID := r.Header.Get("X-Business-ID")
			if businessID == "" {
				http.Error(w, "X-Business-ID header is required", http.StatusBadRequest)
				return
			}

			ctx := domain.WithBusinessID(r.Context(), businessID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
