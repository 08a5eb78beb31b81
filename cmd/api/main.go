package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"cardmint-shopify-app/internal/application"
	"cardmint-shopify-app/internal/application/webhook_handlers"
	"cardmint-shopify-app/internal/domain"
	apiinfra "cardmint-shopify-app/internal/infrastructure/api"
	"cardmint-shopify-app/internal/infrastructure/lock"
	"cardmint-shopify-app/internal/infrastructure/metrics"
	"cardmint-shopify-app/internal/infrastructure/pubsub"
	"cardmint-shopify-app/internal/infrastructure/repository"
	shopifyinfra "cardmint-shopify-app/internal/infrastructure/shopify"
	"cardmint-shopify-app/internal/ports"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var installScopes = []string{"write_gift_cards", "read_orders", "write_orders", "read_customers"}

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

	apiKey := os.Getenv("SHOPIFY_API_KEY")
	apiSecret := os.Getenv("SHOPIFY_API_SECRET")
	if apiKey == "" || apiSecret == "" {
		logger.Fatal().Msg("SHOPIFY_API_KEY and SHOPIFY_API_SECRET environment variables are required")
	}

	// Connect to MongoDB
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(mongoURI))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer client.Disconnect(context.Background())

	dbName := os.Getenv("MONGODB_DATABASE")
	if dbName == "" {
		dbName = "cardmint"
	}
	db := client.Database(dbName)

	// Connect to Redis for the per-order processing claims. Optional: the
	// pipeline degrades to the plain idempotency check without it.
	var claims ports.ProcessingClaim
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		opts, err := goredis.ParseURL(redisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("Invalid REDIS_URL")
		}
		claims = lock.NewRedisProcessingClaim(goredis.NewClient(opts), lock.DefaultClaimTTL, logger)
	} else {
		logger.Warn().Msg("REDIS_URL not set, running without processing claims")
	}

	// Initialize repositories
	shopRepo := repository.NewMongoShopRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	settingsRepo := repository.NewMongoSettingsRepository(db)
	issuanceRepo := repository.NewMongoIssuanceRepository(db)

	if err := issuanceRepo.EnsureIndexes(context.Background()); err != nil {
		logger.Fatal().Err(err).Msg("Failed to create MongoDB indexes")
	}

	// Initialize Shopify client
	shopifyClient := shopifyinfra.NewClient(apiKey, apiSecret, logger)

	// Initialize issuance pub/sub for the admin event feed
	issuancePubSub := pubsub.NewIssuancePubSub(logger)

	// Initialize application services
	issuanceService := application.NewIssuanceService(settingsRepo, issuanceRepo, shopifyClient, claims, issuancePubSub, metrics.Recorder{}, logger)
	settingsService := application.NewSettingsService(settingsRepo, logger)
	giftCardService := application.NewGiftCardService(issuanceRepo, shopRepo, shopifyClient, logger)

	// Initialize webhook dispatcher and register handlers
	webhookDispatcher := application.NewWebhookDispatcher(logger)
	webhookDispatcher.RegisterHandler(webhook_handlers.NewOrderPaidHandler(logger, shopRepo, issuanceService))
	webhookDispatcher.RegisterHandler(webhook_handlers.NewAppUninstalledHandler(logger, shopRepo))

	webhookVerifier := shopifyinfra.NewWebhookVerifier(apiSecret)

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

	// Public routes
	// Health check - must be public for monitoring
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	// Swagger documentation - public
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	r.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		http.ServeFile(w, r, "./docs/swagger.json")
	})

	// OAuth routes
	r.Get("/auth/shopify", oauthInitHandler(sessionRepo, shopifyClient, appURL, logger))
	r.Get("/auth/callback", oauthCallbackHandler(sessionRepo, shopRepo, shopifyClient, appURL, logger))

	// Webhook endpoint, topic routed by the dispatcher
	webhookAPI := apiinfra.NewWebhookAPI(webhookVerifier, webhookDispatcher, logger)
	r.Post("/webhooks/shopify", webhookAPI.Handle)

	// Admin API for the embedded app, shop identified by header
	adminAPI := apiinfra.NewAdminAPI(settingsService, giftCardService, issuancePubSub, logger)
	r.Route("/api", func(r chi.Router) {
		r.Use(shopDomainMiddleware(logger))
		adminAPI.Routes(r)
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	logger.Info().Str("port", port).Msg("Starting API server")
	if err := http.ListenAndServe(":"+port, r); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start server")
	}
}

// oauthInitHandler initiates the OAuth install flow
func oauthInitHandler(
	sessionRepo *repository.SessionRepository,
	shopifyClient ports.ShopifyClient,
	appURL string,
	logger zerolog.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		shop := r.URL.Query().Get("shop")
		if shop == "" {
			http.Error(w, "shop parameter is required", http.StatusBadRequest)
			return
		}

		// Generate random state for CSRF protection
		stateBytes := make([]byte, 16)
		if _, err := rand.Read(stateBytes); err != nil {
			logger.Error().Err(err).Msg("Failed to generate state")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		state := hex.EncodeToString(stateBytes)

		returnURL := r.URL.Query().Get("return_url")

		session := &domain.Session{
			Shop:      shop,
			State:     state,
			Scopes:    installScopes,
			ReturnURL: returnURL,
			ExpiresAt: time.Now().Add(10 * time.Minute),
		}
		if err := sessionRepo.CreateSession(ctx, session); err != nil {
			logger.Error().Err(err).Msg("Failed to create session")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		redirectURI := appURL + "/auth/callback"
		authURL, err := shopifyClient.GenerateAuthURL(shop, installScopes, redirectURI, state)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to build authorization URL")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

// oauthCallbackHandler completes the install: exchanges the code for an
// access token, stores the shop, and registers the webhooks the app needs.
func oauthCallbackHandler(
	sessionRepo *repository.SessionRepository,
	shopRepo ports.ShopRepository,
	shopifyClient ports.ShopifyClient,
	appURL string,
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

		session, err := sessionRepo.GetSession(ctx, state)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to get session")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if session == nil || session.Shop != shop {
			http.Error(w, "Invalid session", http.StatusUnauthorized)
			return
		}
		sessionRepo.DeleteSession(ctx, state)

		token, err := shopifyClient.ExchangeToken(ctx, shop, code, appURL+"/auth/callback")
		if err != nil {
			logger.Error().Err(err).Msg("Failed to exchange token")
			http.Error(w, "Failed to complete installation", http.StatusInternalServerError)
			return
		}

		currency, err := shopifyClient.GetShopCurrency(ctx, shop, token)
		if err != nil {
			logger.Warn().Err(err).Str("shop", shop).Msg("Failed to fetch shop currency at install")
		}

		if err := shopRepo.SaveShop(ctx, &domain.Shop{
			Domain:      shop,
			AccessToken: token,
			Scopes:      session.Scopes,
			Currency:    currency,
		}); err != nil {
			logger.Error().Err(err).Msg("Failed to save shop")
			http.Error(w, "Failed to complete installation", http.StatusInternalServerError)
			return
		}

		for _, topic := range []string{"orders/paid", "app/uninstalled"} {
			if err := shopifyClient.RegisterWebhook(ctx, shop, token, topic, appURL+"/webhooks/shopify"); err != nil {
				logger.Warn().Err(err).Str("shop", shop).Str("topic", topic).Msg("Failed to register webhook")
			}
		}

		logger.Info().Str("shop", shop).Msg("App installed")

		returnURL := session.ReturnURL
		if returnURL == "" {
			returnURL = fmt.Sprintf("https://%s/admin/apps", shop)
		}
		http.Redirect(w, r, returnURL+"?installed="+url.QueryEscape(shop), http.StatusFound)
	}
}

// shopDomainMiddleware extracts the acting shop from the X-Shop-Domain
// header and places it in the request context for the admin API.
func shopDomainMiddleware(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			shop := r.Header.Get("X-Shop-Domain")
			if shop == "" {
				http.Error(w, "X-Shop-Domain header is required", http.StatusBadRequest)
				return
			}

			ctx := domain.WithShopDomain(r.Context(), shop)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
