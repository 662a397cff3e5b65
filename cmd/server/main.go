package main

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v82"

	"hangarshare/internal/api"
	"hangarshare/internal/auth"
	"hangarshare/internal/cache"
	"hangarshare/internal/config"
	"hangarshare/internal/metrics"
	"hangarshare/internal/repository"
	"hangarshare/internal/service"
	"hangarshare/internal/service/payments"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("loading configuration")
	}

	database, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("opening database")
	}
	if err := database.Ping(); err != nil {
		log.WithError(err).Fatal("connecting to database")
	}

	stripe.Key = cfg.StripeSecretKey
	metrics.Register()

	var availCache *cache.AvailabilityCache
	if cfg.RedisAddr != "" {
		availCache = cache.NewAvailabilityCache(cache.NewClient(cfg.RedisAddr), time.Minute)
	} else {
		availCache = cache.NewAvailabilityCache(nil, 0)
	}

	hangarRepo := repository.NewHangarRepository(database)
	reservationRepo := repository.NewReservationRepository(database)
	paymentRepo := repository.NewPaymentRepository(database)
	jobRepo := repository.NewJobRepository(database)
	conflictRepo := repository.NewConflictRepository(database)
	operatorRepo := repository.NewOperatorAuthRepository(database)

	var notifier service.Notifier = service.NoopNotifier{}
	if cfg.SendgridAPIKey != "" {
		notifier = service.NewSenderService(cfg, log)
	}

	stripeProvider := payments.NewStripeProvider(cfg.StripeSuccessURL, cfg.StripeCancelURL, cfg.Currency, log)
	pixProvider := payments.NewPixProvider(cfg.PixKey, cfg.PixMerchantName, cfg.PixMerchantCity, cfg.Currency, cfg.HoldWindow, log)
	providers := map[string]payments.Provider{
		stripeProvider.Kind(): stripeProvider,
		pixProvider.Kind():    pixProvider,
	}

	availabilityService := service.NewAvailabilityService(reservationRepo, availCache, cfg.HoldWindow, log)
	pricingService := service.NewPricingService(cfg.PlatformFeeBps, cfg.Currency)
	reservationService := service.NewReservationService(
		hangarRepo, reservationRepo, paymentRepo,
		availabilityService, pricingService,
		providers, stripeProvider, notifier,
		availCache, cfg.CancelCutoff, log,
	)
	reconcileService := service.NewReconcileService(reservationRepo, paymentRepo, notifier, log)
	conflictService := service.NewConflictService(conflictRepo, cfg.HoldWindow, log)
	operatorAuth := service.NewOperatorAuthService(operatorRepo, cfg.JWTSecret)

	var pixClient payments.PixStatusClient
	if cfg.PixAPIBaseURL != "" {
		pixClient = payments.NewHTTPPixClient(cfg.PixAPIBaseURL)
	}
	jobService := service.NewJobService(jobRepo, paymentRepo, reconcileService, pixClient, cfg.HoldWindow, cfg.PaymentGrace, log)

	c := cron.New()
	c.AddFunc("@every 1m", func() {
		ctx, cancel := jobContext()
		defer cancel()
		jobService.ExpireStalePending(ctx)
		jobService.PollInstantTransfers(ctx)
	})
	c.AddFunc("@every 5m", func() {
		ctx, cancel := jobContext()
		defer cancel()
		jobService.CompleteFinished(ctx)
	})
	c.Start()
	defer c.Stop()

	availabilityHandler := api.NewAvailabilityHandler(availabilityService, log)
	reservationHandler := api.NewReservationHandler(reservationService, log)
	stripeHandler := api.NewStripeWebhookHandler(cfg.StripeWebhookSecret, reconcileService, stripeProvider, log)
	pixHandler := api.NewPixWebhookHandler(cfg.PixWebhookSecret, reconcileService, log)
	operatorHandler := api.NewOperatorHandler(operatorAuth, reservationService, conflictService, log)

	r := mux.NewRouter()

	// Public endpoints
	r.HandleFunc("/api/hangars/{id}/availability", availabilityHandler.GetAvailability).Methods("GET")
	r.HandleFunc("/api/quotes", reservationHandler.Quote).Methods("GET")
	r.HandleFunc("/api/operator/login", operatorHandler.Login).Methods("POST")

	// Webhooks authenticate through signatures, not bearer tokens
	r.HandleFunc("/api/webhooks/stripe", stripeHandler.HandleWebhook).Methods("POST")
	r.HandleFunc("/api/webhooks/pix", pixHandler.HandleWebhook).Methods("POST")

	// Authenticated user endpoints
	user := r.PathPrefix("/api/reservations").Subrouter()
	user.Use(auth.Middleware(cfg.JWTSecret))
	user.HandleFunc("", reservationHandler.CreateReservation).Methods("POST")
	user.HandleFunc("/{code}", reservationHandler.GetReservation).Methods("GET")
	user.HandleFunc("/{code}", reservationHandler.CancelReservation).Methods("DELETE")

	// Operator endpoints
	operator := r.PathPrefix("/api/operator").Subrouter()
	operator.Use(auth.Middleware(cfg.JWTSecret), auth.RequireRole("operator"))
	operator.HandleFunc("/reservations", operatorHandler.ListReservations).Methods("GET")
	operator.HandleFunc("/reservations/{code}", operatorHandler.CancelReservation).Methods("DELETE")
	operator.HandleFunc("/conflicts", operatorHandler.ConflictReport).Methods("GET")

	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)

	log.WithField("port", cfg.Port).Info("server listening")
	if err := http.ListenAndServe(":"+cfg.Port, cors(r)); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

func jobContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 2*time.Minute)
}
