package main

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/northcart/ecommerce-api/config"
	"github.com/northcart/ecommerce-api/logger"
	"github.com/northcart/ecommerce-api/models"
	"github.com/northcart/ecommerce-api/payment"
	"github.com/northcart/ecommerce-api/routes"
)

func main() {
	// Load environment variables
	_ = godotenv.Load()

	cfg, err := config.Load(context.Background())
	if err != nil {
		panic(err)
	}

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: !cfg.IsProduction(),
	})

	// Missing payment secrets are fatal: refuse to start.
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	db := initDatabase(cfg)

	if err := db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Category{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.ProductRequest{},
		&models.Feedback{},
	); err != nil {
		log.Fatal().Err(err).Msg("auto-migrate failed")
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.ClientOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	gateway := payment.NewClient(
		cfg.Stripe.SecretKey,
		cfg.Stripe.APIBase,
		cfg.Stripe.Timeout,
		cfg.Stripe.MaxAttempts,
		log,
	)

	// No mail relay is deployed alongside this service yet, so issued
	// password-reset tokens are discarded rather than delivered.
	routes.SetupRoutes(r, db, gateway, cfg, nil)

	log.Info().Str("port", cfg.Port).Msg("server starting")
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

// initDatabase opens the GORM Postgres connection and bounds the shared pool.
func initDatabase(cfg *config.Config) *gorm.DB {
	log := logger.Get()

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal().Err(err).Msg("database handle unavailable")
	}
	sqlDB.SetMaxOpenConns(cfg.Pool.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Pool.MaxIdleConns)
	sqlDB.SetConnMaxIdleTime(cfg.Pool.ConnMaxIdleTime)
	sqlDB.SetConnMaxLifetime(cfg.Pool.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Pool.AcquireTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("database unreachable")
	}

	return db
}
