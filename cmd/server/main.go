package main

import (
	"os"
	"strings"

	"supply_map_backend/internal/database"
	"supply_map_backend/internal/router"
	"supply_map_backend/pkg/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func main() {
	utils.InitLogger()

	dbHost := utils.Getenv("DB_HOST", "localhost")
	dbPort := utils.Getenv("DB_PORT", "5432")
	dbUser := utils.Getenv("DB_USER", "supply_map_user")
	dbPassword := utils.Getenv("DB_PASSWORD", "supply_map_password")
	dbName := utils.Getenv("DB_NAME", "supply_map_db")
	dbSSLMode := utils.Getenv("DB_SSLMODE", "disable")
	migrationsDir := utils.Getenv("DB_MIGRATIONS_DIR", "migrations")

	if err := database.InitDB(dbHost, dbPort, dbUser, dbPassword, dbName, dbSSLMode, migrationsDir); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(utils.GinLogger())

	corsAllowedOriginsEnv := os.Getenv("CORS_ALLOWED_ORIGINS")
	var allowedOrigins []string
	if corsAllowedOriginsEnv != "" {
		allowedOrigins = strings.Split(corsAllowedOriginsEnv, ",")
	} else {
		allowedOrigins = []string{"http://localhost:3000"}
	}

	config := cors.DefaultConfig()
	config.AllowOrigins = allowedOrigins
	config.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	config.AllowCredentials = true
	engine.Use(cors.New(config))

	router.Setup(engine, database.GetDB())

	port := utils.Getenv("PORT", "8080")
	log.Info().Str("port", port).Msg("Server starting")
	if err := engine.Run(":" + port); err != nil {
		log.Fatal().Err(err).Msg("Failed to start server")
	}
}
