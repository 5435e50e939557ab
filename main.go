package main

import (
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"

	"conduit/auth"
	"conduit/cache"
	"conduit/crud"
	"conduit/http"
)

// main is the app's entry point.
func main() {
	// The "-prod" flag means we're running in production. In that case a
	// .config.json file is required and the app panics if none is found.
	productionBool := flag.Bool("prod", false, "Provide this flag in production to ensure that a .config.json file is provided before the application starts.")
	flag.Parse()

	config := LoadConfig(*productionBool)

	// Console output in development, JSON in production.
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	if !config.IsProd() {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	// Open a database connection and execute migrations.
	db := NewDB(config.DatabaseURL)
	must(Open(db, config.IsProd()))
	defer Close(db)
	must(AutoMigrate(db))

	// Cache in redis when an address is configured, otherwise in memory.
	var store cache.Cache = cache.NewMemory()
	if config.RedisAddr != "" {
		redis, err := cache.NewRedis(config.RedisAddr, config.RedisPassword, config.RedisDB)
		must(err)
		defer redis.Close()
		store = redis
		logger.Info().Str("addr", config.RedisAddr).Msg("caching in redis")
	}
	bus := cache.NewBus(store, logger)

	// Start the crud services and the token resolver.
	services := crud.NewServices(db.Gorm, store, bus)
	resolver := auth.NewResolver(services.User, store, config.JWTSecret)

	// Set up a webserver and serve the app.
	server := http.NewServer(resolver, services, logger)
	logger.Info().Str("env", config.Env).Msg("starting")
	must(server.Run(config.Port))
}

// must is a little helper for shortening the panic instruction.
func must(err error) {
	if err != nil {
		panic(err)
	}
}
