package main

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/azaan/internal/config"
	"github.com/Nixie-Tech-LLC/azaan/internal/kv"
	"github.com/Nixie-Tech-LLC/azaan/internal/storage"
)

// InitStorage selects and returns the configured asset backend
func InitStorage(cfg *config.Config) storage.Storage {
	if cfg.UseSpaces {
		spacesStorage, err := storage.NewSpacesStorage(
			cfg.SpacesEndpoint,
			cfg.SpacesRegion,
			cfg.SpacesBucket,
			cfg.SpacesCDNURL,
			cfg.SpacesAccessKey,
			cfg.SpacesSecretKey,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize Spaces storage")
		}
		log.Info().Str("cdn", cfg.SpacesCDNURL).Msg("using DigitalOcean Spaces storage")
		return spacesStorage
	}

	log.Info().Str("dir", cfg.AssetDir).Msg("using local asset storage")
	return storage.NewLocalStorage(cfg.AssetDir)
}

// InitState opens the store that holds the day key and rebuild lock.
func InitState(ctx context.Context, cfg *config.Config, clock clockwork.Clock) (kv.Store, error) {
	if cfg.StateBackend == config.BackendRedis {
		store := kv.NewRedisStore(cfg.RedisAddress, cfg.RedisUsername, cfg.RedisPassword)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			_ = store.Close()
			return nil, err
		}
		log.Info().Str("address", cfg.RedisAddress).Msg("using redis state store")
		return store, nil
	}

	store, err := kv.OpenBolt(cfg.StateFile, clock)
	if err != nil {
		return nil, err
	}
	log.Info().Str("file", cfg.StateFile).Msg("using bbolt state store")
	return store, nil
}
