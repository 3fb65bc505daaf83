package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/keshon/botcrew/internal/bots/dj"
	"github.com/keshon/botcrew/internal/bots/help"
	"github.com/keshon/botcrew/internal/bots/image"
	"github.com/keshon/botcrew/internal/bots/imitate"
	"github.com/keshon/botcrew/internal/bots/mod"
	"github.com/keshon/botcrew/internal/config"
	"github.com/keshon/botcrew/internal/discord"
	"github.com/keshon/botcrew/internal/dispatch"
	"github.com/keshon/botcrew/internal/logging"
	"github.com/keshon/botcrew/internal/storage"
	v "github.com/keshon/botcrew/internal/version"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		log.Fatal().Err(err).Msg("configuration error")
	}
	logging.Init(cfg.LogPath)
	log.Info().Str("app", v.AppName).Msg("starting bot")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.New(cfg.StoragePath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open storage")
	}
	defer store.Close()

	// The mod manager is its own gate; every module registers against it.
	modMgr := mod.New(store)
	dispatch.Register(modMgr, modMgr)

	djMgr := dj.New(store, dj.NewResolver())
	dispatch.Register(djMgr, modMgr)

	imageMgr := image.New(store, image.NewFetcher(), cfg.ImageDir)
	dispatch.Register(imageMgr, modMgr)

	imitateMgr := imitate.New(store)
	dispatch.Register(imitateMgr, modMgr)

	helpMgr := help.New([]dispatch.Manager{djMgr, imageMgr, imitateMgr, modMgr})
	dispatch.Register(helpMgr, modMgr)

	managers := []dispatch.Manager{djMgr, imageMgr, imitateMgr, helpMgr, modMgr}
	if err := dispatch.Validate(managers); err != nil {
		log.Fatal().Err(err).Msg("command table validation failed")
	}

	dispatcher := dispatch.New(cfg.CommandPrefix, managers, modMgr)

	errCh := make(chan error, 1)
	go func() {
		errCh <- discord.StartBot(ctx, cfg, dispatcher, imitateMgr)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		log.Info().Str("signal", s.String()).Msg("shutting down")
		cancel()
		<-errCh
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("discord bot error")
		}
		cancel()
	}

	log.Info().Msg("bot exited cleanly")
}
