package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sizeofvoid/libopeninput-sub000/internal/applog"
	"github.com/sizeofvoid/libopeninput-sub000/quirks"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Discover input devices and dispatch them onto a virtual pointer/keyboard",
	RunE:  runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := applog.New("seatinputd", parseLogLevel(cfg.LogLevel))

	var db *quirks.DB
	if cfg.QuirksFile != "" {
		db, err = quirks.LoadFile(cfg.QuirksFile)
		if err != nil {
			return err
		}
		log.Infof("loaded quirk database from %s", cfg.QuirksFile)
	}

	sink, err := newUinputSink(log)
	if err != nil {
		return err
	}
	defer sink.Close()

	mgr := NewManager(cfg.Seat, sink, log, db)
	if err := mgr.Discover(cfg.Devices); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Infof("seatinputd running on seat %s, ctrl-c to stop", cfg.Seat)
	if err := mgr.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
