package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yessjun/stay-sub000/sim"
	"github.com/yessjun/stay-sub000/web"
)

func main() {
	addr := flag.String("addr", ":8080", "web server listen address")
	seed := flag.Int64("seed", 1, "random seed for deterministic replay")
	speed := flag.Float64("speed", 1, "initial simulation speed factor")
	protectedLeft := flag.Bool("protected-left", true, "use the 8-phase protected-left signal cycle")
	flag.Parse()

	cfg := sim.DefaultConfig()
	cfg.Seed = *seed
	cfg.ProtectedLeft = *protectedLeft

	clock := sim.NewClock(cfg)
	if *speed != 1 {
		clock.SetSpeed(*speed)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return clock.Run(ctx)
	})
	g.Go(func() error {
		return web.NewServer(clock, *addr).Run(ctx)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Fatalf("exited with error: %v", err)
	}
	log.Printf("shutdown complete")
}
