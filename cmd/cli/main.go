package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/doccontrol/internal/buildinfo"
	"github.com/dmitrijs2005/doccontrol/internal/client/cli"
	"github.com/dmitrijs2005/doccontrol/internal/client/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := cli.NewApp(ctx, cfg)

	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	// the REPL blocks on stdin, so an interrupt cleans up and exits here
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		app.Close()
		os.Exit(130)
	}()

	app.Run(ctx)

}
