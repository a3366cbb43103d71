package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/objectstream/crudfs/internal/config"
	"github.com/objectstream/crudfs/internal/log_service/logrus"
	"github.com/objectstream/crudfs/internal/objectstore"
	"github.com/objectstream/crudfs/internal/objectstore/inmemory"
	"github.com/objectstream/crudfs/internal/objectstore/localdisc"
	"github.com/objectstream/crudfs/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to yaml config file")
	addr := flag.String("addr", "", "listen address, overrides config")
	backend := flag.String("store", "inmemory", "object store backend: inmemory or localdisc")
	dataDir := flag.String("data", "./objects", "data directory for the localdisc backend")
	logLevel := flag.String("log-level", "", "minimum log level, overrides config")
	flag.Parse()

	cfg := config.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		cfg = loaded
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}

	listenAddr := cfg.Endpoint()
	if *addr != "" {
		listenAddr = *addr
	}

	ls := logruslog.NewLogrusLogService("server", cfg.LogLevel)

	var store objectstore.Store
	switch *backend {
	case "inmemory":
		store = inmemory.NewInMemoryObjectStore()
	case "localdisc":
		var err error
		store, err = localdisc.NewLocalDiscObjectStore(cfg.DataDir, ls)
		if err != nil {
			log.Fatalf("failed to open localdisc store: %v", err)
		}
	default:
		log.Fatalf("unknown store backend %q", *backend)
	}

	srv := server.NewDefaultServer(listenAddr, store, ls)
	if err := srv.Start(); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	if err := srv.Stop(); err != nil {
		log.Fatalf("failed to stop server: %v", err)
	}
}
