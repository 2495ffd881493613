// Command qpkvd serves the key-value storage engine over the
// line-delimited JSON protocol.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/koba789/qpkv/internal/buffer"
	"github.com/koba789/qpkv/internal/catalog"
	"github.com/koba789/qpkv/internal/checkpoint"
	"github.com/koba789/qpkv/internal/config"
	"github.com/koba789/qpkv/internal/disk"
	"github.com/koba789/qpkv/internal/executor"
	"github.com/koba789/qpkv/internal/wire"
)

var (
	flagConfig     = flag.String("config", "", "Path to a YAML config file (optional)")
	flagListen     = flag.String("listen", "", "TCP listen address (overrides config)")
	flagPoolPages  = flag.Int("pool-pages", 0, "Buffer pool size in pages (overrides config)")
	flagCheckpoint = flag.String("checkpoint", "", "Checkpoint cron spec, e.g. \"@every 30s\" (overrides config)")
)

func main() {
	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatalf("usage: %s [flags] <data-file-path>", os.Args[0])
	}
	dataFile := flag.Arg(0)

	cfg, err := config.Load(*flagConfig)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	cfg.DataFile = dataFile
	if *flagListen != "" {
		cfg.ListenAddr = *flagListen
	}
	if *flagPoolPages > 0 {
		cfg.PoolSize = *flagPoolPages
	}
	if *flagCheckpoint != "" {
		cfg.CheckpointSpec = *flagCheckpoint
	}

	if err := run(cfg); err != nil {
		log.Fatalf("qpkvd: %v", err)
	}
}

func run(cfg config.Config) error {
	dm, err := disk.Open(cfg.DataFile)
	if err != nil {
		return err
	}
	defer dm.Close()

	bpm := buffer.NewManager(dm, cfg.PoolSize)

	cat, err := catalog.Open(bpm, dm)
	if err != nil {
		return err
	}

	exec := executor.New(bpm, cat)

	sched, err := checkpoint.New(bpm, cfg.CheckpointSpec)
	if err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	srv := wire.New(cfg.ListenAddr, exec)
	log.Printf("qpkvd: data file %s, pool size %d", cfg.DataFile, cfg.PoolSize)
	return srv.ListenAndServe()
}
