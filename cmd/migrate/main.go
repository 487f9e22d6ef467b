package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/subosito/gotenv"

	"it-inventory-api/internal/config"
	"it-inventory-api/internal/store"
)

func main() {
	dsnFlag := flag.String("dsn", "", "database DSN (overrides DB_DSN)")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: migrate [-dsn=...] up|down|status|version")
		flag.PrintDefaults()
	}
	flag.Parse()

	_ = gotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Configuration error: %v", err)
	}
	dsn := cfg.DatabaseDSN
	if *dsnFlag != "" {
		dsn = *dsnFlag
	}

	cmd := "up"
	if flag.NArg() > 0 {
		cmd = flag.Arg(0)
	}

	switch cmd {
	case "up":
		err = store.Migrate(dsn)
	case "down":
		err = store.MigrateDown(dsn)
	case "status":
		err = store.MigrationStatus(dsn)
	case "version":
		var v int64
		if v, err = store.SchemaVersion(dsn); err == nil {
			fmt.Printf("schema version: %d\n", v)
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		logrus.Fatalf("migrate %s: %v", cmd, err)
	}
	if cmd == "up" || cmd == "down" {
		logrus.Infof("migrate %s finished", cmd)
	}
}
