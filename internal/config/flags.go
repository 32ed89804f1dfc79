package config

import (
	"flag"
	"os"

	"github.com/pavelk2005/storegate/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string   base URL of the backend API
//	-d string   path to the SQLite storage file
//
// Args are filtered through flagx.FilterArgs so this parser does not
// interfere with flags owned elsewhere.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.RemoteBaseURL, "a", cfg.RemoteBaseURL, "base URL of the backend API")
	fs.StringVar(&cfg.StoragePath, "d", cfg.StoragePath, "path to the SQLite storage file")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
