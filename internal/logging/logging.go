package logging

import (
	"fmt"
	"io"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
)

// Setup installs the CLI handler on the global logger. verbose forces debug level.
func Setup(w io.Writer, level string, verbose bool) error {
	lvl := log.InfoLevel
	if level != "" {
		parsed, err := log.ParseLevel(level)
		if err != nil {
			return fmt.Errorf("logging level %q: %w", level, err)
		}
		lvl = parsed
	}
	if verbose {
		lvl = log.DebugLevel
	}

	log.SetHandler(cli.New(w))
	log.SetLevel(lvl)
	return nil
}
