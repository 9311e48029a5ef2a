// Command ao2ctl is the operator CLI over a process's container
// registry: list registered containers, show per-container element
// counts, and run the integrity check. The core object/container/lock
// packages know nothing about it; it only ever talks to a
// registry.Registry.
//
// ao2ctl has no IPC layer: it links against an in-process
// registry.Registry built by whatever host embeds it. This binary
// seeds a small demonstration registry so the commands below have
// something to operate on when run standalone.
package main

import (
	"fmt"
	"os"

	"go.uber.org/zap/zapcore"

	"github.com/itbidhan/asterisk/internal/obslog"
)

func main() {
	logger, err := obslog.New(zapcore.WarnLevel, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ao2ctl: failed to build logger:", err)
		os.Exit(1)
	}

	reg, err := newDemoRegistry(logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ao2ctl:", err)
		os.Exit(1)
	}

	if err := newRootCmd(reg).Execute(); err != nil {
		os.Exit(1)
	}
}
