// Command bookscoutctl runs migrations, manages accounts and performs
// one-off book lookups against a Bookscout deployment.
package main

import (
	"log/slog"
	"os"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
