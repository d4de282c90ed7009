package analytics

import (
	"os"
	"strings"

	"github.com/oklog/ulid/v2"
)

// NewConsumerID names this process inside the trending consumer group.
// Every call returns a fresh name.
func NewConsumerID() string {
	return consumerID(hostname(), ulid.Make())
}

func consumerID(host string, id ulid.ULID) string {
	return "trending-" + host + "-" + strings.ToLower(id.String())
}

func hostname() string {
	host, err := os.Hostname()
	if err != nil {
		return "local"
	}
	host = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			return r
		default:
			return -1
		}
	}, host)
	if host == "" {
		return "local"
	}
	return host
}
