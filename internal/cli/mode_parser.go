package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
)

const (
	ModeBooking = "booking-service"
	ModeExpiry  = "expiry-service"
	ModeNotify  = "notify-service"
)

// isKnownMode checks if the provided mode name is known.
func isKnownMode(s string) (string, bool) {
	switch s {
	case ModeBooking, "booking", "b":
		return ModeBooking, true
	case ModeExpiry, "expiry", "sweep", "e":
		return ModeExpiry, true
	case ModeNotify, "notify", "n":
		return ModeNotify, true
	default:
		return "", false
	}
}

// ParseMode supports:
//
//	--mode=<value>
//	<value> (subcommand shorthand), e.g., `booking-service --max-concurrent=100`
func ParseMode(args []string) (string, []string, error) {
	var mode string
	var out []string

	for i := range args {
		arg := args[i]
		if after, ok := strings.CutPrefix(arg, "--mode="); ok {
			mode = after
			continue
		}

		if mode == "" {
			if m, ok := isKnownMode(arg); ok {
				mode = m
				continue
			}
		}
		out = append(out, arg)
	}

	if mode == "" {
		return "", out, errors.New("no mode specified: use --mode=<service>")
	}

	if m, ok := isKnownMode(mode); ok {
		mode = m
	}

	return mode, out, nil
}

// PrintUsage prints the usage information with examples.
func PrintUsage(w io.Writer) {
	fmt.Fprint(w, "\033[36m") // cyan

	fmt.Fprintln(w, `Usage:
  ./campus-carpool --mode=<service> [flags]

Services (modes):
  booking-service    HTTP API for rides, bookings, and join requests
  expiry-service     Periodic sweep expiring departed rides
  notify-service     Queue consumer pushing notifications over WebSocket

Examples:
  ./campus-carpool --mode=booking-service --max-concurrent=100
  ./campus-carpool --mode=expiry-service
  ./campus-carpool --mode=notify-service --prefetch=8`)

	fmt.Fprint(w, "\033[0m") // reset
}

// AttachUsage wires a concise per-mode usage to a FlagSet.
func AttachUsage(fs *flag.FlagSet, mode string) {
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: ./campus-carpool --mode=%s [flags]\n", mode)
		fs.PrintDefaults()
	}
}
