// Command cql-tapd relays a CQL client connection to an upstream
// Cassandra-compatible node, decoding every response frame it observes and
// publishing the decoded events over HTTP (Server-Sent Events) and a
// burst-of-same-shaped-frame detector.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mickamy/cql-decode/broker"
	"github.com/mickamy/cql-decode/detect"
	"github.com/mickamy/cql-decode/tap"
	"github.com/mickamy/cql-decode/web"
)

var version = "dev"

func main() {
	fs := flag.NewFlagSet("cql-tapd", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "cql-tapd — CQL response-frame tap daemon\n\nUsage:\n  cql-tapd [flags]\n\nFlags:\n")
		fs.PrintDefaults()
	}

	listen := fs.String("listen", "", "client listen address (required)")
	upstream := fs.String("upstream", "", "upstream CQL node address (required)")
	httpAddr := fs.String("http", "", "HTTP server address for the event stream (e.g. :8080)")
	burstThreshold := fs.Int("burst-threshold", 5, "same-frame-kind burst detection threshold (0 to disable)")
	burstWindow := fs.Duration("burst-window", time.Second, "burst detection time window")
	burstCooldown := fs.Duration("burst-cooldown", 10*time.Second, "burst alert cooldown per frame key")
	showVersion := fs.Bool("version", false, "show version and exit")

	_ = fs.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("cql-tapd %s\n", version)
		return
	}

	if *listen == "" || *upstream == "" {
		fs.Usage()
		os.Exit(1)
	}

	if err := run(*listen, *upstream, *httpAddr, *burstThreshold, *burstWindow, *burstCooldown); err != nil {
		log.Fatal(err)
	}
}

func run(listen, upstream, httpAddr string, burstThreshold int, burstWindow, burstCooldown time.Duration) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b := broker.New(256)

	var lc net.ListenConfig
	if httpAddr != "" {
		httpLis, err := lc.Listen(ctx, "tcp", httpAddr)
		if err != nil {
			return fmt.Errorf("listen http %s: %w", httpAddr, err)
		}
		webSrv := web.New(b)
		go func() {
			log.Printf("HTTP server listening on %s", httpAddr)
			if err := webSrv.Serve(httpLis); err != nil {
				log.Printf("http serve: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = webSrv.Shutdown(shutdownCtx)
		}()
	}

	t := tap.New(listen, upstream)

	var det *detect.Detector
	if burstThreshold > 0 {
		det = detect.New(burstThreshold, burstWindow, burstCooldown)
		log.Printf("burst detection enabled (threshold=%d, window=%s, cooldown=%s)",
			burstThreshold, burstWindow, burstCooldown)
	}

	go func() {
		for ev := range t.Events() {
			if det != nil {
				r := det.Record(detect.EventKey(ev), ev.ReceivedAt)
				ev.Burst = r.Matched
				if r.Alert != nil {
					log.Printf("burst detected: %s (%d times in %s)", r.Alert.Key, r.Alert.Count, burstWindow)
				}
			}
			b.Publish(ev)
		}
	}()

	log.Printf("tapping %s -> %s", listen, upstream)
	if err := t.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("tap: %w", err)
	}

	return nil
}
