package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/konnta0/zenoh-bridge/capi"
)

func main() {
	var (
		configFile  = flag.String("config", "", "Path to session config JSON (optional)")
		putKey      = flag.String("put", "", "Key expression to put on")
		payload     = flag.String("payload", "", "Payload for -put")
		getSel      = flag.String("get", "", "Selector to query")
		listenKey   = flag.String("listen", "", "Key expression to subscribe to")
		duration    = flag.Duration("for", 10*time.Second, "How long to listen with -listen")
		verbose     = flag.Bool("v", false, "Verbose logging")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		capi.SetLogger(logger)
	}

	var configText []byte
	if *configFile != "" {
		data, err := os.ReadFile(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: read config: %v\n", err)
			os.Exit(1)
		}
		configText = data
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(configText); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *putKey == "" && *getSel == "" && *listenKey == "" {
		fmt.Fprintln(os.Stderr, "Usage: zbprobe [-config file.json] -put <key> -payload <data>")
		fmt.Fprintln(os.Stderr, "       zbprobe [-config file.json] -get <selector>")
		fmt.Fprintln(os.Stderr, "       zbprobe [-config file.json] -listen <key> [-for 10s]")
		fmt.Fprintln(os.Stderr, "       zbprobe [-config file.json] -i  (interactive mode)")
		os.Exit(1)
	}

	if err := run(configText, *putKey, *payload, *getSel, *listenKey, *duration); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configText []byte, putKey, payload, getSel, listenKey string, duration time.Duration) error {
	session := capi.Open(configText)
	if session == capi.NullHandle {
		return fmt.Errorf("open session: %s", capi.LastError())
	}
	defer capi.Close(session)

	zidHandle := capi.SessionZid(session)
	fmt.Printf("Session: %s\n", capi.StringValue(zidHandle))
	capi.FreeString(zidHandle)

	if putKey != "" {
		pub := capi.DeclarePublisher(session, []byte(putKey))
		if pub == capi.NullHandle {
			return fmt.Errorf("declare publisher: %s", capi.LastError())
		}
		defer capi.UndeclarePublisher(pub)
		if code := capi.PublisherPut(pub, []byte(payload)); code != capi.CodeOK {
			return fmt.Errorf("put: %s (%s)", code, capi.LastError())
		}
		fmt.Printf("Put %d bytes on %s\n", len(payload), putKey)
	}

	if getSel != "" {
		fmt.Printf("Querying %s...\n", getSel)
		replies := 0
		code := capi.Get(session, []byte(getSel), func(sample *capi.Sample, _ uintptr) {
			replies++
			fmt.Printf("  %s: %q\n", sample.KeyExpr, sample.Payload)
		}, 0)
		if code != capi.CodeOK {
			return fmt.Errorf("get: %s (%s)", code, capi.LastError())
		}
		fmt.Printf("%d replies\n", replies)
	}

	if listenKey != "" {
		fmt.Printf("Listening on %s for %s...\n", listenKey, duration)
		sub := capi.DeclareSubscriber(session, []byte(listenKey), func(sample *capi.Sample, _ uintptr) {
			kind := "put"
			if sample.Kind == capi.SampleKindDelete {
				kind = "delete"
			}
			fmt.Printf("  [%s] %s: %q\n", kind, sample.KeyExpr, sample.Payload)
		}, 0)
		if sub == capi.NullHandle {
			return fmt.Errorf("declare subscriber: %s", capi.LastError())
		}
		time.Sleep(duration)
		capi.UndeclareSubscriber(sub)
	}

	return nil
}
