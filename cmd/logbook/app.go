package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"

	"github.com/fangstlog/fangstlog/internal/config"
	"github.com/fangstlog/fangstlog/internal/dmi"
	"github.com/fangstlog/fangstlog/internal/geo"
	"github.com/fangstlog/fangstlog/internal/offline"
	"github.com/fangstlog/fangstlog/internal/provider/resilience"
	"github.com/fangstlog/fangstlog/internal/trip"
	"github.com/fangstlog/fangstlog/internal/tripclient"
)

type app struct {
	queue    *offline.Queue
	triggers *offline.Triggers
	reach    offline.Reachability

	syncInterval         time.Duration
	connectivityInterval time.Duration

	out    io.Writer
	logger zerolog.Logger
}

// newApp wires the queue against the configured store, the DMI proxy and
// the remote trip store. The returned func releases the store.
func newApp(cfg *config.Logbook, out io.Writer, logger zerolog.Logger) (*app, func(), error) {
	store, closeStore, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	metrics, err := offline.NewMetrics()
	if err != nil {
		closeStore()
		return nil, nil, fmt.Errorf("creating queue metrics: %w", err)
	}

	registry := resilience.NewRegistry()

	// The DMI key stays on the server; the proxy adds it.
	evaluator := dmi.NewEvaluator(dmi.EvaluatorConfig{
		Fetcher: dmi.NewClient(dmi.ClientConfig{
			BaseURL:  cfg.DMIURL,
			Registry: registry,
			Logger:   logger,
		}),
		Logger: logger,
	})

	if cfg.AccessToken == "" {
		logger.Warn().Msg("LOGBOOK_ACCESS_TOKEN not set - remote saves will be rejected")
	}
	sink := tripclient.New(tripclient.Config{
		BaseURL:  cfg.APIURL,
		Token:    tripclient.StaticToken(cfg.AccessToken),
		Registry: registry,
		Logger:   logger,
	})

	reach := offline.NewNetReachability(offline.NetReachabilityConfig{ProbeURL: cfg.ProbeURL})

	queue := offline.NewQueue(offline.Config{
		Store:            store,
		Weather:          offline.DMIEnricher{Evaluator: evaluator},
		Sink:             sink,
		Reachability:     reach,
		MaxRetryAttempts: cfg.MaxRetryAttempts,
		BaseBackoff:      cfg.WeatherBackoff,
		Metrics:          metrics,
		Logger:           logger,
	})

	return &app{
		queue:                queue,
		triggers:             offline.NewTriggers(queue, logger),
		reach:                reach,
		syncInterval:         cfg.SyncInterval,
		connectivityInterval: cfg.ConnectivityInterval,
		out:                  out,
		logger:               logger,
	}, closeStore, nil
}

func openStore(cfg *config.Logbook) (offline.Store, func(), error) {
	switch cfg.QueueStore {
	case config.StoreSQLite:
		s, err := offline.OpenSQLiteStore(cfg.QueuePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil //nolint:errcheck // process is exiting
	case config.StoreFile:
		return offline.NewFileStore(cfg.QueuePath), func() {}, nil
	default:
		return offline.NewMemoryStore(), func() {}, nil
	}
}

// save reads a recording and hands it to SaveOrQueue, or straight to the
// queue with -queue-only.
func (a *app) save(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("save", flag.ContinueOnError)
	fs.SetOutput(a.out)
	file := fs.String("file", "", "recording JSON file, - for stdin")
	queueOnly := fs.Bool("queue-only", false, "queue without trying the network")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return errors.New("save: -file is required")
	}

	rec, err := readRecording(*file)
	if err != nil {
		return err
	}
	p, err := rec.payload()
	if err != nil {
		return err
	}

	if *queueOnly {
		item, err := a.queue.Enqueue(ctx, p)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "queued %s\n", item.ID)
		return nil
	}

	outcome, err := a.queue.SaveOrQueue(ctx, p)
	if err != nil {
		return fmt.Errorf("trip %s: %w", outcome, err)
	}
	fmt.Fprintf(a.out, "%s\n", outcome)
	return nil
}

// sync drains the queue once, as if the app came to the foreground.
func (a *app) sync(ctx context.Context) error {
	n := a.triggers.Foreground(ctx)

	pending, err := a.queue.Pending(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "synced %d, %d pending\n", n, len(pending))
	return nil
}

func (a *app) status(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(a.out)
	asJSON := fs.Bool("json", false, "print the queue as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	pending, err := a.queue.Pending(ctx)
	if err != nil {
		return err
	}

	if *asJSON {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		if pending == nil {
			pending = []offline.PendingTrip{}
		}
		return enc.Encode(pending)
	}

	if len(pending) == 0 {
		fmt.Fprintln(a.out, "queue is empty")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATE\tRETRIES\tQUEUED\tLAST ERROR")
	for _, item := range pending {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
			item.ID, item.State(), item.RetryCount,
			item.CreatedAt.Format(time.RFC3339), item.LastError)
	}
	return tw.Flush()
}

// run drains on cold start and then on every trigger until ctx is done.
func (a *app) run(ctx context.Context, sigs <-chan os.Signal) error {
	a.triggers.ColdStart(ctx)

	if err := a.triggers.StartSchedule(ctx, a.syncInterval); err != nil {
		return fmt.Errorf("starting sync schedule: %w", err)
	}
	defer a.triggers.StopSchedule()

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.triggers.WatchConnectivity(watchCtx, a.reach, a.connectivityInterval)

	a.logger.Info().
		Dur("sync_interval", a.syncInterval).
		Dur("connectivity_interval", a.connectivityInterval).
		Msg("sync agent running")

	for {
		select {
		case <-ctx.Done():
			a.logger.Info().Msg("sync agent stopped")
			return nil
		case sig := <-sigs:
			switch sig {
			case syscall.SIGUSR1:
				a.triggers.Foreground(ctx)
			case syscall.SIGUSR2:
				a.triggers.SignedIn(ctx)
			}
		}
	}
}

// recording is a finished trip as captured on the device.
type recording struct {
	Start      time.Time       `json:"start"`
	End        time.Time       `json:"end"`
	Path       []geo.PathPoint `json:"path"`
	FishEvents []time.Time     `json:"fish_events"`
	Spot       *recordedSpot   `json:"spot,omitempty"`
}

type recordedSpot struct {
	ID   string  `json:"id,omitempty"`
	Name string  `json:"name,omitempty"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

func readRecording(path string) (*recording, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening recording: %w", err)
		}
		defer f.Close()
		r = f
	}

	var rec recording
	if err := json.NewDecoder(r).Decode(&rec); err != nil {
		return nil, fmt.Errorf("decoding recording: %w", err)
	}
	return &rec, nil
}

func (r *recording) payload() (trip.SaveTripPayload, error) {
	p, err := trip.NewPayload(r.Start, r.End, r.Path, r.FishEvents)
	if err != nil {
		return trip.SaveTripPayload{}, err
	}
	if r.Spot != nil {
		lat, lng := r.Spot.Lat, r.Spot.Lng
		p.SpotID = r.Spot.ID
		p.SpotName = r.Spot.Name
		p.SpotLat = &lat
		p.SpotLng = &lng
	}
	return p, p.Validate()
}
