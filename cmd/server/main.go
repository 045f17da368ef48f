package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"campusgrid.ai/internal/llm"
	"campusgrid.ai/internal/persistence/indexdb"
	persistlog "campusgrid.ai/internal/persistence/log"
	"campusgrid.ai/internal/persistence/memstore"
	"campusgrid.ai/internal/sim/tuning"
	"campusgrid.ai/internal/sim/world"
	"campusgrid.ai/internal/sim/worldhost"
	"campusgrid.ai/internal/transport/httpapi"
	"campusgrid.ai/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		seedPath   = flag.String("seed", "", "path to world seed json (default: <configs>/world_seed.json)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite stats index")
		tickMs     = flag.Int("tick_ms", 0, "auto-tick interval in milliseconds (0 = ticks only via the API)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("tuning not found (%s); using defaults", tp)
			tune = tuning.Defaults()
		} else {
			logger.Fatalf("load tuning: %v", err)
		}
	}

	sp := strings.TrimSpace(*seedPath)
	if sp == "" {
		sp = filepath.Join(*configDir, "world_seed.json")
	}
	seed, err := world.ReadSeedFile(sp)
	if err != nil {
		logger.Fatalf("load seed: %v", err)
	}

	cfg := world.Config{
		Bounds: world.Bounds{
			MinX: tune.Grid.MinX, MinY: tune.Grid.MinY,
			MaxX: tune.Grid.MaxX, MaxY: tune.Grid.MaxY,
		},
		Seed:                     tune.Seed,
		Speed:                    tune.Speed,
		CrowdThreshold:           tune.CrowdThreshold,
		InteractionCooldownTicks: tune.InteractionCooldownTicks,
		MemoryCap:                tune.MemoryCap,
	}
	w, err := world.New(cfg, seed)
	if err != nil {
		logger.Fatalf("world: %v", err)
	}
	logger.Printf("world seeded: %d agents, %d pois", len(w.Agents()), len(w.POIs()))

	// Restore persisted memory streams from earlier runs.
	memories := memstore.New(filepath.Join(*dataDir, "memories"))
	restored := 0
	for _, a := range w.Agents() {
		if !memories.Exists(a.ID) {
			continue
		}
		records, err := memories.Load(a.ID, tune.MemoryCap)
		if err != nil {
			logger.Printf("load memory for %s: %v", a.ID, err)
			continue
		}
		a.Memory = records
		restored++
	}
	if restored > 0 {
		logger.Printf("restored memory for %d agents", restored)
	}

	host := worldhost.New(w, tune.MemoryViewN, logger)

	statsLog := persistlog.NewStatsLogger(*dataDir)
	defer statsLog.Close()
	host.AddSink(statsLog)

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(*dataDir, "index.db"))
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer idx.Close()
		host.AddSink(idx)
	}

	hub := ws.NewHub(logger)
	host.AddSink(hub)

	var decider httpapi.Decider
	if key := os.Getenv("GROQ_API_KEY"); key != "" {
		decider = llm.New(llm.Config{
			BaseURL: tune.LLM.BaseURL,
			APIKey:  key,
			Model:   tune.LLM.Model,
			Timeout: time.Duration(tune.LLM.TimeoutMs) * time.Millisecond,
		})
		logger.Printf("llm decisions enabled (model %s)", tune.LLM.Model)
	} else {
		logger.Printf("GROQ_API_KEY not set; llm endpoint disabled")
	}

	apiOpts := httpapi.Options{
		Decider:     decider,
		Seed:        seed,
		MaxSteps:    tune.MaxStepsPerRequest,
		MemoryViewN: tune.MemoryViewN,
	}
	if idx != nil {
		apiOpts.Index = idx
	}
	api := httpapi.NewServer(host, logger, apiOpts)

	mux := http.NewServeMux()
	api.Register(mux)
	mux.HandleFunc("/v1/ws", hub.Handler())

	ctx, cancel := signalContext()
	defer cancel()

	if *tickMs > 0 {
		go func() {
			t := time.NewTicker(time.Duration(*tickMs) * time.Millisecond)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-t.C:
					if _, err := host.Step(1, false); err != nil {
						logger.Printf("auto tick: %v", err)
					}
				}
			}
		}()
		logger.Printf("auto-ticking every %dms", *tickMs)
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           httpapi.CORS(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}

	// Persist memory streams so the next boot resumes where we left off.
	saved := 0
	_ = host.With(func(wo *world.World) error {
		for _, a := range wo.Agents() {
			if len(a.Memory) == 0 {
				continue
			}
			if err := memories.Save(a.ID, a.Memory); err != nil {
				logger.Printf("save memory for %s: %v", a.ID, err)
				continue
			}
			saved++
		}
		return nil
	})
	logger.Printf("saved memory for %d agents; bye", saved)
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
