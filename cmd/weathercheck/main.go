// Command weathercheck fetches one weather snapshot from the configured
// upstream API and prints it, together with the briefing the daemon would
// send for it. It reads the same environment as weatherd and exits non-zero
// when the upstream cannot be reached.
//
// Usage:
//
//	go run ./cmd/weathercheck -lat 37.5665 -lon 126.978
//	go run ./cmd/weathercheck -lat 35.1796 -lon 129.0756 -adj -1 -json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/weather-alarm-service/internal/adapter/sqlite"
	"github.com/couchcryptid/weather-alarm-service/internal/adapter/weatherapi"
	"github.com/couchcryptid/weather-alarm-service/internal/config"
	"github.com/couchcryptid/weather-alarm-service/internal/domain"
	"github.com/couchcryptid/weather-alarm-service/internal/observability"
	"github.com/couchcryptid/weather-alarm-service/internal/settings"
	"github.com/couchcryptid/weather-alarm-service/internal/weather"
	"github.com/couchcryptid/weather-alarm-service/internal/worker"
)

func main() {
	lat := flag.Float64("lat", 0, "latitude")
	lon := flag.Float64("lon", 0, "longitude")
	adj := flag.Int("adj", 0, "feels-like adjustment, -3 to 3")
	asJSON := flag.Bool("json", false, "print the full snapshot as JSON")
	verbose := flag.Bool("v", false, "log upstream requests")
	flag.Parse()

	if *lat == 0 && *lon == 0 {
		flag.Usage()
		os.Exit(2)
	}
	if *adj < settings.MinTempAdjustment || *adj > settings.MaxTempAdjustment {
		fmt.Fprintf(os.Stderr, "-adj must be between %d and %d\n", settings.MinTempAdjustment, settings.MaxTempAdjustment)
		os.Exit(2)
	}

	if code := run(*lat, *lon, *adj, *asJSON, *verbose); code != 0 {
		os.Exit(code)
	}
}

func run(lat, lon float64, adj int, asJSON, verbose bool) int {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if verbose {
		logger = sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	}
	metrics := observability.NewMetricsForTesting()

	ctx, cancel := context.WithTimeout(context.Background(), 3*cfg.WeatherAPITimeout+5*time.Second)
	defer cancel()

	// The check never touches the daemon's database.
	store, err := sqlite.Open(ctx, ":memory:")
	if err != nil {
		fmt.Fprintf(os.Stderr, "open scratch store: %v\n", err)
		return 1
	}
	defer store.Close()

	api := weatherapi.NewClient(cfg.WeatherAPIURL, cfg.WeatherAPITimeout, metrics, logger)
	repo := weather.NewRepository(api, store, nil, cfg.WeatherIconBaseURL, metrics, logger)

	grid := domain.ToGrid(lat, lon)
	fmt.Printf("upstream: %s\n", cfg.WeatherAPIURL)
	fmt.Printf("location: %.4f, %.4f (grid %d,%d)\n", lat, lon, grid.NX, grid.NY)

	start := time.Now()
	state, err := repo.Fetch(ctx, lat, lon, adj)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FAIL fetch after %s: %v\n", time.Since(start).Round(time.Millisecond), err)
		return 1
	}
	fmt.Printf("fetched in %s: %d hourly slots, %d days\n\n",
		time.Since(start).Round(time.Millisecond), len(state.Hourly), len(state.Weekly))

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(state); err != nil {
			fmt.Fprintf(os.Stderr, "encode: %v\n", err)
			return 1
		}
		fmt.Println()
	}

	fmt.Println(worker.BriefingTitle)
	fmt.Println(worker.BriefingBody(state, domain.Now().Month()))

	if cctv, err := repo.NearbyCCTV(ctx, lat, lon); err == nil && cctv.Name != "" {
		fmt.Printf("\nnearest cctv: %s %s\n", cctv.Name, cctv.URL)
	}
	return 0
}
