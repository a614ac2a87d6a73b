package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/technohub6911/smartcropx/internal/simulator"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on system environment variables")
	}

	defaultURL := os.Getenv("API_URL")
	if defaultURL == "" {
		defaultURL = "http://localhost:8080"
	}

	baseURL := flag.String("url", defaultURL, "Ingestion API base URL")
	userID := flag.String("user", "default_user", "User id the devices report for")
	devices := flag.Int("devices", 1, "Number of simulated devices")
	slots := flag.Int("slots", 1, "Sensor slots per device")
	interval := flag.Duration("interval", 5*time.Second, "Report interval")
	start := flag.Float64("moisture", 45, "Starting soil moisture")
	threshold := flag.Float64("threshold", 0, "Enable auto irrigation with this threshold before starting (0 = leave settings alone)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := simulator.NewClient(*baseURL, 5*time.Second)

	if *threshold > 0 {
		if err := client.EnableAuto(ctx, *userID, *threshold); err != nil {
			log.Fatalf("Enable auto irrigation failed: %v", err)
		}
		log.Printf("Auto irrigation enabled for %s at %.1f%%", *userID, *threshold)
	}

	var wg sync.WaitGroup
	for d := 0; d < *devices; d++ {
		for s := 1; s <= *slots; s++ {
			f := simulator.NewField(fmt.Sprintf("sim_%02d", d+1), *userID, s, *start, time.Now().UnixNano()+int64(d*100+s))
			wg.Add(1)
			go func() {
				defer wg.Done()
				run(ctx, client, f, *interval)
			}()
		}
	}
	wg.Wait()
	log.Println("Simulator stopped")
}

func run(ctx context.Context, client *simulator.Client, f *simulator.Field, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		reading := f.Tick()
		ack, err := client.Report(ctx, reading)
		if err != nil {
			log.Printf("[ERROR] %s/%d: %v", f.DeviceID, f.Slot, err)
		} else {
			f.Apply(ack)
			log.Printf("%s/%d moisture=%.1f irrigate=%v", f.DeviceID, f.Slot, reading.SoilMoisture, ack.IrrigationCommand)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
