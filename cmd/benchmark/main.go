package main

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	mrand "math/rand"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Config holds the benchmark settings
var (
	targetURL   string
	concurrency int
	duration    time.Duration
	workload    string
	asset       string
)

// Metrics
var (
	totalRequests uint64
	opened        uint64
	closed        uint64
	conflicts409  uint64
	rejected422   uint64
	failOther     uint64
)

func init() {
	flag.StringVar(&targetURL, "url", "http://localhost:8080", "API Base URL")
	flag.IntVar(&concurrency, "workers", 10, "Number of concurrent workers")
	flag.DurationVar(&duration, "duration", 30*time.Second, "Test duration")
	flag.StringVar(&workload, "workload", "openclose", "Workload type: open | openclose")
	flag.StringVar(&asset, "asset", "USDC", "Asset to swap")
}

func main() {
	flag.Parse()
	log.Printf("Starting Benchmark: %s | Workers: %d | Duration: %s", workload, concurrency, duration)

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(concurrency)

	for i := 0; i < concurrency; i++ {
		go worker(&wg, start)
	}

	wg.Wait()
	printResults(time.Since(start))
}

func worker(wg *sync.WaitGroup, start time.Time) {
	defer wg.Done()
	client := &http.Client{Timeout: 5 * time.Second}

	for time.Since(start) < duration {
		sender, receiver := generateParties()

		preimage := make([]byte, 32)
		rand.Read(preimage)
		hashLock := sha256.Sum256(preimage)

		payload := map[string]interface{}{
			"sender":        sender,
			"receiver":      receiver,
			"hash_lock":     hex.EncodeToString(hashLock[:]),
			"expiration":    time.Now().Add(2 * time.Hour).Format(time.RFC3339),
			"input_asset":   asset,
			"input_amount":  int64(100),
			"output_asset":  asset,
			"output_amount": int64(100),
		}
		body, _ := json.Marshal(payload)

		resp, err := client.Post(targetURL+"/api/v1/swaps", "application/json", bytes.NewBuffer(body))
		if err != nil {
			atomic.AddUint64(&failOther, 1)
			continue
		}
		atomic.AddUint64(&totalRequests, 1)

		var swapResp struct {
			ID int64 `json:"id"`
		}
		json.NewDecoder(resp.Body).Decode(&swapResp)
		resp.Body.Close()

		switch resp.StatusCode {
		case 201:
			atomic.AddUint64(&opened, 1)
		case 409:
			atomic.AddUint64(&conflicts409, 1)
			continue
		case 422:
			atomic.AddUint64(&rejected422, 1)
			continue
		default:
			atomic.AddUint64(&failOther, 1)
			continue
		}

		if workload != "openclose" {
			continue
		}

		closeBody, _ := json.Marshal(map[string]string{
			"preimage": hex.EncodeToString(preimage),
		})
		closeResp, err := client.Post(
			fmt.Sprintf("%s/api/v1/swaps/%d/close", targetURL, swapResp.ID),
			"application/json", bytes.NewBuffer(closeBody),
		)
		if err != nil {
			atomic.AddUint64(&failOther, 1)
			continue
		}
		atomic.AddUint64(&totalRequests, 1)
		switch closeResp.StatusCode {
		case 200:
			atomic.AddUint64(&closed, 1)
		case 409:
			atomic.AddUint64(&conflicts409, 1)
		case 422:
			atomic.AddUint64(&rejected422, 1)
		default:
			atomic.AddUint64(&failOther, 1)
		}
		closeResp.Body.Close()
	}
}

func generateParties() (string, string) {
	// Assumes 1000 parties seeded (party-0001 .. party-1000)
	totalParties := 1000

	a := mrand.Intn(totalParties) + 1
	b := mrand.Intn(totalParties) + 1
	for a == b {
		b = mrand.Intn(totalParties) + 1
	}
	return fmt.Sprintf("party-%04d", a), fmt.Sprintf("party-%04d", b)
}

func printResults(d time.Duration) {
	total := atomic.LoadUint64(&totalRequests)
	results := map[string]interface{}{
		"workload":       workload,
		"duration_sec":   d.Seconds(),
		"total_requests": total,
		"throughput_tps": float64(total) / d.Seconds(),
		"swaps_opened":   atomic.LoadUint64(&opened),
		"swaps_closed":   atomic.LoadUint64(&closed),
		"conflicts":      atomic.LoadUint64(&conflicts409),
		"rejected":       atomic.LoadUint64(&rejected422),
		"errors":         atomic.LoadUint64(&failOther),
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(results)

	filename := fmt.Sprintf("results_%s.json", workload)
	file, _ := os.Create(filename)
	defer file.Close()
	json.NewEncoder(file).Encode(results)
}
