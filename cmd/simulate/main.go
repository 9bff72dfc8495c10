// Command simulate drives load against a running api-server: workers resolve
// availability and race each other booking the open slots, which exercises the
// per-slot lock and the conflict path.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v7"
)

type SimConfig struct {
	APIBaseURL string
	Duration   time.Duration
	Workers    int
	DoctorID   int
	Days       int
}

type OperationMetrics struct {
	Total    int64
	Success  int64
	Conflict int64
	Error    int64

	mu        sync.Mutex
	latencies []time.Duration
}

func (om *OperationMetrics) Record(latency time.Duration, status int) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case status >= 200 && status < 300:
		atomic.AddInt64(&om.Success, 1)
	case status == http.StatusConflict:
		atomic.AddInt64(&om.Conflict, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.latencies = append(om.latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.latencies) == 0 {
		return 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.latencies))
	copy(latencies, om.latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	avg = sum / time.Duration(len(latencies))
	p50 = latencies[len(latencies)*50/100]
	p95 = latencies[min(len(latencies)*95/100, len(latencies)-1)]
	return avg, p50, p95
}

type Simulator struct {
	cfg    SimConfig
	client *http.Client

	availability OperationMetrics
	booking      OperationMetrics
	read         OperationMetrics

	mu     sync.Mutex
	booked []int
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulator starting")

	cfg := SimConfig{
		APIBaseURL: getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:   getDuration("SIM_DURATION", 30*time.Second),
		Workers:    getInt("SIM_WORKERS", 10),
		DoctorID:   getInt("SIM_DOCTOR_ID", 1),
		Days:       getInt("SIM_DAYS", 14),
	}
	log.Printf("config: base_url=%s duration=%s workers=%d doctor=%d",
		cfg.APIBaseURL, cfg.Duration, cfg.Workers, cfg.DoctorID)

	gofakeit.Seed(time.Now().UnixNano())

	sim := &Simulator{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
	sim.Run()
	sim.PrintReport()
}

func (s *Simulator) Run() {
	deadline := time.Now().Add(s.cfg.Duration)
	var wg sync.WaitGroup

	for w := 0; w < s.cfg.Workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for time.Now().Before(deadline) {
				switch rng.Intn(10) {
				case 0, 1, 2, 3:
					s.doAvailability(rng)
				case 4, 5, 6, 7:
					s.doBooking(rng)
				default:
					s.doRead(rng)
				}
			}
		}(time.Now().UnixNano() + int64(w))
	}

	wg.Wait()
}

func (s *Simulator) randomDate(rng *rand.Rand) string {
	return time.Now().AddDate(0, 0, rng.Intn(s.cfg.Days)).Format("2006-01-02")
}

func (s *Simulator) doAvailability(rng *rand.Rand) []string {
	url := fmt.Sprintf("%s/api/availability/%d/%s", s.cfg.APIBaseURL, s.cfg.DoctorID, s.randomDate(rng))

	start := time.Now()
	resp, err := s.client.Get(url)
	latency := time.Since(start)
	if err != nil {
		s.availability.Record(latency, 0)
		return nil
	}
	defer resp.Body.Close()
	s.availability.Record(latency, resp.StatusCode)

	var out struct {
		TimeSlots []string `json:"timeSlots"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil
	}
	return out.TimeSlots
}

func (s *Simulator) doBooking(rng *rand.Rand) {
	slots := s.doAvailability(rng)
	if len(slots) == 0 {
		return
	}

	payload := map[string]any{
		"patientName":     gofakeit.Name(),
		"patientEmail":    gofakeit.Email(),
		"patientPhone":    gofakeit.Phone(),
		"doctorId":        s.cfg.DoctorID,
		"appointmentDate": s.randomDate(rng),
		"appointmentTime": slots[rng.Intn(len(slots))],
		"reasonForVisit":  "Routine checkup",
	}
	body, _ := json.Marshal(payload)

	start := time.Now()
	resp, err := s.client.Post(s.cfg.APIBaseURL+"/api/appointments", "application/json", bytes.NewReader(body))
	latency := time.Since(start)
	if err != nil {
		s.booking.Record(latency, 0)
		return
	}
	defer resp.Body.Close()
	s.booking.Record(latency, resp.StatusCode)

	if resp.StatusCode == http.StatusCreated {
		var created struct {
			ID int `json:"id"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&created); err == nil {
			s.mu.Lock()
			s.booked = append(s.booked, created.ID)
			s.mu.Unlock()
		}
	} else {
		io.Copy(io.Discard, resp.Body)
	}
}

func (s *Simulator) doRead(rng *rand.Rand) {
	s.mu.Lock()
	if len(s.booked) == 0 {
		s.mu.Unlock()
		return
	}
	id := s.booked[rng.Intn(len(s.booked))]
	s.mu.Unlock()

	start := time.Now()
	resp, err := s.client.Get(fmt.Sprintf("%s/api/appointments/%d", s.cfg.APIBaseURL, id))
	latency := time.Since(start)
	if err != nil {
		s.read.Record(latency, 0)
		return
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	s.read.Record(latency, resp.StatusCode)
}

func (s *Simulator) PrintReport() {
	fmt.Println()
	fmt.Println("=== simulation report ===")
	printOp("availability", &s.availability)
	printOp("booking", &s.booking)
	printOp("read", &s.read)
	s.mu.Lock()
	fmt.Printf("appointments created: %d\n", len(s.booked))
	s.mu.Unlock()
}

func printOp(name string, om *OperationMetrics) {
	avg, p50, p95 := om.Stats()
	fmt.Printf("%-14s total=%-6d ok=%-6d conflict=%-5d error=%-5d avg=%s p50=%s p95=%s\n",
		name,
		atomic.LoadInt64(&om.Total),
		atomic.LoadInt64(&om.Success),
		atomic.LoadInt64(&om.Conflict),
		atomic.LoadInt64(&om.Error),
		avg, p50, p95)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
