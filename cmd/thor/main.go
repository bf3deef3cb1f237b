// thor hammers a url with parallel clients and reports latency
package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const usage = `Usage: %s [-p PROCESSES -r REQUESTS -v] URL
    -h              Display help message
    -v              Display verbose output

    -p  PROCESSES   Number of processes to utilize (1)
    -r  REQUESTS    Number of requests per process (1)
`

func main() {
	var (
		procs    int
		requests int
		verbose  bool
	)
	flag.Usage = func() { fmt.Fprintf(os.Stderr, usage, os.Args[0]) }
	flag.IntVar(&procs, "p", 1, "")
	flag.IntVar(&requests, "r", 1, "")
	flag.BoolVar(&verbose, "v", false, "")
	flag.Parse()
	if flag.NArg() != 1 || procs < 1 || requests < 1 {
		flag.Usage()
		os.Exit(1)
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	h := &hammer{
		client:   &http.Client{Timeout: 30 * time.Second},
		url:      flag.Arg(0),
		requests: requests,
		verbose:  verbose,
		out:      os.Stdout,
		log:      log,
	}

	avg, failed := h.run(procs)
	fmt.Fprintf(os.Stdout, "TOTAL AVERAGE ELAPSED TIME: %.2f\n", avg.Seconds())
	if failed > 0 {
		log.Error().Int("failed", failed).Msg("some requests failed")
		os.Exit(1)
	}
}

type hammer struct {
	client   *http.Client
	url      string
	requests int
	verbose  bool

	mu  sync.Mutex // out
	out io.Writer
	log zerolog.Logger
}

// run starts procs clients and returns the mean of their averages
// and the number of failed requests
func (h *hammer) run(procs int) (time.Duration, int) {
	avgs := make([]time.Duration, procs)
	fails := make([]int, procs)

	var wg sync.WaitGroup
	for id := range procs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			avgs[id], fails[id] = h.runClient(id)
		}()
	}
	wg.Wait()

	var total time.Duration
	failed := 0
	for id := range procs {
		total += avgs[id]
		failed += fails[id]
	}
	return total / time.Duration(procs), failed
}

// one client doing its requests back to back
func (h *hammer) runClient(id int) (time.Duration, int) {
	var total time.Duration
	failed := 0
	for i := range h.requests {
		start := time.Now()
		body, err := h.get()
		elapsed := time.Since(start)
		total += elapsed

		if err != nil {
			failed++
			h.log.Error().Err(err).Int("process", id).Int("request", i).Msg("request failed")
			continue
		}
		h.printf(body, "Process: %d, Request: %d, Elapsed Time: %.2f\n", id, i, elapsed.Seconds())
	}

	avg := total / time.Duration(h.requests)
	h.printf(nil, "Process: %d, AVERAGE:  , Elapsed Time: %.2f\n", id, avg.Seconds())
	return avg, failed
}

func (h *hammer) get() ([]byte, error) {
	resp, err := h.client.Get(h.url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// lines from different clients must not interleave
func (h *hammer) printf(body []byte, format string, args ...any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.verbose && body != nil {
		h.out.Write(body)
		fmt.Fprintln(h.out)
	}
	fmt.Fprintf(h.out, format, args...)
}
