// Command main opens a number of live-channel clients against a running
// server and reports the events they receive.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

type tally struct {
	mu       sync.Mutex
	byType   map[string]int
	failures int
}

func (t *tally) add(eventType string) {
	t.mu.Lock()
	t.byType[eventType]++
	t.mu.Unlock()
}

func (t *tally) fail() {
	t.mu.Lock()
	t.failures++
	t.mu.Unlock()
}

func main() {
	url := flag.String("url", "ws://localhost:8375/ws", "Live channel URL")
	clients := flag.Int("clients", 10, "Number of concurrent clients")
	duration := flag.Duration("duration", 30*time.Second, "How long to listen")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *duration)
	defer cancel()

	t := &tally{byType: make(map[string]int)}
	var wg sync.WaitGroup
	for i := 0; i < *clients; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			listen(ctx, id, *url, t)
		}(i)
	}

	log.Printf("Listening with %d clients on %s for %s", *clients, *url, *duration)
	wg.Wait()

	types := make([]string, 0, len(t.byType))
	for k := range t.byType {
		types = append(types, k)
	}
	sort.Strings(types)
	for _, k := range types {
		log.Printf("%-16s %d", k, t.byType[k])
	}
	log.Printf("failed clients: %d", t.failures)
}

func listen(ctx context.Context, id int, url string, t *tally) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		log.Printf("client %d: dial failed: %v", id, err)
		t.fail()
		return
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	defer func() { _ = conn.Close() }()

	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("client %d: read failed: %v", id, err)
				t.fail()
			}
			return
		}
		var evt struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(data, &evt); err != nil || evt.Type == "" {
			t.add("unknown")
			continue
		}
		t.add(evt.Type)
	}
}
