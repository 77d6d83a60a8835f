// event-cli читает события мира из стрима NATS JetStream.
//
//	event-cli -cmd tail -since 30m -types block_changed
//	event-cli -cmd stats -since 24h
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	nats "github.com/nats-io/nats.go"

	"github.com/annel0/voxel-world/internal/eventbus"
)

const (
	defaultServerAddr = nats.DefaultURL
	timeFormat        = "2006-01-02T15:04:05Z"
	idleTimeout       = 2 * time.Second
)

func main() {
	var (
		serverAddr = flag.String("server", defaultServerAddr, "адрес NATS")
		stream     = flag.String("stream", "VOXEL", "имя стрима JetStream")
		command    = flag.String("cmd", "tail", "команда: tail, stats")
		eventTypes = flag.String("types", "", "фильтр типов событий (через запятую)")
		since      = flag.String("since", "1h", "начало окна: длительность (1h, 30m) или время RFC3339")
		limit      = flag.Int("limit", 100, "максимум событий для tail")
		follow     = flag.Bool("follow", false, "ждать новые события (как tail -f)")
	)
	flag.Parse()

	start, err := parseSinceTime(*since, time.Now())
	if err != nil {
		log.Fatalf("❌ Неверный -since: %v", err)
	}

	nc, err := nats.Connect(*serverAddr, nats.Name("event-cli"))
	if err != nil {
		log.Fatalf("❌ Не удалось подключиться к NATS: %v", err)
	}
	defer nc.Close()

	js, err := nc.JetStream()
	if err != nil {
		log.Fatalf("❌ JetStream недоступен: %v", err)
	}

	sub, err := js.SubscribeSync(eventbus.SubjectPrefix+".*",
		nats.BindStream(*stream), nats.StartTime(start), nats.AckNone())
	if err != nil {
		log.Fatalf("❌ Не удалось подписаться на %s: %v", *stream, err)
	}
	defer sub.Unsubscribe()

	types := parseStringList(*eventTypes)
	next := func() (*eventbus.Envelope, error) {
		timeout := idleTimeout
		if *follow {
			timeout = time.Hour
		}
		for {
			msg, err := sub.NextMsg(timeout)
			if err != nil {
				return nil, err
			}
			var ev eventbus.Envelope
			if err := json.Unmarshal(msg.Data, &ev); err != nil {
				log.Printf("⚠️ Пропущено сообщение %s: %v", msg.Subject, err)
				continue
			}
			if matchTypes(&ev, types) {
				return &ev, nil
			}
		}
	}

	switch *command {
	case "tail":
		fmt.Printf("🎬 События с %s (limit: %d, follow: %v)\n", start.UTC().Format(timeFormat), *limit, *follow)
		n := 0
		for *follow || n < *limit {
			ev, err := next()
			if errors.Is(err, nats.ErrTimeout) {
				break
			}
			if err != nil {
				log.Fatalf("❌ Ошибка чтения: %v", err)
			}
			printEvent(os.Stdout, ev)
			n++
		}
		fmt.Printf("\n📊 Всего событий: %d\n", n)

	case "stats":
		counts := make(map[string]int)
		for {
			ev, err := next()
			if errors.Is(err, nats.ErrTimeout) {
				break
			}
			if err != nil {
				log.Fatalf("❌ Ошибка чтения: %v", err)
			}
			counts[ev.EventType]++
		}
		printStats(os.Stdout, start, counts)

	default:
		fmt.Printf("❌ Неизвестная команда: %s\n", *command)
		fmt.Println("Доступные команды: tail, stats")
		os.Exit(1)
	}
}

func matchTypes(ev *eventbus.Envelope, types []string) bool {
	if len(types) == 0 {
		return true
	}
	for _, t := range types {
		if t == ev.EventType {
			return true
		}
	}
	return false
}

// printEvent выводит событие в читаемом формате
func printEvent(out io.Writer, ev *eventbus.Envelope) {
	fmt.Fprintf(out, "[%s] %s [%s] %s\n", ev.Timestamp.Format("15:04:05"), ev.Source, ev.EventType, ev.ID)

	switch ev.EventType {
	case eventbus.EventChunkActivated, eventbus.EventChunkUnloaded:
		var p eventbus.ChunkEvent
		if err := ev.Decode(&p); err != nil {
			fmt.Fprintf(out, "  ⚠️ %v\n", err)
			return
		}
		fmt.Fprintf(out, "  Chunk: (%d,%d)", p.X, p.Y)
		if p.Origin != "" {
			fmt.Fprintf(out, " origin=%s", p.Origin)
		}
		if p.Saved {
			fmt.Fprint(out, " saved")
		}
		fmt.Fprintln(out)
	case eventbus.EventBlockChanged:
		var p eventbus.BlockEvent
		if err := ev.Decode(&p); err != nil {
			fmt.Fprintf(out, "  ⚠️ %v\n", err)
			return
		}
		fmt.Fprintf(out, "  Block: (%d,%d,%d) %s -> %s placing=%v\n", p.X, p.Y, p.Z, p.From, p.To, p.Placing)
	}
}

func printStats(out io.Writer, start time.Time, counts map[string]int) {
	types := make([]string, 0, len(counts))
	total := 0
	for t, n := range counts {
		types = append(types, t)
		total += n
	}
	sort.Strings(types)

	fmt.Fprintf(out, "📊 Период: с %s\n", start.UTC().Format(timeFormat))
	fmt.Fprintf(out, "Всего событий: %d\n", total)
	fmt.Fprintln(out, "\nПо типам:")
	for _, t := range types {
		fmt.Fprintf(out, "  %s: %d\n", t, counts[t])
	}
}

// parseStringList парсит строку с разделителями-запятыми
func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// parseSinceTime парсит относительное время типа "1h", "30m" или абсолютное RFC3339
func parseSinceTime(since string, from time.Time) (time.Time, error) {
	if since == "" {
		return from, nil
	}

	duration, err := time.ParseDuration(since)
	if err != nil {
		return time.Parse(timeFormat, since)
	}

	return from.Add(-duration), nil
}
