package ffmpeg

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// Event is one progress report from a running encode.
type Event struct {
	// Elapsed is how much of the output timeline has been encoded.
	Elapsed time.Duration
}

// Observer receives progress events. Delivery is advisory: events are
// dropped rather than letting a slow observer stall the encoder.
type Observer interface {
	Progress(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

func (f ObserverFunc) Progress(e Event) {
	f(e)
}

var (
	outTimeMSRe = regexp.MustCompile(`^out_time_ms=(\d+)`)
	outTimeRe   = regexp.MustCompile(`^out_time=(\d+):(\d+):(\d+(?:\.\d+)?)`)
)

// parseProgressLine extracts the elapsed output time from one key=value
// line of ffmpeg's -progress stream. out_time_ms carries microseconds
// despite its name; out_time is the HH:MM:SS.micro fallback.
func parseProgressLine(line string) (time.Duration, bool) {
	if m := outTimeMSRe.FindStringSubmatch(line); m != nil {
		us, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return 0, false
		}
		return time.Duration(us) * time.Microsecond, true
	}
	if m := outTimeRe.FindStringSubmatch(line); m != nil {
		hours, _ := strconv.Atoi(m[1])
		minutes, _ := strconv.Atoi(m[2])
		seconds, _ := strconv.ParseFloat(m[3], 64)
		total := float64(hours*3600+minutes*60) + seconds
		return time.Duration(total * float64(time.Second)), true
	}
	return 0, false
}

// progressSocket opens a unix socket for ffmpeg's -progress output and
// pumps parsed events to the observer. The returned cleanup must be
// called after the encode finishes.
func progressSocket(log zerolog.Logger, obs Observer) (string, func(), error) {
	sockPath := filepath.Join(os.TempDir(),
		fmt.Sprintf("tinytv-progress-%d.sock", time.Now().UnixNano()))

	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		return "", nil, err
	}

	// Small buffer between the socket reader and the observer; when the
	// observer lags, events are dropped so the subprocess pipe never
	// backs up.
	events := make(chan Event, 16)
	done := make(chan struct{})

	go func() {
		defer close(events)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			elapsed, ok := parseProgressLine(scanner.Text())
			if !ok {
				continue
			}
			select {
			case events <- Event{Elapsed: elapsed}:
			default:
			}
		}
	}()

	go func() {
		defer close(done)
		for ev := range events {
			obs.Progress(ev)
		}
	}()

	cleanup := func() {
		ln.Close()
		select {
		case <-done:
		case <-time.After(time.Second):
			log.Debug().Msg("progress observer did not drain in time")
		}
		os.Remove(sockPath)
	}
	return sockPath, cleanup, nil
}
