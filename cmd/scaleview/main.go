// scaleview connects to a scaled replication hub and renders every
// replicated entity's scales in the terminal, interpolated between steps.
//
// Usage:
//
//	scaleview [-url ws://127.0.0.1:8765/ws] [-key secret] [-demo 5]
//
// Keys: q or Esc quits, space pauses.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/udisondev/scalekit/internal/config"
	"github.com/udisondev/scalekit/internal/crypto"
	"github.com/udisondev/scalekit/internal/registry"
	"github.com/udisondev/scalekit/internal/replication"
	"github.com/udisondev/scalekit/internal/viewer"
	"github.com/udisondev/scalekit/internal/world"
)

var (
	urlFlag        = flag.String("url", "ws://127.0.0.1:8765/ws", "replication hub URL")
	keyFlag        = flag.String("key", "", "frame cipher key (must match the server)")
	categoriesFlag = flag.String("categories", "config/categories.yaml", "category definitions (must match the server)")
	intervalFlag   = flag.Duration("interval", 50*time.Millisecond, "server tick interval")
	fpsFlag        = flag.Int("fps", 30, "redraw rate")
	logFlag        = flag.String("log", "", "write logs to this file")
	demoFlag       = flag.Int("demo", 0, "spawn this many entities and retarget them periodically")
	retargetFlag   = flag.Duration("retarget", 3*time.Second, "demo retarget period")
)

func main() {
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "scaleview:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// The terminal belongs to tcell; logs go to a file or nowhere.
	handler := slog.DiscardHandler
	if *logFlag != "" {
		f, err := os.OpenFile(*logFlag, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()
		handler = slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	slog.SetDefault(slog.New(handler))

	defs, err := config.LoadCategories(*categoriesFlag)
	if err != nil {
		return fmt.Errorf("loading categories: %w", err)
	}
	w := world.New()
	reg := registry.New()
	if err := reg.Apply(defs, w); err != nil {
		return fmt.Errorf("registering categories: %w", err)
	}
	replica := replication.NewReplica(reg, w)

	cipher, err := crypto.NewFrameCipher([]byte(*keyFlag))
	if err != nil {
		return fmt.Errorf("creating frame cipher: %w", err)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, *urlFlag, nil)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", *urlFlag, err)
	}
	defer conn.Close()
	slog.Info("connected", "url", *urlFlag, "encrypted", cipher != nil)

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("creating screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("initializing screen: %w", err)
	}
	defer screen.Fini()

	v := viewer.New(screen, replica)
	v.SetStatus("connected to " + *urlFlag)

	c := &session{
		conn:    conn,
		cipher:  cipher,
		replica: replica,
		viewer:  v,
		spawned: make(chan uint32, max(*demoFlag, 1)),
	}

	ctx, stop := context.WithCancel(ctx)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := v.Run(gctx, *intervalFlag, *fpsFlag)
		// Quitting from the keyboard ends the session.
		stop()
		c.close()
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		return c.readLoop(gctx)
	})
	if *demoFlag > 0 {
		g.Go(func() error {
			if err := c.demo(gctx, *demoFlag, *retargetFlag); err != nil && gctx.Err() == nil {
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

// session owns the client side of one hub connection.
type session struct {
	conn    *websocket.Conn
	cipher  *crypto.FrameCipher
	replica *replication.Replica
	viewer  *viewer.Viewer

	writeMu sync.Mutex
	seq     uint64

	spawned chan uint32

	closeOnce sync.Once
}

func (s *session) close() {
	s.closeOnce.Do(func() {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		s.conn.Close()
	})
}

// readLoop applies binary batches to the replica and shows replies in the
// status line. It returns nil once the connection closes.
func (s *session) readLoop(ctx context.Context) error {
	for {
		kind, data, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.viewer.SetStatus("disconnected: " + err.Error())
				return nil
			}
			return fmt.Errorf("reading from hub: %w", err)
		}

		switch kind {
		case websocket.BinaryMessage:
			payload, err := s.cipher.Open(data)
			if err != nil {
				slog.Warn("dropping frame", "error", err)
				continue
			}
			if err := s.replica.Apply(payload); err != nil {
				slog.Warn("applying batch", "error", err)
			}

		case websocket.TextMessage:
			var r replication.Reply
			if err := json.Unmarshal(data, &r); err != nil {
				slog.Warn("malformed reply", "error", err)
				continue
			}
			s.handleReply(r)
		}
	}
}

func (s *session) handleReply(r replication.Reply) {
	if r.Type == "reject" {
		s.viewer.SetStatus(fmt.Sprintf("%s #%d rejected: %s", r.Cmd, r.Seq, r.Reason))
		slog.Info("command rejected", "cmd", r.Cmd, "seq", r.Seq, "reason", r.Reason)
		return
	}
	s.viewer.SetStatus(fmt.Sprintf("%s #%d ok (entity %08x)", r.Cmd, r.Seq, r.Entity))
	if r.Cmd == replication.CmdSpawn {
		select {
		case s.spawned <- r.Entity:
		default:
		}
	}
}

func (s *session) send(cmd replication.Command) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.seq++
	cmd.Seq = s.seq
	if err := s.conn.WriteJSON(cmd); err != nil {
		return fmt.Errorf("sending %s: %w", cmd.Cmd, err)
	}
	return nil
}

// demo spawns n entities and ramps each one to a random base scale every
// period.
func (s *session) demo(ctx context.Context, n int, period time.Duration) error {
	for range n {
		if err := s.send(replication.Command{Cmd: replication.CmdSpawn}); err != nil {
			return err
		}
	}

	var ids []uint32
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil

		case id := <-s.spawned:
			ids = append(ids, id)
			if err := s.retarget(id); err != nil {
				return err
			}

		case <-ticker.C:
			for _, id := range ids {
				if err := s.retarget(id); err != nil {
					return err
				}
			}
		}
	}
}

func (s *session) retarget(id uint32) error {
	target := 0.25 + rand.Float64()*2.75
	return s.send(replication.Command{Cmd: replication.CmdTarget, Entity: id, Value: &target})
}
