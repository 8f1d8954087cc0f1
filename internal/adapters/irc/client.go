// Package irc provides the line transport: it dials the relay, performs
// connection registration, and feeds each received line to the session.
package irc

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bnema/bncbot/internal/config"
)

const (
	dialTimeout = 30 * time.Second
	// maxLineLength bounds a single inbound line, tags included.
	maxLineLength = 8192
)

// LineFunc receives one received line, already stripped of line termination.
type LineFunc func(ctx context.Context, line string)

// Client is a single TCP or TLS connection to the relay. It guarantees
// ordered delivery of received lines to the line callback and serializes
// concurrent sends; it makes no delivery guarantee across a disconnect.
type Client struct {
	cfg    config.Config
	log    *slog.Logger
	onLine LineFunc

	writeMu sync.Mutex
	conn    net.Conn

	closeOnce sync.Once
	done      chan struct{}
}

// NewClient builds an unconnected client. onLine is invoked once per line,
// in arrival order, from the read loop goroutine.
func NewClient(cfg config.Config, logger *slog.Logger, onLine LineFunc) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		log:    logger,
		onLine: onLine,
		done:   make(chan struct{}),
	}
}

// Connect dials the relay, registers the connection, and starts the read
// loop.
func (c *Client) Connect(ctx context.Context) error {
	addr := net.JoinHostPort(c.cfg.Server, strconv.Itoa(c.cfg.Port))
	dialer := &net.Dialer{Timeout: dialTimeout}

	var (
		conn net.Conn
		err  error
	)
	if c.cfg.SSL {
		tlsDialer := &tls.Dialer{NetDialer: dialer, Config: &tls.Config{ServerName: c.cfg.Server}}
		conn, err = tlsDialer.DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}

	c.writeMu.Lock()
	c.conn = conn
	c.writeMu.Unlock()

	if err := c.register(); err != nil {
		_ = c.Close()
		return err
	}

	go c.readLoop(ctx)
	return nil
}

func (c *Client) register() error {
	if c.cfg.Pass != "" {
		if err := c.Send("PASS", c.cfg.Pass); err != nil {
			return err
		}
	}
	if err := c.Send("NICK", c.cfg.Nick); err != nil {
		return err
	}
	return c.Send("USER", c.cfg.User, "0", "*", ":"+c.cfg.User)
}

// Send writes one line, parts joined with single spaces, CRLF appended.
// A send after the connection is gone is a hard failure; the caller's
// recovery path is a full reconnect.
func (c *Client) Send(parts ...string) error {
	line := strings.Join(parts, " ")

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.conn == nil {
		return errors.New("connection is closed")
	}
	if _, err := c.conn.Write([]byte(line + "\r\n")); err != nil {
		return fmt.Errorf("write line: %w", err)
	}
	c.log.Debug("[outgoing]", "line", line)
	return nil
}

func (c *Client) readLoop(ctx context.Context) {
	defer c.markDone()

	c.writeMu.Lock()
	conn := c.conn
	c.writeMu.Unlock()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, maxLineLength), maxLineLength)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		c.onLine(ctx, line)
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		c.log.Error("read loop ended", "error", err)
	}
}

func (c *Client) markDone() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// Done is closed when the connection is gone, whether by Close or by the
// remote side.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close sends QUIT on a best-effort basis and tears the connection down.
func (c *Client) Close() error {
	_ = c.Send("QUIT", ":Shutting down")

	c.writeMu.Lock()
	conn := c.conn
	c.conn = nil
	c.writeMu.Unlock()

	c.markDone()
	if conn == nil {
		return nil
	}
	return conn.Close()
}
