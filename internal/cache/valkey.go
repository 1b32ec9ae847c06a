package cache

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// ValkeyConfig holds connection parameters for the shared Valkey/Redis cache.
type ValkeyConfig struct {
	Addr         string
	Username     string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	TLS          bool
}

// ValkeyProvider implements Provider against a Valkey/Redis-compatible
// server. Connections are dialed per call; the provider itself is stateless.
type ValkeyProvider struct {
	cfg ValkeyConfig
}

// NewValkeyProvider creates a Provider and pings the target so bad
// credentials or connectivity fail at startup rather than on first use.
func NewValkeyProvider(cfg ValkeyConfig) (*ValkeyProvider, error) {
	if cfg.Addr == "" {
		return nil, errors.New("valkey addr is required")
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 2 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 500 * time.Millisecond
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 500 * time.Millisecond
	}

	p := &ValkeyProvider{cfg: cfg}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	reply, err := p.roundTrip(ctx, "PING")
	if err != nil {
		return nil, err
	}
	if reply.kind != respSimple || string(reply.data) != "PONG" {
		return nil, fmt.Errorf("unexpected PING response: %s", reply.data)
	}
	return p, nil
}

// Get fetches bytes by key, returning ErrCacheMiss when the key is absent.
func (p *ValkeyProvider) Get(ctx context.Context, key string) ([]byte, error) {
	reply, err := p.roundTrip(ctx, "GET", key)
	if err != nil {
		return nil, err
	}
	switch reply.kind {
	case respNil:
		return nil, ErrCacheMiss
	case respBulk:
		return reply.data, nil
	default:
		return nil, fmt.Errorf("unexpected valkey reply %q for GET", reply.kind)
	}
}

// Set stores bytes with the provided TTL (no expiry when ttl <= 0).
func (p *ValkeyProvider) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := []string{key, string(value)}
	if ttl > 0 {
		args = append(args, "PX", strconv.FormatInt(ttl.Milliseconds(), 10))
	}
	reply, err := p.roundTrip(ctx, "SET", args...)
	if err != nil {
		return err
	}
	if reply.kind != respSimple || string(reply.data) != "OK" {
		return fmt.Errorf("unexpected SET response: %s", reply.data)
	}
	return nil
}

// Del removes a key from the cache.
func (p *ValkeyProvider) Del(ctx context.Context, key string) error {
	_, err := p.roundTrip(ctx, "DEL", key)
	return err
}

// FlushDB empties the configured database. Invoked on the ingest-complete
// event so every replica sees fresh option sets.
func (p *ValkeyProvider) FlushDB(ctx context.Context) error {
	reply, err := p.roundTrip(ctx, "FLUSHDB")
	if err != nil {
		return err
	}
	if reply.kind != respSimple || !strings.EqualFold(string(reply.data), "OK") {
		return fmt.Errorf("unexpected FLUSHDB response: %s", reply.data)
	}
	return nil
}

// Close is a no-op for the per-call connection model.
func (p *ValkeyProvider) Close() error { return nil }

func (p *ValkeyProvider) roundTrip(ctx context.Context, command string, args ...string) (respReply, error) {
	conn, err := p.dial(ctx)
	if err != nil {
		return respReply{}, err
	}
	defer conn.Close()

	reader := bufio.NewReader(conn)
	if err := p.authenticate(conn, reader); err != nil {
		return respReply{}, err
	}
	if err := p.send(conn, command, args...); err != nil {
		return respReply{}, err
	}
	return p.receive(conn, reader)
}

func (p *ValkeyProvider) dial(ctx context.Context) (net.Conn, error) {
	dialer := net.Dialer{Timeout: p.cfg.DialTimeout}
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining > 0 && remaining < dialer.Timeout {
			dialer.Timeout = remaining
		}
	}
	if p.cfg.TLS {
		host := p.cfg.Addr
		if h, _, err := net.SplitHostPort(p.cfg.Addr); err == nil {
			host = h
		}
		return tls.DialWithDialer(&dialer, "tcp", p.cfg.Addr, &tls.Config{
			MinVersion: tls.VersionTLS12,
			ServerName: host,
		})
	}
	return dialer.DialContext(ctx, "tcp", p.cfg.Addr)
}

func (p *ValkeyProvider) authenticate(conn net.Conn, reader *bufio.Reader) error {
	if p.cfg.Password != "" {
		args := []string{p.cfg.Password}
		if p.cfg.Username != "" {
			args = []string{p.cfg.Username, p.cfg.Password}
		}
		if err := p.send(conn, "AUTH", args...); err != nil {
			return err
		}
		reply, err := p.receive(conn, reader)
		if err != nil {
			return err
		}
		if reply.kind != respSimple || !strings.EqualFold(string(reply.data), "OK") {
			return fmt.Errorf("auth failed: %s", reply.data)
		}
	}
	if p.cfg.DB > 0 {
		if err := p.send(conn, "SELECT", strconv.Itoa(p.cfg.DB)); err != nil {
			return err
		}
		reply, err := p.receive(conn, reader)
		if err != nil {
			return err
		}
		if reply.kind != respSimple || !strings.EqualFold(string(reply.data), "OK") {
			return fmt.Errorf("select failed: %s", reply.data)
		}
	}
	return nil
}

func (p *ValkeyProvider) send(conn net.Conn, command string, args ...string) error {
	if err := conn.SetWriteDeadline(time.Now().Add(p.cfg.WriteTimeout)); err != nil {
		return err
	}
	var buf strings.Builder
	fmt.Fprintf(&buf, "*%d\r\n", len(args)+1)
	fmt.Fprintf(&buf, "$%d\r\n%s\r\n", len(command), command)
	for _, arg := range args {
		fmt.Fprintf(&buf, "$%d\r\n%s\r\n", len(arg), arg)
	}
	_, err := conn.Write([]byte(buf.String()))
	return err
}

// respKind enumerates the subset of RESP reply types the provider handles.
type respKind byte

const (
	respSimple respKind = '+'
	respBulk   respKind = '$'
	respInt    respKind = ':'
	respNil    respKind = '_'
)

type respReply struct {
	kind respKind
	data []byte
}

func (p *ValkeyProvider) receive(conn net.Conn, reader *bufio.Reader) (respReply, error) {
	if err := conn.SetReadDeadline(time.Now().Add(p.cfg.ReadTimeout)); err != nil {
		return respReply{}, err
	}

	prefix, err := reader.ReadByte()
	if err != nil {
		return respReply{}, err
	}
	line, err := readLine(reader)
	if err != nil {
		return respReply{}, err
	}

	switch prefix {
	case '+':
		return respReply{kind: respSimple, data: line}, nil
	case '-':
		return respReply{}, errors.New(string(line))
	case ':':
		return respReply{kind: respInt, data: line}, nil
	case '$':
		size, err := strconv.Atoi(string(line))
		if err != nil {
			return respReply{}, err
		}
		if size < 0 {
			return respReply{kind: respNil}, nil
		}
		buf := make([]byte, size+2)
		for n := 0; n < len(buf); {
			m, err := reader.Read(buf[n:])
			n += m
			if err != nil {
				return respReply{}, err
			}
		}
		if buf[size] != '\r' || buf[size+1] != '\n' {
			return respReply{}, errors.New("invalid bulk string termination")
		}
		return respReply{kind: respBulk, data: buf[:size]}, nil
	default:
		return respReply{}, fmt.Errorf("unexpected RESP prefix %q", prefix)
	}
}

func readLine(reader *bufio.Reader) ([]byte, error) {
	line, err := reader.ReadString('\n')
	if err != nil {
		return nil, err
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return []byte(line), nil
}
