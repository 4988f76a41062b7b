// Package nntp implements the thin wire-level client for talking to a single
// NNTP server: connect/authenticate, LIST, GROUP, XOVER and BODY. Higher
// layers never touch the protocol directly.
package nntp

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"strconv"
	"strings"
	"time"
)

// Config holds the connection parameters for one server.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	UseTLS   bool
}

// Addr returns the host:port dial address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ProtocolError is a server-reported failure for a single command.
type ProtocolError struct {
	Code int
	Msg  string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("nntp: %d %s", e.Code, e.Msg)
}

const dialTimeout = 30 * time.Second

// Conn is a single NNTP connection. It is not safe for concurrent use;
// callers own one connection per goroutine.
type Conn struct {
	text *textproto.Conn
	raw  net.Conn
}

// Dial connects and authenticates per cfg. The context bounds the dial and
// greeting exchange; command timeouts afterwards are the transport's own.
func Dial(ctx context.Context, cfg Config) (*Conn, error) {
	d := &net.Dialer{Timeout: dialTimeout}
	var (
		raw net.Conn
		err error
	)
	if cfg.UseTLS {
		td := &tls.Dialer{NetDialer: d}
		raw, err = td.DialContext(ctx, "tcp", cfg.Addr())
	} else {
		raw, err = d.DialContext(ctx, "tcp", cfg.Addr())
	}
	if err != nil {
		return nil, fmt.Errorf("nntp: dial %s: %w", cfg.Addr(), err)
	}

	c := &Conn{text: textproto.NewConn(raw), raw: raw}
	// Greeting: 200 (posting allowed) or 201 (no posting).
	if _, _, err := c.text.ReadCodeLine(20); err != nil {
		raw.Close()
		return nil, wrapProto(err)
	}
	if cfg.Username != "" {
		if err := c.auth(cfg.Username, cfg.Password); err != nil {
			raw.Close()
			return nil, err
		}
	}
	return c, nil
}

func (c *Conn) auth(user, pass string) error {
	code, _, err := c.cmd(381, "AUTHINFO USER %s", user)
	if err != nil {
		// 281 straight away means no password stage required.
		if code == 281 {
			return nil
		}
		return err
	}
	if _, _, err := c.cmd(281, "AUTHINFO PASS %s", pass); err != nil {
		return err
	}
	return nil
}

// cmd sends one command and reads the status line, expecting the given code.
func (c *Conn) cmd(expect int, format string, args ...any) (int, string, error) {
	id, err := c.text.Cmd(format, args...)
	if err != nil {
		return 0, "", fmt.Errorf("nntp: send: %w", err)
	}
	c.text.StartResponse(id)
	defer c.text.EndResponse(id)
	code, msg, err := c.text.ReadCodeLine(expect)
	if err != nil {
		return code, msg, wrapProto(err)
	}
	return code, msg, nil
}

// Group selects a newsgroup and returns its article count and number range.
func (c *Conn) Group(name string) (count, first, last int, err error) {
	_, msg, err := c.cmd(211, "GROUP %s", name)
	if err != nil {
		return 0, 0, 0, err
	}
	fields := strings.Fields(msg)
	if len(fields) < 3 {
		return 0, 0, 0, &ProtocolError{Code: 211, Msg: "malformed GROUP response: " + msg}
	}
	count, _ = strconv.Atoi(fields[0])
	first, _ = strconv.Atoi(fields[1])
	last, _ = strconv.Atoi(fields[2])
	return count, first, last, nil
}

// Listing streams the lines of a LIST response. The caller must either
// consume it fully or Close it; abandoning a listing mid-stream leaves the
// connection desynchronized.
type Listing struct {
	dot  io.Reader
	scan *bufio.Scanner
}

// Next advances to the next line, returning false at end of listing.
func (l *Listing) Next() bool { return l.scan.Scan() }

// Line returns the current line.
func (l *Listing) Line() string { return l.scan.Text() }

// Err returns the first scan error, if any.
func (l *Listing) Err() error { return l.scan.Err() }

// Close drains any unread remainder of the listing so the connection is
// left in a valid state.
func (l *Listing) Close() error {
	_, err := io.Copy(io.Discard, l.dot)
	return err
}

// List issues LIST and returns a lazy line stream of
// "name last first posting-flag" entries.
func (c *Conn) List() (*Listing, error) {
	id, err := c.text.Cmd("LIST")
	if err != nil {
		return nil, fmt.Errorf("nntp: send: %w", err)
	}
	c.text.StartResponse(id)
	defer c.text.EndResponse(id)
	if _, _, err := c.text.ReadCodeLine(215); err != nil {
		return nil, wrapProto(err)
	}
	dot := c.text.DotReader()
	return &Listing{dot: dot, scan: bufio.NewScanner(dot)}, nil
}

// Overview is one XOVER response entry.
type Overview struct {
	Article    int
	Subject    string
	From       string
	Date       string
	MessageID  string
	References string
}

// Over issues XOVER for an inclusive article range and returns the parsed
// overview entries. Malformed lines are skipped.
func (c *Conn) Over(first, last int) ([]Overview, error) {
	id, err := c.text.Cmd("XOVER %d-%d", first, last)
	if err != nil {
		return nil, fmt.Errorf("nntp: send: %w", err)
	}
	c.text.StartResponse(id)
	defer c.text.EndResponse(id)
	if _, _, err := c.text.ReadCodeLine(224); err != nil {
		return nil, wrapProto(err)
	}
	lines, err := c.text.ReadDotLines()
	if err != nil {
		return nil, fmt.Errorf("nntp: read overview: %w", err)
	}
	out := make([]Overview, 0, len(lines))
	for _, line := range lines {
		if ov, ok := ParseOverview(line); ok {
			out = append(out, ov)
		}
	}
	return out, nil
}

// ParseOverview parses one tab-separated XOVER line:
// article<TAB>subject<TAB>from<TAB>date<TAB>message-id<TAB>references...
func ParseOverview(line string) (Overview, bool) {
	fields := strings.Split(line, "\t")
	if len(fields) < 6 {
		return Overview{}, false
	}
	article, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		return Overview{}, false
	}
	return Overview{
		Article:    article,
		Subject:    fields[1],
		From:       fields[2],
		Date:       fields[3],
		MessageID:  fields[4],
		References: fields[5],
	}, true
}

// Body retrieves the dot-decoded body lines of one article in the currently
// selected group.
func (c *Conn) Body(article int) ([]string, error) {
	id, err := c.text.Cmd("BODY %d", article)
	if err != nil {
		return nil, fmt.Errorf("nntp: send: %w", err)
	}
	c.text.StartResponse(id)
	defer c.text.EndResponse(id)
	if _, _, err := c.text.ReadCodeLine(222); err != nil {
		return nil, wrapProto(err)
	}
	lines, err := c.text.ReadDotLines()
	if err != nil {
		return nil, fmt.Errorf("nntp: read body: %w", err)
	}
	return lines, nil
}

// Quit sends QUIT and closes the connection. Safe to call on a
// half-broken connection.
func (c *Conn) Quit() error {
	_, _, _ = c.cmd(205, "QUIT")
	return c.text.Close()
}

func wrapProto(err error) error {
	if tpErr, ok := err.(*textproto.Error); ok {
		return &ProtocolError{Code: tpErr.Code, Msg: tpErr.Msg}
	}
	return err
}
