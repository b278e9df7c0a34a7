// Package client is the symmetric counterpart to package server: a Go
// client library for the same wire protocol. Session/transaction/cursor
// state uses blocking calls over a shared grpc.ClientConn and a Close()
// method for best-effort cleanup in place of a destructor. Connection
// dialing uses an exponential-backoff idiom
// (github.com/cenkalti/backoff/v4), bounded to the initial dial rather than
// a persistent reconnect loop: a GQL session is tied to one handshake, not a
// long-lived event stream.
package client

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/grafeodb/gwp/gqlerr"
	"github.com/grafeodb/gwp/wire"
)

const (
	defaultDialTimeout     = 10 * time.Second
	defaultInitialBackoff  = 200 * time.Millisecond
	defaultMaxBackoff      = 5 * time.Second
	defaultMaxElapsedTime  = 30 * time.Second
)

// Options configures Connect. The zero value dials in plaintext with the
// package defaults.
type Options struct {
	// Credentials supplies transport security; insecure.NewCredentials() is
	// used when nil.
	Credentials grpc.DialOption

	// DialTimeout bounds each individual dial attempt. Defaults to 10s.
	DialTimeout time.Duration

	// InitialBackoff, MaxBackoff, MaxElapsedTime configure the retry loop
	// around dialing. MaxElapsedTime bounds the whole Connect call; defaults
	// to 30s. Set MaxElapsedTime to a negative value to retry indefinitely
	// (subject to ctx).
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxElapsedTime time.Duration

	// DialOptions carries additional grpc.DialOption values (keepalive,
	// interceptors, ...), appended after Credentials.
	DialOptions []grpc.DialOption
}

func (o *Options) applyDefaults() {
	if o.DialTimeout == 0 {
		o.DialTimeout = defaultDialTimeout
	}
	if o.InitialBackoff == 0 {
		o.InitialBackoff = defaultInitialBackoff
	}
	if o.MaxBackoff == 0 {
		o.MaxBackoff = defaultMaxBackoff
	}
	if o.MaxElapsedTime == 0 {
		o.MaxElapsedTime = defaultMaxElapsedTime
	}
}

// Connection is a dialed channel to a GQL wire protocol server. Create
// sessions from it with CreateSession.
type Connection struct {
	conn *grpc.ClientConn
}

// Connect dials endpoint, retrying with exponential backoff until it
// succeeds, ctx is cancelled, or MaxElapsedTime elapses.
func Connect(ctx context.Context, endpoint string, opts Options) (*Connection, error) {
	opts.applyDefaults()

	creds := opts.Credentials
	if creds == nil {
		creds = grpc.WithTransportCredentials(insecure.NewCredentials())
	}
	// WithBlock makes each dial attempt observable: without it gRPC connects
	// lazily and the retry loop below would never see a failure.
	dialOpts := append([]grpc.DialOption{creds, grpc.WithBlock()}, opts.DialOptions...)

	var cc *grpc.ClientConn
	attempt := func() error {
		dialCtx, cancel := context.WithTimeout(ctx, opts.DialTimeout)
		defer cancel()
		conn, err := wire.NewClientConn(dialCtx, endpoint, dialOpts...)
		if err != nil {
			return err
		}
		cc = conn
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = opts.InitialBackoff
	b.MaxInterval = opts.MaxBackoff
	if opts.MaxElapsedTime < 0 {
		b.MaxElapsedTime = 0
	} else {
		b.MaxElapsedTime = opts.MaxElapsedTime
	}

	if err := backoff.Retry(attempt, backoff.WithContext(b, ctx)); err != nil {
		return nil, gqlerr.Transport(err)
	}
	return &Connection{conn: cc}, nil
}

// FromClientConn wraps an already-dialed *grpc.ClientConn, for callers that
// need custom dial logic (e.g. an in-process bufconn in tests).
func FromClientConn(cc *grpc.ClientConn) *Connection {
	return &Connection{conn: cc}
}

// Close tears down the underlying channel. Any Session created from this
// Connection becomes unusable.
func (c *Connection) Close() error {
	return c.conn.Close()
}

// CreateSession performs a handshake and returns an active Session.
func (c *Connection) CreateSession(ctx context.Context) (*Session, error) {
	return newSession(ctx, c.conn, nil)
}

// CreateSessionWithCredentials performs an authenticated handshake.
func (c *Connection) CreateSessionWithCredentials(ctx context.Context, creds *wire.AuthCredentials) (*Session, error) {
	return newSession(ctx, c.conn, creds)
}

// Databases returns a DatabaseClient bound to this connection.
func (c *Connection) Databases() *DatabaseClient {
	return newDatabaseClient(c.conn)
}
