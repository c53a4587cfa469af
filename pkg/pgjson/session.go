package pgjson

import (
	"io"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Session owns the pool and the single connection an import runs on.
//
// Every step of an import uses Conn(): staging, key discovery and projection
// must see the same server session so nothing races between them.
type Session struct {
	pool      *pgxpool.Pool
	conn      *pgxpool.Conn
	connector Connector
}

// NewSession wraps an acquired connection. connector may be nil; when it
// implements io.Closer it is closed after the pool.
//
// Panics if pool or conn is nil.
func NewSession(pool *pgxpool.Pool, conn *pgxpool.Conn, connector Connector) *Session {
	if pool == nil {
		panic("pool cannot be nil")
	}
	if conn == nil {
		panic("conn cannot be nil")
	}
	return &Session{pool: pool, conn: conn, connector: connector}
}

// Conn returns the acquired connection. It is valid until Close is called.
func (s *Session) Conn() *pgxpool.Conn {
	return s.conn
}

// Close releases the connection, closes the pool and then the connector.
// It is idempotent.
func (s *Session) Close() error {
	if s.conn != nil {
		s.conn.Release()
		s.conn = nil
	}
	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
	if closer, ok := s.connector.(io.Closer); ok {
		s.connector = nil
		return closer.Close()
	}
	return nil
}
