// Package runlock keeps two announcer processes from driving the same
// browser profile at once, using a Postgres session-scoped advisory lock.
//
// The lock lives as long as the dedicated connection. If the connection
// dies, Postgres releases the lock server-side; Hold pings the connection
// so the holder can stop promptly. The ping does NOT renew anything.
package runlock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// ErrHeld is returned when another process holds the lock.
var ErrHeld = errors.New("runlock: lock held by another process")

// Lock is an acquired advisory lock.
type Lock struct {
	key  int64
	conn *sql.Conn

	once sync.Once
}

// Acquire takes the lock without waiting.
func Acquire(ctx context.Context, db *sql.DB, key int64) (*Lock, error) {
	// Advisory lock is session-scoped: must use a dedicated connection.
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("runlock: dedicated connection: %w", err)
	}

	var acquired bool
	err = conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&acquired)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("runlock: advisory lock query: %w", err)
	}
	if !acquired {
		conn.Close()
		return nil, ErrHeld
	}

	log.Printf("runlock: acquired advisory lock %d", key)
	return &Lock{key: key, conn: conn}, nil
}

// Hold pings the dedicated connection every interval until ctx is done.
// onLost is called once if a ping fails while ctx is still live.
func (l *Lock) Hold(ctx context.Context, interval time.Duration, onLost func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := l.conn.PingContext(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Printf("runlock: dedicated connection ping failed, lock %d lost: %v", l.key, err)
				onLost()
				return
			}
		}
	}
}

// Release unlocks and returns the connection to the pool. Safe to call
// more than once.
func (l *Lock) Release(ctx context.Context) error {
	var err error
	l.once.Do(func() {
		var released bool
		qerr := l.conn.QueryRowContext(ctx, "SELECT pg_advisory_unlock($1)", l.key).Scan(&released)
		cerr := l.conn.Close()
		switch {
		case qerr != nil:
			err = fmt.Errorf("runlock: unlock: %w", qerr)
		case cerr != nil:
			err = fmt.Errorf("runlock: close connection: %w", cerr)
		case !released:
			log.Printf("runlock: lock %d was not held at release", l.key)
		default:
			log.Printf("runlock: released advisory lock %d", l.key)
		}
	})
	return err
}
