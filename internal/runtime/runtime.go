package runtime

import (
	"context"
	"errors"

	"github.com/distwrite/mswriter/internal/eventlog"
	"github.com/distwrite/mswriter/internal/namespace"
	pebblestore "github.com/distwrite/mswriter/internal/storage/pebble"
)

// Options for building the Runtime.
//
// Runtime is test infrastructure only: it backs internal/testutil/fakeserver,
// the in-process stand-in for the remote log cluster the production writer
// dispatches against. It is never imported by internal/mswriter.
type Options struct {
	DataDir string
	Fsync   pebblestore.FsyncMode
}

// Runtime wires storage and log facades for one in-process fake log node.
type Runtime struct {
	db *pebblestore.DB
}

// Open initializes the underlying storage and returns a Runtime.
func Open(opts Options) (*Runtime, error) {
	db, err := pebblestore.Open(pebblestore.Options{DataDir: opts.DataDir, Fsync: opts.Fsync})
	if err != nil {
		return nil, err
	}
	rt := &Runtime{db: db}
	return rt, nil
}

// Close closes underlying resources.
func (r *Runtime) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// CheckHealth performs a simple health check.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.db == nil {
		return errors.New("db not open")
	}
	it, err := r.db.NewIter(nil)
	if err != nil {
		return err
	}
	it.Close()
	return nil
}

// EnsureNamespace creates a namespace record if absent.
func (r *Runtime) EnsureNamespace(name string) (namespace.Meta, error) {
	return namespace.EnsureNamespace(r.db, name)
}

// OpenLog opens an event log for given namespace/topic/partition.
func (r *Runtime) OpenLog(ns, topic string, partition uint32) (*eventlog.Log, error) {
	return eventlog.OpenLog(r.db, ns, topic, partition)
}

// DB exposes the underlying DB for advanced operations (internal use only).
func (r *Runtime) DB() *pebblestore.DB { return r.db }
