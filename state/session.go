// (c) 2019-2020, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"github.com/ava-labs/avalanchego/database"
	"github.com/pkg/errors"
)

// Session is a nested undo scope of a Store. Sessions close in LIFO order:
// Merge folds the session's changes into its parent, Undo discards them.
//
// The usual pattern is
//
//	sess := store.StartUndoSession()
//	defer sess.Abort()
//	...
//	return sess.Merge()
type Session struct {
	store *Store
	layer *layer
	depth int
	done  bool
}

// Database returns the session's layer of the working state. Writes to it
// merge and undo together with the session's objects.
func (s *Session) Database() database.Database { return s.layer.db }

// Merge commits the session's changes into the enclosing session, or into
// the store's working state for the outermost session.
func (s *Session) Merge() error {
	st := s.store
	st.lock.Lock()
	defer st.lock.Unlock()

	if err := s.checkTop(); err != nil {
		return err
	}
	if err := s.layer.db.Commit(); err != nil {
		return errors.Wrap(err, "failed to merge undo session")
	}
	s.pop()
	return nil
}

// Undo discards every change made since the session started.
func (s *Session) Undo() error {
	st := s.store
	st.lock.Lock()
	defer st.lock.Unlock()

	if err := s.checkTop(); err != nil {
		return err
	}
	s.layer.db.Abort()
	s.pop()
	return nil
}

// Abort undoes the session, and any session still open above it, unless it
// was already merged or undone.
func (s *Session) Abort() {
	st := s.store
	st.lock.Lock()
	defer st.lock.Unlock()

	if s.done {
		return
	}
	s.done = true
	if len(st.layers) < s.depth || st.layers[s.depth-1] != s.layer {
		// already unwound by an enclosing session
		return
	}
	for len(st.layers) >= s.depth {
		n := len(st.layers) - 1
		st.layers[n].db.Abort()
		st.layers = st.layers[:n]
	}
}

// Closed reports whether the session was merged or undone.
func (s *Session) Closed() bool {
	s.store.lock.RLock()
	defer s.store.lock.RUnlock()

	return s.done
}

func (s *Session) checkTop() error {
	if s.done {
		return ErrSessionClosed
	}
	if len(s.store.layers) != s.depth || s.store.layers[s.depth-1] != s.layer {
		return errors.Wrapf(ErrSessionOrder, "session at depth %d, %d open", s.depth, len(s.store.layers))
	}
	return nil
}

func (s *Session) pop() {
	s.store.layers = s.store.layers[:s.depth-1]
	s.done = true
}
