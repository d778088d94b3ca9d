// Package repository holds the published object sets and applies publication
// queries to them.
//
// Ownership boundary:
// - per-publisher object sets keyed by URI
// - RFC 8181 publish/update/withdraw semantics, all-or-nothing per query
// - list replies
//
// State is in memory only.
package repository

import (
	"maps"
	"sort"
	"strings"
	"sync"

	"github.com/danmuck/pubd/internal/protocol"
	"github.com/danmuck/pubd/internal/protocol/pdu"
	"github.com/danmuck/pubd/internal/protocol/rsync"
	"github.com/rs/zerolog/log"
)

// Object is one published file. Objects are keyed by URI.Key, so spellings
// that differ only in scheme or host case name the same object.
type Object struct {
	URI     rsync.URI
	Hash    pdu.Hash
	Content []byte
}

// Publisher is a registered client and the directory it may write under.
type Publisher struct {
	Handle  string    `json:"handle"`
	Base    string    `json:"base_uri"`
	BaseURI rsync.URI `json:"-"`
	Objects int       `json:"objects"`
}

type publisherState struct {
	handle  string
	base    rsync.URI
	objects map[string]Object
}

// Store is safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	publishers map[string]*publisherState
}

func New() *Store {
	return &Store{
		publishers: make(map[string]*publisherState),
	}
}

// AddPublisher registers handle with its base directory URI.
func (s *Store) AddPublisher(handle string, base rsync.URI) error {
	handle = strings.TrimSpace(handle)
	if handle == "" || base.IsZero() || !base.IsDirectory() {
		return ErrInvalidPublisher
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.publishers[handle]; ok {
		return ErrPublisherExists
	}
	s.publishers[handle] = &publisherState{
		handle:  handle,
		base:    base,
		objects: make(map[string]Object),
	}
	return nil
}

// Publishers returns a snapshot sorted by handle.
func (s *Store) Publishers() []Publisher {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Publisher, 0, len(s.publishers))
	for _, p := range s.publishers {
		out = append(out, Publisher{
			Handle:  p.handle,
			BaseURI: p.base,
			Base:    p.base.String(),
			Objects: len(p.objects),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Handle < out[j].Handle
	})
	return out
}

// Objects returns the publisher's objects sorted by URI.
func (s *Store) Objects(handle string) ([]Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.publishers[handle]
	if !ok {
		return nil, ErrUnknownPublisher
	}
	return sortedObjects(p.objects), nil
}

// Process answers one query for handle. A success reply carries the tag of
// the first query element that has one.
func (s *Store) Process(handle string, msg protocol.Message) (protocol.Message, error) {
	switch q := msg.(type) {
	case protocol.ListQuery:
		reply, err := s.List(handle)
		if err != nil {
			return nil, err
		}
		return protocol.ListReply{Body: reply}, nil
	case protocol.PublishQuery:
		if err := s.Apply(handle, q.Body); err != nil {
			return nil, err
		}
		reply := protocol.SuccessReply{}
		for _, el := range q.Body.Elements {
			if tag := elementTag(el); tag != "" {
				reply.Body.Tag = tag
				break
			}
		}
		return reply, nil
	default:
		return nil, ErrNotQuery
	}
}

// List builds the list reply for handle.
func (s *Store) List(handle string) (pdu.ListReply, error) {
	objects, err := s.Objects(handle)
	if err != nil {
		return pdu.ListReply{}, err
	}
	var reply pdu.ListReply
	for _, obj := range objects {
		reply.Elements = append(reply.Elements, pdu.ListElement{URI: obj.URI, Hash: obj.Hash})
	}
	return reply, nil
}

// Apply executes every element of q against a staged copy of the
// publisher's objects and commits only if all of them succeed.
func (s *Store) Apply(handle string, q pdu.PublishQuery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.publishers[handle]
	if !ok {
		return ErrUnknownPublisher
	}

	staged := maps.Clone(p.objects)
	for _, el := range q.Elements {
		if err := applyElement(p.base, staged, el); err != nil {
			log.Debug().
				Str("publisher", handle).
				Err(err).
				Msg("publish query rejected")
			return err
		}
	}
	p.objects = staged

	log.Debug().
		Str("publisher", handle).
		Int("elements", len(q.Elements)).
		Int("objects", len(staged)).
		Msg("publish query applied")
	return nil
}

// Count returns the number of objects held for handle.
func (s *Store) Count(handle string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.publishers[handle]; ok {
		return len(p.objects)
	}
	return 0
}

func applyElement(base rsync.URI, objects map[string]Object, el pdu.QueryElement) error {
	target := el.Target()
	key := target.Key()
	if !base.Contains(target) || target.IsDirectory() {
		return &Error{Code: CodePermissionFailure, URI: target.String(), Tag: elementTag(el)}
	}
	current, exists := objects[key]

	switch e := el.(type) {
	case pdu.Publish:
		if exists {
			return &Error{Code: CodeObjectAlreadyPresent, URI: key, Tag: e.Tag}
		}
		objects[key] = newObject(e.URI, e.Content)
	case pdu.Update:
		if err := checkCurrent(current, exists, e.Hash, key, e.Tag); err != nil {
			return err
		}
		objects[key] = newObject(e.URI, e.Content)
	case pdu.Withdraw:
		if err := checkCurrent(current, exists, e.Hash, key, e.Tag); err != nil {
			return err
		}
		delete(objects, key)
	}
	return nil
}

func checkCurrent(current Object, exists bool, want pdu.Hash, key, tag string) error {
	if !exists {
		return &Error{Code: CodeNoObjectPresent, URI: key, Tag: tag}
	}
	if current.Hash != want {
		return &Error{Code: CodeNoObjectMatchingHash, URI: key, Tag: tag}
	}
	return nil
}

func newObject(uri rsync.URI, content []byte) Object {
	buf := make([]byte, len(content))
	copy(buf, content)
	return Object{URI: uri, Hash: pdu.HashOf(buf), Content: buf}
}

func elementTag(el pdu.QueryElement) string {
	switch e := el.(type) {
	case pdu.Publish:
		return e.Tag
	case pdu.Update:
		return e.Tag
	case pdu.Withdraw:
		return e.Tag
	}
	return ""
}

func sortedObjects(in map[string]Object) []Object {
	out := make([]Object, 0, len(in))
	for _, obj := range in {
		out = append(out, obj)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].URI.Key() < out[j].URI.Key()
	})
	return out
}
