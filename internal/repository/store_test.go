package repository

import (
	"errors"
	"sync"
	"testing"

	"github.com/danmuck/pubd/internal/protocol"
	"github.com/danmuck/pubd/internal/protocol/pdu"
	"github.com/danmuck/pubd/internal/protocol/rsync"
	"github.com/danmuck/pubd/internal/testutil/testlog"
)

const base = "rsync://wombat.example/Alice/"

func newStore(t *testing.T) *Store {
	t.Helper()
	s := New()
	if err := s.AddPublisher("alice", rsync.MustParse(base)); err != nil {
		t.Fatalf("add publisher: %v", err)
	}
	return s
}

func uri(path string) rsync.URI {
	return rsync.MustParse(base + path)
}

func publish(path, content string) pdu.QueryElement {
	return pdu.Publish{URI: uri(path), Content: []byte(content)}
}

func TestAddPublisherValidation(t *testing.T) {
	testlog.Start(t)
	s := newStore(t)
	if err := s.AddPublisher("alice", rsync.MustParse(base)); !errors.Is(err, ErrPublisherExists) {
		t.Fatalf("expected ErrPublisherExists, got %v", err)
	}
	if err := s.AddPublisher(" ", rsync.MustParse(base)); !errors.Is(err, ErrInvalidPublisher) {
		t.Fatalf("expected ErrInvalidPublisher for empty handle, got %v", err)
	}
	if err := s.AddPublisher("bob", rsync.MustParse("rsync://h/m/file.cer")); !errors.Is(err, ErrInvalidPublisher) {
		t.Fatalf("expected ErrInvalidPublisher for non-directory base, got %v", err)
	}
	list := s.Publishers()
	if len(list) != 1 || list[0].Handle != "alice" || list[0].Base != base {
		t.Fatalf("unexpected publishers: %#v", list)
	}
}

func TestPublishUpdateWithdrawLifecycle(t *testing.T) {
	testlog.Start(t)
	s := newStore(t)

	if err := s.Apply("alice", pdu.PublishQuery{Elements: []pdu.QueryElement{
		publish("a.cer", "one"),
		publish("b.roa", "two"),
	}}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if s.Count("alice") != 2 {
		t.Fatalf("expected 2 objects, got %d", s.Count("alice"))
	}

	err := s.Apply("alice", pdu.PublishQuery{Elements: []pdu.QueryElement{publish("a.cer", "again")}})
	if !errors.Is(err, ErrObjectAlreadyPresent) {
		t.Fatalf("expected ErrObjectAlreadyPresent, got %v", err)
	}

	err = s.Apply("alice", pdu.PublishQuery{Elements: []pdu.QueryElement{
		pdu.Update{URI: uri("a.cer"), Hash: pdu.HashOf([]byte("wrong")), Content: []byte("new")},
	}})
	if !errors.Is(err, ErrNoObjectMatchingHash) {
		t.Fatalf("expected ErrNoObjectMatchingHash, got %v", err)
	}

	if err := s.Apply("alice", pdu.PublishQuery{Elements: []pdu.QueryElement{
		pdu.Update{URI: uri("a.cer"), Hash: pdu.HashOf([]byte("one")), Content: []byte("uno")},
		pdu.Withdraw{URI: uri("b.roa"), Hash: pdu.HashOf([]byte("two"))},
	}}); err != nil {
		t.Fatalf("update+withdraw: %v", err)
	}

	objects, err := s.Objects("alice")
	if err != nil {
		t.Fatalf("objects: %v", err)
	}
	if len(objects) != 1 || string(objects[0].Content) != "uno" || objects[0].Hash != pdu.HashOf([]byte("uno")) {
		t.Fatalf("unexpected objects: %#v", objects)
	}

	err = s.Apply("alice", pdu.PublishQuery{Elements: []pdu.QueryElement{
		pdu.Withdraw{URI: uri("b.roa"), Hash: pdu.HashOf([]byte("two"))},
	}})
	if !errors.Is(err, ErrNoObjectPresent) {
		t.Fatalf("expected ErrNoObjectPresent, got %v", err)
	}
	testlog.Logf("repository/apply: lifecycle publish->update->withdraw verified")
}

func TestApplyIsAllOrNothing(t *testing.T) {
	testlog.Start(t)
	s := newStore(t)
	err := s.Apply("alice", pdu.PublishQuery{Elements: []pdu.QueryElement{
		publish("a.cer", "one"),
		pdu.Withdraw{Tag: "t9", URI: uri("missing.cer"), Hash: pdu.HashOf(nil)},
	}})
	var repoErr *Error
	if !errors.As(err, &repoErr) || repoErr.Code != CodeNoObjectPresent || repoErr.Tag != "t9" {
		t.Fatalf("expected no_object_present for tag t9, got %v", err)
	}
	if s.Count("alice") != 0 {
		t.Fatalf("failed query must not change the object set")
	}
}

func TestApplyOutsideBaseIsPermissionFailure(t *testing.T) {
	s := newStore(t)
	err := s.Apply("alice", pdu.PublishQuery{Elements: []pdu.QueryElement{
		pdu.Publish{URI: rsync.MustParse("rsync://wombat.example/Bob/x.cer"), Content: []byte("x")},
	}})
	if !errors.Is(err, ErrPermissionFailure) || CodeOf(err) != CodePermissionFailure {
		t.Fatalf("expected permission failure, got %v", err)
	}
	err = s.Apply("alice", pdu.PublishQuery{Elements: []pdu.QueryElement{
		pdu.Publish{URI: uri("dir/"), Content: []byte("x")},
	}})
	if !errors.Is(err, ErrPermissionFailure) {
		t.Fatalf("expected permission failure for directory uri, got %v", err)
	}
}

func TestHostCaseNamesOneObject(t *testing.T) {
	s := newStore(t)
	err := s.Apply("alice", pdu.PublishQuery{Elements: []pdu.QueryElement{
		pdu.Publish{URI: rsync.MustParse("rsync://wombat.example/Alice/a/x.cer"), Content: []byte("1")},
		pdu.Publish{URI: rsync.MustParse("rsync://WOMBAT.example/Alice/a/x.cer"), Content: []byte("2")},
	}})
	if !errors.Is(err, ErrObjectAlreadyPresent) {
		t.Fatalf("expected ErrObjectAlreadyPresent for host-case duplicate, got %v", err)
	}

	if err := s.Apply("alice", pdu.PublishQuery{Elements: []pdu.QueryElement{
		pdu.Publish{URI: rsync.MustParse("rsync://wombat.example/Alice/a/x.cer"), Content: []byte("1")},
	}}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := s.Apply("alice", pdu.PublishQuery{Elements: []pdu.QueryElement{
		pdu.Withdraw{URI: rsync.MustParse("RSYNC://Wombat.Example/Alice/a/x.cer"), Hash: pdu.HashOf([]byte("1"))},
	}}); err != nil {
		t.Fatalf("withdraw through another spelling: %v", err)
	}
	if s.Count("alice") != 0 {
		t.Fatalf("expected empty object set, got %d", s.Count("alice"))
	}
}

func TestProcessAnswersQueries(t *testing.T) {
	s := newStore(t)

	reply, err := s.Process("alice", protocol.PublishQuery{Body: pdu.PublishQuery{Elements: []pdu.QueryElement{
		publish("b.roa", "two"),
		publish("a.cer", "one"),
	}}})
	if err != nil {
		t.Fatalf("process publish: %v", err)
	}
	if _, ok := reply.(protocol.SuccessReply); !ok {
		t.Fatalf("expected SuccessReply, got %T", reply)
	}

	reply, err = s.Process("alice", protocol.PublishQuery{Body: pdu.PublishQuery{Elements: []pdu.QueryElement{
		publish("c.crl", "three"),
		pdu.Publish{Tag: "crl-2", URI: uri("d.crl"), Content: []byte("four")},
	}}})
	if err != nil {
		t.Fatalf("process tagged publish: %v", err)
	}
	if success, ok := reply.(protocol.SuccessReply); !ok || success.Body.Tag != "crl-2" {
		t.Fatalf("expected success tagged crl-2, got %#v", reply)
	}

	reply, err = s.Process("alice", protocol.ListQuery{})
	if err != nil {
		t.Fatalf("process list: %v", err)
	}
	list, ok := reply.(protocol.ListReply)
	if !ok {
		t.Fatalf("expected ListReply, got %T", reply)
	}
	if len(list.Body.Elements) != 4 || list.Body.Elements[0].URI.String() != base+"a.cer" {
		t.Fatalf("expected sorted list reply, got %#v", list.Body.Elements)
	}
	if list.Body.Elements[1].Hash != pdu.HashOf([]byte("two")) {
		t.Fatalf("unexpected hash in list reply")
	}

	if _, err := s.Process("alice", protocol.SuccessReply{}); !errors.Is(err, ErrNotQuery) {
		t.Fatalf("expected ErrNotQuery, got %v", err)
	}
	if _, err := s.Process("nobody", protocol.ListQuery{}); !errors.Is(err, ErrUnknownPublisher) {
		t.Fatalf("expected ErrUnknownPublisher, got %v", err)
	}
}

func TestApplyConcurrentPublishers(t *testing.T) {
	s := newStore(t)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := string(rune('a'+i)) + ".cer"
			_ = s.Apply("alice", pdu.PublishQuery{Elements: []pdu.QueryElement{publish(name, name)}})
			_, _ = s.List("alice")
		}(i)
	}
	wg.Wait()
	if s.Count("alice") != 20 {
		t.Fatalf("expected 20 objects, got %d", s.Count("alice"))
	}
}
