package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danmuck/pubd/internal/protocol"
	"github.com/danmuck/pubd/internal/protocol/pdu"
	"github.com/danmuck/pubd/internal/protocol/rsync"
	"github.com/danmuck/pubd/internal/repository"
	"github.com/danmuck/pubd/internal/testutil/testlog"
	"github.com/gin-gonic/gin"
)

const base = "rsync://wombat.example/Alice/"

func init() {
	gin.SetMode(gin.TestMode)
}

func newServer(t *testing.T) *Server {
	t.Helper()
	store := repository.New()
	if err := store.AddPublisher("alice", rsync.MustParse(base)); err != nil {
		t.Fatalf("add publisher: %v", err)
	}
	s := Appear("pubd-test", ":0", nil, store)
	s.RegisterRoutes()
	return s
}

func post(s *Server, publisher, contentType string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/rfc8181/"+publisher, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	s.HTTPRouter().ServeHTTP(rr, req)
	return rr
}

func publishMessage(path, content string) []byte {
	return protocol.Marshal(protocol.PublishQuery{Body: pdu.PublishQuery{Elements: []pdu.QueryElement{
		pdu.Publish{Tag: path, URI: rsync.MustParse(base + path), Content: []byte(content)},
	}}})
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rr.Body.String(), err)
	}
	return body
}

func TestPublishThenList(t *testing.T) {
	testlog.Start(t)
	s := newServer(t)

	rr := post(s, "alice", protocol.ContentType, publishMessage("a.cer", "one"))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != protocol.ContentType {
		t.Fatalf("unexpected reply content type %q", ct)
	}
	reply, err := protocol.Parse(rr.Body.Bytes())
	if err != nil {
		t.Fatalf("parse reply: %v", err)
	}
	if _, ok := reply.(protocol.SuccessReply); !ok {
		t.Fatalf("expected SuccessReply, got %T", reply)
	}
	testlog.Logf("server/http: publish a.cer status=%d", rr.Code)

	rr = post(s, "alice", protocol.ContentType, protocol.Marshal(protocol.ListQuery{}))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	reply, err = protocol.Parse(rr.Body.Bytes())
	if err != nil {
		t.Fatalf("parse reply: %v", err)
	}
	list, ok := reply.(protocol.ListReply)
	if !ok || len(list.Body.Elements) != 1 {
		t.Fatalf("expected one-element ListReply, got %#v", reply)
	}
	if list.Body.Elements[0].Hash != pdu.HashOf([]byte("one")) {
		t.Fatalf("unexpected hash in list reply")
	}
}

func TestPublicationRejectsWrongContentType(t *testing.T) {
	s := newServer(t)
	rr := post(s, "alice", "text/xml", publishMessage("a.cer", "one"))
	if rr.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected status 415, got %d", rr.Code)
	}
	rr = post(s, "alice", protocol.ContentType+"; charset=utf-8", protocol.Marshal(protocol.ListQuery{}))
	if rr.Code != http.StatusOK {
		t.Fatalf("media type parameters should be accepted, got %d", rr.Code)
	}
}

func TestPublicationBodyLimit(t *testing.T) {
	s := newServer(t)
	s.MaxBodyBytes = 16
	rr := post(s, "alice", protocol.ContentType, publishMessage("a.cer", "one"))
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected status 413, got %d", rr.Code)
	}
}

func TestPublicationDecodeErrorsReportKindAndLayer(t *testing.T) {
	s := newServer(t)
	cases := []struct {
		name  string
		body  string
		kind  protocol.Kind
		layer protocol.Layer
	}{
		{
			name:  "version",
			body:  `<msg xmlns="` + protocol.Namespace + `" version="3" type="query"><list/></msg>`,
			kind:  protocol.KindInvalidVersion,
			layer: protocol.LayerEnvelope,
		},
		{
			name:  "payload uri",
			body:  `<msg xmlns="` + protocol.Namespace + `" version="4" type="query"><withdraw uri="http://x/y" hash="00"/></msg>`,
			kind:  protocol.KindMalformedURI,
			layer: protocol.LayerPayload,
		},
		{
			name:  "xml",
			body:  `<msg version="4" type="query"><list>`,
			kind:  protocol.KindMalformedXML,
			layer: protocol.LayerPayload,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := post(s, "alice", protocol.ContentType, []byte(tc.body))
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d body=%s", rr.Code, rr.Body.String())
			}
			body := decodeJSON(t, rr)
			if body["kind"] != string(tc.kind) || body["layer"] != string(tc.layer) {
				t.Fatalf("unexpected error body: %#v", body)
			}
		})
	}
}

func TestPublicationRepositoryErrors(t *testing.T) {
	s := newServer(t)
	if rr := post(s, "alice", protocol.ContentType, publishMessage("a.cer", "one")); rr.Code != http.StatusOK {
		t.Fatalf("seed publish failed: %d", rr.Code)
	}

	rr := post(s, "alice", protocol.ContentType, publishMessage("a.cer", "two"))
	if rr.Code != http.StatusConflict || decodeJSON(t, rr)["code"] != string(repository.CodeObjectAlreadyPresent) {
		t.Fatalf("expected 409 object_already_present, got %d %s", rr.Code, rr.Body.String())
	}

	outside := protocol.Marshal(protocol.PublishQuery{Body: pdu.PublishQuery{Elements: []pdu.QueryElement{
		pdu.Publish{URI: rsync.MustParse("rsync://wombat.example/Bob/b.cer"), Content: []byte("x")},
	}}})
	rr = post(s, "alice", protocol.ContentType, outside)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}

	rr = post(s, "nobody", protocol.ContentType, protocol.Marshal(protocol.ListQuery{}))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}

	rr = post(s, "alice", protocol.ContentType, protocol.Marshal(protocol.SuccessReply{}))
	if rr.Code != http.StatusBadRequest || decodeJSON(t, rr)["code"] != "not_query" {
		t.Fatalf("expected 400 not_query, got %d %s", rr.Code, rr.Body.String())
	}
}

func TestStatusRoutes(t *testing.T) {
	s := newServer(t)
	for _, path := range []string{"/health", "/ready", "/publishers"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rr := httptest.NewRecorder()
		s.HTTPRouter().ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("GET %s: expected 200, got %d", path, rr.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/publishers", nil)
	rr := httptest.NewRecorder()
	s.HTTPRouter().ServeHTTP(rr, req)
	if !strings.Contains(rr.Body.String(), `"handle":"alice"`) || !strings.Contains(rr.Body.String(), base) {
		t.Fatalf("unexpected publishers body: %s", rr.Body.String())
	}

	post(s, "alice", protocol.ContentType, publishMessage("m.cer", "x"))
	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr = httptest.NewRecorder()
	s.HTTPRouter().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "pubd_publication_messages_total") {
		t.Fatalf("expected publication metrics, got %d", rr.Code)
	}
}

func TestUnknownPublisherMetricsShareOneLabel(t *testing.T) {
	s := newServer(t)
	for _, handle := range []string{"ghost-1", "ghost-2"} {
		if rr := post(s, handle, protocol.ContentType, protocol.Marshal(protocol.ListQuery{})); rr.Code != http.StatusNotFound {
			t.Fatalf("expected 404 for %s, got %d", handle, rr.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	s.HTTPRouter().ServeHTTP(rr, req)
	body := rr.Body.String()
	if !strings.Contains(body, `publisher="unknown"`) {
		t.Fatalf("expected unknown publisher label in metrics")
	}
	if strings.Contains(body, `publisher="ghost-1"`) || strings.Contains(body, `publisher="ghost-2"`) {
		t.Fatalf("unregistered handles must not become metric labels")
	}
}
