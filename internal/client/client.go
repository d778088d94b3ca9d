// Package client speaks the publication protocol to a pubd server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/danmuck/pubd/internal/protocol"
	"github.com/danmuck/pubd/internal/protocol/pdu"
	"github.com/rs/zerolog/log"
)

const maxReplyBytes = 64 << 20

var (
	ErrNotQuery        = errors.New("client: message is not a query")
	ErrEmptyQuery      = errors.New("client: publish query has no elements")
	ErrUnexpectedReply = errors.New("client: unexpected reply")
)

// StatusError is a non-2xx answer. Code is the server's error code when the
// body carried one.
type StatusError struct {
	Status  int
	Code    string
	Message string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("client: server returned %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("client: server returned %d: %s", e.Status, e.Message)
}

type Client struct {
	BaseURL   string
	Publisher string
	HTTP      *http.Client
}

func New(baseURL, publisher string, timeout time.Duration) *Client {
	return &Client{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		Publisher: publisher,
		HTTP:      &http.Client{Timeout: timeout},
	}
}

// Exchange posts query and decodes the reply message.
func (c *Client) Exchange(ctx context.Context, query protocol.Message) (protocol.Message, error) {
	if query == nil {
		return nil, protocol.ErrNilMessage
	}
	if query.Class() != protocol.ClassQuery {
		return nil, ErrNotQuery
	}
	// an element-less query encodes as <msg/>, which no server can decode
	if pq, ok := query.(protocol.PublishQuery); ok && len(pq.Body.Elements) == 0 {
		return nil, ErrEmptyQuery
	}

	endpoint := c.BaseURL + "/rfc8181/" + url.PathEscape(c.Publisher)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(protocol.Marshal(query)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", protocol.ContentType)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp.StatusCode, body)
	}

	reply, err := protocol.Parse(body)
	if err != nil {
		return nil, err
	}
	if reply.Class() != protocol.ClassReply {
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedReply, reply.Variant())
	}
	log.Debug().
		Str("publisher", c.Publisher).
		Str("query", query.Variant()).
		Str("reply", reply.Variant()).
		Msg("publication exchange")
	return reply, nil
}

// List returns the objects the server holds for the publisher.
func (c *Client) List(ctx context.Context) (pdu.ListReply, error) {
	reply, err := c.Exchange(ctx, protocol.ListQuery{})
	if err != nil {
		return pdu.ListReply{}, err
	}
	list, ok := reply.(protocol.ListReply)
	if !ok {
		return pdu.ListReply{}, fmt.Errorf("%w: %s", ErrUnexpectedReply, reply.Variant())
	}
	return list.Body, nil
}

// Publish sends a publish/withdraw query and expects a success reply.
func (c *Client) Publish(ctx context.Context, q pdu.PublishQuery) error {
	reply, err := c.Exchange(ctx, protocol.PublishQuery{Body: q})
	if err != nil {
		return err
	}
	if _, ok := reply.(protocol.SuccessReply); !ok {
		return fmt.Errorf("%w: %s", ErrUnexpectedReply, reply.Variant())
	}
	return nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP == nil {
		return http.DefaultClient
	}
	return c.HTTP
}

func statusError(status int, body []byte) error {
	var payload struct {
		Error string `json:"error"`
		Code  string `json:"code"`
		Kind  string `json:"kind"`
	}
	out := &StatusError{Status: status, Message: strings.TrimSpace(string(body))}
	if err := json.Unmarshal(body, &payload); err == nil {
		out.Message = payload.Error
		out.Code = payload.Code
		if out.Code == "" {
			out.Code = payload.Kind
		}
	}
	return out
}
