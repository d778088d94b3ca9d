package server

import (
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/danmuck/pubd/internal/observability"
	"github.com/danmuck/pubd/internal/protocol"
	"github.com/danmuck/pubd/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func (s *Server) handlePublication(c *gin.Context) {
	publisher := c.Param("publisher")

	if !acceptsContentType(c.GetHeader("Content-Type")) {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{
			"error": "content type must be " + protocol.ContentType,
		})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, s.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "message exceeds body limit"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := protocol.Parse(body)
	if err != nil {
		observability.RecordDecodeFailure(s.ID, string(protocol.LayerOf(err)), string(protocol.KindOf(err)))
		_ = c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
			"kind":  protocol.KindOf(err),
			"layer": protocol.LayerOf(err),
		})
		return
	}
	observability.RecordMessage(s.ID, msg.Variant())

	reply, err := s.Store.Process(publisher, msg)
	if err != nil {
		status, code := statusFor(err)
		observability.RecordQueryFailure(s.ID, publisherLabel(publisher, err), code)
		_ = c.Error(err)
		c.JSON(status, gin.H{
			"error": err.Error(),
			"code":  code,
		})
		return
	}

	count := s.Store.Count(publisher)
	observability.SetPublishedObjects(s.ID, publisher, count)
	log.Debug().
		Str("node", s.ID).
		Str("publisher", publisher).
		Str("query", msg.Variant()).
		Str("reply", reply.Variant()).
		Int("objects", count).
		Msg("publication query answered")

	c.Data(http.StatusOK, protocol.ContentType, protocol.Marshal(reply))
}

// publisherLabel keeps metric cardinality bounded by the registered handles.
func publisherLabel(publisher string, err error) string {
	if errors.Is(err, repository.ErrUnknownPublisher) {
		return "unknown"
	}
	return publisher
}

func acceptsContentType(header string) bool {
	mediaType, _, err := mime.ParseMediaType(header)
	return err == nil && mediaType == protocol.ContentType
}

// statusFor maps a repository failure onto an HTTP status and the error code
// reported in the JSON body.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, repository.ErrUnknownPublisher):
		return http.StatusNotFound, "unknown_publisher"
	case errors.Is(err, repository.ErrNotQuery):
		return http.StatusBadRequest, "not_query"
	case errors.Is(err, repository.ErrPermissionFailure):
		return http.StatusForbidden, string(repository.CodePermissionFailure)
	}
	if code := repository.CodeOf(err); code != "" {
		return http.StatusConflict, string(code)
	}
	return http.StatusInternalServerError, "internal_error"
}
