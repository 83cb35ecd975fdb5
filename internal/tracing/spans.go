package tracing

import (
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span names.
const (
	SpanFetch    = "dandanplay.fetch"
	SpanHash     = "dandanplay.hash"
	SpanMatch    = "dandanplay.match"
	SpanComments = "dandanplay.comments"
)

// Attribute keys.
const (
	AttrFetchID      = "fetch.id"
	AttrFileName     = "file.name"
	AttrFileHash     = "file.hash"
	AttrEpisodeID    = "episode.id"
	AttrCommentCount = "comment.count"
	AttrSkipped      = "comment.skipped"
	AttrCacheHit     = "cache.hit"
	AttrHTTPStatus   = "http.status_code"
)

// RecordError marks span failed with err. A nil err is a no-op.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
