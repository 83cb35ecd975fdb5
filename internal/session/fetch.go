package session

import (
	"context"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/zjrosen/mpv-danmaku/internal/danmaku"
	"github.com/zjrosen/mpv-danmaku/internal/host"
	"github.com/zjrosen/mpv-danmaku/internal/log"
)

// startFetch cancels any running fetch and starts a new one for the current
// media path.
func (s *Session) startFetch(ctx context.Context) {
	s.cancelFetch()

	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	fctx, cancel := context.WithCancel(ctx)
	s.fetchMu.Lock()
	s.cancel = cancel
	s.fetchMu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		s.fetch(fctx, gen)
	}()
}

// cancelFetch aborts the running fetch. Once it returns, that fetch can no
// longer install its result.
func (s *Session) cancelFetch() {
	s.fetchMu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.fetchMu.Unlock()

	s.mu.Lock()
	s.generation++
	s.mu.Unlock()
}

func (s *Session) fetch(ctx context.Context, gen uint64) {
	path, ok := s.host.String(ctx, host.PropPath)
	if !ok {
		log.Debug(log.CatFetch, "no media path, nothing to fetch")
		return
	}
	if pattern, skip := s.skipped(path); skip {
		log.Info(log.CatFetch, "media path matches skip pattern", "path", path, "pattern", pattern)
		return
	}

	records, err := s.fetcher.Fetch(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			log.Debug(log.CatFetch, "fetch cancelled", "path", path)
			return
		}
		log.ErrorErr(log.CatFetch, "fetching comments failed", err, "path", path)
		s.mu.Lock()
		if s.enabled.Load() && s.generation == gen {
			s.notify(ctx, Notice{Kind: NoticeFailed, Text: "Danmaku: " + err.Error(), Err: err})
		}
		s.mu.Unlock()
		return
	}

	store := danmaku.NewStore(records)
	f, haveFrame := s.frame(ctx)

	// The notice goes out under mu so a newer file-loaded cannot replace the
	// store between installing and announcing it.
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		log.Debug(log.CatFetch, "discarding superseded fetch", "path", path)
		return
	}
	s.store = store
	log.Info(log.CatFetch, "comments installed", "path", path, "count", store.Len())
	if !s.enabled.Load() {
		return
	}
	if haveFrame {
		s.render(ctx, f)
	}
	s.notify(ctx, loadedNotice(store.Len()))
}

func (s *Session) skipped(path string) (string, bool) {
	slashed := filepath.ToSlash(path)
	for _, p := range s.skip {
		if ok, err := doublestar.Match(filepath.ToSlash(p), slashed); err == nil && ok {
			return p, true
		}
	}
	return "", false
}
