package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/canopyview/canopy/pkg/cache"
	"github.com/canopyview/canopy/pkg/chat"
	"github.com/canopyview/canopy/pkg/errors"
	"github.com/canopyview/canopy/pkg/pipeline"
)

// serveCommand creates the serve command exposing conversations over HTTP.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr string
		dir  string
		demo bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve conversation canvases over HTTP",
		Long: `Serve conversation canvases over HTTP.

Conversations are loaded from --dir (every *.json file) at startup. Each one
is addressable by its id:

  GET /healthz                          liveness probe
  GET /conversations                    list loaded conversations
  GET /conversations/{id}               the conversation document
  GET /conversations/{id}/layout        the computed layout (json format)
  GET /conversations/{id}/render.svg    the rendered canvas

Artifacts are cached; set serve.redis_addr in the config to share the cache
between instances.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = c.Config.Serve.Addr
			}
			return c.runServe(cmd.Context(), addr, dir, demo)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().StringVar(&dir, "dir", ".", "directory of conversation JSON files")
	cmd.Flags().BoolVar(&demo, "demo", false, "serve the built-in sample conversation")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr, dir string, demo bool) error {
	store := newConvStore()
	if demo {
		conv, err := SampleConversation()
		if err != nil {
			return err
		}
		store.put(conv)
	}
	if !demo || dir != "." {
		if err := store.loadDir(dir); err != nil {
			return err
		}
	}
	if store.len() == 0 {
		return errors.New(errors.ErrCodeNotFound, "no conversations found in %s", dir)
	}

	serveCache, err := c.newServeCache(ctx)
	if err != nil {
		return err
	}
	runner := pipeline.NewRunner(serveCache, cache.NewScopedKeyer(nil, appName+":"), c.Logger)
	c.applyCacheTTL(runner)
	defer runner.Close()

	srv := &server{store: store, runner: runner, cli: c}

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      srv.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		c.Logger.Info("listening", "addr", addr, "conversations", store.len())
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// newServeCache picks the cache backend for serve mode: Redis when
// configured, the local file cache otherwise.
func (c *CLI) newServeCache(ctx context.Context) (cache.Cache, error) {
	if redisAddr := c.Config.Serve.RedisAddr; redisAddr != "" {
		rc, err := cache.NewRedisCache(ctx, redisAddr)
		if err != nil {
			return nil, fmt.Errorf("connect redis %s: %w", redisAddr, err)
		}
		c.Logger.Info("using redis cache", "addr", redisAddr)
		return rc, nil
	}
	return c.newCache(false)
}

// convStore holds the loaded conversations, keyed by id.
type convStore struct {
	mu    sync.RWMutex
	convs map[string]*chat.Conversation
}

func newConvStore() *convStore {
	return &convStore{convs: make(map[string]*chat.Conversation)}
}

func (s *convStore) put(c *chat.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.convs[c.ID] = c
}

func (s *convStore) get(id string) (*chat.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.convs[id]
	return c, ok
}

func (s *convStore) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.convs)
}

func (s *convStore) ids() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.convs))
	for id := range s.convs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// loadDir loads every *.json conversation in dir. Files that fail to parse
// are skipped, not fatal: one bad file must not take the whole set down.
func (s *convStore) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read dir %s: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		conv, err := chat.ReadConversationFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		s.put(conv)
	}
	return nil
}

// server bundles the HTTP handlers with their dependencies.
type server struct {
	store  *convStore
	runner *pipeline.Runner
	cli    *CLI

	// pipeMu serializes pipeline runs: Execute writes positions back onto
	// the shared conversations.
	pipeMu sync.Mutex
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/conversations", s.handleList)
	r.Route("/conversations/{id}", func(r chi.Router) {
		r.Get("/", s.handleGet)
		r.Get("/layout", s.handleLayout)
		r.Get("/render.svg", s.handleRenderSVG)
	})

	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleList(w http.ResponseWriter, r *http.Request) {
	type item struct {
		ID       string `json:"id"`
		Title    string `json:"title"`
		Branches int    `json:"branches"`
	}
	out := make([]item, 0, s.store.len())
	for _, id := range s.store.ids() {
		conv, _ := s.store.get(id)
		out = append(out, item{ID: conv.ID, Title: conv.Title, Branches: len(conv.Branches)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) handleGet(w http.ResponseWriter, r *http.Request) {
	conv, ok := s.store.get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, errors.New(errors.ErrCodeConversationNotFound, "conversation not found"))
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (s *server) handleLayout(w http.ResponseWriter, r *http.Request) {
	data, err := s.artifact(r, pipeline.FormatJSON)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func (s *server) handleRenderSVG(w http.ResponseWriter, r *http.Request) {
	data, err := s.artifact(r, pipeline.FormatSVG)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write(data)
}

func (s *server) artifact(r *http.Request, format string) ([]byte, error) {
	conv, ok := s.store.get(chi.URLParam(r, "id"))
	if !ok {
		return nil, errors.New(errors.ErrCodeConversationNotFound, "conversation not found")
	}

	opts := pipeline.Options{
		Formats:       []string{format},
		ShowEdges:     true,
		ShowSummaries: true,
		Logger:        s.cli.Logger,
	}
	s.pipeMu.Lock()
	result, err := s.runner.Execute(r.Context(), conv, opts)
	s.pipeMu.Unlock()
	if err != nil {
		return nil, err
	}
	return result.Artifacts[format], nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps coded errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errors.GetCode(err) {
	case errors.ErrCodeNotFound, errors.ErrCodeBranchNotFound,
		errors.ErrCodeMessageNotFound, errors.ErrCodeConversationNotFound:
		status = http.StatusNotFound
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidFormat,
		errors.ErrCodeInvalidConversation, errors.ErrCodeLayoutNoRoot:
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{
		"error": errors.UserMessage(err),
		"code":  string(errors.GetCode(err)),
	})
}
