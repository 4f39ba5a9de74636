package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ollama/bytepair/api"
	"github.com/ollama/bytepair/envconfig"
	"github.com/ollama/bytepair/tokenizer"
	"github.com/ollama/bytepair/version"
)

// Server serves a single tokenizer. Mutations are applied to a copy that is
// written back to path, if set, and only then replaces the served tokenizer.
type Server struct {
	mu   sync.RWMutex
	tok  *tokenizer.Tokenizer
	path string
}

func New(tok *tokenizer.Tokenizer, path string) *Server {
	return &Server{tok: tok, path: path}
}

func (s *Server) GenerateRoutes() http.Handler {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowWildcard = true
	corsConfig.AllowBrowserExtensions = true
	corsConfig.AllowHeaders = []string{
		"Authorization",
		"Content-Type",
		"User-Agent",
		"Accept",
		"X-Requested-With",
		"X-Request-Id",
	}
	corsConfig.ExposeHeaders = []string{"X-Request-Id"}
	corsConfig.AllowOrigins = envconfig.AllowedOrigins()

	r := gin.Default()
	r.HandleMethodNotAllowed = true
	r.Use(cors.New(corsConfig), requestID)

	r.HEAD("/", func(c *gin.Context) { c.String(http.StatusOK, "bytepair is running") })
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "bytepair is running") })
	r.HEAD("/api/version", func(c *gin.Context) { c.JSON(http.StatusOK, api.VersionResponse{Version: version.Version}) })
	r.GET("/api/version", func(c *gin.Context) { c.JSON(http.StatusOK, api.VersionResponse{Version: version.Version}) })

	r.GET("/api/vocabulary", s.VocabularyHandler)
	r.POST("/api/encode", s.EncodeHandler)
	r.POST("/api/decode", s.DecodeHandler)
	r.POST("/api/special", s.SpecialHandler)
	r.POST("/api/train", s.TrainHandler)

	return r
}

// requestID tags each request with an X-Request-Id, keeping the caller's if
// one was sent.
func requestID(c *gin.Context) {
	id := c.GetHeader("X-Request-Id")
	if id == "" {
		id = uuid.NewString()
	}

	c.Set("request_id", id)
	c.Header("X-Request-Id", id)
	c.Next()
}

// bind decodes the JSON body into req and aborts with 400 on failure.
func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); errors.Is(err, io.EOF) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing request body"})
		return false
	} else if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}

	return true
}

func abort(c *gin.Context, err error) {
	switch {
	case errors.Is(err, tokenizer.ErrInvalidTrainingTarget),
		errors.Is(err, tokenizer.ErrInsufficientCorpus),
		errors.Is(err, tokenizer.ErrInvalidTextEncoding),
		errors.Is(err, tokenizer.ErrUnknownSymbol):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		slog.Error("request failed", "path", c.FullPath(), "request_id", c.GetString("request_id"), "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// commit persists tok and makes it the served tokenizer. Callers hold the
// write lock.
func (s *Server) commit(tok *tokenizer.Tokenizer) error {
	if s.path != "" {
		if err := tok.SaveFile(s.path); err != nil {
			return err
		}
	}

	s.tok = tok
	return nil
}

func (s *Server) EncodeHandler(c *gin.Context) {
	var req api.EncodeRequest
	if !bind(c, &req) {
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var symbols []tokenizer.Symbol
	if req.Raw {
		symbols = s.tok.EncodeBytes([]byte(req.Text))
	} else {
		symbols = s.tok.Encode(req.Text)
	}

	c.JSON(http.StatusOK, api.EncodeResponse{Symbols: symbols})
}

func (s *Server) DecodeHandler(c *gin.Context) {
	var req api.DecodeRequest
	if !bind(c, &req) {
		return
	}

	// Decode may rebuild the reverse index
	s.mu.Lock()
	defer s.mu.Unlock()

	text, err := s.tok.Decode(req.Symbols)
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, api.DecodeResponse{Text: text})
}

func (s *Server) SpecialHandler(c *gin.Context) {
	var req api.SpecialRequest
	if !bind(c, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tok := s.tok.Clone()
	symbol, ok := tok.AddSpecial(req.Literal)
	if !ok {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "literal is empty after normalization"})
		return
	}

	added := tok.Size() - s.tok.Size()
	if added > 0 {
		if err := s.commit(tok); err != nil {
			abort(c, err)
			return
		}
	} else {
		// register the literal without rewriting the file
		s.tok = tok
	}

	c.JSON(http.StatusOK, api.SpecialResponse{Symbol: symbol, Added: added})
}

func (s *Server) TrainHandler(c *gin.Context) {
	var req api.TrainRequest
	if !bind(c, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tok := s.tok.Clone()
	pieces, err := tok.Train([]byte(req.Corpus), req.Size)
	if err != nil {
		abort(c, err)
		return
	}

	if err := s.commit(tok); err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, api.TrainResponse{Size: s.tok.Size(), Pieces: len(pieces)})
}

func (s *Server) VocabularyHandler(c *gin.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	resp := api.VocabularyResponse{
		Size:      s.tok.Size(),
		ChunkSize: s.tok.ChunkSize(),
	}

	for _, special := range s.tok.Specials() {
		resp.Specials = append(resp.Specials, api.Special{Literal: special.Literal, Symbol: special.Symbol})
	}

	if c.Query("entries") == "true" {
		for _, e := range s.tok.Vocabulary().Entries() {
			resp.Entries = append(resp.Entries, api.Entry{Symbol: e.Merged, Pair: [2]tokenizer.Symbol{e.Pair.Left, e.Pair.Right}})
		}
	}

	c.JSON(http.StatusOK, resp)
}

// Serve runs the HTTP server on ln until it receives SIGINT or SIGTERM.
func Serve(ln net.Listener, tok *tokenizer.Tokenizer, path string) error {
	slog.Info("server config", "env", envconfig.Values())

	s := New(tok, path)
	srvr := &http.Server{
		Handler: s.GenerateRoutes(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		srvr.Close()
	}()

	slog.Info(fmt.Sprintf("Listening on %s (version %s)", ln.Addr(), version.Version), "vocabulary", path, "size", tok.Size())
	if err := srvr.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
