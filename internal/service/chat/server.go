package chat

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"
	"github.com/kapu/ghostwriter-go/internal/constants"
	"github.com/kapu/ghostwriter-go/internal/domain"
	"github.com/kapu/ghostwriter-go/internal/util"
	"go.uber.org/zap"
)

// Asker answers a question given the conversation so far; *RAG implements it.
type Asker interface {
	Ask(ctx context.Context, history []domain.ChatMessage, question string) (*Answer, error)
}

type ServerConfig struct {
	Addr            string
	AllowedOrigins  []string
	StreamDelay     time.Duration
	MaxHistoryTurns int
	MaxQueryLength  int
}

// Server exposes the chat over a websocket at /ws, one session per connection.
type Server struct {
	cfg      ServerConfig
	asker    Asker
	upgrader websocket.Upgrader
	sleeper  util.Sleeper
	logger   *zap.Logger
}

func NewServer(cfg ServerConfig, asker Asker, logger *zap.Logger) *Server {
	if cfg.MaxHistoryTurns <= 0 {
		cfg.MaxHistoryTurns = constants.WebSocketConfig.MaxHistoryTurns
	}
	if cfg.MaxQueryLength <= 0 {
		cfg.MaxQueryLength = constants.WebSocketConfig.MaxQueryLength
	}

	s := &Server{
		cfg:     cfg,
		asker:   asker,
		sleeper: util.ContextSleeper,
		logger:  logger,
	}
	s.upgrader = websocket.Upgrader{
		HandshakeTimeout: constants.WebSocketConfig.HandshakeTimeout,
		CheckOrigin:      s.checkOrigin,
	}
	return s
}

// WithSleeper replaces the pause between streamed words; used by tests.
func (s *Server) WithSleeper(sleeper util.Sleeper) *Server {
	s.sleeper = sleeper
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: constants.WebSocketConfig.HandshakeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Chat server listening", zap.String("addr", s.cfg.Addr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("Chat server shutting down")
		return httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) || strings.EqualFold(allowed, u.Host) {
			return true
		}
	}
	s.logger.Warn("Rejected websocket origin", zap.String("origin", origin))
	return false
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sess := &session{
		conn:   conn,
		server: s,
		logger: s.logger.With(zap.String("remote", r.RemoteAddr)),
	}
	sess.logger.Info("Chat session opened")
	defer sess.logger.Info("Chat session closed")

	go sess.keepAlive(ctx)
	sess.run(ctx)
}

type session struct {
	conn    *websocket.Conn
	server  *Server
	history []domain.ChatMessage
	logger  *zap.Logger
}

func (s *session) keepAlive(ctx context.Context) {
	ticker := time.NewTicker(constants.WebSocketConfig.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deadline := time.Now().Add(constants.WebSocketConfig.WriteTimeout)
			if err := s.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

func (s *session) run(ctx context.Context) {
	s.conn.SetReadLimit(constants.WebSocketConfig.ReadLimit)
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(constants.WebSocketConfig.PongWait))
	})

	for {
		_ = s.conn.SetReadDeadline(time.Now().Add(constants.WebSocketConfig.PongWait))

		var frame Frame
		if err := s.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("WebSocket read error", zap.Error(err))
			}
			return
		}

		switch frame.Type {
		case FrameReset:
			s.history = nil
			if err := s.write(Frame{Type: FrameDone}); err != nil {
				return
			}
		case FrameQuestion:
			if err := s.answer(ctx, frame.Content); err != nil {
				s.logger.Debug("Stopping session", zap.Error(err))
				return
			}
		default:
			if err := s.write(Frame{Type: FrameError, Error: "unknown frame type"}); err != nil {
				return
			}
		}
	}
}

// answer only returns an error when the connection itself failed.
func (s *session) answer(ctx context.Context, question string) error {
	question = strings.TrimSpace(question)
	if question == "" {
		return s.write(Frame{Type: FrameError, Error: "empty question"})
	}
	if utf8.RuneCountInString(question) > s.server.cfg.MaxQueryLength {
		return s.write(Frame{Type: FrameError, Error: "question too long"})
	}

	answer, err := s.server.asker.Ask(ctx, s.history, question)
	if err != nil {
		s.logger.Error("Failed to answer question", zap.Error(err))
		return s.write(Frame{Type: FrameError, Error: "failed to answer the question"})
	}

	for _, word := range strings.Fields(answer.Text) {
		if err := s.write(Frame{Type: FrameChunk, Content: word + " "}); err != nil {
			return err
		}
		if err := s.server.sleeper.Sleep(ctx, s.server.cfg.StreamDelay); err != nil {
			return err
		}
	}

	s.remember(question, answer.Text)

	return s.write(Frame{
		Type:     FrameDone,
		Content:  answer.Text,
		Sources:  answer.Sources,
		Provider: answer.Provider,
	})
}

func (s *session) remember(question, answer string) {
	s.history = append(s.history,
		domain.ChatMessage{Role: domain.ChatRoleUser, Content: question},
		domain.ChatMessage{Role: domain.ChatRoleAssistant, Content: answer},
	)
	if limit := s.server.cfg.MaxHistoryTurns * 2; len(s.history) > limit {
		s.history = s.history[len(s.history)-limit:]
	}
}

func (s *session) write(frame Frame) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(constants.WebSocketConfig.WriteTimeout))
	return s.conn.WriteJSON(frame)
}
