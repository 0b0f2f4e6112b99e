package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/zeusync/planar/internal/core/events/bus"
	"github.com/zeusync/planar/internal/core/models"
	"github.com/zeusync/planar/internal/core/observability/log"
	"github.com/zeusync/planar/internal/core/scene"
	"github.com/zeusync/planar/internal/core/storage"
	"github.com/zeusync/planar/internal/core/storage/interfaces"
)

// Server hosts a scene over websockets. A single loop goroutine owns the
// scene: client commands are queued to it and a ticker drives Scene.Tick.
type Server struct {
	scene *scene.Scene

	httpServer *http.Server
	listener   net.Listener
	upgrader   websocket.Upgrader

	// Client management
	clients     sync.Map // map[string]*ClientSession
	clientCount int64    // atomic

	requests   chan request
	commitSub  bus.Subscription
	persistSub bus.Subscription
	observer   *busObserver

	texts interfaces.TextBoxStore

	// Server state
	running int32 // atomic bool
	closed  int32 // atomic bool

	config Config
	logger log.Log

	group    *errgroup.Group
	cancel   context.CancelFunc
	stopChan chan struct{}
}

// Config holds server configuration
type Config struct {
	ListenAddr string
	MaxClients int

	TickInterval time.Duration
	WriteTimeout time.Duration
	ReadLimit    int64
	SendBuffer   int
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() Config {
	return Config{
		ListenAddr:   "127.0.0.1:8080",
		MaxClients:   64,
		TickInterval: 16 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
		ReadLimit:    64 * 1024,
		SendBuffer:   64,
	}
}

func (c Config) Validate() error {
	switch {
	case c.ListenAddr == "":
		return fmt.Errorf("%w: empty listen address", ErrInvalidConfig)
	case c.TickInterval <= 0:
		return fmt.Errorf("%w: tick interval must be positive", ErrInvalidConfig)
	case c.WriteTimeout <= 0:
		return fmt.Errorf("%w: write timeout must be positive", ErrInvalidConfig)
	}
	return nil
}

// request is a unit of work for the scene loop. Replies go to reply when set
// and to the session otherwise.
type request struct {
	session *ClientSession
	cmd     Command
	reply   chan Message
	leave   bool
}

// NewServer creates a server for sc. The server takes ownership of sc: once
// started, sc must only be touched through the server. texts may be nil, in
// which case text box commands fail.
func NewServer(config Config, sc *scene.Scene, texts interfaces.TextBoxStore, logger log.Log) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	def := DefaultServerConfig()
	if config.ReadLimit <= 0 {
		config.ReadLimit = def.ReadLimit
	}
	if config.SendBuffer <= 0 {
		config.SendBuffer = def.SendBuffer
	}
	if config.MaxClients <= 0 {
		config.MaxClients = def.MaxClients
	}
	if logger == nil {
		logger = log.Nop()
	}

	server := &Server{
		scene:    sc,
		texts:    texts,
		config:   config,
		logger:   logger.With(log.String("component", "server")),
		requests: make(chan request, config.SendBuffer),
		stopChan: make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}

	server.observer = &busObserver{logger: server.logger}

	server.logger.Info("Server created",
		log.String("listen_addr", config.ListenAddr),
		log.Duration("tick_interval", config.TickInterval))

	return server, nil
}

// Start listens on the configured address and starts the scene loop.
// A stopped server cannot be started again.
func (s *Server) Start(ctx context.Context) error {
	if atomic.LoadInt32(&s.closed) == 1 {
		return ErrServerClosed
	}
	if !atomic.CompareAndSwapInt32(&s.running, 0, 1) {
		return ErrServerAlreadyRunning
	}

	ln, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		atomic.StoreInt32(&s.running, 0)
		s.logger.Error("Failed to create listener", log.Error(err))
		return fmt.Errorf("%w: %v", ErrListenerFailed, err)
	}
	s.listener = ln

	s.commitSub, err = s.scene.OnCommit(s.broadcastCommit)
	if err == nil {
		s.persistSub, err = s.scene.Events().SubscribeTopic(storage.TopicStorage, storage.EventPersistFailed, s.broadcastPersistFailure)
	}
	if err != nil {
		if s.commitSub != nil {
			_ = s.commitSub.Cancel()
		}
		_ = ln.Close()
		atomic.StoreInt32(&s.running, 0)
		return err
	}
	s.scene.Events().AddObserver(s.observer)

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.config.WriteTimeout,
	}

	loopCtx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(loopCtx)
	g.Go(func() error { return s.run(gctx) })
	g.Go(func() error {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	s.group, s.cancel = g, cancel

	s.logger.Info("Server listening", log.String("addr", ln.Addr().String()))
	return nil
}

// Addr is the bound listen address, valid after Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop closes the listener, disconnects every client and waits for the scene
// loop to exit.
func (s *Server) Stop(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.running, 1, 0) {
		return ErrServerNotRunning
	}
	atomic.StoreInt32(&s.closed, 1)

	s.logger.Info("Stopping server")
	close(s.stopChan)

	err := s.httpServer.Shutdown(ctx)

	// Shutdown does not track hijacked websocket connections.
	s.clients.Range(func(_, value any) bool {
		if session, ok := value.(*ClientSession); ok {
			session.close()
		}
		return true
	})

	s.cancel()
	err = errors.Join(err, s.group.Wait())
	err = errors.Join(err, s.commitSub.Cancel(), s.persistSub.Cancel())
	s.scene.Events().RemoveObserver(s.observer)

	s.logger.Info("Server stopped")
	return err
}

// Wait blocks until the server stops and returns the first loop or serve
// error.
func (s *Server) Wait() error {
	if s.group == nil {
		return ErrServerNotRunning
	}
	return s.group.Wait()
}

func (s *Server) submit(req request) bool {
	select {
	case s.requests <- req:
		return true
	case <-s.stopChan:
		return false
	}
}

// run is the scene loop. It is the only goroutine that touches the scene.
func (s *Server) run(ctx context.Context) error {
	ticker := time.NewTicker(s.config.TickInterval)
	defer ticker.Stop()

	s.logger.Debug("Scene loop started")
	defer s.logger.Debug("Scene loop stopped")

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-s.requests:
			s.handleRequest(req)
		case now := <-ticker.C:
			s.tick(now.Sub(last))
			last = now
		}
	}
}

func (s *Server) tick(dt time.Duration) {
	if _, err := s.scene.Tick(dt); err != nil {
		s.logger.Warn("Tick failed", log.Error(err))
	}
}

func (s *Server) handleRequest(req request) {
	if req.leave {
		s.releaseSession(req.session)
		return
	}

	var selected models.BodyID
	if req.session != nil {
		selected = req.session.selected
	}
	msg, ok := s.handleCommand(req.session, req.cmd, selected)
	if !ok {
		return
	}
	if req.reply != nil {
		req.reply <- msg
		return
	}
	s.sendTo(req.session, msg)
}

// handleCommand applies cmd to the scene. Queued proposals produce no reply;
// their commits are broadcast when the next tick resolves them.
func (s *Server) handleCommand(session *ClientSession, cmd Command, selected models.BodyID) (Message, bool) {
	id := cmd.Body
	if id == "" {
		id = selected
	}
	if id == "" && cmd.Action != ActionState {
		return errorMessage(s.scene.Frame(), ErrNoBodySelected), true
	}

	var err error
	switch cmd.Action {
	case ActionState:
	case ActionSelect:
		if _, err = s.scene.Body(id); err == nil && session != nil {
			session.selected = id
			selected = id
		}
	case ActionDragStart:
		pointer, hit := cmd.pointer()
		if err = s.scene.BeginDrag(id, pointer, hit); err == nil && session != nil {
			session.dragging = id
		}
	case ActionDrag:
		pointer, hit := cmd.pointer()
		var body *scene.Body
		if body, err = s.scene.Body(id); err == nil && body.DragPhase() != scene.Dragging {
			err = scene.ErrNotDragging
		}
		if err == nil {
			if !hit {
				return Message{}, false
			}
			if err = s.scene.Propose(scene.Proposal{Body: id, Kind: scene.ProposeTranslation, Position: pointer}); err == nil {
				return Message{}, false
			}
		}
	case ActionDragEnd:
		err = s.endDrag(id)
		if err == nil && session != nil && session.dragging == id {
			session.dragging = ""
		}
	case ActionRotate:
		if err = s.scene.Propose(scene.Proposal{Body: id, Kind: scene.ProposeRotation, YawDeg: cmd.Yaw}); err == nil {
			return Message{}, false
		}
	case ActionNudge:
		_, err = s.scene.Nudge(id, cmd.Delta)
	case ActionSnap:
		_, err = s.scene.Snap(id, cmd.Yaw)
	default:
		err = fmt.Errorf("%w: unknown action %q", ErrInvalidMessage, cmd.Action)
	}

	if err != nil {
		return errorMessage(s.scene.Frame(), err), true
	}
	return stateMessage(s.scene, selected), true
}

// endDrag resolves a still queued drag frame before releasing the body.
func (s *Server) endDrag(id models.BodyID) error {
	if s.scene.Pending(id) {
		s.tick(0)
	}
	_, err := s.scene.EndDrag(id)
	return err
}

// releaseSession ends a drag the departing client left open.
func (s *Server) releaseSession(session *ClientSession) {
	if session == nil || session.dragging == "" {
		return
	}
	if err := s.endDrag(session.dragging); err != nil && !errors.Is(err, scene.ErrNotDragging) {
		s.logger.Warn("Failed to release drag of departed client",
			log.String("client_id", session.ID),
			log.String("body", session.dragging.String()),
			log.Error(err))
	}
	session.dragging = ""
}

func (s *Server) broadcastCommit(ev scene.CommitEvent) {
	s.broadcast(commitMessage(ev))
}

// broadcastPersistFailure runs on the persister's goroutine.
func (s *Server) broadcastPersistFailure(ev bus.Event) error {
	f, ok := ev.Data().(storage.PersistFailure)
	if !ok {
		return nil
	}
	s.broadcast(noticeMessage(fmt.Sprintf("pose of %s not saved: %v", f.Body, f.Err)))
	return nil
}
