package ws

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"homecraft.ai/internal/protocol"
	"homecraft.ai/internal/sim/home"
	homespkg "homecraft.ai/internal/sim/homes"
	sessionspkg "homecraft.ai/internal/sim/sessions"
)

type Config struct {
	QueueSize         int
	RequestsPerSecond float64
	Burst             int
	// RequestTimeout bounds one dispatched request, including the wait for the instance.
	RequestTimeout time.Duration
	Digests        protocol.CatalogDigests
	// Accounts opens a wallet for accounts seen for the first time. Optional.
	Accounts interface{ OpenAccount(account int64) bool }
}

type Server struct {
	cfg      Config
	homes    *homespkg.Manager
	sessions *sessionspkg.Registry
	log      *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(cfg Config, homes *homespkg.Manager, sessions *sessionspkg.Registry, logger *log.Logger) *Server {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 3 * time.Second
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Server{
		cfg:      cfg,
		homes:    homes,
		sessions: sessions,
		log:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		sess := s.handshake(ctx, conn, cancel)
		if sess == nil {
			return
		}
		defer func() {
			s.homes.Leave(sess.ID)
			s.sessions.Unregister(sess.ID)
		}()

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.writeLoop(ctx, conn, sess, cancel)
		}()

		var limiter *rate.Limiter
		if s.cfg.RequestsPerSecond > 0 {
			limiter = rate.NewLimiter(rate.Limit(s.cfg.RequestsPerSecond), max(s.cfg.Burst, 1))
		}

		go func() {
			<-ctx.Done()
			// unblocks ReadMessage when the writer or an overflow ends the session
			_ = conn.SetReadDeadline(time.Now())
		}()

		for ctx.Err() == nil {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil || base.Type != protocol.TypeRequest {
				s.sessions.Send(sess.ID, protocol.NewError("", protocol.ErrProtoBadRequest, "expected REQ"))
				continue
			}
			// decoded first so schema errors can echo the request id
			req, derr := protocol.DecodeRequest(msg)
			if err := protocol.Validate(protocol.TypeRequest, msg); err != nil {
				s.sessions.Send(sess.ID, protocol.NewError(req.ID, protocol.ErrProtoBadRequest, err.Error()))
				continue
			}
			if derr != nil {
				s.sessions.Send(sess.ID, protocol.NewError("", protocol.ErrProtoBadRequest, derr.Error()))
				continue
			}
			if req.ProtocolVersion != protocol.Version {
				s.sessions.Send(sess.ID, protocol.NewError(req.ID, protocol.ErrProtoBadRequest, "bad protocol_version"))
				continue
			}
			if limiter != nil && !limiter.Allow() {
				s.sessions.Send(sess.ID, protocol.NewError(req.ID, protocol.ErrRateLimit, "slow down"))
				continue
			}
			rctx, rcancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
			err = s.dispatch(rctx, sess, req)
			rcancel()
			if err != nil {
				s.fail(sess, req, err)
			}
		}
		cancel()
		wg.Wait()
	}
}

// handshake reads HELLO, registers the session and places it on its first map. The
// WELCOME is written before the writer starts so it always precedes the snapshot.
func (s *Server) handshake(ctx context.Context, conn *websocket.Conn, cancel context.CancelFunc) *sessionspkg.Session {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, websocket.ClosePolicyViolation, "expected HELLO")
		return nil
	}
	if err := protocol.Validate(protocol.TypeHello, msg); err != nil {
		closeWith(conn, websocket.ClosePolicyViolation, "bad HELLO")
		return nil
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return nil
	}
	if hello.ProtocolVersion != protocol.Version {
		closeWith(conn, websocket.ClosePolicyViolation, "bad protocol_version")
		return nil
	}

	sess := &sessionspkg.Session{
		ID:         sessionspkg.NewSessionID(),
		AccountID:  hello.AccountID,
		Name:       hello.CharacterName,
		Out:        make(chan []byte, s.cfg.QueueSize),
		OnOverflow: cancel,
	}
	if err := s.sessions.Register(sess); err != nil {
		closeWith(conn, websocket.ClosePolicyViolation, err.Error())
		return nil
	}

	if s.cfg.Accounts != nil && s.cfg.Accounts.OpenAccount(sess.AccountID) {
		s.log.Printf("opened wallet for account %d", sess.AccountID)
	}
	s.homes.EnsureHome(sess.AccountID, sess.Name)
	rctx, rcancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	inst, err := s.homes.Resume(rctx, sess.Ref(), hello.MapID)
	rcancel()
	if err != nil {
		s.log.Printf("resume %s (account %d): %v", sess.ID, sess.AccountID, err)
		s.sessions.Unregister(sess.ID)
		closeWith(conn, websocket.CloseInternalServerErr, "no map to enter")
		return nil
	}

	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sess.ID,
		AccountID:       sess.AccountID,
		MapID:           inst.MapID(),
		Catalogs:        s.cfg.Digests,
	}
	if err := writeJSON(conn, welcome); err != nil {
		s.homes.Leave(sess.ID)
		s.sessions.Unregister(sess.ID)
		return nil
	}
	return sess
}

func (s *Server) writeLoop(ctx context.Context, conn *websocket.Conn, sess *sessionspkg.Session, cancel context.CancelFunc) {
	for {
		select {
		case <-ctx.Done():
			return
		case b := <-sess.Out:
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				cancel()
				return
			}
		}
	}
}

// fail reports errors the engine has not already sent to the requester.
func (s *Server) fail(sess *sessionspkg.Session, req protocol.RequestMsg, err error) {
	var code string
	switch {
	case errors.Is(err, errBadRequest):
		code = protocol.ErrProtoBadRequest
	case errors.Is(err, homespkg.ErrMapUnknown):
		code = protocol.ErrMapUnknown
	case errors.Is(err, homespkg.ErrNoHome), errors.Is(err, errNoCharacter):
		code = protocol.ErrCharacterNotFound
	case errors.Is(err, homespkg.ErrNoSession), errors.Is(err, errNotPlaced):
		code = protocol.ErrNotInHome
	case errors.Is(err, home.ErrClosed), errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		s.log.Printf("%s %s: %v", sess.ID, req.Op, err)
		code = protocol.ErrInternal
	default:
		// replied by the instance
		return
	}
	s.sessions.Send(sess.ID, protocol.NewError(req.ID, code, err.Error()))
}

func closeWith(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
