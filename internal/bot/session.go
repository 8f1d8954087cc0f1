package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	irc "gopkg.in/irc.v4"

	"github.com/bnema/bncbot/internal/config"
	"github.com/bnema/bncbot/internal/domain"
	"github.com/bnema/bncbot/internal/ports"
)

// Session is the connection-scoped core: it owns the correlation registry,
// the lock set, and the durable queue/user state, and routes every incoming
// line through the handler registry. One Session lives exactly as long as
// one connection; a reconnect builds a fresh one.
type Session struct {
	cfg       config.Config
	log       *slog.Logger
	handlers  *Handlers
	sender    ports.Sender
	registry  *Registry
	locks     *LockSet
	store     *Store
	admins    domain.AdminList
	bindHosts domain.BindHostNet

	nickMu sync.RWMutex
	nick   string

	ruleMu        sync.Mutex
	userListRules int

	commands sync.WaitGroup
}

// NewSession wires a session from its collaborators. A nil handlers registry
// gets DefaultHandlers; a nil logger gets slog.Default.
func NewSession(cfg config.Config, repo ports.StateRepository, sender ports.Sender, handlers *Handlers, logger *slog.Logger) (*Session, error) {
	admins, err := domain.NewAdminList(cfg.Admins)
	if err != nil {
		return nil, err
	}
	bindHosts, err := domain.ParseBindHostNet(cfg.BindHostNet)
	if err != nil {
		return nil, err
	}
	if handlers == nil {
		handlers = DefaultHandlers()
	}
	if logger == nil {
		logger = slog.Default()
	}

	store := NewStore(repo)
	if err := store.Load(); err != nil {
		return nil, err
	}

	return &Session{
		cfg:       cfg,
		log:       logger,
		handlers:  handlers,
		sender:    sender,
		registry:  NewRegistry(),
		locks:     NewLockSet(),
		store:     store,
		admins:    admins,
		bindHosts: bindHosts,
		nick:      cfg.Nick,
	}, nil
}

// Store exposes the durable queue/user state.
func (s *Session) Store() *Store {
	return s.store
}

// HandleLine is the single per-line dispatch point. The transport calls it
// once per received line, in arrival order. Reply handlers run inline and
// never block; command handlers are launched onto their own goroutines.
func (s *Session) HandleLine(ctx context.Context, raw string) {
	line, err := irc.ParseMessage(raw)
	if err != nil {
		s.log.Debug("unparseable line", "line", raw, "error", err)
		return
	}

	s.log.Info("[incoming]", "line", raw)

	ev := makeRawEvent(line, s.Nick())
	env := &Env{
		Session: s,
		Raw:     &ev,
		IsAdmin: s.IsAdmin(ev.Mask),
	}
	s.dispatchLine(ctx, env)
}

func (s *Session) launchCommand(ctx context.Context, def *CommandDef, env *Env) {
	s.commands.Add(1)
	go func() {
		defer s.commands.Done()
		s.invoke(ctx, "command "+def.Name, def.Fn, env)
	}()
}

// Drain waits for in-flight command handlers to finish.
func (s *Session) Drain() {
	s.commands.Wait()
}

// await bounds a correlation wait with the configured request timeout and
// releases the label if the wait gives up, so it can be registered again.
func (s *Session) await(ctx context.Context, label string, fut *Future) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	value, err := fut.Wait(ctx)
	if err != nil {
		s.registry.Cancel(label)
		return "", err
	}
	return value, nil
}

// Send writes one line, parts joined with single spaces.
func (s *Session) Send(parts ...string) error {
	if s.sender == nil {
		return errors.New("send on closed connection")
	}
	if err := s.sender.Send(parts...); err != nil {
		return fmt.Errorf("send %q: %w", strings.Join(parts, " "), err)
	}
	return nil
}

// Msg sends chat messages to target.
func (s *Session) Msg(target string, messages ...string) {
	for _, message := range messages {
		if err := s.Send("PRIVMSG", target, ":"+message); err != nil {
			s.log.Error("send failed", "target", target, "error", err)
		}
	}
}

// Notice sends notices to target.
func (s *Session) Notice(target string, messages ...string) {
	for _, message := range messages {
		if err := s.Send("NOTICE", target, ":"+message); err != nil {
			s.log.Error("send failed", "target", target, "error", err)
		}
	}
}

// ModuleMsg addresses a command to one of the relay's pseudo-user modules.
func (s *Session) ModuleMsg(module, command string) {
	s.Msg(s.cfg.StatusPrefix+module, command)
}

// Memo delivers text to recipient through the store-and-forward memo
// service. Fire and forget; there is no reply.
func (s *Session) Memo(recipient, text string) {
	s.Msg(memoServ, fmt.Sprintf("SEND %s %s", recipient, text))
}

// SaveRemoteConfig asks the relay to persist its configuration.
func (s *Session) SaveRemoteConfig() {
	if err := s.Send("znc saveconfig"); err != nil {
		s.log.Error("save remote config failed", "error", err)
	}
}

// ChanLog reports to the operations channel, if one is configured.
func (s *Session) ChanLog(message string) {
	if s.cfg.LogChannel != "" {
		s.Msg(s.cfg.LogChannel, message)
	}
}

// IsAdmin reports whether the sender mask matches the admin allow-list.
func (s *Session) IsAdmin(mask string) bool {
	return s.admins.Match(mask)
}

// Nick returns the bot's current nick, which the server may have changed.
func (s *Session) Nick() string {
	s.nickMu.RLock()
	defer s.nickMu.RUnlock()
	return s.nick
}

func (s *Session) setNick(nick string) {
	s.nickMu.Lock()
	s.nick = nick
	s.nickMu.Unlock()
}

func (s *Session) resetUserListRules() {
	s.ruleMu.Lock()
	s.userListRules = 0
	s.ruleMu.Unlock()
}

func (s *Session) bumpUserListRules() int {
	s.ruleMu.Lock()
	defer s.ruleMu.Unlock()
	s.userListRules++
	return s.userListRules
}

// Start runs the initial resynchronization (when the user table is empty)
// and the periodic one. It returns immediately; the timer goroutine stops
// when ctx is done.
func (s *Session) Start(ctx context.Context) {
	if len(s.store.Users()) == 0 {
		go s.resync(ctx)
	}

	go func() {
		ticker := time.NewTicker(s.cfg.ResyncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.resync(ctx)
			}
		}
	}()
}

// resync runs a bulk resynchronization unless one is already in progress.
func (s *Session) resync(ctx context.Context) {
	ran, err := s.locks.TryWith(lockUserList+"_timer", func() error {
		return s.GetUserHosts(ctx)
	})
	if !ran {
		s.log.Debug("resync already in progress, skipping")
		return
	}
	if err != nil {
		s.log.Error("resync failed", "error", err)
		s.ChanLog(fmt.Sprintf("ERROR: BNC user list resync failed: %v", err))
	}
}

// Shutdown announces the stop to the operations channel. The caller closes
// the transport afterwards; in-flight correlated requests are orphaned, not
// drained.
func (s *Session) Shutdown() {
	s.ChanLog("Bot shutting down...")
}
