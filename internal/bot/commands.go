package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/bnema/bncbot/internal/domain"
)

// CommandDef describes one chat command: canonical name, handler, gating
// policy, and the first documentation line used for usage notices and help.
type CommandDef struct {
	Name string
	Fn   RawHandlerFunc
	// Admin restricts the command to senders matching the admin allow-list.
	// For non-admins a gated command is indistinguishable from an unknown
	// one.
	Admin bool
	// RequireParam makes an empty argument reply with a usage notice.
	RequireParam bool
	Doc          string
}

// outboundLineLimit caps chunked replies so they survive the server's line
// length limit with headroom for the protocol framing.
const outboundLineLimit = 400

// onChatMessage is the command router. It is registered as a PRIVMSG handler
// and recognizes messages that start with the configured prefix character.
func onChatMessage(ctx context.Context, env *Env) error {
	if len(env.Raw.Params) == 0 {
		return nil
	}
	message := env.Raw.Params[len(env.Raw.Params)-1]
	sender := env.Raw.Event

	// Lines from the relay's pseudo-users are replies, not chat.
	if sender.Host == relayHost && strings.HasPrefix(sender.Nick, env.Session.cfg.StatusPrefix) {
		return nil
	}

	prefix := env.Session.cfg.CommandPrefix
	if message == "" || !strings.HasPrefix(message, prefix) {
		return nil
	}

	token, text, _ := strings.Cut(message[len(prefix):], " ")
	text = strings.TrimSpace(text)

	def := env.Session.handlers.Lookup(token)
	if def == nil {
		// Unrecognized input is ordinary chat noise.
		return nil
	}
	if def.Admin && !env.IsAdmin {
		return nil
	}

	cmdEnv := env.withCommand(newCommandEvent(sender, strings.ToLower(token), text, def))
	if def.RequireParam && text == "" {
		noticeUsage(cmdEnv)
		return nil
	}

	// Command handlers may suspend awaiting correlated replies, so they run
	// off the line-intake path.
	env.Session.launchCommand(ctx, def, cmdEnv)
	return nil
}

func noticeUsage(env *Env) {
	prefix := env.Session.cfg.CommandPrefix
	def := env.Cmd.Def
	if def.Doc == "" {
		env.Notice(fmt.Sprintf("%s%s requires additional arguments.", prefix, env.Cmd.Command))
		return
	}
	env.Notice(fmt.Sprintf("%s%s %s", prefix, env.Cmd.Command, def.Doc))
}

func cmdHelp(ctx context.Context, env *Env) error {
	if env.Cmd.Text == "" {
		names := env.Session.handlers.VisibleCommands(env.IsAdmin)
		msg := "Available Commands: " + strings.Join(names, ", ")
		for _, chunk := range chunkMessage(msg, outboundLineLimit) {
			env.Notice(chunk)
		}
		env.Notice("For detailed help about a command, use 'help <command>'")
		return nil
	}

	topic := strings.ToLower(strings.Fields(env.Cmd.Text)[0])
	def := env.Session.handlers.Lookup(topic)
	switch {
	case def == nil || (def.Admin && !env.IsAdmin):
		env.Notice("No such command.")
	case def.Doc == "":
		env.Notice(fmt.Sprintf("Command '%s' has no additional documentation.", topic))
	default:
		env.Notice(fmt.Sprintf("%s %s", topic, def.Doc))
	}
	return nil
}

func cmdAcceptBNC(ctx context.Context, env *Env) error {
	nick := strings.Fields(env.Cmd.Text)[0]
	_, queued, err := env.Session.store.TakeQueue(nick)
	if err != nil {
		return err
	}
	if !queued {
		env.Reply(fmt.Sprintf("%s is not in the BNC queue.", nick))
		return nil
	}

	if err := env.Session.AddUser(ctx, nick); err != nil {
		env.Session.ChanLog(fmt.Sprintf("Error occurred when attempting to add %s to the BNC", nick))
		return nil
	}
	env.Session.ChanLog(fmt.Sprintf("%s has been set with BNC access and memoserved credentials.", nick))
	return nil
}

func cmdDenyBNC(ctx context.Context, env *Env) error {
	nick := strings.Fields(env.Cmd.Text)[0]
	_, queued, err := env.Session.store.TakeQueue(nick)
	if err != nil {
		return err
	}
	if !queued {
		env.Reply(fmt.Sprintf("%s is not in the BNC queue.", nick))
		return nil
	}

	env.Session.Memo(nick, "Your BNC auth could not be added at this time")
	env.Session.ChanLog(fmt.Sprintf("%s has been denied. Memoserv sent.", nick))
	return nil
}

func cmdBNCRefresh(ctx context.Context, env *Env) error {
	env.Reply("Updating user list")
	env.Session.ChanLog(fmt.Sprintf("%s is updating the BNC user list...", env.Cmd.Nick))
	if err := env.Session.GetUserHosts(ctx); err != nil {
		env.Reply("Failed to update the user list, see the log channel for details")
		return err
	}
	env.Session.ChanLog("BNC user list updated.")
	return nil
}

func cmdBNCQueue(ctx context.Context, env *Env) error {
	queue := env.Session.store.Queue()
	if len(queue) == 0 {
		env.Reply("BNC request queue is empty")
		return nil
	}

	names := make([]string, 0, len(queue))
	for name := range queue {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		env.Reply(fmt.Sprintf("BNC Queue: %s Registered %s", name, queue[name]))
	}
	return nil
}

func cmdDelBNC(ctx context.Context, env *Env) error {
	acct := strings.Fields(env.Cmd.Text)[0]
	if !env.Session.store.HasUser(acct) {
		env.Reply(fmt.Sprintf("%s is not a current BNC user", acct))
		return nil
	}

	env.Session.ModuleMsg(controlPanelModule, "deluser "+acct)
	env.Session.SaveRemoteConfig()
	if err := env.Session.store.RemoveUser(acct); err != nil {
		return err
	}
	env.Session.ChanLog(fmt.Sprintf("%s removed BNC: %s", env.Cmd.Nick, acct))
	if env.Cmd.Chan != env.Session.cfg.LogChannel {
		env.Reply("BNC removed")
	}
	return nil
}

func cmdResetPass(ctx context.Context, env *Env) error {
	nick := strings.Fields(env.Cmd.Text)[0]
	if !env.Session.store.HasUser(nick) {
		env.Reply(fmt.Sprintf("%s is not a BNC user.", nick))
		return nil
	}

	passwd, err := domain.GeneratePassword()
	if err != nil {
		return err
	}
	env.Session.ModuleMsg(controlPanelModule, fmt.Sprintf("Set Password %s %s", nick, passwd))
	env.Session.SaveRemoteConfig()
	env.Reply(fmt.Sprintf("BNC password reset for %s", nick))
	env.Session.Memo(nick, "[New Password!] "+credentialText(nick, passwd))
	return nil
}

func cmdAddBNC(ctx context.Context, env *Env) error {
	acct := strings.Fields(env.Cmd.Text)[0]
	if err := env.Session.AddUser(ctx, acct); err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			env.Reply("A BNC account with that name already exists")
			return nil
		}
		env.Session.ChanLog(fmt.Sprintf("Error occurred when attempting to add %s to the BNC", acct))
		return nil
	}
	env.Session.ChanLog(fmt.Sprintf("%s has been set with BNC access and memoserved credentials.", acct))
	return nil
}

func cmdSetAdmin(ctx context.Context, env *Env) error {
	acct := strings.Fields(env.Cmd.Text)[0]
	if !env.Session.store.HasUser(acct) {
		env.Reply(fmt.Sprintf("%s does not exist as a BNC account", acct))
		return nil
	}

	env.Session.ModuleMsg(controlPanelModule, fmt.Sprintf("Set Admin %s true", acct))
	env.Session.SaveRemoteConfig()
	env.Reply(fmt.Sprintf("%s has been set as a BNC admin", acct))
	return nil
}

func cmdGenBindHost(ctx context.Context, env *Env) error {
	host, err := env.Session.GetBindHost()
	if err != nil {
		env.Reply("Unable to generate unique bindhost")
		return nil
	}
	env.Reply(host)
	return nil
}

// chunkMessage splits msg on word boundaries into pieces no longer than
// limit. A single word longer than the limit becomes its own piece.
func chunkMessage(msg string, limit int) []string {
	if len(msg) <= limit {
		return []string{msg}
	}

	var chunks []string
	var current strings.Builder
	for _, word := range strings.Fields(msg) {
		switch {
		case current.Len() == 0:
			current.WriteString(word)
		case current.Len()+1+len(word) <= limit:
			current.WriteByte(' ')
			current.WriteString(word)
		default:
			chunks = append(chunks, current.String())
			current.Reset()
			current.WriteString(word)
		}
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// DefaultHandlers builds the full handler registry: reply correlators, the
// command router, and every chat command.
func DefaultHandlers() *Handlers {
	h := NewHandlers()

	h.Raw("on_join", onJoin, "JOIN")
	h.Raw("on_ping", onPing, "PING")
	h.Raw("on_nick", onNick, "NICK")
	h.Raw("on_whois_end", onWhoisEnd, "318")
	h.Raw("on_whois_acct", onWhoisAcct, "330")
	h.Raw("on_notice", onNotice, "NOTICE")
	h.Raw("on_module_reply", onModuleReply, "PRIVMSG")
	h.Raw("on_chat_message", onChatMessage, "PRIVMSG")

	h.Command(CommandDef{
		Name: "help",
		Fn:   cmdHelp,
		Doc:  "[command] - Display help for [command] or list all commands if none is specified",
	})
	h.Command(CommandDef{
		Name: "requestbnc",
		Fn:   cmdRequestBNC,
		Doc:  "- Submits a request for a BNC account",
	}, "bncrequest")
	h.Command(CommandDef{
		Name:         "acceptbnc",
		Fn:           cmdAcceptBNC,
		Admin:        true,
		RequireParam: true,
		Doc:          "<user> - Accepts [user]'s BNC request and sends their login info via a MemoServ memo",
	})
	h.Command(CommandDef{
		Name:         "denybnc",
		Fn:           cmdDenyBNC,
		Admin:        true,
		RequireParam: true,
		Doc:          "<user> - Deny [user]'s BNC request",
	})
	h.Command(CommandDef{
		Name:  "bncrefresh",
		Fn:    cmdBNCRefresh,
		Admin: true,
		Doc:   "- Refresh BNC account data (Warning: operation is slow)",
	})
	h.Command(CommandDef{
		Name:  "bncqueue",
		Fn:    cmdBNCQueue,
		Admin: true,
		Doc:   "- View the current BNC queue",
	}, "bncq")
	h.Command(CommandDef{
		Name:         "delbnc",
		Fn:           cmdDelBNC,
		Admin:        true,
		RequireParam: true,
		Doc:          "<user> - Delete [user]'s BNC account",
	})
	h.Command(CommandDef{
		Name:         "bncresetpass",
		Fn:           cmdResetPass,
		Admin:        true,
		RequireParam: true,
		Doc:          "<user> - Resets [user]'s BNC account password and sends them the new info in a MemoServ memo",
	})
	h.Command(CommandDef{
		Name:         "addbnc",
		Fn:           cmdAddBNC,
		Admin:        true,
		RequireParam: true,
		Doc:          "<user> - Add a BNC account for [user] and MemoServ [user] the login credentials",
	}, "bncadd")
	h.Command(CommandDef{
		Name:         "bncsetadmin",
		Fn:           cmdSetAdmin,
		Admin:        true,
		RequireParam: true,
		Doc:          "<user> - Makes [user] a BNC admin",
	})
	h.Command(CommandDef{
		Name:  "genbindhost",
		Fn:    cmdGenBindHost,
		Admin: true,
		Doc:   "- Generate a unique bind host and return it",
	})

	return h
}
