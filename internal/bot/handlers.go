package bot

import (
	"context"
	"regexp"
	"strings"
)

// relayHost is the host part of the relay's pseudo-user identities; lines
// from it are administrative replies rather than chat.
const relayHost = "znc.in"

const (
	controlPanelModule = "controlpanel"
	statusModule       = "status"

	nickServ = "NickServ"
	memoServ = "MemoServ"
)

// Correlation labels. A label is registered immediately before the triggering
// request line is sent and resolved by the matching reply handler below.
const (
	labelNSInfo   = "ns_info"
	labelUserList = "user_list"
	labelBindHost = "bindhost"
	labelBNCAdmin = "bncadmin"

	whoisLabelPrefix = "whois"
)

func labelWhoisAcct(nick string) string {
	return "whois_acct_" + nick
}

func onJoin(ctx context.Context, env *Env) error {
	s := env.Session
	ev := env.Raw.Event
	if s.cfg.LogChannel != "" &&
		strings.EqualFold(ev.Chan, s.cfg.LogChannel) &&
		strings.EqualFold(ev.Nick, s.Nick()) {
		s.ChanLog("Bot online.")
	}
	return nil
}

func onPing(ctx context.Context, env *Env) error {
	if len(env.Raw.Params) == 0 {
		return env.Session.Send("PONG")
	}
	payload := env.Raw.Params[len(env.Raw.Params)-1]
	return env.Session.Send("PONG", ":"+payload)
}

func onNick(ctx context.Context, env *Env) error {
	if len(env.Raw.Params) == 0 {
		return nil
	}
	if strings.EqualFold(env.Raw.Nick, env.Session.Nick()) {
		env.Session.setNick(env.Raw.Params[0])
	}
	return nil
}

// onWhoisEnd closes out any identity lookup still open for the nick: a whois
// that ends without an account line means the sender is not identified.
func onWhoisEnd(ctx context.Context, env *Env) error {
	if len(env.Raw.Params) < 2 {
		return nil
	}
	nick := env.Raw.Params[1]
	resolved := env.Session.registry.FulfillMatching(func(label string) bool {
		return strings.HasPrefix(label, whoisLabelPrefix) && strings.HasSuffix(label, nick)
	}, "")
	if resolved > 0 {
		env.Session.log.Debug("resolved dangling whois lookups", "nick", nick, "count", resolved)
	}
	return nil
}

// onWhoisAcct resolves an identity lookup with the verified services account.
func onWhoisAcct(ctx context.Context, env *Env) error {
	params := env.Raw.Params
	if len(params) < 3 || params[len(params)-1] != "is logged in as" {
		return nil
	}
	env.Session.registry.Fulfill(labelWhoisAcct(params[1]), params[2])
	return nil
}

// onNotice watches for the services info reply carrying the registration
// timestamp, e.g. "Registered: May 30 00:53:54 2017 UTC (5 days ago)".
func onNotice(ctx context.Context, env *Env) error {
	if len(env.Raw.Params) == 0 || !strings.EqualFold(env.Raw.Nick, nickServ) {
		return nil
	}
	message := strings.TrimSpace(env.Raw.Params[len(env.Raw.Params)-1])
	field, content, found := strings.Cut(message, ":")
	if !found || field != "Registered" {
		return nil
	}
	if env.Session.registry.Fulfill(labelNSInfo, strings.TrimSpace(content)) {
		env.Session.log.Debug("got registration time from services")
	}
	return nil
}

var (
	// userRowPattern matches one row of the status module's user table:
	// "| username | 3 | 1 |".
	userRowPattern = regexp.MustCompile(`^\|\s*(.+?)\s*\|\s*\d+\s*\|\s*\d+\s*\|$`)
	// tableRulePattern matches the rule lines bracketing that table.
	tableRulePattern = regexp.MustCompile(`^([=+]+|[-+]+)$`)
)

// userListRules is how many rule lines the status module prints around its
// user table (top, header, bottom). The third one terminates the listing.
// Protocol constant for the remote service's exact output format.
const userListRules = 3

// onModuleReply correlates administrative replies from the relay's
// pseudo-users with whatever request is pending for them.
func onModuleReply(ctx context.Context, env *Env) error {
	s := env.Session
	ev := env.Raw.Event
	if len(env.Raw.Params) == 0 || ev.Host != relayHost || !strings.HasPrefix(ev.Nick, s.cfg.StatusPrefix) {
		return nil
	}

	module := ev.Nick[len(s.cfg.StatusPrefix):]
	message := env.Raw.Params[len(env.Raw.Params)-1]

	switch module {
	case statusModule:
		if !s.registry.Pending(labelUserList) {
			return nil
		}
		if m := userRowPattern.FindStringSubmatch(message); m != nil {
			return s.store.StageUser(m[1])
		}
		if tableRulePattern.MatchString(message) && s.bumpUserListRules() == userListRules {
			s.registry.Fulfill(labelUserList, "")
		}
	case controlPanelModule:
		if value, ok := strings.CutPrefix(message, "BindHost = "); ok {
			s.registry.Fulfill(labelBindHost, strings.TrimSpace(value))
		} else if value, ok := strings.CutPrefix(message, "Admin = "); ok {
			s.registry.Fulfill(labelBNCAdmin, strings.TrimSpace(value))
		}
	}
	return nil
}
