package bot

import (
	"strings"

	irc "gopkg.in/irc.v4"
)

// Event carries the sender identity shared by every per-line record.
type Event struct {
	Nick string
	User string
	Host string
	// Mask is the full sender prefix, "nick!user@host".
	Mask string
	// Chan is the conversation target, when the verb carries one. For lines
	// addressed to the bot itself it is rewritten to the sender's nick so
	// replies to Chan always land in the right conversation.
	Chan string
}

// RawEvent is the immutable per-line record produced by the line router.
type RawEvent struct {
	Event
	Line    *irc.Message
	Command string
	Params  []string
}

// CommandEvent is a RawEvent-derived record for a recognized chat command.
type CommandEvent struct {
	Event
	Command string
	Text    string
	Def     *CommandDef
}

func newCommandEvent(base Event, name, text string, def *CommandDef) CommandEvent {
	return CommandEvent{Event: base, Command: name, Text: text, Def: def}
}

// chanParamVerbs names the verbs whose first parameter is a conversation
// target.
var chanParamVerbs = map[string]bool{
	"PRIVMSG": true,
	"NOTICE":  true,
	"JOIN":    true,
	"PART":    true,
}

// makeRawEvent builds the per-line record. ownNick is the bot's current nick,
// used to rewrite private-message targets to the sender.
func makeRawEvent(line *irc.Message, ownNick string) RawEvent {
	var base Event
	if line.Prefix != nil {
		base.Nick = line.Prefix.Name
		base.User = line.Prefix.User
		base.Host = line.Prefix.Host
		base.Mask = line.Prefix.String()
	}

	if chanParamVerbs[line.Command] && len(line.Params) > 0 {
		target := line.Params[0]
		if strings.EqualFold(target, ownNick) {
			target = base.Nick
		}
		base.Chan = target
	}

	return RawEvent{
		Event:   base,
		Line:    line,
		Command: line.Command,
		Params:  line.Params,
	}
}

// Env is the typed context record handed to every handler. It replaces the
// original design's reflective parameter injection: the dispatch engine
// builds one Env per event and each handler reads the fields it needs.
type Env struct {
	Session *Session
	Raw     *RawEvent
	// Cmd is set only for command dispatches.
	Cmd     *CommandEvent
	IsAdmin bool
}

// Sender returns the identity fields for the event being handled.
func (e *Env) Sender() Event {
	if e.Cmd != nil {
		return e.Cmd.Event
	}
	return e.Raw.Event
}

// Reply messages the conversation the event arrived in.
func (e *Env) Reply(messages ...string) {
	e.Session.Msg(e.Sender().Chan, messages...)
}

// ReplyTo messages an explicit target.
func (e *Env) ReplyTo(target string, messages ...string) {
	e.Session.Msg(target, messages...)
}

// Notice sends notices to the event's sender.
func (e *Env) Notice(messages ...string) {
	e.Session.Notice(e.Sender().Nick, messages...)
}

// withCommand derives the Env used for a command handler invocation.
func (e *Env) withCommand(cmd CommandEvent) *Env {
	return &Env{
		Session: e.Session,
		Raw:     e.Raw,
		Cmd:     &cmd,
		IsAdmin: e.IsAdmin,
	}
}
