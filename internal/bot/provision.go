package bot

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bnema/bncbot/internal/domain"
)

// bindHostAttempts bounds the random draws before allocation reports the
// range as exhausted.
const bindHostAttempts = 50

// remoteNetwork is the network name the freshly provisioned account is told
// to reconnect to.
const remoteNetwork = "Snoonet"

// cloneTemplateUser is the remote account every new user is cloned from.
const cloneTemplateUser = "BNCClient"

const (
	lockNSInfo    = labelNSInfo
	lockBNCAdmin  = "controlpanel_bncadmin"
	lockUserList  = labelUserList
	lockProvision = "provision"
)

func credentialText(username, password string) string {
	return fmt.Sprintf(
		"Your BNC auth is Username: %s Password: %s (Ports: 5457 for SSL - 5456 for NON-SSL) "+
			"Help: /server bnc.snoonet.org 5456 and /PASS %s:%s",
		username, password, username, password,
	)
}

const genericFailure = "Something went wrong, please try again later"

// cmdRequestBNC drives the user-facing half of the provisioning state
// machine: identity lookup, duplicate checks, registration-time lookup,
// queue admission.
func cmdRequestBNC(ctx context.Context, env *Env) error {
	s := env.Session
	nick := env.Cmd.Nick

	fut, err := s.registry.Register(labelWhoisAcct(nick))
	if err != nil {
		env.ReplyTo(nick, "A BNC request for your nick is already in progress.")
		return nil
	}
	if err := s.Send("WHOIS", nick); err != nil {
		s.registry.Cancel(labelWhoisAcct(nick))
		return err
	}
	acct, err := s.await(ctx, labelWhoisAcct(nick), fut)
	if err != nil {
		env.ReplyTo(nick, genericFailure)
		s.ChanLog(fmt.Sprintf("ERROR: identity lookup for %s failed: %v", nick, err))
		return nil
	}
	if acct == "" {
		env.ReplyTo(nick, "You must be identified with services to request a BNC account")
		return nil
	}

	s.log.Info("verified account identity", "nick", nick, "account", acct)

	username := string(domain.SanitizeUsername(acct))
	if s.store.HasUser(username) {
		env.ReplyTo(nick, "It appears you already have a BNC account. If this is in error, please contact staff in #help")
		return nil
	}
	if _, queued := s.store.QueueEntry(acct); queued {
		env.ReplyTo(nick, "It appears you have already submitted a BNC request. If this is in error, please contact staff in #help")
		return nil
	}

	// The services info reply is not self-identifying, so only one
	// registration-time query may be in flight at a time.
	var registeredTime string
	err = s.locks.With(lockNSInfo, func() error {
		s.log.Debug("registration time lock acquired", "account", acct)
		fut, err := s.registry.Register(labelNSInfo)
		if err != nil {
			return err
		}
		s.Msg(nickServ, "INFO "+acct)
		registeredTime, err = s.await(ctx, labelNSInfo, fut)
		return err
	})
	if err != nil {
		env.ReplyTo(nick, genericFailure)
		s.ChanLog(fmt.Sprintf("ERROR: registration time lookup for %s failed: %v", acct, err))
		return nil
	}

	if err := s.store.AddQueue(acct, registeredTime); err != nil {
		return err
	}
	env.ReplyTo(nick, "BNC request submitted.")
	s.ChanLog(fmt.Sprintf("%s added to bnc queue. Registered %s", acct, registeredTime))
	return nil
}

// AddUser provisions a BNC account: allocates a bind host, issues the fixed
// account-creation sequence to the control panel, memos the credentials, and
// records the user. A bind host allocation failure aborts before any remote
// mutation is sent.
func (s *Session) AddUser(ctx context.Context, nick string) error {
	username := nick
	if !domain.IsUsernameValid(nick) {
		username = string(domain.SanitizeUsername(nick))
		s.ChanLog(fmt.Sprintf("WARNING: Invalid username '%s'; sanitizing to %s", nick, username))
	}

	password, err := domain.GeneratePassword()
	if err != nil {
		return err
	}

	// One provisioning at a time: the allocate-then-record sequence below
	// must not interleave with another allocation's in-use check, and the
	// existence check must happen under the same lock so two concurrent
	// additions of one name cannot both proceed.
	return s.locks.With(lockProvision, func() error {
		if s.store.HasUser(username) {
			return domain.ErrUserExists
		}

		host, err := s.GetBindHost()
		if err != nil {
			return err
		}

		s.ModuleMsg(controlPanelModule, fmt.Sprintf("cloneuser %s %s", cloneTemplateUser, username))
		s.ModuleMsg(controlPanelModule, fmt.Sprintf("Set Password %s %s", username, password))
		s.ModuleMsg(controlPanelModule, fmt.Sprintf("Set BindHost %s %s", username, host))
		s.ModuleMsg(controlPanelModule, fmt.Sprintf("Set Nick %s %s", username, nick))
		s.ModuleMsg(controlPanelModule, fmt.Sprintf("Set AltNick %s %s_", username, nick))
		s.ModuleMsg(controlPanelModule, fmt.Sprintf("Set Ident %s %s", username, nick))
		s.ModuleMsg(controlPanelModule, fmt.Sprintf("Set Realname %s %s", username, nick))
		s.SaveRemoteConfig()
		s.ModuleMsg(controlPanelModule, fmt.Sprintf("reconnect %s %s", username, remoteNetwork))
		s.Memo(nick, credentialText(username, password))

		return s.store.SetUser(username, host)
	})
}

// GetBindHost draws random addresses from the configured range until one is
// unassigned, giving up after bindHostAttempts draws. Exhaustion is reported
// to the operations channel and returned as a distinct error.
func (s *Session) GetBindHost() (string, error) {
	for range bindHostAttempts {
		host := s.bindHosts.Random().String()
		if !s.store.BindHostInUse(host) {
			return host, nil
		}
	}
	s.ChanLog("ERROR: bind host allocation hit the collision limit")
	return "", domain.ErrBindHostExhausted
}

// IsBNCAdmin asks the control panel whether the account has the admin flag.
// Serialized: the "Admin = ..." reply names no account.
func (s *Session) IsBNCAdmin(ctx context.Context, name string) (bool, error) {
	var value string
	err := s.locks.With(lockBNCAdmin, func() error {
		fut, err := s.registry.Register(labelBNCAdmin)
		if err != nil {
			return err
		}
		s.ModuleMsg(controlPanelModule, "Get Admin "+name)
		value, err = s.await(ctx, labelBNCAdmin, fut)
		return err
	})
	if err != nil {
		return false, err
	}
	return value == "true", nil
}

// GetUserHosts resynchronizes the local user table against the remote
// service: list all users, then query each one's bind host serially, then
// warn about addresses shared by more than one account. The user-list lock
// also keeps the periodic timer from overlapping a manual refresh.
func (s *Session) GetUserHosts(ctx context.Context) error {
	return s.locks.With(lockUserList, func() error {
		s.resetUserListRules()

		fut, err := s.registry.Register(labelUserList)
		if err != nil {
			return err
		}
		if err := s.store.ResetUsers(); err != nil {
			return err
		}
		if err := s.Send("znc listusers"); err != nil {
			return err
		}
		if _, err := s.await(ctx, labelUserList, fut); err != nil {
			return fmt.Errorf("list users: %w", err)
		}

		users := s.store.Users()
		names := make([]string, 0, len(users))
		for name := range users {
			names = append(names, name)
		}
		sort.Strings(names)

		// One bind host query at a time; the loop itself serializes, so no
		// named lock is needed here.
		for _, name := range names {
			fut, err := s.registry.Register(labelBindHost)
			if err != nil {
				return err
			}
			s.ModuleMsg(controlPanelModule, "Get BindHost "+name)
			host, err := s.await(ctx, labelBindHost, fut)
			if err != nil {
				return fmt.Errorf("get bind host for %s: %w", name, err)
			}
			if err := s.store.SetUser(name, host); err != nil {
				return err
			}
		}

		if err := s.store.Load(); err != nil {
			return err
		}
		s.reportDuplicateBindHosts()
		return nil
	})
}

func (s *Session) reportDuplicateBindHosts() {
	byHost := map[string][]string{}
	for user, host := range s.store.Users() {
		if host != "" {
			byHost[host] = append(byHost[host], user)
		}
	}

	var dupes []string
	for host, users := range byHost {
		if len(users) > 1 {
			sort.Strings(users)
			dupes = append(dupes, fmt.Sprintf("%s: %s", host, strings.Join(users, ", ")))
		}
	}
	if len(dupes) > 0 {
		sort.Strings(dupes)
		s.ChanLog("WARNING: Duplicate BindHosts found: " + strings.Join(dupes, "; "))
	}
}
