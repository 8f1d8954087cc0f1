package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeUsername(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want Username
	}{
		{name: "already clean", in: "foo", want: "foo"},
		{name: "uppercase", in: "FooBar", want: "foobar"},
		{name: "spaces and punctuation", in: "Foo Bar!", want: "foo_bar_"},
		{name: "allowed specials", in: "a_b-c", want: "a_b-c"},
		{name: "truncated", in: strings.Repeat("a", 40), want: Username(strings.Repeat("a", 32))},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SanitizeUsername(tc.in))
		})
	}
}

func TestSanitizeUsernameIdempotent(t *testing.T) {
	once := SanitizeUsername("Foo Bar!")
	twice := SanitizeUsername(string(once))
	assert.Equal(t, once, twice)
}

func TestIsUsernameValid(t *testing.T) {
	assert.True(t, IsUsernameValid("alice_01"))
	assert.False(t, IsUsernameValid("Alice"))
	assert.False(t, IsUsernameValid("foo bar"))
	assert.False(t, IsUsernameValid(""))
}

func TestGeneratePassword(t *testing.T) {
	seen := map[string]bool{}
	for range 8 {
		password, err := GeneratePassword()
		require.NoError(t, err)
		assert.Len(t, password, 16)
		for _, r := range password {
			assert.Contains(t, passwordAlphabet, string(r))
		}
		assert.False(t, seen[password], "password repeated")
		seen[password] = true
	}
}

func TestAdminListMatch(t *testing.T) {
	list, err := NewAdminList([]string{"*!*@snoonet/staff/*", "*!*@snoonet/manager/*"})
	require.NoError(t, err)

	assert.True(t, list.Match("alice!ali@snoonet/staff/alice"))
	assert.True(t, list.Match("Bob!bob@Snoonet/Manager/bob"))
	assert.False(t, list.Match("mallory!mal@user/mallory"))
	assert.False(t, list.Match(""))
}

func TestAdminListMatchEmptyListDeniesAll(t *testing.T) {
	list, err := NewAdminList(nil)
	require.NoError(t, err)
	assert.False(t, list.Match("alice!ali@snoonet/staff/alice"))
}

func TestParseBindHostNet(t *testing.T) {
	net, err := ParseBindHostNet("127.0.0.0/16")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.0/16", net.String())
	assert.Equal(t, uint64(1<<16-2), net.Size())

	_, err = ParseBindHostNet("not-a-cidr")
	require.Error(t, err)
}

func TestBindHostNetRandomStaysInRange(t *testing.T) {
	net, err := ParseBindHostNet("127.1.0.0/30")
	require.NoError(t, err)
	require.Equal(t, uint64(2), net.Size())

	for range 64 {
		addr := net.Random().String()
		assert.Contains(t, []string{"127.1.0.1", "127.1.0.2"}, addr)
	}
}

func TestBindHostNetSlash31HasNoEdgeExclusion(t *testing.T) {
	net, err := ParseBindHostNet("10.0.0.0/31")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), net.Size())
}

func TestStateClone(t *testing.T) {
	state := NewState()
	state.Queue["alice"] = "May 30 00:53:54 2017 UTC"
	state.Users["bob"] = "127.0.0.5"

	clone := state.Clone()
	clone.Queue["alice"] = "changed"
	clone.Users["carol"] = "127.0.0.9"

	assert.Equal(t, "May 30 00:53:54 2017 UTC", state.Queue["alice"])
	assert.NotContains(t, state.Users, "carol")
}
