package p2p

import (
	"net/netip"
	"testing"

	"github.com/libp2p/go-libp2p/core/network"
	"github.com/multiformats/go-multiaddr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mezonai/dosguard/security/banscore"
)

type connAddrs struct {
	local, remote multiaddr.Multiaddr
}

func (c connAddrs) LocalMultiaddr() multiaddr.Multiaddr  { return c.local }
func (c connAddrs) RemoteMultiaddr() multiaddr.Multiaddr { return c.remote }

// upgradedConn only answers RemoteMultiaddr, which is all the gater reads
type upgradedConn struct {
	network.Conn
	remote multiaddr.Multiaddr
}

func (c upgradedConn) RemoteMultiaddr() multiaddr.Multiaddr { return c.remote }

func mustAddr(t *testing.T, s string) multiaddr.Multiaddr {
	t.Helper()
	ma, err := multiaddr.NewMultiaddr(s)
	require.NoError(t, err)
	return ma
}

func TestAddrFromMultiaddr(t *testing.T) {
	addr, ok := AddrFromMultiaddr(mustAddr(t, "/ip4/10.1.2.3/tcp/8333"))
	require.True(t, ok)
	assert.Equal(t, netip.MustParseAddr("10.1.2.3"), addr)

	addr, ok = AddrFromMultiaddr(mustAddr(t, "/ip6/2001:db8::1/udp/4001/quic-v1"))
	require.True(t, ok)
	assert.Equal(t, netip.MustParseAddr("2001:db8::1"), addr)

	_, ok = AddrFromMultiaddr(mustAddr(t, "/dns4/example.com/tcp/443"))
	assert.False(t, ok)
	_, ok = AddrFromMultiaddr(nil)
	assert.False(t, ok)
}

func TestBanGaterRejectsBannedAddress(t *testing.T) {
	bans := banscore.NewBanTable(nil, nil)
	gater := NewBanGater(bans)
	local := mustAddr(t, "/ip4/127.0.0.1/tcp/9000")
	bad := mustAddr(t, "/ip4/192.0.2.7/tcp/50000")
	good := mustAddr(t, "/ip4/192.0.2.8/tcp/50000")

	assert.True(t, gater.InterceptAccept(connAddrs{local, bad}))

	bans.ReportMisbehavior(netip.MustParseAddr("192.0.2.7"), 100)

	assert.True(t, gater.InterceptPeerDial(""))
	assert.False(t, gater.InterceptAddrDial("", bad))
	assert.True(t, gater.InterceptAddrDial("", good))
	assert.False(t, gater.InterceptAccept(connAddrs{local, bad}))
	assert.True(t, gater.InterceptAccept(connAddrs{local, good}))
	assert.False(t, gater.InterceptSecured(network.DirInbound, "", connAddrs{local, bad}))

	// another port of the same host is still banned
	otherPort := mustAddr(t, "/ip4/192.0.2.7/tcp/50001")
	allow, reason := gater.InterceptUpgraded(upgradedConn{remote: otherPort})
	assert.False(t, allow)
	assert.Equal(t, DisconnectBanned, reason)

	allow, _ = gater.InterceptUpgraded(upgradedConn{remote: good})
	assert.True(t, allow)
}

func TestBanGaterWithoutTableAllowsAll(t *testing.T) {
	gater := NewBanGater(nil)
	assert.True(t, gater.InterceptAddrDial("", mustAddr(t, "/ip4/192.0.2.7/tcp/1")))
}
