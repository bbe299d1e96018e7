package p2p

import (
	"net/netip"

	"github.com/libp2p/go-libp2p/core/connmgr"
	"github.com/libp2p/go-libp2p/core/control"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/multiformats/go-multiaddr"
	manet "github.com/multiformats/go-multiaddr/net"

	"github.com/mezonai/dosguard/logx"
)

// DisconnectBanned is reported to the remote side when an upgraded
// connection from a banned address is closed.
const DisconnectBanned control.DisconnectReason = 1

// BanChecker is satisfied by banscore.BanTable and guard.Guard.
type BanChecker interface {
	IsBanned(addr netip.Addr) bool
}

// BanGater implements libp2p's ConnectionGater on top of the IP ban table.
type BanGater struct {
	bans BanChecker
}

var _ connmgr.ConnectionGater = (*BanGater)(nil)

func NewBanGater(bans BanChecker) *BanGater {
	return &BanGater{bans: bans}
}

// AddrFromMultiaddr extracts the IP of a multiaddr such as /ip4/1.2.3.4/tcp/8333.
// DNS and relay addresses report false.
func AddrFromMultiaddr(ma multiaddr.Multiaddr) (netip.Addr, bool) {
	if ma == nil {
		return netip.Addr{}, false
	}
	ip, err := manet.ToIP(ma)
	if err != nil {
		return netip.Addr{}, false
	}
	addr, ok := netip.AddrFromSlice(ip)
	if !ok {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}

func (g *BanGater) banned(ma multiaddr.Multiaddr) bool {
	if g.bans == nil {
		return false
	}
	addr, ok := AddrFromMultiaddr(ma)
	if !ok {
		return false
	}
	if g.bans.IsBanned(addr) {
		logx.Debug("GATER", "rejecting banned address", ma.String())
		return true
	}
	return false
}

// InterceptPeerDial allows the dial; the address is checked in InterceptAddrDial
func (g *BanGater) InterceptPeerDial(pid peer.ID) bool {
	return true
}

func (g *BanGater) InterceptAddrDial(pid peer.ID, addr multiaddr.Multiaddr) bool {
	return !g.banned(addr)
}

func (g *BanGater) InterceptAccept(n network.ConnMultiaddrs) bool {
	return !g.banned(n.RemoteMultiaddr())
}

// InterceptSecured re-checks since a ban may have been issued during the handshake
func (g *BanGater) InterceptSecured(dir network.Direction, pid peer.ID, n network.ConnMultiaddrs) bool {
	return !g.banned(n.RemoteMultiaddr())
}

func (g *BanGater) InterceptUpgraded(conn network.Conn) (bool, control.DisconnectReason) {
	if g.banned(conn.RemoteMultiaddr()) {
		return false, DisconnectBanned
	}
	return true, 0
}
