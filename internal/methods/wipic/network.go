package wipic

import (
	"github.com/mirusu400/wie/internal/cbridge"
	"github.com/mirusu400/wie/internal/core"
	"github.com/mirusu400/wie/internal/marshal"
)

func init() {
	register(buildNetworkTable)
}

// buildNetworkTable is a small socket/resolver ordinal set: resolve_host
// takes a hostname and a destination buffer for the resolved address
// (socket_open and socket_close have no implementation), matching
// the shape of the teacher's getaddrinfo/gethostbyname stubs but backed
// by the real resolver in internal/backend instead of a fabricated
// 127.0.0.1 response.
func buildNetworkTable(ctx *cbridge.Context) Table {
	names := []string{"resolve_host", "socket_open", "socket_close"}
	hooks := []func(*core.Core){
		marshal.Adapt2(func(_ *core.Core, hostPtr, addrOut uint32) uint32 {
			status, _ := ctx.ResolveHost(hostPtr, addrOut)
			return uint32(status)
		}, marshal.Word, marshal.Word),
		nil,
		nil,
	}

	return Table{Category: "network", Names: names, Hooks: hooks}
}
