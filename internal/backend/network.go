package backend

import (
	"fmt"
	"net"
	"time"

	"golang.org/x/net/dns/dnsmessage"

	"github.com/mirusu400/wie/internal/log"
)

// Network backs the WIPI C kernel's socket/resolver ordinals. Resolution
// builds and parses DNS wire messages directly with dnsmessage rather
// than going through net.Resolver, the same way the teacher's network
// stub package hand-builds addrinfo/hostent structures instead of
// delegating to a higher-level host API.
type Network struct {
	Log      *log.Logger
	Resolver string // "host:port" of the DNS server to query.
	Timeout  time.Duration

	hosts map[string]net.IP // captured/resolved names, for inspection.
}

// NewNetwork returns a Network configured against the system resolver's
// usual port on the loopback DNS forwarder most container/VM setups run
// (overridable via Resolver for tests).
func NewNetwork(logger *log.Logger) *Network {
	return &Network{
		Log:      logger,
		Resolver: "127.0.0.1:53",
		Timeout:  2 * time.Second,
		hosts:    make(map[string]net.IP),
	}
}

// Resolve performs an A-record DNS lookup for host by hand-assembling the
// query and parsing the response with dnsmessage, returning the first
// address found.
func (n *Network) Resolve(host string) (net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		return ip, nil
	}
	if cached, ok := n.hosts[host]; ok {
		return cached, nil
	}

	query, err := buildQuery(host)
	if err != nil {
		return nil, fmt.Errorf("build dns query for %s: %w", host, err)
	}

	conn, err := net.DialTimeout("udp", n.Resolver, n.Timeout)
	if err != nil {
		return nil, fmt.Errorf("dial resolver %s: %w", n.Resolver, err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(n.Timeout))
	if _, err := conn.Write(query); err != nil {
		return nil, fmt.Errorf("send dns query: %w", err)
	}

	buf := make([]byte, 512)
	nRead, err := conn.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("read dns response: %w", err)
	}

	ip, err := parseAResponse(buf[:nRead])
	if err != nil {
		return nil, err
	}

	n.hosts[host] = ip
	return ip, nil
}

func buildQuery(host string) ([]byte, error) {
	name, err := dnsmessage.NewName(host + ".")
	if err != nil {
		return nil, err
	}

	msg := dnsmessage.Message{
		Header: dnsmessage.Header{ID: 1, RecursionDesired: true},
		Questions: []dnsmessage.Question{
			{Name: name, Type: dnsmessage.TypeA, Class: dnsmessage.ClassINET},
		},
	}
	return msg.Pack()
}

func parseAResponse(data []byte) (net.IP, error) {
	var p dnsmessage.Parser
	if _, err := p.Start(data); err != nil {
		return nil, fmt.Errorf("parse dns header: %w", err)
	}
	if err := p.SkipAllQuestions(); err != nil {
		return nil, fmt.Errorf("skip questions: %w", err)
	}

	for {
		h, err := p.AnswerHeader()
		if err != nil {
			break
		}
		if h.Type != dnsmessage.TypeA {
			if err := p.SkipAnswer(); err != nil {
				return nil, err
			}
			continue
		}
		r, err := p.AResource()
		if err != nil {
			return nil, fmt.Errorf("parse A resource: %w", err)
		}
		return net.IP(r.A[:]), nil
	}
	return nil, fmt.Errorf("no A record in response")
}

// RecordHost stores a host/address pair directly, without a lookup, so a
// later CapturedHosts() call reports it alongside names Resolve looked up.
func (n *Network) RecordHost(host string, ip net.IP) {
	n.hosts[host] = ip
}

// CapturedHosts returns every hostname this Network has resolved or had
// recorded so far.
func (n *Network) CapturedHosts() map[string]net.IP {
	out := make(map[string]net.IP, len(n.hosts))
	for k, v := range n.hosts {
		out[k] = v
	}
	return out
}
