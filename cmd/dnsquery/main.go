// Command dnsquery sends a single DNS query over UDP and prints the answer.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/miekg/dns"
)

func main() {
	var (
		server  = flag.String("server", "127.0.0.1:5300", "DNS server HOST:PORT")
		name    = flag.String("name", "example.com", "Query name")
		qtype   = flag.String("qtype", "A", "Query type (A, AAAA, MX, ...)")
		timeout = flag.Duration("timeout", 2*time.Second, "Timeout")
		quiet   = flag.Bool("quiet", false, "Suppress output (exit status indicates success)")
	)
	flag.Parse()

	resp, err := query(*server, *name, *qtype, *timeout)
	if err != nil {
		if !*quiet {
			fmt.Fprintf(os.Stderr, "dnsquery error: %v\n", err)
		}
		os.Exit(1)
	}
	if !*quiet {
		printResponse(os.Stdout, resp)
	}
}

func query(server, name, qtype string, timeout time.Duration) (*dns.Msg, error) {
	t, ok := dns.StringToType[strings.ToUpper(qtype)]
	if !ok {
		return nil, fmt.Errorf("unknown query type %q", qtype)
	}
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), t)

	c := &dns.Client{Net: "udp", Timeout: timeout}
	resp, _, err := c.Exchange(m, server)
	return resp, err
}

func printResponse(w io.Writer, resp *dns.Msg) {
	fmt.Fprintf(w, "id=%d rcode=%s aa=%t answers=%d authorities=%d additionals=%d\n",
		resp.Id,
		dns.RcodeToString[resp.Rcode],
		resp.Authoritative,
		len(resp.Answer),
		len(resp.Ns),
		len(resp.Extra),
	)

	rows := make([]string, 0, len(resp.Answer))
	for _, rr := range resp.Answer {
		rows = append(rows, rr.String())
	}
	slices.Sort(rows)
	for _, s := range rows {
		fmt.Fprintln(w, s)
	}
}
