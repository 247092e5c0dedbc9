package mailserver

import "strings"

// Protocol is the command grammar of a line-based mail protocol.
type Protocol struct {
	Kind string

	// Greeting is sent when a client connects.
	Greeting func(host string) string

	// Handle answers one command line. The returned lines are sent in order;
	// quit ends the session after they are written.
	Handle func(host, verb, arg string) (reply []string, known, quit bool)

	// IdleTimeout and Shutdown are sent before the server closes a session.
	IdleTimeout func(host string) string
	Shutdown    func(host string) string
}

// SplitCommand returns the upper-cased verb and the rest of the line.
func SplitCommand(line string) (verb, arg string) {
	line = strings.TrimSpace(line)
	verb, arg, _ = strings.Cut(line, " ")
	return strings.ToUpper(verb), strings.TrimSpace(arg)
}

// SMTP answers HELO, EHLO, NOOP, RSET and QUIT. Mail transactions are not
// implemented.
var SMTP = Protocol{
	Kind: "SMTP",
	Greeting: func(host string) string {
		return "220 " + host + " ESMTP HydraHost ready"
	},
	Handle: func(host, verb, arg string) ([]string, bool, bool) {
		switch verb {
		case "HELO":
			return []string{"250 " + host}, true, false
		case "EHLO":
			if arg == "" {
				return []string{"501 Syntax: EHLO hostname"}, true, false
			}
			return []string{"250-" + host + " greets " + arg, "250 HELP"}, true, false
		case "NOOP", "RSET":
			return []string{"250 OK"}, true, false
		case "QUIT":
			return []string{"221 " + host + " closing connection"}, true, true
		case "":
			return []string{"500 Syntax error, command unrecognized"}, false, false
		default:
			return []string{"502 Command not implemented"}, false, false
		}
	},
	IdleTimeout: func(host string) string {
		return "421 " + host + " idle timeout, closing connection"
	},
	Shutdown: func(host string) string {
		return "421 " + host + " service shutting down"
	},
}

// POP3 answers CAPA, NOOP and QUIT. Mailbox access is not implemented.
var POP3 = Protocol{
	Kind: "POP3",
	Greeting: func(host string) string {
		return "+OK " + host + " POP3 ready"
	},
	Handle: func(host, verb, _ string) ([]string, bool, bool) {
		switch verb {
		case "CAPA":
			return []string{"+OK Capability list follows", "IMPLEMENTATION HydraHost", "."}, true, false
		case "NOOP":
			return []string{"+OK"}, true, false
		case "QUIT":
			return []string{"+OK " + host + " signing off"}, true, true
		default:
			return []string{"-ERR command not implemented"}, false, false
		}
	},
	IdleTimeout: func(string) string { return "-ERR idle timeout, closing connection" },
	Shutdown:    func(string) string { return "-ERR server shutting down" },
}
