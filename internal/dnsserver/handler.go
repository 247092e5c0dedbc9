package dnsserver

import (
	"context"
	"log/slog"

	"github.com/jroosing/hydrahost/internal/dns"
	"github.com/jroosing/hydrahost/internal/errs"
	"github.com/jroosing/hydrahost/internal/server"
	"github.com/jroosing/hydrahost/internal/zone"
)

// serve answers one datagram. Nothing is sent for malformed messages,
// responses, messages without a question, or question types other than A.
func (s *Server) serve(ctx context.Context, ln *server.UDPListener, d server.Datagram) error {
	q, err := dns.ParseQuery(d.Payload)
	if err != nil {
		s.Count(CounterDropped)
		return err
	}
	if q.IsResponse || !q.HasQuestion() {
		s.Count(CounterDropped)
		s.debug(ctx, "ignoring message", "remote", d.Remote.String(),
			"id", q.ID, "response", q.IsResponse, "qdcount", q.QDCount)
		return nil
	}
	if q.Truncated {
		s.Count(CounterDropped)
		return errs.New(errs.KindMalformedMessage, "dns.serve", "question name truncated after %q", q.Question.Name)
	}
	s.RequestHandled()

	if !q.Question.IsA() {
		s.Count(CounterDropped)
		s.debug(ctx, "unsupported query type, dropping", "remote", d.Remote.String(),
			"name", q.Question.Name, "qtype", dns.RecordType(q.Question.Type).String())
		return nil
	}

	resp, res, err := s.Answer(q)
	if err != nil {
		return err
	}
	n, err := ln.Send(resp, d.Remote)
	s.BytesSent(n)
	if err != nil {
		return err
	}
	s.debug(ctx, "dns query", "remote", d.Remote.String(), "name", q.Question.Name,
		"outcome", res.Outcome.String(), "zone", res.Zone)
	return nil
}

// Answer resolves an A query against the store and encodes the reply.
// It also counts the outcome.
func (s *Server) Answer(q dns.Query) ([]byte, zone.Resolution, error) {
	name := q.Question.Name
	res := s.store.Resolve(name)

	var (
		resp []byte
		err  error
	)
	switch res.Outcome {
	case zone.OutcomeNXDomain:
		s.Count(CounterNXDomain)
		resp, err = dns.CreateNXDomainResponse(name, q.Question.Type, q.Question.Class, q.ID)
	case zone.OutcomeFallback:
		s.Count(CounterFallback)
		resp, err = dns.CreateResponse(name, q.Question.Type, q.Question.Class, q.ID, res.Address)
	default:
		s.Count(CounterAnswers)
		resp, err = dns.CreateResponse(name, q.Question.Type, q.Question.Class, q.ID, res.Address)
	}
	if err != nil {
		return nil, res, errs.Wrap(errs.KindMalformedMessage, "dns.Answer", err)
	}
	return resp, res, nil
}

func (s *Server) debug(ctx context.Context, msg string, args ...any) {
	if log := s.Logger(); log.Enabled(ctx, slog.LevelDebug) {
		log.Debug(msg, args...)
	}
}
