package dnsserver

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jroosing/hydrahost/internal/dns"
)

// reloadDebounce collapses the burst of events an editor produces on save.
var reloadDebounce = 100 * time.Millisecond

// HostEntry is one name -> address mapping from a hosts-format file.
type HostEntry struct {
	Name    string
	Address netip.Addr
}

// ParseHosts reads hosts-format lines: an address followed by one or more
// names. Text after '#' is ignored. Any line whose address does not parse
// fails the whole file.
func ParseHosts(r io.Reader) ([]HostEntry, error) {
	var out []HostEntry
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: address %q has no names", line, fields[0])
		}
		addr, err := netip.ParseAddr(fields[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		for _, name := range fields[1:] {
			out = append(out, HostEntry{Name: name, Address: addr.Unmap()})
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// fileRecord identifies one record loaded from the records file.
type fileRecord struct {
	name string
	typ  dns.RecordType
}

// loadRecordsFile applies the file to the store. Records loaded by the
// previous call that are no longer in the file are removed per name and
// type; records added through the API or configuration are left alone
// unless the file names them with the same type.
func (s *Server) loadRecordsFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	entries, err := ParseHosts(f)
	_ = f.Close()
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	s.fileMu.Lock()
	defer s.fileMu.Unlock()

	loaded := make(map[fileRecord]struct{}, len(entries))
	for _, e := range entries {
		if err := s.store.AddRecord(e.Name, e.Address.String()); err != nil {
			continue
		}
		typ := dns.TypeA
		if e.Address.Is6() {
			typ = dns.TypeAAAA
		}
		loaded[fileRecord{name: dns.NormalizeName(e.Name), typ: typ}] = struct{}{}
	}
	for rec := range s.fileRecords {
		if _, ok := loaded[rec]; !ok {
			s.store.RemoveRecordType(rec.name, rec.typ)
		}
	}
	s.fileRecords = loaded
	s.Count(CounterReloads)
	s.Logger().Info("records file loaded", "path", path, "records", len(entries))
	return nil
}

// watchRecordsFile reloads path whenever it changes, until ctx is done.
// The directory is watched rather than the file, so that editors that
// replace the file on save are followed.
func (s *Server) watchRecordsFile(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch records directory: %w", err)
	}

	log := s.Logger()
	s.Go(func() {
		defer watcher.Close()

		timer := time.NewTimer(reloadDebounce)
		timer.Stop()
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != abs {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
					timer.Reset(reloadDebounce)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("records file watcher error", "err", err)
			case <-timer.C:
				if err := s.loadRecordsFile(abs); err != nil {
					log.Error("reloading records file, keeping previous records", "path", abs, "err", err)
				}
			}
		}
	})
	log.Info("watching records file", "path", abs)
	return nil
}
