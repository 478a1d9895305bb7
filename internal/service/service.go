// Package service is the locked façade the HTTP API, the MCP server and the
// source loader share. It owns the index, the snapshot queue and the journal.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/starford/vrindex/internal/apperr"
	"github.com/starford/vrindex/internal/datum"
	"github.com/starford/vrindex/internal/index"
	"github.com/starford/vrindex/internal/journal"
	"github.com/starford/vrindex/internal/queue"
	"github.com/starford/vrindex/internal/storage"
)

// Change kinds passed to a Notifier.
const (
	ChangeApplied  = "applied"
	ChangeCreated  = "created"
	ChangeUpdated  = "updated"
	ChangeDeleted  = "deleted"
	ChangeRestored = "restored"
)

// Notifier is told about every mutation after it has been applied.
type Notifier func(kind, path string)

// Entry is the read view of one index entry.
type Entry struct {
	Name       string            `json:"name"`
	Type       string            `json:"type"`
	Value      string            `json:"value,omitempty"`
	Children   []string          `json:"children,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Snapshot describes one queued or journaled snapshot.
type Snapshot struct {
	Timestamp int64  `json:"timestamp"`
	Seq       int    `json:"seq"`
	Payload   string `json:"payload"`
}

// SearchHit is one snapshot matching a search.
type SearchHit struct {
	Timestamp int64  `json:"timestamp"`
	Snippet   string `json:"snippet"`
}

// Service serialises access to an index.Index, which is not safe for
// concurrent use on its own.
type Service struct {
	mu      sync.RWMutex
	ix      *index.Index
	q       *queue.Queue
	store   storage.Provider
	journal journal.Journal
	ns      string
	keep    int
	notify  Notifier
	log     *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithStore sets the provider sources are read from and written to.
func WithStore(p storage.Provider) Option { return func(s *Service) { s.store = p } }

// WithJournal persists snapshots and source checksums.
func WithJournal(j journal.Journal) Option { return func(s *Service) { s.journal = j } }

// WithSourceNamespace sets the namespace source files are loaded into.
func WithSourceNamespace(ns string) Option { return func(s *Service) { s.ns = ns } }

// WithRetention caps the journal at keep snapshots; zero keeps all.
func WithRetention(keep int) Option { return func(s *Service) { s.keep = keep } }

// WithNotifier registers fn to hear about mutations.
func WithNotifier(fn Notifier) Option { return func(s *Service) { s.notify = fn } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.log = l } }

// New wraps ix.
func New(ix *index.Index, opts ...Option) *Service {
	s := &Service{
		ix:  ix,
		q:   queue.New(),
		ns:  index.Root,
		log: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the source provider, or nil.
func (s *Service) Store() storage.Provider { return s.store }

// Journal returns the journal, or nil.
func (s *Service) Journal() journal.Journal { return s.journal }

func (s *Service) changed(kind, path string) {
	if s.notify != nil {
		s.notify(kind, path)
	}
}

func entryOf(full string, d *datum.Datum) *Entry {
	e := &Entry{
		Name: full,
		Type: d.Type().String(),
	}
	if d.Type() == datum.TypeContainer {
		e.Children = d.Children()
	} else {
		e.Value = d.ValueString()
	}
	if attrs := d.Attributes(); len(attrs) > 0 {
		e.Attributes = attrs
	}
	return e
}

// Lookup resolves name from ns and returns the entry found.
func (s *Service) Lookup(_ context.Context, name, ns string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	full, d, err := s.ix.GetEntry(name, ns)
	if err != nil {
		return nil, err
	}
	return entryOf(full, d), nil
}

// Serialize renders name resolved from ns in the markup form.
func (s *Service) Serialize(_ context.Context, name, ns string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ix.Serialize(name, ns)
}

// SelectByAttribute lists names carrying attr=val (val may be index.Wildcard)
// within ns.
func (s *Service) SelectByAttribute(_ context.Context, attr, val, ns string, childOnly bool) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ix.SelectByAttribute(attr, val, ns, childOnly)
}

// SelectByType lists names whose type is called typeName within ns.
func (s *Service) SelectByType(_ context.Context, typeName, ns string, childOnly bool) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, err := s.ix.Registry().Lookup(typeName)
	if err != nil {
		return nil, err
	}
	return s.ix.SelectByType(t, ns, childOnly)
}

// SelectByKey lists names matching a key pattern.
func (s *Service) SelectByKey(_ context.Context, pattern, ns string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ix.SelectByKey(pattern, ns)
}

// GetByAttribute returns the entry with attr=val nearest to ns.
func (s *Service) GetByAttribute(_ context.Context, attr, val, ns string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ix.GetByAttribute(attr, val, ns)
}

// Structure renders the debug tree at and below name.
func (s *Service) Structure(_ context.Context, name string, limit int) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ix.PrintStructure(name, limit)
}

// Names lists every fully-qualified name.
func (s *Service) Names(_ context.Context) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ix.Names()
}

// Apply deserializes text into ns and returns the last name written.
func (s *Service) Apply(_ context.Context, text, ns string) (string, error) {
	s.mu.Lock()
	last, err := s.ix.AddSerializedValue(text, ns)
	s.mu.Unlock()
	if err != nil {
		return "", err
	}
	s.changed(ChangeApplied, last)
	return last, nil
}

// Set stores a "name=value" pair.
func (s *Service) Set(_ context.Context, kv string) (string, error) {
	s.mu.Lock()
	full, err := s.ix.AddKeyValue(kv)
	s.mu.Unlock()
	if err != nil {
		return "", err
	}
	s.changed(ChangeApplied, full)
	return full, nil
}

// LoadFile reads a file from disk, after ${VAR} expansion, into ns.
func (s *Service) LoadFile(_ context.Context, path, ns string) (string, error) {
	s.mu.Lock()
	last, err := s.ix.ProcessXMLFile(path, ns)
	s.mu.Unlock()
	if err != nil {
		return "", err
	}
	s.changed(ChangeApplied, last)
	return last, nil
}

// PushState checkpoints the index.
func (s *Service) PushState(_ context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ix.PushState()
}

// PopState rolls the index back to the last checkpoint. It fails with
// apperr.ErrNoPushedState when there is none.
func (s *Service) PopState(_ context.Context) error {
	s.mu.Lock()
	err := s.ix.PopState()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.changed(ChangeRestored, index.Root)
	return nil
}

// Sources lists the source files.
func (s *Service) Sources(_ context.Context) ([]storage.Source, error) {
	if s.store == nil {
		return nil, fmt.Errorf("service: no source directory: %w", apperr.ErrNotFound)
	}
	return s.store.List("")
}

// LoadSource reads path from the store into the source namespace and records
// its checksum. kind is handed to the notifier.
func (s *Service) LoadSource(_ context.Context, path, kind string) error {
	if s.store == nil {
		return fmt.Errorf("service: no source directory: %w", apperr.ErrNotFound)
	}
	data, err := s.store.Read(path)
	if err != nil {
		return err
	}
	if err := s.loadBytes(path, data); err != nil {
		return err
	}
	s.changed(kind, path)
	return nil
}

func (s *Service) loadBytes(path string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ns != index.Root && !s.ix.Exists(s.ns, index.Root) {
		if _, err := s.ix.AddData(s.ns, datum.Container{}); err != nil {
			return fmt.Errorf("service: create namespace %s: %w", s.ns, err)
		}
	}
	if _, err := s.ix.AddSerializedValue(string(data), s.ns); err != nil {
		return fmt.Errorf("service: load %s: %w", path, err)
	}
	if s.journal != nil {
		if err := s.journal.SetChecksum(path, storage.Checksum(data)); err != nil {
			return err
		}
	}
	s.log.Debug("service: loaded source", slog.String("path", path), slog.String("namespace", s.ns))
	return nil
}

// WriteSource stores content under path and loads it.
func (s *Service) WriteSource(_ context.Context, path string, content []byte) error {
	if s.store == nil {
		return fmt.Errorf("service: no source directory: %w", apperr.ErrNotFound)
	}
	kind := ChangeUpdated
	if _, err := s.store.Stat(path); err != nil {
		kind = ChangeCreated
	}
	// Validate before touching the file.
	probe := index.New(index.WithRegistry(s.ix.Registry()))
	if _, err := probe.AddSerializedValue(string(content), index.Root); err != nil {
		return err
	}
	if err := s.store.Write(path, content); err != nil {
		return err
	}
	if err := s.loadBytes(path, content); err != nil {
		return err
	}
	s.changed(kind, path)
	return nil
}

// ForgetSource drops the recorded checksum of a source that has gone away.
// Values it contributed stay in the index.
func (s *Service) ForgetSource(_ context.Context, path string) error {
	if s.journal != nil {
		if err := s.journal.DeleteSource(path); err != nil {
			return err
		}
	}
	s.changed(ChangeDeleted, path)
	return nil
}

// DeleteSource removes a source file and forgets it.
func (s *Service) DeleteSource(ctx context.Context, path string) error {
	if s.store == nil {
		return fmt.Errorf("service: no source directory: %w", apperr.ErrNotFound)
	}
	if err := s.store.Delete(path); err != nil {
		return err
	}
	return s.ForgetSource(ctx, path)
}

// SourceChecksums returns the recorded checksum per loaded source.
func (s *Service) SourceChecksums(_ context.Context) (map[string]string, error) {
	if s.journal == nil {
		return map[string]string{}, nil
	}
	return s.journal.AllChecksums()
}

// Snapshot serializes names (resolved from ns) into a single queue item
// stamped now, journals it, and returns it. An empty names list snapshots the
// whole index.
func (s *Service) Snapshot(_ context.Context, names []string, ns string) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(names) == 0 {
		names = roots(s.ix.Names())
	}
	var b strings.Builder
	for _, name := range names {
		text, err := s.ix.Serialize(name, ns)
		if err != nil {
			return nil, err
		}
		b.WriteString(text)
	}

	one := queue.New()
	one.PushNow(b.String())
	if s.journal != nil {
		if _, err := s.journal.AppendQueue(one); err != nil {
			return nil, err
		}
		if s.keep > 0 {
			if n, err := s.journal.Trim(s.keep); err != nil {
				s.log.Warn("service: trim journal failed", slog.String("error", err.Error()))
			} else if n > 0 {
				s.log.Debug("service: trimmed journal", slog.Int64("removed", n))
			}
		}
	}
	s.q.AddQueue(one)

	it := one.Items()[0]
	text, _ := it.Text()
	return &Snapshot{Timestamp: it.Timestamp(), Seq: it.Seq(), Payload: text}, nil
}

func roots(names []string) []string {
	var out []string
	for _, n := range names {
		if strings.Count(n, "/") == 1 {
			out = append(out, n)
		}
	}
	return out
}

// Snapshots lists up to limit snapshots, oldest first. With a journal the
// persisted history is listed; otherwise the in-memory queue.
func (s *Service) Snapshots(_ context.Context, limit int) ([]Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := s.q
	if s.journal != nil {
		var err error
		if q, err = s.journal.LoadQueue(limit); err != nil {
			return nil, err
		}
	}
	items := q.Items()
	if limit > 0 && len(items) > limit {
		items = items[len(items)-limit:]
	}
	out := make([]Snapshot, 0, len(items))
	for _, it := range items {
		text, err := it.Text()
		if err != nil {
			return nil, err
		}
		out = append(out, Snapshot{Timestamp: it.Timestamp(), Seq: it.Seq(), Payload: text})
	}
	return out, nil
}

// Restore merges the newest limit journaled snapshots into the in-memory
// queue and returns how many were added.
func (s *Service) Restore(_ context.Context, limit int) (int, error) {
	if s.journal == nil {
		return 0, nil
	}
	q, err := s.journal.LoadQueue(limit)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	s.q.AddQueue(q)
	s.mu.Unlock()
	return q.Len(), nil
}

// Search looks for text in snapshot payloads, newest first.
func (s *Service) Search(_ context.Context, text string, limit int) ([]SearchHit, error) {
	if s.journal != nil {
		rows, err := s.journal.Search(text, limit)
		if err != nil {
			return nil, err
		}
		out := make([]SearchHit, len(rows))
		for i, r := range rows {
			out[i] = SearchHit{Timestamp: r.Timestamp, Snippet: r.Snippet}
		}
		return out, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 20
	}
	var out []SearchHit
	items := s.q.Items()
	sort.SliceStable(items, func(i, j int) bool { return items[i].Timestamp() > items[j].Timestamp() })
	for _, it := range items {
		payload, err := it.Text()
		if err != nil || !strings.Contains(payload, text) {
			continue
		}
		out = append(out, SearchHit{Timestamp: it.Timestamp(), Snippet: payload[:min(len(payload), 200)]})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// QueueText returns the queue in wire form without draining it.
func (s *Service) QueueText(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.Serialize()
}

// Drain returns the queue in wire form and empties it.
func (s *Service) Drain(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, err := s.q.Serialize()
	if err != nil {
		return "", err
	}
	s.q.Clear()
	return text, nil
}

// Enqueue merges a queue received in wire form.
func (s *Service) Enqueue(_ context.Context, text string) (int, error) {
	q, err := queue.FromSerialized(text)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	s.q.AddQueue(q)
	s.mu.Unlock()
	return q.Len(), nil
}

// ApplyQueued pops every queued snapshot, oldest first, and applies its
// payload to the root namespace. It stops at the first failure, leaving the
// failing item queued.
func (s *Service) ApplyQueued(_ context.Context) (int, error) {
	s.mu.Lock()
	n := 0
	var err error
	for s.q.NotEmpty() {
		var text string
		if text, err = s.q.GetSerializedObject(); err != nil {
			break
		}
		if strings.TrimSpace(text) != "" {
			if _, err = s.ix.AddSerializedValue(text, index.Root); err != nil {
				break
			}
		}
		s.q.Pop()
		n++
	}
	s.mu.Unlock()
	if n > 0 {
		s.changed(ChangeApplied, index.Root)
	}
	return n, err
}
