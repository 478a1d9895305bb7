// Package queue holds time-ordered snapshots of index fragments and encodes
// them in a compact wire form for handing between processes.
package queue

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/starford/vrindex/internal/apperr"
	"github.com/starford/vrindex/internal/index"
)

const (
	openTag   = `<VRDataQueue num="`
	closeTag  = `</VRDataQueue>`
	itemOpen  = `<VRDataQueueItem timeStamp="`
	itemClose = `</VRDataQueueItem>`

	// minWireLen is the shortest text that can carry an item count.
	minWireLen = len(openTag)
)

// Item is one queued snapshot. Exactly one of text or ix is authoritative at
// push time; the other is filled lazily.
type Item struct {
	ts   int64
	seq  int
	text string
	ix   *index.Index
}

// Timestamp reports the item's time key.
func (it *Item) Timestamp() int64 { return it.ts }

// Seq reports the tie-break counter among items sharing a timestamp.
func (it *Item) Seq() int { return it.seq }

// Text returns the serialized payload, rendering a pushed index on first use.
func (it *Item) Text() (string, error) {
	if it.text == "" && it.ix != nil {
		s, err := fragment(it.ix)
		if err != nil {
			return "", err
		}
		it.text = s
	}
	return it.text, nil
}

// Index returns the payload as an index, parsing the text on first use.
func (it *Item) Index() (*index.Index, error) {
	if it.ix == nil {
		ix := index.New()
		if strings.TrimSpace(it.text) != "" {
			if _, err := ix.AddSerializedValue(it.text, index.Root); err != nil {
				return nil, fmt.Errorf("queue: parse item %d-%03d: %w", it.ts, it.seq, err)
			}
		}
		it.ix = ix
	}
	return it.ix, nil
}

// fragment renders every root entry of ix back to back, the same shape
// AddSerializedValue accepts at the root namespace.
func fragment(ix *index.Index) (string, error) {
	var b strings.Builder
	for _, name := range ix.Names() {
		if strings.Count(name, "/") != 1 {
			continue
		}
		s, err := ix.Serialize(name, index.Root)
		if err != nil {
			return "", err
		}
		b.WriteString(s)
	}
	return b.String(), nil
}

// Queue orders snapshots by (timestamp, seq). It is not safe for concurrent
// use.
type Queue struct {
	items []*Item
	now   func() time.Time
}

// New returns an empty queue.
func New() *Queue {
	return &Queue{now: time.Now}
}

// FromSerialized builds a queue from its wire form.
func FromSerialized(text string) (*Queue, error) {
	q := New()
	if err := q.AddSerializedQueue(text); err != nil {
		return nil, err
	}
	return q, nil
}

// insert places it after every item with the same or an earlier timestamp and
// numbers it one past the last of its timestamp.
func (q *Queue) insert(it *Item) {
	pos := sort.Search(len(q.items), func(i int) bool { return q.items[i].ts > it.ts })
	it.seq = 0
	if pos > 0 && q.items[pos-1].ts == it.ts {
		it.seq = q.items[pos-1].seq + 1
	}
	q.items = append(q.items, nil)
	copy(q.items[pos+1:], q.items[pos:])
	q.items[pos] = it
}

// Push queues serialized text under ts.
func (q *Queue) Push(ts int64, text string) {
	q.insert(&Item{ts: ts, text: text})
}

// PushIndex queues a whole index under ts. It is serialized only when the
// queue is encoded or its text is requested.
func (q *Queue) PushIndex(ts int64, ix *index.Index) {
	q.insert(&Item{ts: ts, ix: ix})
}

// PushNow queues text stamped with the current wall clock in microseconds.
func (q *Queue) PushNow(text string) {
	q.Push(q.now().UnixMicro(), text)
}

// AddQueue merges other into q. Items with equal timestamps keep q's items
// ahead of other's, and other's relative order is preserved.
func (q *Queue) AddQueue(other *Queue) {
	if other == nil {
		return
	}
	for _, it := range other.items {
		cp := *it
		q.insert(&cp)
	}
}

// Len reports the number of queued items.
func (q *Queue) Len() int { return len(q.items) }

// NotEmpty reports whether anything is queued.
func (q *Queue) NotEmpty() bool { return len(q.items) > 0 }

// Items returns the queued items in order. The slice is a copy; the items are
// shared.
func (q *Queue) Items() []*Item {
	return append([]*Item(nil), q.items...)
}

// GetFirst returns the head payload as an index. The head stays queued.
func (q *Queue) GetFirst() (*index.Index, error) {
	if len(q.items) == 0 {
		return nil, fmt.Errorf("queue: get first: %w", apperr.ErrNotFound)
	}
	return q.items[0].Index()
}

// GetSerializedObject returns the head payload as text, or "" when the queue
// is empty.
func (q *Queue) GetSerializedObject() (string, error) {
	if len(q.items) == 0 {
		return "", nil
	}
	return q.items[0].Text()
}

// Pop drops the head item. Popping an empty queue does nothing.
func (q *Queue) Pop() {
	if len(q.items) == 0 {
		return
	}
	q.items[0] = nil
	q.items = q.items[1:]
}

// Clear drops every item.
func (q *Queue) Clear() {
	q.items = nil
}

// Serialize encodes the queue as
//
//	<VRDataQueue num="N"><VRDataQueueItem timeStamp="T-SSS">payload</VRDataQueueItem>...</VRDataQueue>
func (q *Queue) Serialize() (string, error) {
	var b strings.Builder
	b.WriteString(openTag + strconv.Itoa(len(q.items)) + `">`)
	for _, it := range q.items {
		text, err := it.Text()
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, `%s%d-%03d">%s%s`, itemOpen, it.ts, it.seq, text, itemClose)
	}
	b.WriteString(closeTag)
	return b.String(), nil
}

// AddSerializedQueue decodes text produced by Serialize and pushes its items.
// Text too short to hold a header is ignored. Payloads are kept verbatim; the
// sequence part of each stamp is recomputed on insertion.
func (q *Queue) AddSerializedQueue(text string) error {
	if len(text) < minWireLen {
		return nil
	}
	rest, ok := strings.CutPrefix(text, openTag)
	if !ok {
		return fmt.Errorf("queue: missing header: %w", apperr.ErrCorruptQueue)
	}
	count, rest, ok := strings.Cut(rest, `"`)
	if !ok {
		return fmt.Errorf("queue: unterminated item count: %w", apperr.ErrCorruptQueue)
	}
	want, err := strconv.Atoi(count)
	if err != nil {
		return fmt.Errorf("queue: item count %q: %w", count, apperr.ErrCorruptQueue)
	}

	var parsed []*Item
	for {
		start := strings.Index(rest, itemOpen)
		if start < 0 {
			break
		}
		rest = rest[start+len(itemOpen):]
		stamp, body, ok := strings.Cut(rest, `">`)
		if !ok {
			return fmt.Errorf("queue: unterminated stamp: %w", apperr.ErrCorruptQueue)
		}
		ts, err := parseStamp(stamp)
		if err != nil {
			return err
		}
		payload, after, ok := strings.Cut(body, itemClose)
		if !ok {
			return fmt.Errorf("queue: unterminated item at %d: %w", ts, apperr.ErrCorruptQueue)
		}
		parsed = append(parsed, &Item{ts: ts, text: payload})
		rest = after
	}
	if len(parsed) != want {
		return fmt.Errorf("queue: header says %d items, found %d: %w", want, len(parsed), apperr.ErrCorruptQueue)
	}
	for _, it := range parsed {
		q.insert(it)
	}
	return nil
}

// parseStamp reads "T" or "T-SSS" and returns T.
func parseStamp(s string) (int64, error) {
	head := s
	if i := strings.LastIndexByte(s, '-'); i > 0 {
		head = s[:i]
	}
	ts, err := strconv.ParseInt(head, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("queue: time stamp %q: %w", s, apperr.ErrCorruptQueue)
	}
	return ts, nil
}

// String lists the payloads one per line, numbered from 1.
func (q *Queue) String() string {
	var b strings.Builder
	for i, it := range q.items {
		text, err := it.Text()
		if err != nil {
			text = "!" + err.Error()
		}
		fmt.Fprintf(&b, "element %d: %s\n", i+1, text)
	}
	return b.String()
}
