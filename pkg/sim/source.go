package sim

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/openda-project/openda-go/pkg/remote"
)

// QualityGood is the quality assigned to registered tags by default.
const QualityGood uint16 = 0xC0

var (
	// ErrNotConnected is returned for any operation before Connect.
	ErrNotConnected = errors.New("sim: not connected")

	// ErrUnknownGroup is returned for operations against a group that was
	// never added or was already removed.
	ErrUnknownGroup = errors.New("sim: unknown group")

	// ErrDuplicateGroup is returned when a group name is added twice.
	ErrDuplicateGroup = errors.New("sim: group already exists")
)

// Option configures a Source.
type Option func(*Source)

// WithLatency delays asynchronous refresh callbacks by d, simulating the
// round trip to a real server. Zero delivers callbacks immediately.
func WithLatency(d time.Duration) Option {
	return func(s *Source) { s.latency = d }
}

// WithClock overrides the timestamp source. Tests use a fixed clock.
func WithClock(now func() time.Time) Option {
	return func(s *Source) { s.now = now }
}

type item struct {
	tag          string
	clientHandle uint32
}

type group struct {
	updateRate time.Duration
	items      map[uint32]*item // by server handle
}

// Source is an in-memory remote.Source. It is safe for concurrent use;
// asynchronous refreshes are served from background goroutines.
type Source struct {
	mu sync.Mutex

	connected bool
	latency   time.Duration
	now       func() time.Time

	values    map[string]any
	qualities map[string]uint16
	readOnly  map[string]bool

	groups     map[string]*group
	nextServer uint32

	callbacks chan remote.Callback
}

// New creates a simulator pre-loaded with the given tags, all readable
// and writable with Good quality.
func New(tags map[string]any, opts ...Option) *Source {
	s := &Source{
		now:       time.Now,
		values:    make(map[string]any, len(tags)),
		qualities: make(map[string]uint16, len(tags)),
		readOnly:  make(map[string]bool),
		groups:    make(map[string]*group),
		callbacks: make(chan remote.Callback, 32),
	}
	for tag, value := range tags {
		s.values[tag] = value
		s.qualities[tag] = QualityGood
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds or replaces a tag with Good quality.
func (s *Source) Register(tag string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[tag] = value
	s.qualities[tag] = QualityGood
}

// SetQuality overrides the quality reported for a tag.
func (s *Source) SetQuality(tag string, quality uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.qualities[tag] = quality
}

// SetReadOnly marks a tag as rejecting writes with an access-rights error.
func (s *Source) SetReadOnly(tag string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readOnly[tag] = true
}

// Tags returns the registered tag names, unsorted.
func (s *Source) Tags() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	tags := make([]string, 0, len(s.values))
	for tag := range s.values {
		tags = append(tags, tag)
	}
	return tags
}

func (s *Source) Connect(server, host string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = true
	return nil
}

func (s *Source) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	return nil
}

func (s *Source) AddGroup(name string, updateRate time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return ErrNotConnected
	}
	if _, exists := s.groups[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateGroup, name)
	}
	s.groups[name] = &group{
		updateRate: updateRate,
		items:      make(map[uint32]*item),
	}
	return nil
}

func (s *Source) RemoveGroup(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return ErrNotConnected
	}
	if _, exists := s.groups[name]; !exists {
		return fmt.Errorf("%w: %s", ErrUnknownGroup, name)
	}
	delete(s.groups, name)
	return nil
}

func (s *Source) Validate(groupName string, tags []string) ([]int32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return nil, ErrNotConnected
	}
	codes := make([]int32, len(tags))
	for i, tag := range tags {
		if _, known := s.values[tag]; !known {
			codes[i] = remote.CodeUnknownItemID
		}
	}
	return codes, nil
}

func (s *Source) AddItems(groupName string, tags []string, clientHandles []uint32) ([]uint32, []int32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return nil, nil, ErrNotConnected
	}
	g, exists := s.groups[groupName]
	if !exists {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownGroup, groupName)
	}

	serverHandles := make([]uint32, len(tags))
	codes := make([]int32, len(tags))
	for i, tag := range tags {
		if _, known := s.values[tag]; !known {
			codes[i] = remote.CodeUnknownItemID
			continue
		}
		s.nextServer++
		serverHandles[i] = s.nextServer
		g.items[s.nextServer] = &item{tag: tag, clientHandle: clientHandles[i]}
	}
	return serverHandles, codes, nil
}

func (s *Source) RemoveItems(groupName string, serverHandles []uint32) ([]int32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return nil, ErrNotConnected
	}
	g, exists := s.groups[groupName]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGroup, groupName)
	}

	codes := make([]int32, len(serverHandles))
	for i, h := range serverHandles {
		if _, live := g.items[h]; !live {
			codes[i] = remote.CodeInvalidItemID
			continue
		}
		delete(g.items, h)
	}
	return codes, nil
}

func (s *Source) SyncRead(groupName string, source remote.DataSource, serverHandles []uint32) (*remote.ReadBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return nil, ErrNotConnected
	}
	g, exists := s.groups[groupName]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGroup, groupName)
	}

	batch := &remote.ReadBatch{
		Values:     make([]any, len(serverHandles)),
		Errors:     make([]int32, len(serverHandles)),
		Qualities:  make([]uint16, len(serverHandles)),
		Timestamps: make([]time.Time, len(serverHandles)),
	}
	now := s.now()
	for i, h := range serverHandles {
		it, live := g.items[h]
		if !live {
			batch.Errors[i] = remote.CodeInvalidItemID
			continue
		}
		batch.Values[i] = s.values[it.tag]
		batch.Qualities[i] = s.qualities[it.tag]
		batch.Timestamps[i] = now
	}
	return batch, nil
}

func (s *Source) SyncWrite(groupName string, serverHandles []uint32, values []any) ([]int32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return nil, ErrNotConnected
	}
	g, exists := s.groups[groupName]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGroup, groupName)
	}

	codes := make([]int32, len(serverHandles))
	for i, h := range serverHandles {
		it, live := g.items[h]
		if !live {
			codes[i] = remote.CodeInvalidItemID
			continue
		}
		if s.readOnly[it.tag] {
			codes[i] = remote.CodeBadRights
			continue
		}
		s.values[it.tag] = values[i]
	}
	return codes, nil
}

func (s *Source) AsyncRefresh(groupName string, source remote.DataSource, transactionID uint16) error {
	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return ErrNotConnected
	}
	if _, exists := s.groups[groupName]; !exists {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownGroup, groupName)
	}
	latency := s.latency
	s.mu.Unlock()

	// The callback snapshots the group at delivery time, the way a real
	// server reports whatever is subscribed when the refresh completes.
	time.AfterFunc(latency, func() {
		s.deliver(groupName, transactionID)
	})
	return nil
}

func (s *Source) deliver(groupName string, transactionID uint16) {
	s.mu.Lock()
	g, exists := s.groups[groupName]
	if !exists {
		s.mu.Unlock()
		return
	}
	cb := remote.Callback{TransactionID: transactionID, Group: groupName}
	now := s.now()
	for _, it := range g.items {
		cb.ClientHandles = append(cb.ClientHandles, it.clientHandle)
		cb.Values = append(cb.Values, s.values[it.tag])
		cb.Qualities = append(cb.Qualities, s.qualities[it.tag])
		cb.Timestamps = append(cb.Timestamps, now)
	}
	s.mu.Unlock()

	s.callbacks <- cb
}

func (s *Source) Callbacks() <-chan remote.Callback {
	return s.callbacks
}

func (s *Source) ErrorString(code int32) string {
	return remote.CodeString(code)
}

var _ remote.Source = (*Source)(nil)
