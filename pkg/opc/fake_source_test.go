package opc

import (
	"errors"
	"fmt"
	"time"

	"github.com/openda-project/openda-go/pkg/remote"
)

// fakeSource is an in-memory remote.Source for exercising the session
// core. Tags registered in values are valid; validateCode/addCode inject
// per-tag failures; the fail* fields inject whole-call failures.
type fakeSource struct {
	values    map[string]any
	qualities map[string]uint16

	validateCode map[string]int32
	addCode      map[string]int32
	writeCode    map[string]int32

	groups     map[string]bool
	items      map[string]map[string]uint32 // group -> tag -> server handle
	clients    map[string]map[uint32]string // group -> client handle -> tag
	nextServer uint32

	callbacks chan remote.Callback

	now time.Time

	// Whole-call failure injection.
	failConnect     error
	failAddGroup    error
	failRemoveGroup error
	failValidate    error
	failAddItems    error
	failRemoveItems error
	failSyncRead    error
	failSyncWrite   error
	failRefresh     error

	// dropRefresh suppresses callback delivery for refreshes.
	dropRefresh bool

	// staleCallbacks are delivered ahead of every real callback.
	staleCallbacks []remote.Callback

	// Call counters.
	calls map[string]int
}

func newFakeSource(tags map[string]any) *fakeSource {
	qualities := make(map[string]uint16, len(tags))
	for tag := range tags {
		qualities[tag] = 0xC0 // Good
	}
	return &fakeSource{
		values:       tags,
		qualities:    qualities,
		validateCode: make(map[string]int32),
		addCode:      make(map[string]int32),
		writeCode:    make(map[string]int32),
		groups:       make(map[string]bool),
		items:        make(map[string]map[string]uint32),
		clients:      make(map[string]map[uint32]string),
		callbacks:    make(chan remote.Callback, 16),
		now:          time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		calls:        make(map[string]int),
	}
}

func (f *fakeSource) Connect(server, host string) error {
	f.calls["Connect"]++
	return f.failConnect
}

func (f *fakeSource) Disconnect() error {
	f.calls["Disconnect"]++
	return nil
}

func (f *fakeSource) AddGroup(name string, updateRate time.Duration) error {
	f.calls["AddGroup"]++
	if f.failAddGroup != nil {
		return f.failAddGroup
	}
	if f.groups[name] {
		return fmt.Errorf("group %q already exists", name)
	}
	f.groups[name] = true
	f.items[name] = make(map[string]uint32)
	f.clients[name] = make(map[uint32]string)
	return nil
}

func (f *fakeSource) RemoveGroup(name string) error {
	f.calls["RemoveGroup"]++
	if f.failRemoveGroup != nil {
		return f.failRemoveGroup
	}
	if !f.groups[name] {
		return fmt.Errorf("group %q does not exist", name)
	}
	delete(f.groups, name)
	delete(f.items, name)
	delete(f.clients, name)
	return nil
}

func (f *fakeSource) Validate(group string, tags []string) ([]int32, error) {
	f.calls["Validate"]++
	if f.failValidate != nil {
		return nil, f.failValidate
	}
	codes := make([]int32, len(tags))
	for i, tag := range tags {
		if code, ok := f.validateCode[tag]; ok {
			codes[i] = code
			continue
		}
		if _, ok := f.values[tag]; !ok {
			codes[i] = remote.CodeUnknownItemID
		}
	}
	return codes, nil
}

func (f *fakeSource) AddItems(group string, tags []string, clientHandles []uint32) ([]uint32, []int32, error) {
	f.calls["AddItems"]++
	if f.failAddItems != nil {
		return nil, nil, f.failAddItems
	}
	servers := make([]uint32, len(tags))
	codes := make([]int32, len(tags))
	for i, tag := range tags {
		if code, ok := f.addCode[tag]; ok && code != 0 {
			codes[i] = code
			continue
		}
		f.nextServer++
		servers[i] = f.nextServer
		f.items[group][tag] = f.nextServer
		f.clients[group][clientHandles[i]] = tag
	}
	return servers, codes, nil
}

func (f *fakeSource) RemoveItems(group string, serverHandles []uint32) ([]int32, error) {
	f.calls["RemoveItems"]++
	if f.failRemoveItems != nil {
		return nil, f.failRemoveItems
	}
	codes := make([]int32, len(serverHandles))
	for _, h := range serverHandles {
		for tag, sh := range f.items[group] {
			if sh == h {
				delete(f.items[group], tag)
				break
			}
		}
	}
	return codes, nil
}

func (f *fakeSource) SyncRead(group string, source remote.DataSource, serverHandles []uint32) (*remote.ReadBatch, error) {
	f.calls["SyncRead"]++
	f.calls["SyncRead."+source.String()]++
	if f.failSyncRead != nil {
		return nil, f.failSyncRead
	}
	batch := &remote.ReadBatch{
		Values:     make([]any, len(serverHandles)),
		Errors:     make([]int32, len(serverHandles)),
		Qualities:  make([]uint16, len(serverHandles)),
		Timestamps: make([]time.Time, len(serverHandles)),
	}
	for i, h := range serverHandles {
		tag := f.tagForServer(group, h)
		if tag == "" {
			batch.Errors[i] = remote.CodeUnknownItemID
			continue
		}
		batch.Values[i] = f.values[tag]
		batch.Qualities[i] = f.qualities[tag]
		batch.Timestamps[i] = f.now
	}
	return batch, nil
}

func (f *fakeSource) SyncWrite(group string, serverHandles []uint32, values []any) ([]int32, error) {
	f.calls["SyncWrite"]++
	if f.failSyncWrite != nil {
		return nil, f.failSyncWrite
	}
	codes := make([]int32, len(serverHandles))
	for i, h := range serverHandles {
		tag := f.tagForServer(group, h)
		if tag == "" {
			codes[i] = remote.CodeUnknownItemID
			continue
		}
		if code, ok := f.writeCode[tag]; ok && code != 0 {
			codes[i] = code
			continue
		}
		f.values[tag] = values[i]
	}
	return codes, nil
}

func (f *fakeSource) AsyncRefresh(group string, source remote.DataSource, transactionID uint16) error {
	f.calls["AsyncRefresh"]++
	if f.failRefresh != nil {
		return f.failRefresh
	}
	if f.dropRefresh {
		return nil
	}

	for _, stale := range f.staleCallbacks {
		f.callbacks <- stale
	}
	f.staleCallbacks = nil

	cb := remote.Callback{TransactionID: transactionID, Group: group}
	for client, tag := range f.clients[group] {
		if _, live := f.items[group][tag]; !live {
			continue
		}
		cb.ClientHandles = append(cb.ClientHandles, client)
		cb.Values = append(cb.Values, f.values[tag])
		cb.Qualities = append(cb.Qualities, f.qualities[tag])
		cb.Timestamps = append(cb.Timestamps, f.now)
	}
	f.callbacks <- cb
	return nil
}

func (f *fakeSource) Callbacks() <-chan remote.Callback {
	return f.callbacks
}

func (f *fakeSource) ErrorString(code int32) string {
	return remote.CodeString(code)
}

func (f *fakeSource) tagForServer(group string, handle uint32) string {
	for tag, h := range f.items[group] {
		if h == handle {
			return tag
		}
	}
	return ""
}

// connectedClient returns a connected client over a fake source holding
// the given tags.
func connectedClient(tags map[string]any, opts ...Option) (*Client, *fakeSource) {
	src := newFakeSource(tags)
	c := NewClient(src, opts...)
	if err := c.Connect("Fake.OPCServer.1", "localhost"); err != nil {
		panic(err)
	}
	return c, src
}

var errRemoteDown = errors.New("remote source unavailable")
