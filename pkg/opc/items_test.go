package opc

import (
	"errors"
	"testing"

	"github.com/openda-project/openda-go/pkg/remote"
	"github.com/openda-project/openda-go/pkg/trace"
)

func newTestItemManager(src *fakeSource) *itemManager {
	return &itemManager{
		src:     src,
		handles: newHandleRegistry(),
		emit:    func(trace.Event) {},
	}
}

func TestAddItemsKeepsValidSubset(t *testing.T) {
	src := newFakeSource(map[string]any{"T1": 1, "T3": 3})
	src.AddGroup("g.0", 0)
	m := newTestItemManager(src)

	valid, servers, _ := m.addItems("g.0", []string{"T1", "T2", "T3"}, false)

	if len(valid) != 2 || valid[0] != "T1" || valid[1] != "T3" {
		t.Fatalf("valid = %v, want [T1 T3]", valid)
	}
	if len(servers) != 2 {
		t.Fatalf("server handles = %v, want 2 entries", servers)
	}
	for _, tag := range valid {
		if _, ok := m.handles.serverHandle("g.0", tag); !ok {
			t.Errorf("no server handle recorded for %s", tag)
		}
	}
	// The invalid tag must leave no handle entries behind.
	if m.handles.entryCount("g.0") != 2 {
		t.Errorf("entryCount = %d, want 2", m.handles.entryCount("g.0"))
	}
}

func TestAddItemsErrorTextForInvalidTag(t *testing.T) {
	src := newFakeSource(map[string]any{"T1": 1})
	src.AddGroup("g.0", 0)
	m := newTestItemManager(src)

	_, _, errText := m.addItems("g.0", []string{"T1", "Nope"}, true)

	if errText["Nope"] == "" {
		t.Error("expected error text for invalid tag")
	}
	if _, ok := errText["T1"]; ok {
		t.Error("unexpected error text for valid tag")
	}
}

func TestAddItemsValidationCallFailureDegradesToAllInvalid(t *testing.T) {
	src := newFakeSource(map[string]any{"T1": 1, "T2": 2})
	src.AddGroup("g.0", 0)
	src.failValidate = errRemoteDown
	m := newTestItemManager(src)

	valid, servers, _ := m.addItems("g.0", []string{"T1", "T2"}, false)

	if len(valid) != 0 || len(servers) != 0 {
		t.Errorf("valid = %v after validation failure, want none", valid)
	}
	if src.calls["AddItems"] != 0 {
		t.Error("AddItems called although every tag degraded to invalid")
	}
}

func TestAddItemsAddFailureDropsTagFromValidSet(t *testing.T) {
	src := newFakeSource(map[string]any{"T1": 1, "T2": 2})
	src.AddGroup("g.0", 0)
	src.addCode["T2"] = remote.CodeBadRights
	m := newTestItemManager(src)

	valid, _, errText := m.addItems("g.0", []string{"T1", "T2"}, true)

	if len(valid) != 1 || valid[0] != "T1" {
		t.Fatalf("valid = %v, want [T1]", valid)
	}
	if errText["T2"] == "" {
		t.Error("expected error text for tag that failed add")
	}
	// The released handle leaves only T1's entry live.
	if m.handles.entryCount("g.0") != 1 {
		t.Errorf("entryCount = %d, want 1", m.handles.entryCount("g.0"))
	}
}

func TestAddItemsWholeCallAddFailureDegrades(t *testing.T) {
	src := newFakeSource(map[string]any{"T1": 1})
	src.AddGroup("g.0", 0)
	src.failAddItems = errRemoteDown
	m := newTestItemManager(src)

	valid, _, _ := m.addItems("g.0", []string{"T1"}, false)

	if len(valid) != 0 {
		t.Errorf("valid = %v after add-call failure, want none", valid)
	}
	if m.handles.entryCount("g.0") != 0 {
		t.Error("allocated handles not released after add-call failure")
	}
}

func TestRemoveItemsPurgesHandles(t *testing.T) {
	src := newFakeSource(map[string]any{"T1": 1, "T2": 2})
	src.AddGroup("g.0", 0)
	m := newTestItemManager(src)
	m.addItems("g.0", []string{"T1", "T2"}, false)

	if err := m.removeItems("g.0", []string{"T1"}); err != nil {
		t.Fatalf("removeItems: %v", err)
	}

	if _, ok := m.handles.serverHandle("g.0", "T1"); ok {
		t.Error("server handle for removed tag still present")
	}
	if _, ok := m.handles.serverHandle("g.0", "T2"); !ok {
		t.Error("server handle for surviving tag was purged")
	}
}

func TestRemoveItemsFailureIsFatal(t *testing.T) {
	src := newFakeSource(map[string]any{"T1": 1})
	src.AddGroup("g.0", 0)
	m := newTestItemManager(src)
	m.addItems("g.0", []string{"T1"}, false)

	src.failRemoveItems = errRemoteDown
	err := m.removeItems("g.0", []string{"T1"})

	var re *RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("removeItems error = %v, want *RemoteError", err)
	}
	if re.Op != "RemoveItems" {
		t.Errorf("Op = %q, want RemoveItems", re.Op)
	}
	if !errors.Is(err, errRemoteDown) {
		t.Error("remote error text not wrapped")
	}
}
