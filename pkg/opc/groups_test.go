package opc

import (
	"context"
	"errors"
	"testing"
)

func TestCreateNamedGroupChunksAndPersistsCount(t *testing.T) {
	c, src := connectedClient(map[string]any{"T1": 1, "T2": 2, "T3": 3})

	_, err := c.Read(context.Background(), []string{"T1", "T2", "T3"}, ReadOptions{
		Group: "plant", Size: 2, Sync: true,
	})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if got := c.groups.subGroupCount("plant"); got != 2 {
		t.Errorf("sub-group count = %d, want 2", got)
	}
	if !src.groups["plant.0"] || !src.groups["plant.1"] {
		t.Errorf("remote groups = %v, want plant.0 and plant.1", src.groups)
	}
	if len(src.items["plant.0"]) != 2 || len(src.items["plant.1"]) != 1 {
		t.Errorf("item split = %d/%d, want 2/1",
			len(src.items["plant.0"]), len(src.items["plant.1"]))
	}
}

func TestRemoveGroupRemovesAllSubGroupsAndHandles(t *testing.T) {
	c, src := connectedClient(map[string]any{"T1": 1, "T2": 2, "T3": 3})
	ctx := context.Background()

	if _, err := c.Read(ctx, []string{"T1", "T2", "T3"}, ReadOptions{Group: "plant", Size: 2, Sync: true}); err != nil {
		t.Fatalf("Read: %v", err)
	}

	if err := c.Remove("plant"); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	if src.groups["plant.0"] || src.groups["plant.1"] {
		t.Error("remote sub-groups survived Remove")
	}
	for _, sub := range []string{"plant.0", "plant.1"} {
		if c.handles.entryCount(sub) != 0 {
			t.Errorf("handle entries for %s survived Remove", sub)
		}
	}
	if len(c.Groups()) != 0 {
		t.Errorf("Groups() = %v, want empty", c.Groups())
	}
}

func TestRemoveUnknownGroupIsNoOp(t *testing.T) {
	c, _ := connectedClient(map[string]any{"T1": 1})

	if err := c.Remove("never-created"); err != nil {
		t.Errorf("Remove of unknown group: %v", err)
	}
}

func TestRemoveGroupFailureIsFatal(t *testing.T) {
	c, src := connectedClient(map[string]any{"T1": 1})
	ctx := context.Background()

	if _, err := c.Read(ctx, []string{"T1"}, ReadOptions{Group: "g", Sync: true}); err != nil {
		t.Fatalf("Read: %v", err)
	}

	src.failRemoveGroup = errRemoteDown
	err := c.Remove("g")

	var re *RemoteError
	if !errors.As(err, &re) || re.Op != "RemoveGroup" {
		t.Fatalf("Remove error = %v, want *RemoteError{Op: RemoveGroup}", err)
	}
}

func TestRebuildAddsAndRemovesByDiff(t *testing.T) {
	c, src := connectedClient(map[string]any{"T1": 1, "T2": 2, "T3": 3})
	ctx := context.Background()

	if _, err := c.Read(ctx, []string{"T1", "T2"}, ReadOptions{Group: "g", Sync: true}); err != nil {
		t.Fatalf("initial Read: %v", err)
	}

	// T2 drops out, T3 comes in.
	if _, err := c.Read(ctx, []string{"T1", "T3"}, ReadOptions{Group: "g", Sync: true, Rebuild: true}); err != nil {
		t.Fatalf("rebuild Read: %v", err)
	}

	if _, live := src.items["g.0"]["T2"]; live {
		t.Error("T2 still live after rebuild removed it")
	}
	if _, live := src.items["g.0"]["T3"]; !live {
		t.Error("T3 not live after rebuild added it")
	}
	_, valid := c.groups.cached("g.0")
	if len(valid) != 2 {
		t.Errorf("valid set after rebuild = %v, want [T1 T3]", valid)
	}
}

func TestRebuildIsIdempotent(t *testing.T) {
	c, src := connectedClient(map[string]any{"T1": 1, "T2": 2})
	ctx := context.Background()

	if _, err := c.Read(ctx, []string{"T1", "T2"}, ReadOptions{Group: "g", Sync: true}); err != nil {
		t.Fatalf("initial Read: %v", err)
	}
	if _, err := c.Read(ctx, []string{"T1"}, ReadOptions{Group: "g", Sync: true, Rebuild: true}); err != nil {
		t.Fatalf("first rebuild: %v", err)
	}

	addCalls := src.calls["AddItems"]
	removeCalls := src.calls["RemoveItems"]

	// Same tag set again: no further add/remove traffic.
	if _, err := c.Read(ctx, []string{"T1"}, ReadOptions{Group: "g", Sync: true, Rebuild: true}); err != nil {
		t.Fatalf("second rebuild: %v", err)
	}

	if src.calls["AddItems"] != addCalls {
		t.Errorf("AddItems called %d extra times on idempotent rebuild", src.calls["AddItems"]-addCalls)
	}
	if src.calls["RemoveItems"] != removeCalls {
		t.Errorf("RemoveItems called %d extra times on idempotent rebuild", src.calls["RemoveItems"]-removeCalls)
	}
}

func TestConnectInvalidatesCachedGroups(t *testing.T) {
	c, _ := connectedClient(map[string]any{"T1": 1})
	ctx := context.Background()

	if _, err := c.Read(ctx, []string{"T1"}, ReadOptions{Group: "g", Sync: true}); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(c.Groups()) != 1 {
		t.Fatalf("Groups() = %v, want [g]", c.Groups())
	}

	// Reconnect: all cached group and handle state is invalid.
	if err := c.Connect("Fake.OPCServer.1", "localhost"); err != nil {
		t.Fatalf("reconnect: %v", err)
	}

	if len(c.Groups()) != 0 {
		t.Errorf("Groups() after reconnect = %v, want empty", c.Groups())
	}
	if c.handles.entryCount("g.0") != 0 {
		t.Error("handle entries survived reconnect")
	}
}
