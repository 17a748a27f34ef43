package opc

import "testing"

func TestAllocateClientHandlesFromZero(t *testing.T) {
	r := newHandleRegistry()

	handles := r.allocateClientHandles("g.0", []string{"T1", "T2", "T3"})

	want := []uint32{0, 1, 2}
	for i, h := range want {
		if handles[i] != h {
			t.Errorf("handle[%d] = %d, want %d", i, handles[i], h)
		}
	}
}

func TestAllocateClientHandlesContinuesFromMax(t *testing.T) {
	r := newHandleRegistry()
	r.allocateClientHandles("g.0", []string{"T1", "T2"})

	handles := r.allocateClientHandles("g.0", []string{"T3"})

	if handles[0] != 2 {
		t.Errorf("incremental handle = %d, want 2", handles[0])
	}
}

func TestAllocateClientHandlesNeverReusesLiveHandle(t *testing.T) {
	r := newHandleRegistry()
	first := r.allocateClientHandles("g.0", []string{"T1", "T2"})
	second := r.allocateClientHandles("g.0", []string{"T3", "T4"})

	seen := make(map[uint32]string)
	check := func(handles []uint32, tags []string) {
		for i, h := range handles {
			if prev, ok := seen[h]; ok {
				t.Errorf("handle %d assigned to both %s and %s", h, prev, tags[i])
			}
			seen[h] = tags[i]
		}
	}
	check(first, []string{"T1", "T2"})
	check(second, []string{"T3", "T4"})

	// Round trip: every live handle resolves to its tag.
	for h, tag := range seen {
		got, ok := r.tagForClientHandle("g.0", h)
		if !ok || got != tag {
			t.Errorf("tagForClientHandle(%d) = %q/%v, want %q", h, got, ok, tag)
		}
	}
}

func TestHandleReusedOnlyAfterExplicitRemove(t *testing.T) {
	r := newHandleRegistry()
	r.allocateClientHandles("g.0", []string{"T1", "T2"})
	r.recordServerHandle("g.0", "T2", 100)

	// T2 (handle 1) removed; next allocation continues from max+1, it
	// does not backfill the gap while other handles are live.
	r.removeTag("g.0", "T2")
	handles := r.allocateClientHandles("g.0", []string{"T3"})
	if handles[0] != 1 && handles[0] != 2 {
		t.Fatalf("handle after remove = %d", handles[0])
	}
	if tag, _ := r.tagForClientHandle("g.0", handles[0]); tag != "T3" {
		t.Errorf("reused handle resolves to %q, want T3", tag)
	}
	if _, ok := r.serverHandle("g.0", "T2"); ok {
		t.Error("server handle for removed tag still present")
	}
}

func TestHandleSpacesAreScopedPerSubGroup(t *testing.T) {
	r := newHandleRegistry()
	a := r.allocateClientHandles("g.0", []string{"T1"})
	b := r.allocateClientHandles("g.1", []string{"T2"})

	if a[0] != 0 || b[0] != 0 {
		t.Errorf("handles = %d/%d, want 0/0 (independent spaces)", a[0], b[0])
	}
}

func TestServerHandles(t *testing.T) {
	r := newHandleRegistry()
	r.allocateClientHandles("g.0", []string{"T1", "T2"})
	r.recordServerHandle("g.0", "T1", 11)
	r.recordServerHandle("g.0", "T2", 22)

	got := r.serverHandles("g.0", []string{"T1", "T2", "T3"})
	if len(got) != 2 || got[0] != 11 || got[1] != 22 {
		t.Errorf("serverHandles = %v, want [11 22]", got)
	}
}

func TestPurgeRemovesAllEntries(t *testing.T) {
	r := newHandleRegistry()
	r.allocateClientHandles("g.0", []string{"T1", "T2"})
	r.recordServerHandle("g.0", "T1", 11)

	r.purge("g.0")

	if r.entryCount("g.0") != 0 {
		t.Errorf("entryCount after purge = %d, want 0", r.entryCount("g.0"))
	}
	if _, ok := r.serverHandle("g.0", "T1"); ok {
		t.Error("server handle survived purge")
	}

	// Handle space restarts after purge.
	handles := r.allocateClientHandles("g.0", []string{"T9"})
	if handles[0] != 0 {
		t.Errorf("handle after purge = %d, want 0", handles[0])
	}
}
