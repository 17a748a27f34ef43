package opc

// handleRegistry keeps the bidirectional tag/handle maps for every
// sub-group in the session. Within a sub-group, client handle to tag and
// tag to server handle are both injective; entries exist exactly for the
// items currently live on the server.
type handleRegistry struct {
	tagByClient map[string]map[uint32]string
	serverByTag map[string]map[string]uint32
}

func newHandleRegistry() *handleRegistry {
	return &handleRegistry{
		tagByClient: make(map[string]map[uint32]string),
		serverByTag: make(map[string]map[string]uint32),
	}
}

// allocateClientHandles assigns one client handle per tag, continuing from
// max(existing)+1 so a handle is never reused for a different tag while its
// item remains live. The tag mapping is recorded immediately.
func (r *handleRegistry) allocateClientHandles(subGroup string, tags []string) []uint32 {
	m := r.tagByClient[subGroup]
	if m == nil {
		m = make(map[uint32]string)
		r.tagByClient[subGroup] = m
	}

	var next uint32
	for h := range m {
		if h >= next {
			next = h + 1
		}
	}

	handles := make([]uint32, len(tags))
	for i, tag := range tags {
		handles[i] = next
		m[next] = tag
		next++
	}
	return handles
}

// releaseClientHandle drops a client handle whose item never became live
// (its add failed after allocation).
func (r *handleRegistry) releaseClientHandle(subGroup string, handle uint32) {
	delete(r.tagByClient[subGroup], handle)
}

// recordServerHandle records the server handle assigned to a tag's item.
func (r *handleRegistry) recordServerHandle(subGroup, tag string, server uint32) {
	m := r.serverByTag[subGroup]
	if m == nil {
		m = make(map[string]uint32)
		r.serverByTag[subGroup] = m
	}
	m[tag] = server
}

// tagForClientHandle resolves a client handle back to its tag.
func (r *handleRegistry) tagForClientHandle(subGroup string, handle uint32) (string, bool) {
	tag, ok := r.tagByClient[subGroup][handle]
	return tag, ok
}

// serverHandle resolves a tag to its server handle.
func (r *handleRegistry) serverHandle(subGroup, tag string) (uint32, bool) {
	h, ok := r.serverByTag[subGroup][tag]
	return h, ok
}

// serverHandles resolves server handles for the given tags, skipping tags
// with no live item.
func (r *handleRegistry) serverHandles(subGroup string, tags []string) []uint32 {
	handles := make([]uint32, 0, len(tags))
	for _, tag := range tags {
		if h, ok := r.serverByTag[subGroup][tag]; ok {
			handles = append(handles, h)
		}
	}
	return handles
}

// removeTag drops both map entries for a tag whose item was removed.
func (r *handleRegistry) removeTag(subGroup, tag string) {
	if m := r.tagByClient[subGroup]; m != nil {
		for h, t := range m {
			if t == tag {
				delete(m, h)
				break
			}
		}
	}
	delete(r.serverByTag[subGroup], tag)
}

// purge removes every entry for a sub-group.
func (r *handleRegistry) purge(subGroup string) {
	delete(r.tagByClient, subGroup)
	delete(r.serverByTag, subGroup)
}

// reset clears the whole registry. Used when the connection is
// (re)established and all server-side state is invalid.
func (r *handleRegistry) reset() {
	r.tagByClient = make(map[string]map[uint32]string)
	r.serverByTag = make(map[string]map[string]uint32)
}

// entryCount returns the number of live client-handle entries for a
// sub-group.
func (r *handleRegistry) entryCount(subGroup string) int {
	return len(r.tagByClient[subGroup])
}
