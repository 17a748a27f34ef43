package opc

import (
	"fmt"
	"sort"
	"time"

	"github.com/openda-project/openda-go/pkg/trace"
)

// groupManager owns the lifecycle of subscription groups and their
// sub-groups: creation, cached reuse, diff-driven rebuild, and teardown.
// Group metadata is session-private; removing a group purges every handle
// entry for its sub-groups.
type groupManager struct {
	src     sourceFacade
	items   *itemManager
	handles *handleRegistry
	emit    func(trace.Event)

	// counts records the sub-group count per named group, fixed when the
	// group is created and used for teardown.
	counts map[string]int

	// tags / valid cache the requested and validated tag sets per
	// sub-group.
	tags  map[string][]string
	valid map[string][]string
}

// sourceFacade is the subset of remote.Source the group manager needs.
type sourceFacade interface {
	AddGroup(name string, updateRate time.Duration) error
	RemoveGroup(name string) error
}

func newGroupManager(src sourceFacade, items *itemManager, handles *handleRegistry, emit func(trace.Event)) *groupManager {
	return &groupManager{
		src:     src,
		items:   items,
		handles: handles,
		emit:    emit,
		counts:  make(map[string]int),
		tags:    make(map[string][]string),
		valid:   make(map[string][]string),
	}
}

// subGroupName builds the server-visible name of a group's nth sub-group.
func subGroupName(group string, index int) string {
	return fmt.Sprintf("%s.%d", group, index)
}

// exists reports whether a named group is known to the session.
func (g *groupManager) exists(name string) bool {
	_, ok := g.counts[name]
	return ok
}

// subGroupCount returns the recorded sub-group count for a named group.
func (g *groupManager) subGroupCount(name string) int {
	return g.counts[name]
}

// recordGroup persists a named group's sub-group count. The count is fixed
// for the lifetime of the group.
func (g *groupManager) recordGroup(name string, count int) {
	g.counts[name] = count
}

// names returns the active group names, sorted.
func (g *groupManager) names() []string {
	names := make([]string, 0, len(g.counts))
	for name := range g.counts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// cached returns the cached requested and valid tag sets for an existing
// sub-group. This is the fast path: the remote source is not touched.
func (g *groupManager) cached(subGroup string) (tags, valid []string) {
	return g.tags[subGroup], g.valid[subGroup]
}

// createSubGroup creates the remote group and populates it with tags. The
// remote add-group failure is fatal; tag-level failures are reported through
// the returned valid set and error text.
func (g *groupManager) createSubGroup(subGroup string, tags []string, updateRate time.Duration, includeError bool) (valid []string, serverHandles []uint32, errText map[string]string, err error) {
	start := time.Now()
	err = g.src.AddGroup(subGroup, updateRate)
	g.emit(trace.Event{
		Op:       trace.OpAddGroup,
		Group:    subGroup,
		TagCount: len(tags),
		Duration: time.Since(start),
		Error:    errString(err),
	})
	if err != nil {
		return nil, nil, nil, &RemoteError{Op: "AddGroup", Group: subGroup, Err: err}
	}

	valid, serverHandles, errText = g.items.addItems(subGroup, tags, includeError)
	g.tags[subGroup] = tags
	g.valid[subGroup] = valid
	return valid, serverHandles, errText, nil
}

// rebuildSubGroup reconciles an existing sub-group's live item set against
// the requested tags: tags not yet valid are added, valid tags no longer
// requested are removed. It returns the updated valid set and whether any
// tags were added; freshly added items have no cached value, so the caller
// must read from the device in that case.
//
// Rebuilding with an unchanged tag set is a no-op: no remote calls are made.
func (g *groupManager) rebuildSubGroup(subGroup string, tags []string, includeError bool) (valid []string, added bool, errText map[string]string, err error) {
	prevValid := g.valid[subGroup]

	validSet := make(map[string]bool, len(prevValid))
	for _, t := range prevValid {
		validSet[t] = true
	}
	tagSet := make(map[string]bool, len(tags))
	for _, t := range tags {
		tagSet[t] = true
	}

	var addTags, delTags []string
	for _, t := range tags {
		if !validSet[t] {
			addTags = append(addTags, t)
		}
	}
	for _, t := range prevValid {
		if !tagSet[t] {
			delTags = append(delTags, t)
		}
	}

	valid = prevValid
	if len(addTags) > 0 {
		newValid, _, et := g.items.addItems(subGroup, addTags, includeError)
		valid = append(append([]string(nil), prevValid...), newValid...)
		if includeError {
			if errText == nil {
				errText = make(map[string]string)
			}
			for tag, text := range et {
				errText[tag] = text
			}
		}
	}

	if len(delTags) > 0 {
		if err := g.items.removeItems(subGroup, delTags); err != nil {
			return nil, false, nil, err
		}
		kept := make([]string, 0, len(valid))
		for _, t := range valid {
			if tagSet[t] {
				kept = append(kept, t)
			}
		}
		valid = kept
	}

	g.tags[subGroup] = tags
	g.valid[subGroup] = valid
	return valid, len(addTags) > 0, errText, nil
}

// removeSubGroup removes a sub-group from the server and purges every
// cached tag set and handle entry for it. A remote remove-group failure is
// fatal and propagated.
func (g *groupManager) removeSubGroup(subGroup string) error {
	start := time.Now()
	err := g.src.RemoveGroup(subGroup)
	g.emit(trace.Event{
		Op:       trace.OpRemoveGroup,
		Group:    subGroup,
		Duration: time.Since(start),
		Error:    errString(err),
	})
	if err != nil {
		return &RemoteError{Op: "RemoveGroup", Group: subGroup, Err: err}
	}

	delete(g.tags, subGroup)
	delete(g.valid, subGroup)
	g.handles.purge(subGroup)
	return nil
}

// remove tears down the named groups: every recorded sub-group is removed
// from the server and all associated bookkeeping is purged. A name not
// present is a no-op for that name.
func (g *groupManager) remove(names ...string) error {
	for _, name := range names {
		count, ok := g.counts[name]
		if !ok {
			continue
		}
		for i := 0; i < count; i++ {
			if err := g.removeSubGroup(subGroupName(name, i)); err != nil {
				return err
			}
		}
		delete(g.counts, name)
	}
	return nil
}

// invalidate drops all cached group state. Used on (re)connect, when every
// server-side group from the previous connection is gone.
func (g *groupManager) invalidate() {
	g.counts = make(map[string]int)
	g.tags = make(map[string][]string)
	g.valid = make(map[string][]string)
}
