package opc

import (
	"strings"
	"time"

	"github.com/openda-project/openda-go/pkg/remote"
	"github.com/openda-project/openda-go/pkg/trace"
)

// itemManager validates tags against the remote source and adds/removes
// items within a sub-group, keeping the handle registry in step.
type itemManager struct {
	src     remote.Source
	handles *handleRegistry
	emit    func(trace.Event)
}

// addItems validates tags, adds the valid subset to the sub-group, and
// returns the tags that are actually usable for reads and writes, strictly
// a subset of the requested tags, together with their server handles.
//
// Tag-level failures never abort the call. A whole-call validation failure
// degrades to "all tags invalid"; a whole-call add failure degrades to "no
// items added". When includeError is set, the returned map carries the
// remote error text per failed tag.
func (m *itemManager) addItems(subGroup string, tags []string, includeError bool) (validTags []string, serverHandles []uint32, errText map[string]string) {
	if includeError {
		errText = make(map[string]string)
	}

	start := time.Now()
	codes, err := m.src.Validate(subGroup, tags)
	m.emit(trace.Event{
		Op:       trace.OpValidate,
		Group:    subGroup,
		TagCount: len(tags),
		Duration: time.Since(start),
		Error:    errString(err),
	})
	if err != nil || len(codes) != len(tags) {
		// The validation call itself failed. Treat every tag as invalid
		// rather than aborting; validation failures are per-tag and
		// recoverable.
		codes = make([]int32, len(tags))
		for i := range codes {
			codes[i] = remote.CodeUnknownItemID
		}
	}

	candidates := make([]string, 0, len(tags))
	for i, tag := range tags {
		if codes[i] == remote.CodeOK {
			candidates = append(candidates, tag)
		} else if includeError {
			errText[tag] = cleanErrorString(m.src.ErrorString(codes[i]))
		}
	}
	if len(candidates) == 0 {
		return nil, nil, errText
	}

	clientHandles := m.handles.allocateClientHandles(subGroup, candidates)

	start = time.Now()
	servers, addCodes, err := m.src.AddItems(subGroup, candidates, clientHandles)
	m.emit(trace.Event{
		Op:       trace.OpAddItems,
		Group:    subGroup,
		TagCount: len(candidates),
		Duration: time.Since(start),
		Error:    errString(err),
	})
	if err != nil || len(servers) != len(candidates) || len(addCodes) != len(candidates) {
		// The add call itself failed: no items became live. Release the
		// handles allocated above so they can be reused.
		for i, tag := range candidates {
			m.handles.releaseClientHandle(subGroup, clientHandles[i])
			if includeError {
				errText[tag] = errString(err)
			}
		}
		return nil, nil, errText
	}

	validTags = make([]string, 0, len(candidates))
	serverHandles = make([]uint32, 0, len(candidates))
	for i, tag := range candidates {
		if addCodes[i] == remote.CodeOK {
			validTags = append(validTags, tag)
			serverHandles = append(serverHandles, servers[i])
			m.handles.recordServerHandle(subGroup, tag, servers[i])
		} else {
			m.handles.releaseClientHandle(subGroup, clientHandles[i])
			if includeError {
				errText[tag] = cleanErrorString(m.src.ErrorString(addCodes[i]))
			}
		}
	}
	return validTags, serverHandles, errText
}

// removeItems removes the tags' items from the sub-group. A failure of the
// remove call is fatal: it leaves the handle bookkeeping inconsistent with
// the server, so it is propagated rather than swallowed.
func (m *itemManager) removeItems(subGroup string, tags []string) error {
	servers := m.handles.serverHandles(subGroup, tags)

	start := time.Now()
	_, err := m.src.RemoveItems(subGroup, servers)
	m.emit(trace.Event{
		Op:       trace.OpRemoveItems,
		Group:    subGroup,
		TagCount: len(tags),
		Duration: time.Since(start),
		Error:    errString(err),
	})
	if err != nil {
		return &RemoteError{Op: "RemoveItems", Group: subGroup, Err: err}
	}

	for _, tag := range tags {
		m.handles.removeTag(subGroup, tag)
	}
	return nil
}

// errString renders an error for trace events; nil becomes "".
func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// cleanErrorString strips the newline and carriage return characters OPC
// servers often embed in their error strings.
func cleanErrorString(s string) string {
	return strings.Trim(s, "\r\n")
}
