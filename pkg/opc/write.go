package opc

import (
	"context"
	"time"

	"github.com/openda-project/openda-go/pkg/remote"
	"github.com/openda-project/openda-go/pkg/trace"
)

// Write writes the tag/value pairs to the server and returns one
// WriteResult per pair, in request order. Each call builds one or more
// transient groups (sized by WriteOptions.Size) that are removed when the
// chunk completes, whatever the outcome. A tag is reported Success only if
// validation, add, and write all succeeded for it.
func (c *Client) Write(ctx context.Context, pairs []TagValue, opts WriteOptions) ([]WriteResult, error) {
	if err := checkPairs(pairs); err != nil {
		return nil, err
	}
	if !c.connected {
		return nil, ErrNotConnected
	}

	chunks := chunkPairs(pairs, opts.Size)

	results := make([]WriteResult, 0, len(pairs))
	for i, chunk := range chunks {
		if i > 0 && opts.Pause > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(opts.Pause):
			}
		}

		chunkResults, err := c.writeChunk(chunk, opts)
		if err != nil {
			return nil, err
		}
		results = append(results, chunkResults...)
	}
	return results, nil
}

// WriteOne writes a single tag/value pair and returns its WriteResult.
// This is the single-pair call shape; Write is the list shape.
func (c *Client) WriteOne(ctx context.Context, tag string, value any, opts WriteOptions) (WriteResult, error) {
	results, err := c.Write(ctx, []TagValue{{Tag: tag, Value: value}}, opts)
	if err != nil {
		return WriteResult{}, err
	}
	return results[0], nil
}

// writeChunk writes one chunk of pairs through a transient group. The
// group is removed before returning, regardless of outcome.
func (c *Client) writeChunk(pairs []TagValue, opts WriteOptions) ([]WriteResult, error) {
	sub := c.nextAnonGroup()

	tags := make([]string, len(pairs))
	valueByTag := make(map[string]any, len(pairs))
	for i, p := range pairs {
		tags[i] = p.Tag
		valueByTag[p.Tag] = p.Value
	}

	validTags, serverHandles, errText, err := c.groups.createSubGroup(sub, tags, 0, opts.IncludeError)
	if err != nil {
		return nil, err
	}
	// Transient groups never outlive their chunk.
	defer func() { _ = c.groups.removeSubGroup(sub) }()

	var codes []int32
	if len(validTags) > 0 {
		values := make([]any, len(validTags))
		for i, tag := range validTags {
			values[i] = valueByTag[tag]
		}

		start := time.Now()
		codes, err = c.src.SyncWrite(sub, serverHandles, values)
		c.emit(trace.Event{
			Op:       trace.OpSyncWrite,
			Group:    sub,
			TagCount: len(validTags),
			Duration: time.Since(start),
			Error:    errString(err),
		})
		if err != nil {
			return nil, &RemoteError{Op: "SyncWrite", Group: sub, Err: err}
		}
		if len(codes) != len(validTags) {
			return nil, &RemoteError{Op: "SyncWrite", Group: sub, Err: errShortBatch}
		}
	}

	// validTags preserves request order, so a single cursor pairs each
	// valid tag with its write status.
	results := make([]WriteResult, 0, len(pairs))
	n := 0
	for _, p := range pairs {
		r := WriteResult{Tag: p.Tag, Status: StatusError}
		if n < len(validTags) && validTags[n] == p.Tag {
			if codes[n] == remote.CodeOK {
				r.Status = StatusSuccess
			} else if opts.IncludeError {
				r.Error = cleanErrorString(c.src.ErrorString(codes[n]))
			}
			n++
		} else if opts.IncludeError {
			r.Error = errText[p.Tag]
		}
		results = append(results, r)
	}
	return results, nil
}

// checkPairs validates the shape of a pairs argument.
func checkPairs(pairs []TagValue) error {
	if len(pairs) == 0 {
		return &InputError{Reason: "pairs must be a non-empty list of tag/value pairs"}
	}
	for _, p := range pairs {
		if p.Tag == "" {
			return &InputError{Reason: "pairs must not contain empty tag names"}
		}
		if isHealthTag(p.Tag) {
			return &InputError{Reason: "system health tags are read-only"}
		}
	}
	return nil
}

// chunkPairs splits pairs into chunks of at most size entries, preserving
// order. A non-positive size yields a single chunk.
func chunkPairs(pairs []TagValue, size int) [][]TagValue {
	if size <= 0 || size >= len(pairs) {
		return [][]TagValue{pairs}
	}
	chunks := make([][]TagValue, 0, (len(pairs)+size-1)/size)
	for start := 0; start < len(pairs); start += size {
		end := start + size
		if end > len(pairs) {
			end = len(pairs)
		}
		chunks = append(chunks, pairs[start:end])
	}
	return chunks
}
