package opc

import (
	"context"
	"time"

	"github.com/openda-project/openda-go/pkg/remote"
	"github.com/openda-project/openda-go/pkg/trace"
)

// Read returns one Reading per requested tag, in request order. Tags
// prefixed with '@' are system-health pseudo-tags and are served by the
// configured HealthReader; mixing health and OPC tags in one call is an
// input error.
func (c *Client) Read(ctx context.Context, tags []string, opts ReadOptions) ([]Reading, error) {
	if err := checkTags(tags); err != nil {
		return nil, err
	}

	numHealth := 0
	for _, tag := range tags {
		if isHealthTag(tag) {
			numHealth++
		}
	}
	if numHealth > 0 {
		if numHealth < len(tags) {
			return nil, &InputError{Reason: "system health and OPC tags cannot be included in the same call"}
		}
		if c.health == nil {
			return nil, ErrNoHealthReader
		}
		return c.health.Read(tags)
	}

	return c.iread(ctx, tags, opts)
}

// ReadOne reads a single tag and returns its Reading. This is the
// single-tag call shape; Read is the list shape.
func (c *Client) ReadOne(ctx context.Context, tag string, opts ReadOptions) (Reading, error) {
	readings, err := c.Read(ctx, []string{tag}, opts)
	if err != nil {
		return Reading{}, err
	}
	return readings[0], nil
}

// subGroupPlan describes how one sub-group participates in a read.
type subGroupPlan struct {
	sub  string
	mode planMode

	// tags is the requested tag set for this sub-group. Nil for the
	// cached fast path, where the recorded set is used.
	tags []string
}

type planMode uint8

const (
	planCached planMode = iota
	planCreate
	planRebuild
)

// iread executes a read across the sub-groups of one group (named,
// anonymous, or freshly created), assembling per-tag results in request
// order. A RemoteError on any sub-group aborts the whole read.
func (c *Client) iread(ctx context.Context, tags []string, o ReadOptions) ([]Reading, error) {
	if !c.connected {
		return nil, ErrNotConnected
	}

	// Per-tag error detail only exists on the synchronous path.
	if o.IncludeError {
		o.Sync = true
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}

	plans, existed := c.buildPlans(tags, o)

	// A new named group is recorded once its first sub-group exists on the
	// remote side, so a creation failure leaves nothing behind to Remove.
	record := o.Group != "" && !c.groups.exists(o.Group)

	results := make([]Reading, 0, len(tags))
	for i, plan := range plans {
		if i > 0 && o.Pause > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(o.Pause):
			}
		}

		readings, err := c.readSubGroup(ctx, plan, existed, o)
		if record {
			// Record as soon as the first sub-group exists remotely, even
			// when the read on it failed, so Remove can clean it up.
			if reqTags, _ := c.groups.cached(plan.sub); reqTags != nil {
				c.groups.recordGroup(o.Group, len(plans))
				record = false
			}
		}
		if err != nil {
			if o.Group == "" {
				// Best-effort cleanup of the transient group; the read
				// error is the one that matters.
				_ = c.groups.removeSubGroup(plan.sub)
			}
			return nil, err
		}
		results = append(results, readings...)

		if o.Group == "" {
			// Anonymous groups are single-use: destroy immediately so the
			// caller never sees one accumulate state across calls.
			if err := c.groups.removeSubGroup(plan.sub); err != nil {
				return nil, err
			}
		}
	}
	return results, nil
}

// buildPlans resolves the group name and tag set into per-sub-group plans.
// existed reports whether the named group was reused untouched (the cached
// fast path), which is what the hybrid source policy keys on.
func (c *Client) buildPlans(tags []string, o ReadOptions) ([]subGroupPlan, bool) {
	// Anonymous: one fresh transient sub-group per chunk.
	if o.Group == "" {
		chunks := chunkTags(tags, o.Size)
		plans := make([]subGroupPlan, len(chunks))
		for i, chunk := range chunks {
			plans[i] = subGroupPlan{sub: c.nextAnonGroup(), mode: planCreate, tags: chunk}
		}
		return plans, false
	}

	// Existing named group, no rebuild: reuse the recorded sub-group
	// count and cached tag sets without touching the remote source.
	if c.groups.exists(o.Group) && !o.Rebuild {
		count := c.groups.subGroupCount(o.Group)
		plans := make([]subGroupPlan, count)
		for i := range plans {
			plans[i] = subGroupPlan{sub: subGroupName(o.Group, i), mode: planCached}
		}
		return plans, true
	}

	chunks := chunkTags(tags, o.Size)

	// New named group: one sub-group per chunk. The chunk count is
	// persisted for the lifetime of the group by iread, once the first
	// sub-group is actually created, so a failed creation never records a
	// phantom group.
	if !c.groups.exists(o.Group) {
		plans := make([]subGroupPlan, len(chunks))
		for i, chunk := range chunks {
			plans[i] = subGroupPlan{sub: subGroupName(o.Group, i), mode: planCreate, tags: chunk}
		}
		return plans, false
	}

	// Rebuild of an existing group: diff each recorded sub-group against
	// its new chunk. A chunk past the recorded count creates a new
	// sub-group (and raises the count, so teardown still sees every
	// sub-group); a recorded sub-group past the chunk count is diffed
	// against the empty set, dropping all of its items.
	count := c.groups.subGroupCount(o.Group)
	n := count
	if len(chunks) > n {
		n = len(chunks)
		c.groups.recordGroup(o.Group, n)
	}
	plans := make([]subGroupPlan, n)
	for i := 0; i < n; i++ {
		var chunk []string
		if i < len(chunks) {
			chunk = chunks[i]
		}
		mode := planRebuild
		if i >= count {
			mode = planCreate
		}
		plans[i] = subGroupPlan{sub: subGroupName(o.Group, i), mode: mode, tags: chunk}
	}
	return plans, false
}

// readSubGroup resolves one sub-group's item set and performs the sync or
// async read against it.
func (c *Client) readSubGroup(ctx context.Context, plan subGroupPlan, existed bool, o ReadOptions) ([]Reading, error) {
	var (
		reqTags   []string
		validTags []string
		errText   map[string]string
		added     bool
		err       error
	)

	switch plan.mode {
	case planCreate:
		reqTags = plan.tags
		validTags, _, errText, err = c.groups.createSubGroup(plan.sub, plan.tags, o.UpdateRate, o.IncludeError)
		if err != nil {
			return nil, err
		}
	case planRebuild:
		reqTags = plan.tags
		validTags, added, errText, err = c.groups.rebuildSubGroup(plan.sub, plan.tags, o.IncludeError)
		if err != nil {
			return nil, err
		}
	default:
		reqTags, validTags = c.groups.cached(plan.sub)
	}

	ds := c.resolveDataSource(o.Source, existed, added)

	if o.Sync {
		return c.syncSubRead(plan.sub, reqTags, validTags, errText, ds, o.IncludeError)
	}
	return c.asyncSubRead(ctx, plan.sub, reqTags, validTags, ds, o.Timeout)
}

// resolveDataSource applies the source policy. Freshly added items have no
// cached value yet, so a rebuild that added tags always reads from the
// device, whatever the caller asked for.
func (c *Client) resolveDataSource(mode SourceMode, existed, rebuiltWithAdds bool) remote.DataSource {
	if rebuiltWithAdds {
		return remote.SourceDevice
	}
	switch mode {
	case SourceCache:
		return remote.SourceCache
	case SourceDevice:
		return remote.SourceDevice
	default:
		if existed {
			return remote.SourceCache
		}
		return remote.SourceDevice
	}
}

// syncSubRead reads the sub-group's valid items synchronously and
// assembles one Reading per requested tag.
func (c *Client) syncSubRead(subGroup string, reqTags, validTags []string, errText map[string]string, ds remote.DataSource, includeError bool) ([]Reading, error) {
	tagValue := make(map[string]any)
	tagQuality := make(map[string]uint16)
	tagTime := make(map[string]time.Time)
	tagError := make(map[string]int32)

	if len(validTags) > 0 {
		servers := c.handles.serverHandles(subGroup, validTags)

		start := time.Now()
		batch, err := c.src.SyncRead(subGroup, ds, servers)
		c.emit(trace.Event{
			Op:       trace.OpSyncRead,
			Group:    subGroup,
			TagCount: len(servers),
			Source:   ds.String(),
			Duration: time.Since(start),
			Error:    errString(err),
		})
		if err != nil {
			return nil, &RemoteError{Op: "SyncRead", Group: subGroup, Err: err}
		}
		if len(batch.Values) != len(validTags) || len(batch.Errors) != len(validTags) {
			return nil, &RemoteError{Op: "SyncRead", Group: subGroup, Err: errShortBatch}
		}

		for i, tag := range validTags {
			tagValue[tag] = batch.Values[i]
			tagQuality[tag] = batch.Qualities[i]
			tagTime[tag] = batch.Timestamps[i]
			tagError[tag] = batch.Errors[i]
		}
	}

	results := make([]Reading, 0, len(reqTags))
	for _, tag := range reqTags {
		r := Reading{Tag: tag, Quality: QualityError}
		if v, ok := tagValue[tag]; ok && tagError[tag] == remote.CodeOK {
			r.Value = v
			r.Quality = remote.QualityString(tagQuality[tag])
			r.Timestamp = tagTime[tag].Format(time.RFC3339Nano)
		}
		if includeError {
			if code, ok := tagError[tag]; ok && code != remote.CodeOK {
				r.Error = cleanErrorString(c.src.ErrorString(code))
			} else if text, ok := errText[tag]; ok {
				r.Error = text
			}
		}
		results = append(results, r)
	}
	return results, nil
}

// asyncSubRead issues an asynchronous refresh for the sub-group and blocks
// until the matching callback arrives or the timeout elapses. Per-tag error
// detail is not available on this path: a tag simply present or absent from
// the callback.
func (c *Client) asyncSubRead(ctx context.Context, subGroup string, reqTags, validTags []string, ds remote.DataSource, timeout time.Duration) ([]Reading, error) {
	tagValue := make(map[string]any)
	tagQuality := make(map[string]uint16)
	tagTime := make(map[string]time.Time)

	if len(validTags) > 0 {
		txID := c.nextTransactionID()

		start := time.Now()
		err := c.src.AsyncRefresh(subGroup, ds, txID)
		c.emit(trace.Event{
			Op:            trace.OpAsyncRefresh,
			Group:         subGroup,
			TagCount:      len(validTags),
			TransactionID: txID,
			Source:        ds.String(),
			Duration:      time.Since(start),
			Error:         errString(err),
		})
		if err != nil {
			return nil, &RemoteError{Op: "AsyncRefresh", Group: subGroup, Err: err}
		}

		cb, err := c.waitCallback(ctx, txID, timeout)
		c.emit(trace.Event{
			Op:            trace.OpCallback,
			Group:         subGroup,
			TagCount:      len(cb.ClientHandles),
			TransactionID: txID,
			Duration:      time.Since(start),
			Error:         errString(err),
		})
		if err != nil {
			return nil, err
		}

		for i, h := range cb.ClientHandles {
			tag, ok := c.handles.tagForClientHandle(subGroup, h)
			if !ok {
				// Handle no longer live (item removed since the refresh);
				// nothing to correlate it to.
				continue
			}
			tagValue[tag] = cb.Values[i]
			tagQuality[tag] = cb.Qualities[i]
			tagTime[tag] = cb.Timestamps[i]
		}
	}

	results := make([]Reading, 0, len(reqTags))
	for _, tag := range reqTags {
		r := Reading{Tag: tag, Quality: QualityError}
		if v, ok := tagValue[tag]; ok {
			r.Value = v
			r.Quality = remote.QualityString(tagQuality[tag])
			r.Timestamp = tagTime[tag].Format(time.RFC3339Nano)
		}
		results = append(results, r)
	}
	return results, nil
}

// waitCallback blocks until the callback bearing txID arrives on the
// source's callback channel, the timeout elapses, or ctx is cancelled.
// Callbacks with a different transaction ID are stale deliveries from an
// abandoned refresh and are discarded, never matched to this request.
func (c *Client) waitCallback(ctx context.Context, txID uint16, timeout time.Duration) (remote.Callback, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return remote.Callback{}, ctx.Err()
		case <-deadline.C:
			return remote.Callback{}, ErrCallbackTimeout
		case cb, ok := <-c.src.Callbacks():
			if !ok {
				return remote.Callback{}, ErrNotConnected
			}
			if cb.TransactionID == txID {
				return cb, nil
			}
			// Stale transaction; discard and keep waiting.
		}
	}
}
