package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rendersync/internal/component"
	"github.com/roach88/rendersync/internal/config"
	"github.com/roach88/rendersync/internal/engine"
	"github.com/roach88/rendersync/internal/ir"
	"github.com/roach88/rendersync/internal/testutil"
)

func TestTimeline_MergesInSeqOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteEvent(ctx, component.Event{Seq: 1, Component: "c", UID: 1, Kind: component.EventCreated}))
	require.NoError(t, s.WriteFlush(ctx, createTestFlush("f-1", 1, 2, ir.IRObject{"a": ir.IRInt(1)})))
	require.NoError(t, s.WriteEvent(ctx, component.Event{Seq: 3, Component: "c", UID: 1, Kind: component.EventComplete, FlushID: "f-1"}))
	require.NoError(t, s.WriteEvent(ctx, component.Event{Seq: 4, Component: "other", UID: 2, Kind: component.EventCreated}))

	entries, err := s.Timeline(ctx, 1)
	require.NoError(t, err)
	var kinds []string
	for _, e := range entries {
		kinds = append(kinds, e.Kind())
	}
	assert.Equal(t, []string{"created", "flush", "complete"}, kinds)

	all, err := s.Timeline(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestReplayView(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteFlush(ctx, createTestFlush("f-1", 1, 1, ir.IRObject{
		"a": ir.IRInt(1),
		"b": ir.IRObject{"c": ir.IRInt(2), "d": ir.IRInt(3)},
	})))
	require.NoError(t, s.WriteFlush(ctx, createTestFlush("f-2", 1, 2, ir.IRObject{
		"b.c":     ir.IRInt(5),
		"list[1]": ir.IRString("x"),
	})))
	require.NoError(t, s.WriteFlush(ctx, createTestFlush("f-3", 2, 3, ir.IRObject{"a": ir.IRInt(99)})))

	view, err := s.ReplayView(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, ir.IRObject{
		"a":    ir.IRInt(1),
		"b":    ir.IRObject{"c": ir.IRInt(5), "d": ir.IRInt(3)},
		"list": ir.IRArray{nil, ir.IRString("x")},
	}, view)
}

func TestVerify_DetectsTampering(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteFlush(ctx, createTestFlush("f-1", 1, 1, ir.IRObject{"a": ir.IRInt(1)})))
	require.NoError(t, s.WriteFlush(ctx, createTestFlush("f-2", 1, 2, ir.IRObject{"a": ir.IRInt(2)})))

	bad, err := s.Verify(ctx)
	require.NoError(t, err)
	assert.Empty(t, bad)

	_, err = s.db.Exec(`UPDATE flushes SET patch = '{"a":3}' WHERE id = 'f-2'`)
	require.NoError(t, err)

	bad, err = s.Verify(ctx)
	require.NoError(t, err)
	require.Len(t, bad, 1)
	assert.Equal(t, "f-2", bad[0].FlushID)
}

func TestGetLastSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	seq, err := s.GetLastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), seq)

	require.NoError(t, s.WriteFlush(ctx, createTestFlush("f-1", 1, 7, ir.IRObject{})))
	require.NoError(t, s.WriteEvent(ctx, component.Event{Seq: 4, Component: "c", UID: 1, Kind: component.EventCreated}))

	seq, err = s.GetLastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), seq)
}

func TestGetLastUID(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	uid, err := s.GetLastUID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), uid)

	require.NoError(t, s.WriteFlush(ctx, createTestFlush("f-1", 2, 1, ir.IRObject{})))
	require.NoError(t, s.WriteEvent(ctx, component.Event{Seq: 2, Component: "c", UID: 5, Kind: component.EventBroken}))

	uid, err = s.GetLastUID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), uid)
}

func TestStore_AsRecorder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	loop := engine.NewLoop()
	reg := component.NewRegistry(config.Config{}, loop,
		component.WithRecorder(s),
		component.WithFlushIDs(engine.NewSequenceGenerator("f")),
		component.WithReporter(&component.RecordingReporter{}),
	)
	host := testutil.NewFakeHost(nil)
	host.SetAutoComplete(true)
	in := reg.New(host, component.Options{Name: "counter", Data: component.LiteralData(ir.IRObject{"n": ir.IRInt(0)})})

	require.NoError(t, in.Created())
	loop.Drain()
	require.NoError(t, in.Mounted())
	require.NoError(t, in.Set("n", ir.IRInt(1)))
	loop.Drain()

	view, err := s.ReplayView(ctx, in.UID())
	require.NoError(t, err)
	assert.Equal(t, ir.IRObject{"n": ir.IRInt(1), component.IdentityKey: ir.IRInt(in.UID())}, view,
		"replaying the journal reproduces the host view")

	instances, err := s.ListInstances(ctx)
	require.NoError(t, err)
	require.Len(t, instances, 1)
	assert.Equal(t, "counter", instances[0].Component)
	assert.Equal(t, 2, instances[0].Flushes)

	entries, err := s.Timeline(ctx, in.UID())
	require.NoError(t, err)
	var kinds []string
	for _, e := range entries {
		kinds = append(kinds, e.Kind())
	}
	assert.Equal(t, []string{"created", "flush", "complete", "mounted", "flush", "complete", "updated"}, kinds)
}

func TestReplayOnto_StartsFromBase(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteFlush(ctx, createTestFlush("f-1", 1, 1, ir.IRObject{"a.b": ir.IRInt(2)})))

	base := ir.IRObject{"a": ir.IRObject{"b": ir.IRInt(1), "c": ir.IRInt(3)}, "title": ir.IRString("t")}
	view, err := s.ReplayOnto(ctx, 1, base)
	require.NoError(t, err)
	assert.Equal(t, ir.IRObject{
		"a":     ir.IRObject{"b": ir.IRInt(2), "c": ir.IRInt(3)},
		"title": ir.IRString("t"),
	}, view)
	assert.Equal(t, ir.IRInt(1), base["a"].(ir.IRObject)["b"], "base is not modified")
}
