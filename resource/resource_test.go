// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package resource

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gviegas/glrt/driver/headless"
	"github.com/gviegas/glrt/glerr"
)

type fakeRes struct {
	name  string
	err   error
	calls *[]string
}

func (f *fakeRes) Name() string { return f.name }

func (f *fakeRes) Invalidate() error {
	*f.calls = append(*f.calls, f.name)
	return f.err
}

func TestTable(t *testing.T) {
	var tb table
	ids := make([]ID, 100)
	for i := range ids {
		ids[i] = tb.add(entry{kind: KindBuffer, seq: uint64(i)})
		if int(ids[i]) != i {
			t.Fatalf("table.add:\nhave %d\nwant %d", ids[i], i)
		}
	}
	if n := len(tb.ents); n != 100 {
		t.Fatalf("table.ents:\nhave %d entries\nwant 100", n)
	}
	e, ok := tb.drop(ids[10])
	if !ok || e.seq != 10 || e.id != ids[10] {
		t.Fatalf("table.drop:\nhave %v, %t\nwant seq 10, true", e, ok)
	}
	if tb.has(ids[10]) {
		t.Fatal("table.has: dropped ID still present")
	}
	if _, ok := tb.drop(ids[10]); ok {
		t.Fatal("table.drop: unexpected success for dropped ID")
	}
	// The last entry fills the hole.
	if e := tb.ents[10]; e.id != ids[99] || e.seq != 99 || tb.pos[ids[99]] != 10 {
		t.Fatalf("table.drop: entry moved incorrectly:\nhave %v", e)
	}
	if id := tb.add(entry{seq: 100}); id != ids[10] {
		t.Fatalf("table.add:\nhave %d\nwant %d", id, ids[10])
	}
	if tb.has(-1) || tb.has(1<<20) {
		t.Fatal("table.has: unexpected success for out of range ID")
	}
	tb.clear()
	if len(tb.ents) != 0 || tb.has(0) {
		t.Fatal("table.clear: entries remain")
	}
}

func TestUnregisterReuse(t *testing.T) {
	reg := NewRegistry()
	ctx := reg.NewContext(headless.New(headless.Tiers["gles2"]), Options{})
	var calls []string
	a := ctx.Register(KindBuffer, &fakeRes{name: "a", calls: &calls})
	b := ctx.Register(KindTexture, &fakeRes{name: "b", calls: &calls})
	ctx.Unregister(a)
	ctx.Unregister(a)
	if n := ctx.Count(KindBuffer); n != 0 {
		t.Fatalf("Context.Count:\nhave %d\nwant 0", n)
	}
	if c := ctx.Register(KindShader, &fakeRes{name: "c", calls: &calls}); c != a || c == b {
		t.Fatalf("Context.Register:\nhave %v\nwant %v", c, a)
	}
	rs := ctx.Resources()
	if len(rs) != 2 || rs[0].Name() != "b" || rs[1].Name() != "c" {
		t.Fatalf("Context.Resources:\nhave %v", rs)
	}
}

func TestInvalidateAll(t *testing.T) {
	reg := NewRegistry()
	ctx := reg.NewContext(headless.New(headless.Tiers["gles2"]), Options{})
	var calls []string
	failed := errors.New("out of memory")
	add := func(k Kind, name string, err error) ID {
		return ctx.Register(k, &fakeRes{name: name, err: err, calls: &calls})
	}
	add(KindFramebuffer, "fb0", nil)
	add(KindShader, "prog0", failed)
	b0 := add(KindBuffer, "buf0", nil)
	add(KindTexture, "tex0", nil)
	add(KindBuffer, "buf1", nil)
	add(KindTexture, "tex1", errors.New("bad data"))
	add(KindBuffer, "buf2", nil)
	ctx.Unregister(b0)
	ctx.Unregister(b0)

	err := reg.InvalidateAll(ctx)
	want := "tex0 tex1 buf1 buf2 prog0 fb0"
	if have := strings.Join(calls, " "); have != want {
		t.Fatalf("Registry.InvalidateAll: order:\nhave %s\nwant %s", have, want)
	}
	if !errors.Is(err, failed) {
		t.Fatalf("Registry.InvalidateAll:\nhave %v\nwant %v", err, failed)
	}
	var re *glerr.RebuildError
	if !errors.As(err, &re) || re.Name != "prog0" && re.Name != "tex1" {
		t.Fatalf("Registry.InvalidateAll: expected a RebuildError, have %v", err)
	}
	if n := strings.Count(err.Error(), "rebuild "); n != 2 {
		t.Fatalf("Registry.InvalidateAll: failures:\nhave %d\nwant 2", n)
	}
	if n := ctx.Count(KindBuffer); n != 2 {
		t.Fatalf("Context.Count:\nhave %d\nwant 2", n)
	}
}

func TestHandle(t *testing.T) {
	reg := NewRegistry()
	ctx := reg.NewContext(headless.New(headless.Tiers["gles3"]), Options{StrictUniforms: true})
	other := reg.NewContext(headless.New(headless.Tiers["gles3"]), Options{})
	var calls []string
	ctx.Register(KindTexture, &fakeRes{name: "tex", calls: &calls})
	other.Register(KindTexture, &fakeRes{name: "other", calls: &calls})

	if err := reg.Handle(Event{Kind: Lost, Context: ctx}); err != nil {
		t.Fatalf("Registry.Handle(Lost):\nhave %v\nwant nil", err)
	}
	if !ctx.Lost() || ctx.Generation() != 1 {
		t.Fatal("Registry.Handle(Lost): context not marked as lost")
	}
	if err := reg.Handle(Event{Kind: Restored, Context: ctx}); err != nil {
		t.Fatalf("Registry.Handle(Restored):\nhave %v\nwant nil", err)
	}
	if ctx.Lost() || len(calls) != 1 || calls[0] != "tex" {
		t.Fatalf("Registry.Handle(Restored): rebuilt %v", calls)
	}

	st := reg.Status()
	if !strings.Contains(st, "ctx#1 { textures: 1, buffers: 0, shaders: 0, framebuffers: 0 }") {
		t.Fatalf("Registry.Status:\n%s", st)
	}
	if err := reg.Handle(Event{Kind: Destroyed, Context: ctx}); err != nil {
		t.Fatalf("Registry.Handle(Destroyed):\nhave %v\nwant nil", err)
	}
	if n := ctx.Count(KindTexture); n != 0 {
		t.Fatalf("Context.Count:\nhave %d\nwant 0", n)
	}
	if cs := reg.Contexts(); len(cs) != 1 || cs[0] != other {
		t.Fatal("Registry.Contexts: destroyed context still present")
	}
}

func TestWatch(t *testing.T) {
	reg := NewRegistry()
	ctx := reg.NewContext(headless.New(headless.Tiers["gles2"]), Options{})
	var calls []string
	ctx.Register(KindShader, &fakeRes{name: "prog", err: errors.New("link failed"), calls: &calls})

	events := make(chan Event)
	done := make(chan error)
	go func() { done <- reg.Watch(context.Background(), events) }()

	result := make(chan error, 1)
	events <- Event{Kind: Lost, Context: ctx}
	events <- Event{Kind: Restored, Context: ctx, Result: result}
	if err := <-result; err == nil {
		t.Fatal("Registry.Watch: expected the rebuild error")
	}
	close(events)
	if err := <-done; err != nil {
		t.Fatalf("Registry.Watch:\nhave %v\nwant nil", err)
	}

	c, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := reg.Watch(c, make(chan Event)); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Registry.Watch:\nhave %v\nwant %v", err, context.DeadlineExceeded)
	}
}
