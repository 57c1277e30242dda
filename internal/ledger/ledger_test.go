package ledger_test

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"catalog-admin/internal/admin"
	"catalog-admin/internal/asset"
	"catalog-admin/internal/ledger"
	"catalog-admin/internal/testutil"
)

func newLedger(t *testing.T, policy asset.Policy, opts ...ledger.Option) *ledger.Ledger {
	t.Helper()
	opts = append([]ledger.Option{ledger.WithIDGenerator(testutil.NewStubIDGenerator())}, opts...)
	return ledger.New(policy, testutil.InstantPreviewGenerator{}, opts...)
}

func stagedNames(l *ledger.Ledger) []string {
	var names []string
	for _, sa := range l.Staged() {
		names = append(names, sa.OriginalName)
	}
	return names
}

func persistedAssets(ids ...string) []admin.PersistedAsset {
	out := make([]admin.PersistedAsset, len(ids))
	for i, id := range ids {
		out[i] = admin.PersistedAsset{ID: id, URL: "https://cdn.example.com/" + id + ".png"}
	}
	return out
}

func primaryCount(snap ledger.Snapshot) int {
	n := 0
	for _, pa := range snap.Persisted {
		if pa.IsPrimary {
			n++
		}
	}
	if _, ok := snap.PrimaryStagedIndex(); ok {
		n++
	}
	return n
}

func TestLedger_AddCandidates(t *testing.T) {
	ctx := context.Background()

	t.Run("first asset becomes primary", func(t *testing.T) {
		l := newLedger(t, asset.BannerImages())
		added, rejected := l.AddCandidates(ctx, []asset.Candidate{testutil.Image("a.png", 10)})
		if added != 1 || len(rejected) != 0 {
			t.Fatalf("AddCandidates() = %d, %v; want 1, none", added, rejected)
		}

		group, index, ok := l.Primary()
		if !ok || group != ledger.Staged || index != 0 {
			t.Errorf("Primary() = %v, %d, %v; want staged, 0, true", group, index, ok)
		}
	})

	t.Run("second asset does not move the primary", func(t *testing.T) {
		l := newLedger(t, asset.BannerImages())
		l.AddCandidates(ctx, []asset.Candidate{testutil.Image("a.png", 10)})
		l.AddCandidates(ctx, []asset.Candidate{testutil.Image("b.png", 10)})

		group, index, ok := l.Primary()
		if !ok || group != ledger.Staged || index != 0 {
			t.Errorf("Primary() = %v, %d, %v; want staged, 0, true", group, index, ok)
		}
	})

	t.Run("no default primary when persisted assets exist", func(t *testing.T) {
		l := newLedger(t, asset.BannerImages())
		l.Load(persistedAssets("p1"))
		l.AddCandidates(ctx, []asset.Candidate{testutil.Image("a.png", 10)})

		if _, _, ok := l.Primary(); ok {
			t.Error("Primary() set, want unset")
		}
	})

	t.Run("oversized file is rejected without mutation", func(t *testing.T) {
		l := newLedger(t, asset.BannerImages())
		l.AddCandidates(ctx, []asset.Candidate{testutil.Image("a.png", 10)})
		before := stagedNames(l)

		big := testutil.Image("huge.png", int(asset.DefaultImageMaxBytes)+1)
		added, rejected := l.AddCandidates(ctx, []asset.Candidate{big})
		if added != 0 {
			t.Errorf("added = %d, want 0", added)
		}
		if len(rejected) != 1 {
			t.Fatalf("len(rejected) = %d, want 1", len(rejected))
		}
		if rejected[0].File != "huge.png" || rejected[0].Reason != admin.ReasonSize {
			t.Errorf("rejected[0] = %+v, want huge.png/size", rejected[0])
		}
		if got := stagedNames(l); len(got) != len(before) || got[0] != before[0] {
			t.Errorf("staged = %v, want %v", got, before)
		}
	})

	t.Run("wrong type is rejected before size", func(t *testing.T) {
		l := newLedger(t, asset.BannerImages())
		doc := asset.FromBytes("notes.pdf", "application/pdf", make([]byte, asset.DefaultImageMaxBytes+1))
		_, rejected := l.AddCandidates(ctx, []asset.Candidate{doc})
		if len(rejected) != 1 || rejected[0].Reason != admin.ReasonType {
			t.Fatalf("rejected = %v, want one type rejection", rejected)
		}
		if _, staged := l.Len(); staged != 0 {
			t.Errorf("staged = %d, want 0", staged)
		}
	})

	t.Run("capacity is filled then remaining files are rejected individually", func(t *testing.T) {
		l := newLedger(t, asset.ProductImages())
		l.AddCandidates(ctx, []asset.Candidate{
			testutil.Image("1.png", 1), testutil.Image("2.png", 1), testutil.Image("3.png", 1),
		})

		added, rejected := l.AddCandidates(ctx, []asset.Candidate{
			testutil.Image("4.png", 1), testutil.Image("5.png", 1),
			testutil.Image("6.png", 1), testutil.Image("7.png", 1),
		})
		if added != 2 {
			t.Errorf("added = %d, want 2", added)
		}
		if len(rejected) != 2 {
			t.Fatalf("len(rejected) = %d, want 2", len(rejected))
		}
		for i, want := range []string{"6.png", "7.png"} {
			if rejected[i].File != want || rejected[i].Reason != admin.ReasonCapacity {
				t.Errorf("rejected[%d] = %+v, want %s/capacity", i, rejected[i], want)
			}
		}
		if _, staged := l.Len(); staged != asset.DefaultProductMaxImages {
			t.Errorf("staged = %d, want %d", staged, asset.DefaultProductMaxImages)
		}
	})
}

func TestLedger_AddCandidates_PreservesSelectionOrder(t *testing.T) {
	gen := testutil.NewGatedPreviewGenerator()
	l := ledger.New(asset.BannerImages(), gen, ledger.WithIDGenerator(testutil.NewStubIDGenerator()))

	done := make(chan int)
	go func() {
		added, _ := l.AddCandidates(context.Background(), []asset.Candidate{
			testutil.Image("A.png", 1), testutil.Image("B.png", 1), testutil.Image("C.png", 1),
		})
		done <- added
	}()

	for i := 0; i < 3; i++ {
		select {
		case <-gen.Started():
		case <-time.After(5 * time.Second):
			t.Fatal("previews did not start")
		}
	}

	gen.Release("B.png")
	gen.Release("C.png")
	gen.Release("A.png")

	select {
	case added := <-done:
		if added != 3 {
			t.Fatalf("added = %d, want 3", added)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("AddCandidates did not return")
	}

	got := stagedNames(l)
	want := []string{"A.png", "B.png", "C.png"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("staged = %v, want %v", got, want)
		}
	}

	group, index, ok := l.Primary()
	if !ok || group != ledger.Staged || index != 0 {
		t.Errorf("Primary() = %v, %d, %v; want staged, 0 (A.png)", group, index, ok)
	}
}

func TestLedger_Stage(t *testing.T) {
	gen := testutil.NewGatedPreviewGenerator()
	l := ledger.New(asset.BannerImages(), gen, ledger.WithIDGenerator(testutil.NewStubIDGenerator()))
	l.Load(persistedAssets("p1"))
	gen.Fail("c.png", errors.New("unreadable"))

	type result struct {
		positions []int
		rejected  []*admin.ValidationError
	}
	done := make(chan result, 1)
	go func() {
		positions, rejected := l.Stage(context.Background(), []asset.Candidate{
			testutil.Image("a.png", 1),
			asset.FromBytes("notes.pdf", "application/pdf", []byte("x")),
			testutil.Image("c.png", 1),
			testutil.Image("d.png", 1),
		})
		done <- result{positions, rejected}
	}()

	for i := 0; i < 3; i++ {
		select {
		case <-gen.Started():
		case <-time.After(5 * time.Second):
			t.Fatal("previews did not start")
		}
	}
	gen.Release("d.png")
	gen.Release("c.png")
	gen.Release("a.png")

	var got result
	select {
	case got = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stage did not return")
	}

	want := []int{0, -1, -1, 1}
	if len(got.positions) != len(want) {
		t.Fatalf("positions = %v, want %v", got.positions, want)
	}
	for i := range want {
		if got.positions[i] != want[i] {
			t.Fatalf("positions = %v, want %v", got.positions, want)
		}
	}
	if len(got.rejected) != 2 {
		t.Errorf("rejected = %v, want notes.pdf and c.png", got.rejected)
	}
	if names := stagedNames(l); len(names) != 2 || names[0] != "a.png" || names[1] != "d.png" {
		t.Errorf("staged = %v, want [a.png d.png]", names)
	}
}

func TestLedger_AddCandidates_PreviewFailure(t *testing.T) {
	gen := testutil.NewGatedPreviewGenerator()
	l := ledger.New(asset.BannerImages(), gen)
	gen.Fail("B.png", errors.New("permission denied"))
	for _, name := range []string{"A.png", "B.png", "C.png"} {
		gen.Release(name)
	}

	added, rejected := l.AddCandidates(context.Background(), []asset.Candidate{
		testutil.Image("A.png", 1), testutil.Image("B.png", 1), testutil.Image("C.png", 1),
	})
	if added != 2 {
		t.Errorf("added = %d, want 2", added)
	}
	if len(rejected) != 1 || rejected[0].File != "B.png" || rejected[0].Reason != admin.ReasonUnreadable {
		t.Fatalf("rejected = %v, want B.png/unreadable", rejected)
	}

	got := stagedNames(l)
	if len(got) != 2 || got[0] != "A.png" || got[1] != "C.png" {
		t.Errorf("staged = %v, want [A.png C.png]", got)
	}

	// The failed reservation must be released.
	gen.Release("extra.png")
	more := make([]asset.Candidate, 8)
	for i := range more {
		more[i] = testutil.Image("extra.png", 1)
	}
	added, rejected = l.AddCandidates(context.Background(), more)
	if added != 8 || len(rejected) != 0 {
		t.Errorf("AddCandidates(8) = %d, %d rejected; want 8, 0", added, len(rejected))
	}
}

func TestLedger_RemoveStaged(t *testing.T) {
	ctx := context.Background()

	t.Run("removing the primary unsets it", func(t *testing.T) {
		l := newLedger(t, asset.BannerImages())
		l.AddCandidates(ctx, []asset.Candidate{testutil.Image("a.png", 1), testutil.Image("b.png", 1)})

		if err := l.RemoveStaged(0); err != nil {
			t.Fatalf("RemoveStaged() error = %v", err)
		}
		if _, _, ok := l.Primary(); ok {
			t.Error("Primary() still set after removing it")
		}
		if got := stagedNames(l); len(got) != 1 || got[0] != "b.png" {
			t.Errorf("staged = %v, want [b.png]", got)
		}
	})

	t.Run("primary follows its asset when an earlier entry is removed", func(t *testing.T) {
		l := newLedger(t, asset.BannerImages())
		l.AddCandidates(ctx, []asset.Candidate{
			testutil.Image("a.png", 1), testutil.Image("b.png", 1), testutil.Image("c.png", 1),
		})
		if err := l.SetPrimary(ledger.Staged, 2); err != nil {
			t.Fatalf("SetPrimary() error = %v", err)
		}
		if err := l.RemoveStaged(0); err != nil {
			t.Fatalf("RemoveStaged() error = %v", err)
		}

		_, index, ok := l.Primary()
		if !ok || index != 1 {
			t.Errorf("Primary() index = %d, %v; want 1, true", index, ok)
		}
	})

	t.Run("out of range is a stale index error", func(t *testing.T) {
		l := newLedger(t, asset.BannerImages())
		l.AddCandidates(ctx, []asset.Candidate{testutil.Image("a.png", 1)})

		for _, index := range []int{-1, 1, 5} {
			var stale *admin.StaleIndexError
			if err := l.RemoveStaged(index); !errors.As(err, &stale) {
				t.Errorf("RemoveStaged(%d) error = %v, want StaleIndexError", index, err)
			}
		}
		if _, staged := l.Len(); staged != 1 {
			t.Errorf("staged = %d, want 1", staged)
		}
	})
}

func TestLedger_SetPrimary(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, asset.BannerImages())
	l.Load(persistedAssets("p1", "p2"))
	l.AddCandidates(ctx, []asset.Candidate{testutil.Image("a.png", 1)})

	if err := l.SetPrimary(ledger.Persisted, 1); err != nil {
		t.Fatalf("SetPrimary(persisted, 1) error = %v", err)
	}
	snap := l.Snapshot()
	if id, ok := snap.PrimaryPersistedID(); !ok || id != "p2" {
		t.Errorf("PrimaryPersistedID() = %q, %v; want p2", id, ok)
	}

	if err := l.SetPrimary(ledger.Staged, 0); err != nil {
		t.Fatalf("SetPrimary(staged, 0) error = %v", err)
	}
	snap = l.Snapshot()
	if snap.Persisted[1].IsPrimary {
		t.Error("p2 still primary after moving the designation")
	}
	if i, ok := snap.PrimaryStagedIndex(); !ok || i != 0 {
		t.Errorf("PrimaryStagedIndex() = %d, %v; want 0, true", i, ok)
	}

	var stale *admin.StaleIndexError
	if err := l.SetPrimary(ledger.Persisted, 2); !errors.As(err, &stale) {
		t.Errorf("SetPrimary(persisted, 2) error = %v, want StaleIndexError", err)
	}
	if err := l.SetPrimary(ledger.Staged, 1); !errors.As(err, &stale) {
		t.Errorf("SetPrimary(staged, 1) error = %v, want StaleIndexError", err)
	}
	if i, ok := l.Snapshot().PrimaryStagedIndex(); !ok || i != 0 {
		t.Error("failed SetPrimary changed the designation")
	}
}

func TestLedger_Load(t *testing.T) {
	l := newLedger(t, asset.BannerImages())
	assets := persistedAssets("p1", "p2", "p3")
	assets[1].IsPrimary = true
	assets[2].IsPrimary = true
	l.Load(assets)

	snap := l.Snapshot()
	if primaryCount(snap) != 1 {
		t.Fatalf("primary count = %d, want 1", primaryCount(snap))
	}
	if id, _ := snap.PrimaryPersistedID(); id != "p2" {
		t.Errorf("primary = %q, want p2", id)
	}
	if !assets[2].IsPrimary {
		t.Error("Load mutated the caller's slice")
	}
}

func TestLedger_MarkPersistedForDeletion(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*ledger.Ledger, *testutil.RecordingDeleter) {
		t.Helper()
		deleter := &testutil.RecordingDeleter{}
		l := newLedger(t, asset.BannerImages(), ledger.WithDeleter(deleter))
		assets := persistedAssets("b1", "b2", "b3")
		assets[1].IsPrimary = true
		l.Load(assets)
		return l, deleter
	}

	t.Run("confirmed deletion of the primary fires eagerly and unsets primary", func(t *testing.T) {
		l, deleter := setup(t)
		confirm := testutil.Yes()

		ok, err := l.MarkPersistedForDeletion(ctx, "b2", confirm)
		if err != nil || !ok {
			t.Fatalf("MarkPersistedForDeletion() = %v, %v; want true, nil", ok, err)
		}
		if calls := deleter.Calls(); len(calls) != 1 || calls[0] != "b2" {
			t.Errorf("deleter calls = %v, want [b2]", calls)
		}
		if len(confirm.Prompts) != 1 {
			t.Errorf("prompts = %d, want 1", len(confirm.Prompts))
		}

		persisted := l.Persisted()
		if len(persisted) != 2 || persisted[0].ID != "b1" || persisted[1].ID != "b3" {
			t.Errorf("persisted = %v, want [b1 b3]", persisted)
		}
		if _, _, ok := l.Primary(); ok {
			t.Error("Primary() set after deleting it, want unset")
		}

		if err := l.SetPrimary(ledger.Persisted, 1); err != nil {
			t.Fatalf("SetPrimary() error = %v", err)
		}
		if id, _ := l.Snapshot().PrimaryPersistedID(); id != "b3" {
			t.Errorf("primary = %q, want b3", id)
		}
	})

	t.Run("declined deletion changes nothing", func(t *testing.T) {
		l, deleter := setup(t)

		ok, err := l.MarkPersistedForDeletion(ctx, "b1", testutil.No())
		if err != nil || ok {
			t.Fatalf("MarkPersistedForDeletion() = %v, %v; want false, nil", ok, err)
		}
		if len(deleter.Calls()) != 0 {
			t.Error("deleter called after decline")
		}
		if p, _ := l.Len(); p != 3 {
			t.Errorf("persisted = %d, want 3", p)
		}
	})

	t.Run("failed remote deletion keeps the asset", func(t *testing.T) {
		l, deleter := setup(t)
		deleter.Err = &admin.TransportError{StatusCode: 502, Err: errors.New("bad gateway")}

		if _, err := l.MarkPersistedForDeletion(ctx, "b2", testutil.Yes()); err == nil {
			t.Fatal("MarkPersistedForDeletion() expected error")
		}
		if p, _ := l.Len(); p != 3 {
			t.Errorf("persisted = %d, want 3", p)
		}
		if id, _ := l.Snapshot().PrimaryPersistedID(); id != "b2" {
			t.Errorf("primary = %q, want b2", id)
		}
	})

	t.Run("unknown asset is a stale reference", func(t *testing.T) {
		l, deleter := setup(t)
		var stale *admin.StaleIndexError
		if _, err := l.MarkPersistedForDeletion(ctx, "nope", testutil.Yes()); !errors.As(err, &stale) {
			t.Errorf("error = %v, want StaleIndexError", err)
		}
		if len(deleter.Calls()) != 0 {
			t.Error("deleter called for unknown asset")
		}
	})

	t.Run("no deleter means unsupported", func(t *testing.T) {
		l := newLedger(t, asset.ProductImages())
		l.Load(persistedAssets("p1"))
		if _, err := l.MarkPersistedForDeletion(ctx, "p1", testutil.Yes()); !errors.Is(err, admin.ErrUnsupported) {
			t.Errorf("error = %v, want ErrUnsupported", err)
		}
	})
}

func TestLedger_Discard(t *testing.T) {
	l := newLedger(t, asset.BannerImages())
	l.Load(persistedAssets("p1"))
	l.AddCandidates(context.Background(), []asset.Candidate{testutil.Image("a.png", 1)})
	if err := l.SetPrimary(ledger.Staged, 0); err != nil {
		t.Fatal(err)
	}

	l.Discard()

	if p, s := l.Len(); p != 1 || s != 0 {
		t.Errorf("Len() = %d, %d; want 1, 0", p, s)
	}
	if _, _, ok := l.Primary(); ok {
		t.Error("staged primary survived Discard")
	}
}

func TestLedger_PrimaryUniqueness(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 20; run++ {
		deleter := &testutil.RecordingDeleter{}
		l := newLedger(t, asset.BannerImages(), ledger.WithDeleter(deleter))
		assets := persistedAssets("p1", "p2", "p3", "p4")
		assets[rng.Intn(len(assets))].IsPrimary = true
		l.Load(assets)

		for step := 0; step < 200; step++ {
			persisted, staged := l.Len()
			switch rng.Intn(4) {
			case 0:
				l.AddCandidates(ctx, []asset.Candidate{testutil.Image("x.png", 1), testutil.Image("y.png", 1)})
			case 1:
				_ = l.RemoveStaged(rng.Intn(staged + 1))
			case 2:
				if rng.Intn(2) == 0 {
					_ = l.SetPrimary(ledger.Persisted, rng.Intn(persisted+1))
				} else {
					_ = l.SetPrimary(ledger.Staged, rng.Intn(staged+1))
				}
			case 3:
				if persisted > 0 {
					id := l.Persisted()[rng.Intn(persisted)].ID
					_, _ = l.MarkPersistedForDeletion(ctx, id, testutil.Yes())
				}
			}

			snap := l.Snapshot()
			if n := primaryCount(snap); n > 1 {
				t.Fatalf("run %d step %d: %d primaries", run, step, n)
			}
			if len(snap.Persisted)+len(snap.Staged) == 0 && snap.HasPrimary {
				t.Fatalf("run %d step %d: primary set on empty ledger", run, step)
			}
		}
	}
}
