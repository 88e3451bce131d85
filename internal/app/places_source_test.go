package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"cofind/internal/app"
	"cofind/internal/domain"
)

func TestPlacesSource_BuildsAndCachesSnapshot(t *testing.T) {
	pl := pontianakPlaces()
	cache := &fakeCache{}
	src := app.NewPlacesSource(pl, cache, time.Minute, 2)
	ctx := context.Background()

	snap, err := src.Snapshot(ctx, "Pontianak")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Location != "Pontianak" || len(snap.Shops) != 2 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if rs := snap.Reviews["p1"]; len(rs) != 1 || rs[0].Text != "wifi kencang" {
		t.Fatalf("unexpected reviews: %+v", snap.Reviews)
	}
	if len(snap.Reviews["p2"]) != 0 {
		t.Fatalf("p2 has no details: %+v", snap.Reviews["p2"])
	}

	calls := pl.calls
	again, err := src.Snapshot(ctx, "  pontianak ")
	if err != nil {
		t.Fatalf("snapshot again: %v", err)
	}
	if pl.calls != calls {
		t.Fatalf("second snapshot should be cached (calls %d -> %d)", calls, pl.calls)
	}
	if len(again.Shops) != 2 || len(again.Reviews["p1"]) != 1 {
		t.Fatalf("cached snapshot differs: %+v", again)
	}
}

func TestPlacesSource_ToleratesDetailFailures(t *testing.T) {
	pl := pontianakPlaces()
	pl.detailErr = map[string]error{"p1": errors.New("remote 503")}
	src := app.NewPlacesSource(pl, nil, time.Minute, 0)

	snap, err := src.Snapshot(context.Background(), "Pontianak")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snap.Shops) != 2 || len(snap.Reviews["p1"]) != 0 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	pl.searchErr = domain.ErrNotFound
	if _, err := src.Snapshot(context.Background(), "Pontianak"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("search failure must surface, got %v", err)
	}
}
