package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/Sentinel-Gate/httpdissect/internal/domain/capture"
	"github.com/Sentinel-Gate/httpdissect/pkg/httpmsg"
)

func rec(id string, kind httpmsg.Kind) capture.Record {
	return capture.Record{ID: id, Kind: kind}
}

func ids(recs []capture.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}

func TestCaptureStore_NewestFirst(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewCaptureStore(10)
	if err := store.Append(ctx, rec("1", httpmsg.KindRequest), rec("2", httpmsg.KindResponse), rec("3", httpmsg.KindRequest)); err != nil {
		t.Fatalf("Append() error: %v", err)
	}

	got, err := store.Query(ctx, capture.Query{})
	if err != nil {
		t.Fatalf("Query() error: %v", err)
	}
	if fmt.Sprint(ids(got)) != "[3 2 1]" {
		t.Errorf("Query() = %v, want [3 2 1]", ids(got))
	}

	got, _ = store.Query(ctx, capture.Query{Kind: httpmsg.KindRequest, Limit: 1})
	if fmt.Sprint(ids(got)) != "[3]" {
		t.Errorf("Query(request, 1) = %v, want [3]", ids(got))
	}
}

func TestCaptureStore_Eviction(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewCaptureStore(3)
	for i := 1; i <= 5; i++ {
		_ = store.Append(ctx, rec(fmt.Sprint(i), httpmsg.KindRequest))
	}

	if store.Len() != 3 {
		t.Errorf("Len() = %d, want 3", store.Len())
	}
	got, _ := store.Query(ctx, capture.Query{})
	if fmt.Sprint(ids(got)) != "[5 4 3]" {
		t.Errorf("Query() = %v, want [5 4 3]", ids(got))
	}
}

func TestCaptureStore_Match(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewCaptureStore(0)
	_ = store.Append(ctx,
		capture.Record{ID: "a", Kind: httpmsg.KindRequest, Method: "GET"},
		capture.Record{ID: "b", Kind: httpmsg.KindRequest, Method: "POST"},
	)
	got, _ := store.Query(ctx, capture.Query{Match: func(r capture.Record) bool { return r.Method == "POST" }})
	if fmt.Sprint(ids(got)) != "[b]" {
		t.Errorf("Query(POST) = %v, want [b]", ids(got))
	}
}

func TestCaptureStore_Closed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewCaptureStore(2)
	_ = store.Append(ctx, rec("1", httpmsg.KindRequest))
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := store.Append(ctx, rec("2", httpmsg.KindRequest)); !errors.Is(err, capture.ErrStoreClosed) {
		t.Errorf("Append() after Close error = %v", err)
	}
	if _, err := store.Query(ctx, capture.Query{}); !errors.Is(err, capture.ErrStoreClosed) {
		t.Errorf("Query() after Close error = %v", err)
	}
}

func TestCaptureStore_Concurrent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewCaptureStore(50)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_ = store.Append(ctx, rec("x", httpmsg.KindRequest))
			}
		}()
		go func() {
			defer wg.Done()
			_, _ = store.Query(ctx, capture.Query{Limit: 10})
		}()
	}
	wg.Wait()

	if store.Len() != 50 {
		t.Errorf("Len() = %d, want 50", store.Len())
	}
}
