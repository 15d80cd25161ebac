package renderdispatch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestRunRendersEveryBand(t *testing.T) {
	var count int32
	bands := make([]Band, 8)
	for i := range bands {
		bands[i] = Band{Index: i, Render: func(ctx context.Context) error {
			atomic.AddInt32(&count, 1)
			return nil
		}}
	}
	d := Dispatcher{MaxWorkers: 4}
	if err := d.Run(context.Background(), bands); err != nil {
		t.Fatal(err)
	}
	if count != 8 {
		t.Fatalf("count = %d, want 8", count)
	}
}

func TestRunPropagatesFirstError(t *testing.T) {
	wantErr := errors.New("band 3 failed")
	bands := make([]Band, 6)
	for i := range bands {
		i := i
		bands[i] = Band{Index: i, Render: func(ctx context.Context) error {
			if i == 3 {
				return wantErr
			}
			return nil
		}}
	}
	d := Dispatcher{}
	if err := d.Run(context.Background(), bands); !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
}

func TestRunCancelsRemainingBandsOnError(t *testing.T) {
	wantErr := errors.New("early failure")
	var canceled int32
	bands := []Band{
		{Index: 0, Render: func(ctx context.Context) error { return wantErr }},
		{Index: 1, Render: func(ctx context.Context) error {
			<-ctx.Done()
			atomic.AddInt32(&canceled, 1)
			return ctx.Err()
		}},
	}
	d := Dispatcher{}
	if err := d.Run(context.Background(), bands); !errors.Is(err, wantErr) && !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want %v or context.Canceled", err, wantErr)
	}
}
