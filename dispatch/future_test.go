package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFuture_Wait(t *testing.T) {
	p := NewPool(1)
	t.Cleanup(p.Close)

	f := Submit(p, func() (int, error) { return 42, nil })

	got, err := f.Wait()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
}

func TestFuture_Err(t *testing.T) {
	wantErr := errors.New("boom")
	p := NewPool(1)
	t.Cleanup(p.Close)

	f := Submit(p, func() (string, error) { return "", wantErr })

	if err := f.Err(); !errors.Is(err, wantErr) {
		t.Errorf("expected %v, got %v", wantErr, err)
	}
}

func TestFuture_Done(t *testing.T) {
	f := Async(NewDispatcher(), func() (struct{}, error) { return struct{}{}, nil })

	select {
	case <-f.Done():
	case <-time.After(time.Second):
		t.Fatal("Done channel was not closed in time")
	}
}

func TestFuture_WaitContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	f := Async(NewDispatcher(), func() (int, error) {
		<-release
		return 1, nil
	})

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()

	if _, err := f.WaitContext(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context.DeadlineExceeded, got %v", err)
	}
}

func TestFuture_Panic(t *testing.T) {
	tests := []struct {
		name     string
		dispatch func(fn func() (int, error)) *Future[int]
	}{
		{
			name: "pool",
			dispatch: func(fn func() (int, error)) *Future[int] {
				p := NewPool(1)
				t.Cleanup(p.Close)
				return Submit(p, fn)
			},
		},
		{
			name: "low priority",
			dispatch: func(fn func() (int, error)) *Future[int] {
				return Async(NewDispatcher(), fn)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := tt.dispatch(func() (int, error) { panic("kaboom") })

			err := f.Err()
			if !errors.Is(err, ErrPanic) {
				t.Fatalf("expected ErrPanic, got %v", err)
			}

			var pe *PanicError
			if !errors.As(err, &pe) {
				t.Fatalf("expected *PanicError, got %T", err)
			}
			if pe.Value != "kaboom" {
				t.Errorf("expected panic value %q, got %v", "kaboom", pe.Value)
			}
			if len(pe.Stack) == 0 {
				t.Error("expected a stack trace")
			}
		})
	}
}

func TestPanicError_UnwrapsErrorValue(t *testing.T) {
	cause := errors.New("underlying")
	err := error(&PanicError{Value: cause})

	if !errors.Is(err, ErrPanic) {
		t.Error("expected errors.Is(err, ErrPanic)")
	}
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is(err, cause)")
	}
}

func TestSubmit_NilFunc(t *testing.T) {
	p := NewPool(1)
	t.Cleanup(p.Close)

	if err := Submit[int](p, nil).Err(); !errors.Is(err, ErrNilTask) {
		t.Errorf("expected ErrNilTask, got %v", err)
	}
}
