package live

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_LateSubscriberGetsLatest(t *testing.T) {
	v := NewValue(1)
	v.Set(2)
	v.Set(3)

	ch, cancel := v.Subscribe()
	defer cancel()

	select {
	case got := <-ch:
		assert.Equal(t, 3, got)
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive latest value")
	}
}

func TestValue_EmptyHasNothingToDeliver(t *testing.T) {
	v := Empty[string]()
	_, ok := v.Get()
	assert.False(t, ok)

	ch, cancel := v.Subscribe()
	defer cancel()
	select {
	case <-ch:
		t.Fatal("unexpected element on empty value")
	default:
	}

	v.Set("a")
	assert.Equal(t, "a", <-ch)
}

func TestValue_Conflates(t *testing.T) {
	v := NewValue(0)
	ch, cancel := v.Subscribe()
	defer cancel()

	for i := 1; i <= 100; i++ {
		v.Set(i)
	}
	assert.Equal(t, 100, <-ch)
	select {
	case x := <-ch:
		t.Fatalf("expected no backlog, got %d", x)
	default:
	}
}

func TestValue_CancelClosesChannel(t *testing.T) {
	v := NewValue("x")
	ch, cancel := v.Subscribe()
	<-ch
	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)

	v.Set("y")
	got, _ := v.Get()
	assert.Equal(t, "y", got)
}

func TestValue_Close(t *testing.T) {
	v := NewValue(7)
	ch, cancel := v.Subscribe()
	defer cancel()
	<-ch

	v.Close()
	v.Close()
	_, ok := <-ch
	assert.False(t, ok)
	assert.True(t, v.Closed())

	v.Set(8)
	got, _ := v.Get()
	assert.Equal(t, 7, got)

	late, lateCancel := v.Subscribe()
	defer lateCancel()
	x, ok := <-late
	assert.True(t, ok)
	assert.Equal(t, 7, x)
	_, ok = <-late
	assert.False(t, ok)
}

func TestValue_Await(t *testing.T) {
	v := NewValue(0)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= 5; i++ {
			v.Set(i)
		}
	}()

	got, err := v.Await(ctx, func(x int) bool { return x == 5 })
	require.NoError(t, err)
	assert.Equal(t, 5, got)
	wg.Wait()

	v.Close()
	_, err = v.Await(ctx, func(x int) bool { return x == 99 })
	assert.ErrorIs(t, err, ErrClosed)
}
