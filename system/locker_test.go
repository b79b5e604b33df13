package system

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"emperror.dev/errors"
	. "github.com/franela/goblin"
)

func TestLocker(t *testing.T) {
	g := Goblin(t)

	g.Describe("Locker", func() {
		var l *Locker
		g.BeforeEach(func() {
			l = NewLocker()
		})

		g.Describe("Locker#IsLocked", func() {
			g.It("should return false when the channel is empty", func() {
				g.Assert(cap(l.ch)).Equal(1)
				g.Assert(l.IsLocked()).IsFalse()
			})

			g.It("should return true when the channel is at capacity", func() {
				l.ch <- true

				g.Assert(l.IsLocked()).IsTrue()
				<-l.ch
				g.Assert(l.IsLocked()).IsFalse()

				// We don't care what the channel value is, just that there is
				// something in it.
				l.ch <- false
				g.Assert(l.IsLocked()).IsTrue()
				g.Assert(cap(l.ch)).Equal(1)
			})
		})

		g.Describe("Locker#Acquire", func() {
			g.It("should acquire a lock when channel is empty", func() {
				err := l.Acquire()

				g.Assert(err).IsNil()
				g.Assert(cap(l.ch)).Equal(1)
				g.Assert(len(l.ch)).Equal(1)
			})

			g.It("should return an error when the channel is full", func() {
				l.ch <- true

				err := l.Acquire()

				g.Assert(err).IsNotNil()
				g.Assert(errors.Is(err, ErrLockerLocked)).IsTrue()
				g.Assert(cap(l.ch)).Equal(1)
				g.Assert(len(l.ch)).Equal(1)
			})
		})

		g.Describe("Locker#TryAcquire", func() {
			g.It("should acquire a lock when channel is empty", func() {
				g.Timeout(time.Second)

				err := l.TryAcquire(context.Background())

				g.Assert(err).IsNil()
				g.Assert(cap(l.ch)).Equal(1)
				g.Assert(len(l.ch)).Equal(1)
				g.Assert(l.IsLocked()).IsTrue()
			})

			g.It("should block until context is canceled if channel is full", func() {
				g.Timeout(time.Second)
				ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond*500)
				defer cancel()

				l.ch <- true
				err := l.TryAcquire(ctx)

				g.Assert(err).IsNotNil()
				g.Assert(errors.Is(err, ErrLockerLocked)).IsTrue()
				g.Assert(cap(l.ch)).Equal(1)
				g.Assert(len(l.ch)).Equal(1)
				g.Assert(l.IsLocked()).IsTrue()
			})

			g.It("should block until lock can be acquired", func() {
				g.Timeout(time.Second)

				ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond*200)
				defer cancel()

				l.Acquire()
				go func() {
					time.AfterFunc(time.Millisecond*50, func() {
						l.Release()
					})
				}()

				err := l.TryAcquire(ctx)
				g.Assert(err).IsNil()
				g.Assert(cap(l.ch)).Equal(1)
				g.Assert(len(l.ch)).Equal(1)
				g.Assert(l.IsLocked()).IsTrue()
			})
		})

		g.Describe("Locker#TryAcquire with concurrent holders", func() {
			g.It("should only ever allow a single holder at a time", func() {
				g.Timeout(time.Second * 5)

				var wg sync.WaitGroup
				var holders, max int32
				for i := 0; i < 20; i++ {
					wg.Add(1)
					go func() {
						defer wg.Done()
						if err := l.TryAcquire(context.Background()); err != nil {
							return
						}
						n := atomic.AddInt32(&holders, 1)
						for {
							m := atomic.LoadInt32(&max)
							if n <= m || atomic.CompareAndSwapInt32(&max, m, n) {
								break
							}
						}
						time.Sleep(time.Millisecond)
						atomic.AddInt32(&holders, -1)
						l.Release()
					}()
				}
				wg.Wait()

				g.Assert(atomic.LoadInt32(&max)).Equal(int32(1))
				g.Assert(l.IsLocked()).IsFalse()
			})
		})

		g.Describe("Locker#Release", func() {
			g.It("should release when channel is full", func() {
				l.Acquire()
				g.Assert(l.IsLocked()).IsTrue()
				l.Release()
				g.Assert(cap(l.ch)).Equal(1)
				g.Assert(len(l.ch)).Equal(0)
				g.Assert(l.IsLocked()).IsFalse()
			})

			g.It("should release when channel is empty", func() {
				g.Assert(l.IsLocked()).IsFalse()
				l.Release()
				g.Assert(cap(l.ch)).Equal(1)
				g.Assert(len(l.ch)).Equal(0)
				g.Assert(l.IsLocked()).IsFalse()
			})
		})
	})
}
