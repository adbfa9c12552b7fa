package idle

import (
	"net"
	"testing"
	"time"
)

func TestSupervisorFires(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want Kind
	}{
		{name: "reader", cfg: Config{ReaderIdle: 50 * time.Millisecond, WriterIdle: time.Hour}, want: ReaderIdle},
		{name: "writer", cfg: Config{ReaderIdle: time.Hour, WriterIdle: 50 * time.Millisecond}, want: WriterIdle},
		{name: "all", cfg: Config{AllIdle: 50 * time.Millisecond}, want: AllIdle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fired := make(chan Kind, 1)
			s := New(tt.cfg, func(k Kind) { fired <- k })
			s.Start()
			defer s.Stop()

			select {
			case k := <-fired:
				if k != tt.want {
					t.Fatalf("got %v want %v", k, tt.want)
				}
			case <-time.After(2 * time.Second):
				t.Fatal("supervisor did not fire")
			}
			<-s.Done()
		})
	}
}

func TestSupervisorActivityPostpones(t *testing.T) {
	fired := make(chan Kind, 1)
	s := New(Config{ReaderIdle: 150 * time.Millisecond}, func(k Kind) { fired <- k })
	start := time.Now()
	s.Start()
	defer s.Stop()

	for range 5 {
		time.Sleep(50 * time.Millisecond)
		s.MarkRead()
	}

	select {
	case <-fired:
		if elapsed := time.Since(start); elapsed < 350*time.Millisecond {
			t.Fatalf("fired after %v despite activity", elapsed)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not fire after activity stopped")
	}
}

func TestSupervisorStop(t *testing.T) {
	fired := make(chan Kind, 1)
	s := New(Config{ReaderIdle: 50 * time.Millisecond}, func(k Kind) { fired <- k })
	s.Start()
	s.Stop()
	s.Stop()
	<-s.Done()

	select {
	case k := <-fired:
		t.Fatalf("stopped supervisor fired %v", k)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestSupervisorDisabled(t *testing.T) {
	s := New(Config{}, func(Kind) { t.Error("disabled supervisor fired") })
	s.Start()
	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("disabled supervisor did not finish")
	}
}

func TestWrapMarksActivity(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	s := New(Config{}, nil)
	before := s.lastRead.Load()
	time.Sleep(5 * time.Millisecond)

	wrapped := s.Wrap(a)
	go func() {
		buf := make([]byte, 4)
		_, _ = b.Read(buf)
		_, _ = b.Write([]byte("pong"))
	}()

	if _, err := wrapped.Write([]byte("ping")); err != nil {
		t.Fatal(err)
	}
	if s.lastWrite.Load() <= before {
		t.Fatal("write did not mark activity")
	}

	buf := make([]byte, 4)
	if _, err := wrapped.Read(buf); err != nil {
		t.Fatal(err)
	}
	if s.lastRead.Load() <= before {
		t.Fatal("read did not mark activity")
	}
}
