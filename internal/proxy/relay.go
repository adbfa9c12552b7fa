package proxy

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/die-net/socksrelay/internal/traffic"
)

// Relay copies bytes between client and dest in both directions until either
// side closes or fails, or ctx is done. The first pipe to stop closes both
// sockets, so the other pipe unblocks and no half-open state survives.
//
// Bytes received from client are counted as read and bytes delivered to
// client as written. Relay returns the first error that is not a plain close.
func Relay(ctx context.Context, client, dest net.Conn, counter *traffic.Counter) error {
	var closeOnce sync.Once
	closeBoth := func() {
		closeOnce.Do(func() {
			_ = client.Close()
			_ = dest.Close()
		})
	}
	defer closeBoth()

	stop := context.AfterFunc(ctx, closeBoth)
	defer stop()

	var g errgroup.Group

	g.Go(func() error {
		defer closeBoth()
		return pipe(dest, client, counter.AddRead, nil)
	})

	g.Go(func() error {
		defer closeBoth()
		return pipe(client, dest, nil, counter.AddWritten)
	})

	return g.Wait()
}

// pipe forwards src to dst, reporting received bytes to onRead and forwarded
// bytes to onWrite. EOF and reads or writes on an already closed socket are
// not errors.
func pipe(dst io.Writer, src io.Reader, onRead, onWrite func(int)) error {
	bp := relayBuffers.Get().(*[]byte)
	defer relayBuffers.Put(bp)
	buf := *bp

	for {
		nr, rerr := src.Read(buf)
		if nr > 0 {
			if onRead != nil {
				onRead(nr)
			}
			nw, werr := dst.Write(buf[:nr])
			if onWrite != nil {
				onWrite(nw)
			}
			if werr != nil {
				return quiet(werr)
			}
			if nw != nr {
				return io.ErrShortWrite
			}
		}
		if rerr != nil {
			return quiet(rerr)
		}
	}
}

func quiet(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return nil
	}
	return err
}
