package handlers

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// BandwidthManager enforces a server-wide upload cap shared equally across
// client IPs. Parallel connections from one IP share that IP's slice, and the
// slices are rebalanced whenever an IP starts or finishes its last transfer.
type BandwidthManager struct {
	mu       sync.Mutex
	limitBps float64            // total cap in bytes/sec (0 = unlimited)
	peers    map[string]*ipState // keyed by remote IP
}

type ipState struct {
	limiter *rate.Limiter
	refs    int // active transfers from this IP
}

// chunkSize is the most bytes written per pass through the limiter, and the
// limiter burst.
const chunkSize = 32 * 1024

// NewBandwidthManager creates a manager with the given total cap in bytes per
// second. Pass 0 to disable rate limiting entirely.
func NewBandwidthManager(bytesPerSec float64) *BandwidthManager {
	return &BandwidthManager{
		limitBps: bytesPerSec,
		peers:    make(map[string]*ipState),
	}
}

// Wrap throttles everything h writes. With no cap set h is returned as is.
func (bm *BandwidthManager) Wrap(h http.Handler) http.Handler {
	if bm.limitBps == 0 {
		return h
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		limiter := bm.join(ip)
		defer bm.leave(ip)

		h.ServeHTTP(&limitedResponseWriter{
			ResponseWriter: w,
			ctx:            r.Context(),
			limiter:        limiter,
		}, r)
	})
}

// Peers returns the number of IPs with an active transfer.
func (bm *BandwidthManager) Peers() int {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	return len(bm.peers)
}

func (bm *BandwidthManager) join(ip string) *rate.Limiter {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	st, ok := bm.peers[ip]
	if !ok {
		// Placeholder rate; rebalanceLocked sets the real one.
		st = &ipState{limiter: rate.NewLimiter(1, chunkSize)}
		bm.peers[ip] = st
	}
	st.refs++
	bm.rebalanceLocked()
	return st.limiter
}

func (bm *BandwidthManager) leave(ip string) {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	st, ok := bm.peers[ip]
	if !ok {
		return
	}
	st.refs--
	if st.refs <= 0 {
		delete(bm.peers, ip)
	}
	bm.rebalanceLocked()
}

// rebalanceLocked applies the per-IP share to every limiter. bm.mu must be held.
func (bm *BandwidthManager) rebalanceLocked() {
	n := len(bm.peers)
	if n == 0 || bm.limitBps == 0 {
		return
	}
	perIP := bm.limitBps / float64(n)
	for _, st := range bm.peers {
		st.limiter.SetLimit(rate.Limit(perIP))
		st.limiter.SetBurst(chunkSize)
	}
	logrus.WithFields(logrus.Fields{"peers": n, "alloc": FormatBandwidth(perIP)}).Debug("rate rebalance")
}

// FormatBandwidth formats bytes per second as bits per second, matching the
// units the cap is configured in.
func FormatBandwidth(bytesPerSec float64) string {
	bps := bytesPerSec * 8
	switch {
	case bps >= 1_000_000_000:
		return fmt.Sprintf("%.2f Gbps", bps/1_000_000_000)
	case bps >= 1_000_000:
		return fmt.Sprintf("%.2f Mbps", bps/1_000_000)
	case bps >= 1_000:
		return fmt.Sprintf("%.2f Kbps", bps/1_000)
	default:
		return fmt.Sprintf("%.0f bps", bps)
	}
}

// limitedResponseWriter throttles Write calls through a token bucket.
type limitedResponseWriter struct {
	http.ResponseWriter
	ctx     context.Context
	limiter *rate.Limiter
}

func (lw *limitedResponseWriter) Write(p []byte) (int, error) {
	total := 0
	for len(p) > 0 {
		n := min(len(p), chunkSize)

		// WaitN fails as soon as the client goes away.
		if err := lw.limiter.WaitN(lw.ctx, n); err != nil {
			return total, err
		}

		written, err := lw.ResponseWriter.Write(p[:n])
		total += written
		if err != nil {
			return total, err
		}
		p = p[n:]
	}
	return total, nil
}

// ReadFrom keeps io.Copy on the throttled Write path instead of letting it
// reach the connection's sendfile fast path.
func (lw *limitedResponseWriter) ReadFrom(src io.Reader) (int64, error) {
	buf := make([]byte, chunkSize)
	var total int64
	for {
		nr, rerr := src.Read(buf)
		if nr > 0 {
			nw, werr := lw.Write(buf[:nr])
			total += int64(nw)
			if werr != nil {
				return total, werr
			}
		}
		if rerr == io.EOF {
			return total, nil
		}
		if rerr != nil {
			return total, rerr
		}
	}
}

// Unwrap lets http.ResponseController reach the underlying ResponseWriter.
func (lw *limitedResponseWriter) Unwrap() http.ResponseWriter {
	return lw.ResponseWriter
}

// clientIP extracts the remote IP from the request, stripping the port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
