// Package hcp — progress.go renders byte-level transfer progress as a
// single rewriting terminal line.
package hcp

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// progressState tracks a transfer and renders its status line. The line
// is rewritten in place with a carriage return and shows the label,
// done/total bytes, a transfer rate, and a percentage:
//
//	sample_R1.fastq.gz  5242880 / 20971520  11.73MB/s  (25.00%)
//
// The rate is resampled at one-second intervals so it reads as a current
// speed rather than a lifetime average. Upload and download paths both
// feed it, possibly from concurrent part transfers, hence the lock.
type progressState struct {
	mu    sync.Mutex
	label string
	total int64
	done  int64
	out   io.Writer

	prevTime  time.Time
	prevDone  int64
	speedMBps float64
}

// sampleInterval is how often the displayed transfer rate is recomputed.
const sampleInterval = time.Second

func newProgressState(label string, total int64, out io.Writer) *progressState {
	return &progressState{
		label:    label,
		total:    total,
		out:      out,
		prevTime: time.Now(),
	}
}

// add records n more transferred bytes and redraws the status line.
func (p *progressState) add(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done += int64(n)
	p.updateSpeed(time.Now())

	percent := 100.0
	if p.total > 0 {
		percent = float64(p.done) / float64(p.total) * 100
	}

	// Trailing spaces clear leftovers of a previously longer line.
	fmt.Fprintf(p.out, "\r%s  %d / %d  %.2fMB/s  (%.2f%%)      ",
		p.label, p.done, p.total, p.speedMBps, percent)
}

// updateSpeed recomputes the displayed rate once per sample interval.
func (p *progressState) updateSpeed(now time.Time) {
	elapsed := now.Sub(p.prevTime)
	if elapsed < sampleInterval {
		return
	}
	p.speedMBps = float64(p.done-p.prevDone) / elapsed.Seconds() / (1 << 20)
	p.prevTime = now
	p.prevDone = p.done
}

// progressReader counts bytes flowing through sequential reads. It
// intentionally implements only io.Reader: exposing the underlying file's
// Seek would let the uploader rewind without the count following.
type progressReader struct {
	r io.Reader
	p *progressState
}

func (r *progressReader) Read(b []byte) (int, error) {
	n, err := r.r.Read(b)
	if n > 0 {
		r.p.add(n)
	}
	return n, err
}

// progressWriterAt counts bytes written by the downloader, which writes
// parts concurrently at offsets.
type progressWriterAt struct {
	w io.WriterAt
	p *progressState
}

func (w *progressWriterAt) WriteAt(b []byte, off int64) (int, error) {
	n, err := w.w.WriteAt(b, off)
	if n > 0 {
		w.p.add(n)
	}
	return n, err
}
