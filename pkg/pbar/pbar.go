// Copyright (c) 2025 The exhume authors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
package pbar

import (
	"fmt"
	"os"
	"time"
)

const MinRefreshRate = time.Millisecond * 500

// ProgressBarState renders a single-line progress report for an MFT walk.
// The number of allocated records is unknown until the walk ends, so the
// line shows counts and throughput rather than a percentage.
type ProgressBarState struct {
	RecordsSeen    uint64
	EntriesFound   int
	StartTime      time.Time
	LastUpdateTime time.Time
	lastRecords    uint64
}

func NewProgressBarState() *ProgressBarState {
	return &ProgressBarState{
		StartTime: time.Now(),
	}
}

// Render redraws the progress line. Unless forced, redraws are throttled
// to MinRefreshRate.
func (pbs *ProgressBarState) Render(force bool) {
	if !force && !pbs.LastUpdateTime.IsZero() && time.Since(pbs.LastUpdateTime) < MinRefreshRate {
		return
	}

	var speed float64
	if !pbs.LastUpdateTime.IsZero() {
		if secs := time.Since(pbs.LastUpdateTime).Seconds(); secs > 0 {
			speed = float64(pbs.RecordsSeen-pbs.lastRecords) / secs
		}
	}

	pbs.LastUpdateTime = time.Now()
	pbs.lastRecords = pbs.RecordsSeen

	elapsed := time.Since(pbs.StartTime).Round(time.Second)
	fmt.Fprintf(os.Stdout, "\r\033[K%d records scanned, %d entries (%.0f rec/s, %s elapsed)",
		pbs.RecordsSeen, pbs.EntriesFound, speed, elapsed)
}

// Done finishes the progress line with a newline.
func (pbs *ProgressBarState) Done() {
	pbs.Render(true)
	fmt.Fprintln(os.Stdout)
}
