package edf

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"

	"github.com/neurovault/neurovault-server/internal/errors"
	"github.com/neurovault/neurovault-server/internal/segment"
)

// Clip is a cropped window of a recording's channel data. Samples are
// sub-slices of the parent recording, never copies.
type Clip struct {
	Channels []string
	Samples  [][]float64
	Rate     float64

	start float64
	end   float64
}

// Window returns the [start, end) time range the clip covers, in seconds.
func (c *Clip) Window() (start, end float64) { return c.start, c.end }

// SampleCount returns the number of samples per channel in the clip.
func (c *Clip) SampleCount() int {
	if len(c.Samples) == 0 {
		return 0
	}
	return len(c.Samples[0])
}

// WriteCSV streams the clip as one row per sample: the time offset in
// seconds followed by each channel's physical value.
func (c *Clip) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"time"}, c.Channels...)); err != nil {
		return err
	}

	row := make([]string, len(c.Channels)+1)
	for i := 0; i < c.SampleCount(); i++ {
		row[0] = strconv.FormatFloat(c.start+float64(i)/c.Rate, 'f', 4, 64)
		for j, series := range c.Samples {
			var v float64
			if i < len(series) {
				v = series[i]
			}
			row[j+1] = strconv.FormatFloat(v, 'f', 3, 64)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Crop returns the channel data for the [start, end) window. A zero end
// crops to the recording end. Out-of-bounds windows are rejected.
func (r *Recording) Crop(start, end float64) (segment.Payload, error) {
	if end == 0 {
		end = r.duration
	}
	if start < 0 || end > r.duration || end <= start {
		return nil, errors.Validationf("crop window [%g, %g) outside recording of %gs", start, end, r.duration)
	}

	lo := int(math.Round(start * r.sampleRate))
	hi := int(math.Round(end * r.sampleRate))

	clip := &Clip{
		Channels: r.channels,
		Samples:  make([][]float64, len(r.signals)),
		Rate:     r.sampleRate,
		start:    start,
		end:      end,
	}
	for i, series := range r.signals {
		a, b := lo, hi
		if b > len(series) {
			b = len(series)
		}
		if a > b {
			a = b
		}
		clip.Samples[i] = series[a:b]
	}
	return clip, nil
}
