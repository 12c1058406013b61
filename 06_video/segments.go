package video

import "fmt"

// Segment is one image's slot on the timeline.
type Segment struct {
	Index    int
	Start    float64
	Duration float64
	FadeIn   bool
	FadeOut  bool
}

// PlanSegments splits target seconds evenly across n images. The last
// segment takes the floating point remainder so durations sum to target.
func PlanSegments(target float64, n int) []Segment {
	if n <= 0 || target <= 0 {
		return nil
	}
	each := target / float64(n)
	segs := make([]Segment, n)
	var start float64
	for i := range segs {
		d := each
		if i == n-1 {
			d = target - start
		}
		segs[i] = Segment{Index: i, Start: start, Duration: d, FadeIn: i == 0, FadeOut: i == n-1}
		start += d
	}
	return segs
}

// filter builds the per-segment video filter chain.
func (s Segment) filter(width, height, fps int, fade float64) string {
	f := fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,setsar=1,fps=%d",
		width, height, width, height, fps)
	if fade > 0 && fade*2 > s.Duration {
		fade = s.Duration / 2
	}
	if s.FadeIn && fade > 0 {
		f += fmt.Sprintf(",fade=t=in:st=0:d=%.3f", fade)
	}
	if s.FadeOut && fade > 0 {
		f += fmt.Sprintf(",fade=t=out:st=%.3f:d=%.3f", s.Duration-fade, fade)
	}
	return f + ",format=yuv420p"
}
