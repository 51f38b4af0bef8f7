package media

import (
	"bufio"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	silenceStartRe = regexp.MustCompile(`silence_start:\s*(-?[0-9.]+)`)
	silenceEndRe   = regexp.MustCompile(`silence_end:\s*(-?[0-9.]+)`)
	durationRe     = regexp.MustCompile(`Duration:\s*(\d+):(\d+):(\d+(?:\.\d+)?)`)
)

// parseSilence extracts silence intervals from silencedetect stderr output.
// A silence still open at end of input is closed at the input duration when
// ffmpeg reported one, and dropped otherwise.
func parseSilence(stderr string) []SilenceInterval {
	var (
		out      []SilenceInterval
		open     bool
		start    float64
		duration = -1.0
	)

	sc := bufio.NewScanner(strings.NewReader(stderr))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if duration < 0 {
			if m := durationRe.FindStringSubmatch(line); m != nil {
				duration = clock(m[1], m[2], m[3])
				continue
			}
		}
		if m := silenceStartRe.FindStringSubmatch(line); m != nil {
			v, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				continue
			}
			start, open = max(v, 0), true
			continue
		}
		if m := silenceEndRe.FindStringSubmatch(line); m != nil && open {
			end, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				continue
			}
			if end > start {
				out = append(out, SilenceInterval{Start: start, End: end})
			}
			open = false
		}
	}
	if open && duration > start {
		out = append(out, SilenceInterval{Start: start, End: duration})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

func clock(h, m, s string) float64 {
	hh, _ := strconv.Atoi(h)
	mm, _ := strconv.Atoi(m)
	ss, _ := strconv.ParseFloat(s, 64)
	return float64(hh*3600+mm*60) + ss
}
