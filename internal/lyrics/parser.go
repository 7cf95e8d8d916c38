package lyrics

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/xlfish233/netease-tui/api"
)

var timeTagRe = regexp.MustCompile(`\[(\d+):(\d+)(?:[.:](\d+))?\]`)

// Parse parses LRC lyric text and an optional translated LRC into timed
// lines sorted by time. Translated lines are merged onto original lines
// that share the same timestamp.
func Parse(lrc, translated string) []api.LyricLine {
	lines := parseOne(lrc)

	if translated != "" {
		byTime := make(map[int64]int, len(lines))
		for i, l := range lines {
			byTime[l.TimeMs] = i
		}
		for _, t := range parseOne(translated) {
			if i, ok := byTime[t.TimeMs]; ok && t.Text != "" {
				lines[i].Translation = t.Text
			}
		}
	}

	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].TimeMs < lines[j].TimeMs
	})
	return lines
}

// parseOne expands one LRC document; a line may carry several time tags.
func parseOne(text string) []api.LyricLine {
	var out []api.LyricLine
	for _, raw := range strings.Split(text, "\n") {
		raw = strings.TrimRight(raw, "\r")
		tags := timeTagRe.FindAllStringSubmatch(raw, -1)
		if len(tags) == 0 {
			continue
		}
		content := strings.TrimSpace(timeTagRe.ReplaceAllString(raw, ""))
		for _, tag := range tags {
			out = append(out, api.LyricLine{
				TimeMs: tagToMs(tag),
				Text:   content,
			})
		}
	}
	return out
}

func tagToMs(tag []string) int64 {
	min, _ := strconv.ParseInt(tag[1], 10, 64)
	sec, _ := strconv.ParseInt(tag[2], 10, 64)
	ms := int64(0)
	if tag[3] != "" {
		frac := tag[3]
		// [mm:ss.xx] is centiseconds, [mm:ss.xxx] is milliseconds
		switch len(frac) {
		case 1:
			ms, _ = strconv.ParseInt(frac, 10, 64)
			ms *= 100
		case 2:
			ms, _ = strconv.ParseInt(frac, 10, 64)
			ms *= 10
		default:
			ms, _ = strconv.ParseInt(frac[:3], 10, 64)
		}
	}
	return min*60_000 + sec*1000 + ms
}

// LineAt returns the index of the line active at elapsed-offset ms,
// or -1 before the first line.
func LineAt(lines []api.LyricLine, elapsedMs, offsetMs int64) int {
	at := elapsedMs - offsetMs
	idx := -1
	for i, l := range lines {
		if l.TimeMs > at {
			break
		}
		idx = i
	}
	return idx
}
