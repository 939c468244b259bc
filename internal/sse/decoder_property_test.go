package sse

import (
	"encoding/json"
	"reflect"
	"sort"
	"strings"
	"testing"
	"unicode"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// buildStream renders one data frame per title plus a malformed frame after
// every third one.
func buildStream(titles []string) string {
	var b strings.Builder
	for i, title := range titles {
		payload, _ := json.Marshal(map[string]any{
			"type":     "monthly_generated",
			"progress": i,
			"data":     map[string]any{"month_number": i + 1, "title": title},
		})
		b.WriteString("data: ")
		b.Write(payload)
		b.WriteString("\n\n")
		if i%3 == 2 {
			b.WriteString("data: {not json\n\n")
		}
	}
	return b.String()
}

// splitAt cuts raw at the given offsets (taken modulo its length).
func splitAt(raw []byte, offsets []int) [][]byte {
	if len(raw) == 0 {
		return [][]byte{raw}
	}
	cuts := make([]int, 0, len(offsets))
	for _, o := range offsets {
		cuts = append(cuts, o%len(raw))
	}
	sort.Ints(cuts)

	var chunks [][]byte
	prev := 0
	for _, c := range cuts {
		chunks = append(chunks, raw[prev:c])
		prev = c
	}
	return append(chunks, raw[prev:])
}

func decodeChunks(chunks [][]byte) []Frame {
	d := NewDecoder()
	var frames []Frame
	for _, c := range chunks {
		frames = append(frames, d.Feed(c)...)
	}
	return append(frames, d.Flush()...)
}

func TestDecoder_ChunkingInvariance(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("arbitrary chunk boundaries yield the same frames", prop.ForAll(
		func(korean []string, ascii []string, offsets []int) bool {
			titles := append(append([]string{}, korean...), ascii...)
			raw := []byte(buildStream(titles))

			whole := decodeChunks([][]byte{raw})
			split := decodeChunks(splitAt(raw, offsets))

			return reflect.DeepEqual(whole, split)
		},
		gen.SliceOf(gen.UnicodeString(unicode.Hangul)),
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(gen.IntRange(0, 1<<16)),
	))

	properties.Property("malformed frames never hide well-formed ones", prop.ForAll(
		func(titles []string, offsets []int) bool {
			raw := []byte(buildStream(titles))

			parsed := 0
			for _, f := range decodeChunks(splitAt(raw, offsets)) {
				var v map[string]any
				if f.JSON(&v) == nil {
					parsed++
				}
			}
			return parsed == len(titles)
		},
		gen.SliceOf(gen.UnicodeString(unicode.Hangul)),
		gen.SliceOf(gen.IntRange(0, 1<<16)),
	))

	properties.TestingRun(t)
}
