package orders

import (
	"math/rand"
	"regexp"
	"strconv"
	"strings"
)

const suffixAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var sequencePattern = regexp.MustCompile(`^#([0-9A-Z]{3})-`)

// NextOrderNumber derives the display number that follows latest, e.g.
// "#00Z-ABCDE" -> "#010-K2P9Q". An empty or unparseable latest restarts the
// sequence at 1.
func NextOrderNumber(latest string) string {
	return NextOrderNumberFrom(latest, rand.Intn)
}

// NextOrderNumberFrom is NextOrderNumber with an injectable source for the
// random suffix; intn must return a value in [0, n).
func NextOrderNumberFrom(latest string, intn func(n int) int) string {
	seq := int64(1)
	if m := sequencePattern.FindStringSubmatch(latest); m != nil {
		if n, err := strconv.ParseInt(m[1], 36, 64); err == nil {
			seq = n + 1
		}
	}
	code := strings.ToUpper(strconv.FormatInt(seq, 36))
	if len(code) < 3 {
		code = strings.Repeat("0", 3-len(code)) + code
	}

	var b strings.Builder
	b.Grow(10)
	b.WriteByte('#')
	b.WriteString(code)
	b.WriteByte('-')
	for i := 0; i < 5; i++ {
		b.WriteByte(suffixAlphabet[intn(len(suffixAlphabet))])
	}
	return b.String()
}
