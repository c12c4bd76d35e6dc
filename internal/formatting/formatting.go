// Package formatting derives display metadata for meetings from audio file
// names.
package formatting

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// datePattern matches 2025_03_04 or 2025-03-04 with an optional 10_00_00
// or T10-00 time part.
var (
	tokenSplitter = regexp.MustCompile(`(?P<lower>[a-z])(?P<upper>[A-Z])`)
	datePattern   = regexp.MustCompile(`(\d{4})[-_.](\d{2})[-_.](\d{2})(?:[-_T ](\d{2})[-_:.]?(\d{2})(?:[-_:.]?(\d{2}))?)?`)
	digitsOnly    = regexp.MustCompile(`^\d+$`)
)

// TitleFromFilename turns "TeamSync_2025_03_04_10_00_00.m4a" into "Team Sync".
// Names without words fall back to the bare file name.
func TitleFromFilename(fileName string) string {
	base := filepath.Base(fileName)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	cleaned := datePattern.ReplaceAllString(base, " ")
	cleaned = strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(cleaned)
	cleaned = tokenSplitter.ReplaceAllString(cleaned, "${lower} ${upper}")

	words := make([]string, 0)
	for _, w := range strings.Fields(cleaned) {
		if digitsOnly.MatchString(w) {
			continue
		}
		words = append(words, w)
	}
	if len(words) == 0 {
		return base
	}
	return strings.Join(words, " ")
}

// DateFromFilename extracts the first date (and optional time) embedded in a
// file name. The second result is false when none is found.
func DateFromFilename(fileName string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	base := filepath.Base(fileName)
	m := datePattern.FindStringSubmatch(base)
	if m == nil {
		return time.Time{}, false
	}
	parts := make([]int, 6)
	for i := 1; i <= 6; i++ {
		if m[i] == "" {
			continue
		}
		v, err := strconv.Atoi(m[i])
		if err != nil {
			return time.Time{}, false
		}
		parts[i-1] = v
	}
	year, month, day, hour, minute, second := parts[0], parts[1], parts[2], parts[3], parts[4], parts[5]
	if month < 1 || month > 12 || day < 1 || day > 31 || hour > 23 || minute > 59 || second > 59 {
		return time.Time{}, false
	}
	dt := time.Date(year, time.Month(month), day, hour, minute, second, 0, loc)
	if dt.Day() != day {
		return time.Time{}, false
	}
	return dt, true
}
