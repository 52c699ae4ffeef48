package gpg

import (
	"regexp"
	"strings"
)

var hexFingerprint = regexp.MustCompile(`^[A-Fa-f0-9]+$`)

// ParseFingerprint extracts the first fingerprint from `--list-keys
// --with-colons` output. The fingerprint lives in field 10 of `fpr` records.
// It is validated as hexadecimal before being returned, since it will be
// passed back to gpg as a --recipient argument.
func ParseFingerprint(colonsOutput string) (string, bool) {
	for _, line := range strings.Split(colonsOutput, "\n") {
		if !strings.HasPrefix(line, "fpr:") {
			continue
		}
		fields := strings.Split(line, ":")
		if len(fields) < 10 {
			continue
		}
		fpr := fields[9]
		if fpr != "" && hexFingerprint.MatchString(fpr) {
			return fpr, true
		}
	}
	return "", false
}
