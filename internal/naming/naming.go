package naming

import (
	"fmt"
	"regexp"
	"strconv"
)

// Encoded names carry the upload instant in the leaf name itself:
// "<millis>_<original name>". Entries that predate the manifest are
// recognized only through this scheme.
var encodedPattern = regexp.MustCompile(`^(\d+)_(.+)$`)

// Decoded is the result of parsing an encoded leaf name.
type Decoded struct {
	UploadedAt int64 // unix millis
	Name       string
}

// Encode builds the stored leaf name for a file uploaded at the given
// instant. The original name is embedded verbatim; names that themselves
// start with "<digits>_" stay ambiguous on the way back out.
func Encode(uploadedAtMillis int64, originalName string) string {
	return fmt.Sprintf("%d_%s", uploadedAtMillis, originalName)
}

// Decode parses an encoded leaf name. A name that does not match the
// scheme is not managed by the retention machinery; callers must skip
// such entries rather than treat them as errors.
func Decode(encoded string) (Decoded, bool) {
	m := encodedPattern.FindStringSubmatch(encoded)
	if m == nil {
		return Decoded{}, false
	}
	ts, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return Decoded{}, false
	}
	return Decoded{UploadedAt: ts, Name: m[2]}, true
}
