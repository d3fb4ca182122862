// Package reportwriter defines the element-at-a-time interface crash reports
// are produced through, with a binary backend for report files and a
// readable backend for local debugging.
package reportwriter

// NoKey is passed for elements that have no key, such as array members.
const NoKey = ""

// nullKey is written when an object member is added without a key, so the
// object stays well formed for existing readers.
const nullKey = "<null>"

// Writer emits one report element per call. Keys are only used when the
// current container is an object. Every call returns nil on success; after
// the first failure the document must be abandoned.
type Writer interface {
	AddBoolean(key string, value bool) error
	AddInteger(key string, value int64) error
	AddUnsigned(key string, value uint64) error
	AddFloat(key string, value float64) error
	AddString(key string, value string) error
	AddNull(key string) error
	// AddUUID writes value as canonical hyphenated hex. A nil value is
	// written as null.
	AddUUID(key string, value *[16]byte) error
	BeginObject(key string) error
	BeginArray(key string) error
	EndContainer() error
}

// UUIDLength is the length of a formatted UUID.
const UUIDLength = 36

const hexDigits = "0123456789abcdef"

// FormatUUID writes src into dst as lowercase 8-4-4-4-12 hex.
func FormatUUID(dst *[UUIDLength]byte, src *[16]byte) {
	j := 0
	for i, b := range src {
		switch i {
		case 4, 6, 8, 10:
			dst[j] = '-'
			j++
		}
		dst[j] = hexDigits[b>>4]
		dst[j+1] = hexDigits[b&0x0f]
		j += 2
	}
}
