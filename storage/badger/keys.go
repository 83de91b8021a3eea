package badger

import (
	"github.com/poiesic/knownet/storage"
)

// Key prefixes for different data types
const (
	recordPrefix = "rec:"
	metaPrefix   = "meta:"
)

// makeRecordKey generates the key for a cached record.
// Format: rec:<fingerprint>
func makeRecordKey(ns storage.Namespace, input string) []byte {
	return []byte(recordPrefix + storage.Fingerprint(ns, input))
}

// makeMetaKey generates the key for namespace metadata.
func makeMetaKey(name string) []byte {
	return []byte(metaPrefix + name)
}
