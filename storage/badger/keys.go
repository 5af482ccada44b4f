package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/poiesic/clinroute/core"
)

// Key prefixes for different data types
const (
	toolCatalogName = "tool"
	orgCatalogName  = "org"

	threadPrefix        = "thread:"
	threadMessagePrefix = "thrmsg:"
	threadMessageSeq    = "thrmsgseq"
	checkpointPrefix    = "chkpt:"
)

// makeCatalogPrefix returns the key prefix shared by every record of a catalog.
// Format: cat:<name>:
func makeCatalogPrefix(catalog string) []byte {
	return []byte(fmt.Sprintf("cat:%s:", catalog))
}

// makeCatalogKey generates a key for a catalog record.
// Format: cat:<name>:<8-byte id>
func makeCatalogKey(catalog string, id core.ID) []byte {
	prefix := makeCatalogPrefix(catalog)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	// BigEndian so prefix iteration visits records in ID order
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makeCatalogSeqKey names the ID sequence of a catalog.
func makeCatalogSeqKey(catalog string) string {
	return fmt.Sprintf("catseq:%s", catalog)
}

// makeThreadKey generates a key for a thread by ID.
func makeThreadKey(id string) []byte {
	return []byte(threadPrefix + id)
}

// makeThreadMessagePrefix returns the prefix of every message in a thread.
// Format: thrmsg:<threadID>:
func makeThreadMessagePrefix(threadID string) []byte {
	return []byte(threadMessagePrefix + threadID + ":")
}

// makeThreadMessageKey generates a composite key for a thread message.
// Format: thrmsg:<threadID>:<8-byte seq>
func makeThreadMessageKey(threadID string, seq uint64) []byte {
	prefix := makeThreadMessagePrefix(threadID)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], seq)
	return buf
}

// makeCheckpointKey generates a key for a thread checkpoint.
func makeCheckpointKey(threadID string) []byte {
	return []byte(checkpointPrefix + threadID)
}
