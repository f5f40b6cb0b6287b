package models

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
)

// RecordID derives the stable identity of an indexed record from its
// source, page and chunk id. Re-ingesting the same document with the same
// chunking parameters produces the same identities, so upserts overwrite
// rather than duplicate.
func RecordID(source string, page, chunkID int) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s_%d_%d", source, page, chunkID)))
	return hex.EncodeToString(sum[:])
}
