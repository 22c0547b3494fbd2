package replay

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/gowebpki/jcs"
	"github.com/pkg/errors"

	"github.com/dshills/cryptex/internal/snapshot"
)

// Hash returns the hex sha256 of the RFC 8785 canonical JSON form of the
// normalized layer. Equal layers hash equal regardless of the order their
// sparse collections were built in.
func Hash(l snapshot.Layer) (string, error) {
	l = l.Clone()
	l.Normalize()
	data, err := json.Marshal(l)
	if err != nil {
		return "", errors.Wrap(err, "hash: marshal layer")
	}
	canon, err := jcs.Transform(data)
	if err != nil {
		return "", errors.Wrap(err, "hash: canonicalize")
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:]), nil
}
