package credentials

import (
	"encoding/hex"
	"encoding/json"

	"golang.org/x/crypto/blake2b"

	"github.com/ruteri/storage-config-detail/interfaces"
)

// fingerprintKey domain-separates payload fingerprints from other blake2b uses.
var fingerprintKey = []byte("storage-credential-fingerprint")

// Fingerprint returns a short keyed BLAKE2b digest of a credential payload so
// two views can be compared without exposing the secret. An empty payload has
// an empty fingerprint.
func Fingerprint(payload interfaces.Settings) string {
	if len(payload) == 0 {
		return ""
	}

	// encoding/json sorts map keys, which makes the encoding canonical.
	data, err := json.Marshal(payload)
	if err != nil {
		return ""
	}

	h, err := blake2b.New(16, fingerprintKey)
	if err != nil {
		return ""
	}
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
