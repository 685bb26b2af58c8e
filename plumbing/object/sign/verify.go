// Package sign verifies OpenPGP signatures attached to commits and
// annotated tags. Signing remains a caller-supplied callback (see
// object.Signer); this package only implements verification, grounded on
// ProtonMail/go-crypto's openpgp implementation.
package sign

import (
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"
)

// Verify checks that signature is a valid OpenPGP signature over payload
// by one of the identities in armoredKeyRing. It returns the matching
// entity's primary identity name on success.
func Verify(payload, signature string, armoredKeyRing string) (string, error) {
	keyring, err := openpgp.ReadArmoredKeyRing(strings.NewReader(armoredKeyRing))
	if err != nil {
		return "", err
	}

	entity, err := openpgp.CheckArmoredDetachedSignature(keyring, strings.NewReader(payload), strings.NewReader(signature), nil)
	if err != nil {
		return "", err
	}
	for name := range entity.Identities {
		return name, nil
	}
	return entity.PrimaryKey.KeyIdString(), nil
}
