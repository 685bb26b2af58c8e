package object

import "bytes"

// SignatureType identifies the cryptographic format of a commit/tag
// signature block.
type SignatureType int8

const (
	SignatureTypeUnknown SignatureType = iota
	SignatureTypeOpenPGP
	SignatureTypeX509
	SignatureTypeSSH
)

func (t SignatureType) String() string {
	switch t {
	case SignatureTypeOpenPGP:
		return "openpgp"
	case SignatureTypeX509:
		return "x509"
	case SignatureTypeSSH:
		return "ssh"
	default:
		return "unknown"
	}
}

type signatureFormat [][]byte

var knownSignatureFormats = map[SignatureType]signatureFormat{
	SignatureTypeOpenPGP: {[]byte("-----BEGIN PGP SIGNATURE-----"), []byte("-----BEGIN PGP MESSAGE-----")},
	SignatureTypeX509:    {[]byte("-----BEGIN CERTIFICATE-----"), []byte("-----BEGIN SIGNED MESSAGE-----")},
	SignatureTypeSSH:     {[]byte("-----BEGIN SSH SIGNATURE-----")},
}

// DetectSignatureType identifies the signature format of a signature
// block's opening bytes.
func DetectSignatureType(b []byte) SignatureType { return typeForSignature(b) }

func typeForSignature(b []byte) SignatureType {
	for t, formats := range knownSignatureFormats {
		for _, begin := range formats {
			if bytes.HasPrefix(b, begin) {
				return t
			}
		}
	}
	return SignatureTypeUnknown
}

// parseSignedBytes returns the offset of the last signature block in b, or
// (-1, SignatureTypeUnknown) if none is found. Mirrors git's
// gpg-interface.c:parse_signed_buffer, so a trailing signature can be
// split from the signed message deterministically.
func parseSignedBytes(b []byte) (int, SignatureType) {
	n, match := 0, -1
	var t SignatureType
	for n < len(b) {
		i := b[n:]
		if st := typeForSignature(i); st != SignatureTypeUnknown {
			match = n
			t = st
		}
		if eol := bytes.IndexByte(i, '\n'); eol >= 0 {
			n += eol + 1
			continue
		}
		break
	}
	if match == -1 {
		return -1, SignatureTypeUnknown
	}
	return match, t
}
