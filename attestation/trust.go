package attestation

import "crypto/x509"

// buildsTrustPath reports whether chain (leaf first, DER-encoded, as carried
// in x5c) can be verified up to at least one of roots. It builds an
// x509.CertPool from roots and the chain's intermediates and asks the
// standard library to find a verified chain, rather than hand-rolling
// signature checks up the path.
func buildsTrustPath(chain [][]byte, roots [][]byte) bool {
	if len(chain) == 0 || len(roots) == 0 {
		return false
	}
	leaf, err := x509.ParseCertificate(chain[0])
	if err != nil {
		return false
	}

	pool := x509.NewCertPool()
	for _, r := range roots {
		if c, err := x509.ParseCertificate(r); err == nil {
			pool.AddCert(c)
		}
	}

	intermediates := x509.NewCertPool()
	for _, der := range chain[1:] {
		if c, err := x509.ParseCertificate(der); err == nil {
			intermediates.AddCert(c)
		}
	}

	_, err = leaf.Verify(x509.VerifyOptions{
		Roots:         pool,
		Intermediates: intermediates,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
		CurrentTime:   leaf.NotBefore,
	})
	return err == nil
}
