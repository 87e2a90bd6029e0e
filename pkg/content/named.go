package content

import (
	"github.com/opencontainers/go-digest"
	"github.com/pkg/errors"
)

type Name string

func (n Name) String() string {
	return string(n)
}

func (n Name) Name() string {
	return string(n)
}

type Digest digest.Digest

func (d *Digest) UnmarshalText(t []byte) error {
	dgst, err := digest.Parse(string(t))
	if err != nil {
		return err
	}
	*d = Digest(dgst)
	return nil
}

func (d Digest) String() string {
	return string(d)
}

// Reference is either a tag or a digest.
type Reference string

func (ref Reference) Digest() (digest.Digest, error) {
	return digest.Parse(string(ref))
}

func (ref Reference) Tag() (string, error) {
	if _, err := ref.Digest(); err != nil {
		return string(ref), nil
	}
	return "", errors.New("digest not a tag")
}
