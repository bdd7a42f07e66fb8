package xsync

import (
	"testing"

	"github.com/sammyshj/stem/internal/test/assert"
)

func TestGoRecover(t *testing.T) {
	t.Parallel()

	errs := Go(func() error {
		panic("anmol")
	})

	err := <-errs
	assert.Contains(t, err, "anmol")
}

func TestGoResult(t *testing.T) {
	t.Parallel()

	errs := Go(func() error {
		return nil
	})

	assert.Success(t, <-errs)
}
