package util

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"gotest.tools/assert"
)

func TestTimeout(t *testing.T) {
	x := time.Millisecond * 50
	err := Timeout(func() error {
		time.Sleep(x * 4)
		return errors.New("should not get called")
	}, x)
	assert.ErrorContains(t, err, "Timeout")
	assert.Assert(t, errors.Is(err, ErrTimeout))
}

func TestTimeoutReturnsResult(t *testing.T) {
	err := Timeout(func() error { return errors.New("boom") }, time.Second)
	assert.ErrorContains(t, err, "boom")
	assert.NilError(t, Timeout(func() error { return nil }, time.Second))
}

func TestCatchErrs(t *testing.T) {
	err := CatchErrs(func() error { panic(errors.New("adapter gone")) })
	assert.ErrorContains(t, err, "adapter gone")
	err = CatchErrs(func() error { panic("plain string") })
	assert.ErrorContains(t, err, "plain string")
	assert.NilError(t, CatchErrs(func() error { return nil }))
}
