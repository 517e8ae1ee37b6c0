package util

import (
	"fmt"

	"github.com/pkg/errors"
)

type TryCatchBlock struct {
	Try     func()
	Catch   func(error)
	Finally func()
}

func (tcf TryCatchBlock) Do() {
	if tcf.Finally != nil {
		defer tcf.Finally()
	}
	if tcf.Catch != nil {
		defer func() {
			if r := recover(); r != nil {
				tcf.Catch(recoveredError(r))
			}
		}()
	}
	tcf.Try()
}

// CatchErrs runs fn and turns a panic inside it into an error.
// The HCI stack panics on some adapter failures instead of returning.
func CatchErrs(fn func() error) (err error) {
	TryCatchBlock{
		Try: func() { err = fn() },
		Catch: func(e error) {
			err = errors.Wrap(e, "recovered panic")
		},
	}.Do()
	return
}

func recoveredError(r interface{}) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("%v", r)
}
