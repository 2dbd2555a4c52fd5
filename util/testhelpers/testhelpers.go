// Copyright 2023-2024, the esc-node authors.
// For license information, see https://github.com/ethscriptions-protocol/esc-node/blob/master/LICENSE

package testhelpers

import (
	"testing"

	"github.com/ethereum/go-ethereum/log"
)

// RequireImpl fails the test on error.
func RequireImpl(t *testing.T, err error, printables ...interface{}) {
	t.Helper()
	if err != nil {
		t.Log(printables...)
		t.Fatal(err)
	}
}

// FailImpl fails the test.
func FailImpl(t *testing.T, printables ...interface{}) {
	t.Helper()
	t.Fatal(printables...)
}

// InitTestLog routes go-ethereum logging to the test output.
func InitTestLog(t *testing.T, level log.Lvl) {
	handler := log.LvlFilterHandler(level, log.StreamHandler(testWriter{t}, log.TerminalFormat(false)))
	log.Root().SetHandler(handler)
}

type testWriter struct {
	t *testing.T
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(string(p))
	return len(p), nil
}
