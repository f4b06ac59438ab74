package tomo

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

// Debug output is suppressed above DebugMode unless Verbose is set.
func TestDebugfVerboseGating(t *testing.T) {
	var buf bytes.Buffer
	saved := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(saved)

	savedMode, savedVerbose := mode, Verbose
	defer func() {
		mode, Verbose = savedMode, savedVerbose
	}()

	SetLogMode(InfoMode)
	Verbose = false
	Debugf("quiet %d\n", 1)
	if buf.Len() != 0 {
		t.Errorf("Debugf wrote at InfoMode without Verbose: %q", buf.String())
	}

	Verbose = true
	Debugf("loud %d\n", 2)
	if !strings.Contains(buf.String(), "loud 2") {
		t.Errorf("Verbose Debugf not written: %q", buf.String())
	}

	buf.Reset()
	Verbose = false
	SetLogMode(DebugMode)
	Debugf("debug %d\n", 3)
	if !strings.Contains(buf.String(), "debug 3") {
		t.Errorf("DebugMode Debugf not written: %q", buf.String())
	}
}
