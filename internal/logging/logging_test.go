package logger

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestLoggerLevels(t *testing.T) {
	color.NoColor = true

	tests := []struct {
		name      string
		logger    Logger
		wantInfo  bool
		wantDebug bool
		wantWarn  bool
	}{
		{"quiet", Logger{}, false, false, false},
		{"verbose", Logger{Verbose: true}, true, false, true},
		{"debug", Logger{Debug: true}, true, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out, errOut bytes.Buffer
			l := tt.logger
			l.Out, l.Err = &out, &errOut

			l.Infof("info %d", 1)
			l.Debugf("debug %d", 2)
			l.Warnf("warn %d", 3)
			l.WarnfAlways("always %d", 4)
			l.Errorf("error %d", 5)

			if got := strings.Contains(out.String(), "[info] info 1"); got != tt.wantInfo {
				t.Errorf("info shown = %v, want %v", got, tt.wantInfo)
			}
			if got := strings.Contains(out.String(), "[debug] debug 2"); got != tt.wantDebug {
				t.Errorf("debug shown = %v, want %v", got, tt.wantDebug)
			}
			if got := strings.Contains(errOut.String(), "[warn] warn 3"); got != tt.wantWarn {
				t.Errorf("warn shown = %v, want %v", got, tt.wantWarn)
			}
			if !strings.Contains(errOut.String(), "[warn] always 4") {
				t.Errorf("WarnfAlways not shown: %q", errOut.String())
			}
			if !strings.Contains(errOut.String(), "[error] error 5") {
				t.Errorf("Errorf not shown: %q", errOut.String())
			}
		})
	}
}

func TestErrorfAndReturn(t *testing.T) {
	color.NoColor = true
	sentinel := errors.New("boom")

	var errOut bytes.Buffer
	l := Logger{Debug: true, Err: &errOut}
	err := l.ErrorfAndReturn("failed to open ledger", sentinel)

	if !errors.Is(err, sentinel) {
		t.Fatalf("expected wrapped sentinel, got %v", err)
	}
	if err.Error() != "failed to open ledger: boom" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if !strings.Contains(errOut.String(), "failed to open ledger: boom") {
		t.Errorf("expected debug log, got %q", errOut.String())
	}

	errOut.Reset()
	_ = Logger{Err: &errOut}.ErrorfAndReturn("quiet", sentinel)
	if errOut.Len() != 0 {
		t.Errorf("expected no output without --debug, got %q", errOut.String())
	}
}
